package service

import (
	"context"
	"errors"
	"fmt"

	"pastahub/internal/model"
	"pastahub/internal/repository"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type RecordStockRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Type      string `json:"type" binding:"required,oneof=PRODUCTION COMPLETION LIQUIDATION"`
	OrderID   string `json:"order_id"` // required when type = COMPLETION
	Note      string `json:"note"`
}

type StockTransactionResponse struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	OrderID     string `json:"order_id,omitempty"`
	Type        string `json:"type"`
	Quantity    int    `json:"quantity"`
	StockAfter  int    `json:"stock_after"`
	CommittedBy string `json:"committed_by,omitempty"`
	Note        string `json:"note,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// StockService is the ledger. Recording a transaction is the only way a
// product's on-hand balance changes; the balance is clamped at zero, so a
// decrement larger than the balance is recorded in full but only applied
// down to zero.
type StockService interface {
	Record(ctx context.Context, actorID string, req RecordStockRequest) (StockTransactionResponse, error)
	ApplyCompletion(txCtx context.Context, order *model.Order, actorID *uuid.UUID) error
	ListTransactions(ctx context.Context, productID string, page, limit int) ([]StockTransactionResponse, int64, error)
}

type stockService struct {
	productRepo repository.ProductRepository
	stockRepo   repository.StockTxRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	hub         *ws.Hub
}

func NewStockService(
	productRepo repository.ProductRepository,
	stockRepo repository.StockTxRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) StockService {
	return &stockService{
		productRepo: productRepo,
		stockRepo:   stockRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		hub:         hub,
	}
}

// apply locks the product row, clamps the new balance at zero and persists
// both the balance and the ledger row. Must run inside a transaction.
func (s *stockService) apply(txCtx context.Context, tx *model.StockTransaction) error {
	product, err := s.productRepo.FindByIDForUpdate(txCtx, tx.ProductID)
	if err != nil {
		return fmt.Errorf("failed to lock product: %w", err)
	}

	delta := tx.Quantity
	if tx.Type != model.StockTxProduction {
		delta = -tx.Quantity
	}

	onHand := product.OnHand + delta
	if onHand < 0 {
		onHand = 0
	}

	if err := s.productRepo.UpdateOnHand(txCtx, product.ID, onHand); err != nil {
		return fmt.Errorf("failed to update on-hand quantity: %w", err)
	}

	tx.StockAfter = onHand
	if err := s.stockRepo.Create(txCtx, tx); err != nil {
		return fmt.Errorf("failed to record stock transaction: %w", err)
	}
	return nil
}

func (s *stockService) Record(ctx context.Context, actorID string, req RecordStockRequest) (StockTransactionResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return StockTransactionResponse{}, fmt.Errorf("invalid product id: %w", err)
	}
	if req.Quantity <= 0 {
		return StockTransactionResponse{}, fmt.Errorf("quantity must be positive")
	}

	var orderID *uuid.UUID
	if req.OrderID != "" {
		parsed, parseErr := uuid.Parse(req.OrderID)
		if parseErr != nil {
			return StockTransactionResponse{}, fmt.Errorf("invalid order id: %w", parseErr)
		}
		orderID = &parsed
	}
	if req.Type == model.StockTxCompletion && orderID == nil {
		return StockTransactionResponse{}, fmt.Errorf("a completion transaction requires the order being completed")
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
		actor = &parsed
	}

	stockTx := model.StockTransaction{
		ProductID:   productID,
		OrderID:     orderID,
		Type:        req.Type,
		Quantity:    req.Quantity,
		CommittedBy: actor,
		Note:        req.Note,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.apply(txCtx, &stockTx); err != nil {
			return err
		}

		audit := &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionRecordStock,
			EntityID:   stockTx.ProductID.String(),
			EntityName: req.Type,
			Details:    fmt.Sprintf(`{"quantity": %d, "stock_after": %d}`, stockTx.Quantity, stockTx.StockAfter),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StockTransactionResponse{}, fmt.Errorf("product not found: %w", ErrNotFound)
		}
		return StockTransactionResponse{}, err
	}

	s.hub.Publish(ws.EventStockRecorded, map[string]interface{}{
		"product_id":  stockTx.ProductID.String(),
		"type":        stockTx.Type,
		"quantity":    stockTx.Quantity,
		"stock_after": stockTx.StockAfter,
	})

	return toStockTxResponse(stockTx), nil
}

// ApplyCompletion creates one COMPLETION ledger row per order item,
// decrementing stock. It must be called inside the completion transaction
// so the status change and all decrements commit or roll back together.
func (s *stockService) ApplyCompletion(txCtx context.Context, order *model.Order, actorID *uuid.UUID) error {
	for _, item := range order.Items {
		stockTx := model.StockTransaction{
			ProductID:   item.ProductID,
			OrderID:     &order.ID,
			Type:        model.StockTxCompletion,
			Quantity:    item.Quantity,
			CommittedBy: actorID,
		}
		if err := s.apply(txCtx, &stockTx); err != nil {
			return err
		}
	}
	return nil
}

func (s *stockService) ListTransactions(ctx context.Context, productID string, page, limit int) ([]StockTransactionResponse, int64, error) {
	var pid *uuid.UUID
	if productID != "" {
		parsed, err := uuid.Parse(productID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid product id: %w", err)
		}
		pid = &parsed
	}

	txs, total, err := s.stockRepo.List(ctx, pid, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]StockTransactionResponse, 0, len(txs))
	for _, tx := range txs {
		res = append(res, toStockTxResponse(tx))
	}
	return res, total, nil
}

func toStockTxResponse(tx model.StockTransaction) StockTransactionResponse {
	res := StockTransactionResponse{
		ID:         tx.ID.String(),
		ProductID:  tx.ProductID.String(),
		Type:       tx.Type,
		Quantity:   tx.Quantity,
		StockAfter: tx.StockAfter,
		Note:       tx.Note,
		CreatedAt:  tx.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if tx.Product != nil {
		res.ProductName = tx.Product.Name
	}
	if tx.OrderID != nil {
		res.OrderID = tx.OrderID.String()
	}
	if tx.CommittedBy != nil {
		res.CommittedBy = tx.CommittedBy.String()
	}
	return res
}
