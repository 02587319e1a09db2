package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pastahub/internal/calendar"
	"pastahub/internal/model"
	"pastahub/internal/repository"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type DraftItemRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
}

type SaveDraftRequest struct {
	DeliveryAddressID string             `json:"delivery_address_id" binding:"required"`
	DateRequired      string             `json:"date_required" binding:"required"` // YYYY-MM-DD
	CustomerNote      string             `json:"customer_note"`
	Items             []DraftItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ItemResponse struct {
	ID        string `json:"id"`
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Unit      string `json:"unit"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}

type OrderResponse struct {
	ID                 string         `json:"id"`
	Number             int            `json:"number"`
	CustomerID         string         `json:"customer_id"`
	CustomerName       string         `json:"customer_name,omitempty"`
	DeliveryAddressID  string         `json:"delivery_address_id,omitempty"`
	DateRequired       string         `json:"date_required"`
	Status             string         `json:"status"`
	OrderedAt          string         `json:"ordered_at,omitempty"`
	Invoiced           bool           `json:"invoiced"`
	DeliveryNoteNumber *int           `json:"delivery_note_number,omitempty"`
	CustomerNote       string         `json:"customer_note,omitempty"`
	StaffNote          string         `json:"staff_note,omitempty"`
	Items              []ItemResponse `json:"items"`
	TotalPrice         string         `json:"total_price"`
}

// ActionOutcome reports the result of one order within a batch action.
// A failing order never aborts the rest of the batch.
type ActionOutcome struct {
	OrderID     string `json:"order_id"`
	OrderNumber int    `json:"order_number"`
	OK          bool   `json:"ok"`
	Message     string `json:"message,omitempty"`
}

type ListOrdersFilter struct {
	CustomerID string
	Status     string
	Page       int
	Limit      int
}

// OrderService governs the order lifecycle: the single open draft per
// customer, submission against the delivery calendar, and the
// PENDING -> {REJECTED, CONFIRMED} -> COMPLETED state machine with its
// stock interaction.
type OrderService interface {
	GetDraft(ctx context.Context, customerID string) (OrderResponse, error)
	SaveDraft(ctx context.Context, customerID string, staff bool, req SaveDraftRequest) (OrderResponse, error)
	SubmitDraft(ctx context.Context, customerID string) (OrderResponse, error)
	DeleteDraft(ctx context.Context, customerID string) error
	GetOrder(ctx context.Context, id string) (OrderResponse, error)
	ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderResponse, int64, error)
	Confirm(ctx context.Context, orderID, actorID string) error
	Reject(ctx context.Context, orderID, actorID string) error
	Complete(ctx context.Context, orderID, actorID string) error
	ConfirmMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome
	RejectMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome
	CompleteMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome
}

type orderService struct {
	orderRepo    repository.OrderRepository
	productRepo  repository.ProductRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	pricing      PricingService
	stock        StockService
	txManager    repository.TransactionManager
	hub          *ws.Hub
	now          func() time.Time
}

func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	pricing PricingService,
	stock StockService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) OrderService {
	return &orderService{
		orderRepo:    orderRepo,
		productRepo:  productRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		pricing:      pricing,
		stock:        stock,
		txManager:    txManager,
		hub:          hub,
		now:          time.Now,
	}
}

// --- Draft lifecycle ---

func (s *orderService) GetDraft(ctx context.Context, customerID string) (OrderResponse, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid customer id: %w", err)
	}

	draft, err := s.orderRepo.FindDraft(ctx, cid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, ErrNotFound
		}
		return OrderResponse{}, err
	}
	return toOrderResponse(draft), nil
}

// SaveDraft creates or replaces the customer's single open draft. Item
// names and unit prices are frozen here; the delivery date must be one the
// address is actually served on.
func (s *orderService) SaveDraft(ctx context.Context, customerID string, staff bool, req SaveDraftRequest) (OrderResponse, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid customer id: %w", err)
	}
	addressID, err := uuid.Parse(req.DeliveryAddressID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid delivery address id: %w", err)
	}
	dateRequired, err := time.Parse("2006-01-02", req.DateRequired)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid date_required: %w", err)
	}

	address, err := s.customerRepo.FindAddress(ctx, addressID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("delivery address not found: %w", ErrNotFound)
	}
	if address.CustomerID != cid {
		return OrderResponse{}, fmt.Errorf("delivery address does not belong to this customer")
	}
	if !calendar.IsEligible(address, s.now(), dateRequired) {
		return OrderResponse{}, fmt.Errorf("%s is not an eligible delivery date for this address", req.DateRequired)
	}

	maxQty := model.MaxItemQuantitySelfService
	if staff {
		maxQty = model.MaxItemQuantityStaff
	}
	for _, item := range req.Items {
		if item.Quantity < 1 || item.Quantity > maxQty {
			return OrderResponse{}, fmt.Errorf("item quantity must be between 1 and %d", maxQty)
		}
	}

	var draftID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		draft, findErr := s.orderRepo.FindDraft(txCtx, cid)
		if findErr != nil {
			if !errors.Is(findErr, gorm.ErrRecordNotFound) {
				return findErr
			}
			draft = &model.Order{
				CustomerID: cid,
				Status:     model.OrderStatusPending,
			}
		}

		draft.DeliveryAddressID = &addressID
		draft.DateRequired = dateRequired
		draft.CustomerNote = req.CustomerNote

		if draft.ID == uuid.Nil {
			if err := s.orderRepo.Create(txCtx, draft); err != nil {
				return fmt.Errorf("failed to create draft: %w", err)
			}
		} else {
			if err := s.orderRepo.Save(txCtx, draft); err != nil {
				return fmt.Errorf("failed to update draft: %w", err)
			}
			if err := s.orderRepo.DeleteItems(txCtx, draft.ID); err != nil {
				return fmt.Errorf("failed to clear draft items: %w", err)
			}
		}

		for _, itemReq := range req.Items {
			pid, parseErr := uuid.Parse(itemReq.ProductID)
			if parseErr != nil {
				return fmt.Errorf("invalid product id: %w", parseErr)
			}
			product, findErr := s.productRepo.FindByID(txCtx, pid)
			if findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return fmt.Errorf("product not found: %s", itemReq.ProductID)
				}
				return findErr
			}

			unitPrice, priceErr := s.pricing.ResolveUnitPrice(txCtx, cid, product)
			if priceErr != nil {
				return priceErr
			}

			item := &model.Item{
				OrderID:   draft.ID,
				ProductID: product.ID,
				Name:      product.Name,
				Quantity:  itemReq.Quantity,
				UnitPrice: unitPrice,
			}
			if err := s.orderRepo.CreateItem(txCtx, item); err != nil {
				return fmt.Errorf("failed to create item: %w", err)
			}
		}

		draftID = draft.ID
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	saved, err := s.orderRepo.FindByID(ctx, draftID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("failed to reload draft: %w", err)
	}
	return toOrderResponse(saved), nil
}

// SubmitDraft finalizes the draft: the delivery date is re-validated, the
// ordered-at timestamp is stamped and the order enters PENDING.
func (s *orderService) SubmitDraft(ctx context.Context, customerID string) (OrderResponse, error) {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid customer id: %w", err)
	}

	var submitted *model.Order
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		draft, findErr := s.orderRepo.FindDraft(txCtx, cid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return fmt.Errorf("no open draft: %w", ErrNotFound)
			}
			return findErr
		}
		if len(draft.Items) == 0 {
			return fmt.Errorf("cannot submit an empty order")
		}

		if draft.DeliveryAddressID != nil {
			address, addrErr := s.customerRepo.FindAddress(txCtx, *draft.DeliveryAddressID)
			if addrErr != nil {
				return fmt.Errorf("delivery address not found: %w", ErrNotFound)
			}
			if !calendar.IsEligible(address, s.now(), draft.DateRequired) {
				return fmt.Errorf("%s is no longer an eligible delivery date", draft.DateRequired.Format("2006-01-02"))
			}
		}

		now := s.now()
		draft.OrderedAt = &now
		draft.Status = model.OrderStatusPending
		if err := s.orderRepo.Save(txCtx, draft); err != nil {
			return fmt.Errorf("failed to submit order: %w", err)
		}

		details, _ := json.Marshal(map[string]interface{}{
			"date_required": draft.DateRequired.Format("2006-01-02"),
			"items":         len(draft.Items),
		})
		audit := &model.AuditLog{
			Action:     model.ActionSubmitOrder,
			EntityID:   draft.ID.String(),
			EntityName: fmt.Sprintf("order %d", draft.Number),
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}

		submitted = draft
		return nil
	})
	if err != nil {
		return OrderResponse{}, err
	}

	s.hub.Publish(ws.EventOrderPlaced, map[string]interface{}{
		"order_id":      submitted.ID.String(),
		"order_number":  submitted.Number,
		"customer_id":   submitted.CustomerID.String(),
		"date_required": submitted.DateRequired.Format("2006-01-02"),
	})

	return toOrderResponse(submitted), nil
}

// DeleteDraft removes the open draft and its items. Submitted orders are
// never deletable through this path.
func (s *orderService) DeleteDraft(ctx context.Context, customerID string) error {
	cid, err := uuid.Parse(customerID)
	if err != nil {
		return fmt.Errorf("invalid customer id: %w", err)
	}

	draft, err := s.orderRepo.FindDraft(ctx, cid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.orderRepo.Delete(ctx, draft.ID)
}

// --- Queries ---

func (s *orderService) GetOrder(ctx context.Context, id string) (OrderResponse, error) {
	oid, err := uuid.Parse(id)
	if err != nil {
		return OrderResponse{}, fmt.Errorf("invalid order id: %w", err)
	}
	order, err := s.orderRepo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return OrderResponse{}, ErrNotFound
		}
		return OrderResponse{}, err
	}
	return toOrderResponse(order), nil
}

func (s *orderService) ListOrders(ctx context.Context, filter ListOrdersFilter) ([]OrderResponse, int64, error) {
	repoFilter := repository.OrderFilter{Status: filter.Status}
	submitted := true
	repoFilter.Submitted = &submitted
	if filter.CustomerID != "" {
		cid, err := uuid.Parse(filter.CustomerID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid customer id: %w", err)
		}
		repoFilter.CustomerID = &cid
	}

	page, limit := filter.Page, filter.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	orders, total, err := s.orderRepo.List(ctx, repoFilter, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		res = append(res, toOrderResponse(&orders[i]))
	}
	return res, total, nil
}

// --- State machine ---

func (s *orderService) Reject(ctx context.Context, orderID, actorID string) error {
	return s.transition(ctx, orderID, actorID, "rejected", model.ActionRejectOrder,
		func(order *model.Order) error {
			if order.Invoiced {
				return fmt.Errorf("Order %d could not be rejected because it is already invoiced", order.Number)
			}
			if order.Status != model.OrderStatusPending {
				return &InvalidTransitionError{OrderNumber: order.Number, Action: "rejected", Status: order.Status}
			}
			order.Status = model.OrderStatusRejected
			return nil
		}, nil)
}

func (s *orderService) Confirm(ctx context.Context, orderID, actorID string) error {
	return s.transition(ctx, orderID, actorID, "confirmed", model.ActionConfirmOrder,
		func(order *model.Order) error {
			if order.Status != model.OrderStatusPending {
				return &InvalidTransitionError{OrderNumber: order.Number, Action: "confirmed", Status: order.Status}
			}
			order.Status = model.OrderStatusConfirmed
			return nil
		}, nil)
}

// Complete moves a PENDING or CONFIRMED order to COMPLETED and consumes
// stock. The check across all items and the per-item decrements happen
// under row locks inside one transaction: either the status change and
// every decrement commit, or nothing does.
func (s *orderService) Complete(ctx context.Context, orderID, actorID string) error {
	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}

	err := s.transition(ctx, orderID, actorID, "completed", model.ActionCompleteOrder,
		func(order *model.Order) error {
			if order.Status != model.OrderStatusPending && order.Status != model.OrderStatusConfirmed {
				return &InvalidTransitionError{OrderNumber: order.Number, Action: "completed", Status: order.Status}
			}
			order.Status = model.OrderStatusCompleted
			return nil
		},
		func(txCtx context.Context, order *model.Order) error {
			// All-or-nothing stock check; product rows stay locked until
			// the transaction ends, so the later decrement cannot race.
			for _, item := range order.Items {
				product, err := s.productRepo.FindByIDForUpdate(txCtx, item.ProductID)
				if err != nil {
					return fmt.Errorf("failed to lock product: %w", err)
				}
				if item.Quantity > product.OnHand {
					return &InsufficientStockError{
						OrderNumber: order.Number,
						ProductName: product.Name,
						Requested:   item.Quantity,
						OnHand:      product.OnHand,
					}
				}
			}
			return s.stock.ApplyCompletion(txCtx, order, actor)
		})
	if err != nil {
		return err
	}

	s.hub.Publish(ws.EventOrderCompleted, map[string]interface{}{"order_id": orderID})
	return nil
}

// transition runs one guarded status change inside a transaction. mutate
// adjusts the in-memory order or returns the domain error; extra, when
// set, runs after the status is persisted and shares the transaction.
func (s *orderService) transition(
	ctx context.Context,
	orderID, actorID, action, auditAction string,
	mutate func(order *model.Order) error,
	extra func(txCtx context.Context, order *model.Order) error,
) error {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return fmt.Errorf("invalid order id: %w", err)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		order, findErr := s.orderRepo.FindByIDForUpdate(txCtx, oid)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return findErr
		}
		if order.IsDraft() {
			return fmt.Errorf("Order %d has not been submitted yet", order.Number)
		}

		if err := mutate(order); err != nil {
			return err
		}

		if err := s.orderRepo.UpdateStatus(txCtx, order.ID, order.Status); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}

		if extra != nil {
			if err := extra(txCtx, order); err != nil {
				return err
			}
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		details, _ := json.Marshal(map[string]interface{}{"action": action, "status": order.Status})
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     auditAction,
			EntityID:   order.ID.String(),
			EntityName: fmt.Sprintf("order %d", order.Number),
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}

// --- Batch actions ---

func (s *orderService) ConfirmMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome {
	return s.runMany(ctx, orderIDs, actorID, s.Confirm)
}

func (s *orderService) RejectMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome {
	return s.runMany(ctx, orderIDs, actorID, s.Reject)
}

func (s *orderService) CompleteMany(ctx context.Context, orderIDs []string, actorID string) []ActionOutcome {
	return s.runMany(ctx, orderIDs, actorID, s.Complete)
}

// runMany applies an action per order; each order succeeds or fails on its
// own and every outcome is reported back.
func (s *orderService) runMany(ctx context.Context, orderIDs []string, actorID string, action func(context.Context, string, string) error) []ActionOutcome {
	outcomes := make([]ActionOutcome, 0, len(orderIDs))
	for _, id := range orderIDs {
		outcome := ActionOutcome{OrderID: id, OK: true}
		if order, err := s.GetOrder(ctx, id); err == nil {
			outcome.OrderNumber = order.Number
		}
		if err := action(ctx, id, actorID); err != nil {
			outcome.OK = false
			outcome.Message = err.Error()
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes
}

func toOrderResponse(order *model.Order) OrderResponse {
	res := OrderResponse{
		ID:                 order.ID.String(),
		Number:             order.Number,
		CustomerID:         order.CustomerID.String(),
		DateRequired:       order.DateRequired.Format("2006-01-02"),
		Status:             order.Status,
		Invoiced:           order.Invoiced,
		DeliveryNoteNumber: order.DeliveryNoteNumber,
		CustomerNote:       order.CustomerNote,
		StaffNote:          order.StaffNote,
		TotalPrice:         order.TotalPrice().StringFixed(2),
		Items:              make([]ItemResponse, 0, len(order.Items)),
	}
	if order.Customer != nil {
		res.CustomerName = order.Customer.Name
	}
	if order.DeliveryAddressID != nil {
		res.DeliveryAddressID = order.DeliveryAddressID.String()
	}
	if order.OrderedAt != nil {
		res.OrderedAt = order.OrderedAt.Format("2006-01-02 15:04:05")
	}
	for _, item := range order.Items {
		ir := ItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
		}
		if item.Product != nil {
			ir.Unit = item.Product.Unit()
		}
		res.Items = append(res.Items, ir)
	}
	return res
}
