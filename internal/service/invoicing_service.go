package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pastahub/internal/idoklad"
	"pastahub/internal/model"
	"pastahub/internal/repository"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InvoicingGateway is the consumed slice of the accounting API. The
// implementation handles authentication, including the single retry after
// a 401; this layer never retries on its own.
type InvoicingGateway interface {
	PostInvoice(ctx context.Context, contactID int, lines []idoklad.LineItem, description string) (idoklad.Result, error)
}

// --- DTOs ---

type InvoiceOutcome struct {
	OrderID         string `json:"order_id"`
	AlreadyInvoiced bool   `json:"already_invoiced"`
	InvoiceID       int    `json:"invoice_id,omitempty"`
	Message         string `json:"message,omitempty"`
}

type BatchExclusion struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type BatchInvoiceOutcome struct {
	InvoicedOrderIDs []string         `json:"invoiced_order_ids"`
	Excluded         []BatchExclusion `json:"excluded,omitempty"`
	InvoiceID        int              `json:"invoice_id,omitempty"`
	Title            string           `json:"title,omitempty"`
}

// InvoicingService converts orders into external invoice submissions and
// guarantees each order is invoiced at most once. The gateway call happens
// outside any local transaction; the invoiced flags are committed
// immediately after a successful response with no intervening work.
type InvoicingService interface {
	InvoiceSingle(ctx context.Context, orderID, actorID string) (InvoiceOutcome, error)
	InvoiceByDeliveryNotes(ctx context.Context, orderIDs []string, actorID string) (BatchInvoiceOutcome, error)
}

type invoicingService struct {
	orderRepo    repository.OrderRepository
	customerRepo repository.CustomerRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	gateway      InvoicingGateway
	hub          *ws.Hub
}

func NewInvoicingService(
	orderRepo repository.OrderRepository,
	customerRepo repository.CustomerRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	gateway InvoicingGateway,
	hub *ws.Hub,
) InvoicingService {
	return &invoicingService{
		orderRepo:    orderRepo,
		customerRepo: customerRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		gateway:      gateway,
		hub:          hub,
	}
}

// --- Line merging ---

// sameLineKey reports whether two lines are identical in name, unit and
// unit price. Lines with the same name but different prices stay separate.
func sameLineKey(a, b idoklad.LineItem) bool {
	return a.Name == b.Name && a.Unit == b.Unit && a.UnitPrice.Equal(b.UnitPrice)
}

// addLines sums the quantities of two lines with the same key. Calling it
// with mismatched lines is a programming error, not a user-facing one.
func addLines(a, b idoklad.LineItem) idoklad.LineItem {
	if !sameLineKey(a, b) {
		panic(fmt.Sprintf("cannot add different lines {%s %s %s} and {%s %s %s}",
			a.Name, a.Unit, a.UnitPrice, b.Name, b.Unit, b.UnitPrice))
	}
	a.Amount += b.Amount
	return a
}

// mergeLine folds one line into the list, summing with an existing line
// of the same key or appending a new one.
func mergeLine(lines []idoklad.LineItem, line idoklad.LineItem) []idoklad.LineItem {
	for i := range lines {
		if sameLineKey(lines[i], line) {
			lines[i] = addLines(lines[i], line)
			return lines
		}
	}
	return append(lines, line)
}

func linesFromItems(items []model.Item) []idoklad.LineItem {
	var lines []idoklad.LineItem
	for _, item := range items {
		line := idoklad.LineItem{
			Name:      item.Name,
			Amount:    item.Quantity,
			UnitPrice: item.UnitPrice,
		}
		if item.Product != nil {
			line.Unit = item.Product.Unit()
		}
		lines = mergeLine(lines, line)
	}
	return lines
}

// --- Operations ---

func (s *invoicingService) InvoiceSingle(ctx context.Context, orderID, actorID string) (InvoiceOutcome, error) {
	oid, err := uuid.Parse(orderID)
	if err != nil {
		return InvoiceOutcome{}, fmt.Errorf("invalid order id: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return InvoiceOutcome{}, ErrNotFound
		}
		return InvoiceOutcome{}, err
	}

	outcome := InvoiceOutcome{OrderID: order.ID.String()}
	if order.Invoiced {
		outcome.AlreadyInvoiced = true
		outcome.Message = fmt.Sprintf("Order %d is already invoiced", order.Number)
		return outcome, nil
	}

	contactID, err := s.contactID(ctx, order.CustomerID)
	if err != nil {
		return InvoiceOutcome{}, err
	}

	lines := linesFromItems(order.Items)
	title := fmt.Sprintf("Order %d of %s", order.Number, order.DateRequired.Format("2006-01-02"))

	result, err := s.gateway.PostInvoice(ctx, contactID, lines, title)
	if err != nil {
		return InvoiceOutcome{}, &GatewayError{Err: err}
	}
	if !result.OK() {
		return InvoiceOutcome{}, &GatewayError{StatusCode: result.StatusCode}
	}

	// Commit the flag immediately after the successful response; see the
	// duplicate-invoice note in the package docs for the residual risk.
	if err := s.markInvoiced(ctx, []uuid.UUID{order.ID}, actorID, model.ActionInvoiceOrder, title, result.InvoiceID); err != nil {
		return InvoiceOutcome{}, err
	}

	s.hub.Publish(ws.EventOrderInvoiced, map[string]interface{}{
		"order_id":   order.ID.String(),
		"invoice_id": result.InvoiceID,
	})

	outcome.InvoiceID = result.InvoiceID
	return outcome, nil
}

func (s *invoicingService) InvoiceByDeliveryNotes(ctx context.Context, orderIDs []string, actorID string) (BatchInvoiceOutcome, error) {
	var outcome BatchInvoiceOutcome

	var eligible []*model.Order
	var customerID *uuid.UUID
	for _, id := range orderIDs {
		oid, err := uuid.Parse(id)
		if err != nil {
			outcome.Excluded = append(outcome.Excluded, BatchExclusion{OrderID: id, Reason: "invalid order id"})
			continue
		}
		order, err := s.orderRepo.FindByID(ctx, oid)
		if err != nil {
			outcome.Excluded = append(outcome.Excluded, BatchExclusion{OrderID: id, Reason: "order not found"})
			continue
		}

		switch {
		case order.Invoiced:
			outcome.Excluded = append(outcome.Excluded, BatchExclusion{
				OrderID: id, Reason: fmt.Sprintf("order %d is already invoiced", order.Number)})
		case order.DeliveryNoteNumber == nil:
			outcome.Excluded = append(outcome.Excluded, BatchExclusion{
				OrderID: id, Reason: fmt.Sprintf("order %d has no delivery note", order.Number)})
		case customerID != nil && *customerID != order.CustomerID:
			outcome.Excluded = append(outcome.Excluded, BatchExclusion{
				OrderID: id, Reason: fmt.Sprintf("order %d belongs to a different customer", order.Number)})
		default:
			if customerID == nil {
				cid := order.CustomerID
				customerID = &cid
			}
			eligible = append(eligible, order)
		}
	}

	if len(eligible) == 0 {
		return outcome, fmt.Errorf("no orders eligible for invoicing")
	}

	contactID, err := s.contactID(ctx, *customerID)
	if err != nil {
		return outcome, err
	}

	// Merge across the whole batch, not just within each order.
	var lines []idoklad.LineItem
	for _, order := range eligible {
		for _, line := range linesFromItems(order.Items) {
			lines = mergeLine(lines, line)
		}
	}

	title := batchTitle(eligible)
	outcome.Title = title

	result, err := s.gateway.PostInvoice(ctx, contactID, lines, title)
	if err != nil {
		return outcome, &GatewayError{Err: err}
	}
	if !result.OK() {
		return outcome, &GatewayError{StatusCode: result.StatusCode}
	}

	ids := make([]uuid.UUID, 0, len(eligible))
	for _, order := range eligible {
		ids = append(ids, order.ID)
		outcome.InvoicedOrderIDs = append(outcome.InvoicedOrderIDs, order.ID.String())
	}
	// One update for the whole batch: every flag flips or none does.
	if err := s.markInvoiced(ctx, ids, actorID, model.ActionInvoiceBatch, title, result.InvoiceID); err != nil {
		return outcome, err
	}

	s.hub.Publish(ws.EventOrderInvoiced, map[string]interface{}{
		"order_ids":  outcome.InvoicedOrderIDs,
		"invoice_id": result.InvoiceID,
	})

	outcome.InvoiceID = result.InvoiceID
	return outcome, nil
}

// batchTitle renders the invoice title referencing every included delivery
// note. Single-note and multi-note batches use different phrasing.
func batchTitle(orders []*model.Order) string {
	if len(orders) == 1 {
		o := orders[0]
		return fmt.Sprintf("Delivery note %d of %s", *o.DeliveryNoteNumber, o.DateRequired.Format("2006-01-02"))
	}
	refs := make([]string, 0, len(orders))
	for _, o := range orders {
		refs = append(refs, fmt.Sprintf("%d (%s)", *o.DeliveryNoteNumber, o.DateRequired.Format("2006-01-02")))
	}
	return "Delivery notes " + strings.Join(refs, ", ")
}

func (s *invoicingService) contactID(ctx context.Context, customerID uuid.UUID) (int, error) {
	customer, err := s.customerRepo.FindByID(ctx, customerID)
	if err != nil {
		return 0, fmt.Errorf("failed to load customer: %w", err)
	}
	if customer.IDokladContactID == nil {
		return 0, fmt.Errorf("customer %q is not linked to an accounting contact", customer.Name)
	}
	return *customer.IDokladContactID, nil
}

func (s *invoicingService) markInvoiced(ctx context.Context, ids []uuid.UUID, actorID, auditAction, title string, invoiceID int) error {
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.orderRepo.MarkInvoiced(txCtx, ids); err != nil {
			return fmt.Errorf("failed to mark orders invoiced: %w", err)
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(actorID); parseErr == nil {
			actor = &parsed
		}
		orderIDs := make([]string, 0, len(ids))
		for _, id := range ids {
			orderIDs = append(orderIDs, id.String())
		}
		details, _ := json.Marshal(map[string]interface{}{
			"order_ids":  orderIDs,
			"invoice_id": invoiceID,
		})
		audit := &model.AuditLog{
			UserID:     actor,
			Action:     auditAction,
			EntityID:   orderIDs[0],
			EntityName: title,
			Details:    string(details),
		}
		if err := s.auditRepo.Log(txCtx, audit); err != nil {
			return fmt.Errorf("failed to write audit log: %w", err)
		}
		return nil
	})
}
