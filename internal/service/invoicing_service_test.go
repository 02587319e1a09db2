package service

import (
	"context"
	"testing"
	"time"

	"pastahub/internal/idoklad"
	"pastahub/internal/model"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoicingFixture struct {
	store   *memStore
	gateway *fakeGateway
	svc     InvoicingService
}

func newInvoicingFixture() *invoicingFixture {
	store := newMemStore()
	gateway := &fakeGateway{result: idoklad.Result{StatusCode: 200, InvoiceID: 4711}}
	svc := NewInvoicingService(
		&fakeOrderRepo{store: store},
		&fakeCustomerRepo{store: store},
		&fakeAuditRepo{store: store},
		&fakeTxManager{store: store},
		gateway,
		ws.NewHub(),
	)
	return &invoicingFixture{store: store, gateway: gateway, svc: svc}
}

func (f *invoicingFixture) seedLinkedCustomer() uuid.UUID {
	customerID := uuid.New()
	contactID := 77
	f.store.customers[customerID] = model.Customer{
		ID: customerID, Name: "Trattoria Roma", TaxID: "12345678", IDokladContactID: &contactID,
	}
	return customerID
}

func (f *invoicingFixture) seedOrder(customerID uuid.UUID, noteNumber *int, items ...model.Item) uuid.UUID {
	orderID := uuid.New()
	f.store.nextNumber++
	orderedAt := time.Now().Add(-time.Hour)
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
	}
	f.store.orders[orderID] = model.Order{
		ID:                 orderID,
		Number:             f.store.nextNumber,
		CustomerID:         customerID,
		DateRequired:       time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
		Status:             model.OrderStatusCompleted,
		OrderedAt:          &orderedAt,
		DeliveryNoteNumber: noteNumber,
		Items:              items,
	}
	return orderID
}

func intPtr(n int) *int { return &n }

// --- Line merging ---

func TestMergeLine_SumsEqualLines(t *testing.T) {
	lines := []idoklad.LineItem{{Name: "Spaghetti", Unit: "kg", Amount: 2, UnitPrice: dec("10.00")}}
	lines = mergeLine(lines, idoklad.LineItem{Name: "Spaghetti", Unit: "kg", Amount: 3, UnitPrice: dec("10.00")})

	require.Len(t, lines, 1)
	assert.Equal(t, 5, lines[0].Amount)
}

func TestMergeLine_DifferentPriceStaysSeparate(t *testing.T) {
	lines := []idoklad.LineItem{{Name: "Spaghetti", Unit: "kg", Amount: 2, UnitPrice: dec("10.00")}}
	lines = mergeLine(lines, idoklad.LineItem{Name: "Spaghetti", Unit: "kg", Amount: 3, UnitPrice: dec("9.50")})

	require.Len(t, lines, 2)
}

func TestAddLines_PanicsOnMismatch(t *testing.T) {
	assert.Panics(t, func() {
		addLines(
			idoklad.LineItem{Name: "Spaghetti", Unit: "kg", UnitPrice: dec("10.00")},
			idoklad.LineItem{Name: "Pesto", Unit: "pcs", UnitPrice: dec("4.50")},
		)
	})
}

// --- Single invoicing ---

func TestInvoiceSingle_PostsOnceAndMarksInvoiced(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()
	orderID := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	outcome, err := f.svc.InvoiceSingle(context.Background(), orderID.String(), uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, 4711, outcome.InvoiceID)
	assert.False(t, outcome.AlreadyInvoiced)
	require.Len(t, f.gateway.calls, 1)
	assert.Equal(t, 77, f.gateway.calls[0].contactID)
	assert.Equal(t, "Order 1 of 2026-03-03", f.gateway.calls[0].description)
	assert.True(t, f.store.orders[orderID].Invoiced)
}

func TestInvoiceSingle_SecondCallIsNoOp(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()
	orderID := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	_, err := f.svc.InvoiceSingle(context.Background(), orderID.String(), uuid.New().String())
	require.NoError(t, err)

	outcome, err := f.svc.InvoiceSingle(context.Background(), orderID.String(), uuid.New().String())
	require.NoError(t, err)

	assert.True(t, outcome.AlreadyInvoiced)
	assert.Contains(t, outcome.Message, "already invoiced")
	assert.Len(t, f.gateway.calls, 1, "the gateway must not be called again")
}

func TestInvoiceSingle_GatewayFailureLeavesFlagUnset(t *testing.T) {
	f := newInvoicingFixture()
	f.gateway.result = idoklad.Result{StatusCode: 500}
	customerID := f.seedLinkedCustomer()
	orderID := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	_, err := f.svc.InvoiceSingle(context.Background(), orderID.String(), uuid.New().String())

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, 500, gatewayErr.StatusCode)
	assert.False(t, f.store.orders[orderID].Invoiced)
}

func TestInvoiceSingle_UnlinkedCustomer(t *testing.T) {
	f := newInvoicingFixture()
	customerID := uuid.New()
	f.store.customers[customerID] = model.Customer{ID: customerID, Name: "Nameless"}
	orderID := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	_, err := f.svc.InvoiceSingle(context.Background(), orderID.String(), uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not linked to an accounting contact")
	assert.Empty(t, f.gateway.calls)
}

// --- Batch invoicing ---

func TestInvoiceByDeliveryNotes_MergesAcrossOrders(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()
	first := f.seedOrder(customerID, intPtr(1),
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})
	second := f.seedOrder(customerID, intPtr(2),
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")},
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})

	outcome, err := f.svc.InvoiceByDeliveryNotes(context.Background(),
		[]string{first.String(), second.String()}, uuid.New().String())
	require.NoError(t, err)

	assert.Len(t, outcome.InvoicedOrderIDs, 2)
	assert.Empty(t, outcome.Excluded)
	assert.Equal(t, "Delivery notes 1 (2026-03-03), 2 (2026-03-03)", outcome.Title)

	require.Len(t, f.gateway.calls, 1)
	lines := f.gateway.calls[0].lines
	require.Len(t, lines, 2)
	var spaghetti, pesto *idoklad.LineItem
	for i := range lines {
		switch lines[i].Name {
		case "Spaghetti":
			spaghetti = &lines[i]
		case "Pesto":
			pesto = &lines[i]
		}
	}
	require.NotNil(t, spaghetti)
	require.NotNil(t, pesto)
	assert.Equal(t, 4, spaghetti.Amount, "equal lines from both orders must be summed")
	assert.Equal(t, 1, pesto.Amount)

	assert.True(t, f.store.orders[first].Invoiced)
	assert.True(t, f.store.orders[second].Invoiced)
}

func TestInvoiceByDeliveryNotes_SingleNoteTitle(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()
	orderID := f.seedOrder(customerID, intPtr(1),
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	outcome, err := f.svc.InvoiceByDeliveryNotes(context.Background(),
		[]string{orderID.String()}, uuid.New().String())
	require.NoError(t, err)
	assert.Equal(t, "Delivery note 1 of 2026-03-03", outcome.Title)
}

func TestInvoiceByDeliveryNotes_ExclusionReasons(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()

	ok := f.seedOrder(customerID, intPtr(1),
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 1, UnitPrice: dec("10.00")})
	noNote := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})
	invoiced := f.seedOrder(customerID, intPtr(2),
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})
	o := f.store.orders[invoiced]
	o.Invoiced = true
	f.store.orders[invoiced] = o

	otherCustomer := f.seedLinkedCustomer()
	foreign := f.seedOrder(otherCustomer, intPtr(3),
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})

	outcome, err := f.svc.InvoiceByDeliveryNotes(context.Background(), []string{
		ok.String(), "not-a-uuid", uuid.New().String(), noNote.String(), invoiced.String(), foreign.String(),
	}, uuid.New().String())
	require.NoError(t, err)

	assert.Equal(t, []string{ok.String()}, outcome.InvoicedOrderIDs)
	require.Len(t, outcome.Excluded, 5)
	assert.Equal(t, "invalid order id", outcome.Excluded[0].Reason)
	assert.Equal(t, "order not found", outcome.Excluded[1].Reason)
	assert.Contains(t, outcome.Excluded[2].Reason, "has no delivery note")
	assert.Contains(t, outcome.Excluded[3].Reason, "already invoiced")
	assert.Contains(t, outcome.Excluded[4].Reason, "different customer")
}

func TestInvoiceByDeliveryNotes_NothingEligible(t *testing.T) {
	f := newInvoicingFixture()
	customerID := f.seedLinkedCustomer()
	noNote := f.seedOrder(customerID, nil,
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})

	_, err := f.svc.InvoiceByDeliveryNotes(context.Background(), []string{noNote.String()}, uuid.New().String())
	require.Error(t, err)
	assert.Empty(t, f.gateway.calls)
}

func TestInvoiceByDeliveryNotes_GatewayFailureFlipsNoFlags(t *testing.T) {
	f := newInvoicingFixture()
	f.gateway.result = idoklad.Result{StatusCode: 503}
	customerID := f.seedLinkedCustomer()
	first := f.seedOrder(customerID, intPtr(1),
		model.Item{ProductID: uuid.New(), Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})
	second := f.seedOrder(customerID, intPtr(2),
		model.Item{ProductID: uuid.New(), Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")})

	_, err := f.svc.InvoiceByDeliveryNotes(context.Background(),
		[]string{first.String(), second.String()}, uuid.New().String())

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.False(t, f.store.orders[first].Invoiced)
	assert.False(t, f.store.orders[second].Invoiced)
}
