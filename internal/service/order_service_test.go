package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"pastahub/internal/model"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Monday morning, before the noon cutoff.
var testNow = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type orderFixture struct {
	store *memStore
	svc   OrderService
	stock StockService
}

func newOrderFixture() *orderFixture {
	store := newMemStore()
	hub := ws.NewHub()
	txManager := &fakeTxManager{store: store}
	productRepo := &fakeProductRepo{store: store}
	auditRepo := &fakeAuditRepo{store: store}
	stock := NewStockService(productRepo, &fakeStockRepo{store: store}, auditRepo, txManager, hub)
	pricing := NewPricingService(&fakeOverrideRepo{store: store}, &fakeCategoryRepo{store: store})

	svc := NewOrderService(
		&fakeOrderRepo{store: store},
		productRepo,
		&fakeCustomerRepo{store: store},
		auditRepo,
		pricing,
		stock,
		txManager,
		hub,
	)
	svc.(*orderService).now = func() time.Time { return testNow }

	return &orderFixture{store: store, svc: svc, stock: stock}
}

func (f *orderFixture) seedCustomer() (customerID, addressID uuid.UUID) {
	customerID = uuid.New()
	f.store.customers[customerID] = model.Customer{ID: customerID, Name: "Trattoria Roma", TaxID: "12345678"}
	addressID = uuid.New()
	f.store.addresses[addressID] = model.DeliveryAddress{
		ID: addressID, CustomerID: customerID, FullAddress: "Via Roma 1", Tuesday: true,
	}
	return customerID, addressID
}

// seedSubmittedOrder creates a PENDING submitted order directly in the store.
func (f *orderFixture) seedSubmittedOrder(customerID uuid.UUID, items ...model.Item) uuid.UUID {
	orderID := uuid.New()
	f.store.nextNumber++
	orderedAt := testNow.Add(-24 * time.Hour)
	for i := range items {
		items[i].ID = uuid.New()
		items[i].OrderID = orderID
	}
	f.store.orders[orderID] = model.Order{
		ID:           orderID,
		Number:       f.store.nextNumber,
		CustomerID:   customerID,
		DateRequired: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
		Status:       model.OrderStatusPending,
		OrderedAt:    &orderedAt,
		Items:        items,
	}
	return orderID
}

// --- Draft lifecycle ---

func TestSaveDraft_FreezesNameAndPrice(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	res, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 2}},
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Spaghetti", res.Items[0].Name)
	assert.Equal(t, "10.00", res.Items[0].UnitPrice)

	// Renaming the product must not touch the frozen item.
	product := f.store.products[productID]
	product.Name = "Spaghetti Extra"
	f.store.products[productID] = product

	draft, err := f.svc.GetDraft(context.Background(), customerID.String())
	require.NoError(t, err)
	assert.Equal(t, "Spaghetti", draft.Items[0].Name)
}

func TestSaveDraft_ReplacesExistingDraft(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	spaghetti := seedProduct(f.store, "Spaghetti", 10)
	pesto := seedProduct(f.store, "Pesto", 10)

	first, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: spaghetti.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	second, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: pesto.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	// Still the same single draft, with replaced items.
	assert.Equal(t, first.ID, second.ID)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Pesto", second.Items[0].Name)
}

func TestSaveDraft_QuantityBounds(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	req := SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 251}},
	}

	_, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, req)
	require.Error(t, err, "251 exceeds the self-service cap")

	_, err = f.svc.SaveDraft(context.Background(), customerID.String(), true, req)
	require.NoError(t, err, "staff entry allows up to 1000")

	req.Items[0].Quantity = 1001
	_, err = f.svc.SaveDraft(context.Background(), customerID.String(), true, req)
	require.Error(t, err)
}

func TestSaveDraft_RejectsIneligibleDate(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	// 2026-03-04 is a Wednesday; the address is served on Tuesdays only.
	_, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-04",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 1}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an eligible delivery date")
}

func TestSaveDraft_RejectsForeignAddress(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	_, otherAddress := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	_, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: otherAddress.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 1}},
	})
	require.Error(t, err)
}

func TestSubmitDraft_StampsOrderedAt(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	_, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 2}},
	})
	require.NoError(t, err)

	res, err := f.svc.SubmitDraft(context.Background(), customerID.String())
	require.NoError(t, err)
	assert.NotEmpty(t, res.OrderedAt)
	assert.Equal(t, model.OrderStatusPending, res.Status)

	// The draft slot is free again.
	_, err = f.svc.GetDraft(context.Background(), customerID.String())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitDraft_NoOpenDraft(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()

	_, err := f.svc.SubmitDraft(context.Background(), customerID.String())
	require.Error(t, err)
}

// --- State machine ---

func TestConfirm_FromPending(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	require.NoError(t, f.svc.Confirm(context.Background(), orderID.String(), uuid.New().String()))
	assert.Equal(t, model.OrderStatusConfirmed, f.store.orders[orderID].Status)
}

func TestReject_FromPending(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	require.NoError(t, f.svc.Reject(context.Background(), orderID.String(), uuid.New().String()))
	assert.Equal(t, model.OrderStatusRejected, f.store.orders[orderID].Status)
	assert.Equal(t, 10, f.store.products[productID].OnHand, "rejection must not touch stock")
}

func TestReject_AlreadyConfirmed(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	require.NoError(t, f.svc.Confirm(context.Background(), orderID.String(), uuid.New().String()))

	err := f.svc.Reject(context.Background(), orderID.String(), uuid.New().String())
	require.Error(t, err)

	number := f.store.orders[orderID].Number
	assert.EqualError(t, err,
		fmt.Sprintf("Order %d could not be rejected because it is already in state CONFIRMED", number))
}

func TestConfirm_AlreadyCompleted(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	require.NoError(t, f.svc.Complete(context.Background(), orderID.String(), uuid.New().String()))

	err := f.svc.Confirm(context.Background(), orderID.String(), uuid.New().String())
	var transitionErr *InvalidTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, model.OrderStatusCompleted, transitionErr.Status)
}

func TestReject_InvoicedOrderBlocked(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	order := f.store.orders[orderID]
	order.Invoiced = true
	f.store.orders[orderID] = order

	err := f.svc.Reject(context.Background(), orderID.String(), uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already invoiced")
}

func TestComplete_DecrementsStockPerItem(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	spaghetti := seedProduct(f.store, "Spaghetti", 10)
	pesto := seedProduct(f.store, "Pesto", 6)
	orderID := f.seedSubmittedOrder(customerID,
		model.Item{ProductID: spaghetti, Name: "Spaghetti", Quantity: 4, UnitPrice: dec("10.00")},
		model.Item{ProductID: pesto, Name: "Pesto", Quantity: 1, UnitPrice: dec("4.50")},
	)

	require.NoError(t, f.svc.Complete(context.Background(), orderID.String(), uuid.New().String()))

	assert.Equal(t, model.OrderStatusCompleted, f.store.orders[orderID].Status)
	assert.Equal(t, 6, f.store.products[spaghetti].OnHand)
	assert.Equal(t, 5, f.store.products[pesto].OnHand)

	require.Len(t, f.store.stockTxs, 2)
	for _, tx := range f.store.stockTxs {
		assert.Equal(t, model.StockTxCompletion, tx.Type)
		require.NotNil(t, tx.OrderID)
		assert.Equal(t, orderID, *tx.OrderID)
	}
}

func TestComplete_InsufficientStockLeavesEverythingUntouched(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	spaghetti := seedProduct(f.store, "Spaghetti", 3)
	pesto := seedProduct(f.store, "Pesto", 10)
	orderID := f.seedSubmittedOrder(customerID,
		model.Item{ProductID: spaghetti, Name: "Spaghetti", Quantity: 5, UnitPrice: dec("10.00")},
		model.Item{ProductID: pesto, Name: "Pesto", Quantity: 2, UnitPrice: dec("4.50")},
	)

	err := f.svc.Complete(context.Background(), orderID.String(), uuid.New().String())

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "Spaghetti", stockErr.ProductName)
	assert.Equal(t, 5, stockErr.Requested)
	assert.Equal(t, 3, stockErr.OnHand)

	// Nothing moved: not the status, not either balance, no ledger rows.
	assert.Equal(t, model.OrderStatusPending, f.store.orders[orderID].Status)
	assert.Equal(t, 3, f.store.products[spaghetti].OnHand)
	assert.Equal(t, 10, f.store.products[pesto].OnHand)
	assert.Empty(t, f.store.stockTxs)
}

func TestComplete_FromConfirmed(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)
	orderID := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 2, UnitPrice: dec("10.00")})

	require.NoError(t, f.svc.Confirm(context.Background(), orderID.String(), uuid.New().String()))
	require.NoError(t, f.svc.Complete(context.Background(), orderID.String(), uuid.New().String()))
	assert.Equal(t, 8, f.store.products[productID].OnHand)
}

func TestTransition_DraftNotAllowed(t *testing.T) {
	f := newOrderFixture()
	customerID, addressID := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	draft, err := f.svc.SaveDraft(context.Background(), customerID.String(), false, SaveDraftRequest{
		DeliveryAddressID: addressID.String(),
		DateRequired:      "2026-03-03",
		Items:             []DraftItemRequest{{ProductID: productID.String(), Quantity: 1}},
	})
	require.NoError(t, err)

	err = f.svc.Confirm(context.Background(), draft.ID, uuid.New().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not been submitted")
}

// --- Batch actions ---

func TestConfirmMany_ReportsPerOrderOutcomes(t *testing.T) {
	f := newOrderFixture()
	customerID, _ := f.seedCustomer()
	productID := seedProduct(f.store, "Spaghetti", 10)

	pending := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 1, UnitPrice: dec("10.00")})
	completed := f.seedSubmittedOrder(customerID, model.Item{ProductID: productID, Name: "Spaghetti", Quantity: 1, UnitPrice: dec("10.00")})
	require.NoError(t, f.svc.Complete(context.Background(), completed.String(), uuid.New().String()))

	outcomes := f.svc.ConfirmMany(context.Background(), []string{pending.String(), completed.String()}, uuid.New().String())
	require.Len(t, outcomes, 2)

	assert.True(t, outcomes[0].OK)
	assert.False(t, outcomes[1].OK)
	assert.Contains(t, outcomes[1].Message, "could not be confirmed")

	// The failure of one order does not undo the other.
	assert.Equal(t, model.OrderStatusConfirmed, f.store.orders[pending].Status)
}

