package service

import (
	"context"
	"testing"

	"pastahub/internal/model"
	ws "pastahub/internal/websocket"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStockFixture() (*memStore, StockService) {
	store := newMemStore()
	svc := NewStockService(
		&fakeProductRepo{store: store},
		&fakeStockRepo{store: store},
		&fakeAuditRepo{store: store},
		&fakeTxManager{store: store},
		ws.NewHub(),
	)
	return store, svc
}

func seedProduct(store *memStore, name string, onHand int) uuid.UUID {
	id := uuid.New()
	price := dec("10.00")
	store.products[id] = model.Product{ID: id, Name: name, Kind: model.KindPasta, UnitPrice: &price, OnHand: onHand}
	return id
}

func TestRecord_ProductionIncreasesOnHand(t *testing.T) {
	store, svc := newStockFixture()
	productID := seedProduct(store, "Spaghetti", 3)

	res, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: productID.String(),
		Quantity:  7,
		Type:      model.StockTxProduction,
	})
	require.NoError(t, err)

	assert.Equal(t, 10, res.StockAfter)
	assert.Equal(t, 10, store.products[productID].OnHand)
	require.Len(t, store.stockTxs, 1)
	assert.Equal(t, model.StockTxProduction, store.stockTxs[0].Type)
}

func TestRecord_LiquidationClampsAtZero(t *testing.T) {
	store, svc := newStockFixture()
	productID := seedProduct(store, "Pesto", 4)

	res, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: productID.String(),
		Quantity:  9,
		Type:      model.StockTxLiquidation,
	})
	require.NoError(t, err)

	// The full requested quantity is kept in the ledger; only the balance
	// is clamped.
	assert.Equal(t, 0, res.StockAfter)
	assert.Equal(t, 9, res.Quantity)
	assert.Equal(t, 0, store.products[productID].OnHand)
}

func TestRecord_CompletionRequiresOrder(t *testing.T) {
	store, svc := newStockFixture()
	productID := seedProduct(store, "Spaghetti", 5)

	_, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: productID.String(),
		Quantity:  2,
		Type:      model.StockTxCompletion,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the order")
	assert.Empty(t, store.stockTxs)
}

func TestRecord_RejectsNonPositiveQuantity(t *testing.T) {
	store, svc := newStockFixture()
	productID := seedProduct(store, "Spaghetti", 5)

	_, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: productID.String(),
		Quantity:  0,
		Type:      model.StockTxProduction,
	})
	require.Error(t, err)
	assert.Equal(t, 5, store.products[productID].OnHand)
}

func TestRecord_UnknownProduct(t *testing.T) {
	_, svc := newStockFixture()

	_, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: uuid.New().String(),
		Quantity:  1,
		Type:      model.StockTxProduction,
	})
	require.Error(t, err)
}

func TestRecord_WritesAuditEntry(t *testing.T) {
	store, svc := newStockFixture()
	productID := seedProduct(store, "Spaghetti", 0)

	_, err := svc.Record(context.Background(), uuid.New().String(), RecordStockRequest{
		ProductID: productID.String(),
		Quantity:  12,
		Type:      model.StockTxProduction,
	})
	require.NoError(t, err)

	require.Len(t, store.audits, 1)
	assert.Equal(t, model.ActionRecordStock, store.audits[0].Action)
}
