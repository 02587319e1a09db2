package service

import (
	"context"

	"pastahub/internal/idoklad"
	"pastahub/internal/model"
	"pastahub/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// memStore is a shared in-memory backing store for the fake repositories.
// All entities are held by value so transaction snapshots are cheap copies.
type memStore struct {
	products   map[uuid.UUID]model.Product
	categories map[uuid.UUID]model.PriceCategory
	overrides  map[uuid.UUID]model.PriceOverride
	customers  map[uuid.UUID]model.Customer
	addresses  map[uuid.UUID]model.DeliveryAddress
	orders     map[uuid.UUID]model.Order
	stockTxs   []model.StockTransaction
	audits     []model.AuditLog
	nextNumber int
}

func newMemStore() *memStore {
	return &memStore{
		products:   make(map[uuid.UUID]model.Product),
		categories: make(map[uuid.UUID]model.PriceCategory),
		overrides:  make(map[uuid.UUID]model.PriceOverride),
		customers:  make(map[uuid.UUID]model.Customer),
		addresses:  make(map[uuid.UUID]model.DeliveryAddress),
		orders:     make(map[uuid.UUID]model.Order),
	}
}

func (s *memStore) snapshot() *memStore {
	c := newMemStore()
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.overrides {
		c.overrides[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]model.Item(nil), v.Items...)
		c.orders[k] = v
	}
	c.stockTxs = append([]model.StockTransaction(nil), s.stockTxs...)
	c.audits = append([]model.AuditLog(nil), s.audits...)
	c.nextNumber = s.nextNumber
	return c
}

func (s *memStore) restore(from *memStore) {
	*s = *from
}

// fakeTxManager mimics rollback semantics: when fn fails, the store is
// restored to its pre-transaction state.
type fakeTxManager struct {
	store *memStore
}

func (t *fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	before := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(before)
		return err
	}
	return nil
}

// --- Product repository ---

type fakeProductRepo struct {
	store *memStore
}

func (r *fakeProductRepo) Create(_ context.Context, product *model.Product) error {
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Update(_ context.Context, product *model.Product) error {
	r.store.products[product.ID] = *product
	return nil
}

func (r *fakeProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.products, id)
	return nil
}

func (r *fakeProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	product, ok := r.store.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &product, nil
}

func (r *fakeProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeProductRepo) List(_ context.Context, _, _ int, _ string) ([]model.Product, int64, error) {
	var products []model.Product
	for _, p := range r.store.products {
		products = append(products, p)
	}
	return products, int64(len(products)), nil
}

func (r *fakeProductRepo) UpdateOnHand(_ context.Context, id uuid.UUID, onHand int) error {
	product, ok := r.store.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	product.OnHand = onHand
	r.store.products[id] = product
	return nil
}

// --- Pricing repositories ---

type fakeCategoryRepo struct {
	store *memStore
}

func (r *fakeCategoryRepo) Create(_ context.Context, category *model.PriceCategory) error {
	if category.ID == uuid.Nil {
		category.ID = uuid.New()
	}
	r.store.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) Update(_ context.Context, category *model.PriceCategory) error {
	r.store.categories[category.ID] = *category
	return nil
}

func (r *fakeCategoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.PriceCategory, error) {
	category, ok := r.store.categories[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &category, nil
}

func (r *fakeCategoryRepo) List(_ context.Context) ([]model.PriceCategory, error) {
	var categories []model.PriceCategory
	for _, c := range r.store.categories {
		categories = append(categories, c)
	}
	return categories, nil
}

type fakeOverrideRepo struct {
	store *memStore
}

func (r *fakeOverrideRepo) Upsert(_ context.Context, override *model.PriceOverride) error {
	for id, existing := range r.store.overrides {
		if existing.CustomerID != override.CustomerID {
			continue
		}
		sameProduct := existing.ProductID != nil && override.ProductID != nil && *existing.ProductID == *override.ProductID
		sameCategory := existing.PriceCategoryID != nil && override.PriceCategoryID != nil && *existing.PriceCategoryID == *override.PriceCategoryID
		if sameProduct || sameCategory {
			existing.UnitPrice = override.UnitPrice
			r.store.overrides[id] = existing
			*override = existing
			return nil
		}
	}
	if override.ID == uuid.Nil {
		override.ID = uuid.New()
	}
	r.store.overrides[override.ID] = *override
	return nil
}

func (r *fakeOverrideRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.overrides, id)
	return nil
}

func (r *fakeOverrideRepo) FindForProduct(_ context.Context, customerID, productID uuid.UUID) (*model.PriceOverride, error) {
	for _, o := range r.store.overrides {
		if o.CustomerID == customerID && o.ProductID != nil && *o.ProductID == productID {
			override := o
			return &override, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOverrideRepo) FindForCategory(_ context.Context, customerID, categoryID uuid.UUID) (*model.PriceOverride, error) {
	for _, o := range r.store.overrides {
		if o.CustomerID == customerID && o.PriceCategoryID != nil && *o.PriceCategoryID == categoryID {
			override := o
			return &override, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOverrideRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]model.PriceOverride, error) {
	var overrides []model.PriceOverride
	for _, o := range r.store.overrides {
		if o.CustomerID == customerID {
			overrides = append(overrides, o)
		}
	}
	return overrides, nil
}

// --- Customer repository ---

type fakeCustomerRepo struct {
	store *memStore
}

func (r *fakeCustomerRepo) Create(_ context.Context, customer *model.Customer) error {
	if customer.ID == uuid.Nil {
		customer.ID = uuid.New()
	}
	r.store.customers[customer.ID] = *customer
	return nil
}

func (r *fakeCustomerRepo) Update(_ context.Context, customer *model.Customer) error {
	stored := *customer
	stored.Addresses = nil
	r.store.customers[customer.ID] = stored
	return nil
}

func (r *fakeCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, ok := r.store.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	customer.Addresses = nil
	for _, a := range r.store.addresses {
		if a.CustomerID == id {
			customer.Addresses = append(customer.Addresses, a)
		}
	}
	return &customer, nil
}

func (r *fakeCustomerRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	for id, c := range r.store.customers {
		if c.UserID != nil && *c.UserID == userID {
			return r.FindByID(ctx, id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCustomerRepo) List(ctx context.Context, page, limit int) ([]model.Customer, int64, error) {
	if page > 1 {
		return nil, int64(len(r.store.customers)), nil
	}
	var customers []model.Customer
	for id := range r.store.customers {
		c, _ := r.FindByID(ctx, id)
		customers = append(customers, *c)
	}
	return customers, int64(len(customers)), nil
}

func (r *fakeCustomerRepo) CreateAddress(_ context.Context, address *model.DeliveryAddress) error {
	if address.ID == uuid.Nil {
		address.ID = uuid.New()
	}
	r.store.addresses[address.ID] = *address
	return nil
}

func (r *fakeCustomerRepo) UpdateAddress(_ context.Context, address *model.DeliveryAddress) error {
	r.store.addresses[address.ID] = *address
	return nil
}

func (r *fakeCustomerRepo) DeleteAddress(_ context.Context, id uuid.UUID) error {
	delete(r.store.addresses, id)
	return nil
}

func (r *fakeCustomerRepo) FindAddress(_ context.Context, id uuid.UUID) (*model.DeliveryAddress, error) {
	address, ok := r.store.addresses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &address, nil
}

// --- Order repository ---

type fakeOrderRepo struct {
	store *memStore
}

func (r *fakeOrderRepo) Create(_ context.Context, order *model.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	r.store.nextNumber++
	order.Number = r.store.nextNumber
	r.store.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) Save(_ context.Context, order *model.Order) error {
	stored, ok := r.store.orders[order.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	items := stored.Items
	stored = *order
	stored.Items = items
	r.store.orders[order.ID] = stored
	return nil
}

func (r *fakeOrderRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.store.orders, id)
	return nil
}

func (r *fakeOrderRepo) CreateItem(_ context.Context, item *model.Item) error {
	order, ok := r.store.orders[item.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	order.Items = append(order.Items, *item)
	r.store.orders[item.OrderID] = order
	return nil
}

func (r *fakeOrderRepo) DeleteItems(_ context.Context, orderID uuid.UUID) error {
	order, ok := r.store.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Items = nil
	r.store.orders[orderID] = order
	return nil
}

func (r *fakeOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	order, ok := r.store.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	order.Items = append([]model.Item(nil), order.Items...)
	for i := range order.Items {
		if product, ok := r.store.products[order.Items[i].ProductID]; ok {
			p := product
			order.Items[i].Product = &p
		}
	}
	if customer, ok := r.store.customers[order.CustomerID]; ok {
		c := customer
		order.Customer = &c
	}
	return &order, nil
}

func (r *fakeOrderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeOrderRepo) FindDraft(ctx context.Context, customerID uuid.UUID) (*model.Order, error) {
	for id, o := range r.store.orders {
		if o.CustomerID == customerID && o.OrderedAt == nil {
			return r.FindByID(ctx, id)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeOrderRepo) List(ctx context.Context, filter repository.OrderFilter, _, _ int) ([]model.Order, int64, error) {
	var orders []model.Order
	for id, o := range r.store.orders {
		if filter.CustomerID != nil && o.CustomerID != *filter.CustomerID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Submitted != nil && *filter.Submitted == (o.OrderedAt == nil) {
			continue
		}
		loaded, _ := r.FindByID(ctx, id)
		orders = append(orders, *loaded)
	}
	return orders, int64(len(orders)), nil
}

func (r *fakeOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	order, ok := r.store.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	order.Status = status
	r.store.orders[id] = order
	return nil
}

func (r *fakeOrderRepo) MarkInvoiced(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		order, ok := r.store.orders[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		order.Invoiced = true
		r.store.orders[id] = order
	}
	return nil
}

func (r *fakeOrderRepo) MaxDeliveryNoteNumber(_ context.Context) (int, error) {
	max := 0
	for _, o := range r.store.orders {
		if o.DeliveryNoteNumber != nil && *o.DeliveryNoteNumber > max {
			max = *o.DeliveryNoteNumber
		}
	}
	return max, nil
}

// --- Stock and audit repositories ---

type fakeStockRepo struct {
	store *memStore
}

func (r *fakeStockRepo) Create(_ context.Context, tx *model.StockTransaction) error {
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	r.store.stockTxs = append(r.store.stockTxs, *tx)
	return nil
}

func (r *fakeStockRepo) List(_ context.Context, productID *uuid.UUID, _, _ int) ([]model.StockTransaction, int64, error) {
	var txs []model.StockTransaction
	for _, tx := range r.store.stockTxs {
		if productID != nil && tx.ProductID != *productID {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, int64(len(txs)), nil
}

type fakeAuditRepo struct {
	store *memStore
}

func (r *fakeAuditRepo) Log(_ context.Context, entry *model.AuditLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.store.audits = append(r.store.audits, *entry)
	return nil
}

func (r *fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	for _, l := range r.store.audits {
		if action != "" && l.Action != action {
			continue
		}
		logs = append(logs, l)
	}
	return logs, int64(len(logs)), nil
}

// --- Gateway fakes ---

type gatewayCall struct {
	contactID   int
	lines       []idoklad.LineItem
	description string
}

type fakeGateway struct {
	calls  []gatewayCall
	result idoklad.Result
	err    error
}

func (g *fakeGateway) PostInvoice(_ context.Context, contactID int, lines []idoklad.LineItem, description string) (idoklad.Result, error) {
	g.calls = append(g.calls, gatewayCall{contactID: contactID, lines: lines, description: description})
	if g.err != nil {
		return idoklad.Result{}, g.err
	}
	return g.result, nil
}

type fakeContactSyncer struct {
	remote  []idoklad.Contact
	nextID  int
	created []idoklad.Contact
	updated []idoklad.Contact
}

func (f *fakeContactSyncer) Contacts(_ context.Context) ([]idoklad.Contact, error) {
	return f.remote, nil
}

func (f *fakeContactSyncer) PostContact(_ context.Context, contact idoklad.Contact) (int, error) {
	f.nextID++
	contact.ID = f.nextID
	f.created = append(f.created, contact)
	return contact.ID, nil
}

func (f *fakeContactSyncer) PutContact(_ context.Context, contact idoklad.Contact) error {
	f.updated = append(f.updated, contact)
	return nil
}
