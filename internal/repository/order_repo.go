package repository

import (
	"context"

	"pastahub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderFilter narrows order listings.
type OrderFilter struct {
	CustomerID *uuid.UUID
	Status     string
	Submitted  *bool // true: submitted only, false: drafts only, nil: all
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	Save(ctx context.Context, order *model.Order) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateItem(ctx context.Context, item *model.Item) error
	DeleteItems(ctx context.Context, orderID uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error)
	FindDraft(ctx context.Context, customerID uuid.UUID) (*model.Order, error)
	List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	MarkInvoiced(ctx context.Context, ids []uuid.UUID) error
	MaxDeliveryNoteNumber(ctx context.Context) (int, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Create(order).Error
}

func (r *orderRepository) Save(ctx context.Context, order *model.Order) error {
	return GetDB(ctx, r.db).Save(order).Error
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("order_id = ?", id).Delete(&model.Item{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Order{}).Error
}

func (r *orderRepository) CreateItem(ctx context.Context, item *model.Item) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *orderRepository) DeleteItems(ctx context.Context, orderID uuid.UUID) error {
	return GetDB(ctx, r.db).Where("order_id = ?", orderID).Delete(&model.Item{}).Error
}

func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Product").
		Preload("Customer").
		Preload("DeliveryAddress").
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// FindByIDForUpdate locks the order row so a concurrent transition or
// invoicing attempt on the same order waits for the enclosing transaction.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).
		Preload("Product").
		Where("order_id = ?", id).
		Find(&order.Items).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindDraft(ctx context.Context, customerID uuid.UUID) (*model.Order, error) {
	var order model.Order
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Product").
		Where("customer_id = ? AND ordered_at IS NULL", customerID).
		First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter, page, limit int) ([]model.Order, int64, error) {
	var orders []model.Order
	var total int64

	base := GetDB(ctx, r.db).Model(&model.Order{})
	base = applyOrderFilter(base, filter)
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := applyOrderFilter(GetDB(ctx, r.db), filter).
		Preload("Items").
		Preload("Items.Product").
		Preload("Customer").
		Preload("DeliveryAddress").
		Order("date_required, number")

	offset := (page - 1) * limit
	if err := query.Offset(offset).Limit(limit).Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func applyOrderFilter(db *gorm.DB, filter OrderFilter) *gorm.DB {
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != "" {
		db = db.Where("status = ?", filter.Status)
	}
	if filter.Submitted != nil {
		if *filter.Submitted {
			db = db.Where("ordered_at IS NOT NULL")
		} else {
			db = db.Where("ordered_at IS NULL")
		}
	}
	return db
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status).Error
}

func (r *orderRepository) MarkInvoiced(ctx context.Context, ids []uuid.UUID) error {
	return GetDB(ctx, r.db).Model(&model.Order{}).Where("id IN ?", ids).Update("invoiced", true).Error
}

// MaxDeliveryNoteNumber returns the highest note number assigned so far, or
// zero when no order carries one yet.
func (r *orderRepository) MaxDeliveryNoteNumber(ctx context.Context) (int, error) {
	var max *int
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Select("MAX(delivery_note_number)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}
