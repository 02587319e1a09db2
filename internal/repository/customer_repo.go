package repository

import (
	"context"

	"pastahub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error)
	List(ctx context.Context, page, limit int) ([]model.Customer, int64, error)
	CreateAddress(ctx context.Context, address *model.DeliveryAddress) error
	UpdateAddress(ctx context.Context, address *model.DeliveryAddress) error
	DeleteAddress(ctx context.Context, id uuid.UUID) error
	FindAddress(ctx context.Context, id uuid.UUID) (*model.DeliveryAddress, error)
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Save(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Preload("Addresses").First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Preload("Addresses").Where("user_id = ?", userID).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, page, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := GetDB(ctx, r.db).
		Preload("Addresses").
		Order("name").
		Offset(offset).Limit(limit).
		Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) CreateAddress(ctx context.Context, address *model.DeliveryAddress) error {
	return GetDB(ctx, r.db).Create(address).Error
}

func (r *customerRepository) UpdateAddress(ctx context.Context, address *model.DeliveryAddress) error {
	return GetDB(ctx, r.db).Save(address).Error
}

func (r *customerRepository) DeleteAddress(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.DeliveryAddress{}).Error
}

func (r *customerRepository) FindAddress(ctx context.Context, id uuid.UUID) (*model.DeliveryAddress, error) {
	var address model.DeliveryAddress
	if err := GetDB(ctx, r.db).First(&address, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &address, nil
}
