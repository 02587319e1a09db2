package repository

import (
	"context"

	"pastahub/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// StockTxRepository is create-only: ledger rows are immutable history and
// no update or delete operation is exposed.
type StockTxRepository interface {
	Create(ctx context.Context, tx *model.StockTransaction) error
	List(ctx context.Context, productID *uuid.UUID, page, limit int) ([]model.StockTransaction, int64, error)
}

type stockTxRepository struct {
	db *gorm.DB
}

func NewStockTxRepository(db *gorm.DB) StockTxRepository {
	return &stockTxRepository{db: db}
}

func (r *stockTxRepository) Create(ctx context.Context, tx *model.StockTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *stockTxRepository) List(ctx context.Context, productID *uuid.UUID, page, limit int) ([]model.StockTransaction, int64, error) {
	var txs []model.StockTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockTransaction{})
	if productID != nil {
		db = db.Where("product_id = ?", *productID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Product").
		Preload("Actor").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&txs).Error; err != nil {
		return nil, 0, err
	}

	return txs, total, nil
}
