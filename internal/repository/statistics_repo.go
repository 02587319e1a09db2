package repository

import (
	"context"
	"fmt"
	"time"

	"pastahub/internal/model"

	"gorm.io/gorm"
)

type StatisticsRepository interface {
	InvoicedRevenue(ctx context.Context, start, end time.Time) (value float64, count int, err error)
	OpenOrderCount(ctx context.Context) (int, error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error)
	StockMovementTotals(ctx context.Context, start, end time.Time) (model.StockMovementTotals, error)
}

type statisticsRepository struct {
	db *gorm.DB
}

func NewStatisticsRepository(db *gorm.DB) StatisticsRepository {
	return &statisticsRepository{db: db}
}

// InvoicedRevenue sums item totals over invoiced orders whose delivery date
// falls in the period.
func (r *statisticsRepository) InvoicedRevenue(ctx context.Context, start, end time.Time) (float64, int, error) {
	var result struct {
		Value float64
		Count int
	}
	err := GetDB(ctx, r.db).Table("items").
		Select("COALESCE(SUM(items.quantity * items.unit_price), 0) as value, COUNT(DISTINCT orders.id) as count").
		Joins("JOIN orders ON orders.id = items.order_id").
		Where("orders.invoiced AND orders.date_required >= ? AND orders.date_required <= ?", start, end).
		Scan(&result).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query invoiced revenue: %w", err)
	}
	return result.Value, result.Count, nil
}

// OpenOrderCount counts submitted orders that still need action.
func (r *statisticsRepository) OpenOrderCount(ctx context.Context) (int, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Order{}).
		Where("ordered_at IS NOT NULL AND status IN ?", []string{model.OrderStatusPending, model.OrderStatusConfirmed}).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count open orders: %w", err)
	}
	return int(count), nil
}

func (r *statisticsRepository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]model.ProductRanking, error) {
	var rankings []model.ProductRanking
	err := GetDB(ctx, r.db).Table("items").
		Select("products.id as product_id, products.name as product_name, SUM(items.quantity) as total_quantity, SUM(items.quantity * items.unit_price) as total_value").
		Joins("JOIN products ON products.id = items.product_id").
		Joins("JOIN orders ON orders.id = items.order_id").
		Where("orders.invoiced AND orders.date_required >= ? AND orders.date_required <= ?", start, end).
		Group("products.id, products.name").
		Order("total_quantity DESC").
		Limit(limit).
		Scan(&rankings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	return rankings, nil
}

func (r *statisticsRepository) StockMovementTotals(ctx context.Context, start, end time.Time) (model.StockMovementTotals, error) {
	var rows []struct {
		Type  string
		Total int
	}
	err := GetDB(ctx, r.db).Model(&model.StockTransaction{}).
		Select("type, COALESCE(SUM(quantity), 0) as total").
		Where("created_at >= ? AND created_at <= ?", start, end).
		Group("type").
		Scan(&rows).Error
	if err != nil {
		return model.StockMovementTotals{}, fmt.Errorf("failed to query stock movements: %w", err)
	}

	var totals model.StockMovementTotals
	for _, row := range rows {
		switch row.Type {
		case model.StockTxProduction:
			totals.Produced = row.Total
		case model.StockTxCompletion:
			totals.Completed = row.Total
		case model.StockTxLiquidation:
			totals.Liquidated = row.Total
		}
	}
	return totals, nil
}
