package service

import (
	"context"
	"time"

	"pastahub/internal/model"
	"pastahub/internal/repository"
)

type StatisticsService interface {
	GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error)
}

type statisticsService struct {
	statsRepo repository.StatisticsRepository
}

func NewStatisticsService(statsRepo repository.StatisticsRepository) StatisticsService {
	return &statisticsService{statsRepo: statsRepo}
}

// GetStatistics aggregates invoiced revenue, open-order load and stock
// movement totals for the back-office dashboard.
func (s *statisticsService) GetStatistics(ctx context.Context, startDate, endDate time.Time) (model.StatisticsResponse, error) {
	response := model.StatisticsResponse{
		TimeRangeStartDate: startDate,
		TimeRangeEndDate:   endDate,
	}

	revenue, count, err := s.statsRepo.InvoicedRevenue(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.InvoicedRevenue = revenue
	response.InvoicedOrderCount = count

	open, err := s.statsRepo.OpenOrderCount(ctx)
	if err != nil {
		return response, err
	}
	response.OpenOrderCount = open

	top, err := s.statsRepo.TopProducts(ctx, startDate, endDate, 5)
	if err != nil {
		return response, err
	}
	response.TopProducts = top

	movements, err := s.statsRepo.StockMovementTotals(ctx, startDate, endDate)
	if err != nil {
		return response, err
	}
	response.StockMovements = movements

	return response, nil
}
