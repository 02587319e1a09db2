package model

import "time"

// ProductRanking is one row of a top-products aggregation.
type ProductRanking struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	TotalQuantity int     `json:"total_quantity"`
	TotalValue    float64 `json:"total_value"`
}

// StockMovementTotals sums the ledger per transaction type over a period.
type StockMovementTotals struct {
	Produced   int `json:"produced"`
	Completed  int `json:"completed"`
	Liquidated int `json:"liquidated"`
}

// StatisticsResponse is the back-office dashboard payload.
type StatisticsResponse struct {
	TimeRangeStartDate time.Time           `json:"time_range_start_date"`
	TimeRangeEndDate   time.Time           `json:"time_range_end_date"`
	InvoicedRevenue    float64             `json:"invoiced_revenue"`
	InvoicedOrderCount int                 `json:"invoiced_order_count"`
	OpenOrderCount     int                 `json:"open_order_count"`
	TopProducts        []ProductRanking    `json:"top_products"`
	StockMovements     StockMovementTotals `json:"stock_movements"`
}
