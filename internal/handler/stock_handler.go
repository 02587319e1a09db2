package handler

import (
	"net/http"

	"pastahub/internal/middleware"
	"pastahub/internal/model"
	"pastahub/internal/service"
	"pastahub/pkg/pagination"
	"pastahub/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	stock := router.Group("/api/stock", middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		stock.POST("/transactions", h.RecordTransaction)
		stock.GET("/transactions", h.GetTransactions)
	}
}

// RecordTransaction appends one stock ledger row
// @Summary      Record stock transaction
// @Description  Applies a production, completion or liquidation movement; the on-hand balance is clamped at zero
// @Tags         stock
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RecordStockRequest  true  "Stock Transaction Payload"
// @Success      201      {object}  response.Response{data=service.StockTransactionResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/stock/transactions [post]
func (h *StockHandler) RecordTransaction(c *gin.Context) {
	var req service.RecordStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	tx, err := h.stockService.Record(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, tx))
}

// GetTransactions lists the stock ledger
// @Summary      Get stock transactions
// @Tags         stock
// @Security     BearerAuth
// @Produce      json
// @Param        product_id  query     string  false  "Filter by product"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Number of items per page (default 20)"
// @Success      200         {object}  response.Response{data=response.ListData}
// @Router       /api/stock/transactions [get]
func (h *StockHandler) GetTransactions(c *gin.Context) {
	params := pagination.Parse(c)
	txs, total, err := h.stockService.ListTransactions(c.Request.Context(), c.Query("product_id"), params.Page, params.Limit)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, txs, total, params.Page, params.Limit))
}
