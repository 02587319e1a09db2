package handler

import (
	"context"
	"net/http"
	"time"

	"pastahub/internal/calendar"
	"pastahub/internal/middleware"
	"pastahub/internal/model"
	"pastahub/internal/service"
	"pastahub/pkg/pagination"
	"pastahub/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type OrderHandler struct {
	orderService        service.OrderService
	customerService     service.CustomerService
	deliveryNoteService service.DeliveryNoteService
	invoicingService    service.InvoicingService
}

func NewOrderHandler(
	orderService service.OrderService,
	customerService service.CustomerService,
	deliveryNoteService service.DeliveryNoteService,
	invoicingService service.InvoicingService,
) *OrderHandler {
	return &OrderHandler{
		orderService:        orderService,
		customerService:     customerService,
		deliveryNoteService: deliveryNoteService,
		invoicingService:    invoicingService,
	}
}

func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		// Customer self-service cart
		cart := api.Group("/cart", middleware.RequireRole(model.RoleCustomer))
		{
			cart.GET("", h.GetDraft)
			cart.PUT("", h.SaveDraft)
			cart.DELETE("", h.DeleteDraft)
			cart.POST("/submit", h.SubmitDraft)
			cart.GET("/delivery-dates", h.GetDeliveryDates)
		}

		// Back office
		orders := api.Group("/orders", middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
		{
			orders.GET("", h.ListOrders)
			orders.GET("/:id", h.GetOrder)
			orders.POST("/:id/confirm", h.Confirm)
			orders.POST("/:id/reject", h.Reject)
			orders.POST("/:id/complete", h.Complete)
			orders.POST("/confirm", h.ConfirmMany)
			orders.POST("/reject", h.RejectMany)
			orders.POST("/complete", h.CompleteMany)
			orders.PUT("/draft/:customerId", h.SaveDraftForCustomer)
			orders.POST("/draft/:customerId/submit", h.SubmitDraftForCustomer)
			orders.POST("/:id/delivery-note", h.CreateDeliveryNote)
			orders.POST("/:id/invoice", h.InvoiceSingle)
			orders.POST("/invoice-by-notes", h.InvoiceByDeliveryNotes)
		}

		// Customer order history
		api.GET("/my-orders", middleware.RequireRole(model.RoleCustomer), h.MyOrders)
	}
}

// customerForUser resolves the customer profile linked to the logged-in
// account. Customer-role routes always act on that profile, never on a
// client-supplied id.
func (h *OrderHandler) customerForUser(c *gin.Context) (string, bool) {
	userID, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Invalid session"))
		return "", false
	}
	customer, err := h.customerService.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusForbidden, response.Error(http.StatusForbidden, "No customer profile linked to this account"))
		return "", false
	}
	return customer.ID.String(), true
}

// GetDraft returns the customer's open draft order
// @Summary      Get cart
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/cart [get]
func (h *OrderHandler) GetDraft(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	draft, err := h.orderService.GetDraft(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// SaveDraft creates or replaces the customer's open draft
// @Summary      Save cart
// @Description  Creates or replaces the single open draft, freezing item names and prices
// @Tags         cart
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SaveDraftRequest  true  "Draft Payload"
// @Success      200      {object}  response.Response{data=service.OrderResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/cart [put]
func (h *OrderHandler) SaveDraft(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	var req service.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	draft, err := h.orderService.SaveDraft(c.Request.Context(), customerID, false, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// DeleteDraft discards the open draft
// @Summary      Delete cart
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/cart [delete]
func (h *OrderHandler) DeleteDraft(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	if err := h.orderService.DeleteDraft(c.Request.Context(), customerID); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Cart deleted"))
}

// SubmitDraft turns the draft into a pending order
// @Summary      Submit cart
// @Description  Re-validates the delivery date, stamps the order time and moves the order to PENDING
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      400  {object}  response.Response
// @Router       /api/cart/submit [post]
func (h *OrderHandler) SubmitDraft(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	order, err := h.orderService.SubmitDraft(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// GetDeliveryDates lists the eligible delivery dates for one of the
// customer's addresses
// @Summary      Get delivery dates
// @Tags         cart
// @Security     BearerAuth
// @Produce      json
// @Param        address_id  query     string  true  "Delivery Address ID"
// @Success      200         {object}  response.Response{data=[]string}
// @Failure      400         {object}  response.Response
// @Router       /api/cart/delivery-dates [get]
func (h *OrderHandler) GetDeliveryDates(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	addressID := c.Query("address_id")
	if addressID == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "address_id is required"))
		return
	}

	customer, err := h.customerService.Get(c.Request.Context(), customerID)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	var address *model.DeliveryAddress
	for i := range customer.Addresses {
		if customer.Addresses[i].ID.String() == addressID {
			address = &customer.Addresses[i]
			break
		}
	}
	if address == nil {
		c.JSON(http.StatusNotFound, response.Error(http.StatusNotFound, "Address not found"))
		return
	}

	dates := calendar.EligibleDates(address, time.Now())
	formatted := make([]string, 0, len(dates))
	for _, d := range dates {
		formatted = append(formatted, d.Format("2006-01-02"))
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, formatted))
}

// MyOrders lists the logged-in customer's submitted orders
// @Summary      Get my orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.ListData}
// @Router       /api/my-orders [get]
func (h *OrderHandler) MyOrders(c *gin.Context) {
	customerID, ok := h.customerForUser(c)
	if !ok {
		return
	}
	params := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), service.ListOrdersFilter{
		CustomerID: customerID,
		Status:     c.Query("status"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, orders, total, params.Page, params.Limit))
}

// ListOrders lists submitted orders for the back office
// @Summary      List orders
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Param        status       query     string  false  "Filter by status"
// @Param        customer_id  query     string  false  "Filter by customer"
// @Success      200          {object}  response.Response{data=response.ListData}
// @Router       /api/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	params := pagination.Parse(c)
	orders, total, err := h.orderService.ListOrders(c.Request.Context(), service.ListOrdersFilter{
		CustomerID: c.Query("customer_id"),
		Status:     c.Query("status"),
		Page:       params.Page,
		Limit:      params.Limit,
	})
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, orders, total, params.Page, params.Limit))
}

// GetOrder returns one order with its items
// @Summary      Get order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.OrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// Confirm moves a pending order to CONFIRMED
// @Summary      Confirm order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/confirm [post]
func (h *OrderHandler) Confirm(c *gin.Context) {
	h.runAction(c, h.orderService.Confirm, "Order confirmed")
}

// Reject moves a pending order to REJECTED
// @Summary      Reject order
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/reject [post]
func (h *OrderHandler) Reject(c *gin.Context) {
	h.runAction(c, h.orderService.Reject, "Order rejected")
}

// Complete moves an order to COMPLETED and consumes stock
// @Summary      Complete order
// @Description  Completes the order and decrements stock for every item, all or nothing
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/orders/{id}/complete [post]
func (h *OrderHandler) Complete(c *gin.Context) {
	h.runAction(c, h.orderService.Complete, "Order completed")
}

func (h *OrderHandler) runAction(c *gin.Context, action func(ctx context.Context, orderID, actorID string) error, okMessage string) {
	if err := action(c.Request.Context(), c.Param("id"), c.GetString("userID")); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, okMessage))
}

type batchActionRequest struct {
	OrderIDs []string `json:"order_ids" binding:"required,min=1"`
}

func (h *OrderHandler) runBatch(c *gin.Context, action func(ctx context.Context, orderIDs []string, actorID string) []service.ActionOutcome) {
	var req batchActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	outcomes := action(c.Request.Context(), req.OrderIDs, c.GetString("userID"))
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcomes))
}

// ConfirmMany confirms a batch of orders
// @Summary      Confirm orders
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.batchActionRequest  true  "Order IDs"
// @Success      200      {object}  response.Response{data=[]service.ActionOutcome}
// @Router       /api/orders/confirm [post]
func (h *OrderHandler) ConfirmMany(c *gin.Context) {
	h.runBatch(c, h.orderService.ConfirmMany)
}

// RejectMany rejects a batch of orders
// @Summary      Reject orders
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.batchActionRequest  true  "Order IDs"
// @Success      200      {object}  response.Response{data=[]service.ActionOutcome}
// @Router       /api/orders/reject [post]
func (h *OrderHandler) RejectMany(c *gin.Context) {
	h.runBatch(c, h.orderService.RejectMany)
}

// CompleteMany completes a batch of orders
// @Summary      Complete orders
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.batchActionRequest  true  "Order IDs"
// @Success      200      {object}  response.Response{data=[]service.ActionOutcome}
// @Router       /api/orders/complete [post]
func (h *OrderHandler) CompleteMany(c *gin.Context) {
	h.runBatch(c, h.orderService.CompleteMany)
}

// SaveDraftForCustomer creates or replaces a draft on a customer's behalf.
// Staff entry allows larger item quantities than self-service.
// @Summary      Save draft for customer
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        customerId  path      string                    true  "Customer ID"
// @Param        payload     body      service.SaveDraftRequest  true  "Draft Payload"
// @Success      200         {object}  response.Response{data=service.OrderResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/orders/draft/{customerId} [put]
func (h *OrderHandler) SaveDraftForCustomer(c *gin.Context) {
	var req service.SaveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	draft, err := h.orderService.SaveDraft(c.Request.Context(), c.Param("customerId"), true, req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, draft))
}

// SubmitDraftForCustomer submits the customer's draft from the back office
// @Summary      Submit draft for customer
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        customerId  path      string  true  "Customer ID"
// @Success      200         {object}  response.Response{data=service.OrderResponse}
// @Failure      400         {object}  response.Response
// @Router       /api/orders/draft/{customerId}/submit [post]
func (h *OrderHandler) SubmitDraftForCustomer(c *gin.Context) {
	order, err := h.orderService.SubmitDraft(c.Request.Context(), c.Param("customerId"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, order))
}

// CreateDeliveryNote assigns the order its delivery note number
// @Summary      Create delivery note
// @Description  Assigns the next global note number and freezes the recipient snapshot; repeat calls return the existing number
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.DeliveryNoteResult}
// @Failure      404  {object}  response.Response
// @Router       /api/orders/{id}/delivery-note [post]
func (h *OrderHandler) CreateDeliveryNote(c *gin.Context) {
	result, err := h.deliveryNoteService.CreateDeliveryNote(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// InvoiceSingle invoices one order directly
// @Summary      Invoice order
// @Description  Submits one invoice for the order; already invoiced orders are a no-op
// @Tags         orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Order ID"
// @Success      200  {object}  response.Response{data=service.InvoiceOutcome}
// @Failure      502  {object}  response.Response
// @Router       /api/orders/{id}/invoice [post]
func (h *OrderHandler) InvoiceSingle(c *gin.Context) {
	outcome, err := h.invoicingService.InvoiceSingle(c.Request.Context(), c.Param("id"), c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}

// InvoiceByDeliveryNotes invoices a batch of noted orders on one invoice
// @Summary      Invoice by delivery notes
// @Description  Merges the delivery notes of one customer into a single invoice; ineligible orders are excluded with a reason
// @Tags         orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      handler.batchActionRequest  true  "Order IDs"
// @Success      200      {object}  response.Response{data=service.BatchInvoiceOutcome}
// @Failure      502      {object}  response.Response
// @Router       /api/orders/invoice-by-notes [post]
func (h *OrderHandler) InvoiceByDeliveryNotes(c *gin.Context) {
	var req batchActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	outcome, err := h.invoicingService.InvoiceByDeliveryNotes(c.Request.Context(), req.OrderIDs, c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}
