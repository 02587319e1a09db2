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

type CustomerHandler struct {
	customerService service.CustomerService
}

func NewCustomerHandler(customerService service.CustomerService) *CustomerHandler {
	return &CustomerHandler{customerService: customerService}
}

func (h *CustomerHandler) RegisterRoutes(router *gin.RouterGroup) {
	customers := router.Group("/api/customers", middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	{
		customers.GET("", h.GetCustomers)
		customers.GET("/:id", h.GetCustomer)
		customers.POST("", h.CreateCustomer)
		customers.PUT("/:id", h.UpdateCustomer)

		customers.POST("/:id/addresses", h.AddAddress)
		customers.PUT("/:id/addresses/:addressId", h.UpdateAddress)
		customers.DELETE("/:id/addresses/:addressId", h.DeleteAddress)

		customers.GET("/:id/price-overrides", h.GetOverrides)
		customers.PUT("/:id/price-overrides", h.UpsertOverride)
		customers.DELETE("/:id/price-overrides/:overrideId", h.DeleteOverride)
	}

	router.POST("/api/contacts/sync", middleware.RequireRole(model.RoleAdmin), h.SyncContacts)
}

// GetCustomers lists customers with their delivery addresses
// @Summary      Get customers
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Number of items per page (default 20)"
// @Success      200    {object}  response.Response{data=response.ListData}
// @Router       /api/customers [get]
func (h *CustomerHandler) GetCustomers(c *gin.Context) {
	params := pagination.Parse(c)
	customers, total, err := h.customerService.List(c.Request.Context(), params.Page, params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.List(http.StatusOK, customers, total, params.Page, params.Limit))
}

// GetCustomer returns one customer
// @Summary      Get customer
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=model.Customer}
// @Failure      404  {object}  response.Response
// @Router       /api/customers/{id} [get]
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	customer, err := h.customerService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// CreateCustomer creates a customer profile
// @Summary      Create customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CustomerRequest  true  "Create Customer Payload"
// @Success      201      {object}  response.Response{data=model.Customer}
// @Failure      400      {object}  response.Response
// @Router       /api/customers [post]
func (h *CustomerHandler) CreateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	customer, err := h.customerService.Create(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, customer))
}

// UpdateCustomer updates a customer's billing profile
// @Summary      Update customer
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                   true  "Customer ID"
// @Param        payload  body      service.CustomerRequest  true  "Update Customer Payload"
// @Success      200      {object}  response.Response{data=model.Customer}
// @Failure      404      {object}  response.Response
// @Router       /api/customers/{id} [put]
func (h *CustomerHandler) UpdateCustomer(c *gin.Context) {
	var req service.CustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	customer, err := h.customerService.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, customer))
}

// AddAddress adds a delivery address with its weekday schedule
// @Summary      Add delivery address
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Customer ID"
// @Param        payload  body      service.AddressRequest  true  "Address Payload"
// @Success      201      {object}  response.Response{data=model.DeliveryAddress}
// @Failure      404      {object}  response.Response
// @Router       /api/customers/{id}/addresses [post]
func (h *CustomerHandler) AddAddress(c *gin.Context) {
	var req service.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	address, err := h.customerService.AddAddress(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, address))
}

// UpdateAddress updates a delivery address
// @Summary      Update delivery address
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id         path      string                  true  "Customer ID"
// @Param        addressId  path      string                  true  "Address ID"
// @Param        payload    body      service.AddressRequest  true  "Address Payload"
// @Success      200        {object}  response.Response{data=model.DeliveryAddress}
// @Failure      404        {object}  response.Response
// @Router       /api/customers/{id}/addresses/{addressId} [put]
func (h *CustomerHandler) UpdateAddress(c *gin.Context) {
	var req service.AddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	address, err := h.customerService.UpdateAddress(c.Request.Context(), c.Param("id"), c.Param("addressId"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, address))
}

// DeleteAddress removes a delivery address
// @Summary      Delete delivery address
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id         path      string  true  "Customer ID"
// @Param        addressId  path      string  true  "Address ID"
// @Success      200        {object}  response.Response
// @Failure      404        {object}  response.Response
// @Router       /api/customers/{id}/addresses/{addressId} [delete]
func (h *CustomerHandler) DeleteAddress(c *gin.Context) {
	if err := h.customerService.DeleteAddress(c.Request.Context(), c.Param("id"), c.Param("addressId")); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Address deleted"))
}

// GetOverrides lists a customer's price overrides
// @Summary      Get price overrides
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Customer ID"
// @Success      200  {object}  response.Response{data=[]service.PriceOverrideResponse}
// @Router       /api/customers/{id}/price-overrides [get]
func (h *CustomerHandler) GetOverrides(c *gin.Context) {
	overrides, err := h.customerService.ListOverrides(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, overrides))
}

// UpsertOverride creates or replaces a price override
// @Summary      Upsert price override
// @Description  Sets the customer's negotiated price for a product or a price category; at most one override exists per pair
// @Tags         customers
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Customer ID"
// @Param        payload  body      service.PriceOverrideRequest  true  "Override Payload"
// @Success      200      {object}  response.Response{data=service.PriceOverrideResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/customers/{id}/price-overrides [put]
func (h *CustomerHandler) UpsertOverride(c *gin.Context) {
	var req service.PriceOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}
	override, err := h.customerService.UpsertOverride(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, override))
}

// DeleteOverride removes a price override
// @Summary      Delete price override
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Param        id          path      string  true  "Customer ID"
// @Param        overrideId  path      string  true  "Override ID"
// @Success      200         {object}  response.Response
// @Router       /api/customers/{id}/price-overrides/{overrideId} [delete]
func (h *CustomerHandler) DeleteOverride(c *gin.Context) {
	if err := h.customerService.DeleteOverride(c.Request.Context(), c.Param("id"), c.Param("overrideId")); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Override deleted"))
}

// SyncContacts reconciles customers against the accounting contacts
// @Summary      Sync accounting contacts
// @Description  Links customers to remote contacts by registration number, creating or updating remote records as needed
// @Tags         customers
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=service.ContactSyncOutcome}
// @Failure      502  {object}  response.Response
// @Router       /api/contacts/sync [post]
func (h *CustomerHandler) SyncContacts(c *gin.Context) {
	outcome, err := h.customerService.SyncContacts(c.Request.Context(), c.GetString("userID"))
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, outcome))
}
