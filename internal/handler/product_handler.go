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

type ProductHandler struct {
	productService service.ProductService
}

func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

func (h *ProductHandler) RegisterRoutes(router *gin.RouterGroup) {
	products := router.Group("/api")
	{
		products.GET("/products", middleware.RequireRole(model.RoleAdmin, model.RoleStaff, model.RoleCustomer), h.GetProducts)
		products.POST("/products", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.CreateProduct)
		products.PUT("/products/:id", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.UpdateProduct)
		products.DELETE("/products/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteProduct)

		products.GET("/price-categories", middleware.RequireRole(model.RoleAdmin, model.RoleStaff), h.GetPriceCategories)
		products.POST("/price-categories", middleware.RequireRole(model.RoleAdmin), h.CreatePriceCategory)
		products.PUT("/price-categories/:id", middleware.RequireRole(model.RoleAdmin), h.UpdatePriceCategory)
	}
}

// GetProducts handles retrieving the paginated catalog
// @Summary      Get products
// @Description  Retrieves a paginated list of products with current stock
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by product name"
// @Success      200    {object}  response.Response{data=response.ListData}
// @Failure      500    {object}  response.Response
// @Router       /api/products [get]
func (h *ProductHandler) GetProducts(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	products, total, err := h.productService.List(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, "Failed to retrieve products: "+err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.List(http.StatusOK, products, total, params.Page, params.Limit))
}

// CreateProduct creates a new catalog entry
// @Summary      Create product
// @Description  Creates a new product with either a price category or a direct unit price
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.ProductRequest  true  "Create Product Payload"
// @Success      201      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/products [post]
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.Create(c.Request.Context(), c.GetString("userID"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, product))
}

// UpdateProduct updates an existing product
// @Summary      Update product
// @Description  Updates an existing product's details by ID
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                  true  "Product ID"
// @Param        payload  body      service.ProductRequest  true  "Update Product Payload"
// @Success      200      {object}  response.Response{data=service.ProductResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/products/{id} [put]
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req service.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	product, err := h.productService.Update(c.Request.Context(), c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, product))
}

// DeleteProduct soft deletes a product
// @Summary      Delete product
// @Description  Soft deletes a product by ID
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Product ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.productService.Delete(c.Request.Context(), c.GetString("userID"), c.Param("id")); err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Product deleted successfully"))
}

// GetPriceCategories lists the price categories
// @Summary      Get price categories
// @Tags         catalog
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.PriceCategoryResponse}
// @Router       /api/price-categories [get]
func (h *ProductHandler) GetPriceCategories(c *gin.Context) {
	categories, err := h.productService.ListCategories(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, categories))
}

// CreatePriceCategory creates a new price category
// @Summary      Create price category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.PriceCategoryRequest  true  "Create Price Category Payload"
// @Success      201      {object}  response.Response{data=service.PriceCategoryResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/price-categories [post]
func (h *ProductHandler) CreatePriceCategory(c *gin.Context) {
	var req service.PriceCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.productService.CreateCategory(c.Request.Context(), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, category))
}

// UpdatePriceCategory updates a price category's name or default price
// @Summary      Update price category
// @Tags         catalog
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                        true  "Price Category ID"
// @Param        payload  body      service.PriceCategoryRequest  true  "Update Price Category Payload"
// @Success      200      {object}  response.Response{data=service.PriceCategoryResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/price-categories/{id} [put]
func (h *ProductHandler) UpdatePriceCategory(c *gin.Context) {
	var req service.PriceCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	category, err := h.productService.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.JSON(statusFor(err), response.Error(statusFor(err), err.Error()))
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, category))
}
