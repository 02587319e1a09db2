package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"pastahub/internal/model"
	"pastahub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ProductRequest struct {
	Name            string `json:"name" binding:"required"`
	Kind            string `json:"kind" binding:"required,oneof=PASTA SAUCE OTHER"`
	PastaLength     string `json:"pasta_length" binding:"omitempty,oneof=SHORT LONG"`
	SauceType       string `json:"sauce_type" binding:"omitempty,oneof=MUSTARD PESTO"`
	Active          *bool  `json:"active"`
	PriceCategoryID string `json:"price_category_id"`
	UnitPrice       string `json:"unit_price"`
}

type ProductResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Kind            string  `json:"kind"`
	Unit            string  `json:"unit"`
	PastaLength     *string `json:"pasta_length,omitempty"`
	SauceType       *string `json:"sauce_type,omitempty"`
	Active          bool    `json:"active"`
	PriceCategoryID string  `json:"price_category_id,omitempty"`
	UnitPrice       string  `json:"unit_price,omitempty"`
	OnHand          int     `json:"on_hand"`
}

type PriceCategoryRequest struct {
	Name         string `json:"name" binding:"required"`
	DefaultPrice string `json:"default_price" binding:"required"`
}

type PriceCategoryResponse struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DefaultPrice string `json:"default_price"`
}

// ProductService manages the catalog. A product's on-hand quantity is
// never writable here; only the stock ledger moves it.
type ProductService interface {
	List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
	Create(ctx context.Context, actorID string, req ProductRequest) (ProductResponse, error)
	Update(ctx context.Context, actorID, id string, req ProductRequest) (ProductResponse, error)
	Delete(ctx context.Context, actorID, id string) error
	ListCategories(ctx context.Context) ([]PriceCategoryResponse, error)
	CreateCategory(ctx context.Context, req PriceCategoryRequest) (PriceCategoryResponse, error)
	UpdateCategory(ctx context.Context, id string, req PriceCategoryRequest) (PriceCategoryResponse, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.PriceCategoryRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.PriceCategoryRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ProductService {
	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// applyRequest validates the request and writes it onto the product.
// Exactly one of price category and direct unit price must be set.
func (s *productService) applyRequest(product *model.Product, req ProductRequest) error {
	if req.PriceCategoryID != "" && req.UnitPrice != "" {
		return fmt.Errorf("a product cannot have both a price category and a direct unit price")
	}
	if req.PriceCategoryID == "" && req.UnitPrice == "" {
		return fmt.Errorf("a product needs either a price category or a direct unit price")
	}

	product.Name = req.Name
	product.Kind = req.Kind
	product.PastaLength = nil
	product.SauceType = nil
	switch req.Kind {
	case model.KindPasta:
		if req.PastaLength == "" {
			return fmt.Errorf("pasta products need a length")
		}
		length := req.PastaLength
		product.PastaLength = &length
	case model.KindSauce:
		if req.SauceType == "" {
			return fmt.Errorf("sauce products need a sauce type")
		}
		sauceType := req.SauceType
		product.SauceType = &sauceType
	}

	if req.Active != nil {
		product.Active = *req.Active
	}

	product.PriceCategoryID = nil
	product.UnitPrice = nil
	if req.PriceCategoryID != "" {
		categoryID, err := uuid.Parse(req.PriceCategoryID)
		if err != nil {
			return fmt.Errorf("invalid price category id: %w", err)
		}
		product.PriceCategoryID = &categoryID
	} else {
		price, err := decimal.NewFromString(req.UnitPrice)
		if err != nil {
			return fmt.Errorf("invalid unit price: %w", err)
		}
		product.UnitPrice = &price
	}
	return nil
}

func (s *productService) List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.productRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ProductResponse, 0, len(products))
	for i := range products {
		res = append(res, toProductResponse(&products[i]))
	}
	return res, total, nil
}

func (s *productService) Create(ctx context.Context, actorID string, req ProductRequest) (ProductResponse, error) {
	var product model.Product
	product.Active = true
	if err := s.applyRequest(&product, req); err != nil {
		return ProductResponse{}, err
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Create(txCtx, &product); err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		return s.logProductAction(txCtx, actorID, model.ActionCreateProduct, &product, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(&product), nil
}

func (s *productService) Update(ctx context.Context, actorID, id string, req ProductRequest) (ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return ProductResponse{}, fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ProductResponse{}, ErrNotFound
		}
		return ProductResponse{}, err
	}

	if err := s.applyRequest(product, req); err != nil {
		return ProductResponse{}, err
	}
	product.PriceCategory = nil

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Update(txCtx, product); err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		return s.logProductAction(txCtx, actorID, model.ActionUpdateProduct, product, req)
	})
	if err != nil {
		return ProductResponse{}, err
	}
	return toProductResponse(product), nil
}

func (s *productService) Delete(ctx context.Context, actorID, id string) error {
	productID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid product id: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.productRepo.Delete(txCtx, productID); err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		return s.logProductAction(txCtx, actorID, model.ActionDeleteProduct, product, nil)
	})
}

func (s *productService) logProductAction(txCtx context.Context, actorID, action string, product *model.Product, payload interface{}) error {
	var actor *uuid.UUID
	if parsed, err := uuid.Parse(actorID); err == nil {
		actor = &parsed
	}
	details, _ := json.Marshal(payload)
	audit := &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   product.ID.String(),
		EntityName: product.Name,
		Details:    string(details),
	}
	if err := s.auditRepo.Log(txCtx, audit); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func (s *productService) ListCategories(ctx context.Context) ([]PriceCategoryResponse, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	res := make([]PriceCategoryResponse, 0, len(categories))
	for _, c := range categories {
		res = append(res, PriceCategoryResponse{
			ID:           c.ID.String(),
			Name:         c.Name,
			DefaultPrice: c.DefaultPrice.StringFixed(2),
		})
	}
	return res, nil
}

func (s *productService) CreateCategory(ctx context.Context, req PriceCategoryRequest) (PriceCategoryResponse, error) {
	price, err := decimal.NewFromString(req.DefaultPrice)
	if err != nil {
		return PriceCategoryResponse{}, fmt.Errorf("invalid default price: %w", err)
	}
	category := model.PriceCategory{Name: req.Name, DefaultPrice: price}
	if err := s.categoryRepo.Create(ctx, &category); err != nil {
		return PriceCategoryResponse{}, fmt.Errorf("failed to create price category: %w", err)
	}
	return PriceCategoryResponse{ID: category.ID.String(), Name: category.Name, DefaultPrice: category.DefaultPrice.StringFixed(2)}, nil
}

func (s *productService) UpdateCategory(ctx context.Context, id string, req PriceCategoryRequest) (PriceCategoryResponse, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return PriceCategoryResponse{}, fmt.Errorf("invalid price category id: %w", err)
	}
	category, err := s.categoryRepo.FindByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PriceCategoryResponse{}, ErrNotFound
		}
		return PriceCategoryResponse{}, err
	}

	price, err := decimal.NewFromString(req.DefaultPrice)
	if err != nil {
		return PriceCategoryResponse{}, fmt.Errorf("invalid default price: %w", err)
	}
	category.Name = req.Name
	category.DefaultPrice = price
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return PriceCategoryResponse{}, fmt.Errorf("failed to update price category: %w", err)
	}
	return PriceCategoryResponse{ID: category.ID.String(), Name: category.Name, DefaultPrice: category.DefaultPrice.StringFixed(2)}, nil
}

func toProductResponse(p *model.Product) ProductResponse {
	res := ProductResponse{
		ID:          p.ID.String(),
		Name:        p.Name,
		Kind:        p.Kind,
		Unit:        p.Unit(),
		PastaLength: p.PastaLength,
		SauceType:   p.SauceType,
		Active:      p.Active,
		OnHand:      p.OnHand,
	}
	if p.PriceCategoryID != nil {
		res.PriceCategoryID = p.PriceCategoryID.String()
	}
	if p.UnitPrice != nil {
		res.UnitPrice = p.UnitPrice.StringFixed(2)
	}
	return res
}
