package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shoplite/storefront/internal/domain"
	"github.com/shoplite/storefront/internal/event"
	"github.com/shoplite/storefront/internal/repository"
	apperrors "github.com/shoplite/storefront/pkg/errors"
	"github.com/shoplite/storefront/pkg/middleware"
)

// PageSize is the fixed number of products per storefront page.
const PageSize = 3

// maxWriteAttempts bounds the optimistic-lock retry loop on document updates.
const maxWriteAttempts = 3

// ProductCache caches single product documents. Implemented by the Redis
// repository; a nil cache disables caching.
type ProductCache interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	Invalidate(ctx context.Context, id string) error
}

// CatalogService implements the business logic for catalog operations.
type CatalogService struct {
	repo     repository.ProductRepository
	cache    ProductCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, cache ProductCache, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name         string
	Image        string
	Description  string
	Price        float64
	CountInStock int
}

// UpdateProductInput holds the parameters for updating a product. A zero
// value leaves the stored field unchanged, so a price or stock count cannot
// be updated to zero through this operation.
type UpdateProductInput struct {
	Name         string
	Image        string
	Description  string
	Price        float64
	CountInStock int
}

// ProductPage is one storefront page of products plus pagination totals.
type ProductPage struct {
	Products []domain.Product
	Page     int
	Pages    int
}

// ListPage returns one page of products filtered by keyword, newest first.
// Pages past the end come back empty but still echo the requested page.
func (s *CatalogService) ListPage(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page <= 0 {
		page = 1
	}

	products, total, err := s.repo.List(ctx, repository.ProductFilter{
		Keyword: keyword,
		Page:    page,
		PerPage: PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &ProductPage{
		Products: products,
		Page:     page,
		Pages:    (total + PageSize - 1) / PageSize,
	}, nil
}

// GetProduct retrieves a product by ID, reading through the cache.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, domain.ErrCacheMiss) {
			s.logger.WarnContext(ctx, "product cache read failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, product); err != nil {
			s.logger.WarnContext(ctx, "product cache write failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return product, nil
}

// ListAllProducts returns every product, newest first. Admin access is
// enforced at the router.
func (s *CatalogService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}

// CreateProduct creates a new product owned by the given identity.
func (s *CatalogService) CreateProduct(ctx context.Context, identity middleware.Identity, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.CountInStock < 0 {
		return nil, apperrors.InvalidInput("count in stock must not be negative")
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Image:        input.Image,
		Description:  input.Description,
		Price:        input.Price,
		CountInStock: input.CountInStock,
		Rating:       0,
		NumReviews:   0,
		Reviews:      []domain.Review{},
		UserID:       identity.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// UpdateProduct merges the input over the stored document and writes it back
// under the version guard, retrying against concurrent writers.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	var (
		product *domain.Product
		lastErr error
	)

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var err error
		product, err = s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("get product for update: %w", err)
		}

		applyUpdate(product, input)

		lastErr = s.repo.Update(ctx, product)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, apperrors.ErrVersionConflict) {
			return nil, fmt.Errorf("update product: %w", lastErr)
		}
	}

	if lastErr != nil {
		return nil, apperrors.Conflict("Product was modified concurrently, please retry")
	}

	s.invalidateCache(ctx, id)

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return product, nil
}

// DeleteProduct removes a product by its ID.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidateCache(ctx, id)

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted",
		slog.String("product_id", id),
	)

	return nil
}

func (s *CatalogService) invalidateCache(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// applyUpdate merges input over the stored product. Empty or zero fields
// leave the stored value in place.
func applyUpdate(product *domain.Product, input *UpdateProductInput) {
	if input.Name != "" {
		product.Name = input.Name
	}
	if input.Image != "" {
		product.Image = input.Image
	}
	if input.Description != "" {
		product.Description = input.Description
	}
	if input.Price != 0 {
		product.Price = input.Price
	}
	if input.CountInStock != 0 {
		product.CountInStock = input.CountInStock
	}
}
