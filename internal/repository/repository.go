package repository

import (
	"context"

	"github.com/shoplite/storefront/internal/domain"
)

// ProductFilter defines filter criteria for paginated catalog listings.
type ProductFilter struct {
	// Keyword filters products whose name contains it, case-insensitively.
	// Empty means all products match.
	Keyword string
	Page    int
	PerPage int
}

// ProductRepository is the document-store access contract for products.
// A product row owns its reviews; there is no separate review store.
type ProductRepository interface {
	// Create inserts a new product. Returns a Conflict error when another
	// product already has the same name.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product document, reviews included.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products matching the filter, newest first, along with
	// the total matching count.
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)

	// ListAll returns every product, newest first.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// Update persists the whole document guarded by its version: the write
	// applies only if the stored version still matches product.Version.
	// Returns ErrVersionConflict when another writer got there first and
	// a NotFound error when the product no longer exists.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product permanently. Returns NotFound for unknown ids.
	Delete(ctx context.Context, id string) error
}
