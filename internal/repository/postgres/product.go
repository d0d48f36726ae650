package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shoplite/storefront/internal/domain"
	"github.com/shoplite/storefront/internal/repository"
	"github.com/shoplite/storefront/pkg/database"
	apperrors "github.com/shoplite/storefront/pkg/errors"
)

const productColumns = `id, name, image, description, price, count_in_stock, rating, num_reviews, reviews, user_id, version, created_at, updated_at`

// ProductRepository implements repository.ProductRepository on PostgreSQL.
// Each product is a single row owning its reviews as a JSONB array, so a
// version-guarded UPDATE covers the whole document atomically.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product row.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	reviewsJSON, err := json.Marshal(p.Reviews)
	if err != nil {
		return fmt.Errorf("marshal reviews: %w", err)
	}

	query := `
		INSERT INTO products (id, name, image, description, price, count_in_stock, rating, num_reviews, reviews, user_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Image,
		p.Description,
		p.Price,
		p.CountInStock,
		p.Rating,
		p.NumReviews,
		reviewsJSON,
		p.UserID,
		p.Version,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("Product name already exists")
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product document by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	p, err := scanProduct(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("Product not found")
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return p, nil
}

// List returns a keyword-filtered, paginated slice of products plus the
// total matching count, newest first.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) ([]domain.Product, int, error) {
	var (
		where string
		args  []any
	)

	if filter.Keyword != "" {
		where = "WHERE name ILIKE $1"
		args = append(args, "%"+escapeLike(filter.Keyword)+"%")
	}

	limit := filter.PerPage
	if limit <= 0 {
		limit = 20
	}
	offset := 0
	if filter.Page > 1 {
		offset = (filter.Page - 1) * limit
	}

	// count(*) OVER() returns the pre-LIMIT match count in a single query.
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2,
	)

	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var (
		products   []domain.Product
		totalCount int
	)

	for rows.Next() {
		p, err := scanProductRow(rows, &totalCount)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	// The overall count is unknown when the requested page is past the end;
	// fetch it separately so callers still get correct page math.
	if len(products) == 0 {
		countQuery := "SELECT COUNT(*) FROM products"
		countArgs := []any{}
		if filter.Keyword != "" {
			countQuery += " WHERE name ILIKE $1"
			countArgs = append(countArgs, "%"+escapeLike(filter.Keyword)+"%")
		}
		if err := r.pool.QueryRow(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
			return nil, 0, fmt.Errorf("count products: %w", err)
		}
	}

	return products, totalCount, nil
}

// ListAll returns every product, newest first.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProductRow(rows, nil)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}

// Update writes the whole document back, guarded by the version the caller
// read. The version is bumped on success so concurrent writers fail loudly.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	reviewsJSON, err := json.Marshal(p.Reviews)
	if err != nil {
		return fmt.Errorf("marshal reviews: %w", err)
	}

	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, image = $2, description = $3, price = $4, count_in_stock = $5,
		    rating = $6, num_reviews = $7, reviews = $8, version = version + 1, updated_at = $9
		WHERE id = $10 AND version = $11`

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Image,
		p.Description,
		p.Price,
		p.CountInStock,
		p.Rating,
		p.NumReviews,
		reviewsJSON,
		p.UpdatedAt,
		p.ID,
		p.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("Product name already exists")
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		// Distinguish a stale version from a vanished product.
		var exists bool
		if err := r.pool.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", p.ID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check product existence: %w", err)
		}
		if exists {
			return apperrors.ErrVersionConflict
		}
		return apperrors.NotFound("Product not found")
	}

	p.Version++
	return nil
}

// Delete removes a product row by ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("Product not found")
	}

	return nil
}

// scanProduct reads a product from a single-row query.
func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p           domain.Product
		reviewsJSON []byte
	)

	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Image,
		&p.Description,
		&p.Price,
		&p.CountInStock,
		&p.Rating,
		&p.NumReviews,
		&reviewsJSON,
		&p.UserID,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalReviews(reviewsJSON, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

// scanProductRow reads a product from a multi-row query. When totalCount is
// non-nil the row is expected to carry a trailing total_count column.
func scanProductRow(rows pgx.Rows, totalCount *int) (*domain.Product, error) {
	var (
		p           domain.Product
		reviewsJSON []byte
	)

	dest := []any{
		&p.ID,
		&p.Name,
		&p.Image,
		&p.Description,
		&p.Price,
		&p.CountInStock,
		&p.Rating,
		&p.NumReviews,
		&reviewsJSON,
		&p.UserID,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
	if totalCount != nil {
		dest = append(dest, totalCount)
	}

	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	if err := unmarshalReviews(reviewsJSON, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func unmarshalReviews(data []byte, p *domain.Product) error {
	if len(data) == 0 {
		p.Reviews = []domain.Review{}
		return nil
	}
	if err := json.Unmarshal(data, &p.Reviews); err != nil {
		return fmt.Errorf("unmarshal reviews: %w", err)
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	return nil
}

// escapeLike neutralizes LIKE metacharacters so keywords match literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// isUniqueViolation checks for a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
