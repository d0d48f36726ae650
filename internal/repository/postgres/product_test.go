package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shoplite/storefront/internal/domain"
	"github.com/shoplite/storefront/internal/repository"
	"github.com/shoplite/storefront/pkg/database"
	apperrors "github.com/shoplite/storefront/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

var now = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "image", "description", "price", "count_in_stock",
	"rating", "num_reviews", "reviews", "user_id", "version",
	"created_at", "updated_at",
}

var productColsWithCount = append(append([]string{}, productCols...), "total_count")

func sampleProduct() domain.Product {
	return domain.Product{
		ID:           "prod-1",
		Name:         "Widget",
		Image:        "/images/widget.jpg",
		Description:  "A fine widget",
		Price:        19.99,
		CountInStock: 7,
		Rating:       4.5,
		NumReviews:   2,
		Reviews: []domain.Review{
			{ID: "rev-1", Name: "Alice", Rating: 5, Comment: "Great", UserID: "user-1", CreatedAt: now},
			{ID: "rev-2", Name: "Bob", Rating: 4, Comment: "Good", UserID: "user-2", CreatedAt: now},
		},
		UserID:    "admin-1",
		Version:   3,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func productRow(p domain.Product) []any {
	reviewsJSON, _ := json.Marshal(p.Reviews)
	return []any{
		p.ID, p.Name, p.Image, p.Description, p.Price, p.CountInStock,
		p.Rating, p.NumReviews, reviewsJSON, p.UserID, p.Version,
		p.CreatedAt, p.UpdatedAt,
	}
}

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, p.UserID, p.Version,
			p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, p.UserID, p.Version,
			p.CreatedAt, p.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.Equal(t, "Product name already exists", apperrors.MessageFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, result.ID)
	assert.Equal(t, p.Name, result.Name)
	assert.Len(t, result.Reviews, 2)
	assert.Equal(t, int64(3), result.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(productCols))

	result, err := repo.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Product not found", apperrors.MessageFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_EmptyReviews(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	p.Reviews = nil
	p.NumReviews = 0
	p.Rating = 0

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	result, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotNil(t, result.Reviews)
	assert.Empty(t, result.Reviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_WithKeyword(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	rows := pgxmock.NewRows(productColsWithCount).
		AddRow(append(productRow(p), 7)...)

	mock.ExpectQuery("SELECT .+ FROM products WHERE name ILIKE").
		WithArgs("%Widget%", 3, 0).
		WillReturnRows(rows)

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Keyword: "Widget",
		Page:    1,
		PerPage: 3,
	})
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_EscapesLikeMetacharacters(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE name ILIKE").
		WithArgs(`%100\%\_cotton%`, 3, 0).
		WillReturnRows(pgxmock.NewRows(productColsWithCount))
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(`%100\%\_cotton%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Keyword: "100%_cotton",
		Page:    1,
		PerPage: 3,
	})
	require.NoError(t, err)
	assert.Empty(t, products)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_PageBeyondEnd(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	// Page 4 of a 7-product catalog returns no rows; the match count still
	// comes back so callers can compute the page total.
	mock.ExpectQuery("SELECT .+ FROM products").
		WithArgs(3, 9).
		WillReturnRows(pgxmock.NewRows(productColsWithCount))
	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	products, total, err := repo.List(context.Background(), repository.ProductFilter{
		Page:    4,
		PerPage: 3,
	})
	require.NoError(t, err)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.Equal(t, 7, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_ListAll_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p1 := sampleProduct()
	p2 := sampleProduct()
	p2.ID = "prod-2"
	p2.Name = "Gadget"

	mock.ExpectQuery("SELECT .+ FROM products ORDER BY created_at DESC").
		WillReturnRows(
			pgxmock.NewRows(productCols).
				AddRow(productRow(p1)...).
				AddRow(productRow(p2)...),
		)

	products, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.Equal(t, "prod-2", products[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, pgxmock.AnyArg(),
			p.ID, p.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), &p)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_VersionConflict(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, pgxmock.AnyArg(),
			p.ID, p.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Update(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrVersionConflict)
	assert.Equal(t, int64(3), p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, pgxmock.AnyArg(),
			p.ID, p.Version,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Update(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Equal(t, "Product not found", apperrors.MessageFor(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Image, p.Description, p.Price, p.CountInStock,
			p.Rating, p.NumReviews, reviewsJSON, pgxmock.AnyArg(),
			p.ID, p.Version,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Update(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").
		WithArgs("prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "prod-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
