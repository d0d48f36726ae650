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

// ReviewService implements the business logic for review submission.
type ReviewService struct {
	repo     repository.ProductRepository
	cache    ProductCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, cache ProductCache, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		cache:    cache,
		producer: producer,
		logger:   logger,
	}
}

// Submit records a review by the given identity on a product. The duplicate
// check, the append, and the aggregate recompute ride a single
// version-guarded document write, so a same-identity race can never land
// two reviews. Version conflicts trigger a fresh read and retry.
func (s *ReviewService) Submit(ctx context.Context, identity middleware.Identity, productID string, rating int, comment string) error {
	if rating < 1 || rating > 5 {
		return apperrors.InvalidInput("rating must be between 1 and 5")
	}

	var (
		product *domain.Product
		review  domain.Review
		lastErr error
	)

	for attempt := 0; attempt < maxWriteAttempts; attempt++ {
		var err error
		product, err = s.repo.GetByID(ctx, productID)
		if err != nil {
			return fmt.Errorf("get product for review: %w", err)
		}

		if product.HasReviewBy(identity.ID) {
			return apperrors.DuplicateReview("Product already reviewed")
		}

		review = domain.Review{
			ID:        uuid.New().String(),
			Name:      identity.Name,
			Rating:    rating,
			Comment:   comment,
			UserID:    identity.ID,
			CreatedAt: time.Now().UTC(),
		}
		product.AddReview(review)

		lastErr = s.repo.Update(ctx, product)
		if lastErr == nil {
			break
		}
		if !errors.Is(lastErr, apperrors.ErrVersionConflict) {
			return fmt.Errorf("save review: %w", lastErr)
		}
	}

	if lastErr != nil {
		return apperrors.Conflict("Product was modified concurrently, please retry")
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, productID); err != nil {
			s.logger.WarnContext(ctx, "product cache invalidation failed",
				slog.String("product_id", productID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishProductReviewed(ctx, product, &review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.reviewed event",
			slog.String("product_id", productID),
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review added",
		slog.String("product_id", productID),
		slog.String("review_id", review.ID),
		slog.String("user_id", identity.ID),
		slog.Int("rating", rating),
	)

	return nil
}
