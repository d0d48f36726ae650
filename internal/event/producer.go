package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/shoplite/storefront/pkg/kafka"

	"github.com/shoplite/storefront/internal/domain"
)

// Kafka topic constants for product domain events.
const (
	TopicProductCreated  = "storefront.product.created"
	TopicProductUpdated  = "storefront.product.updated"
	TopicProductDeleted  = "storefront.product.deleted"
	TopicProductReviewed = "storefront.product.reviewed"
)

// Aggregate type constant.
const AggregateTypeProduct = "product"

// Source identifier for events originating from the storefront service.
const SourceStorefront = "storefront"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Image        string  `json:"image"`
	Description  string  `json:"description"`
	Price        float64 `json:"price"`
	CountInStock int     `json:"count_in_stock"`
	UserID       string  `json:"user_id"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ProductReviewedData is the payload for a product.reviewed event. It carries
// the recomputed aggregates so consumers need not refetch the product.
type ProductReviewedData struct {
	ProductID  string  `json:"product_id"`
	ReviewID   string  `json:"review_id"`
	UserID     string  `json:"user_id"`
	Rating     int     `json:"rating"`
	NumReviews int     `json:"num_reviews"`
	AvgRating  float64 `json:"avg_rating"`
}

// Producer publishes product domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the storefront service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:           p.ID,
		Name:         p.Name,
		Image:        p.Image,
		Description:  p.Description,
		Price:        p.Price,
		CountInStock: p.CountInStock,
		UserID:       p.UserID,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductCreated, product.ID, AggregateTypeProduct, SourceStorefront, productData(product))
	if err != nil {
		return fmt.Errorf("create product.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductCreated, event); err != nil {
		return fmt.Errorf("publish product.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.created event",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return nil
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	event, err := pkgkafka.NewEvent(TopicProductUpdated, product.ID, AggregateTypeProduct, SourceStorefront, productData(product))
	if err != nil {
		return fmt.Errorf("create product.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductUpdated, event); err != nil {
		return fmt.Errorf("publish product.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.updated event",
		slog.String("product_id", product.ID),
		slog.String("name", product.Name),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceStorefront, ProductDeletedData{ID: id})
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishProductReviewed publishes a product.reviewed event.
func (p *Producer) PublishProductReviewed(ctx context.Context, product *domain.Product, review *domain.Review) error {
	data := ProductReviewedData{
		ProductID:  product.ID,
		ReviewID:   review.ID,
		UserID:     review.UserID,
		Rating:     review.Rating,
		NumReviews: product.NumReviews,
		AvgRating:  product.Rating,
	}

	event, err := pkgkafka.NewEvent(TopicProductReviewed, product.ID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create product.reviewed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductReviewed, event); err != nil {
		return fmt.Errorf("publish product.reviewed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.reviewed event",
		slog.String("product_id", product.ID),
		slog.String("review_id", review.ID),
	)

	return nil
}
