package domain

import (
	"errors"
	"time"
)

// ErrCacheMiss signals a product absent from the cache. Callers fall
// through to the database.
var ErrCacheMiss = errors.New("product cache miss")

// Product is a catalog product document. It exclusively owns its reviews;
// Rating and NumReviews are derived from them and never set directly.
type Product struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Image        string    `json:"image"`
	Description  string    `json:"description"`
	Price        float64   `json:"price"`
	CountInStock int       `json:"countInStock"`
	Rating       float64   `json:"rating"`
	NumReviews   int       `json:"numReviews"`
	Reviews      []Review  `json:"reviews"`
	UserID       string    `json:"user"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// Version guards read-modify-write cycles on the document.
	// Not exposed to clients.
	Version int64 `json:"-"`
}

// HasReviewBy reports whether the user has already reviewed this product.
// Reviews are matched on reviewer identity, never on display name.
func (p *Product) HasReviewBy(userID string) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AddReview appends a review and recomputes the derived aggregates:
// NumReviews becomes the collection length and Rating the arithmetic mean
// of all review ratings.
func (p *Product) AddReview(review Review) {
	p.Reviews = append(p.Reviews, review)
	p.NumReviews = len(p.Reviews)

	var sum int
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(len(p.Reviews))
}
