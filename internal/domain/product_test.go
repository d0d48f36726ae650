package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasReviewBy(t *testing.T) {
	p := Product{
		Reviews: []Review{
			{UserID: "user-1", Name: "Ada", Rating: 4},
			{UserID: "user-2", Name: "Grace", Rating: 5},
		},
	}

	assert.True(t, p.HasReviewBy("user-1"))
	assert.True(t, p.HasReviewBy("user-2"))
	assert.False(t, p.HasReviewBy("user-3"))
}

func TestHasReviewBy_MatchesIdentityNotName(t *testing.T) {
	// Two users can share a display name; the identity is authoritative.
	p := Product{
		Reviews: []Review{{UserID: "user-1", Name: "Ada", Rating: 4}},
	}

	assert.False(t, p.HasReviewBy("Ada"))
	assert.True(t, p.HasReviewBy("user-1"))
}

func TestAddReview_RecomputesAggregates(t *testing.T) {
	var p Product
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.NumReviews)

	p.AddReview(Review{UserID: "user-1", Rating: 4})
	assert.Equal(t, 1, p.NumReviews)
	assert.Equal(t, 4.0, p.Rating)

	p.AddReview(Review{UserID: "user-2", Rating: 5})
	assert.Equal(t, 2, p.NumReviews)
	assert.Equal(t, 4.5, p.Rating)

	p.AddReview(Review{UserID: "user-3", Rating: 1})
	assert.Equal(t, 3, p.NumReviews)
	assert.InDelta(t, 10.0/3.0, p.Rating, 1e-9)
}

func TestAddReview_InvariantHoldsAfterEveryAppend(t *testing.T) {
	var p Product
	ratings := []int{5, 3, 4, 1, 2, 5}

	for i, r := range ratings {
		p.AddReview(Review{UserID: "u", Rating: r})

		assert.Equal(t, i+1, p.NumReviews)
		assert.Len(t, p.Reviews, i+1)

		var sum int
		for _, rev := range p.Reviews {
			sum += rev.Rating
		}
		assert.InDelta(t, float64(sum)/float64(len(p.Reviews)), p.Rating, 1e-9)
	}
}
