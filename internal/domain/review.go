package domain

import (
	"time"
)

// Review is a product review embedded in its owning Product. The reviewer
// display name is a snapshot taken at submission time, not a live link to
// the user record. Reviews are never updated or deleted once stored.
type Review struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	UserID    string    `json:"user"`
	CreatedAt time.Time `json:"createdAt"`
}
