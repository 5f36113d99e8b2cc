package models

import "time"

// Testimonial is a guest review going through submit -> moderate -> publish.
// It shares the store's CRUD shape with Reservation but has no cross-entity
// invariants.
type Testimonial struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Country   string    `json:"country,omitempty"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	Published bool      `json:"published"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
