package models

import "time"

type AddReviewRequest struct {
	ProductID int    `json:"productId" binding:"required"`
	Rating    int    `json:"rating" binding:"required"`
	Feedback  string `json:"feedback"`
}

type Review struct {
	ID        int       `json:"id"`
	ProductID int       `json:"product_id"`
	UserID    string    `json:"user_id"`
	Rating    int       `json:"rating"`
	Feedback  string    `json:"feedback"`
	CreatedAt time.Time `json:"created_at"`

	// Populated on display joins only.
	ProductName string `json:"product_name,omitempty"`
	UserEmail   string `json:"user_email,omitempty"`
}
