package controllers

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"motoshop/middlewares"
	"motoshop/models"
)

// EmailLookup resolves a user id to an email for review display.
type EmailLookup interface {
	UserEmailByID(ctx context.Context, hexID string) (string, error)
}

type ReviewController struct {
	DB     *sql.DB
	Emails EmailLookup // optional
}

func NewReviewController(db *sql.DB, emails EmailLookup) *ReviewController {
	return &ReviewController{DB: db, Emails: emails}
}

// AddReview requires an existing product and a rating. There is no
// rating-range or per-user uniqueness constraint.
func (rc *ReviewController) AddReview(c *gin.Context) {
	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.AddReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product ID and rating are required"})
		return
	}

	ctx := c.Request.Context()

	var productID int
	err := rc.DB.QueryRowContext(ctx, "SELECT id FROM products WHERE id = ?", req.ProductID).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusNotFound, gin.H{"message": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("Error adding review: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding review"})
		return
	}

	res, err := rc.DB.ExecContext(ctx,
		"INSERT INTO reviews (product_id, user_id, rating, feedback) VALUES (?, ?, ?, ?)",
		req.ProductID, userID, req.Rating, req.Feedback,
	)
	if err != nil {
		log.Printf("Error adding review: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding review"})
		return
	}

	reviewID, _ := res.LastInsertId()
	c.JSON(http.StatusCreated, gin.H{
		"message":  "Review added successfully",
		"reviewId": reviewID,
	})
}

func (rc *ReviewController) GetProductReviews(c *gin.Context) {
	productID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid product ID"})
		return
	}

	rows, err := rc.DB.QueryContext(c.Request.Context(), `
		SELECT id, product_id, user_id, rating, COALESCE(feedback, ''), created_at
		FROM reviews
		WHERE product_id = ?
		ORDER BY created_at DESC`,
		productID,
	)
	if err != nil {
		log.Printf("Error fetching reviews: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching reviews"})
		return
	}
	defer rows.Close()

	c.JSON(http.StatusOK, rc.collectReviews(c.Request.Context(), rows))
}

func (rc *ReviewController) GetAllReviews(c *gin.Context) {
	rows, err := rc.DB.QueryContext(c.Request.Context(), `
		SELECT r.id, r.product_id, r.user_id, r.rating, COALESCE(r.feedback, ''), r.created_at, p.name
		FROM reviews r
		JOIN products p ON r.product_id = p.id
		ORDER BY r.created_at DESC`,
	)
	if err != nil {
		log.Printf("Error fetching reviews: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching reviews"})
		return
	}
	defer rows.Close()

	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Feedback, &r.CreatedAt, &r.ProductName); err != nil {
			log.Printf("Error scanning review: %v", err)
			continue
		}
		rc.attachEmail(c.Request.Context(), &r)
		reviews = append(reviews, r)
	}

	c.JSON(http.StatusOK, reviews)
}

func (rc *ReviewController) collectReviews(ctx context.Context, rows *sql.Rows) []models.Review {
	reviews := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ProductID, &r.UserID, &r.Rating, &r.Feedback, &r.CreatedAt); err != nil {
			log.Printf("Error scanning review: %v", err)
			continue
		}
		rc.attachEmail(ctx, &r)
		reviews = append(reviews, r)
	}
	return reviews
}

// attachEmail is display-only; a lookup failure leaves the field
// empty.
func (rc *ReviewController) attachEmail(ctx context.Context, r *models.Review) {
	if rc.Emails == nil {
		return
	}
	email, err := rc.Emails.UserEmailByID(ctx, r.UserID)
	if err != nil {
		return
	}
	r.UserEmail = email
}
