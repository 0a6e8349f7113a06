package controllers

import (
	"database/sql"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"motoshop/middlewares"
	"motoshop/models"
)

type CartController struct {
	DB *sql.DB
}

func NewCartController(db *sql.DB) *CartController {
	return &CartController{DB: db}
}

// AddToCart checks stock at add-time only; nothing is reserved. A
// product already in the cart accumulates quantity instead of getting
// a second line.
func (cc *CartController) AddToCart(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordCartOperation("add", ok)
	}()

	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	var productID int
	err := cc.DB.QueryRowContext(ctx,
		"SELECT id FROM products WHERE id = ? AND quantity >= ?",
		req.ProductID, req.Quantity,
	).Scan(&productID)
	if errors.Is(err, sql.ErrNoRows) {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Product not available in requested quantity"})
		return
	}
	if err != nil {
		log.Printf("Error checking product availability: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding to cart"})
		return
	}

	// Lazy cart creation on first add.
	var cartID int
	err = cc.DB.QueryRowContext(ctx, "SELECT id FROM cart WHERE user_id = ?", userID).Scan(&cartID)
	if errors.Is(err, sql.ErrNoRows) {
		res, insertErr := cc.DB.ExecContext(ctx, "INSERT INTO cart (user_id) VALUES (?)", userID)
		if insertErr != nil {
			log.Printf("Error creating cart: %v", insertErr)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding to cart"})
			return
		}
		id, _ := res.LastInsertId()
		cartID = int(id)
	} else if err != nil {
		log.Printf("Error fetching cart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding to cart"})
		return
	}

	var existingID int
	err = cc.DB.QueryRowContext(ctx,
		"SELECT id FROM cart_items WHERE cart_id = ? AND product_id = ?",
		cartID, req.ProductID,
	).Scan(&existingID)
	switch {
	case err == nil:
		_, err = cc.DB.ExecContext(ctx,
			"UPDATE cart_items SET quantity = quantity + ? WHERE cart_id = ? AND product_id = ?",
			req.Quantity, cartID, req.ProductID,
		)
	case errors.Is(err, sql.ErrNoRows):
		_, err = cc.DB.ExecContext(ctx,
			"INSERT INTO cart_items (cart_id, product_id, quantity) VALUES (?, ?, ?)",
			cartID, req.ProductID, req.Quantity,
		)
	}
	if err != nil {
		log.Printf("Error adding to cart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error adding to cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Product added to cart"})
}

// GetCart joins cart lines with the current product row. Prices here
// are display-time, not snapshots.
func (cc *CartController) GetCart(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordCartOperation("get", ok)
	}()

	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := cc.DB.QueryContext(c.Request.Context(), `
		SELECT ci.id, ci.cart_id, ci.product_id, ci.quantity, p.name, p.price, COALESCE(p.image_url, '')
		FROM cart c
		JOIN cart_items ci ON c.id = ci.cart_id
		JOIN products p ON ci.product_id = p.id
		WHERE c.user_id = ?`,
		userID,
	)
	if err != nil {
		log.Printf("Error fetching cart: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching cart"})
		return
	}
	defer rows.Close()

	items := []models.CartItemView{}
	for rows.Next() {
		var item models.CartItemView
		if err := rows.Scan(&item.ID, &item.CartID, &item.ProductID, &item.Quantity,
			&item.Name, &item.Price, &item.ImageURL); err != nil {
			log.Printf("Error scanning cart item: %v", err)
			continue
		}
		items = append(items, item)
	}

	c.JSON(http.StatusOK, items)
}
