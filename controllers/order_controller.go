package controllers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"motoshop/middlewares"
	"motoshop/models"
	"motoshop/mongodb"
)

// ErrEmptyCart is returned when order placement finds no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// InsufficientStockError names the product that blocked the order.
type InsufficientStockError struct {
	ProductID int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for product ID %d", e.ProductID)
}

// OrderMirror is the best-effort document-store projection of orders.
// Its failures never affect the relational outcome.
type OrderMirror interface {
	MirrorOrder(ctx context.Context, doc *mongodb.OrderDoc) error
	OrdersByUser(ctx context.Context, userID string) ([]mongodb.OrderDoc, error)
}

// EventPublisher emits order lifecycle events after commit.
type EventPublisher interface {
	PublishOrderEvent(event models.OrderEvent, priority int) error
	PublishDelayedEvent(event models.OrderEvent, delay time.Duration) error
}

type OrderController struct {
	DB     *sql.DB
	Mirror OrderMirror    // optional
	Events EventPublisher // optional
}

func NewOrderController(db *sql.DB, mirror OrderMirror, events EventPublisher) *OrderController {
	return &OrderController{DB: db, Mirror: mirror, Events: events}
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("create", ok)
	}()

	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	var req models.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	orderID, total, err := oc.placeOrder(c.Request.Context(), userID, req)
	if err != nil {
		var stockErr *InsufficientStockError
		switch {
		case errors.Is(err, ErrEmptyCart), errors.As(err, &stockErr):
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		default:
			log.Printf("Error creating order for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "Error creating order"})
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order created successfully",
		"orderId": orderID,
	})

	// Post-commit events are best-effort, like the mirror write.
	if oc.Events != nil {
		event := models.OrderEvent{
			OrderID:  int(orderID),
			UserID:   userID,
			Type:     "created",
			Status:   "pending",
			Total:    total,
			Occurred: time.Now(),
		}

		priority := 5
		if total.GreaterThan(decimal.NewFromInt(1000)) {
			priority = 9
		}
		if err := oc.Events.PublishOrderEvent(event, priority); err != nil {
			log.Printf("Failed to publish order created event: %v", err)
		}

		check := event
		check.Type = "payment_check"
		if err := oc.Events.PublishDelayedEvent(check, 15*time.Minute); err != nil {
			log.Printf("Failed to publish delayed payment check event: %v", err)
		}
	}
}

// placeOrder runs the order placement transaction: read the cart with
// a single per-product price read, verify stock, insert the order and
// its lines, decrement stock, mirror, clear the cart, commit. Any
// failure before commit rolls back everything except the mirror write,
// which lives in its own store and is swallowed on error.
func (oc *OrderController) placeOrder(ctx context.Context, userID string, req models.CreateOrderRequest) (int64, decimal.Decimal, error) {
	tx, err := oc.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("begin transaction: %w", err)
	}
	// No-op after a successful commit; releases the transaction on
	// every other exit path.
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT ci.product_id, ci.quantity, p.price, p.quantity, p.name
		FROM cart c
		JOIN cart_items ci ON c.id = ci.cart_id
		JOIN products p ON ci.product_id = p.id
		WHERE c.user_id = ?`,
		userID,
	)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("read cart: %w", err)
	}

	var lines []models.OrderLine
	for rows.Next() {
		var l models.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Price, &l.Stock, &l.ProductName); err != nil {
			rows.Close()
			return 0, decimal.Zero, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, decimal.Zero, err
	}
	rows.Close()

	if len(lines) == 0 {
		return 0, decimal.Zero, ErrEmptyCart
	}

	for _, l := range lines {
		if l.Quantity > l.Stock {
			return 0, decimal.Zero, &InsufficientStockError{ProductID: l.ProductID}
		}
	}

	total := models.OrderTotal(lines)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (user_id, total_amount, shipping_address, phone_number, status)
		VALUES (?, ?, ?, ?, 'pending')`,
		userID, total, req.ShippingAddress, req.PhoneNumber,
	)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("insert order: %w", err)
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("order id: %w", err)
	}

	mirrorItems := make([]mongodb.OrderItemDoc, 0, len(lines))
	for _, l := range lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price_at_time)
			VALUES (?, ?, ?, ?)`,
			orderID, l.ProductID, l.Quantity, l.Price,
		); err != nil {
			return 0, decimal.Zero, fmt.Errorf("insert order item: %w", err)
		}

		// Conditional decrement: a concurrent order that already took
		// the last units makes this touch zero rows, so a race on a
		// low-stock product cannot oversell.
		dec, err := tx.ExecContext(ctx,
			"UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?",
			l.Quantity, l.ProductID, l.Quantity,
		)
		if err != nil {
			return 0, decimal.Zero, fmt.Errorf("decrement stock: %w", err)
		}
		if n, err := dec.RowsAffected(); err != nil {
			return 0, decimal.Zero, err
		} else if n == 0 {
			return 0, decimal.Zero, &InsufficientStockError{ProductID: l.ProductID}
		}

		mirrorItems = append(mirrorItems, mongodb.OrderItemDoc{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Quantity:    l.Quantity,
			PriceAtTime: l.Price.StringFixed(2),
		})
	}

	if oc.Mirror != nil {
		doc := &mongodb.OrderDoc{
			MySQLOrderID:    int(orderID),
			UserID:          userID,
			TotalAmount:     total.StringFixed(2),
			ShippingAddress: req.ShippingAddress,
			PhoneNumber:     req.PhoneNumber,
			Status:          "pending",
			Items:           mirrorItems,
		}
		if err := oc.Mirror.MirrorOrder(ctx, doc); err != nil {
			log.Printf("Error saving order %d to document store: %v", orderID, err)
			middlewares.RecordMirrorWrite(false)
		} else {
			middlewares.RecordMirrorWrite(true)
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM cart WHERE user_id = ?", userID); err != nil {
		return 0, decimal.Zero, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, decimal.Zero, fmt.Errorf("commit: %w", err)
	}

	return orderID, total, nil
}

func (oc *OrderController) GetUserOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list", ok)
	}()

	userID, exists := middlewares.UserID(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	rows, err := oc.DB.QueryContext(c.Request.Context(), `
		SELECT o.id, o.total_amount, o.shipping_address, o.phone_number, o.status, o.created_at,
		       oi.product_id, oi.quantity, oi.price_at_time, p.name
		FROM orders o
		JOIN order_items oi ON o.id = oi.order_id
		JOIN products p ON oi.product_id = p.id
		WHERE o.user_id = ?
		ORDER BY o.created_at DESC, o.id DESC, oi.id ASC`,
		userID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching orders"})
		return
	}
	defer rows.Close()

	// Grouping is keyed by order id, not by row adjacency: two orders
	// sharing a created_at second must not split into partial entries.
	ordersMap := make(map[int]*models.OrderResponse)
	var orderIDs []int
	for rows.Next() {
		var (
			id                     int
			total                  decimal.Decimal
			address, phone, status string
			createdAt              time.Time
			productID, quantity    int
			priceAtTime            decimal.Decimal
			productName            string
		)
		if err := rows.Scan(&id, &total, &address, &phone, &status, &createdAt,
			&productID, &quantity, &priceAtTime, &productName); err != nil {
			log.Printf("Error scanning order row: %v", err)
			continue
		}

		order, seen := ordersMap[id]
		if !seen {
			order = &models.OrderResponse{
				ID:              id,
				UserID:          userID,
				TotalAmount:     total,
				ShippingAddress: address,
				PhoneNumber:     phone,
				Status:          status,
				CreatedAt:       createdAt,
				Items:           []models.OrderItemDetail{},
			}
			ordersMap[id] = order
			orderIDs = append(orderIDs, id)
		}

		order.Items = append(order.Items, models.OrderItemDetail{
			ProductID:   productID,
			ProductName: productName,
			Quantity:    quantity,
			Price:       priceAtTime,
			Subtotal:    priceAtTime.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}

	orders := make([]models.OrderResponse, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *ordersMap[id])
	}

	// Mirror read is for observability only; its data never reaches
	// the client and its failure is swallowed.
	if oc.Mirror != nil {
		mirrorCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		docs, err := oc.Mirror.OrdersByUser(mirrorCtx, userID)
		cancel()
		if err != nil {
			log.Printf("Error fetching mirrored orders for user %s: %v", userID, err)
		} else {
			log.Printf("Mirrored orders for user %s: %d", userID, len(docs))
		}
	}

	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) GetAllOrders(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("list_all", ok)
	}()

	rows, err := oc.DB.QueryContext(c.Request.Context(), `
		SELECT o.id, o.user_id, o.total_amount, o.shipping_address, o.phone_number, o.status, o.created_at,
		       oi.product_id, oi.quantity, oi.price_at_time, p.name
		FROM orders o
		LEFT JOIN order_items oi ON o.id = oi.order_id
		LEFT JOIN products p ON oi.product_id = p.id
		ORDER BY o.created_at DESC, o.id DESC, oi.id ASC`,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Error fetching orders"})
		return
	}
	defer rows.Close()

	ordersMap := make(map[int]*models.OrderResponse)
	badItems := make(map[int]bool)
	var orderIDs []int
	for rows.Next() {
		var (
			id                     int
			userID                 string
			total                  decimal.Decimal
			address, phone, status string
			createdAt              time.Time
			productID, quantity    sql.NullInt64
			priceAtTime            sql.NullString
			productName            sql.NullString
		)
		if err := rows.Scan(&id, &userID, &total, &address, &phone, &status, &createdAt,
			&productID, &quantity, &priceAtTime, &productName); err != nil {
			log.Printf("Error scanning order row: %v", err)
			continue
		}

		order, seen := ordersMap[id]
		if !seen {
			order = &models.OrderResponse{
				ID:              id,
				UserID:          userID,
				TotalAmount:     total,
				ShippingAddress: address,
				PhoneNumber:     phone,
				Status:          status,
				CreatedAt:       createdAt,
				Items:           []models.OrderItemDetail{},
			}
			ordersMap[id] = order
			orderIDs = append(orderIDs, id)
		}

		if badItems[id] {
			continue
		}
		if !productID.Valid || !quantity.Valid || !priceAtTime.Valid {
			continue
		}
		price, err := decimal.NewFromString(priceAtTime.String)
		if err != nil {
			// A bad line leaves the order with an empty item list
			// rather than failing the whole request; remaining rows
			// for the same order are dropped too.
			log.Printf("Error parsing order items for order ID %d: %v", id, err)
			order.Items = []models.OrderItemDetail{}
			badItems[id] = true
			continue
		}
		order.Items = append(order.Items, models.OrderItemDetail{
			ProductID:   int(productID.Int64),
			ProductName: productName.String,
			Quantity:    int(quantity.Int64),
			Price:       price,
			Subtotal:    price.Mul(decimal.NewFromInt(quantity.Int64)),
		})
	}

	orders := make([]models.OrderResponse, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *ordersMap[id])
	}

	c.JSON(http.StatusOK, orders)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	defer func() {
		ok := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("update_status", ok)
	}()

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	var request struct {
		Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := oc.DB.ExecContext(c.Request.Context(),
		"UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?",
		request.Status, orderID,
	)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Database error"})
		return
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order status updated", "order_id": orderID})

	if oc.Events != nil {
		priority := 5
		if request.Status == "cancelled" {
			priority = 8
		}
		event := models.OrderEvent{
			OrderID:  orderID,
			Type:     "status_updated",
			Status:   request.Status,
			Occurred: time.Now(),
		}
		if err := oc.Events.PublishOrderEvent(event, priority); err != nil {
			log.Printf("Failed to publish order updated event: %v", err)
		}
	}
}
