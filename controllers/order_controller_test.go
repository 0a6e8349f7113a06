package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"motoshop/middlewares"
	"motoshop/models"
	"motoshop/mongodb"
)

func orderRouter(oc *OrderController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	seed := func(c *gin.Context) {
		c.Set(middlewares.ContextUserID, "user-1")
		c.Set(middlewares.ContextRole, models.RoleCustomer)
	}
	r.GET("/api/orders", seed, oc.GetUserOrders)
	r.GET("/api/orders/all", seed, oc.GetAllOrders)
	return r
}

type fakeMirror struct {
	docs    []*mongodb.OrderDoc
	failing bool
}

func (f *fakeMirror) MirrorOrder(ctx context.Context, doc *mongodb.OrderDoc) error {
	if f.failing {
		return errors.New("document store unreachable")
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeMirror) OrdersByUser(ctx context.Context, userID string) ([]mongodb.OrderDoc, error) {
	if f.failing {
		return nil, errors.New("document store unreachable")
	}
	return nil, nil
}

var placeReq = models.CreateOrderRequest{
	ShippingAddress: "12 Main St",
	PhoneNumber:     "5550100",
}

func cartColumns() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"product_id", "quantity", "price", "stock", "name"})
}

func TestPlaceOrderSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mirror := &fakeMirror{}
	oc := NewOrderController(db, mirror, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-1").
		WillReturnRows(cartColumns().AddRow(7, 2, "100.00", 5, "Street 150"))
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("user-1", sqlmock.AnyArg(), placeReq.ShippingAddress, placeReq.PhoneNumber).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(42), 7, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET quantity = quantity - ? WHERE id = ? AND quantity >= ?")).
		WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM cart WHERE user_id = ?")).
		WithArgs("user-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	orderID, total, err := oc.placeOrder(context.Background(), "user-1", placeReq)
	require.NoError(t, err)
	assert.Equal(t, int64(42), orderID)
	assert.Equal(t, "200.00", total.StringFixed(2))

	require.Len(t, mirror.docs, 1)
	doc := mirror.docs[0]
	assert.Equal(t, 42, doc.MySQLOrderID)
	assert.Equal(t, "200.00", doc.TotalAmount)
	require.Len(t, doc.Items, 1)
	assert.Equal(t, "100.00", doc.Items[0].PriceAtTime)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oc := NewOrderController(db, &fakeMirror{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-1").
		WillReturnRows(cartColumns())
	mock.ExpectRollback()

	_, _, err = oc.placeOrder(context.Background(), "user-1", placeReq)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oc := NewOrderController(db, &fakeMirror{}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-1").
		WillReturnRows(cartColumns().AddRow(9, 10, "55.00", 3, "Cruiser 250"))
	mock.ExpectRollback()

	_, _, err = oc.placeOrder(context.Background(), "user-1", placeReq)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 9, stockErr.ProductID)
	// No order, order-item, or cart rows were touched before rollback.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderDecrementRace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oc := NewOrderController(db, &fakeMirror{}, nil)

	// Stock passes the read check, but a concurrent order drains it
	// before the decrement: zero affected rows must roll everything
	// back.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-1").
		WillReturnRows(cartColumns().AddRow(7, 2, "100.00", 2, "Street 150"))
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(43, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(2, 7, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, _, err = oc.placeOrder(context.Background(), "user-1", placeReq)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 7, stockErr.ProductID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderMirrorFailureStillCommits(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oc := NewOrderController(db, &fakeMirror{failing: true}, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-1").
		WillReturnRows(cartColumns().AddRow(7, 1, "99.99", 4, "Street 150"))
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(44, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE products SET quantity").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	orderID, total, err := oc.placeOrder(context.Background(), "user-1", placeReq)
	require.NoError(t, err)
	assert.Equal(t, int64(44), orderID)
	assert.Equal(t, "99.99", total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUserOrdersGroupsSameSecondOrders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := orderRouter(NewOrderController(db, nil, nil))

	// Two orders created within the same second, with their item rows
	// interleaved. Each order must still come back as a single entry.
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT o.id, o.total_amount").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "total_amount", "shipping_address", "phone_number", "status", "created_at",
			"product_id", "quantity", "price_at_time", "name"}).
			AddRow(10, "100.00", "12 Main St", "5550100", "pending", createdAt, 7, 1, "100.00", "Street 150").
			AddRow(11, "55.00", "12 Main St", "5550100", "pending", createdAt, 9, 1, "55.00", "Cruiser 250").
			AddRow(10, "100.00", "12 Main St", "5550100", "pending", createdAt, 8, 2, "25.00", "Helmet"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var orders []models.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, 10, orders[0].ID)
	assert.Len(t, orders[0].Items, 2)
	assert.Equal(t, 11, orders[1].ID)
	assert.Len(t, orders[1].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAllOrdersBadItemLineEmptiesItems(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	r := orderRouter(NewOrderController(db, nil, nil))

	// Order 20 has an unparseable price on its first line; the whole
	// order reads back with an empty item list even though a valid
	// line follows. Order 21 is unaffected.
	createdAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT o.id, o.user_id").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "total_amount", "shipping_address", "phone_number", "status", "created_at",
			"product_id", "quantity", "price_at_time", "name"}).
			AddRow(20, "user-1", "100.00", "12 Main St", "5550100", "pending", createdAt, 7, 1, "not-a-price", "Street 150").
			AddRow(20, "user-1", "100.00", "12 Main St", "5550100", "pending", createdAt, 8, 2, "25.00", "Helmet").
			AddRow(21, "user-2", "55.00", "9 Oak Ave", "5550101", "pending", createdAt, 9, 1, "55.00", "Cruiser 250"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders/all", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var orders []models.OrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &orders))
	require.Len(t, orders, 2)
	assert.Equal(t, 20, orders[0].ID)
	assert.Empty(t, orders[0].Items)
	assert.Equal(t, 21, orders[1].ID)
	assert.Len(t, orders[1].Items, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderMultipleLines(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	oc := NewOrderController(db, nil, nil)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT ci.product_id").
		WithArgs("user-2").
		WillReturnRows(cartColumns().
			AddRow(1, 2, "100.00", 5, "Street 150").
			AddRow(2, 1, "250.50", 1, "Adventure 400"))
	mock.ExpectExec("INSERT INTO orders").
		WillReturnResult(sqlmock.NewResult(45, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(45), 1, 2, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(2, 1, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_items").
		WithArgs(int64(45), 2, 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectExec("UPDATE products SET quantity").
		WithArgs(1, 2, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM cart").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, total, err := oc.placeOrder(context.Background(), "user-2", placeReq)
	require.NoError(t, err)
	assert.Equal(t, "450.50", total.StringFixed(2))
	assert.NoError(t, mock.ExpectationsWereMet())
}
