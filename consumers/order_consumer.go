package consumers

import (
	"database/sql"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"motoshop/config"
	"motoshop/models"
)

// OrderConsumer drains the order event queue and the dead-letter
// queue. Events only ever adjust state downstream of an already
// committed order; the HTTP path never waits on them.
type OrderConsumer struct {
	db  *sql.DB
	cfg *config.Config
}

func NewOrderConsumer(db *sql.DB, cfg *config.Config) *OrderConsumer {
	return &OrderConsumer{db: db, cfg: cfg}
}

func (oc *OrderConsumer) Start(ch *amqp.Channel) {
	msgs, err := ch.Consume(
		oc.cfg.OrderQueue,
		"motoshop", // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register order consumer: %v", err)
		return
	}

	go func() {
		for msg := range msgs {
			oc.processOrderMessage(msg)
		}
	}()

	dlqMsgs, err := ch.Consume(
		oc.cfg.DeadLetterQueue,
		"motoshop-dlq", // consumer tag
		false,          // auto-ack
		false,          // exclusive
		false,          // no-local
		false,          // no-wait
		nil,
	)
	if err != nil {
		log.Printf("Failed to register DLQ consumer: %v", err)
		return
	}

	go func() {
		for msg := range dlqMsgs {
			processDeadLetterMessage(msg)
		}
	}()
}

func (oc *OrderConsumer) processOrderMessage(msg amqp.Delivery) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid event body: %s", msg.Body)
		msg.Nack(false, false) // reject without requeue, lands in DLQ
		return
	}

	log.Printf("Processing order event: ID=%d, Type=%s", event.OrderID, event.Type)

	switch event.Type {
	case "created":
		log.Printf("Order created: %d (total %s)", event.OrderID, event.Total)
	case "status_updated":
		oc.handleStatusUpdated(event.OrderID)
	case "payment_check":
		oc.handlePaymentCheck(event.OrderID)
	default:
		log.Printf("Unknown event type: %s", event.Type)
	}

	msg.Ack(false)
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter: %s", msg.Body)
	msg.Ack(false)
}

func (oc *OrderConsumer) handleStatusUpdated(orderID int) {
	var status string
	err := oc.db.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}
	log.Printf("Handling status update for order %d: %s", orderID, status)
}

// handlePaymentCheck cancels orders still pending when the delayed
// payment-check event fires.
func (oc *OrderConsumer) handlePaymentCheck(orderID int) {
	var status string
	err := oc.db.QueryRow("SELECT status FROM orders WHERE id = ?", orderID).Scan(&status)
	if err != nil {
		log.Printf("Failed to get order status: %v", err)
		return
	}

	if status == "pending" {
		_, err := oc.db.Exec(
			"UPDATE orders SET status = 'cancelled', updated_at = NOW() WHERE id = ? AND status = 'pending'",
			orderID,
		)
		if err != nil {
			log.Printf("Failed to auto-cancel order %d: %v", orderID, err)
		} else {
			log.Printf("Auto-cancelled order %d due to non-payment", orderID)
		}
	}
}
