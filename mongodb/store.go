package mongodb

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"motoshop/config"
	"motoshop/models"
)

// Store wraps the document database. Users are authoritative here;
// the orders collection is a best-effort mirror of the relational
// orders and may diverge if a mirror write fails.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	orders *mongo.Collection
	chat   *mongo.Collection
}

func Connect(cfg *config.Config) (*Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}

	db := client.Database(cfg.MongoDatabase)
	s := &Store{
		client: client,
		users:  db.Collection("users"),
		orders: db.Collection("orders"),
		chat:   db.Collection("chat"),
	}

	// Unique indexes back the duplicate-email conflict and the
	// one-mirror-per-order contract.
	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	_, err = s.orders.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "mysql_order_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

type UserDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"` // bcrypt hash
	Role      models.Role        `bson:"role"`
	CreatedAt time.Time          `bson:"created_at"`
	LastLogin *time.Time         `bson:"last_login,omitempty"`
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*UserDoc, error) {
	var user UserDoc
	err := s.users.FindOne(ctx, bson.M{"email": strings.ToLower(email)}).Decode(&user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) CreateUser(ctx context.Context, user *UserDoc) (string, error) {
	user.Email = strings.ToLower(user.Email)
	user.CreatedAt = time.Now()
	res, err := s.users.InsertOne(ctx, user)
	if err != nil {
		return "", err
	}
	return res.InsertedID.(primitive.ObjectID).Hex(), nil
}

func (s *Store) StampLastLogin(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"last_login": time.Now()}},
	)
	return err
}

func (s *Store) UserEmailByID(ctx context.Context, hexID string) (string, error) {
	oid, err := primitive.ObjectIDFromHex(hexID)
	if err != nil {
		return "", err
	}
	var user UserDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&user); err != nil {
		return "", err
	}
	return user.Email, nil
}

// OrderDoc is the denormalized order mirror, keyed by the relational
// order id.
type OrderDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	MySQLOrderID    int                `bson:"mysql_order_id"`
	UserID          string             `bson:"user_id"`
	TotalAmount     string             `bson:"total_amount"` // decimal string, 2 places
	ShippingAddress string             `bson:"shipping_address"`
	PhoneNumber     string             `bson:"phone_number"`
	Status          string             `bson:"status"`
	Items           []OrderItemDoc     `bson:"items"`
	CreatedAt       time.Time          `bson:"created_at"`
}

type OrderItemDoc struct {
	ProductID   int    `bson:"product_id"`
	ProductName string `bson:"product_name"`
	Quantity    int    `bson:"quantity"`
	PriceAtTime string `bson:"price_at_time"`
}

func (s *Store) MirrorOrder(ctx context.Context, doc *OrderDoc) error {
	if doc.Status == "" {
		doc.Status = "pending"
	}
	doc.CreatedAt = time.Now()
	_, err := s.orders.InsertOne(ctx, doc)
	return err
}

// OrdersByUser reads mirror docs for observability; callers must not
// serve this data to clients.
func (s *Store) OrdersByUser(ctx context.Context, userID string) ([]OrderDoc, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.orders.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []OrderDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

type ChatMessage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"user_id" json:"user_id"`
	SenderRole models.Role        `bson:"sender_role" json:"sender_role"`
	Content    string             `bson:"content" json:"content"`
	Timestamp  time.Time          `bson:"timestamp" json:"timestamp"`
}

func (s *Store) InsertChatMessage(ctx context.Context, msg *ChatMessage) error {
	msg.Timestamp = time.Now()
	res, err := s.chat.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		msg.ID = oid
	}
	return nil
}

// ChatMessages lists messages newest first. An empty userID returns
// every conversation (admin view).
func (s *Store) ChatMessages(ctx context.Context, userID string, limit int64) ([]ChatMessage, error) {
	filter := bson.M{}
	if userID != "" {
		filter["user_id"] = userID
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}}).SetLimit(limit)
	cursor, err := s.chat.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []ChatMessage
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}
