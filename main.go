package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"motoshop/cache"
	"motoshop/config"
	"motoshop/consumers"
	"motoshop/controllers"
	"motoshop/database"
	"motoshop/middlewares"
	"motoshop/mongodb"
	"motoshop/rabbitmq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg := config.LoadConfig()

	db, err := database.Init(cfg)
	if err != nil {
		log.Fatalf("Database initialization failed: %v", err)
	}
	defer db.Close()

	if err := database.InitSchema(db); err != nil {
		log.Fatalf("Schema initialization failed: %v", err)
	}

	store, err := mongodb.Connect(cfg)
	if err != nil {
		log.Fatalf("Document store initialization failed: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		store.Close(ctx)
	}()

	productCache := cache.New(cfg)
	defer productCache.Close()

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}

	// RabbitMQ is optional infrastructure: order events are
	// best-effort, so a missing broker must not keep the shop down.
	var events controllers.EventPublisher
	rmq, err := rabbitmq.NewRabbitMQ(cfg)
	if err != nil {
		log.Printf("RabbitMQ unavailable, order events disabled: %v", err)
	} else {
		defer rmq.Close()
		if err := rmq.SetupQueues(); err != nil {
			log.Fatalf("Failed to setup RabbitMQ queues: %v", err)
		}
		consumers.NewOrderConsumer(db, cfg).Start(rmq.Channel)
		events = rmq
	}

	authController := controllers.NewAuthController(store, cfg.JWTSecret)
	productController := controllers.NewProductController(db, productCache, cfg.UploadDir)
	cartController := controllers.NewCartController(db)
	orderController := controllers.NewOrderController(db, store, events)
	reviewController := controllers.NewReviewController(db, store)
	salesController := controllers.NewSalesController(db, cfg.ForecastURL)
	chatController := controllers.NewChatController(store)

	r := gin.Default()
	r.Use(middlewares.PrometheusMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.Static("/uploads", cfg.UploadDir)

	api := r.Group("/api")

	api.POST("/auth/register", authController.Register)
	api.POST("/auth/login", authController.Login)

	api.GET("/products", productController.GetAllProducts)
	api.GET("/products/:id", productController.GetProduct)
	api.GET("/reviews/product/:id", reviewController.GetProductReviews)

	authed := api.Group("")
	authed.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		authed.POST("/cart/add", cartController.AddToCart)
		authed.GET("/cart", cartController.GetCart)

		authed.POST("/orders", orderController.CreateOrder)
		authed.GET("/orders", orderController.GetUserOrders)

		authed.POST("/reviews", reviewController.AddReview)
		authed.GET("/reviews", reviewController.GetAllReviews)

		authed.GET("/sales/sales-details/:productId", salesController.GetSalesDetails)
		authed.POST("/sales/upload-csv", salesController.UploadCSV)
		authed.POST("/analysis/analyze", salesController.Analyze)

		authed.POST("/chat/messages", chatController.PostMessage)
		authed.GET("/chat/messages", chatController.GetMessages)
	}

	admin := api.Group("")
	admin.Use(middlewares.AuthMiddleware(cfg.JWTSecret), middlewares.AdminRequired())
	{
		admin.POST("/products", productController.AddProduct)
		admin.PUT("/products/:id", productController.UpdateProduct)
		admin.DELETE("/products/:id", productController.DeleteProduct)

		admin.GET("/orders/all", orderController.GetAllOrders)
		admin.PUT("/orders/:id/status", orderController.UpdateOrderStatus)
	}

	addr := ":" + cfg.ServerPort
	log.Printf("motoshop API starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
