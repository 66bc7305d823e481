package main

import (
	"log"
	"time"

	"golang-storefront-backend/configs"
	"golang-storefront-backend/internal/backend"
	"golang-storefront-backend/internal/gateway"
	"golang-storefront-backend/internal/handlers"
	"golang-storefront-backend/internal/middleware"
	"golang-storefront-backend/internal/models"
	"golang-storefront-backend/internal/repositories"
	"golang-storefront-backend/internal/services"
	"golang-storefront-backend/pkg/auth"
	"golang-storefront-backend/pkg/cache"
	"golang-storefront-backend/pkg/database"
	"golang-storefront-backend/pkg/messaging"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	config := configs.LoadConfig()

	// Set Gin mode
	gin.SetMode(config.Server.Mode)

	// Initialize database connections
	db, err := database.NewDatabase(config.Database.PostgresURL, config.Database.MongoURL, config.Database.MongoDBName)
	if err != nil {
		log.Fatal("Failed to connect to databases:", err)
	}
	defer db.Close()

	// Auto-migrate PostgreSQL tables
	if err := autoMigratePostgres(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	// Initialize Redis cache
	redisCache := cache.NewRedisCache(config.Redis.URL, config.Redis.Password, config.Redis.DB)
	if redisCache == nil {
		log.Fatal("Failed to connect to Redis")
	}
	defer redisCache.Close()

	// Initialize Kafka
	kafkaProducer := messaging.NewKafkaProducer(config.Kafka.Brokers)
	defer kafkaProducer.Close()

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(config.JWT.SecretKey, config.JWT.ExpiryHours)

	// Initialize repositories
	cartRepo := repositories.NewCartRepository(db.Postgres)
	guestWishlistRepo := repositories.NewGuestWishlistRepository(db.Postgres)
	addressRepo := repositories.NewAddressRepository(db.Postgres)

	// MongoDB order mirror; nil when Mongo is unavailable
	var orderSnapshotRepo repositories.OrderSnapshotRepository
	if db.MongoDB != nil {
		orderSnapshotRepo = repositories.NewOrderSnapshotRepository(db.MongoDB)
	}

	// Commerce API client and payment gateway
	commerceClient := backend.NewCommerceClient(
		config.Commerce.BaseURL,
		time.Duration(config.Commerce.TimeoutSeconds)*time.Second,
	)
	razorpayGateway := gateway.NewRazorpayGateway(config.Razorpay.KeyID, config.Razorpay.WebhookSecret)

	// Initialize services
	cartService := services.NewCartService(cartRepo, redisCache, config.Checkout.TaxRateBps)
	wishlistService := services.NewWishlistService(guestWishlistRepo, commerceClient)
	addressService := services.NewAddressService(addressRepo)
	orderService := services.NewOrderService(commerceClient, orderSnapshotRepo, kafkaProducer)
	checkoutService := services.NewCheckoutService(
		cartService,
		addressRepo,
		commerceClient,
		razorpayGateway,
		orderSnapshotRepo,
		kafkaProducer,
		config.Checkout.TaxRateBps,
		time.Duration(config.Checkout.GatewayWaitSeconds)*time.Second,
	)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	// Initialize handlers
	cartHandler := handlers.NewCartHandler(cartService)
	wishlistHandler := handlers.NewWishlistHandler(wishlistService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, razorpayGateway)
	orderHandler := handlers.NewOrderHandler(orderService)
	addressHandler := handlers.NewAddressHandler(addressService)

	// Initialize Gin router
	router := gin.Default()

	// CORS middleware
	router.Use(cors.Default())

	// Global middleware
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "golang-storefront-backend",
		})
	})

	// API routes
	api := router.Group("/api/v1")

	// Register routes
	cartHandler.RegisterRoutes(api, authMiddleware)
	wishlistHandler.RegisterRoutes(api, authMiddleware)
	checkoutHandler.RegisterRoutes(api, authMiddleware)
	orderHandler.RegisterRoutes(api, authMiddleware)
	addressHandler.RegisterRoutes(api, authMiddleware)

	log.Printf("Server starting on port %s", config.Server.Port)
	log.Fatal(router.Run(":" + config.Server.Port))
}

func autoMigratePostgres(db *database.Database) error {
	return db.Postgres.AutoMigrate(
		&models.CartRecord{},
		&models.GuestWishlist{},
		&models.Address{},
	)
}
