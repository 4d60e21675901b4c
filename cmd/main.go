package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"storefront-service/internal/clients"
	"storefront-service/internal/config"
	"storefront-service/internal/events"
	"storefront-service/internal/handlers"
	"storefront-service/internal/middleware"
	"storefront-service/internal/repository"
	"storefront-service/internal/services"

	gosharedmw "github.com/Tesseract-Nexus/go-shared/middleware"
	"github.com/Tesseract-Nexus/go-shared/secrets"
	"github.com/Tesseract-Nexus/go-shared/tracing"
)

// @title Storefront API
// @version 1.0.0
// @description Public storefront: catalog browsing, product detail, cart and wishlist

// @contact.name Storefront API Support
// @contact.url http://www.example.com/support
// @contact.email support@example.com

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8095
// @BasePath /api/v1

// @securityDefinitions.bearer BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := config.Load()

	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if cfg.Environment == "production" {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(logrus.DebugLevel)
	}
	entry := logrus.NewEntry(logger).WithField("service", "storefront-service")

	// Cart storage
	var db *gorm.DB
	var cartStore repository.CartStore
	if cfg.CartStore == "memory" {
		cartStore = repository.NewMemoryCartStore()
		log.Println("Using in-memory cart store (carts are lost on restart)")
	} else {
		var err error
		db, err = config.InitDB(cfg)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		cartStore = repository.NewGormCartStore(db)
		log.Println("✓ Database connected")
	}

	// Initialize Redis client
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Printf("WARNING: Failed to parse Redis URL: %v (continuing without Redis)", err)
		redisOpts = &redis.Options{
			Addr: "localhost:6379",
		}
	}
	// Set Redis password from GCP Secret Manager
	redisOpts.Password = secrets.GetRedisPassword()
	redisClient := redis.NewClient(redisOpts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("WARNING: Failed to connect to Redis: %v (using in-process catalog cache)", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Println("✓ Redis connected successfully")
	}
	cancel()

	// CMS and images
	cmsClient := clients.NewCMSClient(clients.CMSOptions{
		ProjectID:  cfg.CMSProjectID,
		Dataset:    cfg.CMSDataset,
		APIVersion: cfg.CMSAPIVersion,
		Token:      cfg.CMSToken,
		UseCDN:     cfg.CMSUseCDN,
		BaseURL:    cfg.CMSBaseURL,
		Timeout:    cfg.CMSTimeout,
	})

	var imageResolver clients.ImageResolver = clients.NewSanityImageResolver(cfg.CMSProjectID, cfg.CMSDataset)
	if cfg.ImageProvider == "cloudinary" {
		cld, err := clients.NewCloudinaryResolver(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Printf("WARNING: %v (falling back to CMS image CDN)", err)
		} else {
			imageResolver = cld
			log.Println("✓ Cloudinary image resolver initialized")
		}
	}

	catalogRepo := repository.NewCatalogRepository(cmsClient, redisClient, cfg.CatalogCacheTTL, entry.WithField("component", "catalog"))

	// Initialize event publisher only if NATS_URL is set
	var eventsPublisher *events.Publisher
	if cfg.NATSURL != "" {
		eventsPublisher, err = events.NewPublisher(cfg.NATSURL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize events publisher: %v (continuing without event publishing)", err)
		} else {
			log.Println("✓ Events publisher initialized (NATS connected)")
		}
	} else {
		log.Println("NATS_URL not set, skipping event publishing initialization")
	}
	defer func() {
		if eventsPublisher != nil {
			eventsPublisher.Close()
		}
	}()

	// A nil *Publisher is a valid no-op, but the service checks its
	// interface for nil, so only pass a connected one.
	var cartEvents services.EventPublisher
	if eventsPublisher != nil {
		cartEvents = eventsPublisher
	}

	cartService := services.NewCartService(cartStore, catalogRepo, imageResolver, cartEvents, services.CartServiceOptions{
		StorefrontBaseURL: cfg.StorefrontBaseURL,
		SignInPath:        cfg.SignInPath,
	}, entry.WithField("component", "cart"))

	storefrontHandler := handlers.NewStorefrontHandler(catalogRepo, imageResolver, cartService, entry.WithField("component", "storefront"))
	cartHandler := handlers.NewCartHandler(cartService, cfg.StorefrontBaseURL)

	// Initialize OpenTelemetry tracing
	var tracerProvider *tracing.TracerProvider
	if cfg.Environment == "production" {
		tracerProvider, err = tracing.InitTracer(tracing.ProductionConfig("storefront-service"))
	} else {
		tracerProvider, err = tracing.InitTracer(tracing.DefaultConfig("storefront-service"))
	}
	if err != nil {
		log.Printf("WARNING: Failed to initialize tracing: %v (continuing without tracing)", err)
	} else {
		log.Println("✓ OpenTelemetry tracing initialized")
	}

	// Initialize Prometheus metrics
	metrics := gosharedmw.InitGlobalMetrics("tesseract", "storefront_service")
	log.Println("✓ Prometheus metrics initialized")

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// Add observability middleware (metrics + tracing)
	router.Use(metrics.Middleware())
	router.Use(tracing.GinMiddleware("storefront-service"))
	router.Use(gosharedmw.CompressionMiddleware())

	router.Use(middleware.CORS(cfg.AllowedOrigins))

	// Health check endpoints
	readiness := map[string]handlers.DependencyCheck{
		"cms": func(ctx context.Context) error {
			_, err := cmsClient.Fetch(ctx, `count(*[_type == "product"])`, nil)
			return err
		},
	}
	if db != nil {
		readiness["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if redisClient != nil {
		readiness["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	router.GET("/health", handlers.HealthCheck)
	router.GET("/ready", handlers.ReadinessCheck(readiness))
	router.GET("/metrics", gosharedmw.Handler())

	if cfg.JWTSecret == "" {
		log.Println("WARNING: JWT_SECRET not set, bearer tokens are ignored and every request is anonymous")
	}

	api := router.Group("/api/v1")
	api.Use(middleware.OptionalAuth(cfg.JWTSecret, entry.WithField("component", "auth")))
	api.Use(middleware.Session(cfg.Environment == "production"))

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	storefront := api.Group("/storefront")
	{
		storefront.GET("/products", storefrontHandler.GetProducts)
		storefront.GET("/products/export", storefrontHandler.ExportProducts)
		storefront.GET("/products/:id", storefrontHandler.GetProduct)
		storefront.GET("/products/:id/share", storefrontHandler.ShareProduct)
		storefront.GET("/categories/:category/products", storefrontHandler.GetCategoryProducts)
		storefront.GET("/images/:ref", storefrontHandler.ResolveImage)
	}

	cart := api.Group("/cart")
	{
		cart.GET("", cartHandler.GetCart)
		cart.PUT("", limiter.Middleware(), cartHandler.ReplaceCart)
		cart.DELETE("", limiter.Middleware(), cartHandler.ClearCart)
		cart.POST("/items", limiter.Middleware(), cartHandler.AddToCart)
	}

	wishlist := api.Group("/wishlist")
	{
		wishlist.GET("", cartHandler.GetWishlist)
		wishlist.POST("/items", limiter.Middleware(), cartHandler.AddToWishlist)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Storefront service starting on port %s", cfg.Port)
		if err := router.Run(fmt.Sprintf(":%s", cfg.Port)); err != nil {
			log.Fatal("Failed to start server:", err)
		}
	}()

	<-quit
	log.Println("Shutting down storefront-service...")

	if tracerProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer provider: %v", err)
		} else {
			log.Println("✓ Tracer provider shut down")
		}
	}

	if redisClient != nil {
		redisClient.Close()
	}

	log.Println("Storefront service stopped")
}
