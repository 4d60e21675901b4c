package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Tesseract-Nexus/go-shared/secrets"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"storefront-service/internal/models"
)

type Config struct {
	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Cart storage: "postgres" or "memory"
	CartStore string

	// Redis
	RedisURL string

	// NATS (events are disabled when empty)
	NATSURL string

	// Server
	Port           string
	Environment    string
	AllowedOrigins []string

	// JWT (empty disables sign-in; every request is anonymous)
	JWTSecret string

	// CMS
	CMSProjectID  string
	CMSDataset    string
	CMSAPIVersion string
	CMSToken      string
	CMSUseCDN     bool
	CMSBaseURL    string
	CMSTimeout    time.Duration

	// Images: "sanity" or "cloudinary"
	ImageProvider       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string

	// Catalog
	CatalogCacheTTL time.Duration

	// Storefront links
	StorefrontBaseURL string
	SignInPath        string

	// Rate limiting for cart and wishlist writes
	RateLimitPerSecond float64
	RateLimitBurst     int
}

func Load() *Config {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "5432"))
	useCDN, _ := strconv.ParseBool(getEnv("CMS_USE_CDN", "true"))
	cmsTimeout, err := time.ParseDuration(getEnv("CMS_TIMEOUT", "10s"))
	if err != nil {
		cmsTimeout = 10 * time.Second
	}
	cacheTTL, err := time.ParseDuration(getEnv("CATALOG_CACHE_TTL", "2m"))
	if err != nil {
		cacheTTL = 2 * time.Minute
	}
	ratePerSecond, err := strconv.ParseFloat(getEnv("RATE_LIMIT_PER_SECOND", "5"), 64)
	if err != nil {
		ratePerSecond = 5
	}
	rateBurst, err := strconv.Atoi(getEnv("RATE_LIMIT_BURST", "10"))
	if err != nil {
		rateBurst = 10
	}

	cartStore := strings.ToLower(getEnv("CART_STORE", "postgres"))
	dbPassword := ""
	if cartStore == "postgres" {
		// Database - fetch password from GCP Secret Manager if enabled
		dbPassword = secrets.GetDBPassword()
	}

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: dbPassword,
		DBName:     getEnv("DB_NAME", "storefront_db"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		CartStore: cartStore,

		RedisURL: getEnv("REDIS_URL", "redis://redis.redis-marketplace.svc.cluster.local:6379/0"),

		NATSURL: os.Getenv("NATS_URL"),

		Port:           getEnv("PORT", "8095"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),

		JWTSecret: os.Getenv("JWT_SECRET"),

		CMSProjectID:  getEnv("CMS_PROJECT_ID", ""),
		CMSDataset:    getEnv("CMS_DATASET", "production"),
		CMSAPIVersion: getEnv("CMS_API_VERSION", "2021-10-21"),
		CMSToken:      getEnv("CMS_TOKEN", ""),
		CMSUseCDN:     useCDN,
		CMSBaseURL:    getEnv("CMS_BASE_URL", ""),
		CMSTimeout:    cmsTimeout,

		ImageProvider:       strings.ToLower(getEnv("IMAGE_PROVIDER", "sanity")),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", ""),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", ""),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", ""),

		CatalogCacheTTL: cacheTTL,

		StorefrontBaseURL: getEnv("STOREFRONT_BASE_URL", "http://localhost:3000"),
		SignInPath:        getEnv("SIGN_IN_PATH", "/sign-in"),

		RateLimitPerSecond: ratePerSecond,
		RateLimitBurst:     rateBurst,
	}
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var logLevel logger.LogLevel
	if cfg.Environment == "production" {
		logLevel = logger.Error
	} else {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Println("Running auto-migrations...")
	if err := db.AutoMigrate(&models.CartSnapshot{}); err != nil {
		return nil, fmt.Errorf("failed to run auto-migrations: %w", err)
	}
	log.Println("Auto-migrations completed successfully")

	return db, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
