package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CART_STORE", "memory")
	t.Setenv("CMS_PROJECT_ID", "abc123")
	t.Setenv("JWT_SECRET", "")

	cfg := Load()

	assert.Equal(t, "memory", cfg.CartStore)
	assert.Equal(t, "abc123", cfg.CMSProjectID)
	assert.Equal(t, "production", cfg.CMSDataset)
	assert.True(t, cfg.CMSUseCDN)
	assert.Equal(t, 2*time.Minute, cfg.CatalogCacheTTL)
	assert.Equal(t, "/sign-in", cfg.SignInPath)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Empty(t, cfg.DBPassword)
	assert.Empty(t, cfg.JWTSecret, "no built-in signing key")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("CART_STORE", "MEMORY")
	t.Setenv("CATALOG_CACHE_TTL", "30s")
	t.Setenv("CMS_USE_CDN", "false")
	t.Setenv("ALLOWED_ORIGINS", "https://shop.example.com, https://*.example.com ,")
	t.Setenv("RATE_LIMIT_PER_SECOND", "not-a-number")
	t.Setenv("IMAGE_PROVIDER", "Cloudinary")

	cfg := Load()

	assert.Equal(t, "memory", cfg.CartStore)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.False(t, cfg.CMSUseCDN)
	assert.Equal(t, []string{"https://shop.example.com", "https://*.example.com"}, cfg.AllowedOrigins)
	assert.Equal(t, 5.0, cfg.RateLimitPerSecond)
	assert.Equal(t, "cloudinary", cfg.ImageProvider)
}
