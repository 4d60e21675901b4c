package clients

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

func TestSanityImageResolver_Resolve(t *testing.T) {
	resolver := NewSanityImageResolver("abc", "production")

	got, err := resolver.Resolve("image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc/production/Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg", got)

	sized, err := resolver.Resolve("image-Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000-jpg", 400, 300)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.sanity.io/images/abc/production/Tb9Ew8CXIwaY6R1kjMvI0uRR-2000x3000.jpg?h=300&w=400", sized)
}

func TestSanityImageResolver_PassesThroughURLs(t *testing.T) {
	resolver := NewSanityImageResolver("abc", "")

	got, err := resolver.Resolve("https://cdn.example.com/a.png?v=1", 200, 0)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/a.png?v=1&w=200", got)
}

func TestSanityImageResolver_Invalid(t *testing.T) {
	resolver := NewSanityImageResolver("abc", "production")

	for _, ref := range []models.ImageRef{"", "   ", "image-nodash", "image-abc-"} {
		_, err := resolver.Resolve(ref, 0, 0)
		assert.True(t, errors.Is(err, ErrInvalidImageRef), string(ref))
	}
}

func TestCloudinaryResolver_Resolve(t *testing.T) {
	resolver, err := NewCloudinaryResolver("demo", "key", "secret")
	require.NoError(t, err)

	got, err := resolver.Resolve("storefront/products/lamp", 400, 300)
	require.NoError(t, err)
	assert.Contains(t, got, "https://res.cloudinary.com/demo/image/upload/")
	assert.Contains(t, got, "c_fill,h_300,w_400")
	assert.Contains(t, got, "storefront/products/lamp")

	passthrough, err := resolver.Resolve("https://images.example.com/x.jpg", 10, 10)
	require.NoError(t, err)
	assert.Equal(t, "https://images.example.com/x.jpg", passthrough)

	_, err = resolver.Resolve("", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidImageRef)
}

func TestResolveAll_SkipsInvalid(t *testing.T) {
	resolver := NewSanityImageResolver("abc", "production")

	urls := ResolveAll(resolver, []models.ImageRef{"image-a-1x1-png", "broken", "image-b-2x2-jpg"}, 0, 0)

	assert.Equal(t, []string{
		"https://cdn.sanity.io/images/abc/production/a-1x1.png",
		"https://cdn.sanity.io/images/abc/production/b-2x2.jpg",
	}, urls)
}
