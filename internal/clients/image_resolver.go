package clients

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"

	"storefront-service/internal/models"
)

// ErrInvalidImageRef is returned for references no provider can turn into a URL
var ErrInvalidImageRef = errors.New("invalid image reference")

// ImageResolver maps an opaque image reference to a renderable URL.
// Zero width or height leaves that dimension unconstrained.
type ImageResolver interface {
	Resolve(ref models.ImageRef, width, height int) (string, error)
}

func isAbsoluteURL(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}

// SanityImageResolver builds CMS image CDN URLs from asset references of the form
// image-<id>-<width>x<height>-<format>.
type SanityImageResolver struct {
	projectID string
	dataset   string
	baseURL   string
}

// NewSanityImageResolver creates a resolver for the given CMS project
func NewSanityImageResolver(projectID, dataset string) *SanityImageResolver {
	if dataset == "" {
		dataset = "production"
	}
	return &SanityImageResolver{
		projectID: projectID,
		dataset:   dataset,
		baseURL:   "https://cdn.sanity.io/images",
	}
}

func (r *SanityImageResolver) Resolve(ref models.ImageRef, width, height int) (string, error) {
	raw := strings.TrimSpace(string(ref))
	if raw == "" {
		return "", ErrInvalidImageRef
	}

	var base string
	if isAbsoluteURL(raw) {
		base = raw
	} else {
		id := strings.TrimPrefix(raw, "image-")
		dash := strings.LastIndex(id, "-")
		if dash <= 0 || dash == len(id)-1 {
			return "", fmt.Errorf("%w: %s", ErrInvalidImageRef, raw)
		}
		base = fmt.Sprintf("%s/%s/%s/%s.%s", r.baseURL, r.projectID, r.dataset, id[:dash], id[dash+1:])
	}

	return withSize(base, width, height), nil
}

func withSize(base string, width, height int) string {
	values := url.Values{}
	if width > 0 {
		values.Set("w", strconv.Itoa(width))
	}
	if height > 0 {
		values.Set("h", strconv.Itoa(height))
	}
	if len(values) == 0 {
		return base
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + values.Encode()
}

// CloudinaryResolver serves references that are Cloudinary public IDs
type CloudinaryResolver struct {
	cld *cloudinary.Cloudinary
}

// NewCloudinaryResolver creates a resolver for the given Cloudinary account
func NewCloudinaryResolver(cloudName, apiKey, apiSecret string) (*CloudinaryResolver, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Cloudinary: %w", err)
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false
	return &CloudinaryResolver{cld: cld}, nil
}

func (r *CloudinaryResolver) Resolve(ref models.ImageRef, width, height int) (string, error) {
	raw := strings.TrimSpace(string(ref))
	if raw == "" {
		return "", ErrInvalidImageRef
	}
	if isAbsoluteURL(raw) {
		return raw, nil
	}

	img, err := r.cld.Image(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImageRef, err)
	}

	var parts []string
	if width > 0 || height > 0 {
		parts = append(parts, "c_fill")
	}
	if height > 0 {
		parts = append(parts, "h_"+strconv.Itoa(height))
	}
	if width > 0 {
		parts = append(parts, "w_"+strconv.Itoa(width))
	}
	img.Transformation = strings.Join(parts, ",")

	resolved, err := img.String()
	if err != nil {
		return "", fmt.Errorf("failed to build image url: %w", err)
	}
	return resolved, nil
}

// ResolveAll resolves every reference, skipping those that fail
func ResolveAll(resolver ImageResolver, refs []models.ImageRef, width, height int) []string {
	urls := make([]string, 0, len(refs))
	for _, ref := range refs {
		if u, err := resolver.Resolve(ref, width, height); err == nil {
			urls = append(urls, u)
		}
	}
	return urls
}
