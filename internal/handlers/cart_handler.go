package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"storefront-service/internal/middleware"
	"storefront-service/internal/models"
	"storefront-service/internal/services"
)

// CartHandler serves the cart and wishlist endpoints
type CartHandler struct {
	service *services.CartService
	baseURL string
}

func NewCartHandler(service *services.CartService, storefrontBaseURL string) *CartHandler {
	return &CartHandler{
		service: service,
		baseURL: strings.TrimRight(storefrontBaseURL, "/"),
	}
}

func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		UserID:    middleware.UserID(c),
		SessionID: middleware.SessionID(c),
	}
}

// returnURL is the page a sign-in redirect comes back to: explicit value,
// then the Referer, then the storefront home.
func (h *CartHandler) returnURL(c *gin.Context, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if v := strings.TrimSpace(c.Query("returnUrl")); v != "" {
		return v
	}
	if referer := c.GetHeader("Referer"); referer != "" {
		return referer
	}
	if h.baseURL == "" {
		return "/"
	}
	return h.baseURL + "/"
}

func statusFor(outcome services.Outcome) int {
	switch outcome {
	case services.OutcomeOK:
		return http.StatusOK
	case services.OutcomeRedirect:
		return http.StatusUnauthorized
	case services.OutcomeInvalid:
		return http.StatusBadRequest
	case services.OutcomeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondCart(c *gin.Context, result services.CartResult) {
	items := result.Items
	if items == nil {
		items = []models.LineItem{}
	}
	c.JSON(statusFor(result.Outcome), models.CartResponse{
		Success:      result.Outcome == services.OutcomeOK,
		Items:        items,
		ItemCount:    result.ItemCount,
		Subtotal:     result.Subtotal,
		Notification: result.Notification,
		RedirectURL:  result.RedirectURL,
	})
}

func invalidPayload(c *gin.Context) {
	c.JSON(http.StatusBadRequest, models.CartResponse{
		Success: false,
		Items:   []models.LineItem{},
		Notification: &models.Notification{
			Type:    models.NotificationError,
			Message: services.MsgInvalidProduct,
		},
	})
}

// GetCart returns the signed-in user's cart
// @Summary Get cart
// @Tags Cart
// @Produce json
// @Success 200 {object} models.CartResponse
// @Failure 401 {object} models.CartResponse "Sign-in required, redirectUrl is set"
// @Router /cart [get]
func (h *CartHandler) GetCart(c *gin.Context) {
	respondCart(c, h.service.GetCart(c.Request.Context(), actorFrom(c), h.returnURL(c, "")))
}

// AddToCart adds a product to the cart
// @Summary Add to cart
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.AddToCartRequest true "Product to add"
// @Success 200 {object} models.CartResponse
// @Failure 400 {object} models.CartResponse
// @Failure 401 {object} models.CartResponse
// @Failure 404 {object} models.CartResponse
// @Router /cart/items [post]
func (h *CartHandler) AddToCart(c *gin.Context) {
	// The sign-in gate runs before payload validation, so a malformed body
	// still reaches the service as an empty request.
	var req models.AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req = models.AddToCartRequest{}
	}
	req.ReturnURL = h.returnURL(c, req.ReturnURL)
	respondCart(c, h.service.AddToCart(c.Request.Context(), actorFrom(c), req))
}

// ReplaceCart stores the given items as the whole cart
// @Summary Replace cart
// @Tags Cart
// @Accept json
// @Produce json
// @Param request body models.ReplaceCartRequest true "Cart items"
// @Success 200 {object} models.CartResponse
// @Router /cart [put]
func (h *CartHandler) ReplaceCart(c *gin.Context) {
	var req models.ReplaceCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}
	respondCart(c, h.service.ReplaceCart(c.Request.Context(), actorFrom(c), req.Items, h.returnURL(c, "")))
}

// ClearCart removes every item from the cart
// @Summary Clear cart
// @Tags Cart
// @Produce json
// @Success 200 {object} models.CartResponse
// @Router /cart [delete]
func (h *CartHandler) ClearCart(c *gin.Context) {
	respondCart(c, h.service.ClearCart(c.Request.Context(), actorFrom(c), h.returnURL(c, "")))
}

// GetWishlist returns the wishlist of the user or browsing session
// @Summary Get wishlist
// @Tags Wishlist
// @Produce json
// @Success 200 {object} models.CartResponse
// @Router /wishlist [get]
func (h *CartHandler) GetWishlist(c *gin.Context) {
	respondCart(c, h.service.GetWishlist(c.Request.Context(), actorFrom(c)))
}

// AddToWishlist adds a product to the wishlist. No sign-in is required.
// @Summary Add to wishlist
// @Tags Wishlist
// @Accept json
// @Produce json
// @Param request body models.AddToWishlistRequest true "Product to add"
// @Success 200 {object} models.CartResponse
// @Failure 400 {object} models.CartResponse
// @Failure 404 {object} models.CartResponse
// @Router /wishlist/items [post]
func (h *CartHandler) AddToWishlist(c *gin.Context) {
	var req models.AddToWishlistRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidPayload(c)
		return
	}
	respondCart(c, h.service.AddToWishlist(c.Request.Context(), actorFrom(c), req))
}
