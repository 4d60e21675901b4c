package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/clients"
	"storefront-service/internal/models"
	"storefront-service/internal/repository"
)

// User-facing notification messages
const (
	MsgAddedToCart       = "Product added to cart!"
	MsgAddedToWishlist   = "Product added to wishlist!"
	MsgAlreadyInWishlist = "Product is already in your wishlist."
	MsgSignInRequired    = "Please sign in to add products to your cart."
	MsgInvalidProduct    = "Invalid product data."
	MsgProductNotFound   = "Product not found."
	MsgCartFailed        = "Failed to add product to cart."
	MsgWishlistFailed    = "Failed to add product to wishlist."
	MsgCartLoadFailed    = "Failed to load cart."
	MsgWishlistLoadFail  = "Failed to load wishlist."
	MsgCartUpdated       = "Cart updated."
	MsgCartUpdateFailed  = "Failed to update cart."
	MsgCartCleared       = "Cart cleared."
	MsgCartClearFailed   = "Failed to clear cart."

	ShareTitle = "Check out this product!"
	ShareText  = "I found this amazing product and thought you might like it."
)

// Outcome classifies a CartResult for the transport layer
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeRedirect Outcome = "redirect"
	OutcomeInvalid  Outcome = "invalid"
	OutcomeNotFound Outcome = "not_found"
	OutcomeFailed   Outcome = "failed"
)

// Actor is who is acting: a signed-in user, or an anonymous browsing session
type Actor struct {
	UserID    string
	SessionID string
}

// Authenticated reports whether the actor is signed in
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// Owner is the key a wishlist is stored under
func (a Actor) Owner() string {
	if a.UserID != "" {
		return a.UserID
	}
	if a.SessionID != "" {
		return "session:" + a.SessionID
	}
	return ""
}

// ProductLookup resolves a product id to its detail record
type ProductLookup interface {
	GetProductDetail(ctx context.Context, id string) (*models.ProductDetail, error)
}

// EventPublisher receives cart and wishlist changes. Publishing never blocks or fails the caller.
type EventPublisher interface {
	PublishCartItemAdded(owner string, item models.LineItem, itemCount int)
	PublishCartReplaced(owner string, itemCount int)
	PublishCartCleared(owner string)
	PublishWishlistItemAdded(owner string, item models.LineItem, itemCount int)
}

// CartResult is the outcome of every cart and wishlist operation.
// Errors never leave the service; they arrive here as an error notification.
type CartResult struct {
	Items        []models.LineItem
	ItemCount    int
	Subtotal     float64
	Notification *models.Notification
	RedirectURL  string
	Outcome      Outcome
}

// CartServiceOptions configures links built by the service
type CartServiceOptions struct {
	StorefrontBaseURL string
	SignInPath        string
}

// CartService implements cart and wishlist side effects. Carts are stored
// wholesale; writes to one key are serialized within this process, and across
// processes the last writer wins.
type CartService struct {
	store    repository.CartStore
	products ProductLookup
	images   clients.ImageResolver
	events   EventPublisher
	locks    *keyedMutex
	baseURL  string
	signIn   string
	logger   *logrus.Entry
	now      func() time.Time
}

// NewCartService creates a new cart service. images and events may be nil.
func NewCartService(store repository.CartStore, products ProductLookup, images clients.ImageResolver, events EventPublisher, opts CartServiceOptions, logger *logrus.Entry) *CartService {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	signIn := opts.SignInPath
	if signIn == "" {
		signIn = "/sign-in"
	}
	return &CartService{
		store:    store,
		products: products,
		images:   images,
		events:   events,
		locks:    newKeyedMutex(),
		baseURL:  strings.TrimRight(opts.StorefrontBaseURL, "/"),
		signIn:   signIn,
		logger:   logger,
		now:      time.Now,
	}
}

func notify(t models.NotificationType, message string) *models.Notification {
	return &models.Notification{Type: t, Message: message}
}

func failed(message string) CartResult {
	return CartResult{Items: []models.LineItem{}, Outcome: OutcomeFailed, Notification: notify(models.NotificationError, message)}
}

func withItems(items []models.LineItem) CartResult {
	result := CartResult{Items: items, Outcome: OutcomeOK}
	for _, item := range items {
		result.ItemCount += item.Quantity
		result.Subtotal += item.Subtotal()
	}
	return result
}

// guard turns a panic in a collaborator into an error notification
func (s *CartService) guard(op, message string, result *CartResult) {
	if r := recover(); r != nil {
		s.logger.WithField("operation", op).Errorf("recovered from panic: %v", r)
		*result = failed(message)
	}
}

func (s *CartService) signInRequired(returnURL string) CartResult {
	return CartResult{
		Items:        []models.LineItem{},
		Outcome:      OutcomeRedirect,
		RedirectURL:  s.SignInRedirect(returnURL),
		Notification: notify(models.NotificationInfo, MsgSignInRequired),
	}
}

// SignInRedirect builds the sign-in URL carrying the page to return to
func (s *CartService) SignInRedirect(returnURL string) string {
	return s.signIn + "?returnBackUrl=" + encodeURIComponent(returnURL)
}

// AddToCart appends a line item to the actor's cart. Unauthenticated actors get
// a sign-in redirect and the store is not touched. A click id already present in
// the cart makes the call a successful no-op.
func (s *CartService) AddToCart(ctx context.Context, actor Actor, req models.AddToCartRequest) (result CartResult) {
	defer s.guard("add_to_cart", MsgCartFailed, &result)

	if !actor.Authenticated() {
		return s.signInRequired(req.ReturnURL)
	}

	productID := strings.TrimSpace(req.ProductID)
	if productID == "" {
		return CartResult{Items: []models.LineItem{}, Outcome: OutcomeInvalid, Notification: notify(models.NotificationError, MsgInvalidProduct)}
	}

	logger := s.logger.WithFields(logrus.Fields{"user_id": actor.UserID, "product_id": productID})

	product, err := s.products.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return CartResult{Items: []models.LineItem{}, Outcome: OutcomeNotFound, Notification: notify(models.NotificationError, MsgProductNotFound)}
		}
		logger.WithError(err).Warn("Failed to look up product for cart")
		return failed(MsgCartFailed)
	}

	key := repository.CartKey(actor.UserID)
	unlock := s.locks.Lock(key)
	defer unlock()

	items, err := s.store.Load(ctx, key)
	if err != nil {
		logger.WithError(err).Error("Failed to load cart")
		return failed(MsgCartFailed)
	}

	if req.ClickID != "" {
		for _, existing := range items {
			if existing.ClickID == req.ClickID {
				result = withItems(items)
				result.Notification = notify(models.NotificationSuccess, MsgAddedToCart)
				return result
			}
		}
	}

	item := s.lineItem(product, req.ClickID)
	if req.Quantity > 1 {
		item.Quantity = req.Quantity
	}
	item.SelectedSize = firstNonEmpty(req.SelectedSize, product.DefaultSize)
	item.SelectedColor = firstNonEmpty(req.SelectedColor, product.DefaultColor)

	items = append(items, item)
	if err := s.store.Save(ctx, key, items); err != nil {
		logger.WithError(err).Error("Failed to save cart")
		return failed(MsgCartFailed)
	}

	result = withItems(items)
	result.Notification = notify(models.NotificationSuccess, MsgAddedToCart)
	if s.events != nil {
		s.events.PublishCartItemAdded(actor.UserID, item, result.ItemCount)
	}
	return result
}

// AddToWishlist appends a product to the wishlist of the user or browsing session.
// A product already on the list is reported, not added twice.
func (s *CartService) AddToWishlist(ctx context.Context, actor Actor, req models.AddToWishlistRequest) (result CartResult) {
	defer s.guard("add_to_wishlist", MsgWishlistFailed, &result)

	owner := actor.Owner()
	productID := strings.TrimSpace(req.ProductID)
	if owner == "" {
		return CartResult{Items: []models.LineItem{}, Outcome: OutcomeInvalid, Notification: notify(models.NotificationError, MsgInvalidProduct)}
	}

	logger := s.logger.WithFields(logrus.Fields{"owner": owner, "product_id": productID})

	product, err := s.products.GetProductDetail(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return CartResult{Items: []models.LineItem{}, Outcome: OutcomeNotFound, Notification: notify(models.NotificationError, MsgProductNotFound)}
		}
		logger.WithError(err).Warn("Failed to look up product for wishlist")
		return failed(MsgWishlistFailed)
	}

	key := repository.WishlistKey(owner)
	unlock := s.locks.Lock(key)
	defer unlock()

	items, err := s.store.Load(ctx, key)
	if err != nil {
		logger.WithError(err).Error("Failed to load wishlist")
		return failed(MsgWishlistFailed)
	}

	for _, existing := range items {
		if existing.ProductID == productID {
			result = withItems(items)
			if req.ClickID != "" && existing.ClickID == req.ClickID {
				result.Notification = notify(models.NotificationSuccess, MsgAddedToWishlist)
			} else {
				result.Notification = notify(models.NotificationInfo, MsgAlreadyInWishlist)
			}
			return result
		}
	}

	item := s.lineItem(product, req.ClickID)
	items = append(items, item)
	if err := s.store.Save(ctx, key, items); err != nil {
		logger.WithError(err).Error("Failed to save wishlist")
		return failed(MsgWishlistFailed)
	}

	result = withItems(items)
	result.Notification = notify(models.NotificationSuccess, MsgAddedToWishlist)
	if s.events != nil {
		s.events.PublishWishlistItemAdded(owner, item, len(items))
	}
	return result
}

// GetCart returns the signed-in user's cart. Anonymous actors are sent to sign in.
func (s *CartService) GetCart(ctx context.Context, actor Actor, returnURL string) (result CartResult) {
	defer s.guard("get_cart", MsgCartLoadFailed, &result)

	if !actor.Authenticated() {
		return s.signInRequired(returnURL)
	}
	items, err := s.store.Load(ctx, repository.CartKey(actor.UserID))
	if err != nil {
		s.logger.WithError(err).WithField("user_id", actor.UserID).Error("Failed to load cart")
		return failed(MsgCartLoadFailed)
	}
	return withItems(items)
}

// GetWishlist returns the wishlist of the user or browsing session
func (s *CartService) GetWishlist(ctx context.Context, actor Actor) (result CartResult) {
	defer s.guard("get_wishlist", MsgWishlistLoadFail, &result)

	owner := actor.Owner()
	if owner == "" {
		return withItems([]models.LineItem{})
	}
	items, err := s.store.Load(ctx, repository.WishlistKey(owner))
	if err != nil {
		s.logger.WithError(err).WithField("owner", owner).Error("Failed to load wishlist")
		return failed(MsgWishlistLoadFail)
	}
	return withItems(items)
}

// ReplaceCart stores items as the whole cart. Item product ids are validated
// when the request is bound; quantities below 1 become 1 and missing ids are assigned.
func (s *CartService) ReplaceCart(ctx context.Context, actor Actor, items []models.LineItem, returnURL string) (result CartResult) {
	defer s.guard("replace_cart", MsgCartUpdateFailed, &result)

	if !actor.Authenticated() {
		return s.signInRequired(returnURL)
	}

	cleaned := make([]models.LineItem, 0, len(items))
	for _, item := range items {
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		if item.AddedAt.IsZero() {
			item.AddedAt = s.now().UTC()
		}
		cleaned = append(cleaned, item)
	}

	key := repository.CartKey(actor.UserID)
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.store.Save(ctx, key, cleaned); err != nil {
		s.logger.WithError(err).WithField("user_id", actor.UserID).Error("Failed to replace cart")
		return failed(MsgCartUpdateFailed)
	}

	result = withItems(cleaned)
	result.Notification = notify(models.NotificationSuccess, MsgCartUpdated)
	if s.events != nil {
		s.events.PublishCartReplaced(actor.UserID, result.ItemCount)
	}
	return result
}

// ClearCart removes every line item from the cart
func (s *CartService) ClearCart(ctx context.Context, actor Actor, returnURL string) (result CartResult) {
	defer s.guard("clear_cart", MsgCartClearFailed, &result)

	if !actor.Authenticated() {
		return s.signInRequired(returnURL)
	}

	key := repository.CartKey(actor.UserID)
	unlock := s.locks.Lock(key)
	defer unlock()

	if err := s.store.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("user_id", actor.UserID).Error("Failed to clear cart")
		return failed(MsgCartClearFailed)
	}

	result = withItems([]models.LineItem{})
	result.Notification = notify(models.NotificationSuccess, MsgCartCleared)
	if s.events != nil {
		s.events.PublishCartCleared(actor.UserID)
	}
	return result
}

// ShareLinks builds the product URL and, for a known platform, its share URL.
// Other platforms get the clipboard fallback.
func (s *CartService) ShareLinks(productID, platform string) models.ShareLinks {
	productURL := fmt.Sprintf("%s/product/%s", s.baseURL, url.PathEscape(productID))
	encoded := encodeURIComponent(productURL)

	links := models.ShareLinks{
		ProductURL: productURL,
		Platform:   strings.ToLower(strings.TrimSpace(platform)),
		Title:      ShareTitle,
		Text:       ShareText,
	}
	switch links.Platform {
	case "facebook":
		links.ShareURL = "https://www.facebook.com/sharer/sharer.php?u=" + encoded
	case "twitter":
		links.ShareURL = "https://twitter.com/intent/tweet?url=" + encoded + "&text=" + encodeURIComponent(ShareTitle)
	case "instagram":
		links.ShareURL = "https://www.instagram.com/?url=" + encoded
	default:
		links.Fallback = "clipboard"
	}
	return links
}

func (s *CartService) lineItem(product *models.ProductDetail, clickID string) models.LineItem {
	item := models.LineItem{
		ID:        uuid.New(),
		ProductID: product.ID,
		Title:     product.Title,
		Price:     product.Price,
		Quantity:  1,
		ClickID:   clickID,
		AddedAt:   s.now().UTC(),
	}
	if s.images != nil && product.ProductImage != "" {
		if u, err := s.images.Resolve(product.ProductImage, 0, 0); err == nil {
			item.ImageURL = u
		}
	}
	return item
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// encodeURIComponent escapes like the browser function of the same name
func encodeURIComponent(s string) string {
	escaped := url.QueryEscape(s)
	return strings.NewReplacer(
		"+", "%20",
		"%21", "!",
		"%27", "'",
		"%28", "(",
		"%29", ")",
		"%2A", "*",
	).Replace(escaped)
}

// keyedMutex serializes read-modify-write cycles per storage key
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedLock)}
}

// Lock acquires the lock for key and returns its release function
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
