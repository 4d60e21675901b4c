package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/models"
)

const (
	StreamStorefront = "STOREFRONT_EVENTS"

	CartItemAdded     = "storefront.cart.item_added"
	CartReplaced      = "storefront.cart.replaced"
	CartCleared       = "storefront.cart.cleared"
	WishlistItemAdded = "storefront.wishlist.item_added"
)

// StorefrontEvent is the audit record of one cart or wishlist change
type StorefrontEvent struct {
	ID        string           `json:"id"`
	EventType string           `json:"eventType"`
	Owner     string           `json:"owner"`
	Item      *models.LineItem `json:"item,omitempty"`
	ItemCount int              `json:"itemCount"`
	Timestamp time.Time        `json:"timestamp"`
}

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// Publisher sends storefront events to JetStream. A nil *Publisher is a valid
// no-op publisher, used when NATS is not configured.
type Publisher struct {
	js     streamPublisher
	nc     *nats.Conn
	logger *logrus.Entry
}

// NewPublisher connects to NATS and ensures the storefront stream exists
func NewPublisher(natsURL string, logger *logrus.Logger) (*Publisher, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.InfoLevel)
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("storefront-service"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("[NATS] Reconnected to %s", nc.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("[NATS] Disconnected: %v", err)
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Println("[NATS] Connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamStorefront,
		Subjects:   []string{"storefront.>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     24 * time.Hour * 7,
		Storage:    jetstream.FileStorage,
		Replicas:   1,
		Duplicates: 2 * time.Minute,
	})
	if err != nil {
		logger.WithError(err).Warn("Failed to ensure storefront stream (may already exist)")
	}

	return &Publisher{
		js:     js,
		nc:     nc,
		logger: logger.WithField("component", "storefront-events"),
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p != nil && p.nc != nil {
		p.nc.Close()
	}
}

// PublishCartItemAdded publishes a storefront.cart.item_added event
func (p *Publisher) PublishCartItemAdded(owner string, item models.LineItem, itemCount int) {
	p.publish(CartItemAdded, owner, &item, itemCount)
}

// PublishCartReplaced publishes a storefront.cart.replaced event
func (p *Publisher) PublishCartReplaced(owner string, itemCount int) {
	p.publish(CartReplaced, owner, nil, itemCount)
}

// PublishCartCleared publishes a storefront.cart.cleared event
func (p *Publisher) PublishCartCleared(owner string) {
	p.publish(CartCleared, owner, nil, 0)
}

// PublishWishlistItemAdded publishes a storefront.wishlist.item_added event
func (p *Publisher) PublishWishlistItemAdded(owner string, item models.LineItem, itemCount int) {
	p.publish(WishlistItemAdded, owner, &item, itemCount)
}

// publish sends the event in the background; failures are logged only
func (p *Publisher) publish(eventType, owner string, item *models.LineItem, itemCount int) {
	if p == nil || p.js == nil {
		return
	}

	event := StorefrontEvent{
		ID:        uuid.New().String(),
		EventType: eventType,
		Owner:     owner,
		Item:      item,
		ItemCount: itemCount,
		Timestamp: time.Now().UTC(),
	}
	// A click id identifies the user action; JetStream drops repeats within the duplicate window.
	if item != nil && item.ClickID != "" {
		event.ID = eventType + ":" + owner + ":" + item.ClickID
	}

	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		fields := logrus.Fields{
			"eventType": event.EventType,
			"owner":     event.Owner,
			"eventID":   event.ID,
		}

		data, err := json.Marshal(event)
		if err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to encode storefront event")
			return
		}

		if _, err := p.js.Publish(pubCtx, eventType, data, jetstream.WithMsgID(event.ID)); err != nil {
			p.logger.WithFields(fields).WithError(err).Error("Failed to publish storefront event")
			return
		}
		p.logger.WithFields(fields).Debug("Storefront event published")
	}()
}
