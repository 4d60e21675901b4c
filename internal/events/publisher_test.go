package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-service/internal/models"
)

type published struct {
	subject string
	data    []byte
}

type fakeStream struct {
	out chan published
	err error
}

func (f *fakeStream) Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	f.out <- published{subject: subject, data: payload}
	if f.err != nil {
		return nil, f.err
	}
	return &jetstream.PubAck{Stream: StreamStorefront}, nil
}

func newTestPublisher(stream *fakeStream) *Publisher {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &Publisher{js: stream, logger: logger.WithField("component", "test")}
}

func receive(t *testing.T, ch chan published) published {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("event was not published")
		return published{}
	}
}

func TestPublisher_NilIsNoop(t *testing.T) {
	var p *Publisher

	assert.NotPanics(t, func() {
		p.PublishCartItemAdded("u1", models.LineItem{ProductID: "a"}, 1)
		p.PublishWishlistItemAdded("s1", models.LineItem{ProductID: "a"}, 1)
		p.PublishCartCleared("u1")
		p.Close()
	})
}

func TestPublisher_CartItemAdded(t *testing.T) {
	stream := &fakeStream{out: make(chan published, 1)}
	p := newTestPublisher(stream)

	p.PublishCartItemAdded("u1", models.LineItem{ProductID: "a", Quantity: 2, ClickID: "click-1"}, 2)

	msg := receive(t, stream.out)
	assert.Equal(t, CartItemAdded, msg.subject)

	var event StorefrontEvent
	require.NoError(t, json.Unmarshal(msg.data, &event))
	assert.Equal(t, "u1", event.Owner)
	assert.Equal(t, CartItemAdded+":u1:click-1", event.ID)
	require.NotNil(t, event.Item)
	assert.Equal(t, "a", event.Item.ProductID)
	assert.Equal(t, 2, event.ItemCount)
}

func TestPublisher_FailureIsSwallowed(t *testing.T) {
	stream := &fakeStream{out: make(chan published, 1), err: errors.New("no responders")}
	p := newTestPublisher(stream)

	assert.NotPanics(t, func() { p.PublishCartCleared("u1") })

	msg := receive(t, stream.out)
	assert.Equal(t, CartCleared, msg.subject)
}
