package outbox_test

import (
	"context"
	"testing"
	"time"

	domorder "github.com/commercelab/orderflow/internal/domain/order"
	domoutbox "github.com/commercelab/orderflow/internal/domain/outbox"
	"github.com/commercelab/orderflow/internal/infrastructure/outbox"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusDeliversToSubscribers(t *testing.T) {
	bus := outbox.NewBus(nil)
	received := make(chan domoutbox.Event, 1)

	bus.Subscribe("order.created", func(_ context.Context, e domoutbox.Event) error {
		received <- e
		return nil
	})

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	evt := domorder.OrderCreatedEvent{OrderID: "o1", CustomerID: "c1"}
	require.NoError(t, bus.Publish(context.Background(), evt))

	select {
	case got := <-received:
		created, ok := got.(domorder.OrderCreatedEvent)
		require.True(t, ok)
		assert.Equal(t, "o1", created.OrderID)
	case <-time.After(2 * time.Second):
		t.Fatal("event was not delivered")
	}
}

func TestBusIgnoresUnsubscribedEvents(t *testing.T) {
	bus := outbox.NewBus(nil)
	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	// No subscriber registered; publish must still succeed.
	require.NoError(t, bus.Publish(context.Background(), domorder.OrderCreatedEvent{OrderID: "o1"}))
}

func TestBusSurvivesPanickingHandler(t *testing.T) {
	bus := outbox.NewBus(nil)
	received := make(chan struct{}, 1)

	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		panic("handler blew up")
	})
	bus.Subscribe("order.created", func(context.Context, domoutbox.Event) error {
		received <- struct{}{}
		return nil
	})

	bus.Start(context.Background())
	defer bus.Stop(context.Background())

	require.NoError(t, bus.Publish(context.Background(), domorder.OrderCreatedEvent{OrderID: "o1"}))

	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("second handler did not run after panic in first")
	}
}

func TestBusPublishNilEvent(t *testing.T) {
	bus := outbox.NewBus(nil)
	assert.NoError(t, bus.Publish(context.Background(), nil))
}
