package messaging_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/serroba/linkcut/internal/analytics"
	"github.com/serroba/linkcut/internal/messaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSubscriber struct {
	msgChan      chan *message.Message
	subscribeErr error
	mu           sync.Mutex
	closed       bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		msgChan: make(chan *message.Message, 10),
	}
}

func (m *mockSubscriber) Subscribe(_ context.Context, _ string) (<-chan *message.Message, error) {
	if m.subscribeErr != nil {
		return nil, m.subscribeErr
	}

	return m.msgChan, nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		m.closed = true
		close(m.msgChan)
	}

	return nil
}

func eventMessage(t *testing.T, event any) *message.Message {
	t.Helper()

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	return message.NewMessage(watermill.NewUUID(), payload)
}

func waitAcked(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Acked():
	case <-msg.Nacked():
		t.Fatal("message was nacked")
	case <-time.After(time.Second):
		t.Fatal("message was never acked")
	}
}

func waitNacked(t *testing.T, msg *message.Message) {
	t.Helper()

	select {
	case <-msg.Nacked():
	case <-msg.Acked():
		t.Fatal("message was acked")
	case <-time.After(time.Second):
		t.Fatal("message was never nacked")
	}
}

func TestConsumerStart(t *testing.T) {
	t.Run("subscribes to its topic", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLCreated,
			func(_ context.Context, _ *analytics.URLCreatedEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		assert.Equal(t, analytics.TopicURLCreated, consumer.Topic())

		_ = consumer.Shutdown()
	})

	t.Run("surfaces subscribe failures", func(t *testing.T) {
		sub := &mockSubscriber{subscribeErr: errors.New("subscribe error")}
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLCreated,
			func(_ context.Context, _ *analytics.URLCreatedEvent) error { return nil },
			zap.NewNop(),
		)

		assert.Error(t, consumer.Start(context.Background()))
	})
}

func TestConsumerHandleMessage(t *testing.T) {
	t.Run("acks after handling a decoded event", func(t *testing.T) {
		sub := newMockSubscriber()

		received := make(chan *analytics.URLAccessedEvent, 1)
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLAccessed,
			func(_ context.Context, event *analytics.URLAccessedEvent) error {
				received <- event

				return nil
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := eventMessage(t, &analytics.URLAccessedEvent{EventID: "evt-1", Code: "abc234"})
		sub.msgChan <- msg

		waitAcked(t, msg)

		event := <-received
		assert.Equal(t, "abc234", event.Code)
	})

	t.Run("nacks when the handler fails", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLAccessed,
			func(_ context.Context, _ *analytics.URLAccessedEvent) error {
				return errors.New("handler error")
			},
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := eventMessage(t, &analytics.URLAccessedEvent{EventID: "evt-2"})
		sub.msgChan <- msg

		waitNacked(t, msg)
	})

	t.Run("nacks undecodable payloads", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLAccessed,
			func(_ context.Context, _ *analytics.URLAccessedEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))

		defer func() { _ = consumer.Shutdown() }()

		msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
		sub.msgChan <- msg

		waitNacked(t, msg)
	})
}

func TestConsumerShutdown(t *testing.T) {
	t.Run("waits for the consume loop to stop", func(t *testing.T) {
		sub := newMockSubscriber()
		consumer := messaging.NewConsumer(
			sub,
			analytics.TopicURLCreated,
			func(_ context.Context, _ *analytics.URLCreatedEvent) error { return nil },
			zap.NewNop(),
		)

		require.NoError(t, consumer.Start(context.Background()))
		require.NoError(t, consumer.Shutdown())
	})
}
