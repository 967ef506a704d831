package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newEvent() domain.OrderCreatedEvent {
	return domain.OrderCreatedEvent{
		Order: domain.Order{
			ID:         uuid.New(),
			Number:     "ORD-1700000000000-0001",
			CustomerID: 4,
			Items:      []domain.OrderItem{{ProductID: 1, Quantity: 2}},
			Total:      decimal.RequireFromString("21"),
			Status:     domain.OrderStatusPending,
		},
		OccurredAt: time.Now().UTC(),
	}
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestKafkaNotifierPublish(t *testing.T) {
	writer := &recordingWriter{}
	notifier := NewKafkaNotifier(writer, discardLogger())
	event := newEvent()

	require.NoError(t, notifier.Publish(context.Background(), event))
	require.Len(t, writer.messages, 1)
	assert.Equal(t, event.Order.Number, string(writer.messages[0].Key))

	var msg orderCreatedMessage
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &msg))
	assert.Equal(t, "21.00", msg.Total)
	assert.Equal(t, "PENDING", msg.Status)
	assert.Equal(t, event.Order.ID.String(), msg.OrderID)
}

func TestKafkaNotifierPublishError(t *testing.T) {
	errBroker := errors.New("broker unavailable")
	notifier := NewKafkaNotifier(&recordingWriter{err: errBroker}, discardLogger())

	err := notifier.Publish(context.Background(), newEvent())
	assert.ErrorIs(t, err, errBroker)
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(new(logrus.JSONFormatter))

	require.NoError(t, NewLogNotifier(l).Publish(context.Background(), newEvent()))
	assert.Contains(t, buf.String(), "ORD-1700000000000-0001")
}
