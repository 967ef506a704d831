// Package notify доставка событий о новых заказах в дашборды.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

const DefaultOrdersTopic = "pos.orders.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// orderCreatedMessage формат сообщения в топике.
type orderCreatedMessage struct {
	OrderID    string             `json:"order_id"`
	Number     string             `json:"number"`
	CustomerID int64              `json:"customer_id"`
	Items      []domain.OrderItem `json:"items"`
	Total      string             `json:"total"`
	Status     string             `json:"status"`
	OccurredAt time.Time          `json:"occurred_at"`
}

type KafkaNotifier struct {
	writer messageWriter
	l      *logrus.Entry
}

// NewKafkaWriter writer для топика заказов. Партиция выбирается по номеру заказа.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	if topic == "" {
		topic = DefaultOrdersTopic
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func NewKafkaNotifier(writer messageWriter, l *logrus.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: writer,
		l:      l.WithFields(logrus.Fields{"component": "notify", "sink": "kafka"}),
	}
}

func (k *KafkaNotifier) Publish(ctx context.Context, event domain.OrderCreatedEvent) error {
	payload, err := json.Marshal(orderCreatedMessage{
		OrderID:    event.Order.ID.String(),
		Number:     event.Order.Number,
		CustomerID: event.Order.CustomerID,
		Items:      event.Order.Items,
		Total:      event.Order.Total.StringFixed(2), //nolint:mnd
		Status:     string(event.Order.Status),
		OccurredAt: event.OccurredAt,
	})
	if err != nil {
		return fmt.Errorf("encode order created event: %w", err)
	}

	if err = k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Order.Number),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("publish order `%s`: %w", event.Order.Number, err)
	}
	k.l.WithField("order", event.Order.Number).Debug("order created event published")
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close() //nolint:wrapcheck
}
