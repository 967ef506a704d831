package notify

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/sirupsen/logrus"
)

// LogNotifier пишет события в лог. Используется, когда брокер не настроен.
type LogNotifier struct {
	l *logrus.Entry
}

func NewLogNotifier(l *logrus.Logger) *LogNotifier {
	return &LogNotifier{l: l.WithFields(logrus.Fields{"component": "notify", "sink": "log"})}
}

func (n *LogNotifier) Publish(_ context.Context, event domain.OrderCreatedEvent) error {
	n.l.WithFields(logrus.Fields{
		"order":    event.Order.Number,
		"customer": event.Order.CustomerID,
		"total":    event.Order.Total.StringFixed(2), //nolint:mnd
	}).Info("order created")
	return nil
}

func (n *LogNotifier) Close() error {
	return nil
}
