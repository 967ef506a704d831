package domain

import "time"

// OrderCreatedEvent уходит в канал уведомлений после сохранения заказа.
type OrderCreatedEvent struct {
	Order      Order
	OccurredAt time.Time
}
