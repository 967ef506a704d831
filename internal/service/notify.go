package service

import (
	"context"

	"github.com/fsdevblog/groph-pos/internal/domain"
)

type nopNotifier struct{}

func (nopNotifier) Publish(context.Context, domain.OrderCreatedEvent) error {
	return nil
}
