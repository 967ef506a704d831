package service

import (
	"errors"

	"github.com/fsdevblog/groph-pos/internal/domain"
)

// storageErr приводит ошибку хранилища к таксономии ядра. Уже типизированные ошибки возвращаются как есть,
// все остальное (таймауты, обрыв соединения, неизвестные ошибки драйвера) становится PersistenceError.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isTyped(err) {
		return err
	}
	return domain.NewPersistenceError(op, err)
}

// lookupErr как storageErr, но отсутствие записи превращает в NotFoundError.
func lookupErr(op string, err error, entity domain.EntityType, ref any) error {
	if errors.Is(err, domain.ErrRecordNotFound) {
		return domain.NewNotFoundError(entity, ref)
	}
	return storageErr(op, err)
}

func isTyped(err error) bool {
	var (
		validationErr *domain.ValidationError
		notFoundErr   *domain.NotFoundError
		stockErr      *domain.InsufficientStockError
		conflictErr   *domain.ConflictError
		persistErr    *domain.PersistenceError
	)
	return errors.As(err, &validationErr) ||
		errors.As(err, &notFoundErr) ||
		errors.As(err, &stockErr) ||
		errors.As(err, &conflictErr) ||
		errors.As(err, &persistErr)
}
