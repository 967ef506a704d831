package api

import (
	"errors"
	"net/http"

	"github.com/fsdevblog/groph-pos/internal/domain"
	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Reason    string `json:"reason,omitempty"`
	Entity    string `json:"entity,omitempty"`
	ProductID int64  `json:"product_id,omitempty"`
	Requested int64  `json:"requested,omitempty"`
	Available *int64 `json:"available,omitempty"`
}

// respondError переводит ошибку сервисного слоя в http ответ. Неизвестные ошибки уходят в
// middlewares.Errors как приватные и клиенту не раскрываются.
func respondError(c *gin.Context, err error) {
	var (
		validationErr  *domain.ValidationError
		notFoundErr    *domain.NotFoundError
		stockErr       *domain.InsufficientStockError
		conflictErr    *domain.ConflictError
		persistenceErr *domain.PersistenceError
	)

	switch {
	case errors.As(err, &validationErr):
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:  validationErr.Error(),
			Reason: string(validationErr.Reason),
		})
	case errors.As(err, &notFoundErr):
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Error:  notFoundErr.Error(),
			Entity: string(notFoundErr.Entity),
		})
	case errors.As(err, &stockErr):
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		available := stockErr.Available
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error:     "insufficient stock",
			ProductID: stockErr.ProductID,
			Requested: stockErr.Requested,
			Available: &available,
		})
	case errors.As(err, &conflictErr):
		_ = c.Error(err).SetType(gin.ErrorTypePrivate)
		c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
			Error:  conflictErr.Error(),
			Entity: string(conflictErr.Entity),
		})
	case errors.As(err, &persistenceErr):
		_ = c.AbortWithError(http.StatusServiceUnavailable, err).SetType(gin.ErrorTypePrivate)
	default:
		_ = c.AbortWithError(http.StatusInternalServerError, err).SetType(gin.ErrorTypePrivate)
	}
}

// abortMalformed ответ на запрос, который не удалось разобрать.
func abortMalformed(c *gin.Context, detail string) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, ErrorResponse{
		Error:  detail,
		Reason: string(domain.ReasonMalformed),
	})
}
