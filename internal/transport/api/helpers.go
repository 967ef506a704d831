package api

import (
	"strconv"

	"github.com/fsdevblog/groph-pos/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// getUserIDFromContext берет из контекста gin ID текущего пользователя. ID устанавливается в
// middlewares.AuthRequired. В случае, если значения в контексте нет или ошибка утверждения типа -
// вернется 0.
func getUserIDFromContext(c *gin.Context) int64 {
	userIDStr, exist := c.Get(middlewares.CurrentUserIDKey)
	if !exist {
		return 0
	}
	userID, ok := userIDStr.(int64)
	if !ok {
		return 0
	}
	return userID
}

// idParam разбирает uuid из параметра пути :id. При ошибке ответ уже отправлен.
func idParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		abortMalformed(c, "id must be a valid uuid")
		return uuid.Nil, false
	}
	return id, true
}

func parseUintQuery(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		abortMalformed(c, name+" must be a non-negative integer")
		return 0, false
	}
	return uint(v), true
}
