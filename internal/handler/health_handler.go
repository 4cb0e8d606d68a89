package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Pinger проверяет доступность базы. Реализуется *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler отдает состояние зависимостей
type HealthHandler struct {
	db    Pinger
	redis redis.UniversalClient
	log   *zap.Logger
}

// NewHealthHandler создает обработчик. redisClient может быть nil.
func NewHealthHandler(db Pinger, redisClient redis.UniversalClient, log *zap.Logger) *HealthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &HealthHandler{db: db, redis: redisClient, log: log}
}

// Health GET /api/health. Без базы 503, без Redis только degraded.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}

	if err := h.db.PingContext(ctx); err != nil {
		h.log.Error("health: database ping failed", zap.Error(err))
		status = http.StatusServiceUnavailable
		body["status"] = "error"
		body["database"] = "unavailable"
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			h.log.Warn("health: redis ping failed", zap.Error(err))
			body["redis"] = "degraded"
		} else {
			body["redis"] = "ok"
		}
	}

	c.JSON(status, body)
}
