package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/jstittsworth/fpl-optimizer/pkg/database"
)

type HealthHandler struct {
	db    *database.DB
	redis *redis.Client
}

func NewHealthHandler(db *database.DB, redisClient *redis.Client) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisClient,
	}
}

// GetHealth pings the database and cache. The database is required; a
// missing cache only degrades the status.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx := c.Request.Context()
	checks := gin.H{}
	status := "ok"
	httpStatus := http.StatusOK

	if err := h.db.Healthy(ctx); err != nil {
		checks["database"] = err.Error()
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.redis == nil {
		checks["redis"] = "disabled"
	} else if err := h.redis.Ping(ctx).Err(); err != nil {
		checks["redis"] = err.Error()
		if status == "ok" {
			status = "degraded"
		}
	} else {
		checks["redis"] = "ok"
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"service":   "fpl-optimizer",
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}
