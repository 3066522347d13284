package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/jstittsworth/fpl-optimizer/pkg/utils"
)

type GameweekHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewGameweekHandler(db *database.DB, cache *services.CacheService) *GameweekHandler {
	return &GameweekHandler{
		db:    db,
		cache: cache,
	}
}

// GetGameweeks returns the full season calendar
func (h *GameweekHandler) GetGameweeks(c *gin.Context) {
	ctx := context.Background()
	cacheKey := services.GameweeksCacheKey()

	var gameweeks []models.Gameweek
	if err := h.cache.Get(ctx, cacheKey, &gameweeks); err == nil {
		utils.SendSuccess(c, gameweeks)
		return
	}

	if err := h.db.DB.Order("id ASC").Find(&gameweeks).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch gameweeks")
		return
	}

	h.cache.SetWithRetry(ctx, cacheKey, gameweeks, 10*time.Minute, 3)
	utils.SendSuccess(c, gameweeks)
}

// GetCurrentGameweek returns the active gameweek, or the next one when the
// season is between rounds
func (h *GameweekHandler) GetCurrentGameweek(c *gin.Context) {
	var gameweek models.Gameweek
	err := h.db.DB.Where("is_current = ?", true).First(&gameweek).Error
	if err != nil {
		err = h.db.DB.Where("is_next = ?", true).First(&gameweek).Error
	}
	if err != nil {
		utils.SendNotFound(c, "No current gameweek")
		return
	}

	utils.SendSuccess(c, gin.H{
		"gameweek":         gameweek,
		"deadline_passed":  time.Now().After(gameweek.DeadlineTime),
		"time_to_deadline": time.Until(gameweek.DeadlineTime).Round(time.Minute).String(),
	})
}
