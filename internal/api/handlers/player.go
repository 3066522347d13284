package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
	"github.com/jstittsworth/fpl-optimizer/pkg/utils"
)

const recentHistoryWindow = 5

var positionElementTypes = map[string]int{
	"GKP": models.ElementTypeGoalkeeper,
	"GK":  models.ElementTypeGoalkeeper,
	"DEF": models.ElementTypeDefender,
	"MID": models.ElementTypeMidfielder,
	"FWD": models.ElementTypeForward,
}

var playerSortColumns = map[string]bool{
	"predicted_points":    true,
	"total_points":        true,
	"now_cost":            true,
	"form":                true,
	"selected_by_percent": true,
	"ict_index":           true,
	"web_name":            true,
	"id":                  true,
}

type PlayerHandler struct {
	db    *database.DB
	cache *services.CacheService
}

func NewPlayerHandler(db *database.DB, cache *services.CacheService) *PlayerHandler {
	return &PlayerHandler{
		db:    db,
		cache: cache,
	}
}

// GetPlayers returns the player pool with optional filters and paging
func (h *PlayerHandler) GetPlayers(c *gin.Context) {
	position := strings.ToUpper(c.Query("position"))
	teamStr := c.Query("team")
	maxCostStr := c.Query("max_cost")
	minOwnershipStr := c.Query("min_ownership")
	search := c.Query("search")
	sortBy := c.DefaultQuery("sort_by", "predicted_points")
	order := c.DefaultQuery("order", "desc")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	if !playerSortColumns[sortBy] {
		utils.SendValidationError(c, "Invalid sort column", sortBy)
		return
	}
	if order != "asc" && order != "desc" {
		order = "desc"
	}

	// Unfiltered first pages are the hot path, so serve those from cache.
	ctx := context.Background()
	cacheable := teamStr == "" && maxCostStr == "" && minOwnershipStr == "" &&
		search == "" && sortBy == "predicted_points" && order == "desc" && page == 1
	cacheKey := services.PlayersCacheKey(position)
	if cacheable {
		var cached []models.Player
		if err := h.cache.Get(ctx, cacheKey, &cached); err == nil {
			utils.SendSuccess(c, cached)
			return
		}
	}

	query := h.db.DB.Model(&models.Player{})

	if position != "" {
		elementType, ok := positionElementTypes[position]
		if !ok {
			utils.SendValidationError(c, "Invalid position", "expected one of GKP, DEF, MID, FWD")
			return
		}
		query = query.Where("element_type = ?", elementType)
	}
	if teamStr != "" {
		teamID, err := strconv.ParseUint(teamStr, 10, 32)
		if err != nil {
			utils.SendValidationError(c, "Invalid team ID", err.Error())
			return
		}
		query = query.Where("team_id = ?", uint(teamID))
	}
	if maxCostStr != "" {
		maxCost, err := strconv.Atoi(maxCostStr)
		if err != nil {
			utils.SendValidationError(c, "Invalid max_cost", err.Error())
			return
		}
		query = query.Where("now_cost <= ?", maxCost)
	}
	if minOwnershipStr != "" {
		minOwnership, err := strconv.ParseFloat(minOwnershipStr, 64)
		if err != nil {
			utils.SendValidationError(c, "Invalid min_ownership", err.Error())
			return
		}
		query = query.Where("selected_by_percent >= ?", minOwnership)
	}
	if search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(web_name) LIKE ? OR LOWER(second_name) LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.SendInternalError(c, "Failed to count players")
		return
	}

	var players []models.Player
	err := query.Order(sortBy + " " + order).Order("id ASC").
		Limit(perPage).Offset((page - 1) * perPage).
		Find(&players).Error
	if err != nil {
		utils.SendInternalError(c, "Failed to fetch players")
		return
	}

	if cacheable {
		h.cache.SetWithRetry(ctx, cacheKey, players, 5*time.Minute, 3)
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	utils.SendSuccessWithMeta(c, players, &utils.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}

// GetPlayer returns a single player with their recent gameweek history
func (h *PlayerHandler) GetPlayer(c *gin.Context) {
	playerID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		utils.SendValidationError(c, "Invalid player ID", err.Error())
		return
	}

	var player models.Player
	if err := h.db.DB.Preload("Team").First(&player, uint(playerID)).Error; err != nil {
		utils.SendNotFound(c, "Player not found")
		return
	}

	var history []models.PlayerGameweekStat
	if err := h.db.DB.Where("player_id = ?", player.ID).
		Order("gameweek_id DESC").Limit(recentHistoryWindow).
		Find(&history).Error; err != nil {
		utils.SendInternalError(c, "Failed to fetch player history")
		return
	}

	utils.SendSuccess(c, gin.H{
		"player":         player,
		"recent_history": history,
	})
}
