package api

import (
	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/fpl-optimizer/internal/api/handlers"
	"github.com/jstittsworth/fpl-optimizer/internal/api/middleware"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/config"
	"github.com/jstittsworth/fpl-optimizer/pkg/database"
)

// SetupRoutes mounts every versioned API route on the group.
func SetupRoutes(
	group *gin.RouterGroup,
	db *database.DB,
	cache *services.CacheService,
	cfg *config.Config,
	refresher *services.RefresherService,
	recommender *services.RecommendationService,
) {
	playerHandler := handlers.NewPlayerHandler(db, cache)
	gameweekHandler := handlers.NewGameweekHandler(db, cache)
	squadHandler := handlers.NewSquadHandler(recommender)
	transferHandler := handlers.NewTransferHandler(recommender)
	authHandler := handlers.NewAuthHandler(cfg)
	adminHandler := handlers.NewAdminHandler(refresher)

	// Public read endpoints
	group.GET("/players", playerHandler.GetPlayers)
	group.GET("/players/:id", playerHandler.GetPlayer)
	group.GET("/gameweeks", gameweekHandler.GetGameweeks)
	group.GET("/gameweeks/current", gameweekHandler.GetCurrentGameweek)

	// Squad construction
	group.POST("/squad/suggest", squadHandler.SuggestSquad)
	group.GET("/squad/suggestions/:id", squadHandler.GetSuggestion)

	// Transfer planning
	group.GET("/transfers/targets", transferHandler.GetTargets)

	// Token exchange for admin access
	group.POST("/auth/token", authHandler.IssueToken)

	// Admin routes
	admin := group.Group("/admin")
	admin.Use(middleware.AuthRequired(cfg.JWTSecret), middleware.RequireRole("admin"))
	{
		admin.POST("/refresh", adminHandler.TriggerRefresh)
		admin.GET("/refresh/status", adminHandler.GetRefreshStatus)
	}

	// Health and the websocket endpoint live at the server root, wired in
	// main.go.
}
