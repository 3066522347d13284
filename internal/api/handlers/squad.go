package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jstittsworth/fpl-optimizer/internal/optimizer"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/utils"
)

type SquadHandler struct {
	recommender *services.RecommendationService
}

func NewSquadHandler(recommender *services.RecommendationService) *SquadHandler {
	return &SquadHandler{
		recommender: recommender,
	}
}

// SuggestSquad builds a full fifteen-player squad and best lineup for the
// requested constraints
func (h *SquadHandler) SuggestSquad(c *gin.Context) {
	var req services.SuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.recommender.SuggestSquad(c.Request.Context(), req)
	if err != nil {
		h.sendSuggestError(c, err)
		return
	}

	utils.SendSuccess(c, result)
}

// GetSuggestion returns a previously persisted suggestion by id
func (h *SquadHandler) GetSuggestion(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.SendValidationError(c, "Invalid suggestion ID", err.Error())
		return
	}

	suggestion, err := h.recommender.GetSuggestion(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.SendNotFound(c, "Suggestion not found")
			return
		}
		utils.SendInternalError(c, "Failed to load suggestion")
		return
	}

	utils.SendSuccess(c, suggestion)
}

// sendSuggestError translates engine failures into API errors. Pool and
// formation problems are 422s with a machine-readable code; anything else
// is a plain 500.
func (h *SquadHandler) sendSuggestError(c *gin.Context, err error) {
	var insufficient *optimizer.InsufficientCandidatesError
	var degenerate *optimizer.DegenerateSquadError
	var noFormation *optimizer.NoFeasibleFormationError

	switch {
	case errors.Is(err, services.ErrInvalidRequest):
		utils.SendValidationError(c, "Invalid squad parameters", err.Error())
	case errors.Is(err, services.ErrNoPlayerData):
		utils.SendUnprocessable(c, utils.NewAppError(utils.ErrCodeSelection,
			"No player data available", "trigger a data refresh first"))
	case errors.As(err, &insufficient):
		utils.SendUnprocessable(c, utils.NewAppError(utils.ErrCodeSelection,
			"Not enough candidates to fill the squad", insufficient.Error()))
	case errors.As(err, &degenerate):
		utils.SendUnprocessable(c, utils.NewAppError(utils.ErrCodeFormation,
			"Squad cannot form a lineup", degenerate.Error()))
	case errors.As(err, &noFormation):
		utils.SendUnprocessable(c, utils.NewAppError(utils.ErrCodeFormation,
			"No formation fits the squad", noFormation.Error()))
	default:
		utils.SendInternalError(c, "Failed to build squad suggestion")
	}
}
