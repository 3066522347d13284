package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/utils"
)

type TransferHandler struct {
	recommender *services.RecommendationService
}

func NewTransferHandler(recommender *services.RecommendationService) *TransferHandler {
	return &TransferHandler{
		recommender: recommender,
	}
}

// GetTargets returns the transfer shortlists: best value, highest
// predicted, and low-ownership differentials
func (h *TransferHandler) GetTargets(c *gin.Context) {
	budget := 0
	if budgetStr := c.Query("budget"); budgetStr != "" {
		parsed, err := strconv.Atoi(budgetStr)
		if err != nil || parsed < 0 {
			utils.SendValidationError(c, "Invalid budget", "budget must be a non-negative integer in tenths of £1m")
			return
		}
		budget = parsed
	}

	topN := 0
	if topStr := c.Query("top"); topStr != "" {
		parsed, err := strconv.Atoi(topStr)
		if err != nil || parsed < 0 {
			utils.SendValidationError(c, "Invalid top", "top must be a non-negative integer")
			return
		}
		topN = parsed
	}

	targets, err := h.recommender.TransferTargets(c.Request.Context(), budget, topN)
	if err != nil {
		utils.SendInternalError(c, "Failed to build transfer targets")
		return
	}

	utils.SendSuccess(c, targets)
}
