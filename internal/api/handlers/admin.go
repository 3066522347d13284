package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jstittsworth/fpl-optimizer/internal/models"
	"github.com/jstittsworth/fpl-optimizer/internal/providers"
	"github.com/jstittsworth/fpl-optimizer/internal/services"
	"github.com/jstittsworth/fpl-optimizer/pkg/utils"
)

type AdminHandler struct {
	refresher *services.RefresherService
}

func NewAdminHandler(refresher *services.RefresherService) *AdminHandler {
	return &AdminHandler{
		refresher: refresher,
	}
}

// TriggerRefresh runs the sync pipeline immediately. Pass ?histories=true
// to include the per-player gameweek history sync.
func (h *AdminHandler) TriggerRefresh(c *gin.Context) {
	includeHistories := c.DefaultQuery("histories", "false") == "true"

	run, err := h.refresher.RefreshNow(c.Request.Context(), models.RefreshTriggerManual, includeHistories)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRefreshInProgress):
			utils.SendError(c, http.StatusConflict,
				utils.NewAppError(utils.ErrCodeRefreshBusy, "A refresh is already running"))
		case providers.IsBreakerOpen(err):
			utils.SendUnavailable(c, "Upstream provider is unavailable, try again later")
		default:
			utils.SendError(c, http.StatusBadGateway,
				utils.NewAppError(utils.ErrCodeUpstream, "Refresh failed", err.Error()))
		}
		return
	}

	utils.SendSuccess(c, run)
}

// GetRefreshStatus reports scheduler state and recent runs
func (h *AdminHandler) GetRefreshStatus(c *gin.Context) {
	status, err := h.refresher.Status()
	if err != nil {
		utils.SendInternalError(c, "Failed to load refresh status")
		return
	}

	utils.SendSuccess(c, status)
}
