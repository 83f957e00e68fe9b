package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	userapp "github.com/vidora/vidora-backend/internal/application"
	"github.com/vidora/vidora-backend/internal/interface/middleware"
	"github.com/vidora/vidora-backend/pkg/response"
)

// ChannelHandler exposes the read models: channel profile, watch history,
// and channel search.
type ChannelHandler struct {
	Svc    *userapp.ChannelService
	Logger *logrus.Logger
}

func NewChannelHandler(svc *userapp.ChannelService, logger *logrus.Logger) *ChannelHandler {
	return &ChannelHandler{Svc: svc, Logger: logger}
}

// Profile GET /api/channels/:username
// Auth is optional; with a valid access token the response carries the
// viewer-specific isSubscribed flag.
func (h *ChannelHandler) Profile(c *gin.Context) {
	viewerID := c.GetString(middleware.CtxUserIDKey)
	profile, err := h.Svc.GetChannelProfile(c.Request.Context(), c.Param("username"), viewerID)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, profile, "channel profile", nil)
}

// WatchHistory GET /api/users/history (auth required)
func (h *ChannelHandler) WatchHistory(c *gin.Context) {
	uid := c.GetString(middleware.CtxUserIDKey)
	history, err := h.Svc.GetWatchHistory(c.Request.Context(), uid)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, history, "watch history", nil)
}

// Search GET /api/channels/search?q=...&size=... (auth required)
func (h *ChannelHandler) Search(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		response.Error[any](c, http.StatusBadRequest, "query is required", nil)
		return
	}
	size, _ := strconv.Atoi(c.DefaultQuery("size", "10"))
	hits, err := h.Svc.SearchChannels(c.Request.Context(), q, size)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, hits, "search results", nil)
}
