package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/vidora/vidora-backend/internal/interface/http"
	"github.com/vidora/vidora-backend/internal/interface/middleware"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// ChannelModule wires the read-model endpoints. The profile route takes
// optional auth so isSubscribed reflects the viewer when one is present.
type ChannelModule struct {
	Handler *handlers.ChannelHandler
	JWT     *helpers.JWTManager
}

func NewChannelModule(h *handlers.ChannelHandler, jwt *helpers.JWTManager) *ChannelModule {
	return &ChannelModule{Handler: h, JWT: jwt}
}

func (m *ChannelModule) Register(rg *gin.RouterGroup) {
	rg.GET("/channels/search", middleware.Auth(m.JWT), m.Handler.Search)
	rg.GET("/channels/:username", middleware.OptionalAuth(m.JWT), m.Handler.Profile)
	rg.GET("/users/history", middleware.Auth(m.JWT), m.Handler.WatchHistory)
}
