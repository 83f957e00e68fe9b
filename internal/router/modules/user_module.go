package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/vidora/vidora-backend/internal/interface/http"
	"github.com/vidora/vidora-backend/internal/interface/middleware"
	"github.com/vidora/vidora-backend/pkg/helpers"
)

// UserModule wires the session-protocol endpoints.
// Public: register, login, refresh-token.
// Protected: logout, change-password, current-user, update-account, avatar,
// cover-image.
type UserModule struct {
	Handler *handlers.UserHandler
	JWT     *helpers.JWTManager
}

func NewUserModule(h *handlers.UserHandler, jwt *helpers.JWTManager) *UserModule {
	return &UserModule{Handler: h, JWT: jwt}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	rg.POST("/users/register", m.Handler.Register)
	rg.POST("/users/login", m.Handler.Login)
	rg.POST("/users/refresh-token", m.Handler.Refresh)

	auth := rg.Group("/users")
	auth.Use(middleware.Auth(m.JWT))
	{
		auth.POST("/logout", m.Handler.Logout)
		auth.POST("/change-password", m.Handler.ChangePassword)
		auth.GET("/current-user", m.Handler.CurrentUser)
		auth.PATCH("/update-account", m.Handler.UpdateAccount)
		auth.PATCH("/avatar", m.Handler.UpdateAvatar)
		auth.PATCH("/cover-image", m.Handler.UpdateCoverImage)
	}
}
