package router

import (
	userapp "github.com/vidora/vidora-backend/internal/application"
	"github.com/vidora/vidora-backend/internal/container"
	pginfra "github.com/vidora/vidora-backend/internal/infrastructure/postgres"
	handlers "github.com/vidora/vidora-backend/internal/interface/http"
	"github.com/vidora/vidora-backend/internal/router/modules"
	"github.com/vidora/vidora-backend/pkg/helpers"
	"github.com/vidora/vidora-backend/pkg/media"
)

// InitModules builds all feature modules from the container singletons and
// registers them with the router registry. Called once during startup.
func InitModules(r *Registry) {
	cfg := container.GetConfig()
	pool := container.GetPGPool()

	users := pginfra.NewUserRepository(pool)
	subs := pginfra.NewSubscriptionRepository(pool)
	audit := pginfra.NewAuditRepository(pool)

	gcs := helpers.NewGCSMedia(container.GetGCS(), cfg.GCSBucket)
	cleanup := media.NewQueuePublisher(container.GetRabbitPub())

	userSvc := userapp.NewService(
		users,
		container.GetJWT(),
		gcs,
		cleanup,
		container.GetRedis(),
		container.GetLogger(),
		container.GetES(),
		cfg.ESChannelsIndex,
	)
	channelSvc := userapp.NewChannelService(
		users,
		subs,
		container.GetRedis(),
		cfg.ChannelCacheTTL,
		container.GetLogger(),
		container.GetES(),
		cfg.ESChannelsIndex,
	)

	userHandler := handlers.NewUserHandler(userSvc, audit, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure)
	channelHandler := handlers.NewChannelHandler(channelSvc, container.GetLogger())

	r.Add(modules.NewUserModule(userHandler, container.GetJWT()))
	r.Add(modules.NewChannelModule(channelHandler, container.GetJWT()))
}
