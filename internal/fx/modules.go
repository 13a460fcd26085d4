package fx

import (
	"faceit-relay/internal/api"
	"faceit-relay/internal/cache"
	"faceit-relay/internal/config"
	"faceit-relay/internal/constants"
	"faceit-relay/internal/logger"
	"faceit-relay/internal/server"
	"faceit-relay/internal/service"

	"go.uber.org/fx"
)

func ProvideStatsAPI(client *api.FaceitClient) service.StatsAPI {
	return client
}

func ProvideResponseCache(cfg *config.Config) *cache.TTLCache[string] {
	return cache.NewTTLCache[string](cfg.CacheTTL, constants.CacheMaxEntries)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	// api client
	fx.Provide(api.NewFaceitClient),
	fx.Provide(ProvideStatsAPI),
	// cache
	fx.Provide(ProvideResponseCache),
	// svc
	fx.Provide(service.NewResolver),
	fx.Provide(service.NewStatsService),
	// server
	fx.Provide(server.NewRelayServer),
)
