package fx

import (
	"pappaliiga-stats/internal/api"
	"pappaliiga-stats/internal/config"
	"pappaliiga-stats/internal/database"
	"pappaliiga-stats/internal/logger"
	"pappaliiga-stats/internal/repository"
	"pappaliiga-stats/internal/service"

	"go.uber.org/fx"
)

func ProvideMatchSource(c *api.FaceitClient) service.MatchSource {
	return c
}

func ProvideChampionshipSource(c *api.FaceitClient) service.ChampionshipSource {
	return c
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	fx.Provide(database.NewCapabilities),
	// repos
	fx.Provide(repository.NewRepositories),
	// api client
	fx.Provide(api.NewAdaptiveLimiterFromConfig),
	fx.Provide(api.NewRateLimitedClient),
	fx.Provide(api.NewFaceitClient),
	fx.Provide(ProvideMatchSource),
	fx.Provide(ProvideChampionshipSource),
	// svc
	fx.Provide(service.NewSkipDecider),
	fx.Provide(service.NewSyncer),
	fx.Provide(service.NewDivisionDiscovery),
)
