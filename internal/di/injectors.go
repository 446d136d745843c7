//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"

	"gsd/internal"
	"gsd/internal/controllers"
	"gsd/internal/monitor"
	"gsd/internal/monitor/interfaces"
	"gsd/internal/providers"
	"gsd/internal/services"
	"gsd/internal/structures"
)

func provideLedgerSource(supervisor services.SupervisorInterface) interfaces.LedgerSource {
	return supervisor
}

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewCacheProvider,

		monitor.NewStateStore,
		monitor.NewLedgerStore,
		monitor.NewZstdCompressor,
		monitor.NewArchiver,
		monitor.NewWebsocketSource,
		monitor.NewExporter,
		monitor.NewScheduler,
		services.NewSupervisor,
		provideLedgerSource,
		controllers.NewApiController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}
