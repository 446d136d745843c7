package internal

import (
	"net/http"

	"gsd/internal/controllers"
	"gsd/internal/providers"
	"gsd/internal/structures"
)

func InitRoutes(apiController *controllers.ApiController, conf *structures.Config) providers.RouterProviderInterface {
	routers := providers.NewRouterProvider()

	routers.Post("/targets", http.HandlerFunc(apiController.AddTarget))
	routers.Delete("/target", http.HandlerFunc(apiController.RemoveTarget))
	routers.Post("/target/start", http.HandlerFunc(apiController.StartTarget))
	routers.Post("/target/stop", http.HandlerFunc(apiController.StopTarget))
	routers.Post("/targets/start", http.HandlerFunc(apiController.StartAll))
	routers.Post("/targets/stop", http.HandlerFunc(apiController.StopAll))
	routers.Get("/status", http.HandlerFunc(apiController.Status))
	routers.Post("/export", http.HandlerFunc(apiController.Export))
	routers.Post("/apikey", http.HandlerFunc(apiController.SetAPIKey))
	return routers
}
