package api

import (
	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-elhub-stats/docs" // swagger docs
	"go-elhub-stats/internal/api/handler"
	"go-elhub-stats/pkg/router"
)

func RegisterRoutes(r *router.Router, h *handler.Handler) {
	r.GET("/api/v1/market-processes", h.GetMarketProcesses)
	r.GET("/api/v1/market-processes/catalog", h.GetMarketProcessCatalog)
	r.GET("/api/v1/market-processes/export", h.ExportMarketProcesses)

	r.POST("/api/v1/sessions", h.CreateSession)
	// More specific routes first
	r.PUT("/api/v1/sessions/*/groups", h.UpdateSessionGroups)
	r.PUT("/api/v1/sessions/*/options", h.UpdateSessionOptions)
	r.GET("/api/v1/sessions/*/chart", h.GetSessionChart)
	r.GET("/api/v1/sessions/*/export", h.ExportSessionChart)
	// Generic session routes last
	r.GET("/api/v1/sessions/*", h.GetSession)
	r.DELETE("/api/v1/sessions/*", h.DeleteSession)

	r.GET("/api/v1/installations/monthly", h.GetInstallationsMonthly)
	r.GET("/api/v1/installations/by-month", h.GetInstallationsByMonth)
	r.GET("/api/v1/installations/map", h.GetInstallationsMap)

	r.GET("/api/v1/runs", h.ListRuns)
	r.GET("/api/v1/runs/*", h.GetRun)
	r.GET("/api/v1/files/*", h.GetRunFiles)
	r.GET("/api/v1/download/*/*", h.DownloadFile)

	r.Mount("/swagger/", httpSwagger.WrapHandler)
}
