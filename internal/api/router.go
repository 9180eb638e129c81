// Package api exposes the print queue over HTTP.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/orrn/printqueue/internal/api/handlers"
	"github.com/orrn/printqueue/internal/api/middleware"
	"github.com/orrn/printqueue/internal/config"
)

type Dependencies struct {
	Queue    handlers.PrintQueue
	Printers handlers.PrinterDirectory
	// Counters and Metrics are optional.
	Counters handlers.CounterReader
	Metrics  http.Handler
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg config.Config, deps Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(deps.Logger))
	if cfg.Server.RequestLogging {
		r.Use(middleware.RequestLogger(deps.Logger))
	}
	if cfg.Server.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst).Middleware())
	}

	health := handlers.NewHealthHandler(deps.Version)
	printers := handlers.NewPrinterHandler(deps.Printers, deps.Counters)
	jobs := handlers.NewJobHandler(deps.Queue, deps.Printers)

	r.GET("/health", health.Health)

	p := r.Group("/printers")
	{
		p.GET("", printers.ListPrinters)
		p.GET("/detailed", printers.ListPrintersDetailed)
		p.GET("/:name/info", printers.GetPrinterInfo)
		p.GET("/:name/counters", printers.GetCounters)
	}

	pr := r.Group("/print")
	{
		pr.POST("", jobs.SubmitPrintJob)
		pr.POST("/advanced", jobs.SubmitAdvancedPrintJob)
	}

	r.GET("/queue/status", jobs.GetQueueStatus)

	if cfg.Metrics.Enabled && deps.Metrics != nil {
		path := cfg.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(deps.Metrics))
	}

	return r
}
