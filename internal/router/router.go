package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/openhouse/marketing-stats/api/handler"
)

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

type Handlers struct {
	Event   *apiHandler.EventHandler
	Stats   *apiHandler.StatsHandler
	Health  *apiHandler.HealthHandler
	Metrics fasthttp.RequestHandler
}

type Middlewares struct {
	ServiceAuth Middleware
	RateLimit   Middleware
}

func New(handlers Handlers, mw Middlewares) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)
	if handlers.Metrics != nil {
		r.GET("/metrics", handlers.Metrics)
	}

	// Public analytics routes
	r.POST("/api/analytics/track", chain(handlers.Event.Track, mw.RateLimit))
	r.GET("/api/analytics/track", handlers.Event.Probe)
	r.GET("/api/analytics", handlers.Stats.Live)
	r.GET("/api/marketing-stats", handlers.Stats.Snapshot)

	// Scheduler-only routes
	r.POST("/api/internal/stats/aggregate", chain(handlers.Stats.Aggregate, mw.ServiceAuth))

	return r
}

func chain(h fasthttp.RequestHandler, mw Middleware) fasthttp.RequestHandler {
	if mw == nil {
		return h
	}
	return mw(h)
}
