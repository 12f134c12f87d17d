// Package adminapi exposes a secondary HTTP surface: a health check
// and a read-only stats endpoint, bound to their own port so they
// never compete with the line protocol listener for its socket.
// Neither handler ever takes the coordinator's rw-lock; they only read
// atomically-maintained counters and queue lengths, so they cannot
// contend with routing or traffic workers.
//
// Built the same way a typical fiber.New/middleware chain and health
// handler are wired, trimmed down to the two routes this service
// needs.
package adminapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/server"
	"github.com/passbi/dynaroute/internal/telemetry"
)

// App wraps the admin fiber.App and everything its handlers read from.
type App struct {
	fiber *fiber.App

	graph     *graph.Graph
	engine    *server.Engine
	redis     *redis.Client
	postgres  *pgxpool.Pool
	rateGauge *telemetry.RateGauge
}

// New builds the admin HTTP surface. redisClient, postgresPool and
// rateGauge may all be nil when those backends are not configured;
// /health reports them as "disabled" rather than attempting to reach
// them, and /stats omits its request-rate fields.
func New(g *graph.Graph, engine *server.Engine, redisClient *redis.Client, postgresPool *pgxpool.Pool, rateGauge *telemetry.RateGauge) *App {
	a := &App{
		graph:     g,
		engine:    engine,
		redis:     redisClient,
		postgres:  postgresPool,
		rateGauge: rateGauge,
	}

	app := fiber.New(fiber.Config{
		AppName:      "dynaroute admin",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET",
	}))

	app.Get("/health", a.health)
	app.Get("/stats", a.stats)

	a.fiber = app
	return a
}

// Listen blocks serving the admin surface on addr.
func (a *App) Listen(addr string) error {
	return a.fiber.Listen(addr)
}

// Shutdown gracefully stops the admin surface.
func (a *App) Shutdown() error {
	return a.fiber.Shutdown()
}

func (a *App) health(c *fiber.Ctx) error {
	ctx := c.Context()

	graphLoaded := a.graph.IsLoaded()

	redisStatus := "disabled"
	if a.redis != nil {
		redisStatus = "ok"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			redisStatus = err.Error()
		}
	}

	postgresStatus := "disabled"
	if a.postgres != nil {
		postgresStatus = "ok"
		if err := a.postgres.Ping(ctx); err != nil {
			postgresStatus = err.Error()
		}
	}

	status := "healthy"
	httpStatus := fiber.StatusOK
	if !graphLoaded || redisStatus != "ok" && redisStatus != "disabled" || postgresStatus != "ok" && postgresStatus != "disabled" {
		status = "degraded"
		httpStatus = fiber.StatusServiceUnavailable
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":       status,
		"graph_loaded": graphLoaded,
		"redis":        redisStatus,
		"postgres":     postgresStatus,
	})
}

func (a *App) stats(c *fiber.Ctx) error {
	ctx := context.Background()
	s := a.engine.Stats()

	resp := fiber.Map{
		"routing_queue_depth": s.RoutingQueueDepth,
		"traffic_queue_depth": s.TrafficQueueDepth,
		"routing_workers":     s.RoutingWorkers,
		"traffic_workers":     s.TrafficWorkers,
		"total_routes_served": s.TotalRoutesServed,
		"total_observations":  s.TotalObservations,
		"active_readers":      s.ActiveReaders,
		"active_writers":      s.ActiveWriters,
	}

	if a.rateGauge != nil {
		resp["routing_requests_current_window"] = a.rateGauge.Current(ctx, "routing")
		resp["traffic_requests_current_window"] = a.rateGauge.Current(ctx, "traffic")
	}

	return c.JSON(resp)
}
