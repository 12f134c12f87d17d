// Command dynaroute-server loads a road graph and serves the line
// protocol over TCP, with an optional secondary HTTP surface for health
// and stats: flag/env configuration, ordered startup logging, and
// signal-driven graceful shutdown.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/passbi/dynaroute/internal/adminapi"
	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/loader"
	"github.com/passbi/dynaroute/internal/pgstore"
	"github.com/passbi/dynaroute/internal/server"
	"github.com/passbi/dynaroute/internal/telemetry"
)

func main() {
	nodesPath := flag.String("nodes", "", "path to nodes.csv (mutually exclusive with -postgres)")
	edgesPath := flag.String("edges", "", "path to edges.csv (mutually exclusive with -postgres)")
	usePostgres := flag.Bool("postgres", false, "load the graph from Postgres instead of CSV files")
	tcpAddr := flag.String("addr", getEnv("TCP_ADDR", ":8080"), "address for the line-protocol TCP listener")
	adminAddr := flag.String("admin-addr", fmt.Sprintf(":%s", getEnv("ADMIN_PORT", "9090")), "address for the admin HTTP surface")
	routingWorkers := flag.Int("routing-workers", 0, "routing worker pool size (0 = default)")
	trafficWorkers := flag.Int("traffic-workers", 0, "traffic worker pool size (0 = default)")
	telemetryBackend := flag.String("telemetry", "none", "telemetry backend: none, redis, or postgres")
	flag.Parse()

	if !*usePostgres && (*nodesPath == "" || *edgesPath == "") {
		fmt.Println("Usage: dynaroute-server -nodes=nodes.csv -edges=edges.csv [flags]")
		fmt.Println("   or: dynaroute-server -postgres [flags]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Println("Starting dynaroute server...")

	var pgPool *pgxpool.Pool
	if *usePostgres || *telemetryBackend == "postgres" {
		pool, err := pgstore.Open(ctx, pgstore.LoadConfigFromEnv())
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		defer pool.Close()
		pgPool = pool
		log.Println("Postgres connection established")
	}

	var g *graph.Graph
	var err error
	if *usePostgres {
		g, err = loader.Build(ctx, loader.NewPostgresLoader(pgPool))
	} else {
		g, err = loader.Build(ctx, loader.NewCSVLoader(*nodesPath, *edgesPath))
	}
	if err != nil {
		log.Fatalf("Failed to load graph: %v", err)
	}
	log.Printf("Graph loaded: %d nodes, %d edges", g.NumNodes(), g.NumEdges())

	var redisClient *redis.Client
	var rateGauge *telemetry.RateGauge
	if *telemetryBackend == "redis" {
		redisClient = redis.NewClient(&redis.Options{
			Addr: fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr := redisClient.Ping(pingCtx).Err()
		cancel()
		if pingErr != nil {
			log.Fatalf("Failed to connect to Redis: %v", pingErr)
		}
		defer redisClient.Close()
		rateGauge = telemetry.NewRateGauge(redisClient, time.Second)
		log.Println("Redis connection established")
	}

	var recorder telemetry.Recorder
	switch *telemetryBackend {
	case "redis":
		recorder = telemetry.NewRedisRecorder(redisClient)
	case "postgres":
		recorder = telemetry.NewPostgresRecorder(pgPool)
	case "none":
		recorder = telemetry.NullRecorder{}
	default:
		log.Fatalf("unknown telemetry backend %q", *telemetryBackend)
	}
	defer recorder.Close()

	engine := server.NewEngine(g, recorder, rateGauge, server.Config{
		RoutingWorkers: *routingWorkers,
		TrafficWorkers: *trafficWorkers,
	})
	admin := adminapi.New(g, engine, redisClient, pgPool, rateGauge)

	ln, err := net.Listen("tcp", *tcpAddr)
	if err != nil {
		log.Fatalf("Failed to bind TCP listener on %s: %v", *tcpAddr, err)
	}
	log.Printf("Line protocol listening on %s", *tcpAddr)
	log.Printf("Admin HTTP surface listening on %s", *adminAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := engine.Run(ctx); err != nil {
			log.Printf("engine run: %v", err)
		}
	}()

	go func() {
		if err := server.NewListener(engine).Serve(ctx, ln); err != nil {
			log.Printf("listener: %v", err)
		}
	}()

	go func() {
		if err := admin.Listen(*adminAddr); err != nil {
			log.Printf("admin surface: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down gracefully...")
	admin.Shutdown()
	<-done
	log.Println("Shutdown complete")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
