// Package server ties the graph, router, traffic updater/predictor,
// task queues and worker pools into the line-protocol service: a
// listener spawns one handler per accepted connection, each handler
// enqueues a Task per request line and writes back the response once a
// worker completes it.
//
// The construction/wiring style follows a typical fiber-based service's
// main-wiring shape, generalized from an HTTP server into a raw
// line-protocol one: a listener spawns connections, connections enqueue
// tasks, and worker pools drain them.
package server

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/protocol"
	"github.com/passbi/dynaroute/internal/queue"
	"github.com/passbi/dynaroute/internal/routing"
	"github.com/passbi/dynaroute/internal/telemetry"
	"github.com/passbi/dynaroute/internal/traffic"
	"github.com/passbi/dynaroute/internal/worker"
)

// Config controls worker pool sizing. Zero values fall back to the
// spec's documented defaults (8 routing workers, 2 traffic workers).
type Config struct {
	RoutingWorkers int
	TrafficWorkers int
}

const (
	defaultRoutingWorkers = 8
	defaultTrafficWorkers = 2
)

func (c Config) routingWorkers() int {
	if c.RoutingWorkers > 0 {
		return c.RoutingWorkers
	}
	return defaultRoutingWorkers
}

func (c Config) trafficWorkers() int {
	if c.TrafficWorkers > 0 {
		return c.TrafficWorkers
	}
	return defaultTrafficWorkers
}

// Engine owns the queues, worker pools and algorithm state behind the
// protocol. A Listener passes each request line read from an accepted
// connection to Engine.Submit.
type Engine struct {
	graph     *graph.Graph
	router    *routing.Router
	updater   *traffic.Updater
	predictor *traffic.Predictor
	recorder  telemetry.Recorder
	rateGauge *telemetry.RateGauge

	routeQueue   *queue.Queue
	trafficQueue *queue.Queue
	routePool    *worker.Pool
	trafficPool  *worker.Pool

	totalRoutesServed  atomic.Int64
	totalObservations  atomic.Int64
	routingWorkerCount int
	trafficWorkerCount int
}

// NewEngine wires a ready-to-run Engine around g. If recorder is nil,
// telemetry.NullRecorder is used so the protocol behaves identically
// whether or not an observability backend is configured. rateGauge may
// be nil when Redis is not configured; its methods are nil-safe.
func NewEngine(g *graph.Graph, recorder telemetry.Recorder, rateGauge *telemetry.RateGauge, cfg Config) *Engine {
	if recorder == nil {
		recorder = telemetry.NullRecorder{}
	}

	e := &Engine{
		graph:              g,
		router:             routing.NewRouter(g),
		updater:            traffic.NewUpdater(g),
		predictor:          traffic.NewPredictor(g),
		recorder:           recorder,
		rateGauge:          rateGauge,
		routeQueue:         queue.NewQueue(),
		trafficQueue:       queue.NewQueue(),
		routingWorkerCount: cfg.routingWorkers(),
		trafficWorkerCount: cfg.trafficWorkers(),
	}

	e.routePool = worker.NewPool("routing", e.routeQueue, cfg.routingWorkers(), e.runRoutingTask)
	e.trafficPool = worker.NewPool("traffic", e.trafficQueue, cfg.trafficWorkers(), e.runTrafficTask)
	return e
}

// Stats is a snapshot of Engine's ambient counters, read by the admin
// HTTP surface's /stats endpoint. It never blocks on the coordinator's
// rw-lock: ActiveReaders/ActiveWriters read the lock's own separate
// counters, and everything else is an atomic counter or a queue's own
// length.
type Stats struct {
	RoutingQueueDepth int
	TrafficQueueDepth int
	RoutingWorkers    int
	TrafficWorkers    int
	TotalRoutesServed int64
	TotalObservations int64
	ActiveReaders     int64
	ActiveWriters     int64
}

// Stats snapshots the engine's counters for reporting.
func (e *Engine) Stats() Stats {
	return Stats{
		RoutingQueueDepth: e.routeQueue.Len(),
		TrafficQueueDepth: e.trafficQueue.Len(),
		RoutingWorkers:    e.routingWorkerCount,
		TrafficWorkers:    e.trafficWorkerCount,
		TotalRoutesServed: e.totalRoutesServed.Load(),
		TotalObservations: e.totalObservations.Load(),
		ActiveReaders:     e.graph.Coordinator().ActiveReaders(),
		ActiveWriters:     e.graph.Coordinator().ActiveWriters(),
	}
}

// Run starts both worker pools and blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	errs := make(chan error, 2)
	go func() { errs <- e.routePool.Run(ctx) }()
	go func() { errs <- e.trafficPool.Run(ctx) }()

	<-ctx.Done()
	e.routeQueue.Close()
	e.trafficQueue.Close()
	<-errs
	<-errs
	return nil
}

// Submit parses one request line, enqueues the resulting task on the
// correct queue, and returns the formatted response line once the
// worker completes it (or immediately, for a parse error that never
// reaches a worker).
func (e *Engine) Submit(ctx context.Context, line string) string {
	task, framing, err := protocol.ParseLine(line)
	if err != nil {
		return protocol.FormatError(framing, err)
	}

	switch task.Kind {
	case queue.Route, queue.Predict:
		e.routeQueue.Push(task)
	case queue.Update:
		e.trafficQueue.Push(task)
	default:
		return protocol.FormatError(framing, fmt.Errorf("server: unhandled task kind %v", task.Kind))
	}

	select {
	case <-task.Done():
		if task.Err != nil {
			return protocol.FormatError(framing, task.Err)
		}
		return task.Response
	case <-ctx.Done():
		// Connection is going away; the task still runs to completion
		// in the background since an already-enqueued task is not
		// cancelled, but this handler stops waiting.
		return ""
	}
}

// runRoutingTask executes ROUTE and PREDICT tasks. Prediction rides
// the routing queue rather than a dedicated one, since it is also a
// read-only, shared-lock operation and benefits from the same worker
// pool for uniformity.
func (e *Engine) runRoutingTask(task *queue.Task) (string, error) {
	ctx := context.Background()

	switch task.Kind {
	case queue.Route:
		strategy := routing.GetStrategy(task.Strategy)
		res, err := e.router.FindPath(ctx, task.Start, task.Target, strategy)
		if err != nil {
			return "", err
		}
		e.totalRoutesServed.Add(1)
		e.rateGauge.Incr(ctx, "routing")
		e.recorder.RecordRoute(ctx, telemetry.RouteRequest{
			Start:    task.Start,
			Target:   task.Target,
			Cost:     res.Cost,
			Strategy: strategy.Name(),
			Explored: res.Explored,
		})
		return protocol.FormatRoute(task.Framing, res.Cost, res.NodePath, res.EdgePath), nil

	case queue.Predict:
		value, err := e.predictor.Predict(task.EdgeID)
		if err != nil {
			return "", err
		}
		return protocol.FormatPredict(task.Framing, task.EdgeID, value), nil

	default:
		return "", fmt.Errorf("server: routing pool received unexpected task kind %v", task.Kind)
	}
}

// runTrafficTask executes UPDATE tasks.
func (e *Engine) runTrafficTask(task *queue.Task) (string, error) {
	ctx := context.Background()

	newETA, err := e.updater.Apply(task.EdgeID, task.Speed, task.Pos, task.HasPos)
	if err != nil {
		return "", err
	}

	e.totalObservations.Add(1)
	e.rateGauge.Incr(ctx, "traffic")
	e.recorder.RecordObservation(ctx, telemetry.Observation{
		EdgeID: task.EdgeID,
		Speed:  task.Speed,
		Pos:    task.Pos,
		HasPos: task.HasPos,
		NewETA: newETA,
	})

	return protocol.FormatAck(task.Framing), nil
}
