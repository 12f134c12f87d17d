package telemetry

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultFlushSize     = 100
	defaultFlushInterval = 5 * time.Second
)

// PostgresRecorder batches observations into a traffic_observation table,
// flushing whenever the buffer reaches flushSize or flushInterval
// elapses, whichever comes first. Route requests are recorded the same
// way into a route_request table. RecordObservation and RecordRoute
// append to an in-memory buffer under a mutex; a background goroutine
// flushes on every interval, and the recording call that fills a buffer
// to flushSize runs that flush itself, synchronously, before returning.
//
// Uses the same pgx.Batch/SendBatch loop as a typical bulk-load path,
// adapted from a one-shot bulk load into a steady-state background
// flusher.
type PostgresRecorder struct {
	pool          *pgxpool.Pool
	flushSize     int
	flushInterval time.Duration

	mu          sync.Mutex
	observation []Observation
	route       []RouteRequest

	done chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewPostgresRecorder starts a PostgresRecorder's background flush loop
// bound to pool. Close must be called to flush any buffered events and
// stop the loop.
func NewPostgresRecorder(pool *pgxpool.Pool) *PostgresRecorder {
	r := &PostgresRecorder{
		pool:          pool,
		flushSize:     defaultFlushSize,
		flushInterval: defaultFlushInterval,
		done:          make(chan struct{}),
		now:           time.Now,
	}
	r.wg.Add(1)
	go r.flushLoop()
	return r
}

func (r *PostgresRecorder) RecordObservation(_ context.Context, obs Observation) {
	r.mu.Lock()
	r.observation = append(r.observation, obs)
	full := len(r.observation) >= r.flushSize
	r.mu.Unlock()

	if full {
		r.flush()
	}
}

func (r *PostgresRecorder) RecordRoute(_ context.Context, req RouteRequest) {
	r.mu.Lock()
	r.route = append(r.route, req)
	full := len(r.route) >= r.flushSize
	r.mu.Unlock()

	if full {
		r.flush()
	}
}

func (r *PostgresRecorder) flushLoop() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.flush()
		case <-r.done:
			r.flush()
			return
		}
	}
}

func (r *PostgresRecorder) flush() {
	r.mu.Lock()
	observation := r.observation
	route := r.route
	r.observation = nil
	r.route = nil
	r.mu.Unlock()

	if len(observation) == 0 && len(route) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if len(observation) > 0 {
		if err := r.flushObservations(ctx, observation); err != nil {
			log.Printf("telemetry: flushing observations: %v", err)
		}
	}
	if len(route) > 0 {
		if err := r.flushRoutes(ctx, route); err != nil {
			log.Printf("telemetry: flushing routes: %v", err)
		}
	}
}

func (r *PostgresRecorder) flushObservations(ctx context.Context, batch []Observation) error {
	pgBatch := &pgx.Batch{}
	now := r.now()
	for _, obs := range batch {
		pgBatch.Queue(`
			INSERT INTO traffic_observation (edge_id, speed, pos, has_pos, new_eta, observed_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, obs.EdgeID, obs.Speed, obs.Pos, obs.HasPos, obs.NewETA, now)
	}
	return r.executeBatch(ctx, pgBatch)
}

func (r *PostgresRecorder) flushRoutes(ctx context.Context, batch []RouteRequest) error {
	pgBatch := &pgx.Batch{}
	now := r.now()
	for _, req := range batch {
		pgBatch.Queue(`
			INSERT INTO route_request (start_node, target_node, cost, strategy, explored, requested_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, req.Start, req.Target, req.Cost, req.Strategy, req.Explored, now)
	}
	return r.executeBatch(ctx, pgBatch)
}

func (r *PostgresRecorder) executeBatch(ctx context.Context, batch *pgx.Batch) error {
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRecorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}
