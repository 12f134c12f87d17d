package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// observationsChannel is the Pub/Sub channel every confirmed traffic
// update is published on.
const observationsChannel = "traffic:observations"

// redisObservation is the wire shape published on observationsChannel.
type redisObservation struct {
	EdgeID    int     `json:"edge_id"`
	Speed     float64 `json:"speed"`
	Pos       float64 `json:"pos,omitempty"`
	HasPos    bool    `json:"has_pos"`
	NewETA    float64 `json:"new_eta"`
	Timestamp int64   `json:"timestamp"`
}

// redisRouteRequest is the wire shape published for a completed route.
type redisRouteRequest struct {
	Start     int     `json:"start"`
	Target    int     `json:"target"`
	Cost      float64 `json:"cost"`
	Strategy  string  `json:"strategy"`
	Explored  int     `json:"explored"`
	Timestamp int64   `json:"timestamp"`
}

// RedisRecorder publishes observations and route requests to a Redis
// Pub/Sub channel for any listening analytics subscriber. Publication is
// fire-and-forget: a Redis error is logged and discarded, never returned
// to the caller, since an observation's durability is not load-bearing
// for the TCP response that triggered it.
//
// Uses the same singleton *redis.Client style as a typical cache/lock
// client, adapted into a pure Pub/Sub publisher since nothing here is
// ever read back on the request path.
type RedisRecorder struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRecorder wraps an already-connected Redis client.
func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{client: client, now: time.Now}
}

func (r *RedisRecorder) RecordObservation(ctx context.Context, obs Observation) {
	payload := redisObservation{
		EdgeID:    obs.EdgeID,
		Speed:     obs.Speed,
		Pos:       obs.Pos,
		HasPos:    obs.HasPos,
		NewETA:    obs.NewETA,
		Timestamp: r.now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("telemetry: marshal observation: %v", err)
		return
	}
	if err := r.client.Publish(ctx, observationsChannel, data).Err(); err != nil {
		log.Printf("telemetry: publish observation: %v", err)
	}
}

func (r *RedisRecorder) RecordRoute(ctx context.Context, req RouteRequest) {
	payload := redisRouteRequest{
		Start:     req.Start,
		Target:    req.Target,
		Cost:      req.Cost,
		Strategy:  req.Strategy,
		Explored:  req.Explored,
		Timestamp: r.now().Unix(),
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("telemetry: marshal route request: %v", err)
		return
	}
	if err := r.client.Publish(ctx, "traffic:routes", data).Err(); err != nil {
		log.Printf("telemetry: publish route request: %v", err)
	}
}

func (r *RedisRecorder) Close() error {
	return r.client.Close()
}

// RateGauge tracks request throughput per named bucket using the
// INCR+EXPIRE windowed-counter idiom, read back only through /stats. It
// never gates a request: rate limiting itself is out of scope, so Incr
// always succeeds from the caller's point of view regardless of the
// Redis round trip's outcome.
//
// Uses the same per-second Redis counter (INCR then EXPIRE
// 2*time.Second) as a typical rate-limit middleware, repurposed from a
// 429-returning gate into a plain read-only reporting gauge.
type RateGauge struct {
	client *redis.Client
	window time.Duration
	now    func() time.Time
}

// NewRateGauge returns a RateGauge bucketing counts into window-second
// buckets (e.g. one bucket per wall-clock second for per-second rates).
func NewRateGauge(client *redis.Client, window time.Duration) *RateGauge {
	if window <= 0 {
		window = time.Second
	}
	return &RateGauge{client: client, window: window, now: time.Now}
}

// Incr increments bucket's counter for the current window and refreshes
// its expiry. Errors are logged, never returned: a missed increment
// only skews a reporting number, nothing correctness-bearing.
func (g *RateGauge) Incr(ctx context.Context, bucket string) {
	if g == nil || g.client == nil {
		return
	}
	key := g.key(bucket)
	if err := g.client.Incr(ctx, key).Err(); err != nil {
		log.Printf("telemetry: rate gauge incr: %v", err)
		return
	}
	g.client.Expire(ctx, key, 2*g.window)
}

// Current returns bucket's count for the current window, or 0 if Redis
// is unreachable or the gauge itself is nil (no Redis configured).
func (g *RateGauge) Current(ctx context.Context, bucket string) int64 {
	if g == nil || g.client == nil {
		return 0
	}
	val, err := g.client.Get(ctx, g.key(bucket)).Int64()
	if err != nil {
		return 0
	}
	return val
}

func (g *RateGauge) key(bucket string) string {
	slot := g.now().Unix() / int64(g.window/time.Second)
	return fmt.Sprintf("rategauge:%s:%d", bucket, slot)
}
