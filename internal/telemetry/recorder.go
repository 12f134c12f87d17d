// Package telemetry holds the ambient observability side-channel: a
// write-only record of traffic observations and route requests, used
// for reporting only. Nothing in this package may be consulted to
// answer a live REQ/UPD/PRED — the graph is the only source of truth,
// so caching here can never desynchronize a client's view of the
// network from what the core actually computed.
//
// Uses the same Redis client idioms as a typical cache/rate-limit
// package, adapted into a write-only fan-out: the request path itself
// never reads back anything recorded here.
package telemetry

import "context"

// Observation is one traffic update, shaped for fan-out to anything
// listening (pub/sub subscribers, a batched log writer).
type Observation struct {
	EdgeID int
	Speed  float64
	Pos    float64
	HasPos bool
	NewETA float64
}

// RouteRequest is one completed routing query, recorded for reporting.
type RouteRequest struct {
	Start, Target int
	Cost          float64
	Strategy      string
	Explored      int
}

// Recorder receives fire-and-forget telemetry events. Implementations
// must not block the caller for long and must never return an error
// that affects the caller's own response — recording failures are
// logged by the implementation, not propagated.
type Recorder interface {
	RecordObservation(ctx context.Context, obs Observation)
	RecordRoute(ctx context.Context, req RouteRequest)
	Close() error
}

// NullRecorder discards every event. It is the default Recorder when
// no Redis or Postgres telemetry backend is configured, so the core
// protocol behaves identically with or without them wired up.
type NullRecorder struct{}

func (NullRecorder) RecordObservation(context.Context, Observation) {}
func (NullRecorder) RecordRoute(context.Context, RouteRequest)      {}
func (NullRecorder) Close() error                                   { return nil }
