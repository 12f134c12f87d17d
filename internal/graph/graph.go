// Package graph holds the routing graph: a fixed-size array of nodes and
// edges, built once at load time and never resized. Only the mutable
// per-edge traffic fields (current travel time, EMA, observation count)
// change at runtime, and only under the coordinator's exclusive lock.
//
// Structured as a singleton in-memory graph with id-indexed lookups,
// generalized from a stop/route transit graph to a plain directed
// node/edge graph, and from per-accessor locking to a single
// process-wide coordinator, since an A* run must see a consistent
// snapshot of weights across its whole search.
package graph

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/passbi/dynaroute/internal/coordinator"
	"github.com/passbi/dynaroute/internal/models"
)

const minSpeed = 1e-6

// Node is an immutable graph vertex: an id, planar coordinates, and the
// ids of its outgoing edges. Adjacency is built once at load time.
type Node struct {
	ID        int
	X, Y      float64
	Adjacency []int // outgoing edge ids
	hasCoords bool
}

// Edge holds one directed connection. BaseLength/BaseSpeedLimit are
// immutable; CurrentTravelTime/EMATravelTime/ObservationCount are
// mutated only by ApplyObservation, and only under the coordinator's
// exclusive lock.
type Edge struct {
	ID                int
	From, To          int
	BaseLength        float64
	BaseSpeedLimit    float64
	CurrentTravelTime float64
	EMATravelTime     float64
	ObservationCount  uint64
}

// Graph is the shared routing graph. The zero value is not usable; call
// New and then Init.
type Graph struct {
	coord *coordinator.Lock

	nodes []Node
	edges []Edge

	maxSpeedLimit float64 // for the admissible heuristic; 0 if none seen
	loaded        atomic.Bool
}

// New returns an empty, unloaded graph bound to its own coordinator.
func New() *Graph {
	return &Graph{coord: coordinator.New()}
}

// Coordinator returns the reader/writer lock guarding this graph's
// mutable edge fields. Routing and prediction take RLock/RUnlock;
// traffic updates take Lock/Unlock.
func (g *Graph) Coordinator() *coordinator.Lock {
	return g.coord
}

// Init allocates the fixed-size node and edge arrays. It must be called
// exactly once, before any AddEdge/SetNodeCoordinates call, and before
// the graph is shared with any worker.
func (g *Graph) Init(numNodes, numEdges int) error {
	if numNodes <= 0 {
		return fmt.Errorf("graph: num_nodes must be positive, got %d", numNodes)
	}
	if numEdges < 0 {
		return fmt.Errorf("graph: num_edges must be non-negative, got %d", numEdges)
	}
	g.nodes = make([]Node, numNodes)
	for i := range g.nodes {
		g.nodes[i].ID = i
	}
	g.edges = make([]Edge, 0, numEdges)
	return nil
}

// SetNodeCoordinates records the (x, y) position of a node. Safe to call
// any number of times per node before the graph is marked loaded.
func (g *Graph) SetNodeCoordinates(id int, x, y float64) error {
	if id < 0 || id >= len(g.nodes) {
		return fmt.Errorf("graph: %w: %d", models.ErrBadNode, id)
	}
	g.nodes[id].X = x
	g.nodes[id].Y = y
	g.nodes[id].hasCoords = true
	return nil
}

// AddEdge appends a directed edge, validating endpoints and the initial
// travel-time invariant: current_travel_time = ema_travel_time =
// base_length / base_speed_limit, observation_count = 0.
func (g *Graph) AddEdge(id, from, to int, baseLength, baseSpeedLimit float64) error {
	if from < 0 || from >= len(g.nodes) || to < 0 || to >= len(g.nodes) {
		return fmt.Errorf("graph: %w: edge %d endpoints (%d, %d)", models.ErrBadNode, id, from, to)
	}
	if baseLength < 0 {
		return fmt.Errorf("graph: edge %d: base_length must be non-negative, got %g", id, baseLength)
	}
	if baseSpeedLimit <= 0 {
		return fmt.Errorf("graph: edge %d: base_speed_limit must be positive, got %g", id, baseSpeedLimit)
	}
	if id != len(g.edges) {
		return fmt.Errorf("graph: edge %d: ids must be added in dense order, expected %d", id, len(g.edges))
	}

	t := baseLength / baseSpeedLimit
	g.edges = append(g.edges, Edge{
		ID:                id,
		From:              from,
		To:                to,
		BaseLength:        baseLength,
		BaseSpeedLimit:    baseSpeedLimit,
		CurrentTravelTime: t,
		EMATravelTime:     t,
		ObservationCount:  0,
	})
	g.nodes[from].Adjacency = append(g.nodes[from].Adjacency, id)

	if baseSpeedLimit > g.maxSpeedLimit {
		g.maxSpeedLimit = baseSpeedLimit
	}
	return nil
}

// MarkLoaded flips the graph into the loaded state. Call once all nodes
// and edges have been added. Safe for concurrent readers afterward;
// concurrent writers are forbidden before this call by construction
// (the server does not start workers until loading completes).
func (g *Graph) MarkLoaded() {
	g.loaded.Store(true)
}

// IsLoaded reports whether MarkLoaded has been called.
func (g *Graph) IsLoaded() bool {
	return g.loaded.Load()
}

// NumNodes and NumEdges report the fixed graph size.
func (g *Graph) NumNodes() int { return len(g.nodes) }
func (g *Graph) NumEdges() int { return len(g.edges) }

// NodeCoordinates is an unlocked read of immutable topology; callers
// need not hold the coordinator, since fields set once at load time
// may be read without the lock.
func (g *Graph) NodeCoordinates(id int) (x, y float64, err error) {
	if id < 0 || id >= len(g.nodes) {
		return 0, 0, fmt.Errorf("graph: %w: %d", models.ErrBadNode, id)
	}
	n := g.nodes[id]
	return n.X, n.Y, nil
}

// Neighbors returns the outgoing edge ids of a node. Unlocked read of
// immutable adjacency.
func (g *Graph) Neighbors(id int) ([]int, error) {
	if id < 0 || id >= len(g.nodes) {
		return nil, fmt.Errorf("graph: %w: %d", models.ErrBadNode, id)
	}
	return g.nodes[id].Adjacency, nil
}

// EdgeEndpoints is an unlocked read of an edge's immutable From/To.
func (g *Graph) EdgeEndpoints(e int) (from, to int, err error) {
	if e < 0 || e >= len(g.edges) {
		return 0, 0, fmt.Errorf("graph: %w: %d", models.ErrBadEdge, e)
	}
	return g.edges[e].From, g.edges[e].To, nil
}

// EdgeWeight returns an edge's current travel time. Callers must hold
// the coordinator in at least shared mode: this reads mutable state.
func (g *Graph) EdgeWeight(e int) (float64, error) {
	if e < 0 || e >= len(g.edges) {
		return 0, fmt.Errorf("graph: %w: %d", models.ErrBadEdge, e)
	}
	return g.edges[e].CurrentTravelTime, nil
}

// Edge returns a copy of an edge's full state. Callers must hold the
// coordinator in at least shared mode.
func (g *Graph) Edge(e int) (Edge, error) {
	if e < 0 || e >= len(g.edges) {
		return Edge{}, fmt.Errorf("graph: %w: %d", models.ErrBadEdge, e)
	}
	return g.edges[e], nil
}

// Heuristic returns an admissible lower bound on travel time from u to v:
// straight-line distance divided by the maximum base speed limit seen at
// load time. If no positive speed limit was ever recorded (Init with no
// edges, or a pathological load), it falls back to raw straight-line
// distance, which is documented as non-admissible in that degenerate
// case. Returns ErrNoCoords if either node never had SetNodeCoordinates
// called on it, rather than silently treating it as (0, 0): an
// unpositioned node would otherwise pull in a heuristic with no relation
// to the node's real position, quietly breaking admissibility. Unlocked
// read of immutable topology.
func (g *Graph) Heuristic(u, v int) (float64, error) {
	if u < 0 || u >= len(g.nodes) {
		return 0, fmt.Errorf("graph: %w: %d", models.ErrBadNode, u)
	}
	if v < 0 || v >= len(g.nodes) {
		return 0, fmt.Errorf("graph: %w: %d", models.ErrBadNode, v)
	}
	un, vn := g.nodes[u], g.nodes[v]
	if !un.hasCoords {
		return 0, fmt.Errorf("graph: %w: node %d", models.ErrNoCoords, u)
	}
	if !vn.hasCoords {
		return 0, fmt.Errorf("graph: %w: node %d", models.ErrNoCoords, v)
	}
	dist := math.Hypot(vn.X-un.X, vn.Y-un.Y)
	if g.maxSpeedLimit <= 0 {
		return dist, nil
	}
	return dist / g.maxSpeedLimit, nil
}

// ApplyObservation folds a speed observation into an edge's EMA and
// updates its current travel time. Callers must hold the coordinator in
// exclusive mode: this is the only mutator of per-edge state at runtime.
//
// Smoothing: alpha = 1.0 on the first observation (replaces the
// synthetic initial estimate with real data), alpha = 0.2 afterward
// (stable low-pass filter, ~5-observation memory).
func (g *Graph) ApplyObservation(edgeID int, speed float64) (newEMA float64, err error) {
	if edgeID < 0 || edgeID >= len(g.edges) {
		return 0, fmt.Errorf("graph: %w: %d", models.ErrBadEdge, edgeID)
	}
	if speed <= 0 {
		return 0, fmt.Errorf("graph: %w: %g", models.ErrBadSpeed, speed)
	}

	e := &g.edges[edgeID]
	measured := e.BaseLength / math.Max(speed, minSpeed)

	alpha := 0.2
	if e.ObservationCount == 0 {
		alpha = 1.0
	}

	e.EMATravelTime = alpha*measured + (1-alpha)*e.EMATravelTime
	e.CurrentTravelTime = e.EMATravelTime
	e.ObservationCount++

	return e.EMATravelTime, nil
}

// ValidatePosition checks that pos falls within an edge's physical
// extent, [0, base_length]. It does not mutate anything and plays no
// part in the EMA math; it exists only to catch an observation whose
// position could not possibly lie on the edge it names. Callers must
// hold the coordinator in at least shared mode.
func (g *Graph) ValidatePosition(edgeID int, pos float64) error {
	if edgeID < 0 || edgeID >= len(g.edges) {
		return fmt.Errorf("graph: %w: %d", models.ErrBadEdge, edgeID)
	}
	e := g.edges[edgeID]
	if pos < 0 || pos > e.BaseLength {
		return fmt.Errorf("graph: %w: %g not in [0, %g]", models.ErrBadPos, pos, e.BaseLength)
	}
	return nil
}

// Predict returns an edge's short-term travel-time estimate: the EMA if
// at least one observation has been folded in, otherwise the synthetic
// initial estimate. Callers must hold the coordinator in at least
// shared mode. Per the invariant that current_travel_time always
// mirrors ema_travel_time, the two branches return the same value; both
// are kept so the intent of each case (observed vs synthetic) stays
// legible at the call site.
func (g *Graph) Predict(edgeID int) (float64, error) {
	if edgeID < 0 || edgeID >= len(g.edges) {
		return 0, fmt.Errorf("graph: %w: %d", models.ErrBadEdge, edgeID)
	}
	e := g.edges[edgeID]
	if e.ObservationCount > 0 {
		return e.EMATravelTime, nil
	}
	return e.CurrentTravelTime, nil
}
