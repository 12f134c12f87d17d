package routing

import (
	"context"
	"fmt"
	"math"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/models"
	"github.com/passbi/dynaroute/internal/pqueue"
)

// Router runs A* searches over a shared graph.Graph.
type Router struct {
	graph *graph.Graph
}

// NewRouter returns a Router bound to g.
func NewRouter(g *graph.Graph) *Router {
	return &Router{graph: g}
}

// Result is the outcome of a successful FindPath: a cost, a node path of
// length >= 1, and an edge path one shorter than the node path (empty
// when start == target).
type Result struct {
	Cost     float64
	NodePath []int
	EdgePath []int
	Explored int
}

// FindPath runs A* from start to target using strategy to weigh edges,
// holding the graph's coordinator in shared mode for the duration of
// the search so every edge weight it reads comes from one consistent
// snapshot.
//
// Returns models.ErrBadNode if start or target is out of range,
// models.ErrNoRoute if target is unreachable, and models.ErrRouteFail
// if path reconstruction finds an inconsistent adjacency list.
func (r *Router) FindPath(ctx context.Context, start, target int, strategy Strategy) (Result, error) {
	if start < 0 || start >= r.graph.NumNodes() {
		return Result{}, fmt.Errorf("routing: %w: start=%d", models.ErrBadNode, start)
	}
	if target < 0 || target >= r.graph.NumNodes() {
		return Result{}, fmt.Errorf("routing: %w: target=%d", models.ErrBadNode, target)
	}

	if start == target {
		return Result{Cost: 0, NodePath: []int{start}, EdgePath: []int{}}, nil
	}

	r.graph.Coordinator().RLock()
	defer r.graph.Coordinator().RUnlock()

	return r.astar(ctx, start, target, strategy)
}

// astar runs the search using the indexed min-heap from
// internal/pqueue. Caller must hold the graph's coordinator in at
// least shared mode.
func (r *Router) astar(ctx context.Context, start, target int, strategy Strategy) (Result, error) {
	n := r.graph.NumNodes()

	g := make([]float64, n)
	f := make([]float64, n)
	parent := make([]int, n)
	edgeToParent := make([]int, n)
	for v := 0; v < n; v++ {
		g[v] = math.Inf(1)
		f[v] = math.Inf(1)
		parent[v] = -1
		edgeToParent[v] = -1
	}

	h0, err := r.graph.Heuristic(start, target)
	if err != nil {
		return Result{}, err
	}

	g[start] = 0
	f[start] = h0

	open := pqueue.New(n)
	open.Insert(start, f[start])

	explored := 0
	for !open.Empty() {
		select {
		case <-ctx.Done():
			return Result{}, fmt.Errorf("routing: %w", ctx.Err())
		default:
		}

		u, _ := open.ExtractMin()
		explored++

		if u == target {
			nodePath, edgePath, err := reconstructPath(r.graph, parent, edgeToParent, start, target)
			if err != nil {
				return Result{}, err
			}
			return Result{Cost: g[target], NodePath: nodePath, EdgePath: edgePath, Explored: explored}, nil
		}

		neighbors, err := r.graph.Neighbors(u)
		if err != nil {
			return Result{}, err
		}

		for _, edgeID := range neighbors {
			edge, err := r.graph.Edge(edgeID)
			if err != nil {
				return Result{}, err
			}
			v := edge.To

			w := strategy.EdgeCost(edge)
			tentative := g[u] + w
			if tentative >= g[v] {
				continue
			}

			h, err := r.graph.Heuristic(v, target)
			if err != nil {
				return Result{}, err
			}

			g[v] = tentative
			f[v] = tentative + h
			parent[v] = u
			edgeToParent[v] = edgeID
			open.DecreaseKey(v, f[v])
		}
	}

	return Result{}, fmt.Errorf("routing: %w: from %d to %d after exploring %d nodes", models.ErrNoRoute, start, target, explored)
}

// reconstructPath walks parent pointers from target back to start and
// reverses them into forward node/edge paths.
func reconstructPath(g *graph.Graph, parent, edgeToParent []int, start, target int) ([]int, []int, error) {
	var nodePath []int
	var edgePath []int

	for v := target; v != -1; v = parent[v] {
		nodePath = append(nodePath, v)
		if v != start {
			edgePath = append(edgePath, edgeToParent[v])
		}
		if v == start {
			break
		}
	}

	for i, j := 0, len(nodePath)-1; i < j; i, j = i+1, j-1 {
		nodePath[i], nodePath[j] = nodePath[j], nodePath[i]
	}
	for i, j := 0, len(edgePath)-1; i < j; i, j = i+1, j-1 {
		edgePath[i], edgePath[j] = edgePath[j], edgePath[i]
	}

	if nodePath[0] != start {
		return nil, nil, fmt.Errorf("routing: %w: parent chain did not reach start", models.ErrRouteFail)
	}

	for i := 0; i < len(edgePath); i++ {
		from, to, err := g.EdgeEndpoints(edgePath[i])
		if err != nil {
			return nil, nil, fmt.Errorf("routing: %w: %v", models.ErrRouteFail, err)
		}
		if from != nodePath[i] || to != nodePath[i+1] {
			return nil, nil, fmt.Errorf("routing: %w: edge %d does not connect %d to %d", models.ErrRouteFail, edgePath[i], nodePath[i], nodePath[i+1])
		}
	}

	return nodePath, edgePath, nil
}
