package routing

import "github.com/passbi/dynaroute/internal/graph"

// Strategy selects the per-edge cost the search minimizes. The default
// wired by the server, FastestStrategy, costs an edge at its raw
// current_travel_time, unmodified, so that REQ's returned cost always
// matches a plain shortest-path contract. Additional strategies let a
// caller ask for a differently weighted search over the same live
// graph without changing what REQ returns by default.
//
// Generalized from a Name/EdgeCost/ShouldStop strategy interface over
// a transit graph, dropping ShouldStop: this A* has no early-stop
// criterion beyond reaching the target or exhausting the open set, so
// carrying a transfer-counting stop condition here would be inventing
// behavior nothing calls for.
type Strategy interface {
	Name() string
	EdgeCost(e graph.Edge) float64
}

// FastestStrategy costs an edge at its current (possibly EMA-adjusted)
// travel time, with no adjustment. This is the strategy the server
// uses by default to answer REQ.
type FastestStrategy struct{}

func (FastestStrategy) Name() string { return "fastest" }

func (FastestStrategy) EdgeCost(e graph.Edge) float64 {
	return e.CurrentTravelTime
}

// CautiousStrategy inflates the cost of edges with few observations,
// preferring well-traveled roads when the EMA is still close to its
// synthetic initial estimate. The penalty ramps linearly from 50% at
// zero observations down to none at confidenceFloor observations.
type CautiousStrategy struct{}

const confidenceFloor = 5

func (CautiousStrategy) Name() string { return "cautious" }

func (CautiousStrategy) EdgeCost(e graph.Edge) float64 {
	if e.ObservationCount >= confidenceFloor {
		return e.CurrentTravelTime
	}
	penalty := 1.5 - 0.5*float64(e.ObservationCount)/confidenceFloor
	return e.CurrentTravelTime * penalty
}

// strategies maps every name GetStrategy accepts (REQ's optional
// strategy field) to its Strategy.
var strategies = map[string]Strategy{
	"fastest":  FastestStrategy{},
	"cautious": CautiousStrategy{},
}

// GetStrategy returns a strategy by name, defaulting to FastestStrategy
// for an unknown or empty name.
func GetStrategy(name string) Strategy {
	if s, ok := strategies[name]; ok {
		return s
	}
	return FastestStrategy{}
}
