// Package traffic wraps graph.Graph with the two operations a worker
// runs under the coordinator lock: folding a speed observation into an
// edge's EMA, and reading back a short-term travel-time estimate.
// Kept as two distinct types, "traffic updater" and "prediction", even
// though both are thin wrappers over the same graph, since they run on
// different queues under opposite lock modes.
package traffic

import "github.com/passbi/dynaroute/internal/graph"

// Updater applies speed observations to a graph's edges, one at a time,
// under the graph's coordinator in exclusive mode.
type Updater struct {
	graph *graph.Graph
}

// NewUpdater returns an Updater bound to g.
func NewUpdater(g *graph.Graph) *Updater {
	return &Updater{graph: g}
}

// Apply folds a speed observation into edgeID's EMA and returns the
// resulting value. It is the only place in the system that acquires
// the coordinator's exclusive mode. If hasPos is set, pos is validated
// against the edge's base_length before the observation is applied;
// pos takes no part in the EMA math itself, it is only ever recorded
// as telemetry metadata.
func (u *Updater) Apply(edgeID int, speed float64, pos float64, hasPos bool) (float64, error) {
	u.graph.Coordinator().Lock()
	defer u.graph.Coordinator().Unlock()

	if hasPos {
		if err := u.graph.ValidatePosition(edgeID, pos); err != nil {
			return 0, err
		}
	}
	return u.graph.ApplyObservation(edgeID, speed)
}

// Predictor answers short-term travel-time queries under the graph's
// coordinator in shared mode.
type Predictor struct {
	graph *graph.Graph
}

// NewPredictor returns a Predictor bound to g.
func NewPredictor(g *graph.Graph) *Predictor {
	return &Predictor{graph: g}
}

// Predict returns edgeID's current prediction: its EMA if at least one
// observation has been applied, otherwise the synthetic initial
// estimate. Two successive calls with no intervening Apply return
// identical values, since nothing but Apply mutates edge state.
func (p *Predictor) Predict(edgeID int) (float64, error) {
	p.graph.Coordinator().RLock()
	defer p.graph.Coordinator().RUnlock()
	return p.graph.Predict(edgeID)
}
