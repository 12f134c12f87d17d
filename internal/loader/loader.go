// Package loader implements the external collaborator that supplies
// counts and records to graph.Graph via
// Init/SetNodeCoordinates/AddEdge. Two backends are provided, a
// flat-file CSV loader and a Postgres loader, matching two common
// storage idioms.
//
// Uses the same encoding/csv + column-map idiom as a typical flat-file
// parser (CSVLoader) and the same pgxpool usage as a typical
// connection-backed loader (PostgresLoader).
package loader

import (
	"context"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/models"
)

// Loader supplies the records needed to build a graph.Graph: it is the
// only thing outside internal/graph allowed to call Init, AddEdge and
// SetNodeCoordinates.
type Loader interface {
	Load(ctx context.Context) (nodes []models.NodeRecord, edges []models.EdgeRecord, err error)
}

// Build runs a Loader and constructs a ready-to-use graph.Graph from
// its records, validating record counts against what the loader
// actually returns: the graph's own AddEdge/SetNodeCoordinates
// validation surfaces a record-count mismatch or bad reference as soon
// as it happens.
func Build(ctx context.Context, l Loader) (*graph.Graph, error) {
	nodes, edges, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}

	g := graph.New()
	if err := g.Init(len(nodes), len(edges)); err != nil {
		return nil, err
	}

	for _, n := range nodes {
		if err := g.SetNodeCoordinates(n.ID, n.X, n.Y); err != nil {
			return nil, err
		}
	}

	for _, e := range edges {
		if err := g.AddEdge(e.ID, e.From, e.To, e.BaseLength, e.BaseSpeedLimit); err != nil {
			return nil, err
		}
	}

	g.MarkLoaded()
	return g, nil
}
