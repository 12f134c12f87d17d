package loader

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/passbi/dynaroute/internal/models"
)

// PostgresLoader reads nodes and edges from a node/edge table pair,
// ordering edges by id so they satisfy graph.Graph.AddEdge's dense-id
// requirement.
//
// Uses the same pgxpool-backed construction as a typical multi-table
// graph builder, adapted from a transit network's multi-table
// (stop/route/trip/stop_time) join into two flat SELECTs over a plain
// node/edge schema.
type PostgresLoader struct {
	pool *pgxpool.Pool
}

// NewPostgresLoader returns a PostgresLoader reading through pool.
func NewPostgresLoader(pool *pgxpool.Pool) *PostgresLoader {
	return &PostgresLoader{pool: pool}
}

func (l *PostgresLoader) Load(ctx context.Context) ([]models.NodeRecord, []models.EdgeRecord, error) {
	nodes, err := l.loadNodes(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: postgres: %w", err)
	}

	edges, err := l.loadEdges(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("loader: postgres: %w", err)
	}

	return nodes, edges, nil
}

func (l *PostgresLoader) loadNodes(ctx context.Context) ([]models.NodeRecord, error) {
	rows, err := l.pool.Query(ctx, `SELECT id, x, y FROM node ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying nodes: %w", err)
	}
	defer rows.Close()

	var nodes []models.NodeRecord
	for rows.Next() {
		var n models.NodeRecord
		if err := rows.Scan(&n.ID, &n.X, &n.Y); err != nil {
			return nil, fmt.Errorf("scanning node row: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (l *PostgresLoader) loadEdges(ctx context.Context) ([]models.EdgeRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT id, from_node, to_node, base_length, base_speed_limit
		FROM edge
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	var edges []models.EdgeRecord
	for rows.Next() {
		var e models.EdgeRecord
		if err := rows.Scan(&e.ID, &e.From, &e.To, &e.BaseLength, &e.BaseSpeedLimit); err != nil {
			return nil, fmt.Errorf("scanning edge row: %w", err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}
