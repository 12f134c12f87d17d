package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/passbi/dynaroute/internal/models"
)

// CSVLoader reads nodes and edges from two flat files: a nodes CSV
// with header id,x,y and an edges CSV with header
// id,from,to,base_length,base_speed_limit. Records may arrive in any
// order; Load sorts edges by id before returning them, since
// graph.Graph.AddEdge requires dense ascending ids.
//
// Uses a column-map-over-header idiom: a csv.Reader reads the header
// once, builds a name->index map, and every row is looked up by column
// name rather than position.
type CSVLoader struct {
	NodesPath string
	EdgesPath string
}

// NewCSVLoader returns a CSVLoader reading from the given files.
func NewCSVLoader(nodesPath, edgesPath string) *CSVLoader {
	return &CSVLoader{NodesPath: nodesPath, EdgesPath: edgesPath}
}

func (l *CSVLoader) Load(ctx context.Context) ([]models.NodeRecord, []models.EdgeRecord, error) {
	nodes, err := l.loadNodes()
	if err != nil {
		return nil, nil, fmt.Errorf("loader: csv: %w", err)
	}

	edges, err := l.loadEdges()
	if err != nil {
		return nil, nil, fmt.Errorf("loader: csv: %w", err)
	}

	return nodes, edges, nil
}

func (l *CSVLoader) loadNodes() ([]models.NodeRecord, error) {
	file, err := os.Open(l.NodesPath)
	if err != nil {
		return nil, fmt.Errorf("opening nodes file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading nodes header: %w", err)
	}
	col := columnMap(header)

	var nodes []models.NodeRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading nodes row: %w", err)
		}

		id, err := strconv.Atoi(field(record, col, "id"))
		if err != nil {
			return nil, fmt.Errorf("parsing node id: %w", err)
		}
		x, err := strconv.ParseFloat(field(record, col, "x"), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing node x: %w", err)
		}
		y, err := strconv.ParseFloat(field(record, col, "y"), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing node y: %w", err)
		}

		nodes = append(nodes, models.NodeRecord{ID: id, X: x, Y: y})
	}

	return nodes, nil
}

func (l *CSVLoader) loadEdges() ([]models.EdgeRecord, error) {
	file, err := os.Open(l.EdgesPath)
	if err != nil {
		return nil, fmt.Errorf("opening edges file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("reading edges header: %w", err)
	}
	col := columnMap(header)

	var edges []models.EdgeRecord
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading edges row: %w", err)
		}

		id, err := strconv.Atoi(field(record, col, "id"))
		if err != nil {
			return nil, fmt.Errorf("parsing edge id: %w", err)
		}
		from, err := strconv.Atoi(field(record, col, "from"))
		if err != nil {
			return nil, fmt.Errorf("parsing edge from: %w", err)
		}
		to, err := strconv.Atoi(field(record, col, "to"))
		if err != nil {
			return nil, fmt.Errorf("parsing edge to: %w", err)
		}
		length, err := strconv.ParseFloat(field(record, col, "base_length"), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing edge base_length: %w", err)
		}
		speed, err := strconv.ParseFloat(field(record, col, "base_speed_limit"), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing edge base_speed_limit: %w", err)
		}

		edges = append(edges, models.EdgeRecord{
			ID:             id,
			From:           from,
			To:             to,
			BaseLength:     length,
			BaseSpeedLimit: speed,
		})
	}

	sortEdgesByID(edges)
	return edges, nil
}

// columnMap builds a header-name -> column-index lookup.
func columnMap(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, name := range header {
		m[name] = i
	}
	return m
}

// field looks up a named column in a row, returning "" if the row is
// short or the column is absent.
func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func sortEdgesByID(edges []models.EdgeRecord) {
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })
}
