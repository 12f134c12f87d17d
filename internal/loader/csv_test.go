package loader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestCSVLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	nodesPath := writeTestFile(t, dir, "nodes.csv", "id,x,y\n0,0,0\n1,10,0\n2,30,0\n")
	edgesPath := writeTestFile(t, dir, "edges.csv",
		"id,from,to,base_length,base_speed_limit\n1,1,2,20,10\n0,0,1,10,10\n")

	l := NewCSVLoader(nodesPath, edgesPath)
	nodes, edges, err := l.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, nodes, 3)
	assert.Equal(t, 0, nodes[0].ID)
	assert.Equal(t, 10.0, nodes[1].X)

	require.Len(t, edges, 2)
	assert.Equal(t, 0, edges[0].ID, "edges must be sorted by id regardless of file order")
	assert.Equal(t, 1, edges[1].ID)
	assert.Equal(t, 0, edges[0].From)
	assert.Equal(t, 1, edges[0].To)
}

func TestCSVLoaderMissingFile(t *testing.T) {
	l := NewCSVLoader("/no/such/nodes.csv", "/no/such/edges.csv")
	_, _, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestCSVLoaderMalformedRow(t *testing.T) {
	dir := t.TempDir()
	nodesPath := writeTestFile(t, dir, "nodes.csv", "id,x,y\nnotanumber,0,0\n")
	edgesPath := writeTestFile(t, dir, "edges.csv", "id,from,to,base_length,base_speed_limit\n")

	l := NewCSVLoader(nodesPath, edgesPath)
	_, _, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestBuildFromCSVLoader(t *testing.T) {
	dir := t.TempDir()
	nodesPath := writeTestFile(t, dir, "nodes.csv", "id,x,y\n0,0,0\n1,10,0\n2,30,0\n")
	edgesPath := writeTestFile(t, dir, "edges.csv",
		"id,from,to,base_length,base_speed_limit\n0,0,1,10,10\n1,1,2,20,10\n")

	l := NewCSVLoader(nodesPath, edgesPath)
	g, err := Build(context.Background(), l)
	require.NoError(t, err)

	assert.True(t, g.IsLoaded())
	assert.Equal(t, 3, g.NumNodes())
	assert.Equal(t, 2, g.NumEdges())
}
