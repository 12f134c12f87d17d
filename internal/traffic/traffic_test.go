package traffic

import (
	"testing"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/passbi/dynaroute/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEdge(t *testing.T) (*graph.Graph, int) {
	t.Helper()
	g := graph.New()
	require.NoError(t, g.Init(2, 1))
	require.NoError(t, g.SetNodeCoordinates(0, 0, 0))
	require.NoError(t, g.SetNodeCoordinates(1, 100, 0))
	require.NoError(t, g.AddEdge(0, 0, 1, 100, 10))
	g.MarkLoaded()
	return g, 0
}

func TestFirstObservationReplacesEstimateExactly(t *testing.T) {
	g, edge := newTestEdge(t)
	u := NewUpdater(g)
	p := NewPredictor(g)

	_, err := u.Apply(edge, 20, 0, false)
	require.NoError(t, err)

	got, err := p.Predict(edge)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/20.0, got, 1e-9)
}

func TestEMAConvergesToSteadyState(t *testing.T) {
	g, edge := newTestEdge(t)
	u := NewUpdater(g)
	p := NewPredictor(g)

	const speed = 25.0
	for i := 0; i < 60; i++ {
		_, err := u.Apply(edge, speed, 0, false)
		require.NoError(t, err)
	}

	got, err := p.Predict(edge)
	require.NoError(t, err)
	assert.InDelta(t, 100.0/speed, got, 1e-6)
}

func TestApplyRejectsNonPositiveSpeed(t *testing.T) {
	g, edge := newTestEdge(t)
	u := NewUpdater(g)

	_, err := u.Apply(edge, 0, 0, false)
	assert.ErrorIs(t, err, models.ErrBadSpeed)

	_, err = u.Apply(edge, -5, 0, false)
	assert.ErrorIs(t, err, models.ErrBadSpeed)
}

func TestApplyRejectsBadEdge(t *testing.T) {
	g, _ := newTestEdge(t)
	u := NewUpdater(g)

	_, err := u.Apply(999, 10, 0, false)
	assert.ErrorIs(t, err, models.ErrBadEdge)
}

func TestApplyRejectsOutOfRangePos(t *testing.T) {
	g, edge := newTestEdge(t)
	u := NewUpdater(g)
	p := NewPredictor(g)

	_, err := u.Apply(edge, 20, -1, true)
	assert.ErrorIs(t, err, models.ErrBadPos)

	_, err = u.Apply(edge, 20, 100.1, true)
	assert.ErrorIs(t, err, models.ErrBadPos)

	// a rejected position must not have mutated the edge.
	got, err := p.Predict(edge)
	require.NoError(t, err)
	assert.Equal(t, 10.0, got)
}

func TestApplyAcceptsBoundaryPos(t *testing.T) {
	g, edge := newTestEdge(t)
	u := NewUpdater(g)

	_, err := u.Apply(edge, 20, 0, true)
	assert.NoError(t, err)

	_, err = u.Apply(edge, 20, 100, true)
	assert.NoError(t, err)
}

func TestPredictIdempotentWithoutUpdate(t *testing.T) {
	g, edge := newTestEdge(t)
	p := NewPredictor(g)

	first, err := p.Predict(edge)
	require.NoError(t, err)
	second, err := p.Predict(edge)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPredictRejectsBadEdge(t *testing.T) {
	g, _ := newTestEdge(t)
	p := NewPredictor(g)

	_, err := p.Predict(999)
	assert.ErrorIs(t, err, models.ErrBadEdge)
}
