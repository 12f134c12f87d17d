package routing

import (
	"testing"

	"github.com/passbi/dynaroute/internal/graph"
	"github.com/stretchr/testify/assert"
)

func TestFastestStrategy(t *testing.T) {
	s := FastestStrategy{}

	t.Run("Name", func(t *testing.T) {
		assert.Equal(t, "fastest", s.Name())
	})

	t.Run("edge cost matches current travel time exactly", func(t *testing.T) {
		e := graph.Edge{CurrentTravelTime: 4.5, ObservationCount: 0}
		assert.Equal(t, 4.5, s.EdgeCost(e))
	})

	t.Run("ignores observation count", func(t *testing.T) {
		e := graph.Edge{CurrentTravelTime: 4.5, ObservationCount: 1000}
		assert.Equal(t, 4.5, s.EdgeCost(e))
	})
}

func TestCautiousStrategy(t *testing.T) {
	s := CautiousStrategy{}

	t.Run("Name", func(t *testing.T) {
		assert.Equal(t, "cautious", s.Name())
	})

	t.Run("full penalty at zero observations", func(t *testing.T) {
		e := graph.Edge{CurrentTravelTime: 10, ObservationCount: 0}
		assert.InDelta(t, 15.0, s.EdgeCost(e), 1e-9)
	})

	t.Run("no penalty at the confidence floor", func(t *testing.T) {
		e := graph.Edge{CurrentTravelTime: 10, ObservationCount: confidenceFloor}
		assert.Equal(t, 10.0, s.EdgeCost(e))
	})

	t.Run("no penalty beyond the confidence floor", func(t *testing.T) {
		e := graph.Edge{CurrentTravelTime: 10, ObservationCount: confidenceFloor * 10}
		assert.Equal(t, 10.0, s.EdgeCost(e))
	})
}

func TestGetStrategy(t *testing.T) {
	assert.Equal(t, "fastest", GetStrategy("fastest").Name())
	assert.Equal(t, "cautious", GetStrategy("cautious").Name())
	assert.Equal(t, "fastest", GetStrategy("unknown").Name(), "unrecognized names fall back to fastest")
	assert.Equal(t, "fastest", GetStrategy("").Name())
}
