package protocol

import (
	"testing"

	"github.com/passbi/dynaroute/internal/models"
	"github.com/passbi/dynaroute/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLineText(t *testing.T) {
	t.Run("REQ", func(t *testing.T) {
		task, framing, err := ParseLine("REQ 0 2")
		require.NoError(t, err)
		assert.Equal(t, FramingText, framing)
		assert.Equal(t, queue.Route, task.Kind)
		assert.Equal(t, 0, task.Start)
		assert.Equal(t, 2, task.Target)
	})

	t.Run("UPD without position", func(t *testing.T) {
		task, _, err := ParseLine("UPD 0 5")
		require.NoError(t, err)
		assert.Equal(t, queue.Update, task.Kind)
		assert.Equal(t, 0, task.EdgeID)
		assert.Equal(t, 5.0, task.Speed)
		assert.False(t, task.HasPos)
	})

	t.Run("UPD with position", func(t *testing.T) {
		task, _, err := ParseLine("UPD 3 12.5 0.75")
		require.NoError(t, err)
		assert.True(t, task.HasPos)
		assert.Equal(t, 0.75, task.Pos)
	})

	t.Run("PRED", func(t *testing.T) {
		task, _, err := ParseLine("PRED 1")
		require.NoError(t, err)
		assert.Equal(t, queue.Predict, task.Kind)
		assert.Equal(t, 1, task.EdgeID)
	})

	t.Run("trailing CR tolerated", func(t *testing.T) {
		task, _, err := ParseLine("REQ 0 2\r")
		require.NoError(t, err)
		assert.Equal(t, 2, task.Target)
	})

	t.Run("empty line", func(t *testing.T) {
		_, _, err := ParseLine("")
		assert.ErrorIs(t, err, models.ErrEmptyLine)
	})

	t.Run("whitespace only", func(t *testing.T) {
		_, _, err := ParseLine("   ")
		assert.ErrorIs(t, err, models.ErrEmptyLine)
	})

	t.Run("unknown command", func(t *testing.T) {
		_, _, err := ParseLine("FROB 1 2")
		assert.ErrorIs(t, err, models.ErrUnknownCmd)
	})

	t.Run("malformed numeric field", func(t *testing.T) {
		_, _, err := ParseLine("REQ zero two")
		assert.ErrorIs(t, err, models.ErrUnknownCmd)
	})

	t.Run("wrong arity", func(t *testing.T) {
		_, _, err := ParseLine("REQ 0")
		assert.ErrorIs(t, err, models.ErrUnknownCmd)
	})
}

func TestParseLineJSON(t *testing.T) {
	t.Run("routing request", func(t *testing.T) {
		task, framing, err := ParseLine(`{"user_id":"u1","car_id":"c1","start_node":0,"destination_node":2,"timestamp":1}`)
		require.NoError(t, err)
		assert.Equal(t, FramingJSON, framing)
		assert.Equal(t, queue.Route, task.Kind)
		assert.Equal(t, 0, task.Start)
		assert.Equal(t, 2, task.Target)
	})

	t.Run("update request", func(t *testing.T) {
		task, framing, err := ParseLine(`{"user_id":"u1","car_id":"c1","timestamp":1,"edge_id":3,"position_on_edge":0.5,"speed":12.5}`)
		require.NoError(t, err)
		assert.Equal(t, FramingJSON, framing)
		assert.Equal(t, queue.Update, task.Kind)
		assert.Equal(t, 3, task.EdgeID)
		assert.Equal(t, 12.5, task.Speed)
		assert.True(t, task.HasPos)
	})

	t.Run("update request without position", func(t *testing.T) {
		task, _, err := ParseLine(`{"edge_id":3,"speed":12.5}`)
		require.NoError(t, err)
		assert.Equal(t, queue.Update, task.Kind)
		assert.False(t, task.HasPos)
	})

	t.Run("leading whitespace still sniffs as JSON", func(t *testing.T) {
		_, framing, err := ParseLine(`  {"edge_id": 1}`)
		require.NoError(t, err)
		assert.Equal(t, FramingJSON, framing)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, _, err := ParseLine(`{not json`)
		assert.ErrorIs(t, err, models.ErrUnknownCmd)
	})
}

func TestFormatRouteText(t *testing.T) {
	got := FormatRoute(FramingText, 3.0, []int{0, 1, 2}, []int{0, 1})
	assert.Equal(t, "ROUTE2 3.000 3 0 1 2 2 0 1", got)
}

func TestFormatRouteSameNode(t *testing.T) {
	got := FormatRoute(FramingText, 0, []int{0}, []int{})
	assert.Equal(t, "ROUTE2 0.000 1 0 0", got)
}

func TestFormatAckText(t *testing.T) {
	assert.Equal(t, "ACK", FormatAck(FramingText))
}

func TestFormatPredictText(t *testing.T) {
	assert.Equal(t, "PRED 0 2.000", FormatPredict(FramingText, 0, 2.0))
}

func TestFormatErrorMapsSentinels(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{models.ErrEmptyLine, "ERR EMPTY"},
		{models.ErrUnknownCmd, "ERR UNKNOWN_CMD"},
		{models.ErrBadNode, "ERR BAD_NODES"},
		{models.ErrBadEdge, "ERR BAD_EDGE"},
		{models.ErrBadSpeed, "ERR BAD_SPEED"},
		{models.ErrBadPos, "ERR BAD_POS"},
		{models.ErrNoRoute, "ERR NO_ROUTE"},
		{models.ErrRouteFail, "ERR ROUTE_FAIL"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, FormatError(FramingText, c.err))
	}
}

func TestFormatErrorFallsBackToInternal(t *testing.T) {
	assert.Equal(t, "ERR INTERNAL", FormatError(FramingText, assertUnknownErr{}))
}

type assertUnknownErr struct{}

func (assertUnknownErr) Error() string { return "boom" }
