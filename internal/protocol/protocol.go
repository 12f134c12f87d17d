// Package protocol implements the line-oriented wire format: a text
// framing (REQ/UPD/PRED) and an equivalent JSON framing, sniffed from
// the first non-whitespace byte of each line. Parsing turns a line
// into a queue.Task ready to push onto the appropriate queue;
// formatting turns a completed Task's result back into a response line
// in whichever framing the request arrived in.
//
// Real deployments of this protocol are known to exhibit both framings
// across different client versions, so both are implemented here
// rather than picking one.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/passbi/dynaroute/internal/models"
	"github.com/passbi/dynaroute/internal/queue"
)

// Framing is an alias for queue.Framing: protocol and queue must agree
// on the same representation so a Task can carry how it arrived
// without the two packages importing each other.
type Framing = queue.Framing

const (
	FramingText = queue.FramingText
	FramingJSON = queue.FramingJSON
)

// Sniff inspects the first non-whitespace byte of line to decide its
// framing: '{' means JSON, anything else means text.
func Sniff(line []byte) Framing {
	for _, b := range line {
		switch b {
		case ' ', '\t':
			continue
		case '{':
			return FramingJSON
		default:
			return FramingText
		}
	}
	return FramingText
}

// routeRequestJSON mirrors the JSON routing request shape. UserID/
// CarID/Timestamp are accepted and ignored by the core; they exist
// only because some clients send them.
type routeRequestJSON struct {
	UserID          string `json:"user_id"`
	CarID           string `json:"car_id"`
	StartNode       int    `json:"start_node"`
	DestinationNode int    `json:"destination_node"`
	Strategy        string `json:"strategy"`
	Timestamp       int64  `json:"timestamp"`
}

// updateRequestJSON mirrors the JSON traffic-update request shape.
type updateRequestJSON struct {
	UserID         string  `json:"user_id"`
	CarID          string  `json:"car_id"`
	Timestamp      int64   `json:"timestamp"`
	EdgeID         int     `json:"edge_id"`
	PositionOnEdge float64 `json:"position_on_edge"`
	Speed          float64 `json:"speed"`
}

// predictRequestJSON mirrors a JSON prediction request. The spec does
// not give this one a dedicated field set (only routing and update are
// shown), so it follows the same shape with an edge_id field.
type predictRequestJSON struct {
	EdgeID int `json:"edge_id"`
}

// ParseLine parses one request line (already split on LF; surrounding
// whitespace, including a trailing CR, is trimmed here) into a Task and
// the framing it arrived in. A
// nil Task with a non-nil error means the line never reaches a worker;
// the caller must format and send the error directly.
func ParseLine(line string) (*queue.Task, Framing, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, FramingText, models.ErrEmptyLine
	}

	framing := Sniff([]byte(trimmed))
	var task *queue.Task
	var err error
	if framing == FramingJSON {
		task, err = parseJSON(trimmed)
	} else {
		task, err = parseText(trimmed)
	}
	if task != nil {
		task.Framing = framing
	}
	return task, framing, err
}

func parseText(line string) (*queue.Task, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil, models.ErrEmptyLine
	}

	switch strings.ToUpper(fields[0]) {
	case "REQ":
		if len(fields) != 3 && len(fields) != 4 {
			return nil, models.ErrUnknownCmd
		}
		src, err1 := strconv.Atoi(fields[1])
		dst, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Route)
		task.Start = src
		task.Target = dst
		if len(fields) == 4 {
			task.Strategy = fields[3]
		}
		return task, nil

	case "UPD":
		if len(fields) != 3 && len(fields) != 4 {
			return nil, models.ErrUnknownCmd
		}
		edge, err1 := strconv.Atoi(fields[1])
		speed, err2 := strconv.ParseFloat(fields[2], 64)
		if err1 != nil || err2 != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Update)
		task.EdgeID = edge
		task.Speed = speed
		if len(fields) == 4 {
			pos, err3 := strconv.ParseFloat(fields[3], 64)
			if err3 != nil {
				return nil, models.ErrUnknownCmd
			}
			task.Pos = pos
			task.HasPos = true
		}
		return task, nil

	case "PRED":
		if len(fields) != 2 {
			return nil, models.ErrUnknownCmd
		}
		edge, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Predict)
		task.EdgeID = edge
		return task, nil

	default:
		return nil, models.ErrUnknownCmd
	}
}

func parseJSON(line string) (*queue.Task, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &probe); err != nil {
		return nil, models.ErrUnknownCmd
	}

	switch {
	case has(probe, "start_node", "destination_node"):
		var req routeRequestJSON
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Route)
		task.Start = req.StartNode
		task.Target = req.DestinationNode
		task.Strategy = req.Strategy
		return task, nil

	case has(probe, "edge_id", "speed"):
		var req updateRequestJSON
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Update)
		task.EdgeID = req.EdgeID
		task.Speed = req.Speed
		if has(probe, "edge_id", "speed", "position_on_edge") {
			task.Pos = req.PositionOnEdge
			task.HasPos = true
		}
		return task, nil

	case has(probe, "edge_id"):
		var req predictRequestJSON
		if err := json.Unmarshal([]byte(line), &req); err != nil {
			return nil, models.ErrUnknownCmd
		}
		task := queue.New(queue.Predict)
		task.EdgeID = req.EdgeID
		return task, nil

	default:
		return nil, models.ErrUnknownCmd
	}
}

func has(obj map[string]json.RawMessage, keys ...string) bool {
	for _, k := range keys {
		if _, ok := obj[k]; !ok {
			return false
		}
	}
	return true
}

// FormatRoute renders a successful REQ result.
func FormatRoute(framing Framing, cost float64, nodePath, edgePath []int) string {
	if framing == FramingJSON {
		b, _ := json.Marshal(struct {
			RouteEdges []int   `json:"route_edges"`
			ETA        float64 `json:"eta"`
		}{RouteEdges: edgePath, ETA: cost})
		return string(b)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "ROUTE2 %.3f %d", cost, len(nodePath))
	for _, n := range nodePath {
		fmt.Fprintf(&b, " %d", n)
	}
	fmt.Fprintf(&b, " %d", len(edgePath))
	for _, e := range edgePath {
		fmt.Fprintf(&b, " %d", e)
	}
	return b.String()
}

// FormatAck renders a successful UPD result.
func FormatAck(framing Framing) string {
	if framing == FramingJSON {
		b, _ := json.Marshal(struct {
			Status string `json:"status"`
		}{Status: "ACK"})
		return string(b)
	}
	return "ACK"
}

// FormatPredict renders a successful PRED result.
func FormatPredict(framing Framing, edgeID int, value float64) string {
	if framing == FramingJSON {
		b, _ := json.Marshal(struct {
			EdgeID int     `json:"edge_id"`
			ETA    float64 `json:"eta"`
		}{EdgeID: edgeID, ETA: value})
		return string(b)
	}
	return fmt.Sprintf("PRED %d %.3f", edgeID, value)
}

// FormatError renders err as a response line, mapping known sentinel
// errors to their wire code and falling back to INTERNAL for anything
// unrecognized, so every error reaches the client as exactly one
// response line and a worker never dies silently.
func FormatError(framing Framing, err error) string {
	code := errorCode(err)
	if framing == FramingJSON {
		b, _ := json.Marshal(struct {
			Error string `json:"error"`
		}{Error: code})
		return string(b)
	}
	return "ERR " + code
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, models.ErrEmptyLine):
		return "EMPTY"
	case errors.Is(err, models.ErrUnknownCmd):
		return "UNKNOWN_CMD"
	case errors.Is(err, models.ErrBadNode):
		return "BAD_NODES"
	case errors.Is(err, models.ErrBadEdge):
		return "BAD_EDGE"
	case errors.Is(err, models.ErrBadSpeed):
		return "BAD_SPEED"
	case errors.Is(err, models.ErrBadPos):
		return "BAD_POS"
	case errors.Is(err, models.ErrNoRoute):
		return "NO_ROUTE"
	case errors.Is(err, models.ErrRouteFail):
		return "ROUTE_FAIL"
	default:
		return "INTERNAL"
	}
}
