package models

import "errors"

// Domain errors returned by the graph, router and traffic updater. The
// protocol layer maps these onto wire response codes with errors.Is, so
// callers are free to wrap them with fmt.Errorf("...: %w", err).
var (
	ErrGraphNotLoaded = errors.New("graph not loaded")
	ErrBadNode        = errors.New("node id out of range")
	ErrBadEdge        = errors.New("edge id out of range")
	ErrBadSpeed       = errors.New("speed must be positive")
	ErrBadPos         = errors.New("position out of range")
	ErrNoCoords       = errors.New("node coordinates were never set")
	ErrNoRoute        = errors.New("no route between nodes")
	ErrRouteFail      = errors.New("route reconstruction failed")

	// Protocol-level errors: the line parsed but was not a recognized
	// command, or there was nothing to parse. These never reach a
	// worker; the handler responds without enqueuing a task.
	ErrUnknownCmd = errors.New("unknown command")
	ErrEmptyLine  = errors.New("empty line")
)
