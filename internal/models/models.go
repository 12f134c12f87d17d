// Package models holds the data types shared across the routing service:
// load-time records produced by a Loader, and the sentinel errors that
// the protocol layer maps onto wire response codes.
package models

// NodeRecord is a single node as supplied by a Loader at graph construction
// time. Ids are expected to be dense in [0, numNodes).
type NodeRecord struct {
	ID int
	X  float64
	Y  float64
}

// EdgeRecord is a single directed edge as supplied by a Loader. Ids are
// expected to be dense in [0, numEdges).
type EdgeRecord struct {
	ID             int
	From           int
	To             int
	BaseLength     float64
	BaseSpeedLimit float64
}
