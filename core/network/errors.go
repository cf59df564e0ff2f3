package network

import (
	"errors"
	"fmt"

	"github.com/kilianp07/frlm/core/model"
)

var (
	// ErrMissingArc indicates consecutive path nodes with no arc distance in
	// either direction.
	ErrMissingArc = errors.New("missing arc distance")
	// ErrNoPath indicates a route whose destination is unreachable.
	ErrNoPath = errors.New("no path between route endpoints")
	// ErrUnknownNode indicates a route or path referencing a node absent from
	// the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrInvalidTable indicates malformed node, arc, route or path rows.
	ErrInvalidTable = errors.New("invalid input table")
)

// MissingArcError names the node pair lacking a distance.
type MissingArcError struct {
	PathID model.RouteID
	From   model.NodeID
	To     model.NodeID
}

func (e *MissingArcError) Error() string {
	return fmt.Sprintf("path %s: no arc distance between nodes %d and %d", e.PathID, e.From, e.To)
}

func (e *MissingArcError) Unwrap() error { return ErrMissingArc }
