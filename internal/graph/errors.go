package graph

import (
	"errors"
	"fmt"
)

var (
	ErrNoNodes          = errors.New("graph: no nodes")
	ErrTooManyNodes     = errors.New("graph: node capacity exceeded")
	ErrGraphNotReady    = errors.New("graph: not ready")
	ErrNodesNeedSorting = errors.New("graph: route offset does not fit a signed byte, nodes need sorting")
	ErrVersionMismatch  = errors.New("graph: file version mismatch")
)

// CapacityError reports a link pool limit hit while linking Node.
type CapacityError struct {
	Node  int
	Links int
	Limit int
	Pool  bool
}

func (e *CapacityError) Error() string {
	if e.Pool {
		return fmt.Sprintf("graph: link pool full (%d links, limit %d) while linking node %d", e.Links, e.Limit, e.Node)
	}
	return fmt.Sprintf("graph: node %d has %d links, limit %d", e.Node, e.Links, e.Limit)
}

// CompressionError names the row and offset that broke the route encoding.
type CompressionError struct {
	Hull   Hull
	Class  int
	From   int
	Next   int
	Offset int
}

func (e *CompressionError) Error() string {
	return fmt.Sprintf("graph: %s hull class %d node %d next hop %d offset %d out of range", e.Hull, e.Class, e.From, e.Next, e.Offset)
}

func (e *CompressionError) Unwrap() error {
	return ErrNodesNeedSorting
}
