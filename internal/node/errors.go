package node

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an id is not in the registry.
	ErrNodeNotFound = errors.New("node not found")
	// ErrNodesLimitReached is returned when the provider is at capacity.
	ErrNodesLimitReached = errors.New("nodes limit reached")
	// ErrNodeUnreachable is returned when a registered node does not answer.
	ErrNodeUnreachable = errors.New("node unreachable")
	// ErrNotImplemented is returned by backends that are not available yet.
	ErrNotImplemented = errors.New("not implemented")
)

// NodeError attaches a node id to an error.
type NodeError struct {
	NodeID string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q: %v", e.NodeID, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// Gone reports whether err means the node can no longer host its game.
func Gone(err error) bool {
	return errors.Is(err, ErrNodeNotFound) || errors.Is(err, ErrNodeUnreachable)
}
