package runtime

import (
	"errors"
	"fmt"
)

// ProtocolError reports a runtime protocol violation on one node, such as a
// classical message of the wrong shape or an exhausted comm-qubit pool. It
// is fatal for the owning node; sibling nodes are not interrupted.
type ProtocolError struct {
	Node string
	msg  string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error on %s: %s", e.Node, e.msg)
}

// Protocolf builds a ProtocolError for node.
func Protocolf(node, format string, args ...any) *ProtocolError {
	return &ProtocolError{Node: node, msg: fmt.Sprintf(format, args...)}
}

// IsProtocol reports whether err is (or wraps) a ProtocolError.
func IsProtocol(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
