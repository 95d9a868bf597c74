package mirror

import "errors"

var (
	// ErrNoDocument is returned when a request needs a document and the
	// mirror has none.
	ErrNoDocument = errors.New("mirror: no document")

	// ErrNodeRemoved is returned when a host response arrives for a node
	// that left the mirror while the request was in flight.
	ErrNodeRemoved = errors.New("mirror: node removed")

	// ErrUnknownNode is returned when a request references an id that is
	// not in the mirror.
	ErrUnknownNode = errors.New("mirror: unknown node")
)
