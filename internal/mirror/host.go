package mirror

import (
	"context"
	"sync"
)

// Host is the remote side of the mirror. Implementations issue protocol
// commands; the resulting mutation events arrive separately and are fed to
// the Synchronizer by the caller.
type Host interface {
	GetDocument(ctx context.Context, depth int, pierce bool) (*Payload, error)
	RequestChildNodes(ctx context.Context, id NodeID, depth int, pierce bool) error
	GetAttributes(ctx context.Context, id NodeID) ([]string, error)
	GetOuterHTML(ctx context.Context, id NodeID) (string, error)
	ResolveNode(ctx context.Context, id NodeID, objectGroup string) (string, error)
	PushNodesByBackendIDs(ctx context.Context, ids []BackendNodeID) ([]NodeID, error)
}

// Future is the result of an asynchronous mirror request. It resolves
// exactly once.
type Future[T any] struct {
	once sync.Once
	done chan struct{}
	val  T
	err  error
}

// NewFuture returns an unresolved future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that is already resolved.
func Resolved[T any](val T, err error) *Future[T] {
	f := NewFuture[T]()
	f.Resolve(val, err)
	return f
}

// Resolve sets the result. Only the first call has an effect.
func (f *Future[T]) Resolve(val T, err error) {
	f.once.Do(func() {
		f.val, f.err = val, err
		close(f.done)
	})
}

// Done is closed once the future is resolved.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Await blocks until the future resolves or ctx is done.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
