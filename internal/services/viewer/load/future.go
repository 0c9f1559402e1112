// Package load exposes asset loader results as futures the tick loop polls.
package load

import "sync"

// Future is the eventual result of one load. It resolves exactly once.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T
	err   error
}

// Resolve completes a future created by NewPromise. Only the first call has
// an effect.
type Resolve[T any] func(value T, err error)

// NewPromise returns an unresolved future and its resolver.
func NewPromise[T any]() (*Future[T], Resolve[T]) {
	f := &Future[T]{done: make(chan struct{})}
	return f, f.resolve
}

// Resolved returns an already completed future.
func Resolved[T any](value T, err error) *Future[T] {
	f, resolve := NewPromise[T]()
	resolve(value, err)
	return f
}

func (f *Future[T]) resolve(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Poll returns the result without blocking; ready is false until resolution.
func (f *Future[T]) Poll() (value T, ready bool, err error) {
	select {
	case <-f.done:
		return f.value, true, f.err
	default:
		var zero T
		return zero, false, nil
	}
}
