package loader

import (
	"errors"
	"sync"
)

// ErrFutureNotReady is returned by Future.Result before the future has been resolved by Loader.Poll.
var ErrFutureNotReady = errors.New("loader: future not ready")

// Progress reports how far a load task has come. Total is 0 when the size is unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// ProgressFunc is handed to a task so it can report progress from its worker goroutine.
type ProgressFunc func(loaded, total int64)

// Future is the eventual result of a load task.
// The task itself runs on a worker, but the result only becomes visible, and continuations and
// progress callbacks only run, when the owning Loader is polled on the main thread.
type Future[T any] struct {
	mu sync.Mutex

	owner *loader
	label string

	resolved bool
	value    T
	err      error

	continuations []func(T, error)
	onProgress    []func(Progress)
	progress      Progress
}

func newFuture[T any](owner *loader, label string) *Future[T] {
	return &Future[T]{owner: owner, label: label}
}

// Label returns the name the future was submitted with.
func (f *Future[T]) Label() string {
	return f.label
}

// Ready reports whether the result has been delivered by Loader.Poll.
func (f *Future[T]) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.resolved
}

// Result returns the task result once the future is ready.
//
// Returns:
//   - T: the task value, zero if the task failed
//   - error: ErrFutureNotReady before Poll delivered the result, otherwise the task error
func (f *Future[T]) Result() (T, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.resolved {
		var zero T
		return zero, ErrFutureNotReady
	}
	return f.value, f.err
}

// Progress returns the last progress delivered by Loader.Poll.
func (f *Future[T]) Progress() Progress {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.progress
}

// Then registers fn to run on the main thread with the result.
// Continuations run in registration order during the Poll that resolves the future.
// Registering on an already resolved future schedules fn for the next Poll.
//
// Parameters:
//   - fn: the continuation receiving the value and error
//
// Returns:
//   - *Future[T]: f, for chaining
func (f *Future[T]) Then(fn func(T, error)) *Future[T] {
	if fn == nil {
		return f
	}
	f.mu.Lock()
	if !f.resolved {
		f.continuations = append(f.continuations, fn)
		f.mu.Unlock()
		return f
	}
	value, err := f.value, f.err
	f.mu.Unlock()

	f.owner.enqueue(func() { fn(value, err) })
	return f
}

// OnProgress registers fn to receive progress reports on the main thread.
func (f *Future[T]) OnProgress(fn func(Progress)) *Future[T] {
	if fn == nil {
		return f
	}
	f.mu.Lock()
	f.onProgress = append(f.onProgress, fn)
	f.mu.Unlock()
	return f
}

// resolve is called from Poll.
func (f *Future[T]) resolve(value T, err error) {
	f.mu.Lock()
	f.resolved = true
	f.value = value
	f.err = err
	continuations := f.continuations
	f.continuations = nil
	f.mu.Unlock()

	for _, fn := range continuations {
		fn(value, err)
	}
}

// report is called from Poll.
func (f *Future[T]) report(p Progress) {
	f.mu.Lock()
	f.progress = p
	callbacks := append(([]func(Progress))(nil), f.onProgress...)
	f.mu.Unlock()

	for _, fn := range callbacks {
		fn(p)
	}
}

// Map derives a future whose value is fn applied to f's value on the main thread.
// An error from f is passed through without calling fn.
//
// Parameters:
//   - f: the source future
//   - fn: the conversion
//
// Returns:
//   - *Future[U]: resolved in the same Poll as f
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := newFuture[U](f.owner, f.label)
	f.Then(func(v T, err error) {
		if err != nil {
			var zero U
			out.resolve(zero, err)
			return
		}
		u, err := fn(v)
		out.resolve(u, err)
	})
	return out
}
