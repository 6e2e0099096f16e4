// Package loader runs resource I/O on a worker pool and hands results back to the main thread.
// Nothing a task produces touches the world until Poll is called, which the System does once per
// frame in the Load stage.
package loader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/rhodonite-go/common"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer"
	"github.com/Carmen-Shannon/rhodonite-go/engine/renderer/texture"
	"go.uber.org/zap"
)

// loader is the implementation of the Loader interface.
type loader struct {
	mu sync.Mutex

	pool        worker.DynamicWorkerPool
	workers     int
	queueSize   int
	idleTimeout time.Duration

	logger *zap.Logger
	repo   renderer.CGAPIResourceRepository

	nextID     int
	running    int
	unresolved int
	queue      []func()

	textures map[string]*textureLoad
}

type textureLoad struct {
	texture *texture.Texture
	future  *Future[*texture.Texture]
}

// Loader schedules load tasks and delivers their results when polled.
type Loader interface {
	// LoadTexture decodes a PNG or JPEG file off the main thread.
	// The returned texture is not ready; after the Poll that resolves the future it holds the
	// decoded pixels and, when a resource repository is set, has been uploaded.
	// Repeated calls with the same path return the same texture and future.
	//
	// Parameters:
	//   - path: the image file
	//
	// Returns:
	//   - *texture.Texture: the placeholder record, usable in materials immediately
	//   - *Future[*texture.Texture]: resolves to the same texture
	LoadTexture(path string) (*texture.Texture, *Future[*texture.Texture])

	// LoadTextureData decodes encoded PNG or JPEG bytes off the main thread.
	//
	// Parameters:
	//   - name: texture label
	//   - data: encoded image bytes, not retained after decoding
	//
	// Returns:
	//   - *texture.Texture: the placeholder record
	//   - *Future[*texture.Texture]: resolves to the same texture
	LoadTextureData(name string, data []byte) (*texture.Texture, *Future[*texture.Texture])

	// Poll runs, on the calling goroutine, every continuation and progress callback queued by
	// finished tasks. Callbacks queued while polling run on the next call.
	//
	// Returns:
	//   - int: the number of callbacks run
	Poll() int

	// Pending returns the number of submitted tasks whose futures have not been resolved yet.
	Pending() int

	// Wait blocks until no task is executing on a worker. Results still need a Poll.
	//
	// Parameters:
	//   - ctx: bounds the wait
	//
	// Returns:
	//   - error: ctx.Err() if ctx ends first
	Wait(ctx context.Context) error

	// SetResourceRepository sets the repository textures are uploaded to when their future resolves.
	SetResourceRepository(repo renderer.CGAPIResourceRepository)

	base() *loader
}

var _ Loader = &loader{}

// NewLoader creates a new Loader with the options applied.
//
// Parameters:
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new Loader with an idle worker pool
func NewLoader(options ...LoaderBuilderOption) Loader {
	l := &loader{
		workers:     4,
		queueSize:   256,
		idleTimeout: 1 * time.Second,
		logger:      zap.NewNop(),
		textures:    make(map[string]*textureLoad),
	}

	for _, option := range options {
		option(l)
	}

	l.workers = max(l.workers, 1)
	l.queueSize = max(l.queueSize, 1)
	l.pool = worker.NewDynamicWorkerPool(l.workers, l.queueSize, l.idleTimeout)
	return l
}

// Submit runs task on the loader's worker pool.
// The task may call report from its goroutine; reports are delivered to OnProgress callbacks on Poll.
// A panicking task resolves its future with an error.
//
// Parameters:
//   - l: the loader
//   - label: a name for logs and Future.Label
//   - task: the work to run off the main thread
//
// Returns:
//   - *Future[T]: resolved by the first Poll after the task finishes
func Submit[T any](l Loader, label string, task func(report ProgressFunc) (T, error)) *Future[T] {
	ld := l.base()
	f := newFuture[T](ld, label)

	ld.mu.Lock()
	id := ld.nextID
	ld.nextID++
	ld.running++
	ld.unresolved++
	ld.mu.Unlock()

	report := func(loaded, total int64) {
		p := Progress{Loaded: loaded, Total: total}
		ld.enqueue(func() { f.report(p) })
	}

	ld.pool.SubmitTask(worker.Task{
		ID: id,
		Do: func() (any, error) {
			value, err := runTask(task, report)
			ld.enqueue(func() {
				ld.mu.Lock()
				ld.unresolved--
				ld.mu.Unlock()
				if err != nil {
					ld.logger.Debug("load task failed", zap.String("label", label), zap.Error(err))
				}
				f.resolve(value, err)
			})

			ld.mu.Lock()
			ld.running--
			ld.mu.Unlock()
			return nil, err
		},
	})
	return f
}

func runTask[T any](task func(ProgressFunc) (T, error), report ProgressFunc) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader: task panicked: %v", r)
		}
	}()
	return task(report)
}

func (l *loader) base() *loader {
	return l
}

func (l *loader) enqueue(fn func()) {
	l.mu.Lock()
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
}

func (l *loader) Poll() int {
	l.mu.Lock()
	queue := l.queue
	l.queue = nil
	l.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}

func (l *loader) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.unresolved
}

func (l *loader) Wait(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		l.mu.Lock()
		running := l.running
		l.mu.Unlock()
		if running == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *loader) SetResourceRepository(repo renderer.CGAPIResourceRepository) {
	l.mu.Lock()
	l.repo = repo
	l.mu.Unlock()
}

func (l *loader) resourceRepository() renderer.CGAPIResourceRepository {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.repo
}

func (l *loader) LoadTexture(path string) (*texture.Texture, *Future[*texture.Texture]) {
	return l.loadTexture(path, filepath.Base(path), func(report ProgressFunc) ([]byte, error) {
		return readWithProgress(path, report)
	})
}

func (l *loader) LoadTextureData(name string, data []byte) (*texture.Texture, *Future[*texture.Texture]) {
	return l.loadTexture("", name, func(report ProgressFunc) ([]byte, error) {
		report(int64(len(data)), int64(len(data)))
		return data, nil
	})
}

// loadTexture caches by key when key is non-empty.
func (l *loader) loadTexture(key, name string, read func(ProgressFunc) ([]byte, error)) (*texture.Texture, *Future[*texture.Texture]) {
	if key != "" {
		l.mu.Lock()
		if cached, ok := l.textures[key]; ok {
			l.mu.Unlock()
			return cached.texture, cached.future
		}
		l.mu.Unlock()
	}

	t := texture.NewTexture(name)
	decoded := Submit(l, name, func(report ProgressFunc) (*common.TextureStagingData, error) {
		data, err := read(report)
		if err != nil {
			return nil, err
		}
		return common.DecodeTextureStaging(name, data)
	})

	// runs inside Poll, so the texture is only ever mutated on the main thread
	future := Map(decoded, func(staging *common.TextureStagingData) (*texture.Texture, error) {
		t.SetStaging(staging)
		repo := l.resourceRepository()
		if repo == nil {
			return t, nil
		}
		if err := repo.CreateTexture(t); err != nil {
			l.logger.Error("texture upload failed", zap.String("texture", name), zap.Error(err))
			return t, fmt.Errorf("loader: upload %s: %w", name, err)
		}
		return t, nil
	})

	if key != "" {
		l.mu.Lock()
		l.textures[key] = &textureLoad{texture: t, future: future}
		l.mu.Unlock()
	}
	return t, future
}

// readWithProgress reads a whole file, reporting after each chunk.
func readWithProgress(path string, report ProgressFunc) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer file.Close()

	var total int64
	if info, err := file.Stat(); err == nil {
		total = info.Size()
	}

	data := make([]byte, 0, max(total, 512))
	chunk := make([]byte, 64*1024)
	for {
		n, err := file.Read(chunk)
		data = append(data, chunk[:n]...)
		if n > 0 {
			report(int64(len(data)), total)
		}
		if err == io.EOF {
			return data, nil
		}
		if err != nil {
			return nil, fmt.Errorf("loader: read %s: %w", path, err)
		}
	}
}
