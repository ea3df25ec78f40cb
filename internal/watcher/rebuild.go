package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/conneroisu/stencil/internal/errors"
	"github.com/conneroisu/stencil/internal/logging"
)

// Builder is anything that can run a full build.
type Builder interface {
	Build(ctx context.Context) error
}

// BuildResult describes one finished rebuild.
type BuildResult struct {
	Err      error
	Duration time.Duration
	Changes  []ChangeEvent
}

// Succeeded reports whether the rebuild finished without error.
func (r BuildResult) Succeeded() bool {
	return r.Err == nil
}

// BuildListener is notified after every rebuild.
type BuildListener func(result BuildResult)

// Rebuilder serialises builds triggered by file changes. A failed build is
// logged and reported to listeners; it never stops the watcher.
type Rebuilder struct {
	builder   Builder
	logger    logging.Logger
	handler   *errors.ErrorHandler
	mutex     sync.Mutex
	listeners []BuildListener
	listenMu  sync.RWMutex
	builds    int
	failures  int
}

// NewRebuilder creates a rebuilder around builder.
func NewRebuilder(builder Builder, logger logging.Logger) *Rebuilder {
	if logger == nil {
		logger = logging.Discard()
	}
	logger = logger.WithComponent("watcher")
	return &Rebuilder{
		builder: builder,
		logger:  logger,
		handler: errors.NewErrorHandler(logger),
	}
}

// OnBuild registers a listener for rebuild outcomes.
func (r *Rebuilder) OnBuild(listener BuildListener) {
	r.listenMu.Lock()
	defer r.listenMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

// Rebuild runs one build while holding the rebuild lock and returns its
// outcome.
func (r *Rebuilder) Rebuild(ctx context.Context, changes []ChangeEvent) BuildResult {
	r.mutex.Lock()
	start := time.Now()
	err := r.builder.Build(ctx)
	result := BuildResult{Err: err, Duration: time.Since(start), Changes: changes}
	r.builds++
	if err != nil {
		r.failures++
	}
	r.mutex.Unlock()

	if err != nil {
		r.handler.Handle(ctx, err)
	} else {
		r.logger.Info(ctx, "Rebuilt site",
			"changes", len(changes),
			"duration_ms", result.Duration.Milliseconds())
	}

	r.listenMu.RLock()
	listeners := r.listeners
	r.listenMu.RUnlock()
	for _, listener := range listeners {
		listener(result)
	}

	return result
}

// Handler adapts the rebuilder to a ChangeHandler. It always returns nil so a
// failing build does not surface as a watcher error.
func (r *Rebuilder) Handler(ctx context.Context) ChangeHandler {
	return func(events []ChangeEvent) error {
		for _, event := range events {
			r.logger.Debug(ctx, "File changed", "path", event.Path, "type", event.Type.String())
		}
		r.Rebuild(ctx, events)
		return nil
	}
}

// Stats returns how many rebuilds ran and how many failed.
func (r *Rebuilder) Stats() (builds, failures int) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.builds, r.failures
}
