package plugin

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/posewall/internal/game"
)

// DefaultQueueSize is the number of events a Dispatcher buffers.
const DefaultQueueSize = 32

// Dispatcher runs plugins for game events on its own goroutine so the game
// loop never waits on a subprocess. Events that arrive while the queue is
// full are dropped.
type Dispatcher struct {
	mgr   *Manager
	exec  *Executor
	log   logrus.FieldLogger
	queue chan game.Event

	mu      sync.Mutex
	closed  bool
	running bool
	done    chan struct{}
	results func(*Plugin, game.Event, *Response, error)
}

// NewDispatcher creates a Dispatcher. Call Run to start delivering.
func NewDispatcher(mgr *Manager, exec *Executor, log logrus.FieldLogger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		mgr:   mgr,
		exec:  exec,
		log:   log,
		queue: make(chan game.Event, queueSize),
		done:  make(chan struct{}),
	}
}

// OnResult registers a callback invoked after every plugin run.
func (d *Dispatcher) OnResult(fn func(*Plugin, game.Event, *Response, error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = fn
}

// Dispatch queues ev. It never blocks and reports whether ev was queued.
func (d *Dispatcher) Dispatch(ev game.Event) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- ev:
		return true
	default:
		d.log.WithField("event", ev.Type).Warn("plugin queue full, dropping event")
		return false
	}
}

// Run delivers queued events until ctx ends or Close is called. Run must
// be called at most once.
func (d *Dispatcher) Run(ctx context.Context) {
	d.mu.Lock()
	d.running = true
	d.mu.Unlock()
	defer close(d.done)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, ev)
		}
	}
}

// Close stops accepting events and, if Run is active, waits for it to drain
// the queue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	running := d.running
	d.mu.Unlock()
	if running {
		<-d.done
	}
}

func (d *Dispatcher) deliver(ctx context.Context, ev game.Event) {
	for _, p := range d.mgr.ForEvent(string(ev.Type)) {
		req := &Request{
			Event:      string(ev.Type),
			Round:      ev.Round,
			Score:      ev.Score,
			Lives:      ev.Lives,
			Similarity: ev.Similarity,
			Template:   ev.Template,
			Config:     p.Manifest.Config,
		}

		resp, err := d.exec.Execute(ctx, p, req)
		entry := d.log.WithFields(logrus.Fields{"plugin": p.Manifest.Name, "event": ev.Type})
		switch {
		case err != nil:
			entry.WithError(err).Warn("plugin failed")
		case !resp.Success:
			entry.WithField("error", resp.Error).Warn("plugin reported failure")
		default:
			entry.Debug("plugin ran")
		}

		d.mu.Lock()
		fn := d.results
		d.mu.Unlock()
		if fn != nil {
			fn(p, ev, resp, err)
		}
	}
}
