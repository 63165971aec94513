package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config sizes the queue between request goroutines and the sink.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
	// Exclude lists event types that are never queued.
	Exclude []string
	// OnDrop runs on the emitting goroutine for every event that was not queued.
	OnDrop func(Event)
}

type pending struct {
	ctx   context.Context
	event Event
}

// Dispatcher hands events to a single worker that feeds the sink. A nil
// *Dispatcher is valid and discards everything.
type Dispatcher struct {
	sink       Sink
	exclude    map[string]struct{}
	dropIfFull bool
	onDrop     func(Event)
	dropped    atomic.Uint64

	// mu guards closed and the send side of queue. Emit holds it shared so
	// Close cannot close queue under a pending send.
	mu     sync.RWMutex
	closed bool
	queue  chan pending
	exited chan struct{}
}

func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	var exclude map[string]struct{}
	if len(cfg.Exclude) > 0 {
		exclude = make(map[string]struct{}, len(cfg.Exclude))
		for _, t := range cfg.Exclude {
			exclude[t] = struct{}{}
		}
	}

	d := &Dispatcher{
		sink:       sink,
		exclude:    exclude,
		dropIfFull: cfg.DropIfFull,
		onDrop:     cfg.OnDrop,
		queue:      make(chan pending, cfg.BufferSize),
		exited:     make(chan struct{}),
	}
	go d.work()
	return d
}

func (d *Dispatcher) work() {
	defer close(d.exited)
	for p := range d.queue {
		d.sink.Emit(p.ctx, p.event)
	}
}

// Emit queues event. The sink sees ctx's values but never its cancellation.
// When the queue is full Emit drops the event under DropIfFull, otherwise it
// waits for room or for ctx to end.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if _, skip := d.exclude[event.EventType]; skip {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	p := pending{ctx: context.WithoutCancel(ctx), event: event}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- p:
		default:
			d.drop(event)
		}
		return
	}

	select {
	case d.queue <- p:
	case <-ctx.Done():
		d.drop(event)
	}
}

func (d *Dispatcher) drop(event Event) {
	d.dropped.Add(1)
	if d.onDrop != nil {
		d.onDrop(event)
	}
}

// Close stops accepting events and returns once the sink has seen every queued
// one. Later calls return immediately.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	<-d.exited
}

// Dropped counts events lost to a full queue or a cancelled wait.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
