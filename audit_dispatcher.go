package portalAuth

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// auditDispatcher hands events to the sink on a single worker goroutine so
// a slow sink never stalls a login or reset. A nil dispatcher discards
// events.
type auditDispatcher struct {
	sink   AuditSink
	logger *slog.Logger
	drop   bool

	queue chan AuditEvent
	stop  chan struct{}
	wg    sync.WaitGroup

	dropped     atomic.Uint64
	sinkPanics  atomic.Uint64
	warnedDrops atomic.Bool
	closed      atomic.Bool
	closeOnce   sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, logger *slog.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size <= 0 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	d := &auditDispatcher{
		sink:   sink,
		logger: logger,
		drop:   cfg.DropIfFull,
		queue:  make(chan AuditEvent, size),
		stop:   make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *auditDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.stop:
			d.drain()
			return
		}
	}
}

func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		default:
			return
		}
	}
}

// deliver isolates the worker from a panicking sink; the event is lost
// and counted.
func (d *auditDispatcher) deliver(event AuditEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.sinkPanics.Add(1)
			d.logger.Error("portalAuth: audit sink panicked", "event_type", event.EventType, "panic", r)
		}
	}()
	d.sink.Emit(context.Background(), event)
}

// Emit queues event. With DropIfFull a full queue drops the event and
// counts it; otherwise Emit waits for space, ctx or Close.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.closed.Load() {
		return
	}

	if d.drop {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.dropped.Add(1)
			if d.warnedDrops.CompareAndSwap(false, true) {
				d.logger.Warn("portalAuth: audit queue full, dropping events", "event_type", event.EventType)
			}
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ensureContext(ctx).Done():
	case <-d.stop:
	}
}

// Close delivers what is already queued and stops the worker. Later Emit
// calls are ignored.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// SinkPanics counts events lost to a panicking sink.
func (d *auditDispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.sinkPanics.Load()
}
