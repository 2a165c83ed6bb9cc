package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/safar/artisan-storefront/internal/database"
	"go.uber.org/zap"
)

// writer mirrors one store's collection into the key-value store from a
// single goroutine. Snapshots that arrive while a write is in flight
// coalesce, so after Flush the durable copy equals the last snapshot taken.
type writer struct {
	kv     database.KV
	key    string
	logger *zap.Logger

	mu      sync.Mutex
	pending *string

	wake      chan struct{}
	flushes   chan chan struct{}
	stop      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newWriter(kv database.KV, key string, logger *zap.Logger) *writer {
	w := &writer{
		kv:      kv,
		key:     key,
		logger:  logger.With(zap.String("key", key)),
		wake:    make(chan struct{}, 1),
		flushes: make(chan chan struct{}),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go w.run()
	return w
}

// save serializes v and schedules it. Callers hold their store's lock so
// snapshots are enqueued in mutation order.
func (w *writer) save(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.logger.Error("persist snapshot",
			zap.Error(&database.PersistenceError{Op: "encode", Key: w.key, Err: err}))
		return
	}

	snapshot := string(data)
	w.mu.Lock()
	// Checked under mu: the final drain takes mu after stop is closed, so
	// anything accepted here is still written.
	select {
	case <-w.stop:
		w.mu.Unlock()
		w.logger.Warn("snapshot dropped, writer closed")
		return
	default:
	}
	w.pending = &snapshot
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.stopped)

	for {
		select {
		case <-w.wake:
			w.drain()
		case ack := <-w.flushes:
			w.drain()
			close(ack)
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *writer) drain() {
	for {
		w.mu.Lock()
		snapshot := w.pending
		w.pending = nil
		w.mu.Unlock()

		if snapshot == nil {
			return
		}

		if err := w.kv.Set(context.Background(), w.key, *snapshot); err != nil {
			w.logger.Error("persist snapshot", zap.Error(err))
			continue
		}
		w.logger.Debug("snapshot persisted", zap.Int("bytes", len(*snapshot)))
	}
}

// Flush blocks until every snapshot scheduled before the call is written or
// has failed.
func (w *writer) Flush(ctx context.Context) error {
	ack := make(chan struct{})

	select {
	case w.flushes <- ack:
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *writer) Close(ctx context.Context) error {
	w.closeOnce.Do(func() { close(w.stop) })

	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
