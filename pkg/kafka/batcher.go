package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// BatchPublisher writes a batch of events. *Producer satisfies it.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []Event) error
}

// Batcher buffers events and publishes them when the buffer reaches the
// batch size or the flush interval elapses. Failed batches are re-queued up
// to three batches' worth; older events beyond that are dropped.
type Batcher struct {
	publisher     BatchPublisher
	mu            sync.Mutex
	flushMu       sync.Mutex
	buffer        []Event
	batchSize     int
	flushInterval time.Duration
	dropped       int64
	logger        *slog.Logger
	kick          chan struct{}
	done          chan struct{}
}

func NewBatcher(publisher BatchPublisher, batchSize int, flushInterval time.Duration) *Batcher {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = time.Second
	}
	return &Batcher{
		publisher:     publisher,
		buffer:        make([]Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		logger:        slog.Default().With("component", "kafka-batcher"),
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start launches the flush loop. A final flush runs when ctx is cancelled.
func (b *Batcher) Start(ctx context.Context) {
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(b.flushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				b.Flush(ctx)
			case <-b.kick:
				b.Flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				b.Flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	b.logger.Info("batcher started", "batch_size", b.batchSize, "flush_interval", b.flushInterval)
}

// Add buffers an event. It never blocks on the broker.
func (b *Batcher) Add(key string, value any) {
	b.mu.Lock()
	b.buffer = append(b.buffer, Event{Key: key, Value: value})
	full := len(b.buffer) >= b.batchSize
	b.mu.Unlock()
	if full {
		select {
		case b.kick <- struct{}{}:
		default:
		}
	}
}

// Flush publishes everything buffered so far.
func (b *Batcher) Flush(ctx context.Context) {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	b.mu.Lock()
	if len(b.buffer) == 0 {
		b.mu.Unlock()
		return
	}
	batch := b.buffer
	b.buffer = make([]Event, 0, b.batchSize)
	b.mu.Unlock()

	if err := b.publisher.PublishBatch(ctx, batch); err != nil {
		b.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		b.mu.Lock()
		b.buffer = append(batch, b.buffer...)
		if limit := b.batchSize * 3; len(b.buffer) > limit {
			n := len(b.buffer) - limit
			b.buffer = b.buffer[n:]
			b.dropped += int64(n)
			b.logger.Warn("buffer overflow, events dropped", "dropped", n)
		}
		b.mu.Unlock()
		return
	}
	b.logger.Debug("batch flushed", "events", len(batch))
}

// Len returns the number of buffered events.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buffer)
}

// Dropped returns the number of events discarded after failed flushes.
func (b *Batcher) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close waits for the flush loop to exit.
func (b *Batcher) Close() {
	<-b.done
}
