package analytics

import (
	"sync/atomic"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
)

// EventBuffer queues a keyed event for asynchronous publication.
// *kafka.Batcher satisfies it.
type EventBuffer interface {
	Add(key string, value any)
}

// Collector is the matcher.EventSink that ships match events to the event
// topic. It never blocks row processing: delivery and back-pressure are the
// buffer's concern.
type Collector struct {
	buffer  EventBuffer
	tracked atomic.Int64
}

func NewCollector(buffer EventBuffer) *Collector {
	return &Collector{buffer: buffer}
}

// Track implements matcher.EventSink.
func (c *Collector) Track(ev matcher.Event) {
	c.buffer.Add(EventKey(ev), ev)
	c.tracked.Add(1)
}

// Tracked returns the number of events handed to the buffer.
func (c *Collector) Tracked() int64 {
	return c.tracked.Load()
}

// EventKey partitions events by request so that the rows of one request stay
// ordered. Events outside a request are keyed by status.
func EventKey(ev matcher.Event) string {
	if ev.RequestID != "" {
		return ev.RequestID
	}
	return string(ev.Status)
}
