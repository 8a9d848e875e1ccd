package analytics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/Product-Match-Engine/internal/product"
)

type keyed struct {
	key   string
	value any
}

type memoryBuffer struct {
	mu     sync.Mutex
	events []keyed
}

func (b *memoryBuffer) Add(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, keyed{key, value})
}

func TestCollectorKeysEvents(t *testing.T) {
	buf := &memoryBuffer{}
	c := NewCollector(buf)

	c.Track(matcher.Event{RequestID: "req-1", Status: product.StatusGood})
	c.Track(matcher.Event{Status: product.StatusSkipped})

	require.Len(t, buf.events, 2)
	assert.Equal(t, "req-1", buf.events[0].key)
	assert.Equal(t, "SKIPPED", buf.events[1].key)
	ev, ok := buf.events[0].value.(matcher.Event)
	require.True(t, ok)
	assert.Equal(t, product.StatusGood, ev.Status)
	assert.EqualValues(t, 2, c.Tracked())
}

func TestCollectorConcurrentTrack(t *testing.T) {
	buf := &memoryBuffer{}
	c := NewCollector(buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				c.Track(matcher.Event{Status: product.StatusNoMatch})
			}
		}()
	}
	wg.Wait()
	assert.Len(t, buf.events, 400)
	assert.EqualValues(t, 400, c.Tracked())
}
