package gateway

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerPerCommunityOrdering(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	var lk sync.Mutex
	seen := make(map[string][]string)
	var wg sync.WaitGroup

	sched := NewScheduler(4, slog.Default(), func(ctx context.Context, evt *Event) error {
		defer wg.Done()
		// jitter to tempt out-of-order execution
		time.Sleep(time.Millisecond)
		lk.Lock()
		seen[evt.CommunityID] = append(seen[evt.CommunityID], evt.Message.MessageID)
		lk.Unlock()
		return nil
	})

	communities := []string{"g1", "g2", "g3"}
	for i := 0; i < 20; i++ {
		for _, g := range communities {
			wg.Add(1)
			evt := &Event{
				Kind:        EventKindMessage,
				CommunityID: g,
				Message:     &MessageEvent{MessageID: string(rune('a' + i))},
			}
			assert.NoError(sched.AddWork(ctx, evt))
		}
	}
	wg.Wait()
	sched.Shutdown()

	for _, g := range communities {
		assert.Len(seen[g], 20)
		for i := 0; i < 20; i++ {
			assert.Equal(string(rune('a'+i)), seen[g][i], "events for %s out of order", g)
		}
	}
}
