package windowstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemWindowStoreBasics(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemWindowStore(10 * time.Second)
	s.Now = func() time.Time { return now }

	c, err := s.Record(ctx, "g1/u1")
	assert.NoError(err)
	assert.Equal(1, c)

	for i := 0; i < 4; i++ {
		now = now.Add(time.Second)
		c, err = s.Record(ctx, "g1/u1")
		assert.NoError(err)
	}
	assert.Equal(5, c)

	// other keys are independent
	c, err = s.Count(ctx, "g1/u2")
	assert.NoError(err)
	assert.Equal(0, c)

	// advance past the window: everything expires
	now = now.Add(11 * time.Second)
	c, err = s.Count(ctx, "g1/u1")
	assert.NoError(err)
	assert.Equal(0, c)
}

func TestMemWindowStorePartialExpiry(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewMemWindowStore(10 * time.Second)
	s.Now = func() time.Time { return now }

	s.Record(ctx, "k")
	now = now.Add(8 * time.Second)
	s.Record(ctx, "k")
	now = now.Add(4 * time.Second)

	// first entry is 12s old, second is 4s old
	c, err := s.Count(ctx, "k")
	assert.NoError(err)
	assert.Equal(1, c)
}

func TestMemWindowStoreConcurrent(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	s := NewMemWindowStore(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Record(ctx, "shared")
			}
		}()
	}
	wg.Wait()

	c, err := s.Count(ctx, "shared")
	assert.NoError(err)
	assert.Equal(800, c)
}

func TestHistoryStoreCapAndWindow(t *testing.T) {
	assert := assert.New(t)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := NewHistoryStore(128, time.Minute, 3)
	s.Now = func() time.Time { return now }

	assert.Empty(s.Push("u", "one"))
	prev := s.Push("u", "two")
	assert.Len(prev, 1)
	assert.Equal("one", prev[0].Body)

	s.Push("u", "three")
	s.Push("u", "four")
	// cap of 3: "one" fell off
	recent := s.Recent("u")
	assert.Len(recent, 3)
	assert.Equal("two", recent[0].Body)

	now = now.Add(2 * time.Minute)
	assert.Empty(s.Recent("u"))
}
