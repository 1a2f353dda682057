package routine

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendsInOrder(t *testing.T) {
	s := NewStore()
	const n = 25
	for i := 0; i < n; i++ {
		s.Log("u1", "running", fmt.Sprintf("run %d", i))
	}

	entries := s.Entries("u1", "running")
	require.Len(t, entries, n)
	for i := 1; i < n; i++ {
		assert.False(t, entries[i].Timestamp.Before(entries[i-1].Timestamp))
		assert.Equal(t, fmt.Sprintf("run %d", i), entries[i].Message)
	}

	rec, ok := s.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "running", rec.LastConcern)
	assert.False(t, rec.CreatedAt.IsZero())
}

func TestTimestampsNeverGoBackwards(t *testing.T) {
	s := NewStore()
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(time.Minute), base.Add(-time.Hour), base.Add(2 * time.Minute)}
	i := 0
	s.now = func() time.Time {
		ts := clock[i%len(clock)]
		i++
		return ts
	}

	// first call consumes a tick for CreatedAt
	for j := 0; j < 3; j++ {
		s.Log("u1", "sleep", "slept")
	}
	entries := s.Entries("u1", "sleep")
	require.Len(t, entries, 3)
	assert.Equal(t, base.Add(time.Minute), entries[0].Timestamp)
	assert.Equal(t, base.Add(time.Minute), entries[1].Timestamp)
	assert.Equal(t, base.Add(2*time.Minute), entries[2].Timestamp)
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Log("u1", "yoga", "did yoga")
	s.Audit("u1", TagMealPlan, "lunch?", "salad")

	rec, _ := s.Get("u1")
	rec.Activities["yoga"][0].Message = "changed"
	rec.Audit[0].Detail = "changed"

	again, _ := s.Get("u1")
	assert.Equal(t, "did yoga", again.Activities["yoga"][0].Message)
	assert.Equal(t, "salad", again.Audit[0].Detail)
}

func TestUnknownUser(t *testing.T) {
	s := NewStore()
	_, ok := s.Get("ghost")
	assert.False(t, ok)
	assert.Nil(t, s.Entries("ghost", "running"))
	assert.Empty(t, s.Users())
}

func TestSetLastConcern(t *testing.T) {
	s := NewStore()
	s.Log("u1", "running", "ran")
	s.SetLastConcern("u1", "life-event-related")
	rec, _ := s.Get("u1")
	assert.Equal(t, "life-event-related", rec.LastConcern)
	assert.Len(t, rec.Activities["running"], 1)
}

func TestConcurrentUsers(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for u := 0; u < 8; u++ {
		for k := 0; k < 50; k++ {
			wg.Add(1)
			go func(u int) {
				defer wg.Done()
				s.Log(fmt.Sprintf("user-%d", u), "walking", "walked")
			}(u)
		}
	}
	wg.Wait()

	assert.Len(t, s.Users(), 8)
	for u := 0; u < 8; u++ {
		assert.Len(t, s.Entries(fmt.Sprintf("user-%d", u), "walking"), 50)
	}
}
