package timerlist

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeUntilDueEmpty(t *testing.T) {
	l := New()
	_, ok := l.TimeUntilDue(time.Now())
	assert.False(t, ok)
}

func TestTimeUntilDueIsMinimumRemaining(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	base := time.Unix(1_700_000_000, 0)

	for round := 0; round < 50; round++ {
		l := New()
		n := 1 + rng.Intn(20)
		var want time.Duration = -1
		for i := 0; i < n; i++ {
			offset := time.Duration(rng.Intn(4000)-1000) * time.Millisecond
			l.Insert(Entry{Callback: func() {}, Due: base.Add(offset), Interval: time.Second})
			remaining := offset
			if remaining < 0 {
				remaining = 0
			}
			if want < 0 || remaining < want {
				want = remaining
			}
		}
		got, ok := l.TimeUntilDue(base)
		require.True(t, ok)
		assert.Equal(t, want, got, "round %d", round)
	}
}

func TestRunReadyFiresOnlyDueEntries(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	l := New()
	l.now = func() time.Time { return base }

	var fired []string
	l.Insert(Entry{Callback: func() { fired = append(fired, "past") }, Due: base.Add(-time.Second), Interval: time.Minute})
	l.Insert(Entry{Callback: func() { fired = append(fired, "now") }, Due: base, Interval: time.Minute})
	l.Insert(Entry{Callback: func() { fired = append(fired, "later") }, Due: base.Add(time.Second), Interval: time.Minute})

	assert.Equal(t, 2, l.RunReady(base))
	assert.Equal(t, []string{"past", "now"}, fired)
	assert.Equal(t, 3, l.Len())

	d, ok := l.TimeUntilDue(base)
	require.True(t, ok)
	assert.Equal(t, time.Second, d)
}

func TestRunReadyRearmsFromCompletionTime(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	clock := base
	l := New()
	l.now = func() time.Time { return clock }

	count := 0
	l.Insert(Entry{
		Callback: func() {
			count++
			// simulate a slow callback
			clock = clock.Add(300 * time.Millisecond)
		},
		Due:      base,
		Interval: time.Second,
	})

	require.Equal(t, 1, l.RunReady(base))
	d, ok := l.TimeUntilDue(base)
	require.True(t, ok)
	assert.Equal(t, 1300*time.Millisecond, d)
	assert.Equal(t, 1, count)
}

func TestRunReadyZeroIntervalFiresOncePerCall(t *testing.T) {
	base := time.Unix(1_700_000_000, 0)
	l := New()
	l.now = func() time.Time { return base }

	count := 0
	l.Insert(Entry{Callback: func() { count++ }, Due: base})

	l.RunReady(base)
	l.RunReady(base)
	assert.Equal(t, 2, count)
}
