// Package timerlist holds the repeating callbacks driven by the window loop.
//
// A List is owned by a single goroutine and is not safe for concurrent use.
package timerlist

import (
	"container/heap"
	"time"
)

// Entry is a callback that fires every Interval, starting at Due.
type Entry struct {
	Callback func()
	Due      time.Time
	Interval time.Duration
}

type entryHeap []*Entry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].Due.Before(h[j].Due) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(*Entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return x
}

// List is an ordered collection of scheduled callbacks.
type List struct {
	entries entryHeap
	// now is replaceable in tests.
	now func() time.Time
}

// New returns an empty list using the wall clock for re-arming.
func New() *List {
	return &List{now: time.Now}
}

// Insert adds an entry to the list.
func (l *List) Insert(e Entry) {
	heap.Push(&l.entries, &e)
}

// Len returns the number of scheduled entries.
func (l *List) Len() int {
	return len(l.entries)
}

// RunReady fires every entry due at or before now and returns how many fired.
//
// Each fired entry is re-armed to fire Interval after it returns, so a slow
// callback pushes its next run back rather than causing catch-up bursts. An
// entry fires at most once per call, even with a zero interval.
func (l *List) RunReady(now time.Time) int {
	var ready []*Entry
	for len(l.entries) > 0 && !l.entries[0].Due.After(now) {
		ready = append(ready, heap.Pop(&l.entries).(*Entry))
	}
	for _, e := range ready {
		e.Callback()
		e.Due = l.now().Add(e.Interval)
		heap.Push(&l.entries, e)
	}
	return len(ready)
}

// TimeUntilDue reports how long until the earliest entry is due. It is zero
// for overdue entries. ok is false when the list is empty.
func (l *List) TimeUntilDue(now time.Time) (d time.Duration, ok bool) {
	if len(l.entries) == 0 {
		return 0, false
	}
	d = l.entries[0].Due.Sub(now)
	if d < 0 {
		d = 0
	}
	return d, true
}
