package midi

import (
	"sort"
	"time"
)

// noteOff is a release waiting for its due time.
type noteOff struct {
	due  time.Duration
	note uint8
}

// offQueue keeps pending releases ordered by due time. Releases with equal
// due times leave in insertion order.
type offQueue struct {
	events []noteOff
}

func newOffQueue() *offQueue {
	return &offQueue{events: make([]noteOff, 0, 16)}
}

func (q *offQueue) add(due time.Duration, note uint8) {
	i := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].due > due
	})
	q.events = append(q.events, noteOff{})
	copy(q.events[i+1:], q.events[i:])
	q.events[i] = noteOff{due: due, note: note}
}

// popDue removes and returns every release due at or before now.
func (q *offQueue) popDue(now time.Duration) []noteOff {
	n := sort.Search(len(q.events), func(i int) bool {
		return q.events[i].due > now
	})
	if n == 0 {
		return nil
	}
	due := make([]noteOff, n)
	copy(due, q.events[:n])
	q.events = append(q.events[:0], q.events[n:]...)
	return due
}

// drain removes and returns everything.
func (q *offQueue) drain() []noteOff {
	all := q.events
	q.events = make([]noteOff, 0, cap(all))
	return all
}

// remove drops the queued releases of note and reports whether there were
// any.
func (q *offQueue) remove(note uint8) bool {
	kept := q.events[:0]
	for _, e := range q.events {
		if e.note != note {
			kept = append(kept, e)
		}
	}
	removed := len(kept) < len(q.events)
	q.events = kept
	return removed
}

func (q *offQueue) size() int {
	return len(q.events)
}
