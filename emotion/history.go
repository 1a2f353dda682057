package emotion

import "time"

// ring keeps records in append order. A positive limit caps the entry count; a positive
// retention drops entries older than now-retention. Zero for either means no bound.
// Not safe for concurrent use; owners guard it.
type ring[T any] struct {
	items     []T
	head      int
	size      int
	limit     int
	retention time.Duration
	stamp     func(T) time.Time
}

func newRing[T any](limit int, retention time.Duration, stamp func(T) time.Time) *ring[T] {
	r := &ring[T]{limit: limit, retention: retention, stamp: stamp}
	if limit > 0 {
		r.items = make([]T, limit)
	}
	return r
}

func (r *ring[T]) at(i int) T {
	if r.limit > 0 {
		return r.items[(r.head+i)%r.limit]
	}
	return r.items[r.head+i]
}

func (r *ring[T]) push(v T) {
	if r.limit <= 0 {
		r.items = append(r.items, v)
		r.size++
		return
	}
	if r.size < r.limit {
		r.items[(r.head+r.size)%r.limit] = v
		r.size++
		return
	}
	r.items[r.head] = v
	r.head = (r.head + 1) % r.limit
}

func (r *ring[T]) dropOldest() {
	var zero T
	if r.limit > 0 {
		r.items[r.head] = zero
		r.head = (r.head + 1) % r.limit
		r.size--
		return
	}
	r.items[r.head] = zero
	r.head++
	r.size--
	if r.head > len(r.items)/2 {
		r.items = append([]T(nil), r.items[r.head:]...)
		r.head = 0
	}
}

func (r *ring[T]) evict(now time.Time) {
	if r.retention <= 0 {
		return
	}
	cutoff := now.Add(-r.retention)
	for r.size > 0 && !r.stamp(r.at(0)).After(cutoff) {
		r.dropOldest()
	}
}

// since returns a copy of the entries stamped strictly after cutoff. A zero cutoff returns all.
func (r *ring[T]) since(cutoff time.Time) []T {
	out := make([]T, 0, r.size)
	for i := 0; i < r.size; i++ {
		v := r.at(i)
		if cutoff.IsZero() || r.stamp(v).After(cutoff) {
			out = append(out, v)
		}
	}
	return out
}

func (r *ring[T]) len() int { return r.size }

func cutoffFor(now time.Time, window time.Duration) time.Time {
	if window <= 0 {
		return time.Time{}
	}
	return now.Add(-window)
}
