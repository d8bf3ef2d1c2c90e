// Package series keeps bounded, chronological price history per symbol.
package series

// Rolling is a fixed-capacity ring buffer of observations.
type Rolling struct {
	buf  []float64
	head int // index of the oldest element
	n    int
}

// New creates a series holding at most capacity values. Capacity below 1 is raised to 1.
func New(capacity int) *Rolling {
	if capacity < 1 {
		capacity = 1
	}
	return &Rolling{buf: make([]float64, capacity)}
}

// Push appends v, evicting the oldest value when the series is full.
func (r *Rolling) Push(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.head+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.head] = v
	r.head = (r.head + 1) % len(r.buf)
}

// Snapshot returns a copy of the contents, oldest first.
func (r *Rolling) Snapshot() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.head+i)%len(r.buf)]
	}
	return out
}

// Last returns the most recent value.
func (r *Rolling) Last() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.buf[(r.head+r.n-1)%len(r.buf)], true
}

func (r *Rolling) Len() int     { return r.n }
func (r *Rolling) Cap() int     { return len(r.buf) }
func (r *Rolling) IsFull() bool { return r.n == len(r.buf) }
