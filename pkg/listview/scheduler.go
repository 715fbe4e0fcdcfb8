package listview

import "time"

const (
	// SearchDebounce is how long search input must be quiet before the
	// query changes.
	SearchDebounce = 180 * time.Millisecond

	// FrameInterval is one display refresh. Scroll handling runs at most
	// once per interval.
	FrameInterval = time.Second / 60

	// DefaultChunkSize is the batch size for populating long option lists.
	DefaultChunkSize = 40
)

// Debouncer collapses a burst of values into the last one. The caller
// schedules a timer for each Bump and passes the returned id to Fire when
// it expires; only the newest id fires.
type Debouncer[T any] struct {
	quiet time.Duration
	id    int
	value T
}

// NewDebouncer returns a debouncer with the given quiet window, or
// SearchDebounce when quiet is zero.
func NewDebouncer[T any](quiet time.Duration) *Debouncer[T] {
	if quiet <= 0 {
		quiet = SearchDebounce
	}
	return &Debouncer[T]{quiet: quiet}
}

// Bump records value as the latest and returns the id its timer carries.
func (d *Debouncer[T]) Bump(value T) int {
	d.id++
	d.value = value
	return d.id
}

// Fire returns the latest value if id is still the newest bump.
func (d *Debouncer[T]) Fire(id int) (T, bool) {
	if id != d.id {
		var zero T
		return zero, false
	}
	return d.value, true
}

// Cancel invalidates every outstanding timer.
func (d *Debouncer[T]) Cancel() { d.id++ }

// Quiet returns the debounce window.
func (d *Debouncer[T]) Quiet() time.Duration { return d.quiet }

// FrameThrottle keeps at most one pending scroll recomputation. A newer
// offset replaces the pending one instead of queueing behind it.
type FrameThrottle struct {
	pending bool
	offset  int
}

// Request records offset. It returns true when the caller must schedule a
// frame, which happens only for the first request since the last frame.
func (f *FrameThrottle) Request(offset int) bool {
	f.offset = offset
	if f.pending {
		return false
	}
	f.pending = true
	return true
}

// Frame consumes the pending offset.
func (f *FrameThrottle) Frame() (int, bool) {
	if !f.pending {
		return 0, false
	}
	f.pending = false
	return f.offset, true
}

// Pending reports whether a frame is scheduled.
func (f *FrameThrottle) Pending() bool { return f.pending }

// Cancel drops the pending offset. A frame tick that was already
// scheduled still arrives: it finds nothing to do, or, if a new Request
// came in first, applies that offset one tick early and leaves the tick
// scheduled by that Request with nothing to do.
func (f *FrameThrottle) Cancel() {
	f.pending = false
	f.offset = 0
}

// Chunker hands out a long list in fixed-size batches so a UI loop can
// yield between them. It belongs to the epoch it was created in and stops
// as soon as the current epoch moves on.
type Chunker[T any] struct {
	items []T
	size  int
	pos   int
	epoch uint64
}

// NewChunker prepares items for population under epoch.
func NewChunker[T any](items []T, epoch uint64, size int) *Chunker[T] {
	if size < 1 {
		size = DefaultChunkSize
	}
	return &Chunker[T]{items: items, size: size, epoch: epoch}
}

// Epoch returns the epoch the job was started in.
func (c *Chunker[T]) Epoch() uint64 { return c.epoch }

// Next returns the next batch. ok is false once the list is exhausted or
// when current no longer matches the job's epoch; in the latter case the
// job is finished and nothing more is returned.
func (c *Chunker[T]) Next(current uint64) ([]T, bool) {
	if current != c.epoch {
		c.pos = len(c.items)
		return nil, false
	}
	if c.pos >= len(c.items) {
		return nil, false
	}
	end := min(c.pos+c.size, len(c.items))
	batch := c.items[c.pos:end]
	c.pos = end
	return batch, true
}

// Done reports whether every batch has been handed out or the job aborted.
func (c *Chunker[T]) Done() bool { return c.pos >= len(c.items) }
