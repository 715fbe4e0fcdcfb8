package listview

// Coordinator decides which page, if any, must be fetched to cover a range
// of rows. It allows one outstanding request at a time: demands that arrive
// while a request is in flight are dropped, and the caller asks again once
// it settles. Fast scrolling therefore becomes one sequential chain of
// page fetches rather than a burst.
type Coordinator struct {
	prefix   *Prefix
	inFlight bool
	page     int
}

// NewCoordinator returns a coordinator that fills prefix.
func NewCoordinator(prefix *Prefix) *Coordinator {
	return &Coordinator{prefix: prefix}
}

// EnsureRange returns the page to request so that rows start..end are
// loaded. ok is false when the rows are already covered, the result set
// is empty, or a request is already outstanding.
func (c *Coordinator) EnsureRange(start, end int) (page int, ok bool) {
	if c.inFlight {
		return 0, false
	}
	if end < start {
		end = start
	}

	if c.prefix.TotalKnown() {
		total := c.prefix.Total()
		if total == 0 {
			return 0, false
		}
		neededEnd := min(end+1, total)
		if neededEnd <= c.prefix.Len() {
			return 0, false
		}
	}

	c.inFlight = true
	c.page = c.prefix.NextPage()
	return c.page, true
}

// InFlight reports whether a request is outstanding.
func (c *Coordinator) InFlight() bool { return c.inFlight }

// Pending returns the page number of the outstanding request.
func (c *Coordinator) Pending() int {
	if !c.inFlight {
		return 0
	}
	return c.page
}

// Settle releases the in-flight slot after a request finishes, whether it
// succeeded or not.
func (c *Coordinator) Settle() {
	c.inFlight = false
	c.page = 0
}

// Reset abandons any outstanding request. Its result must be discarded by
// the caller.
func (c *Coordinator) Reset() {
	c.Settle()
}
