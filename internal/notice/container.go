package notice

import "sync"

// Container is a thread-safe notice sink.
// It drops exact duplicates and, when MaxPerCode is set, stores at most that
// many notices per code while still counting the rest.
type Container struct {
	mu         sync.Mutex
	notices    []Notice
	seen       map[uint64][]int
	totals     map[string]int
	storedN    map[string]int
	severities map[string]Severity
	maxPerCode int
}

// NewContainer creates a sink. maxPerCode <= 0 means unlimited.
func NewContainer(maxPerCode int) *Container {
	return &Container{
		seen:       make(map[uint64][]int),
		totals:     make(map[string]int),
		storedN:    make(map[string]int),
		severities: make(map[string]Severity),
		maxPerCode: maxPerCode,
	}
}

// Add records a notice.
func (c *Container) Add(n Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(n)
}

func (c *Container) add(n Notice) {
	fp := n.fingerprint()
	for _, i := range c.seen[fp] {
		if c.notices[i].sameAs(n) {
			return
		}
	}

	c.totals[n.Code]++
	c.severities[n.Code] = n.Severity
	if c.maxPerCode > 0 && c.storedN[n.Code] >= c.maxPerCode {
		return
	}
	c.storedN[n.Code]++
	c.seen[fp] = append(c.seen[fp], len(c.notices))
	c.notices = append(c.notices, n)
}

// AddAll copies every notice of o into c, in o's order.
// Notices o dropped because of its own cap are counted but not copied.
func (c *Container) AddAll(o *Container) {
	if o == nil || o == c {
		return
	}
	notices, totals, severities := o.snapshot()

	c.mu.Lock()
	defer c.mu.Unlock()
	copied := make(map[string]int, len(totals))
	for _, n := range notices {
		c.add(n)
		copied[n.Code]++
	}
	for code, total := range totals {
		if extra := total - copied[code]; extra > 0 {
			c.totals[code] += extra
			c.severities[code] = severities[code]
		}
	}
}

func (c *Container) snapshot() ([]Notice, map[string]int, map[string]Severity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	notices := make([]Notice, len(c.notices))
	copy(notices, c.notices)
	totals := make(map[string]int, len(c.totals))
	for k, v := range c.totals {
		totals[k] = v
	}
	sev := make(map[string]Severity, len(c.severities))
	for k, v := range c.severities {
		sev[k] = v
	}
	return notices, totals, sev
}

// Notices returns stored notices in insertion order.
func (c *Container) Notices() []Notice {
	n, _, _ := c.snapshot()
	return n
}

// Len returns the number of stored notices.
func (c *Container) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.notices)
}

// Total returns how many distinct notices with code were reported, stored or not.
func (c *Container) Total(code string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totals[code]
}

// CountBySeverity counts distinct reported notices per severity.
func (c *Container) CountBySeverity() map[Severity]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[Severity]int, 3)
	for code, total := range c.totals {
		out[c.severities[code]] += total
	}
	return out
}

// HasErrors reports whether any error-severity notice was reported.
func (c *Container) HasErrors() bool {
	return c.CountBySeverity()[SeverityError] > 0
}

// HasCode reports whether a notice with code was reported.
func (c *Container) HasCode(code string) bool {
	return c.Total(code) > 0
}

// ByCode returns stored notices with the given code.
func (c *Container) ByCode(code string) []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Notice
	for _, n := range c.notices {
		if n.Code == code {
			out = append(out, n)
		}
	}
	return out
}
