package counter

import "sync/atomic"

// Counter is a monotonically increasing count that is safe for concurrent use.
type Counter struct {
	total atomic.Int64
}

func NewCounter() *Counter {
	return &Counter{}
}

// Add adds a value to the counter safely
func (c *Counter) Add(value int) {
	c.total.Add(int64(value))
}

func (c *Counter) Inc() {
	c.Add(1)
}

// Count returns the current count safely
func (c *Counter) Count() int {
	return int(c.total.Load())
}

// Gauge tracks a value that goes up and down, and remembers the highest value
// it has reached.
type Gauge struct {
	current atomic.Int64
	peak    atomic.Int64
}

func NewGauge() *Gauge {
	return &Gauge{}
}

func (g *Gauge) Inc() {
	v := g.current.Add(1)
	for {
		peak := g.peak.Load()
		if v <= peak || g.peak.CompareAndSwap(peak, v) {
			return
		}
	}
}

func (g *Gauge) Dec() {
	g.current.Add(-1)
}

func (g *Gauge) Value() int {
	return int(g.current.Load())
}

func (g *Gauge) Peak() int {
	return int(g.peak.Load())
}
