package status

import (
	"encoding/json"
	"sync"
	"sync/atomic"
)

// Counter is a monotonic or gauge style int64 metric.
type Counter struct {
	Value int64
	*settings
}

func newCounter() *Counter {
	return &Counter{settings: newSettings()}
}

// Add shifts the counter by delta.
func (c *Counter) Add(delta int64) {
	atomic.AddInt64(&c.Value, delta)
}

// Set assigns the counter.
func (c *Counter) Set(val int64) {
	atomic.StoreInt64(&c.Value, val)
}

// GetValue reads the counter.
func (c *Counter) GetValue() int64 {
	return atomic.LoadInt64(&c.Value)
}

func (c *Counter) aggregate(other *Counter) {
	atomic.AddInt64(&c.Value, atomic.LoadInt64(&other.Value))
	c.settings.aggregate(other.settings)
}

// --

// Ratio tracks how often an event hits out of all attempts and reports
// the hit share as a percentage.
type Ratio struct {
	Numerator   int64
	Denominator int64
	*settings
}

func newRatio() *Ratio {
	return &Ratio{settings: newSettings()}
}

// Hit counts an attempt that succeeded.
func (r *Ratio) Hit() {
	atomic.AddInt64(&r.Numerator, 1)
	atomic.AddInt64(&r.Denominator, 1)
}

// Miss counts an attempt that did not.
func (r *Ratio) Miss() {
	atomic.AddInt64(&r.Denominator, 1)
}

// Set assigns both sides of the ratio at once.
func (r *Ratio) Set(num, den int64) {
	atomic.StoreInt64(&r.Numerator, num)
	atomic.StoreInt64(&r.Denominator, den)
}

// Value reports the hit share in percent, 0 when nothing was counted.
func (r *Ratio) Value() float64 {
	den := atomic.LoadInt64(&r.Denominator)
	if den == 0 {
		return 0
	}
	return 100 * float64(atomic.LoadInt64(&r.Numerator)) / float64(den)
}

func (r *Ratio) aggregate(other *Ratio) {
	atomic.AddInt64(&r.Numerator, atomic.LoadInt64(&other.Numerator))
	atomic.AddInt64(&r.Denominator, atomic.LoadInt64(&other.Denominator))
	r.settings.aggregate(other.settings)
}

// --

// Breakdown counts hits per category and reports each category's share
// of the total. Categories either get declared up front with
// AddCategories, in which case Hit ignores unknown names, or appear on
// first use via HitAndAdd.
type Breakdown struct {
	m      sync.Mutex
	Counts map[string]int64
	Total  int64
	*settings
}

func newBreakdown() *Breakdown {
	return &Breakdown{
		Counts:   make(map[string]int64),
		settings: newSettings(),
	}
}

// AddCategories declares categories so they report even with zero hits.
func (b *Breakdown) AddCategories(names ...string) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.Counts == nil {
		b.Counts = make(map[string]int64, len(names))
	}
	for _, name := range names {
		if _, ok := b.Counts[name]; !ok {
			b.Counts[name] = 0
		}
	}
}

// Hit increments every declared category in names and, when at least
// one matched, the total.
func (b *Breakdown) Hit(names ...string) {
	b.m.Lock()
	defer b.m.Unlock()
	hit := false
	for _, name := range names {
		if _, ok := b.Counts[name]; ok {
			b.Counts[name]++
			hit = true
		}
	}
	if hit {
		b.Total++
	}
}

// HitAndAdd increments name, declaring it on first use.
func (b *Breakdown) HitAndAdd(name string) {
	b.m.Lock()
	defer b.m.Unlock()
	if b.Counts == nil {
		b.Counts = make(map[string]int64)
	}
	b.Counts[name]++
	b.Total++
}

// Value reports each category's share of the total in percent.
func (b *Breakdown) Value() map[string]float64 {
	b.m.Lock()
	defer b.m.Unlock()
	out := make(map[string]float64, len(b.Counts))
	for name, n := range b.Counts {
		if b.Total == 0 {
			out[name] = 0
			continue
		}
		out[name] = 100 * float64(n) / float64(b.Total)
	}
	return out
}

// MarshalJSON copies the counts under the breakdown lock, since hits
// may land while the status page renders.
func (b *Breakdown) MarshalJSON() ([]byte, error) {
	type view struct {
		Counts map[string]int64
		Total  int64
	}
	b.m.Lock()
	v := view{Counts: make(map[string]int64, len(b.Counts)), Total: b.Total}
	for name, n := range b.Counts {
		v.Counts[name] = n
	}
	b.m.Unlock()
	return json.Marshal(v)
}

func (b *Breakdown) aggregate(other *Breakdown) {
	other.m.Lock()
	counts := make(map[string]int64, len(other.Counts))
	for name, n := range other.Counts {
		counts[name] = n
	}
	total := other.Total
	other.m.Unlock()

	b.m.Lock()
	if b.Counts == nil {
		b.Counts = make(map[string]int64, len(counts))
	}
	for name, n := range counts {
		b.Counts[name] += n
	}
	b.Total += total
	b.m.Unlock()
	b.settings.aggregate(other.settings)
}
