package status

import (
	"math"
	"sort"
	"sync"
)

// CounterDistribution is a gauge tracked per process. Aggregating the
// statuses of several processes collects each one's gauge, and Values
// reports the collection at the sampled-metric percentiles.
//
// The gauge starts at math.MinInt64 so an untouched distribution can be
// told apart from a real zero even after a JSON round trip.
type CounterDistribution struct {
	m      sync.Mutex
	Value  int64
	gauges []int64
	*settings
}

func newCounterDistribution() *CounterDistribution {
	return &CounterDistribution{
		Value:    math.MinInt64,
		settings: newSettings(),
	}
}

// Add shifts the gauge by delta. The first touch assigns instead, since
// the gauge starts at the unset sentinel.
func (c *CounterDistribution) Add(delta int64) {
	c.m.Lock()
	defer c.m.Unlock()
	if c.Value == math.MinInt64 {
		c.Value = delta
		return
	}
	c.Value += delta
}

// Set assigns the gauge.
func (c *CounterDistribution) Set(val int64) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Value = val
}

func (c *CounterDistribution) aggregate(other *CounterDistribution) {
	other.m.Lock()
	val := other.Value
	other.m.Unlock()

	c.m.Lock()
	if val != math.MinInt64 {
		c.gauges = append(c.gauges, val)
	}
	c.m.Unlock()
	c.settings.aggregate(other.settings)
}

// Values reports the collected gauges at the section percentiles. With
// nothing aggregated yet the process's own gauge stands in, so a lone
// process still reports its value.
func (c *CounterDistribution) Values() []int64 {
	c.m.Lock()
	gauges := append([]int64(nil), c.gauges...)
	if len(gauges) == 0 && c.Value != math.MinInt64 {
		gauges = []int64{c.Value}
	}
	c.m.Unlock()

	sort.Sort(int64Sort(gauges))
	out := make([]int64, 0, len(samplePercentiles))
	for _, p := range samplePercentiles {
		if len(gauges) == 0 {
			out = append(out, 0)
			continue
		}
		idx := int(float64(len(gauges)) * p)
		if idx >= len(gauges) {
			idx = len(gauges) - 1
		}
		out = append(out, gauges[idx])
	}
	return out
}
