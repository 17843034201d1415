package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSectionMarshalJSONTerminates(t *testing.T) {
	// MarshalJSON masks itself behind an alias type; if that mask ever
	// broke, json.Marshal would recurse back into MarshalJSON forever.
	done := make(chan struct{})
	go func() {
		var sec Section
		sec.MarshalJSON()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Section.MarshalJSON did not terminate")
	}
}

func TestSectionMetricsAreShared(t *testing.T) {
	first := NewSection("shared metrics")
	second := NewSection("shared metrics")
	require.True(t, first == second)

	first.Counter("records").Add(2)
	second.Counter("records").Add(3)
	require.EqualValues(t, 5, first.Counter("records").GetValue())
}

func TestRatioValue(t *testing.T) {
	r := newRatio()
	require.Equal(t, 0.0, r.Value())

	r.Hit()
	r.Hit()
	r.Hit()
	r.Miss()
	require.Equal(t, 75.0, r.Value())
}

func TestBreakdown(t *testing.T) {
	b := newBreakdown()
	b.AddCategories("train", "test")

	// unknown categories are ignored unless added via HitAndAdd
	b.Hit("validation")
	require.EqualValues(t, 0, b.Total)

	b.Hit("train")
	b.Hit("train")
	b.Hit("test")
	b.HitAndAdd("validation")

	vals := b.Value()
	require.InDelta(t, 50.0, vals["train"], 1e-9)
	require.InDelta(t, 25.0, vals["test"], 1e-9)
	require.InDelta(t, 25.0, vals["validation"], 1e-9)
}

func TestCounterDistributionValues(t *testing.T) {
	d := newCounterDistribution()
	require.Equal(t, []int64{0, 0, 0, 0}, d.Values())

	d.Set(10)
	require.Equal(t, []int64{10, 10, 10, 10}, d.Values())

	agg := newCounterDistribution()
	for _, v := range []int64{30, 10, 20} {
		other := newCounterDistribution()
		other.Set(v)
		agg.aggregate(other)
	}
	// untouched gauges stay out of the distribution
	agg.aggregate(newCounterDistribution())
	require.Equal(t, []int64{20, 30, 30, 30}, agg.Values())
}

func TestAggregateStatuses(t *testing.T) {
	a := newEmptyStatus()
	sa := newEmptySection("build")
	a.Sections["build"] = sa
	sa.Counter("records").Add(3)
	sa.Ratio("cache").Hit()
	sa.Breakdown("codes").HitAndAdd("200")

	b := newEmptyStatus()
	sb := newEmptySection("build")
	b.Sections["build"] = sb
	sb.Counter("records").Add(4)
	sb.Ratio("cache").Miss()
	sb.Breakdown("codes").HitAndAdd("200")
	sb.Breakdown("codes").HitAndAdd("500")

	agg := Aggregate([]*Status{a, b})
	sec, ok := agg.Sections["build"]
	require.True(t, ok)
	require.EqualValues(t, 7, sec.Counter("records").GetValue())
	require.Equal(t, 50.0, sec.Ratio("cache").Value())

	codes := sec.Breakdown("codes").Value()
	require.InDelta(t, 100.0*2/3, codes["200"], 1e-9)
	require.InDelta(t, 100.0/3, codes["500"], 1e-9)
}

// Polled statuses come back through JSON, which drops the sampled
// reservoirs and the unexported metric internals. Aggregating a decoded
// status must still work.
func TestAggregateDecodedStatus(t *testing.T) {
	orig := newEmptyStatus()
	sec := newEmptySection("build")
	orig.Sections["build"] = sec
	sec.Counter("records").Set(5)
	sec.Ratio("cache").Hit()
	sec.Breakdown("codes").HitAndAdd("200")
	sec.CounterDistribution("cached").Set(9)
	sec.CounterDistribution("untouched")
	dur := sec.SampleDuration("latency")
	dur.SetSampleRate(1.0)
	dur.Record(time.Second)

	buf, err := json.Marshal(orig)
	require.NoError(t, err)

	var decoded Status
	require.NoError(t, json.Unmarshal(buf, &decoded))

	agg := Aggregate([]*Status{&decoded})
	got, ok := agg.Sections["build"]
	require.True(t, ok)
	require.EqualValues(t, 5, got.Counter("records").GetValue())
	require.Equal(t, 100.0, got.Ratio("cache").Value())
	require.InDelta(t, 100.0, got.Breakdown("codes").Value()["200"], 1e-9)
	require.Equal(t, []int64{9, 9, 9, 9}, got.CounterDistribution("cached").Values())
	require.Equal(t, []int64{0, 0, 0, 0}, got.CounterDistribution("untouched").Values())
}
