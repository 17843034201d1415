package status

// settings contains reporting options for each metric. The fields stay
// out of the JSON rendering: decoding them back would require
// allocating through a nil unexported embedded pointer, which
// encoding/json refuses to do.
type settings struct {
	// Headline hoists the metric into the Headlines section of
	// /debug/status-json.
	Headline bool `json:"-"`

	// Timeseries marks the metric for periodic polling by an external
	// timeseries collector.
	Timeseries bool `json:"-"`
}

func newSettings() *settings {
	return &settings{}
}

func (s *settings) aggregate(other *settings) {
	if s == nil || other == nil {
		return
	}
	s.Headline = s.Headline || other.Headline
	s.Timeseries = s.Timeseries || other.Timeseries
}
