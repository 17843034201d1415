package status

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

func init() {
	http.HandleFunc("/debug/status-json", HandlerJSON)
}

var s = newEmptyStatus()

// Status is the root object holding every registered section.
type Status struct {
	m        sync.Mutex
	Sections map[string]*Section
}

func newEmptyStatus() *Status {
	return &Status{
		Sections: make(map[string]*Section),
	}
}

// MarshalJSON renders the sections under the status lock. The alias
// type masks this method so json.Marshal does not recurse back into it.
func (s *Status) MarshalJSON() ([]byte, error) {
	s.m.Lock()
	defer s.m.Unlock()
	type masked Status
	return json.Marshal((*masked)(s))
}

func (s *Status) aggregate(other *Status) {
	for key, section := range other.Sections {
		mine, ok := s.Sections[key]
		if !ok {
			mine = newEmptySection(key)
			s.Sections[key] = mine
		}
		mine.aggregate(section)
	}
}

// The leading space makes this section sort above every real section
// when the page renders sections by name.
const headlinesHeader = " Headlines"

// updateHeadlines rebuilds the synthetic section holding the metrics
// flagged as headlines. The metrics are shared, not copied, so the
// headline view always shows current values.
func (s *Status) updateHeadlines() {
	s.m.Lock()
	defer s.m.Unlock()
	headlines := newEmptySection(headlinesHeader)

	for _, section := range s.Sections {
		if section.Name == headlinesHeader {
			continue
		}
		for key, c := range section.Counters {
			if c.Headline {
				headlines.Counters[key] = c
			}
		}
		for key, r := range section.Ratios {
			if r.Headline {
				headlines.Ratios[key] = r
			}
		}
		for key, b := range section.Breakdowns {
			if b.Headline {
				headlines.Breakdowns[key] = b
			}
		}
		for key, sm := range section.SampleInt64s {
			if sm.Headline {
				headlines.SampleInt64s[key] = sm
			}
		}
		for key, sm := range section.SampleBytes {
			if sm.Headline {
				headlines.SampleBytes[key] = sm
			}
		}
		for key, sm := range section.SampleDurations {
			if sm.Headline {
				headlines.SampleDurations[key] = sm
			}
		}
		for key, d := range section.CounterDistributions {
			if d.Headline {
				headlines.CounterDistributions[key] = d
			}
		}
	}

	if headlines.size() > 0 {
		s.Sections[headlinesHeader] = headlines
	} else {
		delete(s.Sections, headlinesHeader)
	}
}

// Get returns the process's own status.
func Get() *Status {
	return s
}

// Poll fetches the status of a process exposing /debug/status-json at
// base, e.g. http://localhost:4242.
func Poll(base *url.URL) (*Status, error) {
	pollURL, err := base.Parse("/debug/status-json")
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Get(pollURL.String())
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("polling %s: %s", pollURL, resp.Status)
	}

	var body struct {
		Status *Status `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, err
	}
	if body.Status == nil {
		return nil, fmt.Errorf("polling %s: no status in response", pollURL)
	}
	return body.Status, nil
}

// Aggregate merges the statuses of several processes, typically
// collected with Poll, into one. Sampled reservoirs do not survive the
// JSON round trip, so only counters, ratios, breakdowns and gauge
// distributions carry over from polled statuses.
func Aggregate(statuses []*Status) *Status {
	agg := newEmptyStatus()
	for _, status := range statuses {
		agg.aggregate(status)
	}
	return agg
}

// HandlerJSON serves the current status as JSON. It is registered on
// http.DefaultServeMux under /debug/status-json and may also be mounted
// on other routers.
func HandlerJSON(w http.ResponseWriter, r *http.Request) {
	s.updateHeadlines()
	resp := struct {
		Status *Status `json:"status"`
	}{Status: Get()}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&resp)
}
