package main

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/rhythmlog"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/status"
)

// corpus-status polls the /debug/status-json endpoints of running
// build-corpus processes and prints their metrics merged into one view.
// Sampled reservoirs do not survive polling, so the table shows
// counters, ratios, breakdowns and gauge distributions.
func main() {
	args := struct {
		URLs []string `arg:"positional,required,help:status endpoints of running builds e.g. http://host:4242"`
	}{}
	arg.MustParse(&args)

	logger := rhythmlog.NewForTask("corpus-status")

	var statuses []*status.Status
	for _, raw := range args.URLs {
		u, err := url.Parse(raw)
		if err != nil {
			logger.Printf("skipping %s: %v", raw, err)
			continue
		}
		st, err := status.Poll(u)
		if err != nil {
			logger.Printf("skipping %s: %v", raw, err)
			continue
		}
		statuses = append(statuses, st)
	}
	if len(statuses) == 0 {
		logger.Println("no status endpoint reachable")
		os.Exit(1)
	}
	if len(statuses) < len(args.URLs) {
		logger.Printf("aggregating %d of %d endpoints", len(statuses), len(args.URLs))
	}

	agg := status.Aggregate(statuses)
	names := make([]string, 0, len(agg.Sections))
	for name := range agg.Sections {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		printSection(agg.Sections[name])
	}
}

func printSection(sec *status.Section) {
	fmt.Printf("\n[%s]\n", strings.TrimSpace(sec.Name))
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', tabwriter.Debug)

	for _, key := range counterNames(sec) {
		fmt.Fprintf(w, "%s\t%s\n", key, humanize.Comma(sec.Counter(key).GetValue()))
	}
	for _, key := range ratioNames(sec) {
		fmt.Fprintf(w, "%s\t%.1f%%\n", key, sec.Ratio(key).Value())
	}
	for _, key := range breakdownNames(sec) {
		vals := sec.Breakdown(key).Value()
		cats := make([]string, 0, len(vals))
		for cat := range vals {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		parts := make([]string, 0, len(cats))
		for _, cat := range cats {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", cat, vals[cat]))
		}
		fmt.Fprintf(w, "%s\t%s\n", key, strings.Join(parts, "  "))
	}
	for _, key := range distNames(sec) {
		fmt.Fprintf(w, "%s\t%s\n", key, distLine(sec.Percentiles(), sec.CounterDistribution(key).Values()))
	}
	w.Flush()
}

func distLine(percentiles []float64, vals []int64) string {
	parts := make([]string, len(vals))
	for i := range vals {
		parts[i] = fmt.Sprintf("p%d=%s", int(percentiles[i]*100), humanize.Comma(vals[i]))
	}
	return strings.Join(parts, " ")
}

func counterNames(sec *status.Section) []string {
	names := make([]string, 0, len(sec.Counters))
	for name := range sec.Counters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ratioNames(sec *status.Section) []string {
	names := make([]string, 0, len(sec.Ratios))
	for name := range sec.Ratios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func breakdownNames(sec *status.Section) []string {
	names := make([]string, 0, len(sec.Breakdowns))
	for name := range sec.Breakdowns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func distNames(sec *status.Section) []string {
	names := make([]string, 0, len(sec.CounterDistributions))
	for name := range sec.CounterDistributions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
