package main

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	arg "github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/rhythmlab/rhythmlab/rhythm-go/dataset"
	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg/matreader"
	"github.com/rhythmlab/rhythmlab/rhythm-go/metrics"
)

func fail(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	start := time.Now()
	args := struct {
		Command string  `arg:"positional,required,help:one of list / stats / plot / score"`
		Data    string  `arg:"positional,required,help:directory holding the raw records and stats.csv"`
		DB      string  `arg:"positional,required,help:directory holding the sliced artifacts"`
		Task    string  `arg:"help:artifact family to inspect"`
		Subject string  `arg:"help:restrict listing to one subject"`
		Name    string  `arg:"help:artifact to plot (S_... or R_...)"`
		Out     string  `arg:"help:file the plot is written to"`
		Fs      float64 `arg:"help:sampling frequency of the database in Hz"`
	}{
		Task: dataset.TaskMain.String(),
		Out:  "artifact.png",
		Fs:   200,
	}
	arg.MustParse(&args)

	reader, err := matreader.Open(args.Data, args.Fs)
	fail(err)
	task, err := dataset.ParseTask(args.Task)
	fail(err)

	cfg := dataset.DefaultConfig(args.DB)
	cfg.Fs = args.Fs
	ds, err := dataset.New(dataset.Options{Reader: reader, Config: cfg, Task: task})
	fail(err)

	switch args.Command {
	case "list":
		fail(list(ds, args.Subject))
	case "stats":
		fail(corpusStats(ds, args.DB))
	case "plot":
		if args.Name == "" {
			fail(fmt.Errorf("plot needs --name"))
		}
		fail(plotArtifact(ds, args.Name, args.Out, args.Fs))
		fmt.Printf("wrote %s\n", args.Out)
	case "score":
		fail(scoreAnnotations(ds, reader, cfg.Segment, args.Fs))
	default:
		fail(fmt.Errorf("unknown command %q", args.Command))
	}
	fmt.Println("Done! took", time.Since(start))
}

func list(ds *dataset.Dataset, subject string) error {
	if subject != "" {
		names, err := ds.Index().List(subject)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}
	names, err := ds.Index().AllNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func corpusStats(ds *dataset.Dataset, dbDir string) error {
	index := ds.Index()
	subjects := index.Subjects()

	var counts []float64
	var total int
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	fmt.Fprintln(w, "subject\tartifacts\t")
	for _, subject := range subjects {
		names, err := index.List(subject)
		if err != nil {
			return err
		}
		counts = append(counts, float64(len(names)))
		total += len(names)
		fmt.Fprintf(w, "%s\t%d\t\n", subject, len(names))
	}
	w.Flush()

	fmt.Printf("\n%s %s artifacts over %d subjects\n",
		humanize.Comma(int64(total)), ds.Task(), len(subjects))

	if len(counts) > 0 {
		mean, err := stats.Mean(counts)
		if err != nil {
			return err
		}
		fmt.Printf("Mean artifacts per subject: %.1f\n", mean)

		var ps []float64
		for _, p := range []float64{25, 50, 75, 95} {
			v, err := stats.Percentile(counts, p)
			if err != nil {
				return err
			}
			ps = append(ps, v)
		}
		fmt.Println("Percentiles of artifacts per subject")
		pw := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
		fmt.Fprintln(pw, "25th\t50th\t75th\t95th\t")
		fmt.Fprintf(pw, "%.0f\t%.0f\t%.0f\t%.0f\t\n", ps[0], ps[1], ps[2], ps[3])
		pw.Flush()
	}

	for _, sub := range []string{"preprocessed", "segments", "rr_seq"} {
		size, err := dirSize(filepath.Join(dbDir, sub))
		if err != nil {
			return err
		}
		fmt.Printf("%s: %s on disk\n", sub, humanize.Bytes(uint64(size)))
	}
	return nil
}

func dirSize(dir string) (int64, error) {
	var total int64
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

func plotArtifact(ds *dataset.Dataset, name, out string, fs float64) error {
	if strings.HasPrefix(name, "R_") {
		view, err := ds.WithTask(dataset.TaskRRLSTM)
		if err != nil {
			return err
		}
		seq, err := view.LoadRRSequence(name)
		if err != nil {
			if dataset.IsArtifactNotFound(err) {
				return fmt.Errorf("%s is not in the corpus; use the list command to see what is", name)
			}
			return err
		}
		return plotRRSequence(seq, name, out)
	}
	view, err := ds.WithTask(dataset.TaskMain)
	if err != nil {
		return err
	}
	seg, err := view.LoadSegment(name)
	if err != nil {
		if dataset.IsArtifactNotFound(err) {
			return fmt.Errorf("%s is not in the corpus; use the list command to see what is", name)
		}
		return err
	}
	return plotSegment(seg, name, out, fs)
}

var leadColors = []color.RGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
}

var afShade = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0x30}

// leadOffset is the vertical distance between stacked leads, in mV.
const leadOffset = 2.5

func plotSegment(seg dataset.Segment, name, out string, fs float64) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = name
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "mV"

	for lead := range seg.Data {
		offset := -leadOffset * float64(lead)
		xys := make(plotter.XYs, len(seg.Data[lead]))
		for i, v := range seg.Data[lead] {
			xys[i].X = float64(i) / fs
			xys[i].Y = v + offset
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return err
		}
		line.Color = leadColors[lead%len(leadColors)]
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("lead %d", lead+1), line)
	}

	if len(seg.Rpeaks) > 0 && len(seg.Data) > 0 {
		xys := make(plotter.XYs, 0, len(seg.Rpeaks))
		for _, r := range seg.Rpeaks {
			if r < 0 || r >= len(seg.Data[0]) {
				continue
			}
			xys = append(xys, plotter.XY{X: float64(r) / fs, Y: seg.Data[0][r]})
		}
		scatter, err := plotter.NewScatter(xys)
		if err != nil {
			return err
		}
		scatter.GlyphStyle.Color = color.RGBA{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("rpeaks", scatter)
	}

	lo, hi := dataRange(seg.Data, leadOffset)
	for _, run := range ecg.MaskToIntervals(seg.AFMask, 1) {
		if err := shade(p, float64(run.Start)/fs, float64(run.End)/fs, lo, hi); err != nil {
			return err
		}
	}

	return p.Save(12*vg.Inch, 4*vg.Inch, out)
}

func plotRRSequence(seq dataset.RRSequence, name, out string) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = name
	p.X.Label.Text = "beat"
	p.Y.Label.Text = "rr (s)"

	xys := make(plotter.XYs, len(seq.RR))
	lo, hi := 0.0, 0.0
	for i, v := range seq.RR {
		xys[i].X = float64(seq.Interval.Start + i)
		xys[i].Y = v
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return err
	}
	line.Color = leadColors[0]
	p.Add(line)
	p.Legend.Add("rr", line)

	for _, run := range ecg.MaskToIntervals(seq.Label, 1) {
		start := float64(seq.Interval.Start + run.Start)
		end := float64(seq.Interval.Start + run.End)
		if err := shade(p, start, end, lo, hi); err != nil {
			return err
		}
	}

	return p.Save(10*vg.Inch, 3*vg.Inch, out)
}

// shade adds a filled rectangle marking an AF episode.
func shade(p *plot.Plot, x0, x1, y0, y1 float64) error {
	poly, err := plotter.NewPolygon(plotter.XYs{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
	})
	if err != nil {
		return err
	}
	poly.Color = afShade
	poly.LineStyle.Width = 0
	p.Add(poly)
	return nil
}

func dataRange(data [][]float64, offset float64) (lo, hi float64) {
	for lead := range data {
		shift := -offset * float64(lead)
		for _, v := range data[lead] {
			if v+shift < lo {
				lo = v + shift
			}
			if v+shift > hi {
				hi = v + shift
			}
		}
	}
	return lo, hi
}

// scoreAnnotations replays every persisted segment's rpeak annotations
// against the reference peaks of its source window. The reference runs
// through the same border filter and stretch ratio the slicer applied,
// so an intact corpus scores 1.0000; anything lower points at artifacts
// sliced with different settings than the ones in effect now.
func scoreAnnotations(ds *dataset.Dataset, reader ecg.Reader, scfg dataset.SegmentConfig, fs float64) error {
	view, err := ds.WithTask(dataset.TaskQRSDetection)
	if err != nil {
		return err
	}
	names, err := view.Index().AllNames()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		return fmt.Errorf("no segments indexed; run build-corpus first")
	}

	var truth, pred [][]int
	var siglens []int
	for _, name := range names {
		seg, err := view.LoadSegment(name)
		if err != nil {
			return err
		}
		ref, err := reader.LoadRpeaks(dataset.RecordOfArtifact(name), seg.Interval.Start, seg.Interval.End, false)
		if err != nil {
			return err
		}
		seglen := len(seg.Data[0])
		ratio := float64(seg.Interval.Len()) / float64(seglen)
		var scaled []int
		for _, r := range ref {
			if r < scfg.RpeaksDist2Border || r >= seglen-scfg.RpeaksDist2Border {
				continue
			}
			scaled = append(scaled, int(math.Round(float64(r)/ratio)))
		}
		truth = append(truth, scaled)
		pred = append(pred, seg.Rpeaks)
		siglens = append(siglens, seglen)
	}

	acc, err := metrics.Accuracy(truth, pred, siglens, fs, 0)
	if err != nil {
		return err
	}
	fmt.Printf("rpeak annotation fidelity over %s segments: %.4f\n", humanize.Comma(int64(len(names))), acc)
	return nil
}
