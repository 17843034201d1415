package main

import (
	"fmt"
	"io/ioutil"
	"math/rand"
	"net/http"
	"path/filepath"
	"time"

	"github.com/alexflint/go-arg"
	humanize "github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
	"github.com/sbwhitecap/tqdm"
	"github.com/sbwhitecap/tqdm/iterators"
	yaml "gopkg.in/yaml.v2"

	"github.com/rhythmlab/rhythmlab/rhythm-go/dataset"
	"github.com/rhythmlab/rhythmlab/rhythm-go/dataset/split"
	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg/matreader"
	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg/preprocess"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/envutil"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/midware"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/rhythmlog"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/serialization"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/status"
)

func fail(err error) {
	if err != nil {
		panic(err)
	}
}

// corpusConfig is the yaml layout of the --config file. Sections left
// out keep their defaults.
type corpusConfig struct {
	Dataset    dataset.Config    `yaml:"dataset"`
	Preprocess preprocess.Config `yaml:"preprocess"`
	TrainRatio float64           `yaml:"train_ratio"`
	SplitSeed  int64             `yaml:"split_seed"`
}

func loadConfig(path, dbDir string) corpusConfig {
	cfg := corpusConfig{
		Dataset:    dataset.DefaultConfig(dbDir),
		Preprocess: preprocess.DefaultConfig(),
		TrainRatio: split.DefaultConfig(dbDir).TrainRatio,
	}
	if path != "" {
		buf, err := ioutil.ReadFile(path)
		fail(err)
		fail(yaml.Unmarshal(buf, &cfg))
	}
	// the flag owns the artifact location, the file owns the parameters
	cfg.Dataset.DBDir = dbDir
	return cfg
}

func main() {
	start := time.Now()
	args := struct {
		Data   string   `arg:"positional,required,help:directory holding the raw records and stats.csv"`
		DB     string   `arg:"positional,required,help:directory the artifacts are written to"`
		Config string   `arg:"help:yaml file overriding the slicing and conditioning defaults"`
		Tasks  []string `arg:"help:artifact families to build (main covers qrs_detection too)"`
		Force  bool     `arg:"help:regenerate artifacts that already exist"`
		Port   int      `arg:"help:serve /debug/status-json on this port while building"`
	}{
		Tasks: []string{dataset.TaskMain.String(), dataset.TaskRRLSTM.String()},
		Port:  envutil.GetenvDefaultInt("RHYTHMLAB_STATUS_PORT", 0),
	}
	arg.MustParse(&args)

	logger := rhythmlog.NewForTask("build-corpus")
	if args.Port > 0 {
		serveStatus(args.Port, logger)
	}

	cfg := loadConfig(args.Config, args.DB)
	reader, err := matreader.Open(args.Data, cfg.Dataset.Fs)
	fail(err)

	records := reader.AllRecords()
	logger.Printf("found %s records over %d subjects in %s",
		humanize.Comma(int64(len(records))), len(reader.AllSubjects()), args.Data)

	splitter, err := split.NewSubjectSplitter(reader, split.Config{
		TrainRatio: cfg.TrainRatio,
		Seed:       cfg.SplitSeed,
		Dir:        cfg.Dataset.DBDir,
	})
	fail(err)
	res, err := splitter.Split(false)
	fail(err)
	logger.Printf("subject split: %d train / %d test", len(res.Train), len(res.Test))

	pm, err := preprocess.New(cfg.Preprocess, rand.New(rand.NewSource(cfg.Dataset.Seed)))
	fail(err)
	ds, err := dataset.New(dataset.Options{
		Reader:  reader,
		Config:  cfg.Dataset,
		Preproc: pm,
		Task:    dataset.TaskMain,
	})
	fail(err)

	section := status.NewSection("corpus build")
	conditioned := section.Ratio("records conditioned")
	conditioned.Headline = true
	sliceTime := section.SampleDuration("record slice time")
	sliceTime.SetSampleRate(1.0)

	t0 := time.Now()
	var failed int
	fail(tqdm.With(iterators.Interval(0, len(records)), "Conditioning records", func(c interface{}) (brk bool) {
		rec := records[c.(int)]
		if err := ds.PreprocessRecords([]string{rec}, args.Force); err != nil {
			logger.Printf("conditioning %s: %v", rec, err)
			conditioned.Miss()
			failed++
			return
		}
		conditioned.Hit()
		return
	}))
	logger.Durations.Record("condition", time.Since(t0))
	if failed > 0 {
		logger.Printf("conditioning failed for %d of %d records", failed, len(records))
	}

	for _, name := range args.Tasks {
		task, err := dataset.ParseTask(name)
		fail(err)
		view, err := ds.WithTask(task)
		fail(err)

		sliced := section.Ratio(fmt.Sprintf("%s records sliced", task))
		t0 = time.Now()
		fail(tqdm.With(iterators.Interval(0, len(records)), fmt.Sprintf("Slicing %s", task), func(c interface{}) (brk bool) {
			rec := records[c.(int)]
			recStart := time.Now()
			var err error
			if task == dataset.TaskRRLSTM {
				err = view.SliceRRSequences([]string{rec}, args.Force, false)
			} else {
				err = view.SliceSegments([]string{rec}, args.Force, false)
			}
			sliceTime.DeferRecord(recStart)
			if err != nil {
				logger.Printf("slicing %s for %s: %v", rec, task, err)
				sliced.Miss()
				return
			}
			sliced.Hit()
			return
		}))
		fail(view.Index().Persist())
		logger.Durations.Record(fmt.Sprintf("slice %s", task), time.Since(t0))

		names, err := view.Index().AllNames()
		fail(err)
		artifacts := section.Counter(fmt.Sprintf("%s artifacts", task))
		artifacts.Headline = true
		artifacts.Set(int64(len(names)))
		logger.Printf("%s: %s artifacts indexed", task, humanize.Comma(int64(len(names))))
	}

	logger.Durations.Flush(logger)

	report := filepath.Join(cfg.Dataset.DBDir, "build_report.json")
	if err := serialization.Encode(report, status.Get()); err != nil {
		logger.Printf("writing %s: %v", report, err)
	} else {
		logger.Printf("build report at %s", report)
	}
	logger.Printf("done in %v", time.Since(start))
}

func serveStatus(port int, logger *rhythmlog.Logger) {
	codes := status.NewSection("status server").Breakdown("response codes")
	r := mux.NewRouter()
	r.HandleFunc("/debug/status-json", status.RecordStatusCode(status.HandlerJSON, codes)).Methods("GET")
	r.PathPrefix("/debug/").Handler(http.DefaultServeMux)

	handler := midware.Wrap(r, logger.Default)
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", port), handler); err != nil {
			logger.Printf("status server could not bind to :%d: %v", port, err)
		}
	}()
	logger.Printf("status on http://localhost:%d/debug/status-json", port)
}
