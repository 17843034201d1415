package split

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/serialization"
)

// SubjectSplitter partitions subjects, stratified by their label
// (paroxysmal AF, persistent-only AF, normal) so both sides of the
// split see every condition. Records of one subject never straddle the
// split.
type SubjectSplitter struct {
	reader ecg.Reader
	cfg    Config
	rng    *rand.Rand
}

// NewSubjectSplitter validates cfg and seeds the splitter.
func NewSubjectSplitter(reader ecg.Reader, cfg Config) (*SubjectSplitter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SubjectSplitter{
		reader: reader,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Files returns the paths the partition is persisted at.
func (s *SubjectSplitter) Files() (train, test string) {
	trainPct, testPct := s.cfg.percents()
	return filepath.Join(s.cfg.Dir, fmt.Sprintf("train_ratio_%d.json", trainPct)),
		filepath.Join(s.cfg.Dir, fmt.Sprintf("test_ratio_%d.json", testPct))
}

// Split returns the persisted partition when both files exist; force
// recomputes and rewrites it.
func (s *SubjectSplitter) Split(force bool) (Result, error) {
	trainFile, testFile := s.Files()
	if !force {
		res, ok, err := loadPair(trainFile, testFile)
		if err != nil {
			return Result{}, err
		}
		if ok {
			return res, nil
		}
	}

	stats, err := s.reader.SubjectStats()
	if err != nil {
		return Result{}, errors.Wrapf(err, "loading subject stats")
	}
	afp, aff, normal := strata(stats)
	_, testPct := s.cfg.percents()

	var test []string
	for _, stratum := range [][]string{afp, aff, normal} {
		test = append(test, s.sample(stratum, testShare(len(stratum), testPct))...)
	}
	inTest := make(map[string]bool, len(test))
	for _, subject := range test {
		inTest[subject] = true
	}
	var train []string
	for _, row := range stats {
		if !inTest[row.Subject] {
			inTest[row.Subject] = true // reuse as a seen set from here on
			train = append(train, row.Subject)
		}
	}
	s.rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	s.rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })

	if err := serialization.EncodeAtomic(trainFile, train); err != nil {
		return Result{}, errors.Wrapf(err, "persisting train split")
	}
	if err := serialization.EncodeAtomic(testFile, test); err != nil {
		return Result{}, errors.Wrapf(err, "persisting test split")
	}
	return Result{Train: train, Test: test}, nil
}

// sample picks k distinct items.
func (s *SubjectSplitter) sample(items []string, k int) []string {
	out := make([]string, 0, k)
	for _, i := range s.rng.Perm(len(items))[:k] {
		out = append(out, items[i])
	}
	return out
}

// testShare is the number of test subjects a stratum of n contributes:
// at least one whenever the stratum is non-empty, so rare conditions
// are never absent from the test set.
func testShare(n, testPct int) int {
	if n == 0 {
		return 0
	}
	k := int(math.Round(float64(n) * float64(testPct) / 100))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	return k
}

// strata groups subjects by their strongest label: any paroxysmal-AF
// record puts the subject in afp, else any persistent-AF record puts it
// in aff, else it is normal. Order follows first appearance in stats.
func strata(stats []ecg.SubjectStat) (afp, aff, normal []string) {
	hasAFp := make(map[string]bool)
	hasAFf := make(map[string]bool)
	seen := make(map[string]bool)
	var order []string
	for _, row := range stats {
		if !seen[row.Subject] {
			seen[row.Subject] = true
			order = append(order, row.Subject)
		}
		switch row.Label {
		case ecg.LabelAFParoxysmal:
			hasAFp[row.Subject] = true
		case ecg.LabelAFPersistent:
			hasAFf[row.Subject] = true
		}
	}
	for _, subject := range order {
		switch {
		case hasAFp[subject]:
			afp = append(afp, subject)
		case hasAFf[subject]:
			aff = append(aff, subject)
		default:
			normal = append(normal, subject)
		}
	}
	return afp, aff, normal
}

// loadPair loads a persisted partition; ok is false when either file is
// missing.
func loadPair(trainFile, testFile string) (Result, bool, error) {
	for _, path := range []string{trainFile, testFile} {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Result{}, false, nil
		} else if err != nil {
			return Result{}, false, errors.Wrapf(err, "checking %s", path)
		}
	}
	var res Result
	if err := serialization.Decode(trainFile, &res.Train); err != nil {
		return Result{}, false, errors.Wrapf(err, "loading %s", trainFile)
	}
	if err := serialization.Decode(testFile, &res.Test); err != nil {
		return Result{}, false, errors.Wrapf(err, "loading %s", testFile)
	}
	return res, true, nil
}
