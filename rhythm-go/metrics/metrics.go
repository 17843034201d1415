// Package metrics scores rpeak detections against reference
// annotations with the CPSC acceptance rule: a prediction within a
// fixed tolerance of a reference peak is a hit, predictions between
// peaks are false positives, and every record collapses to a flag in
// {0, 0.3, 0.7, 1}. The first and last half second of each record are
// outside the scored region.
package metrics

import (
	"math"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// DefaultTolerance is the acceptance window around a reference rpeak,
// in seconds.
const DefaultTolerance = 0.075

// RecordScore tallies one record's detections.
type RecordScore struct {
	TruePositive  int
	FalsePositive int
	FalseNegative int
}

// Flag collapses the tallies to the record's score contribution: a
// single miss costs 0.7, a single spurious detection 0.3, anything
// worse the whole record.
func (s RecordScore) Flag() float64 {
	switch {
	case s.FalseNegative+s.FalsePositive > 1:
		return 0
	case s.FalseNegative == 1 && s.FalsePositive == 0:
		return 0.3
	case s.FalseNegative == 0 && s.FalsePositive == 1:
		return 0.7
	}
	return 1
}

// ScoreRecord compares predicted rpeak positions against the reference
// peaks of one record of siglen samples at fs Hz. A tolerance of zero
// or less selects DefaultTolerance. Positions are in samples.
func ScoreRecord(truth, pred []int, siglen int, fs, tolerance float64) RecordScore {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	thr := tolerance * fs
	scoredStart := 0.5 * fs
	scoredEnd := float64(siglen) - 0.5*fs

	// reference peaks in the border margins are not scored
	var scored []int
	for _, tr := range truth {
		if float64(tr) >= scoredStart && float64(tr) <= scoredEnd {
			scored = append(scored, tr)
		}
	}
	truth = scored

	var s RecordScore
	for j, tr := range truth {
		hits := 0
		for _, p := range pred {
			if math.Abs(float64(p-tr)) <= thr {
				hits++
			}
		}

		// spurious detections are counted in the gap trailing each
		// reference peak; the first window instead leads the first peak
		var lo, hi float64
		switch {
		case j == 0:
			lo, hi = scoredStart+thr, float64(tr)-thr
		case j == len(truth)-1:
			lo, hi = float64(tr)+thr, scoredEnd-thr
		default:
			lo, hi = float64(tr)+thr, float64(truth[j+1])-thr
		}
		for _, p := range pred {
			if float64(p) >= lo && float64(p) <= hi {
				s.FalsePositive++
			}
		}

		if hits >= 1 {
			s.TruePositive++
			s.FalsePositive += hits - 1
		} else {
			s.FalseNegative++
		}
	}
	return s
}

// Accuracy scores a batch of records and returns the mean record flag,
// rounded to 4 decimals. siglens gives each record's length in samples.
func Accuracy(truth, pred [][]int, siglens []int, fs, tolerance float64) (float64, error) {
	if len(truth) != len(pred) || len(truth) != len(siglens) {
		return 0, errors.Errorf("record counts do not match: %d reference, %d predicted, %d lengths",
			len(truth), len(pred), len(siglens))
	}
	if len(truth) == 0 {
		return 0, errors.Errorf("no records to score")
	}
	var sum float64
	for i := range truth {
		sum += ScoreRecord(truth[i], pred[i], siglens[i], fs, tolerance).Flag()
	}
	return math.Round(sum/float64(len(truth))*1e4) / 1e4, nil
}
