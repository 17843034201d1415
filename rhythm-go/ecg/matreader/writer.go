package matreader

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/rhythmlab/rhythmlab/rhythm-go/ecg"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
	"github.com/rhythmlab/rhythmlab/rhythm-golib/matfile"
)

// WriteRecord writes one record file into a database directory. data is
// leads x samples; af may be empty for normal-rhythm records.
func WriteRecord(dir, rec string, data [][]float64, rpeaks []int, af []ecg.Interval) error {
	if _, ok := ecg.ParseRecordName(rec); !ok {
		return errors.Errorf("record name %s is not of the form data_<subject>_<ordinal>", rec)
	}
	m, err := matfile.FromRows(data)
	if err != nil {
		return errors.Wrapf(err, "record %s", rec)
	}
	vars := map[string]matfile.Matrix{
		"ecg":    m,
		"rpeaks": matfile.FromInts(rpeaks),
	}
	if len(af) > 0 {
		rows := make([][]float64, len(af))
		for i, itv := range af {
			rows[i] = []float64{float64(itv.Start), float64(itv.End)}
		}
		afm, err := matfile.FromRows(rows)
		if err != nil {
			return errors.Wrapf(err, "record %s af intervals", rec)
		}
		vars["af_intervals"] = afm
	}
	return matfile.WriteFile(filepath.Join(dir, rec+".mat"), vars)
}

// WriteStats writes the stats.csv subject label table of a database
// directory.
func WriteStats(dir string, stats []ecg.SubjectStat) error {
	f, err := os.Create(filepath.Join(dir, StatsFile))
	if err != nil {
		return errors.Wrapf(err, "creating %s", StatsFile)
	}
	if err := gocsv.MarshalFile(&stats, f); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", StatsFile)
	}
	return f.Close()
}
