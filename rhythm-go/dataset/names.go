package dataset

import (
	"fmt"
	"strings"
)

const matExt = ".mat"

// artifactName builds the persisted name of the i-th slice of a record:
// the record's "data" prefix swapped for the task letter plus a 7-digit
// counter, e.g. S_101_1_0000042.
func artifactName(t Task, rec string, i int) string {
	return strings.Replace(rec, "data", t.artifactPrefix(), 1) + fmt.Sprintf("_%07d", i)
}

// RecordOfArtifact recovers the source record name from an artifact
// name, with or without extension. Malformed names map to "".
func RecordOfArtifact(name string) string {
	name = strings.TrimSuffix(name, matExt)
	if len(name) <= 8 {
		return ""
	}
	name = name[:len(name)-8] // drop the _0000042 counter
	if strings.HasPrefix(name, "S_") || strings.HasPrefix(name, "R_") {
		return "data" + name[1:]
	}
	return name
}

// SubjectOfArtifact extracts the subject id an artifact belongs to.
func SubjectOfArtifact(name string) string {
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
