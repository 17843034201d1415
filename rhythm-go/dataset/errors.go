package dataset

import (
	"fmt"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/errors"
)

// ConfigurationError reports an invalid or inconsistent configuration.
type ConfigurationError struct {
	Reason string
}

func (e ConfigurationError) Error() string {
	return "configuration error: " + e.Reason
}

// ArtifactNotFoundError reports a request for an artifact that has not
// been generated. Artifacts are never recomputed implicitly; callers
// must run the preprocess or slice step first.
type ArtifactNotFoundError struct {
	Kind string
	Name string
}

func (e ArtifactNotFoundError) Error() string {
	return fmt.Sprintf("%s %s not generated yet", e.Kind, e.Name)
}

// IsArtifactNotFound reports whether err, however wrapped, is an
// ArtifactNotFoundError.
func IsArtifactNotFound(err error) bool {
	_, ok := errors.Cause(err).(ArtifactNotFoundError)
	return ok
}

// UnsupportedTaskError reports an operation invoked on a view of the
// wrong task.
type UnsupportedTaskError struct {
	Task Task
	Op   string
}

func (e UnsupportedTaskError) Error() string {
	return fmt.Sprintf("%s is not supported under task %s", e.Op, e.Task)
}
