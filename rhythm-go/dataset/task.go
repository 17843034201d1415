package dataset

import (
	"fmt"
	"strings"
)

// Task selects which artifact family a Dataset view works over.
type Task int

const (
	// TaskQRSDetection serves fixed-length segments labeled with QRS
	// complex masks.
	TaskQRSDetection Task = iota
	// TaskMain serves fixed-length segments labeled with AF episode
	// masks and loss weights.
	TaskMain
	// TaskRRLSTM serves RR-interval sequences labeled per beat.
	TaskRRLSTM
)

// Tasks lists every supported task.
func Tasks() []Task {
	return []Task{TaskQRSDetection, TaskMain, TaskRRLSTM}
}

func (t Task) String() string {
	switch t {
	case TaskQRSDetection:
		return "qrs_detection"
	case TaskMain:
		return "main"
	case TaskRRLSTM:
		return "rr_lstm"
	}
	return fmt.Sprintf("task(%d)", int(t))
}

// ParseTask maps a task name to its Task.
func ParseTask(s string) (Task, error) {
	for _, t := range Tasks() {
		if strings.ToLower(strings.TrimSpace(s)) == t.String() {
			return t, nil
		}
	}
	return 0, ConfigurationError{Reason: fmt.Sprintf("unknown task %q", s)}
}

// segmental reports whether the task works over signal segments rather
// than beat sequences.
func (t Task) segmental() bool {
	return t == TaskQRSDetection || t == TaskMain
}

// artifactPrefix is the letter substituted for "data" in artifact names.
func (t Task) artifactPrefix() string {
	if t == TaskRRLSTM {
		return "R"
	}
	return "S"
}
