package rhythmlog

import (
	"fmt"
	"log"
	"os"
)

var (
	release = os.Getenv("RELEASE")

	prefix = fmt.Sprintf("[release=%s] ", release)
	flags  = log.LstdFlags | log.Lshortfile | log.Lmicroseconds
)

func init() {
	// for clients still using the standard log package
	log.SetPrefix(prefix)
	log.SetFlags(flags)
}

// Basic prefixes the log line with the release identifier
var Basic = &Logger{
	Default: log.New(os.Stderr, prefix, flags),
}

// NewForTask creates a logger whose lines carry the active task name, so
// interleaved corpus builds stay attributable.
func NewForTask(task string) *Logger {
	p := fmt.Sprintf("[release=%s task=%s] ", release, task)
	return &Logger{
		Default: log.New(os.Stderr, p, flags),
	}
}

// Logger encapsulates multiple logging handlers
type Logger struct {
	Default   *log.Logger
	Durations Durations
}

// Interface encapsulates the relevant methods of log.Logger
type Interface interface {
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

// Printf implements Interface
func (l *Logger) Printf(format string, v ...interface{}) {
	l.Default.Output(2, fmt.Sprintf(format, v...))
}

// Println implements Interface
func (l *Logger) Println(v ...interface{}) {
	l.Default.Output(2, fmt.Sprintln(v...))
}
