package midware

import (
	"fmt"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/codegangsta/negroni"

	"github.com/rhythmlab/rhythmlab/rhythm-golib/rhythmlog"
)

// Wrap wraps the provided handler with the default set of middleware.
// A nil handler wraps http.DefaultServeMux, a nil logger logs through
// rhythmlog.Basic.
func Wrap(handler http.Handler, logger *log.Logger) http.Handler {
	if handler == nil {
		handler = http.DefaultServeMux
	}
	if logger == nil {
		logger = rhythmlog.Basic.Default
	}
	return negroni.New(
		NewRecovery(logger),
		NewLogger(logger),
		negroni.Wrap(handler),
	)
}

// Logger is a HTTP request logger for use as negroni middleware.
type Logger struct {
	logger *log.Logger
}

// NewLogger returns a Logger negroni.Handler that will log requests
// to the provided logger.
func NewLogger(logger *log.Logger) *Logger {
	return &Logger{
		logger: logger,
	}
}

// ServeHTTP implements negroni.Handler
func (l *Logger) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(w, r)
	url := r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.Query().Encode()
	}

	switch rw := w.(type) {
	case negroni.ResponseWriter:
		l.logger.Println(r.Method, url, rw.Status(), rw.Size(), time.Since(start))
	case http.ResponseWriter:
		// status and size are not observable on a plain ResponseWriter
		l.logger.Println(r.Method, url, time.Since(start))
	}
}

// Recovery is a panic recovery middleware handler for negroni.
type Recovery struct {
	PrintStack bool
	StackAll   bool
	StackSize  int

	logger *log.Logger
}

// NewRecovery returns a new Recovery negroni.Handler
func NewRecovery(logger *log.Logger) *Recovery {
	return &Recovery{
		PrintStack: true,
		StackAll:   true,
		StackSize:  8 * 1024,
		logger:     logger,
	}
}

// ServeHTTP implements negroni.Handler
func (rec *Recovery) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	defer func(req *http.Request) {
		if err := recover(); err != nil {
			w.WriteHeader(http.StatusInternalServerError)

			stack := make([]byte, rec.StackSize)
			stack = stack[:runtime.Stack(stack, rec.StackAll)]
			rec.logger.Println("[recovery!]", req.Method, req.URL.Path, fmt.Sprintf("PANIC: %s\n%s", err, stack))
		}
	}(r)

	next(w, r)
}
