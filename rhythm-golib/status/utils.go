package status

import (
	"net/http"
	"strconv"
)

// RecordStatusCode wraps a handler so the HTTP status code of every
// response lands in the given breakdown.
func RecordStatusCode(h http.HandlerFunc, codes *Breakdown) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h(&codeRecorder{ResponseWriter: w, codes: codes}, r)
	}
}

// codeRecorder notes the first status code written to a response.
type codeRecorder struct {
	http.ResponseWriter
	codes *Breakdown
	wrote bool
}

func (w *codeRecorder) WriteHeader(code int) {
	if !w.wrote {
		w.wrote = true
		w.codes.HitAndAdd(strconv.Itoa(code))
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *codeRecorder) Write(body []byte) (int, error) {
	if !w.wrote {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(body)
}
