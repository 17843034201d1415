package status

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordStatusCode(t *testing.T) {
	codes := newBreakdown()
	handler := RecordStatusCode(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.Error(w, "missing", http.StatusNotFound)
			return
		}
		w.Write([]byte("ok"))
	}, codes)

	for _, path := range []string{"/", "/", "/missing"} {
		req := httptest.NewRequest("GET", path, nil)
		handler(httptest.NewRecorder(), req)
	}

	vals := codes.Value()
	require.InDelta(t, 100.0*2/3, vals["200"], 1e-9)
	require.InDelta(t, 100.0/3, vals["404"], 1e-9)
}

func TestRecordStatusCodeSingleHeader(t *testing.T) {
	codes := newBreakdown()
	handler := RecordStatusCode(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("queued"))
	}, codes)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest("GET", "/", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.EqualValues(t, 1, codes.Total)
}
