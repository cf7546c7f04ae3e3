package edge

import (
	"bytes"
	"net/http"
)

// recorder tees a response into a bounded buffer while it is written to
// the client. Once the body exceeds limit the copy is dropped and the
// response is marked oversized.
type recorder struct {
	http.ResponseWriter

	status    int
	body      bytes.Buffer
	limit     int64
	oversized bool
}

func newRecorder(w http.ResponseWriter, limit int64) *recorder {
	return &recorder{ResponseWriter: w, limit: limit}
}

func (r *recorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	if !r.oversized {
		if int64(r.body.Len()+len(b)) > r.limit {
			r.oversized = true
			r.body = bytes.Buffer{}
		} else {
			r.body.Write(b)
		}
	}

	return r.ResponseWriter.Write(b)
}

// Flush passes through so streaming handlers keep working.
func (r *recorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (r *recorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// Status returns the status written so far, 0 if nothing was written.
func (r *recorder) Status() int {
	return r.status
}

// Body returns a copy of the recorded body.
func (r *recorder) Body() []byte {
	return bytes.Clone(r.body.Bytes())
}
