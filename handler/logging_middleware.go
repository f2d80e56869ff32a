package handler

import (
	"go-books-api/logger"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// responseRecorder captures the status code and stamps X-Process-Time just
// before the headers are written.
type responseRecorder struct {
	http.ResponseWriter
	start       time.Time
	status      int
	wroteHeader bool
}

func (r *responseRecorder) WriteHeader(code int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = code
	elapsed := time.Since(r.start).Seconds()
	r.Header().Set("X-Process-Time", strconv.FormatFloat(elapsed, 'f', 6, 64))
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	return r.ResponseWriter.Write(b)
}

// RequestLogger logs every request with its status and latency.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &responseRecorder{ResponseWriter: w, start: time.Now(), status: http.StatusOK}
		next.ServeHTTP(rec, r)

		logger.Log.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": time.Since(rec.start).Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("Request handled")
	})
}
