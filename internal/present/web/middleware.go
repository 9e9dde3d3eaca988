package web

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

var requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "transitboard_http_request_duration_seconds",
	Help:    "Time taken to serve board requests",
	Buckets: prometheus.DefBuckets,
}, []string{"route", "code"})

func init() {
	prometheus.MustRegister(requestDuration)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqStart := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		elapsed := time.Since(reqStart)
		requestDuration.WithLabelValues(route, http.StatusText(rec.status)).Observe(elapsed.Seconds())
		s.logger.Debug("Request served", "route", route, "status", rec.status, "duration", elapsed.String())
	})
}
