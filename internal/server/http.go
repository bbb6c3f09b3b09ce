package server

import (
	"fmt"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewHTTPHandler builds the admin surface: a root landing page, a
// readiness probe that's always true once the process is up, a
// liveness probe tied to Server.Healthy, and the Prometheus scrape
// endpoint. Requests are wrapped in gorilla/handlers' combined access
// log, matching the teacher's own HTTP middleware layering.
func NewHTTPHandler(s *Server, log *logrus.Entry) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, "tsunproxy: %d active sessions\n", s.Registry.Len())
	})

	r.HandleFunc("/-/ready", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ready")
	})

	r.HandleFunc("/-/healthy", func(w http.ResponseWriter, req *http.Request) {
		if !s.Healthy() {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "unhealthy")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "healthy")
	})

	r.Handle("/metrics", promhttp.Handler())

	return handlers.CombinedLoggingHandler(log.Writer(), r)
}
