package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// httpServer is a minimal wrapper around net/http.Server that stops
// cleanly when the root context is cancelled, used for the admin/health
// surface.
type httpServer struct {
	addr    string
	handler http.Handler
}

func (h *httpServer) run(ctx context.Context, log *logrus.Entry) {
	srv := &http.Server{Addr: h.addr, Handler: h.handler}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("http server failed")
	}
}
