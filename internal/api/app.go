package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 15 * time.Second

func newServer(port int, h *Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// RunServer runs the broker HTTP server. This is a blocking call.
func RunServer(port int, h *Handler) {
	srv := newServer(port, h)
	log.Printf("budgie listening on %s\n", srv.Addr)
	log.Fatal(srv.ListenAndServe())
}

// RunServerInterruptible runs the server in the background in a Go routine and immediately returns a chan to
// the caller. The caller can then send a signal to the chan to gracefully shutdown the server.
// After shutdown the pending async operations are drained before done reports.
func RunServerInterruptible(port int, h *Handler) (stop chan<- struct{}, done <-chan error) {
	srv := newServer(port, h)

	stopCh := make(chan struct{}, 1)
	doneCh := make(chan error, 1)
	drained := make(chan struct{})
	failed := make(chan struct{})

	go func() {
		log.Printf("budgie listening on %s\n", srv.Addr)
		err := srv.ListenAndServe()
		// http.ErrServerClosed is returned on Shutdown; treat that as clean exit
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			close(failed)
			doneCh <- err
			return
		}
		<-drained
		doneCh <- nil
	}()

	go func() {
		select {
		case <-stopCh:
		case <-failed:
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.WithError(err).Warn("server shutdown")
		}
		h.Orchestrator.Runner.Wait()
		close(drained)
	}()
	return stopCh, doneCh
}
