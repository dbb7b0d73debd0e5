package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/flow"

	trackerhttp "github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/http"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker/rpc"
)

func handlers(t trackerhttp.Tracker, logger *slog.Logger) http.Handler {
	mux := flow.New()

	trackerhttp.Handle(mux, t, logger.With("handler", "http"))

	path, h := rpc.NewHandler(t)
	mux.Handle(path+"...", h, http.MethodPost)

	return mux
}

func serve(ctx context.Context, addr string, t trackerhttp.Tracker, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handlers(t, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("starting server", "listen", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		logger.Info("server shutdown")
		return nil
	}
	return err
}
