// Command fakehouse serves the in-memory household backend for local
// development: point toby at http://localhost:5000/api.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Risclover/toby/internal/fakeapi"
	"github.com/Risclover/toby/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	addr := flag.String("addr", "localhost:5000", "listen address")
	level := flag.String("log-level", "info", "log level")
	user := flag.Int64("user", fakeapi.SeedUserID, "session user id")
	flag.Parse()

	log, err := logging.New().ToWriter(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).Level(*level).Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fakehouse: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := &http.Server{
		Addr:              *addr,
		Handler:           fakeapi.New(fakeapi.WithLogger(log.Logger), fakeapi.WithSessionUser(*user)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, stop := context.WithTimeout(context.Background(), 2*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdown)
	}()

	log.Info().Str("addr", *addr).Str("prefix", fakeapi.Prefix).Msg("fake household backend listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("serve")
		return 1
	}
	return 0
}
