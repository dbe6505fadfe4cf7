// Command admissions tracks a university admission cycle. Without arguments
// it opens the operator menu; "serve" starts the HTTP API and "import" loads
// a single CSV file.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/nonsonwune/admission_cycle/api"
	"github.com/nonsonwune/admission_cycle/archive"
	"github.com/nonsonwune/admission_cycle/auth"
	"github.com/nonsonwune/admission_cycle/config"
	"github.com/nonsonwune/admission_cycle/importer"
	"github.com/nonsonwune/admission_cycle/metrics"
	"github.com/nonsonwune/admission_cycle/migrations"
	"github.com/nonsonwune/admission_cycle/query"
	"github.com/nonsonwune/admission_cycle/status"
	"github.com/nonsonwune/admission_cycle/store"
)

// app is everything the menu and the server share.
type app struct {
	cfg      *config.Config
	store    *store.Store
	metrics  *metrics.Metrics
	importer *importer.DataImporter
	query    *query.Service
	gate     *auth.Gate
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	ctx := context.Background()
	s, err := store.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err := migrations.InitSchema(ctx, s); err != nil {
		log.Fatalf("Error initializing schema: %v", err)
	}

	a, err := newApp(ctx, cfg, s)
	if err != nil {
		log.Fatal(err)
	}

	args := os.Args[1:]
	if len(args) == 0 {
		a.runMenu()
		return
	}
	switch args[0] {
	case "serve":
		if err := a.serve(); err != nil {
			log.Fatal(err)
		}
	case "import":
		if len(args) != 3 {
			log.Fatal("usage: admissions import <TABLE> <file.csv>")
		}
		if !a.importFile(ctx, args[1], args[2]) {
			os.Exit(1)
		}
	default:
		log.Fatalf("unknown command %q (want serve or import)", args[0])
	}
}

func newApp(ctx context.Context, cfg *config.Config, s *store.Store) (*app, error) {
	m := metrics.New()
	arc, err := archive.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("error opening upload archive: %w", err)
	}
	imp := importer.NewDataImporter(s, importer.ImportConfig{
		Registry: importer.DefaultRegistry(),
		Engine:   status.NewEngine(m),
		Archive:  arc,
		Metrics:  m,
	})
	return &app{
		cfg:      cfg,
		store:    s,
		metrics:  m,
		importer: imp,
		query:    query.NewService(s),
		gate:     auth.NewGate(s, cfg),
	}, nil
}

func (a *app) serve() error {
	srv := api.NewServer(a.cfg, a.store, a.importer, a.query, a.gate, a.metrics)
	httpServer := &http.Server{
		Addr:              a.cfg.ServerPort,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		color.Green("Admissions API listening on %s", a.cfg.ServerPort)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
