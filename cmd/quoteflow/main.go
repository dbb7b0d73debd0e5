// Command quoteflow assembles quotations by running the quotation producers
// through the scheduler.
//
// With -input it runs one job to completion and prints its report and
// document as JSON. With -serve it starts the HTTP and RPC job APIs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/quoteflow/observability"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/config"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/producer"
	"github.com/tailored-agentic-units/quoteflow/orchestrate/tracker"
	"github.com/tailored-agentic-units/quoteflow/quotation"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to tracker config YAML or JSON file")
		inputFile  = flag.String("input", "", "Path to a JSON job input; runs one job and exits")
		listen     = flag.String("serve", "", "HTTP listen address (e.g. :8080); serves the job APIs")
		storeKind  = flag.String("store", "", "Job store: memory, file, diskv, mysql or redis (overrides config)")
		pricesFile = flag.String("prices", "", "Path to a YAML or JSON price list of sku: unit price")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging to stderr")
	)
	flag.Parse()

	if (*inputFile == "") == (*listen == "") {
		fmt.Fprintln(os.Stderr, "Usage: quoteflow [-config <file>] (-input <file> | -serve <addr>)")
		flag.PrintDefaults()
		os.Exit(1)
	}

	cfg := config.DefaultTrackerConfig()
	if *configFile != "" {
		loaded, err := config.Load(*configFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = *loaded
	}
	if *storeKind != "" {
		cfg.Store.Kind = *storeKind
	}
	if len(cfg.InputKeys) == 0 {
		cfg.InputKeys = quotation.InputKeys()
	}
	if len(cfg.InputSchema) == 0 {
		cfg.InputSchema = quotation.InputSchema()
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slogObserver := observability.NewSlogObserver(logger)
	observability.RegisterObserver("slog", slogObserver)
	if otelObserver, err := observability.GetObserver("otel"); err == nil {
		observability.RegisterObserver("all", observability.Multi(slogObserver, otelObserver))
	}

	opts := quotation.DefaultOptions()
	if *pricesFile != "" {
		prices, err := loadPrices(*pricesFile)
		if err != nil {
			log.Fatalf("Failed to load prices: %v", err)
		}
		opts.Prices = prices
	}

	registry := producer.NewRegistry()
	if err := quotation.Register(registry, opts); err != nil {
		log.Fatalf("Failed to register producers: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("Failed to open %s store: %v", cfg.Store.Kind, err)
	}

	t, err := tracker.New(cfg, registry, tracker.WithStore(store))
	if err != nil {
		log.Fatalf("Failed to create tracker: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := t.Close(closeCtx); err != nil {
			logger.Warn("tracker close", "error", err)
		}
	}()

	if *listen != "" {
		if err := serve(ctx, *listen, t, logger); err != nil {
			logger.Error("server stopped", "error", err)
		}
		return
	}

	if err := runOnce(ctx, t, *inputFile); err != nil {
		logger.Error("job failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, t *tracker.Tracker, inputFile string) error {
	data, err := os.ReadFile(inputFile)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	var input map[string]any
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("parse input: %w", err)
	}

	id, err := t.Submit(ctx, input)
	if err != nil {
		return err
	}

	snap, err := t.Wait(ctx, id)
	if err != nil {
		return err
	}

	out := struct {
		tracker.Report
		Document map[string]any `json:"document"`
	}{
		Report:   tracker.NewReport(snap),
		Document: snap.Document,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// loadPrices reads a flat sku to unit price map. YAML is a superset of JSON,
// so both formats decode the same way.
func loadPrices(filename string) (quotation.StaticPrices, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	var prices quotation.StaticPrices
	if err := yaml.Unmarshal(data, &prices); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return prices, nil
}
