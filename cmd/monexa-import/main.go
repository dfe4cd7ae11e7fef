// monexa-import drives one import workflow from the command line: preview
// a CSV with duplicate detection, optionally commit it, or cancel a prior
// batch by id.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"monexa/internal/amqp"
	"monexa/internal/backend"
	"monexa/internal/client"
	"monexa/internal/config"
	"monexa/internal/core"
	"monexa/internal/engine"
	"monexa/internal/log"
	"monexa/internal/memstore"
	"monexa/internal/storage"
	"monexa/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	var (
		source   = flag.String("source", "generic", "source adapter id (amazon, gpay, paytm, phonepe, bank, generic)")
		filePath = flag.String("file", "", "path to the CSV export")
		rows     = flag.Int("rows", 0, "max preview rows, 0 = all (defaults to PREVIEW_MAX_ROWS)")
		strict   = flag.Bool("strict", false, "require every detail line to link to a header")
		commit   = flag.Bool("commit", false, "commit the file after previewing")
		cancelID = flag.String("cancel", "", "cancel the batch with this id and exit")
	)
	flag.Parse()

	logger := log.New(log.Config{Component: log.ComponentWorkflow})
	log.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fatal("invalid configuration: %v", err)
	}
	if *rows == 0 {
		*rows = cfg.PreviewMaxRows
	}

	ingestor, cleanup, err := buildIngestor(cfg)
	if err != nil {
		fatal("%v", err)
	}
	defer cleanup()
	logger.WithComponent(log.ComponentBackend).Debug("Backend ready", "backend", cfg.DataBackend)

	ctx, stop := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer stop()

	if *cancelID != "" {
		result, err := ingestor.Cancel(ctx, *cancelID)
		if err != nil {
			fatal("cancel failed: %v", err)
		}
		printJSON(result)
		return
	}

	if *filePath == "" {
		fatal("either -file or -cancel is required")
	}
	raw, err := os.ReadFile(*filePath)
	if err != nil {
		fatal("read file: %v", err)
	}

	// Local backends announce commits/cancels on the import events queue;
	// the remote service publishes its own.
	var events workflow.EventPublisher
	if cfg.DataBackend != "remote" && cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.WithComponent(log.ComponentAMQP).Warn("AMQP unavailable, import events will not be published", "error", err)
		} else {
			defer amqpClient.Close()
			events = amqpClient
		}
	}

	session := workflow.NewSession(ingestor, events, logger.Logger)

	preview, err := session.Preview(ctx, *source, raw, *rows)
	if err != nil {
		fatal("preview failed: %v", err)
	}
	_, candidates := session.CurrentPreview()
	printJSON(struct {
		Preview any                    `json:"preview"`
		Dedupe  []core.DedupeCandidate `json:"dedupe_candidates"`
	}{preview, candidates})

	if dupes := countDupes(candidates); dupes > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d row(s) look like duplicates of stored transactions\n", dupes)
	}

	if !*commit {
		return
	}
	batch, err := session.Commit(ctx, *strict)
	if err != nil {
		fatal("commit failed: %v", err)
	}
	printJSON(batch)
}

// buildIngestor picks the backend from configuration: a remote ingest
// service or a local engine over sqlite/memory.
func buildIngestor(cfg *config.Config) (backend.Ingestor, func(), error) {
	switch cfg.DataBackend {
	case "remote":
		return client.New(cfg.RemoteBaseURL, cfg.RequestTimeout), func() {}, nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return engine.New(store), func() { _ = store.Close() }, nil
	default:
		return engine.New(memstore.New()), func() {}, nil
	}
}

func countDupes(candidates []core.DedupeCandidate) int {
	n := 0
	for _, c := range candidates {
		if c.Confidence != core.MatchNone {
			n++
		}
	}
	return n
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("encode output: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "monexa-import: "+format+"\n", args...)
	os.Exit(1)
}
