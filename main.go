package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"carpulse/batch"
	"carpulse/config"
	"carpulse/ledger"
	"carpulse/logging"
	"carpulse/resolver"
	"carpulse/scheduler"
	"carpulse/sources"
	"carpulse/storage"
)

var (
	collectNow = flag.Bool("collect", false, "Run one batch now and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("carpulse.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting carpulse...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Loaded %d source configs", len(cfg.Sources))
	for id, src := range cfg.Sources {
		log.Printf("  - %s (%s, kind=%s)", src.Name, id, src.Kind)
	}

	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	var uploader batch.ArtifactUploader
	if cfg.Artifacts.Enabled() {
		s3Uploader, err := storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.Artifacts.Bucket,
			Region:          cfg.Artifacts.Region,
			Endpoint:        cfg.Artifacts.Endpoint,
			AccessKeyID:     cfg.Artifacts.AccessKeyID,
			SecretAccessKey: cfg.Artifacts.SecretAccessKey,
		})
		if err != nil {
			log.Fatalf("Failed to configure artifact storage: %v", err)
		}
		uploader = s3Uploader
		log.Printf("Artifact storage: s3://%s", cfg.Artifacts.Bucket)
	} else {
		log.Println("Artifact storage not configured, wordcloud export disabled")
	}

	res := resolver.New(store, nil)
	led := ledger.New(store, cfg.StaleAfter)

	orchestrator := batch.NewOrchestrator(store, res, led, buildSources(cfg), uploader, batch.Options{
		Weights: cfg.Interest,
		TopK:    cfg.Analysis.TopK,
		Workers: cfg.Analysis.Workers,
	})

	if *collectNow {
		log.Println("Running batch...")
		if err := orchestrator.RunDaily(ctx, time.Now()); err != nil {
			log.Fatalf("Batch failed: %v", err)
		}
		log.Println("Batch complete!")
		return
	}

	sched := scheduler.New(cfg, orchestrator)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	sched.Stop()
	log.Println("Goodbye!")
}

// buildSources maps registered connectors onto the batch slots by kind.
// Connector clients are external; they register themselves here at link
// time through sources.Registered. Unfilled slots skip their jobs.
func buildSources(cfg *config.Config) batch.Sources {
	var srcs batch.Sources
	for id, sc := range cfg.Sources {
		conn, ok := sources.Registered(id)
		if !ok {
			log.Printf("Source %s (kind=%s) has no registered connector", id, sc.Kind)
			continue
		}
		switch sc.Kind {
		case "catalog":
			srcs.Catalog, _ = conn.(sources.CatalogSource)
		case "sales":
			srcs.Sales, _ = conn.(sources.SalesSource)
		case "trend":
			t, _ := conn.(sources.TrendSource)
			if sc.Provider == "google" {
				srcs.Google = t
			} else {
				srcs.Naver = t
			}
		case "registry":
			srcs.Registry, _ = conn.(sources.RegistrySource)
		case "blog":
			srcs.Blogs, _ = conn.(sources.BlogSource)
		default:
			log.Printf("Source %s has unknown kind %q", id, sc.Kind)
		}
	}
	return srcs
}

// maskConnectionString masks the password in a connection string for logging
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
