package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plannerd/internal/config"
	"plannerd/internal/database"
	"plannerd/internal/ics"
	"plannerd/internal/reconcile"
	"plannerd/internal/repository"
	"plannerd/internal/scheduler"
)

func main() {
	exportPath := flag.String("export", "", "write an ICS feed of active templates to this path and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DatabaseURI == "" {
		log.Fatal("DATABASE_URI is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to database")

	if err := db.Migrate(ctx); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	templateRepo := repository.NewTemplateRepository(db)
	eventRepo := repository.NewEventRepository(db)

	if *exportPath != "" {
		if err := exportFeed(ctx, templateRepo, *exportPath); err != nil {
			log.Fatalf("Failed to export feed: %v", err)
		}
		return
	}

	rec := reconcile.New(templateRepo, eventRepo, reconcile.Policy{
		Lookahead:   time.Duration(cfg.LookaheadDays) * 24 * time.Hour,
		Tolerance:   time.Duration(cfg.ToleranceMinutes) * time.Minute,
		MaxParallel: cfg.MaxParallel,
	}, nil)
	sched := scheduler.New(rec, cfg.CronSpec)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
	}()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Scheduler error: %v", err)
	}
}

func exportFeed(ctx context.Context, templates *repository.TemplateRepository, path string) error {
	now := time.Now()
	tpls, err := templates.FindActive(ctx, now)
	if err != nil {
		return err
	}
	feed, err := ics.Feed(tpls, now)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(feed), 0o644); err != nil {
		return err
	}
	log.Printf("Wrote %d templates to %s", len(tpls), path)
	return nil
}
