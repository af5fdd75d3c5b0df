package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/openbay/openbay/pkg/audit"
	"github.com/openbay/openbay/pkg/config"
	"github.com/openbay/openbay/pkg/observability"
)

var (
	configPath  = flag.String("config", "", "Path to YAML config file (env vars override it)")
	runOnce     = flag.Bool("run-once", false, "Archive a single day and exit")
	archiveDate = flag.String("date", "", "Day to archive (YYYY-MM-DD). Defaults to yesterday. Only used with -run-once")
)

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "openbay-archiver: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if cfg.Archive.S3Bucket == "" {
		return fmt.Errorf("archive.s3_bucket is required")
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("archiving requires the postgres driver, got %q", cfg.Database.Driver)
	}

	logger := observability.NewLogger(
		observability.ParseLogLevel(cfg.Observability.LogLevel), os.Stdout)

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("pinging database: %w", err)
	}

	source, err := audit.NewDBRecorder(db)
	if err != nil {
		return fmt.Errorf("initializing audit source: %w", err)
	}

	ctx := context.Background()
	archiver, err := audit.NewArchiver(ctx, audit.ArchiverConfig{
		Bucket:            cfg.Archive.S3Bucket,
		Region:            cfg.Archive.S3Region,
		Prefix:            cfg.Archive.S3Prefix,
		Endpoint:          cfg.Archive.S3Endpoint,
		AccessKey:         cfg.Archive.S3AccessKey,
		SecretKey:         cfg.Archive.S3SecretKey,
		UsePathStyle:      cfg.Archive.S3UsePathStyle,
		DeleteAfterUpload: cfg.Archive.RetainDays > 0,
	}, source, logger)
	if err != nil {
		return fmt.Errorf("initializing archiver: %w", err)
	}

	if *runOnce {
		day := time.Now().UTC().AddDate(0, 0, -1)
		if *archiveDate != "" {
			day, err = time.Parse("2006-01-02", *archiveDate)
			if err != nil {
				return fmt.Errorf("invalid -date: %w", err)
			}
		}
		logger.WithField("day", day.Format("2006-01-02")).Info("archiving audit events")
		return archiver.ArchiveDay(ctx, day)
	}

	c := cron.New()
	_, err = c.AddFunc(cfg.Archive.Schedule, func() {
		yesterday := time.Now().UTC().AddDate(0, 0, -1)
		log := logger.WithField("day", yesterday.Format("2006-01-02"))
		log.Info("starting scheduled audit archive")
		if err := archiver.ArchiveDay(context.Background(), yesterday); err != nil {
			log.WithError(err).Error("audit archive failed")
			return
		}
		log.Info("audit archive completed")
	})
	if err != nil {
		return fmt.Errorf("scheduling archive job %q: %w", cfg.Archive.Schedule, err)
	}

	c.Start()
	logger.WithField("schedule", cfg.Archive.Schedule).Info("audit archiver started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	<-c.Stop().Done()
	return nil
}
