package audit

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/openbay/openbay/pkg/observability"
)

// ArchiverConfig configures the S3 audit archiver.
type ArchiverConfig struct {
	Bucket       string
	Region       string
	Prefix       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool

	// DeleteAfterUpload removes archived rows once the upload succeeds.
	DeleteAfterUpload bool
}

// Archiver uploads daily NDJSON batches of audit events to S3.
type Archiver struct {
	client *s3.Client
	source *DBRecorder
	cfg    ArchiverConfig
	logger *observability.Logger
}

// NewArchiver builds the S3 client and archiver.
func NewArchiver(ctx context.Context, cfg ArchiverConfig, source *DBRecorder, logger *observability.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required")
	}

	var (
		awsCfg aws.Config
		err    error
	)
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKey, cfg.SecretKey, "")),
		)
	} else {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Archiver{client: client, source: source, cfg: cfg, logger: logger}, nil
}

// ArchiveDay exports all events for the given UTC day and uploads them as a
// single NDJSON object. Days with no events are skipped.
func (a *Archiver) ArchiveDay(ctx context.Context, day time.Time) error {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	events, err := a.source.Search(ctx, SearchFilter{StartTime: &start, EndTime: &end})
	if err != nil {
		return fmt.Errorf("loading events for %s: %w", start.Format("2006-01-02"), err)
	}
	if len(events) == 0 {
		a.logger.WithField("day", start.Format("2006-01-02")).Debug("no audit events to archive")
		return nil
	}

	data, err := Export(events, ExportFormatNDJSON)
	if err != nil {
		return fmt.Errorf("exporting events: %w", err)
	}

	key := fmt.Sprintf("%s/%s/audit-%s.ndjson",
		a.cfg.Prefix, start.Format("2006/01/02"), start.Format("20060102"))

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return fmt.Errorf("uploading audit archive: %w", err)
	}

	a.logger.WithFields(map[string]interface{}{
		"key":    key,
		"events": len(events),
	}).Info("uploaded audit archive")

	if a.cfg.DeleteAfterUpload {
		// Prune only the uploaded day; older rows may belong to days that
		// were never archived.
		deleted, err := a.source.DeleteRange(ctx, start, end)
		if err != nil {
			return fmt.Errorf("pruning archived events: %w", err)
		}
		a.logger.WithField("deleted", deleted).Info("pruned archived audit events")
	}
	return nil
}
