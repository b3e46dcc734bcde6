// Package rankingarchive uploads daily consensus snapshots to an
// S3-compatible bucket.
package rankingarchive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	rankingdomain "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/domain"
	rankingsheets "github.com/Black-And-White-Club/consensus-rank/app/modules/ranking/infrastructure/sheets"
	"github.com/Black-And-White-Club/consensus-rank/app/shared/observability/attr"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectPutter is the subset of the S3 client used here.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ConsensusReader supplies the lists to archive.
type ConsensusReader interface {
	GetTopRankings(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time, limit int) ([]rankingdomain.ConsensusEntry, error)
}

// Config holds bucket settings.
type Config struct {
	Bucket          string
	Prefix          string
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// Archiver writes one workbook per ranking type and day.
type Archiver struct {
	client ObjectPutter
	reader ConsensusReader
	bucket string
	prefix string
	logger *slog.Logger
}

// NewS3Client builds a path-style client for S3-compatible stores.
func NewS3Client(cfg Config) (*s3.Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	region := cfg.Region
	if region == "" {
		region = "auto"
	}
	opts := s3.Options{
		Region:       region,
		UsePathStyle: true,
	}
	if cfg.AccessKeyID != "" {
		opts.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		))
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return s3.New(opts), nil
}

// NewArchiver creates an Archiver.
func NewArchiver(client ObjectPutter, reader ConsensusReader, bucket, prefix string, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Archiver{client: client, reader: reader, bucket: bucket, prefix: prefix, logger: logger}
}

// ObjectKey returns the key a type's snapshot for date is stored under.
func (a *Archiver) ObjectKey(rankingType rankingdomain.RankingType, date time.Time) string {
	return path.Join(a.prefix, rankingdomain.Day(date).Format(time.DateOnly), rankingsheets.FileName(rankingType, date))
}

// ArchiveDay uploads the consensus of every ranking type for date and returns
// the written keys. A failing type does not stop the others.
func (a *Archiver) ArchiveDay(ctx context.Context, date time.Time) ([]string, error) {
	var keys []string
	var errs []error
	for _, t := range rankingdomain.AllRankingTypes {
		key, err := a.archiveType(ctx, t, date)
		if err != nil {
			a.logger.ErrorContext(ctx, "Failed to archive consensus",
				attr.Int("ranking_type", int(t)),
				attr.Date("date", date),
				attr.Error(err),
			)
			errs = append(errs, fmt.Errorf("type %d: %w", t, err))
			continue
		}
		keys = append(keys, key)
	}
	return keys, errors.Join(errs...)
}

func (a *Archiver) archiveType(ctx context.Context, rankingType rankingdomain.RankingType, date time.Time) (string, error) {
	entries, err := a.reader.GetTopRankings(ctx, rankingType, date, 0)
	if err != nil {
		return "", err
	}
	data, err := rankingsheets.WriteConsensus(rankingType, entries)
	if err != nil {
		return "", err
	}
	key := a.ObjectKey(rankingType, date)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(rankingsheets.ContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	a.logger.InfoContext(ctx, "Archived consensus", attr.String("key", key), attr.Int("players", len(entries)))
	return key, nil
}
