package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config describes the bucket that receives audit batches. Credentials
// fall back to the default AWS chain when the keys are empty.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
	BatchSize       int
}

const defaultS3BatchSize = 100

// objectPutter is the slice of *s3.Client the sink needs.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds a client for cfg, honouring a custom endpoint such as
// MinIO.
func NewS3Client(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*s3.Client, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		for _, fn := range optFns {
			fn(o)
		}
	})
	return client, nil
}

// S3Sink buffers entries and writes each batch as one JSON-lines object
// under <prefix>/<yyyy>/<mm>/<dd>/<timestamp>-<id>.jsonl.
type S3Sink struct {
	client    objectPutter
	bucket    string
	prefix    string
	batchSize int
	now       func() time.Time

	mu  sync.Mutex
	buf []Entry
}

func NewS3Sink(client objectPutter, cfg S3Config) (*S3Sink, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 audit bucket required")
	}
	size := cfg.BatchSize
	if size <= 0 {
		size = defaultS3BatchSize
	}
	return &S3Sink{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    strings.Trim(cfg.Prefix, "/"),
		batchSize: size,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *S3Sink) Record(ctx context.Context, e Entry) error {
	s.mu.Lock()
	s.buf = append(s.buf, e)
	full := len(s.buf) >= s.batchSize
	s.mu.Unlock()
	if full {
		return s.Flush(ctx)
	}
	return nil
}

// Flush uploads buffered entries. On failure the batch is put back so a
// later flush can retry it.
func (s *S3Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	batch := s.buf
	s.buf = nil
	s.mu.Unlock()
	if len(batch) == 0 {
		return nil
	}

	var body bytes.Buffer
	enc := json.NewEncoder(&body)
	for _, e := range batch {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encoding audit entry %s: %w", e.EntityID, err)
		}
	}

	key := s.objectKey()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		s.mu.Lock()
		s.buf = append(batch, s.buf...)
		s.mu.Unlock()
		return fmt.Errorf("uploading audit batch %s: %w", key, err)
	}
	return nil
}

func (s *S3Sink) objectKey() string {
	now := s.now()
	name := fmt.Sprintf("%s/%s-%s.jsonl", now.Format("2006/01/02"), now.Format("20060102T150405Z"), uuid.NewString()[:8])
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}

// Pending reports how many entries await upload.
func (s *S3Sink) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buf)
}
