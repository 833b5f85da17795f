package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mesh-intelligence/almanac/pkg/types"
)

// S3Config holds the bucket parameters. Credentials come from the default
// AWS chain unless AccessKeyID is set.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional; set for MinIO and other S3-compatible stores
	PathStyle       bool
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

// S3 stores one JSON object per record under <prefix>/<kind>/<id>.json.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

var _ Backend = (*S3)(nil)

// OpenS3 builds an S3 client from cfg.
func OpenS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return newS3(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Name implements Backend.
func (s *S3) Name() string { return types.BackendS3 }

func (s *S3) kindPrefix(kind string) string {
	return path.Join(s.prefix, kind) + "/"
}

func (s *S3) key(kind, id string) string {
	return s.kindPrefix(kind) + id + ".json"
}

// Fetch implements Backend.
func (s *S3) Fetch(ctx context.Context, kind string) ([]types.Record, error) {
	prefix := s.kindPrefix(kind)
	var (
		out   []types.Record
		token *string
	)
	for {
		page, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &prefix,
			ContinuationToken: token,
		})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			rec, err := s.get(ctx, key)
			if errors.Is(err, types.ErrInvalidData) {
				slog.Warn("skipping remote record", "backend", types.BackendS3, "key", key, "error", err)
				continue
			}
			if err != nil {
				return nil, err
			}
			if rec == nil {
				continue
			}
			rec.Kind = kind
			rec.ID = strings.TrimSuffix(strings.TrimPrefix(key, prefix), ".json")
			out = append(out, *rec)
		}
		if aws.ToBool(page.IsTruncated) && page.NextContinuationToken != nil {
			token = page.NextContinuationToken
			continue
		}
		return out, nil
	}
}

// get reads one object. A key deleted between list and get yields nil; a
// body that is not a record yields ErrInvalidData.
func (s *S3) get(ctx context.Context, key string) (*types.Record, error) {
	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		var missing *s3types.NoSuchKey
		if errors.As(err, &missing) {
			return nil, nil
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Body.Close()
	body, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	var rec types.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrInvalidData, key, err)
	}
	return &rec, nil
}

// Put implements Backend. PutObject overwrites, which makes it an upsert.
func (s *S3) Put(ctx context.Context, rec types.Record) (types.RemoteRef, error) {
	if rec.Kind == "" || rec.ID == "" || strings.Contains(rec.ID, "/") {
		return "", types.ErrInvalidID
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("encode %s %s: %w", rec.Kind, rec.ID, err)
	}
	key := s.key(rec.Kind, rec.ID)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.bucket,
		Key:         &key,
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}
	return MakeRef(rec.Kind, rec.ID), nil
}

// Remove implements Backend.
func (s *S3) Remove(ctx context.Context, ref types.RemoteRef) error {
	kind, id, err := ParseRef(ref)
	if err != nil {
		return err
	}
	key := s.key(kind, id)
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &s.bucket, Key: &key}); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Close implements Backend. The S3 client holds no resources to release.
func (s *S3) Close() error { return nil }
