// internal/output/s3.go
package output

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/valpere/CellarScrapexter/internal/config"
	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// ObjectAPI is the subset of the S3 client the catalog uses
type ObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Catalog keeps the catalog as a single object in an S3-compatible bucket
type S3Catalog struct {
	client ObjectAPI
	bucket string
	key    string
	retry  *errors.Service
}

// NewS3Catalog builds an S3 client from cfg. Without static credentials
// the default AWS credential chain is used.
func NewS3Catalog(ctx context.Context, cfg config.S3Config) (*S3Catalog, error) {
	if cfg.Bucket == "" {
		return nil, errors.Newf(errors.KindConfig, "s3 catalog", "S3 bucket name is required")
	}
	if cfg.Key == "" {
		return nil, errors.Newf(errors.KindConfig, "s3 catalog", "S3 object key is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New(errors.KindConfig, "s3 catalog", fmt.Errorf("failed to load AWS config: %w", err))
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3CatalogWithClient(client, cfg.Bucket, cfg.Key), nil
}

// NewS3CatalogWithClient wraps an existing client
func NewS3CatalogWithClient(client ObjectAPI, bucket, key string) *S3Catalog {
	return &S3Catalog{
		client: client,
		bucket: bucket,
		key:    key,
		retry: errors.NewService().WithRetryConfig(errors.RetryConfig{
			MaxRetries:    2,
			BaseDelay:     200 * time.Millisecond,
			BackoffFactor: 2.0,
			MaxDelay:      2 * time.Second,
		}),
	}
}

// Location returns the s3:// URI of the catalog object
func (c *S3Catalog) Location() string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, c.key)
}

// Load downloads the catalog object. A missing object is an empty catalog.
func (c *S3Catalog) Load(ctx context.Context) ([]types.WineRecord, error) {
	var (
		data    []byte
		missing bool
	)
	err := c.retry.ExecuteWithRetry(ctx, func() error {
		out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(c.bucket),
			Key:    aws.String(c.key),
		})
		if err != nil {
			var noKey *s3types.NoSuchKey
			if errors.As(err, &noKey) {
				missing = true
				return nil
			}
			return err
		}
		defer out.Body.Close()

		data, err = io.ReadAll(out.Body)
		return err
	}, "load catalog")
	if err != nil {
		return nil, errors.New(errors.KindStorage, "load catalog", err)
	}
	if missing {
		return nil, nil
	}
	return decodeCatalog(data, c.Location())
}

// Save uploads the catalog object
func (c *S3Catalog) Save(ctx context.Context, records []types.WineRecord) error {
	data, err := encodeCatalog(records)
	if err != nil {
		return err
	}

	err = c.retry.ExecuteWithRetry(ctx, func() error {
		_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(c.bucket),
			Key:         aws.String(c.key),
			Body:        bytes.NewReader(data),
			ContentType: aws.String("application/json"),
		})
		return err
	}, "save catalog")
	if err != nil {
		return errors.New(errors.KindStorage, "save catalog", err)
	}
	return nil
}
