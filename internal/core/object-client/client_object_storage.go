package objectclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	cfg "github.com/markdave123-py/fieldreport/internal/config"
	"github.com/markdave123-py/fieldreport/internal/core"
	"github.com/markdave123-py/fieldreport/internal/logger"
)

type S3Client struct {
	client        *s3.Client
	uploader      *manager.Uploader
	region        string
	endpoint      string
	publicBaseURL string
}

// NewS3Client connects to AWS S3, or to an S3 compatible store when
// S3_ENDPOINT is set. Without static keys the default credential chain is used.
func NewS3Client(ctx context.Context, cfg *cfg.Config, log logger.ILogger) (core.ObjectClient, error) {
	if cfg.AwsRegion == "" {
		return nil, fmt.Errorf("AWS_REGION not set")
	}
	if cfg.BucketName == "" {
		return nil, fmt.Errorf("S3 bucket name not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKey != "" && cfg.AwsSecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AwsAccessKey, cfg.AwsSecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.S3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.S3Endpoint)
			o.UsePathStyle = true
		}
	})
	log.Info("s3", "Object storage client ready", map[string]interface{}{
		"region": cfg.AwsRegion, "bucket": cfg.BucketName, "endpoint": cfg.S3Endpoint,
	})

	return &S3Client{
		client:        client,
		uploader:      manager.NewUploader(client),
		region:        cfg.AwsRegion,
		endpoint:      cfg.S3Endpoint,
		publicBaseURL: cfg.S3PublicBaseURL,
	}, nil
}

// UploadFile uploads a file and returns the URL it can be fetched from.
// The caller's context bounds the upload.
func (c *S3Client) UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("s3 upload: empty body")
	}
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 upload failed: %w", err)
	}
	return objectURL(c.publicBaseURL, c.endpoint, c.region, bucket, key), nil
}

func (c *S3Client) GetFile(ctx context.Context, bucket, key string) ([]byte, error) {
	resp, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// objectURL builds the public locator for key. A configured public base URL
// wins, then a custom endpoint (path style), then the AWS virtual host form.
func objectURL(publicBaseURL, endpoint, region, bucket, key string) string {
	key = strings.TrimLeft(key, "/")
	switch {
	case publicBaseURL != "":
		return strings.TrimRight(publicBaseURL, "/") + "/" + key
	case endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(endpoint, "/"), bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
	}
}
