// Package instantstorage wraps the S3-compatible hot store. Content bytes are
// keyed by CID; downloads are served through presigned GET links.
package instantstorage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/merklebot/storage/internal/common"
)

// Config carries the S3 connection settings for the instant storage bucket.
type Config struct {
	Region          string
	Endpoint        string
	AccessKey       string
	SecretAccessKey string
	Bucket          string
}

type Client struct {
	bucket  string
	client  *s3.Client
	presign *s3.PresignClient
}

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	awsCfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretAccessKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})

	return &Client{
		bucket:  cfg.Bucket,
		client:  client,
		presign: s3.NewPresignClient(client),
	}, nil
}

// Put stores the content bytes under key (the CID).
func (c *Client) Put(ctx context.Context, key string, body io.Reader) error {
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &c.bucket,
		Key:    &key,
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("%w: instant storage put: %v", common.ErrorUpstreamUnavailable, err)
	}
	return nil
}

// PresignGet returns a time-limited download URL for key, with a filename
// hint for the browser.
func (c *Client) PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error) {
	disposition := fmt.Sprintf("attachment; filename=%q", filename)
	req, err := presignGetObject(c.presign, ctx, &s3.GetObjectInput{
		Bucket:                     &c.bucket,
		Key:                        &key,
		ResponseContentDisposition: &disposition,
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("%w: instant storage presign: %v", common.ErrorUpstreamUnavailable, err)
	}
	return req.URL, nil
}
