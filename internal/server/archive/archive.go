// Package archive mirrors staged artifacts to S3-compatible object storage
// through presigned PUT URLs.
package archive

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophgram/internal/netx"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	upload = netx.UploadToPresignedURL
)

const defaultContentType = "application/octet-stream"

type Options struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	// PresignExpiry bounds how long a generated URL stays valid.
	PresignExpiry time.Duration
	HTTPClient    *http.Client
}

type Mirror struct {
	opts    Options
	presign *s3.PresignClient
}

// New builds the presign client. Static credentials are used when AccessKey
// is set; otherwise the default AWS credential chain applies.
func New(ctx context.Context, opts Options) (*Mirror, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = 15 * time.Minute
	}
	return &Mirror{opts: opts, presign: newS3PresignClient(client)}, nil
}

// Key is the object key of an artifact downloaded from chatID/messageID.
func Key(chatID int64, messageID int, artifactID string) string {
	return fmt.Sprintf("chats/%d/%d/%s", chatID, messageID, artifactID)
}

// Put uploads the file at path under key and returns the object URI.
func (m *Mirror) Put(ctx context.Context, key, path string, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = defaultContentType
	}

	req, err := presignPutObject(m.presign, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(m.opts.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(m.opts.PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if err := upload(ctx, m.opts.HTTPClient, req.URL, f, size, contentType); err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", m.opts.Bucket, key), nil
}
