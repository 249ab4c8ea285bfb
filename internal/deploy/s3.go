package deploy

import (
	"context"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/BouyguesTelecom/static.js-sub000/internal/config"
	"github.com/BouyguesTelecom/static.js-sub000/internal/errors"
)

// ObjectPutter is the slice of the S3 client the uploader needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, input *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader pushes a directory tree to an S3 bucket.
type Uploader struct {
	client ObjectPutter
	bucket string
	prefix string
	logger *slog.Logger
}

// NewUploader creates an uploader around an existing client.
func NewUploader(client ObjectPutter, bucket, prefix string) *Uploader {
	return &Uploader{
		client: client,
		bucket: bucket,
		prefix: strings.TrimPrefix(prefix, "/"),
		logger: slog.Default(),
	}
}

// NewFromConfig builds an uploader from the project's deploy settings
// using the default AWS credential chain.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Uploader, error) {
	s3cfg := cfg.Deploy.S3
	if s3cfg.Bucket == "" {
		return nil, errors.New("E402").WithDetail("deploy.s3.bucket is not configured")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if s3cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(s3cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.New("E402").Wrap(err)
	}

	return NewUploader(s3.NewFromConfig(awsCfg), s3cfg.Bucket, s3cfg.Prefix), nil
}

// SetLogger overrides the uploader's logger.
func (u *Uploader) SetLogger(l *slog.Logger) {
	if l != nil {
		u.logger = l
	}
}

// Upload pushes every file under dir to the bucket and returns the
// number of objects written. The first failing object aborts the
// upload; a partial deploy is detectable by the returned count.
func (u *Uploader) Upload(ctx context.Context, dir string) (int, error) {
	uploaded := 0

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if u.prefix != "" {
			key = strings.TrimSuffix(u.prefix, "/") + "/" + key
		}

		f, err := os.Open(path)
		if err != nil {
			return errors.New("E402").WithPath(path).Wrap(err)
		}
		defer f.Close()

		_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(u.bucket),
			Key:         aws.String(key),
			Body:        f,
			ContentType: aws.String(contentTypeFor(path)),
		})
		if err != nil {
			return errors.New("E402").WithPath(path).WithDetail("key "+key).Wrap(err)
		}

		u.logger.Debug("uploaded", "key", key, "bytes", info.Size())
		uploaded++
		return nil
	})
	if err != nil {
		return uploaded, err
	}

	u.logger.Info("deploy complete", "bucket", u.bucket, "objects", uploaded)
	return uploaded, nil
}

// contentTypeFor maps a file to its MIME type. The fallback table
// covers types the platform mime database sometimes lacks.
func contentTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".html", ".htm":
		return "text/html; charset=utf-8"
	case ".css":
		return "text/css; charset=utf-8"
	case ".js", ".mjs":
		return "text/javascript; charset=utf-8"
	case ".json":
		return "application/json"
	case ".svg":
		return "image/svg+xml"
	case ".woff2":
		return "font/woff2"
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
