package artifact

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// S3Backend stores objects under a key prefix of an S3 bucket.
type S3Backend struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

// NewS3Backend creates an S3 backend using the default AWS credential chain.
// A non-empty Endpoint targets an S3-compatible service with path-style
// addressing.
func NewS3Backend(ctx context.Context, cfg config.ArtifactConfig) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Backend{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Name returns "s3".
func (b *S3Backend) Name() string { return "s3" }

func (b *S3Backend) key(name string) string {
	return objectKey(b.prefix, name)
}

// List returns the object names directly under the prefix.
func (b *S3Backend) List(ctx context.Context) ([]string, error) {
	listPrefix := objectKey(b.prefix, "")
	p := s3.NewListObjectsV2Paginator(b.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(listPrefix),
	})

	var names []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list S3 objects").
				WithDetail("bucket", b.bucket).
				WithDetail("prefix", listPrefix)
		}
		for _, obj := range page.Contents {
			if name, ok := relativeName(listPrefix, aws.ToString(obj.Key)); ok {
				names = append(names, name)
			}
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read downloads an object.
func (b *S3Backend) Read(ctx context.Context, name string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if stderrors.As(err, &nsk) {
			return nil, notFound(b.Name(), name)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to get S3 object").
			WithDetail("bucket", b.bucket).
			WithDetail("key", b.key(name))
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read S3 object").WithDetail("key", b.key(name))
	}
	return data, nil
}

// Write uploads an object through the upload manager.
func (b *S3Backend) Write(ctx context.Context, name string, data []byte) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key(name)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to upload to S3").
			WithDetail("bucket", b.bucket).
			WithDetail("key", b.key(name))
	}
	return nil
}

// Delete removes an object. S3 reports success for missing keys.
func (b *S3Backend) Delete(ctx context.Context, name string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key(name)),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to delete S3 object").
			WithDetail("bucket", b.bucket).
			WithDetail("key", b.key(name))
	}
	return nil
}

// objectKey joins a prefix and name; an empty name yields the list prefix.
func objectKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	if name == "" {
		return prefix + "/"
	}
	return path.Join(prefix, name)
}

// relativeName strips listPrefix from key and skips nested keys.
func relativeName(listPrefix, key string) (string, bool) {
	if !strings.HasPrefix(key, listPrefix) {
		return "", false
	}
	rest := key[len(listPrefix):]
	if rest == "" || strings.Contains(rest, "/") {
		return "", false
	}
	return rest, true
}
