package artifact

import (
	"context"
	stderrors "errors"
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// GCSBackend stores objects under a prefix of a Google Cloud Storage bucket.
type GCSBackend struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
	prefix string
}

// NewGCSBackend creates a GCS backend. Without a credentials file the
// client uses application default credentials.
func NewGCSBackend(ctx context.Context, cfg config.ArtifactConfig) (*GCSBackend, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create GCS client")
	}
	return &GCSBackend{
		client: client,
		bucket: client.Bucket(cfg.Bucket),
		name:   cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
	}, nil
}

// Name returns "gcs".
func (b *GCSBackend) Name() string { return "gcs" }

// Close releases the client.
func (b *GCSBackend) Close() error { return b.client.Close() }

// List returns the object names directly under the prefix.
func (b *GCSBackend) List(ctx context.Context) ([]string, error) {
	listPrefix := objectKey(b.prefix, "")
	it := b.bucket.Objects(ctx, &storage.Query{Prefix: listPrefix})

	var names []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list GCS objects").
				WithDetail("bucket", b.name).
				WithDetail("prefix", listPrefix)
		}
		if name, ok := relativeName(listPrefix, attrs.Name); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// Read downloads an object.
func (b *GCSBackend) Read(ctx context.Context, name string) ([]byte, error) {
	r, err := b.bucket.Object(objectKey(b.prefix, name)).NewReader(ctx)
	if stderrors.Is(err, storage.ErrObjectNotExist) {
		return nil, notFound(b.Name(), name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open GCS object").
			WithDetail("bucket", b.name).
			WithDetail("object", objectKey(b.prefix, name))
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read GCS object").
			WithDetail("object", objectKey(b.prefix, name))
	}
	return data, nil
}

// Write uploads an object. The object becomes visible when the writer
// closes successfully.
func (b *GCSBackend) Write(ctx context.Context, name string, data []byte) error {
	w := b.bucket.Object(objectKey(b.prefix, name)).NewWriter(ctx)
	w.ContentType = "application/octet-stream"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to write GCS object").
			WithDetail("object", objectKey(b.prefix, name))
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to finalize GCS object").
			WithDetail("object", objectKey(b.prefix, name))
	}
	return nil
}

// Delete removes an object.
func (b *GCSBackend) Delete(ctx context.Context, name string) error {
	err := b.bucket.Object(objectKey(b.prefix, name)).Delete(ctx)
	if err != nil && !stderrors.Is(err, storage.ErrObjectNotExist) {
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to delete GCS object").
			WithDetail("object", objectKey(b.prefix, name))
	}
	return nil
}
