package artifact

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
)

// Backend is a flat namespace of named blobs: a directory or a bucket prefix.
type Backend interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// List returns the names of every object in the namespace, sorted.
	List(ctx context.Context) ([]string, error)
	// Read returns an object's content. A missing object yields an
	// ErrorTypeNotFound error.
	Read(ctx context.Context, name string) ([]byte, error)
	// Write stores an object, replacing any previous content.
	Write(ctx context.Context, name string, data []byte) error
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error
}

func notFound(backend, name string) error {
	return errors.New(errors.ErrorTypeNotFound, "artifact not found").
		WithDetail("backend", backend).
		WithDetail("name", name)
}

// LocalBackend stores objects as files in one directory.
type LocalBackend struct {
	dir string
}

// NewLocalBackend creates a backend rooted at dir. The directory is created
// on first write.
func NewLocalBackend(dir string) *LocalBackend {
	return &LocalBackend{dir: dir}
}

// Name returns "local".
func (b *LocalBackend) Name() string { return "local" }

// Dir returns the root directory.
func (b *LocalBackend) Dir() string { return b.dir }

// List returns regular file names; a missing directory lists as empty.
func (b *LocalBackend) List(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "list cancelled")
	}
	entries, err := os.ReadDir(b.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to list artifact directory").WithDetail("dir", b.dir)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (b *LocalBackend) path(name string) (string, error) {
	if name == "" || name == "." || name != filepath.Base(name) || strings.HasPrefix(name, "..") {
		return "", errors.New(errors.ErrorTypeValidation, "invalid artifact name").WithDetail("name", name)
	}
	return filepath.Join(b.dir, name), nil
}

// Read reads a file.
func (b *LocalBackend) Read(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeTimeout, "read cancelled")
	}
	p, err := b.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, notFound(b.Name(), name)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read artifact").WithDetail("path", p)
	}
	return data, nil
}

// Write writes to a temporary file in the same directory and renames it
// into place, so readers never observe a partial artifact.
func (b *LocalBackend) Write(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "write cancelled")
	}
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create artifact directory").WithDetail("dir", b.dir)
	}

	tmp, err := os.CreateTemp(b.dir, "."+name+".tmp-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create temp file").WithDetail("dir", b.dir)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write artifact").WithDetail("path", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to sync artifact").WithDetail("path", tmpName)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close artifact").WithDetail("path", tmpName)
	}
	if err := os.Rename(tmpName, p); err != nil {
		cleanup()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to move artifact into place").WithDetail("path", p)
	}
	return nil
}

// Delete removes a file.
func (b *LocalBackend) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeTimeout, "delete cancelled")
	}
	p, err := b.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to delete artifact").WithDetail("path", p)
	}
	return nil
}
