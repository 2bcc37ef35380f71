// Package artifact persists fitted chains under version-qualified names.
//
// A store keeps exactly one artifact: Save deletes every object in the
// location except the new artifact and a sentinel file, then writes the new
// artifact. Saves within a process are serialised; saves from concurrent
// processes sharing one location are not coordinated and can leave zero or
// two artifacts behind.
package artifact

import (
	"context"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/compression"
	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/metrics"
	"github.com/ajitpratap0/vehicleinsurance/pkg/pipeline"
)

// saveMu serialises prune-and-write across every store in the process.
var saveMu sync.Mutex

// Store saves and loads chains through a Backend.
type Store struct {
	backend    Backend
	prefix     string
	sentinel   string
	compressor compression.Compressor
	base       *zap.Logger
	logger     *zap.Logger
}

// NewStore creates a store over backend using the artifact naming and
// compression settings of cfg.
func NewStore(cfg *config.Config, backend Backend, l *zap.Logger) (*Store, error) {
	alg, err := compression.ParseAlgorithm(cfg.Artifact.Compression)
	if err != nil {
		return nil, err
	}
	comp, err := compression.NewCompressor(&compression.Config{Algorithm: alg, Level: compression.Default})
	if err != nil {
		return nil, err
	}
	return &Store{
		backend:    backend,
		prefix:     cfg.App.PipelineSaveFile,
		sentinel:   cfg.Artifact.Sentinel,
		compressor: comp,
		base:       logger.OrGlobal(l),
		logger:     logger.OrGlobal(l).With(zap.String("component", "artifact_store"), zap.String("backend", backend.Name())),
	}, nil
}

// Open creates the backend selected by cfg.Artifact.Backend and a store
// over it.
func Open(ctx context.Context, cfg *config.Config, l *zap.Logger) (*Store, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Artifact.Backend {
	case config.BackendLocal, "":
		backend = NewLocalBackend(cfg.Artifact.Dir)
	case config.BackendS3:
		backend, err = NewS3Backend(ctx, cfg.Artifact)
	case config.BackendGCS:
		backend, err = NewGCSBackend(ctx, cfg.Artifact)
	default:
		err = errors.New(errors.ErrorTypeConfig, "unknown artifact backend").WithDetail("backend", cfg.Artifact.Backend)
	}
	if err != nil {
		return nil, err
	}
	return NewStore(cfg, backend, l)
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend { return s.backend }

// FileName returns the artifact name for version.
func (s *Store) FileName(version string) string {
	return s.prefix + version
}

// Save encodes chain, prunes every other artifact and writes the new one.
// It returns the artifact name.
func (s *Store) Save(ctx context.Context, chain *pipeline.Chain, version string) (string, error) {
	name := s.FileName(version)
	if version == "" {
		return "", errors.New(errors.ErrorTypeValidation, "artifact version is required")
	}
	if !chain.Fitted() {
		return "", errors.New(errors.ErrorTypeValidation, "refusing to save an unfitted chain").WithDetail("name", name)
	}

	payload, err := s.encode(chain)
	if err != nil {
		s.record("save", err)
		return "", err
	}

	saveMu.Lock()
	defer saveMu.Unlock()

	removed, err := s.prune(ctx, name)
	if err != nil {
		s.record("save", err)
		return "", err
	}
	if err := s.backend.Write(ctx, name, payload); err != nil {
		s.record("save", err)
		return "", err
	}

	s.record("save", nil)
	metrics.ArtifactBytes.WithLabelValues("save").Observe(float64(len(payload)))
	s.logger.Info("artifact saved",
		zap.String("name", name),
		zap.Int("bytes", len(payload)),
		zap.Strings("removed", removed))
	return name, nil
}

// Prune deletes every object except the sentinel and the names in keep. It
// returns the deleted names.
func (s *Store) Prune(ctx context.Context, keep ...string) ([]string, error) {
	saveMu.Lock()
	defer saveMu.Unlock()
	return s.prune(ctx, keep...)
}

func (s *Store) prune(ctx context.Context, keep ...string) ([]string, error) {
	names, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	kept := map[string]bool{s.sentinel: true}
	for _, k := range keep {
		kept[k] = true
	}

	var removed []string
	for _, n := range names {
		if kept[n] {
			continue
		}
		if err := s.backend.Delete(ctx, n); err != nil {
			return removed, err
		}
		removed = append(removed, n)
	}
	return removed, nil
}

// Load reads and decodes exactly the named artifact. A missing artifact is
// an ErrorTypeNotFound error.
func (s *Store) Load(ctx context.Context, name string) (*pipeline.Chain, error) {
	data, err := s.backend.Read(ctx, name)
	if err != nil {
		s.record("load", err)
		return nil, err
	}
	chain, err := s.decode(data)
	if err != nil {
		err = errors.Wrap(err, errors.ErrorTypeData, "failed to decode artifact").WithDetail("name", name)
		s.record("load", err)
		return nil, err
	}

	s.record("load", nil)
	metrics.ArtifactBytes.WithLabelValues("load").Observe(float64(len(data)))
	s.logger.Info("artifact loaded", zap.String("name", name), zap.Int("bytes", len(data)))
	return chain, nil
}

// LoadVersion loads the artifact saved for version.
func (s *Store) LoadVersion(ctx context.Context, version string) (*pipeline.Chain, error) {
	return s.Load(ctx, s.FileName(version))
}

// Close releases backend resources, if any.
func (s *Store) Close() error {
	if c, ok := s.backend.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) encode(chain *pipeline.Chain) ([]byte, error) {
	doc, err := json.Marshal(chain)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode chain")
	}
	return compression.Frame(s.compressor, doc)
}

func (s *Store) decode(data []byte) (*pipeline.Chain, error) {
	doc, err := compression.Unframe(data)
	if err != nil {
		return nil, err
	}
	var chain pipeline.Chain
	if err := json.Unmarshal(doc, &chain); err != nil {
		return nil, err
	}
	return chain.WithLogger(s.base), nil
}

func (s *Store) record(op string, err error) {
	metrics.ArtifactOperations.WithLabelValues(op, s.backend.Name(), metrics.Status(err)).Inc()
}
