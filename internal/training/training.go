// Package training runs a full training cycle: load the dataset, split it,
// fit the chain, score it on the holdout and persist it.
package training

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/internal/dataset"
	"github.com/ajitpratap0/vehicleinsurance/pkg/artifact"
	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/metrics"
	"github.com/ajitpratap0/vehicleinsurance/pkg/model"
	"github.com/ajitpratap0/vehicleinsurance/pkg/observability"
	"github.com/ajitpratap0/vehicleinsurance/pkg/pipeline"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// positiveLabel is the class scored by precision and recall.
const positiveLabel = 1

// Report summarises a training run.
type Report struct {
	RunID     string        `json:"run_id"`
	Artifact  string        `json:"artifact"`
	Version   string        `json:"version"`
	TrainRows int           `json:"train_rows"`
	TestRows  int           `json:"test_rows"`
	Accuracy  float64       `json:"accuracy"`
	Precision float64       `json:"precision"`
	Recall    float64       `json:"recall"`
	F1        float64       `json:"f1"`
	Duration  time.Duration `json:"duration"`
}

// Trainer runs training cycles for one configuration.
type Trainer struct {
	cfg    *config.Config
	store  *artifact.Store
	logger *zap.Logger
}

// New creates a trainer that persists into store.
func New(cfg *config.Config, store *artifact.Store, l *zap.Logger) *Trainer {
	return &Trainer{cfg: cfg, store: store, logger: logger.OrGlobal(l)}
}

// Run trains on the configured dataset and saves the chain under version.
func (t *Trainer) Run(ctx context.Context, version string) (rep *Report, err error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	ctx, span := observability.StartSpan(ctx, "training.Run")
	defer func() {
		metrics.TrainingRuns.WithLabelValues(metrics.Status(err)).Inc()
		observability.EndSpan(span, err)
	}()
	log := logger.FromContext(ctx, t.logger).With(zap.String("component", "trainer"))
	start := time.Now()

	ds, err := dataset.LoadTraining(ctx, t.cfg, t.logger)
	if err != nil {
		return nil, err
	}
	features, labels, err := dataset.Prepare(t.cfg, ds)
	if err != nil {
		return nil, err
	}
	return t.fitAndSave(ctx, log, runID, version, start, features, labels)
}

// RunOn trains on an in-memory table instead of the configured file.
func (t *Trainer) RunOn(ctx context.Context, features *table.Table, labels []float64, version string) (*Report, error) {
	runID := uuid.NewString()
	ctx = context.WithValue(ctx, logger.RunIDKey, runID)
	log := logger.FromContext(ctx, t.logger).With(zap.String("component", "trainer"))
	rep, err := t.fitAndSave(ctx, log, runID, version, time.Now(), features, labels)
	metrics.TrainingRuns.WithLabelValues(metrics.Status(err)).Inc()
	return rep, err
}

func (t *Trainer) fitAndSave(ctx context.Context, log *zap.Logger, runID, version string, start time.Time,
	features *table.Table, labels []float64) (*Report, error) {
	m := t.cfg.Model

	trainIdx, testIdx, err := model.TrainTestSplit(features.Len(), m.TestSize, m.RandomState)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to split dataset")
	}
	trainX, err := features.Take(trainIdx)
	if err != nil {
		return nil, err
	}
	testX, err := features.Take(testIdx)
	if err != nil {
		return nil, err
	}
	trainY, testY := pick(labels, trainIdx), pick(labels, testIdx)

	chain := pipeline.NewFromConfig(t.cfg).WithLogger(t.logger)
	if err := chain.Fit(trainX, trainY); err != nil {
		return nil, err
	}

	// Categories absent from the train split may still appear in the holdout.
	pred, err := chain.IgnoringUnknown().Predict(testX)
	if err != nil {
		return nil, err
	}
	scores := model.PrecisionRecallF1(testY, pred, positiveLabel)
	rep := &Report{
		RunID:     runID,
		Version:   version,
		TrainRows: len(trainIdx),
		TestRows:  len(testIdx),
		Accuracy:  model.Accuracy(testY, pred),
		Precision: scores.Precision,
		Recall:    scores.Recall,
		F1:        scores.F1,
	}
	metrics.ModelScore.WithLabelValues("accuracy").Set(rep.Accuracy)
	metrics.ModelScore.WithLabelValues("precision").Set(rep.Precision)

	name, err := t.store.Save(ctx, chain, version)
	if err != nil {
		return nil, err
	}
	rep.Artifact = name
	rep.Duration = time.Since(start)

	log.Info("training finished",
		zap.String("artifact", name),
		zap.Int("train_rows", rep.TrainRows),
		zap.Int("test_rows", rep.TestRows),
		zap.Float64("accuracy", rep.Accuracy),
		zap.Float64("precision", rep.Precision),
		zap.Duration("duration", rep.Duration))
	return rep, nil
}

func pick(values []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = values[j]
	}
	return out
}
