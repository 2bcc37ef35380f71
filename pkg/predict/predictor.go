// Package predict orchestrates a prediction call: validate the records,
// project them onto the configured features, run the fitted chain and wrap
// the integer labels with the software version.
package predict

import (
	"context"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/metrics"
	"github.com/ajitpratap0/vehicleinsurance/pkg/observability"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/validation"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

// Result is the outcome of one prediction call. Predictions and Errors are
// mutually exclusive.
type Result struct {
	Predictions []int             `json:"predictions"`
	Version     string            `json:"version"`
	Errors      validation.Errors `json:"errors"`
}

// Model is the fitted chain as seen by the predictor.
type Model interface {
	Predict(t *table.Table) ([]float64, error)
}

// Predictor serves predictions from a fitted model. It is safe for
// concurrent use.
type Predictor struct {
	model     Model
	validator *validation.Validator
	features  []string
	version   string
	logger    *zap.Logger
}

// Option configures a Predictor.
type Option func(*Predictor)

// WithLogger sets the predictor's logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Predictor) { p.logger = l }
}

// WithVersion overrides the version reported in results.
func WithVersion(v string) Option {
	return func(p *Predictor) { p.version = v }
}

// WithValidator replaces the configured validator.
func WithValidator(v *validation.Validator) Option {
	return func(p *Predictor) { p.validator = v }
}

// New creates a predictor for a fitted model.
func New(cfg *config.Config, model Model, opts ...Option) *Predictor {
	p := &Predictor{
		model:    model,
		features: append([]string(nil), cfg.Model.Features...),
		version:  version.Version,
	}
	for _, opt := range opts {
		opt(p)
	}
	base := logger.OrGlobal(p.logger)
	p.logger = base.With(zap.String("component", "predictor"))
	if p.validator == nil {
		p.validator = validation.New(cfg, base)
	}
	return p
}

// Version returns the version reported in results.
func (p *Predictor) Version() string { return p.version }

// Predict validates records and, when they are clean, scores them. Invalid
// input is reported in Result.Errors with a nil error; the error return is
// reserved for transform and internal failures.
func (p *Predictor) Predict(ctx context.Context, records []table.Record) (res *Result, err error) {
	ctx = context.WithValue(ctx, logger.ModelVersionKey, p.version)
	ctx, span := observability.StartSpan(ctx, "predict.Predict", attribute.Int("records", len(records)))
	timer := metrics.NewTimer()
	status := metrics.StatusSuccess
	defer func() {
		if err != nil {
			status = metrics.StatusError
		}
		metrics.PredictionRequests.WithLabelValues(status).Inc()
		metrics.PredictionDuration.WithLabelValues(status).Observe(timer.Stop().Seconds())
		observability.EndSpan(span, err)
	}()
	log := logger.FromContext(ctx, p.logger)

	validated, verrs := p.validator.Validate(records)
	if verrs != nil {
		status = metrics.StatusInvalid
		for _, fe := range verrs {
			metrics.ValidationErrors.WithLabelValues(fe.Field).Inc()
		}
		span.SetAttributes(attribute.Int("validation_errors", len(verrs)))
		log.Info("prediction rejected",
			zap.Int("records", len(records)),
			zap.Int("errors", len(verrs)))
		return &Result{Predictions: nil, Version: p.version, Errors: verrs}, nil
	}

	// the estimator is order-sensitive
	batch := validated.Select(p.features...)
	if batch.Len() == 0 {
		return &Result{Predictions: []int{}, Version: p.version}, nil
	}

	raw, err := p.model.Predict(batch)
	if err != nil {
		log.Error("prediction failed", errors.Field(err))
		return nil, err
	}
	labels, err := FloorLabels(raw)
	if err != nil {
		log.Error("model returned an invalid label", errors.Field(err))
		return nil, err
	}

	metrics.PredictionRecords.Add(float64(len(labels)))
	log.Debug("prediction served", zap.Int("records", len(labels)))
	return &Result{Predictions: labels, Version: p.version, Errors: nil}, nil
}

// FloorLabels floors each raw output and casts it to int. Non-finite outputs
// are an internal error.
func FloorLabels(raw []float64) ([]int, error) {
	out := make([]int, len(raw))
	for i, v := range raw {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrorTypeInternal, "estimator produced a non-finite label").
				WithDetail("row", i).
				WithDetail("value", v)
		}
		out[i] = int(math.Floor(v))
	}
	return out, nil
}
