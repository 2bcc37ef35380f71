// Package pipeline provides the transformer chain: an ordered list of named
// feature stages followed by exactly one terminal estimator.
//
// # Lifecycle
//
// A Chain is fitted once. Fit threads the training table through every
// stage (each stage fits on the previous stage's output), fits the estimator
// on the final matrix and records the final column order. After that the
// chain is read-only and Predict may be called concurrently.
//
//	chain := pipeline.NewFromConfig(cfg)
//	if err := chain.Fit(train, labels); err != nil { ... }
//	preds, err := chain.Predict(batch)
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/features"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/model"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
)

// Step is a named stage of the chain.
type Step struct {
	Name  string
	Stage features.Stage
}

// Chain is an ordered sequence of stages with a terminal estimator.
type Chain struct {
	name      string
	steps     []Step
	estimator model.Estimator
	estName   string
	columns   []string
	fitted    bool
	logger    *zap.Logger
}

// New creates an unfitted chain. The estimator step is named estimatorName.
func New(name string, estimatorName string, estimator model.Estimator, steps ...Step) *Chain {
	return &Chain{
		name:      name,
		steps:     append([]Step(nil), steps...),
		estimator: estimator,
		estName:   estimatorName,
		logger:    logger.Get().With(zap.String("component", "chain"), zap.String("chain", name)),
	}
}

// WithLogger replaces the chain's logger.
func (c *Chain) WithLogger(l *zap.Logger) *Chain {
	c.logger = logger.OrGlobal(l).With(zap.String("component", "chain"), zap.String("chain", c.name))
	return c
}

// Name returns the chain name.
func (c *Chain) Name() string { return c.name }

// Steps returns the stages in order.
func (c *Chain) Steps() []Step { return append([]Step(nil), c.steps...) }

// Estimator returns the terminal estimator.
func (c *Chain) Estimator() model.Estimator { return c.estimator }

// Fitted reports whether Fit has completed.
func (c *Chain) Fitted() bool { return c.fitted }

// FeatureColumns returns the estimator's input columns in order, recorded at fit.
func (c *Chain) FeatureColumns() []string { return append([]string(nil), c.columns...) }

// Fit fits every stage in order, then the estimator. y holds one label per row.
// Re-fitting replaces all fitted state.
func (c *Chain) Fit(t *table.Table, y []float64) error {
	if c.estimator == nil {
		return errors.New(errors.ErrorTypeConfig, "chain has no estimator").WithDetail("chain", c.name)
	}
	if len(y) != t.Len() {
		return errors.New(errors.ErrorTypeData, "label count does not match row count").
			WithDetail("rows", t.Len()).
			WithDetail("labels", len(y))
	}

	start := time.Now()
	fittedSteps := make([]Step, len(c.steps))
	cur := t
	for i, step := range c.steps {
		fitted, err := step.Stage.Fit(cur)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeTransform, "failed to fit step").WithDetail("step", step.Name)
		}
		next, err := fitted.Transform(cur)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeTransform, "failed to transform at step").WithDetail("step", step.Name)
		}
		if err := checkRows(step.Name, cur, next); err != nil {
			return err
		}
		fittedSteps[i] = Step{Name: step.Name, Stage: fitted}
		cur = next
	}

	columns := cur.Columns()
	X, err := cur.Matrix(columns...)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "transformed table is not numeric")
	}
	if err := c.estimator.Fit(X, y); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to fit estimator").WithDetail("step", c.estName)
	}

	c.steps = fittedSteps
	c.columns = columns
	c.fitted = true
	c.logger.Info("chain fitted",
		zap.Int("rows", t.Len()),
		zap.Int("features", len(columns)),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// Transform runs every fitted stage over t without refitting and reindexes
// the result to the fitted feature columns.
func (c *Chain) Transform(t *table.Table) (*table.Table, error) {
	if !c.fitted {
		return nil, errors.Wrap(features.ErrNotFitted, errors.ErrorTypeTransform, "chain is not fitted").
			WithDetail("chain", c.name)
	}
	cur := t
	for _, step := range c.steps {
		next, err := step.Stage.Transform(cur)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeTransform, "failed to transform at step").WithDetail("step", step.Name)
		}
		if err := checkRows(step.Name, cur, next); err != nil {
			return nil, err
		}
		cur = next
	}
	return cur.Select(c.columns...), nil
}

// Predict transforms t and returns the estimator's raw outputs, one per row.
func (c *Chain) Predict(t *table.Table) ([]float64, error) {
	out, err := c.Transform(t)
	if err != nil {
		return nil, err
	}
	X, err := out.Matrix(c.columns...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "transformed table is not numeric")
	}
	preds, err := c.estimator.Predict(X)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "estimator predict failed").WithDetail("step", c.estName)
	}
	return preds, nil
}

// IgnoringUnknown returns a copy of the fitted chain whose one-hot stages
// leave unseen categories as all-zero indicators instead of failing.
// The receiver is not modified.
func (c *Chain) IgnoringUnknown() *Chain {
	cp := *c
	cp.steps = make([]Step, len(c.steps))
	for i, step := range c.steps {
		if enc, ok := step.Stage.(*features.OneHotEncoder); ok {
			relaxed := *enc
			relaxed.Policy = features.UnknownIgnore
			step.Stage = &relaxed
		}
		cp.steps[i] = step
	}
	return &cp
}

func checkRows(step string, before, after *table.Table) error {
	if before.Len() != after.Len() {
		return errors.New(errors.ErrorTypeInternal, "stage changed the row count").
			WithDetail("step", step).
			WithDetail("before", before.Len()).
			WithDetail("after", after.Len())
	}
	return nil
}
