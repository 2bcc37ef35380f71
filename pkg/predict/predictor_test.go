package predict

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/config"
	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/pipeline"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

func fittedPredictor(t *testing.T) (*Predictor, *config.Config) {
	t.Helper()
	cfg := testutil.TestConfig(t)
	records := testutil.SyntheticRecords(400, 2)
	chain := pipeline.NewFromConfig(cfg).WithLogger(testutil.TestLogger(t))
	require.NoError(t, chain.Fit(table.FromRecords(cfg.Model.Features, records), testutil.Labels(records, cfg.Model.Target)))
	return New(cfg, chain, WithLogger(testutil.TestLogger(t))), cfg
}

// spyModel records the column order it was called with.
type spyModel struct {
	columns []string
	calls   int
	out     []float64
}

func (s *spyModel) Predict(t *table.Table) ([]float64, error) {
	s.calls++
	s.columns = t.Columns()
	if s.out != nil {
		return s.out, nil
	}
	return make([]float64, t.Len()), nil
}

func TestPredictSampleRecord(t *testing.T) {
	p, _ := fittedPredictor(t)

	res, err := p.Predict(context.Background(), []table.Record{testutil.SampleRecord()})
	require.NoError(t, err)
	require.Len(t, res.Predictions, 1)
	assert.Contains(t, []int{0, 1}, res.Predictions[0])
	assert.Nil(t, res.Errors)
	assert.Equal(t, version.Version, res.Version)
}

func TestPredictInvalidInputSkipsModel(t *testing.T) {
	cfg := testutil.TestConfig(t)
	spy := &spyModel{}
	p := New(cfg, spy, WithLogger(testutil.TestLogger(t)))

	bad := testutil.SampleRecord()
	bad["Previously_Insured"] = "maybe"
	res, err := p.Predict(context.Background(), []table.Record{testutil.SampleRecord(), bad})
	require.NoError(t, err)
	assert.Nil(t, res.Predictions)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, 1, res.Errors[0].Index)
	assert.Equal(t, "Previously_Insured", res.Errors[0].Field)
	assert.Zero(t, spy.calls)
}

func TestPredictReordersToConfiguredFeatures(t *testing.T) {
	cfg := testutil.TestConfig(t)
	spy := &spyModel{}
	p := New(cfg, spy, WithVersion("test"), WithLogger(testutil.TestLogger(t)))

	res, err := p.Predict(context.Background(), []table.Record{testutil.SampleRecord()})
	require.NoError(t, err)
	assert.Equal(t, cfg.Model.Features, spy.columns)
	assert.Equal(t, []int{0}, res.Predictions)
	assert.Equal(t, "test", res.Version)
}

func TestPredictEmptyBatch(t *testing.T) {
	cfg := testutil.TestConfig(t)
	spy := &spyModel{}
	p := New(cfg, spy)

	res, err := p.Predict(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []int{}, res.Predictions)
	assert.Zero(t, spy.calls)
}

func TestPredictNonFiniteOutput(t *testing.T) {
	cfg := testutil.TestConfig(t)
	p := New(cfg, &spyModel{out: []float64{math.NaN()}})

	_, err := p.Predict(context.Background(), []table.Record{testutil.SampleRecord()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInternal))
}

func TestPredictUnfittedChain(t *testing.T) {
	cfg := testutil.TestConfig(t)
	p := New(cfg, pipeline.NewFromConfig(cfg))

	_, err := p.Predict(context.Background(), []table.Record{testutil.SampleRecord()})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTransform))
}

func TestPredictConcurrent(t *testing.T) {
	p, _ := fittedPredictor(t)
	batch := testutil.SyntheticRecords(20, 8)
	for _, r := range batch {
		delete(r, "Response")
	}

	want, err := p.Predict(context.Background(), batch)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := p.Predict(context.Background(), batch)
			assert.NoError(t, err)
			assert.Equal(t, want.Predictions, got.Predictions)
		}()
	}
	wg.Wait()
}

func TestFloorLabels(t *testing.T) {
	labels, err := FloorLabels([]float64{0, 1, 1.9, -0.5})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 1, -1}, labels)

	_, err = FloorLabels([]float64{math.Inf(1)})
	require.Error(t, err)
	row, _ := errors.Detail(err, "row")
	assert.Equal(t, 0, row)
}
