package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/features"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/model"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
)

func fittedChain(t *testing.T) *Chain {
	t.Helper()
	cfg := testutil.TestConfig(t)
	records := testutil.SyntheticRecords(600, 1)

	chain := NewFromConfig(cfg).WithLogger(testutil.TestLogger(t))
	train := table.FromRecords(cfg.Model.Features, records)
	require.NoError(t, chain.Fit(train, testutil.Labels(records, cfg.Model.Target)))
	return chain
}

func TestNewFromConfigStepOrder(t *testing.T) {
	chain := NewFromConfig(testutil.TestConfig(t))

	var names []string
	for _, s := range chain.Steps() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{
		StepMapGender, StepScaleCols, StepScaleAnnualPremium,
		StepEncodeCols, StepRenameColumns, StepDropColumns,
	}, names)
	assert.Equal(t, model.KindRandomForest, chain.Estimator().Kind())
	assert.False(t, chain.Fitted())
}

func TestChainFitRecordsFeatureColumns(t *testing.T) {
	chain := fittedChain(t)

	assert.True(t, chain.Fitted())
	assert.Equal(t, []string{
		"Gender", "Age", "Driving_License", "Region_Code", "Previously_Insured",
		"Annual_Premium", "Policy_Sales_Channel", "Vintage",
		"Vehicle_Age_1-2 Year", "Vehicle_Age_lt_1_Year", "Vehicle_Age_gt_2_Years",
		"Vehicle_Damage_No", "Vehicle_Damage_Yes",
	}, chain.FeatureColumns())

	// fitted stages replaced the unfitted ones
	scaler, ok := chain.Steps()[1].Stage.(*features.StandardScaler)
	require.True(t, ok)
	assert.True(t, scaler.Fitted)
}

func TestChainPredictIsIdempotent(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	batch := table.FromRecords(cfg.Model.Features, testutil.SyntheticRecords(50, 99))

	first, err := chain.Predict(batch)
	require.NoError(t, err)
	second, err := chain.Predict(batch)
	require.NoError(t, err)

	assert.Len(t, first, 50)
	assert.Equal(t, first, second)
	for _, p := range first {
		assert.Contains(t, []float64{0, 1}, p)
	}
}

func TestChainLearnsSyntheticRule(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	holdout := testutil.SyntheticRecords(300, 7)

	pred, err := chain.Predict(table.FromRecords(cfg.Model.Features, holdout))
	require.NoError(t, err)
	assert.Greater(t, model.Accuracy(testutil.Labels(holdout, cfg.Model.Target), pred), 0.8)
}

func TestChainTransformDoesNotMutateInput(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	batch := table.FromRecords(cfg.Model.Features, []table.Record{testutil.SampleRecord()})

	out, err := chain.Transform(batch)
	require.NoError(t, err)
	assert.Equal(t, chain.FeatureColumns(), out.Columns())
	assert.Equal(t, "Male", batch.Value(0, "Gender"))
	assert.Equal(t, int64(44), batch.Value(0, "Age"))
	assert.Equal(t, int64(1), out.Value(0, "Gender"))
	assert.Equal(t, int64(1), out.Value(0, "Vehicle_Age_gt_2_Years"))
}

func TestChainPredictBeforeFit(t *testing.T) {
	chain := NewFromConfig(testutil.TestConfig(t))
	batch := table.FromRecords([]string{"Gender"}, []table.Record{{"Gender": "Male"}})

	_, err := chain.Predict(batch)
	require.Error(t, err)
	assert.True(t, features.IsNotFitted(err))
}

func TestChainFitLabelMismatch(t *testing.T) {
	chain := NewFromConfig(testutil.TestConfig(t))
	batch := table.FromRecords([]string{"Gender"}, []table.Record{{"Gender": "Male"}})

	err := chain.Fit(batch, []float64{1, 0})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestChainUnknownCategory(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	rec := testutil.SampleRecord()
	rec["Vehicle_Age"] = "> 20 Years"

	_, err := chain.Predict(table.FromRecords(cfg.Model.Features, []table.Record{rec}))
	require.Error(t, err)
	assert.True(t, errors.HasType(err, errors.ErrorTypeTransform))
}

func TestChainIgnoringUnknown(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	rec := testutil.SampleRecord()
	rec["Vehicle_Age"] = "> 20 Years"
	batch := table.FromRecords(cfg.Model.Features, []table.Record{rec})

	preds, err := chain.IgnoringUnknown().Predict(batch)
	require.NoError(t, err)
	assert.Len(t, preds, 1)

	// the original still rejects the category
	_, err = chain.Predict(batch)
	require.Error(t, err)
}

func TestChainJSONRoundTrip(t *testing.T) {
	chain := fittedChain(t)
	cfg := testutil.TestConfig(t)
	batch := table.FromRecords(cfg.Model.Features, testutil.SyntheticRecords(40, 3))

	data, err := json.Marshal(chain)
	require.NoError(t, err)

	var decoded Chain
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, decoded.Fitted())
	assert.Equal(t, chain.Name(), decoded.Name())
	assert.Equal(t, chain.FeatureColumns(), decoded.FeatureColumns())

	want, err := chain.Predict(batch)
	require.NoError(t, err)
	got, err := decoded.Predict(batch)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestIndicatorRenames(t *testing.T) {
	rename, ints := IndicatorRenames("Vehicle_Age", "Vehicle_Damage")
	assert.Equal(t, map[string]string{
		"Vehicle_Age_< 1 Year":  "Vehicle_Age_lt_1_Year",
		"Vehicle_Age_> 2 Years": "Vehicle_Age_gt_2_Years",
	}, rename)
	assert.Equal(t, []string{"Vehicle_Age_lt_1_Year", "Vehicle_Age_gt_2_Years", "Vehicle_Damage_Yes"}, ints)
}
