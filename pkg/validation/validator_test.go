package validation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
)

func newValidator(t *testing.T) *Validator {
	return New(testutil.TestConfig(t), testutil.TestLogger(t))
}

func TestValidateCleanRecord(t *testing.T) {
	v := newValidator(t)

	out, errs := v.Validate([]table.Record{testutil.SampleRecord()})
	assert.Nil(t, errs)
	assert.Equal(t, v.Features(), out.Columns())
	assert.Equal(t, 1, out.Len())
	// integral float coerces to int
	assert.Equal(t, int64(28), out.Value(0, "Region_Code"))
	assert.Equal(t, 26.0, out.Value(0, "Policy_Sales_Channel"))
}

func TestValidateOneBadRecord(t *testing.T) {
	v := newValidator(t)
	records := testutil.SyntheticRecords(5, 1)
	records[3]["Age"] = "forty"

	out, errs := v.Validate(records)
	require.Len(t, errs, 1)
	assert.Equal(t, []int{3}, errs.Indices())
	assert.Equal(t, "Age", errs[0].Field)
	assert.Equal(t, "int_parsing", errs[0].Type)
	assert.Equal(t, "forty", errs[0].Input)

	// projection is unconditional
	assert.Equal(t, 5, out.Len())
	assert.Equal(t, "forty", out.Value(3, "Age"))
	assert.False(t, out.Has("Response"))
}

func TestValidateCollectsAllErrors(t *testing.T) {
	v := newValidator(t)
	bad := testutil.SampleRecord()
	bad["Driving_License"] = int64(2)
	bad["Annual_Premium"] = -1.0
	bad["Gender"] = int64(1)
	other := testutil.SampleRecord()
	other["Age"] = 44.5

	_, errs := v.Validate([]table.Record{bad, testutil.SampleRecord(), other})
	require.Len(t, errs, 4)
	assert.Equal(t, []int{0, 2}, errs.Indices())

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Type
	}
	assert.Equal(t, "literal_error", byField["Driving_License"])
	assert.Equal(t, "greater_than_equal", byField["Annual_Premium"])
	assert.Equal(t, "string_type", byField["Gender"])
	assert.Equal(t, "int_from_float", byField["Age"])
}

func TestValidateRejectsIntOverflow(t *testing.T) {
	v := newValidator(t)

	for _, in := range []any{9223372036854775808.0, json.Number("9223372036854775808"), math.Inf(1)} {
		rec := testutil.SampleRecord()
		rec["Region_Code"] = in
		_, errs := v.Validate([]table.Record{rec})
		require.Len(t, errs, 1, "%v", in)
		assert.Equal(t, "Region_Code", errs[0].Field)
		assert.Equal(t, "int_parsing", errs[0].Type)
	}
}

func TestValidateLaxCoercion(t *testing.T) {
	v := newValidator(t)

	tests := []struct {
		name  string
		field string
		input any
		want  any
	}{
		{"json integer", "Age", json.Number("44"), int64(44)},
		{"json integral float", "Region_Code", json.Number("28.0"), int64(28)},
		{"integer string", "Vintage", " 217 ", int64(217)},
		{"int as float", "Annual_Premium", int64(40454), 40454.0},
		{"numeric string", "Policy_Sales_Channel", "26.5", 26.5},
		{"nan int becomes null", "Age", math.NaN(), nil},
		{"nan float becomes null", "Annual_Premium", math.NaN(), nil},
		{"null stays null", "Gender", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := testutil.SampleRecord()
			rec[tt.field] = tt.input
			out, errs := v.Validate([]table.Record{rec})
			assert.Nil(t, errs)
			assert.Equal(t, tt.want, out.Value(0, tt.field))
		})
	}
}

func TestValidateMissingAndExtraFields(t *testing.T) {
	v := newValidator(t)
	rec := testutil.SampleRecord()
	delete(rec, "Vintage")
	rec["Unused"] = "x"

	out, errs := v.Validate([]table.Record{rec})
	assert.Nil(t, errs)
	assert.Nil(t, out.Value(0, "Vintage"))
	assert.False(t, out.Has("Unused"))
}

func TestValidateEmpty(t *testing.T) {
	v := newValidator(t)
	out, errs := v.Validate(nil)
	assert.Nil(t, errs)
	assert.Equal(t, 0, out.Len())
	assert.Equal(t, v.Features(), out.Columns())
}

func TestErrorsEncodeAsPayload(t *testing.T) {
	errs := Errors{{Index: 0, Field: "Age", Type: "int_parsing", Message: "bad", Input: "x"}}
	data, err := json.Marshal(errs)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"index":0,"field":"Age","type":"int_parsing","msg":"bad","input":"x"}]`, string(data))
	assert.Contains(t, errs.Error(), "inputs[0].Age")
}
