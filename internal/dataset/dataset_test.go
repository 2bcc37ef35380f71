package dataset

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
)

const sample = `id,Gender,Age,Driving_License,Region_Code,Previously_Insured,Vehicle_Age,Vehicle_Damage,Annual_Premium,Policy_Sales_Channel,Vintage,Response
1,Male,44,1,28.0,0,> 2 Years,Yes,40454.0,26.0,217,1
2,Male,76,1,3.0,0,1-2 Year,No,33536.0,26.0,183,0
3,Female,,1,28.0,0,> 2 Years,Yes,38294.0,26.0,27,1
`

func TestReadInfersColumnTypes(t *testing.T) {
	ds, err := Read(context.Background(), strings.NewReader(sample))
	require.NoError(t, err)

	assert.Equal(t, 3, ds.Len())
	assert.Len(t, ds.Columns, 12)
	assert.Equal(t, int64(1), ds.Records[0]["id"])
	assert.Equal(t, "Male", ds.Records[0]["Gender"])
	assert.Equal(t, 28.0, ds.Records[0]["Region_Code"])
	assert.Equal(t, "> 2 Years", ds.Records[0]["Vehicle_Age"])
	assert.Equal(t, int64(44), ds.Records[0]["Age"])
	assert.Nil(t, ds.Records[2]["Age"])
}

func TestReadRejectsEmptyAndMalformed(t *testing.T) {
	_, err := Read(context.Background(), strings.NewReader(""))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))

	_, err = Read(context.Background(), strings.NewReader("a,b\n1,2,3\n"))
	require.Error(t, err)
	row, _ := errors.Detail(err, "row")
	assert.Equal(t, 1, row)
}

func TestReadHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Read(ctx, strings.NewReader(sample))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeTimeout))
}

func TestLoadTrainingAndPrepare(t *testing.T) {
	cfg := testutil.TestConfig(t)
	records := testutil.SyntheticRecords(50, 4)
	columns := append(append([]string(nil), cfg.Model.Features...), cfg.Model.Target)
	testutil.WriteCSV(t, cfg.Paths.DatasetDir, cfg.App.TrainingDataFile, columns, records)

	ds, err := LoadTraining(context.Background(), cfg, testutil.TestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 50, ds.Len())
	assert.Equal(t, Path(cfg), ds.Path)

	features, labels, err := Prepare(cfg, ds)
	require.NoError(t, err)
	assert.Equal(t, cfg.Model.Features, features.Columns())
	assert.Equal(t, testutil.Labels(records, cfg.Model.Target), labels)
}

func TestPrepareMissingTarget(t *testing.T) {
	cfg := testutil.TestConfig(t)
	ds, err := Read(context.Background(), strings.NewReader("id,Gender\n1,Male\n"))
	require.NoError(t, err)

	_, _, err = Prepare(cfg, ds)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(context.Background(), "/nonexistent/train.csv", testutil.TestLogger(t))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
