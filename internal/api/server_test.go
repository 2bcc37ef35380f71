package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/pipeline"
	"github.com/ajitpratap0/vehicleinsurance/pkg/predict"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/testutil"
	"github.com/ajitpratap0/vehicleinsurance/pkg/validation"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

const exampleInput = `{
  "inputs": [
    {
      "Gender": "Male",
      "Age": 44,
      "Driving_License": 1,
      "Region_Code": 28.0,
      "Previously_Insured": 0,
      "Vehicle_Age": "> 2 Years",
      "Vehicle_Damage": "Yes",
      "Annual_Premium": 40454.0,
      "Policy_Sales_Channel": 26.0,
      "Vintage": 217,
      "id": 1
    }
  ]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	cfg := testutil.TestConfig(t)
	records := testutil.SyntheticRecords(300, 6)
	chain := pipeline.NewFromConfig(cfg).WithLogger(testutil.TestLogger(t))
	require.NoError(t, chain.Fit(table.FromRecords(cfg.Model.Features, records), testutil.Labels(records, cfg.Model.Target)))

	p := predict.New(cfg, chain, predict.WithLogger(testutil.TestLogger(t)))
	srv := httptest.NewServer(New(cfg.Server, p, testutil.TestLogger(t)).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var h Health
	require.NoError(t, json.DecodeNumbers(resp.Body, &h))
	assert.Equal(t, "Vehicle Insurance Prediction API", h.Name)
	assert.Equal(t, version.APIVersion, h.APIVersion)
	assert.Equal(t, version.Version, h.ModelVersion)
}

func TestIndex(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestPredictExample(t *testing.T) {
	srv := newTestServer(t)

	resp := post(t, srv.URL+"/api/v1/predict", exampleInput)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	var res predict.Result
	require.NoError(t, json.DecodeNumbers(resp.Body, &res))
	require.Len(t, res.Predictions, 1)
	assert.Contains(t, []int{0, 1}, res.Predictions[0])
	assert.Equal(t, version.Version, res.Version)
	assert.Nil(t, res.Errors)
}

func TestPredictValidationErrors(t *testing.T) {
	srv := newTestServer(t)
	body := strings.Replace(exampleInput, `"Age": 44`, `"Age": "old"`, 1)

	resp := post(t, srv.URL+"/api/v1/predict", body)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Detail validation.Errors `json:"detail"`
	}
	require.NoError(t, json.DecodeNumbers(resp.Body, &payload))
	require.Len(t, payload.Detail, 1)
	assert.Equal(t, 0, payload.Detail[0].Index)
	assert.Equal(t, "Age", payload.Detail[0].Field)
}

func TestPredictMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	for _, body := range []string{`{"inputs": [`, `{}`} {
		resp := post(t, srv.URL+"/api/v1/predict", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, body)
	}
}

func TestPredictUnknownCategoryIsServerError(t *testing.T) {
	srv := newTestServer(t)
	body := strings.Replace(exampleInput, `"> 2 Years"`, `"> 20 Years"`, 1)

	resp := post(t, srv.URL+"/api/v1/predict", body)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New(errors.ErrorTypeValidation, "bad input"), http.StatusBadRequest},
		{errors.New(errors.ErrorTypeTimeout, "deadline"), http.StatusGatewayTimeout},
		{errors.Wrap(errors.New(errors.ErrorTypeConnection, "s3 unreachable"), errors.ErrorTypeConnection, "load failed"), http.StatusServiceUnavailable},
		{errors.New(errors.ErrorTypeTransform, "unknown category"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/v1/health", nil)
	require.NoError(t, err)
	req.Header.Set(RequestIDHeader, "req-42")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "req-42", resp.Header.Get(RequestIDHeader))
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/v1/predict", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	post(t, srv.URL+"/api/v1/predict", exampleInput)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
