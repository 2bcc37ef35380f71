package api

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/table"
	"github.com/ajitpratap0/vehicleinsurance/pkg/version"
)

const indexPage = `<html>
<body style='padding: 10px;'>
<h1>Welcome to the API</h1>
<div>Check the service health: <a href='%s/health'>here</a></div>
</body>
</html>
`

// Health is the health endpoint response.
type Health struct {
	Name         string `json:"name"`
	APIVersion   string `json:"api_version"`
	ModelVersion string `json:"model_version"`
}

// PredictRequest is the prediction request body.
type PredictRequest struct {
	Inputs []map[string]any `json:"inputs"`
}

// ErrorResponse carries either the validation payload or a message.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, indexPage, s.cfg.APIPrefix)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, Health{
		Name:         s.cfg.ProjectName,
		APIVersion:   version.APIVersion,
		ModelVersion: s.predictor.Version(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), s.logger)

	if s.cfg.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}
	var req PredictRequest
	if err := json.DecodeNumbers(r.Body, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "request body is not valid JSON: " + err.Error()})
		return
	}
	if req.Inputs == nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "field required: inputs"})
		return
	}

	records := make([]table.Record, len(req.Inputs))
	for i, in := range req.Inputs {
		records[i] = table.Record(in)
	}

	res, err := s.predictor.Predict(r.Context(), records)
	if err != nil {
		log.Error("prediction failed", errors.Field(err))
		s.writeJSON(w, statusFor(err), ErrorResponse{Detail: err.Error()})
		return
	}
	if res.Errors != nil {
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: res.Errors})
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// statusFor maps a predictor failure to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.IsType(err, errors.ErrorTypeValidation):
		return http.StatusBadRequest
	case errors.IsType(err, errors.ErrorTypeTimeout):
		return http.StatusGatewayTimeout
	case errors.IsRetryable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.WriteTo(w, v); err != nil {
		s.logger.Warn("failed to write response", zap.Error(err))
	}
}
