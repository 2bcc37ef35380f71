package pipeline

import (
	"go.uber.org/zap"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/features"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
	"github.com/ajitpratap0/vehicleinsurance/pkg/logger"
	"github.com/ajitpratap0/vehicleinsurance/pkg/model"
)

type stepDoc struct {
	Name  string          `json:"name"`
	Kind  string          `json:"kind"`
	State json.RawMessage `json:"state"`
}

type chainDoc struct {
	Name      string    `json:"name"`
	Steps     []stepDoc `json:"steps"`
	Estimator stepDoc   `json:"estimator"`
	Columns   []string  `json:"columns"`
	Fitted    bool      `json:"fitted"`
}

// MarshalJSON encodes the chain with each stage's kind and state.
func (c *Chain) MarshalJSON() ([]byte, error) {
	doc := chainDoc{Name: c.name, Columns: c.columns, Fitted: c.fitted}
	for _, s := range c.steps {
		state, err := json.Marshal(s.Stage)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode step").WithDetail("step", s.Name)
		}
		doc.Steps = append(doc.Steps, stepDoc{Name: s.Name, Kind: s.Stage.Kind(), State: state})
	}
	if c.estimator != nil {
		state, err := json.Marshal(c.estimator)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to encode estimator").WithDetail("step", c.estName)
		}
		doc.Estimator = stepDoc{Name: c.estName, Kind: c.estimator.Kind(), State: state}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON rebuilds a chain encoded by MarshalJSON.
func (c *Chain) UnmarshalJSON(data []byte) error {
	var doc chainDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode chain")
	}
	steps := make([]Step, 0, len(doc.Steps))
	for _, s := range doc.Steps {
		stage, err := features.Decode(s.Kind, s.State)
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeData, "failed to decode step").WithDetail("step", s.Name)
		}
		steps = append(steps, Step{Name: s.Name, Stage: stage})
	}
	est, err := model.Decode(doc.Estimator.Kind, doc.Estimator.State)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode estimator").WithDetail("step", doc.Estimator.Name)
	}

	c.name = doc.Name
	c.steps = steps
	c.estimator = est
	c.estName = doc.Estimator.Name
	c.columns = doc.Columns
	c.fitted = doc.Fitted
	if c.logger == nil {
		c.logger = logger.Get().With(zap.String("component", "chain"), zap.String("chain", c.name))
	}
	return nil
}
