// Package model provides the terminal estimators of the feature chain.
package model

import (
	stderrors "errors"
	"math"
	"sort"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
)

// Estimator is a supervised model fitted on a numeric matrix.
type Estimator interface {
	// Kind identifies the estimator type for serialization.
	Kind() string
	Fit(X [][]float64, y []float64) error
	Predict(X [][]float64) ([]float64, error)
}

// Classifier is an Estimator that also exposes class probabilities.
type Classifier interface {
	Estimator
	Classes() []float64
	// PredictProba returns one probability vector per row, aligned with Classes.
	PredictProba(X [][]float64) ([][]float64, error)
}

// ErrNotFitted is the cause of errors from predicting with an unfitted model.
var ErrNotFitted = stderrors.New("estimator is not fitted")

var registry = map[string]func() Estimator{
	KindDecisionTree: func() Estimator { return &DecisionTreeClassifier{} },
	KindRandomForest: func() Estimator { return &RandomForestClassifier{} },
}

// Decode rebuilds an estimator of the given kind from its JSON state.
func Decode(kind string, state []byte) (Estimator, error) {
	factory, ok := registry[kind]
	if !ok {
		return nil, errors.New(errors.ErrorTypeData, "unknown estimator kind").WithDetail("kind", kind)
	}
	e := factory()
	if err := json.Unmarshal(state, e); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode estimator state").WithDetail("kind", kind)
	}
	return e, nil
}

func notFitted(kind string) error {
	return errors.Wrap(ErrNotFitted, errors.ErrorTypeTransform, "predict called before fit").
		WithDetail("estimator", kind)
}

// checkXY validates training input and returns the feature count.
func checkXY(kind string, X [][]float64, y []float64) (int, error) {
	if len(X) == 0 {
		return 0, errors.New(errors.ErrorTypeData, "empty training matrix").WithDetail("estimator", kind)
	}
	if len(y) != len(X) {
		return 0, errors.New(errors.ErrorTypeData, "X and y length mismatch").
			WithDetail("estimator", kind).
			WithDetail("rows", len(X)).
			WithDetail("labels", len(y))
	}
	p := len(X[0])
	if p == 0 {
		return 0, errors.New(errors.ErrorTypeData, "training matrix has no columns").WithDetail("estimator", kind)
	}
	for i, row := range X {
		if len(row) != p {
			return 0, errors.New(errors.ErrorTypeData, "inconsistent row width").
				WithDetail("estimator", kind).
				WithDetail("row", i)
		}
	}
	for i, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0, errors.New(errors.ErrorTypeData, "label is not finite").
				WithDetail("estimator", kind).
				WithDetail("row", i)
		}
	}
	return p, nil
}

func checkWidth(kind string, X [][]float64, p int) error {
	for i, row := range X {
		if len(row) != p {
			return errors.Newf(errors.ErrorTypeData, "row has %d features, model expects %d", len(row), p).
				WithDetail("estimator", kind).
				WithDetail("row", i)
		}
	}
	return nil
}

// encodeLabels returns the sorted distinct labels and each label's index.
func encodeLabels(y []float64) ([]float64, []int) {
	seen := make(map[float64]struct{})
	for _, v := range y {
		seen[v] = struct{}{}
	}
	classes := make([]float64, 0, len(seen))
	for v := range seen {
		classes = append(classes, v)
	}
	sort.Float64s(classes)
	pos := make(map[float64]int, len(classes))
	for i, c := range classes {
		pos[c] = i
	}
	idx := make([]int, len(y))
	for i, v := range y {
		idx[i] = pos[v]
	}
	return classes, idx
}

func argmax(v []float64) int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}
