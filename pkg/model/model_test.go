package model

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/vehicleinsurance/pkg/errors"
	"github.com/ajitpratap0/vehicleinsurance/pkg/json"
)

// blobs returns two noisy, linearly separable classes.
func blobs(n int, seed int64) ([][]float64, []float64) {
	rnd := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range X {
		label := float64(i % 2)
		X[i] = []float64{
			label*4 + rnd.NormFloat64(),
			rnd.NormFloat64(),
			label*2 + rnd.NormFloat64(),
		}
		y[i] = label
	}
	return X, y
}

func TestDecisionTreeFitsSeparableData(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{0, 0, 0, 1, 1, 1}

	tree := NewDecisionTreeClassifier()
	require.NoError(t, tree.Fit(X, y))

	pred, err := tree.Predict([][]float64{{0}, {2.5}, {9}, {100}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1}, pred)
	assert.Equal(t, 1, tree.Depth())
	assert.InDelta(t, 6.5, tree.Root.Threshold, 1e-12)
}

func TestDecisionTreeMaxDepthAndLeafSize(t *testing.T) {
	X, y := blobs(200, 1)

	tree := NewDecisionTreeClassifier(WithMaxDepth(2), WithMinSamplesLeaf(10))
	require.NoError(t, tree.Fit(X, y))
	assert.LessOrEqual(t, tree.Depth(), 2)

	var walk func(*Node)
	walk = func(n *Node) {
		if n.Leaf {
			assert.GreaterOrEqual(t, n.Samples, 10)
			return
		}
		walk(n.Left)
		walk(n.Right)
	}
	walk(tree.Root)
}

func TestDecisionTreeEntropy(t *testing.T) {
	X, y := blobs(100, 2)
	tree := NewDecisionTreeClassifier(WithCriterion("entropy"), WithMaxDepth(3))
	require.NoError(t, tree.Fit(X, y))

	pred, err := tree.Predict(X)
	require.NoError(t, err)
	assert.Greater(t, Accuracy(y, pred), 0.9)
}

func TestDecisionTreeMissingValues(t *testing.T) {
	nan := math.NaN()
	X := [][]float64{{1}, {2}, {nan}, {10}, {11}, {nan}}
	y := []float64{0, 0, 1, 1, 1, 1}

	tree := NewDecisionTreeClassifier()
	require.NoError(t, tree.Fit(X, y))
	pred, err := tree.Predict([][]float64{{nan}, {1.5}})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0}, pred)
}

func TestDecisionTreeErrors(t *testing.T) {
	tree := NewDecisionTreeClassifier()

	_, err := tree.Predict([][]float64{{1}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFitted)

	require.Error(t, tree.Fit(nil, nil))
	require.Error(t, tree.Fit([][]float64{{1}, {2}}, []float64{0}))
	require.Error(t, tree.Fit([][]float64{{1}, {2, 3}}, []float64{0, 1}))
	require.Error(t, tree.Fit([][]float64{{1}}, []float64{math.NaN()}))

	require.NoError(t, tree.Fit([][]float64{{1}, {2}}, []float64{0, 1}))
	_, err = tree.Predict([][]float64{{1, 2}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeData))
}

func TestRandomForestAccuracy(t *testing.T) {
	X, y := blobs(400, 3)
	train, test, err := TrainTestSplit(len(X), 0.25, 42)
	require.NoError(t, err)

	pick := func(idx []int) ([][]float64, []float64) {
		xs := make([][]float64, len(idx))
		ys := make([]float64, len(idx))
		for i, j := range idx {
			xs[i], ys[i] = X[j], y[j]
		}
		return xs, ys
	}
	xTrain, yTrain := pick(train)
	xTest, yTest := pick(test)

	rf := NewRandomForest(WithNEstimators(25), WithForestMaxDepth(6), WithForestRandomState(42))
	require.NoError(t, rf.Fit(xTrain, yTrain))
	assert.Len(t, rf.Trees, 25)
	assert.Equal(t, []float64{0, 1}, rf.Classes())

	pred, err := rf.Predict(xTest)
	require.NoError(t, err)
	assert.Greater(t, Accuracy(yTest, pred), 0.9)
	assert.Greater(t, PrecisionRecallF1(yTest, pred, 1).Precision, 0.85)

	probs, err := rf.PredictProba(xTest)
	require.NoError(t, err)
	for _, p := range probs {
		assert.InDelta(t, 1, p[0]+p[1], 1e-9)
	}
}

func TestRandomForestDeterministic(t *testing.T) {
	X, y := blobs(150, 4)

	a := NewRandomForest(WithNEstimators(10), WithForestRandomState(7), WithWorkers(4))
	b := NewRandomForest(WithNEstimators(10), WithForestRandomState(7), WithWorkers(1))
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))

	pa, err := a.PredictProba(X)
	require.NoError(t, err)
	pb, err := b.PredictProba(X)
	require.NoError(t, err)
	assert.Equal(t, pa, pb)
}

func TestRandomForestJSONRoundTrip(t *testing.T) {
	X, y := blobs(120, 5)
	rf := NewRandomForest(WithNEstimators(5), WithForestMaxDepth(4), WithForestRandomState(1))
	require.NoError(t, rf.Fit(X, y))

	state, err := json.Marshal(rf)
	require.NoError(t, err)
	decoded, err := Decode(KindRandomForest, state)
	require.NoError(t, err)

	want, err := rf.Predict(X)
	require.NoError(t, err)
	got, err := decoded.Predict(X)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = Decode("svm", state)
	require.Error(t, err)
}

func TestTrainTestSplit(t *testing.T) {
	train, test, err := TrainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Len(t, test, 2)
	assert.Len(t, train, 8)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, all)

	train2, test2, err := TrainTestSplit(10, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train, train2)
	assert.Equal(t, test, test2)

	_, _, err = TrainTestSplit(1, 0.5, 42)
	require.Error(t, err)
	_, _, err = TrainTestSplit(10, 0, 42)
	require.Error(t, err)
}

func TestMetrics(t *testing.T) {
	yTrue := []float64{1, 0, 1, 1, 0}
	yPred := []float64{1, 1, 0, 1, 0}

	assert.InDelta(t, 0.6, Accuracy(yTrue, yPred), 1e-12)
	s := PrecisionRecallF1(yTrue, yPred, 1)
	assert.InDelta(t, 2.0/3, s.Precision, 1e-12)
	assert.InDelta(t, 2.0/3, s.Recall, 1e-12)
	assert.InDelta(t, 2.0/3, s.F1, 1e-12)

	assert.Equal(t, BinaryScores{}, PrecisionRecallF1([]float64{0}, []float64{0}, 1))
}
