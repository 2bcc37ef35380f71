package model

import (
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// KindRandomForest identifies RandomForestClassifier in serialized chains.
const KindRandomForest = "random_forest"

// RandomForestClassifier averages the class probabilities of decision trees
// grown on bootstrap samples with per-split feature subsampling.
type RandomForestClassifier struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	MinSamplesLeaf  int    `json:"min_samples_leaf"`
	Criterion       string `json:"criterion"`
	MaxFeatures     int    `json:"max_features"` // 0 => sqrt(n_features)
	Bootstrap       bool   `json:"bootstrap"`
	RandomState     int64  `json:"random_state"`
	Workers         int    `json:"-"`

	ClassLabels []float64                 `json:"classes,omitempty"`
	NFeatures   int                       `json:"n_features"`
	Trees       []*DecisionTreeClassifier `json:"trees,omitempty"`
}

// RandomForestOption configures a RandomForestClassifier.
type RandomForestOption func(*RandomForestClassifier)

func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.NEstimators = n }
}
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MinSamplesSplit = n }
}
func WithForestMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MinSamplesLeaf = n }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.Criterion = c }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.MaxFeatures = k }
}
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.Bootstrap = b }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.RandomState = seed }
}

// WithWorkers bounds the number of trees fitted concurrently.
func WithWorkers(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.Workers = n }
}

// NewRandomForest initializes the forest with default settings.
func NewRandomForest(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		NEstimators:     100,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Kind implements Estimator.
func (rf *RandomForestClassifier) Kind() string { return KindRandomForest }

// Classes returns the class labels in probability order.
func (rf *RandomForestClassifier) Classes() []float64 {
	return append([]float64(nil), rf.ClassLabels...)
}

// Fit grows NEstimators trees in parallel. Tree i draws its bootstrap sample
// and feature subsets from a source seeded with RandomState+i, so results do
// not depend on scheduling.
func (rf *RandomForestClassifier) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(KindRandomForest, X, y)
	if err != nil {
		return err
	}
	nTrees := rf.NEstimators
	if nTrees <= 0 {
		nTrees = 1
	}
	classes, yIdx := encodeLabels(y)
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 || maxFeatures > p {
		maxFeatures = max(1, int(math.Sqrt(float64(p))))
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	n := len(X)
	trees := make([]*DecisionTreeClassifier, nTrees)
	var g errgroup.Group
	g.SetLimit(workers)
	for i := 0; i < nTrees; i++ {
		i := i
		g.Go(func() error {
			seed := rf.RandomState + int64(i)
			rnd := rand.New(rand.NewSource(seed))

			sample := make([]int, n)
			for j := range sample {
				if rf.Bootstrap {
					sample[j] = rnd.Intn(n)
				} else {
					sample[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithCriterion(rf.Criterion),
				WithMaxFeatures(maxFeatures),
				WithRandomState(seed),
			)
			tree.grow(X, yIdx, sample, classes, p, rnd)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.ClassLabels = classes
	rf.NFeatures = p
	rf.Trees = trees
	return nil
}

// PredictProba returns the mean of the trees' class probabilities.
func (rf *RandomForestClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, notFitted(KindRandomForest)
	}
	if err := checkWidth(KindRandomForest, X, rf.NFeatures); err != nil {
		return nil, err
	}
	k := len(rf.ClassLabels)
	out := make([][]float64, len(X))
	for i := range out {
		out[i] = make([]float64, k)
	}
	for _, tree := range rf.Trees {
		for i, row := range X {
			probas := tree.leaf(row).Probas
			for c, v := range probas {
				out[i][c] += v
			}
		}
	}
	scale := 1 / float64(len(rf.Trees))
	for _, row := range out {
		for c := range row {
			row[c] *= scale
		}
	}
	return out, nil
}

// Predict returns the class with the highest mean probability per row.
func (rf *RandomForestClassifier) Predict(X [][]float64) ([]float64, error) {
	probs, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, pr := range probs {
		out[i] = rf.ClassLabels[argmax(pr)]
	}
	return out, nil
}
