package model

import (
	"math"
	"math/rand"
	"sort"
)

// KindDecisionTree identifies DecisionTreeClassifier in serialized chains.
const KindDecisionTree = "decision_tree"

// DecisionTreeClassifier is a CART-style classifier with threshold splits.
// NaN feature values are routed down a learned missing-value branch.
type DecisionTreeClassifier struct {
	MaxDepth            int     `json:"max_depth"` // 0 => no limit
	MinSamplesSplit     int     `json:"min_samples_split"`
	MinSamplesLeaf      int     `json:"min_samples_leaf"`
	Criterion           string  `json:"criterion"`    // "gini" or "entropy"
	MaxFeatures         int     `json:"max_features"` // 0 => all features
	MinImpurityDecrease float64 `json:"min_impurity_decrease"`
	RandomState         int64   `json:"random_state"`

	ClassLabels []float64 `json:"classes,omitempty"`
	NFeatures   int       `json:"n_features"`
	Root        *Node     `json:"root,omitempty"`
}

// Node is a tree node. Leaves carry class probabilities aligned with the
// tree's classes; internal nodes send x <= Threshold left.
type Node struct {
	Leaf        bool      `json:"leaf,omitempty"`
	Feature     int       `json:"feature"`
	Threshold   float64   `json:"threshold"`
	MissingLeft bool      `json:"missing_left,omitempty"`
	Left        *Node     `json:"left,omitempty"`
	Right       *Node     `json:"right,omitempty"`
	Samples     int       `json:"samples"`
	Probas      []float64 `json:"probas,omitempty"`
}

// Option configures a DecisionTreeClassifier.
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with default settings.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       "gini",
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Kind implements Estimator.
func (t *DecisionTreeClassifier) Kind() string { return KindDecisionTree }

// Classes returns the class labels in probability order.
func (t *DecisionTreeClassifier) Classes() []float64 {
	return append([]float64(nil), t.ClassLabels...)
}

// Fit trains the tree on X (n x p) and labels y.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []float64) error {
	p, err := checkXY(KindDecisionTree, X, y)
	if err != nil {
		return err
	}
	classes, yIdx := encodeLabels(y)
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.grow(X, yIdx, idx, classes, p, rand.New(rand.NewSource(t.RandomState)))
	return nil
}

// grow builds the tree over the sample indices idx, which may repeat.
func (t *DecisionTreeClassifier) grow(X [][]float64, yIdx, idx []int, classes []float64, p int, rnd *rand.Rand) {
	b := &builder{
		t:     t,
		X:     X,
		y:     yIdx,
		k:     len(classes),
		rnd:   rnd,
		feats: make([]int, p),
	}
	for j := range b.feats {
		b.feats[j] = j
	}
	b.impurity = gini
	if t.Criterion == "entropy" {
		b.impurity = entropy
	}
	t.ClassLabels = append([]float64(nil), classes...)
	t.NFeatures = p
	t.Root = b.build(idx, 0)
}

// Predict returns the most probable class label per row.
func (t *DecisionTreeClassifier) Predict(X [][]float64) ([]float64, error) {
	probs, err := t.PredictProba(X)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(probs))
	for i, pr := range probs {
		out[i] = t.ClassLabels[argmax(pr)]
	}
	return out, nil
}

// PredictProba implements Classifier.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) ([][]float64, error) {
	if t.Root == nil {
		return nil, notFitted(KindDecisionTree)
	}
	if err := checkWidth(KindDecisionTree, X, t.NFeatures); err != nil {
		return nil, err
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = t.leaf(row).Probas
	}
	return out, nil
}

func (t *DecisionTreeClassifier) leaf(row []float64) *Node {
	node := t.Root
	for !node.Leaf {
		v := row[node.Feature]
		switch {
		case math.IsNaN(v):
			if node.MissingLeft {
				node = node.Left
			} else {
				node = node.Right
			}
		case v <= node.Threshold:
			node = node.Left
		default:
			node = node.Right
		}
	}
	return node
}

// Depth returns the depth of the fitted tree (a single leaf has depth 0).
func (t *DecisionTreeClassifier) Depth() int {
	var walk func(*Node) int
	walk = func(n *Node) int {
		if n == nil || n.Leaf {
			return 0
		}
		return 1 + max(walk(n.Left), walk(n.Right))
	}
	return walk(t.Root)
}

type builder struct {
	t        *DecisionTreeClassifier
	X        [][]float64
	y        []int
	k        int
	rnd      *rand.Rand
	feats    []int
	impurity func(counts []float64, total float64) float64
}

type split struct {
	gain        float64
	feature     int
	threshold   float64
	missingLeft bool
}

type pair struct {
	v float64
	c int
}

const gainEpsilon = 1e-12

func (b *builder) build(idx []int, depth int) *Node {
	t := b.t
	counts := make([]float64, b.k)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	n := len(idx)
	node := &Node{Samples: n}

	if isPure(counts) || n < t.MinSamplesSplit || n < 2*t.MinSamplesLeaf ||
		(t.MaxDepth > 0 && depth >= t.MaxDepth) {
		return b.makeLeaf(node, counts)
	}

	feats := b.feats
	if t.MaxFeatures > 0 && t.MaxFeatures < len(feats) {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(len(feats)-i)
			feats[i], feats[j] = feats[j], feats[i]
		}
		feats = feats[:t.MaxFeatures]
	}

	parent := b.impurity(counts, float64(n))
	best := split{feature: -1}
	for _, f := range feats {
		s := b.bestSplit(idx, f, counts, parent)
		if s.feature >= 0 && s.gain > best.gain {
			best = s
		}
	}
	if best.feature < 0 || best.gain <= t.MinImpurityDecrease+gainEpsilon {
		return b.makeLeaf(node, counts)
	}

	left := make([]int, 0, n)
	right := make([]int, 0, n)
	for _, i := range idx {
		v := b.X[i][best.feature]
		if (math.IsNaN(v) && best.missingLeft) || v <= best.threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = best.feature
	node.Threshold = best.threshold
	node.MissingLeft = best.missingLeft
	node.Left = b.build(left, depth+1)
	node.Right = b.build(right, depth+1)
	return node
}

func (b *builder) makeLeaf(node *Node, counts []float64) *Node {
	node.Leaf = true
	node.Probas = make([]float64, len(counts))
	if node.Samples > 0 {
		for c, v := range counts {
			node.Probas[c] = v / float64(node.Samples)
		}
	}
	return node
}

// bestSplit sorts the non-missing values of feature f once and sweeps the
// thresholds between distinct values, trying missing values on both sides.
func (b *builder) bestSplit(idx []int, f int, total []float64, parent float64) split {
	best := split{feature: -1}
	minLeaf := float64(b.t.MinSamplesLeaf)

	vals := make([]pair, 0, len(idx))
	nanCounts := make([]float64, b.k)
	var nNaN float64
	for _, i := range idx {
		v := b.X[i][f]
		if math.IsNaN(v) {
			nanCounts[b.y[i]]++
			nNaN++
			continue
		}
		vals = append(vals, pair{v: v, c: b.y[i]})
	}
	if len(vals) < 2 {
		return best
	}
	sort.Slice(vals, func(a, c int) bool { return vals[a].v < vals[c].v })

	validCounts := make([]float64, b.k)
	for c := range total {
		validCounts[c] = total[c] - nanCounts[c]
	}
	n := float64(len(idx))
	left := make([]float64, b.k)
	lc := make([]float64, b.k)
	rc := make([]float64, b.k)

	try := func(nl, nr float64, missingLeft bool, s int) {
		if nl < minLeaf || nr < minLeaf {
			return
		}
		weighted := nl/n*b.impurity(lc, nl) + nr/n*b.impurity(rc, nr)
		if gain := parent - weighted; gain > best.gain {
			best = split{
				gain:        gain,
				feature:     f,
				threshold:   midpoint(vals[s-1].v, vals[s].v),
				missingLeft: missingLeft,
			}
		}
	}

	for s := 1; s < len(vals); s++ {
		left[vals[s-1].c]++
		if vals[s].v == vals[s-1].v {
			continue
		}
		nl := float64(s)
		nr := float64(len(vals) - s)

		for c := range lc {
			lc[c] = left[c]
			rc[c] = validCounts[c] - left[c] + nanCounts[c]
		}
		if nNaN == 0 {
			// no missing values seen: route them to the larger child
			try(nl, nr, nl >= nr, s)
			continue
		}
		try(nl, nr+nNaN, false, s)

		for c := range lc {
			lc[c] = left[c] + nanCounts[c]
			rc[c] = validCounts[c] - left[c]
		}
		try(nl+nNaN, nr, true, s)
	}
	return best
}

func midpoint(a, b float64) float64 {
	m := a/2 + b/2
	if m >= b || m < a || math.IsInf(m, 0) {
		return a
	}
	return m
}

func isPure(counts []float64) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func gini(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	s := 1.0
	for _, c := range counts {
		p := c / total
		s -= p * p
	}
	return s
}

func entropy(counts []float64, total float64) float64 {
	if total == 0 {
		return 0
	}
	e := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := c / total
		e -= p * math.Log2(p)
	}
	return e
}
