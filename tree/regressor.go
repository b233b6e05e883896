// Package tree implements the CART regression tree used directly as the
// "dt" recipe and as the base learner of the forest and boosting recipes.
package tree

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/regress/core/model"
	"github.com/YuminosukeSato/regress/pkg/errors"
)

// Splitter selects how candidate thresholds are generated.
const (
	// SplitterBest scans every boundary between sorted feature values.
	SplitterBest = "best"
	// SplitterRandom draws one uniform threshold per candidate feature,
	// the extremely-randomized-trees strategy.
	SplitterRandom = "random"
)

// Node is one tree node. Exported so fitted trees survive gob round trips.
type Node struct {
	FeatureIndex int
	Threshold    float64
	Left         *Node
	Right        *Node
	Value        float64
	IsLeaf       bool
	Samples      int
}

// Regressor is a CART tree minimizing within-node squared error.
type Regressor struct {
	model.BaseEstimator

	MaxDepth        int // zero or negative means unlimited
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // zero means all features
	Splitter        string
	Seed            int64

	Root       *Node
	NFeatures  int
	Importance []float64
}

// NewRegressor creates a CART regressor with the usual defaults.
func NewRegressor(maxDepth int, seed int64) *Regressor {
	return &Regressor{
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Splitter:        SplitterBest,
		Seed:            seed,
	}
}

type builder struct {
	features [][]float64 // column-major
	target   []float64
	tree     *Regressor
	rng      *rand.Rand
}

// Fit grows the tree.
func (tr *Regressor) Fit(X, y mat.Matrix) error {
	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewModelError("tree.Regressor.Fit", "empty data", errors.ErrEmptyData)
	}
	if ry != r {
		return errors.NewDimensionError("tree.Regressor.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("tree.Regressor.Fit", "y must be a column vector")
	}
	if tr.MinSamplesSplit < 2 {
		return errors.NewValidationError("min_samples_split", "must be at least 2", tr.MinSamplesSplit)
	}
	if tr.MinSamplesLeaf < 1 {
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", tr.MinSamplesLeaf)
	}
	switch tr.Splitter {
	case SplitterBest, SplitterRandom:
	default:
		return errors.NewValidationError("splitter", "must be best or random", tr.Splitter)
	}

	tr.NFeatures = c
	tr.Importance = make([]float64, c)

	b := &builder{
		features: make([][]float64, c),
		target:   make([]float64, r),
		tree:     tr,
		rng:      rand.New(rand.NewPCG(uint64(tr.Seed), uint64(tr.Seed)^0x9e3779b97f4a7c15)),
	}
	for j := 0; j < c; j++ {
		col := make([]float64, r)
		for i := 0; i < r; i++ {
			col[i] = X.At(i, j)
		}
		b.features[j] = col
	}
	for i := 0; i < r; i++ {
		b.target[i] = y.At(i, 0)
	}

	indices := make([]int, r)
	for i := range indices {
		indices[i] = i
	}
	tr.Root = b.grow(indices, 0)

	// Normalize accumulated impurity decreases into importances.
	var total float64
	for _, v := range tr.Importance {
		total += v
	}
	if total > 0 {
		for j := range tr.Importance {
			tr.Importance[j] /= total
		}
	}

	tr.SetFitted()
	return nil
}

func (b *builder) grow(indices []int, depth int) *Node {
	n := len(indices)
	sum, sumSq := sums(b.target, indices)
	mean := sum / float64(n)
	sse := sumSq - sum*sum/float64(n)

	node := &Node{Value: mean, Samples: n, IsLeaf: true}

	if n < b.tree.MinSamplesSplit || sse <= 1e-12 {
		return node
	}
	if b.tree.MaxDepth > 0 && depth >= b.tree.MaxDepth {
		return node
	}

	feature, threshold, gain, left, right := b.bestSplit(indices, sse)
	if feature < 0 {
		return node
	}

	b.tree.Importance[feature] += gain

	node.IsLeaf = false
	node.FeatureIndex = feature
	node.Threshold = threshold
	node.Left = b.grow(left, depth+1)
	node.Right = b.grow(right, depth+1)
	return node
}

// bestSplit returns the split with the largest squared-error reduction, or
// feature -1 if no split satisfies the leaf constraints.
func (b *builder) bestSplit(indices []int, parentSSE float64) (feature int, threshold, gain float64, left, right []int) {
	feature = -1
	bestSSE := math.Inf(1)

	for _, j := range b.candidateFeatures() {
		switch b.tree.Splitter {
		case SplitterRandom:
			thr, ok := b.randomThreshold(j, indices)
			if !ok {
				continue
			}
			l, r := partition(b.features[j], indices, thr)
			if len(l) < b.tree.MinSamplesLeaf || len(r) < b.tree.MinSamplesLeaf {
				continue
			}
			s := splitSSE(b.target, l) + splitSSE(b.target, r)
			if s < bestSSE {
				bestSSE = s
				feature = j
				threshold = thr
				left, right = l, r
			}
		default:
			thr, s, ok := b.scanBest(j, indices)
			if ok && s < bestSSE {
				bestSSE = s
				feature = j
				threshold = thr
				left, right = partition(b.features[j], indices, thr)
			}
		}
	}

	if feature < 0 {
		return -1, 0, 0, nil, nil
	}
	return feature, threshold, parentSSE - bestSSE, left, right
}

// scanBest sorts rows by feature j and scans every boundary between
// distinct values using running sums.
func (b *builder) scanBest(j int, indices []int) (threshold, bestSSE float64, ok bool) {
	col := b.features[j]
	n := len(indices)

	sorted := make([]int, n)
	copy(sorted, indices)
	sort.Slice(sorted, func(a, c int) bool { return col[sorted[a]] < col[sorted[c]] })

	totalSum, totalSq := sums(b.target, sorted)

	bestSSE = math.Inf(1)
	var leftSum, leftSq float64
	for s := 1; s < n; s++ {
		v := b.target[sorted[s-1]]
		leftSum += v
		leftSq += v * v

		if col[sorted[s]] == col[sorted[s-1]] {
			continue
		}
		if s < b.tree.MinSamplesLeaf || n-s < b.tree.MinSamplesLeaf {
			continue
		}

		nl, nr := float64(s), float64(n-s)
		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
		if sse < bestSSE {
			bestSSE = sse
			threshold = (col[sorted[s-1]] + col[sorted[s]]) / 2
			ok = true
		}
	}
	return threshold, bestSSE, ok
}

func (b *builder) randomThreshold(j int, indices []int) (float64, bool) {
	col := b.features[j]
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, i := range indices {
		if col[i] < lo {
			lo = col[i]
		}
		if col[i] > hi {
			hi = col[i]
		}
	}
	if lo == hi {
		return 0, false
	}
	return lo + b.rng.Float64()*(hi-lo), true
}

func (b *builder) candidateFeatures() []int {
	c := b.tree.NFeatures
	max := b.tree.MaxFeatures
	if max <= 0 || max >= c {
		all := make([]int, c)
		for j := range all {
			all[j] = j
		}
		return all
	}

	perm := b.rng.Perm(c)
	return perm[:max]
}

func partition(col []float64, indices []int, threshold float64) (left, right []int) {
	for _, i := range indices {
		if col[i] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return left, right
}

func sums(target []float64, indices []int) (sum, sumSq float64) {
	for _, i := range indices {
		v := target[i]
		sum += v
		sumSq += v * v
	}
	return sum, sumSq
}

func splitSSE(target []float64, indices []int) float64 {
	sum, sumSq := sums(target, indices)
	n := float64(len(indices))
	return sumSq - sum*sum/n
}

// Predict routes every row down the tree.
func (tr *Regressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !tr.IsFitted() {
		return nil, errors.NewNotFittedError("tree.Regressor", "Predict")
	}

	r, c := X.Dims()
	if c != tr.NFeatures {
		return nil, errors.NewDimensionError("tree.Regressor.Predict", tr.NFeatures, c, 1)
	}

	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		node := tr.Root
		for !node.IsLeaf {
			if X.At(i, node.FeatureIndex) <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		out.Set(i, 0, node.Value)
	}
	return out, nil
}

// FeatureImportances returns normalized impurity-decrease importances.
func (tr *Regressor) FeatureImportances() []float64 {
	return tr.Importance
}

// Clone returns a fresh unfitted copy with the same hyperparameters.
func (tr *Regressor) Clone() model.Regressor {
	clone := NewRegressor(tr.MaxDepth, tr.Seed)
	clone.MinSamplesSplit = tr.MinSamplesSplit
	clone.MinSamplesLeaf = tr.MinSamplesLeaf
	clone.MaxFeatures = tr.MaxFeatures
	clone.Splitter = tr.Splitter
	return clone
}

// GetParams returns the model's hyperparameters.
func (tr *Regressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"max_depth":         tr.MaxDepth,
		"min_samples_split": tr.MinSamplesSplit,
		"min_samples_leaf":  tr.MinSamplesLeaf,
		"max_features":      tr.MaxFeatures,
		"splitter":          tr.Splitter,
	}
}
