package outliers

import (
	"math"
	"math/rand"
	"sort"

	"p2pulse/internal/config"
)

// autoScoreThreshold is the anomaly score cutoff used when contamination
// is "auto". Scores range over (0,1); 0.5 is the expectation for an
// unremarkable point.
const autoScoreThreshold = 0.6

// eulerGamma is the Euler-Mascheroni constant used in the average
// unsuccessful-search path length.
const eulerGamma = 0.5772156649015329

// IsolationForest is a univariate isolation forest. Trees split on
// uniformly random cut points; values isolated in few splits score high.
type IsolationForest struct {
	estimators    int
	sampleSize    int
	seed          int64
	contamination float64
	auto          bool
}

// NewIsolationForest builds a detector from the outlier configuration.
func NewIsolationForest(cfg config.OutlierConfig) (*IsolationForest, error) {
	frac, auto, err := cfg.ContaminationFraction()
	if err != nil {
		return nil, err
	}
	return &IsolationForest{
		estimators:    cfg.Estimators,
		sampleSize:    cfg.SampleSize,
		seed:          cfg.Seed,
		contamination: frac,
		auto:          auto,
	}, nil
}

func (f *IsolationForest) Name() string { return "isolation_forest" }

// Detect scores every value and flags those above the threshold: the
// fixed auto cutoff, or the top contamination fraction.
func (f *IsolationForest) Detect(values []float64) ([]bool, error) {
	if len(values) < 2 {
		return nil, ErrTooFewValues
	}

	sample := f.sampleSize
	if sample > len(values) {
		sample = len(values)
	}
	maxDepth := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(f.seed))

	pathSums := make([]float64, len(values))
	for t := 0; t < f.estimators; t++ {
		tree := buildTree(subsample(values, sample, rng), 0, maxDepth, rng)
		for i, v := range values {
			pathSums[i] += tree.pathLength(v, 0)
		}
	}

	norm := avgPathLength(sample)
	scores := make([]float64, len(values))
	for i := range values {
		mean := pathSums[i] / float64(f.estimators)
		scores[i] = math.Pow(2, -mean/norm)
	}

	threshold := autoScoreThreshold
	if !f.auto {
		q, _ := scoreQuantile(scores, 1-f.contamination)
		threshold = q
	}

	flags := make([]bool, len(values))
	for i, s := range scores {
		flags[i] = s >= threshold && threshold > 0
	}
	if !f.auto {
		// Quantile thresholding can over-flag on ties; keep the flag
		// set at the requested fraction, preferring higher scores.
		limitFlags(scores, flags, int(math.Ceil(f.contamination*float64(len(values)))))
	}
	return flags, nil
}

type treeNode struct {
	split    float64
	left     *treeNode
	right    *treeNode
	size     int
	external bool
}

func buildTree(values []float64, depth, maxDepth int, rng *rand.Rand) *treeNode {
	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if len(values) <= 1 || depth >= maxDepth || min == max {
		return &treeNode{size: len(values), external: true}
	}

	split := min + rng.Float64()*(max-min)
	var left, right []float64
	for _, v := range values {
		if v < split {
			left = append(left, v)
		} else {
			right = append(right, v)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &treeNode{size: len(values), external: true}
	}
	return &treeNode{
		split: split,
		left:  buildTree(left, depth+1, maxDepth, rng),
		right: buildTree(right, depth+1, maxDepth, rng),
	}
}

func (n *treeNode) pathLength(v float64, depth int) float64 {
	if n.external {
		return float64(depth) + avgPathLength(n.size)
	}
	if v < n.split {
		return n.left.pathLength(v, depth+1)
	}
	return n.right.pathLength(v, depth+1)
}

// avgPathLength is c(n): the average path length of an unsuccessful
// binary search tree lookup, used to normalize scores.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	h := math.Log(float64(n-1)) + eulerGamma
	return 2*h - 2*float64(n-1)/float64(n)
}

func subsample(values []float64, size int, rng *rand.Rand) []float64 {
	if size >= len(values) {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	perm := rng.Perm(len(values))
	out := make([]float64, size)
	for i := 0; i < size; i++ {
		out[i] = values[perm[i]]
	}
	return out
}

func scoreQuantile(scores []float64, q float64) (float64, bool) {
	if len(scores) == 0 {
		return 0, false
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo], true
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac, true
}

// limitFlags clears flags beyond limit, keeping the highest scores.
func limitFlags(scores []float64, flags []bool, limit int) {
	flagged := make([]int, 0, len(flags))
	for i, f := range flags {
		if f {
			flagged = append(flagged, i)
		}
	}
	if len(flagged) <= limit {
		return
	}
	sort.Slice(flagged, func(a, b int) bool {
		return scores[flagged[a]] > scores[flagged[b]]
	})
	for _, i := range flagged[limit:] {
		flags[i] = false
	}
}
