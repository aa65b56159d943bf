package gbt

import (
	"sort"
)

// node is either a split (feature, threshold, children) or a leaf (value).
type node struct {
	Feature   int     `yaml:"feature,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`
	Left      int     `yaml:"left,omitempty"`
	Right     int     `yaml:"right,omitempty"`
	Value     float64 `yaml:"value,omitempty"`
	Leaf      bool    `yaml:"leaf,omitempty"`
}

// Tree is a binary regression tree stored as a flat node slice; node 0 is
// the root.
type Tree struct {
	Nodes []node
}

// Predict walks x down to a leaf. Values equal to a threshold go left.
func (t *Tree) Predict(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Leaf {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// treeBuilder grows one tree on gradient statistics. Squared-error loss has
// unit hessians, so a node's hessian sum is its sample count.
type treeBuilder struct {
	x        [][]float64
	grad     []float64
	params   Params
	tree     *Tree
	gain     []float64
	features int
}

type split struct {
	feature   int
	threshold float64
	gain      float64
	left      []int
	right     []int
}

func (b *treeBuilder) leafWeight(g float64, n int) float64 {
	return -g / (float64(n) + b.params.Lambda)
}

func (b *treeBuilder) score(g float64, n int) float64 {
	return g * g / (float64(n) + b.params.Lambda)
}

func (b *treeBuilder) build(rows []int) *Tree {
	b.tree = &Tree{}
	b.grow(rows, 0)
	return b.tree
}

func (b *treeBuilder) grow(rows []int, depth int) int {
	idx := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, node{})

	var g float64
	for _, r := range rows {
		g += b.grad[r]
	}

	if depth < b.params.MaxDepth && len(rows) >= 2*b.params.MinSamplesLeaf {
		if s, ok := b.bestSplit(rows, g); ok {
			b.gain[s.feature] += s.gain
			left := b.grow(s.left, depth+1)
			right := b.grow(s.right, depth+1)
			b.tree.Nodes[idx] = node{Feature: s.feature, Threshold: s.threshold, Left: left, Right: right}
			return idx
		}
	}

	b.tree.Nodes[idx] = node{Leaf: true, Value: b.leafWeight(g, len(rows))}
	return idx
}

// bestSplit scans every feature for the threshold with the largest gain
// that leaves at least MinSamplesLeaf rows on each side.
func (b *treeBuilder) bestSplit(rows []int, g float64) (split, bool) {
	parent := b.score(g, len(rows))
	minLeaf := b.params.MinSamplesLeaf

	best := split{gain: 0}
	found := false
	sorted := make([]int, len(rows))

	for f := 0; f < b.features; f++ {
		copy(sorted, rows)
		sort.SliceStable(sorted, func(i, j int) bool { return b.x[sorted[i]][f] < b.x[sorted[j]][f] })

		var gl float64
		for i := 0; i < len(sorted)-1; i++ {
			gl += b.grad[sorted[i]]
			nl := i + 1
			nr := len(sorted) - nl
			if nl < minLeaf || nr < minLeaf {
				continue
			}
			lo, hi := b.x[sorted[i]][f], b.x[sorted[i+1]][f]
			if lo == hi {
				continue
			}

			gain := 0.5 * (b.score(gl, nl) + b.score(g-gl, nr) - parent)
			if gain > best.gain+1e-12 {
				thr := lo + (hi-lo)/2
				if thr >= hi {
					thr = lo
				}
				best = split{feature: f, threshold: thr, gain: gain}
				found = true
			}
		}
	}
	if !found {
		return best, false
	}

	for _, r := range rows {
		if b.x[r][best.feature] <= best.threshold {
			best.left = append(best.left, r)
		} else {
			best.right = append(best.right, r)
		}
	}
	return best, true
}
