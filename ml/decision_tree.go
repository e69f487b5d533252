package ml

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// DecisionTree is a fitted tree stored as a flat node list with index links.
type DecisionTree struct {
	NFeatures int        `json:"n_features"`
	ClassIDs  []int      `json:"classes,omitempty"`
	Nodes     []TreeNode `json:"nodes"`
}

type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
	// Value holds per-class training sample counts, aligned with the tree's classes.
	Value []float64 `json:"value,omitempty"`
}

func (dt *DecisionTree) validate() error {
	if len(dt.Nodes) == 0 {
		return errors.New("decision tree has no nodes")
	}
	if dt.NFeatures <= 0 {
		return errors.New("decision tree n_features must be positive")
	}
	for i, node := range dt.Nodes {
		if node.IsLeaf {
			if err := checkLeafCounts(node.Value); err != nil {
				return fmt.Errorf("node %d: %w", i, err)
			}
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= dt.NFeatures {
			return fmt.Errorf("node %d: feature index %d out of range", i, node.FeatureIdx)
		}
		if !dt.validChild(node.LeftChild, i) || !dt.validChild(node.RightChild, i) {
			return fmt.Errorf("node %d: invalid child link", i)
		}
	}
	if len(dt.ClassIDs) == 0 {
		dt.ClassIDs = dt.leafLabels()
	}
	return nil
}

// checkLeafCounts rejects class counts that cannot be turned into probabilities.
func checkLeafCounts(counts []float64) error {
	if len(counts) == 0 {
		return nil
	}
	total := 0.0
	for _, c := range counts {
		if math.IsNaN(c) || math.IsInf(c, 0) || c < 0 {
			return fmt.Errorf("invalid class count %v", c)
		}
		total += c
	}
	if total <= 0 {
		return errors.New("leaf has no samples")
	}
	return nil
}

// Children must point forward so traversal always terminates.
func (dt *DecisionTree) validChild(idx, parent int) bool {
	return idx > parent && idx < len(dt.Nodes)
}

func (dt *DecisionTree) Arity() int {
	return dt.NFeatures
}

func (dt *DecisionTree) Classes() []int {
	return append([]int(nil), dt.ClassIDs...)
}

func (dt *DecisionTree) Predict(features ScaledRecord) (int, error) {
	leaf, err := dt.leaf(features)
	if err != nil {
		return 0, err
	}
	return leaf.ClassLabel, nil
}

func (dt *DecisionTree) leaf(features ScaledRecord) (TreeNode, error) {
	if len(dt.Nodes) == 0 {
		return TreeNode{}, errors.New("model not loaded")
	}
	if len(features) != dt.NFeatures {
		return TreeNode{}, fmt.Errorf("%w: model fitted on %d features, got %d", ErrSchemaMismatch, dt.NFeatures, len(features))
	}
	idx := 0
	for {
		node := dt.Nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(dt.Nodes) {
			return TreeNode{}, errors.New("invalid tree state")
		}
	}
}

// hasClassCounts reports whether every leaf carries counts for every class.
func (dt *DecisionTree) hasClassCounts() bool {
	if len(dt.ClassIDs) == 0 {
		return false
	}
	for _, node := range dt.Nodes {
		if node.IsLeaf && len(node.Value) != len(dt.ClassIDs) {
			return false
		}
	}
	return true
}

func (dt *DecisionTree) leafLabels() []int {
	seen := make(map[int]bool)
	labels := make([]int, 0)
	for _, node := range dt.Nodes {
		if node.IsLeaf && !seen[node.ClassLabel] {
			seen[node.ClassLabel] = true
			labels = append(labels, node.ClassLabel)
		}
	}
	sort.Ints(labels)
	return labels
}

// probabilisticTree is a DecisionTree whose leaves carry class counts.
type probabilisticTree struct {
	*DecisionTree
}

func (pt probabilisticTree) PredictProbabilities(features ScaledRecord) ([]float64, error) {
	leaf, err := pt.leaf(features)
	if err != nil {
		return nil, err
	}
	total := 0.0
	for _, c := range leaf.Value {
		total += c
	}
	if total <= 0 {
		return nil, errors.New("leaf has no samples")
	}
	proba := make([]float64, len(leaf.Value))
	for i, c := range leaf.Value {
		proba[i] = c / total
	}
	return proba, nil
}
