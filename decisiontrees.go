package decisiontrees

import (
	"context"
	"fmt"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
	"github.com/jayelm/decisiontrees/tree"
)

/*
Grower grows decision trees that decide a label feature from the
values samples have for other features, according to the training
data on a dataset.
*/
type Grower struct {
	// The features the grown trees may split samples on. Their order
	// decides ties between features that score the same for a split.
	Features []feature.Feature
	// The feature whose value the grown trees decide. The order of its
	// available values decides ties between equally frequent values
	// when taking the majority label of a set of samples.
	Label feature.Feature
	// The strategy used to select the feature to split each node on.
	// A nil Strategy selects partitions by information gain.
	Strategy Strategy
}

// Grow takes a context.Context and a dataset and returns the tree grown
// from the dataset samples according to the grower's features, label
// and strategy, or an error if the dataset is empty or its samples
// cannot be obtained. The tree is grown depth-first, and the subtrees
// for the values of a split feature are appended in the order the
// strategy's partition lists them, so growing twice from the same
// dataset yields the same tree.
func (g *Grower) Grow(ctx context.Context, s dataset.Dataset) (*tree.Node, error) {
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, fmt.Errorf("cannot grow a tree from an empty dataset")
	}
	strategy := g.Strategy
	if strategy == nil {
		strategy = NewID3Strategy()
	}
	features := make([]feature.Feature, 0, len(g.Features))
	for _, f := range g.Features {
		if f.Name() != g.Label.Name() {
			features = append(features, f)
		}
	}
	return g.grow(ctx, s, features, strategy)
}

func (g *Grower) grow(ctx context.Context, s dataset.Dataset, features []feature.Feature, strategy Strategy) (*tree.Node, error) {
	entropy, err := s.Entropy(ctx, g.Label)
	if err != nil {
		return nil, err
	}
	majority, err := g.majorityLabel(ctx, s)
	if err != nil {
		return nil, err
	}
	if entropy == 0.0 || len(features) == 0 {
		return tree.NewLeaf(majority), nil
	}
	p, err := strategy.Partition(ctx, s, features, g.Label)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return tree.NewLeaf(majority), nil
	}
	remaining := make([]feature.Feature, 0, len(features)-1)
	for _, f := range features {
		if f.Name() != p.Feature.Name() {
			remaining = append(remaining, f)
		}
	}
	subtrees := make([]*tree.Node, 0, len(p.Branches))
	for _, b := range p.Branches {
		var st *tree.Node
		if b.Count == 0 {
			st = tree.NewLeaf(majority)
			st.Estimated = true
		} else {
			st, err = g.grow(ctx, b.Subset, remaining, strategy)
			if err != nil {
				return nil, err
			}
		}
		c := feature.NewCriterion(p.Feature, b.Value)
		st.Criterion = &c
		subtrees = append(subtrees, st)
	}
	return tree.NewDecision(p.Feature, p.Gain, subtrees...), nil
}

// majorityLabel takes a context.Context and a dataset and returns the
// most frequent value of the grower's label feature on the dataset.
// Values are compared in the label feature's available value order, so
// earlier values win ties.
func (g *Grower) majorityLabel(ctx context.Context, s dataset.Dataset) (string, error) {
	counts, err := s.CountFeatureValues(ctx, g.Label)
	if err != nil {
		return "", err
	}
	var majority string
	var majorityCount int
	for _, v := range g.Label.AvailableValues() {
		if counts[v] > majorityCount {
			majority = v
			majorityCount = counts[v]
		}
	}
	if majorityCount == 0 {
		return "", fmt.Errorf("dataset has no values for label feature %s", g.Label.Name())
	}
	return majority, nil
}
