package decisiontrees

import (
	"context"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
)

/*
Partition represents a split of a dataset on the values of a feature
into branches, with the information gain in bits the split obtains on
a label feature
*/
type Partition struct {
	Feature  feature.Feature
	Branches []*Branch
	Gain     float64
}

/*
Branch represents the part of a partition with the samples that have
one of the values of the partition's feature
*/
type Branch struct {
	// The value of the partition's feature the branch covers
	Value string
	// The subset of the partitioned dataset whose samples have the
	// branch's value
	Subset dataset.Dataset
	// The number of samples on Subset
	Count int
}

/*
NewPartition takes a context.Context, a dataset, a feature, a label
feature and a slice of values for the feature and returns the partition
of the dataset into a branch per value, or an error if the dataset
cannot be subset on one of the values.

The partition's gain is the entropy of the dataset for the label
feature minus the entropy of every non-empty branch subset weighted by
the fraction of samples on it, and its branches keep the order of the
given values.
*/
func NewPartition(ctx context.Context, s dataset.Dataset, f, label feature.Feature, values []string) (*Partition, error) {
	gain, err := s.Entropy(ctx, label)
	if err != nil {
		return nil, err
	}
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalCount := float64(count)
	branches := make([]*Branch, 0, len(values))
	for _, v := range values {
		subset, err := s.SubsetWith(ctx, feature.NewCriterion(f, v))
		if err != nil {
			return nil, err
		}
		subsetCount, err := subset.Count(ctx)
		if err != nil {
			return nil, err
		}
		if subsetCount > 0 {
			subsetEntropy, err := subset.Entropy(ctx, label)
			if err != nil {
				return nil, err
			}
			gain -= subsetEntropy * float64(subsetCount) / totalCount
		}
		branches = append(branches, &Branch{Value: v, Subset: subset, Count: subsetCount})
	}
	return &Partition{Feature: f, Branches: branches, Gain: gain}, nil
}
