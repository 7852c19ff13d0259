package decisiontrees

import (
	"context"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
)

/*
Strategy selects the partition on whose feature a grower splits a
dataset when growing a decision node.
*/
type Strategy interface {
	/*
		Partition takes a context.Context, a dataset, the features still
		available to split on and the label feature the tree is grown
		for, and returns the partition of the dataset to split on, or
		nil if the strategy cannot select one and the node must become
		a leaf instead. Implementations must be deterministic: the same
		dataset and features must always select the same partition.
	*/
	Partition(ctx context.Context, s dataset.Dataset, features []feature.Feature, label feature.Feature) (*Partition, error)
}

/*
NewID3Strategy returns the default strategy for growing trees. It
selects the partition on the feature that obtains the greatest
information gain on the label feature, with a branch per value of the
feature observed on the dataset in the order they appear on it.
Features are compared in the order they are given, so the earliest
feature wins ties.
*/
func NewID3Strategy() Strategy {
	return id3Strategy{}
}

type id3Strategy struct{}

func (id3Strategy) Partition(ctx context.Context, s dataset.Dataset, features []feature.Feature, label feature.Feature) (*Partition, error) {
	var selected *Partition
	for _, f := range features {
		values, err := s.FeatureValues(ctx, f)
		if err != nil {
			return nil, err
		}
		p, err := NewPartition(ctx, s, f, label, values)
		if err != nil {
			return nil, err
		}
		if selected == nil || p.Gain > selected.Gain {
			selected = p
		}
	}
	return selected, nil
}

/*
NewFactorialAnalysisStrategy returns a strategy that selects the
partition on the feature that perfectly classifies the greatest
fraction of the dataset: a feature's score is the fraction of samples
whose value groups every sample with the same label value. When every
feature scores 0, the feature with the most distinct values on the
dataset is selected instead. In both cases the earliest feature wins
ties.

Partitions cover every available value of the selected feature, not
only the observed ones, so they may include branches with no samples
for a grower to turn into estimated leaves.
*/
func NewFactorialAnalysisStrategy() Strategy {
	return factorialAnalysisStrategy{}
}

type factorialAnalysisStrategy struct{}

func (factorialAnalysisStrategy) Partition(ctx context.Context, s dataset.Dataset, features []feature.Feature, label feature.Feature) (*Partition, error) {
	if len(features) == 0 {
		return nil, nil
	}
	count, err := s.Count(ctx)
	if err != nil {
		return nil, err
	}
	totalCount := float64(count)
	var selected, mostValued feature.Feature
	var selectedScore float64
	var mostValues int
	for _, f := range features {
		values, err := s.FeatureValues(ctx, f)
		if err != nil {
			return nil, err
		}
		var score float64
		for _, v := range values {
			subset, err := s.SubsetWith(ctx, feature.NewCriterion(f, v))
			if err != nil {
				return nil, err
			}
			subsetCount, err := subset.Count(ctx)
			if err != nil {
				return nil, err
			}
			if subsetCount == 0 {
				continue
			}
			subsetEntropy, err := subset.Entropy(ctx, label)
			if err != nil {
				return nil, err
			}
			if subsetEntropy == 0.0 {
				score += float64(subsetCount) / totalCount
			}
		}
		if score > selectedScore {
			selected = f
			selectedScore = score
		}
		if len(values) > mostValues {
			mostValued = f
			mostValues = len(values)
		}
	}
	if selectedScore == 0.0 {
		selected = mostValued
	}
	return NewPartition(ctx, s, selected, label, selected.AvailableValues())
}
