package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jayelm/decisiontrees/feature"
)

const (
	sampleCountThresholdForDatasetImplementation = 1000
)

/*
Dataset represents a collection of samples.

Its Entropy method returns the entropy of the dataset for a given feature:
a measure in bits of the impurity of the distribution of values samples in
the dataset take for the feature. It is undefined, and returns an error,
for a dataset with no samples.

Its SubsetWith method takes a feature.Criterion and returns a subset that
only contains samples that satisfy it. Datasets are never mutated:
subsetting always yields a new dataset.

Its FeatureValues method returns the distinct values samples in the dataset
take for a feature, in order of first appearance. Implementations must keep
this order stable so that trees grown from equal data are identical.

Its CountFeatureValues method returns the number of samples taking each
distinct value for a feature.

Its Samples method returns the samples it contains.
*/
type Dataset interface {
	Entropy(context.Context, feature.Feature) (float64, error)
	SubsetWith(context.Context, feature.Criterion) (Dataset, error)
	FeatureValues(context.Context, feature.Feature) ([]string, error)
	CountFeatureValues(context.Context, feature.Feature) (map[string]int, error)
	Samples(context.Context) ([]feature.Sample, error)
	Count(context.Context) (int, error)
}

type memoryIntensiveSubsettingDataset struct {
	entropy map[string]float64
	samples []feature.Sample
}

type cpuIntensiveSubsettingDataset struct {
	entropy  map[string]float64
	count    *int
	samples  []feature.Sample
	criteria []feature.Criterion
}

/*
New takes a slice of samples and returns a dataset built with them.
The dataset will be a CPU intensive one when the number of samples is
over sampleCountThresholdForDatasetImplementation
*/
func New(samples []feature.Sample) Dataset {
	if len(samples) > sampleCountThresholdForDatasetImplementation {
		return NewCPUIntensive(samples)
	}
	return NewMemoryIntensive(samples)
}

/*
NewMemoryIntensive takes a slice of samples and returns a Dataset
built with them. A memory-intensive dataset is an implementation that
replicates the slice of samples when subsetting to reduce
calculations at the cost of increased memory.
*/
func NewMemoryIntensive(samples []feature.Sample) Dataset {
	return &memoryIntensiveSubsettingDataset{make(map[string]float64), samples}
}

/*
NewCPUIntensive takes a slice of samples and returns a Dataset
built with them. A cpu-intensive dataset is an implementation that
instead of replicating the samples when subsetting, stores the
applying feature criteria to define the subset and keeps the same
sample slice. This can achieve a drastic reduction in memory use
that comes at the cost of CPU time: every calculation that goes over
the samples of the dataset will apply the feature criteria of the dataset
on all original samples (the ones provided to this method).
*/
func NewCPUIntensive(samples []feature.Sample) Dataset {
	return &cpuIntensiveSubsettingDataset{make(map[string]float64), nil, samples, []feature.Criterion{}}
}

func (s *memoryIntensiveSubsettingDataset) Count(ctx context.Context) (int, error) {
	return len(s.samples), nil
}

func (s *cpuIntensiveSubsettingDataset) Count(ctx context.Context) (int, error) {
	if s.count != nil {
		return *s.count, nil
	}
	var length int
	err := s.iterateOnDataset(ctx, func(_ feature.Sample) (bool, error) {
		length++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	s.count = &length
	return length, nil
}

func (s *memoryIntensiveSubsettingDataset) Entropy(ctx context.Context, f feature.Feature) (float64, error) {
	if e, ok := s.entropy[f.Name()]; ok {
		return e, nil
	}
	counts, err := s.CountFeatureValues(ctx, f)
	if err != nil {
		return 0, err
	}
	result, err := entropyFromCounts(counts, f)
	if err != nil {
		return 0, err
	}
	s.entropy[f.Name()] = result
	return result, nil
}

func (s *cpuIntensiveSubsettingDataset) Entropy(ctx context.Context, f feature.Feature) (float64, error) {
	if e, ok := s.entropy[f.Name()]; ok {
		return e, nil
	}
	counts, err := s.CountFeatureValues(ctx, f)
	if err != nil {
		return 0, err
	}
	result, err := entropyFromCounts(counts, f)
	if err != nil {
		return 0, err
	}
	s.entropy[f.Name()] = result
	return result, nil
}

/*
entropyFromCounts computes the entropy in bits of the value distribution
described by counts. Datasets with backends that can count values remotely
share it to keep the measure consistent across implementations.
*/
func entropyFromCounts(counts map[string]int, f feature.Feature) (float64, error) {
	var count float64
	for _, c := range counts {
		count += float64(c)
	}
	if count == 0 {
		return 0, fmt.Errorf("entropy for feature %s is undefined on an empty dataset", f.Name())
	}
	var result float64
	for _, c := range counts {
		probValue := float64(c) / count
		result -= probValue * math.Log2(probValue)
	}
	return result, nil
}

func (s *memoryIntensiveSubsettingDataset) FeatureValues(ctx context.Context, f feature.Feature) ([]string, error) {
	result := []string{}
	encountered := make(map[string]bool)
	for _, sample := range s.samples {
		v, err := sample.ValueFor(ctx, f)
		if err != nil {
			return nil, err
		}
		if !encountered[v] {
			encountered[v] = true
			result = append(result, v)
		}
	}
	return result, nil
}

func (s *cpuIntensiveSubsettingDataset) FeatureValues(ctx context.Context, f feature.Feature) ([]string, error) {
	result := []string{}
	encountered := make(map[string]bool)
	err := s.iterateOnDataset(ctx, func(sample feature.Sample) (bool, error) {
		v, err := sample.ValueFor(ctx, f)
		if err != nil {
			return false, err
		}
		if !encountered[v] {
			encountered[v] = true
			result = append(result, v)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *memoryIntensiveSubsettingDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (Dataset, error) {
	var samples []feature.Sample
	for _, sample := range s.samples {
		ok, err := fc.SatisfiedBy(ctx, sample)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append(samples, sample)
		}
	}
	return &memoryIntensiveSubsettingDataset{make(map[string]float64), samples}, nil
}

func (s *cpuIntensiveSubsettingDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (Dataset, error) {
	criteria := append([]feature.Criterion{fc}, s.criteria...)
	return &cpuIntensiveSubsettingDataset{make(map[string]float64), nil, s.samples, criteria}, nil
}

func (s *memoryIntensiveSubsettingDataset) Samples(ctx context.Context) ([]feature.Sample, error) {
	return s.samples, nil
}

func (s *cpuIntensiveSubsettingDataset) Samples(ctx context.Context) ([]feature.Sample, error) {
	var samples []feature.Sample
	err := s.iterateOnDataset(ctx, func(sample feature.Sample) (bool, error) {
		samples = append(samples, sample)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (s *memoryIntensiveSubsettingDataset) CountFeatureValues(ctx context.Context, f feature.Feature) (map[string]int, error) {
	result := make(map[string]int)
	for _, sample := range s.samples {
		v, err := sample.ValueFor(ctx, f)
		if err != nil {
			return nil, err
		}
		result[v]++
	}
	return result, nil
}

func (s *cpuIntensiveSubsettingDataset) CountFeatureValues(ctx context.Context, f feature.Feature) (map[string]int, error) {
	result := make(map[string]int)
	err := s.iterateOnDataset(ctx, func(sample feature.Sample) (bool, error) {
		v, err := sample.ValueFor(ctx, f)
		if err != nil {
			return false, err
		}
		result[v]++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *cpuIntensiveSubsettingDataset) iterateOnDataset(ctx context.Context, lambda func(feature.Sample) (bool, error)) error {
	for _, sample := range s.samples {
		skip := false
		for _, criterion := range s.criteria {
			ok, err := criterion.SatisfiedBy(ctx, sample)
			if err != nil {
				return err
			}
			if !ok {
				skip = true
				break
			}
		}
		if !skip {
			ok, err := lambda(sample)
			if err != nil {
				return err
			}
			if !ok {
				break
			}
		}
	}
	return nil
}
