/*
Package redisdataset provides an implementation of dataset.Dataset
that uses a redis database as backend.

Samples are stored as hashes with one field per feature, under keys
with a common prefix and an insertion index, so that samples can be
iterated in the order they were written.
*/
package redisdataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
	redis "gopkg.in/redis.v5"
)

/*
Dataset is a dataset.Dataset to which samples can also be
written and from which samples can be streamed.
*/
type Dataset interface {
	dataset.Dataset
	Write(context.Context, []feature.Sample) (int, error)
	Read(context.Context) (<-chan feature.Sample, <-chan error)
}

type redisDataset struct {
	rc       *redis.Client
	prefix   string
	features []feature.Feature
	criteria []feature.Criterion
	count    *int
	entropy  map[string]float64
}

/*
Open takes a context.Context, a redis client, a prefix for the keys
the dataset stores its data under and a slice of feature.Feature and
returns a Dataset backed by the redis database, or an error if the
database cannot be reached.
*/
func Open(ctx context.Context, rc *redis.Client, prefix string, features []feature.Feature) (Dataset, error) {
	_, err := rc.Ping().Result()
	if err != nil {
		return nil, fmt.Errorf("connecting to redis: %v", err)
	}
	return &redisDataset{rc: rc, prefix: prefix, features: features, entropy: make(map[string]float64)}, nil
}

func (rds *redisDataset) Entropy(ctx context.Context, f feature.Feature) (float64, error) {
	if result, ok := rds.entropy[f.Name()]; ok {
		return result, nil
	}
	featureValueCounts, err := rds.CountFeatureValues(ctx, f)
	if err != nil {
		return 0.0, err
	}
	if len(featureValueCounts) == 0 {
		return 0.0, fmt.Errorf("entropy for feature %s is undefined on an empty dataset", f.Name())
	}
	var result, count float64
	for _, c := range featureValueCounts {
		count += float64(c)
	}
	for _, c := range featureValueCounts {
		probValue := float64(c) / count
		result -= probValue * math.Log2(probValue)
	}
	rds.entropy[f.Name()] = result
	return result, nil
}

func (rds *redisDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (dataset.Dataset, error) {
	criteria := append([]feature.Criterion{fc}, rds.criteria...)
	return &redisDataset{
		rc:       rds.rc,
		prefix:   rds.prefix,
		features: rds.features,
		criteria: criteria,
		entropy:  make(map[string]float64),
	}, nil
}

/*
FeatureValues takes a context.Context and a feature.Feature and returns
the values the feature takes on the dataset, in the order in which they
first appear on its samples, or an error if the samples cannot be
retrieved.
*/
func (rds *redisDataset) FeatureValues(ctx context.Context, f feature.Feature) ([]string, error) {
	var result []string
	seen := make(map[string]bool)
	err := rds.iterate(ctx, func(_ int, fields map[string]string) (bool, error) {
		v, ok := fields[f.Name()]
		if !ok {
			return false, fmt.Errorf("sample has no value for feature %s", f.Name())
		}
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rds *redisDataset) CountFeatureValues(ctx context.Context, f feature.Feature) (map[string]int, error) {
	result := make(map[string]int)
	err := rds.iterate(ctx, func(_ int, fields map[string]string) (bool, error) {
		v, ok := fields[f.Name()]
		if !ok {
			return false, fmt.Errorf("sample has no value for feature %s", f.Name())
		}
		result[v]++
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (rds *redisDataset) Samples(ctx context.Context) ([]feature.Sample, error) {
	var samples []feature.Sample
	err := rds.iterate(ctx, func(_ int, fields map[string]string) (bool, error) {
		samples = append(samples, dataset.NewSample(fields))
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

func (rds *redisDataset) Count(ctx context.Context) (int, error) {
	if rds.count != nil {
		return *rds.count, nil
	}
	if len(rds.criteria) == 0 {
		result, err := rds.storedCount()
		if err == nil {
			rds.count = &result
		}
		return result, err
	}
	result := 0
	err := rds.iterate(ctx, func(int, map[string]string) (bool, error) {
		result++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	rds.count = &result
	return result, nil
}

func (rds *redisDataset) Write(ctx context.Context, samples []feature.Sample) (int, error) {
	written := 0
	for _, s := range samples {
		fields := make(map[string]string)
		for _, f := range rds.features {
			v, err := s.ValueFor(ctx, f)
			if err != nil {
				return written, err
			}
			fields[f.Name()] = v
		}
		n, err := rds.rc.Incr(rds.countKey()).Result()
		if err != nil {
			return written, fmt.Errorf("reserving an id for a sample in redis: %v", err)
		}
		_, err = rds.rc.HMSet(rds.sampleKey(int(n-1)), fields).Result()
		if err != nil {
			return written, fmt.Errorf("storing sample %d in redis: %v", n-1, err)
		}
		written++
		if err := ctx.Err(); err != nil {
			return written, err
		}
	}
	return written, nil
}

func (rds *redisDataset) Read(ctx context.Context) (<-chan feature.Sample, <-chan error) {
	samples := make(chan feature.Sample)
	errs := make(chan error, 1)
	go func() {
		err := rds.iterate(ctx, func(_ int, fields map[string]string) (bool, error) {
			s := dataset.NewSample(fields)
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case samples <- s:
			}
			return true, nil
		})
		if err != nil {
			errs <- err
		}
		close(errs)
		close(samples)
	}()
	return samples, errs
}

func (rds *redisDataset) iterate(ctx context.Context, lambda func(int, map[string]string) (bool, error)) error {
	total, err := rds.storedCount()
	if err != nil {
		return err
	}
	n := 0
	for i := 0; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		fields, err := rds.rc.HGetAll(rds.sampleKey(i)).Result()
		if err != nil {
			return fmt.Errorf("retrieving sample %d from redis: %v", i, err)
		}
		if len(fields) == 0 || !rds.matches(fields) {
			continue
		}
		ok, err := lambda(n, fields)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		n++
	}
	return nil
}

func (rds *redisDataset) matches(fields map[string]string) bool {
	for _, fc := range rds.criteria {
		if fields[fc.Feature().Name()] != fc.Value() {
			return false
		}
	}
	return true
}

func (rds *redisDataset) storedCount() (int, error) {
	total, err := rds.rc.Get(rds.countKey()).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("retrieving the sample count from redis: %v", err)
	}
	return int(total), nil
}

func (rds *redisDataset) sampleKey(n int) string {
	return fmt.Sprintf("%s:sample:%d", rds.prefix, n)
}

func (rds *redisDataset) countKey() string {
	return fmt.Sprintf("%s:samples:count", rds.prefix)
}
