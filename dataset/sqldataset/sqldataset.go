package sqldataset

import (
	"context"
	"fmt"
	"math"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
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

type sqlDataset struct {
	db                  Adapter
	features            []feature.Feature
	criteria            []*FeatureCriterion
	featureNamesColumns map[string]string
	columnFeatures      map[string]feature.Feature
	values              map[int]string
	inverseValues       map[string]int
	featureColumns      []string
	count               *int
	entropy             map[string]float64
}

/*
Open takes a context.Context, an Adapter to a db backend and a slice
of feature.Feature and returns a Dataset backed by the given adapter
or an error if no dataset is available through the given adapter.

This function expects the adapter to have the samples and feature
value tables already created, and the feature value table initialized
with all the available values of the features in the features slice.
*/
func Open(ctx context.Context, dbAdapter Adapter, features []feature.Feature) (Dataset, error) {
	ss := &sqlDataset{db: dbAdapter, features: features, entropy: make(map[string]float64)}
	err := ss.initFeatureColumns()
	if err != nil {
		return nil, err
	}
	err = ss.init(ctx)
	if err != nil {
		return nil, err
	}
	return ss, nil
}

/*
Create takes a context.Context, an Adapter and a slice of
feature.Feature and returns a Dataset backed by the given adapter or
an error.

This function will ensure that the samples and feature value tables
are created on the database, and that the feature value table has all
the available values of the features on the features slice.
*/
func Create(ctx context.Context, dbAdapter Adapter, features []feature.Feature) (Dataset, error) {
	ss := &sqlDataset{db: dbAdapter, features: features, entropy: make(map[string]float64)}
	err := ss.initFeatureColumns()
	if err != nil {
		return nil, err
	}
	err = ss.initDB(ctx)
	if err != nil {
		return nil, err
	}
	return ss, nil
}

func (ss *sqlDataset) Count(ctx context.Context) (int, error) {
	if ss.count != nil {
		return *ss.count, nil
	}
	result, err := ss.db.CountSamples(ctx, ss.criteria)
	if err == nil {
		ss.count = &result
	}
	return result, err
}

func (ss *sqlDataset) Entropy(ctx context.Context, f feature.Feature) (float64, error) {
	if result, ok := ss.entropy[f.Name()]; ok {
		return result, nil
	}
	column, ok := ss.featureNamesColumns[f.Name()]
	if !ok {
		return 0.0, fmt.Errorf("unknown feature %s", f.Name())
	}
	featureValueCounts, err := ss.db.CountSampleFeatureValues(ctx, column, ss.criteria)
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
	ss.entropy[f.Name()] = result
	return result, nil
}

func (ss *sqlDataset) FeatureValues(ctx context.Context, f feature.Feature) ([]string, error) {
	column, ok := ss.featureNamesColumns[f.Name()]
	if !ok {
		return nil, fmt.Errorf("unknown feature %s", f.Name())
	}
	valueRefs, err := ss.db.ListSampleFeatureValues(ctx, column, ss.criteria)
	if err != nil {
		return nil, err
	}
	result := make([]string, 0, len(valueRefs))
	for _, vr := range valueRefs {
		v, ok := ss.values[vr]
		if !ok {
			return nil, fmt.Errorf("value reference %d for feature %s is not on the dictionary", vr, f.Name())
		}
		result = append(result, v)
	}
	return result, nil
}

func (ss *sqlDataset) CountFeatureValues(ctx context.Context, f feature.Feature) (map[string]int, error) {
	column, ok := ss.featureNamesColumns[f.Name()]
	if !ok {
		return nil, fmt.Errorf("unknown feature %s", f.Name())
	}
	featureValueCounts, err := ss.db.CountSampleFeatureValues(ctx, column, ss.criteria)
	if err != nil {
		return nil, err
	}
	result := make(map[string]int)
	for k, v := range featureValueCounts {
		result[ss.values[k]] = v
	}
	return result, nil
}

func (ss *sqlDataset) Samples(ctx context.Context) ([]feature.Sample, error) {
	rawSamples, err := ss.db.ListSamples(ctx, ss.criteria, ss.featureColumns)
	if err != nil {
		return nil, err
	}
	samples := make([]feature.Sample, 0, len(rawSamples))
	for _, s := range rawSamples {
		samples = append(samples, &Sample{Values: s, FeatureValues: ss.values, FeatureNamesColumns: ss.featureNamesColumns})
	}
	return samples, nil
}

func (ss *sqlDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (dataset.Dataset, error) {
	rfc, err := NewFeatureCriterion(fc, ss.db.ColumnName, ss.inverseValues)
	if err != nil {
		return nil, err
	}
	subsetCriteria := make([]*FeatureCriterion, 0, len(ss.criteria)+1)
	subsetCriteria = append(subsetCriteria, ss.criteria...)
	subsetCriteria = append(subsetCriteria, rfc)
	return &sqlDataset{
		db:                  ss.db,
		features:            ss.features,
		criteria:            subsetCriteria,
		values:              ss.values,
		inverseValues:       ss.inverseValues,
		featureNamesColumns: ss.featureNamesColumns,
		columnFeatures:      ss.columnFeatures,
		featureColumns:      ss.featureColumns,
		entropy:             make(map[string]float64),
	}, nil
}

func (ss *sqlDataset) Write(ctx context.Context, samples []feature.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	rawSamples := make([]map[string]int, 0, len(samples))
	for _, s := range samples {
		rs, err := ss.newRawSample(ctx, s)
		if err != nil {
			return 0, err
		}
		rawSamples = append(rawSamples, rs)
	}
	return ss.db.AddSamples(ctx, rawSamples, ss.featureColumns)
}

func (ss *sqlDataset) Read(ctx context.Context) (<-chan feature.Sample, <-chan error) {
	sampleStream := make(chan feature.Sample)
	errStream := make(chan error)
	go func() {
		err := ss.db.IterateOnSamples(
			ctx,
			ss.criteria,
			ss.featureColumns,
			func(n int, rs map[string]int) (bool, error) {
				s := &Sample{
					Values:              rs,
					FeatureValues:       ss.values,
					FeatureNamesColumns: ss.featureNamesColumns}
				select {
				case <-ctx.Done():
					return false, nil
				case sampleStream <- s:
				}
				return true, nil
			})
		if err != nil {
			go func() {
				errStream <- err
				close(errStream)
			}()
		} else {
			close(errStream)
		}
		close(sampleStream)
	}()
	return sampleStream, errStream
}

func (ss *sqlDataset) initDB(ctx context.Context) error {
	err := ss.db.CreateValuesTable(ctx)
	if err != nil {
		return err
	}
	err = ss.db.CreateSampleTable(ctx, ss.featureColumns)
	if err != nil {
		return err
	}
	ss.values, err = ss.db.ListValues(ctx)
	if err != nil {
		return err
	}
	newValues := ss.unavailableValues()
	_, err = ss.db.AddValues(ctx, newValues)
	if err != nil {
		return err
	}
	return ss.init(ctx)
}

func (ss *sqlDataset) unavailableValues() []string {
	var unavailableValues []string
	for _, f := range ss.features {
		for _, fv := range f.AvailableValues() {
			var present bool
			for _, pv := range ss.values {
				if fv == pv {
					present = true
					break
				}
			}
			if !present {
				for _, uv := range unavailableValues {
					if fv == uv {
						present = true
						break
					}
				}
				if !present {
					unavailableValues = append(unavailableValues, fv)
				}
			}
		}
	}
	return unavailableValues
}

func (ss *sqlDataset) init(ctx context.Context) error {
	var err error
	ss.values, err = ss.db.ListValues(ctx)
	if err != nil {
		return err
	}
	ss.inverseValues = make(map[string]int)
	for k, v := range ss.values {
		ss.inverseValues[v] = k
	}
	return nil
}

func (ss *sqlDataset) newRawSample(ctx context.Context, s feature.Sample) (map[string]int, error) {
	rs := make(map[string]int)
	for _, f := range ss.features {
		v, err := s.ValueFor(ctx, f)
		if err != nil {
			return nil, err
		}
		vr, ok := ss.inverseValues[v]
		if !ok {
			return nil, fmt.Errorf("value %s for feature %s is not on the dictionary", v, f.Name())
		}
		rs[ss.featureNamesColumns[f.Name()]] = vr
	}
	return rs, nil
}

func (ss *sqlDataset) initFeatureColumns() error {
	ss.columnFeatures = make(map[string]feature.Feature)
	ss.featureNamesColumns = make(map[string]string)
	for _, f := range ss.features {
		column, err := ss.db.ColumnName(f.Name())
		if err != nil {
			return fmt.Errorf("invalid feature %s: %v", f.Name(), err)
		}
		of, ok := ss.columnFeatures[column]
		if ok {
			return fmt.Errorf("%s and %s feature names translate to the same column name %s", f.Name(), of.Name(), column)
		}
		ss.columnFeatures[column] = f
		ss.featureNamesColumns[f.Name()] = column
		ss.featureColumns = append(ss.featureColumns, column)
	}
	return nil
}
