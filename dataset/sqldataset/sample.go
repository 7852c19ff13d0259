package sqldataset

import (
	"context"
	"fmt"

	"github.com/jayelm/decisiontrees/feature"
)

/*
Sample is an implementation of feature.Sample optimized to
represent samples belonging to an SQL DB-backed dataset.
*/
type Sample struct {
	/*
		Values is a map of column names to the int references
		the sample has on them, as stored on the samples table.
	*/
	Values map[string]int
	/*
		FeatureValues is a map of int to string that holds the
		relation of int references on the Sample's Values map to
		the feature values they represent.
	*/
	FeatureValues map[int]string
	/*
		FeatureNamesColumns is a map that translates the name of a
		feature to the column representing it on the database. This
		column is also the string value that acts as key for the
		feature value on the Sample's Values map.
	*/
	FeatureNamesColumns map[string]string
}

/*
ValueFor takes a context.Context and a feature and returns the value
the sample has for the feature, translating the reference stored on
its Values map through its FeatureValues dictionary, or an error if
the sample has no value for the feature.
*/
func (s *Sample) ValueFor(ctx context.Context, f feature.Feature) (string, error) {
	c, ok := s.FeatureNamesColumns[f.Name()]
	if !ok {
		return "", fmt.Errorf("sample has no value for feature %s", f.Name())
	}
	vr, ok := s.Values[c]
	if !ok {
		return "", fmt.Errorf("sample has no value for feature %s", f.Name())
	}
	v, ok := s.FeatureValues[vr]
	if !ok {
		return "", fmt.Errorf("value reference %d for feature %s is not on the dictionary", vr, f.Name())
	}
	return v, nil
}
