package dataset

import (
	"context"
	"fmt"

	"github.com/jayelm/decisiontrees/feature"
)

type sample struct {
	featureValues map[string]string
}

/*
NewSample takes a map of feature string names to values and returns a
feature.Sample backed by it.
*/
func NewSample(featureValues map[string]string) feature.Sample {
	return &sample{featureValues}
}

func (s *sample) ValueFor(ctx context.Context, f feature.Feature) (string, error) {
	v, ok := s.featureValues[f.Name()]
	if !ok {
		return "", fmt.Errorf("sample has no value for feature %s", f.Name())
	}
	return v, nil
}

func (s *sample) String() string {
	return fmt.Sprintf("[%v]", s.featureValues)
}
