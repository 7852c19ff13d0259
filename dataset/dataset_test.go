package dataset

import (
	"context"
	"math"
	"testing"

	"github.com/jayelm/decisiontrees/feature"
)

var (
	testTemp = feature.New("temp", []string{"hot", "cool"})
	testPlay = feature.New("play", []string{"no", "yes"})
)

func playSamples(plays ...string) []feature.Sample {
	samples := make([]feature.Sample, 0, len(plays))
	for _, p := range plays {
		samples = append(samples, NewSample(map[string]string{"play": p}))
	}
	return samples
}

func weatherSamples() []feature.Sample {
	return []feature.Sample{
		NewSample(map[string]string{"temp": "hot", "play": "no"}),
		NewSample(map[string]string{"temp": "cool", "play": "yes"}),
		NewSample(map[string]string{"temp": "cool", "play": "yes"}),
	}
}

func datasetImplementations(samples []feature.Sample) map[string]Dataset {
	return map[string]Dataset{
		"memory-intensive": NewMemoryIntensive(samples),
		"cpu-intensive":    NewCPUIntensive(samples),
	}
}

func TestEntropy_PureDatasetIsZero(t *testing.T) {
	for name, ds := range datasetImplementations(playSamples("yes", "yes", "yes")) {
		e, err := ds.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if e != 0.0 {
			t.Errorf("%s: expected entropy 0 for a pure dataset, got %f", name, e)
		}
	}
}

func TestEntropy_EvenSplitIsOneBit(t *testing.T) {
	for name, ds := range datasetImplementations(playSamples("yes", "no", "yes", "no")) {
		e, err := ds.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if e != 1.0 {
			t.Errorf("%s: expected entropy of exactly 1 bit for a 50/50 split, got %f", name, e)
		}
	}
}

func TestEntropy_OneNoTwoYes(t *testing.T) {
	want := 0.9182958340544896
	for name, ds := range datasetImplementations(weatherSamples()) {
		e, err := ds.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if math.Abs(e-want) > 1e-9 {
			t.Errorf("%s: expected entropy %f, got %f", name, want, e)
		}
	}
}

func TestEntropy_EmptyDatasetIsUndefined(t *testing.T) {
	for name, ds := range datasetImplementations(nil) {
		_, err := ds.Entropy(context.Background(), testPlay)
		if err == nil {
			t.Errorf("%s: expected an error for the entropy of an empty dataset", name)
		}
	}
}

func TestEntropy_CachedPerFeature(t *testing.T) {
	samples := []feature.Sample{
		NewSample(map[string]string{"temp": "hot", "play": "yes"}),
		NewSample(map[string]string{"temp": "hot", "play": "yes"}),
		NewSample(map[string]string{"temp": "cool", "play": "yes"}),
		NewSample(map[string]string{"temp": "cool", "play": "no"}),
	}
	for name, ds := range datasetImplementations(samples) {
		ePlay, err := ds.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		eTemp, err := ds.Entropy(context.Background(), testTemp)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if ePlay == eTemp {
			t.Errorf("%s: expected different entropies for play and temp, got %f for both", name, ePlay)
		}
		again, err := ds.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if again != ePlay {
			t.Errorf("%s: expected repeated entropy %f, got %f", name, ePlay, again)
		}
	}
}

func TestFeatureValues_FirstAppearanceOrder(t *testing.T) {
	for name, ds := range datasetImplementations(weatherSamples()) {
		values, err := ds.FeatureValues(context.Background(), testTemp)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		want := []string{"hot", "cool"}
		if len(values) != len(want) {
			t.Fatalf("%s: expected %d values, got %d", name, len(want), len(values))
		}
		for i, v := range want {
			if values[i] != v {
				t.Errorf("%s: expected value %d to be %s, got %s", name, i, v, values[i])
			}
		}
	}
}

func TestCountFeatureValues(t *testing.T) {
	for name, ds := range datasetImplementations(weatherSamples()) {
		counts, err := ds.CountFeatureValues(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if counts["no"] != 1 || counts["yes"] != 2 {
			t.Errorf("%s: expected counts no:1 yes:2, got %v", name, counts)
		}
	}
}

func TestSubsetWith_FiltersSamples(t *testing.T) {
	for name, ds := range datasetImplementations(weatherSamples()) {
		subset, err := ds.SubsetWith(context.Background(), feature.NewCriterion(testTemp, "cool"))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		count, err := subset.Count(context.Background())
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if count != 2 {
			t.Errorf("%s: expected 2 samples with temp cool, got %d", name, count)
		}
		e, err := subset.Entropy(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if e != 0.0 {
			t.Errorf("%s: expected the cool subset to be pure, got entropy %f", name, e)
		}
	}
}

func TestSubsetWith_DoesNotMutateOriginal(t *testing.T) {
	for name, ds := range datasetImplementations(weatherSamples()) {
		_, err := ds.SubsetWith(context.Background(), feature.NewCriterion(testTemp, "hot"))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		count, err := ds.Count(context.Background())
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if count != 3 {
			t.Errorf("%s: expected original dataset to keep its 3 samples, got %d", name, count)
		}
	}
}

func TestSubsetWith_ChainedCriteria(t *testing.T) {
	samples := []feature.Sample{
		NewSample(map[string]string{"temp": "hot", "play": "no"}),
		NewSample(map[string]string{"temp": "hot", "play": "yes"}),
		NewSample(map[string]string{"temp": "cool", "play": "yes"}),
	}
	for name, ds := range datasetImplementations(samples) {
		hot, err := ds.SubsetWith(context.Background(), feature.NewCriterion(testTemp, "hot"))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		hotYes, err := hot.SubsetWith(context.Background(), feature.NewCriterion(testPlay, "yes"))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		count, err := hotYes.Count(context.Background())
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if count != 1 {
			t.Errorf("%s: expected 1 hot yes sample, got %d", name, count)
		}
	}
}

func TestSamples_AppliesCriteria(t *testing.T) {
	for name, ds := range datasetImplementations(weatherSamples()) {
		subset, err := ds.SubsetWith(context.Background(), feature.NewCriterion(testTemp, "hot"))
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		samples, err := subset.Samples(context.Background())
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if len(samples) != 1 {
			t.Fatalf("%s: expected 1 sample, got %d", name, len(samples))
		}
		v, err := samples[0].ValueFor(context.Background(), testPlay)
		if err != nil {
			t.Fatalf("%s: expected no error, got %v", name, err)
		}
		if v != "no" {
			t.Errorf("%s: expected the hot sample to play no, got %s", name, v)
		}
	}
}

func TestNewSample_MissingFeature(t *testing.T) {
	s := NewSample(map[string]string{"temp": "hot"})
	_, err := s.ValueFor(context.Background(), testPlay)
	if err == nil {
		t.Error("expected an error asking a sample for a feature it has no value for")
	}
}
