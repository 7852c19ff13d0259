package sqldataset

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/jayelm/decisiontrees"
	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
)

type memAdapter struct {
	columns     []string
	values      map[int]string
	nextValueID int
	addedValues [][]string
	samples     []map[string]int
}

func newMemAdapter() *memAdapter {
	return &memAdapter{values: make(map[int]string), nextValueID: 1}
}

func (a *memAdapter) ColumnName(featureName string) (string, error) {
	if featureName == "id" {
		return "", fmt.Errorf("'%s' is reserved and cannot be used as feature name", featureName)
	}
	return featureName, nil
}

func (a *memAdapter) CreateValuesTable(ctx context.Context) error {
	return nil
}

func (a *memAdapter) CreateSampleTable(ctx context.Context, featureColumns []string) error {
	a.columns = featureColumns
	return nil
}

func (a *memAdapter) AddValues(ctx context.Context, values []string) (int, error) {
	if len(values) > 0 {
		a.addedValues = append(a.addedValues, values)
	}
	for _, v := range values {
		a.values[a.nextValueID] = v
		a.nextValueID++
	}
	return len(values), nil
}

func (a *memAdapter) ListValues(ctx context.Context) (map[int]string, error) {
	result := make(map[int]string, len(a.values))
	for k, v := range a.values {
		result[k] = v
	}
	return result, nil
}

func (a *memAdapter) AddSamples(ctx context.Context, rawSamples []map[string]int, featureColumns []string) (int, error) {
	for _, rs := range rawSamples {
		stored := make(map[string]int, len(rs))
		for k, v := range rs {
			stored[k] = v
		}
		a.samples = append(a.samples, stored)
	}
	return len(rawSamples), nil
}

func (a *memAdapter) ListSamples(ctx context.Context, criteria []*FeatureCriterion, featureColumns []string) ([]map[string]int, error) {
	var result []map[string]int
	for _, rs := range a.samples {
		if matchesCriteria(rs, criteria) {
			result = append(result, rs)
		}
	}
	return result, nil
}

func (a *memAdapter) IterateOnSamples(ctx context.Context, criteria []*FeatureCriterion, featureColumns []string, lambda func(int, map[string]int) (bool, error)) error {
	n := 0
	for _, rs := range a.samples {
		if !matchesCriteria(rs, criteria) {
			continue
		}
		ok, err := lambda(n, rs)
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

func (a *memAdapter) CountSamples(ctx context.Context, criteria []*FeatureCriterion) (int, error) {
	count := 0
	for _, rs := range a.samples {
		if matchesCriteria(rs, criteria) {
			count++
		}
	}
	return count, nil
}

func (a *memAdapter) ListSampleFeatureValues(ctx context.Context, featureColumn string, criteria []*FeatureCriterion) ([]int, error) {
	var result []int
	seen := make(map[int]bool)
	for _, rs := range a.samples {
		if !matchesCriteria(rs, criteria) {
			continue
		}
		v, ok := rs[featureColumn]
		if ok && !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result, nil
}

func (a *memAdapter) CountSampleFeatureValues(ctx context.Context, featureColumn string, criteria []*FeatureCriterion) (map[int]int, error) {
	result := make(map[int]int)
	for _, rs := range a.samples {
		if !matchesCriteria(rs, criteria) {
			continue
		}
		v, ok := rs[featureColumn]
		if ok {
			result[v]++
		}
	}
	return result, nil
}

func matchesCriteria(rs map[string]int, criteria []*FeatureCriterion) bool {
	for _, c := range criteria {
		if rs[c.FeatureColumn] != c.Value {
			return false
		}
	}
	return true
}

func testColorSizeFeatures() []feature.Feature {
	return []feature.Feature{
		feature.New("color", []string{"red", "blue"}),
		feature.New("size", []string{"small", "big"}),
	}
}

func TestCreate_RegistersDeclaredFeatureValues(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	_, err := Create(ctx, db, testColorSizeFeatures())
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	expectedColumns := []string{"color", "size"}
	if len(db.columns) != len(expectedColumns) {
		t.Fatalf("expected sample table with columns %v, got %v", expectedColumns, db.columns)
	}
	for i, c := range expectedColumns {
		if db.columns[i] != c {
			t.Errorf("expected column %d to be %s, got %s", i, c, db.columns[i])
		}
	}
	if len(db.addedValues) != 1 {
		t.Fatalf("expected 1 value insertion, got %d", len(db.addedValues))
	}
	expectedValues := []string{"red", "blue", "small", "big"}
	if len(db.addedValues[0]) != len(expectedValues) {
		t.Fatalf("expected values %v on the dictionary, got %v", expectedValues, db.addedValues[0])
	}
	for i, v := range expectedValues {
		if db.addedValues[0][i] != v {
			t.Errorf("expected dictionary value %d to be %s, got %s", i, v, db.addedValues[0][i])
		}
	}
}

func TestCreate_RejectsFeaturesWithInvalidNames(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := []feature.Feature{feature.New("id", []string{"1", "2"})}
	_, err := Create(ctx, db, features)
	if err == nil {
		t.Errorf("expected creating a dataset with a feature named id to fail")
	}
}

func TestWrite_StoresSamplesAsValueReferences(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	ds, err := Create(ctx, db, testColorSizeFeatures())
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	n, err := ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "red", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "blue", "size": "small"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 written samples, got %d", n)
	}
	if len(db.samples) != 2 {
		t.Fatalf("expected 2 stored samples, got %d", len(db.samples))
	}
	first := db.samples[0]
	if db.values[first["color"]] != "red" {
		t.Errorf("expected first sample to reference color red, got %s", db.values[first["color"]])
	}
	if db.values[first["size"]] != "big" {
		t.Errorf("expected first sample to reference size big, got %s", db.values[first["size"]])
	}
}

func TestWrite_RejectsValuesOutsideTheDictionary(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	ds, err := Create(ctx, db, testColorSizeFeatures())
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "green", "size": "big"}),
	})
	if err == nil {
		t.Errorf("expected writing a sample with an undeclared value to fail")
	}
	if len(db.samples) != 0 {
		t.Errorf("expected no stored samples, got %d", len(db.samples))
	}
}

func TestCount_CountsStoredSamples(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	ds, err := Create(ctx, db, testColorSizeFeatures())
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "red", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "red", "size": "small"}),
		dataset.NewSample(map[string]string{"color": "blue", "size": "big"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	count, err := ds.Count(ctx)
	if err != nil {
		t.Fatalf("counting samples: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 samples, got %d", count)
	}
	counts, err := ds.CountFeatureValues(ctx, testColorSizeFeatures()[0])
	if err != nil {
		t.Fatalf("counting feature values: %v", err)
	}
	if counts["red"] != 2 || counts["blue"] != 1 {
		t.Errorf("expected 2 red and 1 blue samples, got %v", counts)
	}
}

func TestFeatureValues_FollowFirstAppearanceOrder(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	ds, err := Create(ctx, db, testColorSizeFeatures())
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "blue", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "red", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "blue", "size": "small"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	values, err := ds.FeatureValues(ctx, testColorSizeFeatures()[0])
	if err != nil {
		t.Fatalf("listing feature values: %v", err)
	}
	expected := []string{"blue", "red"}
	if len(values) != len(expected) {
		t.Fatalf("expected feature values %v, got %v", expected, values)
	}
	for i, v := range expected {
		if values[i] != v {
			t.Errorf("expected feature value %d to be %s, got %s", i, v, values[i])
		}
	}
}

func TestEntropy_MeasuresValueImpurityInBits(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := []feature.Feature{feature.New("play", []string{"yes", "no"})}
	ds, err := Create(ctx, db, features)
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"play": "yes"}),
		dataset.NewSample(map[string]string{"play": "yes"}),
		dataset.NewSample(map[string]string{"play": "no"}),
		dataset.NewSample(map[string]string{"play": "no"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	entropy, err := ds.Entropy(ctx, features[0])
	if err != nil {
		t.Fatalf("measuring entropy: %v", err)
	}
	if math.Abs(entropy-1.0) > 1e-9 {
		t.Errorf("expected an entropy of 1.0 bits, got %f", entropy)
	}
}

func TestEntropy_UndefinedOnEmptyDataset(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := []feature.Feature{feature.New("play", []string{"yes", "no"})}
	ds, err := Create(ctx, db, features)
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Entropy(ctx, features[0])
	if err == nil {
		t.Errorf("expected measuring the entropy of an empty dataset to fail")
	}
}

func TestSubsetWith_AppliesCriteriaToQueries(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := testColorSizeFeatures()
	ds, err := Create(ctx, db, features)
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "red", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "red", "size": "small"}),
		dataset.NewSample(map[string]string{"color": "blue", "size": "big"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	subset, err := ds.SubsetWith(ctx, feature.NewCriterion(features[0], "red"))
	if err != nil {
		t.Fatalf("subsetting dataset: %v", err)
	}
	count, err := subset.Count(ctx)
	if err != nil {
		t.Fatalf("counting subset samples: %v", err)
	}
	if count != 2 {
		t.Errorf("expected 2 samples on the subset, got %d", count)
	}
	subsubset, err := subset.SubsetWith(ctx, feature.NewCriterion(features[1], "small"))
	if err != nil {
		t.Fatalf("subsetting subset: %v", err)
	}
	count, err = subsubset.Count(ctx)
	if err != nil {
		t.Fatalf("counting subsubset samples: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 sample on the subsubset, got %d", count)
	}
	count, err = ds.Count(ctx)
	if err != nil {
		t.Fatalf("counting dataset samples: %v", err)
	}
	if count != 3 {
		t.Errorf("expected subsetting to leave the dataset with 3 samples, got %d", count)
	}
}

func TestRead_StreamsSamplesInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := testColorSizeFeatures()
	ds, err := Create(ctx, db, features)
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"color": "red", "size": "big"}),
		dataset.NewSample(map[string]string{"color": "blue", "size": "small"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	sampleStream, errStream := ds.Read(ctx)
	var colors []string
	for s := range sampleStream {
		v, err := s.ValueFor(ctx, features[0])
		if err != nil {
			t.Fatalf("reading sample color: %v", err)
		}
		colors = append(colors, v)
	}
	if err := <-errStream; err != nil {
		t.Fatalf("streaming samples: %v", err)
	}
	expected := []string{"red", "blue"}
	if len(colors) != len(expected) {
		t.Fatalf("expected streamed colors %v, got %v", expected, colors)
	}
	for i, c := range expected {
		if colors[i] != c {
			t.Errorf("expected streamed color %d to be %s, got %s", i, c, colors[i])
		}
	}
}

func TestDataset_SupportsGrowingConsistentTrees(t *testing.T) {
	ctx := context.Background()
	db := newMemAdapter()
	features := []feature.Feature{
		feature.New("outlook", []string{"sunny", "overcast"}),
		feature.New("humidity", []string{"high", "normal"}),
		feature.New("play", []string{"yes", "no"}),
	}
	ds, err := Create(ctx, db, features)
	if err != nil {
		t.Fatalf("creating dataset: %v", err)
	}
	_, err = ds.Write(ctx, []feature.Sample{
		dataset.NewSample(map[string]string{"outlook": "sunny", "humidity": "high", "play": "no"}),
		dataset.NewSample(map[string]string{"outlook": "sunny", "humidity": "normal", "play": "yes"}),
		dataset.NewSample(map[string]string{"outlook": "overcast", "humidity": "high", "play": "yes"}),
		dataset.NewSample(map[string]string{"outlook": "overcast", "humidity": "normal", "play": "yes"}),
	})
	if err != nil {
		t.Fatalf("writing samples: %v", err)
	}
	grower := &decisiontrees.Grower{Features: features, Label: features[2]}
	tr, err := grower.Grow(ctx, ds)
	if err != nil {
		t.Fatalf("growing tree: %v", err)
	}
	result, unseen, err := tr.Test(ctx, ds, features[2])
	if err != nil {
		t.Fatalf("testing tree: %v", err)
	}
	if result != 1.0 {
		t.Errorf("expected the tree to decide its whole training dataset, got a success rate of %f", result)
	}
	if unseen != 0 {
		t.Errorf("expected no samples with unseen values, got %d", unseen)
	}
}
