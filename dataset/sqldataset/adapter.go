package sqldataset

import "context"

/*
Adapter is an interface providing the methods needed to implement
a Dataset with an SQL database backend.
*/
type Adapter interface {
	ColumnName(string) (string, error)

	CreateValuesTable(context.Context) error
	CreateSampleTable(ctx context.Context, featureColumns []string) error

	AddValues(context.Context, []string) (int, error)
	ListValues(context.Context) (map[int]string, error)

	AddSamples(ctx context.Context, rawSamples []map[string]int, featureColumns []string) (int, error)
	ListSamples(ctx context.Context, criteria []*FeatureCriterion, featureColumns []string) ([]map[string]int, error)
	IterateOnSamples(ctx context.Context, criteria []*FeatureCriterion, featureColumns []string, lambda func(int, map[string]int) (bool, error)) error
	CountSamples(context.Context, []*FeatureCriterion) (int, error)

	// ListSampleFeatureValues returns the distinct value references on
	// the given column for the samples satisfying the criteria, in the
	// order the values first appear on the samples table.
	ListSampleFeatureValues(ctx context.Context, featureColumn string, criteria []*FeatureCriterion) ([]int, error)
	CountSampleFeatureValues(ctx context.Context, featureColumn string, criteria []*FeatureCriterion) (map[int]int, error)
}
