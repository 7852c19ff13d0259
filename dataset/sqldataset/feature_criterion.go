package sqldataset

import (
	"fmt"

	"github.com/jayelm/decisiontrees/feature"
)

/*
FeatureCriterion is used to represent a feature.Criterion on
SQL DB-backed datasets. It is easily translatable to an equality
condition on an SQL SELECT statement's WHERE clause on a samples
table.
*/
type FeatureCriterion struct {
	/*
		FeatureColumn is the column name for the feature
		the criterion is applying the restriction to.
	*/
	FeatureColumn string
	/*
		Value is the reference on the feature value table for the
		value samples must have on FeatureColumn to satisfy the
		criterion.
	*/
	Value int
}

/*
ColumnNameFunc is a function that takes the name of a
feature and returns the column name for it or an error if
the name could not be transformed.
*/
type ColumnNameFunc func(string) (string, error)

/*
NewFeatureCriterion takes a feature.Criterion, a ColumnNameFunc and a
map of string to int containing a dictionary for converting feature
values into their integer references and returns the equivalent
FeatureCriterion or an error.

An error will be returned if the ColumnNameFunc cannot provide a name
for the feature of the criterion, or if the criterion's value has no
reference defined on the given dictionary.
*/
func NewFeatureCriterion(fc feature.Criterion, cnf ColumnNameFunc, dictionary map[string]int) (*FeatureCriterion, error) {
	columnName, err := cnf(fc.Feature().Name())
	if err != nil {
		return nil, fmt.Errorf("cannot obtain column name for feature '%s': %v", fc.Feature().Name(), err)
	}
	vr, ok := dictionary[fc.Value()]
	if !ok {
		return nil, fmt.Errorf("non representable value '%s' in feature criterion", fc.Value())
	}
	return &FeatureCriterion{columnName, vr}, nil
}
