package feature

import (
	"context"
	"fmt"
)

/*
Criterion represents a constraint on a feature: a value the feature must
take.

Its SatisfiedBy method takes a sample and returns a boolean indicating if
the sample satisfies the feature criterion.

Its Feature method returns the feature on which the criterion is applied.
*/
type Criterion struct {
	feature Feature
	value   string
}

/*
Sample is an interface for something that can satisfy a Criterion.

Its ValueFor method returns the value corresponding to the feature
passed as parameter, or an error if no value can be obtained for it.
*/
type Sample interface {
	ValueFor(context.Context, Feature) (string, error)
}

/*
NewCriterion takes a Feature and a value string and returns a Criterion
constraining the feature to that value.
*/
func NewCriterion(f Feature, value string) Criterion {
	return Criterion{f, value}
}

/*
Feature returns the feature to which the constraint applies.
*/
func (c Criterion) Feature() Feature {
	return c.feature
}

/*
Value returns the value to which the feature is constrained.
*/
func (c Criterion) Value() string {
	return c.value
}

/*
SatisfiedBy receives a sample as parameter and returns a boolean indicating
if the sample satisfies the criterion, that is, if the sample's value for
the criterion's feature equals the value on the criterion. An error is
returned if the sample cannot provide a value for the feature.
*/
func (c Criterion) SatisfiedBy(ctx context.Context, sample Sample) (bool, error) {
	val, err := sample.ValueFor(ctx, c.feature)
	if err != nil {
		return false, err
	}
	return c.value == val, nil
}

func (c Criterion) String() string {
	return fmt.Sprintf("%s is %s", c.feature.Name(), c.value)
}
