package feature

import "fmt"

/*
Feature represents a named property that can be observed on a sample and
that can only take a value among a finite set.
*/
type Feature struct {
	name            string
	availableValues []string
}

/*
New takes a name string and a slice of available value strings and returns
a feature with the given name and available values. The order of the
available values is preserved: it is the feature's declaration order and
the canonical order used to resolve ties deterministically.
*/
func New(name string, availableValues []string) Feature {
	return Feature{name, availableValues}
}

/*
Name returns a string with the name of the feature
*/
func (f Feature) Name() string {
	return f.name
}

/*
AvailableValues returns a string slice with the values available for the
feature, in declaration order.
*/
func (f Feature) AvailableValues() []string {
	return f.availableValues
}

/*
Valid receives a value and returns a boolean and an error. When the value
is included in the available values for the feature, the method returns
true and nil. Otherwise it returns false and an error describing the
reason.
*/
func (f Feature) Valid(value string) (bool, error) {
	for _, av := range f.availableValues {
		if av == value {
			return true, nil
		}
	}
	return false, fmt.Errorf("feature %s got unknown value %s", f.name, value)
}

func (f Feature) String() string {
	return f.name
}
