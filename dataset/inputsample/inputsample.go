/*
Package inputsample provides an implementation of feature.Sample whose
values are read from an io.Reader as they are requested.
*/
package inputsample

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/jayelm/decisiontrees/feature"
)

// InputError represents an error obtaining a feature value from the reader
type InputError string

/*
ErrCanceled is the error returned by the ValueFor method of a sample
when the value request is canceled, either because the cancel value
was read or because the reader was exhausted. It marks a deliberate
abort rather than a failure.
*/
const ErrCanceled = InputError("value request canceled")

func (ie InputError) Error() string {
	return string(ie)
}

/*
readSample represents a sample whose feature values are retrieved
from a reader. A feature value will be requested using a
FeatureValueRequester before reading it.
*/
type readSample struct {
	obtainedValues        map[string]string
	cancelValue           string
	scanner               *bufio.Scanner
	featureValueRequester FeatureValueRequester
	features              []feature.Feature
}

/*
FeatureValueRequester represents a way to ask for
feature values and reject the given values.
*/
type FeatureValueRequester interface {
	RequestValueFor(feature.Feature) error
	RejectValueFor(feature.Feature, string) error
}

/*
New takes an io.Reader, a slice of features, a FeatureValueRequester
and a cancelValue string and returns a sample that reads its values
from the reader.

The returned sample's ValueFor method obtains the value for a feature
by requesting it with the given FeatureValueRequester and then parsing
it from the reader, so values are only requested when a decision needs
them. Each value is expected on its own line. Lines that are not valid
values for the requested feature are rejected with the
FeatureValueRequester's RejectValueFor method and further lines are
read until a valid value is found. Obtained values are kept, so the
value for a feature is requested at most once.

Reading the cancelValue string on its own line, or exhausting the
reader, cancels the request: ValueFor then returns ErrCanceled.
*/
func New(r io.Reader, features []feature.Feature, featureValueRequester FeatureValueRequester, cancelValue string) feature.Sample {
	scanner := bufio.NewScanner(r)
	return &readSample{make(map[string]string), cancelValue, scanner, featureValueRequester, features}
}

func (rs *readSample) ValueFor(_ context.Context, f feature.Feature) (string, error) {
	value, ok := rs.obtainedValues[f.Name()]
	if ok {
		return value, nil
	}
	var featureWithInfo feature.Feature
	var found bool
	for _, ff := range rs.features {
		if f.Name() == ff.Name() {
			featureWithInfo = ff
			found = true
		}
	}
	if !found {
		return "", fmt.Errorf("have no information about feature %s, do not know how to read its value", f.Name())
	}
	err := rs.featureValueRequester.RequestValueFor(featureWithInfo)
	if err != nil {
		return "", err
	}
	for rs.scanner.Scan() {
		line := rs.scanner.Text()
		if line == rs.cancelValue {
			return "", ErrCanceled
		}
		if ok, _ := featureWithInfo.Valid(line); ok {
			rs.obtainedValues[featureWithInfo.Name()] = line
			return line, nil
		}
		err = rs.featureValueRequester.RejectValueFor(featureWithInfo, line)
		if err != nil {
			return "", err
		}
	}
	err = rs.scanner.Err()
	if err != nil {
		return "", err
	}
	return "", ErrCanceled
}
