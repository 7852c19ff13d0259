package inputsample

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jayelm/decisiontrees/feature"
)

type recordingRequester struct {
	requested []string
	rejected  []string
}

func (rr *recordingRequester) RequestValueFor(f feature.Feature) error {
	rr.requested = append(rr.requested, f.Name())
	return nil
}

func (rr *recordingRequester) RejectValueFor(f feature.Feature, value string) error {
	rr.rejected = append(rr.rejected, value)
	return nil
}

func testTempFeature() feature.Feature {
	return feature.New("temp", []string{"hot", "cool"})
}

func TestValueFor_RequestsAndReadsValue(t *testing.T) {
	rr := &recordingRequester{}
	temp := testTempFeature()
	s := New(strings.NewReader("hot\n"), []feature.Feature{temp}, rr, "")
	v, err := s.ValueFor(context.Background(), temp)
	if err != nil {
		t.Fatalf("obtaining value: unexpected error %v", err)
	}
	if v != "hot" {
		t.Errorf("expected value hot, got %s", v)
	}
	if len(rr.requested) != 1 || rr.requested[0] != "temp" {
		t.Errorf("expected a single request for temp, got %v", rr.requested)
	}
}

func TestValueFor_KeepsObtainedValues(t *testing.T) {
	rr := &recordingRequester{}
	temp := testTempFeature()
	s := New(strings.NewReader("hot\n"), []feature.Feature{temp}, rr, "")
	for i := 0; i < 2; i++ {
		v, err := s.ValueFor(context.Background(), temp)
		if err != nil {
			t.Fatalf("obtaining value: unexpected error %v", err)
		}
		if v != "hot" {
			t.Errorf("expected value hot, got %s", v)
		}
	}
	if len(rr.requested) != 1 {
		t.Errorf("expected the value to be requested once, got %d requests", len(rr.requested))
	}
}

func TestValueFor_RejectsInvalidValuesUntilAValidOne(t *testing.T) {
	rr := &recordingRequester{}
	temp := testTempFeature()
	s := New(strings.NewReader("warm\nhot\n"), []feature.Feature{temp}, rr, "")
	v, err := s.ValueFor(context.Background(), temp)
	if err != nil {
		t.Fatalf("obtaining value: unexpected error %v", err)
	}
	if v != "hot" {
		t.Errorf("expected value hot, got %s", v)
	}
	if len(rr.rejected) != 1 || rr.rejected[0] != "warm" {
		t.Errorf("expected warm to be rejected, got %v", rr.rejected)
	}
}

func TestValueFor_CancelValueCancelsTheRequest(t *testing.T) {
	rr := &recordingRequester{}
	temp := testTempFeature()
	s := New(strings.NewReader("q\n"), []feature.Feature{temp}, rr, "q")
	_, err := s.ValueFor(context.Background(), temp)
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestValueFor_ExhaustedReaderCancelsTheRequest(t *testing.T) {
	rr := &recordingRequester{}
	temp := testTempFeature()
	s := New(strings.NewReader(""), []feature.Feature{temp}, rr, "q")
	_, err := s.ValueFor(context.Background(), temp)
	if !errors.Is(err, ErrCanceled) {
		t.Errorf("expected ErrCanceled, got %v", err)
	}
}

func TestValueFor_UnknownFeatureFails(t *testing.T) {
	rr := &recordingRequester{}
	s := New(strings.NewReader("high\n"), []feature.Feature{testTempFeature()}, rr, "")
	_, err := s.ValueFor(context.Background(), feature.New("humidity", []string{"high", "normal"}))
	if err == nil {
		t.Errorf("expected an error for a feature the sample cannot read, got none")
	}
	if errors.Is(err, ErrCanceled) {
		t.Errorf("expected a non-cancellation error, got ErrCanceled")
	}
}
