package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
)

/*
Writer is an interface for a dataset to which samples
can be written to.
*/
type Writer interface {
	// Write will attempt to write the given samples and will return
	// the actually written number of samples and an error (if not
	// all samples could be written)
	Write(context.Context, []feature.Sample) (int, error)
	// Count returns the total number of samples written
	// to the writer
	Count() int
	// Flush ensures any pending write operations finish
	// before returning. It returns an error if that cannot
	// be ensured.
	Flush() error
}

/*
DatasetGenerator is a function that takes a slice of samples
and generates a dataset with them.
*/
type DatasetGenerator func([]feature.Sample) dataset.Dataset

type csvWriter struct {
	count    int
	features []feature.Feature
	w        *csv.Writer
}

/*
ReadDataset takes an io.Reader for a CSV stream, a slice of features and a
DatasetGenerator and returns a dataset built with the DatasetGenerator and
the samples parsed from the reader or an error.

The header or first row of the CSV content is expected to consist of the
names of features in the given slice. The rest of the rows should consist
of valid values for those features.
*/
func ReadDataset(reader io.Reader, features []feature.Feature, dg DatasetGenerator) (dataset.Dataset, error) {
	samples := []feature.Sample{}
	err := ReadDatasetBySample(reader, features, func(_ int, s feature.Sample) (bool, error) {
		samples = append(samples, s)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return dg(samples), nil
}

/*
ReadDatasetBySample takes an io.Reader for a CSV stream, a slice of features
and a lambda function on an integer and a feature.Sample that returns a
boolean value. It parses the samples from the reader and for each it calls
the lambda function with the sample and its index as parameters. If the
lambda function returns true, it will continue processing the next sample,
otherwise it will stop. An error is returned if something goes wrong when
reading the stream or parsing a sample.
*/
func ReadDatasetBySample(reader io.Reader, features []feature.Feature, lambda func(int, feature.Sample) (bool, error)) error {
	featuresByName := featureSliceToMap(features)
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %v", err)
	}
	featureOrder, err := parseFeaturesFromCSVHeader(header, featuresByName)
	if err != nil {
		return err
	}
	for l := 2; ; l++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("reading body: %v", err)
		}
		sample, err := parseSampleFromCSVRow(row, featureOrder)
		if err != nil {
			return fmt.Errorf("parsing line %d: %v", l, err)
		}
		ok, err := lambda(l-2, sample)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
	}
	return nil
}

/*
ReadDatasetFromFilePath takes a filepath string, a slice of features and a
DatasetGenerator, opens the file the filepath points to (os.Stdin if the
filepath is "") and uses ReadDataset to return a dataset read from it or an
error.
*/
func ReadDatasetFromFilePath(filepath string, features []feature.Feature, dg DatasetGenerator) (dataset.Dataset, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, fmt.Errorf("reading dataset: %v", err)
		}
	}
	defer f.Close()
	ds, err := ReadDataset(f, features, dg)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return ds, err
}

/*
ReadDatasetBySampleFromFilePath takes a filepath string for a CSV stream, a
slice of features and a lambda function on an integer and a feature.Sample
that returns a boolean value. It opens the file for reading (os.Stdin if the
filepath is "") and processes its samples with ReadDatasetBySample and the
given lambda function.
*/
func ReadDatasetBySampleFromFilePath(filepath string, features []feature.Feature, lambda func(int, feature.Sample) (bool, error)) error {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return fmt.Errorf("reading dataset: %v", err)
		}
	}
	defer f.Close()
	return ReadDatasetBySample(f, features, lambda)
}

/*
ReadRawDataset takes an io.Reader for a CSV stream and a DatasetGenerator
and returns a dataset built with the DatasetGenerator, the features derived
from the stream itself and an error.

The header or first row of the CSV content gives the names of the features.
The available values for each feature are the values found on its column,
in the order they first appear going down the column.
*/
func ReadRawDataset(reader io.Reader, dg DatasetGenerator) (dataset.Dataset, []feature.Feature, error) {
	r := csv.NewReader(reader)
	header, err := r.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading header: %v", err)
	}
	values := make([][]string, len(header))
	seen := make([]map[string]bool, len(header))
	for i := range seen {
		seen[i] = make(map[string]bool)
	}
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("reading body: %v", err)
		}
		for i, v := range row {
			if !seen[i][v] {
				seen[i][v] = true
				values[i] = append(values[i], v)
			}
		}
		rows = append(rows, row)
	}
	features := make([]feature.Feature, len(header))
	for i, name := range header {
		features[i] = feature.New(name, values[i])
	}
	samples := make([]feature.Sample, 0, len(rows))
	for _, row := range rows {
		featureValues := make(map[string]string, len(header))
		for i, f := range features {
			featureValues[f.Name()] = row[i]
		}
		samples = append(samples, dataset.NewSample(featureValues))
	}
	return dg(samples), features, nil
}

/*
ReadRawDatasetFromFilePath takes a filepath string and a DatasetGenerator,
opens the file the filepath points to (os.Stdin if the filepath is "") and
uses ReadRawDataset to return a dataset and the features derived from it or
an error.
*/
func ReadRawDatasetFromFilePath(filepath string, dg DatasetGenerator) (dataset.Dataset, []feature.Feature, error) {
	var f *os.File
	var err error
	if filepath == "" {
		f = os.Stdin
	} else {
		f, err = os.Open(filepath)
		if err != nil {
			return nil, nil, fmt.Errorf("reading dataset: %v", err)
		}
	}
	defer f.Close()
	ds, features, err := ReadRawDataset(f, dg)
	if err != nil {
		err = fmt.Errorf("parsing CSV file %s: %v", filepath, err)
	}
	return ds, features, err
}

/*
NewWriter takes an io.Writer and a slice of feature.Features and
returns a Writer that will write any samples on the io.Writer.
*/
func NewWriter(writer io.Writer, features []feature.Feature) (Writer, error) {
	w := csv.NewWriter(writer)
	record := make([]string, len(features))
	for i, f := range features {
		record[i] = f.Name()
	}
	err := w.Write(record)
	if err != nil {
		return nil, fmt.Errorf("writing CSV header: %v", err)
	}
	return &csvWriter{features: features, w: w}, nil
}

/*
WriteDataset takes a context.Context, an io.Writer, a dataset and a slice
of features and dumps the dataset to the writer in CSV format, specifying
only the features in the given slice for the samples. It returns an error
if something went wrong when writing to the writer or codifying the
samples.
*/
func WriteDataset(ctx context.Context, writer io.Writer, s dataset.Dataset, features []feature.Feature) error {
	cw, err := NewWriter(writer, features)
	if err != nil {
		return err
	}
	samples, err := s.Samples(ctx)
	if err != nil {
		return err
	}
	_, err = cw.Write(ctx, samples)
	if err != nil {
		return err
	}
	return cw.Flush()
}

func parseFeaturesFromCSVHeader(header []string, features map[string]feature.Feature) ([]feature.Feature, error) {
	featureOrder := []feature.Feature{}
	for _, name := range header {
		f, ok := features[name]
		if !ok {
			return nil, fmt.Errorf("parsing header: reference to unknown feature %s", name)
		}
		featureOrder = append(featureOrder, f)
	}
	return featureOrder, nil
}

func parseSampleFromCSVRow(row []string, featureOrder []feature.Feature) (feature.Sample, error) {
	featureValues := make(map[string]string)
	for i, f := range featureOrder {
		v := row[i]
		if ok, err := f.Valid(v); !ok {
			return nil, fmt.Errorf("invalid value %s for feature %s: %v", v, f.Name(), err)
		}
		featureValues[f.Name()] = v
	}
	return dataset.NewSample(featureValues), nil
}

func (cw *csvWriter) Count() int {
	return cw.count
}

func (cw *csvWriter) Write(ctx context.Context, samples []feature.Sample) (int, error) {
	for n := 0; n < len(samples); n++ {
		err := cw.writeSample(ctx, samples[n])
		if err != nil {
			return n, err
		}
	}
	return len(samples), nil
}

func (cw *csvWriter) writeSample(ctx context.Context, sample feature.Sample) error {
	record := make([]string, len(cw.features))
	for j, f := range cw.features {
		v, err := sample.ValueFor(ctx, f)
		if err != nil {
			return err
		}
		record[j] = v
	}
	err := cw.w.Write(record)
	if err != nil {
		return fmt.Errorf("writing CSV row for sample %d: %v", cw.count+1, err)
	}
	cw.count++
	return nil
}

func (cw *csvWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}

func featureSliceToMap(features []feature.Feature) map[string]feature.Feature {
	result := make(map[string]feature.Feature)
	for _, f := range features {
		result[f.Name()] = f
	}
	return result
}
