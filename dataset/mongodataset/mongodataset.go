/*
Package mongodataset provides an implementation of dataset.Dataset
that uses a MongoDB database as backend.

Samples are stored as documents of a samples collection on the
session's default database, with one field per feature holding the
feature value for the sample.
*/
package mongodataset

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/feature"
	mgo "gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

/*
Dataset is a dataset.Dataset to which samples can also be
written and from which samples can be streamed.
*/
type Dataset interface {
	dataset.Dataset
	Write(context.Context, []feature.Sample) (int, error)
	Read(context.Context) (<-chan feature.Sample, <-chan error)
}

type mongoDataset struct {
	session    *mgo.Session
	features   []feature.Feature
	criteria   []feature.Criterion
	mongoQuery bson.M
	entropy    map[string]float64
}

const samplesCollectionName = "samples"

/*
Open takes a context.Context, a MongoDB session and a slice of
feature.Feature and returns a Dataset that works on the samples
collection of the session's default database, or an error if the
collection cannot be indexed for the given features.
*/
func Open(ctx context.Context, session *mgo.Session, features []feature.Feature) (Dataset, error) {
	mds := &mongoDataset{session: session, features: features, entropy: make(map[string]float64)}
	err := mds.ensureIndexes()
	if err != nil {
		return nil, err
	}
	return mds, nil
}

func (mds *mongoDataset) Entropy(ctx context.Context, f feature.Feature) (float64, error) {
	if result, ok := mds.entropy[f.Name()]; ok {
		return result, nil
	}
	featureValueCounts, err := mds.CountFeatureValues(ctx, f)
	if err != nil {
		return 0.0, err
	}
	if len(featureValueCounts) == 0 {
		return 0.0, fmt.Errorf("entropy for feature %s is undefined on an empty dataset", f.Name())
	}
	var result, count float64
	for _, c := range featureValueCounts {
		count += float64(c)
	}
	for _, c := range featureValueCounts {
		probValue := float64(c) / count
		result -= probValue * math.Log2(probValue)
	}
	mds.entropy[f.Name()] = result
	return result, nil
}

func (mds *mongoDataset) SubsetWith(ctx context.Context, fc feature.Criterion) (dataset.Dataset, error) {
	criteria := append([]feature.Criterion{fc}, mds.criteria...)
	return &mongoDataset{
		session:  mds.session,
		features: mds.features,
		criteria: criteria,
		entropy:  make(map[string]float64),
	}, nil
}

/*
FeatureValues takes a context.Context and a feature.Feature and returns
the values the feature takes on the dataset, in the order in which they
first appear on the samples collection, or an error if they cannot be
aggregated.
*/
func (mds *mongoDataset) FeatureValues(ctx context.Context, f feature.Feature) ([]string, error) {
	iter := mds.samplesCollection().Pipe([]bson.M{
		{"$match": mds.matchQuery()},
		{"$group": bson.M{"_id": fmt.Sprintf("$%s", f.Name()), "first": bson.M{"$min": "$_id"}}},
		{"$sort": bson.M{"first": 1}},
	}).Iter()
	defer iter.Close()
	var doc bson.M
	var result []string
	for iter.Next(&doc) {
		v, ok := doc["_id"].(string)
		if !ok {
			return nil, fmt.Errorf("listing values for feature %s: mongo aggregation query returned a %T instead of a string as value", f.Name(), doc["_id"])
		}
		result = append(result, v)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (mds *mongoDataset) CountFeatureValues(ctx context.Context, f feature.Feature) (map[string]int, error) {
	iter := mds.samplesCollection().Pipe([]bson.M{
		{"$match": mds.matchQuery()},
		{"$group": bson.M{"_id": fmt.Sprintf("$%s", f.Name()), "count": bson.M{"$sum": 1}}},
	}).Iter()
	defer iter.Close()
	var doc bson.M
	result := make(map[string]int)
	for iter.Next(&doc) {
		count, ok := doc["count"].(int)
		if !ok {
			return nil, fmt.Errorf("counting values for feature %s: mongo aggregation query returned a %T instead of an int as count", f.Name(), doc["count"])
		}
		value, ok := doc["_id"].(string)
		if !ok {
			return nil, fmt.Errorf("counting values for feature %s: mongo aggregation query returned a %T instead of a string as value", f.Name(), doc["_id"])
		}
		result[value] = count
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (mds *mongoDataset) Samples(ctx context.Context) ([]feature.Sample, error) {
	var samples []feature.Sample
	count, err := mds.Count(ctx)
	if err == nil {
		samples = make([]feature.Sample, 0, count)
	}
	sampleStream, errStream := mds.Read(ctx)
	for sample := range sampleStream {
		samples = append(samples, sample)
	}
	err = <-errStream
	return samples, err
}

func (mds *mongoDataset) Count(context.Context) (int, error) {
	return mds.query().Count()
}

func (mds *mongoDataset) Write(ctx context.Context, samples []feature.Sample) (int, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	docs := make([]interface{}, 0, len(samples))
	for _, s := range samples {
		doc := make(bson.M)
		for _, f := range mds.features {
			value, err := s.ValueFor(ctx, f)
			if err != nil {
				return 0, err
			}
			doc[f.Name()] = value
		}
		docs = append(docs, doc)
	}
	err := mds.samplesCollection().Insert(docs...)
	if err != nil {
		return 0, err
	}
	return len(samples), nil
}

func (mds *mongoDataset) Read(ctx context.Context) (<-chan feature.Sample, <-chan error) {
	samples := make(chan feature.Sample)
	errs := make(chan error, 1)
	go func() {
		var doc bson.M
		var err error
		iter := mds.query().Iter()
		defer iter.Close()
	loop:
		for iter.Next(&doc) {
			s, serr := mds.newSample(doc)
			if serr != nil {
				err = serr
				break
			}
			select {
			case <-ctx.Done():
				err = ctx.Err()
				break loop
			case samples <- s:
			}
		}
		if err == nil {
			err = iter.Err()
		}
		if err != nil {
			errs <- err
		}
		close(errs)
		close(samples)
	}()
	return samples, errs
}

func (mds *mongoDataset) newSample(doc bson.M) (feature.Sample, error) {
	featureValues := make(map[string]string)
	for _, f := range mds.features {
		v, ok := doc[f.Name()]
		if !ok {
			return nil, fmt.Errorf("sample document %v has no value for feature %s", doc["_id"], f.Name())
		}
		value, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("sample document %v has a %T instead of a string as value for feature %s", doc["_id"], v, f.Name())
		}
		featureValues[f.Name()] = value
	}
	return dataset.NewSample(featureValues), nil
}

func (mds *mongoDataset) ensureIndexes() error {
	for _, f := range mds.features {
		fName := f.Name()
		if fName == "_id" {
			return fmt.Errorf("invalid feature name %q: reserved collection field", "_id")
		}
		if strings.ContainsAny(fName, ".$") {
			return fmt.Errorf("invalid feature name %q: contains reserved characters %q or %q", fName, ".", "$")
		}
		index := mgo.Index{
			Key:        []string{fName},
			Background: true,
			Sparse:     true,
		}
		err := mds.samplesCollection().EnsureIndex(index)
		if err != nil {
			return err
		}
	}
	return nil
}

func (mds *mongoDataset) samplesCollection() *mgo.Collection {
	return mds.session.DB("").C(samplesCollectionName)
}

func (mds *mongoDataset) matchQuery() bson.M {
	if mds.mongoQuery == nil {
		mds.mongoQuery = make(bson.M)
		for _, fc := range mds.criteria {
			mds.mongoQuery[fc.Feature().Name()] = fc.Value()
		}
	}
	return mds.mongoQuery
}

func (mds *mongoDataset) query() *mgo.Query {
	return mds.samplesCollection().Find(mds.matchQuery())
}
