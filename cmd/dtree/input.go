package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/jayelm/decisiontrees"
	"github.com/jayelm/decisiontrees/dataset"
	"github.com/jayelm/decisiontrees/dataset/csv"
	"github.com/jayelm/decisiontrees/dataset/mongodataset"
	"github.com/jayelm/decisiontrees/dataset/redisdataset"
	"github.com/jayelm/decisiontrees/dataset/sqldataset"
	"github.com/jayelm/decisiontrees/dataset/sqldataset/pgadapter"
	"github.com/jayelm/decisiontrees/dataset/sqldataset/sqlite3adapter"
	"github.com/jayelm/decisiontrees/feature"
	"github.com/jayelm/decisiontrees/feature/yaml"
	"github.com/jayelm/decisiontrees/tree"
	"github.com/spf13/cobra"
	mgo "gopkg.in/mgo.v2"
	redis "gopkg.in/redis.v5"
)

// Prefix for the keys a redis-backed dataset stores its samples under.
const redisDatasetPrefix = "dataset"

/*
growConfig gathers the flags shared by the commands that grow a tree
from a training dataset and implements the growing pipeline itself:
reading or deriving the features, opening the training dataset on any
of the supported backends and running the grower over it.
*/
type growConfig struct {
	*rootCmdConfig
	dataInput       string
	metadataInput   string
	labelFeature    string
	strategyName    string
	memoryIntensive bool
	cpuIntensive    bool
	ctx             context.Context
	cancelFunc      context.CancelFunc
}

func (gc *growConfig) registerFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&(gc.dataInput), "input", "i", "", "path to an input CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL, MongoDB or Redis URL with the training dataset (defaults to STDIN, interpreted as CSV)")
	cmd.PersistentFlags().StringVarP(&(gc.metadataInput), "metadata", "m", "", "path to a YML file with metadata describing the features available on the input dataset (defaults to deriving them from the input when it is CSV)")
	cmd.PersistentFlags().StringVarP(&(gc.labelFeature), "label", "l", "", "name of the feature the grown tree will decide (defaults to the last feature on the metadata)")
	cmd.PersistentFlags().StringVarP(&(gc.strategyName), "strategy", "s", "id3", "strategy to select the feature each node splits on, one of: id3, factorial-analysis")
	cmd.PersistentFlags().BoolVar(&(gc.memoryIntensive), "memory-intensive", false, "force the use of memory-intensive subsetting to decrease time at the cost of increasing memory use")
	cmd.PersistentFlags().BoolVar(&(gc.cpuIntensive), "cpu-intensive", false, "force the use of cpu-intensive subsetting to decrease memory use at the cost of increasing time")
}

func (gc *growConfig) Validate() error {
	if gc.metadataInput == "" && !gc.csvInput() {
		return fmt.Errorf("required metadata flag was not set")
	}
	if gc.cpuIntensive && gc.memoryIntensive {
		return fmt.Errorf("cannot set both memory-intensive and cpu-intensive flags at the same time")
	}
	_, err := growStrategy(gc.strategyName)
	return err
}

func (gc *growConfig) csvInput() bool {
	return gc.dataInput == "" || csvPath(gc.dataInput)
}

/*
growTree reads or derives the features, opens the training dataset and
grows a tree from it, returning the tree, the features and the label
feature the tree decides, or an error.
*/
func (gc *growConfig) growTree() (*tree.Node, []feature.Feature, feature.Feature, error) {
	ds, features, err := gc.trainingDataset()
	if err != nil {
		return nil, nil, feature.Feature{}, err
	}
	label, err := labelFeature(features, gc.labelFeature)
	if err != nil {
		return nil, nil, feature.Feature{}, err
	}
	strategy, err := growStrategy(gc.strategyName)
	if err != nil {
		return nil, nil, feature.Feature{}, err
	}
	count, err := ds.Count(gc.Context())
	if err != nil {
		return nil, nil, feature.Feature{}, fmt.Errorf("counting training dataset samples: %v", err)
	}
	gc.Logf("Growing tree from a dataset with %d samples and %d features to decide %s ...", count, len(features)-1, label.Name())
	grower := &decisiontrees.Grower{Features: features, Label: label, Strategy: strategy}
	t, err := grower.Grow(gc.Context(), ds)
	if err != nil {
		return nil, nil, feature.Feature{}, fmt.Errorf("growing the tree: %v", err)
	}
	gc.Logf("Done")
	return t, features, label, nil
}

func (gc *growConfig) trainingDataset() (dataset.Dataset, []feature.Feature, error) {
	if gc.metadataInput == "" {
		if gc.dataInput == "" {
			gc.Logf("Reading training dataset from STDIN and deriving its features...")
		} else {
			gc.Logf("Opening %s to read the training dataset and derive its features...", gc.dataInput)
		}
		return csv.ReadRawDatasetFromFilePath(gc.dataInput, gc.datasetGenerator())
	}
	gc.Logf("Reading features from metadata at %s...", gc.metadataInput)
	features, err := yaml.ReadFeaturesFromFile(gc.metadataInput)
	if err != nil {
		return nil, nil, err
	}
	gc.Logf("Features from metadata read")
	ds, err := openDataset(gc.Context(), gc.rootCmdConfig, gc.dataInput, features, gc.datasetGenerator())
	if err != nil {
		return nil, nil, err
	}
	return ds, features, nil
}

func (gc *growConfig) datasetGenerator() csv.DatasetGenerator {
	if gc.memoryIntensive {
		return csv.DatasetGenerator(dataset.NewMemoryIntensive)
	}
	if gc.cpuIntensive {
		return csv.DatasetGenerator(dataset.NewCPUIntensive)
	}
	return csv.DatasetGenerator(dataset.New)
}

func (gc *growConfig) Context() context.Context {
	gc.setContextAndCancelFunc()
	return gc.ctx
}

func (gc *growConfig) ContextCancelFunc() context.CancelFunc {
	gc.setContextAndCancelFunc()
	return gc.cancelFunc
}

func (gc *growConfig) setContextAndCancelFunc() {
	if gc.ctx == nil {
		gc.ctx, gc.cancelFunc = context.WithCancel(context.Background())
	}
}

/*
openDataset takes a context.Context, the root command config, an input
path or URL, a slice of feature.Feature and a csv.DatasetGenerator and
returns a dataset open on the backend the input routes to: a CSV file
or STDIN when the input is empty, an SQLite3 database for .db files, or
PostgreSQL, MongoDB or redis databases for inputs with their URL
schemes.
*/
func openDataset(ctx context.Context, rcc *rootCmdConfig, input string, features []feature.Feature, dg csv.DatasetGenerator) (dataset.Dataset, error) {
	if input == "" {
		rcc.Logf("Reading dataset from STDIN...")
		return csv.ReadDataset(os.Stdin, features, dg)
	}
	if strings.HasPrefix(input, "postgresql://") {
		rcc.Logf("Creating PostgreSQL adapter for url %s...", input)
		adapter, err := pgadapter.New(input)
		if err != nil {
			return nil, err
		}
		rcc.Logf("Opening dataset over PostgreSQL adapter for url %s...", input)
		return sqldataset.Open(ctx, adapter, features)
	}
	if strings.HasSuffix(input, ".db") {
		rcc.Logf("Creating SQLite3 adapter for file %s...", input)
		adapter, err := sqlite3adapter.New(input)
		if err != nil {
			return nil, err
		}
		rcc.Logf("Opening dataset over SQLite3 adapter for file %s...", input)
		return sqldataset.Open(ctx, adapter, features)
	}
	if strings.HasPrefix(input, "mongodb://") {
		rcc.Logf("Connecting to MongoDB at %s...", input)
		session, err := mgo.Dial(input)
		if err != nil {
			return nil, fmt.Errorf("connecting to MongoDB at %s: %v", input, err)
		}
		rcc.Logf("Opening dataset over MongoDB session for url %s...", input)
		return mongodataset.Open(ctx, session, features)
	}
	if strings.HasPrefix(input, "redis://") {
		rcc.Logf("Connecting to redis at %s...", input)
		rc, err := redisClient(input)
		if err != nil {
			return nil, err
		}
		rcc.Logf("Opening dataset over redis client for url %s...", input)
		return redisdataset.Open(ctx, rc, redisDatasetPrefix, features)
	}
	rcc.Logf("Opening %s to read dataset...", input)
	return csv.ReadDatasetFromFilePath(input, features, dg)
}

func csvPath(input string) bool {
	return !(strings.HasPrefix(input, "postgresql://") ||
		strings.HasPrefix(input, "mongodb://") ||
		strings.HasPrefix(input, "redis://") ||
		strings.HasSuffix(input, ".db"))
}

func labelFeature(features []feature.Feature, name string) (feature.Feature, error) {
	if name == "" {
		if len(features) == 0 {
			return feature.Feature{}, fmt.Errorf("cannot default the label feature: no features are available")
		}
		return features[len(features)-1], nil
	}
	for _, f := range features {
		if f.Name() == name {
			return f, nil
		}
	}
	return feature.Feature{}, fmt.Errorf("label feature '%s' is not defined", name)
}

func growStrategy(name string) (decisiontrees.Strategy, error) {
	switch name {
	case "id3":
		return decisiontrees.NewID3Strategy(), nil
	case "factorial-analysis":
		return decisiontrees.NewFactorialAnalysisStrategy(), nil
	}
	return nil, fmt.Errorf("unknown strategy %s", name)
}

// The redis.v5 client takes no connection URLs, so the redis:// inputs
// are parsed here into client options.
func redisClient(redisURL string) (*redis.Client, error) {
	u, err := url.Parse(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL %s: %v", redisURL, err)
	}
	options := &redis.Options{Addr: u.Host}
	if u.User != nil {
		if password, ok := u.User.Password(); ok {
			options.Password = password
		}
	}
	if len(u.Path) > 1 {
		db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/"))
		if err != nil {
			return nil, fmt.Errorf("parsing redis URL %s: invalid database number %s", redisURL, strings.TrimPrefix(u.Path, "/"))
		}
		options.DB = db
	}
	return redis.NewClient(options), nil
}
