package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/jayelm/decisiontrees/dataset/csv"
	"github.com/jayelm/decisiontrees/feature"
	"github.com/jayelm/decisiontrees/feature/yaml"
	"github.com/spf13/cobra"
)

type splitCmdConfig struct {
	*setCmdConfig
	splitOutput      string
	splitProbability int
}

func splitCmd(setConfig *setCmdConfig) *cobra.Command {
	config := &splitCmdConfig{setCmdConfig: setConfig}
	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split a dataset into two datasets",
		Long:  `Split an input dataset into an output dataset and a split dataset, assigning samples at random according to a probability.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			config.Context()
			config.Logf("Reading features from metadata at %s...", config.metadataInput)
			features, err := yaml.ReadFeaturesFromFile(config.metadataInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			config.Logf("Features from metadata read")

			var outputFile *os.File
			if config.setOutput != "" {
				config.Logf("Creating %s to dump output dataset...", config.setOutput)
				outputFile, err = os.Create(config.setOutput)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
				defer outputFile.Close()
			} else {
				config.Logf("Using STDOUT to dump output dataset...")
				outputFile = os.Stdout
			}
			config.Logf("Preparing to write output dataset...")
			output, err := csv.NewWriter(outputFile, features)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(4)
			}

			config.Logf("Creating %s to dump split dataset...", config.splitOutput)
			splitOutputFile, err := os.Create(config.splitOutput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(5)
			}
			defer splitOutputFile.Close()
			config.Logf("Preparing to write split dataset...")
			splitOutput, err := csv.NewWriter(splitOutputFile, features)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(6)
			}

			inputStream, errStream, err := config.InputStream(features)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(7)
			}

			randomizer := rand.New(rand.NewSource(time.Now().UnixNano()))
			for s := range inputStream {
				if (100 * randomizer.Float32()) > float32(config.splitProbability) {
					_, err = output.Write(config.Context(), []feature.Sample{s})
				} else {
					_, err = splitOutput.Write(config.Context(), []feature.Sample{s})
				}
				if err != nil {
					cancel := config.ContextCancelFunc()
					cancel()
					break
				}
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(8)
			}
			err = <-errStream
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(9)
			}
			config.Logf("Flushing output dataset...")
			err = output.Flush()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(10)
			}
			config.Logf("Flushing split dataset...")
			err = splitOutput.Flush()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(11)
			}
			config.Logf("Done")
			config.Logf("Input dataset with %d samples was split into datasets with %d and %d samples", output.Count()+splitOutput.Count(), output.Count(), splitOutput.Count())
		},
	}
	cmd.PersistentFlags().IntVarP(&(config.splitProbability), "split-probability", "p", 20, "probability as percent integer that a sample of the input dataset will be assigned to the split dataset")
	cmd.PersistentFlags().StringVarP(&(config.splitOutput), "split-output", "s", "", "path to a CSV file to dump the split dataset (required)")
	return cmd
}

func (scc *splitCmdConfig) Validate() error {
	err := scc.setCmdConfig.Validate()
	if err != nil {
		return err
	}
	if scc.splitOutput == "" {
		return fmt.Errorf("required split-output flag was not set")
	}
	if scc.splitProbability <= 0 || scc.splitProbability > 100 {
		return fmt.Errorf("split-probability flag was set to an invalid value: it must be set to an integer between 1 and 100")
	}
	if scc.setOutput != "" && !csvPath(scc.setOutput) {
		return fmt.Errorf("split can only dump the output dataset to a CSV file or STDOUT")
	}
	if !csvPath(scc.splitOutput) {
		return fmt.Errorf("split can only dump the split dataset to a CSV file")
	}
	return nil
}
