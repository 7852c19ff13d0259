package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

type testCmdConfig struct {
	*growConfig
	testInput string
}

func testCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &testCmdConfig{growConfig: &growConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Test a tree against a dataset",
		Long:  `Grow a decision tree from a training dataset and measure its success rate deciding the samples of a testing dataset.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t, features, label, err := config.growTree()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			testingDS, err := openDataset(config.Context(), config.rootCmdConfig, config.testInput, features, config.datasetGenerator())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			count, err := testingDS.Count(config.Context())
			if err != nil {
				fmt.Fprintf(os.Stderr, "counting testing dataset samples: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Testing tree against a dataset with %d samples...", count)
			successRate, unseen, err := t.Test(config.Context(), testingDS, label)
			if err != nil {
				fmt.Fprintf(os.Stderr, "testing tree: %v\n", err)
				os.Exit(5)
			}
			config.Logf("Done")
			fmt.Printf("%f success rate, failed to decide %d samples on values never seen while growing\n", successRate, unseen)
		},
	}
	config.registerFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.testInput), "test-input", "t", "", "path to a CSV (.csv) or SQLite3 (.db) file, or a PostgreSQL, MongoDB or Redis URL with the testing dataset (required)")
	return cmd
}

func (tcc *testCmdConfig) Validate() error {
	if tcc.testInput == "" {
		return fmt.Errorf("required test-input flag was not set")
	}
	return tcc.growConfig.Validate()
}
