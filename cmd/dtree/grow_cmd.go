package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/jayelm/decisiontrees/tree"
	"github.com/spf13/cobra"
)

type growCmdConfig struct {
	*growConfig
	output string
}

func growCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &growCmdConfig{growConfig: &growConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "grow",
		Short: "Grow a tree from a dataset",
		Long:  `Grow a decision tree from a training dataset to decide a certain feature.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			t, _, _, err := config.growTree()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			err = outputTree(config.output, t)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			var usedNames []string
			for _, f := range t.Features() {
				usedNames = append(usedNames, f.Name())
			}
			fmt.Printf("%d leaves, depth %d, features used: %s\n", t.Leaves(), t.Depth(), strings.Join(usedNames, ", "))
		},
	}
	config.registerFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file where the tree will be written (defaults to STDOUT)")
	return cmd
}

/*
outputTree takes a path to an output file and a tree and writes the
tree to the file, or to STDOUT when the path is empty. It returns an
error when the file cannot be created or written.
*/
func outputTree(outputPath string, t *tree.Node) error {
	var f *os.File
	if outputPath == "" {
		f = os.Stdout
	} else {
		var err error
		f, err = os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("creating output file %s: %v", outputPath, err)
		}
		defer f.Close()
	}
	_, err := fmt.Fprintln(f, t)
	if err != nil {
		return fmt.Errorf("writing tree to output: %v", err)
	}
	return nil
}
