package main

import (
	"fmt"
	"os"

	"github.com/jayelm/decisiontrees/tree"
	"github.com/spf13/cobra"
)

type rulesCmdConfig struct {
	*growConfig
	output string
}

func rulesCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &rulesCmdConfig{growConfig: &growConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Export the decision rules of a tree",
		Long:  `Grow a decision tree from a training dataset and export its decision rules, one per leaf.`,
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
			err = outputRules(config.output, t)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
		},
	}
	config.registerFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "", "path to a file where the rules will be written (defaults to STDOUT)")
	return cmd
}

func outputRules(outputPath string, t *tree.Node) error {
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
	for _, rule := range t.Rules() {
		_, err := fmt.Fprintln(f, rule)
		if err != nil {
			return fmt.Errorf("writing rules to output: %v", err)
		}
	}
	return nil
}
