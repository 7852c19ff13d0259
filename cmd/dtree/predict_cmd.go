package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jayelm/decisiontrees/dataset/inputsample"
	"github.com/jayelm/decisiontrees/feature"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*growConfig
	cancelValue string
}

/*
stdoutFeatureValueRequester implements the
inputsample.FeatureValueRequester interface writing the requests and
rejections on STDOUT. Its string value is the value the user may input
to cancel the prediction, which is included in every message.
*/
type stdoutFeatureValueRequester string

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{growConfig: &growConfig{rootCmdConfig: rootConfig}}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Decide a value for a sample answering questions",
		Long:  `Grow a decision tree from a training dataset and use it to decide the label feature for a sample whose values are answered interactively on STDIN.`,
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
			sample := inputsample.New(os.Stdin, features, stdoutFeatureValueRequester(config.cancelValue), config.cancelValue)
			decision, err := t.Decide(config.Context(), sample)
			if err != nil {
				if errors.Is(err, inputsample.ErrCanceled) {
					config.Logf("Canceled")
					return
				}
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			fmt.Printf("%s: %s\n", label.Name(), decision)
		},
	}
	config.registerFlags(cmd)
	cmd.PersistentFlags().StringVarP(&(config.cancelValue), "cancel-value", "c", "?", "value to input to cancel the prediction")
	return cmd
}

func (sfvr stdoutFeatureValueRequester) RequestValueFor(f feature.Feature) error {
	_, err := fmt.Printf("Please provide the sample's %s:\n(valid values are %v, or %s to cancel)\n", f.Name(), f.AvailableValues(), string(sfvr))
	return err
}

func (sfvr stdoutFeatureValueRequester) RejectValueFor(f feature.Feature, value string) error {
	_, err := fmt.Printf("%s is not a valid value for the sample's %s. Please provide one of %v, or %s to cancel.\n", value, f.Name(), f.AvailableValues(), string(sfvr))
	return err
}
