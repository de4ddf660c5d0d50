package main

import (
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Noofbiz/textClassifier/config"
	"github.com/Noofbiz/textClassifier/trainer"
)

func newTrainCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on a labelled CSV and report before and after training",
		Long: `Load a CSV with message/category (or text/target) columns, split it
stratified into train and test, encode both sides, and train the classifier
head with mini-batches. Prints the classification report before and after
training and the confusion matrix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			applyTrainFlags(cmd, a.cfg)

			res, err := trainer.RunCSV(cmd.Context(), a.cfg, cmd.OutOrStdout(), a.log)
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().String("data", "", "labelled CSV (default: search data/spam/*.csv)")
	cmd.Flags().Int("epochs", 0, "number of epochs")
	cmd.Flags().Int("batch-size", 0, "mini-batch size")
	cmd.Flags().String("optimizer", "", "adam or sgd")
	return cmd
}

func applyTrainFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.Data.Path, _ = flags.GetString("data")
	}
	if flags.Changed("epochs") {
		cfg.Training.Epochs, _ = flags.GetInt("epochs")
	}
	if flags.Changed("batch-size") {
		cfg.Training.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("optimizer") {
		cfg.Training.Optimizer, _ = flags.GetString("optimizer")
	}
	if flags.Changed("seed") {
		cfg.Training.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("dropout") {
		cfg.Training.Dropout, _ = flags.GetFloat64("dropout")
	}
	if flags.Changed("learning-rate") {
		cfg.Training.LearningRate, _ = flags.GetFloat64("learning-rate")
	}
}

// printSummary writes a one line accuracy comparison, green when training
// helped and red otherwise. Color is dropped when w is not a terminal.
func printSummary(w io.Writer, res *trainer.CSVResult) {
	before, after := res.Before.Report.Accuracy, res.After.Report.Accuracy
	c := color.New(color.FgGreen, color.Bold)
	if after < before {
		c = color.New(color.FgRed, color.Bold)
	}
	c.Fprintf(w, "Accuracy: %.4f -> %.4f (%d train / %d test rows)\n", before, after, res.TrainRows, res.TestRows)
}
