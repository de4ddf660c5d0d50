package main

import (
	"github.com/spf13/cobra"

	"github.com/Noofbiz/textClassifier/config"
	"github.com/Noofbiz/textClassifier/trainer"
)

func newToyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toy",
		Short: "Train on five inline sentences and predict four more",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			applyToyFlags(cmd, a.cfg)

			_, err := trainer.RunToy(cmd.Context(), a.cfg, cmd.OutOrStdout(), a.log)
			return err
		},
	}
	cmd.Flags().Int("steps", 0, "number of full-batch steps")
	return cmd
}

func applyToyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Toy.Steps, _ = flags.GetInt("steps")
	}
	if flags.Changed("seed") {
		cfg.Toy.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("dropout") {
		cfg.Toy.Dropout, _ = flags.GetFloat64("dropout")
	}
	if flags.Changed("learning-rate") {
		cfg.Toy.LearningRate, _ = flags.GetFloat64("learning-rate")
	}
}
