package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/textClassifier/config"
	"github.com/Noofbiz/textClassifier/logger"
)

// app carries the state shared by the subcommands of one invocation.
type app struct {
	cfgFile string
	envFile string

	cfg      *config.Config
	log      *slog.Logger
	closeLog func() error
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "textclf",
		Short: "Sentence-embedding text classifier",
		Long: `textclf encodes sentences with a frozen embedder and trains a
dropout + linear + softmax head on top.

Example usage:
  textclf train --data data/spam/spam.csv     # spam/ham run with reports
  textclf train --embedder tfidf --epochs 10
  textclf toy                                 # five-sentence full-batch run
  textclf inspect --data data/spam/spam.csv   # class counts and split sizes
  textclf config init config.yaml             # write the default config`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "YAML config file (defaults apply when missing)")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", ".env", "dotenv file with API keys")
	root.PersistentFlags().String("embedder", "", "embedder type: hashing, tfidf or remote")
	root.PersistentFlags().Int64("seed", 0, "seed for weights, dropout and batch order")
	root.PersistentFlags().Float64("dropout", 0, "input dropout rate")
	root.PersistentFlags().Float64("learning-rate", 0, "optimizer learning rate")
	root.PersistentFlags().String("loss-plot", "", "write a loss curve PNG to this path")

	root.AddCommand(newTrainCmd(a), newToyCmd(a), newInspectCmd(a), newConfigCmd(a))
	return root
}

// setup loads the env file and config, applies the shared flag overrides and
// builds the logger. Subcommand specific overrides are applied by the caller
// before validation runs.
func (a *app) setup(cmd *cobra.Command) error {
	if err := config.LoadEnv(a.envFile); err != nil {
		return err
	}
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("embedder") {
		cfg.Embedder.Type, _ = flags.GetString("embedder")
	}
	if flags.Changed("loss-plot") {
		cfg.Output.LossPlot, _ = flags.GetString("loss-plot")
	}
	config.ApplyDefaults(cfg)

	log, closer, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	log, _ = logger.WithRun(log, cmd.Name())
	log.Debug("configuration loaded", "config", a.cfgFile, "embedder", cfg.Embedder.Type)

	a.cfg, a.log, a.closeLog = cfg, log, closer
	return nil
}

func (a *app) close() {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}
