package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Noofbiz/textClassifier/batcher"
	"github.com/Noofbiz/textClassifier/datasets"
	"github.com/Noofbiz/textClassifier/embedding"
)

func newInspectCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Show class counts, split sizes and the first batch shape of a CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(cmd); err != nil {
				return err
			}
			defer a.close()
			applyTrainFlags(cmd, a.cfg)
			cfg := a.cfg
			w := cmd.OutOrStdout()

			path := cfg.Data.Path
			if path == "" {
				found, err := datasets.FindCSV(datasets.DefaultCSVPatterns)
				if err != nil {
					return err
				}
				path = found
			}
			ds, err := datasets.NewTextDataset(path, cfg.Data.TextColumn, cfg.Data.TargetColumn)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Using CSV: %s\n", path)
			fmt.Fprintf(w, "Total examples: %d\n", ds.Len())

			counts := datasets.ClassCounts(ds, ds.Encoder().Len())
			for i, c := range ds.Categories() {
				fmt.Fprintf(w, "  %d %-12s %d\n", i, c, counts[i])
			}

			train, test, err := datasets.StratifiedSplit(ds.Labels(), cfg.Data.TestFraction, cfg.Data.SplitSeed)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Split: %d train, %d test\n", len(train), len(test))

			n := min(cfg.Training.BatchSize, len(train))
			texts, labels, err := ds.Subset(train[:n])
			if err != nil {
				return err
			}
			emb, err := embedding.New(cfg.Embedder)
			if err != nil {
				return err
			}
			if f, ok := emb.(embedding.Fitter); ok {
				if err := f.Fit(texts); err != nil {
					return err
				}
			}
			vecs, err := embedding.Encode(cmd.Context(), emb, texts)
			if err != nil {
				return err
			}
			b, err := batcher.New(vecs, labels, batcher.WithBatchSize(n), batcher.WithSeed(cfg.Training.Seed))
			if err != nil {
				return err
			}
			batch, _ := b.Next()
			inT, laT, err := batch.Tensors()
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "First batch tensors (%s): input=%v label=%v\n",
				emb.Name(), inT.Shape().Dimensions, laT.Shape().Dimensions)
			return nil
		},
	}
	cmd.Flags().String("data", "", "labelled CSV (default: search data/spam/*.csv)")
	cmd.Flags().Int("batch-size", 0, "rows in the sample batch")
	return cmd
}
