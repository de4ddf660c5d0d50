package trainer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/Noofbiz/textClassifier/batcher"
	"github.com/Noofbiz/textClassifier/classifier"
	"github.com/Noofbiz/textClassifier/config"
	"github.com/Noofbiz/textClassifier/datasets"
	"github.com/Noofbiz/textClassifier/embedding"
	"github.com/Noofbiz/textClassifier/evaluate"
	"github.com/Noofbiz/textClassifier/logger"
	"github.com/Noofbiz/textClassifier/plots"
)

// RunOption adjusts RunCSV and RunToy.
type RunOption func(*runOptions)

type runOptions struct {
	embedder embedding.Embedder
}

// WithEmbedder replaces the embedder that would be built from the config.
func WithEmbedder(e embedding.Embedder) RunOption {
	return func(o *runOptions) { o.embedder = e }
}

// CSVResult is the outcome of RunCSV.
type CSVResult struct {
	DataPath     string
	Classes      []string
	TrainRows    int
	TestRows     int
	EncodingTime time.Duration
	Before       *evaluate.Result
	After        *evaluate.Result
	History      *History
}

// ToyResult is the outcome of RunToy.
type ToyResult struct {
	Losses    []float64
	Predicted []int
	Truth     []int
}

func resolveEmbedder(cfg config.EmbedderConfig, opts []RunOption) (embedding.Embedder, error) {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.embedder != nil {
		return o.embedder, nil
	}
	return embedding.New(cfg)
}

// encode fits the embedder on fitCorpus when it needs fitting, then embeds
// each group of texts in order.
func encode(ctx context.Context, e embedding.Embedder, fitCorpus []string, groups ...[]string) ([][][]float32, error) {
	if f, ok := e.(embedding.Fitter); ok {
		if err := f.Fit(fitCorpus); err != nil {
			return nil, err
		}
	}
	out := make([][][]float32, len(groups))
	for i, texts := range groups {
		vecs, err := embedding.Encode(ctx, e, texts)
		if err != nil {
			return nil, err
		}
		out[i] = vecs
	}
	return out, nil
}

// classCount returns the number of outputs needed for labels in [0, max].
func classCount(labels []int) int {
	if len(labels) == 0 {
		return 0
	}
	return slices.Max(labels) + 1
}

// RunCSV loads the labelled CSV, splits it stratified into train and test,
// embeds both sides, trains the classifier head and writes the reports
// before and after training plus the confusion matrix to w.
func RunCSV(ctx context.Context, cfg *config.Config, w io.Writer, log *slog.Logger, opts ...RunOption) (*CSVResult, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	path := cfg.Data.Path
	if path == "" {
		found, err := datasets.FindCSV(datasets.DefaultCSVPatterns)
		if err != nil {
			return nil, err
		}
		path = found
	}
	ds, err := datasets.NewTextDataset(path, cfg.Data.TextColumn, cfg.Data.TargetColumn)
	if err != nil {
		return nil, err
	}
	classes := ds.Categories()
	log.Info("dataset loaded", "path", path, "rows", ds.Len(), "classes", classes)

	trainIdx, testIdx, err := datasets.StratifiedSplit(ds.Labels(), cfg.Data.TestFraction, cfg.Data.SplitSeed)
	if err != nil {
		return nil, err
	}
	trainTexts, trainLabels, err := ds.Subset(trainIdx)
	if err != nil {
		return nil, err
	}
	testTexts, testLabels, err := ds.Subset(testIdx)
	if err != nil {
		return nil, err
	}

	emb, err := resolveEmbedder(cfg.Embedder, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	encoded, err := encode(ctx, emb, trainTexts, trainTexts, testTexts)
	if err != nil {
		return nil, err
	}
	encodingTime := time.Since(start)
	trainSet, err := datasets.NewEmbeddedDataset(encoded[0], trainLabels)
	if err != nil {
		return nil, err
	}
	testSet, err := datasets.NewEmbeddedDataset(encoded[1], testLabels)
	if err != nil {
		return nil, err
	}
	trainX, testX := trainSet.Features(), testSet.Features()
	fmt.Fprintf(w, "The encoding time: %s\n", encodingTime)
	log.Info("texts encoded", "embedder", emb.Name(), "train", len(trainX), "test", len(testX),
		"dim", trainSet.Dim(), "elapsed", encodingTime)

	model, err := classifier.New(trainSet.Dim(), len(classes), classifier.Config{
		Dropout:      cfg.Training.Dropout,
		LearningRate: cfg.Training.LearningRate,
		Optimizer:    cfg.Training.Optimizer,
		Seed:         cfg.Training.Seed,
	})
	if err != nil {
		return nil, err
	}

	before, err := evaluate.Evaluate(model, testX, testLabels, classes)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Report before training:\n%s\n", before.Report)

	b, err := batcher.New(trainX, trainSet.Labels(),
		batcher.WithBatchSize(cfg.Training.BatchSize),
		batcher.WithSeed(cfg.Training.Seed))
	if err != nil {
		return nil, err
	}
	hist, err := TrainEpochs(ctx, model, b, Options{
		Epochs:      cfg.Training.Epochs,
		ReportEvery: cfg.Training.ReportEvery,
		Out:         w,
		Log:         log,
	})
	if err != nil {
		return nil, err
	}

	after, err := evaluate.Evaluate(model, testX, testLabels, classes)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "Report after training:\n%s\n", after.Report)
	fmt.Fprintln(w, "Confusion matrix (rows: true, columns: predicted):")
	if err := after.Confusion.WriteTable(w); err != nil {
		return nil, fmt.Errorf("write confusion matrix: %w", err)
	}
	log.Info("training finished", "accuracy_before", before.Report.Accuracy, "accuracy_after", after.Report.Accuracy)

	if cfg.Output.LossPlot != "" {
		if err := plots.LossCurve(cfg.Output.LossPlot, "training loss", "epoch", hist.Series()...); err != nil {
			return nil, fmt.Errorf("write loss plot: %w", err)
		}
		log.Info("loss plot written", "path", cfg.Output.LossPlot)
	}

	return &CSVResult{
		DataPath:     path,
		Classes:      classes,
		TrainRows:    len(trainX),
		TestRows:     len(testX),
		EncodingTime: encodingTime,
		Before:       before,
		After:        after,
		History:      hist,
	}, nil
}

// RunToy trains on the five inline sentences with full-batch steps, writing
// the loss of every step, then predicts the four inline test sentences.
func RunToy(ctx context.Context, cfg *config.Config, w io.Writer, log *slog.Logger, opts ...RunOption) (*ToyResult, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.Discard()
	}

	trainEx, testEx := datasets.Toy()
	trainTexts, trainLabels := datasets.Unzip(trainEx)
	testTexts, testLabels := datasets.Unzip(testEx)

	emb, err := resolveEmbedder(cfg.Embedder, opts)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	encoded, err := encode(ctx, emb, trainTexts, trainTexts, testTexts)
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "The encoding time: %s\n", time.Since(start))
	trainX, testX := encoded[0], encoded[1]

	model, err := classifier.New(len(trainX[0]), classCount(trainLabels), classifier.Config{
		Dropout:      cfg.Toy.Dropout,
		LearningRate: cfg.Toy.LearningRate,
		Seed:         cfg.Toy.Seed,
	})
	if err != nil {
		return nil, err
	}

	losses, err := TrainFullBatch(model, trainX, trainLabels, cfg.Toy.Steps, w)
	if err != nil {
		return nil, err
	}
	log.Info("toy training finished", "steps", len(losses), "first_loss", losses[0], "last_loss", losses[len(losses)-1])

	probs, err := model.Predict(testX)
	if err != nil {
		return nil, err
	}
	predicted := evaluate.Argmax(probs)
	fmt.Fprintf(w, "%v\n", predicted)

	if cfg.Output.LossPlot != "" {
		s := plots.Series{Name: "full batch"}
		for i, l := range losses {
			s.X = append(s.X, float64(i+1))
			s.Y = append(s.Y, l)
		}
		if err := plots.LossCurve(cfg.Output.LossPlot, "toy loss", "step", s); err != nil {
			return nil, fmt.Errorf("write loss plot: %w", err)
		}
	}

	return &ToyResult{Losses: losses, Predicted: predicted, Truth: testLabels}, nil
}
