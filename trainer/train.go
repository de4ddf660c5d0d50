// Package trainer drives the classifier head: mini-batch epochs over a
// Batcher, the full-batch toy loop, and the end-to-end runs used by the CLI.
package trainer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"github.com/Noofbiz/textClassifier/batcher"
	"github.com/Noofbiz/textClassifier/plots"
)

// DefaultReportEvery is the running-loss reporting cadence in batches.
const DefaultReportEvery = 100

// TensorLearner performs one optimizer step on a feature/label tensor pair
// and returns the mean loss before the update.
type TensorLearner interface {
	StepTensors(x, y *tensors.Tensor) (float64, error)
}

// Learner is the slice-based counterpart of TensorLearner.
type Learner interface {
	Step(x [][]float32, y []int) (float64, error)
}

// Options configures TrainEpochs.
type Options struct {
	Epochs      int
	ReportEvery int          // batches between running-loss lines (default 100)
	Out         io.Writer    // loss lines; nil discards them
	Log         *slog.Logger // nil disables logging
}

// Report is one running-loss line.
type Report struct {
	Epoch int
	Batch int
	Loss  float64
}

// History records the losses observed during TrainEpochs.
type History struct {
	Reports         []Report
	EpochLoss       []float64
	BatchesPerEpoch int
}

// Series returns the running and per-epoch losses as plot series, with X in
// fractional epochs.
func (h *History) Series() []plots.Series {
	running := plots.Series{Name: "running average"}
	for _, r := range h.Reports {
		x := float64(r.Epoch)
		if h.BatchesPerEpoch > 0 {
			x += float64(r.Batch+1) / float64(h.BatchesPerEpoch)
		}
		running.X = append(running.X, x)
		running.Y = append(running.Y, r.Loss)
	}
	epoch := plots.Series{Name: "epoch average"}
	for i, l := range h.EpochLoss {
		epoch.X = append(epoch.X, float64(i+1))
		epoch.Y = append(epoch.Y, l)
	}
	return []plots.Series{running, epoch}
}

// TrainEpochs runs opts.Epochs passes over b. Each pass consumes batches
// until the batcher signals exhaustion, so the remainder rows of a pass are
// skipped. Every opts.ReportEvery batches (batch index > 0) the average loss
// since the previous line, possibly spanning epochs, is written to opts.Out
// and the accumulator reset.
// ctx is checked between batches.
func TrainEpochs(ctx context.Context, m TensorLearner, b *batcher.Batcher, opts Options) (*History, error) {
	if m == nil || b == nil {
		return nil, errors.New("trainer: nil model or batcher")
	}
	if opts.Epochs <= 0 {
		return nil, fmt.Errorf("trainer: epochs must be positive, got %d", opts.Epochs)
	}
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = DefaultReportEvery
	}
	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	h := &History{BatchesPerEpoch: b.BatchesPerEpoch()}
	// the running average carries over epoch boundaries until the next report
	var (
		running      float64
		runningCount int
	)
	for ep := range opts.Epochs {
		var (
			epochSum   float64
			epochCount int
		)
		for idx, batch := range b.Epoch() {
			if err := ctx.Err(); err != nil {
				return h, err
			}
			x, y, err := batch.Tensors()
			if err != nil {
				return h, fmt.Errorf("epoch %d batch %d: %w", ep, idx, err)
			}
			loss, err := m.StepTensors(x, y)
			if err != nil {
				return h, fmt.Errorf("epoch %d batch %d: %w", ep, idx, err)
			}
			running += loss
			runningCount++
			epochSum += loss
			epochCount++

			if idx > 0 && idx%opts.ReportEvery == 0 {
				avg := running / float64(runningCount)
				h.Reports = append(h.Reports, Report{Epoch: ep, Batch: idx, Loss: avg})
				fmt.Fprintf(out, "Epoch: %d, Average loss: %.6f\n", ep, avg)
				running, runningCount = 0, 0
			}
		}
		if epochCount == 0 {
			return h, errors.New("trainer: batcher yielded no batches")
		}
		avg := epochSum / float64(epochCount)
		h.EpochLoss = append(h.EpochLoss, avg)
		if opts.Log != nil {
			opts.Log.Info("epoch finished", "epoch", ep, "batches", epochCount, "avg_loss", avg)
		}
	}
	return h, nil
}

// TrainFullBatch performs steps updates on the whole of x, writing the loss
// of each step to w, and returns the losses in order.
func TrainFullBatch(m Learner, x [][]float32, y []int, steps int, w io.Writer) ([]float64, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("trainer: steps must be positive, got %d", steps)
	}
	if w == nil {
		w = io.Discard
	}
	losses := make([]float64, 0, steps)
	for i := range steps {
		loss, err := m.Step(x, y)
		if err != nil {
			return losses, fmt.Errorf("step %d: %w", i, err)
		}
		fmt.Fprintf(w, "%.6f\n", loss)
		losses = append(losses, loss)
	}
	return losses, nil
}
