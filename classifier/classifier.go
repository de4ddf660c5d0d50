package classifier

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/gomlx/gomlx/backends/simplego"
)

var (
	// ErrShape is returned when a batch does not match the model dimensions.
	ErrShape = errors.New("classifier: shape mismatch")
	// ErrConfig is returned by New for out-of-range hyperparameters.
	ErrConfig = errors.New("classifier: invalid config")
)

// Mode selects whether the input dropout is active.
type Mode int

const (
	// TrainingMode zeroes a random fraction of input dimensions and rescales the rest.
	TrainingMode Mode = iota
	// EvaluationMode passes the input through unchanged.
	EvaluationMode
)

func (m Mode) String() string {
	switch m {
	case TrainingMode:
		return "training"
	case EvaluationMode:
		return "evaluation"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Config holds the hyperparameters of the classifier head and its optimizer.
type Config struct {
	// Dropout is the fraction of input dimensions zeroed in TrainingMode.
	// Zero disables dropout; it must be below 1.
	Dropout float64

	// LearningRate used by the optimizer (default 1e-3).
	LearningRate float64

	// Optimizer selects the optimizer to use: "adam" or "sgd". Default: "adam".
	Optimizer string

	// Adam hyperparameters (used when Optimizer == "adam"; defaults below if zero).
	Beta1   float64
	Beta2   float64
	Epsilon float64

	// Seed controls weight initialization and dropout masks (default 123).
	Seed int64
}

// Model is a single linear layer with input dropout and a softmax output,
// trained with mean categorical cross-entropy. The slice methods (Forward,
// Step, Loss) compute in Go; the tensor methods and Predict run the same
// head as a gomlx graph on the simplego backend. It is not safe for
// concurrent use.
type Model struct {
	// Config used for training / initialization.
	Config Config

	inputDim  int
	numLabels int

	// weights is [numLabels][inputDim]
	weights [][]float32
	biases  []float32

	gradW [][]float32
	gradB []float32

	opt   optimizer
	head  *graphHead

	// rng used for weight initialization and dropout masks
	rng *rand.Rand
}

// New creates a Model mapping inputDim-wide embeddings to numLabels classes.
// Weights and biases are drawn uniformly from ±1/sqrt(inputDim).
func New(inputDim, numLabels int, cfg Config) (*Model, error) {
	if inputDim < 1 {
		return nil, fmt.Errorf("%w: input dimension must be positive, got %d", ErrShape, inputDim)
	}
	if numLabels < 2 {
		return nil, fmt.Errorf("%w: need at least 2 labels, got %d", ErrShape, numLabels)
	}
	if cfg.Dropout < 0 || cfg.Dropout >= 1 {
		return nil, fmt.Errorf("%w: dropout must be in [0, 1), got %v", ErrConfig, cfg.Dropout)
	}

	// defaults
	if cfg.LearningRate == 0 {
		cfg.LearningRate = 0.001
	}
	if cfg.Optimizer == "" {
		cfg.Optimizer = "adam"
	}
	if cfg.Beta1 == 0 {
		cfg.Beta1 = 0.9
	}
	if cfg.Beta2 == 0 {
		cfg.Beta2 = 0.999
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = 1e-8
	}
	if cfg.Seed == 0 {
		cfg.Seed = 123
	}

	var opt optimizer
	switch strings.ToLower(cfg.Optimizer) {
	case "adam":
		opt = newAdam(cfg.LearningRate, cfg.Beta1, cfg.Beta2, cfg.Epsilon)
	case "sgd":
		opt = &sgd{lr: cfg.LearningRate}
	default:
		return nil, fmt.Errorf("%w: unknown optimizer %q", ErrConfig, cfg.Optimizer)
	}

	head, err := newGraphHead(simplego.GetBackend())
	if err != nil {
		return nil, err
	}

	m := &Model{
		Config:    cfg,
		inputDim:  inputDim,
		numLabels: numLabels,
		opt:       opt,
		head:      head,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}

	limit := float32(1 / math.Sqrt(float64(inputDim)))
	m.weights = make([][]float32, numLabels)
	m.gradW = make([][]float32, numLabels)
	for j := range numLabels {
		row := make([]float32, inputDim)
		for i := range row {
			row[i] = (m.rng.Float32()*2 - 1) * limit
		}
		m.weights[j] = row
		m.gradW[j] = make([]float32, inputDim)
	}
	m.biases = make([]float32, numLabels)
	for j := range m.biases {
		m.biases[j] = (m.rng.Float32()*2 - 1) * limit
	}
	m.gradB = make([]float32, numLabels)

	return m, nil
}

// InputDim returns the embedding width the model expects.
func (m *Model) InputDim() int { return m.inputDim }

// NumLabels returns the number of output classes.
func (m *Model) NumLabels() int { return m.numLabels }

// Forward returns one probability distribution per input row.
func (m *Model) Forward(x [][]float32, mode Mode) ([][]float32, error) {
	if err := m.checkInputs(x); err != nil {
		return nil, err
	}
	out := make([][]float32, len(x))
	in := make([]float32, m.inputDim)
	for r, row := range x {
		m.dropout(row, in, mode)
		out[r] = m.affineSoftmax(in)
	}
	return out, nil
}

// Loss returns the mean cross-entropy of x against y in EvaluationMode.
// Parameters are not touched.
func (m *Model) Loss(x [][]float32, y []int) (float64, error) {
	if err := m.checkBatch(x, y); err != nil {
		return 0, err
	}
	probs, err := m.Forward(x, EvaluationMode)
	if err != nil {
		return 0, err
	}
	var loss float64
	for r, p := range probs {
		loss += crossEntropy(p, y[r])
	}
	return loss / float64(len(x)), nil
}

// Step performs one optimization step on a batch: it clears the gradients,
// runs the forward pass in TrainingMode, computes the mean cross-entropy,
// back-propagates and applies the optimizer. It returns the batch loss.
func (m *Model) Step(x [][]float32, y []int) (float64, error) {
	if err := m.checkBatch(x, y); err != nil {
		return 0, err
	}
	m.zeroGrad()

	n := float32(len(x))
	in := make([]float32, m.inputDim)
	var loss float64
	for r, row := range x {
		m.dropout(row, in, TrainingMode)
		probs := m.affineSoftmax(in)
		loss += crossEntropy(probs, y[r])

		// d(loss)/d(logit_j) = p_j - 1[j == y]
		for j, p := range probs {
			g := p
			if j == y[r] {
				g -= 1
			}
			g /= n
			m.gradB[j] += g
			gw := m.gradW[j]
			for i, v := range in {
				gw[i] += g * v
			}
		}
	}

	m.opt.step(m.params(), m.grads())
	return loss / float64(len(x)), nil
}

func (m *Model) params() [][]float32 {
	return append(append(make([][]float32, 0, m.numLabels+1), m.weights...), m.biases)
}

func (m *Model) grads() [][]float32 {
	return append(append(make([][]float32, 0, m.numLabels+1), m.gradW...), m.gradB)
}

func (m *Model) zeroGrad() {
	for _, g := range m.grads() {
		clear(g)
	}
}

// dropout writes row into dst, zeroing and rescaling in TrainingMode.
func (m *Model) dropout(row, dst []float32, mode Mode) {
	p := m.Config.Dropout
	if mode != TrainingMode || p == 0 {
		copy(dst, row)
		return
	}
	scale := float32(1 / (1 - p))
	for i, v := range row {
		if m.rng.Float64() < p {
			dst[i] = 0
		} else {
			dst[i] = v * scale
		}
	}
}

// affineSoftmax computes softmax(W·in + b).
func (m *Model) affineSoftmax(in []float32) []float32 {
	logits := make([]float64, m.numLabels)
	maxLogit := math.Inf(-1)
	for j, row := range m.weights {
		sum := float64(m.biases[j])
		for i, w := range row {
			sum += float64(w) * float64(in[i])
		}
		logits[j] = sum
		if sum > maxLogit {
			maxLogit = sum
		}
	}
	var total float64
	for j, l := range logits {
		logits[j] = math.Exp(l - maxLogit)
		total += logits[j]
	}
	probs := make([]float32, m.numLabels)
	for j, e := range logits {
		probs[j] = float32(e / total)
	}
	return probs
}

func crossEntropy(probs []float32, label int) float64 {
	return -math.Log(math.Max(float64(probs[label]), 1e-12))
}

func (m *Model) checkInputs(x [][]float32) error {
	for r, row := range x {
		if len(row) != m.inputDim {
			return fmt.Errorf("%w: row %d has width %d, model expects %d", ErrShape, r, len(row), m.inputDim)
		}
	}
	return nil
}

func (m *Model) checkBatch(x [][]float32, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("%w: empty batch", ErrShape)
	}
	if len(x) != len(y) {
		return fmt.Errorf("%w: %d rows but %d labels", ErrShape, len(x), len(y))
	}
	for r, l := range y {
		if l < 0 || l >= m.numLabels {
			return fmt.Errorf("%w: label %d at row %d outside [0, %d)", ErrShape, l, r, m.numLabels)
		}
	}
	return m.checkInputs(x)
}
