package classifier

import (
	"fmt"

	"github.com/gomlx/gomlx/backends"
	"github.com/gomlx/gomlx/pkg/core/graph"
	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/gopjrt/dtypes"
)

// graphHead holds the gomlx computations of the head. Each Exec compiles one
// graph per input shape and reuses it for later calls.
type graphHead struct {
	forward *graph.Exec // x, mask, W, b -> probabilities
	grads   *graph.Exec // x, mask, W, b, y -> loss, dW, db
}

func newGraphHead(backend backends.Backend) (*graphHead, error) {
	forward, err := graph.NewExec(backend, func(x, mask, w, b *graph.Node) *graph.Node {
		return graph.Softmax(logits(graph.Mul(x, mask), w, b), 1)
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: build forward graph: %w", err)
	}
	grads, err := graph.NewExec(backend, func(x, mask, w, b, y *graph.Node) (*graph.Node, *graph.Node, *graph.Node) {
		logProbs := graph.LogSoftmax(logits(graph.Mul(x, mask), w, b), 1)
		onehot := graph.OneHot(y, w.Shape().Dimensions[0], logProbs.DType())
		loss := graph.Neg(graph.ReduceAllMean(graph.ReduceSum(graph.Mul(onehot, logProbs), 1)))
		g := graph.Gradient(loss, w, b)
		return loss, g[0], g[1]
	})
	if err != nil {
		return nil, fmt.Errorf("classifier: build gradient graph: %w", err)
	}
	forward.SetName("classifier_forward")
	grads.SetName("classifier_gradients")
	return &graphHead{forward: forward, grads: grads}, nil
}

// logits computes x·Wᵀ + b with W shaped [labels, dim].
func logits(x, w, b *graph.Node) *graph.Node {
	return graph.Add(graph.Dot(x, graph.Transpose(w, 0, 1)), graph.InsertAxes(b, 0))
}

// ForwardTensor evaluates the head on a float32 [batch, dim] tensor and
// returns a float32 [batch, labels] tensor of probabilities. In TrainingMode
// the dropout mask is drawn from the model's generator.
func (m *Model) ForwardTensor(x *tensors.Tensor, mode Mode) (*tensors.Tensor, error) {
	rows, err := m.checkFeatureTensor(x)
	if err != nil {
		return nil, err
	}
	w, b := m.paramTensors()
	probs, err := m.head.forward.Exec1(x, m.maskTensor(rows, mode), w, b)
	if err != nil {
		return nil, fmt.Errorf("classifier: forward: %w", err)
	}
	return probs, nil
}

// StepTensors performs one optimization step on a feature tensor and an
// integer label tensor. Loss and gradients come from the gomlx graph, the
// parameter update from the configured optimizer.
func (m *Model) StepTensors(x, y *tensors.Tensor) (float64, error) {
	rows, err := m.checkFeatureTensor(x)
	if err != nil {
		return 0, err
	}
	labels, err := m.labelTensor(y, rows)
	if err != nil {
		return 0, err
	}
	w, b := m.paramTensors()
	loss, dW, dB, err := m.head.grads.Exec3(x, m.maskTensor(rows, TrainingMode), w, b, labels)
	if err != nil {
		return 0, fmt.Errorf("classifier: gradients: %w", err)
	}

	gw := tensors.CopyFlatData[float32](dW)
	for j, row := range m.gradW {
		copy(row, gw[j*m.inputDim:(j+1)*m.inputDim])
	}
	copy(m.gradB, tensors.CopyFlatData[float32](dB))
	m.opt.step(m.params(), m.grads())
	return float64(tensors.ToScalar[float32](loss)), nil
}

// Predict returns one probability distribution per row, evaluated in
// EvaluationMode on the gomlx graph.
func (m *Model) Predict(x [][]float32) ([][]float32, error) {
	if len(x) == 0 {
		return [][]float32{}, nil
	}
	if err := m.checkInputs(x); err != nil {
		return nil, err
	}
	flat := make([]float32, 0, len(x)*m.inputDim)
	for _, row := range x {
		flat = append(flat, row...)
	}
	out, err := m.ForwardTensor(tensors.FromFlatDataAndDimensions(flat, len(x), m.inputDim), EvaluationMode)
	if err != nil {
		return nil, err
	}
	probs := tensors.CopyFlatData[float32](out)
	res := make([][]float32, len(x))
	for r := range res {
		res[r] = probs[r*m.numLabels : (r+1)*m.numLabels]
	}
	return res, nil
}

func (m *Model) paramTensors() (w, b *tensors.Tensor) {
	flat := make([]float32, 0, m.numLabels*m.inputDim)
	for _, row := range m.weights {
		flat = append(flat, row...)
	}
	return tensors.FromFlatDataAndDimensions(flat, m.numLabels, m.inputDim),
		tensors.FromFlatDataAndDimensions(m.biases, m.numLabels)
}

// maskTensor draws the inverted-dropout mask in row-major order, the same
// order dropout uses, so both paths agree for a given seed.
func (m *Model) maskTensor(rows int, mode Mode) *tensors.Tensor {
	mask := make([]float32, rows*m.inputDim)
	p := m.Config.Dropout
	if mode != TrainingMode || p == 0 {
		for i := range mask {
			mask[i] = 1
		}
		return tensors.FromFlatDataAndDimensions(mask, rows, m.inputDim)
	}
	scale := float32(1 / (1 - p))
	for i := range mask {
		if m.rng.Float64() >= p {
			mask[i] = scale
		}
	}
	return tensors.FromFlatDataAndDimensions(mask, rows, m.inputDim)
}

func (m *Model) checkFeatureTensor(x *tensors.Tensor) (int, error) {
	if x == nil {
		return 0, fmt.Errorf("%w: nil feature tensor", ErrShape)
	}
	s := x.Shape()
	if s.DType != dtypes.Float32 || s.Rank() != 2 {
		return 0, fmt.Errorf("%w: expected a float32 matrix, got %s", ErrShape, s)
	}
	if s.Dimensions[0] == 0 {
		return 0, fmt.Errorf("%w: empty batch", ErrShape)
	}
	if s.Dimensions[1] != m.inputDim {
		return 0, fmt.Errorf("%w: feature width %d, model expects %d", ErrShape, s.Dimensions[1], m.inputDim)
	}
	return s.Dimensions[0], nil
}

// labelTensor validates y against the batch and returns it as int32.
func (m *Model) labelTensor(y *tensors.Tensor, rows int) (*tensors.Tensor, error) {
	if y == nil {
		return nil, fmt.Errorf("%w: nil label tensor", ErrShape)
	}
	s := y.Shape()
	if s.Rank() != 1 || s.Dimensions[0] != rows {
		return nil, fmt.Errorf("%w: expected %d labels, got shape %s", ErrShape, rows, s)
	}
	var values []int64
	switch s.DType {
	case dtypes.Int32:
		for _, v := range tensors.CopyFlatData[int32](y) {
			values = append(values, int64(v))
		}
	case dtypes.Int64:
		values = tensors.CopyFlatData[int64](y)
	default:
		return nil, fmt.Errorf("%w: expected an integer label vector, got %s", ErrShape, s)
	}
	labels := make([]int32, len(values))
	for r, l := range values {
		if l < 0 || l >= int64(m.numLabels) {
			return nil, fmt.Errorf("%w: label %d at row %d outside [0, %d)", ErrShape, l, r, m.numLabels)
		}
		labels[r] = int32(l)
	}
	return tensors.FromFlatDataAndDimensions(labels, rows), nil
}
