package classifier

import "math"

// optimizer updates params in place from grads of the same shapes.
type optimizer interface {
	step(params, grads [][]float32)
}

type sgd struct {
	lr float64
}

func (o *sgd) step(params, grads [][]float32) {
	lr := float32(o.lr)
	for k, p := range params {
		g := grads[k]
		for i := range p {
			p[i] -= lr * g[i]
		}
	}
}

// adam is the bias-corrected Adam update.
type adam struct {
	lr, beta1, beta2, eps float64

	t    int
	m, v [][]float64
}

func newAdam(lr, beta1, beta2, eps float64) *adam {
	return &adam{lr: lr, beta1: beta1, beta2: beta2, eps: eps}
}

func (o *adam) step(params, grads [][]float32) {
	if o.m == nil {
		o.m = make([][]float64, len(params))
		o.v = make([][]float64, len(params))
		for k, p := range params {
			o.m[k] = make([]float64, len(p))
			o.v[k] = make([]float64, len(p))
		}
	}
	o.t++
	c1 := 1 - math.Pow(o.beta1, float64(o.t))
	c2 := 1 - math.Pow(o.beta2, float64(o.t))

	for k, p := range params {
		g, m, v := grads[k], o.m[k], o.v[k]
		for i := range p {
			gi := float64(g[i])
			m[i] = o.beta1*m[i] + (1-o.beta1)*gi
			v[i] = o.beta2*v[i] + (1-o.beta2)*gi*gi
			mHat := m[i] / c1
			vHat := v[i] / c2
			p[i] -= float32(o.lr * mHat / (math.Sqrt(vHat) + o.eps))
		}
	}
}
