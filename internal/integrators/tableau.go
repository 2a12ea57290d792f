package integrators

import (
	"math"

	"github.com/san-kum/phytrace/internal/dynamo"
)

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// Adaptive is an embedded explicit Runge-Kutta pair. The last stage is
// evaluated at the new point so its derivative is reused by the next step.
type Adaptive struct {
	name       string
	order      int
	errorOrder int
	c          []float64
	a          [][]float64
	b          []float64
	e          []float64

	safety    float64
	minFactor float64
	maxFactor float64
}

// RK45 returns the Dormand-Prince 5(4) pair.
func RK45() *Adaptive {
	return &Adaptive{
		name:       "RK45",
		order:      5,
		errorOrder: 4,
		c:          []float64{0, a2, a3, a4, a5, 1},
		a: [][]float64{
			{},
			{b21},
			{b31, b32},
			{b41, b42, b43},
			{b51, b52, b53, b54},
			{b61, b62, b63, b64, b65},
		},
		b:         []float64{c1, 0, c3, c4, c5, c6},
		e:         []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7},
		safety:    0.9,
		minFactor: 0.2,
		maxFactor: 10.0,
	}
}

// RK23 returns the Bogacki-Shampine 3(2) pair.
func RK23() *Adaptive {
	return &Adaptive{
		name:       "RK23",
		order:      3,
		errorOrder: 2,
		c:          []float64{0, 1.0 / 2.0, 3.0 / 4.0},
		a: [][]float64{
			{},
			{1.0 / 2.0},
			{0, 3.0 / 4.0},
		},
		b:         []float64{2.0 / 9.0, 1.0 / 3.0, 4.0 / 9.0},
		e:         []float64{5.0 / 72.0, -1.0 / 12.0, -1.0 / 9.0, 1.0 / 8.0},
		safety:    0.9,
		minFactor: 0.2,
		maxFactor: 10.0,
	}
}

func (r *Adaptive) Name() string   { return r.name }
func (r *Adaptive) Adaptive() bool { return true }

// stages is the number of right-hand side evaluations per attempt.
func (r *Adaptive) stages() int { return len(r.c) }

// attempt takes one trial step of size h from (t, y) whose derivative is f.
// It returns the candidate state, its derivative and the RMS of the error
// estimate scaled by atol + rtol*max(|y|, |yNew|).
func (r *Adaptive) attempt(sys dynamo.System, p dynamo.Params, t float64, y, f dynamo.State, h, rtol, atol float64) (dynamo.State, dynamo.State, float64) {
	n := len(y)
	s := r.stages()
	k := make([]dynamo.State, s+1)
	k[0] = f

	tmp := make(dynamo.State, n)
	for i := 1; i < s; i++ {
		for j := 0; j < n; j++ {
			acc := 0.0
			for m, coef := range r.a[i] {
				acc += coef * k[m][j]
			}
			tmp[j] = y[j] + h*acc
		}
		k[i] = sys.Derive(t+r.c[i]*h, tmp.Clone(), p)
	}

	yNew := make(dynamo.State, n)
	for j := 0; j < n; j++ {
		acc := 0.0
		for m, coef := range r.b {
			acc += coef * k[m][j]
		}
		yNew[j] = y[j] + h*acc
	}

	fNew := sys.Derive(t+h, yNew.Clone(), p)
	k[s] = fNew

	sum := 0.0
	for j := 0; j < n; j++ {
		errEst := 0.0
		for m, coef := range r.e {
			errEst += coef * k[m][j]
		}
		errEst *= h
		scale := atol + math.Max(math.Abs(y[j]), math.Abs(yNew[j]))*rtol
		q := errEst / scale
		sum += q * q
	}
	errNorm := 0.0
	if n > 0 {
		errNorm = math.Sqrt(sum / float64(n))
	}

	return yNew, fNew, errNorm
}

// factor returns the step size multiplier for a trial with the given error norm.
func (r *Adaptive) factor(errNorm float64) float64 {
	if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
		return r.minFactor
	}
	if errNorm == 0 {
		return r.maxFactor
	}
	f := r.safety * math.Pow(errNorm, -1.0/float64(r.errorOrder+1))
	return math.Min(r.maxFactor, math.Max(r.minFactor, f))
}

// initialStep estimates a first step size from the local scale of the
// solution and its derivatives. It costs one extra evaluation.
func (r *Adaptive) initialStep(sys dynamo.System, p dynamo.Params, t0 float64, y0, f0 dynamo.State, direction, rtol, atol float64) float64 {
	n := len(y0)
	if n == 0 {
		return math.Inf(1)
	}

	rms := func(v func(j int) float64) float64 {
		sum := 0.0
		for j := 0; j < n; j++ {
			q := v(j) / (atol + math.Abs(y0[j])*rtol)
			sum += q * q
		}
		return math.Sqrt(sum / float64(n))
	}

	d0 := rms(func(j int) float64 { return y0[j] })
	d1 := rms(func(j int) float64 { return f0[j] })

	var h0 float64
	if d0 < 1e-5 || d1 < 1e-5 {
		h0 = 1e-6
	} else {
		h0 = 0.01 * d0 / d1
	}
	h0 = math.Min(h0, direction)

	y1 := make(dynamo.State, n)
	for j := 0; j < n; j++ {
		y1[j] = y0[j] + h0*f0[j]
	}
	f1 := sys.Derive(t0+h0, y1, p)
	d2 := rms(func(j int) float64 { return f1[j] - f0[j] }) / h0

	var h1 float64
	if d1 <= 1e-15 && d2 <= 1e-15 {
		h1 = math.Max(1e-6, h0*1e-3)
	} else {
		h1 = math.Pow(0.01/math.Max(d1, d2), 1.0/float64(r.errorOrder+1))
	}

	return math.Min(math.Min(100*h0, h1), direction)
}
