package optimize

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// GaussianProcess is a Bayesian-optimization strategy. It fits a Gaussian
// process with a Matérn 5/2 kernel to the observations on the unit cube and
// proposes the point of maximum expected improvement.
//
// The kernel length scale is picked from LengthScales by log marginal
// likelihood. Expected improvement is maximized over Candidates uniform
// points followed by RefineSteps rounds of local perturbation around the
// best candidate.
type GaussianProcess struct {
	Candidates   int       // default 1000
	RefineSteps  int       // default 30
	Xi           float64   // exploration margin on standardized values, default 0.01
	Noise        float64   // diagonal jitter, default 1e-6
	LengthScales []float64 // default {0.05, 0.1, 0.2, 0.4, 0.8}
}

// Name implements Strategy.
func (*GaussianProcess) Name() string { return "gp" }

// Propose implements Strategy. With no observations it falls back to a
// uniform sample.
func (g *GaussianProcess) Propose(rng *rand.Rand, space Space, observations []Observation) ([]float64, error) {
	if len(observations) == 0 {
		return space.Sample(rng), nil
	}

	model, ok := g.fit(space, observations)
	if !ok {
		return space.Sample(rng), nil
	}

	candidates := g.Candidates
	if candidates <= 0 {
		candidates = 1000
	}
	refine := g.RefineSteps
	if refine <= 0 {
		refine = 30
	}

	dim := len(space)
	best := make([]float64, dim)
	bestEI := math.Inf(-1)
	u := make([]float64, dim)
	for c := 0; c < candidates; c++ {
		for i := range u {
			u[i] = rng.Float64()
		}
		if ei := model.expectedImprovement(u); ei > bestEI {
			bestEI = ei
			copy(best, u)
		}
	}

	radius := 0.1
	for s := 0; s < refine; s++ {
		for i := range u {
			u[i] = clamp01(best[i] + (rng.Float64()*2-1)*radius)
		}
		if ei := model.expectedImprovement(u); ei > bestEI {
			bestEI = ei
			copy(best, u)
		} else {
			radius *= 0.85
		}
	}

	return space.FromUnit(best), nil
}

// gpModel is a fitted Gaussian process on standardized values.
type gpModel struct {
	x      [][]float64
	chol   mat.Cholesky
	alpha  *mat.VecDense
	length float64
	best   float64
	xi     float64
}

func (g *GaussianProcess) fit(space Space, observations []Observation) (*gpModel, bool) {
	n := len(observations)
	x := make([][]float64, n)
	y := make([]float64, n)
	for i, o := range observations {
		x[i] = space.ToUnit(o.Params)
		y[i] = o.Value
	}
	standardize(y)

	noise := g.Noise
	if noise <= 0 {
		noise = 1e-6
	}
	xi := g.Xi
	if xi <= 0 {
		xi = 0.01
	}
	scales := g.LengthScales
	if len(scales) == 0 {
		scales = []float64{0.05, 0.1, 0.2, 0.4, 0.8}
	}

	yv := mat.NewVecDense(n, y)
	var best *gpModel
	bestLML := math.Inf(-1)
	for _, l := range scales {
		k := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				v := matern52(dist(x[i], x[j]), l)
				if i == j {
					v += noise
				}
				k.SetSym(i, j, v)
			}
		}

		m := &gpModel{x: x, length: l, xi: xi}
		if ok := m.chol.Factorize(k); !ok {
			continue
		}
		m.alpha = mat.NewVecDense(n, nil)
		if err := m.chol.SolveVecTo(m.alpha, yv); err != nil {
			continue
		}

		lml := -0.5*mat.Dot(yv, m.alpha) - 0.5*m.chol.LogDet() - 0.5*float64(n)*math.Log(2*math.Pi)
		if lml > bestLML {
			bestLML = lml
			best = m
		}
	}
	if best == nil {
		return nil, false
	}

	best.best = math.Inf(-1)
	for _, v := range y {
		best.best = math.Max(best.best, v)
	}
	return best, true
}

// predict returns the posterior mean and standard deviation at u.
func (m *gpModel) predict(u []float64) (mean, sd float64) {
	n := len(m.x)
	ks := mat.NewVecDense(n, nil)
	for i, xi := range m.x {
		ks.SetVec(i, matern52(dist(u, xi), m.length))
	}
	mean = mat.Dot(ks, m.alpha)

	w := mat.NewVecDense(n, nil)
	if err := m.chol.SolveVecTo(w, ks); err != nil {
		return mean, 0
	}
	variance := 1 - mat.Dot(ks, w)
	if variance < 1e-12 {
		variance = 1e-12
	}
	return mean, math.Sqrt(variance)
}

// expectedImprovement returns E[max(f(u) - best - xi, 0)].
func (m *gpModel) expectedImprovement(u []float64) float64 {
	mean, sd := m.predict(u)
	delta := mean - m.best - m.xi
	z := delta / sd
	return delta*distuv.UnitNormal.CDF(z) + sd*distuv.UnitNormal.Prob(z)
}

// matern52 is the Matérn kernel with ν = 5/2 and unit signal variance.
func matern52(r, length float64) float64 {
	s := math.Sqrt(5) * r / length
	return (1 + s + s*s/3) * math.Exp(-s)
}

func dist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return math.Sqrt(s)
}

// standardize rescales y in place to zero mean and unit variance. A
// constant y only gets centred.
func standardize(y []float64) {
	var mean float64
	for _, v := range y {
		mean += v
	}
	mean /= float64(len(y))
	var ss float64
	for _, v := range y {
		ss += (v - mean) * (v - mean)
	}
	sd := math.Sqrt(ss / float64(len(y)))
	if sd == 0 {
		sd = 1
	}
	for i := range y {
		y[i] = (y[i] - mean) / sd
	}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
