package augmented

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conopt/objective"
)

// Phi is the smooth augmented-Lagrangian wrapper of a constraint term
// c(x) <= 0. sigma and mu are held by reference (not copied) so that updates
// the outer loop makes to the dual multiplier and the penalty parameter are
// visible on the wrapped term's next evaluation.
//
// Evaluation follows the standard Hestenes-Powell-Rockafellar smooth penalty
// (Nocedal-Wright eq. 17.65, with the inequality sign flipped so feasibility
// is c(x) <= 0):
//
//	t := c(x)
//	if -t - sigma/mu <= 0: value = sigma*t + mu/2*t^2, grad = (sigma+mu*t)*grad(t)
//	else:                  value = -sigma^2/(2*mu),    grad = 0
//
// Phi never provides a Hessian.
type Phi struct {
	term  objective.Term
	sigma *float64
	mu    *float64
}

// NewPhi wraps term, reading the dual multiplier through sigma and the
// shared penalty parameter through mu on every evaluation.
func NewPhi(term objective.Term, sigma, mu *float64) *Phi {
	return &Phi{term: term, sigma: sigma, mu: mu}
}

// Lambda returns the dual multiplier Phi currently reads through.
func (p *Phi) Lambda() float64 { return *p.sigma }

// Mu returns the penalty parameter Phi currently reads through.
func (p *Phi) Mu() float64 { return *p.mu }

func (p *Phi) Arity() int                  { return p.term.Arity() }
func (p *Phi) VariableDimension(i int) int { return p.term.VariableDimension(i) }

// active reports whether the quadratic-penalty branch applies for the given
// constraint value t = c(x).
func (p *Phi) active(t float64) bool {
	return -t-*p.sigma/(*p.mu) <= 0
}

func (p *Phi) Evaluate(x [][]float64) (float64, error) {
	t, err := p.term.Evaluate(x)
	if err != nil {
		return 0, err
	}
	return p.value(t), nil
}

func (p *Phi) value(t float64) float64 {
	sigma, mu := *p.sigma, *p.mu
	if p.active(t) {
		return sigma*t + 0.5*mu*t*t
	}
	return -0.5 / mu * sigma * sigma
}

func (p *Phi) EvaluateGradient(x [][]float64, gradient [][]float64) (float64, error) {
	t, err := p.term.EvaluateGradient(x, gradient)
	if err != nil {
		return 0, err
	}

	sigma, mu := *p.sigma, *p.mu
	if p.active(t) {
		scale := sigma + mu*t
		for i := range gradient {
			for k := range gradient[i] {
				gradient[i][k] *= scale
			}
		}
		return sigma*t + 0.5*mu*t*t, nil
	}

	for i := range gradient {
		for k := range gradient[i] {
			gradient[i][k] = 0
		}
	}
	return -0.5 / mu * sigma * sigma, nil
}

// EvaluateHessian always fails: Phi's second derivative depends on the
// wrapped term's Hessian times a scalar plus an outer-product correction
// the core does not assemble, so the augmented Lagrangian never offers a
// Hessian path. Inner solvers minimize it with first-order information.
func (p *Phi) EvaluateHessian(x [][]float64, gradient [][]float64, hessian [][]*mat.Dense) (float64, error) {
	return 0, objective.ErrHessianNotSupported
}
