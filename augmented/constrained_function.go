package augmented

import (
	"fmt"
	"math"

	"github.com/curioloop/conopt/objective"
)

// constraint holds one inequality c(x) <= 0: a private Function used only to
// read c(x) at the current user state, and the dual multiplier lambda that
// every Phi wrapping term feeds back into via a stable pointer.
type constraint struct {
	name        string
	fn          *objective.Function
	lambda      float64
	cachedValue float64
}

// registeredVar remembers the storage/cov pair behind a VarID issued by
// ConstrainedFunction.AddVariable, so that AddConstraintTerm can re-register
// the same identity into a constraint's private Function.
type registeredVar struct {
	storage []float64
	cov     objective.ChangeOfVariables
}

// ConstrainedFunction minimizes an additive objective subject to a set of
// named inequality constraints c_i(x) <= 0, via an augmented-Lagrangian
// outer loop driving an external unconstrained Solver.
type ConstrainedFunction struct {
	objectiveFn           *objective.Function
	augmentedLagrangianFn *objective.Function

	vars []registeredVar

	constraints []*constraint
	byName      map[string]int

	mu float64

	logFunc func(string)

	// FunctionImprovementTolerance gates the function-tolerance exit test:
	// it is both the ratio threshold and the denominator add-on in
	// |f-fPrev|/(|f|+tol) < tol.
	FunctionImprovementTolerance float64
	// DualChangeTolerance gates the gradient-tolerance exit test on the
	// relative change of the dual multipliers.
	DualChangeTolerance float64
	// MaxNumberOfIterations bounds the outer loop; reaching it without
	// reaching a tolerance yields ExitNoConvergence.
	MaxNumberOfIterations int
}

// NewConstrainedFunction creates an empty ConstrainedFunction with
// default tolerances.
func NewConstrainedFunction() *ConstrainedFunction {
	return &ConstrainedFunction{
		objectiveFn:           objective.NewFunction(),
		augmentedLagrangianFn: objective.NewFunction(),
		byName:                make(map[string]int),

		FunctionImprovementTolerance: 1e-12,
		DualChangeTolerance:          1e-6,
		MaxNumberOfIterations:        100,
	}
}

// AddVariable registers storage with both the raw objective and the
// augmented Lagrangian so the two Functions share an identical variable
// layout; the returned VarID indexes both.
func (c *ConstrainedFunction) AddVariable(storage []float64, cov objective.ChangeOfVariables) (objective.VarID, error) {
	if _, err := c.objectiveFn.AddVariable(storage, cov); err != nil {
		return 0, err
	}
	id, err := c.augmentedLagrangianFn.AddVariable(storage, cov)
	if err != nil {
		return 0, err
	}
	if int(id) == len(c.vars) {
		c.vars = append(c.vars, registeredVar{storage: storage, cov: cov})
	}
	return id, nil
}

// AddTerm adds term to both the raw objective and the augmented Lagrangian,
// so unconstrained objective terms contribute unchanged to the inner
// problem.
func (c *ConstrainedFunction) AddTerm(term objective.Term, args ...objective.VarID) error {
	if err := c.objectiveFn.AddTerm(term, args...); err != nil {
		return err
	}
	return c.augmentedLagrangianFn.AddTerm(term, args...)
}

// AddConstraintTerm registers a named inequality constraint c(x) <= 0: term
// is added to a fresh private Function used only to read c(x), and
// Phi(term, &lambda, &mu) is added to the augmented Lagrangian over the same
// arguments.
func (c *ConstrainedFunction) AddConstraintTerm(name string, term objective.Term, args ...objective.VarID) error {
	if _, exists := c.byName[name]; exists {
		return ErrDuplicateConstraint
	}

	cfn := objective.NewFunction(objective.WithHessian(false))
	localArgs := make([]objective.VarID, len(args))
	for i, a := range args {
		if int(a) < 0 || int(a) >= len(c.vars) {
			return objective.ErrUnknownVariable
		}
		rv := c.vars[a]
		lid, err := cfn.AddVariable(rv.storage, rv.cov)
		if err != nil {
			return err
		}
		localArgs[i] = lid
	}
	if err := cfn.AddTerm(term, localArgs...); err != nil {
		return err
	}

	cons := &constraint{name: name, fn: cfn}
	c.byName[name] = len(c.constraints)
	c.constraints = append(c.constraints, cons)

	phi := NewPhi(term, &cons.lambda, &c.mu)
	return c.augmentedLagrangianFn.AddTerm(phi, args...)
}

// Objective returns the raw, unconstrained objective Function.
func (c *ConstrainedFunction) Objective() *objective.Function {
	return c.objectiveFn
}

// IsFeasible reports whether every constraint's value is <= 1e-12 at the
// current user state.
func (c *ConstrainedFunction) IsFeasible() bool {
	for _, cons := range c.constraints {
		v, err := cons.fn.Evaluate()
		if err != nil || v > 1e-12 {
			return false
		}
	}
	return true
}

// SetLogFunc installs a sink the outer loop's own status lines are written
// to; the same sink is handed to the Solver on the next Solve call. A nil
// fn disables logging.
func (c *ConstrainedFunction) SetLogFunc(fn func(string)) {
	c.logFunc = fn
}

// Solve runs the augmented-Lagrangian outer loop, repeatedly invoking solver
// on the augmented Lagrangian and updating duals/penalty from the raw
// constraint values, until it reaches a tolerance or MaxNumberOfIterations.
func (c *ConstrainedFunction) Solve(solver Solver, results *SolverResults) error {
	if c.logFunc != nil {
		solver.SetLogFunc(c.logFunc)
	}

	c.mu = 10
	nu := math.Pow(c.mu, -0.1)
	fPrev := math.NaN()
	iterations := 0

	if c.augmentedLagrangianFn.NumberOfScalars() == 0 {
		results.ExitCondition = ExitFunctionTolerance
		results.Iterations = 0
		return nil
	}

	tolF := c.FunctionImprovementTolerance
	tolD := c.DualChangeTolerance

	for {
		if err := solver.Solve(c.augmentedLagrangianFn, results); err != nil {
			results.ExitCondition = ExitInternalError
			return err
		}

		f, err := c.objectiveFn.Evaluate()
		if err != nil {
			results.ExitCondition = ExitInternalError
			return err
		}

		maxViolation := math.Inf(-1)
		infeasibility := math.Inf(-1)
		for _, cons := range c.constraints {
			ci, err := cons.fn.Evaluate()
			if err != nil {
				results.ExitCondition = ExitInternalError
				return err
			}
			cons.cachedValue = ci
			if v := ci * cons.lambda; v > infeasibility {
				infeasibility = v
			}
			if ci > maxViolation {
				maxViolation = ci
			}
		}

		if len(c.constraints) == 0 {
			maxViolation, infeasibility = 0, 0
		}

		results.FunctionValue = f
		results.MaxViolation = maxViolation
		results.Iterations = iterations

		if math.Abs(f-fPrev)/(math.Abs(f)+tolF) < tolF {
			results.ExitCondition = ExitFunctionTolerance
			return nil
		}

		if len(c.constraints) > 0 {
			if maxViolation <= nu {
				var maxChange, maxLambda float64
				for _, cons := range c.constraints {
					prev := cons.lambda
					ci := cons.cachedValue
					if ci+prev/c.mu <= 0 {
						cons.lambda = 0
					} else {
						cons.lambda = prev + c.mu*ci
					}
					if d := math.Abs(prev - cons.lambda); d > maxChange {
						maxChange = d
					}
					if a := math.Abs(cons.lambda); a > maxLambda {
						maxLambda = a
					}
				}
				nu = nu / math.Pow(c.mu, 0.9)

				// Dual stationarity is only meaningful once some multiplier
				// has activated; with every lambda still at zero the problem
				// behaves as unconstrained and exits on function improvement.
				if maxLambda > 0 && maxChange/(maxLambda+tolD) < tolD && maxViolation < 1e-8 {
					c.logStatus(iterations, f, maxViolation, infeasibility)
					results.ExitCondition = ExitGradientTolerance
					return nil
				}
			} else {
				c.mu *= 100
				nu = math.Pow(c.mu, -0.1)
			}
		}

		c.logStatus(iterations, f, maxViolation, infeasibility)

		iterations++
		if iterations >= c.MaxNumberOfIterations {
			results.ExitCondition = ExitNoConvergence
			results.Iterations = iterations
			return nil
		}
		fPrev = f
	}
}

func (c *ConstrainedFunction) logStatus(iterations int, f, maxViolation, infeasibility float64) {
	if c.logFunc == nil {
		return
	}
	c.logFunc(fmt.Sprintf(
		"iter=%d f=%.10g mu=%.4g max_violation=%.4g infeasibility=%.4g",
		iterations, f, c.mu, maxViolation, infeasibility,
	))

	logged := 0
	for _, cons := range c.constraints {
		if cons.lambda == 0 {
			continue
		}
		c.logFunc(fmt.Sprintf("  %s: c=%.4g lambda=%.4g", cons.name, cons.cachedValue, cons.lambda))
		logged++
		if logged >= 10 {
			break
		}
	}
}
