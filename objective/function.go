package objective

import (
	"fmt"
	"io"
	"sync"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/conopt/linalg"
)

type addedTerm struct {
	term      Term
	args      []VarID
	variables []*variableInfo

	// hessian[i][j] has shape VariableDimension(i) x VariableDimension(j);
	// pre-allocated once at AddTerm time when the Function has Hessian
	// support enabled.
	hessian [][]*mat.Dense
}

// Option configures a Function at construction time.
type Option func(*Function)

// WithHessian toggles Hessian support. Hessian support is enabled unless
// explicitly turned off; disabling it skips the per-term block scratch
// allocation in AddTerm.
func WithHessian(enabled bool) Option {
	return func(f *Function) { f.hessianEnabled = enabled }
}

// WithThreads sets the initial number of parallel evaluation workers.
func WithThreads(n int) Option {
	return func(f *Function) {
		if n > 0 {
			f.numberOfThreads = n
		}
	}
}

// Function accumulates Terms over a shared pool of registered variables and
// assembles their contributions into a scalar value, a gradient, and
// optionally a dense or sparse Hessian.
type Function struct {
	vars  *variableRegistry
	terms []*addedTerm

	hessianEnabled  bool
	numberOfThreads int

	localStorageAllocated bool
	maxArity              int
	maxVariableDimension  int

	workerGradAccum   [][]float64
	workerGradScratch [][][]float64

	numberOfHessianElements int

	evaluationsWithoutGradient int
	evaluationsWithGradient    int
	evaluateTime               time.Duration
	evaluateWithHessianTime    time.Duration
	writeGradientHessianTime   time.Duration
	copyTime                   time.Duration
}

// NewFunction creates an empty Function. Variables and Terms are added
// monotonically; there is no removal API.
func NewFunction(opts ...Option) *Function {
	f := &Function{
		vars:            newVariableRegistry(),
		hessianEnabled:  true,
		numberOfThreads: 1,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// AddVariable registers storage (the caller's backing slice) as a variable,
// optionally attaching a ChangeOfVariables. Calling AddVariable again with
// the same storage identity and an unchanged dimension is a no-op that
// returns the previously issued VarID.
func (f *Function) AddVariable(storage []float64, cov ChangeOfVariables) (VarID, error) {
	id, err := f.vars.add(storage, cov)
	if err != nil {
		return 0, err
	}
	f.localStorageAllocated = false
	return id, nil
}

// AddTerm appends term to the Function over the given arguments.
func (f *Function) AddTerm(term Term, args ...VarID) error {
	if term.Arity() != len(args) {
		return ErrArityMismatch
	}

	vars := make([]*variableInfo, len(args))
	for i, id := range args {
		v, ok := f.vars.get(id)
		if !ok {
			return ErrUnknownVariable
		}
		if v.userDimension != term.VariableDimension(i) {
			return ErrDimensionMismatch
		}
		vars[i] = v
	}

	at := &addedTerm{term: term, args: append([]VarID{}, args...), variables: vars}
	if f.hessianEnabled {
		at.hessian = make([][]*mat.Dense, len(args))
		for i := range args {
			at.hessian[i] = make([]*mat.Dense, len(args))
			for j := range args {
				at.hessian[i][j] = mat.NewDense(term.VariableDimension(i), term.VariableDimension(j), nil)
			}
		}
	}

	f.terms = append(f.terms, at)
	f.localStorageAllocated = false
	return nil
}

// VariableInfo exposes a registered variable's bookkeeping fields, mainly
// for tests, logging, and diagnostic tooling.
type VariableInfo struct {
	ID                   VarID
	UserDimension        int
	SolverDimension      int
	GlobalIndex          int
	HasChangeOfVariables bool
}

// VariableInfo returns bookkeeping information for a registered variable.
func (f *Function) VariableInfo(id VarID) (VariableInfo, bool) {
	v, ok := f.vars.get(id)
	if !ok {
		return VariableInfo{}, false
	}
	return VariableInfo{
		ID:                   v.id,
		UserDimension:        v.userDimension,
		SolverDimension:      v.solverDimension,
		GlobalIndex:          v.globalIndex,
		HasChangeOfVariables: v.cov != nil,
	}, true
}

// NumberOfScalars returns the current length of the flat solver-space
// vector, i.e. the sum of every registered variable's solver dimension.
func (f *Function) NumberOfScalars() int {
	return f.vars.numberOfScalars
}

// NumberOfVariables returns how many distinct variables are registered.
func (f *Function) NumberOfVariables() int {
	return len(f.vars.variables)
}

// SetNumberOfThreads configures the number of parallel evaluation workers.
func (f *Function) SetNumberOfThreads(n int) error {
	if n <= 0 {
		return ErrInvalidThreadCount
	}
	f.numberOfThreads = n
	f.localStorageAllocated = false
	return nil
}

func (f *Function) allocateLocalStorage() {
	maxArity := 1
	maxVarDim := 1
	for _, v := range f.vars.variables {
		if v.userDimension > maxVarDim {
			maxVarDim = v.userDimension
		}
	}
	for _, t := range f.terms {
		if len(t.variables) > maxArity {
			maxArity = len(t.variables)
		}
	}

	n := f.vars.numberOfScalars
	f.workerGradAccum = make([][]float64, f.numberOfThreads)
	f.workerGradScratch = make([][][]float64, f.numberOfThreads)
	for t := 0; t < f.numberOfThreads; t++ {
		f.workerGradAccum[t] = make([]float64, n)
		scratch := make([][]float64, maxArity)
		for v := 0; v < maxArity; v++ {
			scratch[v] = make([]float64, maxVarDim)
		}
		f.workerGradScratch[t] = scratch
	}

	f.maxArity, f.maxVariableDimension = maxArity, maxVarDim
	f.localStorageAllocated = true
}

// CopyUserToGlobal translates the caller's current variable storage into the
// flat solver-space vector x (length NumberOfScalars), applying XToT where a
// ChangeOfVariables is attached.
func (f *Function) CopyUserToGlobal(x []float64) {
	start := time.Now()
	defer func() { f.copyTime += time.Since(start) }()

	for _, v := range f.vars.variables {
		if v.cov == nil {
			copy(x[v.globalIndex:v.globalIndex+v.userDimension], v.storage)
		} else {
			v.cov.XToT(x[v.globalIndex:v.globalIndex+v.solverDimension], v.storage)
		}
	}
}

// CopyGlobalToUser writes the flat solver-space vector x back into the
// caller's variable storage, applying TToX where a ChangeOfVariables is
// attached.
func (f *Function) CopyGlobalToUser(x []float64) {
	start := time.Now()
	defer func() { f.copyTime += time.Since(start) }()

	for _, v := range f.vars.variables {
		if v.cov == nil {
			copy(v.storage, x[v.globalIndex:v.globalIndex+v.userDimension])
		} else {
			v.cov.TToX(v.storage, x[v.globalIndex:v.globalIndex+v.solverDimension])
		}
	}
}

func (f *Function) copyGlobalToLocal(x []float64) {
	start := time.Now()
	defer func() { f.copyTime += time.Since(start) }()

	for _, v := range f.vars.variables {
		if v.cov == nil {
			copy(v.tempSpace, x[v.globalIndex:v.globalIndex+v.userDimension])
		} else {
			v.cov.TToX(v.tempSpace, x[v.globalIndex:v.globalIndex+v.solverDimension])
		}
	}
}

func (f *Function) copyUserToLocal() {
	start := time.Now()
	defer func() { f.copyTime += time.Since(start) }()

	for _, v := range f.vars.variables {
		copy(v.tempSpace, v.storage)
	}
}

// argumentViews returns the slice of tempSpace views AddTerm recorded for
// at's arguments, i.e. the argument tuple a Term's evaluator expects.
func argumentViews(at *addedTerm) [][]float64 {
	views := make([][]float64, len(at.variables))
	for i, v := range at.variables {
		views[i] = v.tempSpace
	}
	return views
}

type termChunk struct {
	start, end int
}

// partitionTerms splits [0, numTerms) into up to numWorkers contiguous,
// deterministic chunks.
func partitionTerms(numTerms, numWorkers int) []termChunk {
	if numWorkers > numTerms {
		numWorkers = numTerms
	}
	if numWorkers <= 0 {
		return nil
	}
	chunks := make([]termChunk, numWorkers)
	base := numTerms / numWorkers
	rem := numTerms % numWorkers
	pos := 0
	for i := 0; i < numWorkers; i++ {
		size := base
		if i < rem {
			size++
		}
		chunks[i] = termChunk{pos, pos + size}
		pos += size
	}
	return chunks
}

func firstNonNil(errs []error) error {
	for _, e := range errs {
		if e != nil {
			return e
		}
	}
	return nil
}

// Evaluate evaluates every term using the caller's current variable storage
// and returns the scalar sum of term contributions. It does not compute a
// gradient.
func (f *Function) Evaluate() (float64, error) {
	f.copyUserToLocal()
	return f.evaluateFromLocalStorage()
}

// EvaluateAt evaluates every term at the flat solver-space vector x (length
// NumberOfScalars).
func (f *Function) EvaluateAt(x []float64) (float64, error) {
	f.copyGlobalToLocal(x)
	return f.evaluateFromLocalStorage()
}

func (f *Function) evaluateFromLocalStorage() (float64, error) {
	f.evaluationsWithoutGradient++
	start := time.Now()
	defer func() { f.evaluateTime += time.Since(start) }()

	chunks := partitionTerms(len(f.terms), f.numberOfThreads)
	partials := make([]float64, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for w, chunk := range chunks {
		wg.Add(1)
		go func(w int, chunk termChunk) {
			defer wg.Done()
			var sum float64
			for i := chunk.start; i < chunk.end; i++ {
				v, err := f.terms[i].term.Evaluate(argumentViews(f.terms[i]))
				if err != nil {
					errs[w] = err
					continue
				}
				sum += v
			}
			partials[w] = sum
		}(w, chunk)
	}
	wg.Wait()

	if err := firstNonNil(errs); err != nil {
		return 0, &EvaluationError{cause: err}
	}

	var total float64
	for _, p := range partials {
		total += p
	}
	return total, nil
}

// EvaluateGradient evaluates every term at x and fills gradient (length
// NumberOfScalars) with the assembled gradient.
func (f *Function) EvaluateGradient(x, gradient []float64) (float64, error) {
	return f.evaluateWithDerivatives(x, gradient, nil, nil)
}

// EvaluateDenseHessian evaluates every term at x, fills gradient, and fills
// hessian with the assembled dense Hessian. hessian must already be sized
// NumberOfScalars x NumberOfScalars; it is zeroed before the scatter. It
// fails with ErrHessianDisabled when Hessian support was turned off at
// construction, and with ErrUnsupportedChangeOfVariables when any term
// argument has a ChangeOfVariables attached.
func (f *Function) EvaluateDenseHessian(x, gradient []float64, hessian *mat.Dense) (float64, error) {
	return f.evaluateWithDerivatives(x, gradient, hessian, nil)
}

// EvaluateSparseHessian is the sparse-output counterpart of
// EvaluateDenseHessian.
func (f *Function) EvaluateSparseHessian(x, gradient []float64, hessian *linalg.Sparse) (float64, error) {
	return f.evaluateWithDerivatives(x, gradient, nil, hessian)
}

func (f *Function) evaluateWithDerivatives(x, gradient []float64, dense *mat.Dense, sparse *linalg.Sparse) (float64, error) {
	wantHessian := dense != nil || sparse != nil
	if wantHessian && !f.hessianEnabled {
		return 0, ErrHessianDisabled
	}
	if wantHessian {
		for _, at := range f.terms {
			for _, v := range at.variables {
				if v.cov != nil {
					return 0, ErrUnsupportedChangeOfVariables
				}
			}
		}
	}

	f.evaluationsWithGradient++
	if !f.localStorageAllocated {
		f.allocateLocalStorage()
	}
	f.copyGlobalToLocal(x)

	start := time.Now()
	for t := range f.workerGradAccum {
		for i := range f.workerGradAccum[t] {
			f.workerGradAccum[t][i] = 0
		}
	}

	chunks := partitionTerms(len(f.terms), f.numberOfThreads)
	partials := make([]float64, len(chunks))
	errs := make([]error, len(chunks))

	var wg sync.WaitGroup
	for w, chunk := range chunks {
		wg.Add(1)
		go func(w int, chunk termChunk) {
			defer wg.Done()
			var sum float64
			scratch := f.workerGradScratch[w]
			accum := f.workerGradAccum[w]
			for i := chunk.start; i < chunk.end; i++ {
				at := f.terms[i]
				argViews := argumentViews(at)
				gradViews := scratch[:len(at.variables)]
				for k := range gradViews {
					gradViews[k] = gradViews[k][:len(argViews[k])]
				}

				var v float64
				var err error
				if wantHessian {
					v, err = at.term.EvaluateHessian(argViews, gradViews, at.hessian)
				} else {
					v, err = at.term.EvaluateGradient(argViews, gradViews)
				}
				if err != nil {
					errs[w] = err
					continue
				}
				sum += v

				for argIdx, varInfo := range at.variables {
					g := gradViews[argIdx]
					off := varInfo.globalIndex
					if varInfo.cov == nil {
						dst := accum[off : off+varInfo.userDimension]
						for k, gv := range g {
							dst[k] += gv
						}
					} else {
						varInfo.cov.UpdateGradient(
							accum[off:off+varInfo.solverDimension],
							x[off:off+varInfo.solverDimension],
							g,
						)
					}
				}
			}
			partials[w] = sum
		}(w, chunk)
	}
	wg.Wait()
	f.evaluateWithHessianTime += time.Since(start)

	if err := firstNonNil(errs); err != nil {
		return 0, &EvaluationError{cause: err}
	}

	start = time.Now()
	defer func() { f.writeGradientHessianTime += time.Since(start) }()

	n := f.vars.numberOfScalars
	for i := 0; i < n; i++ {
		gradient[i] = 0
	}
	for t := range f.workerGradAccum {
		for i := 0; i < n; i++ {
			gradient[i] += f.workerGradAccum[t][i]
		}
	}

	var total float64
	for _, p := range partials {
		total += p
	}

	if dense != nil {
		dense.Zero()
		scatterDenseHessian(f.terms, dense)
	}
	if sparse != nil {
		sparse.Reset()
		sparse.Reserve(f.numberOfHessianElements)
		scatterSparseHessian(f.terms, sparse)
		sparse.Compress()
		f.numberOfHessianElements = sparse.NNZ()
	}

	return total, nil
}

func scatterDenseHessian(terms []*addedTerm, hessian *mat.Dense) {
	for _, at := range terms {
		for i, vi := range at.variables {
			for j, vj := range at.variables {
				block := at.hessian[i][j]
				r0, c0 := vi.globalIndex, vj.globalIndex
				rows, cols := block.Dims()
				for r := 0; r < rows; r++ {
					for c := 0; c < cols; c++ {
						hessian.Set(r0+r, c0+c, hessian.At(r0+r, c0+c)+block.At(r, c))
					}
				}
			}
		}
	}
}

func scatterSparseHessian(terms []*addedTerm, hessian *linalg.Sparse) {
	for _, at := range terms {
		for i, vi := range at.variables {
			for j, vj := range at.variables {
				block := at.hessian[i][j]
				r0, c0 := vi.globalIndex, vj.globalIndex
				rows, cols := block.Dims()
				for r := 0; r < rows; r++ {
					for c := 0; c < cols; c++ {
						hessian.Add(r0+r, c0+c, block.At(r, c))
					}
				}
			}
		}
	}
}

// CreateSparseHessian builds the structural (nonzero-pattern) sparse matrix:
// for every term, for every pair of its arguments, a triplet is emitted at
// each (i,j) within the block with value 1. The returned matrix's NNZ is
// retained internally to pre-size subsequent numeric builds.
func (f *Function) CreateSparseHessian() *linalg.Sparse {
	n := f.vars.numberOfScalars
	out := linalg.NewSparse(n, n, f.numberOfHessianElements)
	for _, at := range f.terms {
		for _, vi := range at.variables {
			for _, vj := range at.variables {
				r0, c0 := vi.globalIndex, vj.globalIndex
				di, dj := vi.userDimension, vj.userDimension
				for r := 0; r < di; r++ {
					for c := 0; c < dj; c++ {
						out.Add(r0+r, c0+c, 1.0)
					}
				}
			}
		}
	}
	f.numberOfHessianElements = out.NNZ()
	out.Compress()
	return out
}

// PrintTimingInformation writes accumulated evaluation counters and timings
// to w.
func (f *Function) PrintTimingInformation(w io.Writer) {
	fmt.Fprintf(w, "Function evaluations without gradient : %d\n", f.evaluationsWithoutGradient)
	fmt.Fprintf(w, "Function evaluations with gradient    : %d\n", f.evaluationsWithGradient)
	fmt.Fprintf(w, "Function evaluate time            : %s\n", f.evaluateTime)
	fmt.Fprintf(w, "Function evaluate time (with g/H) : %s\n", f.evaluateWithHessianTime)
	fmt.Fprintf(w, "Function write g/H time           : %s\n", f.writeGradientHessianTime)
	fmt.Fprintf(w, "Function copy data time           : %s\n", f.copyTime)
}
