// Package linalg provides the small slice of sparse matrix support the
// objective package needs: a triplet (COO) builder that compresses into a
// sorted CSR-like structure. Dense matrices are gonum's mat.Dense; no
// wrapper is added for those since mat.Dense is already the right shape.
package linalg

import "sort"

// Triplet is a single (row, col, value) contribution to a sparse matrix,
// named after the Nonzero{Row,Col,Val} convention used by triplet-based
// sparse-matrix builders across the optimization ecosystem.
type Triplet struct {
	Row, Col int
	Val      float64
}

// Sparse is a triplet-built sparse matrix. Triplets accumulate via Add until
// Compress is called, after which the matrix exposes a sorted, duplicate-
// summed row-major structure (RowPtr/ColIdx/Vals, CSR-style) analogous to
// Eigen::SparseMatrix::makeCompressed.
type Sparse struct {
	Rows, Cols int

	triplets   []Triplet
	compressed bool

	RowPtr []int
	ColIdx []int
	Vals   []float64
}

// NewSparse creates an empty rows x cols triplet matrix, optionally
// preallocating capacity for nnz triplets.
func NewSparse(rows, cols, nnzHint int) *Sparse {
	s := &Sparse{Rows: rows, Cols: cols}
	if nnzHint > 0 {
		s.triplets = make([]Triplet, 0, nnzHint)
	}
	return s
}

// Add appends a triplet contribution. Multiple triplets at the same (row,
// col) are summed together during Compress, matching Eigen's
// setFromTriplets semantics.
func (s *Sparse) Add(row, col int, val float64) {
	s.triplets = append(s.triplets, Triplet{row, col, val})
	s.compressed = false
}

// Reserve grows the triplet capacity to at least nnz, typically the count
// retained from a prior pattern pass.
func (s *Sparse) Reserve(nnz int) {
	if cap(s.triplets) < nnz {
		grown := make([]Triplet, len(s.triplets), nnz)
		copy(grown, s.triplets)
		s.triplets = grown
	}
}

// Reset discards all triplets and any compressed structure, keeping the
// matrix dimensions.
func (s *Sparse) Reset() {
	s.triplets = s.triplets[:0]
	s.compressed = false
	s.RowPtr, s.ColIdx, s.Vals = nil, nil, nil
}

// NNZ returns the number of triplets added since the last Reset, i.e. the
// count a prior pattern pass would retain to pre-size a later numeric build.
func (s *Sparse) NNZ() int {
	return len(s.triplets)
}

// Compress sorts the accumulated triplets by (row, col), sums duplicates,
// and builds the CSR-style RowPtr/ColIdx/Vals structure. It is idempotent
// until the next Add or Reset.
func (s *Sparse) Compress() {
	if s.compressed {
		return
	}
	t := s.triplets
	sort.Slice(t, func(i, j int) bool {
		if t[i].Row != t[j].Row {
			return t[i].Row < t[j].Row
		}
		return t[i].Col < t[j].Col
	})

	rowPtr := make([]int, s.Rows+1)
	colIdx := make([]int, 0, len(t))
	vals := make([]float64, 0, len(t))

	row := 0
	for i := 0; i < len(t); {
		j := i + 1
		for j < len(t) && t[j].Row == t[i].Row && t[j].Col == t[i].Col {
			j++
		}
		var sum float64
		for k := i; k < j; k++ {
			sum += t[k].Val
		}
		for row <= t[i].Row {
			rowPtr[row] = len(colIdx)
			row++
		}
		colIdx = append(colIdx, t[i].Col)
		vals = append(vals, sum)
		i = j
	}
	for row <= s.Rows {
		rowPtr[row] = len(colIdx)
		row++
	}

	s.RowPtr, s.ColIdx, s.Vals = rowPtr, colIdx, vals
	s.compressed = true
}

// At returns the value at (row, col) in a compressed matrix. It performs a
// binary search within the row's column range.
func (s *Sparse) At(row, col int) float64 {
	if !s.compressed {
		s.Compress()
	}
	lo, hi := s.RowPtr[row], s.RowPtr[row+1]
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := s.ColIdx[mid]; {
		case c == col:
			return s.Vals[mid]
		case c < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return 0
}

// HasNonzero reports whether (row, col) appears in the compressed sparsity
// pattern, regardless of the stored value being exactly zero.
func (s *Sparse) HasNonzero(row, col int) bool {
	if !s.compressed {
		s.Compress()
	}
	lo, hi := s.RowPtr[row], s.RowPtr[row+1]
	for lo < hi {
		mid := (lo + hi) / 2
		switch c := s.ColIdx[mid]; {
		case c == col:
			return true
		case c < col:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return false
}
