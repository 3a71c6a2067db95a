package linalg

import (
	"math"
	"testing"
)

func TestCompressSumsDuplicates(t *testing.T) {
	s := NewSparse(3, 3, 4)
	s.Add(0, 0, 1)
	s.Add(2, 1, 5)
	s.Add(0, 0, 2)
	s.Add(1, 2, -1)
	s.Compress()

	if got := s.At(0, 0); math.Abs(got-3) > 0 {
		t.Fatalf("At(0,0) = %v, want 3", got)
	}
	if got := s.At(2, 1); got != 5 {
		t.Fatalf("At(2,1) = %v, want 5", got)
	}
	if got := s.At(1, 2); got != -1 {
		t.Fatalf("At(1,2) = %v, want -1", got)
	}
	if got := s.At(1, 1); got != 0 {
		t.Fatalf("At(1,1) = %v, want 0", got)
	}

	wantRowPtr := []int{0, 1, 2, 3}
	for i, w := range wantRowPtr {
		if s.RowPtr[i] != w {
			t.Fatalf("RowPtr = %v, want %v", s.RowPtr, wantRowPtr)
		}
	}
}

func TestHasNonzeroTracksPattern(t *testing.T) {
	s := NewSparse(2, 2, 0)
	s.Add(0, 1, 0) // explicit zero still belongs to the pattern
	s.Add(1, 0, 7)
	s.Compress()

	if !s.HasNonzero(0, 1) {
		t.Fatal("pattern should contain (0,1) even with a stored zero")
	}
	if !s.HasNonzero(1, 0) {
		t.Fatal("pattern should contain (1,0)")
	}
	if s.HasNonzero(0, 0) {
		t.Fatal("pattern should not contain (0,0)")
	}
}

func TestResetKeepsDimensions(t *testing.T) {
	s := NewSparse(4, 4, 2)
	s.Add(3, 3, 1)
	s.Compress()
	s.Reset()
	s.Reserve(8)

	if s.NNZ() != 0 {
		t.Fatalf("NNZ after Reset = %d, want 0", s.NNZ())
	}
	if s.Rows != 4 || s.Cols != 4 {
		t.Fatalf("dimensions changed: %dx%d", s.Rows, s.Cols)
	}

	s.Add(0, 0, 2)
	s.Compress()
	if got := s.At(0, 0); got != 2 {
		t.Fatalf("At(0,0) after rebuild = %v, want 2", got)
	}
	if s.At(3, 3) != 0 {
		t.Fatal("stale value survived Reset")
	}
}
