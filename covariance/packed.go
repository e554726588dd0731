package covariance

import (
	"fmt"
	"math"
)

// SymmetricIndex returns the offset of element (row,col) of a size×size
// symmetric matrix stored in the BLAS packed format. Only one triangle is
// stored, so (row,col) and (col,row) map to the same offset.
//
// For row <= col the offset is col + row*(2*size-row-1)/2, which is the
// row-major upper packed layout used by gonum's blas64.SymmetricPacked.
func SymmetricIndex(row, col, size int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("symmetric index with size %d: %w", size, ErrInvalidSize)
	}
	if row < 0 || row >= size || col < 0 || col >= size {
		return 0, fmt.Errorf("element (%d,%d) of %dx%d matrix: %w", row, col, size, size, ErrInvalidIndex)
	}
	return packedIndex(row, col, size), nil
}

// packedIndex is SymmetricIndex without range checks.
func packedIndex(row, col, size int) int {
	if row > col {
		row, col = col, row
	}
	return col + row*(2*size-row-1)/2
}

// PackedSize returns the number of packed elements needed to store a
// size×size symmetric matrix.
func PackedSize(size int) int {
	return size * (size + 1) / 2
}

// ImpliedSize returns the matrix size whose packed storage has nelem
// elements, or ErrInvalidSize if nelem is not a triangular number.
func ImpliedSize(nelem int) (int, error) {
	if nelem <= 0 {
		return 0, fmt.Errorf("packed length %d: %w", nelem, ErrInvalidSize)
	}
	// Solve size*(size+1)/2 = nelem and verify the rounded root exactly.
	size := int(math.Round((math.Sqrt(8*float64(nelem)+1) - 1) / 2))
	if PackedSize(size) != nelem {
		return 0, fmt.Errorf("packed length %d is not triangular: %w", nelem, ErrInvalidSize)
	}
	return size, nil
}
