package covariance

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// checkPacked resolves the matrix size for a packed array, inferring it from
// the array length when size <= 0.
func checkPacked(packed []float64, size int) (int, error) {
	if size <= 0 {
		return ImpliedSize(len(packed))
	}
	if len(packed) != PackedSize(size) {
		return 0, fmt.Errorf("packed length %d for size %d: %w", len(packed), size, ErrInvalidSize)
	}
	return size, nil
}

// CholeskyDecompose replaces a packed symmetric positive definite matrix with
// its lower-triangular Cholesky factor L, where L(i,j) for i >= j is stored at
// SymmetricIndex(i,j). The size is inferred from len(packed) when size <= 0.
//
// A non-positive pivot yields ErrNotPositiveDefinite, in which case the
// contents of packed are unspecified.
func CholeskyDecompose(packed []float64, size int) error {
	n, err := checkPacked(packed, size)
	if err != nil {
		return err
	}
	for j := 0; j < n; j++ {
		for i := j; i < n; i++ {
			sum := packed[packedIndex(i, j, n)]
			for k := 0; k < j; k++ {
				sum -= packed[packedIndex(i, k, n)] * packed[packedIndex(j, k, n)]
			}
			if i == j {
				if !(sum > 0) {
					return fmt.Errorf("cholesky pivot %d is %g: %w", j, sum, ErrNotPositiveDefinite)
				}
				packed[packedIndex(j, j, n)] = math.Sqrt(sum)
			} else {
				packed[packedIndex(i, j, n)] = sum / packed[packedIndex(j, j, n)]
			}
		}
	}
	return nil
}

// InvertCholesky replaces a packed Cholesky factor L, as produced by
// CholeskyDecompose, with the packed inverse of the original matrix L·Lᵗ.
// The input must be a valid factor; this is not checked.
func InvertCholesky(packed []float64, size int) error {
	n, err := checkPacked(packed, size)
	if err != nil {
		return err
	}
	// Invert L in place one row at a time. Row i of L⁻¹ only needs the
	// original row i of L and the already inverted rows above it.
	for i := 0; i < n; i++ {
		d := 1 / packed[packedIndex(i, i, n)]
		for j := 0; j < i; j++ {
			var sum float64
			for k := j; k < i; k++ {
				sum += packed[packedIndex(i, k, n)] * packed[packedIndex(k, j, n)]
			}
			packed[packedIndex(i, j, n)] = -d * sum
		}
		packed[packedIndex(i, i, n)] = d
	}
	// A⁻¹ = L⁻ᵗ·L⁻¹. Element (i,j), i >= j, reads rows k >= i only, so filling
	// rows in increasing order never clobbers a value still needed.
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			var sum float64
			for k := i; k < n; k++ {
				sum += packed[packedIndex(k, i, n)] * packed[packedIndex(k, j, n)]
			}
			packed[packedIndex(i, j, n)] = sum
		}
	}
	return nil
}

// SymmetricMultiply returns packed·vector for a packed symmetric matrix.
func SymmetricMultiply(packed, vector []float64) ([]float64, error) {
	n, err := ImpliedSize(len(packed))
	if err != nil {
		return nil, err
	}
	if len(vector) != n {
		return nil, fmt.Errorf("vector length %d for size %d: %w", len(vector), n, ErrSizeMismatch)
	}
	result := make([]float64, n)
	symmetricMultiplyTo(result, packed, vector, n)
	return result, nil
}

// symmetricMultiplyTo computes dst = packed·vector with no validation.
// dst must not alias vector.
func symmetricMultiplyTo(dst, packed, vector []float64, n int) {
	blas64.Spmv(1,
		blas64.SymmetricPacked{N: n, Data: packed, Uplo: blas.Upper},
		blas64.Vector{N: n, Data: vector, Inc: 1},
		0,
		blas64.Vector{N: n, Data: dst, Inc: 1},
	)
}
