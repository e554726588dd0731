package covariance

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
)

// Sample draws nsample independent residual vectors from the zero-mean
// Gaussian with this covariance. The vectors are packed one after another
// into the returned slice of length nsample*Size().
//
// Each call uses a fresh generator seeded from the base seed and an internal
// counter, so repeated calls yield independent draws while a matrix built
// with WithRandomSeed stays reproducible.
func (m *Matrix) Sample(nsample int) ([]float64, error) {
	if nsample <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d: %w", nsample, ErrInvalidSize)
	}
	ok, err := m.readsCov()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("no elements set: %w", ErrNotPositiveDefinite)
	}
	if err := m.decomposeCov(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(m.seed + m.nextSeed))
	m.nextSeed++

	// The packed lower factor L is laid out as its transpose in upper packed
	// storage, so L·z is a transposed triangular product.
	factor := blas64.TriangularPacked{
		Uplo: blas.Upper,
		Diag: blas.NonUnit,
		N:    m.size,
		Data: m.cholesky,
	}
	residuals := make([]float64, nsample*m.size)
	for s := 0; s < nsample; s++ {
		z := residuals[s*m.size : (s+1)*m.size]
		for i := range z {
			z[i] = rng.NormFloat64()
		}
		blas64.Tpmv(blas.Trans, factor, blas64.Vector{N: m.size, Data: z, Inc: 1})
	}
	return residuals, nil
}
