package covariance

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// randomSPD returns a well conditioned random symmetric positive definite matrix.
func randomSPD(n int, seed int64) *mat.SymDense {
	rng := rand.New(rand.NewSource(seed))
	b := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			b.Set(i, j, rng.NormFloat64())
		}
	}
	var s mat.SymDense
	s.SymOuterK(1, b)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, s.At(i, i)+float64(n))
	}
	return &s
}

// tridiagonal returns a positive definite matrix with nonzero elements only
// on the diagonal and first off-diagonal.
func tridiagonal(n int) *mat.SymDense {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		s.SetSym(i, i, 2.5)
		if i+1 < n {
			s.SetSym(i, i+1, -1)
		}
	}
	return s
}

func toPacked(s mat.Symmetric) []float64 {
	n := s.SymmetricDim()
	packed := make([]float64, PackedSize(n))
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			packed[packedIndex(i, j, n)] = s.At(i, j)
		}
	}
	return packed
}

func newFromCovariance(t testing.TB, s mat.Symmetric, options ...Option) *Matrix {
	t.Helper()
	n := s.SymmetricDim()
	m, err := New(n, options...)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			require.NoError(t, m.SetCovariance(i, j, s.At(i, j)))
		}
	}
	return m
}

func newFromInverse(t testing.TB, s mat.Symmetric, options ...Option) *Matrix {
	t.Helper()
	n := s.SymmetricDim()
	m, err := New(n, options...)
	require.NoError(t, err)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			require.NoError(t, m.SetInverseCovariance(i, j, s.At(i, j)))
		}
	}
	return m
}

// elements reads every covariance and inverse covariance element.
func elements(t testing.TB, m *Matrix) (cov, icov []float64) {
	t.Helper()
	n := m.Size()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c, err := m.Covariance(i, j)
			require.NoError(t, err)
			ic, err := m.InverseCovariance(i, j)
			require.NoError(t, err)
			cov = append(cov, c)
			icov = append(icov, ic)
		}
	}
	return cov, icov
}

func inverseOf(t testing.TB, s mat.Symmetric) *mat.Dense {
	t.Helper()
	var inv mat.Dense
	require.NoError(t, inv.Inverse(s))
	return &inv
}

// symmetrize copies the upper triangle of a square matrix into a SymDense.
func symmetrize(d mat.Matrix) *mat.SymDense {
	n, _ := d.Dims()
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, d.At(i, j))
		}
	}
	return s
}
