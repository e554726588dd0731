package covariance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestSampleLength(t *testing.T) {
	m := newFromCovariance(t, tridiagonal(4), WithRandomSeed(1))

	for _, n := range []int{1, 3, 100} {
		residuals, err := m.Sample(n)
		require.NoError(t, err)
		assert.Len(t, residuals, n*4)
	}

	for _, n := range []int{0, -2} {
		_, err := m.Sample(n)
		require.ErrorIs(t, err, ErrInvalidSize)
	}
}

func TestSampleCovarianceConverges(t *testing.T) {
	target := mat.NewSymDense(3, []float64{
		4, 1.2, 0.5,
		1.2, 2, -0.3,
		0.5, -0.3, 1,
	})
	const nsample = 20000

	tests := []struct {
		name string
		m    *Matrix
	}{
		{"from covariance", newFromCovariance(t, target, WithRandomSeed(42))},
		{"from inverse", newFromInverse(t, symmetrize(inverseOf(t, target)), WithRandomSeed(42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			residuals, err := tt.m.Sample(nsample)
			require.NoError(t, err)

			var got mat.SymDense
			stat.CovarianceMatrix(&got, mat.NewDense(nsample, 3, residuals), nil)
			for i := 0; i < 3; i++ {
				for j := 0; j < 3; j++ {
					assert.InDelta(t, target.At(i, j), got.At(i, j), 0.2, "(%d,%d)", i, j)
				}
			}
		})
	}
}

func TestSampleSeeding(t *testing.T) {
	s := randomSPD(3, 6)
	a := newFromCovariance(t, s, WithRandomSeed(99))
	b := newFromCovariance(t, s, WithRandomSeed(99))

	first, err := a.Sample(4)
	require.NoError(t, err)
	same, err := b.Sample(4)
	require.NoError(t, err)
	assert.Equal(t, first, same, "equal seeds give equal draws")

	second, err := a.Sample(4)
	require.NoError(t, err)
	assert.NotEqual(t, first, second, "successive calls are independent")
}

func TestSampleDiagonalScale(t *testing.T) {
	m, err := New(2, WithRandomSeed(5))
	require.NoError(t, err)
	require.NoError(t, m.SetCovariance(0, 0, 1))
	require.NoError(t, m.SetCovariance(1, 1, 0))
	_, err = m.Sample(1)
	require.ErrorIs(t, err, ErrNotPositiveDefinite)

	// A tiny variance gives tiny residuals on that axis.
	require.NoError(t, m.SetCovariance(1, 1, 1e-20))
	residuals, err := m.Sample(50)
	require.NoError(t, err)
	for s := 0; s < 50; s++ {
		assert.Less(t, residuals[2*s+1]*residuals[2*s+1], 1e-16)
	}
}

func TestSampleWhileCompressed(t *testing.T) {
	m := newFromInverse(t, tridiagonal(5), WithRandomSeed(3))
	twin := newFromInverse(t, tridiagonal(5), WithRandomSeed(3))
	require.True(t, m.Compress())

	got, err := m.Sample(10)
	require.NoError(t, err)
	want, err := twin.Sample(10)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, m.IsCompressed())
}
