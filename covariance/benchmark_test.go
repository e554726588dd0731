package covariance

import (
	"fmt"
	"math/rand"
	"testing"
)

// BenchmarkMatrix measures the main operations across matrix sizes
func BenchmarkMatrix(b *testing.B) {
	sizes := []int{5, 20, 100, 250}

	for _, n := range sizes {
		b.Run(fmt.Sprintf("Decompose_n%d", n), func(b *testing.B) {
			benchmarkDecompose(b, n)
		})

		b.Run(fmt.Sprintf("ChiSquare_n%d", n), func(b *testing.B) {
			benchmarkChiSquare(b, n)
		})

		b.Run(fmt.Sprintf("Sample_n%d", n), func(b *testing.B) {
			benchmarkSample(b, n)
		})

		b.Run(fmt.Sprintf("CompressCycle_n%d", n), func(b *testing.B) {
			benchmarkCompressCycle(b, n)
		})
	}
}

func benchmarkDecompose(b *testing.B, n int) {
	src := toPacked(randomSPD(n, 42))
	work := make([]float64, len(src))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		copy(work, src)
		if err := CholeskyDecompose(work, n); err != nil {
			b.Fatalf("CholeskyDecompose() error = %v", err)
		}
		if err := InvertCholesky(work, n); err != nil {
			b.Fatalf("InvertCholesky() error = %v", err)
		}
	}
}

func benchmarkChiSquare(b *testing.B, n int) {
	m := newFromCovariance(b, randomSPD(n, 42))

	rng := rand.New(rand.NewSource(42))
	delta := make([]float64, n)
	for i := range delta {
		delta[i] = rng.NormFloat64()
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := m.ChiSquare(delta); err != nil {
			b.Fatalf("ChiSquare() error = %v", err)
		}
	}
}

func benchmarkSample(b *testing.B, n int) {
	m := newFromCovariance(b, randomSPD(n, 42), WithRandomSeed(42))

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := m.Sample(10); err != nil {
			b.Fatalf("Sample() error = %v", err)
		}
	}
}

// benchmarkCompressCycle compresses then forces decompression of a sparse inverse
func benchmarkCompressCycle(b *testing.B, n int) {
	m := newFromInverse(b, tridiagonal(n))
	delta := make([]float64, n)
	delta[0] = 1

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		m.Compress()
		if _, err := m.ChiSquare(delta); err != nil {
			b.Fatalf("ChiSquare() error = %v", err)
		}
	}
}
