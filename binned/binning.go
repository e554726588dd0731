// Package binned stores values on a multi-dimensional grid of bins together
// with their covariance matrix.
package binned

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrInvalidBinning is returned when a binning cannot be constructed.
	ErrInvalidBinning = errors.New("binned: invalid binning")

	// ErrOutOfRange is returned for a value outside every bin or a bin index
	// outside [0,NBins()-1].
	ErrOutOfRange = errors.New("binned: out of range")

	// ErrNoAxes is returned when Data is created without any axis.
	ErrNoAxes = errors.New("binned: no axes provided")
)

// Binning divides one axis into contiguous bins.
type Binning interface {
	// NBins returns the number of bins.
	NBins() int
	// BinIndex returns the bin containing value. Each bin includes its lower
	// edge and excludes its upper edge, except the last bin which includes both.
	BinIndex(value float64) (int, error)
	BinCenter(index int) (float64, error)
	BinWidth(index int) (float64, error)
}

// UniformBinning splits [lo,hi] into equal width bins.
type UniformBinning struct {
	nbins  int
	lo, hi float64
	width  float64
}

var _ Binning = (*UniformBinning)(nil)

// NewUniformBinning creates nbins equal bins covering [lo,hi].
func NewUniformBinning(nbins int, lo, hi float64) (*UniformBinning, error) {
	if nbins <= 0 {
		return nil, fmt.Errorf("bin count must be positive, got %d: %w", nbins, ErrInvalidBinning)
	}
	if !(hi > lo) {
		return nil, fmt.Errorf("range [%g,%g] is empty: %w", lo, hi, ErrInvalidBinning)
	}
	return &UniformBinning{
		nbins: nbins,
		lo:    lo,
		hi:    hi,
		width: (hi - lo) / float64(nbins),
	}, nil
}

func (b *UniformBinning) NBins() int {
	return b.nbins
}

func (b *UniformBinning) BinIndex(value float64) (int, error) {
	if !(value >= b.lo && value <= b.hi) {
		return 0, fmt.Errorf("value %g outside [%g,%g]: %w", value, b.lo, b.hi, ErrOutOfRange)
	}
	index := int((value - b.lo) / b.width)
	if index >= b.nbins {
		index = b.nbins - 1
	}
	return index, nil
}

func (b *UniformBinning) BinCenter(index int) (float64, error) {
	if err := checkBin(index, b.nbins); err != nil {
		return 0, err
	}
	return b.lo + (float64(index)+0.5)*b.width, nil
}

func (b *UniformBinning) BinWidth(index int) (float64, error) {
	if err := checkBin(index, b.nbins); err != nil {
		return 0, err
	}
	return b.width, nil
}

// NonUniformBinning uses explicit, strictly increasing bin edges.
type NonUniformBinning struct {
	edges []float64
}

var _ Binning = (*NonUniformBinning)(nil)

// NewNonUniformBinning creates len(edges)-1 bins from the given edges.
func NewNonUniformBinning(edges []float64) (*NonUniformBinning, error) {
	if len(edges) < 2 {
		return nil, fmt.Errorf("need at least 2 edges, got %d: %w", len(edges), ErrInvalidBinning)
	}
	for i := 1; i < len(edges); i++ {
		if !(edges[i] > edges[i-1]) {
			return nil, fmt.Errorf("edge %d (%g) does not increase: %w", i, edges[i], ErrInvalidBinning)
		}
	}
	return &NonUniformBinning{edges: append([]float64(nil), edges...)}, nil
}

func (b *NonUniformBinning) NBins() int {
	return len(b.edges) - 1
}

func (b *NonUniformBinning) BinIndex(value float64) (int, error) {
	n := b.NBins()
	if !(value >= b.edges[0] && value <= b.edges[n]) {
		return 0, fmt.Errorf("value %g outside [%g,%g]: %w", value, b.edges[0], b.edges[n], ErrOutOfRange)
	}
	// First edge strictly above value closes the bin.
	index := sort.SearchFloat64s(b.edges, value)
	if index < len(b.edges) && b.edges[index] == value {
		index++
	}
	index--
	if index >= n {
		index = n - 1
	}
	return index, nil
}

func (b *NonUniformBinning) BinCenter(index int) (float64, error) {
	if err := checkBin(index, b.NBins()); err != nil {
		return 0, err
	}
	return 0.5 * (b.edges[index] + b.edges[index+1]), nil
}

func (b *NonUniformBinning) BinWidth(index int) (float64, error) {
	if err := checkBin(index, b.NBins()); err != nil {
		return 0, err
	}
	return b.edges[index+1] - b.edges[index], nil
}

func checkBin(index, nbins int) error {
	if index < 0 || index >= nbins {
		return fmt.Errorf("bin %d of %d: %w", index, nbins, ErrOutOfRange)
	}
	return nil
}
