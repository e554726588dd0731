package binned

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/n0madic/go-likely/covariance"
)

// Data holds one value per bin of a multi-dimensional grid and, once any
// element has been set, the covariance matrix of those values.
//
// Bins are flattened in row-major order: the last axis varies fastest.
type Data struct {
	axes    []Binning
	nbins   int
	values  []float64
	cov     *covariance.Matrix
	covOpts []covariance.Option
	log     *logrus.Entry
}

// Option defines a functional option for configuring Data
type Option func(*Data)

// WithLogger sets the entry used for logging; it is also passed to the covariance matrix
func WithLogger(log *logrus.Entry) Option {
	return func(d *Data) {
		if log != nil {
			d.log = log
			d.covOpts = append(d.covOpts, covariance.WithLogger(log))
		}
	}
}

// WithCovarianceOptions sets options applied when the covariance matrix is created
func WithCovarianceOptions(options ...covariance.Option) Option {
	return func(d *Data) {
		d.covOpts = append(d.covOpts, options...)
	}
}

// New creates binned data over the given axes with every value zero.
func New(axes []Binning, options ...Option) (*Data, error) {
	if len(axes) == 0 {
		return nil, ErrNoAxes
	}
	nbins := 1
	for i, axis := range axes {
		if axis == nil {
			return nil, fmt.Errorf("axis %d is nil: %w", i, ErrNoAxes)
		}
		if axis.NBins() <= 0 {
			return nil, fmt.Errorf("axis %d has %d bins: %w", i, axis.NBins(), ErrInvalidBinning)
		}
		nbins *= axis.NBins()
	}
	d := &Data{
		axes:   append([]Binning(nil), axes...),
		nbins:  nbins,
		values: make([]float64, nbins),
	}
	for _, opt := range options {
		opt(d)
	}
	if d.log == nil {
		d.log = logrus.NewEntry(logrus.StandardLogger())
	}
	return d, nil
}

// NAxes returns the number of axes.
func (d *Data) NAxes() int {
	return len(d.axes)
}

// Axis returns the binning of axis i.
func (d *Data) Axis(i int) (Binning, error) {
	if i < 0 || i >= len(d.axes) {
		return nil, fmt.Errorf("axis %d of %d: %w", i, len(d.axes), ErrOutOfRange)
	}
	return d.axes[i], nil
}

// NBins returns the total number of bins, the product of the per-axis counts.
func (d *Data) NBins() int {
	return d.nbins
}

// FlatIndex maps per-axis bin indices to a flat bin index.
func (d *Data) FlatIndex(indices []int) (int, error) {
	if len(indices) != len(d.axes) {
		return 0, fmt.Errorf("%d indices for %d axes: %w", len(indices), len(d.axes), covariance.ErrSizeMismatch)
	}
	flat := 0
	for i, axis := range d.axes {
		if err := checkBin(indices[i], axis.NBins()); err != nil {
			return 0, fmt.Errorf("axis %d: %w", i, err)
		}
		flat = flat*axis.NBins() + indices[i]
	}
	return flat, nil
}

// BinIndices maps a flat bin index back to per-axis bin indices.
func (d *Data) BinIndices(flat int) ([]int, error) {
	if err := checkBin(flat, d.nbins); err != nil {
		return nil, err
	}
	indices := make([]int, len(d.axes))
	for i := len(d.axes) - 1; i >= 0; i-- {
		n := d.axes[i].NBins()
		indices[i] = flat % n
		flat /= n
	}
	return indices, nil
}

// FlatIndexAt returns the flat index of the bin containing the point with one
// coordinate per axis.
func (d *Data) FlatIndexAt(point []float64) (int, error) {
	if len(point) != len(d.axes) {
		return 0, fmt.Errorf("%d coordinates for %d axes: %w", len(point), len(d.axes), covariance.ErrSizeMismatch)
	}
	indices := make([]int, len(d.axes))
	for i, axis := range d.axes {
		index, err := axis.BinIndex(point[i])
		if err != nil {
			return 0, fmt.Errorf("axis %d: %w", i, err)
		}
		indices[i] = index
	}
	return d.FlatIndex(indices)
}

// BinCenter returns the center of a bin along every axis.
func (d *Data) BinCenter(flat int) ([]float64, error) {
	indices, err := d.BinIndices(flat)
	if err != nil {
		return nil, err
	}
	center := make([]float64, len(d.axes))
	for i, axis := range d.axes {
		if center[i], err = axis.BinCenter(indices[i]); err != nil {
			return nil, err
		}
	}
	return center, nil
}

// Value returns the value stored in a bin.
func (d *Data) Value(flat int) (float64, error) {
	if err := checkBin(flat, d.nbins); err != nil {
		return 0, err
	}
	return d.values[flat], nil
}

// SetValue stores a value in a bin.
func (d *Data) SetValue(flat int, value float64) error {
	if err := checkBin(flat, d.nbins); err != nil {
		return err
	}
	d.values[flat] = value
	return nil
}

// HasCovariance reports whether any covariance element has been set.
func (d *Data) HasCovariance() bool {
	return d.cov != nil
}

// Covariance returns the covariance matrix, or nil before any element is set.
func (d *Data) Covariance() *covariance.Matrix {
	return d.cov
}

func (d *Data) ensureCovariance() (*covariance.Matrix, error) {
	if d.cov == nil {
		cov, err := covariance.New(d.nbins, d.covOpts...)
		if err != nil {
			return nil, err
		}
		d.cov = cov
		d.log.WithField("nbins", d.nbins).Debug("Created covariance matrix for binned data")
	}
	return d.cov, nil
}

// SetCovariance sets the covariance between two bins.
func (d *Data) SetCovariance(row, col int, value float64) error {
	cov, err := d.ensureCovariance()
	if err != nil {
		return err
	}
	return cov.SetCovariance(row, col, value)
}

// SetInverseCovariance sets the inverse covariance between two bins.
func (d *Data) SetInverseCovariance(row, col int, value float64) error {
	cov, err := d.ensureCovariance()
	if err != nil {
		return err
	}
	return cov.SetInverseCovariance(row, col, value)
}

// ChiSquare returns the chi-square of prediction against the stored values
// using the covariance matrix.
func (d *Data) ChiSquare(prediction []float64) (float64, error) {
	if len(prediction) != d.nbins {
		return 0, fmt.Errorf("prediction length %d for %d bins: %w", len(prediction), d.nbins, covariance.ErrSizeMismatch)
	}
	if d.cov == nil {
		return 0, fmt.Errorf("no covariance set: %w", covariance.ErrNotPositiveDefinite)
	}
	delta := make([]float64, d.nbins)
	for i, v := range d.values {
		delta[i] = v - prediction[i]
	}
	return d.cov.ChiSquare(delta)
}

// Compress compresses the covariance matrix if there is one.
func (d *Data) Compress() bool {
	if d.cov == nil {
		return false
	}
	return d.cov.Compress()
}
