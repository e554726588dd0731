package covariance

import (
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/n0madic/go-likely/codec"
)

// CacheState reports which dense representations a Matrix currently holds.
type CacheState uint8

const (
	// Empty means no element has been set yet.
	Empty CacheState = iota
	// CovarianceOnly means only the covariance is held, usually right after SetCovariance.
	CovarianceOnly
	// InverseOnly means only the inverse covariance is held.
	InverseOnly
	// Both means covariance and inverse covariance are held and consistent.
	Both
)

func (s CacheState) String() string {
	switch s {
	case Empty:
		return "empty"
	case CovarianceOnly:
		return "covariance-only"
	case InverseOnly:
		return "inverse-only"
	case Both:
		return "both"
	default:
		return fmt.Sprintf("CacheState(%d)", uint8(s))
	}
}

// representation identifies the authoritative (most recently written) form.
type representation uint8

const (
	noRepresentation representation = iota
	covarianceRep
	inverseRep
)

func (r representation) String() string {
	switch r {
	case covarianceRep:
		return "covariance"
	case inverseRep:
		return "inverse"
	default:
		return "none"
	}
}

var discardLog = func() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}()

// Matrix is a size×size symmetric positive definite covariance matrix that
// can be assembled and queried through either the covariance or its inverse.
// The missing representation and the Cholesky factor are computed on demand
// and cached, and the storage can be compressed losslessly.
//
// Read methods update internal caches, so a Matrix is not safe for concurrent
// use; callers sharing one must serialize access.
type Matrix struct {
	size    int
	npacked int

	state  CacheState
	source representation

	// Packed storage. cholesky is always the factor of cov, never of icov.
	cov      []float64
	icov     []float64
	cholesky []float64

	// encoding outlives decompression until the next write invalidates it,
	// so compressed and encoding != nil are not the same thing.
	compressed bool
	encoding   *compactEncoding

	seed     int64 // base seed for Sample
	nextSeed int64 // advanced by every successful Sample

	codec codec.Type
	log   *logrus.Entry
}

// Option defines a functional option for configuring a Matrix
type Option func(*Matrix)

// WithLogger sets the entry used for debug logging of cache activity
func WithLogger(log *logrus.Entry) Option {
	return func(m *Matrix) {
		if log != nil {
			m.log = log
		}
	}
}

// WithRandomSeed sets the base seed used by Sample. Zero selects a time-based seed.
func WithRandomSeed(seed int64) Option {
	return func(m *Matrix) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		m.seed = seed
	}
}

// WithCodec sets the codec Save uses for the persisted payload
func WithCodec(c codec.Type) Option {
	return func(m *Matrix) {
		m.codec = c
	}
}

// New creates a size×size covariance matrix with all elements zero. The
// matrix is not usable for algebra until enough elements have been set to
// make it positive definite.
func New(size int, options ...Option) (*Matrix, error) {
	if size <= 0 {
		return nil, fmt.Errorf("matrix size must be positive, got %d: %w", size, ErrInvalidSize)
	}
	m := &Matrix{
		size:    size,
		npacked: PackedSize(size),
		seed:    time.Now().UnixNano(),
		codec:   codec.Zstd,
		log:     discardLog,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Size returns the fixed dimension of the matrix.
func (m *Matrix) Size() int {
	return m.size
}

// State returns the representation cache state. It does not decompress, so
// for a compressed matrix it reports the state that will be restored.
func (m *Matrix) State() CacheState {
	return m.state
}

func (m *Matrix) fields() logrus.Fields {
	return logrus.Fields{"size": m.size, "state": m.state, "source": m.source}
}

func (m *Matrix) index(row, col int) (int, error) {
	return SymmetricIndex(row, col, m.size)
}

// Covariance returns element (row,col) of the covariance matrix, computing it
// from the inverse covariance if needed. A matrix with no elements set reads as zero.
func (m *Matrix) Covariance(row, col int) (float64, error) {
	idx, err := m.index(row, col)
	if err != nil {
		return 0, err
	}
	ok, err := m.readsCov()
	if err != nil || !ok {
		return 0, err
	}
	return m.cov[idx], nil
}

// InverseCovariance returns element (row,col) of the inverse covariance
// matrix, computing it from the covariance if needed.
func (m *Matrix) InverseCovariance(row, col int) (float64, error) {
	idx, err := m.index(row, col)
	if err != nil {
		return 0, err
	}
	if err := m.requireICov(); err != nil {
		return 0, err
	}
	return m.icov[idx], nil
}

// SetCovariance sets element (row,col), and therefore (col,row), of the
// covariance matrix. The inverse covariance and Cholesky factor are discarded.
func (m *Matrix) SetCovariance(row, col int, value float64) error {
	idx, err := m.index(row, col)
	if err != nil {
		return err
	}
	if err := m.changesCov(); err != nil {
		return err
	}
	m.cov[idx] = value
	return nil
}

// SetInverseCovariance sets element (row,col), and therefore (col,row), of
// the inverse covariance matrix. The covariance and Cholesky factor are discarded.
func (m *Matrix) SetInverseCovariance(row, col int, value float64) error {
	idx, err := m.index(row, col)
	if err != nil {
		return err
	}
	if err := m.changesICov(); err != nil {
		return err
	}
	m.icov[idx] = value
	return nil
}

// MultiplyByInverseCovariance overwrites vector with Cinv·vector.
func (m *Matrix) MultiplyByInverseCovariance(vector []float64) error {
	if len(vector) != m.size {
		return fmt.Errorf("vector length %d != matrix size %d: %w", len(vector), m.size, ErrSizeMismatch)
	}
	if err := m.requireICov(); err != nil {
		return err
	}
	result := make([]float64, m.size)
	symmetricMultiplyTo(result, m.icov, vector, m.size)
	copy(vector, result)
	return nil
}

// ChiSquare returns deltaᵗ·Cinv·delta for the residuals vector delta.
func (m *Matrix) ChiSquare(delta []float64) (float64, error) {
	if len(delta) != m.size {
		return 0, fmt.Errorf("residuals length %d != matrix size %d: %w", len(delta), m.size, ErrSizeMismatch)
	}
	weighted := make([]float64, m.size)
	copy(weighted, delta)
	if err := m.MultiplyByInverseCovariance(weighted); err != nil {
		return 0, err
	}
	return floats.Dot(delta, weighted), nil
}

// CovarianceDense returns a copy of the covariance as a gonum symmetric matrix.
func (m *Matrix) CovarianceDense() (*mat.SymDense, error) {
	ok, err := m.readsCov()
	if err != nil {
		return nil, err
	}
	if !ok {
		return mat.NewSymDense(m.size, nil), nil
	}
	return m.toSymDense(m.cov), nil
}

// InverseCovarianceDense returns a copy of the inverse covariance as a gonum
// symmetric matrix.
func (m *Matrix) InverseCovarianceDense() (*mat.SymDense, error) {
	if err := m.requireICov(); err != nil {
		return nil, err
	}
	return m.toSymDense(m.icov), nil
}

func (m *Matrix) toSymDense(packed []float64) *mat.SymDense {
	sym := mat.NewSymDense(m.size, nil)
	for i := 0; i < m.size; i++ {
		for j := i; j < m.size; j++ {
			sym.SetSym(i, j, packed[packedIndex(i, j, m.size)])
		}
	}
	return sym
}

// readsCov prepares m.cov for reading. It reports false when nothing has
// been set yet.
func (m *Matrix) readsCov() (bool, error) {
	if err := m.uncompress(); err != nil {
		return false, err
	}
	if m.state == Empty {
		return false, nil
	}
	if m.cov == nil {
		// Decompose a copy so a failure leaves icov untouched.
		work := make([]float64, m.npacked)
		copy(work, m.icov)
		if err := CholeskyDecompose(work, m.size); err != nil {
			return false, fmt.Errorf("inverting inverse covariance: %w", err)
		}
		if err := InvertCholesky(work, m.size); err != nil {
			return false, err
		}
		m.cov = work
		m.state = Both
		m.log.WithFields(m.fields()).Debug("Computed covariance from inverse covariance")
	}
	return true, nil
}

// readsICov prepares m.icov for reading. It reports false when nothing has
// been set yet.
func (m *Matrix) readsICov() (bool, error) {
	if err := m.uncompress(); err != nil {
		return false, err
	}
	if m.state == Empty {
		return false, nil
	}
	if m.icov == nil {
		if err := m.decomposeCov(); err != nil {
			return false, err
		}
		work := make([]float64, m.npacked)
		copy(work, m.cholesky)
		if err := InvertCholesky(work, m.size); err != nil {
			return false, err
		}
		m.icov = work
		m.state = Both
		m.log.WithFields(m.fields()).Debug("Computed inverse covariance from covariance")
	}
	return true, nil
}

// requireICov is readsICov for operations that cannot proceed on an
// all-zero matrix.
func (m *Matrix) requireICov() error {
	ok, err := m.readsICov()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no elements set: %w", ErrNotPositiveDefinite)
	}
	return nil
}

// decomposeCov caches the Cholesky factor of the covariance. m.cov must be
// present.
func (m *Matrix) decomposeCov() error {
	if m.cholesky != nil {
		return nil
	}
	work := make([]float64, m.npacked)
	copy(work, m.cov)
	if err := CholeskyDecompose(work, m.size); err != nil {
		return fmt.Errorf("decomposing covariance: %w", err)
	}
	m.cholesky = work
	m.log.WithFields(m.fields()).Debug("Computed Cholesky factor of covariance")
	return nil
}

// changesCov prepares m.cov for writing and invalidates everything derived
// from it.
func (m *Matrix) changesCov() error {
	if m.cov == nil {
		ok, err := m.readsCov()
		if err != nil {
			return err
		}
		if !ok {
			m.cov = make([]float64, m.npacked)
		}
	}
	m.icov = nil
	m.cholesky = nil
	m.encoding = nil
	m.state = CovarianceOnly
	m.source = covarianceRep
	return nil
}

// changesICov prepares m.icov for writing and invalidates everything derived
// from it.
func (m *Matrix) changesICov() error {
	if m.icov == nil {
		ok, err := m.readsICov()
		if err != nil {
			return err
		}
		if !ok {
			m.icov = make([]float64, m.npacked)
		}
	}
	m.cov = nil
	m.cholesky = nil
	m.encoding = nil
	m.state = InverseOnly
	m.source = inverseRep
	return nil
}
