package covariance

import "errors"

// Sentinel errors returned by this package. Call sites wrap them with context,
// so callers should match with errors.Is.
var (
	// ErrInvalidSize is returned for a non-positive matrix size or a packed
	// array whose length is not a triangular number.
	ErrInvalidSize = errors.New("covariance: invalid size")

	// ErrInvalidIndex is returned when a row or column lies outside [0,size-1].
	ErrInvalidIndex = errors.New("covariance: index out of range")

	// ErrSizeMismatch is returned when a vector length differs from the matrix size.
	ErrSizeMismatch = errors.New("covariance: size mismatch")

	// ErrNotPositiveDefinite is returned when a Cholesky decomposition meets a
	// non-positive pivot, which usually means the matrix is not fully assembled yet.
	ErrNotPositiveDefinite = errors.New("covariance: matrix is not positive definite")

	// ErrUnsupportedVersion is returned by Load for an unknown state version.
	ErrUnsupportedVersion = errors.New("covariance: unsupported state version")

	// ErrCorruptState is returned by Load when the persisted state fails validation.
	ErrCorruptState = errors.New("covariance: corrupt state")
)
