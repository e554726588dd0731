package covariance

import (
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/sirupsen/logrus"
)

const (
	floatBytes = int(unsafe.Sizeof(float64(0)))
	intBytes   = int(unsafe.Sizeof(int(0)))
)

// compactEncoding is the lossless compressed form of the authoritative
// representation: its diagonal plus the off-diagonal elements that are not
// exactly zero. A diagonal matrix leaves both off-diagonal slices nil.
type compactEncoding struct {
	source       representation
	diagonal     []float64
	offdiagIndex []int
	offdiagValue []float64
}

func encode(packed []float64, size int, source representation) *compactEncoding {
	enc := &compactEncoding{
		source:   source,
		diagonal: make([]float64, size),
	}
	for i := 0; i < size; i++ {
		enc.diagonal[i] = packed[packedIndex(i, i, size)]
		for j := i + 1; j < size; j++ {
			idx := packedIndex(i, j, size)
			// Keep -0 so that decoding is bit-exact.
			if v := packed[idx]; v != 0 || math.Signbit(v) {
				enc.offdiagIndex = append(enc.offdiagIndex, idx)
				enc.offdiagValue = append(enc.offdiagValue, v)
			}
		}
	}
	return enc
}

func (e *compactEncoding) decode(size int) []float64 {
	packed := make([]float64, PackedSize(size))
	for i, v := range e.diagonal {
		packed[packedIndex(i, i, size)] = v
	}
	for k, idx := range e.offdiagIndex {
		packed[idx] = e.offdiagValue[k]
	}
	return packed
}

func (e *compactEncoding) isDiagonal() bool {
	return len(e.offdiagIndex) == 0
}

// Compress releases the dense packed arrays, keeping only the compact
// encoding of the most recently written representation. It reports whether
// anything changed: it returns false when already compressed or when no
// element has been set. The next call to any method other than Size,
// Compress, IsCompressed, State, MemoryUsage, MemoryState or Save
// decompresses automatically.
func (m *Matrix) Compress() bool {
	if m.compressed || m.state == Empty {
		return false
	}
	if m.encoding == nil {
		switch m.source {
		case covarianceRep:
			m.encoding = encode(m.cov, m.size, covarianceRep)
		case inverseRep:
			m.encoding = encode(m.icov, m.size, inverseRep)
		}
	}
	m.cov, m.icov, m.cholesky = nil, nil, nil
	m.compressed = true
	m.log.WithFields(m.fields()).WithFields(logrus.Fields{
		"diagonal": m.encoding.isDiagonal(),
		"offdiag":  len(m.encoding.offdiagIndex),
		"bytes":    m.MemoryUsage(),
	}).Debug("Compressed covariance matrix")
	return true
}

// IsCompressed reports whether the matrix is currently compressed.
func (m *Matrix) IsCompressed() bool {
	return m.compressed
}

// uncompress restores the dense arrays that were held when Compress was
// called. The retained encoding stays cached until the next write.
func (m *Matrix) uncompress() error {
	if !m.compressed {
		return nil
	}
	enc := m.encoding
	restore := m.state
	packed := enc.decode(m.size)
	m.compressed = false
	switch enc.source {
	case covarianceRep:
		m.cov = packed
		m.state = CovarianceOnly
	case inverseRep:
		m.icov = packed
		m.state = InverseOnly
	default:
		return fmt.Errorf("compressed %s representation: %w", enc.source, ErrCorruptState)
	}
	m.log.WithFields(m.fields()).Debug("Uncompressed covariance matrix")
	if restore != Both {
		return nil
	}
	// The derived representation is recomputed with the same kernels that
	// produced it before compression, so it is restored bit for bit.
	var err error
	if enc.source == covarianceRep {
		_, err = m.readsICov()
	} else {
		_, err = m.readsCov()
	}
	return err
}

// MemoryUsage returns the number of bytes used by this matrix, including
// its packed arrays and any compact encoding. It never decompresses.
func (m *Matrix) MemoryUsage() int {
	size := int(unsafe.Sizeof(*m))
	size += floatBytes * (cap(m.cov) + cap(m.icov) + cap(m.cholesky))
	if e := m.encoding; e != nil {
		size += int(unsafe.Sizeof(*e))
		size += floatBytes * (cap(e.diagonal) + cap(e.offdiagValue))
		size += intBytes * cap(e.offdiagIndex)
	}
	return size
}

// MemoryState describes the allocation state of the internal arrays as
//
//	[MICDZV] nnnn
//
// where each letter is replaced by "-" when that array is not allocated and
// nnnn is MemoryUsage(). The letters are M covariance, I inverse covariance,
// C Cholesky factor, D diagonal, Z off-diagonal indices and V off-diagonal
// values. Common states:
//
//	[------] nothing set yet
//	[M-----] covariance most recently changed
//	[-I----] inverse covariance most recently changed
//	[MI----] covariance and inverse both in memory
//	[M-C---] covariance with its Cholesky factor
//	[---D--] compressed diagonal matrix
//	[---DZV] compressed non-diagonal matrix
//
// It never decompresses.
func (m *Matrix) MemoryState() string {
	var b strings.Builder
	b.WriteByte('[')
	b.WriteByte(tag('M', m.cov != nil))
	b.WriteByte(tag('I', m.icov != nil))
	b.WriteByte(tag('C', m.cholesky != nil))
	e := m.encoding
	b.WriteByte(tag('D', e != nil && e.diagonal != nil))
	b.WriteByte(tag('Z', e != nil && e.offdiagIndex != nil))
	b.WriteByte(tag('V', e != nil && e.offdiagValue != nil))
	b.WriteByte(']')
	return fmt.Sprintf("%s %d", b.String(), m.MemoryUsage())
}

func tag(symbol byte, allocated bool) byte {
	if allocated {
		return symbol
	}
	return '-'
}
