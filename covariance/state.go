package covariance

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/n0madic/go-likely/codec"
)

// stateVersion is the persisted state format version.
const stateVersion = 1

// envelope is the outer gob record written by Save. Checksum is the xxHash64
// of the payload before compression.
type envelope struct {
	Version  int
	Codec    codec.Type
	Checksum uint64
	Payload  []byte
}

// MatrixState is the serializable snapshot of a Matrix. Only the
// authoritative representation is stored, in compact form.
type MatrixState struct {
	Size         int
	Source       uint8
	Diagonal     []float64
	OffdiagIndex []int
	OffdiagValue []float64
	Seed         int64
	NextSeed     int64
}

// Save writes the matrix to w using the codec selected with WithCodec.
// Only the most recently written representation is stored; the derived one
// is recomputed on demand after Load. Save never decompresses.
func (m *Matrix) Save(w io.Writer) error {
	c, err := codec.Get(m.codec)
	if err != nil {
		return err
	}

	state := MatrixState{
		Size:     m.size,
		Source:   uint8(m.source),
		Seed:     m.seed,
		NextSeed: m.nextSeed,
	}
	enc := m.encoding
	if enc == nil {
		switch m.source {
		case covarianceRep:
			enc = encode(m.cov, m.size, covarianceRep)
		case inverseRep:
			enc = encode(m.icov, m.size, inverseRep)
		}
	}
	if enc != nil {
		state.Diagonal = enc.diagonal
		state.OffdiagIndex = enc.offdiagIndex
		state.OffdiagValue = enc.offdiagValue
	}

	var payload bytes.Buffer
	if err := gob.NewEncoder(&payload).Encode(state); err != nil {
		return fmt.Errorf("encoding matrix state: %w", err)
	}
	compressed, err := c.Compress(payload.Bytes())
	if err != nil {
		return fmt.Errorf("compressing matrix state with %s: %w", m.codec, err)
	}

	m.log.WithFields(m.fields()).WithField("codec", m.codec).Debug("Saving covariance matrix")
	return gob.NewEncoder(w).Encode(envelope{
		Version:  stateVersion,
		Codec:    m.codec,
		Checksum: xxhash.Sum64(payload.Bytes()),
		Payload:  compressed,
	})
}

// Load reads a matrix written by Save. The matrix keeps the codec it was
// saved with unless options override it. The persisted seed is restored after
// options are applied, so WithRandomSeed has no effect here.
func Load(r io.Reader, options ...Option) (*Matrix, error) {
	var env envelope
	if err := gob.NewDecoder(r).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding matrix envelope: %w", err)
	}
	if env.Version != stateVersion {
		return nil, fmt.Errorf("version %d: %w", env.Version, ErrUnsupportedVersion)
	}
	c, err := codec.Get(env.Codec)
	if err != nil {
		return nil, err
	}
	payload, err := c.Decompress(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decompressing matrix state: %v: %w", err, ErrCorruptState)
	}
	if sum := xxhash.Sum64(payload); sum != env.Checksum {
		return nil, fmt.Errorf("checksum %x != %x: %w", sum, env.Checksum, ErrCorruptState)
	}

	var state MatrixState
	if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&state); err != nil {
		return nil, fmt.Errorf("decoding matrix state: %v: %w", err, ErrCorruptState)
	}

	m, err := New(state.Size, append([]Option{WithCodec(env.Codec)}, options...)...)
	if err != nil {
		return nil, err
	}
	if err := m.restore(state); err != nil {
		return nil, err
	}
	m.log.WithFields(m.fields()).WithField("codec", env.Codec).Debug("Loaded covariance matrix")
	return m, nil
}

// restore validates a decoded snapshot and installs it as the authoritative
// representation of a freshly created matrix.
func (m *Matrix) restore(state MatrixState) error {
	m.seed = state.Seed
	m.nextSeed = state.NextSeed

	source := representation(state.Source)
	if source == noRepresentation {
		if len(state.Diagonal) != 0 || len(state.OffdiagIndex) != 0 {
			return fmt.Errorf("elements stored for an empty matrix: %w", ErrCorruptState)
		}
		return nil
	}
	if source != covarianceRep && source != inverseRep {
		return fmt.Errorf("unknown source %d: %w", state.Source, ErrCorruptState)
	}
	if len(state.Diagonal) != m.size {
		return fmt.Errorf("diagonal length %d for size %d: %w", len(state.Diagonal), m.size, ErrCorruptState)
	}
	if len(state.OffdiagIndex) != len(state.OffdiagValue) {
		return fmt.Errorf("%d off-diagonal indices with %d values: %w",
			len(state.OffdiagIndex), len(state.OffdiagValue), ErrCorruptState)
	}
	diagonal := make([]bool, m.npacked)
	for i := 0; i < m.size; i++ {
		diagonal[packedIndex(i, i, m.size)] = true
	}
	for _, idx := range state.OffdiagIndex {
		if idx < 0 || idx >= m.npacked || diagonal[idx] {
			return fmt.Errorf("off-diagonal index %d: %w", idx, ErrCorruptState)
		}
	}

	enc := &compactEncoding{
		source:       source,
		diagonal:     state.Diagonal,
		offdiagIndex: state.OffdiagIndex,
		offdiagValue: state.OffdiagValue,
	}
	packed := enc.decode(m.size)
	if source == covarianceRep {
		m.cov = packed
		m.state = CovarianceOnly
	} else {
		m.icov = packed
		m.state = InverseOnly
	}
	m.source = source
	return nil
}
