package covariance

import (
	"bytes"
	"encoding/gob"
	"testing"

	"github.com/cespare/xxhash/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0madic/go-likely/codec"
)

func TestSaveLoad(t *testing.T) {
	for _, typ := range codec.Types() {
		t.Run(typ.String(), func(t *testing.T) {
			tests := []struct {
				name     string
				m        *Matrix
				compress bool
			}{
				{"covariance", newFromCovariance(t, randomSPD(5, 17), WithCodec(typ), WithRandomSeed(8)), false},
				{"inverse compressed", newFromInverse(t, tridiagonal(7), WithCodec(typ), WithRandomSeed(8)), true},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					if tt.compress {
						require.True(t, tt.m.Compress())
					}
					var buf bytes.Buffer
					require.NoError(t, tt.m.Save(&buf))
					assert.Equal(t, tt.compress, tt.m.IsCompressed(), "Save must not decompress")

					loaded, err := Load(&buf)
					require.NoError(t, err)
					assert.Equal(t, tt.m.Size(), loaded.Size())

					wantCov, wantICov := elements(t, tt.m)
					gotCov, gotICov := elements(t, loaded)
					requireBitEqual(t, wantCov, gotCov)
					requireBitEqual(t, wantICov, gotICov)

					want, err := tt.m.Sample(3)
					require.NoError(t, err)
					got, err := loaded.Sample(3)
					require.NoError(t, err)
					assert.Equal(t, want, got, "seed state is restored")
				})
			}
		})
	}
}

func TestSaveLoadEmpty(t *testing.T) {
	m, err := New(3)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, m.Save(&buf))

	loaded, err := Load(&buf)
	require.NoError(t, err)
	assert.Equal(t, Empty, loaded.State())
	assert.Equal(t, 3, loaded.Size())
}

func writeEnvelope(t *testing.T, env envelope, state *MatrixState) *bytes.Buffer {
	t.Helper()
	if state != nil {
		var payload bytes.Buffer
		require.NoError(t, gob.NewEncoder(&payload).Encode(*state))
		env.Payload = payload.Bytes()
		if env.Checksum == 0 {
			env.Checksum = xxhash.Sum64(env.Payload)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, gob.NewEncoder(&buf).Encode(env))
	return &buf
}

func TestLoadRejectsBadState(t *testing.T) {
	valid := MatrixState{Size: 2, Source: uint8(covarianceRep), Diagonal: []float64{1, 1}}

	tests := []struct {
		name  string
		env   envelope
		state MatrixState
		want  error
	}{
		{
			name:  "unsupported version",
			env:   envelope{Version: 2, Codec: codec.None},
			state: valid,
			want:  ErrUnsupportedVersion,
		},
		{
			name:  "unknown codec",
			env:   envelope{Version: stateVersion, Codec: codec.Type(99)},
			state: valid,
			want:  codec.ErrUnknownCodec,
		},
		{
			name:  "checksum mismatch",
			env:   envelope{Version: stateVersion, Codec: codec.None, Checksum: 12345},
			state: valid,
			want:  ErrCorruptState,
		},
		{
			name:  "short diagonal",
			env:   envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 3, Source: uint8(inverseRep), Diagonal: []float64{1}},
			want:  ErrCorruptState,
		},
		{
			name: "off-diagonal index on the diagonal",
			env:  envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 2, Source: uint8(inverseRep), Diagonal: []float64{1, 1},
				OffdiagIndex: []int{0}, OffdiagValue: []float64{0.5}},
			want: ErrCorruptState,
		},
		{
			name: "off-diagonal index out of range",
			env:  envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 2, Source: uint8(inverseRep), Diagonal: []float64{1, 1},
				OffdiagIndex: []int{3}, OffdiagValue: []float64{0.5}},
			want: ErrCorruptState,
		},
		{
			name: "index and value counts differ",
			env:  envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 2, Source: uint8(inverseRep), Diagonal: []float64{1, 1},
				OffdiagIndex: []int{1}},
			want: ErrCorruptState,
		},
		{
			name:  "unknown source",
			env:   envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 2, Source: 7, Diagonal: []float64{1, 1}},
			want:  ErrCorruptState,
		},
		{
			name:  "invalid size",
			env:   envelope{Version: stateVersion, Codec: codec.None},
			state: MatrixState{Size: 0},
			want:  ErrInvalidSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.state
			_, err := Load(writeEnvelope(t, tt.env, &state))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadGarbage(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("not a gob stream")))
	require.Error(t, err)
}
