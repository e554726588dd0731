// Package codec provides the byte-level codecs used to store covariance
// matrix state: none, zstd, s2 and lz4.
package codec

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCodec is returned for a codec type or name that is not registered.
var ErrUnknownCodec = errors.New("codec: unknown codec")

// Type identifies a codec. Values are persisted, so never renumber them.
type Type uint8

const (
	None Type = 0x1
	Zstd Type = 0x2
	S2   Type = 0x3
	LZ4  Type = 0x4
)

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Zstd:
		return "zstd"
	case S2:
		return "s2"
	case LZ4:
		return "lz4"
	default:
		return fmt.Sprintf("Type(%d)", uint8(t))
	}
}

// ParseType returns the codec type named s, ignoring case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "zstd":
		return Zstd, nil
	case "s2":
		return S2, nil
	case "lz4":
		return LZ4, nil
	default:
		return 0, fmt.Errorf("%q: %w", s, ErrUnknownCodec)
	}
}

// Codec compresses and decompresses whole byte slices.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
}

var builtinCodecs = map[Type]Codec{
	None: NoOp{},
	Zstd: ZstdCodec{},
	S2:   S2Codec{},
	LZ4:  LZ4Codec{},
}

// Get returns the codec registered for t.
func Get(t Type) (Codec, error) {
	if c, ok := builtinCodecs[t]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("codec %s: %w", t, ErrUnknownCodec)
}

// Types returns every registered codec type in ascending order.
func Types() []Type {
	return []Type{None, Zstd, S2, LZ4}
}
