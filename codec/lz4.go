package codec

import (
	"errors"
	"sync"

	"github.com/pierrec/lz4/v4"
)

// maxLZ4Size bounds the buffer grown while decoding a block of unknown size.
const maxLZ4Size = 128 * 1024 * 1024

// Every LZ4 payload starts with one of these markers. lz4 reports small or
// random inputs as incompressible, and those are stored verbatim.
const (
	lz4Stored byte = 0x0
	lz4Block  byte = 0x1
)

var errLZ4Marker = errors.New("lz4: unknown block marker")

// LZ4Codec compresses with LZ4 blocks.
type LZ4Codec struct{}

var _ Codec = LZ4Codec{}

var lz4CompressorPool = sync.Pool{
	New: func() any {
		return &lz4.Compressor{}
	},
}

func (LZ4Codec) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	dst := make([]byte, 1+lz4.CompressBlockBound(len(data)))
	lc := lz4CompressorPool.Get().(*lz4.Compressor)
	defer lz4CompressorPool.Put(lc)
	n, err := lc.CompressBlock(data, dst[1:])
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(data) {
		dst = append(dst[:1], data...)
		dst[0] = lz4Stored
		return dst, nil
	}
	dst[0] = lz4Block
	return dst[:n+1], nil
}

func (LZ4Codec) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	switch data[0] {
	case lz4Stored:
		return data[1:], nil
	case lz4Block:
	default:
		return nil, errLZ4Marker
	}
	block := data[1:]
	for bufSize := len(block) * 4; bufSize <= maxLZ4Size; bufSize *= 2 {
		buf := make([]byte, bufSize)
		n, err := lz4.UncompressBlock(block, buf)
		if err == nil {
			return buf[:n], nil
		}
		if !errors.Is(err, lz4.ErrInvalidSourceShortBuffer) {
			return nil, err
		}
	}
	return nil, lz4.ErrInvalidSourceShortBuffer
}
