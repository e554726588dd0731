package codec

// NoOp passes data through unchanged. The returned slice aliases the input.
type NoOp struct{}

var _ Codec = NoOp{}

func (NoOp) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (NoOp) Decompress(data []byte) ([]byte, error) {
	return data, nil
}
