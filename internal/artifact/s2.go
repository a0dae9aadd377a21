package artifact

import "github.com/klauspost/compress/s2"

// S2Compressor trades ratio for encode speed.
type S2Compressor struct{}

var _ Codec = S2Compressor{}

// Compress compresses data using S2 block encoding.
func (S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return s2.Encode(nil, data), nil
}

// Decompress decodes an S2 block.
func (S2Compressor) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, checkSize("s2", 0, size)
	}
	n, err := s2.DecodedLen(data)
	if err != nil {
		return nil, err
	}
	if err := checkSize("s2", n, size); err != nil {
		return nil, err
	}
	return s2.Decode(make([]byte, size), data)
}
