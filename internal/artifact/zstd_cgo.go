//go:build gozstd

package artifact

import (
	"github.com/valyala/gozstd"
)

// Compress compresses data using the cgo libzstd binding.
func (ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

// Decompress decodes a zstd frame using the cgo libzstd binding.
func (ZstdCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if len(data) == 0 {
		return nil, checkSize("zstd", 0, size)
	}
	out, err := gozstd.Decompress(make([]byte, 0, size), data)
	if err != nil {
		return nil, err
	}
	if err := checkSize("zstd", len(out), size); err != nil {
		return nil, err
	}
	return out, nil
}
