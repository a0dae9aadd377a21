package artifact

import (
	"fmt"
	"strings"
)

// Compression identifies the payload codec recorded in an artifact header.
type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
	CompressionS2   Compression = 2
	CompressionLZ4  Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionS2:
		return "s2"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression maps a configuration name to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "none":
		return CompressionNone, nil
	case "zstd", "":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unsupported compression %q", name)
	}
}

// Codec compresses and decompresses artifact payloads. Implementations must
// be safe for concurrent use and deterministic: identical input always
// yields identical output. Decompress receives the exact decompressed size
// recorded in the artifact header and fails when the payload disagrees.
type Codec interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte, size int) ([]byte, error)
}

func checkSize(name string, got, want int) error {
	if got != want {
		return fmt.Errorf("%s: decompressed %d bytes, want %d", name, got, want)
	}
	return nil
}

var builtinCodecs = map[Compression]Codec{
	CompressionNone: NoOpCompressor{},
	CompressionZstd: ZstdCompressor{},
	CompressionS2:   S2Compressor{},
	CompressionLZ4:  LZ4Compressor{},
}

// GetCodec retrieves the built-in Codec for the specified compression type.
func GetCodec(c Compression) (Codec, error) {
	if codec, ok := builtinCodecs[c]; ok {
		return codec, nil
	}
	return nil, fmt.Errorf("unsupported compression type: %s", c)
}

// NoOpCompressor stores payloads uncompressed.
type NoOpCompressor struct{}

var _ Codec = NoOpCompressor{}

// Compress returns data unchanged; the result shares memory with the input.
func (NoOpCompressor) Compress(data []byte) ([]byte, error) { return data, nil }

// Decompress returns data unchanged.
func (NoOpCompressor) Decompress(data []byte, size int) ([]byte, error) {
	if err := checkSize("none", len(data), size); err != nil {
		return nil, err
	}
	return data, nil
}

// ZstdCompressor provides Zstandard compression. First-flip payloads are
// dominated by runs of zeros and repeated sweep voltages, which zstd handles
// well; it is the default codec.
type ZstdCompressor struct{}

var _ Codec = ZstdCompressor{}
