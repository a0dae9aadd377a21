package artifact

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func samplePayload(n int) []byte {
	data := make([]byte, n)
	for i := range data {
		if i%64 < 8 {
			data[i] = byte(i % 7)
		}
	}
	return data
}

func TestParseCompression(t *testing.T) {
	tests := []struct {
		name string
		want Compression
	}{
		{"none", CompressionNone},
		{"zstd", CompressionZstd},
		{"", CompressionZstd},
		{"S2", CompressionS2},
		{" lz4 ", CompressionLZ4},
	}
	for _, tt := range tests {
		got, err := ParseCompression(tt.name)
		require.NoError(t, err, tt.name)
		require.Equal(t, tt.want, got, tt.name)
	}

	_, err := ParseCompression("gzip")
	require.Error(t, err)

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		parsed, err := ParseCompression(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	}
}

func TestCodecsRoundTrip(t *testing.T) {
	inputs := map[string][]byte{
		"small":  []byte("first flip"),
		"sparse": samplePayload(1 << 20),
	}

	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		codec, err := GetCodec(c)
		require.NoError(t, err)

		for name, input := range inputs {
			t.Run(c.String()+"/"+name, func(t *testing.T) {
				compressed, err := codec.Compress(input)
				require.NoError(t, err)

				out, err := codec.Decompress(compressed, len(input))
				require.NoError(t, err)
				require.True(t, bytes.Equal(input, out))
			})
		}
	}
}

func TestCodecsDeterministic(t *testing.T) {
	input := samplePayload(256 * 1024)
	for _, c := range []Compression{CompressionZstd, CompressionS2, CompressionLZ4} {
		codec, err := GetCodec(c)
		require.NoError(t, err)

		first, err := codec.Compress(input)
		require.NoError(t, err)
		second, err := codec.Compress(input)
		require.NoError(t, err)
		require.Equal(t, first, second, c.String())
	}
}

func TestCodecsCompressSparsePayload(t *testing.T) {
	input := samplePayload(1 << 20)
	for _, c := range []Compression{CompressionZstd, CompressionS2, CompressionLZ4} {
		codec, err := GetCodec(c)
		require.NoError(t, err)

		compressed, err := codec.Compress(input)
		require.NoError(t, err)
		require.Less(t, len(compressed), len(input)/2, c.String())
	}
}

func TestCodecsEmptyInput(t *testing.T) {
	for _, c := range []Compression{CompressionZstd, CompressionS2, CompressionLZ4} {
		codec, err := GetCodec(c)
		require.NoError(t, err)

		out, err := codec.Decompress(nil, 0)
		require.NoError(t, err)
		require.Empty(t, out)
	}
}

func TestCodecsRejectSizeMismatch(t *testing.T) {
	input := samplePayload(64 * 1024)
	for _, c := range []Compression{CompressionNone, CompressionZstd, CompressionS2, CompressionLZ4} {
		codec, err := GetCodec(c)
		require.NoError(t, err)

		compressed, err := codec.Compress(input)
		require.NoError(t, err)

		_, err = codec.Decompress(compressed, len(input)-4)
		require.Error(t, err, c.String())
		_, err = codec.Decompress(compressed, len(input)+4)
		require.Error(t, err, c.String())
	}
}

func TestGetCodecUnknown(t *testing.T) {
	_, err := GetCodec(Compression(42))
	require.Error(t, err)
	require.Contains(t, err.Error(), "compression(42)")
}
