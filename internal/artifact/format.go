package artifact

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"flipscan/internal/flipmap"
	"flipscan/internal/geometry"
)

const (
	// HeaderSize is the fixed size of an encoded artifact header.
	HeaderSize = 40
	// FormatVersion is the only header version this package writes and reads.
	FormatVersion uint8 = 1

	maxPayloadValues = 1 << 28
)

var magic = [4]byte{'F', 'L', 'P', 'M'}

var (
	ErrBadMagic        = errors.New("artifact: bad magic")
	ErrVersion         = errors.New("artifact: unsupported format version")
	ErrChecksum        = errors.New("artifact: checksum mismatch")
	ErrCorruptArtifact = errors.New("artifact: corrupt artifact")
)

// Kind identifies which matrix an artifact holds.
type Kind uint8

const (
	KindPre  Kind = 1
	KindPost Kind = 2
	KindDiff Kind = 3
)

// Kinds lists every artifact kind in write order.
var Kinds = []Kind{KindPre, KindPost, KindDiff}

func (k Kind) String() string {
	switch k {
	case KindPre:
		return "pre"
	case KindPost:
		return "post"
	case KindDiff:
		return "diff"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Dir is the destination subfolder holding artifacts of this kind.
func (k Kind) Dir() string { return k.String() + "_data" }

// FileName is the artifact's file name for sector, without extension.
func (k Kind) FileName(sector geometry.SectorID) string {
	return k.String() + "-data-" + strconv.FormatUint(uint64(sector), 10)
}

func (k Kind) valid() bool { return k >= KindPre && k <= KindDiff }

// Header describes an encoded artifact.
type Header struct {
	Kind        Kind
	Compression Compression
	Sector      geometry.SectorID
	Rows        uint32
	Cols        uint32
	Checksum    uint64
	PayloadLen  uint64
}

// MarshalBinary encodes the header in its fixed on-disk layout.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, HeaderSize)
	buf = append(buf, magic[:]...)
	buf = append(buf, FormatVersion, byte(h.Kind), byte(h.Compression), 0)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(h.Sector))
	buf = binary.LittleEndian.AppendUint32(buf, h.Rows)
	buf = binary.LittleEndian.AppendUint32(buf, h.Cols)
	buf = binary.LittleEndian.AppendUint64(buf, h.Checksum)
	buf = binary.LittleEndian.AppendUint64(buf, h.PayloadLen)
	return buf, nil
}

// UnmarshalBinary decodes and validates a header.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("%w: header is %d bytes", ErrCorruptArtifact, len(data))
	}
	if [4]byte(data[0:4]) != magic {
		return ErrBadMagic
	}
	if data[4] != FormatVersion {
		return fmt.Errorf("%w: %d", ErrVersion, data[4])
	}
	h.Kind = Kind(data[5])
	if !h.Kind.valid() {
		return fmt.Errorf("%w: unknown kind %d", ErrCorruptArtifact, data[5])
	}
	h.Compression = Compression(data[6])
	if _, ok := builtinCodecs[h.Compression]; !ok {
		return fmt.Errorf("%w: unknown compression %d", ErrCorruptArtifact, data[6])
	}
	h.Sector = geometry.SectorID(binary.LittleEndian.Uint64(data[8:16]))
	h.Rows = binary.LittleEndian.Uint32(data[16:20])
	h.Cols = binary.LittleEndian.Uint32(data[20:24])
	h.Checksum = binary.LittleEndian.Uint64(data[24:32])
	h.PayloadLen = binary.LittleEndian.Uint64(data[32:40])
	if h.Rows == 0 || h.Cols == 0 || uint64(h.Rows)*uint64(h.Cols) > maxPayloadValues {
		return fmt.Errorf("%w: invalid shape %dx%d", ErrCorruptArtifact, h.Rows, h.Cols)
	}
	if h.PayloadLen > 2*uint64(h.Rows)*uint64(h.Cols)*4+1024 {
		return fmt.Errorf("%w: payload length %d exceeds bound", ErrCorruptArtifact, h.PayloadLen)
	}
	return nil
}

// Artifact is a decoded artifact file.
type Artifact struct {
	Header Header
	Matrix *flipmap.Matrix
}

// Encode writes m as an artifact of the given kind and returns the number of
// bytes written.
func Encode(w io.Writer, kind Kind, sector geometry.SectorID, m *flipmap.Matrix, c Compression) (int64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if !kind.valid() {
		return 0, fmt.Errorf("artifact: invalid kind %d", uint8(kind))
	}
	codec, err := GetCodec(c)
	if err != nil {
		return 0, err
	}

	payload := make([]byte, 4*len(m.Values))
	for i, v := range m.Values {
		binary.LittleEndian.PutUint32(payload[i*4:], uint32(v))
	}
	compressed, err := codec.Compress(payload)
	if err != nil {
		return 0, fmt.Errorf("compress %s payload: %w", c, err)
	}

	header, _ := Header{
		Kind:        kind,
		Compression: c,
		Sector:      sector,
		Rows:        uint32(m.Cells),
		Cols:        uint32(m.Bits),
		Checksum:    xxhash.Sum64(payload),
		PayloadLen:  uint64(len(compressed)),
	}.MarshalBinary()

	n, err := w.Write(header)
	if err != nil {
		return int64(n), err
	}
	written, err := w.Write(compressed)
	return int64(n + written), err
}

// Decode reads one artifact from r, verifying length, shape and checksum.
func Decode(r io.Reader) (*Artifact, error) {
	raw := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, raw); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated header", ErrCorruptArtifact)
		}
		return nil, err
	}
	var h Header
	if err := h.UnmarshalBinary(raw); err != nil {
		return nil, err
	}

	compressed := make([]byte, h.PayloadLen)
	if _, err := io.ReadFull(r, compressed); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: truncated payload", ErrCorruptArtifact)
		}
		return nil, err
	}
	var extra [1]byte
	if n, _ := r.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: trailing data after payload", ErrCorruptArtifact)
	}

	codec, err := GetCodec(h.Compression)
	if err != nil {
		return nil, err
	}
	values := int(h.Rows) * int(h.Cols)
	payload, err := codec.Decompress(compressed, values*4)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptArtifact, err)
	}
	if xxhash.Sum64(payload) != h.Checksum {
		return nil, ErrChecksum
	}

	m := flipmap.New(int(h.Rows), int(h.Cols))
	for i := range m.Values {
		m.Values[i] = int32(binary.LittleEndian.Uint32(payload[i*4:]))
	}
	return &Artifact{Header: h, Matrix: m}, nil
}

// Load decodes the artifact at path.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	a, err := Decode(bufio.NewReaderSize(f, 256*1024))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return a, nil
}

// LoadKind decodes the artifact at path and checks it holds the expected kind.
func LoadKind(path string, kind Kind) (*flipmap.Matrix, error) {
	a, err := Load(path)
	if err != nil {
		return nil, err
	}
	if a.Header.Kind != kind {
		return nil, fmt.Errorf("%s: %w: holds %s, want %s", path, ErrCorruptArtifact, a.Header.Kind, kind)
	}
	return a.Matrix, nil
}
