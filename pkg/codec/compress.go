package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Decompressor expands the payload of a record carrying FlagCompressed.
type Decompressor interface {
	Decompress(payload []byte) ([]byte, error)
}

// Compressor is the inverse of Decompressor.
type Compressor interface {
	Compress(payload []byte) ([]byte, error)
}

// StringTable resolves string IDs used by localized files.
type StringTable interface {
	Lookup(id uint32) (string, bool)
}

// ZlibCodec handles compressed payloads stored as a uint32 uncompressed size
// followed by a zlib stream.
type ZlibCodec struct {
	// MaxSize caps the declared uncompressed size. Zero means
	// 16 * DefaultMaxRecordSize.
	MaxSize uint32
}

func (z ZlibCodec) limit() uint32 {
	if z.MaxSize > 0 {
		return z.MaxSize
	}
	return 16 * DefaultMaxRecordSize
}

// Decompress implements Decompressor.
func (z ZlibCodec) Decompress(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, fmt.Errorf("%w: compressed payload shorter than its size prefix", ErrTruncatedInput)
	}
	size := binary.LittleEndian.Uint32(payload)
	if size > z.limit() {
		return nil, &SizeLimitError{Size: size, Limit: z.limit()}
	}
	zr, err := zlib.NewReader(bytes.NewReader(payload[4:]))
	if err != nil {
		return nil, fmt.Errorf("failed to open zlib stream: %w", err)
	}
	defer zr.Close()

	out := make([]byte, size)
	if _, err := io.ReadFull(zr, out); err != nil {
		return nil, fmt.Errorf("failed to inflate payload: %w", err)
	}
	// the stream must end exactly at the declared size
	var extra [1]byte
	if n, _ := zr.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("inflated payload exceeds declared size %d", size)
	}
	return out, nil
}

// Compress implements Compressor.
func (z ZlibCodec) Compress(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))
	buf.Write(prefix[:])
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to deflate payload: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to deflate payload: %w", err)
	}
	return buf.Bytes(), nil
}
