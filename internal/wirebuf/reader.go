// Package wirebuf provides a buffered reader/writer pair for the
// PostgreSQL wire protocol's length-prefixed frames, adapted from
// psql-wire's pkg/buffer package.
package wirebuf

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/minipg/minipg/internal/wireproto"
)

// DefaultBufferSize is used whenever a non-positive buffer size is given
// to NewReader.
const DefaultBufferSize = 1 << 20

// ErrMessageSizeExceeded is returned when a frame declares a body larger
// than the reader's configured maximum.
type ErrMessageSizeExceeded struct {
	Size int
	Max  int
}

func (e *ErrMessageSizeExceeded) Error() string {
	return fmt.Sprintf("message of size %d exceeds maximum of %d", e.Size, e.Max)
}

// Reader reads length-prefixed PostgreSQL wire protocol frames.
type Reader struct {
	buf            *bufio.Reader
	Msg            []byte
	MaxMessageSize int
	header         [4]byte
}

// NewReader constructs a Reader over the given io.Reader.
func NewReader(r io.Reader, bufferSize int) *Reader {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}

	return &Reader{
		buf:            bufio.NewReaderSize(r, bufferSize),
		MaxMessageSize: bufferSize,
	}
}

func (r *Reader) reset(size int) {
	if cap(r.Msg) >= size {
		r.Msg = r.Msg[:size]
		return
	}

	alloc := size
	if alloc < 512 {
		alloc = 512
	}
	r.Msg = make([]byte, size, alloc)
}

// ReadType reads a single message type tag from the stream.
func (r *Reader) ReadType() (wireproto.ClientMessage, error) {
	b, err := r.buf.ReadByte()
	if err != nil {
		return 0, err
	}

	return wireproto.ClientMessage(b), nil
}

// ReadTypedMsg reads a tagged frame: a type byte followed by a
// length-prefixed body.
func (r *Reader) ReadTypedMsg() (wireproto.ClientMessage, int, error) {
	t, err := r.ReadType()
	if err != nil {
		return t, 0, err
	}

	n, err := r.ReadUntypedMsg()
	if err != nil {
		return 0, 0, err
	}

	return t, n, nil
}

// readMsgSize reads the 4-byte big-endian length prefix and returns the
// remaining body size (the prefix counts itself).
func (r *Reader) readMsgSize() (int, error) {
	if _, err := io.ReadFull(r.buf, r.header[:]); err != nil {
		return 0, err
	}

	size := int(binary.BigEndian.Uint32(r.header[:])) - 4
	return size, nil
}

// ReadUntypedMsg reads a length-prefixed body with no leading type tag;
// used during the startup/handshake phase before the tagged message
// stream begins.
func (r *Reader) ReadUntypedMsg() (int, error) {
	size, err := r.readMsgSize()
	if err != nil {
		return 0, err
	}

	if size < 0 || size > r.MaxMessageSize {
		return size, &ErrMessageSizeExceeded{Size: size, Max: r.MaxMessageSize}
	}

	r.reset(size)
	n, err := io.ReadFull(r.buf, r.Msg)
	return n, err
}

// GetString reads a NUL-terminated string from the front of Msg.
func (r *Reader) GetString() (string, error) {
	pos := bytes.IndexByte(r.Msg, 0)
	if pos == -1 {
		return "", fmt.Errorf("wirebuf: missing NUL terminator")
	}

	s := string(r.Msg[:pos])
	r.Msg = r.Msg[pos+1:]
	return s, nil
}

// GetBytes consumes and returns the next n bytes from Msg.
func (r *Reader) GetBytes(n int) ([]byte, error) {
	if len(r.Msg) < n {
		return nil, fmt.Errorf("wirebuf: insufficient data, want %d have %d", n, len(r.Msg))
	}

	v := r.Msg[:n]
	r.Msg = r.Msg[n:]
	return v, nil
}

// GetUint32 consumes the next 4 bytes of Msg as a big-endian uint32.
func (r *Reader) GetUint32() (uint32, error) {
	b, err := r.GetBytes(4)
	if err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(b), nil
}

// GetInt32 consumes the next 4 bytes of Msg as a big-endian int32.
func (r *Reader) GetInt32() (int32, error) {
	v, err := r.GetUint32()
	return int32(v), err
}

// Slurp discards the next size bytes from the underlying stream, used to
// recover from an oversized message.
func (r *Reader) Slurp(size int) error {
	remaining := size
	for remaining > 0 {
		chunk := remaining
		if chunk > r.MaxMessageSize {
			chunk = r.MaxMessageSize
		}

		r.reset(chunk)
		n, err := io.ReadFull(r.buf, r.Msg)
		if err != nil {
			return err
		}

		remaining -= n
	}

	return nil
}
