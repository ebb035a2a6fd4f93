package wirebuf

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/minipg/minipg/internal/wireproto"
)

// Writer builds and flushes length-prefixed PostgreSQL wire protocol
// frames onto an io.Writer.
type Writer struct {
	io.Writer
	frame bytes.Buffer
	err   error
}

// NewWriter constructs a Writer over the given io.Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{Writer: w}
}

// Start resets the frame buffer and begins a new message of the given
// type, reserving space for the length prefix.
func (w *Writer) Start(t wireproto.ServerMessage) {
	w.Reset()
	w.frame.WriteByte(byte(t))
	w.frame.Write([]byte{0, 0, 0, 0})
}

// AddByte appends a single byte to the frame.
func (w *Writer) AddByte(b byte) {
	if w.err != nil {
		return
	}
	w.err = w.frame.WriteByte(b)
}

// AddInt16 appends a big-endian int16 to the frame.
func (w *Writer) AddInt16(i int16) {
	if w.err != nil {
		return
	}
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], uint16(i))
	_, w.err = w.frame.Write(b[:])
}

// AddInt32 appends a big-endian int32 to the frame.
func (w *Writer) AddInt32(i int32) {
	if w.err != nil {
		return
	}
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(i))
	_, w.err = w.frame.Write(b[:])
}

// AddBytes appends raw bytes to the frame.
func (w *Writer) AddBytes(b []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.Write(b)
}

// AddString appends a string to the frame with no trailing NUL.
func (w *Writer) AddString(s string) {
	if w.err != nil {
		return
	}
	_, w.err = w.frame.WriteString(s)
}

// AddNullTerminate appends a single NUL byte.
func (w *Writer) AddNullTerminate() {
	w.AddByte(0)
}

// Reset discards any buffered but unflushed frame.
func (w *Writer) Reset() {
	w.frame.Reset()
	w.err = nil
}

// End patches in the frame's total length and flushes it to the
// underlying writer.
func (w *Writer) End() error {
	defer w.Reset()
	if w.err != nil {
		return w.err
	}

	b := w.frame.Bytes()
	length := uint32(len(b) - 1) // everything but the type tag
	binary.BigEndian.PutUint32(b[1:5], length)

	_, err := w.Write(b)
	return err
}
