package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrShortRead is the sticky error a Stream records when a read runs past
	// the end of its buffer.
	ErrShortRead = errors.New("packet: read past end of stream")
	// ErrInvalidTypeCode is recorded when a game/map type code is outside its
	// vocabulary.
	ErrInvalidTypeCode = errors.New("packet: invalid type code")
)

// Stream is a bit-granular buffer. Bits are packed LSB-first within each
// byte. A Stream is used either for writing (NewStream) or for reading
// (NewReader); the same cursor serves both.
//
// Writers panic on programming errors (bit width out of range, value wider
// than its field, unaligned byte blob). Readers never panic on malformed
// input: the first failure is recorded and returned by Err, and every later
// read yields zero values.
type Stream struct {
	buf   []byte
	bit   int
	types *Types
	err   error
}

// NewStream returns an empty stream ready for writing. types may be nil if
// no game/map type fields are encoded.
func NewStream(capacity int, types *Types) *Stream {
	return &Stream{buf: make([]byte, 0, capacity), types: types}
}

// NewReader returns a stream positioned at the start of data.
func NewReader(data []byte, types *Types) *Stream {
	return &Stream{buf: data, types: types}
}

// Reset rewinds the cursor and truncates the buffer, keeping its capacity.
func (s *Stream) Reset() {
	s.buf = s.buf[:0]
	s.bit = 0
	s.err = nil
}

// Bytes returns the written bytes. The final byte is zero padded.
func (s *Stream) Bytes() []byte {
	return s.buf
}

// Len returns the number of bytes in use.
func (s *Stream) Len() int { return len(s.buf) }

// Cap returns the capacity of the backing buffer.
func (s *Stream) Cap() int { return cap(s.buf) }

// BitIndex returns the cursor position in bits.
func (s *Stream) BitIndex() int { return s.bit }

// BitsLeft returns the number of unread bits.
func (s *Stream) BitsLeft() int {
	return len(s.buf)*8 - s.bit
}

// Err returns the first read error, if any.
func (s *Stream) Err() error { return s.err }

// Types returns the vocabularies used for game/map type fields.
func (s *Stream) Types() *Types { return s.types }

func (s *Stream) fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

func checkWidth(n int) {
	if n < 0 || n > 32 {
		panic(fmt.Sprintf("packet: bit width %d out of range [0,32]", n))
	}
}
