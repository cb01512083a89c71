package server

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

const (
	// MaxLineSize bounds one NDJSON request.
	MaxLineSize = 10 * 1024 * 1024

	// MaxIDBytes bounds the literal request id.
	MaxIDBytes = 256
)

var (
	ErrLineTooLong   = errors.New("NDJSON line exceeds maximum size")
	ErrIDTooLarge    = errors.New("request id exceeds maximum size")
	ErrIDInvalidType = errors.New("request id must be a string, number or null")
)

// ValidateID accepts the JSON-RPC scalar id forms. An absent id is valid and
// marks a notification.
func ValidateID(id json.RawMessage) error {
	id = bytes.TrimSpace(id)
	if len(id) == 0 {
		return nil
	}
	if len(id) > MaxIDBytes {
		return ErrIDTooLarge
	}
	switch id[0] {
	case '{', '[', 't', 'f':
		return ErrIDInvalidType
	}
	return nil
}

// LineReader reads newline-delimited lines of at most maxSize bytes. An
// oversized line is consumed and reported as ErrLineTooLong so the next
// read starts on a fresh line.
type LineReader struct {
	reader  *bufio.Reader
	maxSize int
	buf     []byte
}

func NewLineReader(r io.Reader, maxSize int) *LineReader {
	return &LineReader{
		reader:  bufio.NewReaderSize(r, 64*1024),
		maxSize: maxSize,
		buf:     make([]byte, 0, 4096),
	}
}

// ReadLine returns a copy of the next line without its terminator.
func (l *LineReader) ReadLine() ([]byte, error) {
	l.buf = l.buf[:0]

	for {
		if len(l.buf) >= l.maxSize {
			for {
				b, err := l.reader.ReadByte()
				if err != nil || b == '\n' {
					break
				}
			}
			return nil, ErrLineTooLong
		}

		b, err := l.reader.ReadByte()
		if err != nil {
			if err == io.EOF && len(l.buf) > 0 {
				return l.copyLine(), nil
			}
			return nil, err
		}

		if b == '\n' {
			if n := len(l.buf); n > 0 && l.buf[n-1] == '\r' {
				l.buf = l.buf[:n-1]
			}
			return l.copyLine(), nil
		}

		l.buf = append(l.buf, b)
	}
}

func (l *LineReader) copyLine() []byte {
	out := make([]byte, len(l.buf))
	copy(out, l.buf)
	return out
}
