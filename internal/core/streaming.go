package core

// streaming.go provides reader wrappers applied to every upload before it
// reaches the CSV parser:
//
//   - bomSkippingReader: drops a leading UTF-8 BOM written by Excel on Windows
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?' without buffering the file
//   - limitedReader: fails with ErrFileTooLarge once the size limit is crossed
//
// Use WrapUpload to apply them in the correct order.

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomSkippingReader skips the UTF-8 BOM if present.
type bomSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{r: bufio.NewReader(r)}
}

func (b *bomSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		head, err := b.r.Peek(len(utf8BOM))
		if err != nil && err != io.EOF {
			return 0, err
		}
		if bytes.Equal(head, utf8BOM) {
			if _, err := b.r.Discard(len(utf8BOM)); err != nil {
				return 0, err
			}
		}
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 sequences on the fly. Bytes that may
// start a multi-byte sequence split across reads are held back until the
// next call.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := copy(p, s.pending)
	s.pending = s.pending[:0]

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to emit.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	write := 0
	for read := 0; read < len(data); {
		if data[read] < utf8.RuneSelf {
			data[write] = data[read]
			write++
			read++
			continue
		}

		if !atEOF && !utf8.FullRune(data[read:]) {
			s.pending = append(s.pending, data[read:]...)
			return write
		}

		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input
			data[write] = '?'
			write++
			read++
			continue
		}

		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

// limitedReader returns ErrFileTooLarge instead of silently truncating.
type limitedReader struct {
	r     io.Reader
	limit int64
	read  int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	n, err := l.r.Read(p)
	l.read += int64(n)
	if l.limit > 0 && l.read > l.limit {
		return n, fmt.Errorf("%w: exceeds %d bytes", ErrFileTooLarge, l.limit)
	}
	return n, err
}

// WrapUpload applies size limiting, BOM skipping and UTF-8 sanitization.
// A maxSize of 0 disables the size check.
//
// The order matters:
//  1. The limit counts bytes exactly as received
//  2. BOM must be stripped before any decoding
//  3. UTF-8 sanitization happens last
func WrapUpload(r io.Reader, maxSize int64) io.Reader {
	limited := &limitedReader{r: r, limit: maxSize}
	return newUTF8Sanitizer(newBOMSkippingReader(limited))
}
