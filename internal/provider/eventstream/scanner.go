// Package eventstream splits `data: <payload>` framed upstream responses
// into payloads, stopping at the `[DONE]` sentinel.
package eventstream

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

const (
	dataPrefix = "data:"
	doneMarker = "[DONE]"

	// maxLineSize bounds a single line; long completions can exceed the
	// bufio default of 64 KiB.
	maxLineSize = 1 << 20
)

// Scanner reads newline-delimited event records from an upstream body.
// Partial lines are kept across reads until their newline arrives; an
// unterminated final line is still processed at EOF.
type Scanner struct {
	scanner *bufio.Scanner
	done    bool
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: s}
}

// Next returns the payload of the next data line. It returns io.EOF at the
// end of the body or once the sentinel has been seen.
func (s *Scanner) Next() (string, error) {
	if s.done {
		return "", io.EOF
	}
	for s.scanner.Scan() {
		line := strings.TrimRight(s.scanner.Text(), "\r")
		if !strings.HasPrefix(line, dataPrefix) {
			// blank separators, ": keep-alive" comments, event:/id: fields
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, dataPrefix))
		if payload == doneMarker {
			s.done = true
			return "", io.EOF
		}
		if payload == "" {
			continue
		}
		return payload, nil
	}
	s.done = true
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read event stream: %w", err)
	}
	return "", io.EOF
}
