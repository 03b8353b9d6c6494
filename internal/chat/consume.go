package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"quran-ai/internal/reasoning"
)

const readBufferSize = 4 << 10

// StreamState is the accumulated response text. Raw holds everything
// received; Cleaned is what gets displayed.
type StreamState struct {
	Raw     string
	Cleaned string
}

// Consume reads body until EOF, decoding UTF-8 across read boundaries, and
// calls publish with the full cleaned text whenever it changes. publish
// replaces the previous text; it is never given a delta.
func Consume(ctx context.Context, body io.Reader, publish func(string)) (StreamState, error) {
	reader := transform.NewReader(body, unicode.UTF8.NewDecoder())
	buf := make([]byte, readBufferSize)

	var (
		raw       strings.Builder
		state     StreamState
		published bool
	)
	emit := func(cleaned string) {
		if published && cleaned == state.Cleaned {
			return
		}
		state.Cleaned = cleaned
		published = true
		if publish != nil {
			publish(cleaned)
		}
	}

	for {
		if err := ctx.Err(); err != nil {
			state.Raw = raw.String()
			return state, err
		}

		n, err := reader.Read(buf)
		if n > 0 {
			raw.Write(buf[:n])
			state.Raw = raw.String()
			emit(reasoning.StripPartial(state.Raw))
		}
		if errors.Is(err, io.EOF) {
			state.Raw = raw.String()
			emit(reasoning.Strip(state.Raw))
			return state, nil
		}
		if err != nil {
			state.Raw = raw.String()
			if ctxErr := ctx.Err(); ctxErr != nil {
				return state, ctxErr
			}
			return state, fmt.Errorf("read relay stream: %w", err)
		}
	}
}
