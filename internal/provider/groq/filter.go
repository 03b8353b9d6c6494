package groq

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/openai/openai-go/option"

	"quran-ai/internal/models"
	"quran-ai/internal/provider/eventstream"
)

const maxLogChunk = 256

// dropMalformed rewrites successful streaming responses so the SDK decoder
// only sees records that are valid JSON. Anything else is logged, counted
// and skipped.
func (p *Provider) dropMalformed(req *http.Request, next option.MiddlewareNext) (*http.Response, error) {
	resp, err := next(req)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, err
	}
	if !strings.HasSuffix(req.URL.Path, "/chat/completions") {
		return resp, nil
	}

	upstream := resp.Body
	pr, pw := io.Pipe()
	go func() {
		defer upstream.Close()
		pw.CloseWithError(p.copyRecords(eventstream.NewScanner(upstream), pw))
	}()
	resp.Body = filteredBody{PipeReader: pr, upstream: upstream}
	resp.ContentLength = -1
	return resp, nil
}

func (p *Provider) copyRecords(scanner *eventstream.Scanner, w io.Writer) error {
	for {
		payload, err := scanner.Next()
		if err == io.EOF {
			_, err = io.WriteString(w, "data: [DONE]\n\n")
			return err
		}
		if err != nil {
			return err
		}
		if !json.Valid([]byte(payload)) {
			slog.Warn("dropping malformed stream chunk",
				"provider", models.ProviderGroq,
				"chunk", truncate(payload, maxLogChunk),
			)
			p.metrics.MalformedChunk(string(models.ProviderGroq))
			continue
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
			return err
		}
	}
}

// filteredBody closes the upstream body too, which unblocks the copier.
type filteredBody struct {
	*io.PipeReader
	upstream io.Closer
}

func (b filteredBody) Close() error {
	_ = b.PipeReader.Close()
	return b.upstream.Close()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
