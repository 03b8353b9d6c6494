package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	"quran-ai/internal/translator"
)

// handleRelay streams the answer for one prompt as plain UTF-8 text. The
// first fragment is read before anything is written, so a failed handshake
// still produces a JSON error with a meaningful status. After that the
// outcome is reported in the X-Stream-Status trailer.
func (s *Server) handleRelay(c echo.Context) error {
	var body translator.RelayRequest
	if err := decodeRequestBody(c, &body); err != nil {
		return err
	}

	req, err := body.ToGeneration()
	if err != nil {
		id, _ := models.ParseProviderID(body.Provider)
		s.metrics.Rejected(metricLabel(id), "invalid")
		return toHTTPError(err)
	}

	ctx := c.Request().Context()
	log := slog.With("request_id", c.Response().Header().Get(echo.HeaderXRequestID), "provider", req.Provider, "model", req.Model)
	label := metricLabel(req.Provider)
	started := time.Now()

	stream, err := s.router.Dispatch(ctx, req)
	if err != nil {
		s.metrics.Rejected(label, outcomeOf(err))
		logDispatchError(log, err)
		return toHTTPError(err)
	}
	defer stream.Close()

	first, err := nextFragment(stream)
	if err != nil && !errors.Is(err, io.EOF) {
		s.metrics.Rejected(label, outcomeOf(err))
		logDispatchError(log, err)
		return toHTTPError(err)
	}
	ended := errors.Is(err, io.EOF)

	res := c.Response()
	header := res.Header()
	header.Set(echo.HeaderContentType, "text/plain; charset=utf-8")
	header.Set("Cache-Control", "no-cache")
	header.Set("X-Accel-Buffering", "no")
	header.Set("Trailer", models.StreamStatusTrailer)
	res.WriteHeader(http.StatusOK)

	finish := s.metrics.StreamOpened(label)
	outcome := "ok"
	defer func() {
		finish(outcome, time.Since(started).Seconds())
	}()

	fragments := 0
	write := func(frag string) bool {
		if _, err := io.WriteString(res, frag); err != nil {
			log.Warn("client write failed", "err", err)
			return false
		}
		res.Flush()
		fragments++
		s.metrics.Fragment(label)
		return true
	}

	if first != "" {
		s.metrics.FirstFragment(label, time.Since(started).Seconds())
		if !write(first) {
			outcome = "client_gone"
			return nil
		}
	}

	for !ended {
		frag, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			outcome = outcomeOf(err)
			header.Set(models.StreamStatusTrailer, models.StreamStatusError)
			log.Error("stream failed mid-response", "fragments", fragments, "err", err)
			return nil
		}
		if frag == "" {
			continue
		}
		if !write(frag) {
			outcome = "client_gone"
			return nil
		}
	}

	header.Set(models.StreamStatusTrailer, models.StreamStatusOK)
	log.Debug("stream complete", "fragments", fragments, "duration_ms", time.Since(started).Milliseconds())
	return nil
}

// nextFragment skips empty fragments.
func nextFragment(stream provider.Stream) (string, error) {
	for {
		frag, err := stream.Recv()
		if err != nil || frag != "" {
			return frag, err
		}
	}
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, models.ErrValidation), errors.Is(err, provider.ErrUnknownProvider):
		return "invalid"
	case errors.Is(err, provider.ErrUpstreamTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	}
	return "error"
}

func logDispatchError(log *slog.Logger, err error) {
	var upstreamErr *provider.UpstreamError
	if errors.As(err, &upstreamErr) {
		log.Error("upstream rejected request", "status", upstreamErr.Status, "message", upstreamErr.Message)
		return
	}
	log.Error("relay dispatch failed", "err", err)
}

// metricLabel keeps label cardinality bounded to the known providers.
func metricLabel(id models.ProviderID) string {
	if id.Valid() {
		return string(id)
	}
	return "unknown"
}
