package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"quran-ai/internal/config"
	"quran-ai/internal/metrics"
	"quran-ai/internal/models"
	"quran-ai/internal/provider"
	"quran-ai/internal/router"
	"quran-ai/internal/scripture"
	"quran-ai/internal/translator"
)

const (
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
)

type Server struct {
	cfg       config.Config
	router    *router.Router
	scripture *scripture.Client
	metrics   *metrics.Collector
	app       *echo.Echo
	address   string
}

// New constructs an HTTP server wired with routing and middleware. The
// scripture client and metrics collector are optional.
func New(cfg config.Config, rt *router.Router, sc *scripture.Client, m *metrics.Collector) (*Server, error) {
	if rt == nil {
		return nil, errors.New("router must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			slog.Info("request",
				"request_id", v.RequestID,
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
				"error", v.Error,
			)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))
	e.Use(middleware.BodyLimit("1M"))

	srv := &Server{
		cfg:       cfg,
		router:    rt,
		scripture: sc,
		metrics:   m,
		app:       e,
		address:   fmt.Sprintf(":%d", cfg.Server.Port),
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port, s.scripture != nil)
	slog.Info("starting server", "addr", s.address)

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		slog.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.app.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
	s.app.POST("/api/ai", s.handleRelay)
	s.app.POST("/api/groq-chat", s.handleGroqChat)
	s.app.GET("/api/models/best", s.handleBestModel)
	s.app.GET("/api/:listing", s.handleModelList)
	if s.scripture != nil {
		s.app.GET("/api/surahs", s.handleChapters)
		s.app.GET("/api/quran", s.handlePartition)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleGroqChat answers a chat request in one JSON body instead of a stream.
func (s *Server) handleGroqChat(c echo.Context) error {
	var body translator.ChatRequest
	if err := decodeRequestBody(c, &body); err != nil {
		return err
	}

	req, err := body.ToGeneration()
	if err != nil {
		s.metrics.Rejected(metricLabel(models.ProviderGroq), "invalid")
		return toHTTPError(err)
	}

	started := time.Now()
	finish := s.metrics.StreamOpened(metricLabel(req.Provider))
	text, err := s.collect(c.Request().Context(), req)
	if err != nil {
		finish(outcomeOf(err), time.Since(started).Seconds())
		slog.Error("groq chat failed", "model", req.Model, "err", err)
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: "failed to get response from Groq",
		}
	}
	finish("ok", time.Since(started).Seconds())
	return c.JSON(http.StatusOK, translator.ChatResponse{Response: text})
}

func (s *Server) collect(ctx context.Context, req models.GenerationRequest) (string, error) {
	stream, err := s.router.Dispatch(ctx, req)
	if err != nil {
		return "", err
	}
	return provider.Collect(stream)
}

func (s *Server) handleModelList(c echo.Context) error {
	name, ok := strings.CutSuffix(c.Param("listing"), "-models")
	if !ok {
		return echo.ErrNotFound
	}
	id, ok := models.ParseProviderID(name)
	if !ok {
		return echo.ErrNotFound
	}

	catalog, err := s.router.ListModels(c.Request().Context(), id)
	if err != nil {
		slog.Error("model listing failed", "provider", id, "err", err)
		return requestError{
			Status:  http.StatusInternalServerError,
			Message: fmt.Sprintf("failed to fetch %s models", id),
		}
	}
	return c.JSON(http.StatusOK, translator.FromCatalog(catalog))
}

func (s *Server) handleBestModel(c echo.Context) error {
	sel, err := s.router.SelectBest(c.Request().Context())
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, sel)
}

func (s *Server) handleChapters(c echo.Context) error {
	chapters, err := s.scripture.ListChapters(c.Request().Context())
	if err != nil {
		slog.Error("chapter listing failed", "err", err)
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": chapters})
}

func (s *Server) handlePartition(c echo.Context) error {
	kind, ok := scripture.ParseKind(c.QueryParam("type"))
	if !ok {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "type must be one of surah, juz, hizbQuarter, ruku",
		}
	}
	number, err := strconv.Atoi(c.QueryParam("number"))
	if err != nil {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "number must be an integer",
		}
	}

	ctx := c.Request().Context()
	var partition *scripture.Partition
	if edition := strings.TrimSpace(c.QueryParam("edition")); edition != "" {
		partition, err = s.scripture.FetchPartition(ctx, kind, number, edition)
	} else {
		partition, err = s.scripture.FetchBilingual(ctx, kind, number)
	}
	if err != nil {
		slog.Error("partition fetch failed", "type", kind, "number", number, "err", err)
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": partition})
}

func decodeRequestBody[T any](c echo.Context, target *T) error {
	req := c.Request()
	defer req.Body.Close()

	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes)

	decoder := json.NewDecoder(req.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return requestError{
				Status:  http.StatusBadRequest,
				Message: "request body is required",
			}
		}
		return requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
		}
	}

	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return requestError{
			Status:  http.StatusBadRequest,
			Message: "request body must contain a single JSON object",
		}
	}
	return nil
}

type requestError struct {
	Status  int
	Message string
}

func (e requestError) Error() string {
	return e.Message
}

func writeError(c echo.Context, status int, message string) error {
	return c.JSON(status, translator.ErrorResponse{Error: message})
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, fmt.Sprint(he.Message))
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error")
}

func toHTTPError(err error) error {
	var reqErr requestError
	if errors.As(err, &reqErr) {
		return reqErr
	}

	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, provider.ErrUnknownProvider),
		errors.Is(err, scripture.ErrInvalidPartition):
		return requestError{Status: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, provider.ErrUpstreamTimeout):
		return requestError{Status: http.StatusGatewayTimeout, Message: "upstream provider timed out"}
	case errors.Is(err, provider.ErrNoProviderAvailable):
		return requestError{Status: http.StatusServiceUnavailable, Message: "no AI model is available"}
	case errors.Is(err, scripture.ErrUpstream):
		return requestError{Status: http.StatusBadGateway, Message: "scripture service error"}
	}

	var upstreamErr *provider.UpstreamError
	if errors.As(err, &upstreamErr) {
		return requestError{Status: http.StatusInternalServerError, Message: "upstream provider error"}
	}

	return requestError{Status: http.StatusInternalServerError, Message: "failed to generate response"}
}

func printStartupBanner(port int, withScripture bool) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("quran-ai relay ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /metrics")
	fmt.Println("  POST /api/ai")
	fmt.Println("  POST /api/groq-chat")
	fmt.Println("  GET  /api/{together,groq,openrouter}-models")
	fmt.Println("  GET  /api/models/best")
	if withScripture {
		fmt.Println("  GET  /api/surahs")
		fmt.Println("  GET  /api/quran?type=&number=&edition=")
	}
	fmt.Printf("Example:\n  curl -N http://%s:%d/api/ai -H 'Content-Type: application/json' -d '{\"prompt\":\"Apa itu zakat?\",\"provider\":\"groq\",\"model\":\"llama-3.3-70b-versatile\"}'\n\n", host, port)
}
