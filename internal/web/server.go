package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/hpungsan/stalker/internal/ops"
)

// maxBodyBytes bounds inbound request bodies.
const maxBodyBytes = 64 << 10

// Auth holds the credentials checked at the boundary.
type Auth struct {
	// Password is the bearer token for device and manual endpoints.
	Password string

	// ZoomVerificationToken must equal the Authorization header on /zoom.
	ZoomVerificationToken string

	// ZoomSecretToken signs endpoint.url_validation responses.
	ZoomSecretToken string
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Engine ops.Engine
	Auth   Auth

	// MCP, when set, is mounted at /mcp behind the bearer password.
	MCP http.Handler

	Logger *slog.Logger
}

// NewServer creates and configures the HTTP server. Cleartext HTTP/2 is
// accepted alongside HTTP/1.1.
func NewServer(deps Deps, addr, version string) *http.Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	h := &Handlers{
		engine:   deps.Engine,
		auth:     deps.Auth,
		renderer: NewRenderer(version),
		logger:   deps.Logger.With("component", "web"),
	}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /{$}", h.HandleStatus)
	mux.HandleFunc("GET /history", h.HandleHistory)
	mux.Handle("POST /ping/{key}", h.requirePassword(http.HandlerFunc(h.HandlePing)))
	mux.Handle("POST /list/{key}/{sourceDevice}", h.requirePassword(http.HandlerFunc(h.HandleList)))
	mux.HandleFunc("POST /zoom", h.HandleZoom)
	mux.Handle("PUT /manual", h.requirePassword(http.HandlerFunc(h.HandleSetManual)))
	mux.Handle("DELETE /manual", h.requirePassword(http.HandlerFunc(h.HandleClearManual)))
	if deps.MCP != nil {
		mux.Handle("/mcp", h.requirePassword(deps.MCP))
	}

	handler := securityHeaders(logRequests(h.logger, mux))

	return &http.Server{
		Addr:              addr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' https:; style-src 'self' 'unsafe-inline'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "elapsed", time.Since(start))
	})
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("stalker listening", "addr", "http://"+srv.Addr)

	if strings.HasPrefix(srv.Addr, "0.0.0.0") || strings.HasPrefix(srv.Addr, ":") || strings.Contains(srv.Addr, "::") {
		logger.Warn("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
