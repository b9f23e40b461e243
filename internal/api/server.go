package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/logging"
	"github.com/RowanDark/ebh/internal/observability/metrics"
)

// Config configures the REST API server.
type Config struct {
	Addr            string
	Codec           *cipher.Codec
	Logger          *slog.Logger
	BatchLimit      int
	MaxBodyBytes    int64
	ShutdownTimeout time.Duration
	// GRPC, when set, receives HTTP/2 requests with a gRPC content type so
	// both protocols share one port.
	GRPC http.Handler
}

// Server exposes the codec over JSON endpoints.
type Server struct {
	cfg        Config
	codec      *cipher.Codec
	logger     *slog.Logger
	httpServer *http.Server
}

const (
	defaultBatchLimit      = 8
	defaultMaxBodyBytes    = 1 << 20
	defaultShutdownTimeout = 5 * time.Second
)

// NewServer constructs a REST API server using the provided configuration.
func NewServer(cfg Config) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	if cfg.Addr == "" {
		return nil, errors.New("api address must be provided")
	}
	if cfg.BatchLimit < 0 {
		return nil, errors.New("batch limit cannot be negative")
	}
	if cfg.BatchLimit == 0 {
		cfg.BatchLimit = defaultBatchLimit
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}
	codec := cfg.Codec
	if codec == nil {
		codec = cipher.MustNewCodec()
	}
	return &Server{
		cfg:    cfg,
		codec:  codec,
		logger: logging.OrDefault(cfg.Logger).With("subsystem", "api"),
	}, nil
}

// Handler returns the routed handler with middleware applied. gRPC requests
// bypass the REST middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/v1/encode", s.handleEncode)
	mux.HandleFunc("/api/v1/decode", s.handleDecode)
	mux.HandleFunc("/api/v1/batch", s.handleBatch)
	mux.HandleFunc("/api/v1/pipeline", s.handlePipeline)
	mux.HandleFunc("/api/v1/operations", s.handleListOperations)

	rest := s.withMiddleware(mux)
	if s.cfg.GRPC == nil {
		return rest
	}
	grpcHandler := s.cfg.GRPC
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ProtoMajor == 2 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/grpc") {
			grpcHandler.ServeHTTP(w, r)
			return
		}
		rest.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until the provided context is cancelled or a fatal error occurs.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener. Cleartext HTTP/2 is accepted so gRPC
// clients can connect without TLS.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           h2c.NewHandler(s.Handler(), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("listening", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		err := s.httpServer.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancelShutdown()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("shutdown incomplete", "error", err)
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("write response", "error", err)
	}
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
	Offset *int   `json:"offset,omitempty"`
}

// writeDecodeError reports a rejected message as 422 with the offending
// offset.
func (s *Server) writeDecodeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: err.Error()}
	var de *cipher.DecodeError
	if errors.As(err, &de) {
		offset := de.Offset
		resp.Reason = de.Reason()
		resp.Offset = &offset
		metrics.RecordDecodeError(de.Reason())
	}
	s.writeJSON(w, http.StatusUnprocessableEntity, resp)
}

// decodeJSON reads a request body into v. It writes the error response
// itself and reports whether decoding succeeded.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
			return false
		}
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json"})
		return false
	}
	return true
}
