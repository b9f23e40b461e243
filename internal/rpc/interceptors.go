package rpc

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/RowanDark/ebh/internal/logging"
	"github.com/RowanDark/ebh/internal/observability/metrics"
)

// RequestIDKey is the metadata key carrying the request ID in both
// directions.
const RequestIDKey = "x-request-id"

type requestIDKey struct{}

// RequestIDFromContext returns the ID assigned by the server interceptors.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// requestID reuses a caller supplied ID or mints a new one.
func requestID(ctx context.Context) (context.Context, string) {
	var id string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDKey); len(vals) > 0 {
			id = strings.TrimSpace(vals[0])
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, requestIDKey{}, id), id
}

// UnaryServerInterceptor assigns request IDs, records request metrics and
// logs each call.
func UnaryServerInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	logger = logging.OrDefault(logger)
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		ctx, id := requestID(ctx)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDKey, id))
		start := time.Now()
		resp, err := handler(ctx, req)
		finish(ctx, logger, info.FullMethod, "unary", id, start, err)
		return resp, err
	}
}

// StreamServerInterceptor is UnaryServerInterceptor for streams.
func StreamServerInterceptor(logger *slog.Logger) grpc.StreamServerInterceptor {
	logger = logging.OrDefault(logger)
	return func(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		ctx, id := requestID(ss.Context())
		_ = ss.SetHeader(metadata.Pairs(RequestIDKey, id))
		start := time.Now()
		err := handler(srv, &serverStream{ServerStream: ss, ctx: ctx})
		finish(ctx, logger, info.FullMethod, streamType(info), id, start, err)
		return err
	}
}

func finish(ctx context.Context, logger *slog.Logger, fullMethod, kind, id string, start time.Time, err error) {
	dur := time.Since(start)
	code := status.Code(err).String()
	metrics.RecordRPCRequest("grpc", fullMethod)
	metrics.ObserveRPCLatency("grpc", fullMethod, code, dur)

	service, method := splitMethod(fullMethod)
	attrs := []any{
		"request_id", id,
		"rpc.service", service,
		"rpc.method", method,
		"rpc.grpc.type", kind,
		"code", code,
		"duration", dur,
	}
	if err != nil {
		metrics.RecordRPCError("grpc", fullMethod, code)
		logger.WarnContext(ctx, "rpc failed", append(attrs, "error", err)...)
		return
	}
	logger.InfoContext(ctx, "rpc", attrs...)
}

type serverStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *serverStream) Context() context.Context { return s.ctx }

func splitMethod(full string) (string, string) {
	full = strings.TrimPrefix(full, "/")
	parts := strings.Split(full, "/")
	if len(parts) != 2 {
		return full, ""
	}
	return parts[0], parts[1]
}

func streamType(info *grpc.StreamServerInfo) string {
	switch {
	case info.IsClientStream && info.IsServerStream:
		return "bidi"
	case info.IsClientStream:
		return "client_stream"
	case info.IsServerStream:
		return "server_stream"
	default:
		return "unary"
	}
}
