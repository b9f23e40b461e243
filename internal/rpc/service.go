// Package rpc exposes the ebh codec as the gRPC service ebh.v1.Codec.
//
// Messages are google.protobuf.StringValue, so the service needs no
// generated code of its own.
package rpc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/RowanDark/ebh/internal/cipher"
	"github.com/RowanDark/ebh/internal/logging"
	"github.com/RowanDark/ebh/internal/observability/metrics"
)

const (
	ServiceName = "ebh.v1.Codec"

	encodeMethod      = "/" + ServiceName + "/Encode"
	decodeMethod      = "/" + ServiceName + "/Decode"
	encodeBatchMethod = "/" + ServiceName + "/EncodeBatch"
)

// CodecServer is the server API for ebh.v1.Codec.
type CodecServer interface {
	Encode(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	Decode(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	EncodeBatch(grpc.BidiStreamingServer[wrapperspb.StringValue, wrapperspb.StringValue]) error
}

// ServiceDesc describes ebh.v1.Codec for grpc.ServiceRegistrar.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CodecServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Encode", Handler: encodeHandler},
		{MethodName: "Decode", Handler: decodeHandler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "EncodeBatch",
			Handler:       encodeBatchHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "ebh/v1/codec.proto",
}

func encodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServer).Encode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: encodeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CodecServer).Encode(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func decodeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CodecServer).Decode(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: decodeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(CodecServer).Decode(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

func encodeBatchHandler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(CodecServer).EncodeBatch(&grpc.GenericServerStream[wrapperspb.StringValue, wrapperspb.StringValue]{ServerStream: stream})
}

type service struct {
	codec  *cipher.Codec
	logger *slog.Logger
}

// Register installs ebh.v1.Codec backed by codec on s.
func Register(s grpc.ServiceRegistrar, codec *cipher.Codec, logger *slog.Logger) {
	s.RegisterService(&ServiceDesc, newService(codec, logger))
}

// NewServer returns a gRPC server with the logging and metrics interceptors
// installed and ebh.v1.Codec registered.
func NewServer(codec *cipher.Codec, logger *slog.Logger, opts ...grpc.ServerOption) *grpc.Server {
	logger = logging.OrDefault(logger)
	opts = append(opts,
		grpc.ChainUnaryInterceptor(UnaryServerInterceptor(logger)),
		grpc.ChainStreamInterceptor(StreamServerInterceptor(logger)),
	)
	s := grpc.NewServer(opts...)
	Register(s, codec, logger)
	return s
}

func newService(codec *cipher.Codec, logger *slog.Logger) *service {
	if codec == nil {
		codec = cipher.MustNewCodec()
	}
	return &service{codec: codec, logger: logging.OrDefault(logger)}
}

func (s *service) Encode(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	start := time.Now()
	out := s.codec.Encode(in.GetValue())
	metrics.ObserveOperation("grpc", metrics.DirectionEncode, len(in.GetValue()), time.Since(start))
	return wrapperspb.String(out), nil
}

func (s *service) Decode(ctx context.Context, in *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	start := time.Now()
	out, err := s.codec.Decode(in.GetValue())
	if err != nil {
		var de *cipher.DecodeError
		if errors.As(err, &de) {
			metrics.RecordDecodeError(de.Reason())
			return nil, status.Errorf(codes.InvalidArgument, "%v", err)
		}
		return nil, status.Errorf(codes.Internal, "decode: %v", err)
	}
	metrics.ObserveOperation("grpc", metrics.DirectionDecode, len(in.GetValue()), time.Since(start))
	return wrapperspb.String(out), nil
}

// EncodeBatch answers every received message with its encoding, in order,
// until the client closes its side.
func (s *service) EncodeBatch(stream grpc.BidiStreamingServer[wrapperspb.StringValue, wrapperspb.StringValue]) error {
	ctx := stream.Context()
	count := 0
	for {
		in, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			s.logger.DebugContext(ctx, "batch complete", "messages", count)
			return nil
		}
		if err != nil {
			return err
		}
		out, err := s.Encode(ctx, in)
		if err != nil {
			return err
		}
		if err := stream.Send(out); err != nil {
			return err
		}
		count++
	}
}
