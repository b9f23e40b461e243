package rpc

import (
	"context"
	"errors"
	"io"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client calls ebh.v1.Codec over an established connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) Encode(ctx context.Context, msg string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, encodeMethod, wrapperspb.String(msg), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// Decode returns a status error with codes.InvalidArgument when the server
// rejects the input.
func (c *Client) Decode(ctx context.Context, encoded string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, decodeMethod, wrapperspb.String(encoded), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

// EncodeBatch streams msgs to the server and collects the encodings in order.
// Sending and receiving run concurrently so large batches cannot stall on
// flow control.
func (c *Client) EncodeBatch(ctx context.Context, msgs []string, opts ...grpc.CallOption) ([]string, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], encodeBatchMethod, opts...)
	if err != nil {
		return nil, err
	}

	results := make([]string, 0, len(msgs))
	g := new(errgroup.Group)
	g.Go(func() error {
		for _, msg := range msgs {
			if err := stream.SendMsg(wrapperspb.String(msg)); err != nil {
				// The receive side reports the real status.
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
		return stream.CloseSend()
	})
	g.Go(func() error {
		for {
			out := new(wrapperspb.StringValue)
			err := stream.RecvMsg(out)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				cancel()
				return err
			}
			results = append(results, out.GetValue())
		}
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(results) != len(msgs) {
		return nil, errors.New("ebh: batch stream ended early")
	}
	return results, nil
}
