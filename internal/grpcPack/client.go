package grpcPack

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Client calls the Exchange service
type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to an Exchange server. Extra options are applied after the
// defaults, so callers can override the transport credentials or dialer.
func Dial(target string, opts ...grpc.DialOption) (*Client, error) {
	base := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})),
	}
	conn, err := grpc.Dial(target, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Do sends one exchange request
func (c *Client) Do(ctx context.Context, req *ExchangeRequest, opts ...grpc.CallOption) (*ExchangeResponse, error) {
	out := new(ExchangeResponse)
	if err := c.conn.Invoke(ctx, DoMethod, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// Close tears down the connection
func (c *Client) Close() error {
	return c.conn.Close()
}
