package grpcPack

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	numErr "github.com/sajjad-MoBe/NumAPI/internal/errors"
	"github.com/sajjad-MoBe/NumAPI/internal/shared"
)

// UnaryErrorInterceptor recovers panics and maps NumErrors to gRPC codes
func UnaryErrorInterceptor(logger *shared.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = shared.DefaultLogger
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				rerr := numErr.RecoverError(r)
				logger.Error("panic in rpc", "method", info.FullMethod, "error", rerr)
				resp = nil
				err = status.Error(codes.Internal, "internal error")
			}
		}()

		resp, err = handler(ctx, req)
		if err != nil {
			return nil, convertError(err)
		}
		return resp, nil
	}
}

// UnaryLoggingInterceptor logs one line per call
func UnaryLoggingInterceptor(logger *shared.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = shared.DefaultLogger
	}
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		attrs := []any{
			"method", info.FullMethod,
			"code", status.Code(err).String(),
			"duration", time.Since(start),
		}
		if r, ok := resp.(*ExchangeResponse); ok {
			attrs = append(attrs, "status", r.Status)
		}
		logger.Info("rpc", attrs...)
		return resp, err
	}
}

// convertError converts a NumError to a gRPC status error. Errors that
// already carry a status pass through.
func convertError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case numErr.IsNotFound(err):
		return status.Error(codes.NotFound, err.Error())
	case numErr.IsInvalidInput(err):
		return status.Error(codes.InvalidArgument, err.Error())
	case numErr.IsUnprocessable(err):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
