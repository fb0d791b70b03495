package grpcPack

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sajjad-MoBe/NumAPI/internal/shared"
	"github.com/sajjad-MoBe/NumAPI/internal/transport"
)

const (
	// ServiceName is the fully qualified gRPC service name
	ServiceName = "numapi.Exchange"
	// DoMethod is the full method name of the unary exchange call
	DoMethod = "/" + ServiceName + "/Do"
)

// ExchangeServer is the server API for the Exchange service
type ExchangeServer interface {
	Do(ctx context.Context, req *ExchangeRequest) (*ExchangeResponse, error)
}

// ServiceDesc describes the Exchange service for grpc.Server.RegisterService
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ExchangeServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "Do",
			Handler:    doHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "numapi/exchange",
}

func doHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ExchangeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ExchangeServer).Do(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: DoMethod,
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ExchangeServer).Do(ctx, req.(*ExchangeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// Server implements ExchangeServer on top of a transport.Application
type Server struct {
	app       transport.Application
	chunkSize int
	logger    *shared.Logger
}

// NewServer creates a new gRPC exchange server instance
func NewServer(app transport.Application, chunkSize int, logger *shared.Logger) *Server {
	if logger == nil {
		logger = shared.DefaultLogger
	}
	return &Server{
		app:       app,
		chunkSize: chunkSize,
		logger:    logger,
	}
}

// NewGRPCServer builds a grpc.Server with the JSON codec, the standard
// interceptors and the Exchange service registered
func NewGRPCServer(srv ExchangeServer, logger *shared.Logger, opts ...grpc.ServerOption) *grpc.Server {
	base := []grpc.ServerOption{
		grpc.ForceServerCodec(jsonCodec{}),
		grpc.ChainUnaryInterceptor(
			UnaryErrorInterceptor(logger),
			UnaryLoggingInterceptor(logger),
		),
	}
	gs := grpc.NewServer(append(base, opts...)...)
	gs.RegisterService(&ServiceDesc, srv)
	return gs
}

// Do implements the Do RPC method
func (s *Server) Do(ctx context.Context, req *ExchangeRequest) (*ExchangeResponse, error) {
	if req.Method == "" {
		return nil, status.Error(codes.InvalidArgument, "method is required")
	}
	path := req.Path
	if path == "" {
		path = "/"
	}

	scope := transport.Scope{
		Type:     transport.ScopeHTTP,
		Method:   strings.ToUpper(req.Method),
		Path:     path,
		RawQuery: []byte(req.Query),
		Headers:  scopeHeaders(req.Headers),
	}

	rec := transport.NewRecorder()
	err := s.app.Serve(ctx, scope, transport.SplitBody([]byte(req.Body), s.chunkSize), rec.Send)
	if err != nil {
		if errors.Is(err, transport.ErrDisconnected) || ctx.Err() != nil {
			return nil, status.Error(codes.Canceled, "request canceled")
		}
		s.logger.Error("application error", "method", scope.Method, "path", scope.Path, "error", err)
		return nil, status.Error(codes.Internal, "internal error")
	}
	if !rec.Complete() {
		return nil, status.Error(codes.Internal, "application did not complete the response")
	}

	headers := make(map[string]string)
	for _, h := range rec.Headers() {
		headers[strings.ToLower(h.Name)] = h.Value
	}

	return &ExchangeResponse{
		ID:      req.ID,
		Status:  rec.Status(),
		Headers: headers,
		Body:    string(rec.Body()),
	}, nil
}

func scopeHeaders(in map[string]string) []transport.Header {
	names := make([]string, 0, len(in))
	for name := range in {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]transport.Header, 0, len(names))
	for _, name := range names {
		out = append(out, transport.Header{Name: http.CanonicalHeaderKey(name), Value: in[name]})
	}
	return out
}
