package grpcserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// The catalog service is declared by hand: every message is a
// google.protobuf.Struct, so no generated code is needed.
const ServiceName = "moviehub.Catalog"

const (
	MethodListMovies     = "/" + ServiceName + "/ListMovies"
	MethodGetMovie       = "/" + ServiceName + "/GetMovie"
	MethodGetMovieRating = "/" + ServiceName + "/GetMovieRating"
)

type CatalogServer interface {
	ListMovies(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetMovie(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetMovieRating(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(CatalogServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CatalogServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CatalogServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CatalogServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListMovies", Handler: unary(MethodListMovies, CatalogServer.ListMovies)},
		{MethodName: "GetMovie", Handler: unary(MethodGetMovie, CatalogServer.GetMovie)},
		{MethodName: "GetMovieRating", Handler: unary(MethodGetMovieRating, CatalogServer.GetMovieRating)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "moviehub/catalog",
}

func RegisterCatalogServer(s grpc.ServiceRegistrar, srv CatalogServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// Client calls the catalog over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) call(ctx context.Context, method string, in map[string]any) (*structpb.Struct, error) {
	req, err := structpb.NewStruct(in)
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ListMovies(ctx context.Context, in map[string]any) (*structpb.Struct, error) {
	return c.call(ctx, MethodListMovies, in)
}

func (c *Client) GetMovie(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.call(ctx, MethodGetMovie, map[string]any{"id": id})
}

func (c *Client) GetMovieRating(ctx context.Context, id string) (*structpb.Struct, error) {
	return c.call(ctx, MethodGetMovieRating, map[string]any{"id": id})
}
