package remote

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// Handler implements a resolver backend.
type Handler interface {
	// Resolve returns the value for one field instance or node. Returning an
	// *Error sends its extensions along with the message.
	Resolve(ctx context.Context, req *Request) (any, error)
	// Check decides access for a checker coordinate.
	Check(ctx context.Context, req *CheckRequest) (Decision, string, error)
}

// BatchHandler is implemented by handlers that answer a whole batch at once.
// Handlers without it get one Resolve call per item.
type BatchHandler interface {
	ResolveBatch(ctx context.Context, coordinate string, reqs []*Request) ([]Result, error)
}

// RegisterServer exposes h as the resolver service on s.
func RegisterServer(s *grpc.Server, h Handler) {
	s.RegisterService(&serviceDesc, &server{h: h})
}

type resolverServer interface {
	handler() Handler
}

type server struct{ h Handler }

func (s *server) handler() Handler { return s.h }

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*resolverServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: MethodResolve, Handler: unary(MethodResolve, (*server).resolve)},
		{MethodName: MethodResolveBatch, Handler: unary(MethodResolveBatch, (*server).resolveBatch)},
		{MethodName: MethodCheck, Handler: unary(MethodCheck, (*server).check)},
	},
	Metadata: "graphrt/remote/v1/resolver.proto",
}

type unaryFunc func(*server, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unary(method string, fn unaryFunc) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		s := srv.(*server)
		if interceptor == nil {
			return fn(s, ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return fn(s, ctx, req.(*structpb.Struct))
		})
	}
}

func (s *server) resolve(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	v, err := s.h.Resolve(ctx, decodeRequest(in))
	return response(encodeResult(v, err))
}

func (s *server) resolveBatch(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	coordinate, reqs, err := decodeBatch(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var results []Result
	if bh, ok := s.h.(BatchHandler); ok {
		results, err = bh.ResolveBatch(ctx, coordinate, reqs)
		if err != nil {
			return nil, status.Error(codes.Unknown, err.Error())
		}
	} else {
		results = make([]Result, len(reqs))
		for i, req := range reqs {
			v, err := s.h.Resolve(ctx, req)
			results[i] = Result{Value: v, Err: err}
		}
	}
	items := make([]any, len(results))
	for i, r := range results {
		items[i] = encodeResult(r.Value, r.Err)
	}
	return response(map[string]any{"results": items})
}

func (s *server) check(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	decision, message, err := s.h.Check(ctx, decodeCheck(in))
	if err != nil {
		return nil, status.Error(codes.Unknown, err.Error())
	}
	return response(map[string]any{"decision": string(decision), "message": message})
}

func response(m map[string]any) (*structpb.Struct, error) {
	out, err := newStruct(m)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("encode response: %v", err))
	}
	return out, nil
}
