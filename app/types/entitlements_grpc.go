package types

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

const EntitlementsServiceName = "entitlements.EntitlementsService"

// EntitlementsServiceServer is the internal RPC surface. Messages are
// structpb.Struct values keyed by the same snake_case names as the HTTP API.
type EntitlementsServiceServer interface {
	GetSubscription(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	GetRemaining(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	HasFeatureAccess(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CheckAndConsume(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
	CancelSubscription(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

type entitlementsCall func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)

func entitlementsHandler(method string, call entitlementsCall) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		server := srv.(EntitlementsServiceServer)
		if interceptor == nil {
			return call(server, ctx, in)
		}
		info := &grpc.UnaryServerInfo{
			Server:     srv,
			FullMethod: "/" + EntitlementsServiceName + "/" + method,
		}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(server, ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var EntitlementsServiceDesc = grpc.ServiceDesc{
	ServiceName: EntitlementsServiceName,
	HandlerType: (*EntitlementsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetSubscription",
			Handler: entitlementsHandler("GetSubscription", func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetSubscription(ctx, req)
			}),
		},
		{
			MethodName: "GetRemaining",
			Handler: entitlementsHandler("GetRemaining", func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.GetRemaining(ctx, req)
			}),
		},
		{
			MethodName: "HasFeatureAccess",
			Handler: entitlementsHandler("HasFeatureAccess", func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.HasFeatureAccess(ctx, req)
			}),
		},
		{
			MethodName: "CheckAndConsume",
			Handler: entitlementsHandler("CheckAndConsume", func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.CheckAndConsume(ctx, req)
			}),
		},
		{
			MethodName: "CancelSubscription",
			Handler: entitlementsHandler("CancelSubscription", func(srv EntitlementsServiceServer, ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
				return srv.CancelSubscription(ctx, req)
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "entitlements.proto",
}

func RegisterEntitlementsServiceServer(s grpc.ServiceRegistrar, srv EntitlementsServiceServer) {
	s.RegisterService(&EntitlementsServiceDesc, srv)
}

// EntitlementsServiceClient calls the service from other internal processes.
type EntitlementsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewEntitlementsServiceClient(cc grpc.ClientConnInterface) *EntitlementsServiceClient {
	return &EntitlementsServiceClient{cc: cc}
}

func (c *EntitlementsServiceClient) invoke(ctx context.Context, method string, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+EntitlementsServiceName+"/"+method, req, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *EntitlementsServiceClient) GetSubscription(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetSubscription", req, opts...)
}

func (c *EntitlementsServiceClient) GetRemaining(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetRemaining", req, opts...)
}

func (c *EntitlementsServiceClient) HasFeatureAccess(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "HasFeatureAccess", req, opts...)
}

func (c *EntitlementsServiceClient) CheckAndConsume(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CheckAndConsume", req, opts...)
}

func (c *EntitlementsServiceClient) CancelSubscription(ctx context.Context, req *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "CancelSubscription", req, opts...)
}
