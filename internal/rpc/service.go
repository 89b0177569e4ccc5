package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "confessions.v1.ConfessionService"

const (
	ConfessionService_Identify_FullMethodName = "/" + ServiceName + "/Identify"
	ConfessionService_Submit_FullMethodName   = "/" + ServiceName + "/Submit"
	ConfessionService_Feed_FullMethodName     = "/" + ServiceName + "/Feed"
	ConfessionService_View_FullMethodName     = "/" + ServiceName + "/View"
	ConfessionService_Status_FullMethodName   = "/" + ServiceName + "/Status"
)

type ConfessionServiceServer interface {
	Identify(context.Context, *IdentifyRequest) (*IdentifyResponse, error)
	Submit(context.Context, *SubmitRequest) (*SubmitResponse, error)
	Feed(context.Context, *FeedRequest) (*FeedResponse, error)
	View(context.Context, *ViewRequest) (*ViewResponse, error)
	Status(context.Context, *StatusRequest) (*StatusResponse, error)
}

// UnimplementedConfessionServiceServer answers every method with
// codes.Unimplemented. Embed it to stay compatible with new methods.
type UnimplementedConfessionServiceServer struct{}

func (UnimplementedConfessionServiceServer) Identify(context.Context, *IdentifyRequest) (*IdentifyResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Identify not implemented")
}
func (UnimplementedConfessionServiceServer) Submit(context.Context, *SubmitRequest) (*SubmitResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}
func (UnimplementedConfessionServiceServer) Feed(context.Context, *FeedRequest) (*FeedResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Feed not implemented")
}
func (UnimplementedConfessionServiceServer) View(context.Context, *ViewRequest) (*ViewResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method View not implemented")
}
func (UnimplementedConfessionServiceServer) Status(context.Context, *StatusRequest) (*StatusResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Status not implemented")
}

func unaryHandler[Req, Resp any](fullMethod string, call func(ConfessionServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ConfessionServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ConfessionServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

var ConfessionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ConfessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Identify", Handler: unaryHandler(ConfessionService_Identify_FullMethodName, ConfessionServiceServer.Identify)},
		{MethodName: "Submit", Handler: unaryHandler(ConfessionService_Submit_FullMethodName, ConfessionServiceServer.Submit)},
		{MethodName: "Feed", Handler: unaryHandler(ConfessionService_Feed_FullMethodName, ConfessionServiceServer.Feed)},
		{MethodName: "View", Handler: unaryHandler(ConfessionService_View_FullMethodName, ConfessionServiceServer.View)},
		{MethodName: "Status", Handler: unaryHandler(ConfessionService_Status_FullMethodName, ConfessionServiceServer.Status)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "confessions/v1/confessions.proto",
}

func RegisterConfessionServiceServer(s grpc.ServiceRegistrar, srv ConfessionServiceServer) {
	s.RegisterService(&ConfessionService_ServiceDesc, srv)
}

type ConfessionServiceClient interface {
	Identify(ctx context.Context, in *IdentifyRequest, opts ...grpc.CallOption) (*IdentifyResponse, error)
	Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error)
	Feed(ctx context.Context, in *FeedRequest, opts ...grpc.CallOption) (*FeedResponse, error)
	View(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*ViewResponse, error)
	Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error)
}

type confessionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewConfessionServiceClient(cc grpc.ClientConnInterface) ConfessionServiceClient {
	return &confessionServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *confessionServiceClient) Identify(ctx context.Context, in *IdentifyRequest, opts ...grpc.CallOption) (*IdentifyResponse, error) {
	return invoke[IdentifyResponse](ctx, c.cc, ConfessionService_Identify_FullMethodName, in, opts)
}

func (c *confessionServiceClient) Submit(ctx context.Context, in *SubmitRequest, opts ...grpc.CallOption) (*SubmitResponse, error) {
	return invoke[SubmitResponse](ctx, c.cc, ConfessionService_Submit_FullMethodName, in, opts)
}

func (c *confessionServiceClient) Feed(ctx context.Context, in *FeedRequest, opts ...grpc.CallOption) (*FeedResponse, error) {
	return invoke[FeedResponse](ctx, c.cc, ConfessionService_Feed_FullMethodName, in, opts)
}

func (c *confessionServiceClient) View(ctx context.Context, in *ViewRequest, opts ...grpc.CallOption) (*ViewResponse, error) {
	return invoke[ViewResponse](ctx, c.cc, ConfessionService_View_FullMethodName, in, opts)
}

func (c *confessionServiceClient) Status(ctx context.Context, in *StatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[StatusResponse](ctx, c.cc, ConfessionService_Status_FullMethodName, in, opts)
}
