package fogserver

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	protoPackage = "fog.v1"
	serviceShort = "FogService"
)

// ServiceName is the fully qualified gRPC service name
const ServiceName = protoPackage + "." + serviceShort

// Full method names
const (
	MethodLatestBuffer = "/" + ServiceName + "/LatestBuffer"
	MethodBlendFactor  = "/" + ServiceName + "/BlendFactor"
	MethodHeights      = "/" + ServiceName + "/Heights"
	MethodStats        = "/" + ServiceName + "/Stats"
	MethodSaveSlot     = "/" + ServiceName + "/SaveSlot"
	MethodLoadSlot     = "/" + ServiceName + "/LoadSlot"
	MethodListSlots    = "/" + ServiceName + "/ListSlots"
	MethodPointState   = "/" + ServiceName + "/PointState"
	MethodSetHeight    = "/" + ServiceName + "/SetHeight"
	MethodRebake       = "/" + ServiceName + "/Rebake"
)

// BlendHeader is the response header LatestBuffer uses to return the blend
// factor that belongs to the returned pixels
const BlendHeader = "fog-blend-factor"

// FogServiceServer is the server API of the fog service. Messages are the
// well-known wrapper types so no generated code is needed.
type FogServiceServer interface {
	// LatestBuffer returns the packed A,B,C,D bytes of a chunk's presented frame
	LatestBuffer(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error)
	BlendFactor(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.FloatValue, error)
	// Heights returns a chunk's quantized height grid
	Heights(context.Context, *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error)
	Stats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	SaveSlot(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	LoadSlot(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	ListSlots(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// PointState takes {x, y, z} and returns {chunk_id, visible, explored}
	PointState(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// SetHeight takes {x, y, z, height} with height in world units
	SetHeight(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Rebake(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// RegisterFogServiceServer registers the service on a gRPC server
func RegisterFogServiceServer(s grpc.ServiceRegistrar, srv FogServiceServer) {
	s.RegisterService(&FogService_ServiceDesc, srv)
}

type rpc struct {
	name    string
	handler func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)
	in, out proto.Message
}

// rpcs drives both the service descriptor and the registered proto file
var rpcs = []rpc{
	{"LatestBuffer", unary(MethodLatestBuffer, FogServiceServer.LatestBuffer), &wrapperspb.UInt32Value{}, &wrapperspb.BytesValue{}},
	{"BlendFactor", unary(MethodBlendFactor, FogServiceServer.BlendFactor), &wrapperspb.UInt32Value{}, &wrapperspb.FloatValue{}},
	{"Heights", unary(MethodHeights, FogServiceServer.Heights), &wrapperspb.UInt32Value{}, &wrapperspb.BytesValue{}},
	{"Stats", unary(MethodStats, FogServiceServer.Stats), &emptypb.Empty{}, &structpb.Struct{}},
	{"SaveSlot", unary(MethodSaveSlot, FogServiceServer.SaveSlot), &wrapperspb.StringValue{}, &emptypb.Empty{}},
	{"LoadSlot", unary(MethodLoadSlot, FogServiceServer.LoadSlot), &wrapperspb.StringValue{}, &emptypb.Empty{}},
	{"ListSlots", unary(MethodListSlots, FogServiceServer.ListSlots), &emptypb.Empty{}, &structpb.ListValue{}},
	{"PointState", unary(MethodPointState, FogServiceServer.PointState), &structpb.Struct{}, &structpb.Struct{}},
	{"SetHeight", unary(MethodSetHeight, FogServiceServer.SetHeight), &structpb.Struct{}, &emptypb.Empty{}},
	{"Rebake", unary(MethodRebake, FogServiceServer.Rebake), &emptypb.Empty{}, &emptypb.Empty{}},
}

// FogService_ServiceDesc describes the fog service to grpc
var FogService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*FogServiceServer)(nil),
	Methods:     methodDescs(),
	Streams:     []grpc.StreamDesc{},
	Metadata:    protoFile,
}

func methodDescs() []grpc.MethodDesc {
	out := make([]grpc.MethodDesc, len(rpcs))
	for i, r := range rpcs {
		out[i] = grpc.MethodDesc{MethodName: r.name, Handler: r.handler}
	}
	return out
}

// unary builds a method handler that decodes Req and dispatches through the interceptor chain
func unary[Req, Resp any](fullMethod string, call func(FogServiceServer, context.Context, *Req) (*Resp, error)) func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(FogServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(FogServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
