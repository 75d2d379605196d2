// Package remote exposes playback control over gRPC.
//
// The service is declared by hand with a grpc.ServiceDesc; requests and replies are
// google.protobuf.Struct values carrying the same JSON shapes the WebSocket remote uses.
//
//	service voiceprompt.v1.Remote {
//	  rpc Command(google.protobuf.Struct) returns (google.protobuf.Struct);
//	  rpc Watch(google.protobuf.Empty) returns (stream google.protobuf.Struct);
//	}
package remote

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	ServiceName   = "voiceprompt.v1.Remote"
	commandMethod = "/" + ServiceName + "/Command"
	watchMethod   = "/" + ServiceName + "/Watch"
)

// remoteServer is the handler type registered with the service descriptor.
type remoteServer interface {
	Command(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Watch(*emptypb.Empty, grpc.ServerStream) error
}

func commandHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(remoteServer).Command(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: commandMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(remoteServer).Command(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(remoteServer).Watch(in, stream)
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*remoteServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Command", Handler: commandHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: watchHandler, ServerStreams: true},
	},
	Metadata: "voiceprompt/v1/remote.proto",
}
