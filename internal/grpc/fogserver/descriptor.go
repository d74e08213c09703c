package fogserver

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// protoFile is the path the service's file descriptor is registered under
const protoFile = "fog/v1/fog.proto"

// fileDescriptor describes the service over the well-known types it uses, so
// server reflection can resolve it without generated code
func fileDescriptor() *descriptorpb.FileDescriptorProto {
	deps := map[string]bool{}
	methods := make([]*descriptorpb.MethodDescriptorProto, len(rpcs))
	for i, r := range rpcs {
		in, out := r.in.ProtoReflect().Descriptor(), r.out.ProtoReflect().Descriptor()
		deps[in.ParentFile().Path()] = true
		deps[out.ParentFile().Path()] = true
		methods[i] = &descriptorpb.MethodDescriptorProto{
			Name:       proto.String(r.name),
			InputType:  proto.String(typeName(in)),
			OutputType: proto.String(typeName(out)),
		}
	}

	fd := &descriptorpb.FileDescriptorProto{
		Name:    proto.String(protoFile),
		Package: proto.String(protoPackage),
		Syntax:  proto.String("proto3"),
		Options: &descriptorpb.FileOptions{
			GoPackage: proto.String("github.com/mitchelldurbincs/FogOfWar/internal/grpc/fogserver"),
		},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name:   proto.String(serviceShort),
			Method: methods,
		}},
	}
	for _, path := range []string{
		"google/protobuf/empty.proto",
		"google/protobuf/struct.proto",
		"google/protobuf/wrappers.proto",
	} {
		if deps[path] {
			fd.Dependency = append(fd.Dependency, path)
		}
	}
	return fd
}

func typeName(d protoreflect.MessageDescriptor) string {
	return "." + string(d.FullName())
}

func registerFileDescriptor(files *protoregistry.Files) error {
	fd, err := protodesc.NewFile(fileDescriptor(), files)
	if err != nil {
		return fmt.Errorf("build %s: %w", protoFile, err)
	}
	if err := files.RegisterFile(fd); err != nil {
		return fmt.Errorf("register %s: %w", protoFile, err)
	}
	return nil
}

func init() {
	if err := registerFileDescriptor(protoregistry.GlobalFiles); err != nil {
		panic(err)
	}
}
