package schema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
)

// The wire shape of every response is a protobuf message generated at
// startup from the entity tables: one message per collection with a
// repeated google.protobuf.Struct primary field plus the paging fields.
//
//	message PatientsResponse {
//	  repeated google.protobuf.Struct patients = 1;
//	  string next_page_token = 2;
//	  int32 total = 3;
//	}
//
// Peers exchange these messages in binary form, which lets the merger
// concatenate repeated fields with proto.Merge instead of re-parsing JSON.

const (
	// FieldNextPageToken and FieldTotal are the singleton fields shared by
	// every response message.
	FieldNextPageToken = "next_page_token"
	FieldTotal         = "total"

	// CountsKey is the primary key of count-query responses.
	CountsKey = "counts"
)

const wireStructType = ".google.protobuf.Struct"

// responseDescriptors maps a primary key ("patients", "counts", ...) to
// its message descriptor. A variable initializer rather than an init
// function, so that other package-level tables referencing it are built
// after it in dependency order.
var responseDescriptors = mustBuildResponseDescriptors()

func mustBuildResponseDescriptors() map[string]protoreflect.MessageDescriptor {
	keys := make([]string, 0, len(Entities)+1)
	for _, e := range Entities {
		keys = append(keys, e.Plural)
	}
	keys = append(keys, CountsKey)

	out, err := buildResponseDescriptors(keys)
	if err != nil {
		panic(fmt.Sprintf("schema: building wire descriptors: %v", err))
	}
	return out
}

// buildResponseDescriptors assembles a runtime FileDescriptor holding one
// response message per primary key.
func buildResponseDescriptors(keys []string) (map[string]protoreflect.MessageDescriptor, error) {
	fd := &descriptorpb.FileDescriptorProto{
		Name:       proto.String("candig/fed/v1/responses.proto"),
		Package:    proto.String("candig.fed.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{"google/protobuf/struct.proto"},
	}

	for _, key := range keys {
		fd.MessageType = append(fd.MessageType, &descriptorpb.DescriptorProto{
			Name: proto.String(exportName(key) + "Response"),
			Field: []*descriptorpb.FieldDescriptorProto{
				{
					Name:     proto.String(key),
					Number:   proto.Int32(1),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_REPEATED.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_MESSAGE.Enum(),
					TypeName: proto.String(wireStructType),
					JsonName: proto.String(key),
				},
				{
					Name:     proto.String(FieldNextPageToken),
					Number:   proto.Int32(2),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_STRING.Enum(),
					JsonName: proto.String("nextPageToken"),
				},
				{
					Name:     proto.String(FieldTotal),
					Number:   proto.Int32(3),
					Label:    descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL.Enum(),
					Type:     descriptorpb.FieldDescriptorProto_TYPE_INT32.Enum(),
					JsonName: proto.String("total"),
				},
			},
		})
	}

	// struct.proto is registered globally by the structpb package, which
	// pkg/schema links through records.go.
	file, err := protodesc.NewFile(fd, protoregistry.GlobalFiles)
	if err != nil {
		return nil, err
	}

	out := make(map[string]protoreflect.MessageDescriptor, len(keys))
	for _, key := range keys {
		md := file.Messages().ByName(protoreflect.Name(exportName(key) + "Response"))
		if md == nil {
			return nil, fmt.Errorf("missing message for %q", key)
		}
		out[key] = md
	}
	return out, nil
}

// exportName capitalizes the first byte; collection names are plain ASCII.
func exportName(s string) string {
	if s == "" {
		return s
	}
	if s[0] >= 'a' && s[0] <= 'z' {
		return string(s[0]-'a'+'A') + s[1:]
	}
	return s
}
