package schema

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/candig/fedsearch/pkg/types"
)

// WireForm flattens a stored record into its unfiltered wire map: common
// identifying fields plus the entity attributes. Tier filtering happens
// afterwards, with FilterTier.
func WireForm(rec *types.Record) map[string]any {
	out := make(map[string]any, len(rec.Fields)+6)
	for k, v := range rec.Fields {
		out[k] = v
	}
	out["id"] = rec.ID
	out["datasetId"] = rec.DatasetID
	out["created"] = rec.Created.UTC().Format(time.RFC3339)
	out["updated"] = rec.Updated.UTC().Format(time.RFC3339)
	if rec.Name != "" {
		out["name"] = rec.Name
	}
	if rec.Description != "" {
		out["description"] = rec.Description
	}
	return out
}

// primaryField returns the repeated Struct field of the response message.
func (op *Operation) primaryField() protoreflect.FieldDescriptor {
	return op.response.Fields().ByName(protoreflect.Name(op.PrimaryKey))
}

// Append adds one wire-form map to the message's primary repeated field.
func (op *Operation) Append(msg *dynamicpb.Message, rec map[string]any) error {
	st, err := structpb.NewStruct(rec)
	if err != nil {
		return fmt.Errorf("record not representable on the wire: %w", err)
	}
	list := msg.Mutable(op.primaryField()).List()
	list.Append(protoreflect.ValueOfMessage(st.ProtoReflect()))
	return nil
}

// Len returns the number of elements in the message's primary field.
func (op *Operation) Len(msg proto.Message) int {
	return msg.ProtoReflect().Get(op.primaryField()).List().Len()
}

// Elements returns the primary field's elements as plain maps.
func (op *Operation) Elements(msg proto.Message) []map[string]any {
	list := msg.ProtoReflect().Get(op.primaryField()).List()
	out := make([]map[string]any, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		st, ok := structAt(list.Get(i))
		if !ok {
			continue
		}
		out = append(out, st.AsMap())
	}
	return out
}

// structAt extracts the structpb value behind a list element, whether the
// element was built locally or parsed into a dynamic message.
func structAt(v protoreflect.Value) (*structpb.Struct, bool) {
	m := v.Message()
	if st, ok := m.Interface().(*structpb.Struct); ok {
		return st, true
	}
	// Dynamic element: round-trip through the binary form.
	raw, err := proto.Marshal(m.Interface())
	if err != nil {
		return nil, false
	}
	st := &structpb.Struct{}
	if err := proto.Unmarshal(raw, st); err != nil {
		return nil, false
	}
	return st, true
}

// SetTotal stores the recomputed record count on the message.
func (op *Operation) SetTotal(msg *dynamicpb.Message, n int) {
	msg.Set(op.response.Fields().ByName(FieldTotal), protoreflect.ValueOfInt32(int32(n)))
}

// SetNextPageToken stores a paging token on the message.
func (op *Operation) SetNextPageToken(msg *dynamicpb.Message, token string) {
	if token == "" {
		return
	}
	msg.Set(op.response.Fields().ByName(FieldNextPageToken), protoreflect.ValueOfString(token))
}
