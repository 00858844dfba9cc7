package federation

import (
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/candig/fedsearch/pkg/schema"
)

// mergeBody parses a responder's binary payload as the operation's
// response type and folds it into the accumulator. proto.Merge appends
// repeated fields, which is exactly the concatenation the search
// operations need; singleton fields take the last writer, and the
// envelope drops the page token anyway.
func mergeBody(acc *dynamicpb.Message, op *schema.Operation, body []byte) error {
	msg := op.NewResponse()
	if err := proto.Unmarshal(body, msg); err != nil {
		return err
	}
	proto.Merge(acc, msg)
	return nil
}

// aggregateCounts collapses the accumulated per-responder bucket maps
// into a single {field: {bucket: sum}} table. Runs exactly once per
// request, after every responder has settled.
func aggregateCounts(op *schema.Operation, acc *dynamicpb.Message) map[string]map[string]int64 {
	merged := map[string]map[string]int64{}
	for _, elem := range op.Elements(acc) {
		for field, raw := range elem {
			buckets, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			if merged[field] == nil {
				merged[field] = map[string]int64{}
			}
			for bucket, v := range buckets {
				// Missing keys contribute zero; protojson numbers come
				// through as float64.
				if n, ok := v.(float64); ok {
					merged[field][bucket] += int64(n)
				}
			}
		}
	}
	return merged
}
