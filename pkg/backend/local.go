package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/proto"

	"github.com/candig/fedsearch/pkg/log"
	"github.com/candig/fedsearch/pkg/schema"
	"github.com/candig/fedsearch/pkg/storage"
	"github.com/candig/fedsearch/pkg/types"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000
)

// Backend answers operations from the local record store. Every record it
// emits has already been tier-filtered against the caller's access map, so
// nothing downstream (serialization, federation merging) can reveal a
// field the caller is not entitled to.
type Backend struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewBackend creates a local backend over the given store.
func NewBackend(store storage.Store) *Backend {
	return &Backend{
		store:  store,
		logger: log.WithComponent("backend"),
	}
}

// SearchRequest is the JSON body of search operations.
type SearchRequest struct {
	DatasetID string            `json:"datasetId,omitempty"`
	Filters   map[string]string `json:"filters,omitempty"`
	PageSize  int               `json:"pageSize,omitempty"`
	PageToken string            `json:"pageToken,omitempty"`
}

// CountRequest is the JSON body of count queries.
type CountRequest struct {
	Entity    string   `json:"entity"`
	DatasetID string   `json:"datasetId,omitempty"`
	Fields    []string `json:"fields"`
}

// Get answers a read-by-id operation with a single-element response.
func (b *Backend) Get(ctx context.Context, op *schema.Operation, id string, access types.AccessMap) ([]byte, error) {
	wire, err := b.fetchOne(op, id, access)
	if err != nil {
		return nil, err
	}

	msg := op.NewResponse()
	if err := op.Append(msg, wire); err != nil {
		return nil, types.Wrap(types.KindInternal, err, "encoding %s", op.Entity.Name)
	}
	op.SetTotal(msg, 1)
	return proto.Marshal(msg)
}

// fetchOne loads and tier-filters a single record.
func (b *Backend) fetchOne(op *schema.Operation, id string, access types.AccessMap) (map[string]any, error) {
	if op.Entity.Name == "dataset" {
		ds, err := b.store.GetDataset(id)
		if err != nil {
			return nil, err
		}
		if _, ok := access.Tier(ds.Name); !ok {
			return nil, types.E(types.KindUnauthorized, "not authorized for dataset %s", ds.Name)
		}
		return datasetWire(ds), nil
	}

	rec, err := b.store.GetRecord(op.Entity.Name, id)
	if err != nil {
		return nil, err
	}
	names, err := b.datasetNames()
	if err != nil {
		return nil, err
	}
	tier, ok := access.Tier(names[rec.DatasetID])
	if !ok {
		return nil, types.E(types.KindUnauthorized, "not authorized for dataset of %s %s", op.Entity.Name, id)
	}
	return op.Entity.FilterTier(schema.WireForm(rec), tier), nil
}

// Search answers a search operation. Records from inaccessible datasets
// are silently skipped; an explicitly requested inaccessible dataset is an
// authorization failure.
func (b *Backend) Search(ctx context.Context, op *schema.Operation, body []byte, access types.AccessMap) ([]byte, error) {
	req, err := parseSearchRequest(op, body)
	if err != nil {
		return nil, err
	}

	wires, err := b.visibleRecords(op, req, access)
	if err != nil {
		return nil, err
	}

	offset := 0
	if req.PageToken != "" {
		offset, err = strconv.Atoi(req.PageToken)
		if err != nil || offset < 0 {
			return nil, types.E(types.KindBadRequest, "invalid page token %q", req.PageToken)
		}
	}
	if offset > len(wires) {
		offset = len(wires)
	}
	end := offset + req.PageSize
	if end > len(wires) {
		end = len(wires)
	}

	msg := op.NewResponse()
	for _, wire := range wires[offset:end] {
		if err := op.Append(msg, wire); err != nil {
			return nil, types.Wrap(types.KindInternal, err, "encoding %s", op.PrimaryKey)
		}
	}
	op.SetTotal(msg, end-offset)
	if end < len(wires) {
		op.SetNextPageToken(msg, strconv.Itoa(end))
	}
	return proto.Marshal(msg)
}

// Count answers a count query. The response carries a single Struct of
// shape {field: {bucket: count}}; bucket sums across peers happen at the
// origin node, once.
func (b *Backend) Count(ctx context.Context, op *schema.Operation, body []byte, access types.AccessMap) ([]byte, error) {
	req, entity, err := parseCountRequest(body)
	if err != nil {
		return nil, err
	}

	search := schema.SearchOperation(entity)
	wires, err := b.visibleRecords(search, &SearchRequest{DatasetID: req.DatasetID, PageSize: maxPageSize}, access)
	if err != nil {
		return nil, err
	}

	buckets := make(map[string]any, len(req.Fields))
	for _, field := range req.Fields {
		perField := map[string]any{}
		for _, wire := range wires {
			// Tier filtering already ran; an invisible field simply
			// contributes nothing.
			value, ok := wire[field]
			if !ok {
				continue
			}
			label := fmt.Sprint(value)
			n, _ := perField[label].(float64)
			perField[label] = n + 1
		}
		buckets[field] = perField
	}

	msg := op.NewResponse()
	if err := op.Append(msg, buckets); err != nil {
		return nil, types.Wrap(types.KindInternal, err, "encoding counts")
	}
	return proto.Marshal(msg)
}

// parseCountRequest validates a count body against the entity tables.
func parseCountRequest(body []byte) (*CountRequest, *schema.Entity, error) {
	var req CountRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, types.Wrap(types.KindBadRequest, err, "invalid count request")
	}
	entity, ok := schema.EntityByName(req.Entity)
	if !ok {
		entity, ok = schema.EntityByPlural(req.Entity)
	}
	if !ok || entity.Name == "dataset" {
		return nil, nil, types.E(types.KindBadRequest, "unknown entity %q", req.Entity)
	}
	if len(req.Fields) == 0 {
		return nil, nil, types.E(types.KindBadRequest, "count query needs at least one field")
	}
	for _, f := range req.Fields {
		if _, ok := entity.Field(f); !ok && !schema.IsCommonField(f) {
			return nil, nil, types.E(types.KindBadRequest, "unknown field %q for %s", f, req.Entity)
		}
	}
	return &req, entity, nil
}

// Validate checks the body of a POST operation without touching the
// store. The HTTP layer runs it before federation so a malformed request
// short-circuits with BadRequest instead of fanning out.
func (b *Backend) Validate(op *schema.Operation, body []byte) error {
	if op.Count {
		_, _, err := parseCountRequest(body)
		return err
	}
	if op.Method != "POST" {
		return nil
	}
	_, err := parseSearchRequest(op, body)
	return err
}

// parseSearchRequest validates the body shape, paging arguments and filter
// keys; any violation short-circuits with BadRequest.
func parseSearchRequest(op *schema.Operation, body []byte) (*SearchRequest, error) {
	req := &SearchRequest{PageSize: defaultPageSize}
	if len(body) > 0 {
		if err := json.Unmarshal(body, req); err != nil {
			return nil, types.Wrap(types.KindBadRequest, err, "invalid search request")
		}
	}
	if req.PageSize < 0 {
		return nil, types.E(types.KindBadRequest, "pageSize must not be negative")
	}
	if req.PageSize == 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}
	for key := range req.Filters {
		if _, ok := op.Entity.Field(key); !ok && !schema.IsCommonField(key) {
			return nil, types.E(types.KindBadRequest, "unknown filter key %q for %s", key, op.PrimaryKey)
		}
	}
	return req, nil
}

// visibleRecords collects the tier-filtered wire maps the caller may see,
// in stable ID order.
func (b *Backend) visibleRecords(op *schema.Operation, req *SearchRequest, access types.AccessMap) ([]map[string]any, error) {
	if op.Entity.Name == "dataset" {
		return b.visibleDatasets(access)
	}

	names, err := b.datasetNames()
	if err != nil {
		return nil, err
	}

	var records []*types.Record
	if req.DatasetID != "" {
		ds, err := b.store.GetDataset(req.DatasetID)
		if err != nil {
			return nil, err
		}
		if _, ok := access.Tier(ds.Name); !ok {
			return nil, types.E(types.KindUnauthorized, "not authorized for dataset %s", ds.Name)
		}
		records, err = b.store.ListRecordsByDataset(op.Entity.Name, ds.ID)
		if err != nil {
			return nil, err
		}
	} else {
		records, err = b.store.ListRecords(op.Entity.Name)
		if err != nil {
			return nil, err
		}
	}

	var wires []map[string]any
	for _, rec := range records {
		tier, ok := access.Tier(names[rec.DatasetID])
		if !ok {
			continue
		}
		wire := op.Entity.FilterTier(schema.WireForm(rec), tier)
		if !matchFilters(wire, req.Filters) {
			continue
		}
		wires = append(wires, wire)
	}
	return wires, nil
}

// visibleDatasets returns catalog entries for datasets in the access map.
func (b *Backend) visibleDatasets(access types.AccessMap) ([]map[string]any, error) {
	datasets, err := b.store.ListDatasets()
	if err != nil {
		return nil, err
	}
	var wires []map[string]any
	for _, ds := range datasets {
		if _, ok := access.Tier(ds.Name); ok {
			wires = append(wires, datasetWire(ds))
		}
	}
	return wires, nil
}

// matchFilters applies exact-match filters against the visible fields.
// Filtering runs after tier filtering, so a filter on an invisible field
// never matches and cannot be used to probe hidden values.
func matchFilters(wire map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		value, ok := wire[key]
		if !ok || fmt.Sprint(value) != want {
			return false
		}
	}
	return true
}

// datasetNames maps dataset IDs to names for access-map lookups.
func (b *Backend) datasetNames() (map[string]string, error) {
	datasets, err := b.store.ListDatasets()
	if err != nil {
		return nil, types.Wrap(types.KindInternal, err, "dataset listing failed")
	}
	names := make(map[string]string, len(datasets))
	for _, ds := range datasets {
		names[ds.ID] = ds.Name
	}
	return names, nil
}

// datasetWire is the catalog entry wire form.
func datasetWire(ds *types.Dataset) map[string]any {
	wire := map[string]any{
		"id":      ds.ID,
		"name":    ds.Name,
		"created": ds.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if ds.Description != "" {
		wire["description"] = ds.Description
	}
	return wire
}
