package schema

import (
	"net/http"

	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// Operation identifies one federated API operation. Count operations are
// marked explicitly in the table; they are never detected by comparing
// handler identities.
type Operation struct {
	Name       string
	Method     string
	Entity     *Entity
	PrimaryKey string
	Count      bool

	response protoreflect.MessageDescriptor
}

// ResponseDescriptor returns the operation's response message descriptor.
func (op *Operation) ResponseDescriptor() protoreflect.MessageDescriptor {
	return op.response
}

// NewResponse returns an empty response accumulator for the operation.
func (op *Operation) NewResponse() *dynamicpb.Message {
	return dynamicpb.NewMessage(op.response)
}

// CountQueryName is the well-known identifier of the count operation.
const CountQueryName = "runCountQuery"

// operationTable holds every operation, indexed three ways. Built as a
// variable initializer so it runs after responseDescriptors regardless
// of file order.
type operationTable struct {
	byName map[string]*Operation
	get    map[*Entity]*Operation
	search map[*Entity]*Operation
	count  *Operation
}

var ops = buildOperationTable()

func buildOperationTable() *operationTable {
	tbl := &operationTable{
		byName: map[string]*Operation{},
		get:    map[*Entity]*Operation{},
		search: map[*Entity]*Operation{},
	}

	for _, e := range Entities {
		get := &Operation{
			Name:       "get" + exportName(e.Name),
			Method:     http.MethodGet,
			Entity:     e,
			PrimaryKey: e.Plural,
			response:   responseDescriptors[e.Plural],
		}
		search := &Operation{
			Name:       "search" + exportName(e.Plural),
			Method:     http.MethodPost,
			Entity:     e,
			PrimaryKey: e.Plural,
			response:   responseDescriptors[e.Plural],
		}
		tbl.byName[get.Name] = get
		tbl.byName[search.Name] = search
		tbl.get[e] = get
		tbl.search[e] = search
	}

	tbl.count = &Operation{
		Name:       CountQueryName,
		Method:     http.MethodPost,
		PrimaryKey: CountsKey,
		Count:      true,
		response:   responseDescriptors[CountsKey],
	}
	tbl.byName[tbl.count.Name] = tbl.count
	return tbl
}

// Lookup resolves an operation by its symbolic name.
func Lookup(name string) (*Operation, bool) {
	op, ok := ops.byName[name]
	return op, ok
}

// GetOperation returns the read-by-id operation for an entity.
func GetOperation(e *Entity) *Operation {
	return ops.get[e]
}

// SearchOperation returns the search operation for an entity.
func SearchOperation(e *Entity) *Operation {
	return ops.search[e]
}

// CountOperation returns the count-query operation.
func CountOperation() *Operation {
	return ops.count
}
