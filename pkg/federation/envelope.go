package federation

import (
	"net/http"

	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/candig/fedsearch/pkg/types"
)

// Status is the envelope's communication report. The JSON field names are
// part of the network contract.
type Status struct {
	KnownPeers               int  `json:"Known peers"`
	QueriedPeers             int  `json:"Queried peers"`
	SuccessfulCommunications int  `json:"Successful communications"`
	ValidResponse            bool `json:"Valid response"`
}

// Envelope is the outer JSON object returned to origin clients: the merged
// payload plus the status block.
type Envelope struct {
	Status  Status         `json:"status"`
	Results map[string]any `json:"results"`
}

// buildEnvelope computes the status block from the status vector and
// serializes the accumulator into the results table.
//
// Validity differs by method: a GET is valid when every slot answered 200
// or 404 and at least one answered 200; a POST accepts no 404s, so every
// slot must be 200.
func buildEnvelope(req *Request, acc *dynamicpb.Message, statuses []int) (*Envelope, error) {
	var queried, success int
	for _, s := range statuses {
		if s == http.StatusOK || s == http.StatusNotFound {
			queried++
		}
		if s == http.StatusOK {
			success++
		}
	}
	known := len(statuses)

	var valid bool
	if req.Method == http.MethodGet {
		valid = known == queried && success >= 1
	} else {
		valid = known == queried && success == queried
	}

	op := req.Operation
	results := map[string]any{}
	if op.Count {
		merged := aggregateCounts(op, acc)
		if len(merged) == 0 {
			return nil, types.E(types.KindNotFound, "no counts for request %q", string(req.Body))
		}
		// Count responses carry no total.
		results[op.PrimaryKey] = merged
	} else {
		total := op.Len(acc)
		if total == 0 {
			// Empty after merging, even if some responders answered 200
			// with zero records.
			if req.Method == http.MethodGet {
				return nil, types.E(types.KindNotFound, "no object with id %q", req.ID)
			}
			return nil, types.E(types.KindNotFound, "no object for request %q", string(req.Body))
		}
		results[op.PrimaryKey] = op.Elements(acc)
		results["total"] = total
		// Conflicting nextPageToken values across peers are undefined;
		// the envelope drops the token and carries total only.
	}

	return &Envelope{
		Status: Status{
			KnownPeers:               known,
			QueriedPeers:             queried,
			SuccessfulCommunications: success,
			ValidResponse:            valid,
		},
		Results: results,
	}, nil
}
