package candidate

import (
	"bytes"
	"encoding/json"
)

// CreateRequest is the payload of candidate creation: exactly one of Single or Bulk is set.
// The bulk variant is selected by the presence of an "emails" key.
type CreateRequest struct {
	Single *NewCandidate
	Bulk   *BulkCandidates
}

func (cr *CreateRequest) UnmarshalJSON(data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	if raw, ok := keys["emails"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		cr.Bulk = new(BulkCandidates)
		return json.Unmarshal(data, cr.Bulk)
	}
	cr.Single = new(NewCandidate)
	return json.Unmarshal(data, cr.Single)
}

// Clean normalizes the selected variant.
func (cr *CreateRequest) Clean() {
	if cr.Bulk != nil {
		cr.Bulk.Clean()
	}
	if cr.Single != nil {
		cr.Single.Clean()
	}
}

// Variant returns the selected payload, for validation.
func (cr *CreateRequest) Variant() interface{} {
	if cr.Bulk != nil {
		return cr.Bulk
	}
	return cr.Single
}
