package utils

import (
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// FlexID is an identifier as received from clients. Upstream data delivers IDs
// either as a plain hex string or wrapped in Mongo extended-JSON form
// {"$oid": "..."}; FlexID accepts both and normalizes to the plain string.
// Every equality comparison against stored IDs must go through this type (or
// UnwrapID) so the two shapes never diverge at a call site.
type FlexID string

// oidWrapper is the extended-JSON envelope form of an ObjectID.
type oidWrapper struct {
	OID string `json:"$oid"`
}

// UnmarshalJSON accepts either a JSON string or an {"$oid": "..."} object.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var w oidWrapper
	if err := json.Unmarshal(data, &w); err == nil && w.OID != "" {
		*f = FlexID(w.OID)
		return nil
	}
	return fmt.Errorf("invalid identifier: expected string or {\"$oid\": ...}, got %s", string(data))
}

// MarshalJSON always emits the plain string form.
func (f FlexID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(f))
}

func (f FlexID) String() string {
	return string(f)
}

// IsZero reports whether no identifier was supplied.
func (f FlexID) IsZero() bool {
	return f == ""
}

// ObjectID parses the normalized string into a Mongo ObjectID.
func (f FlexID) ObjectID() (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(string(f))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("invalid object ID %q: %w", string(f), err)
	}
	return id, nil
}

// UnwrapID normalizes a raw identifier value to a plain string. It handles the
// shapes that appear at ingestion boundaries: plain strings, decoded
// {"$oid": ...} maps, ObjectIDs and FlexIDs. Unknown shapes yield "".
func UnwrapID(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case FlexID:
		return string(id)
	case primitive.ObjectID:
		return id.Hex()
	case map[string]interface{}:
		if s, ok := id["$oid"].(string); ok {
			return s
		}
	case oidWrapper:
		return id.OID
	}
	return ""
}
