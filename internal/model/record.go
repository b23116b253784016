package model

import (
	"fmt"
	"strings"
)

// Record is one raw document as returned by the remote API. Fields are opaque
// to the pipeline except for the key fields declared by a ResourceDescriptor.
type Record map[string]any

// ResourceDescriptor is the static configuration for one resource type:
// which endpoint serves it and which fields form its composite unique key.
type ResourceDescriptor struct {
	Resource  string            `yaml:"resource"`
	Endpoint  string            `yaml:"endpoint"`
	KeyFields []string          `yaml:"key_fields"`
	Filter    map[string]string `yaml:"filter"`
}

// Validate checks the descriptor is well-formed.
func (d ResourceDescriptor) Validate() error {
	if d.Resource == "" {
		return fmt.Errorf("resource name is required")
	}
	if d.Endpoint == "" {
		return fmt.Errorf("resource %q: endpoint is required", d.Resource)
	}
	if len(d.KeyFields) == 0 {
		return fmt.Errorf("resource %q: at least one key field is required", d.Resource)
	}
	for _, k := range d.KeyFields {
		if k == "" {
			return fmt.Errorf("resource %q: empty key field name", d.Resource)
		}
	}
	return nil
}

// Identity is the ordered tuple of key-field values that names one logical
// entity. Two records with the same identity upsert into the same document.
type Identity []any

func (id Identity) String() string {
	parts := make([]string, len(id))
	for i, v := range id {
		parts[i] = fmt.Sprintf("%v", v)
	}
	return strings.Join(parts, "/")
}

// UpsertOp pairs a match filter (key fields only) with the full replacement
// document derived from exactly one record.
type UpsertOp struct {
	Identity Identity
	Filter   map[string]any
	Document Record
}

// OpFailure records one per-operation write or resolution failure.
type OpFailure struct {
	Identity string `json:"identity"`
	Reason   string `json:"reason"`
}
