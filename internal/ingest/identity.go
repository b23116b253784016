package ingest

import (
	"github.com/pheld/f1load/internal/model"
)

// absentValue marks a key field that the record does not carry. It only ever
// appears in identities used for diagnostics; records resolving to an absent
// component are rejected before reaching the store (see BuildBatch).
type absentValue struct{}

func (absentValue) String() string { return "<absent>" }

// Absent is the marker substituted for a missing key-field value.
var Absent = absentValue{}

// ResolveIdentity derives the ordered tuple of key-field values for rec.
// Resolution is total: a missing field, or one explicitly null, yields the
// Absent marker rather than an error. A JSON null key is treated the same as
// a missing key because both would collapse unrelated records into one
// degenerate identity.
func ResolveIdentity(rec model.Record, keyFields []string) model.Identity {
	id := make(model.Identity, len(keyFields))
	for i, f := range keyFields {
		v, ok := rec[f]
		if !ok || v == nil {
			id[i] = Absent
			continue
		}
		id[i] = v
	}
	return id
}

// MissingKeyFields returns the declared key fields that rec lacks (absent or
// null), in declaration order.
func MissingKeyFields(rec model.Record, keyFields []string) []string {
	var missing []string
	for _, f := range keyFields {
		if v, ok := rec[f]; !ok || v == nil {
			missing = append(missing, f)
		}
	}
	return missing
}
