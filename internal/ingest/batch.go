package ingest

import (
	"fmt"
	"strings"

	"github.com/pheld/f1load/internal/model"
)

// BuildBatch converts records into upsert operations for one resource type,
// preserving input order. Each operation's filter holds exactly the declared
// key fields; the write body is the whole record, so re-applying an unchanged
// record is a no-op beyond store bookkeeping.
//
// Records missing a key field (or carrying null in one) are rejected here
// instead of being upserted under a degenerate identity; they come back as
// OpFailures so the report never silently drops them.
func BuildBatch(records []model.Record, d model.ResourceDescriptor) ([]model.UpsertOp, []model.OpFailure) {
	ops := make([]model.UpsertOp, 0, len(records))
	var rejected []model.OpFailure

	for _, rec := range records {
		if missing := MissingKeyFields(rec, d.KeyFields); len(missing) > 0 {
			rejected = append(rejected, model.OpFailure{
				Identity: ResolveIdentity(rec, d.KeyFields).String(),
				Reason:   fmt.Sprintf("missing key field(s): %s", strings.Join(missing, ", ")),
			})
			continue
		}

		id := ResolveIdentity(rec, d.KeyFields)
		filter := make(map[string]any, len(d.KeyFields))
		for i, f := range d.KeyFields {
			filter[f] = id[i]
		}

		ops = append(ops, model.UpsertOp{
			Identity: id,
			Filter:   filter,
			Document: rec,
		})
	}

	return ops, rejected
}
