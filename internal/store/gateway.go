package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pheld/f1load/internal/model"
)

const defaultBatchSize = 500

// bulkWriter is the slice of *mongo.Collection the gateway needs. Tests
// substitute a fake.
type bulkWriter interface {
	BulkWrite(ctx context.Context, models []mongo.WriteModel, opts ...*options.BulkWriteOptions) (*mongo.BulkWriteResult, error)
}

// Gateway applies batches of upsert operations against one database. Each
// operation replaces the full document matched by its key-field filter, or
// inserts it when nothing matches.
type Gateway struct {
	db        *mongo.Database
	batchSize int
	timeout   time.Duration
	log       zerolog.Logger
}

// NewGateway wraps an already-connected database handle. batchSize <= 0
// selects the default; timeout <= 0 leaves calls bounded by the caller's
// context only.
func NewGateway(db *mongo.Database, batchSize int, timeout time.Duration, log zerolog.Logger) *Gateway {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &Gateway{db: db, batchSize: batchSize, timeout: timeout, log: log}
}

// Apply executes all operations against the named collection in as few bulk
// round-trips as the batch size allows. Individual write failures are
// accumulated without aborting the rest of the batch; only a store-level
// failure (unreachable, context deadline) is returned as an error, in which
// case the partial result is still returned for reporting.
func (g *Gateway) Apply(ctx context.Context, collection string, ops []model.UpsertOp) (*model.BatchResult, error) {
	if len(ops) == 0 {
		return &model.BatchResult{}, nil
	}

	result, err := g.apply(ctx, g.db.Collection(collection), ops)
	if err != nil {
		return result, fmt.Errorf("bulk write %s: %w", collection, err)
	}

	g.log.Debug().
		Str("collection", collection).
		Int64("inserted", result.Inserted).
		Int64("updated", result.Updated).
		Int64("failed", result.Failed).
		Msg("batch applied")

	return result, nil
}

// apply runs the chunk loop. Cancellation is honored between chunks only: a
// canceled context stops new bulk calls from being issued, while the call
// already in flight runs to completion because applyChunk detaches it from
// cancellation. No chunk is ever left half-issued.
func (g *Gateway) apply(ctx context.Context, w bulkWriter, ops []model.UpsertOp) (*model.BatchResult, error) {
	result := &model.BatchResult{}
	for _, chunk := range chunkOps(ops, g.batchSize) {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res, err := g.applyChunk(ctx, w, chunk)
		if res != nil {
			result.Merge(res)
		}
		if err != nil {
			return result, err
		}
	}
	return result, nil
}

func (g *Gateway) applyChunk(ctx context.Context, w bulkWriter, ops []model.UpsertOp) (*model.BatchResult, error) {
	// Detached from caller cancellation so an issued write always runs to
	// completion, bounded by the timeout instead. With no timeout configured
	// the call stays bound to the caller's context.
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer cancel()
	}

	models := make([]mongo.WriteModel, len(ops))
	for i, op := range ops {
		models[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M(op.Filter)).
			SetReplacement(bson.M(op.Document)).
			SetUpsert(true)
	}

	// Unordered, so one malformed document does not abort the rest of the
	// chunk. Ordering between same-identity operations is preserved by
	// chunkOps, which never places two of them in the same chunk.
	res, err := w.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))

	out := &model.BatchResult{}
	if res != nil {
		out.Inserted = res.UpsertedCount
		out.Updated = res.MatchedCount
	}

	if err == nil {
		return out, nil
	}

	var bwe mongo.BulkWriteException
	if !errors.As(err, &bwe) {
		return out, err
	}
	if bwe.WriteConcernError != nil {
		return out, fmt.Errorf("write concern: %s", bwe.WriteConcernError.Message)
	}

	for _, we := range bwe.WriteErrors {
		identity := ""
		if we.Index >= 0 && we.Index < len(ops) {
			identity = ops[we.Index].Identity.String()
		}
		out.Failed++
		out.Failures = append(out.Failures, model.OpFailure{
			Identity: identity,
			Reason:   we.Message,
		})
		g.log.Warn().
			Str("identity", identity).
			Int("code", we.Code).
			Str("reason", we.Message).
			Msg("upsert failed")
	}

	return out, nil
}

// chunkOps splits ops into slices of at most size, flushing early whenever an
// identity repeats within the current chunk. Same-identity operations end up
// in distinct bulk calls, which execute sequentially, so the later record
// wins even though each bulk call is unordered.
func chunkOps(ops []model.UpsertOp, size int) [][]model.UpsertOp {
	var chunks [][]model.UpsertOp
	seen := make(map[string]struct{}, size)
	start := 0

	for i, op := range ops {
		id := op.Identity.String()
		_, dup := seen[id]
		if dup || i-start == size {
			chunks = append(chunks, ops[start:i])
			start = i
			clear(seen)
		}
		seen[id] = struct{}{}
	}
	if start < len(ops) {
		chunks = append(chunks, ops[start:])
	}
	return chunks
}
