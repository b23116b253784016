package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pheld/f1load/internal/model"
)

// EnsureIndexes creates a unique compound index over each resource's key
// fields. The index is what turns out-of-band duplicates into per-operation
// write errors instead of ambiguous multi-document matches.
func EnsureIndexes(ctx context.Context, db *mongo.Database, descriptors []model.ResourceDescriptor, log zerolog.Logger) error {
	for _, d := range descriptors {
		keys := bson.D{}
		for _, f := range d.KeyFields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}

		name := "uniq_" + d.Resource + "_key"
		_, err := db.Collection(d.Resource).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(true).SetName(name),
		})
		if err != nil {
			return fmt.Errorf("create index %s: %w", name, err)
		}

		log.Info().
			Str("collection", d.Resource).
			Strs("key_fields", d.KeyFields).
			Msg("unique key index ensured")
	}
	return nil
}
