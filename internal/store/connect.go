package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrUnreachable marks a failed store handshake. The caller decides whether
// to retry, abort, or degrade; nothing in this package retries.
var ErrUnreachable = errors.New("store unreachable")

// Connect establishes a client and verifies the deployment answers a ping.
// The returned client is pooled and safe for concurrent use across jobs.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("%w: ping: %v", ErrUnreachable, err)
	}

	return client, nil
}
