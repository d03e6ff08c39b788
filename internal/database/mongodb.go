package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/notewave/notewave/pkg/logger"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// ConnectMongoWithRetry keeps trying with doubling backoff until the context
// is done. Useful at startup when the database container races the service.
func ConnectMongoWithRetry(ctx context.Context, uri string, attemptTimeout time.Duration) (*mongo.Client, error) {
	backoff := time.Second
	for {
		client, err := ConnectMongo(ctx, uri, attemptTimeout)
		if err == nil {
			return client, nil
		}
		logger.Warnf("mongo not reachable, retrying in %s: %v", backoff, err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("mongo connect: %w", ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}
