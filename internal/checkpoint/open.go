package checkpoint

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/imamik/edgeforge/internal/config"
	"github.com/imamik/edgeforge/internal/platform/s3"
)

// Open builds the store selected by cfg. The returned close function
// releases backend resources and is never nil.
func Open(ctx context.Context, cfg config.Checkpoint, awsCfg aws.Config) (Store, func(), error) {
	noop := func() {}
	switch cfg.Backend {
	case config.CheckpointMemory:
		return NewMemoryStore(), noop, nil
	case config.CheckpointFile, "":
		dir := cfg.Dir
		if dir == "" {
			dir = config.DefaultCheckpointDir
		}
		store, err := NewFileStore(dir)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil
	case config.CheckpointS3:
		client := s3.NewClient(awsCfg, cfg.Endpoint)
		return NewS3Store(client, cfg.Bucket, cfg.Prefix), noop, nil
	case config.CheckpointPostgres:
		pool, err := pgxpool.New(ctx, cfg.ResolvedDSN())
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to checkpoint database: %w", err)
		}
		store := NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, noop, err
		}
		return store, pool.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}
