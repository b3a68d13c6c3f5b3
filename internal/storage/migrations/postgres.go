package migrations

import (
	"context"
	"fmt"

	"solana-signal-trader/internal/storage/postgres"
)

// RunPostgres applies the trade journal schema. Files are idempotent and run
// in lexical order on every start.
func RunPostgres(ctx context.Context, pool *postgres.Pool) error {
	files, err := load(postgresFS, "postgres")
	if err != nil {
		return err
	}
	for _, m := range files {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.name, err)
		}
	}
	return nil
}
