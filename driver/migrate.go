package driver

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables and seeds the monument catalog. Every statement
// is idempotent so it runs on each start.
func Migrate(ctx context.Context, conn PostgresPool) error {
	if _, err := conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
