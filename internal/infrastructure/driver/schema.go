package driver

import (
	"context"
	"fmt"
)

// EnsureSchema executes idempotent DDL statements in order
func EnsureSchema(ctx context.Context, conn ITransactionalDB, statements ...string) error {
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
