// Package bootstrap prepares the store before the service accepts requests.
package bootstrap

import (
	"context"

	"github.com/Jojopunk/elevate360-skill-builder/internal/challenge"
	"github.com/Jojopunk/elevate360-skill-builder/internal/infrastructure/driver"
	"github.com/Jojopunk/elevate360-skill-builder/internal/progress"
	"github.com/Jojopunk/elevate360-skill-builder/internal/user"
	"github.com/Jojopunk/elevate360-skill-builder/internal/video"
)

// Schema every table of the service, in creation order
func Schema() []string {
	var stmts []string
	stmts = append(stmts, user.Schema...)
	stmts = append(stmts, challenge.Schema...)
	stmts = append(stmts, progress.Schema...)
	stmts = append(stmts, video.Schema...)
	return stmts
}

// EnsureSchema creates missing tables, existing ones are left untouched
func EnsureSchema(ctx context.Context, conn driver.ITransactionalDB) error {
	return driver.EnsureSchema(ctx, conn, Schema()...)
}
