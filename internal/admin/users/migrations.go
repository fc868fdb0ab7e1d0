package users

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// UserIndexes are created after the table exists. The unique email index is
// what actually guarantees uniqueness; the store's EmailExists check is only
// a fast path for a better error message.
var UserIndexes = []string{
	`CREATE UNIQUE INDEX IF NOT EXISTS admin_users_email_idx ON admin_users (email)`,
	`CREATE INDEX IF NOT EXISTS admin_users_created_at_idx ON admin_users (created_at)`,
}

// CreateTables creates the tables required by the admin user store
func CreateTables(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().
		Model((*UserSchema)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create admin_users table: %w", err)
	}

	for _, indexSQL := range UserIndexes {
		_, err := db.ExecContext(ctx, indexSQL)
		if err != nil {
			return fmt.Errorf("failed to create index with SQL %q: %w", indexSQL, err)
		}
	}

	return nil
}
