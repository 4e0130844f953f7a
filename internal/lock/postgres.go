package lock

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// PostgresLocker takes transaction-scoped advisory locks. Postgres releases them at commit or rollback,
// so the returned Unlock does nothing.
type PostgresLocker struct{}

func NewPostgresLocker() *PostgresLocker { return &PostgresLocker{} }

func (PostgresLocker) Lock(ctx context.Context, tx *gorm.DB, keys ...Key) (Unlock, error) {
	if tx == nil {
		return nil, errors.New("advisory lock requires a transaction")
	}
	for _, k := range Sorted(keys) {
		if err := tx.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?)", k.Hash()).Error; err != nil {
			return nil, fmt.Errorf("advisory lock %s: %w", k, err)
		}
	}
	return noop, nil
}
