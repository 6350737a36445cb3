package persistence

import (
	"context"
	"errors"

	"github.com/erp/costing/internal/domain/inventory"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the ledger reacts to
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
	pgUniqueViolation      = "23505"
)

// translateError maps lock waits, deadlocks and timeouts to the retryable contention error.
// Anything else is returned unchanged.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, inventory.ErrContention) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return inventory.NewContentionError(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure, pgQueryCanceled:
			return inventory.NewContentionError(err)
		}
	}
	return err
}

// isUniqueViolation reports whether err is a unique constraint violation,
// either translated by gorm or raw from the driver
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
