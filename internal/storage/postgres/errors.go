package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/PxPatel/auction-engine/internal/types"
)

// SQLSTATE codes that mean another transaction holds what we need
const (
	lockNotAvailableCode     = "55P03"
	serializationFailureCode = "40001"
	deadlockDetectedCode     = "40P01"
	queryCanceledCode        = "57014"
)

// wrapError turns lock failures into contention errors; everything else is
// returned unchanged.
func wrapError(assetID string, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case lockNotAvailableCode, serializationFailureCode, deadlockDetectedCode, queryCanceledCode:
			return &types.ContentionError{AssetID: assetID, Err: err}
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &types.ContentionError{AssetID: assetID, Err: err}
	}
	return err
}
