package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/habberrih/manara/internal/apperr"
)

// Postgres error codes the boundary knows how to translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps known constraint-violation codes onto the application
// taxonomy. Anything unrecognized is logged and propagated unchanged; the
// pipeline never swallows unexpected store errors.
func translateError(log *zap.Logger, err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperr.Wrap(apperr.CodeConflict, "unique constraint violation", err)
		case pgForeignKeyViolation:
			return apperr.Wrap(apperr.CodeNotFound, "referenced record does not exist", err)
		default:
			log.Warn("unrecognized database error",
				zap.String("code", pgErr.Code),
				zap.String("constraint", pgErr.ConstraintName),
				zap.Error(err))
		}
	}
	return err
}
