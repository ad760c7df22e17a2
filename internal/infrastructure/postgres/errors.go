package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/stockledger/internal/domain"
)

// Códigos SQLSTATE que se traducen a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
	codeInvalidText          = "22P02"
)

// mapError envuelve err con op y, si es un error de PostgreSQL conocido, con su sentinela de dominio.
// Bloqueos agotados, deadlocks y fallos de serialización son ErrConflict: el llamador reintenta la
// petición completa.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
			return fmt.Errorf("%s: %w (%s)", op, domain.ErrConflict, pgErr.Message)
		case codeUniqueViolation:
			return fmt.Errorf("%s: registro duplicado (%s): %w", op, pgErr.ConstraintName, domain.ErrInvalidInput)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: referencia inexistente (%s): %w", op, pgErr.ConstraintName, domain.ErrNotFound)
		case codeInvalidText:
			return fmt.Errorf("%s: %s: %w", op, pgErr.Message, domain.ErrInvalidInput)
		case codeCheckViolation:
			return fmt.Errorf("%s: restricción %s: %w", op, pgErr.ConstraintName, domain.ErrInvalidQuantity)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
