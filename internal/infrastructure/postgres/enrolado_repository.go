package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

var _ repository.EnroladoRepository = (*EnroladoRepo)(nil)

const colsEnrolado = `e.id, e.ruc, e.razon_social, e.email, COALESCE(e.estado, 'pendiente')`

// EnroladoRepo implementación de EnroladoRepository.
type EnroladoRepo struct {
	pool *pgxpool.Pool
}

// NewEnroladoRepository construye el adaptador de enrolados.
func NewEnroladoRepository(pool *pgxpool.Pool) *EnroladoRepo {
	return &EnroladoRepo{pool: pool}
}

// GetByRUC devuelve un enrolado por RUC. ErrNotFound si no existe.
func (r *EnroladoRepo) GetByRUC(ctx context.Context, ruc string) (*entity.Enrolado, error) {
	query := `SELECT ` + colsEnrolado + ` FROM enrolados e WHERE e.ruc = $1`
	e, err := scanEnrolado(r.pool.QueryRow(ctx, query, ruc))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get enrolado: %w", err)
	}
	return &e, nil
}

// ListByEmail enrolados asociados a un email (los RUCs que ese usuario ve).
func (r *EnroladoRepo) ListByEmail(ctx context.Context, email string) ([]entity.Enrolado, error) {
	query := `SELECT ` + colsEnrolado + ` FROM enrolados e WHERE LOWER(e.email) = LOWER($1) ORDER BY e.ruc`
	return r.list(ctx, query, email)
}

// List todos los enrolados.
func (r *EnroladoRepo) List(ctx context.Context) ([]entity.Enrolado, error) {
	query := `SELECT ` + colsEnrolado + ` FROM enrolados e ORDER BY e.ruc`
	return r.list(ctx, query)
}

// Count total de enrolados.
func (r *EnroladoRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM enrolados`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count enrolados: %w", err)
	}
	return n, nil
}

func (r *EnroladoRepo) list(ctx context.Context, query string, args ...any) ([]entity.Enrolado, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list enrolados: %w", err)
	}
	defer rows.Close()

	var out []entity.Enrolado
	for rows.Next() {
		e, err := scanEnrolado(rows)
		if err != nil {
			return nil, fmt.Errorf("scan enrolado: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrolado(row pgx.Row) (entity.Enrolado, error) {
	var e entity.Enrolado
	err := row.Scan(&e.ID, &e.RUC, &e.RazonSocial, &e.Email, &e.Estado)
	return e, err
}
