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

var _ repository.UsuarioRepository = (*UsuarioRepo)(nil)

// UsuarioRepo implementación de UsuarioRepository.
type UsuarioRepo struct {
	pool *pgxpool.Pool
}

// NewUsuarioRepository construye el adaptador de usuarios.
func NewUsuarioRepository(pool *pgxpool.Pool) *UsuarioRepo {
	return &UsuarioRepo{pool: pool}
}

// GetByEmail devuelve un usuario por email. ErrUserNotFound si no existe.
func (r *UsuarioRepo) GetByEmail(ctx context.Context, email string) (*entity.Usuario, error) {
	query := `SELECT email, nombre, rol, password_hash, COALESCE(ultimo_ingreso, NOW())
		FROM usuarios WHERE LOWER(email) = LOWER($1)`
	var u entity.Usuario
	err := r.pool.QueryRow(ctx, query, email).
		Scan(&u.Email, &u.Nombre, &u.Rol, &u.PasswordHash, &u.UltimoIngreso)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("get usuario: %w", err)
	}
	return &u, nil
}

// Create persiste un usuario nuevo.
func (r *UsuarioRepo) Create(ctx context.Context, u *entity.Usuario) error {
	query := `INSERT INTO usuarios (email, nombre, rol, password_hash, ultimo_ingreso)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, u.Email, u.Nombre, u.Rol, u.PasswordHash, u.UltimoIngreso)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("usuario ya existe: %w", err)
		}
		return fmt.Errorf("insert usuario: %w", err)
	}
	return nil
}

// ActualizarUltimoIngreso registra el login.
func (r *UsuarioRepo) ActualizarUltimoIngreso(ctx context.Context, email string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE usuarios SET ultimo_ingreso = NOW() WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return fmt.Errorf("actualizar último ingreso: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
