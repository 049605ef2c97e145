package repository

import (
	"context"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// UsuarioRepository puerto de persistencia de cuentas del CRM.
type UsuarioRepository interface {
	GetByEmail(ctx context.Context, email string) (*entity.Usuario, error)
	Create(ctx context.Context, u *entity.Usuario) error
	ActualizarUltimoIngreso(ctx context.Context, email string) error
}
