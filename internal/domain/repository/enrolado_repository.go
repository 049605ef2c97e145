package repository

import (
	"context"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// EnroladoRepository puerto de lectura sobre empresas enroladas. Es la fuente
// de verdad del resolutor de alcance: un usuario no-admin ve los RUCs de los
// enrolados asociados a su email.
type EnroladoRepository interface {
	GetByRUC(ctx context.Context, ruc string) (*entity.Enrolado, error)
	ListByEmail(ctx context.Context, email string) ([]entity.Enrolado, error)
	List(ctx context.Context) ([]entity.Enrolado, error)
	Count(ctx context.Context) (int64, error)
}
