package repository

import (
	"context"
	"time"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// CompraFilter filtros del listado de compras (RCE). Misma convención de RUCs
// que VentaFilter.
type CompraFilter struct {
	RUCs       []string
	Periodo    string
	FechaDesde *time.Time
	FechaHasta *time.Time
}

// CompraRepository puerto de lectura sobre el ledger de compras (compras_sire).
type CompraRepository interface {
	ListCompras(ctx context.Context, f CompraFilter, pag Pagina) ([]entity.Compra, int64, error)
	Totales(ctx context.Context) (TotalesLedger, error)
}
