package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

var _ repository.CompraRepository = (*CompraRepo)(nil)

const colsCompra = `c.id, COALESCE(c.ruc, ''), c.razon_social, COALESCE(c.periodo, ''), c.car_sunat,
	c.fecha_emision, c.fecha_vcto_pago, COALESCE(c.tipo_cp_doc, ''), COALESCE(c.serie_cdp, ''),
	COALESCE(c.nro_cp_inicial, ''), c.tipo_doc_identidad, COALESCE(c.nro_doc_identidad, ''),
	c.apellidos_nombres_razon_social, COALESCE(c.total_cp, 0), COALESCE(c.moneda, ''),
	COALESCE(c.tipo_cambio, 0), COALESCE(c.ultima_actualizacion, NOW())`

// CompraRepo implementación de CompraRepository sobre compras_sire (RCE).
type CompraRepo struct {
	pool *pgxpool.Pool
}

// NewCompraRepository construye el adaptador del ledger de compras.
func NewCompraRepository(pool *pgxpool.Pool) *CompraRepo {
	return &CompraRepo{pool: pool}
}

// ListCompras página de compras más el total sin paginar.
func (r *CompraRepo) ListCompras(ctx context.Context, f repository.CompraFilter, pag repository.Pagina) ([]entity.Compra, int64, error) {
	fl := newFiltros("")
	if f.RUCs != nil {
		fl.add("c.ruc = ANY($%d)", f.RUCs)
	}
	if f.Periodo != "" {
		fl.add("c.periodo = $%d", f.Periodo)
	}
	if f.FechaDesde != nil {
		fl.add("c.fecha_emision >= $%d", *f.FechaDesde)
	}
	if f.FechaHasta != nil {
		fl.add("c.fecha_emision <= $%d", *f.FechaHasta)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM compras_sire c WHERE ` + fl.clausula()
	if err := r.pool.QueryRow(ctx, countQuery, fl.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count compras: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM compras_sire c WHERE %s
		ORDER BY c.fecha_emision DESC NULLS LAST, c.id DESC LIMIT %d OFFSET %d`,
		colsCompra, fl.clausula(), pag.Tamano, pag.Offset())
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list compras: %w", err)
	}
	defer rows.Close()

	var out []entity.Compra
	for rows.Next() {
		c, err := scanCompra(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan compra: %w", err)
		}
		out = append(out, c)
	}
	return out, total, rows.Err()
}

// Totales conteo y monto acumulado del ledger de compras.
func (r *CompraRepo) Totales(ctx context.Context) (repository.TotalesLedger, error) {
	var t repository.TotalesLedger
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_cp), 0) FROM compras_sire`).
		Scan(&t.Registros, &t.MontoTotal)
	if err != nil {
		return repository.TotalesLedger{}, fmt.Errorf("totales compras: %w", err)
	}
	return t, nil
}

func scanCompra(row pgx.Row) (entity.Compra, error) {
	var c entity.Compra
	err := row.Scan(
		&c.ID, &c.RUC, &c.RazonSocial, &c.Periodo, &c.CarSunat,
		&c.FechaEmision, &c.FechaVctoPago, &c.TipoCPDoc, &c.SerieCDP,
		&c.NroCPInicial, &c.TipoDocIdentidad, &c.NroDocIdentidad,
		&c.RazonSocialProveedor, &c.TotalCP, &c.Moneda,
		&c.TipoCambio, &c.UltimaActualizacion,
	)
	return c, err
}
