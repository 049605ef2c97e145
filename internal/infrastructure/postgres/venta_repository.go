package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

var _ repository.VentaRepository = (*VentaRepo)(nil)

// colsVenta columnas del ledger en el orden que scanVenta espera.
const colsVenta = `v.id, COALESCE(v.ruc, ''), v.razon_social, COALESCE(v.periodo, ''), v.car_sunat,
	v.fecha_emision, v.fecha_vcto_pago, COALESCE(v.tipo_cp_doc, ''), COALESCE(v.serie_cdp, ''),
	COALESCE(v.nro_cp_inicial, ''), v.nro_final, v.tipo_doc_identidad, COALESCE(v.nro_doc_identidad, ''),
	v.apellidos_nombres_razon_social, COALESCE(v.total_cp, 0), COALESCE(v.moneda, ''), COALESCE(v.tipo_cambio, 0),
	v.fecha_emision_doc_modificado, v.tipo_cp_modificado, v.serie_cp_modificado, v.nro_cp_modificado,
	v.tipo_nota, v.est_comp, v.estado1, v.estado2, COALESCE(v.ultima_actualizacion, NOW())`

// baseFacturas filtro base de elegibilidad: facturas con contraparte válida,
// sin boletas (serie B). Igual al WHERE de la vista materializada.
const baseFacturas = `v.tipo_cp_doc IN ('1', '01')
	AND v.serie_cdp NOT LIKE 'B%'
	AND v.apellidos_nombres_razon_social IS NOT NULL
	AND v.apellidos_nombres_razon_social != '-'`

// numeroModificadoNC normaliza nro_cp_modificado en SQL igual que
// reconcile.NormalizeNumeroModificado: recorta exactamente un sufijo ".0".
const numeroModificadoNC = `CASE WHEN btrim(nc.nro_cp_modificado) LIKE '%.0'
	THEN left(btrim(nc.nro_cp_modificado), -2)
	ELSE btrim(nc.nro_cp_modificado) END`

// matchNC condición de cruce factura ↔ nota de crédito, clave
// (ruc, nro_cp_modificado normalizado, nro_doc_identidad).
const matchNC = `nc.ruc = v.ruc
	AND nc.tipo_cp_doc IN ('7', '07')
	AND nc.nro_cp_modificado IS NOT NULL
	AND ` + numeroModificadoNC + ` = v.nro_cp_inicial
	AND nc.nro_doc_identidad = v.nro_doc_identidad`

// montoNetoExpr monto neto de la factura en SQL: total en moneda de referencia
// menos la magnitud acumulada de sus notas de crédito, nunca negativo. Es la
// misma fórmula que la vista materializada y que el motor en memoria.
const montoNetoExpr = `GREATEST(0, (CASE WHEN v.tipo_cambio IS NOT NULL AND v.tipo_cambio > 0
		THEN v.total_cp / v.tipo_cambio ELSE v.total_cp END)
	- COALESCE((
		SELECT SUM(ABS(CASE WHEN nc.tipo_cambio IS NOT NULL AND nc.tipo_cambio > 0
			THEN nc.total_cp / nc.tipo_cambio ELSE nc.total_cp END))
		FROM ventas_sire nc
		WHERE ` + matchNC + `
	), 0))`

// VentaRepo implementación de VentaRepository sobre ventas_sire (camino en vivo).
type VentaRepo struct {
	pool *pgxpool.Pool
}

// NewVentaRepository construye el adaptador del ledger de ventas.
func NewVentaRepository(pool *pgxpool.Pool) *VentaRepo {
	return &VentaRepo{pool: pool}
}

// ListFacturas página de facturas elegibles más el total sin paginar. Los
// filtros se aplican en SQL; la conciliación de la página la hace el caso de
// uso en memoria.
func (r *VentaRepo) ListFacturas(ctx context.Context, f repository.VentaFilter, orden string, pag repository.Pagina) ([]entity.Venta, int64, error) {
	fl := newFiltros(baseFacturas)
	aplicarFiltroVentas(fl, f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM ventas_sire v WHERE ` + fl.clausula()
	if err := r.pool.QueryRow(ctx, countQuery, fl.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count facturas: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM ventas_sire v WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		colsVenta, fl.clausula(), ordenSQL(orden), pag.Tamano, pag.Offset())
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list facturas: %w", err)
	}
	defer rows.Close()

	ventas, err := scanVentas(rows)
	if err != nil {
		return nil, 0, err
	}
	return ventas, total, nil
}

// ListNotasCredito notas de crédito candidatas para los pares
// (ruc, nro_doc_identidad) dados. El cruce fino lo hace el motor en memoria.
func (r *VentaRepo) ListNotasCredito(ctx context.Context, rucs, docsIdentidad []string) ([]entity.Venta, error) {
	query := `SELECT ` + colsVenta + ` FROM ventas_sire v
		WHERE v.tipo_cp_doc IN ('7', '07')
		  AND v.nro_cp_modificado IS NOT NULL
		  AND v.ruc = ANY($1)
		  AND v.nro_doc_identidad = ANY($2)`
	rows, err := r.pool.Query(ctx, query, rucs, docsIdentidad)
	if err != nil {
		return nil, fmt.Errorf("list notas de crédito: %w", err)
	}
	defer rows.Close()
	return scanVentas(rows)
}

// GetByID devuelve una fila del ledger por id, sin filtro de elegibilidad.
func (r *VentaRepo) GetByID(ctx context.Context, id int64) (*entity.Venta, error) {
	query := `SELECT ` + colsVenta + ` FROM ventas_sire v WHERE v.id = $1`
	v, err := scanVenta(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get venta: %w", err)
	}
	return &v, nil
}

// UpdateEstado aplica estado1/estado2 (last-writer-wins) y devuelve la fila.
func (r *VentaRepo) UpdateEstado(ctx context.Context, id int64, estado1 string, estado2 *string) (*entity.Venta, error) {
	query := `UPDATE ventas_sire AS v
		SET estado1 = $2, estado2 = $3, ultima_actualizacion = NOW()
		WHERE v.id = $1
		RETURNING ` + colsVenta
	v, err := scanVenta(r.pool.QueryRow(ctx, query, id, estado1, estado2))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("update estado: %w", err)
	}
	return &v, nil
}

// ResumenPorMoneda agrega montos netos por moneda sobre las facturas elegibles.
func (r *VentaRepo) ResumenPorMoneda(ctx context.Context, f repository.MetricasFilter) ([]repository.ResumenMoneda, error) {
	fl := newFiltros(baseFacturas)
	aplicarFiltroMetricas(fl, f)

	query := `SELECT moneda,
			COALESCE(SUM(neto), 0) AS total_facturado,
			COALESCE(SUM(CASE WHEN estado1 = 'Ganada' THEN neto ELSE 0 END), 0) AS monto_ganado,
			COALESCE(SUM(CASE WHEN estado1 IS NULL OR estado1 NOT IN ('Ganada', 'Perdida') THEN neto ELSE 0 END), 0) AS monto_disponible,
			COUNT(*) AS cantidad
		FROM (
			SELECT COALESCE(v.moneda, '') AS moneda, v.estado1, ` + montoNetoExpr + ` AS neto
			FROM ventas_sire v
			WHERE ` + fl.clausula() + `
		) t
		GROUP BY moneda
		ORDER BY moneda`
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, fmt.Errorf("resumen por moneda: %w", err)
	}
	defer rows.Close()

	var out []repository.ResumenMoneda
	for rows.Next() {
		var m repository.ResumenMoneda
		if err := rows.Scan(&m.Moneda, &m.TotalFacturado, &m.MontoGanado, &m.MontoDisponible, &m.Cantidad); err != nil {
			return nil, fmt.Errorf("scan resumen: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// EmpresasPorPeriodo pares (ruc, razón social) con facturas elegibles en el periodo.
func (r *VentaRepo) EmpresasPorPeriodo(ctx context.Context, periodo string, rucs, usuarioEmails []string) ([]repository.Empresa, error) {
	fl := newFiltros(baseFacturas)
	if periodo != "" {
		fl.add("v.periodo = $%d", periodo)
	}
	if rucs != nil {
		fl.add("v.ruc = ANY($%d)", rucs)
	}
	fl.addUsuarios(usuarioEmails)

	query := `SELECT DISTINCT v.ruc, COALESCE(v.razon_social, '') FROM ventas_sire v
		WHERE ` + fl.clausula() + ` ORDER BY v.ruc`
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, fmt.Errorf("empresas por periodo: %w", err)
	}
	defer rows.Close()

	var out []repository.Empresa
	for rows.Next() {
		var e repository.Empresa
		if err := rows.Scan(&e.RUC, &e.RazonSocial); err != nil {
			return nil, fmt.Errorf("scan empresa: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ReplacePeriodo reimporta un RUC+periodo: borra e inserta en una sola
// transacción, con CopyFrom para el volumen del SIRE.
func (r *VentaRepo) ReplacePeriodo(ctx context.Context, ruc, periodo string, filas []entity.Venta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM ventas_sire WHERE ruc = $1 AND periodo = $2`, ruc, periodo); err != nil {
		return fmt.Errorf("delete periodo: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"ventas_sire"},
		[]string{
			"ruc", "razon_social", "periodo", "car_sunat", "fecha_emision", "fecha_vcto_pago",
			"tipo_cp_doc", "serie_cdp", "nro_cp_inicial", "nro_final", "tipo_doc_identidad",
			"nro_doc_identidad", "apellidos_nombres_razon_social", "total_cp", "moneda", "tipo_cambio",
			"fecha_emision_doc_modificado", "tipo_cp_modificado", "serie_cp_modificado",
			"nro_cp_modificado", "tipo_nota", "est_comp", "ultima_actualizacion",
		},
		pgx.CopyFromSlice(len(filas), func(i int) ([]any, error) {
			v := filas[i]
			return []any{
				v.RUC, v.RazonSocial, v.Periodo, v.CarSunat, v.FechaEmision, v.FechaVctoPago,
				v.TipoCPDoc, v.SerieCDP, v.NroCPInicial, v.NroFinal, v.TipoDocIdentidad,
				v.NroDocIdentidad, v.RazonSocialCliente, v.TotalCP, v.Moneda, v.TipoCambio,
				v.FechaEmisionDocMod, v.TipoCPModificado, v.SerieCPModificado,
				v.NroCPModificado, v.TipoNota, v.EstComp, v.UltimaActualizacion,
			}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy ventas: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Totales conteo y monto acumulado del ledger completo.
func (r *VentaRepo) Totales(ctx context.Context) (repository.TotalesLedger, error) {
	var t repository.TotalesLedger
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*), COALESCE(SUM(total_cp), 0) FROM ventas_sire`).
		Scan(&t.Registros, &t.MontoTotal)
	if err != nil {
		return repository.TotalesLedger{}, fmt.Errorf("totales ventas: %w", err)
	}
	return t, nil
}

// ordenSQL traduce el orden lógico a ORDER BY. El desempate por id hace la
// paginación estable entre páginas.
func ordenSQL(orden string) string {
	if orden == repository.OrdenMonto {
		return montoNetoExpr + ` DESC, v.id DESC`
	}
	return `v.fecha_emision DESC NULLS LAST, v.id DESC`
}

// filtros acumula condiciones WHERE con placeholders numerados.
type filtros struct {
	where []string
	args  []any
}

func newFiltros(base string) *filtros {
	f := &filtros{}
	if base != "" {
		f.where = append(f.where, base)
	}
	return f
}

// add agrega una condición; cond debe tener un único verbo $%d.
func (f *filtros) add(cond string, val any) {
	f.args = append(f.args, val)
	f.where = append(f.where, fmt.Sprintf(cond, len(f.args)))
}

// addUsuarios filtro por usuario asignado al RUC (vía enrolados). El sentinel
// EmailSinAsignar entra en OR: filas cuyo RUC no tiene usuario asignado.
func (f *filtros) addUsuarios(emails []string) {
	if len(emails) == 0 {
		return
	}
	sinAsignar := false
	asignados := make([]string, 0, len(emails))
	for _, e := range emails {
		if e == repository.EmailSinAsignar {
			sinAsignar = true
			continue
		}
		if e != "" {
			asignados = append(asignados, e)
		}
	}
	var partes []string
	if len(asignados) > 0 {
		f.args = append(f.args, asignados)
		partes = append(partes, fmt.Sprintf(
			`EXISTS (SELECT 1 FROM enrolados e WHERE e.ruc = v.ruc AND e.email = ANY($%d))`, len(f.args)))
	}
	if sinAsignar {
		partes = append(partes,
			`NOT EXISTS (SELECT 1 FROM enrolados e WHERE e.ruc = v.ruc AND e.email IS NOT NULL)`)
	}
	if len(partes) == 0 {
		return
	}
	f.where = append(f.where, "("+strings.Join(partes, " OR ")+")")
}

func (f *filtros) clausula() string {
	if len(f.where) == 0 {
		return "TRUE"
	}
	return strings.Join(f.where, "\n  AND ")
}

func aplicarFiltroVentas(fl *filtros, f repository.VentaFilter) {
	if f.RUCs != nil {
		fl.add("v.ruc = ANY($%d)", f.RUCs)
	}
	if f.Periodo != "" {
		fl.add("v.periodo = $%d", f.Periodo)
	}
	if f.FechaDesde != nil {
		fl.add("v.fecha_emision >= $%d", *f.FechaDesde)
	}
	if f.FechaHasta != nil {
		fl.add("v.fecha_emision <= $%d", *f.FechaHasta)
	}
	if f.Moneda != "" {
		fl.add("v.moneda = $%d", f.Moneda)
	}
	fl.addUsuarios(f.UsuarioEmails)
}

func aplicarFiltroMetricas(fl *filtros, f repository.MetricasFilter) {
	if f.RUCs != nil {
		fl.add("v.ruc = ANY($%d)", f.RUCs)
	}
	if f.FechaDesde != nil {
		fl.add("v.fecha_emision >= $%d", *f.FechaDesde)
	}
	if f.FechaHasta != nil {
		fl.add("v.fecha_emision <= $%d", *f.FechaHasta)
	}
	if len(f.Monedas) > 0 {
		fl.add("v.moneda = ANY($%d)", f.Monedas)
	}
	fl.addUsuarios(f.UsuarioEmails)
}

// scanVenta lee una fila en el orden de colsVenta.
func scanVenta(row pgx.Row) (entity.Venta, error) {
	var v entity.Venta
	err := row.Scan(
		&v.ID, &v.RUC, &v.RazonSocial, &v.Periodo, &v.CarSunat,
		&v.FechaEmision, &v.FechaVctoPago, &v.TipoCPDoc, &v.SerieCDP,
		&v.NroCPInicial, &v.NroFinal, &v.TipoDocIdentidad, &v.NroDocIdentidad,
		&v.RazonSocialCliente, &v.TotalCP, &v.Moneda, &v.TipoCambio,
		&v.FechaEmisionDocMod, &v.TipoCPModificado, &v.SerieCPModificado, &v.NroCPModificado,
		&v.TipoNota, &v.EstComp, &v.Estado1, &v.Estado2, &v.UltimaActualizacion,
	)
	return v, err
}

func scanVentas(rows pgx.Rows) ([]entity.Venta, error) {
	var out []entity.Venta
	for rows.Next() {
		v, err := scanVenta(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venta: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
