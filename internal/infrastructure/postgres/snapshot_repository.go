package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

var _ repository.VentaSnapshotRepository = (*SnapshotRepo)(nil)

// createViewSQL define la vista materializada ventas_backend: las facturas
// elegibles con la conciliación precalculada en SQL. Misma clave de cruce,
// misma normalización y mismo neto que el motor en memoria; el WHERE es el
// mismo filtro base del camino en vivo.
const createViewSQL = `CREATE MATERIALIZED VIEW ventas_backend AS
SELECT
	v.id,
	v.ruc,
	v.razon_social,
	v.periodo,
	v.car_sunat,
	v.fecha_emision,
	v.fecha_vcto_pago,
	v.tipo_cp_doc,
	v.serie_cdp,
	v.nro_cp_inicial,
	v.nro_final,
	v.tipo_doc_identidad,
	v.nro_doc_identidad,
	v.apellidos_nombres_razon_social,
	v.total_cp,
	v.moneda,
	v.tipo_cambio,
	v.fecha_emision_doc_modificado,
	v.tipo_cp_modificado,
	v.serie_cp_modificado,
	v.nro_cp_modificado,
	v.tipo_nota,
	v.est_comp,
	v.estado1,
	v.estado2,
	v.ultima_actualizacion,

	EXISTS (
		SELECT 1 FROM ventas_sire nc WHERE ` + matchNC + `
	) AS tiene_nota_credito,

	COALESCE((
		SELECT SUM(ABS(CASE WHEN nc.tipo_cambio IS NOT NULL AND nc.tipo_cambio > 0
			THEN nc.total_cp / nc.tipo_cambio ELSE nc.total_cp END))
		FROM ventas_sire nc
		WHERE ` + matchNC + `
	), 0) AS monto_nota_credito,

	` + montoNetoExpr + ` AS monto_neto,

	(
		SELECT STRING_AGG(nc.serie_cdp || '-' || nc.nro_cp_inicial, ', '
			ORDER BY nc.fecha_emision ASC NULLS LAST, nc.serie_cdp || '-' || nc.nro_cp_inicial)
		FROM ventas_sire nc
		WHERE ` + matchNC + `
	) AS notas_credito_asociadas,

	(
		SELECT e.email FROM enrolados e
		WHERE e.ruc = v.ruc AND e.email IS NOT NULL
		ORDER BY e.id LIMIT 1
	) AS usuario_email,

	(
		SELECT u.nombre FROM usuarios u
		WHERE u.email = (
			SELECT e.email FROM enrolados e
			WHERE e.ruc = v.ruc AND e.email IS NOT NULL
			ORDER BY e.id LIMIT 1
		)
	) AS usuario_nombre

FROM ventas_sire v
WHERE ` + baseFacturas

// viewIndexes índices de la vista. El único sobre id habilita el refresh
// concurrente; el compuesto sirve las métricas.
var viewIndexes = []string{
	`CREATE UNIQUE INDEX idx_ventas_backend_id ON ventas_backend (id)`,
	`CREATE INDEX idx_ventas_backend_ruc_periodo ON ventas_backend (ruc, periodo)`,
	`CREATE INDEX idx_ventas_backend_fecha ON ventas_backend (fecha_emision)`,
	`CREATE INDEX idx_ventas_backend_moneda ON ventas_backend (moneda)`,
	`CREATE INDEX idx_ventas_backend_cliente ON ventas_backend (nro_doc_identidad)`,
	`CREATE INDEX idx_ventas_backend_estado1 ON ventas_backend (estado1) WHERE estado1 IS NOT NULL`,
	`CREATE INDEX idx_ventas_backend_usuario ON ventas_backend (usuario_email)`,
	`CREATE INDEX idx_ventas_backend_metricas ON ventas_backend (fecha_emision, moneda, estado1, monto_neto)`,
}

const createRefreshLogSQL = `CREATE TABLE IF NOT EXISTS snapshot_refresh_log (
	id     UUID PRIMARY KEY,
	inicio TIMESTAMPTZ NOT NULL,
	fin    TIMESTAMPTZ NOT NULL,
	filas  BIGINT NOT NULL
)`

// colsSnapshot columnas de la vista en el orden que scanSnapshot espera.
const colsSnapshot = colsVenta + `,
	v.tiene_nota_credito, COALESCE(v.monto_nota_credito, 0), COALESCE(v.monto_neto, 0),
	v.notas_credito_asociadas, v.usuario_email, v.usuario_nombre`

// SnapshotRepo implementación de VentaSnapshotRepository sobre ventas_backend
// (camino rápido). Toda lectura traduce 42P01 a ErrSnapshotUnavailable para
// que el caso de uso caiga al ledger.
type SnapshotRepo struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository construye el adaptador de la vista materializada.
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepo {
	return &SnapshotRepo{pool: pool}
}

// ListFacturas página de la vista más el total sin paginar. El filtro base ya
// está aplicado en la definición de la vista.
func (r *SnapshotRepo) ListFacturas(ctx context.Context, f repository.VentaFilter, orden string, pag repository.Pagina) ([]entity.VentaSnapshot, int64, error) {
	fl := newFiltros("")
	aplicarFiltroSnapshot(fl, f)

	var total int64
	countQuery := `SELECT COUNT(*) FROM ventas_backend v WHERE ` + fl.clausula()
	if err := r.pool.QueryRow(ctx, countQuery, fl.args...).Scan(&total); err != nil {
		return nil, 0, snapshotErr("count snapshot", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM ventas_backend v WHERE %s ORDER BY %s LIMIT %d OFFSET %d`,
		colsSnapshot, fl.clausula(), ordenSnapshotSQL(orden), pag.Tamano, pag.Offset())
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, 0, snapshotErr("list snapshot", err)
	}
	defer rows.Close()

	var out []entity.VentaSnapshot
	for rows.Next() {
		var s entity.VentaSnapshot
		if err := rows.Scan(
			&s.ID, &s.RUC, &s.RazonSocial, &s.Periodo, &s.CarSunat,
			&s.FechaEmision, &s.FechaVctoPago, &s.TipoCPDoc, &s.SerieCDP,
			&s.NroCPInicial, &s.NroFinal, &s.TipoDocIdentidad, &s.NroDocIdentidad,
			&s.RazonSocialCliente, &s.TotalCP, &s.Moneda, &s.TipoCambio,
			&s.FechaEmisionDocMod, &s.TipoCPModificado, &s.SerieCPModificado, &s.NroCPModificado,
			&s.TipoNota, &s.EstComp, &s.Estado1, &s.Estado2, &s.UltimaActualizacion,
			&s.TieneNotaCredito, &s.MontoNotaCredito, &s.MontoNeto,
			&s.NotasCreditoAsociadas, &s.UsuarioEmail, &s.UsuarioNombre,
		); err != nil {
			return nil, 0, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// ResumenPorMoneda agrega los montos netos ya materializados.
func (r *SnapshotRepo) ResumenPorMoneda(ctx context.Context, f repository.MetricasFilter) ([]repository.ResumenMoneda, error) {
	fl := newFiltros("")
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
	addUsuariosSnapshot(fl, f.UsuarioEmails)

	query := `SELECT COALESCE(v.moneda, '') AS moneda,
			COALESCE(SUM(v.monto_neto), 0) AS total_facturado,
			COALESCE(SUM(CASE WHEN v.estado1 = 'Ganada' THEN v.monto_neto ELSE 0 END), 0) AS monto_ganado,
			COALESCE(SUM(CASE WHEN v.estado1 IS NULL OR v.estado1 NOT IN ('Ganada', 'Perdida') THEN v.monto_neto ELSE 0 END), 0) AS monto_disponible,
			COUNT(*) AS cantidad
		FROM ventas_backend v
		WHERE ` + fl.clausula() + `
		GROUP BY moneda
		ORDER BY moneda`
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, snapshotErr("resumen snapshot", err)
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

// EmpresasPorPeriodo pares (ruc, razón social) desde la vista.
func (r *SnapshotRepo) EmpresasPorPeriodo(ctx context.Context, periodo string, rucs, usuarioEmails []string) ([]repository.Empresa, error) {
	fl := newFiltros("")
	if periodo != "" {
		fl.add("v.periodo = $%d", periodo)
	}
	if rucs != nil {
		fl.add("v.ruc = ANY($%d)", rucs)
	}
	addUsuariosSnapshot(fl, usuarioEmails)

	query := `SELECT DISTINCT v.ruc, COALESCE(v.razon_social, '') FROM ventas_backend v
		WHERE ` + fl.clausula() + ` ORDER BY v.ruc`
	rows, err := r.pool.Query(ctx, query, fl.args...)
	if err != nil {
		return nil, snapshotErr("empresas snapshot", err)
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

// Rebuild recrea la vista desde cero. DROP + CREATE corre dentro de una
// transacción: los lectores ven la vista vieja o la nueva, nunca una parcial.
func (r *SnapshotRepo) Rebuild(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createRefreshLogSQL); err != nil {
		return fmt.Errorf("crear log de refresh: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DROP MATERIALIZED VIEW IF EXISTS ventas_backend CASCADE`); err != nil {
		return fmt.Errorf("drop vista: %w", err)
	}
	if _, err := tx.Exec(ctx, createViewSQL); err != nil {
		return fmt.Errorf("crear vista: %w", err)
	}
	for _, idx := range viewIndexes {
		if _, err := tx.Exec(ctx, idx); err != nil {
			return fmt.Errorf("crear índice: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	_, err = r.pool.Exec(ctx, `ANALYZE ventas_backend`)
	return err
}

// Refresh refresca la vista sin bloquear lectores y registra la corrida.
func (r *SnapshotRepo) Refresh(ctx context.Context) (*repository.RefreshRun, error) {
	inicio := time.Now()
	if _, err := r.pool.Exec(ctx, `REFRESH MATERIALIZED VIEW CONCURRENTLY ventas_backend`); err != nil {
		return nil, snapshotErr("refresh vista", err)
	}

	var filas int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ventas_backend`).Scan(&filas); err != nil {
		return nil, snapshotErr("count vista", err)
	}

	run := &repository.RefreshRun{
		ID:     uuid.New().String(),
		Inicio: inicio,
		Fin:    time.Now(),
		Filas:  filas,
	}
	if _, err := r.pool.Exec(ctx, createRefreshLogSQL); err != nil {
		return nil, fmt.Errorf("crear log de refresh: %w", err)
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO snapshot_refresh_log (id, inicio, fin, filas) VALUES ($1, $2, $3, $4)`,
		run.ID, run.Inicio, run.Fin, run.Filas,
	); err != nil {
		return nil, fmt.Errorf("registrar refresh: %w", err)
	}
	return run, nil
}

// LastRefresh última corrida registrada, o nil si no hay ninguna.
func (r *SnapshotRepo) LastRefresh(ctx context.Context) (*repository.RefreshRun, error) {
	var run repository.RefreshRun
	err := r.pool.QueryRow(ctx,
		`SELECT id, inicio, fin, filas FROM snapshot_refresh_log ORDER BY fin DESC LIMIT 1`,
	).Scan(&run.ID, &run.Inicio, &run.Fin, &run.Filas)
	if err != nil {
		if isUndefinedTable(err) || errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("último refresh: %w", err)
	}
	return &run, nil
}

// aplicarFiltroSnapshot como aplicarFiltroVentas pero con el filtro de usuario
// resuelto sobre la columna materializada.
func aplicarFiltroSnapshot(fl *filtros, f repository.VentaFilter) {
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
	addUsuariosSnapshot(fl, f.UsuarioEmails)
}

// addUsuariosSnapshot filtro por usuario asignado sobre usuario_email de la
// vista. El sentinel EmailSinAsignar entra en OR: filas sin usuario asignado.
func addUsuariosSnapshot(fl *filtros, emails []string) {
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
	switch {
	case len(asignados) > 0 && sinAsignar:
		fl.add("(v.usuario_email = ANY($%d) OR v.usuario_email IS NULL)", asignados)
	case len(asignados) > 0:
		fl.add("v.usuario_email = ANY($%d)", asignados)
	case sinAsignar:
		fl.where = append(fl.where, "v.usuario_email IS NULL")
	}
}

func ordenSnapshotSQL(orden string) string {
	if orden == repository.OrdenMonto {
		return `v.monto_neto DESC, v.id DESC`
	}
	return `v.fecha_emision DESC NULLS LAST, v.id DESC`
}

// snapshotErr traduce "vista inexistente" al error de dominio que dispara el
// fallback al ledger.
func snapshotErr(op string, err error) error {
	if isUndefinedTable(err) {
		return domain.ErrSnapshotUnavailable
	}
	return fmt.Errorf("%s: %w", op, err)
}
