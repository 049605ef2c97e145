package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// Ordenamientos admitidos para listados de ventas.
const (
	OrdenFecha = "fecha" // fecha_emision DESC, id DESC (desempate estable)
	OrdenMonto = "monto" // monto neto DESC
)

// EmailSinAsignar sentinel en el filtro de usuario: incluye las filas cuyo RUC
// no tiene usuario asignado, en OR con los emails listados.
const EmailSinAsignar = "UNASSIGNED"

// Pagina paginación 1-indexed.
type Pagina struct {
	Numero int
	Tamano int
}

// Offset desplazamiento SQL equivalente.
func (p Pagina) Offset() int {
	if p.Numero < 1 {
		return 0
	}
	return (p.Numero - 1) * p.Tamano
}

// VentaFilter filtros de listado, combinados con AND. RUCs llega ya
// intersectado con el alcance del llamador: nil significa sin filtro de RUC
// (alcance sin restricción y sin filtro pedido); la lista vacía nunca llega
// aquí, el caso de uso corta antes con resultado vacío.
type VentaFilter struct {
	RUCs          []string
	Periodo       string // YYYYMM, vacío = todos
	FechaDesde    *time.Time
	FechaHasta    *time.Time
	Moneda        string // "PEN", "USD", vacío = todas
	UsuarioEmails []string
}

// MetricasFilter filtros del resumen por moneda.
type MetricasFilter struct {
	FechaDesde    *time.Time
	FechaHasta    *time.Time
	RUCs          []string // misma convención que VentaFilter.RUCs
	Monedas       []string
	UsuarioEmails []string
}

// ResumenMoneda agregado de métricas de una moneda, sobre montos netos.
type ResumenMoneda struct {
	Moneda          string
	TotalFacturado  decimal.Decimal
	MontoGanado     decimal.Decimal // estado1 = "Ganada"
	MontoDisponible decimal.Decimal // estado1 NULL o fuera de {Ganada, Perdida}
	Cantidad        int64
}

// Empresa par (RUC, razón social) para el selector de empresas.
type Empresa struct {
	RUC         string
	RazonSocial string
}

// TotalesLedger conteo y monto acumulado de una tabla del ledger.
type TotalesLedger struct {
	Registros  int64
	MontoTotal decimal.Decimal
}

// VentaRepository puerto de lectura/actualización sobre el ledger de ventas
// (ventas_sire). Es el camino "en vivo": las consultas aplican el filtro base
// de elegibilidad y los filtros en SQL, nunca en memoria sobre datos sin
// filtrar.
type VentaRepository interface {
	// ListFacturas devuelve una página de facturas elegibles y el total sin paginar.
	ListFacturas(ctx context.Context, f VentaFilter, orden string, pag Pagina) ([]entity.Venta, int64, error)
	// ListNotasCredito devuelve las notas de crédito candidatas para conciliar
	// las facturas de los pares (ruc, nro_doc_identidad) dados.
	ListNotasCredito(ctx context.Context, rucs, docsIdentidad []string) ([]entity.Venta, error)
	GetByID(ctx context.Context, id int64) (*entity.Venta, error)
	// UpdateEstado aplica estado1/estado2 sobre una fila (last-writer-wins) y
	// devuelve la fila actualizada. Devuelve domain.ErrNotFound si no existe.
	UpdateEstado(ctx context.Context, id int64, estado1 string, estado2 *string) (*entity.Venta, error)
	ResumenPorMoneda(ctx context.Context, f MetricasFilter) ([]ResumenMoneda, error)
	EmpresasPorPeriodo(ctx context.Context, periodo string, rucs, usuarioEmails []string) ([]Empresa, error)
	// ReplacePeriodo reimporta un RUC+periodo completo: borra e inserta en una
	// sola transacción (usado por el loader).
	ReplacePeriodo(ctx context.Context, ruc, periodo string, filas []entity.Venta) error
	Totales(ctx context.Context) (TotalesLedger, error)
}

// RefreshRun registro de una corrida de refresco del snapshot.
type RefreshRun struct {
	ID     string // uuid
	Inicio time.Time
	Fin    time.Time
	Filas  int64
}

// VentaSnapshotRepository puerto sobre la vista materializada ventas_backend
// (camino rápido). Las lecturas devuelven domain.ErrSnapshotUnavailable si la
// vista no existe; el caso de uso cae entonces al camino en vivo.
type VentaSnapshotRepository interface {
	ListFacturas(ctx context.Context, f VentaFilter, orden string, pag Pagina) ([]entity.VentaSnapshot, int64, error)
	ResumenPorMoneda(ctx context.Context, f MetricasFilter) ([]ResumenMoneda, error)
	EmpresasPorPeriodo(ctx context.Context, periodo string, rucs, usuarioEmails []string) ([]Empresa, error)
	// Rebuild crea la vista desde cero (DROP + CREATE). Todo-o-nada: los
	// lectores ven la vista vieja o la nueva completa, nunca una parcial.
	Rebuild(ctx context.Context) error
	// Refresh refresca concurrentemente (no bloquea lectores) y registra la corrida.
	Refresh(ctx context.Context) (*RefreshRun, error)
	// LastRefresh devuelve la última corrida registrada, o nil si no hay ninguna.
	LastRefresh(ctx context.Context) (*RefreshRun, error)
}
