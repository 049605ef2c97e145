package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/reconcile"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/config"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

// ReporteVentasGenerator genera el PDF del reporte de ventas conciliadas.
type ReporteVentasGenerator interface {
	Generar(titulo string, items []dto.VentaResponse) ([]byte, error)
}

// VentasUseCase listados y gestión de ventas conciliadas. Lee primero del
// snapshot (vista materializada); si la vista no existe cae al camino en vivo
// sobre el ledger, conciliando en memoria. Ambos caminos aplican los mismos
// filtros y producen los mismos montos.
type VentasUseCase struct {
	ledger   repository.VentaRepository
	snapshot repository.VentaSnapshotRepository
	reporte  ReporteVentasGenerator
	cfg      config.QueryConfig
	log      *logger.Logger
}

// NewVentasUseCase construye el caso de uso.
func NewVentasUseCase(ledger repository.VentaRepository, snapshot repository.VentaSnapshotRepository, reporte ReporteVentasGenerator, cfg config.QueryConfig, log *logger.Logger) *VentasUseCase {
	return &VentasUseCase{ledger: ledger, snapshot: snapshot, reporte: reporte, cfg: cfg, log: log}
}

// List devuelve una página de facturas conciliadas dentro del alcance del
// llamador. Un alcance vacío responde una página vacía sin tocar la base.
func (uc *VentasUseCase) List(ctx context.Context, scope domain.AccessScope, in dto.ListVentasRequest) (*dto.ListVentasResponse, error) {
	pag, err := uc.pagina(in.Page, in.PageSize, in.Bulk)
	if err != nil {
		return nil, err
	}
	orden, err := ordenVentas(in.SortBy)
	if err != nil {
		return nil, err
	}

	efectivo := scope.Narrow(rucsPedidos(in.RUC, in.RUCs))
	if efectivo.IsEmpty() {
		return &dto.ListVentasResponse{
			Items:      []dto.VentaResponse{},
			Paginacion: dto.NewPaginacion(pag.Numero, pag.Tamano, 0),
			Fuente:     dto.FuenteLedger,
		}, nil
	}

	filtro, err := filtroVentas(efectivo, in)
	if err != nil {
		return nil, err
	}

	filas, total, err := uc.snapshot.ListFacturas(ctx, filtro, orden, pag)
	switch {
	case err == nil:
		items := make([]dto.VentaResponse, 0, len(filas))
		for i := range filas {
			items = append(items, dto.VentaFromSnapshot(&filas[i]))
		}
		out := &dto.ListVentasResponse{
			Items:      items,
			Paginacion: dto.NewPaginacion(pag.Numero, pag.Tamano, total),
			Fuente:     dto.FuenteSnapshot,
		}
		if run, err := uc.snapshot.LastRefresh(ctx); err == nil && run != nil {
			out.ActualizadoEn = &run.Fin
		}
		return out, nil
	case errors.Is(err, domain.ErrSnapshotUnavailable):
		uc.log.Warn().Msg("snapshot no disponible, respondiendo desde el ledger")
	default:
		return nil, err
	}

	facturas, total, err := uc.ledger.ListFacturas(ctx, filtro, orden, pag)
	if err != nil {
		return nil, err
	}
	resultados, err := uc.conciliar(ctx, facturas)
	if err != nil {
		return nil, err
	}
	items := make([]dto.VentaResponse, 0, len(facturas))
	for i := range facturas {
		items = append(items, ventaConciliada(&facturas[i], resultados))
	}
	return &dto.ListVentasResponse{
		Items:      items,
		Paginacion: dto.NewPaginacion(pag.Numero, pag.Tamano, total),
		Fuente:     dto.FuenteLedger,
	}, nil
}

// GetByID devuelve una factura conciliada. ErrForbidden si el RUC queda fuera
// del alcance del llamador.
func (uc *VentasUseCase) GetByID(ctx context.Context, scope domain.AccessScope, id int64) (*dto.VentaResponse, error) {
	v, err := uc.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Allows(v.RUC) {
		return nil, domain.ErrForbidden
	}
	return uc.conciliarUna(ctx, v)
}

// UpdateEstado cambia estado1 de una venta. "Perdida" se rechaza aquí: pasar a
// perdida exige un motivo y tiene su propia operación. Cualquier estado1
// distinto de "Perdida" deja estado2 en NULL.
func (uc *VentasUseCase) UpdateEstado(ctx context.Context, scope domain.AccessScope, id int64, in dto.UpdateEstadoRequest) (*dto.VentaResponse, error) {
	if !entity.EstadoGestionValido(in.Estado1) || in.Estado1 == entity.EstadoPerdida {
		return nil, domain.ErrInvalidEstado
	}
	if err := uc.autorizar(ctx, scope, id); err != nil {
		return nil, err
	}
	v, err := uc.ledger.UpdateEstado(ctx, id, in.Estado1, nil)
	if err != nil {
		return nil, err
	}
	return uc.conciliarUna(ctx, v)
}

// MarcarPerdida pasa una venta a estado1 = "Perdida" con su motivo (estado2).
func (uc *VentasUseCase) MarcarPerdida(ctx context.Context, scope domain.AccessScope, id int64, in dto.MarcarPerdidaRequest) (*dto.VentaResponse, error) {
	if !entity.MotivoPerdidaValido(in.Estado2) {
		return nil, domain.ErrInvalidMotivo
	}
	if err := uc.autorizar(ctx, scope, id); err != nil {
		return nil, err
	}
	motivo := in.Estado2
	v, err := uc.ledger.UpdateEstado(ctx, id, entity.EstadoPerdida, &motivo)
	if err != nil {
		return nil, err
	}
	return uc.conciliarUna(ctx, v)
}

// Empresas devuelve los pares (RUC, razón social) con ventas en el periodo,
// dentro del alcance del llamador.
func (uc *VentasUseCase) Empresas(ctx context.Context, scope domain.AccessScope, periodo string, usuarioEmails []string) ([]dto.EmpresaResponse, error) {
	if scope.IsEmpty() {
		return []dto.EmpresaResponse{}, nil
	}
	rucs := scope.RUCs()
	empresas, err := uc.snapshot.EmpresasPorPeriodo(ctx, periodo, rucs, usuarioEmails)
	if errors.Is(err, domain.ErrSnapshotUnavailable) {
		uc.log.Warn().Msg("snapshot no disponible, respondiendo desde el ledger")
		empresas, err = uc.ledger.EmpresasPorPeriodo(ctx, periodo, rucs, usuarioEmails)
	}
	if err != nil {
		return nil, err
	}
	return dto.EmpresasFromRepo(empresas), nil
}

// ReportePDF genera el PDF del listado conciliado con los mismos filtros del
// listado, usando el tope de exportación.
func (uc *VentasUseCase) ReportePDF(ctx context.Context, scope domain.AccessScope, in dto.ListVentasRequest) ([]byte, error) {
	in.Bulk = true
	if in.PageSize == 0 {
		in.PageSize = uc.cfg.MaxBulkPageSize
	}
	page, err := uc.List(ctx, scope, in)
	if err != nil {
		return nil, err
	}
	titulo := "Reporte de ventas"
	if in.Periodo != "" {
		titulo += " " + in.Periodo
	}
	return uc.reporte.Generar(titulo, page.Items)
}

// autorizar verifica que la venta exista y que su RUC esté en el alcance.
func (uc *VentasUseCase) autorizar(ctx context.Context, scope domain.AccessScope, id int64) error {
	v, err := uc.ledger.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !scope.Allows(v.RUC) {
		return domain.ErrForbidden
	}
	return nil
}

// conciliar trae las notas de crédito candidatas para la página y corre la
// conciliación en memoria.
func (uc *VentasUseCase) conciliar(ctx context.Context, facturas []entity.Venta) (map[int64]reconcile.Resultado, error) {
	if len(facturas) == 0 {
		return map[int64]reconcile.Resultado{}, nil
	}
	rucSet := make(map[string]struct{})
	docSet := make(map[string]struct{})
	for i := range facturas {
		rucSet[facturas[i].RUC] = struct{}{}
		docSet[facturas[i].NroDocIdentidad] = struct{}{}
	}
	rucs := make([]string, 0, len(rucSet))
	for r := range rucSet {
		rucs = append(rucs, r)
	}
	docs := make([]string, 0, len(docSet))
	for d := range docSet {
		docs = append(docs, d)
	}
	notas, err := uc.ledger.ListNotasCredito(ctx, rucs, docs)
	if err != nil {
		return nil, err
	}
	return reconcile.Reconcile(facturas, notas), nil
}

func (uc *VentasUseCase) conciliarUna(ctx context.Context, v *entity.Venta) (*dto.VentaResponse, error) {
	resultados, err := uc.conciliar(ctx, []entity.Venta{*v})
	if err != nil {
		return nil, err
	}
	out := ventaConciliada(v, resultados)
	return &out, nil
}

func ventaConciliada(v *entity.Venta, resultados map[int64]reconcile.Resultado) dto.VentaResponse {
	res := resultados[v.ID]
	var notas *string
	if len(res.NotasAsociadas) > 0 {
		s := strings.Join(res.NotasAsociadas, ", ")
		notas = &s
	}
	return dto.VentaFromLedger(v, res.TieneNotaCredito, res.MontoNotaCredito, res.MontoNeto, notas)
}

// pagina normaliza página y tamaño contra los topes configurados. El tope
// bulk aplica a exportaciones; el resto de listados usa el tope general.
func (uc *VentasUseCase) pagina(page, pageSize int, bulk bool) (repository.Pagina, error) {
	if page < 0 || pageSize < 0 {
		return repository.Pagina{}, domain.ErrInvalidInput
	}
	if page == 0 {
		page = 1
	}
	if pageSize == 0 {
		pageSize = uc.cfg.DefaultPageSize
	}
	tope := uc.cfg.MaxPageSize
	if bulk {
		tope = uc.cfg.MaxBulkPageSize
	}
	if pageSize > tope {
		return repository.Pagina{}, domain.ErrInvalidInput
	}
	return repository.Pagina{Numero: page, Tamano: pageSize}, nil
}

func ordenVentas(sortBy string) (string, error) {
	switch sortBy {
	case "", repository.OrdenFecha:
		return repository.OrdenFecha, nil
	case repository.OrdenMonto:
		return repository.OrdenMonto, nil
	default:
		return "", domain.ErrInvalidInput
	}
}

// rucsPedidos combina el filtro singular y el plural en una sola lista.
func rucsPedidos(ruc string, rucs []string) []string {
	out := make([]string, 0, len(rucs)+1)
	if ruc != "" {
		out = append(out, ruc)
	}
	for _, r := range rucs {
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}

func filtroVentas(scope domain.AccessScope, in dto.ListVentasRequest) (repository.VentaFilter, error) {
	desde, err := parseFecha(in.FechaDesde)
	if err != nil {
		return repository.VentaFilter{}, err
	}
	hasta, err := parseFecha(in.FechaHasta)
	if err != nil {
		return repository.VentaFilter{}, err
	}
	return repository.VentaFilter{
		RUCs:          scope.RUCs(),
		Periodo:       in.Periodo,
		FechaDesde:    desde,
		FechaHasta:    hasta,
		Moneda:        in.Moneda,
		UsuarioEmails: in.UsuarioEmails,
	}, nil
}

// parseFecha YYYY-MM-DD; vacío es nil.
func parseFecha(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, domain.ErrInvalidInput
	}
	return &t, nil
}
