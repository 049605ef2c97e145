package usecase

import (
	"context"
	"errors"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

// MetricasUseCase agregados del pipeline comercial. Misma política de caminos
// que el listado de ventas: snapshot primero, ledger si la vista no existe.
type MetricasUseCase struct {
	ledger    repository.VentaRepository
	snapshot  repository.VentaSnapshotRepository
	compras   repository.CompraRepository
	enrolados repository.EnroladoRepository
	log       *logger.Logger
}

// NewMetricasUseCase construye el caso de uso.
func NewMetricasUseCase(ledger repository.VentaRepository, snapshot repository.VentaSnapshotRepository, compras repository.CompraRepository, enrolados repository.EnroladoRepository, log *logger.Logger) *MetricasUseCase {
	return &MetricasUseCase{ledger: ledger, snapshot: snapshot, compras: compras, enrolados: enrolados, log: log}
}

// Resumen métricas por moneda sobre montos netos conciliados. Un llamador sin
// restricción ve el agregado global: el filtro de usuario no le aplica.
func (uc *MetricasUseCase) Resumen(ctx context.Context, scope domain.AccessScope, in dto.ResumenRequest) (*dto.ResumenResponse, error) {
	efectivo := scope.Narrow(in.RUCs)
	if efectivo.IsEmpty() {
		return &dto.ResumenResponse{Monedas: map[string]dto.ResumenMonedaResponse{}, Fuente: dto.FuenteLedger}, nil
	}
	desde, err := parseFecha(in.FechaDesde)
	if err != nil {
		return nil, err
	}
	hasta, err := parseFecha(in.FechaHasta)
	if err != nil {
		return nil, err
	}
	usuarios := in.UsuarioEmails
	if scope.IsUnrestricted() {
		usuarios = nil
	}
	filtro := repository.MetricasFilter{
		FechaDesde:    desde,
		FechaHasta:    hasta,
		RUCs:          efectivo.RUCs(),
		Monedas:       in.Monedas,
		UsuarioEmails: usuarios,
	}

	fuente := dto.FuenteSnapshot
	filas, err := uc.snapshot.ResumenPorMoneda(ctx, filtro)
	if errors.Is(err, domain.ErrSnapshotUnavailable) {
		uc.log.Warn().Msg("snapshot no disponible, respondiendo desde el ledger")
		fuente = dto.FuenteLedger
		filas, err = uc.ledger.ResumenPorMoneda(ctx, filtro)
	}
	if err != nil {
		return nil, err
	}

	monedas := make(map[string]dto.ResumenMonedaResponse, len(filas))
	for _, f := range filas {
		monedas[f.Moneda] = dto.ResumenMonedaResponse{
			TotalFacturado:  f.TotalFacturado,
			MontoGanado:     f.MontoGanado,
			MontoDisponible: f.MontoDisponible,
			Cantidad:        f.Cantidad,
		}
	}
	return &dto.ResumenResponse{Monedas: monedas, Fuente: fuente}, nil
}

// Estadisticas conteos globales de los ledgers y de enrolados. Solo admin.
func (uc *MetricasUseCase) Estadisticas(ctx context.Context) (*dto.EstadisticasResponse, error) {
	ventas, err := uc.ledger.Totales(ctx)
	if err != nil {
		return nil, err
	}
	compras, err := uc.compras.Totales(ctx)
	if err != nil {
		return nil, err
	}
	enrolados, err := uc.enrolados.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.EstadisticasResponse{
		TotalEnrolados:    enrolados,
		TotalVentas:       ventas.Registros,
		TotalCompras:      compras.Registros,
		MontoTotalVentas:  ventas.MontoTotal,
		MontoTotalCompras: compras.MontoTotal,
	}, nil
}
