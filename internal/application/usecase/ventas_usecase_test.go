package usecase_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
	"github.com/operaciones-peru/crm-sunat/internal/domain"
	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
	"github.com/operaciones-peru/crm-sunat/pkg/config"
	"github.com/operaciones-peru/crm-sunat/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Fakes de repositorios
// ──────────────────────────────────────────────────────────────────────────────

type fakeLedger struct {
	facturas []entity.Venta
	notas    []entity.Venta
	total    int64

	listCalls    int
	lastFilter   repository.VentaFilter
	lastOrden    string
	lastPagina   repository.Pagina
	updateCalls  int
	lastEstado1  string
	lastEstado2  *string
	notasCalls   int
	lastNotasRUC []string
}

func (f *fakeLedger) ListFacturas(_ context.Context, fl repository.VentaFilter, orden string, pag repository.Pagina) ([]entity.Venta, int64, error) {
	f.listCalls++
	f.lastFilter = fl
	f.lastOrden = orden
	f.lastPagina = pag
	return f.facturas, f.total, nil
}

func (f *fakeLedger) ListNotasCredito(_ context.Context, rucs, _ []string) ([]entity.Venta, error) {
	f.notasCalls++
	f.lastNotasRUC = rucs
	return f.notas, nil
}

func (f *fakeLedger) GetByID(_ context.Context, id int64) (*entity.Venta, error) {
	for i := range f.facturas {
		if f.facturas[i].ID == id {
			v := f.facturas[i]
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) UpdateEstado(_ context.Context, id int64, estado1 string, estado2 *string) (*entity.Venta, error) {
	f.updateCalls++
	f.lastEstado1 = estado1
	f.lastEstado2 = estado2
	for i := range f.facturas {
		if f.facturas[i].ID == id {
			v := f.facturas[i]
			v.Estado1 = &estado1
			v.Estado2 = estado2
			return &v, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeLedger) ResumenPorMoneda(_ context.Context, fl repository.MetricasFilter) ([]repository.ResumenMoneda, error) {
	return nil, nil
}

func (f *fakeLedger) EmpresasPorPeriodo(_ context.Context, _ string, _, _ []string) ([]repository.Empresa, error) {
	return nil, nil
}

func (f *fakeLedger) ReplacePeriodo(_ context.Context, _, _ string, _ []entity.Venta) error {
	return nil
}

func (f *fakeLedger) Totales(_ context.Context) (repository.TotalesLedger, error) {
	return repository.TotalesLedger{}, nil
}

// fakeLedgerPaginado honra límite y offset sobre el conjunto completo, como el
// repositorio real.
type fakeLedgerPaginado struct {
	fakeLedger
}

func (f *fakeLedgerPaginado) ListFacturas(ctx context.Context, fl repository.VentaFilter, orden string, pag repository.Pagina) ([]entity.Venta, int64, error) {
	if _, _, err := f.fakeLedger.ListFacturas(ctx, fl, orden, pag); err != nil {
		return nil, 0, err
	}
	desde := pag.Offset()
	if desde > len(f.facturas) {
		desde = len(f.facturas)
	}
	hasta := desde + pag.Tamano
	if hasta > len(f.facturas) {
		hasta = len(f.facturas)
	}
	out := make([]entity.Venta, hasta-desde)
	copy(out, f.facturas[desde:hasta])
	return out, int64(len(f.facturas)), nil
}

type fakeSnapshot struct {
	filas   []entity.VentaSnapshot
	total   int64
	err     error
	lastRun *repository.RefreshRun

	listCalls  int
	lastFilter repository.VentaFilter

	resumen     []repository.ResumenMoneda
	resumenErr  error
	lastResumen repository.MetricasFilter
}

func (f *fakeSnapshot) ListFacturas(_ context.Context, fl repository.VentaFilter, _ string, _ repository.Pagina) ([]entity.VentaSnapshot, int64, error) {
	f.listCalls++
	f.lastFilter = fl
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.filas, f.total, nil
}

func (f *fakeSnapshot) ResumenPorMoneda(_ context.Context, fl repository.MetricasFilter) ([]repository.ResumenMoneda, error) {
	f.lastResumen = fl
	if f.resumenErr != nil {
		return nil, f.resumenErr
	}
	return f.resumen, nil
}

func (f *fakeSnapshot) EmpresasPorPeriodo(_ context.Context, _ string, _, _ []string) ([]repository.Empresa, error) {
	if f.err != nil {
		return nil, f.err
	}
	return nil, nil
}

func (f *fakeSnapshot) Rebuild(_ context.Context) error { return nil }

func (f *fakeSnapshot) Refresh(_ context.Context) (*repository.RefreshRun, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.lastRun, nil
}

func (f *fakeSnapshot) LastRefresh(_ context.Context) (*repository.RefreshRun, error) {
	return f.lastRun, nil
}

type fakeReporte struct{}

func (fakeReporte) Generar(_ string, _ []dto.VentaResponse) ([]byte, error) {
	return []byte("%PDF-1.7"), nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const rucPrueba = "20607723673"

func nuevoVentasUC(ledger repository.VentaRepository, snapshot *fakeSnapshot) *usecase.VentasUseCase {
	cfg := config.QueryConfig{DefaultPageSize: 20, MaxPageSize: 100, MaxBulkPageSize: 10000}
	log := logger.New(logger.Config{Env: "development", Level: "error"})
	return usecase.NewVentasUseCase(ledger, snapshot, fakeReporte{}, cfg, log)
}

func facturaLedger(id int64, total string, tipoCambio string) entity.Venta {
	fecha := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	cliente := "CLIENTE INDUSTRIAL SAC"
	return entity.Venta{
		ID:                 id,
		RUC:                rucPrueba,
		Periodo:            "202503",
		FechaEmision:       &fecha,
		TipoCPDoc:          entity.TipoFactura,
		SerieCDP:           "E001",
		NroCPInicial:       "496",
		NroDocIdentidad:    "20512345678",
		RazonSocialCliente: &cliente,
		TotalCP:            decimal.RequireFromString(total),
		Moneda:             "USD",
		TipoCambio:         decimal.RequireFromString(tipoCambio),
	}
}

func notaLedger(id int64, total string, tipoCambio string, nroMod string) entity.Venta {
	fecha := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	cliente := "CLIENTE INDUSTRIAL SAC"
	return entity.Venta{
		ID:                 id,
		RUC:                rucPrueba,
		Periodo:            "202503",
		FechaEmision:       &fecha,
		TipoCPDoc:          entity.TipoNotaCredito,
		SerieCDP:           "FC01",
		NroCPInicial:       "88",
		NroDocIdentidad:    "20512345678",
		RazonSocialCliente: &cliente,
		TotalCP:            decimal.RequireFromString(total),
		Moneda:             "USD",
		TipoCambio:         decimal.RequireFromString(tipoCambio),
		NroCPModificado:    &nroMod,
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// List
// ──────────────────────────────────────────────────────────────────────────────

// Con la vista disponible responde el snapshot y el ledger no se toca.
func TestList_RespondeDesdeSnapshot(t *testing.T) {
	fin := time.Date(2025, 4, 1, 6, 0, 0, 0, time.UTC)
	snapshot := &fakeSnapshot{
		filas: []entity.VentaSnapshot{
			{Venta: facturaLedger(1, "38500", "3.85"), TieneNotaCredito: true,
				MontoNotaCredito: decimal.NewFromInt(1000), MontoNeto: decimal.NewFromInt(9000)},
		},
		total:   1,
		lastRun: &repository.RefreshRun{ID: "r1", Fin: fin, Filas: 1},
	}
	ledger := &fakeLedger{}
	uc := nuevoVentasUC(ledger, snapshot)

	out, err := uc.List(context.Background(), domain.Unrestricted(), dto.ListVentasRequest{})
	require.NoError(t, err)

	assert.Equal(t, dto.FuenteSnapshot, out.Fuente)
	require.NotNil(t, out.ActualizadoEn, "debe exponer la frescura del snapshot")
	assert.True(t, out.ActualizadoEn.Equal(fin))
	require.Len(t, out.Items, 1)
	assert.True(t, out.Items[0].MontoNeto.Equal(decimal.NewFromInt(9000)))
	assert.Zero(t, ledger.listCalls, "el ledger no debe consultarse si el snapshot respondió")
}

// Sin vista materializada cae al ledger y concilia en memoria: una factura de
// 38500 USD a 3.85 con una NC de 3850 queda en 10000 - 1000 = 9000 neto.
func TestList_CaeAlLedgerYConcilia(t *testing.T) {
	snapshot := &fakeSnapshot{err: domain.ErrSnapshotUnavailable}
	ledger := &fakeLedger{
		facturas: []entity.Venta{facturaLedger(1, "38500", "3.85")},
		notas:    []entity.Venta{notaLedger(2, "3850", "3.85", "496.0")},
		total:    1,
	}
	uc := nuevoVentasUC(ledger, snapshot)

	out, err := uc.List(context.Background(), domain.Unrestricted(), dto.ListVentasRequest{})
	require.NoError(t, err)

	assert.Equal(t, dto.FuenteLedger, out.Fuente)
	assert.Nil(t, out.ActualizadoEn)
	require.Len(t, out.Items, 1)
	item := out.Items[0]
	assert.True(t, item.TieneNotaCredito)
	assert.True(t, item.MontoNotaCredito.Equal(decimal.NewFromInt(1000)), "NC: %s", item.MontoNotaCredito)
	assert.True(t, item.MontoNeto.Equal(decimal.NewFromInt(9000)), "neto: %s", item.MontoNeto)
	require.NotNil(t, item.NotasCreditoAsociadas)
	assert.Equal(t, "FC01-88", *item.NotasCreditoAsociadas)
	assert.Equal(t, entity.EstadoSinGestion, item.EstadoGestion, "sin estado1 el default es visible")
	assert.Equal(t, 1, ledger.notasCalls)
}

// Un alcance vacío responde página vacía sin tocar ningún repositorio.
func TestList_AlcanceVacioNoConsulta(t *testing.T) {
	snapshot := &fakeSnapshot{}
	ledger := &fakeLedger{}
	uc := nuevoVentasUC(ledger, snapshot)

	out, err := uc.List(context.Background(), domain.RestrictedTo(nil), dto.ListVentasRequest{Page: 3, PageSize: 10})
	require.NoError(t, err)

	assert.Empty(t, out.Items)
	assert.EqualValues(t, 0, out.Paginacion.Total)
	assert.Equal(t, 3, out.Paginacion.Page, "la página pedida se conserva en el envelope")
	assert.Zero(t, snapshot.listCalls)
	assert.Zero(t, ledger.listCalls)
}

// El filtro de RUC pedido se intersecta con el alcance: solo sobreviven los
// RUCs autorizados, y una intersección vacía no llega al repositorio.
func TestList_InterseccionAlcanceConFiltro(t *testing.T) {
	snapshot := &fakeSnapshot{total: 0}
	ledger := &fakeLedger{}
	uc := nuevoVentasUC(ledger, snapshot)
	scope := domain.RestrictedTo([]string{"20111111111", "20222222222"})

	_, err := uc.List(context.Background(), scope, dto.ListVentasRequest{
		RUCs: []string{"20222222222", "20999999999"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, snapshot.listCalls)
	assert.Equal(t, []string{"20222222222"}, snapshot.lastFilter.RUCs)

	// Intersección vacía: corta antes de consultar.
	out, err := uc.List(context.Background(), scope, dto.ListVentasRequest{
		RUCs: []string{"20999999999"},
	})
	require.NoError(t, err)
	assert.Empty(t, out.Items)
	assert.Equal(t, 1, snapshot.listCalls, "no debe haber una segunda consulta")
}

// El envelope refleja total, páginas y flags de navegación.
func TestList_EnvelopeDePaginacion(t *testing.T) {
	snapshot := &fakeSnapshot{total: 45}
	uc := nuevoVentasUC(&fakeLedger{}, snapshot)

	out, err := uc.List(context.Background(), domain.Unrestricted(), dto.ListVentasRequest{Page: 2, PageSize: 20})
	require.NoError(t, err)

	assert.Equal(t, 2, out.Paginacion.Page)
	assert.Equal(t, 20, out.Paginacion.PageSize)
	assert.EqualValues(t, 45, out.Paginacion.Total)
	assert.Equal(t, 3, out.Paginacion.TotalPages)
	assert.True(t, out.Paginacion.HasNext)
	assert.True(t, out.Paginacion.HasPrevious)
}

// Recorrer todas las páginas reconstruye exactamente el conjunto completo,
// sin duplicados ni omisiones, para cualquier tamaño de página.
func TestList_ConcatenacionDePaginas(t *testing.T) {
	const totalFacturas = 7
	facturas := make([]entity.Venta, 0, totalFacturas)
	for i := int64(1); i <= totalFacturas; i++ {
		f := facturaLedger(i, "100", "0")
		f.NroCPInicial = strconv.FormatInt(500+i, 10)
		facturas = append(facturas, f)
	}

	for _, tamano := range []int{1, 3, totalFacturas} {
		ledger := &fakeLedgerPaginado{fakeLedger{facturas: facturas}}
		uc := nuevoVentasUC(ledger, &fakeSnapshot{err: domain.ErrSnapshotUnavailable})

		vistos := map[int64]int{}
		pagina := 1
		for {
			out, err := uc.List(context.Background(), domain.Unrestricted(), dto.ListVentasRequest{Page: pagina, PageSize: tamano})
			require.NoError(t, err, "tamaño %d, página %d", tamano, pagina)
			for _, item := range out.Items {
				vistos[item.ID]++
			}
			if !out.Paginacion.HasNext {
				break
			}
			pagina++
		}

		esperadas := (totalFacturas + tamano - 1) / tamano
		assert.Equal(t, esperadas, pagina, "tamaño %d: páginas recorridas", tamano)
		require.Len(t, vistos, totalFacturas, "tamaño %d: el recorrido debe cubrir todo", tamano)
		for id, veces := range vistos {
			assert.Equal(t, 1, veces, "tamaño %d: la factura %d salió repetida", tamano, id)
		}
	}
}

// Tamaños fuera de tope y ordenamientos desconocidos se rechazan.
func TestList_ParametrosInvalidos(t *testing.T) {
	uc := nuevoVentasUC(&fakeLedger{}, &fakeSnapshot{})
	ctx := context.Background()

	_, err := uc.List(ctx, domain.Unrestricted(), dto.ListVentasRequest{PageSize: 101})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "tope general es 100")

	_, err = uc.List(ctx, domain.Unrestricted(), dto.ListVentasRequest{PageSize: 5000, Bulk: true})
	assert.NoError(t, err, "el modo bulk admite hasta 10000")

	_, err = uc.List(ctx, domain.Unrestricted(), dto.ListVentasRequest{SortBy: "cliente"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.List(ctx, domain.Unrestricted(), dto.ListVentasRequest{FechaDesde: "10/03/2025"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "solo se acepta YYYY-MM-DD")
}

// ──────────────────────────────────────────────────────────────────────────────
// Estado de gestión
// ──────────────────────────────────────────────────────────────────────────────

// Pasar a "Perdida" por la operación genérica se rechaza: esa transición exige
// motivo y tiene su propia operación.
func TestUpdateEstado_RechazaPerdida(t *testing.T) {
	ledger := &fakeLedger{facturas: []entity.Venta{facturaLedger(1, "100", "0")}}
	uc := nuevoVentasUC(ledger, &fakeSnapshot{})

	_, err := uc.UpdateEstado(context.Background(), domain.Unrestricted(), 1, dto.UpdateEstadoRequest{Estado1: entity.EstadoPerdida})
	assert.ErrorIs(t, err, domain.ErrInvalidEstado)
	assert.Zero(t, ledger.updateCalls)

	_, err = uc.UpdateEstado(context.Background(), domain.Unrestricted(), 1, dto.UpdateEstadoRequest{Estado1: "Cerrada"})
	assert.ErrorIs(t, err, domain.ErrInvalidEstado)
}

// Cualquier estado1 válido distinto de Perdida limpia estado2.
func TestUpdateEstado_LimpiaMotivo(t *testing.T) {
	ledger := &fakeLedger{facturas: []entity.Venta{facturaLedger(1, "100", "0")}}
	uc := nuevoVentasUC(ledger, &fakeSnapshot{})

	out, err := uc.UpdateEstado(context.Background(), domain.Unrestricted(), 1, dto.UpdateEstadoRequest{Estado1: entity.EstadoGanada})
	require.NoError(t, err)

	assert.Equal(t, 1, ledger.updateCalls)
	assert.Equal(t, entity.EstadoGanada, ledger.lastEstado1)
	assert.Nil(t, ledger.lastEstado2, "estado2 debe quedar en NULL")
	require.NotNil(t, out.Estado1)
	assert.Equal(t, entity.EstadoGanada, *out.Estado1)
	assert.Equal(t, entity.EstadoGanada, out.EstadoGestion)
}

// Marcar perdida exige un motivo del catálogo.
func TestMarcarPerdida_ValidaMotivo(t *testing.T) {
	ledger := &fakeLedger{facturas: []entity.Venta{facturaLedger(1, "100", "0")}}
	uc := nuevoVentasUC(ledger, &fakeSnapshot{})

	_, err := uc.MarcarPerdida(context.Background(), domain.Unrestricted(), 1, dto.MarcarPerdidaRequest{Estado2: "No quiso"})
	assert.ErrorIs(t, err, domain.ErrInvalidMotivo)
	assert.Zero(t, ledger.updateCalls)

	_, err = uc.MarcarPerdida(context.Background(), domain.Unrestricted(), 1, dto.MarcarPerdidaRequest{Estado2: "Por Tasa"})
	require.NoError(t, err)
	assert.Equal(t, entity.EstadoPerdida, ledger.lastEstado1)
	require.NotNil(t, ledger.lastEstado2)
	assert.Equal(t, "Por Tasa", *ledger.lastEstado2)
}

// Una venta fuera del alcance del llamador es 403, exista o no.
func TestGestion_FueraDeAlcance(t *testing.T) {
	ledger := &fakeLedger{facturas: []entity.Venta{facturaLedger(1, "100", "0")}}
	uc := nuevoVentasUC(ledger, &fakeSnapshot{})
	ajeno := domain.RestrictedTo([]string{"20999999999"})

	_, err := uc.GetByID(context.Background(), ajeno, 1)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = uc.UpdateEstado(context.Background(), ajeno, 1, dto.UpdateEstadoRequest{Estado1: entity.EstadoGanada})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, ledger.updateCalls)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reporte
// ──────────────────────────────────────────────────────────────────────────────

func TestReportePDF_UsaTopeBulk(t *testing.T) {
	snapshot := &fakeSnapshot{total: 0}
	uc := nuevoVentasUC(&fakeLedger{}, snapshot)

	out, err := uc.ReportePDF(context.Background(), domain.Unrestricted(), dto.ListVentasRequest{})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	require.Equal(t, 1, snapshot.listCalls)
}
