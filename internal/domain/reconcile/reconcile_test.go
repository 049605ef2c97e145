package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/reconcile"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const (
	testRUC = "20607723673"
	testDoc = "20512528458"
)

func fecha(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func strPtr(s string) *string { return &s }

func factura(id int64, serie, nro string, total float64, tipoCambio float64) entity.Venta {
	return entity.Venta{
		ID:                 id,
		RUC:                testRUC,
		Periodo:            "202501",
		TipoCPDoc:          entity.TipoFactura,
		SerieCDP:           serie,
		NroCPInicial:       nro,
		NroDocIdentidad:    testDoc,
		RazonSocialCliente: strPtr("SINOHYDRO CORPORATION"),
		TotalCP:            decimal.NewFromFloat(total),
		Moneda:             "USD",
		TipoCambio:         decimal.NewFromFloat(tipoCambio),
	}
}

func notaCredito(id int64, serie, nro, modifica string, total float64, tipoCambio float64) entity.Venta {
	return entity.Venta{
		ID:                 id,
		RUC:                testRUC,
		Periodo:            "202501",
		TipoCPDoc:          entity.TipoNotaCredito,
		SerieCDP:           serie,
		NroCPInicial:       nro,
		NroCPModificado:    strPtr(modifica),
		NroDocIdentidad:    testDoc,
		RazonSocialCliente: strPtr("SINOHYDRO CORPORATION"),
		TotalCP:            decimal.NewFromFloat(total),
		Moneda:             "USD",
		TipoCambio:         decimal.NewFromFloat(tipoCambio),
		FechaEmision:       fecha("2025-01-20"),
	}
}

func igual(t *testing.T, esperado string, d decimal.Decimal, msg string) {
	t.Helper()
	assert.True(t, d.Equal(decimal.RequireFromString(esperado)),
		"%s: esperaba %s, obtuvo %s", msg, esperado, d.String())
}

// ──────────────────────────────────────────────────────────────────────────────
// Normalización del número modificado
// ──────────────────────────────────────────────────────────────────────────────

func TestNormalizeNumeroModificado(t *testing.T) {
	casos := map[string]string{
		"496.0":   "496",   // sufijo decimal del CSV
		"496":     "496",   // ya normalizado, idempotente
		"496.50":  "496.50", // decimal real, no se toca
		"496.00":  "496.00", // solo se recorta un ".0" exacto
		" 496.0 ": "496",
		"":        "",
	}
	for entrada, esperado := range casos {
		assert.Equal(t, esperado, reconcile.NormalizeNumeroModificado(entrada),
			"entrada %q", entrada)
	}
}

func TestMontoReferencia(t *testing.T) {
	// Con tipo de cambio válido se divide; sin él, el total queda igual.
	igual(t, "10000", reconcile.MontoReferencia(decimal.NewFromInt(38500), decimal.RequireFromString("3.85")), "USD con TC")
	igual(t, "38500", reconcile.MontoReferencia(decimal.NewFromInt(38500), decimal.Zero), "sin TC")
	igual(t, "38500", reconcile.MontoReferencia(decimal.NewFromInt(38500), decimal.NewFromInt(-1)), "TC negativo se ignora")
}

// ──────────────────────────────────────────────────────────────────────────────
// Conciliación
// ──────────────────────────────────────────────────────────────────────────────

// Escenario de referencia: factura E001-496 de 38500 USD (TC 3.85) con una NC
// de 3850 cuyo nro_cp_modificado llega como "496.0".
func TestReconcile_FacturaConNotaCredito(t *testing.T) {
	f := factura(1, "E001", "496", 38500.00, 3.85)
	nc := notaCredito(2, "FC01", "77", "496.0", 3850.00, 3.85)

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	require.Contains(t, res, int64(1))

	r := res[1]
	assert.True(t, r.TieneNotaCredito)
	igual(t, "1000", r.MontoNotaCredito, "monto NC normalizado")
	igual(t, "9000", r.MontoNeto, "neto = 10000 - 1000")
	assert.Equal(t, []string{"FC01-77"}, r.NotasAsociadas)
}

func TestReconcile_FacturaSinNotaCredito(t *testing.T) {
	f := factura(1, "E001", "496", 38500.00, 3.85)

	res := reconcile.Reconcile([]entity.Venta{f}, nil)
	require.Contains(t, res, int64(1))

	r := res[1]
	assert.False(t, r.TieneNotaCredito)
	igual(t, "0", r.MontoNotaCredito, "sin NC el monto es cero")
	igual(t, "10000", r.MontoNeto, "neto = monto normalizado")
	assert.Empty(t, r.NotasAsociadas)
}

func TestReconcile_SinTipoCambioNiNotas(t *testing.T) {
	// Factura en PEN sin tipo de cambio: el neto es el total tal cual.
	f := factura(9, "F001", "12", 1500.00, 0)
	f.Moneda = "PEN"

	res := reconcile.Reconcile([]entity.Venta{f}, nil)
	igual(t, "1500", res[9].MontoNeto, "total sin transformar")
}

func TestReconcile_VariasNotasSeSuman(t *testing.T) {
	f := factura(1, "E001", "500", 10000.00, 0)
	nc1 := notaCredito(2, "FC01", "10", "500", 1000.00, 0)
	nc1.FechaEmision = fecha("2025-01-25")
	nc2 := notaCredito(3, "FC01", "11", "500.0", 500.00, 0)
	nc2.FechaEmision = fecha("2025-01-10")

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc1, nc2})
	r := res[1]
	assert.True(t, r.TieneNotaCredito)
	igual(t, "1500", r.MontoNotaCredito, "se suman todas las NC del grupo")
	igual(t, "8500", r.MontoNeto, "neto acumulado")
	// Orden por fecha de emisión ascendente
	assert.Equal(t, []string{"FC01-11", "FC01-10"}, r.NotasAsociadas)
}

func TestReconcile_NotaConTotalNegativo(t *testing.T) {
	// Algunas cargas traen la NC con total negativo; la magnitud es la misma.
	f := factura(1, "E001", "500", 10000.00, 0)
	nc := notaCredito(2, "FC01", "10", "500", -1000.00, 0)

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	igual(t, "1000", res[1].MontoNotaCredito, "magnitud de la NC")
	igual(t, "9000", res[1].MontoNeto, "mismo neto que con total positivo")
}

func TestReconcile_NotaHuerfanaNoAfecta(t *testing.T) {
	f := factura(1, "E001", "496", 1000.00, 0)
	// NC que apunta a una factura inexistente: huérfana, se descarta en silencio.
	nc := notaCredito(2, "FC01", "77", "999", 400.00, 0)

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	require.Len(t, res, 1)
	r := res[1]
	assert.False(t, r.TieneNotaCredito)
	igual(t, "1000", r.MontoNeto, "la huérfana no altera el neto")
}

func TestReconcile_NotaDeOtroClienteNoCruza(t *testing.T) {
	// Mismo RUC y número, pero otra contraparte: la clave es la tripleta completa.
	f := factura(1, "E001", "496", 1000.00, 0)
	nc := notaCredito(2, "FC01", "77", "496", 400.00, 0)
	nc.NroDocIdentidad = "10456789012"

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	assert.False(t, res[1].TieneNotaCredito)
}

func TestReconcile_NotaMalformadaNoAbortaElLote(t *testing.T) {
	f1 := factura(1, "E001", "496", 1000.00, 0)
	f2 := factura(2, "E001", "497", 2000.00, 0)
	mala := notaCredito(3, "FC01", "77", "", 400.00, 0)
	mala.NroCPModificado = nil
	buena := notaCredito(4, "FC01", "78", "497", 500.00, 0)

	res := reconcile.Reconcile([]entity.Venta{f1, f2}, []entity.Venta{mala, buena})
	require.Len(t, res, 2)
	assert.False(t, res[1].TieneNotaCredito)
	assert.True(t, res[2].TieneNotaCredito)
	igual(t, "1500", res[2].MontoNeto, "solo la NC válida se aplica")
}

func TestReconcile_NetoNuncaNegativo(t *testing.T) {
	// NCs que exceden la factura: el neto queda en cero, no negativo.
	f := factura(1, "E001", "496", 1000.00, 0)
	nc := notaCredito(2, "FC01", "77", "496", 1500.00, 0)

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	r := res[1]
	assert.True(t, r.TieneNotaCredito)
	igual(t, "0", r.MontoNeto, "piso en cero")
	igual(t, "1500", r.MontoNotaCredito, "el monto de NC conserva su magnitud")
}

func TestReconcile_NotaDeCreditoEntrePeriodos(t *testing.T) {
	// La NC puede caer en otro periodo tributario; el cruce no mira el periodo.
	f := factura(1, "E001", "496", 1000.00, 0)
	nc := notaCredito(2, "FC01", "77", "496", 200.00, 0)
	nc.Periodo = "202502"

	res := reconcile.Reconcile([]entity.Venta{f}, []entity.Venta{nc})
	assert.True(t, res[1].TieneNotaCredito)
	igual(t, "800", res[1].MontoNeto, "cruza aunque el periodo difiera")
}

// ──────────────────────────────────────────────────────────────────────────────
// Filtro base de elegibilidad
// ──────────────────────────────────────────────────────────────────────────────

func TestElegible(t *testing.T) {
	ok := factura(1, "E001", "496", 100, 0)
	assert.True(t, reconcile.Elegible(&ok))

	boleta := factura(2, "B001", "10", 100, 0)
	assert.False(t, reconcile.Elegible(&boleta), "las boletas (serie B) quedan fuera")

	sinNombre := factura(3, "E001", "11", 100, 0)
	sinNombre.RazonSocialCliente = nil
	assert.False(t, reconcile.Elegible(&sinNombre), "contraparte NULL queda fuera")

	guion := factura(4, "E001", "12", 100, 0)
	guion.RazonSocialCliente = strPtr("-")
	assert.False(t, reconcile.Elegible(&guion), "el marcador '-' queda fuera")
}
