package main

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

func TestPrimeraRuna(t *testing.T) {
	r, ok := primeraRuna("|")
	assert.True(t, ok)
	assert.Equal(t, '|', r)

	r, ok = primeraRuna(";resto")
	assert.True(t, ok)
	assert.Equal(t, ';', r)

	// Bandera vacía: inválida, el main corta con usage antes de parsear.
	_, ok = primeraRuna("")
	assert.False(t, ok)
}

func TestParseVentas(t *testing.T) {
	csv := strings.Join([]string{
		"Ruc|Periodo|Tipo CP Doc|Serie CDP|Nro CP Inicial|Nro Doc Identidad|Apellidos Nombres Razon Social|Total CP|Moneda|Tipo Cambio|Nro CP Modificado",
		"20607723673|202503|1|E001|496|20512345678|CLIENTE INDUSTRIAL SAC|38500.00|USD|3.85|",
		"20607723673|202503|7|FC01|88|20512345678|CLIENTE INDUSTRIAL SAC|3850.00|USD|3.85|496.0",
		"|202503|1|E001|497|20512345678|SIN RUC|100.00|PEN||", // sin RUC: se descarta
	}, "\n")

	filas, err := parseVentas(strings.NewReader(csv), '|')
	require.NoError(t, err)
	require.Len(t, filas, 2)

	f := filas[0]
	assert.Equal(t, "20607723673", f.RUC)
	assert.Equal(t, "202503", f.Periodo)
	assert.Equal(t, entity.TipoFactura, f.TipoCPDoc)
	assert.Equal(t, "E001", f.SerieCDP)
	assert.True(t, f.TotalCP.Equal(decimal.RequireFromString("38500")))
	assert.True(t, f.TipoCambio.Equal(decimal.RequireFromString("3.85")))

	nc := filas[1]
	assert.Equal(t, entity.TipoNotaCredito, nc.TipoCPDoc)
	require.NotNil(t, nc.NroCPModificado)
	assert.Equal(t, "496.0", *nc.NroCPModificado)
}

func TestParseVentas_EncabezadoIncompleto(t *testing.T) {
	csv := "Ruc|Serie CDP\n20607723673|E001"
	_, err := parseVentas(strings.NewReader(csv), '|')
	require.Error(t, err)
	assert.Contains(t, err.Error(), "periodo")
}

func TestClasificar(t *testing.T) {
	cliente := "CLIENTE INDUSTRIAL SAC"
	guion := "-"
	filas := []entity.Venta{
		{TipoCPDoc: entity.TipoFactura, SerieCDP: "E001", RazonSocialCliente: &cliente},
		{TipoCPDoc: entity.TipoFacturaAlt, SerieCDP: "F001", RazonSocialCliente: &cliente},
		{TipoCPDoc: entity.TipoNotaCredito, SerieCDP: "FC01", RazonSocialCliente: &cliente},
		// Boleta y contraparte "-": fuera del filtro base.
		{TipoCPDoc: entity.TipoFactura, SerieCDP: "B001", RazonSocialCliente: &cliente},
		{TipoCPDoc: entity.TipoFactura, SerieCDP: "E002", RazonSocialCliente: &guion},
	}

	facturas, notas, otros := clasificar(filas)
	assert.Equal(t, 2, facturas)
	assert.Equal(t, 1, notas)
	assert.Equal(t, 2, otros)
}
