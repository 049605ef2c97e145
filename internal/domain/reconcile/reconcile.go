// Package reconcile concilia facturas de ventas contra sus notas de crédito.
//
// Es la contraparte en memoria del cálculo que la vista materializada
// ventas_backend hace en SQL: misma clave de cruce, misma normalización de
// moneda y mismo neto, de modo que el camino en vivo y el snapshot produzcan
// resultados idénticos.
package reconcile

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
)

// Resultado conciliación de una factura: si tiene notas de crédito, el monto
// acumulado de esas notas (magnitud positiva, en moneda de referencia) y el
// total neto resultante, nunca negativo.
type Resultado struct {
	TieneNotaCredito bool
	MontoNotaCredito decimal.Decimal
	MontoNeto        decimal.Decimal
	NotasAsociadas   []string // serie-número de cada NC, por fecha de emisión ascendente
}

// NormalizeNumeroModificado normaliza el nro_cp_modificado de una nota de
// crédito para cruzarlo contra el nro_cp_inicial de la factura. El CSV del
// SIRE a veces serializa el número como decimal ("496.0"); se recorta
// exactamente un sufijo ".0" literal. Cualquier otro decimal ("496.50") se
// conserva tal cual: es transformación de texto, no redondeo.
func NormalizeNumeroModificado(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, ".0") {
		return s[:len(s)-2]
	}
	return s
}

// MontoReferencia convierte un total a moneda de referencia dividiendo por el
// tipo de cambio del propio comprobante. Tipo de cambio ausente o no positivo
// significa que el monto ya está en moneda de referencia.
func MontoReferencia(total, tipoCambio decimal.Decimal) decimal.Decimal {
	if tipoCambio.IsPositive() {
		return total.Div(tipoCambio)
	}
	return total
}

// claveNota identifica la factura que una nota de crédito modifica.
type claveNota struct {
	ruc    string
	numero string // nro_cp_modificado normalizado
	doc    string // nro_doc_identidad de la contraparte
}

type grupoNotas struct {
	monto decimal.Decimal
	notas []entity.Venta
}

// Reconcile calcula la conciliación de cada factura contra las notas de
// crédito dadas. Las facturas deben venir ya filtradas (tipo factura, filtro
// base de elegibilidad); las notas se agrupan por
// (ruc, nro_cp_modificado normalizado, nro_doc_identidad).
//
// Una nota que no cruza con ninguna factura queda fuera de toda agregación
// (huérfana, no es un error). Una nota malformada (sin nro_cp_modificado) se
// ignora sin abortar el lote. El resultado se indexa por el ID de la factura.
func Reconcile(facturas, notas []entity.Venta) map[int64]Resultado {
	grupos := make(map[claveNota]*grupoNotas)
	for _, nc := range notas {
		if !entity.EsNotaCredito(nc.TipoCPDoc) {
			continue
		}
		if nc.NroCPModificado == nil {
			continue
		}
		numero := NormalizeNumeroModificado(*nc.NroCPModificado)
		if numero == "" {
			continue
		}
		k := claveNota{ruc: nc.RUC, numero: numero, doc: nc.NroDocIdentidad}
		g, ok := grupos[k]
		if !ok {
			g = &grupoNotas{}
			grupos[k] = g
		}
		// Magnitud: hay cargas donde la NC llega con total negativo y otras
		// con total positivo; el valor absoluto hace ambas equivalentes.
		g.monto = g.monto.Add(MontoReferencia(nc.TotalCP, nc.TipoCambio).Abs())
		g.notas = append(g.notas, nc)
	}

	resultados := make(map[int64]Resultado, len(facturas))
	for _, f := range facturas {
		base := MontoReferencia(f.TotalCP, f.TipoCambio)
		k := claveNota{ruc: f.RUC, numero: f.NroCPInicial, doc: f.NroDocIdentidad}
		g, ok := grupos[k]
		if !ok {
			resultados[f.ID] = Resultado{MontoNeto: base}
			continue
		}
		neto := base.Sub(g.monto)
		if neto.IsNegative() {
			neto = decimal.Zero
		}
		resultados[f.ID] = Resultado{
			TieneNotaCredito: true,
			MontoNotaCredito: g.monto,
			MontoNeto:        neto,
			NotasAsociadas:   seriesOrdenadas(g.notas),
		}
	}
	return resultados
}

// seriesOrdenadas lista serie-número de las notas por fecha de emisión
// ascendente (las sin fecha al final), con serie-número como desempate.
func seriesOrdenadas(notas []entity.Venta) []string {
	ordenadas := make([]entity.Venta, len(notas))
	copy(ordenadas, notas)
	sort.SliceStable(ordenadas, func(i, j int) bool {
		fi, fj := ordenadas[i].FechaEmision, ordenadas[j].FechaEmision
		switch {
		case fi == nil && fj == nil:
			return ordenadas[i].SerieNumero() < ordenadas[j].SerieNumero()
		case fi == nil:
			return false
		case fj == nil:
			return true
		case fi.Equal(*fj):
			return ordenadas[i].SerieNumero() < ordenadas[j].SerieNumero()
		default:
			return fi.Before(*fj)
		}
	})
	out := make([]string, 0, len(ordenadas))
	for _, nc := range ordenadas {
		out = append(out, nc.SerieNumero())
	}
	return out
}

// Elegible aplica el filtro base de elegibilidad compartido por ambos caminos:
// excluye boletas (serie que empieza con "B") y registros sin contraparte
// válida (razón social NULL o el marcador "-").
func Elegible(v *entity.Venta) bool {
	if strings.HasPrefix(v.SerieCDP, "B") {
		return false
	}
	if v.RazonSocialCliente == nil || *v.RazonSocialCliente == "-" {
		return false
	}
	return true
}
