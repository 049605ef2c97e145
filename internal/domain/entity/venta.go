package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de comprobante SUNAT relevantes para el CRM. El CSV del SIRE llega a
// veces con el código en una cifra y a veces con cero a la izquierda.
const (
	TipoFactura        = "1"
	TipoFacturaAlt     = "01"
	TipoNotaCredito    = "7"
	TipoNotaCreditoAlt = "07"
)

// Estados de gestión (estado1). Un registro sin estado equivale a "Sin gestión".
const (
	EstadoSinGestion  = "Sin gestión"
	EstadoGestionando = "Gestionando"
	EstadoGanada      = "Ganada"
	EstadoPerdida     = "Perdida"
)

// MotivosPerdida valores admitidos para estado2 cuando estado1 = "Perdida".
var MotivosPerdida = []string{
	"Por Tasa",
	"Por Riesgo",
	"Deudor no califica",
	"Cliente no interesado",
	"Competencia",
	"Otro",
}

// EstadosGestion valores admitidos para estado1.
var EstadosGestion = []string{
	EstadoSinGestion,
	EstadoGestionando,
	EstadoGanada,
	EstadoPerdida,
}

// EsFactura indica si el tipo de comprobante es factura.
func EsFactura(tipo string) bool {
	return tipo == TipoFactura || tipo == TipoFacturaAlt
}

// EsNotaCredito indica si el tipo de comprobante es nota de crédito.
func EsNotaCredito(tipo string) bool {
	return tipo == TipoNotaCredito || tipo == TipoNotaCreditoAlt
}

// EstadoGestionValido valida estado1 contra el conjunto admitido.
func EstadoGestionValido(estado string) bool {
	for _, e := range EstadosGestion {
		if e == estado {
			return true
		}
	}
	return false
}

// MotivoPerdidaValido valida estado2 contra el conjunto admitido.
func MotivoPerdidaValido(motivo string) bool {
	for _, m := range MotivosPerdida {
		if m == motivo {
			return true
		}
	}
	return false
}

// Venta una fila del registro de ventas electrónicas (ventas_sire, RVIE).
// Los campos de texto opcionales del CSV se modelan como punteros; TipoCambio
// en cero significa "sin tipo de cambio" (el monto ya está en moneda de
// referencia).
type Venta struct {
	ID                  int64
	RUC                 string
	RazonSocial         *string
	Periodo             string // YYYYMM
	CarSunat            *string
	FechaEmision        *time.Time
	FechaVctoPago       *time.Time
	TipoCPDoc           string
	SerieCDP            string
	NroCPInicial        string
	NroFinal            *string
	TipoDocIdentidad    *string
	NroDocIdentidad     string
	RazonSocialCliente  *string // apellidos_nombres_razon_social
	TotalCP             decimal.Decimal
	Moneda              string // "PEN", "USD"
	TipoCambio          decimal.Decimal
	FechaEmisionDocMod  *time.Time
	TipoCPModificado    *string
	SerieCPModificado   *string
	NroCPModificado     *string
	TipoNota            *string
	EstComp             *string
	Estado1             *string
	Estado2             *string
	UltimaActualizacion time.Time
}

// EstadoGestion devuelve estado1 aplicando el default: NULL equivale a "Sin gestión".
func (v *Venta) EstadoGestion() string {
	if v.Estado1 == nil || *v.Estado1 == "" {
		return EstadoSinGestion
	}
	return *v.Estado1
}

// SerieNumero identificador legible del comprobante (ej. "E001-496").
func (v *Venta) SerieNumero() string {
	if v.SerieCDP == "" || v.NroCPInicial == "" {
		return ""
	}
	return v.SerieCDP + "-" + v.NroCPInicial
}

// VentaSnapshot fila de la vista materializada ventas_backend: la venta más
// los campos precalculados de conciliación y el usuario asignado al RUC.
type VentaSnapshot struct {
	Venta

	TieneNotaCredito      bool
	MontoNotaCredito      decimal.Decimal
	MontoNeto             decimal.Decimal
	NotasCreditoAsociadas *string

	UsuarioEmail  *string
	UsuarioNombre *string
}
