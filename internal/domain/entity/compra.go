package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Compra una fila del registro de compras electrónicas (compras_sire, RCE).
// Solo las columnas que consume el CRM; la tabla se alimenta desde el pipeline
// de ingesta, fuera de este servicio.
type Compra struct {
	ID                   int64
	RUC                  string
	RazonSocial          *string
	Periodo              string // YYYYMM
	CarSunat             *string
	FechaEmision         *time.Time
	FechaVctoPago        *time.Time
	TipoCPDoc            string
	SerieCDP             string
	NroCPInicial         string
	TipoDocIdentidad     *string
	NroDocIdentidad      string
	RazonSocialProveedor *string // apellidos_nombres_razon_social
	TotalCP              decimal.Decimal
	Moneda               string
	TipoCambio           decimal.Decimal
	UltimaActualizacion  time.Time
}
