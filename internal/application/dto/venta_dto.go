package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/operaciones-peru/crm-sunat/internal/domain/entity"
	"github.com/operaciones-peru/crm-sunat/internal/domain/repository"
)

// Fuentes que pueden responder un listado de ventas.
const (
	FuenteSnapshot = "snapshot" // vista materializada ventas_backend
	FuenteLedger   = "ledger"   // conciliación en vivo sobre ventas_sire
)

// ListVentasRequest parámetros de GET /api/ventas.
type ListVentasRequest struct {
	Page          int      `query:"page"`
	PageSize      int      `query:"page_size"`
	RUC           string   `query:"ruc"`
	RUCs          []string `query:"rucs"`
	Periodo       string   `query:"periodo"`
	FechaDesde    string   `query:"fecha_desde"` // YYYY-MM-DD
	FechaHasta    string   `query:"fecha_hasta"`
	SortBy        string   `query:"sort_by"` // "fecha" (default) | "monto"
	Moneda        string   `query:"moneda"`
	UsuarioEmails []string `query:"usuario_emails"`
	Bulk          bool     `query:"bulk"` // habilita el tope de página para exportaciones
}

// VentaResponse factura conciliada en respuestas.
type VentaResponse struct {
	ID                    int64           `json:"id"`
	RUC                   string          `json:"ruc"`
	RazonSocial           *string         `json:"razon_social,omitempty"`
	Periodo               string          `json:"periodo"`
	FechaEmision          *string         `json:"fecha_emision,omitempty"` // YYYY-MM-DD
	TipoCPDoc             string          `json:"tipo_cp_doc"`
	SerieNumero           string          `json:"serie_numero"`
	NroDocIdentidad       string          `json:"nro_doc_identidad"`
	Cliente               *string         `json:"cliente,omitempty"`
	TotalCP               decimal.Decimal `json:"total_cp"`
	Moneda                string          `json:"moneda"`
	TipoCambio            decimal.Decimal `json:"tipo_cambio"`
	TieneNotaCredito      bool            `json:"tiene_nota_credito"`
	MontoNotaCredito      decimal.Decimal `json:"monto_nota_credito"`
	MontoNeto             decimal.Decimal `json:"monto_neto"`
	NotasCreditoAsociadas *string         `json:"notas_credito_asociadas,omitempty"`
	Estado1               *string         `json:"estado1,omitempty"`
	Estado2               *string         `json:"estado2,omitempty"`
	EstadoGestion         string          `json:"estado_gestion"` // estado1 con el default aplicado
	UsuarioEmail          *string         `json:"usuario_email,omitempty"`
	UsuarioNombre         *string         `json:"usuario_nombre,omitempty"`
}

// ListVentasResponse página de ventas más el origen de los datos: qué camino
// respondió y, si fue el snapshot, cuándo se refrescó por última vez.
type ListVentasResponse struct {
	Items         []VentaResponse `json:"items"`
	Paginacion    Paginacion      `json:"paginacion"`
	Fuente        string          `json:"fuente"`
	ActualizadoEn *time.Time      `json:"actualizado_en,omitempty"`
}

// UpdateEstadoRequest body de PUT /api/ventas/:id/estado.
type UpdateEstadoRequest struct {
	Estado1 string `json:"estado1"`
}

// MarcarPerdidaRequest body de PUT /api/ventas/:id/estado/perdida.
type MarcarPerdidaRequest struct {
	Estado2 string `json:"estado2"`
}

// EmpresaResponse par RUC / razón social.
type EmpresaResponse struct {
	RUC         string `json:"ruc"`
	RazonSocial string `json:"razon_social"`
}

// VentaFromSnapshot mapea una fila de la vista materializada.
func VentaFromSnapshot(s *entity.VentaSnapshot) VentaResponse {
	out := ventaBase(&s.Venta)
	out.TieneNotaCredito = s.TieneNotaCredito
	out.MontoNotaCredito = s.MontoNotaCredito
	out.MontoNeto = s.MontoNeto
	out.NotasCreditoAsociadas = s.NotasCreditoAsociadas
	out.UsuarioEmail = s.UsuarioEmail
	out.UsuarioNombre = s.UsuarioNombre
	return out
}

// VentaFromLedger mapea una fila del ledger con su conciliación en vivo.
func VentaFromLedger(v *entity.Venta, tieneNC bool, montoNC, montoNeto decimal.Decimal, notas *string) VentaResponse {
	out := ventaBase(v)
	out.TieneNotaCredito = tieneNC
	out.MontoNotaCredito = montoNC
	out.MontoNeto = montoNeto
	out.NotasCreditoAsociadas = notas
	return out
}

func ventaBase(v *entity.Venta) VentaResponse {
	var fechaEmision *string
	if v.FechaEmision != nil {
		s := v.FechaEmision.Format("2006-01-02")
		fechaEmision = &s
	}
	return VentaResponse{
		ID:              v.ID,
		RUC:             v.RUC,
		RazonSocial:     v.RazonSocial,
		Periodo:         v.Periodo,
		FechaEmision:    fechaEmision,
		TipoCPDoc:       v.TipoCPDoc,
		SerieNumero:     v.SerieNumero(),
		NroDocIdentidad: v.NroDocIdentidad,
		Cliente:         v.RazonSocialCliente,
		TotalCP:         v.TotalCP,
		Moneda:          v.Moneda,
		TipoCambio:      v.TipoCambio,
		Estado1:         v.Estado1,
		Estado2:         v.Estado2,
		EstadoGestion:   v.EstadoGestion(),
	}
}

// EmpresasFromRepo mapea el resultado del repositorio.
func EmpresasFromRepo(in []repository.Empresa) []EmpresaResponse {
	out := make([]EmpresaResponse, 0, len(in))
	for _, e := range in {
		out = append(out, EmpresaResponse{RUC: e.RUC, RazonSocial: e.RazonSocial})
	}
	return out
}
