package dto

import "github.com/shopspring/decimal"

// ResumenRequest parámetros de GET /api/metricas/resumen.
type ResumenRequest struct {
	FechaDesde    string   `query:"fecha_desde"` // YYYY-MM-DD
	FechaHasta    string   `query:"fecha_hasta"`
	RUCs          []string `query:"rucs"`
	Monedas       []string `query:"monedas"`
	UsuarioEmails []string `query:"usuario_emails"`
}

// ResumenMonedaResponse métricas de una moneda sobre montos netos.
type ResumenMonedaResponse struct {
	TotalFacturado  decimal.Decimal `json:"total_facturado"`
	MontoGanado     decimal.Decimal `json:"monto_ganado"`
	MontoDisponible decimal.Decimal `json:"monto_disponible"`
	Cantidad        int64           `json:"cantidad"`
}

// ResumenResponse mapa moneda → métricas, más el origen de los datos.
type ResumenResponse struct {
	Monedas map[string]ResumenMonedaResponse `json:"monedas"`
	Fuente  string                           `json:"fuente"`
}

// EstadisticasResponse conteos globales del sistema (solo admin).
type EstadisticasResponse struct {
	TotalEnrolados    int64           `json:"total_enrolados"`
	TotalVentas       int64           `json:"total_ventas"`
	TotalCompras      int64           `json:"total_compras"`
	MontoTotalVentas  decimal.Decimal `json:"monto_total_ventas"`
	MontoTotalCompras decimal.Decimal `json:"monto_total_compras"`
}
