package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// MetricasHandler maneja las peticiones HTTP de métricas.
type MetricasHandler struct {
	uc *usecase.MetricasUseCase
}

// NewMetricasHandler construye el handler.
func NewMetricasHandler(uc *usecase.MetricasUseCase) *MetricasHandler {
	return &MetricasHandler{uc: uc}
}

// Resumen godoc
// @Summary      Métricas por moneda sobre montos netos
// @Tags         metricas
// @Security     Bearer
// @Produce      json
// @Param        fecha_desde  query  string    false  "YYYY-MM-DD"
// @Param        fecha_hasta  query  string    false  "YYYY-MM-DD"
// @Param        rucs         query  []string  false  "RUCs a incluir"
// @Param        monedas      query  []string  false  "Monedas a incluir"
// @Success      200  {object}  dto.ResumenResponse
// @Router       /api/metricas/resumen [get]
func (h *MetricasHandler) Resumen(c *fiber.Ctx) error {
	var in dto.ResumenRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	out, err := h.uc.Resumen(c.Context(), GetScope(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Estadisticas godoc
// @Summary      Conteos globales del sistema
// @Tags         metricas
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.EstadisticasResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/estadisticas/resumen [get]
func (h *MetricasHandler) Estadisticas(c *fiber.Ctx) error {
	out, err := h.uc.Estadisticas(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
