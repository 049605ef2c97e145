package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// VentasHandler maneja las peticiones HTTP de ventas conciliadas.
type VentasHandler struct {
	uc *usecase.VentasUseCase
}

// NewVentasHandler construye el handler.
func NewVentasHandler(uc *usecase.VentasUseCase) *VentasHandler {
	return &VentasHandler{uc: uc}
}

// List godoc
// @Summary      Listar facturas conciliadas
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        page       query  int     false  "Página (1-indexed)"  default(1)
// @Param        page_size  query  int     false  "Tamaño de página"    default(20)
// @Param        ruc        query  string  false  "RUC emisor"
// @Param        periodo    query  string  false  "Periodo YYYYMM"
// @Param        sort_by    query  string  false  "fecha | monto"
// @Success      200  {object}  dto.ListVentasResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ventas [get]
func (h *VentasHandler) List(c *fiber.Ctx) error {
	var in dto.ListVentasRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	out, err := h.uc.List(c.Context(), GetScope(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByID godoc
// @Summary      Obtener una factura conciliada
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        id   path  int  true  "ID de la venta"
// @Success      200  {object}  dto.VentaResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id} [get]
func (h *VentasHandler) GetByID(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	out, err := h.uc.GetByID(c.Context(), GetScope(c), int64(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// UpdateEstado godoc
// @Summary      Cambiar estado de gestión
// @Description  Pasar a "Perdida" se rechaza aquí: usar /estado/perdida, que exige motivo.
// @Tags         ventas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                      true  "ID de la venta"
// @Param        body  body  dto.UpdateEstadoRequest  true  "Nuevo estado1"
// @Success      200  {object}  dto.VentaResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id}/estado [put]
func (h *VentasHandler) UpdateEstado(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.UpdateEstadoRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.UpdateEstado(c.Context(), GetScope(c), int64(id), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// MarcarPerdida godoc
// @Summary      Marcar venta como perdida
// @Tags         ventas
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                       true  "ID de la venta"
// @Param        body  body  dto.MarcarPerdidaRequest  true  "Motivo (estado2)"
// @Success      200  {object}  dto.VentaResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/ventas/{id}/estado/perdida [put]
func (h *VentasHandler) MarcarPerdida(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "id inválido"})
	}
	var in dto.MarcarPerdidaRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.uc.MarcarPerdida(c.Context(), GetScope(c), int64(id), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// Empresas godoc
// @Summary      Empresas con ventas en un periodo
// @Tags         ventas
// @Security     Bearer
// @Produce      json
// @Param        periodo         query  string    false  "Periodo YYYYMM"
// @Param        usuario_emails  query  []string  false  "Emails de usuario asignado (UNASSIGNED = sin asignar)"
// @Success      200  {array}  dto.EmpresaResponse
// @Router       /api/ventas/empresas [get]
func (h *VentasHandler) Empresas(c *fiber.Ctx) error {
	periodo := c.Query("periodo")
	var filtros struct {
		UsuarioEmails []string `query:"usuario_emails"`
	}
	if err := c.QueryParser(&filtros); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	out, err := h.uc.Empresas(c.Context(), GetScope(c), periodo, filtros.UsuarioEmails)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// ReportePDF godoc
// @Summary      Reporte PDF de ventas conciliadas
// @Tags         ventas
// @Security     Bearer
// @Produce      application/pdf
// @Param        periodo  query  string  false  "Periodo YYYYMM"
// @Param        ruc      query  string  false  "RUC emisor"
// @Success      200  {file}  binary
// @Router       /api/ventas/reporte.pdf [get]
func (h *VentasHandler) ReportePDF(c *fiber.Ctx) error {
	var in dto.ListVentasRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	pdfBytes, err := h.uc.ReportePDF(c.Context(), GetScope(c), in)
	if err != nil {
		return respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="reporte-ventas.pdf"`)
	return c.Send(pdfBytes)
}
