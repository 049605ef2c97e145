package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// ComprasHandler maneja las peticiones HTTP del registro de compras.
type ComprasHandler struct {
	uc *usecase.ComprasUseCase
}

// NewComprasHandler construye el handler.
func NewComprasHandler(uc *usecase.ComprasUseCase) *ComprasHandler {
	return &ComprasHandler{uc: uc}
}

// List godoc
// @Summary      Listar compras (RCE)
// @Tags         compras
// @Security     Bearer
// @Produce      json
// @Param        page       query  int     false  "Página (1-indexed)"  default(1)
// @Param        page_size  query  int     false  "Tamaño de página"    default(20)
// @Param        ruc        query  string  false  "RUC"
// @Param        periodo    query  string  false  "Periodo YYYYMM"
// @Success      200  {object}  dto.ListComprasResponse
// @Router       /api/compras [get]
func (h *ComprasHandler) List(c *fiber.Ctx) error {
	var in dto.ListComprasRequest
	if err := c.QueryParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "query inválida"})
	}
	out, err := h.uc.List(c.Context(), GetScope(c), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
