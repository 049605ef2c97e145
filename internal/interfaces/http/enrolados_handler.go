package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/dto"
	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// EnroladosHandler maneja las peticiones HTTP de empresas enroladas.
type EnroladosHandler struct {
	uc *usecase.EnroladosUseCase
}

// NewEnroladosHandler construye el handler.
func NewEnroladosHandler(uc *usecase.EnroladosUseCase) *EnroladosHandler {
	return &EnroladosHandler{uc: uc}
}

// List godoc
// @Summary      Listar enrolados visibles para el llamador
// @Tags         enrolados
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.EnroladoResponse
// @Router       /api/enrolados [get]
func (h *EnroladosHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.Context(), GetScope(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

// GetByRUC godoc
// @Summary      Obtener un enrolado por RUC
// @Tags         enrolados
// @Security     Bearer
// @Produce      json
// @Param        ruc  path  string  true  "RUC"
// @Success      200  {object}  dto.EnroladoResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/enrolados/{ruc} [get]
func (h *EnroladosHandler) GetByRUC(c *fiber.Ctx) error {
	ruc := c.Params("ruc")
	if ruc == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "ruc es requerido"})
	}
	out, err := h.uc.GetByRUC(c.Context(), GetScope(c), ruc)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
