package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/operaciones-peru/crm-sunat/internal/application/usecase"
)

// SnapshotHandler administra la vista materializada vía HTTP.
type SnapshotHandler struct {
	uc *usecase.SnapshotUseCase
}

// NewSnapshotHandler construye el handler.
func NewSnapshotHandler(uc *usecase.SnapshotUseCase) *SnapshotHandler {
	return &SnapshotHandler{uc: uc}
}

// Refresh godoc
// @Summary      Refrescar el snapshot de ventas
// @Description  Idempotente; no bloquea lectores. Solo admin.
// @Tags         snapshot
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RefreshResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/snapshot/refresh [post]
func (h *SnapshotHandler) Refresh(c *fiber.Ctx) error {
	out, err := h.uc.Refresh(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}
