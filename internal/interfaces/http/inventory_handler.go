package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-compras/internal/application/dto"
	"github.com/jhoicas/taller-compras/internal/application/inventory"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// InventoryHandler maneja los movimientos manuales de inventario (protegido).
type InventoryHandler struct {
	uc  *inventory.RegisterMovementUseCase
	log *logger.Logger
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *inventory.RegisterMovementUseCase, log *logger.Logger) *InventoryHandler {
	return &InventoryHandler{uc: uc, log: log}
}

// RegisterMovement godoc
// @Summary      Registrar movimiento manual de inventario
// @Description  Ajustes y consumos/devoluciones de OT. Las recepciones de compra solo entran por /api/orders/{id}/receipts.
// @Tags         inventory
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, type, quantity, job_id (JOB_ISSUE/JOB_RETURN)"
// @Success      201   {object}  dto.DataResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory/movements [post]
func (h *InventoryHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if handled, err := parseBody(c, &in); handled {
		return err
	}
	mov, err := h.uc.RegisterMovementFromRequest(c.UserContext(), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return writeData(c, fiber.StatusCreated, toMovementResponse(mov))
}
