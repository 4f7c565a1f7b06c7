package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-compras/internal/application/dto"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// errorMapping traduce un error de dominio a status y código de la respuesta.
type errorMapping struct {
	target error
	status int
	code   string
}

// El orden importa: los errores más específicos van primero.
var errorMappings = []errorMapping{
	{domain.ErrUnauthorized, fiber.StatusUnauthorized, "UNAUTHORIZED"},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN"},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY"},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION"},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND"},
	{domain.ErrTransitionNotAllowed, fiber.StatusConflict, "TRANSITION_NOT_ALLOWED"},
	{domain.ErrInvalidState, fiber.StatusConflict, "INVALID_STATE"},
	{domain.ErrDuplicateCode, fiber.StatusConflict, "DUPLICATE_CODE"},
	{domain.ErrDuplicate, fiber.StatusConflict, "DUPLICATE"},
	{domain.ErrInsufficientStock, fiber.StatusConflict, "INSUFFICIENT_STOCK"},
	{domain.ErrConflict, fiber.StatusConflict, "CONFLICT"},
	{domain.ErrAllocationShortfall, fiber.StatusUnprocessableEntity, "ALLOCATION_SHORTFALL"},
	{domain.ErrOverReceipt, fiber.StatusUnprocessableEntity, "OVER_RECEIPT"},
	{domain.ErrUnknownProduct, fiber.StatusUnprocessableEntity, "UNKNOWN_PRODUCT"},
	{domain.ErrInvalidReference, fiber.StatusUnprocessableEntity, "INVALID_REFERENCE"},
}

// writeError escribe la envoltura de error. Errores no reconocidos se registran y se
// responden como 500 sin detalle interno.
func writeError(c *fiber.Ctx, log *logger.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		resp := dto.Fail(m.code, err.Error())
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			resp.Fields = map[string]string{verr.Field: verr.Message}
		}
		return c.Status(m.status).JSON(resp)
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error inesperado")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.Fail("INTERNAL", "error interno del servidor"))
}

func writeData(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(dto.Data(data))
}
