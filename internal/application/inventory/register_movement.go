package inventory

import (
	"context"

	"github.com/jhoicas/taller-compras/internal/application/dto"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso RegisterMovement(ctx, MovementInputDTO).
func (uc *RegisterMovementUseCase) RegisterMovementFromRequest(ctx context.Context, in dto.RegisterMovementRequest) (*entity.InventoryMovement, error) {
	return uc.RegisterMovement(ctx, MovementInputDTO{
		ProductID: in.ProductID,
		Type:      in.Type,
		Quantity:  in.Quantity,
		JobID:     in.JobID,
		Note:      in.Note,
	})
}
