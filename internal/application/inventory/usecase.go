package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// RegisterMovementUseCase registra movimientos manuales (ajustes y consumos de órdenes de trabajo).
// Las entradas por compra solo las registra la recepción de OC; el costo del producto nunca cambia aquí.
type RegisterMovementUseCase struct {
	txRunner TxRunner
	guard    PermissionGuard
	log      *logger.Logger
}

// NewRegisterMovementUseCase construye el caso de uso.
func NewRegisterMovementUseCase(txRunner TxRunner, guard PermissionGuard, log *logger.Logger) *RegisterMovementUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &RegisterMovementUseCase{txRunner: txRunner, guard: guard, log: log.Component("inventory")}
}

// MovementInputDTO entrada para registrar un movimiento manual.
// Quantity es la magnitud (> 0); el signo lo da el tipo. JobID es obligatorio en JOB_ISSUE/JOB_RETURN.
type MovementInputDTO struct {
	ProductID string
	Type      string
	Quantity  decimal.Decimal
	JobID     string
	Note      string
}

// RegisterMovement valida la entrada, verifica existencias en las salidas y agrega el movimiento
// al costo promedio vigente del producto.
func (uc *RegisterMovementUseCase) RegisterMovement(ctx context.Context, input MovementInputDTO) (*entity.InventoryMovement, error) {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return nil, err
	}
	input.Type = strings.ToUpper(strings.TrimSpace(input.Type))
	input.JobID = strings.TrimSpace(input.JobID)
	if err := validateMovement(input); err != nil {
		return nil, err
	}

	var mov *entity.InventoryMovement
	err := uc.txRunner.Run(ctx, func(s repository.Store) error {
		product, err := s.Products.GetByID(ctx, input.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return fmt.Errorf("producto %s: %w", input.ProductID, domain.ErrNotFound)
		}

		qty := input.Quantity
		if !entity.IsInbound(input.Type) {
			onHand, err := s.Movements.OnHand(ctx, input.ProductID)
			if err != nil {
				return err
			}
			if onHand.LessThan(qty) {
				return fmt.Errorf("%w: producto %s tiene %s y se solicitan %s",
					domain.ErrInsufficientStock, input.ProductID, onHand.String(), qty.String())
			}
			qty = qty.Neg()
		}

		now := time.Now().UTC()
		mov = &entity.InventoryMovement{
			ID:        uuid.New().String(),
			Date:      now,
			ProductID: input.ProductID,
			Type:      input.Type,
			Quantity:  qty,
			UnitCost:  product.Cost,
			TotalCost: qty.Mul(product.Cost),
			Note:      strings.TrimSpace(input.Note),
			CreatedBy: authz.UserID(ctx),
			CreatedAt: now,
		}
		if input.JobID != "" {
			mov.ReferenceTable = entity.ReferenceJob
			mov.ReferenceID = input.JobID
		}
		return s.Movements.Create(ctx, mov)
	})
	if err != nil {
		return nil, err
	}
	uc.log.Info().Str("product_id", mov.ProductID).Str("type", mov.Type).Str("qty", mov.Quantity.String()).Msg("movimiento registrado")
	return mov, nil
}

func validateMovement(input MovementInputDTO) error {
	if strings.TrimSpace(input.ProductID) == "" {
		return domain.Invalid("product_id", "requerido")
	}
	switch input.Type {
	case entity.MovementAdjustmentIn, entity.MovementAdjustmentOut:
	case entity.MovementJobIssue, entity.MovementJobReturn:
		if input.JobID == "" {
			return domain.Invalid("job_id", "requerido para movimientos de orden de trabajo")
		}
	case entity.MovementPurchaseReceipt:
		return domain.Invalid("type", "las entradas por compra se registran con la recepción de la OC")
	default:
		return domain.Invalid("type", "tipo desconocido: "+input.Type)
	}
	if !input.Quantity.IsPositive() {
		return domain.Invalid("quantity", "debe ser mayor que cero")
	}
	if domain.ExceedsScale(input.Quantity) {
		return domain.Invalid("quantity", domain.ScaleMessage)
	}
	return nil
}
