package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/inventory"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/infrastructure/memory"
)

func setup(t *testing.T) (context.Context, *memory.Store, *inventory.RegisterMovementUseCase) {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: "A", Cost: decimal.RequireFromString("12.5")})
	store.AddMovement(entity.InventoryMovement{
		ProductID: "A", Type: entity.MovementPurchaseReceipt, Quantity: decimal.NewFromInt(10),
		UnitCost: decimal.RequireFromString("12.5"), ReferenceTable: entity.ReferencePurchaseOrder, ReferenceID: "OC-1",
	})
	uc := inventory.NewRegisterMovementUseCase(store, authz.NewRoleGuard([]string{"bodeguero"}), nil)
	ctx := authz.WithPrincipal(context.Background(), authz.Principal{UserID: "b1", Role: "bodeguero"})
	return ctx, store, uc
}

func TestRegisterMovement_JobIssueIsNegativeAtCurrentCost(t *testing.T) {
	ctx, store, uc := setup(t)

	mov, err := uc.RegisterMovement(ctx, inventory.MovementInputDTO{
		ProductID: "A", Type: "job_issue", Quantity: decimal.NewFromInt(4), JobID: " OT-3 ",
	})
	require.NoError(t, err)
	assert.True(t, mov.Quantity.Equal(decimal.NewFromInt(-4)))
	assert.True(t, mov.TotalCost.Equal(decimal.NewFromInt(-50)))
	assert.Equal(t, entity.ReferenceJob, mov.ReferenceTable)
	assert.Equal(t, "OT-3", mov.ReferenceID)
	assert.Equal(t, "b1", mov.CreatedBy)

	// el costo del producto no cambia
	assert.True(t, store.Product("A").Cost.Equal(decimal.RequireFromString("12.5")))
	assert.Len(t, store.Movements(), 2)
}

func TestRegisterMovement_AdjustmentInIsPositive(t *testing.T) {
	ctx, _, uc := setup(t)
	mov, err := uc.RegisterMovement(ctx, inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementAdjustmentIn, Quantity: decimal.NewFromInt(2)})
	require.NoError(t, err)
	assert.True(t, mov.Quantity.Equal(decimal.NewFromInt(2)))
	assert.Empty(t, mov.ReferenceTable)
}

func TestRegisterMovement_InsufficientStock(t *testing.T) {
	ctx, store, uc := setup(t)
	_, err := uc.RegisterMovement(ctx, inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementAdjustmentOut, Quantity: decimal.NewFromInt(11)})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Len(t, store.Movements(), 1)
}

func TestRegisterMovement_Validation(t *testing.T) {
	ctx, _, uc := setup(t)
	tests := []struct {
		name string
		in   inventory.MovementInputDTO
		want error
	}{
		{"sin producto", inventory.MovementInputDTO{Type: entity.MovementAdjustmentIn, Quantity: decimal.NewFromInt(1)}, domain.ErrInvalidInput},
		{"compra manual", inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementPurchaseReceipt, Quantity: decimal.NewFromInt(1)}, domain.ErrInvalidInput},
		{"tipo desconocido", inventory.MovementInputDTO{ProductID: "A", Type: "TRANSFER", Quantity: decimal.NewFromInt(1)}, domain.ErrInvalidInput},
		{"consumo sin OT", inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementJobIssue, Quantity: decimal.NewFromInt(1)}, domain.ErrInvalidInput},
		{"cantidad cero", inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementAdjustmentIn}, domain.ErrInvalidInput},
		{"cantidad con 5 decimales", inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementAdjustmentIn, Quantity: decimal.RequireFromString("0.00001")}, domain.ErrInvalidInput},
		{"producto inexistente", inventory.MovementInputDTO{ProductID: "Z", Type: entity.MovementAdjustmentIn, Quantity: decimal.NewFromInt(1)}, domain.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.RegisterMovement(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := uc.RegisterMovement(context.Background(), inventory.MovementInputDTO{ProductID: "A", Type: entity.MovementAdjustmentIn, Quantity: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}
