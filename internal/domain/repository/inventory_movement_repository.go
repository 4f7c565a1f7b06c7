package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

// InventoryMovementRepository puerto del libro de movimientos. Solo inserta; nunca actualiza ni borra.
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	// SumByReference suma cantidades por producto de los movimientos con la referencia dada.
	SumByReference(ctx context.Context, refTable, refID string) (map[string]decimal.Decimal, error)
	// ListRecentPurchaseReceipts últimas recepciones de compra (cantidad > 0) del producto, más reciente primero.
	ListRecentPurchaseReceipts(ctx context.Context, productID string, limit int) ([]*entity.InventoryMovement, error)
	ListByReference(ctx context.Context, refTable, refID string) ([]*entity.InventoryMovement, error)
	// OnHand existencias del producto: suma de todas sus cantidades.
	OnHand(ctx context.Context, productID string) (decimal.Decimal, error)
}
