package inventory

import (
	"context"

	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el registro de movimientos.
type TxRunner interface {
	Run(ctx context.Context, fn func(store repository.Store) error) error
}

// PermissionGuard autorización de escritura de inventario (misma regla que compras).
type PermissionGuard interface {
	AssertCanWritePurchases(ctx context.Context) error
}
