// Package procurement implementa el flujo de compras del taller: solicitudes (SC), órdenes (OC),
// recepción de mercancía y recálculo del costo promedio de productos.
package procurement

import (
	"context"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con todos los repositorios atados a ella.
// Si fn devuelve error no queda ninguna escritura.
type TxRunner interface {
	Run(ctx context.Context, fn func(store repository.Store) error) error
}

// PermissionGuard autorización de escritura de compras. Sus errores se propagan tal cual.
type PermissionGuard interface {
	AssertCanWritePurchases(ctx context.Context) error
}

// CurrencyValidator resuelve un código contra el catálogo de monedas.
type CurrencyValidator interface {
	// ValidateCurrency devuelve el código normalizado y si está activo en el catálogo.
	ValidateCurrency(ctx context.Context, code string) (string, bool)
	DefaultCurrency() string
}

// JobCostHook aviso de recálculo de costos de la orden de trabajo vinculada a una solicitud.
type JobCostHook interface {
	RecomputeLinkedJobCosts(ctx context.Context, jobID string) error
}

// OrderLocker punto de serialización opcional por OC para recepciones concurrentes.
type OrderLocker interface {
	Lock(ctx context.Context, orderID string) (unlock func(), err error)
}

// CacheInvalidator invalida etiquetas de caché de listados tras una escritura.
type CacheInvalidator interface {
	Invalidate(ctx context.Context, tags ...string) error
}

// OrderDocument datos para la representación impresa de una OC.
type OrderDocument struct {
	Order       *entity.PurchaseOrder
	Provider    *entity.Provider
	Requisition *entity.PurchaseRequisition
	Products    map[string]*entity.Product
}

// OrderPDFGenerator genera el PDF de una OC.
type OrderPDFGenerator interface {
	GeneratePurchaseOrderPDF(ctx context.Context, doc OrderDocument) ([]byte, error)
}

// Etiquetas de caché de listados.
const (
	CacheTagRequisitions = "requisitions"
	CacheTagOrders       = "purchase_orders"
	CacheTagProducts     = "products"
	CacheTagMovements    = "inventory_movements"
)
