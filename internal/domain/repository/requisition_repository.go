package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

// RequisitionRepository puerto de persistencia de solicitudes de compra.
type RequisitionRepository interface {
	// Create inserta cabecera y líneas. Devuelve domain.ErrDuplicateCode si el código ya existe.
	Create(ctx context.Context, req *entity.PurchaseRequisition) error
	// MaxCodeSequence mayor secuencia usada con el prefijo (0 si no hay).
	MaxCodeSequence(ctx context.Context, prefix string) (int, error)
	GetByID(ctx context.Context, id string) (*entity.PurchaseRequisition, error)
	// GetForUpdate igual que GetByID pero bloquea la fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.PurchaseRequisition, error)
	UpdateLineCosts(ctx context.Context, req *entity.PurchaseRequisition) error
	UpdateState(ctx context.Context, id string, state entity.RequisitionState, at time.Time) error
	AppendStateChange(ctx context.Context, change *entity.RequisitionStateChange) error
}

// PurchaseOrderRepository puerto de persistencia de órdenes de compra.
type PurchaseOrderRepository interface {
	// Create inserta cabecera y líneas. domain.ErrDuplicateCode si el código existe,
	// domain.ErrInvalidReference si proveedor, producto o línea de solicitud no existen.
	Create(ctx context.Context, order *entity.PurchaseOrder) error
	GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error)
	CountByRequisition(ctx context.Context, requisitionID string) (int, error)
	// SumCoveredByLine suma lo ya ordenado por línea de solicitud (coverage).
	SumCoveredByLine(ctx context.Context, requisitionID string) (map[string]decimal.Decimal, error)
	UpdateReceipt(ctx context.Context, id string, state entity.OrderState, invoiceRef *string, at time.Time) error
}

// ProviderRepository puerto de lectura de proveedores.
type ProviderRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Provider, error)
}

// CurrencyRepository catálogo de monedas.
type CurrencyRepository interface {
	IsActive(ctx context.Context, code string) (bool, error)
}

// OutboxRepository puerto del outbox transaccional.
type OutboxRepository interface {
	Create(ctx context.Context, event *entity.OutboxEvent) error
	GetByID(ctx context.Context, id string) (*entity.OutboxEvent, error)
	// ListDue eventos PENDING o FAILED con NextAttemptAt <= now, los más antiguos primero.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error)
	Update(ctx context.Context, event *entity.OutboxEvent) error
}
