package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento de inventario.
const (
	MovementPurchaseReceipt = "PURCHASE_RECEIPT" // entrada por recepción de OC
	MovementAdjustmentIn    = "ADJUSTMENT_IN"
	MovementAdjustmentOut   = "ADJUSTMENT_OUT"
	MovementJobIssue        = "JOB_ISSUE"  // salida a orden de trabajo
	MovementJobReturn       = "JOB_RETURN" // devolución desde orden de trabajo
)

// Tablas de referencia de un movimiento.
const (
	ReferencePurchaseOrder = "OC"
	ReferenceJob           = "JOB"
)

// IsInbound indica si el tipo suma existencias (cantidad positiva).
func IsInbound(movementType string) bool {
	switch movementType {
	case MovementPurchaseReceipt, MovementAdjustmentIn, MovementJobReturn:
		return true
	}
	return false
}

// IsValidMovementType indica si el tipo es conocido.
func IsValidMovementType(movementType string) bool {
	switch movementType {
	case MovementPurchaseReceipt, MovementAdjustmentIn, MovementAdjustmentOut, MovementJobIssue, MovementJobReturn:
		return true
	}
	return false
}

// InventoryMovement registro inmutable del libro de movimientos (solo se agregan filas).
// Para una OC, lo recibido se obtiene sumando los movimientos con referencia (OC, código).
type InventoryMovement struct {
	ID             string
	Date           time.Time
	ProductID      string
	Type           string
	Quantity       decimal.Decimal // positivo entrada, negativo salida
	UnitCost       decimal.Decimal
	TotalCost      decimal.Decimal
	ReferenceTable string
	ReferenceID    string
	Note           string
	CreatedBy      string
	CreatedAt      time.Time
}
