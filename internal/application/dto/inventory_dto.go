package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterMovementRequest body para POST /api/inventory/movements.
type RegisterMovementRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Type      string          `json:"type" validate:"required,oneof=ADJUSTMENT_IN ADJUSTMENT_OUT JOB_ISSUE JOB_RETURN"`
	Quantity  decimal.Decimal `json:"quantity"`
	JobID     string          `json:"job_id" validate:"omitempty,max=64"`
	Note      string          `json:"note" validate:"max=500"`
}

// MovementResponse salida de un movimiento del libro de inventario.
type MovementResponse struct {
	ID             string          `json:"id"`
	Date           time.Time       `json:"date"`
	ProductID      string          `json:"product_id"`
	Type           string          `json:"type"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	ReferenceTable string          `json:"reference_table,omitempty"`
	ReferenceID    string          `json:"reference_id,omitempty"`
	Note           string          `json:"note,omitempty"`
}

// RecalculateCostsResponse resultado del recálculo masivo de costos.
type RecalculateCostsResponse struct {
	UpdatedCount int `json:"updated_count"`
	SkippedCount int `json:"skipped_count"`
}
