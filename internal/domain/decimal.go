package domain

import "github.com/shopspring/decimal"

// DecimalScale decimales que admiten cantidades y costos en la base (NUMERIC(18,4)).
const DecimalScale = 4

// ExceedsScale indica si d trae más de DecimalScale decimales significativos.
func ExceedsScale(d decimal.Decimal) bool {
	return !d.Truncate(DecimalScale).Equal(d)
}

// ScaleMessage mensaje de validación para valores con demasiados decimales.
const ScaleMessage = "máximo 4 decimales"
