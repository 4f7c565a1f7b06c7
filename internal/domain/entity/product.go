package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product producto (SKU) del taller.
// Cost es el costo promedio móvil: solo lo modifican la recepción de compras y el recálculo masivo.
type Product struct {
	ID        string
	SKU       string
	Name      string
	Unit      string
	Cost      decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}
