package inventory

import "github.com/shopspring/decimal"

// CostWindowSize cantidad de recepciones de compra recientes que entran al promedio.
const CostWindowSize = 10

// CostSample cantidad y costo unitario de una recepción.
type CostSample struct {
	Quantity decimal.Decimal
	UnitCost decimal.Decimal
}

// WeightedAverageCost implementa el costo promedio ponderado (servicio de dominio).
// NuevoCosto = Σ(cant × costo) / Σ cant sobre la ventana de recepciones previas más la entrada,
// redondeado a 2 decimales. Muestras con cantidad <= 0 se ignoran.
// Si la cantidad total es cero se devuelve el costo de la entrada sin cambios (cero si no hay entrada).
func WeightedAverageCost(window []CostSample, incoming *CostSample) decimal.Decimal {
	value, qty := decimal.Zero, decimal.Zero
	add := func(s CostSample) {
		if s.Quantity.LessThanOrEqual(decimal.Zero) {
			return
		}
		value = value.Add(s.Quantity.Mul(s.UnitCost))
		qty = qty.Add(s.Quantity)
	}
	for _, s := range window {
		add(s)
	}
	if incoming != nil {
		add(*incoming)
	}
	if qty.IsZero() {
		if incoming != nil {
			return incoming.UnitCost
		}
		return decimal.Zero
	}
	return value.Div(qty).Round(2)
}
