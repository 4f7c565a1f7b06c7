// Package procurement contiene los servicios de dominio del flujo de compras:
// asignación de cantidades contra solicitudes y asignación de códigos con reintentos.
package procurement

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
)

// CoverageLine línea de solicitud con lo ya consumido por órdenes existentes.
type CoverageLine struct {
	LineID    string
	ProductID string
	Seq       int
	Requested decimal.Decimal
	Consumed  decimal.Decimal
}

// Pending cantidad aún no cubierta (nunca negativa).
func (c CoverageLine) Pending() decimal.Decimal {
	p := c.Requested.Sub(c.Consumed)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// DesiredLine línea que el usuario quiere ordenar.
type DesiredLine struct {
	ProductID string
	Qty       decimal.Decimal
	UnitCost  decimal.Decimal
}

// Split porción de una línea deseada asignada a una línea de solicitud.
type Split struct {
	ProductID      string
	CoverageLineID string
	Qty            decimal.Decimal
	UnitCost       decimal.Decimal
}

// Allocate reparte cada línea deseada contra las líneas de solicitud del mismo producto,
// en orden de creación (Seq), consumiendo lo pendiente de cada una hasta cubrir la cantidad.
// Es todo o nada: si algún producto no alcanza, devuelve *domain.ShortfallError y ningún split.
func Allocate(lines []CoverageLine, desired []DesiredLine) ([]Split, error) {
	ordered := make([]CoverageLine, len(lines))
	copy(ordered, lines)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	pending := make([]decimal.Decimal, len(ordered))
	for i, l := range ordered {
		pending[i] = l.Pending()
	}

	splits := make([]Split, 0, len(desired))
	for _, d := range desired {
		remaining := d.Qty
		for i, l := range ordered {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			if l.ProductID != d.ProductID || pending[i].LessThanOrEqual(decimal.Zero) {
				continue
			}
			take := decimal.Min(remaining, pending[i])
			pending[i] = pending[i].Sub(take)
			remaining = remaining.Sub(take)
			splits = append(splits, Split{
				ProductID:      d.ProductID,
				CoverageLineID: l.LineID,
				Qty:            take,
				UnitCost:       d.UnitCost,
			})
		}
		if remaining.GreaterThan(decimal.Zero) {
			return nil, &domain.ShortfallError{ProductID: d.ProductID, Missing: remaining}
		}
	}
	return splits, nil
}
