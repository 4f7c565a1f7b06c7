package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderState estado de cumplimiento de una orden de compra (OC).
type OrderState string

const (
	OrderOpen     OrderState = "OPEN"
	OrderPartial  OrderState = "PARTIAL"
	OrderReceived OrderState = "RECEIVED"
)

// CanReceive indica si la orden admite recepciones.
func (s OrderState) CanReceive() bool {
	return s == OrderOpen || s == OrderPartial
}

// OrderLine línea de la OC. CoverageLineID apunta a la línea de solicitud que cubre.
type OrderLine struct {
	ID             string
	OrderID        string
	Seq            int
	ProductID      string
	Qty            decimal.Decimal
	UnitCost       decimal.Decimal
	CoverageLineID string
}

// PurchaseOrder orden de compra emitida a un proveedor desde una solicitud aprobada.
type PurchaseOrder struct {
	ID            string
	Code          string
	RequisitionID string
	ProviderID    string
	Currency      string
	Total         decimal.Decimal
	State         OrderState
	InvoiceRef    *string
	Lines         []OrderLine
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProductIDs productos de la orden en orden de primera aparición.
func (o *PurchaseOrder) ProductIDs() []string {
	seen := make(map[string]bool, len(o.Lines))
	ids := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			ids = append(ids, l.ProductID)
		}
	}
	return ids
}

// OrderedByProduct suma de cantidades ordenadas por producto.
func (o *PurchaseOrder) OrderedByProduct() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(o.Lines))
	for _, l := range o.Lines {
		out[l.ProductID] = out[l.ProductID].Add(l.Qty)
	}
	return out
}

// UnitCostFor costo unitario del producto en la orden: promedio ponderado por cantidad
// de sus líneas (igual al costo de la línea cuando todas coinciden).
func (o *PurchaseOrder) UnitCostFor(productID string) decimal.Decimal {
	qty, value := decimal.Zero, decimal.Zero
	for _, l := range o.Lines {
		if l.ProductID != productID {
			continue
		}
		qty = qty.Add(l.Qty)
		value = value.Add(l.Qty.Mul(l.UnitCost))
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return value.Div(qty).Round(4)
}

// RecalculateTotal total = Σ qty × unitCost.
func (o *PurchaseOrder) RecalculateTotal() {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Qty.Mul(l.UnitCost))
	}
	o.Total = total
}

// NextOrderState estado tras una recepción: RECEIVED si no queda pendiente, sin cambio si
// todo lo ordenado sigue pendiente, PARTIAL en otro caso.
func NextOrderState(current OrderState, orderedTotal, pendingTotal decimal.Decimal) OrderState {
	switch {
	case pendingTotal.LessThanOrEqual(decimal.Zero):
		return OrderReceived
	case pendingTotal.Equal(orderedTotal):
		return current
	default:
		return OrderPartial
	}
}
