package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RequisitionLineRequest línea de una solicitud de compra.
type RequisitionLineRequest struct {
	ProductID         string           `json:"product_id" validate:"required"`
	Qty               decimal.Decimal  `json:"qty"`
	EstimatedUnitCost *decimal.Decimal `json:"estimated_unit_cost,omitempty"`
}

// CreateRequisitionRequest body para POST /api/requisitions.
type CreateRequisitionRequest struct {
	JobID    *string                  `json:"job_id,omitempty" validate:"omitempty,max=64"`
	Currency string                   `json:"currency" validate:"omitempty,len=3"`
	Note     string                   `json:"note" validate:"max=500"`
	Lines    []RequisitionLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// LineCostRequest costo estimado de una línea existente; null lo borra.
type LineCostRequest struct {
	LineID        string           `json:"line_id" validate:"required"`
	EstimatedCost *decimal.Decimal `json:"estimated_cost"`
}

// UpdateRequisitionCostsRequest body para PUT /api/requisitions/:id/costs.
type UpdateRequisitionCostsRequest struct {
	Lines []LineCostRequest `json:"lines" validate:"required,min=1,dive"`
}

// SetRequisitionStateRequest body para POST /api/requisitions/:id/state.
type SetRequisitionStateRequest struct {
	State string `json:"state" validate:"required"`
	Note  string `json:"note" validate:"max=500"`
}

// RequisitionCreatedResponse id y código asignado (code omitido si se creó sin código).
type RequisitionCreatedResponse struct {
	ID   string `json:"id"`
	Code string `json:"code,omitempty"`
}

// RequisitionLineResponse línea de solicitud.
type RequisitionLineResponse struct {
	ID                string           `json:"id"`
	Seq               int              `json:"seq"`
	ProductID         string           `json:"product_id"`
	RequestedQty      decimal.Decimal  `json:"requested_qty"`
	EstimatedUnitCost *decimal.Decimal `json:"estimated_unit_cost"`
}

// RequisitionResponse salida de una solicitud.
type RequisitionResponse struct {
	ID             string                    `json:"id"`
	Code           string                    `json:"code,omitempty"`
	RequesterID    string                    `json:"requester_id"`
	JobID          *string                   `json:"job_id,omitempty"`
	Currency       string                    `json:"currency"`
	TotalEstimated decimal.Decimal           `json:"total_estimated"`
	Note           string                    `json:"note,omitempty"`
	State          string                    `json:"state"`
	Lines          []RequisitionLineResponse `json:"lines"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// OrderLineRequest línea pedida al proveedor.
type OrderLineRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	RequisitionID string             `json:"requisition_id" validate:"required"`
	ProviderID    string             `json:"provider_id" validate:"required"`
	Code          string             `json:"code" validate:"required,max=50"`
	Currency      string             `json:"currency" validate:"omitempty,len=3"`
	Lines         []OrderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// OrderCreatedResponse resultado de crear una OC.
type OrderCreatedResponse struct {
	ID       string          `json:"id"`
	Code     string          `json:"code"`
	Total    decimal.Decimal `json:"total"`
	Currency string          `json:"currency"`
}

// OrderLineResponse línea de una OC con la línea de solicitud que cubre.
type OrderLineResponse struct {
	ID             string          `json:"id"`
	Seq            int             `json:"seq"`
	ProductID      string          `json:"product_id"`
	Qty            decimal.Decimal `json:"qty"`
	UnitCost       decimal.Decimal `json:"unit_cost"`
	CoverageLineID string          `json:"coverage_line_id"`
}

// OrderResponse salida de una OC.
type OrderResponse struct {
	ID            string              `json:"id"`
	Code          string              `json:"code"`
	RequisitionID string              `json:"requisition_id"`
	ProviderID    string              `json:"provider_id"`
	Currency      string              `json:"currency"`
	Total         decimal.Decimal     `json:"total"`
	State         string              `json:"state"`
	InvoiceRef    *string             `json:"invoice_ref,omitempty"`
	Lines         []OrderLineResponse `json:"lines"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ReceiveItemRequest cantidad recibida de un producto.
type ReceiveItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Qty       decimal.Decimal `json:"qty"`
}

// ReceiveOrderRequest body para POST /api/orders/:id/receipts. Items vacío = recepción total.
type ReceiveOrderRequest struct {
	InvoiceRef *string              `json:"invoice_ref,omitempty" validate:"omitempty,max=100"`
	Items      []ReceiveItemRequest `json:"items" validate:"omitempty,dive"`
}

// ReceiveOrderResponse resultado de una recepción.
type ReceiveOrderResponse struct {
	OrderID        string             `json:"order_id"`
	OrderCode      string             `json:"order_code"`
	PreviousState  string             `json:"previous_state"`
	NewState       string             `json:"new_state"`
	Movements      []MovementResponse `json:"movements"`
	JobCostEventID string             `json:"job_cost_event_id,omitempty"`
}
