package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
)

// RequisitionState estado de una solicitud de compra (SC).
type RequisitionState string

const (
	RequisitionPendingAdmin    RequisitionState = "PENDING_ADMIN"
	RequisitionPendingGerencia RequisitionState = "PENDING_GERENCIA"
	RequisitionApproved        RequisitionState = "APPROVED"
	RequisitionRejected        RequisitionState = "REJECTED"
	RequisitionCancelled       RequisitionState = "CANCELLED"
)

// RequisitionCodePrefix prefijo de los códigos legibles SC-<año>-<secuencia>.
const RequisitionCodePrefix = "SC"

var requisitionTransitions = map[RequisitionState][]RequisitionState{
	RequisitionPendingAdmin:    {RequisitionPendingGerencia, RequisitionRejected, RequisitionCancelled},
	RequisitionPendingGerencia: {RequisitionApproved, RequisitionRejected, RequisitionCancelled},
	RequisitionApproved:        {RequisitionCancelled},
}

// IsValid indica si el estado es uno de los conocidos.
func (s RequisitionState) IsValid() bool {
	switch s {
	case RequisitionPendingAdmin, RequisitionPendingGerencia, RequisitionApproved,
		RequisitionRejected, RequisitionCancelled:
		return true
	}
	return false
}

// CanTransitionTo indica si existe la transición s -> target.
func (s RequisitionState) CanTransitionTo(target RequisitionState) bool {
	for _, t := range requisitionTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

// RequisitionLine línea de una solicitud. Seq es el orden de creación y define el FIFO de asignación.
type RequisitionLine struct {
	ID                string
	RequisitionID     string
	Seq               int
	ProductID         string
	RequestedQty      decimal.Decimal
	EstimatedUnitCost *decimal.Decimal // nil = sin costo estimado
}

// EstimatedTotal cantidad × costo estimado (cero si no hay costo).
func (l RequisitionLine) EstimatedTotal() decimal.Decimal {
	if l.EstimatedUnitCost == nil {
		return decimal.Zero
	}
	return l.RequestedQty.Mul(*l.EstimatedUnitCost)
}

// PurchaseRequisition solicitud de compra interna. Nunca se borra físicamente.
type PurchaseRequisition struct {
	ID             string
	Code           *string // nil si se creó sin código (agotados los reintentos)
	RequesterID    string
	JobID          *string // orden de trabajo vinculada, opcional
	Currency       string
	TotalEstimated decimal.Decimal
	Note           string
	State          RequisitionState
	Lines          []RequisitionLine
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RecalculateTotal recalcula TotalEstimated desde todas las líneas.
func (r *PurchaseRequisition) RecalculateTotal() {
	total := decimal.Zero
	for _, l := range r.Lines {
		total = total.Add(l.EstimatedTotal())
	}
	r.TotalEstimated = total
}

// CanEditCosts: en PENDING_* siempre; en APPROVED solo si aún no tiene órdenes.
func (r *PurchaseRequisition) CanEditCosts(ordersCount int) bool {
	switch r.State {
	case RequisitionPendingAdmin, RequisitionPendingGerencia:
		return true
	case RequisitionApproved:
		return ordersCount == 0
	}
	return false
}

// TransitionTo aplica la transición. changed=false cuando next es el estado actual (no-op idempotente).
func (r *PurchaseRequisition) TransitionTo(next RequisitionState, now time.Time) (changed bool, err error) {
	if !next.IsValid() {
		return false, domain.Invalid("state", "estado desconocido: "+string(next))
	}
	if r.State == next {
		return false, nil
	}
	if !r.State.CanTransitionTo(next) {
		return false, &domain.TransitionError{From: string(r.State), To: string(next)}
	}
	r.State = next
	r.UpdatedAt = now
	return true, nil
}

// LineByID busca una línea por ID.
func (r *PurchaseRequisition) LineByID(id string) *RequisitionLine {
	for i := range r.Lines {
		if r.Lines[i].ID == id {
			return &r.Lines[i]
		}
	}
	return nil
}

// CodeString devuelve el código o "" si no tiene.
func (r *PurchaseRequisition) CodeString() string {
	if r.Code == nil {
		return ""
	}
	return *r.Code
}

// RequisitionStateChange registro de auditoría de una transición aplicada.
type RequisitionStateChange struct {
	ID            string
	RequisitionID string
	From          RequisitionState
	To            RequisitionState
	Note          string
	ChangedBy     string
	ChangedAt     time.Time
}
