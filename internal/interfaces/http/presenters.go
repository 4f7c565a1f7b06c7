package http

import (
	"github.com/jhoicas/taller-compras/internal/application/dto"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

func toRequisitionResponse(r *entity.PurchaseRequisition) dto.RequisitionResponse {
	lines := make([]dto.RequisitionLineResponse, 0, len(r.Lines))
	for _, l := range r.Lines {
		lines = append(lines, dto.RequisitionLineResponse{
			ID:                l.ID,
			Seq:               l.Seq,
			ProductID:         l.ProductID,
			RequestedQty:      l.RequestedQty,
			EstimatedUnitCost: l.EstimatedUnitCost,
		})
	}
	return dto.RequisitionResponse{
		ID:             r.ID,
		Code:           r.CodeString(),
		RequesterID:    r.RequesterID,
		JobID:          r.JobID,
		Currency:       r.Currency,
		TotalEstimated: r.TotalEstimated,
		Note:           r.Note,
		State:          string(r.State),
		Lines:          lines,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func toOrderResponse(o *entity.PurchaseOrder) dto.OrderResponse {
	lines := make([]dto.OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, dto.OrderLineResponse{
			ID:             l.ID,
			Seq:            l.Seq,
			ProductID:      l.ProductID,
			Qty:            l.Qty,
			UnitCost:       l.UnitCost,
			CoverageLineID: l.CoverageLineID,
		})
	}
	return dto.OrderResponse{
		ID:            o.ID,
		Code:          o.Code,
		RequisitionID: o.RequisitionID,
		ProviderID:    o.ProviderID,
		Currency:      o.Currency,
		Total:         o.Total,
		State:         string(o.State),
		InvoiceRef:    o.InvoiceRef,
		Lines:         lines,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func toMovementResponse(m *entity.InventoryMovement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		Date:           m.Date,
		ProductID:      m.ProductID,
		Type:           m.Type,
		Quantity:       m.Quantity,
		UnitCost:       m.UnitCost,
		TotalCost:      m.TotalCost,
		ReferenceTable: m.ReferenceTable,
		ReferenceID:    m.ReferenceID,
		Note:           m.Note,
	}
}

func toMovementList(movs []*entity.InventoryMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, toMovementResponse(m))
	}
	return out
}

func toReceiveResponse(r *procurement.ReceiveResult) dto.ReceiveOrderResponse {
	return dto.ReceiveOrderResponse{
		OrderID:        r.OrderID,
		OrderCode:      r.OrderCode,
		PreviousState:  string(r.PreviousState),
		NewState:       string(r.NewState),
		Movements:      toMovementList(r.Movements),
		JobCostEventID: r.JobCostEventID,
	}
}
