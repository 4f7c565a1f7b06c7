package memory

import (
	"strings"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
)

// AddProduct registra un producto.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = &p
}

// AddProvider registra un proveedor.
func (s *Store) AddProvider(p entity.Provider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.providers[p.ID] = &p
}

// AddCurrency registra una moneda del catálogo.
func (s *Store) AddCurrency(code string, active bool) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	s.currencies[strings.ToUpper(code)] = active
}

// AddMovement agrega un movimiento histórico (datos migrados).
func (s *Store) AddMovement(m entity.InventoryMovement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.movements = append(s.state.movements, &m)
}

// Product copia del producto o nil.
func (s *Store) Product(id string) *entity.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.state.products[id]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Requisition copia de la solicitud o nil.
func (s *Store) Requisition(id string) *entity.PurchaseRequisition {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.state.requisitions[id]
	if !ok {
		return nil
	}
	return cloneRequisition(r)
}

// Requisitions todas las solicitudes en orden de creación.
func (s *Store) Requisitions() []*entity.PurchaseRequisition {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.PurchaseRequisition, 0, len(s.state.reqIDs))
	for _, id := range s.state.reqIDs {
		out = append(out, cloneRequisition(s.state.requisitions[id]))
	}
	return out
}

// Order copia de la orden o nil.
func (s *Store) Order(id string) *entity.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.state.orders[id]
	if !ok {
		return nil
	}
	return cloneOrder(o)
}

// Orders todas las órdenes en orden de creación.
func (s *Store) Orders() []*entity.PurchaseOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*entity.PurchaseOrder, 0, len(s.state.orderIDs))
	for _, id := range s.state.orderIDs {
		out = append(out, cloneOrder(s.state.orders[id]))
	}
	return out
}

// Movements copia del libro de movimientos en orden de inserción.
func (s *Store) Movements() []entity.InventoryMovement {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.InventoryMovement, 0, len(s.state.movements))
	for _, m := range s.state.movements {
		out = append(out, *m)
	}
	return out
}

// StateChanges historial de transiciones de una solicitud.
func (s *Store) StateChanges(requisitionID string) []entity.RequisitionStateChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.RequisitionStateChange
	for _, c := range s.state.stateChanges {
		if c.RequisitionID == requisitionID {
			out = append(out, *c)
		}
	}
	return out
}

// OutboxEvents eventos del outbox en orden de creación.
func (s *Store) OutboxEvents() []entity.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.OutboxEvent, 0, len(s.state.outboxIDs))
	for _, id := range s.state.outboxIDs {
		out = append(out, *cloneOutbox(s.state.outbox[id]))
	}
	return out
}

func cloneRequisition(r *entity.PurchaseRequisition) *entity.PurchaseRequisition {
	cp := *r
	if r.Code != nil {
		c := *r.Code
		cp.Code = &c
	}
	if r.JobID != nil {
		j := *r.JobID
		cp.JobID = &j
	}
	cp.Lines = make([]entity.RequisitionLine, len(r.Lines))
	for i, l := range r.Lines {
		if l.EstimatedUnitCost != nil {
			c := *l.EstimatedUnitCost
			l.EstimatedUnitCost = &c
		}
		cp.Lines[i] = l
	}
	return &cp
}

func cloneOrder(o *entity.PurchaseOrder) *entity.PurchaseOrder {
	cp := *o
	if o.InvoiceRef != nil {
		r := *o.InvoiceRef
		cp.InvoiceRef = &r
	}
	cp.Lines = append([]entity.OrderLine(nil), o.Lines...)
	return &cp
}

func cloneOutbox(e *entity.OutboxEvent) *entity.OutboxEvent {
	cp := *e
	cp.Payload = append([]byte(nil), e.Payload...)
	if e.SentAt != nil {
		t := *e.SentAt
		cp.SentAt = &t
	}
	return &cp
}
