package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	procdomain "github.com/jhoicas/taller-compras/internal/domain/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var (
	_ repository.RequisitionRepository       = (*requisitionRepo)(nil)
	_ repository.PurchaseOrderRepository     = (*orderRepo)(nil)
	_ repository.InventoryMovementRepository = (*movementRepo)(nil)
	_ repository.ProductRepository           = (*productRepo)(nil)
	_ repository.ProviderRepository          = (*providerRepo)(nil)
	_ repository.CurrencyRepository          = (*currencyRepo)(nil)
	_ repository.OutboxRepository            = (*outboxRepo)(nil)
)

type requisitionRepo struct {
	s  *Store
	st *state
}

func (r *requisitionRepo) Create(_ context.Context, req *entity.PurchaseRequisition) error {
	if err := r.s.fault(OpCreateRequisition); err != nil {
		return err
	}
	if req.Code != nil {
		if r.s.codeCollisions > 0 {
			r.s.codeCollisions--
			return domain.ErrDuplicateCode
		}
		for _, other := range r.st.requisitions {
			if other.Code != nil && *other.Code == *req.Code {
				return domain.ErrDuplicateCode
			}
		}
	}
	if _, ok := r.st.requisitions[req.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.requisitions[req.ID] = cloneRequisition(req)
	r.st.reqIDs = append(r.st.reqIDs, req.ID)
	return nil
}

func (r *requisitionRepo) MaxCodeSequence(_ context.Context, prefix string) (int, error) {
	max := 0
	for _, req := range r.st.requisitions {
		if req.Code == nil {
			continue
		}
		if n, ok := procdomain.ParseSequence(*req.Code, prefix); ok && n > max {
			max = n
		}
	}
	return max, nil
}

func (r *requisitionRepo) GetByID(_ context.Context, id string) (*entity.PurchaseRequisition, error) {
	req, ok := r.st.requisitions[id]
	if !ok {
		return nil, nil
	}
	return cloneRequisition(req), nil
}

func (r *requisitionRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseRequisition, error) {
	return r.GetByID(ctx, id)
}

func (r *requisitionRepo) UpdateLineCosts(_ context.Context, req *entity.PurchaseRequisition) error {
	cur, ok := r.st.requisitions[req.ID]
	if !ok {
		return domain.ErrNotFound
	}
	for i := range cur.Lines {
		if l := req.LineByID(cur.Lines[i].ID); l != nil {
			if l.EstimatedUnitCost == nil {
				cur.Lines[i].EstimatedUnitCost = nil
			} else {
				c := *l.EstimatedUnitCost
				cur.Lines[i].EstimatedUnitCost = &c
			}
		}
	}
	cur.TotalEstimated = req.TotalEstimated
	cur.UpdatedAt = req.UpdatedAt
	return nil
}

func (r *requisitionRepo) UpdateState(_ context.Context, id string, st entity.RequisitionState, at time.Time) error {
	cur, ok := r.st.requisitions[id]
	if !ok {
		return domain.ErrNotFound
	}
	cur.State = st
	cur.UpdatedAt = at
	return nil
}

func (r *requisitionRepo) AppendStateChange(_ context.Context, change *entity.RequisitionStateChange) error {
	cp := *change
	r.st.stateChanges = append(r.st.stateChanges, &cp)
	return nil
}

type orderRepo struct {
	s  *Store
	st *state
}

func (r *orderRepo) Create(_ context.Context, o *entity.PurchaseOrder) error {
	if err := r.s.fault(OpCreateOrder); err != nil {
		return err
	}
	for _, other := range r.st.orders {
		if other.Code == o.Code {
			return domain.ErrDuplicateCode
		}
	}
	req, ok := r.st.requisitions[o.RequisitionID]
	if !ok {
		return domain.ErrInvalidReference
	}
	if _, ok := r.st.providers[o.ProviderID]; !ok {
		return domain.ErrInvalidReference
	}
	for _, l := range o.Lines {
		if _, ok := r.st.products[l.ProductID]; !ok {
			return domain.ErrInvalidReference
		}
		if req.LineByID(l.CoverageLineID) == nil {
			return domain.ErrInvalidReference
		}
	}
	r.st.orders[o.ID] = cloneOrder(o)
	r.st.orderIDs = append(r.st.orderIDs, o.ID)
	return nil
}

func (r *orderRepo) GetByID(_ context.Context, id string) (*entity.PurchaseOrder, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *orderRepo) CountByRequisition(_ context.Context, requisitionID string) (int, error) {
	n := 0
	for _, o := range r.st.orders {
		if o.RequisitionID == requisitionID {
			n++
		}
	}
	return n, nil
}

func (r *orderRepo) SumCoveredByLine(_ context.Context, requisitionID string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, o := range r.st.orders {
		if o.RequisitionID != requisitionID {
			continue
		}
		for _, l := range o.Lines {
			out[l.CoverageLineID] = out[l.CoverageLineID].Add(l.Qty)
		}
	}
	return out, nil
}

func (r *orderRepo) UpdateReceipt(_ context.Context, id string, st entity.OrderState, invoiceRef *string, at time.Time) error {
	if err := r.s.fault(OpUpdateReceipt); err != nil {
		return err
	}
	o, ok := r.st.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	o.State = st
	if invoiceRef != nil {
		ref := *invoiceRef
		o.InvoiceRef = &ref
	}
	o.UpdatedAt = at
	return nil
}

type movementRepo struct {
	s  *Store
	st *state
}

func (r *movementRepo) Create(_ context.Context, m *entity.InventoryMovement) error {
	if err := r.s.fault(OpCreateMovement); err != nil {
		return err
	}
	if _, ok := r.st.products[m.ProductID]; !ok {
		return domain.ErrInvalidReference
	}
	cp := *m
	r.st.movements = append(r.st.movements, &cp)
	return nil
}

func (r *movementRepo) SumByReference(_ context.Context, refTable, refID string) (map[string]decimal.Decimal, error) {
	out := map[string]decimal.Decimal{}
	for _, m := range r.st.movements {
		if m.ReferenceTable == refTable && m.ReferenceID == refID {
			out[m.ProductID] = out[m.ProductID].Add(m.Quantity)
		}
	}
	return out, nil
}

func (r *movementRepo) ListRecentPurchaseReceipts(_ context.Context, productID string, limit int) ([]*entity.InventoryMovement, error) {
	type indexed struct {
		m   *entity.InventoryMovement
		pos int
	}
	var found []indexed
	for i, m := range r.st.movements {
		if m.ProductID == productID && m.Type == entity.MovementPurchaseReceipt && m.Quantity.IsPositive() {
			found = append(found, indexed{m, i})
		}
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].m.Date.Equal(found[j].m.Date) {
			return found[i].m.Date.After(found[j].m.Date)
		}
		return found[i].pos > found[j].pos
	})
	if limit > 0 && len(found) > limit {
		found = found[:limit]
	}
	out := make([]*entity.InventoryMovement, 0, len(found))
	for _, f := range found {
		cp := *f.m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *movementRepo) ListByReference(_ context.Context, refTable, refID string) ([]*entity.InventoryMovement, error) {
	var out []*entity.InventoryMovement
	for _, m := range r.st.movements {
		if m.ReferenceTable == refTable && m.ReferenceID == refID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

type productRepo struct {
	s  *Store
	st *state
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	if _, ok := r.st.products[p.ID]; ok {
		return domain.ErrDuplicate
	}
	cp := *p
	r.st.products[p.ID] = &cp
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	p, ok := r.st.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *productRepo) UpdateCost(_ context.Context, productID string, cost decimal.Decimal) error {
	if err := r.s.fault(OpUpdateCost); err != nil {
		return err
	}
	p, ok := r.st.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Cost = cost
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *productRepo) ListIDs(_ context.Context) ([]string, error) {
	ids := make([]string, 0, len(r.st.products))
	for id := range r.st.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

type providerRepo struct {
	st *state
}

func (r *providerRepo) GetByID(_ context.Context, id string) (*entity.Provider, error) {
	p, ok := r.st.providers[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

type currencyRepo struct {
	s *Store
}

func (r *currencyRepo) IsActive(_ context.Context, code string) (bool, error) {
	if err := r.s.fault(OpCurrencyLookup); err != nil {
		return false, err
	}
	r.s.catalogMu.RLock()
	defer r.s.catalogMu.RUnlock()
	return r.s.currencies[strings.ToUpper(code)], nil
}

type outboxRepo struct {
	s  *Store
	st *state
}

func (r *outboxRepo) Create(_ context.Context, e *entity.OutboxEvent) error {
	if err := r.s.fault(OpCreateOutbox); err != nil {
		return err
	}
	if _, ok := r.st.outbox[e.ID]; ok {
		return domain.ErrDuplicate
	}
	r.st.outbox[e.ID] = cloneOutbox(e)
	r.st.outboxIDs = append(r.st.outboxIDs, e.ID)
	return nil
}

func (r *outboxRepo) GetByID(_ context.Context, id string) (*entity.OutboxEvent, error) {
	e, ok := r.st.outbox[id]
	if !ok {
		return nil, nil
	}
	return cloneOutbox(e), nil
}

func (r *outboxRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*entity.OutboxEvent, error) {
	var out []*entity.OutboxEvent
	for _, id := range r.st.outboxIDs {
		e := r.st.outbox[id]
		if e.Status != entity.OutboxPending && e.Status != entity.OutboxFailed {
			continue
		}
		if e.NextAttemptAt.After(now) {
			continue
		}
		out = append(out, cloneOutbox(e))
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *outboxRepo) Update(_ context.Context, e *entity.OutboxEvent) error {
	if err := r.s.fault(OpUpdateOutbox); err != nil {
		return err
	}
	if _, ok := r.st.outbox[e.ID]; !ok {
		return domain.ErrNotFound
	}
	r.st.outbox[e.ID] = cloneOutbox(e)
	return nil
}

func (r *movementRepo) OnHand(_ context.Context, productID string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, m := range r.st.movements {
		if m.ProductID == productID {
			total = total.Add(m.Quantity)
		}
	}
	return total, nil
}
