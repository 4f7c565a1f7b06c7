package procurement_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/infrastructure/memory"
)

type fakeHook struct {
	mu   sync.Mutex
	jobs []string
	err  error
}

func (h *fakeHook) RecomputeLinkedJobCosts(_ context.Context, jobID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs = append(h.jobs, jobID)
	return h.err
}

func (h *fakeHook) calls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.jobs...)
}

type fakeCache struct {
	tags []string
	err  error
}

func (c *fakeCache) Invalidate(_ context.Context, tags ...string) error {
	c.tags = append(c.tags, tags...)
	return c.err
}

type fixture struct {
	ctx       context.Context
	store     *memory.Store
	hook      *fakeHook
	cache     *fakeCache
	reqs      *procurement.RequisitionUseCase
	orders    *procurement.OrderUseCase
	receiving *procurement.ReceivingUseCase
	recalc    *procurement.CostRecalculator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	store.AddCurrency("COP", true)
	store.AddCurrency("USD", true)
	store.AddCurrency("EUR", false)
	for _, id := range []string{"A", "B", "C"} {
		store.AddProduct(entity.Product{ID: id, SKU: "SKU-" + id, Name: "Producto " + id, Unit: "UND"})
	}
	store.AddProvider(entity.Provider{ID: "prov-usd", Name: "Aceros SAS", PreferredCurrency: "USD", Active: true})
	store.AddProvider(entity.Provider{ID: "prov", Name: "Ferretería", Active: true})
	store.AddProvider(entity.Provider{ID: "prov-off", Name: "Inactivo", Active: false})

	guard := authz.NewRoleGuard([]string{"admin", "compras"})
	currencies := procurement.NewCatalogCurrencyValidator(store.Currencies(), "COP", nil)
	hook := &fakeHook{}
	cache := &fakeCache{}

	return &fixture{
		ctx:       authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u1", Role: "compras"}),
		store:     store,
		hook:      hook,
		cache:     cache,
		reqs:      procurement.NewRequisitionUseCase(store, guard, currencies, cache, nil),
		orders:    procurement.NewOrderUseCase(store, guard, currencies, nil, cache, nil),
		receiving: procurement.NewReceivingUseCase(store, guard, hook, nil, cache, nil),
		recalc:    procurement.NewCostRecalculator(store, guard, cache, nil),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func strPtr(s string) *string { return &s }

func line(product, qty string) procurement.RequisitionLineInput {
	return procurement.RequisitionLineInput{ProductID: product, Qty: dec(qty)}
}

// approvedRequisition crea una solicitud y la lleva a APPROVED.
func (f *fixture) approvedRequisition(t *testing.T, jobID *string, lines ...procurement.RequisitionLineInput) string {
	t.Helper()
	created, err := f.reqs.Create(f.ctx, procurement.CreateRequisitionInput{JobID: jobID, Lines: lines})
	require.NoError(t, err)
	require.NoError(t, f.reqs.SetState(f.ctx, created.ID, entity.RequisitionPendingGerencia, ""))
	require.NoError(t, f.reqs.SetState(f.ctx, created.ID, entity.RequisitionApproved, "ok gerencia"))
	return created.ID
}

func orderLine(product, qty, cost string) procurement.OrderLineInput {
	return procurement.OrderLineInput{ProductID: product, Qty: dec(qty), UnitCost: dec(cost)}
}

// openOrder crea una solicitud aprobada con lo necesario y una OC que la cubre.
func (f *fixture) openOrder(t *testing.T, code string, jobID *string, lines ...procurement.OrderLineInput) *entity.PurchaseOrder {
	t.Helper()
	var reqLines []procurement.RequisitionLineInput
	for _, l := range lines {
		reqLines = append(reqLines, procurement.RequisitionLineInput{ProductID: l.ProductID, Qty: l.Qty})
	}
	reqID := f.approvedRequisition(t, jobID, reqLines...)
	created, err := f.orders.Create(f.ctx, procurement.CreateOrderInput{
		RequisitionID: reqID, ProviderID: "prov", Code: code, Lines: lines,
	})
	require.NoError(t, err)
	order := f.store.Order(created.ID)
	require.NotNil(t, order)
	return order
}

// seedReceipt movimiento histórico de compra con fecha antigua.
func (f *fixture) seedReceipt(product, qty, cost string, daysAgo int) {
	f.store.AddMovement(entity.InventoryMovement{
		ID:             "hist-" + product + "-" + qty,
		Date:           time.Now().UTC().AddDate(0, 0, -daysAgo),
		ProductID:      product,
		Type:           entity.MovementPurchaseReceipt,
		Quantity:       dec(qty),
		UnitCost:       dec(cost),
		TotalCost:      dec(qty).Mul(dec(cost)),
		ReferenceTable: entity.ReferencePurchaseOrder,
		ReferenceID:    "OC-HIST",
	})
}

func movementsFor(f *fixture, code string) []entity.InventoryMovement {
	var out []entity.InventoryMovement
	for _, m := range f.store.Movements() {
		if m.ReferenceTable == entity.ReferencePurchaseOrder && m.ReferenceID == code {
			out = append(out, m)
		}
	}
	return out
}

var errBoom = errors.New("boom")
