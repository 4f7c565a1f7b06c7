package procurement_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/event"
	"github.com/jhoicas/taller-compras/internal/infrastructure/memory"
)

func receivedByProduct(f *fixture, code string) map[string]decimal.Decimal {
	out := map[string]decimal.Decimal{}
	for _, m := range movementsFor(f, code) {
		out[m.ProductID] = out[m.ProductID].Add(m.Quantity)
	}
	return out
}

func TestReceive_PartialThenComplete(t *testing.T) {
	f := newFixture(t)
	f.seedReceipt("A", "60", "12", 30)
	order := f.openOrder(t, "OC-100", nil, orderLine("A", "100", "10"))

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID: order.ID,
		Items:   []procurement.ReceiveItem{{ProductID: "A", Qty: dec("40")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderOpen, res.PreviousState)
	assert.Equal(t, entity.OrderPartial, res.NewState)
	require.Len(t, res.Movements, 1)
	mov := res.Movements[0]
	assert.Equal(t, entity.MovementPurchaseReceipt, mov.Type)
	assert.Equal(t, entity.ReferencePurchaseOrder, mov.ReferenceTable)
	assert.Equal(t, "OC-100", mov.ReferenceID)
	assert.True(t, mov.UnitCost.Equal(dec("10")))
	assert.True(t, mov.TotalCost.Equal(dec("400")))
	assert.Equal(t, "u1", mov.CreatedBy)
	// (60×12 + 40×10) / 100
	assert.True(t, f.store.Product("A").Cost.Equal(dec("11.2")), f.store.Product("A").Cost.String())
	assert.Equal(t, entity.OrderPartial, f.store.Order(order.ID).State)

	res, err = f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID:    order.ID,
		InvoiceRef: strPtr("FV-889"),
		Items:      []procurement.ReceiveItem{{ProductID: "A", Qty: dec("60")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderReceived, res.NewState)
	// (60×12 + 40×10 + 60×10) / 160
	assert.True(t, f.store.Product("A").Cost.Equal(dec("10.75")), f.store.Product("A").Cost.String())

	stored := f.store.Order(order.ID)
	assert.Equal(t, entity.OrderReceived, stored.State)
	require.NotNil(t, stored.InvoiceRef)
	assert.Equal(t, "FV-889", *stored.InvoiceRef)
	assert.True(t, receivedByProduct(f, "OC-100")["A"].Equal(dec("100")))

	_, err = f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, movementsFor(f, "OC-100"), 2)
}

func TestReceive_OverReceiptWritesNothing(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-1", nil, orderLine("A", "100", "10"))

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID: order.ID, Items: []procurement.ReceiveItem{{ProductID: "A", Qty: dec("101")}},
	})
	var over *domain.OverReceiptError
	require.True(t, errors.As(err, &over))
	assert.Equal(t, "A", over.ProductID)
	assert.True(t, over.Pending.Equal(dec("100")))
	assert.ErrorIs(t, err, domain.ErrOverReceipt)

	// entradas repetidas se validan contra lo pendiente acumulado
	_, err = f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID: order.ID, Items: []procurement.ReceiveItem{{ProductID: "A", Qty: dec("60")}, {ProductID: "A", Qty: dec("50")}},
	})
	assert.ErrorIs(t, err, domain.ErrOverReceipt)

	assert.Empty(t, movementsFor(f, "OC-1"))
	assert.True(t, f.store.Product("A").Cost.IsZero())
	assert.Equal(t, entity.OrderOpen, f.store.Order(order.ID).State)
}

func TestReceive_ItemErrors(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-1", nil, orderLine("A", "10", "10"))

	tests := []struct {
		name string
		item procurement.ReceiveItem
		want error
	}{
		{"producto ajeno", procurement.ReceiveItem{ProductID: "B", Qty: dec("1")}, domain.ErrUnknownProduct},
		{"cantidad cero", procurement.ReceiveItem{ProductID: "A", Qty: decimal.Zero}, domain.ErrInvalidQuantity},
		{"cantidad negativa", procurement.ReceiveItem{ProductID: "A", Qty: dec("-2")}, domain.ErrInvalidQuantity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{
				OrderID: order.ID,
				Items:   []procurement.ReceiveItem{{ProductID: "A", Qty: dec("1")}, tt.item},
			})
			assert.ErrorIs(t, err, tt.want)
			var pe *domain.ProductError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.item.ProductID, pe.ProductID)
		})
	}
	assert.Empty(t, movementsFor(f, "OC-1"))

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: "nada"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.receiving.Receive(f.ctx, procurement.ReceiveInput{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReceive_RejectsMoreThanFourDecimals(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-1", nil, orderLine("A", "10", "10"))

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID: order.ID,
		Items:   []procurement.ReceiveItem{{ProductID: "A", Qty: dec("1")}, {ProductID: "A", Qty: dec("1.00005")}},
	})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items[1].qty", ve.Field)
	assert.Empty(t, movementsFor(f, "OC-1"))
	assert.Equal(t, entity.OrderOpen, f.store.Order(order.ID).State)
}

func TestReceive_TotalSkipsSettledProducts(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-2", nil, orderLine("A", "10", "4"), orderLine("B", "5", "8"))

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{
		OrderID: order.ID, Items: []procurement.ReceiveItem{{ProductID: "A", Qty: dec("10")}},
	})
	require.NoError(t, err)

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	require.NoError(t, err)
	require.Len(t, res.Movements, 1)
	assert.Equal(t, "B", res.Movements[0].ProductID)
	assert.True(t, res.Movements[0].Quantity.Equal(dec("5")))
	assert.Equal(t, entity.OrderReceived, res.NewState)

	received := receivedByProduct(f, "OC-2")
	assert.True(t, received["A"].Equal(dec("10")))
	assert.True(t, received["B"].Equal(dec("5")))
	assert.Len(t, movementsFor(f, "OC-2"), 2)
}

func TestReceive_TotalOnFreshOrder(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-3", nil, orderLine("A", "3", "10"), orderLine("B", "2", "7"))

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID, InvoiceRef: strPtr("  ")})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderReceived, res.NewState)
	require.Len(t, res.Movements, 2)
	assert.Equal(t, "A", res.Movements[0].ProductID)
	assert.Equal(t, "B", res.Movements[1].ProductID)
	assert.True(t, f.store.Product("A").Cost.Equal(dec("10")))
	assert.True(t, f.store.Product("B").Cost.Equal(dec("7")))
	assert.Nil(t, f.store.Order(order.ID).InvoiceRef)
}

func TestReceive_IsAtomic(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-4", nil, orderLine("A", "3", "10"), orderLine("B", "2", "7"))
	f.store.InjectError(memory.OpUpdateReceipt, errBoom)

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, movementsFor(f, "OC-4"))
	assert.True(t, f.store.Product("A").Cost.IsZero())
	assert.True(t, f.store.Product("B").Cost.IsZero())
	assert.Equal(t, entity.OrderOpen, f.store.Order(order.ID).State)
	assert.Empty(t, f.hook.calls())
}

func TestReceive_NotifiesLinkedJob(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-5", strPtr("OT-42"), orderLine("A", "2", "10"))

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"OT-42"}, f.hook.calls())

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, res.JobCostEventID, events[0].ID)
	assert.Equal(t, event.TypeJobCostRecompute, events[0].Type)
	assert.Equal(t, entity.OutboxSent, events[0].Status)

	payload, err := event.DecodeJobCostRecompute(events[0].Version, events[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "OT-42", payload.JobID)
	assert.Equal(t, "OC-5", payload.OrderCode)
}

func TestReceive_HookFailureKeepsReceiptAndEvent(t *testing.T) {
	f := newFixture(t)
	f.hook.err = errBoom
	order := f.openOrder(t, "OC-6", strPtr("OT-9"), orderLine("A", "2", "10"))

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderReceived, res.NewState)
	assert.Len(t, movementsFor(f, "OC-6"), 1)

	events := f.store.OutboxEvents()
	require.Len(t, events, 1)
	assert.Equal(t, entity.OutboxPending, events[0].Status)
}

func TestReceive_NoJobNoEvent(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-7", nil, orderLine("A", "2", "10"))

	res, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	require.NoError(t, err)
	assert.Empty(t, res.JobCostEventID)
	assert.Empty(t, f.store.OutboxEvents())
	assert.Empty(t, f.hook.calls())
}

func TestReceive_CostMatchesRecalculation(t *testing.T) {
	f := newFixture(t)
	f.seedReceipt("A", "5", "20", 10)
	f.seedReceipt("A", "7", "13.37", 5)
	order := f.openOrder(t, "OC-8", nil, orderLine("A", "9", "11.11"))

	_, err := f.receiving.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	require.NoError(t, err)
	afterReceipt := f.store.Product("A").Cost

	_, err = f.recalc.RecalculateAll(f.ctx)
	require.NoError(t, err)
	assert.True(t, afterReceipt.Equal(f.store.Product("A").Cost))

	_, err = f.recalc.RecalculateAll(f.ctx)
	require.NoError(t, err)
	assert.True(t, afterReceipt.Equal(f.store.Product("A").Cost))
}

type recordingLocker struct {
	locked, unlocked []string
	err              error
}

func (l *recordingLocker) Lock(_ context.Context, orderID string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.locked = append(l.locked, orderID)
	return func() { l.unlocked = append(l.unlocked, orderID) }, nil
}

func TestReceive_UsesOrderLocker(t *testing.T) {
	f := newFixture(t)
	order := f.openOrder(t, "OC-9", nil, orderLine("A", "2", "10"))
	locker := &recordingLocker{}
	uc := procurement.NewReceivingUseCase(f.store, authzGuard(), nil, locker, nil, nil)

	_, err := uc.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID, Items: []procurement.ReceiveItem{{ProductID: "A", Qty: dec("1")}}})
	require.NoError(t, err)
	assert.Equal(t, []string{order.ID}, locker.locked)
	assert.Equal(t, []string{order.ID}, locker.unlocked)

	locker.err = domain.ErrConflict
	_, err = uc.Receive(f.ctx, procurement.ReceiveInput{OrderID: order.ID})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Len(t, movementsFor(f, "OC-9"), 1)
}

func authzGuard() *authz.RoleGuard { return authz.NewRoleGuard([]string{"compras"}) }
