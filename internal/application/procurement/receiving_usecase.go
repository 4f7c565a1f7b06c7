package procurement

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/event"
	"github.com/jhoicas/taller-compras/internal/domain/inventory"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// ReceiveItem cantidad recibida de un producto en una recepción parcial.
type ReceiveItem struct {
	ProductID string
	Qty       decimal.Decimal
}

// ReceiveInput entrada de Receive. Items vacío = recepción total de lo pendiente.
type ReceiveInput struct {
	OrderID    string
	InvoiceRef *string
	Items      []ReceiveItem
}

// ReceiveResult resultado de una recepción.
type ReceiveResult struct {
	OrderID       string
	OrderCode     string
	PreviousState entity.OrderState
	NewState      entity.OrderState
	Movements     []*entity.InventoryMovement
	// JobCostEventID evento de outbox creado para la orden de trabajo vinculada ("" si no aplica).
	JobCostEventID string
}

// ReceivingUseCase registra la entrada de mercancía contra una OC.
type ReceivingUseCase struct {
	tx      TxRunner
	guard   PermissionGuard
	jobCost JobCostHook
	locker  OrderLocker
	cache   CacheInvalidator
	log     *logger.Logger
}

// NewReceivingUseCase construye el caso de uso. locker nil = sin serialización por orden
// (cada llamada vuelve a calcular lo pendiente desde el libro de movimientos).
func NewReceivingUseCase(tx TxRunner, guard PermissionGuard, jobCost JobCostHook, locker OrderLocker, cache CacheInvalidator, log *logger.Logger) *ReceivingUseCase {
	return &ReceivingUseCase{
		tx:      tx,
		guard:   guard,
		jobCost: jobCost,
		locker:  locker,
		cache:   orNoopCache(cache),
		log:     orNop(log).Component("receiving"),
	}
}

// Receive registra una recepción total (sin items) o parcial (con items) de la OC.
// Movimientos, costos de producto, estado de la orden, referencia de factura y el evento de
// recálculo de costos van en una sola transacción. El aviso a la orden de trabajo se intenta
// después del commit y su fallo no afecta la recepción: el evento queda pendiente en el outbox.
func (uc *ReceivingUseCase) Receive(ctx context.Context, in ReceiveInput) (*ReceiveResult, error) {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.OrderID) == "" {
		return nil, domain.Invalid("order_id", "requerido")
	}
	in.InvoiceRef = normalizeOptional(in.InvoiceRef)

	if uc.locker != nil {
		unlock, err := uc.locker.Lock(ctx, in.OrderID)
		if err != nil {
			return nil, err
		}
		defer unlock()
	}

	userID := authz.UserID(ctx)
	var (
		result  *ReceiveResult
		outbox  *entity.OutboxEvent
		payload event.JobCostRecomputeV1
	)
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		// ── 1. Orden y estado ─────────────────────────────────────────────────
		order, err := s.Orders.GetByID(ctx, in.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("orden %s: %w", in.OrderID, domain.ErrNotFound)
		}
		if !order.State.CanReceive() {
			return fmt.Errorf("%w: la orden %s está en %s", domain.ErrInvalidState, order.Code, order.State)
		}

		// ── 2. Ordenado vs. recibido por producto ─────────────────────────────
		ordered := order.OrderedByProduct()
		received, err := s.Movements.SumByReference(ctx, entity.ReferencePurchaseOrder, order.Code)
		if err != nil {
			return err
		}
		pending := make(map[string]decimal.Decimal, len(ordered))
		orderedTotal := decimal.Zero
		for pid, qty := range ordered {
			pending[pid] = qty.Sub(received[pid])
			orderedTotal = orderedTotal.Add(qty)
		}

		// ── 3. Plan de entradas (se valida todo antes de escribir) ─────────────
		plan, err := planReceipt(order, pending, in.Items)
		if err != nil {
			return err
		}

		// ── 4. Movimientos y costo promedio ────────────────────────────────────
		now := nowUTC()
		result = &ReceiveResult{OrderID: order.ID, OrderCode: order.Code, PreviousState: order.State}
		for _, item := range plan {
			mov, err := postReceipt(ctx, s, order, item, userID, now)
			if err != nil {
				return err
			}
			result.Movements = append(result.Movements, mov)
		}

		// ── 5. Estado de la orden y referencia de factura ─────────────────────
		pendingTotal := decimal.Zero
		for _, qty := range pending {
			if qty.IsPositive() {
				pendingTotal = pendingTotal.Add(qty)
			}
		}
		result.NewState = entity.NextOrderState(order.State, orderedTotal, pendingTotal)
		invoiceRef := order.InvoiceRef
		if in.InvoiceRef != nil {
			invoiceRef = in.InvoiceRef
		}
		if err := s.Orders.UpdateReceipt(ctx, order.ID, result.NewState, invoiceRef, now); err != nil {
			return err
		}

		// ── 6. Evento de recálculo de costos de la orden de trabajo ────────────
		if len(result.Movements) == 0 {
			return nil
		}
		req, err := s.Requisitions.GetByID(ctx, order.RequisitionID)
		if err != nil {
			return err
		}
		if req == nil || req.JobID == nil {
			return nil
		}
		payload = event.JobCostRecomputeV1{
			JobID:         *req.JobID,
			OrderID:       order.ID,
			OrderCode:     order.Code,
			RequisitionID: req.ID,
		}
		raw, version, err := event.EncodeJobCostRecompute(payload)
		if err != nil {
			return err
		}
		outbox = &entity.OutboxEvent{
			ID:            uuid.New().String(),
			Type:          event.TypeJobCostRecompute,
			Version:       version,
			AggregateID:   order.ID,
			Payload:       raw,
			Status:        entity.OutboxPending,
			MaxAttempts:   entity.DefaultOutboxMaxAttempts,
			NextAttemptAt: now,
			CreatedAt:     now,
		}
		result.JobCostEventID = outbox.ID
		return s.Outbox.Create(ctx, outbox)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("order_id", result.OrderID).Str("state", string(result.NewState)).
		Int("movements", len(result.Movements)).Msg("recepción registrada")
	invalidate(ctx, uc.cache, uc.log, CacheTagOrders, CacheTagProducts, CacheTagMovements)

	if outbox != nil {
		uc.notifyJobCost(ctx, outbox, payload.JobID)
	}
	return result, nil
}

// notifyJobCost entrega inmediata del evento; si falla lo reintenta el despachador del outbox.
func (uc *ReceivingUseCase) notifyJobCost(ctx context.Context, ev *entity.OutboxEvent, jobID string) {
	if uc.jobCost == nil {
		return
	}
	if err := uc.jobCost.RecomputeLinkedJobCosts(ctx, jobID); err != nil {
		uc.log.Warn().Err(err).Str("job_id", jobID).Str("event_id", ev.ID).
			Msg("recálculo de costos de la orden de trabajo falló; queda pendiente en el outbox")
		return
	}
	ev.MarkSent(nowUTC())
	if err := uc.tx.Run(ctx, func(s repository.Store) error {
		return s.Outbox.Update(ctx, ev)
	}); err != nil {
		uc.log.Warn().Err(err).Str("event_id", ev.ID).Msg("no se pudo marcar el evento como enviado")
	}
}

// planReceipt arma las entradas a registrar y descuenta pending. Sin items recibe todo lo pendiente
// (los productos ya completos se omiten). Con items valida cada uno contra lo pendiente acumulado.
func planReceipt(order *entity.PurchaseOrder, pending map[string]decimal.Decimal, items []ReceiveItem) ([]ReceiveItem, error) {
	var plan []ReceiveItem
	if len(items) == 0 {
		for _, pid := range order.ProductIDs() {
			qty := pending[pid]
			if !qty.IsPositive() {
				continue
			}
			plan = append(plan, ReceiveItem{ProductID: pid, Qty: qty})
			pending[pid] = decimal.Zero
		}
		return plan, nil
	}

	for i, it := range items {
		pid := strings.TrimSpace(it.ProductID)
		left, ok := pending[pid]
		if !ok {
			return nil, &domain.ProductError{ProductID: pid, Err: domain.ErrUnknownProduct}
		}
		if !it.Qty.IsPositive() {
			return nil, &domain.ProductError{ProductID: pid, Err: domain.ErrInvalidQuantity}
		}
		if domain.ExceedsScale(it.Qty) {
			return nil, domain.Invalid(fmt.Sprintf("items[%d].qty", i), domain.ScaleMessage)
		}
		if it.Qty.GreaterThan(left) {
			return nil, &domain.OverReceiptError{ProductID: pid, Requested: it.Qty, Pending: decimal.Max(left, decimal.Zero)}
		}
		pending[pid] = left.Sub(it.Qty)
		plan = append(plan, ReceiveItem{ProductID: pid, Qty: it.Qty})
	}
	return plan, nil
}

// postReceipt calcula el nuevo costo promedio con la ventana previa más esta entrada,
// agrega el movimiento y actualiza el costo del producto.
func postReceipt(ctx context.Context, s repository.Store, order *entity.PurchaseOrder, item ReceiveItem, userID string, now time.Time) (*entity.InventoryMovement, error) {
	product, err := s.Products.GetByID(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, &domain.ProductError{ProductID: item.ProductID, Err: domain.ErrNotFound}
	}

	unitCost := order.UnitCostFor(item.ProductID)
	window, err := s.Movements.ListRecentPurchaseReceipts(ctx, item.ProductID, inventory.CostWindowSize)
	if err != nil {
		return nil, err
	}
	newCost := inventory.WeightedAverageCost(costSamples(window), &inventory.CostSample{Quantity: item.Qty, UnitCost: unitCost})

	mov := &entity.InventoryMovement{
		ID:             uuid.New().String(),
		Date:           now,
		ProductID:      item.ProductID,
		Type:           entity.MovementPurchaseReceipt,
		Quantity:       item.Qty,
		UnitCost:       unitCost,
		TotalCost:      item.Qty.Mul(unitCost),
		ReferenceTable: entity.ReferencePurchaseOrder,
		ReferenceID:    order.Code,
		Note:           fmt.Sprintf("Recepción OC %s", order.Code),
		CreatedBy:      userID,
		CreatedAt:      now,
	}
	if err := s.Movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	if err := s.Products.UpdateCost(ctx, item.ProductID, newCost); err != nil {
		return nil, err
	}
	return mov, nil
}

func costSamples(movs []*entity.InventoryMovement) []inventory.CostSample {
	out := make([]inventory.CostSample, 0, len(movs))
	for _, m := range movs {
		out = append(out, inventory.CostSample{Quantity: m.Quantity, UnitCost: m.UnitCost})
	}
	return out
}
