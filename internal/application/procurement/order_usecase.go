package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	procdomain "github.com/jhoicas/taller-compras/internal/domain/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// OrderLineInput línea deseada de la OC.
type OrderLineInput struct {
	ProductID string
	Qty       decimal.Decimal
	UnitCost  decimal.Decimal
}

// CreateOrderInput entrada de Create. Code lo asigna quien llama y debe ser único.
type CreateOrderInput struct {
	RequisitionID string
	ProviderID    string
	Code          string
	Currency      string
	Lines         []OrderLineInput
}

// OrderCreated resultado de Create.
type OrderCreated struct {
	ID       string
	Code     string
	Total    decimal.Decimal
	Currency string
}

// OrderUseCase emisión y consulta de órdenes de compra (OC).
type OrderUseCase struct {
	tx         TxRunner
	guard      PermissionGuard
	currencies CurrencyValidator
	pdf        OrderPDFGenerator
	cache      CacheInvalidator
	log        *logger.Logger
}

// NewOrderUseCase construye el caso de uso. pdf, cache y log pueden ser nil.
func NewOrderUseCase(tx TxRunner, guard PermissionGuard, currencies CurrencyValidator, pdf OrderPDFGenerator, cache CacheInvalidator, log *logger.Logger) *OrderUseCase {
	return &OrderUseCase{
		tx:         tx,
		guard:      guard,
		currencies: currencies,
		pdf:        pdf,
		cache:      orNoopCache(cache),
		log:        orNop(log).Component("orders"),
	}
}

// Create emite una OC desde una solicitud APPROVED. Reparte las líneas contra lo pendiente de la
// solicitud (procdomain.Allocate) y persiste una línea por split con su cobertura. Todo o nada.
func (uc *OrderUseCase) Create(ctx context.Context, in CreateOrderInput) (*OrderCreated, error) {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return nil, err
	}
	in.Code = strings.TrimSpace(in.Code)
	if err := validateCreateOrder(in); err != nil {
		return nil, err
	}

	var order *entity.PurchaseOrder
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		req, err := s.Requisitions.GetForUpdate(ctx, in.RequisitionID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", in.RequisitionID, domain.ErrNotFound)
		}
		if req.State != entity.RequisitionApproved {
			return fmt.Errorf("%w: la solicitud está en %s y debe estar en %s",
				domain.ErrInvalidState, req.State, entity.RequisitionApproved)
		}

		provider, err := s.Providers.GetByID(ctx, in.ProviderID)
		if err != nil {
			return err
		}
		if provider == nil || !provider.Active {
			return fmt.Errorf("proveedor %s: %w", in.ProviderID, domain.ErrNotFound)
		}

		covered, err := s.Orders.SumCoveredByLine(ctx, req.ID)
		if err != nil {
			return err
		}
		coverage := make([]procdomain.CoverageLine, 0, len(req.Lines))
		for _, l := range req.Lines {
			coverage = append(coverage, procdomain.CoverageLine{
				LineID:    l.ID,
				ProductID: l.ProductID,
				Seq:       l.Seq,
				Requested: l.RequestedQty,
				Consumed:  covered[l.ID],
			})
		}
		desired := make([]procdomain.DesiredLine, 0, len(in.Lines))
		for _, l := range in.Lines {
			desired = append(desired, procdomain.DesiredLine{
				ProductID: strings.TrimSpace(l.ProductID),
				Qty:       l.Qty,
				UnitCost:  l.UnitCost,
			})
		}
		splits, err := procdomain.Allocate(coverage, desired)
		if err != nil {
			return err
		}

		now := nowUTC()
		order = &entity.PurchaseOrder{
			ID:            uuid.New().String(),
			Code:          in.Code,
			RequisitionID: req.ID,
			ProviderID:    provider.ID,
			Currency:      resolveCurrency(ctx, uc.currencies, in.Currency, provider.PreferredCurrency),
			State:         entity.OrderOpen,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		for i, sp := range splits {
			order.Lines = append(order.Lines, entity.OrderLine{
				ID:             uuid.New().String(),
				OrderID:        order.ID,
				Seq:            i + 1,
				ProductID:      sp.ProductID,
				Qty:            sp.Qty,
				UnitCost:       sp.UnitCost,
				CoverageLineID: sp.CoverageLineID,
			})
		}
		order.RecalculateTotal()
		return s.Orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().Str("order_id", order.ID).Str("code", order.Code).Int("lines", len(order.Lines)).Msg("orden de compra creada")
	invalidate(ctx, uc.cache, uc.log, CacheTagOrders, CacheTagRequisitions)
	return &OrderCreated{ID: order.ID, Code: order.Code, Total: order.Total, Currency: order.Currency}, nil
}

// Get obtiene una OC con sus líneas.
func (uc *OrderUseCase) Get(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	var order *entity.PurchaseOrder
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		var err error
		order, err = s.Orders.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("orden %s: %w", id, domain.ErrNotFound)
	}
	return order, nil
}

// Receipts movimientos de recepción registrados contra la OC, en orden de inserción.
func (uc *OrderUseCase) Receipts(ctx context.Context, id string) ([]*entity.InventoryMovement, error) {
	var movs []*entity.InventoryMovement
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		order, err := s.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("orden %s: %w", id, domain.ErrNotFound)
		}
		movs, err = s.Movements.ListByReference(ctx, entity.ReferencePurchaseOrder, order.Code)
		return err
	})
	if err != nil {
		return nil, err
	}
	return movs, nil
}

// RenderPDF genera el documento de la OC para enviar al proveedor.
//
// Retorna:
//   - (pdfBytes, filename, nil) si todo sale bien.
//   - domain.ErrNotFound        si la orden o su proveedor no existen.
func (uc *OrderUseCase) RenderPDF(ctx context.Context, id string) (pdfBytes []byte, filename string, err error) {
	if uc.pdf == nil {
		return nil, "", fmt.Errorf("pdf: generador no configurado")
	}
	var doc OrderDocument
	err = uc.tx.Run(ctx, func(s repository.Store) error {
		order, err := s.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if order == nil {
			return fmt.Errorf("orden %s: %w", id, domain.ErrNotFound)
		}
		provider, err := s.Providers.GetByID(ctx, order.ProviderID)
		if err != nil {
			return err
		}
		if provider == nil {
			return fmt.Errorf("proveedor %s: %w", order.ProviderID, domain.ErrNotFound)
		}
		req, err := s.Requisitions.GetByID(ctx, order.RequisitionID)
		if err != nil {
			return err
		}
		products := make(map[string]*entity.Product, len(order.Lines))
		for _, pid := range order.ProductIDs() {
			p, err := s.Products.GetByID(ctx, pid)
			if err != nil {
				return err
			}
			if p != nil {
				products[pid] = p
			}
		}
		doc = OrderDocument{Order: order, Provider: provider, Requisition: req, Products: products}
		return nil
	})
	if err != nil {
		return nil, "", err
	}
	pdfBytes, err = uc.pdf.GeneratePurchaseOrderPDF(ctx, doc)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generar orden %s: %w", doc.Order.Code, err)
	}
	return pdfBytes, fmt.Sprintf("OC-%s.pdf", doc.Order.Code), nil
}

func validateCreateOrder(in CreateOrderInput) error {
	if strings.TrimSpace(in.RequisitionID) == "" {
		return domain.Invalid("requisition_id", "requerido")
	}
	if strings.TrimSpace(in.ProviderID) == "" {
		return domain.Invalid("provider_id", "requerido")
	}
	if in.Code == "" {
		return domain.Invalid("code", "requerido")
	}
	if len(in.Lines) == 0 {
		return domain.Invalid("lines", "se requiere al menos una línea")
	}
	for i, l := range in.Lines {
		if strings.TrimSpace(l.ProductID) == "" {
			return domain.Invalid(fmt.Sprintf("lines[%d].product_id", i), "requerido")
		}
		if !l.Qty.IsPositive() {
			return domain.Invalid(fmt.Sprintf("lines[%d].qty", i), "debe ser mayor que cero")
		}
		if domain.ExceedsScale(l.Qty) {
			return domain.Invalid(fmt.Sprintf("lines[%d].qty", i), domain.ScaleMessage)
		}
		if l.UnitCost.IsNegative() {
			return domain.Invalid(fmt.Sprintf("lines[%d].unit_cost", i), "no puede ser negativo")
		}
		if domain.ExceedsScale(l.UnitCost) {
			return domain.Invalid(fmt.Sprintf("lines[%d].unit_cost", i), domain.ScaleMessage)
		}
	}
	return nil
}
