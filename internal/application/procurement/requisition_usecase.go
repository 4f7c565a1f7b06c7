package procurement

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	procdomain "github.com/jhoicas/taller-compras/internal/domain/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// RequisitionLineInput línea de una nueva solicitud.
type RequisitionLineInput struct {
	ProductID         string
	Qty               decimal.Decimal
	EstimatedUnitCost *decimal.Decimal
}

// CreateRequisitionInput entrada de Create. RequesterID vacío = usuario autenticado.
type CreateRequisitionInput struct {
	RequesterID string
	JobID       *string
	Currency    string
	Note        string
	Lines       []RequisitionLineInput
}

// RequisitionCreated resultado de Create. Code vacío si se creó sin código.
type RequisitionCreated struct {
	ID   string
	Code string
}

// LineCostInput nuevo costo estimado de una línea; nil lo borra.
type LineCostInput struct {
	LineID        string
	EstimatedCost *decimal.Decimal
}

// RequisitionUseCase ciclo de vida de las solicitudes de compra (SC).
type RequisitionUseCase struct {
	tx         TxRunner
	guard      PermissionGuard
	currencies CurrencyValidator
	cache      CacheInvalidator
	log        *logger.Logger
}

// NewRequisitionUseCase construye el caso de uso. cache y log pueden ser nil.
func NewRequisitionUseCase(tx TxRunner, guard PermissionGuard, currencies CurrencyValidator, cache CacheInvalidator, log *logger.Logger) *RequisitionUseCase {
	return &RequisitionUseCase{
		tx:         tx,
		guard:      guard,
		currencies: currencies,
		cache:      orNoopCache(cache),
		log:        orNop(log).Component("requisitions"),
	}
}

// Create registra la solicitud en PENDING_ADMIN con código SC-<año>-<secuencia>.
// Ante colisión del código reintenta hasta procdomain.MaxCodeAttempts veces; agotados los intentos
// la crea sin código y lo registra como advertencia.
func (uc *RequisitionUseCase) Create(ctx context.Context, in CreateRequisitionInput) (*RequisitionCreated, error) {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return nil, err
	}
	if in.RequesterID == "" {
		in.RequesterID = authz.UserID(ctx)
	}
	if err := validateCreateRequisition(in); err != nil {
		return nil, err
	}

	now := nowUTC()
	req := &entity.PurchaseRequisition{
		ID:          uuid.New().String(),
		RequesterID: in.RequesterID,
		JobID:       normalizeOptional(in.JobID),
		Currency:    resolveCurrency(ctx, uc.currencies, in.Currency),
		Note:        strings.TrimSpace(in.Note),
		State:       entity.RequisitionPendingAdmin,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for i, l := range in.Lines {
		var cost *decimal.Decimal
		if l.EstimatedUnitCost != nil {
			c := *l.EstimatedUnitCost
			cost = &c
		}
		req.Lines = append(req.Lines, entity.RequisitionLine{
			ID:                uuid.New().String(),
			RequisitionID:     req.ID,
			Seq:               i + 1,
			ProductID:         strings.TrimSpace(l.ProductID),
			RequestedQty:      l.Qty,
			EstimatedUnitCost: cost,
		})
	}
	req.RecalculateTotal()

	year := now.Year()
	prefix := procdomain.CodePrefix(entity.RequisitionCodePrefix, year)
	assigned, err := procdomain.AssignWithRetry(ctx, procdomain.MaxCodeAttempts,
		func(ctx context.Context, candidate func(maxSeq int) int) error {
			return uc.tx.Run(ctx, func(s repository.Store) error {
				maxSeq, err := s.Requisitions.MaxCodeSequence(ctx, prefix)
				if err != nil {
					return err
				}
				code := procdomain.FormatCode(entity.RequisitionCodePrefix, year, candidate(maxSeq))
				req.Code = &code
				return s.Requisitions.Create(ctx, req)
			})
		})
	if err != nil {
		return nil, err
	}
	if !assigned {
		req.Code = nil
		uc.log.Warn().Str("requisition_id", req.ID).Int("attempts", procdomain.MaxCodeAttempts).
			Msg("código de solicitud no asignado tras agotar reintentos; se crea sin código")
		if err := uc.tx.Run(ctx, func(s repository.Store) error {
			return s.Requisitions.Create(ctx, req)
		}); err != nil {
			return nil, err
		}
	}

	invalidate(ctx, uc.cache, uc.log, CacheTagRequisitions)
	return &RequisitionCreated{ID: req.ID, Code: req.CodeString()}, nil
}

// UpdateCosts cambia el costo estimado de las líneas nombradas y recalcula el total en la misma transacción.
// Permitido en PENDING_ADMIN/PENDING_GERENCIA, o en APPROVED mientras no existan órdenes.
func (uc *RequisitionUseCase) UpdateCosts(ctx context.Context, requisitionID string, lines []LineCostInput) error {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(requisitionID) == "" {
		return domain.Invalid("id", "requerido")
	}
	if len(lines) == 0 {
		return domain.Invalid("lines", "se requiere al menos una línea")
	}
	for i, l := range lines {
		if l.LineID == "" {
			return domain.Invalid(fmt.Sprintf("lines[%d].id", i), "requerido")
		}
		if l.EstimatedCost != nil && l.EstimatedCost.IsNegative() {
			return domain.Invalid(fmt.Sprintf("lines[%d].estimated_cost", i), "no puede ser negativo")
		}
		if l.EstimatedCost != nil && domain.ExceedsScale(*l.EstimatedCost) {
			return domain.Invalid(fmt.Sprintf("lines[%d].estimated_cost", i), domain.ScaleMessage)
		}
	}

	err := uc.tx.Run(ctx, func(s repository.Store) error {
		req, err := s.Requisitions.GetForUpdate(ctx, requisitionID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", requisitionID, domain.ErrNotFound)
		}
		orders, err := s.Orders.CountByRequisition(ctx, req.ID)
		if err != nil {
			return err
		}
		if !req.CanEditCosts(orders) {
			return fmt.Errorf("%w: no se pueden editar costos en %s con %d órdenes", domain.ErrInvalidState, req.State, orders)
		}
		for i, in := range lines {
			line := req.LineByID(in.LineID)
			if line == nil {
				return domain.Invalid(fmt.Sprintf("lines[%d].id", i), "la línea no pertenece a la solicitud")
			}
			if in.EstimatedCost == nil {
				line.EstimatedUnitCost = nil
				continue
			}
			c := *in.EstimatedCost
			line.EstimatedUnitCost = &c
		}
		req.RecalculateTotal()
		req.UpdatedAt = nowUTC()
		return s.Requisitions.UpdateLineCosts(ctx, req)
	})
	if err != nil {
		return err
	}
	invalidate(ctx, uc.cache, uc.log, CacheTagRequisitions)
	return nil
}

// SetState aplica una transición de la máquina de estados. Pasar al estado actual no hace nada.
// Cada transición aplicada queda en el historial de la solicitud.
func (uc *RequisitionUseCase) SetState(ctx context.Context, requisitionID string, next entity.RequisitionState, note string) error {
	if err := uc.guard.AssertCanWritePurchases(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(requisitionID) == "" {
		return domain.Invalid("id", "requerido")
	}
	next = entity.RequisitionState(strings.ToUpper(strings.TrimSpace(string(next))))

	changed := false
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		req, err := s.Requisitions.GetForUpdate(ctx, requisitionID)
		if err != nil {
			return err
		}
		if req == nil {
			return fmt.Errorf("solicitud %s: %w", requisitionID, domain.ErrNotFound)
		}
		from := req.State
		now := nowUTC()
		changed, err = req.TransitionTo(next, now)
		if err != nil || !changed {
			return err
		}
		if err := s.Requisitions.UpdateState(ctx, req.ID, req.State, now); err != nil {
			return err
		}
		return s.Requisitions.AppendStateChange(ctx, &entity.RequisitionStateChange{
			ID:            uuid.New().String(),
			RequisitionID: req.ID,
			From:          from,
			To:            next,
			Note:          strings.TrimSpace(note),
			ChangedBy:     authz.UserID(ctx),
			ChangedAt:     now,
		})
	})
	if err != nil {
		return err
	}
	if changed {
		uc.log.Info().Str("requisition_id", requisitionID).Str("state", string(next)).Msg("estado de solicitud actualizado")
		invalidate(ctx, uc.cache, uc.log, CacheTagRequisitions)
	}
	return nil
}

// Get obtiene una solicitud con sus líneas.
func (uc *RequisitionUseCase) Get(ctx context.Context, id string) (*entity.PurchaseRequisition, error) {
	var req *entity.PurchaseRequisition
	err := uc.tx.Run(ctx, func(s repository.Store) error {
		var err error
		req, err = s.Requisitions.GetByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
	}
	return req, nil
}

func validateCreateRequisition(in CreateRequisitionInput) error {
	if strings.TrimSpace(in.RequesterID) == "" {
		return domain.Invalid("requester_id", "requerido")
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
		if l.EstimatedUnitCost != nil && l.EstimatedUnitCost.IsNegative() {
			return domain.Invalid(fmt.Sprintf("lines[%d].estimated_unit_cost", i), "no puede ser negativo")
		}
		if l.EstimatedUnitCost != nil && domain.ExceedsScale(*l.EstimatedUnitCost) {
			return domain.Invalid(fmt.Sprintf("lines[%d].estimated_unit_cost", i), domain.ScaleMessage)
		}
	}
	return nil
}

func normalizeOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
