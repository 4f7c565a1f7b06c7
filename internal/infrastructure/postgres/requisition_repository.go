package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	procdomain "github.com/jhoicas/taller-compras/internal/domain/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var _ repository.RequisitionRepository = (*RequisitionRepo)(nil)

const requisitionColumns = `id, code, requester_id, job_id, currency, total_estimated, note, state, created_at, updated_at`

// RequisitionRepo solicitudes de compra sobre PostgreSQL (usable con pool o tx).
type RequisitionRepo struct {
	q Querier
}

// NewRequisitionRepository construye el adaptador. Pasar pool o tx (Querier).
func NewRequisitionRepository(q Querier) *RequisitionRepo {
	return &RequisitionRepo{q: q}
}

// Create inserta cabecera y líneas. ErrDuplicateCode si el código ya existe;
// ErrInvalidReference si algún producto no existe.
func (r *RequisitionRepo) Create(ctx context.Context, req *entity.PurchaseRequisition) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_requisitions (`+requisitionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID, req.Code, req.RequesterID, req.JobID, req.Currency, req.TotalEstimated,
		req.Note, string(req.State), req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateCode
		}
		return fmt.Errorf("insert requisition: %w", err)
	}
	for _, l := range req.Lines {
		if !isUUID(l.ProductID) {
			return fmt.Errorf("producto %s: %w", l.ProductID, domain.ErrInvalidReference)
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_requisition_lines (id, requisition_id, seq, product_id, requested_qty, estimated_unit_cost)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			l.ID, req.ID, l.Seq, l.ProductID, l.RequestedQty, l.EstimatedUnitCost,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return fmt.Errorf("producto %s: %w", l.ProductID, domain.ErrInvalidReference)
			case isCheckViolation(err):
				return fmt.Errorf("línea %d: %w", l.Seq, domain.ErrInvalidInput)
			}
			return fmt.Errorf("insert requisition line: %w", err)
		}
	}
	return nil
}

// MaxCodeSequence mayor secuencia numérica entre los códigos con el prefijo.
func (r *RequisitionRepo) MaxCodeSequence(ctx context.Context, prefix string) (int, error) {
	rows, err := r.q.Query(ctx,
		`SELECT code FROM purchase_requisitions WHERE code LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, fmt.Errorf("max requisition code: %w", err)
	}
	defer rows.Close()
	max := 0
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return 0, fmt.Errorf("scan requisition code: %w", err)
		}
		if n, ok := procdomain.ParseSequence(code, prefix); ok && n > max {
			max = n
		}
	}
	return max, rows.Err()
}

// GetByID obtiene la solicitud con sus líneas ordenadas por seq.
func (r *RequisitionRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseRequisition, error) {
	return r.get(ctx, id, false)
}

// GetForUpdate igual que GetByID pero bloquea la cabecera (SELECT ... FOR UPDATE) hasta el fin de la tx.
func (r *RequisitionRepo) GetForUpdate(ctx context.Context, id string) (*entity.PurchaseRequisition, error) {
	return r.get(ctx, id, true)
}

func (r *RequisitionRepo) get(ctx context.Context, id string, forUpdate bool) (*entity.PurchaseRequisition, error) {
	if !isUUID(id) {
		return nil, nil
	}
	query := `SELECT ` + requisitionColumns + ` FROM purchase_requisitions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	var req entity.PurchaseRequisition
	var state string
	err := r.q.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.Code, &req.RequesterID, &req.JobID, &req.Currency, &req.TotalEstimated,
		&req.Note, &state, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get requisition: %w", err)
	}
	req.State = entity.RequisitionState(state)

	rows, err := r.q.Query(ctx, `
		SELECT id, requisition_id, seq, product_id, requested_qty, estimated_unit_cost
		FROM purchase_requisition_lines WHERE requisition_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get requisition lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.RequisitionLine
		if err := rows.Scan(&l.ID, &l.RequisitionID, &l.Seq, &l.ProductID, &l.RequestedQty, &l.EstimatedUnitCost); err != nil {
			return nil, fmt.Errorf("scan requisition line: %w", err)
		}
		req.Lines = append(req.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate requisition lines: %w", err)
	}
	return &req, nil
}

// UpdateLineCosts persiste el costo estimado de cada línea y el total de la cabecera.
func (r *RequisitionRepo) UpdateLineCosts(ctx context.Context, req *entity.PurchaseRequisition) error {
	for _, l := range req.Lines {
		_, err := r.q.Exec(ctx,
			`UPDATE purchase_requisition_lines SET estimated_unit_cost = $3 WHERE id = $1 AND requisition_id = $2`,
			l.ID, req.ID, l.EstimatedUnitCost,
		)
		if err != nil {
			return fmt.Errorf("update requisition line cost: %w", err)
		}
	}
	cmd, err := r.q.Exec(ctx,
		`UPDATE purchase_requisitions SET total_estimated = $2, updated_at = $3 WHERE id = $1`,
		req.ID, req.TotalEstimated, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update requisition total: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("solicitud %s: %w", req.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateState cambia el estado de la cabecera.
func (r *RequisitionRepo) UpdateState(ctx context.Context, id string, state entity.RequisitionState, at time.Time) error {
	cmd, err := r.q.Exec(ctx,
		`UPDATE purchase_requisitions SET state = $2, updated_at = $3 WHERE id = $1`,
		id, string(state), at,
	)
	if err != nil {
		return fmt.Errorf("update requisition state: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("solicitud %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AppendStateChange registra la transición aplicada (auditoría).
func (r *RequisitionRepo) AppendStateChange(ctx context.Context, change *entity.RequisitionStateChange) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO requisition_state_changes (id, requisition_id, from_state, to_state, note, changed_by, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		change.ID, change.RequisitionID, string(change.From), string(change.To),
		change.Note, change.ChangedBy, change.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("insert requisition state change: %w", err)
	}
	return nil
}
