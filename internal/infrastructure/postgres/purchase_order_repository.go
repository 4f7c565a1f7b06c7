package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var _ repository.PurchaseOrderRepository = (*PurchaseOrderRepo)(nil)

const orderColumns = `id, code, requisition_id, provider_id, currency, total, state, invoice_ref, created_at, updated_at`

// PurchaseOrderRepo órdenes de compra sobre PostgreSQL (usable con pool o tx).
type PurchaseOrderRepo struct {
	q Querier
}

// NewPurchaseOrderRepository construye el adaptador. Pasar pool o tx (Querier).
func NewPurchaseOrderRepository(q Querier) *PurchaseOrderRepo {
	return &PurchaseOrderRepo{q: q}
}

// Create inserta cabecera y líneas.
//
// Retorna:
//   - domain.ErrDuplicateCode    si el código de la OC ya existe.
//   - domain.ErrInvalidReference si la solicitud, el proveedor, un producto o una línea de cobertura no existen.
func (r *PurchaseOrderRepo) Create(ctx context.Context, order *entity.PurchaseOrder) error {
	if !isUUID(order.RequisitionID) || !isUUID(order.ProviderID) {
		return fmt.Errorf("orden %s: %w", order.Code, domain.ErrInvalidReference)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO purchase_orders (`+orderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, order.Code, order.RequisitionID, order.ProviderID, order.Currency, order.Total,
		string(order.State), order.InvoiceRef, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return domain.ErrDuplicateCode
		case isForeignKeyViolation(err):
			return fmt.Errorf("orden %s: %w", order.Code, domain.ErrInvalidReference)
		}
		return fmt.Errorf("insert purchase order: %w", err)
	}
	for _, l := range order.Lines {
		if !isUUID(l.ProductID) || !isUUID(l.CoverageLineID) {
			return fmt.Errorf("producto %s: %w", l.ProductID, domain.ErrInvalidReference)
		}
		_, err := r.q.Exec(ctx, `
			INSERT INTO purchase_order_lines (id, order_id, seq, product_id, qty, unit_cost, coverage_line_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			l.ID, order.ID, l.Seq, l.ProductID, l.Qty, l.UnitCost, l.CoverageLineID,
		)
		if err != nil {
			switch {
			case isForeignKeyViolation(err):
				return fmt.Errorf("producto %s: %w", l.ProductID, domain.ErrInvalidReference)
			case isCheckViolation(err):
				return fmt.Errorf("línea %d: %w", l.Seq, domain.ErrInvalidInput)
			}
			return fmt.Errorf("insert purchase order line: %w", err)
		}
	}
	return nil
}

// GetByID obtiene la OC con sus líneas ordenadas por seq.
func (r *PurchaseOrderRepo) GetByID(ctx context.Context, id string) (*entity.PurchaseOrder, error) {
	if !isUUID(id) {
		return nil, nil
	}
	var o entity.PurchaseOrder
	var state string
	err := r.q.QueryRow(ctx, `SELECT `+orderColumns+` FROM purchase_orders WHERE id = $1`, id).Scan(
		&o.ID, &o.Code, &o.RequisitionID, &o.ProviderID, &o.Currency, &o.Total,
		&state, &o.InvoiceRef, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get purchase order: %w", err)
	}
	o.State = entity.OrderState(state)

	rows, err := r.q.Query(ctx, `
		SELECT id, order_id, seq, product_id, qty, unit_cost, coverage_line_id
		FROM purchase_order_lines WHERE order_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase order lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Seq, &l.ProductID, &l.Qty, &l.UnitCost, &l.CoverageLineID); err != nil {
			return nil, fmt.Errorf("scan purchase order line: %w", err)
		}
		o.Lines = append(o.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate purchase order lines: %w", err)
	}
	return &o, nil
}

// CountByRequisition número de órdenes emitidas desde la solicitud.
func (r *PurchaseOrderRepo) CountByRequisition(ctx context.Context, requisitionID string) (int, error) {
	if !isUUID(requisitionID) {
		return 0, nil
	}
	var n int
	err := r.q.QueryRow(ctx,
		`SELECT COUNT(*) FROM purchase_orders WHERE requisition_id = $1`, requisitionID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count purchase orders: %w", err)
	}
	return n, nil
}

// SumCoveredByLine cantidad ya ordenada por línea de la solicitud, sumando todas sus OC.
func (r *PurchaseOrderRepo) SumCoveredByLine(ctx context.Context, requisitionID string) (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal)
	if !isUUID(requisitionID) {
		return out, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT l.coverage_line_id, SUM(l.qty)
		FROM purchase_order_lines l
		JOIN purchase_orders o ON o.id = l.order_id
		WHERE o.requisition_id = $1
		GROUP BY l.coverage_line_id`, requisitionID)
	if err != nil {
		return nil, fmt.Errorf("sum covered by line: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var lineID string
		var qty decimal.Decimal
		if err := rows.Scan(&lineID, &qty); err != nil {
			return nil, fmt.Errorf("scan covered qty: %w", err)
		}
		out[lineID] = qty
	}
	return out, rows.Err()
}

// UpdateReceipt estado tras una recepción; invoiceRef nil conserva la referencia anterior.
func (r *PurchaseOrderRepo) UpdateReceipt(ctx context.Context, id string, state entity.OrderState, invoiceRef *string, at time.Time) error {
	cmd, err := r.q.Exec(ctx, `
		UPDATE purchase_orders
		SET state = $2, invoice_ref = COALESCE($3, invoice_ref), updated_at = $4
		WHERE id = $1`,
		id, string(state), invoiceRef, at,
	)
	if err != nil {
		return fmt.Errorf("update purchase order receipt: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("orden %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
