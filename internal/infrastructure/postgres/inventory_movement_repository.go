package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

const movementColumns = `id, date, product_id, type, quantity, unit_cost, total_cost,
	reference_table, reference_id, note, created_by, created_at`

// InventoryMovementRepo libro de movimientos sobre PostgreSQL (usable con pool o tx). Solo inserta.
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento de inventario.
func (r *InventoryMovementRepo) Create(ctx context.Context, movement *entity.InventoryMovement) error {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	if !isUUID(movement.ProductID) {
		return fmt.Errorf("producto %s: %w", movement.ProductID, domain.ErrInvalidReference)
	}
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		movement.ID, movement.Date, movement.ProductID, movement.Type,
		movement.Quantity, movement.UnitCost, movement.TotalCost,
		movement.ReferenceTable, movement.ReferenceID, movement.Note, movement.CreatedBy, movement.CreatedAt,
	)
	if err != nil {
		switch {
		case isForeignKeyViolation(err):
			return fmt.Errorf("producto %s: %w", movement.ProductID, domain.ErrInvalidReference)
		case isCheckViolation(err):
			return fmt.Errorf("producto %s: %w", movement.ProductID, domain.ErrInvalidInput)
		}
		return fmt.Errorf("create inventory movement: %w", err)
	}
	return nil
}

// SumByReference suma de cantidades por producto para la referencia (p. ej. OC + código).
func (r *InventoryMovementRepo) SumByReference(ctx context.Context, refTable, refID string) (map[string]decimal.Decimal, error) {
	rows, err := r.q.Query(ctx, `
		SELECT product_id, COALESCE(SUM(quantity), 0)
		FROM inventory_movements
		WHERE reference_table = $1 AND reference_id = $2
		GROUP BY product_id`, refTable, refID)
	if err != nil {
		return nil, fmt.Errorf("sum movements by reference: %w", err)
	}
	defer rows.Close()
	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var productID string
		var qty decimal.Decimal
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, fmt.Errorf("scan movement sum: %w", err)
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

// ListRecentPurchaseReceipts últimas recepciones de compra del producto, más reciente primero.
func (r *InventoryMovementRepo) ListRecentPurchaseReceipts(ctx context.Context, productID string, limit int) ([]*entity.InventoryMovement, error) {
	if !isUUID(productID) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM inventory_movements
		WHERE product_id = $1 AND type = $2 AND quantity > 0
		ORDER BY date DESC, seq DESC
		LIMIT $3`, productID, entity.MovementPurchaseReceipt, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent receipts: %w", err)
	}
	return scanMovements(rows)
}

// ListByReference movimientos de la referencia en orden de inserción.
func (r *InventoryMovementRepo) ListByReference(ctx context.Context, refTable, refID string) ([]*entity.InventoryMovement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+movementColumns+`
		FROM inventory_movements
		WHERE reference_table = $1 AND reference_id = $2
		ORDER BY seq`, refTable, refID)
	if err != nil {
		return nil, fmt.Errorf("list movements by reference: %w", err)
	}
	return scanMovements(rows)
}

// OnHand existencias del producto (suma de todas sus cantidades).
func (r *InventoryMovementRepo) OnHand(ctx context.Context, productID string) (decimal.Decimal, error) {
	if !isUUID(productID) {
		return decimal.Zero, nil
	}
	var qty decimal.Decimal
	err := r.q.QueryRow(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM inventory_movements WHERE product_id = $1`, productID,
	).Scan(&qty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("on hand: %w", err)
	}
	return qty, nil
}

func scanMovements(rows pgx.Rows) ([]*entity.InventoryMovement, error) {
	defer rows.Close()
	var list []*entity.InventoryMovement
	for rows.Next() {
		var m entity.InventoryMovement
		if err := rows.Scan(&m.ID, &m.Date, &m.ProductID, &m.Type, &m.Quantity, &m.UnitCost, &m.TotalCost,
			&m.ReferenceTable, &m.ReferenceID, &m.Note, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, &m)
	}
	return list, rows.Err()
}
