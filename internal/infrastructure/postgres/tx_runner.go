package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/taller-compras/internal/application/inventory"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

// Ensure TxRunner implements procurement.TxRunner and inventory.TxRunner.
var (
	_ procurement.TxRunner = (*TxRunner)(nil)
	_ inventory.TxRunner   = (*TxRunner)(nil)
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewStore repositorios atados a q (pool o tx).
func NewStore(q Querier) repository.Store {
	return repository.Store{
		Requisitions: NewRequisitionRepository(q),
		Orders:       NewPurchaseOrderRepository(q),
		Movements:    NewInventoryMovementRepository(q),
		Products:     NewProductRepository(q),
		Providers:    NewProviderRepository(q),
		Currencies:   NewCurrencyRepository(q),
		Outbox:       NewOutboxRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(store repository.Store) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewStore(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
