package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/domain"
	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/event"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
	"github.com/jhoicas/taller-compras/internal/infrastructure/postgres"
	"github.com/jhoicas/taller-compras/pkg/config"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// newTestPool levanta PostgreSQL en un contenedor y aplica las migraciones embebidas.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("integración con PostgreSQL omitida en modo -short")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("compras_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("admin123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Docker no disponible: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, config.DBConfig{DatabaseURL: dsn})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, postgres.Migrate(pool, logger.Nop()))
	// Idempotente: una segunda corrida no cambia nada.
	require.NoError(t, postgres.Migrate(pool, logger.Nop()))
	return pool
}

type seeded struct {
	productA, productB string
	provider           string
}

func seed(t *testing.T, pool *pgxpool.Pool) seeded {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	s := seeded{productA: uuid.NewString(), productB: uuid.NewString(), provider: uuid.NewString()}

	products := postgres.NewProductRepository(pool)
	for i, id := range []string{s.productA, s.productB} {
		require.NoError(t, products.Create(ctx, &entity.Product{
			ID: id, SKU: "SKU-" + id[:8], Name: "Producto", Unit: "UND",
			Cost: decimal.NewFromInt(int64(10 * (i + 1))), CreatedAt: now, UpdatedAt: now,
		}))
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO providers (id, name, tax_id, preferred_currency, active) VALUES ($1, 'Aceros SAS', '900123', 'USD', TRUE)`,
		s.provider)
	require.NoError(t, err)
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPostgres_ProcurementLifecycle(t *testing.T) {
	pool := newTestPool(t)
	s := seed(t, pool)
	tx := postgres.NewTxRunner(pool)
	store := postgres.NewStore(pool)

	guard := authz.NewRoleGuard([]string{"compras"})
	currencies := procurement.NewCatalogCurrencyValidator(store.Currencies, "COP", logger.Nop())
	reqs := procurement.NewRequisitionUseCase(tx, guard, currencies, nil, nil)
	orders := procurement.NewOrderUseCase(tx, guard, currencies, nil, nil, nil)
	receiving := procurement.NewReceivingUseCase(tx, guard, nil, nil, nil, nil)
	recalc := procurement.NewCostRecalculator(tx, guard, nil, nil)
	ctx := authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u-1", Role: "compras"})

	// ── Solicitud con código secuencial ────────────────────────────────────
	jobID := "OT-15"
	first, err := reqs.Create(ctx, procurement.CreateRequisitionInput{
		JobID: &jobID,
		Lines: []procurement.RequisitionLineInput{
			{ProductID: s.productA, Qty: dec("6")},
			{ProductID: s.productA, Qty: dec("4"), EstimatedUnitCost: decPtr("2.5")},
			{ProductID: s.productB, Qty: dec("3")},
		},
	})
	require.NoError(t, err)
	prefix := "SC-" + time.Now().UTC().Format("2006") + "-"
	assert.Equal(t, prefix+"0001", first.Code)

	second, err := reqs.Create(ctx, procurement.CreateRequisitionInput{
		Lines: []procurement.RequisitionLineInput{{ProductID: s.productB, Qty: dec("1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, prefix+"0002", second.Code)

	max, err := store.Requisitions.MaxCodeSequence(context.Background(), prefix)
	require.NoError(t, err)
	assert.Equal(t, 2, max)

	got, err := reqs.Get(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, got.Lines, 3)
	assert.Equal(t, "COP", got.Currency)
	assert.True(t, got.TotalEstimated.Equal(dec("10")), got.TotalEstimated.String())
	assert.Nil(t, got.Lines[0].EstimatedUnitCost)

	require.NoError(t, reqs.SetState(ctx, first.ID, entity.RequisitionPendingGerencia, ""))
	require.NoError(t, reqs.SetState(ctx, first.ID, entity.RequisitionApproved, "ok"))

	// ── OC repartida entre líneas, moneda del proveedor ────────────────────
	created, err := orders.Create(ctx, procurement.CreateOrderInput{
		RequisitionID: first.ID,
		ProviderID:    s.provider,
		Code:          "OC-500",
		Lines: []procurement.OrderLineInput{
			{ProductID: s.productA, Qty: dec("8"), UnitCost: dec("20")},
			{ProductID: s.productB, Qty: dec("3"), UnitCost: dec("5")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", created.Currency)
	assert.True(t, created.Total.Equal(dec("175")))

	order, err := orders.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, order.Lines, 3, "A se reparte en dos líneas de cobertura")
	covered, err := store.Orders.SumCoveredByLine(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, covered[got.Lines[0].ID].Equal(dec("6")))
	assert.True(t, covered[got.Lines[1].ID].Equal(dec("2")))

	_, err = orders.Create(ctx, procurement.CreateOrderInput{
		RequisitionID: first.ID, ProviderID: s.provider, Code: "OC-500",
		Lines: []procurement.OrderLineInput{{ProductID: s.productA, Qty: dec("1"), UnitCost: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCode)

	_, err = orders.Create(ctx, procurement.CreateOrderInput{
		RequisitionID: first.ID, ProviderID: s.provider, Code: "OC-501",
		Lines: []procurement.OrderLineInput{{ProductID: s.productA, Qty: dec("3"), UnitCost: dec("1")}},
	})
	assert.ErrorIs(t, err, domain.ErrAllocationShortfall)

	// ── Recepción parcial que falla no deja rastro ─────────────────────────
	_, err = receiving.Receive(ctx, procurement.ReceiveInput{
		OrderID: created.ID,
		Items: []procurement.ReceiveItem{
			{ProductID: s.productA, Qty: dec("2")},
			{ProductID: s.productB, Qty: dec("9")},
		},
	})
	assert.ErrorIs(t, err, domain.ErrOverReceipt)
	movs, err := store.Movements.ListByReference(context.Background(), entity.ReferencePurchaseOrder, "OC-500")
	require.NoError(t, err)
	assert.Empty(t, movs)

	// ── Recepción parcial y total ──────────────────────────────────────────
	res, err := receiving.Receive(ctx, procurement.ReceiveInput{
		OrderID:    created.ID,
		InvoiceRef: strPtr("FV-1"),
		Items:      []procurement.ReceiveItem{{ProductID: s.productA, Qty: dec("5")}},
	})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderPartial, res.NewState)
	require.NotEmpty(t, res.JobCostEventID)

	ev, err := store.Outbox.GetByID(context.Background(), res.JobCostEventID)
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, entity.OutboxPending, ev.Status)
	payload, err := event.DecodeJobCostRecompute(ev.Version, ev.Payload)
	require.NoError(t, err)
	assert.Equal(t, "OT-15", payload.JobID)

	due, err := store.Outbox.ListDue(context.Background(), time.Now().UTC().Add(time.Second), 10)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	res, err = receiving.Receive(ctx, procurement.ReceiveInput{OrderID: created.ID})
	require.NoError(t, err)
	assert.Equal(t, entity.OrderReceived, res.NewState)
	assert.Len(t, res.Movements, 2)

	order, err = orders.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, order.InvoiceRef)
	assert.Equal(t, "FV-1", *order.InvoiceRef, "una recepción sin factura conserva la anterior")

	received, err := store.Movements.SumByReference(context.Background(), entity.ReferencePurchaseOrder, "OC-500")
	require.NoError(t, err)
	assert.True(t, received[s.productA].Equal(dec("8")))
	assert.True(t, received[s.productB].Equal(dec("3")))

	a, err := store.Products.GetByID(context.Background(), s.productA)
	require.NoError(t, err)
	assert.True(t, a.Cost.Equal(dec("20")), a.Cost.String())

	onHand, err := store.Movements.OnHand(context.Background(), s.productA)
	require.NoError(t, err)
	assert.True(t, onHand.Equal(dec("8")))

	// ── Recálculo masivo idempotente ───────────────────────────────────────
	out, err := recalc.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, out.UpdatedCount)
	again, err := recalc.RecalculateAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, out.UpdatedCount, again.UpdatedCount)
	b, err := store.Products.GetByID(context.Background(), s.productB)
	require.NoError(t, err)
	assert.True(t, b.Cost.Equal(dec("5")), b.Cost.String())
}

func TestPostgres_RepositoryEdgeCases(t *testing.T) {
	pool := newTestPool(t)
	s := seed(t, pool)
	ctx := context.Background()
	store := postgres.NewStore(pool)

	p, err := store.Products.GetByID(ctx, "no-es-uuid")
	require.NoError(t, err)
	assert.Nil(t, p)

	prov, err := store.Providers.GetByID(ctx, s.provider)
	require.NoError(t, err)
	require.NotNil(t, prov)
	assert.Equal(t, "USD", prov.PreferredCurrency)

	active, err := store.Currencies.IsActive(ctx, "COP")
	require.NoError(t, err)
	assert.True(t, active)
	active, err = store.Currencies.IsActive(ctx, "XXX")
	require.NoError(t, err)
	assert.False(t, active)

	err = store.Movements.Create(ctx, &entity.InventoryMovement{
		Date: time.Now().UTC(), ProductID: uuid.NewString(), Type: entity.MovementAdjustmentIn,
		Quantity: dec("1"), CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidReference)

	err = store.Products.UpdateCost(ctx, uuid.NewString(), dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Rollback: el error dentro de Run descarta lo escrito.
	runner := postgres.NewTxRunner(pool)
	err = runner.Run(ctx, func(st repository.Store) error {
		if err := st.Products.UpdateCost(ctx, s.productA, dec("999")); err != nil {
			return err
		}
		return domain.ErrConflict
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	p, err = store.Products.GetByID(ctx, s.productA)
	require.NoError(t, err)
	assert.True(t, p.Cost.Equal(dec("10")), p.Cost.String())
}

func decPtr(s string) *decimal.Decimal {
	v := dec(s)
	return &v
}

func strPtr(s string) *string { return &s }
