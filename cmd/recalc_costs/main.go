// recalc_costs reconstruye el costo promedio de todos los productos desde el libro de movimientos.
// Se usa tras cargas históricas o cambios de fórmula; la recepción normal no lo necesita.
//
// Uso: go run ./cmd/recalc_costs
// Lee la misma configuración que la API (DATABASE_URL / DB_*, PROCUREMENT_WRITE_ROLES).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/internal/infrastructure/postgres"
	"github.com/jhoicas/taller-compras/pkg/config"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Conexión a PostgreSQL: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(pool, log); err != nil {
			fmt.Fprintf(os.Stderr, "Migraciones: %v\n", err)
			os.Exit(1)
		}
	}

	// Principal de sistema con el primer rol de escritura configurado.
	ctx = authz.WithPrincipal(ctx, authz.Principal{
		UserID: "system:recalc_costs",
		Role:   cfg.Procurement.WriteRoles[0],
	})

	recalc := procurement.NewCostRecalculator(
		postgres.NewTxRunner(pool),
		authz.NewRoleGuard(cfg.Procurement.WriteRoles),
		nil,
		log,
	)
	res, err := recalc.RecalculateAll(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Recalcular costos: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Productos actualizados: %d\n", res.UpdatedCount)
	fmt.Printf("Productos sin recepciones: %d\n", res.SkippedCount)
}
