package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/taller-compras/internal/application/inventory"
	"github.com/jhoicas/taller-compras/internal/application/procurement"
	"github.com/jhoicas/taller-compras/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Requisitions     *procurement.RequisitionUseCase
	Orders           *procurement.OrderUseCase
	Receiving        *procurement.ReceivingUseCase
	CostRecalculator *procurement.CostRecalculator
	RegisterMovement *inventory.RegisterMovementUseCase
	JWTSecret        string
	// AllowedRoles roles con acceso a /api; vacío = cualquier usuario autenticado con rol.
	AllowedRoles []string
	Logger       *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("http")

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Rutas protegidas (requieren Bearer Token con rol)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret), RequireRole(deps.AllowedRoles...))

	proc := NewProcurementHandler(deps.Requisitions, deps.Orders, deps.Receiving, deps.CostRecalculator, log)

	requisitions := api.Group("/requisitions")
	requisitions.Post("/", proc.CreateRequisition)
	requisitions.Get("/:id", proc.GetRequisition)
	requisitions.Put("/:id/costs", proc.UpdateRequisitionCosts)
	requisitions.Post("/:id/state", proc.SetRequisitionState)

	orders := api.Group("/orders")
	orders.Post("/", proc.CreateOrder)
	orders.Get("/:id", proc.GetOrder)
	orders.Get("/:id/pdf", proc.GetOrderPDF)
	orders.Get("/:id/receipts", proc.ListOrderReceipts)
	orders.Post("/:id/receipts", proc.ReceiveOrder)

	api.Post("/products/costs/recalculate", proc.RecalculateProductCosts)

	// Inventory movements (protegido)
	inventoryHandler := NewInventoryHandler(deps.RegisterMovement, log)
	api.Group("/inventory").Post("/movements", inventoryHandler.RegisterMovement)
}
