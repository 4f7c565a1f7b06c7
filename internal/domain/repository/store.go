package repository

// Store agrupa los repositorios atados a una misma transacción (o al pool).
type Store struct {
	Requisitions RequisitionRepository
	Orders       PurchaseOrderRepository
	Movements    InventoryMovementRepository
	Products     ProductRepository
	Providers    ProviderRepository
	Currencies   CurrencyRepository
	Outbox       OutboxRepository
}
