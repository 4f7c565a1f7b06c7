// Package memory implementa todos los repositorios en memoria con transacciones por copia:
// Run trabaja sobre una copia del estado y solo la publica si fn termina sin error.
// Se usa en pruebas.
package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/taller-compras/internal/domain/entity"
	"github.com/jhoicas/taller-compras/internal/domain/repository"
)

// Operaciones donde se puede inyectar un error con InjectError.
const (
	OpCreateRequisition = "requisitions.Create"
	OpCreateOrder       = "orders.Create"
	OpUpdateReceipt     = "orders.UpdateReceipt"
	OpCreateMovement    = "movements.Create"
	OpUpdateCost        = "products.UpdateCost"
	OpCreateOutbox      = "outbox.Create"
	OpUpdateOutbox      = "outbox.Update"
	OpCurrencyLookup    = "currencies.IsActive"
)

type state struct {
	requisitions map[string]*entity.PurchaseRequisition
	reqIDs       []string
	stateChanges []*entity.RequisitionStateChange
	orders       map[string]*entity.PurchaseOrder
	orderIDs     []string
	movements    []*entity.InventoryMovement
	products     map[string]*entity.Product
	providers    map[string]*entity.Provider
	outbox       map[string]*entity.OutboxEvent
	outboxIDs    []string
}

func newState() *state {
	return &state{
		requisitions: map[string]*entity.PurchaseRequisition{},
		orders:       map[string]*entity.PurchaseOrder{},
		products:     map[string]*entity.Product{},
		providers:    map[string]*entity.Provider{},
		outbox:       map[string]*entity.OutboxEvent{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.requisitions {
		c.requisitions[k] = cloneRequisition(v)
	}
	c.reqIDs = append([]string(nil), s.reqIDs...)
	for _, v := range s.stateChanges {
		cp := *v
		c.stateChanges = append(c.stateChanges, &cp)
	}
	for k, v := range s.orders {
		c.orders[k] = cloneOrder(v)
	}
	c.orderIDs = append([]string(nil), s.orderIDs...)
	for _, v := range s.movements {
		cp := *v
		c.movements = append(c.movements, &cp)
	}
	for k, v := range s.products {
		cp := *v
		c.products[k] = &cp
	}
	for k, v := range s.providers {
		cp := *v
		c.providers[k] = &cp
	}
	for k, v := range s.outbox {
		c.outbox[k] = cloneOutbox(v)
	}
	c.outboxIDs = append([]string(nil), s.outboxIDs...)
	return c
}

// Store estado compartido más los ganchos de prueba.
// El catálogo de monedas no es transaccional y tiene su propio candado.
type Store struct {
	mu             sync.Mutex
	state          *state
	codeCollisions int

	catalogMu  sync.RWMutex
	currencies map[string]bool

	faultMu sync.Mutex
	faults  map[string]error
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{state: newState(), currencies: map[string]bool{}, faults: map[string]error{}}
}

// Run ejecuta fn sobre una copia del estado; la publica solo si fn no devuelve error.
// Las transacciones se serializan.
func (s *Store) Run(ctx context.Context, fn func(store repository.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.state.clone()
	if err := fn(s.bind(work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) bind(st *state) repository.Store {
	return repository.Store{
		Requisitions: &requisitionRepo{s: s, st: st},
		Orders:       &orderRepo{s: s, st: st},
		Movements:    &movementRepo{s: s, st: st},
		Products:     &productRepo{s: s, st: st},
		Providers:    &providerRepo{st: st},
		Currencies:   &currencyRepo{s: s},
		Outbox:       &outboxRepo{s: s, st: st},
	}
}

// Currencies repositorio de monedas fuera de transacción (para el validador de catálogo).
func (s *Store) Currencies() repository.CurrencyRepository {
	return &currencyRepo{s: s}
}

// InjectError hace que la operación op devuelva err hasta que se llame ClearErrors.
func (s *Store) InjectError(op string, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = err
}

// ClearErrors elimina los errores inyectados.
func (s *Store) ClearErrors() {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults = map[string]error{}
}

// ForceCodeCollisions hace que las próximas n inserciones de solicitudes con código fallen
// como código duplicado, igual que una creación concurrente.
func (s *Store) ForceCodeCollisions(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codeCollisions = n
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	return s.faults[op]
}
