package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los handlers los traducen a códigos de respuesta con errors.Is.
var (
	ErrNotFound             = errors.New("recurso no encontrado")
	ErrInvalidInput         = errors.New("entrada inválida")
	ErrDuplicate            = errors.New("recurso duplicado")
	ErrUnauthorized         = errors.New("no autorizado")
	ErrForbidden            = errors.New("acceso denegado")
	ErrConflict             = errors.New("conflicto con el estado actual")
	ErrInvalidState         = errors.New("operación no permitida en el estado actual")
	ErrTransitionNotAllowed = errors.New("transición de estado no permitida")
	ErrAllocationShortfall  = errors.New("cantidad pendiente insuficiente en la solicitud")
	ErrOverReceipt          = errors.New("la cantidad recibida excede lo pendiente")
	ErrUnknownProduct       = errors.New("el producto no pertenece a la orden")
	ErrInvalidQuantity      = errors.New("la cantidad debe ser mayor que cero")
	ErrDuplicateCode        = errors.New("el código ya existe")
	ErrInvalidReference     = errors.New("referencia inválida")
	ErrInsufficientStock    = errors.New("existencias insuficientes")
)

// ValidationError error de validación asociado a un campo de la entrada.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError nombra el par origen/destino rechazado por una máquina de estados.
type TransitionError struct {
	From string
	To   string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("transición no permitida: %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool { return target == ErrTransitionNotAllowed }

// ShortfallError indica qué producto no pudo asignarse completo contra la solicitud.
type ShortfallError struct {
	ProductID string
	Missing   decimal.Decimal
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("producto %s: faltan %s unidades pendientes en la solicitud", e.ProductID, e.Missing.String())
}

func (e *ShortfallError) Is(target error) bool { return target == ErrAllocationShortfall }

// OverReceiptError recepción parcial que supera lo pendiente de un producto.
type OverReceiptError struct {
	ProductID string
	Requested decimal.Decimal
	Pending   decimal.Decimal
}

func (e *OverReceiptError) Error() string {
	return fmt.Sprintf("producto %s: se intentan recibir %s y solo hay %s pendientes",
		e.ProductID, e.Requested.String(), e.Pending.String())
}

func (e *OverReceiptError) Is(target error) bool { return target == ErrOverReceipt }

// ProductError asocia un error de recepción (producto desconocido, cantidad no positiva) a un producto.
type ProductError struct {
	ProductID string
	Err       error
}

func (e *ProductError) Error() string {
	return fmt.Sprintf("producto %s: %s", e.ProductID, e.Err.Error())
}

func (e *ProductError) Unwrap() error { return e.Err }
