package procurement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jhoicas/taller-compras/internal/domain"
)

// MaxCodeAttempts intentos de asignación de código antes de crear sin código.
const MaxCodeAttempts = 5

// CodePrefix prefijo de año: "SC-2026-".
func CodePrefix(kind string, year int) string {
	return fmt.Sprintf("%s-%d-", kind, year)
}

// FormatCode arma el código con secuencia de 4 dígitos: SC-2026-0007.
func FormatCode(kind string, year, seq int) string {
	return fmt.Sprintf("%s%04d", CodePrefix(kind, year), seq)
}

// ParseSequence extrae la secuencia de un código con el prefijo dado.
func ParseSequence(code, prefix string) (int, bool) {
	if !strings.HasPrefix(code, prefix) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(code, prefix))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// CodeAttempt intenta crear el registro con la secuencia candidata. Debe devolver
// domain.ErrDuplicateCode cuando el código ya existe. maxSeq es la secuencia máxima leída en el intento.
type CodeAttempt func(ctx context.Context, candidate func(maxSeq int) int) error

// AssignWithRetry ejecuta attempt hasta maxAttempts veces mientras falle por código duplicado.
// La candidata es max(maxSeq+1, última candidata+1). Devuelve assigned=false cuando se agotan
// los intentos; el llamador decide el camino alterno (crear sin código).
func AssignWithRetry(ctx context.Context, maxAttempts int, attempt CodeAttempt) (assigned bool, err error) {
	last := 0
	for i := 0; i < maxAttempts; i++ {
		next := func(maxSeq int) int {
			c := maxSeq + 1
			if c <= last {
				c = last + 1
			}
			last = c
			return c
		}
		err := attempt(ctx, next)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, domain.ErrDuplicateCode) {
			return false, err
		}
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
	}
	return false, nil
}
