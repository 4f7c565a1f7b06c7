// Package authz lleva el principal autenticado en el context y ofrece la guarda de escritura de compras.
package authz

import (
	"context"
	"strings"

	"github.com/jhoicas/taller-compras/internal/domain"
)

// Principal usuario autenticado que ejecuta la operación.
type Principal struct {
	UserID string
	Role   string
}

type principalKey struct{}

// WithPrincipal adjunta el principal al context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext devuelve el principal si existe.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}

// UserID del principal o "" si no hay.
func UserID(ctx context.Context) string {
	p, _ := FromContext(ctx)
	return p.UserID
}

// RoleGuard permite escribir compras solo a los roles configurados.
type RoleGuard struct {
	roles map[string]struct{}
}

// NewRoleGuard construye la guarda (roles sin distinguir mayúsculas).
func NewRoleGuard(writeRoles []string) *RoleGuard {
	m := make(map[string]struct{}, len(writeRoles))
	for _, r := range writeRoles {
		m[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	return &RoleGuard{roles: m}
}

// AssertCanWritePurchases ErrUnauthorized sin principal; ErrForbidden si el rol no está permitido.
func (g *RoleGuard) AssertCanWritePurchases(ctx context.Context) error {
	p, ok := FromContext(ctx)
	if !ok {
		return domain.ErrUnauthorized
	}
	if _, allowed := g.roles[strings.ToLower(p.Role)]; !allowed {
		return domain.ErrForbidden
	}
	return nil
}
