package authz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/taller-compras/internal/application/authz"
	"github.com/jhoicas/taller-compras/internal/domain"
)

func TestRoleGuard_AssertCanWritePurchases(t *testing.T) {
	guard := authz.NewRoleGuard([]string{"admin", " Compras "})

	tests := []struct {
		name string
		ctx  context.Context
		want error
	}{
		{"sin principal", context.Background(), domain.ErrUnauthorized},
		{"principal sin usuario", authz.WithPrincipal(context.Background(), authz.Principal{Role: "admin"}), domain.ErrUnauthorized},
		{"rol permitido", authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u1", Role: "admin"}), nil},
		{"rol permitido sin distinguir mayúsculas", authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u1", Role: "COMPRAS"}), nil},
		{"rol no permitido", authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u1", Role: "tecnico"}), domain.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := guard.AssertCanWritePurchases(tt.ctx)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestUserID(t *testing.T) {
	assert.Empty(t, authz.UserID(context.Background()))
	ctx := authz.WithPrincipal(context.Background(), authz.Principal{UserID: "u9", Role: "admin"})
	assert.Equal(t, "u9", authz.UserID(ctx))
}
