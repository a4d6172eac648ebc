// Package identity talks to the external authentication and role services.
//
// Two ports are consumed by the rest of the repo: Verificador (bearer token →
// user) and Roles (user → active role codes). Both are external collaborators;
// this service never stores credentials or role rows.
package identity

import (
	"context"
	"errors"
)

// Role codes used by the workflow.
const (
	RolCoordinadorIFN = "COORD_IFN"
	RolJefeBrigada    = "JEFE_BRIGADA"
)

var (
	// ErrTokenInvalido is returned when a bearer token does not verify.
	ErrTokenInvalido = errors.New("token inválido")

	// ErrSinJefesDisponibles is returned by the brigade selector when no
	// active brigade chief can take a conglomerado.
	ErrSinJefesDisponibles = errors.New("no hay jefes de brigada disponibles")
)

// Usuario is the authenticated caller as reported by the identity provider.
type Usuario struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Verificador resolves a bearer token into a user.
type Verificador interface {
	VerificarToken(ctx context.Context, token string) (*Usuario, error)
}

// CuentaRol is one role membership of a user.
type CuentaRol struct {
	Codigo string `json:"codigo"`
	Activo bool   `json:"activo"`
	// RegionID scopes the membership geographically; empty means national.
	RegionID string `json:"region_id,omitempty"`
}

// Roles looks up role memberships in the usuarios service.
type Roles interface {
	// RolesDe returns the active role codes of a user, optionally filtered
	// by region (empty regionID means any).
	RolesDe(ctx context.Context, userID, regionID string) ([]CuentaRol, error)

	// UsuariosConRol lists user ids holding an active membership of the
	// given role, optionally scoped to a region.
	UsuariosConRol(ctx context.Context, codigo, regionID string) ([]string, error)
}

// TieneRol reports whether cuentas contains an active membership of codigo.
func TieneRol(cuentas []CuentaRol, codigo string) bool {
	for _, cr := range cuentas {
		if cr.Activo && cr.Codigo == codigo {
			return true
		}
	}
	return false
}

// Activos returns the active role codes in cuentas, for diagnostics.
func Activos(cuentas []CuentaRol) []string {
	var out []string
	for _, cr := range cuentas {
		if cr.Activo {
			out = append(out, cr.Codigo)
		}
	}
	return out
}

// SelectorJefeBrigada picks a brigade chief for a newly approved
// conglomerado. Used by the approval flow's best-effort downstream
// assignment.
type SelectorJefeBrigada interface {
	SeleccionarJefe(ctx context.Context, regionID string) (string, error)
}
