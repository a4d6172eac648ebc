package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ifn-colombia/conglomerados/internal/identity"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

type claveContexto int

const claveUsuario claveContexto = iota

// usuarioDe returns the authenticated caller placed in ctx by autenticar.
func usuarioDe(ctx context.Context) *identity.Usuario {
	u, _ := ctx.Value(claveUsuario).(*identity.Usuario)
	return u
}

// autenticar verifies the bearer token and stores the caller in the request
// context. Collaborator outages answer 503, not 401, so clients can tell a
// bad credential from a bad day.
func (s *Server) autenticar(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" || token == r.Header.Get("Authorization") {
			s.escribirError(w, api.Unauthorizedf("token de autorización requerido"))
			return
		}

		u, err := s.verificador.VerificarToken(r.Context(), token)
		if err != nil {
			if errors.Is(err, identity.ErrTokenInvalido) {
				s.escribirError(w, api.Unauthorizedf("token inválido o expirado"))
				return
			}
			s.escribirError(w, api.Dependency(err, "servicio de autenticación no disponible"))
			return
		}

		ctx := context.WithValue(r.Context(), claveUsuario, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requiereRol gates a route on an active role membership. The denial carries
// the caller's actual active roles for diagnostics.
func (s *Server) requiereRol(codigo string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u := usuarioDe(r.Context())
			if u == nil {
				s.escribirError(w, api.Unauthorizedf("token de autorización requerido"))
				return
			}

			cuentas, err := s.roles.RolesDe(r.Context(), u.ID, "")
			if err != nil {
				s.escribirError(w, api.Dependency(err, "servicio de usuarios no disponible"))
				return
			}
			if !identity.TieneRol(cuentas, codigo) {
				s.escribirError(w, api.Forbiddenf("se requiere el rol %s", codigo).
					Con("user_roles", identity.Activos(cuentas)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
