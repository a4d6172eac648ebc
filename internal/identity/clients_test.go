package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClienteAuthVerificarToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/auth/v1/user", r.URL.Path)
		switch r.Header.Get("Authorization") {
		case "Bearer bueno":
			_ = json.NewEncoder(w).Encode(Usuario{ID: "u-1", Email: "coord@ifn.gov.co"})
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	defer srv.Close()

	c := NewClienteAuth(srv.URL, 2*time.Second)

	u, err := c.VerificarToken(context.Background(), "bueno")
	require.NoError(t, err)
	require.Equal(t, "u-1", u.ID)

	_, err = c.VerificarToken(context.Background(), "malo")
	require.ErrorIs(t, err, ErrTokenInvalido)
}

func TestClienteAuthRechazaUsuarioVacio(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(Usuario{})
	}))
	defer srv.Close()

	c := NewClienteAuth(srv.URL, 2*time.Second)
	_, err := c.VerificarToken(context.Background(), "raro")
	require.ErrorIs(t, err, ErrTokenInvalido)
}

func TestClienteRolesRolesDe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/cuentas-rol/usuario/u-1", r.URL.Path)
		require.Equal(t, "Bearer svc-token", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode([]CuentaRol{
			{Codigo: RolCoordinadorIFN, Activo: true},
			{Codigo: RolJefeBrigada, Activo: false},
		})
	}))
	defer srv.Close()

	c := NewClienteRoles(srv.URL, "svc-token", 2*time.Second)
	cuentas, err := c.RolesDe(context.Background(), "u-1", "")
	require.NoError(t, err)
	require.Len(t, cuentas, 2)
	require.True(t, TieneRol(cuentas, RolCoordinadorIFN))
	// Inactive memberships never grant the role.
	require.False(t, TieneRol(cuentas, RolJefeBrigada))
	require.Equal(t, []string{RolCoordinadorIFN}, Activos(cuentas))
}

func TestClienteRolesUsuarioSinCuentas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClienteRoles(srv.URL, "", 2*time.Second)
	cuentas, err := c.RolesDe(context.Background(), "fantasma", "")
	require.NoError(t, err)
	require.Empty(t, cuentas)
}

type rolesEnMemoria struct {
	porRegion map[string][]string
	llamadas  int
}

func (r *rolesEnMemoria) RolesDe(_ context.Context, _, _ string) ([]CuentaRol, error) {
	r.llamadas++
	return nil, nil
}

func (r *rolesEnMemoria) UsuariosConRol(_ context.Context, _, regionID string) ([]string, error) {
	r.llamadas++
	return r.porRegion[regionID], nil
}

func TestSelectorPorRolConRespaldoNacional(t *testing.T) {
	roles := &rolesEnMemoria{porRegion: map[string][]string{
		"":          {"jefe-nacional"},
		"reg-andes": {"jefe-andino"},
	}}
	sel := &SelectorPorRol{Roles: roles}

	jefe, err := sel.SeleccionarJefe(context.Background(), "reg-andes")
	require.NoError(t, err)
	require.Equal(t, "jefe-andino", jefe)

	// An empty regional pool falls back to the national one.
	jefe, err = sel.SeleccionarJefe(context.Background(), "reg-sin-gente")
	require.NoError(t, err)
	require.Equal(t, "jefe-nacional", jefe)
}

func TestSelectorPorRolSinCandidatos(t *testing.T) {
	sel := &SelectorPorRol{Roles: &rolesEnMemoria{porRegion: map[string][]string{}}}
	_, err := sel.SeleccionarJefe(context.Background(), "reg-1")
	require.ErrorIs(t, err, ErrSinJefesDisponibles)
}

func TestRolesConCacheEvitaSegundaConsulta(t *testing.T) {
	roles := &rolesEnMemoria{porRegion: map[string][]string{"": {"jefe-1"}}}
	cacheado := NewRolesConCache(roles, time.Minute)

	for i := 0; i < 3; i++ {
		ids, err := cacheado.UsuariosConRol(context.Background(), RolJefeBrigada, "")
		require.NoError(t, err)
		require.Equal(t, []string{"jefe-1"}, ids)
	}
	require.Equal(t, 1, roles.llamadas)
}
