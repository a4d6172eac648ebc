package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
)

// ClienteAuth verifies bearer tokens against the authentication provider
// (GET /auth/v1/user with the caller's token).
type ClienteAuth struct {
	base string
	hc   *http.Client
}

var _ Verificador = (*ClienteAuth)(nil)

func NewClienteAuth(base string, timeout time.Duration) *ClienteAuth {
	return &ClienteAuth{base: base, hc: &http.Client{Timeout: timeout}}
}

func (c *ClienteAuth) VerificarToken(ctx context.Context, token string) (*Usuario, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/auth/v1/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, ErrTokenInvalido
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("auth respondió %d", resp.StatusCode)
	}

	var u Usuario
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	if u.ID == "" {
		return nil, ErrTokenInvalido
	}
	return &u, nil
}

// ClienteRoles consults the usuarios service for role memberships. It
// authenticates with a service-level token, not the caller's credential, so
// the port stays a pure capability lookup.
type ClienteRoles struct {
	base  string
	token string
	hc    *http.Client
}

var _ Roles = (*ClienteRoles)(nil)

func NewClienteRoles(base, serviceToken string, timeout time.Duration) *ClienteRoles {
	return &ClienteRoles{base: base, token: serviceToken, hc: &http.Client{Timeout: timeout}}
}

func (c *ClienteRoles) get(ctx context.Context, u string, out any) error {
	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			if c.token != "" {
				req.Header.Set("Authorization", "Bearer "+c.token)
			}
			resp, err := c.hc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				// A user without memberships is not an error; callers see
				// an empty set.
				return nil
			case resp.StatusCode >= 500:
				return fmt.Errorf("usuarios respondió %d", resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("usuarios respondió %d", resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

func (c *ClienteRoles) RolesDe(ctx context.Context, userID, regionID string) ([]CuentaRol, error) {
	u := fmt.Sprintf("%s/api/cuentas-rol/usuario/%s", c.base, url.PathEscape(userID))
	if regionID != "" {
		u += "?region_id=" + url.QueryEscape(regionID)
	}
	var cuentas []CuentaRol
	if err := c.get(ctx, u, &cuentas); err != nil {
		return nil, err
	}
	return cuentas, nil
}

func (c *ClienteRoles) UsuariosConRol(ctx context.Context, codigo, regionID string) ([]string, error) {
	u := fmt.Sprintf("%s/api/cuentas-rol/rol/%s/usuarios", c.base, url.PathEscape(codigo))
	if regionID != "" {
		u += "?region_id=" + url.QueryEscape(regionID)
	}
	var ids []string
	if err := c.get(ctx, u, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SelectorPorRol picks a brigade chief among the users holding an active
// JEFE_BRIGADA membership in the conglomerado's region, at random to spread
// the load. Used by the approval flow; its failure is always non-fatal there.
type SelectorPorRol struct {
	Roles Roles
}

var _ SelectorJefeBrigada = (*SelectorPorRol)(nil)

func (s *SelectorPorRol) SeleccionarJefe(ctx context.Context, regionID string) (string, error) {
	ids, err := s.Roles.UsuariosConRol(ctx, RolJefeBrigada, regionID)
	if err != nil {
		return "", err
	}
	if len(ids) == 0 && regionID != "" {
		// Fall back to the national pool when the region has nobody.
		ids, err = s.Roles.UsuariosConRol(ctx, RolJefeBrigada, "")
		if err != nil {
			return "", err
		}
	}
	if len(ids) == 0 {
		return "", ErrSinJefesDisponibles
	}
	return ids[rand.Intn(len(ids))], nil
}
