// Package ubicaciones consults the external geographic hierarchy service:
// municipio → departamento → región. The service only stores the resolved
// ids as weak references.
package ubicaciones

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go"
)

// ErrNoEncontrada is returned when a municipio does not resolve to a full
// hierarchy.
var ErrNoEncontrada = errors.New("ubicación no encontrada")

// Jerarquia is the resolved geographic classification of a point.
type Jerarquia struct {
	MunicipioID    string `json:"municipio_id"`
	Municipio      string `json:"municipio"`
	DepartamentoID string `json:"departamento_id"`
	Departamento   string `json:"departamento"`
	RegionID       string `json:"region_id"`
	Region         string `json:"region"`
}

// Resolver resolves the geographic hierarchy of a municipio.
type Resolver interface {
	ResolverJerarquia(ctx context.Context, municipioID string) (*Jerarquia, error)
}

// Cliente is the HTTP Resolver against the ubicaciones service.
type Cliente struct {
	base string
	hc   *http.Client
}

var _ Resolver = (*Cliente)(nil)

// NewCliente returns a Resolver that calls the ubicaciones service at base
// (for example "http://ubicaciones:3002").
func NewCliente(base string, timeout time.Duration) *Cliente {
	return &Cliente{
		base: base,
		hc:   &http.Client{Timeout: timeout},
	}
}

// ResolverJerarquia fetches municipio/{id} with its departamento and región
// expanded. A 404 maps to ErrNoEncontrada; transient failures are retried.
func (c *Cliente) ResolverJerarquia(ctx context.Context, municipioID string) (*Jerarquia, error) {
	u := fmt.Sprintf("%s/api/municipios/%s?expandir=jerarquia", c.base, url.PathEscape(municipioID))

	var j Jerarquia
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.hc.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()

			switch {
			case resp.StatusCode == http.StatusNotFound:
				return retry.Unrecoverable(ErrNoEncontrada)
			case resp.StatusCode >= 500:
				return fmt.Errorf("ubicaciones respondió %d", resp.StatusCode)
			case resp.StatusCode != http.StatusOK:
				return retry.Unrecoverable(fmt.Errorf("ubicaciones respondió %d", resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(&j)
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}

	if j.MunicipioID == "" || j.DepartamentoID == "" || j.RegionID == "" {
		return nil, ErrNoEncontrada
	}
	return &j, nil
}
