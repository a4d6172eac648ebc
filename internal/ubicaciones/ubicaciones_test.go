package ubicaciones

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestResolverJerarquia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/municipios/mun-91001", r.URL.Path)
		require.Equal(t, "jerarquia", r.URL.Query().Get("expandir"))
		_ = json.NewEncoder(w).Encode(Jerarquia{
			MunicipioID:    "mun-91001",
			Municipio:      "Leticia",
			DepartamentoID: "dep-91",
			Departamento:   "Amazonas",
			RegionID:       "reg-amazonia",
			Region:         "Amazonía",
		})
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, 2*time.Second)
	j, err := c.ResolverJerarquia(context.Background(), "mun-91001")
	require.NoError(t, err)
	require.Equal(t, "dep-91", j.DepartamentoID)
	require.Equal(t, "reg-amazonia", j.RegionID)
}

func TestResolverJerarquiaNoEncontrada(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, 2*time.Second)
	_, err := c.ResolverJerarquia(context.Background(), "mun-nope")
	require.ErrorIs(t, err, ErrNoEncontrada)
}

func TestResolverJerarquiaIncompleta(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		// A municipio without región cannot classify a conglomerado.
		_ = json.NewEncoder(w).Encode(Jerarquia{MunicipioID: "mun-1", DepartamentoID: "dep-1"})
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, 2*time.Second)
	_, err := c.ResolverJerarquia(context.Background(), "mun-1")
	require.ErrorIs(t, err, ErrNoEncontrada)
}

func TestResolverJerarquiaReintentaTransitorios(t *testing.T) {
	var llamadas atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if llamadas.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(Jerarquia{
			MunicipioID:    "mun-1",
			DepartamentoID: "dep-1",
			RegionID:       "reg-1",
		})
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, 2*time.Second)
	j, err := c.ResolverJerarquia(context.Background(), "mun-1")
	require.NoError(t, err)
	require.Equal(t, "reg-1", j.RegionID)
	require.EqualValues(t, 2, llamadas.Load())
}
