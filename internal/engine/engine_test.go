package engine

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/internal/ubicaciones"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

type resolverFijo struct {
	jerarquia *ubicaciones.Jerarquia
	err       error
}

func (r *resolverFijo) ResolverJerarquia(_ context.Context, municipioID string) (*ubicaciones.Jerarquia, error) {
	if r.err != nil {
		return nil, r.err
	}
	j := *r.jerarquia
	j.MunicipioID = municipioID
	return &j, nil
}

type selectorFijo struct {
	jefeID string
	err    error
	// regiones records the region ids asked for, for assertions.
	regiones []string
}

func (s *selectorFijo) SeleccionarJefe(_ context.Context, regionID string) (string, error) {
	s.regiones = append(s.regiones, regionID)
	if s.err != nil {
		return "", s.err
	}
	return s.jefeID, nil
}

func jerarquiaDePrueba() *ubicaciones.Jerarquia {
	return &ubicaciones.Jerarquia{
		Municipio:      "Leticia",
		DepartamentoID: "dep-91",
		Departamento:   "Amazonas",
		RegionID:       "reg-amazonia",
		Region:         "Amazonía",
	}
}

// nuevoServicio wires a Servicio over a fresh in-memory SQLite store. The
// returned resolver and selector are the fakes behind the approval flow.
func nuevoServicio(t *testing.T, cfg Config) (*Servicio, persistence.Store, *resolverFijo, *selectorFijo) {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// Each pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	store, err := persistence.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	resolver := &resolverFijo{jerarquia: jerarquiaDePrueba()}
	selector := &selectorFijo{jefeID: "jefe-1"}

	log := logrus.New()
	log.SetOutput(io.Discard)

	return New(store, resolver, selector, log, cfg), store, resolver, selector
}

// generar creates n conglomerados and returns them oldest first, stepping the
// clock between items so creation order is unambiguous.
func generar(t *testing.T, s *Servicio, n int) []*api.Conglomerado {
	t.Helper()

	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	out := make([]*api.Conglomerado, 0, n)
	for i := 0; i < n; i++ {
		paso := base.Add(time.Duration(i) * time.Minute)
		s.ahora = func() time.Time { return paso }
		lote, err := s.GenerarLote(context.Background(), "coord-gen", 1)
		require.NoError(t, err)
		require.Len(t, lote.Conglomerados, 1)
		out = append(out, lote.Conglomerados[0])
	}
	s.ahora = time.Now
	return out
}

// enRevision puts one fresh conglomerado under review by revisorID and
// returns it.
func enRevision(t *testing.T, s *Servicio, revisorID string) *api.Conglomerado {
	t.Helper()

	generar(t, s, 1)
	lote, err := s.AsignarLote(context.Background(), "admin-1", revisorID, 1, 15)
	require.NoError(t, err)
	require.Len(t, lote.Asignados, 1)
	return lote.Asignados[0]
}
