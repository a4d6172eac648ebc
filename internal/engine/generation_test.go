package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ifn-colombia/conglomerados/internal/geo"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

func TestGenerarLoteCreaConSubparcelas(t *testing.T) {
	s, store, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	lote, err := s.GenerarLote(ctx, "coord-1", 3)
	require.NoError(t, err)
	require.Equal(t, 3, lote.Creados)
	require.Len(t, lote.Conglomerados, 3)
	require.Equal(t, MaxConglomeradosDefault-3, lote.HeadroomRestante)

	vistos := map[string]bool{}
	for _, c := range lote.Conglomerados {
		require.True(t, geo.CodigoValido(c.Codigo), "código %q", c.Codigo)
		require.False(t, vistos[c.Codigo], "código repetido %q", c.Codigo)
		vistos[c.Codigo] = true

		require.True(t, geo.EnEnvolvente(c.Latitud, c.Longitud))
		require.Equal(t, api.EstadoSinAsignar, c.Estado)
		require.True(t, c.Activo)
		require.False(t, c.TieneBrigada)
		require.Equal(t, "coord-1", c.CoordinadorID)

		subs, err := store.Subparcelas(ctx, c.ID)
		require.NoError(t, err)
		require.Len(t, subs, api.SubparcelasPorConglomerado)

		esperadas := geo.CoordenadasSubparcelas(c.Latitud, c.Longitud)
		for i, sp := range subs {
			require.Equal(t, i+1, sp.Num)
			require.Equal(t, esperadas[i].Latitud, sp.LatitudPrediligenciada)
			require.Equal(t, esperadas[i].Longitud, sp.LongitudPrediligenciada)
			require.False(t, sp.Registrada())
		}
	}
}

func TestGenerarLoteValidaciones(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	_, err := s.GenerarLote(ctx, "coord-1", 0)
	require.True(t, api.EsKind(err, api.KindValidation), "err=%v", err)

	_, err = s.GenerarLote(ctx, "coord-1", MaxGeneracionPorSolicitud+1)
	require.True(t, api.EsKind(err, api.KindValidation), "err=%v", err)

	_, err = s.GenerarLote(ctx, "", 5)
	require.True(t, api.EsKind(err, api.KindValidation), "err=%v", err)
}

func TestGenerarLoteRecortaAlHeadroom(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{MaxConglomerados: 10})
	ctx := context.Background()

	_, err := s.GenerarLote(ctx, "coord-1", 8)
	require.NoError(t, err)

	// Asking for 5 with only 2 of headroom clamps silently.
	lote, err := s.GenerarLote(ctx, "coord-1", 5)
	require.NoError(t, err)
	require.Equal(t, 2, lote.Creados)
	require.Equal(t, 0, lote.HeadroomRestante)

	// At zero headroom the request fails before touching the store.
	_, err = s.GenerarLote(ctx, "coord-1", 1)
	require.True(t, api.EsKind(err, api.KindCapacity), "err=%v", err)

	var domErr *api.Error
	require.ErrorAs(t, err, &domErr)
	require.Equal(t, 10, domErr.Detalles["maximo"])
}

func TestGenerarLoteMultiplesLotesInternos(t *testing.T) {
	s, store, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	// 120 spans three internal insert batches.
	lote, err := s.GenerarLote(ctx, "coord-1", 120)
	require.NoError(t, err)
	require.Equal(t, 120, lote.Creados)

	n, err := store.ContarVivos(ctx)
	require.NoError(t, err)
	require.Equal(t, 120, n)
}
