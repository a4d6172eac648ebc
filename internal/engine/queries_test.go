package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

func TestListarPaginacion(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	_, err := s.GenerarLote(ctx, "coord-1", 25)
	require.NoError(t, err)

	pagina, err := s.Listar(ctx, api.ListOptions{Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Equal(t, 25, pagina.Total)
	require.Equal(t, 2, pagina.Page)
	require.Equal(t, 10, pagina.Limit)
	require.Equal(t, 3, pagina.TotalPages)
	require.Len(t, pagina.Data, 10)

	// Out-of-range values fall back to sane defaults.
	pagina, err = s.Listar(ctx, api.ListOptions{Page: -3, Limit: 0})
	require.NoError(t, err)
	require.Equal(t, 1, pagina.Page)
	require.Equal(t, limitePorDefecto, pagina.Limit)

	pagina, err = s.Listar(ctx, api.ListOptions{Page: 1, Limit: 5000})
	require.NoError(t, err)
	require.Equal(t, limiteMaximo, pagina.Limit)
}

func TestListarBusquedaPorCodigo(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	lote, err := s.GenerarLote(ctx, "coord-1", 3)
	require.NoError(t, err)
	objetivo := lote.Conglomerados[1]

	pagina, err := s.Listar(ctx, api.ListOptions{Busqueda: objetivo.Codigo[5:]})
	require.NoError(t, err)
	require.Equal(t, 1, pagina.Total)
	require.Equal(t, objetivo.ID, pagina.Data[0].ID)
}

func TestGetYGetPorCodigoConSubparcelas(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	c := generar(t, s, 1)[0]

	detalle, err := s.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, detalle.Subparcelas, api.SubparcelasPorConglomerado)

	porCodigo, err := s.GetPorCodigo(ctx, c.Codigo)
	require.NoError(t, err)
	require.Equal(t, c.ID, porCodigo.ID)
	require.Len(t, porCodigo.Subparcelas, api.SubparcelasPorConglomerado)

	_, err = s.Get(ctx, "no-existe")
	require.True(t, api.EsKind(err, api.KindNotFound), "err=%v", err)

	_, err = s.GetPorCodigo(ctx, "CONG-ZZZZZZ")
	require.True(t, api.EsKind(err, api.KindNotFound), "err=%v", err)
}

func TestVencidos(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	generar(t, s, 2)

	inicio := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	s.ahora = func() time.Time { return inicio }
	lote, err := s.AsignarLote(ctx, "admin-1", "coord-1", 2, 10)
	require.NoError(t, err)
	require.Len(t, lote.Asignados, 2)

	vencidos, err := s.Vencidos(ctx, inicio.Add(5*24*time.Hour))
	require.NoError(t, err)
	require.Empty(t, vencidos)

	vencidos, err = s.Vencidos(ctx, inicio.Add(11*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, vencidos, 2)
}

func TestEstadisticas(t *testing.T) {
	s, _, _, _ := nuevoServicio(t, Config{})
	ctx := context.Background()

	generar(t, s, 4)
	_, err := s.AsignarLote(ctx, "admin-1", "coord-1", 1, 10)
	require.NoError(t, err)

	est, err := s.Estadisticas(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, est.Total)
	require.Equal(t, 3, est.PorEstado[api.EstadoSinAsignar])
	require.Equal(t, 1, est.PorEstado[api.EstadoEnRevision])
	require.Equal(t, 0, est.PorEstado[api.EstadoAprobado])
}
