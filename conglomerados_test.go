package conglomerados_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	conglomerados "github.com/ifn-colombia/conglomerados"
)

func TestNewSQLiteServiceFlujoBasico(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	svc, err := conglomerados.NewSQLiteService(db, conglomerados.Options{})
	require.NoError(t, err)

	ctx := context.Background()
	lote, err := svc.GenerarLote(ctx, "coord-1", 2)
	require.NoError(t, err)
	require.Equal(t, 2, lote.Creados)

	pagina, err := svc.Listar(ctx, conglomerados.ListOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, pagina.Total)
	require.Equal(t, conglomerados.EstadoSinAsignar, pagina.Data[0].Estado)

	asignado, err := svc.AsignarLote(ctx, "admin-1", "coord-2", 1, 10)
	require.NoError(t, err)
	require.Len(t, asignado.Asignados, 1)
	require.Equal(t, conglomerados.EstadoEnRevision, asignado.Asignados[0].Estado)
}
