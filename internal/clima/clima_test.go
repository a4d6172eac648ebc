package clima

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const respuestaActual = `{
	"weather": [{"description": "lluvia moderada"}],
	"main": {"temp": 26.4, "humidity": 88},
	"wind": {"speed": 2.5}
}`

// Two days of 3-hourly slots; the second day carries the worse rain chance.
const respuestaPronostico = `{
	"list": [
		{"dt_txt": "2025-06-02 09:00:00", "weather": [{"description": "nubes"}],
		 "main": {"temp_min": 21.0, "temp_max": 27.0}, "pop": 0.1},
		{"dt_txt": "2025-06-02 15:00:00", "weather": [{"description": "sol"}],
		 "main": {"temp_min": 24.0, "temp_max": 31.5}, "pop": 0.4},
		{"dt_txt": "2025-06-03 09:00:00", "weather": [{"description": "tormenta"}],
		 "main": {"temp_min": 19.5, "temp_max": 25.0}, "pop": 0.9}
	]
}`

func TestReporteColapsaPronosticoPorDia(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "clave-x", r.URL.Query().Get("appid"))
		require.Equal(t, "metric", r.URL.Query().Get("units"))
		switch r.URL.Path {
		case "/data/2.5/weather":
			_, _ = w.Write([]byte(respuestaActual))
		case "/data/2.5/forecast":
			_, _ = w.Write([]byte(respuestaPronostico))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, "clave-x", 2*time.Second)
	r, err := c.Reporte(context.Background(), 4.57, -74.29)
	require.NoError(t, err)

	require.Equal(t, "lluvia moderada", r.Actual.Descripcion)
	require.Equal(t, 26.4, r.Actual.Temperatura)
	require.Equal(t, 88, r.Actual.Humedad)
	require.InDelta(t, 9.0, r.Actual.VientoKmh, 0.001)

	require.Len(t, r.Pronostico, 2)
	dia1 := r.Pronostico[0]
	require.Equal(t, "2025-06-02", dia1.Fecha)
	require.Equal(t, 21.0, dia1.TempMin)
	require.Equal(t, 31.5, dia1.TempMax)
	require.Equal(t, 0.4, dia1.ProbLluvia)

	dia2 := r.Pronostico[1]
	require.Equal(t, "2025-06-03", dia2.Fecha)
	require.Equal(t, 0.9, dia2.ProbLluvia)
}

func TestReporteErrorNoRecuperable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewCliente(srv.URL, "clave-mala", time.Second)
	_, err := c.Reporte(context.Background(), 4.57, -74.29)
	require.Error(t, err)
}
