package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerarCodigoFormato(t *testing.T) {
	t.Parallel()

	vistos := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		c := GenerarCodigo()
		require.True(t, CodigoValido(c), "código fuera de formato: %q", c)
		vistos[c] = true
	}
	// 1000 draws from a 36^6 keyspace should essentially never collide.
	require.Greater(t, len(vistos), 990)
}

func TestGenerarCoordenadasEnEnvolvente(t *testing.T) {
	t.Parallel()

	for i := 0; i < 1000; i++ {
		c := GenerarCoordenadas()
		require.True(t, EnEnvolvente(c.Latitud, c.Longitud),
			"fuera de envolvente: %+v", c)
		require.Negative(t, c.Longitud, "la longitud debe ser negativa")
	}
}

func TestCoordenadasSubparcelas(t *testing.T) {
	t.Parallel()

	lat, lon := 4.5709, -74.2973
	spf := CoordenadasSubparcelas(lat, lon)
	d := DistanciaSubparcelaMetros / 111000.0

	require.InDelta(t, lat, spf[0].Latitud, 1e-6, "SPF1 centro")
	require.InDelta(t, lon, spf[0].Longitud, 1e-6)

	require.InDelta(t, lat+d, spf[1].Latitud, 1e-6, "SPF2 norte")
	require.InDelta(t, lon, spf[1].Longitud, 1e-6)

	require.InDelta(t, lat, spf[2].Latitud, 1e-6, "SPF3 este")
	require.InDelta(t, lon+d, spf[2].Longitud, 1e-6)

	require.InDelta(t, lat-d, spf[3].Latitud, 1e-6, "SPF4 sur")
	require.InDelta(t, lon, spf[3].Longitud, 1e-6)

	require.InDelta(t, lat, spf[4].Latitud, 1e-6, "SPF5 oeste")
	require.InDelta(t, lon-d, spf[4].Longitud, 1e-6)

	// Exactly 4 points sit at the fixed offset from the center, one at the
	// center itself.
	enOffset := 0
	for _, p := range spf[1:] {
		dist := math.Hypot(p.Latitud-lat, p.Longitud-lon)
		require.InDelta(t, d, dist, 1e-6)
		enOffset++
	}
	require.Equal(t, 4, enOffset)
}

func TestParseCoordenada(t *testing.T) {
	t.Parallel()

	casos := []struct {
		in   string
		want float64
	}{
		{"4.5709", 4.5709},
		{"-74.2973", -74.2973},
		{`4°34'15.2"N`, 4 + 34.0/60 + 15.2/3600},
		{`74°17'50.3"W`, -(74 + 17.0/60 + 50.3/3600)},
		{`74°17'50.3"O`, -(74 + 17.0/60 + 50.3/3600)},
		{`2°10'0"S`, -(2 + 10.0/60)},
	}
	for _, c := range casos {
		got, err := ParseCoordenada(c.in)
		require.NoError(t, err, "entrada %q", c.in)
		require.InDelta(t, c.want, got, 1e-6, "entrada %q", c.in)
	}

	for _, malo := range []string{"", "norte", `4°72'00"N`, `4°10'99"N`} {
		_, err := ParseCoordenada(malo)
		require.Error(t, err, "entrada %q debería fallar", malo)
	}
}
