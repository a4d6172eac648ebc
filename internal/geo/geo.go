// Package geo generates cluster codes and in-envelope coordinates, and
// derives the fixed sub-plot offsets around a cluster center.
package geo

import (
	"fmt"
	"math/rand"
	"regexp"
	"strconv"
	"strings"
)

// National territory envelope (Colombia).
const (
	LatMin = -4.23
	LatMax = 12.47
	LonMin = -79.02
	LonMax = -66.85
)

// Sub-plot geometry: 80 m offsets in the four cardinal directions around the
// center, converted with 1 degree ≈ 111 km.
const (
	DistanciaSubparcelaMetros = 80.0
	gradosPorMetro            = 1.0 / 111000.0
)

const (
	codigoPrefijo  = "CONG-"
	codigoCaracts  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codigoLongitud = 6
)

// Coordenadas is a decimal-degrees pair.
type Coordenadas struct {
	Latitud  float64
	Longitud float64
}

// GenerarCodigo returns a candidate cluster code of the form CONG-XXXXXX.
// Uniqueness is probabilistic (36^6 keyspace); callers must verify against
// the store and regenerate on collision.
func GenerarCodigo() string {
	var b strings.Builder
	b.WriteString(codigoPrefijo)
	for i := 0; i < codigoLongitud; i++ {
		b.WriteByte(codigoCaracts[rand.Intn(len(codigoCaracts))])
	}
	return b.String()
}

var codigoRe = regexp.MustCompile(`^CONG-[A-Z0-9]{6}$`)

// CodigoValido reports whether s matches the cluster code format.
func CodigoValido(s string) bool { return codigoRe.MatchString(s) }

// GenerarCoordenadas returns a uniformly random point inside the national
// envelope, rounded to 6 decimals like the rest of the system stores them.
func GenerarCoordenadas() Coordenadas {
	return Coordenadas{
		Latitud:  redondear6(LatMin + rand.Float64()*(LatMax-LatMin)),
		Longitud: redondear6(LonMin + rand.Float64()*(LonMax-LonMin)),
	}
}

// EnEnvolvente reports whether the point falls inside the national envelope.
func EnEnvolvente(lat, lon float64) bool {
	return lat >= LatMin && lat <= LatMax && lon >= LonMin && lon <= LonMax
}

// CoordenadasSubparcelas derives the 5 sub-plot points for a cluster center:
// SPF1 center, SPF2 north, SPF3 east, SPF4 south, SPF5 west, each offset
// DistanciaSubparcelaMetros from the center.
func CoordenadasSubparcelas(latCentral, lonCentral float64) [5]Coordenadas {
	d := DistanciaSubparcelaMetros * gradosPorMetro
	return [5]Coordenadas{
		{Latitud: redondear6(latCentral), Longitud: redondear6(lonCentral)},
		{Latitud: redondear6(latCentral + d), Longitud: redondear6(lonCentral)},
		{Latitud: redondear6(latCentral), Longitud: redondear6(lonCentral + d)},
		{Latitud: redondear6(latCentral - d), Longitud: redondear6(lonCentral)},
		{Latitud: redondear6(latCentral), Longitud: redondear6(lonCentral - d)},
	}
}

var dmsRe = regexp.MustCompile(`^\s*(\d{1,3})°\s*(\d{1,2})['′]\s*([\d.]+)["″]\s*([NSEWO])\s*$`)

// ParseCoordenada accepts either a decimal-degrees value ("4.5709") or a
// degrees-minutes-seconds string (`4°34'15.2"N`) and returns decimal degrees.
// The O cardinal (oeste) is treated as W.
func ParseCoordenada(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	m := dmsRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("coordenada no reconocida: %q", s)
	}

	grados, _ := strconv.ParseFloat(m[1], 64)
	minutos, _ := strconv.ParseFloat(m[2], 64)
	segundos, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return 0, fmt.Errorf("coordenada no reconocida: %q", s)
	}
	if minutos >= 60 || segundos >= 60 {
		return 0, fmt.Errorf("coordenada fuera de rango: %q", s)
	}

	v := grados + minutos/60 + segundos/3600
	switch m[4] {
	case "S", "W", "O":
		v = -v
	}
	return v, nil
}

func redondear6(v float64) float64 {
	s := strconv.FormatFloat(v, 'f', 6, 64)
	r, _ := strconv.ParseFloat(s, 64)
	return r
}
