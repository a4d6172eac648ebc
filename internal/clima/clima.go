// Package clima is a thin pass-through to the external weather provider:
// current conditions plus a 5-day forecast for a conglomerado's coordinates.
// It is not critical to the workflow; failures surface as dependency errors.
package clima

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/avast/retry-go"
)

// Actual is the current-conditions snapshot at a point.
type Actual struct {
	Descripcion string  `json:"descripcion"`
	Temperatura float64 `json:"temperatura"`
	Humedad     int     `json:"humedad"`
	VientoKmh   float64 `json:"viento_kmh"`
}

// DiaPronostico is one day of the forecast.
type DiaPronostico struct {
	Fecha       string  `json:"fecha"`
	Descripcion string  `json:"descripcion"`
	TempMin     float64 `json:"temp_min"`
	TempMax     float64 `json:"temp_max"`
	ProbLluvia  float64 `json:"prob_lluvia"`
}

// Reporte bundles current conditions and the forecast.
type Reporte struct {
	Actual     Actual          `json:"actual"`
	Pronostico []DiaPronostico `json:"pronostico"`
}

// Proveedor looks up weather by coordinates.
type Proveedor interface {
	Reporte(ctx context.Context, lat, lon float64) (*Reporte, error)
}

// Cliente is the OpenWeather-backed Proveedor.
type Cliente struct {
	base   string
	apiKey string
	hc     *http.Client
}

var _ Proveedor = (*Cliente)(nil)

// NewCliente returns a weather client. base is normally
// "https://api.openweathermap.org" and is parameterized for tests.
func NewCliente(base, apiKey string, timeout time.Duration) *Cliente {
	return &Cliente{base: base, apiKey: apiKey, hc: &http.Client{Timeout: timeout}}
}

type owActual struct {
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

type owPronostico struct {
	List []struct {
		DtTxt   string `json:"dt_txt"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Main struct {
			TempMin float64 `json:"temp_min"`
			TempMax float64 `json:"temp_max"`
		} `json:"main"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

// Reporte fetches current weather and the 5-day forecast. The forecast
// endpoint returns 3-hourly slots; they are collapsed to one entry per day
// with min/max temperature and the worst rain probability.
func (c *Cliente) Reporte(ctx context.Context, lat, lon float64) (*Reporte, error) {
	var actual owActual
	if err := c.get(ctx, fmt.Sprintf(
		"%s/data/2.5/weather?lat=%f&lon=%f&units=metric&appid=%s",
		c.base, lat, lon, c.apiKey), &actual); err != nil {
		return nil, err
	}

	var crudo owPronostico
	if err := c.get(ctx, fmt.Sprintf(
		"%s/data/2.5/forecast?lat=%f&lon=%f&units=metric&appid=%s",
		c.base, lat, lon, c.apiKey), &crudo); err != nil {
		return nil, err
	}

	r := &Reporte{
		Actual: Actual{
			Temperatura: actual.Main.Temp,
			Humedad:     actual.Main.Humidity,
			VientoKmh:   actual.Wind.Speed * 3.6,
		},
	}
	if len(actual.Weather) > 0 {
		r.Actual.Descripcion = actual.Weather[0].Description
	}

	porDia := map[string]*DiaPronostico{}
	var orden []string
	for _, slot := range crudo.List {
		if len(slot.DtTxt) < 10 {
			continue
		}
		fecha := slot.DtTxt[:10]
		dia, ok := porDia[fecha]
		if !ok {
			dia = &DiaPronostico{
				Fecha:   fecha,
				TempMin: slot.Main.TempMin,
				TempMax: slot.Main.TempMax,
			}
			if len(slot.Weather) > 0 {
				dia.Descripcion = slot.Weather[0].Description
			}
			porDia[fecha] = dia
			orden = append(orden, fecha)
		}
		if slot.Main.TempMin < dia.TempMin {
			dia.TempMin = slot.Main.TempMin
		}
		if slot.Main.TempMax > dia.TempMax {
			dia.TempMax = slot.Main.TempMax
		}
		if slot.Pop > dia.ProbLluvia {
			dia.ProbLluvia = slot.Pop
		}
	}
	for _, fecha := range orden {
		if len(r.Pronostico) == 5 {
			break
		}
		r.Pronostico = append(r.Pronostico, *porDia[fecha])
	}

	return r, nil
}

func (c *Cliente) get(ctx context.Context, u string, out any) error {
	return retry.Do(
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

			if resp.StatusCode >= 500 {
				return fmt.Errorf("clima respondió %d", resp.StatusCode)
			}
			if resp.StatusCode != http.StatusOK {
				return retry.Unrecoverable(fmt.Errorf("clima respondió %d", resp.StatusCode))
			}
			return json.NewDecoder(resp.Body).Decode(out)
		},
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(150*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}
