package engine

import (
	"context"
	"errors"

	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// RegistrarEstablecimiento writes a subparcela's field outcome and recomputes
// parent completion. A positive outcome carries measured coordinates and GPS
// error; a negative one carries a coded reason. The two groups are mutually
// exclusive. When the 5th outcome lands, the parent conglomerado moves to
// finalizado_campo automatically.
func (s *Servicio) RegistrarEstablecimiento(ctx context.Context, subparcelaID string, datos api.EstablecimientoDatos) (*api.Subparcela, error) {
	if subparcelaID == "" {
		return nil, api.Validationf("subparcela requerida")
	}
	if err := validarEstablecimiento(datos); err != nil {
		return nil, err
	}

	sp, err := s.store.GetSubparcela(ctx, subparcelaID)
	if err != nil {
		if errors.Is(err, persistence.ErrSubparcelaNotFound) {
			return nil, api.NotFoundf("subparcela %s no encontrada", subparcelaID)
		}
		return nil, api.Dependency(err, "consultando subparcela")
	}

	padre, err := s.get(ctx, sp.ConglomeradoID)
	if err != nil {
		return nil, err
	}
	if !padre.Activo {
		return nil, conflictoEstado(padre, "registrar establecimiento").Con("activo", false)
	}
	switch padre.Estado {
	case api.EstadoAsignadoAJefe, api.EstadoEnEjecucion:
	default:
		return nil, conflictoEstado(padre, "registrar establecimiento")
	}

	se := datos.SeEstablecio
	sp.SeEstablecio = &se
	if se {
		sp.LatitudEstablecida = datos.LatitudEstablecida
		sp.LongitudEstablecida = datos.LongitudEstablecida
		sp.ErrorGPS = datos.ErrorGPS
		sp.RazonNoEstablecida = ""
	} else {
		sp.LatitudEstablecida = nil
		sp.LongitudEstablecida = nil
		sp.ErrorGPS = nil
		sp.RazonNoEstablecida = api.RazonNoEstablecida(datos.RazonNoEstablecida)
	}
	sp.Observaciones = datos.Observaciones
	sp.UpdatedAt = s.ahora().UTC()

	if err := s.store.ActualizarSubparcela(ctx, sp); err != nil {
		return nil, api.Dependency(err, "guardando subparcela")
	}

	if err := s.cerrarSiCompleto(ctx, padre); err != nil {
		return nil, err
	}
	return sp, nil
}

// cerrarSiCompleto moves the parent to finalizado_campo once every sub-plot
// has a recorded outcome, positive or negative, in any order.
func (s *Servicio) cerrarSiCompleto(ctx context.Context, padre *api.Conglomerado) error {
	if padre.Estado == api.EstadoFinalizadoCampo {
		return nil
	}

	subs, err := s.store.Subparcelas(ctx, padre.ID)
	if err != nil {
		return api.Dependency(err, "consultando subparcelas")
	}
	registradas := 0
	for _, sp := range subs {
		if sp.Registrada() {
			registradas++
		}
	}
	if registradas < api.SubparcelasPorConglomerado {
		return nil
	}

	padre.Estado = api.EstadoFinalizadoCampo
	if err := s.guardar(ctx, padre); err != nil {
		return err
	}
	s.log.WithField("conglomerado", padre.Codigo).Info("trabajo de campo finalizado")
	return nil
}

func validarEstablecimiento(datos api.EstablecimientoDatos) error {
	if datos.SeEstablecio {
		if datos.RazonNoEstablecida != "" {
			return api.Validationf("una subparcela establecida no lleva razón de no establecimiento")
		}
		if datos.LatitudEstablecida == nil || datos.LongitudEstablecida == nil {
			return api.Validationf("coordenadas establecidas requeridas")
		}
		return nil
	}

	if datos.LatitudEstablecida != nil || datos.LongitudEstablecida != nil || datos.ErrorGPS != nil {
		return api.Validationf("una subparcela no establecida no lleva coordenadas medidas")
	}
	if _, err := api.ParseRazonNoEstablecida(datos.RazonNoEstablecida); err != nil {
		return err
	}
	return nil
}
