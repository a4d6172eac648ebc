package engine

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// AsignarLote claims up to cantidad available conglomerados for coordID,
// oldest first, with a shared review deadline of now + plazoDias. The claim
// itself is a single atomic store operation, so two concurrent assignments
// can never receive the same item. Receiving fewer items than requested,
// including none, is a normal outcome of a drained pool.
func (s *Servicio) AsignarLote(ctx context.Context, actorID, coordID string, cantidad, plazoDias int) (*api.LoteAsignado, error) {
	if coordID == "" {
		return nil, api.Validationf("coordinador destino requerido")
	}
	if actorID == coordID {
		return nil, api.Forbiddenf("un coordinador no puede asignarse conglomerados a sí mismo")
	}
	if cantidad < 1 || cantidad > MaxAsignacionPorLote {
		return nil, api.Validationf("cantidad debe estar entre 1 y %d", MaxAsignacionPorLote).
			Con("cantidad", cantidad)
	}
	if plazoDias < PlazoRevisionMin || plazoDias > PlazoRevisionMax {
		return nil, api.Validationf("plazo debe estar entre %d y %d días", PlazoRevisionMin, PlazoRevisionMax).
			Con("plazo_dias", plazoDias)
	}

	ahora := s.ahora().UTC()
	fechaLimite := ahora.Add(time.Duration(plazoDias) * 24 * time.Hour)

	asignados, err := s.store.ClaimDisponibles(ctx, cantidad, coordID, fechaLimite, ahora)
	if err != nil {
		return nil, api.Dependency(err, "reclamando conglomerados disponibles")
	}

	s.log.WithFields(logrus.Fields{
		"solicitados":  cantidad,
		"asignados":    len(asignados),
		"coord":        coordID,
		"fecha_limite": fechaLimite,
	}).Info("lote asignado a revisión")

	return &api.LoteAsignado{Asignados: asignados, FechaLimite: fechaLimite}, nil
}
