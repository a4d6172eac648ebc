package engine

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/internal/ubicaciones"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// Aprobar moves an en_revision conglomerado to aprobado. Only the reviewer
// who claimed it may approve. The municipio chosen during review is resolved
// to its full hierarchy and stamped on the row before the transition commits.
// Afterwards a brigade chief assignment is attempted; its failure is logged
// and never rolls back the approval.
func (s *Servicio) Aprobar(ctx context.Context, id, actorID, municipioID string) (*api.Conglomerado, error) {
	if municipioID == "" {
		return nil, api.Validationf("municipio requerido para aprobar")
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, conflictoEstado(c, "aprobar").Con("activo", false)
	}
	if c.Estado != api.EstadoEnRevision {
		return nil, conflictoEstado(c, "aprobar")
	}
	if c.RevisadoPorCoordID != actorID {
		return nil, api.Forbiddenf("solo el revisor asignado puede aprobar").
			Con("revisor", c.RevisadoPorCoordID)
	}

	jerarquia, err := s.locaciones.ResolverJerarquia(ctx, municipioID)
	if err != nil {
		if errors.Is(err, ubicaciones.ErrNoEncontrada) {
			return nil, api.NotFoundf("municipio %s no existe", municipioID)
		}
		return nil, api.Dependency(err, "resolviendo jerarquía geográfica")
	}

	c.Estado = api.EstadoAprobado
	c.AprobadoPorID = actorID
	c.RazonRechazo = ""
	c.MunicipioID = jerarquia.MunicipioID
	c.DepartamentoID = jerarquia.DepartamentoID
	c.RegionID = jerarquia.RegionID
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"conglomerado": c.Codigo,
		"region":       c.RegionID,
		"revisor":      actorID,
	}).Info("conglomerado aprobado")

	s.asignarJefeTrasAprobacion(ctx, c)
	return c, nil
}

// asignarJefeTrasAprobacion tries to dispatch a freshly approved conglomerado
// to a brigade chief of its region. Best effort: the conglomerado stays in
// aprobado when no chief is available or the update fails.
func (s *Servicio) asignarJefeTrasAprobacion(ctx context.Context, c *api.Conglomerado) {
	if s.selector == nil {
		return
	}
	jefeID, err := s.selector.SeleccionarJefe(ctx, c.RegionID)
	if err != nil {
		s.log.WithError(err).WithField("conglomerado", c.Codigo).
			Warn("sin jefe de brigada tras aprobación, queda en aprobado")
		return
	}

	ahora := s.ahora().UTC()
	c.Estado = api.EstadoAsignadoAJefe
	c.JefeBrigadaAsignadoID = jefeID
	c.FechaAsignacion = &ahora
	if err := s.guardar(ctx, c); err != nil {
		// Revert the in-memory copy so the caller sees what is persisted.
		c.Estado = api.EstadoAprobado
		c.JefeBrigadaAsignadoID = ""
		c.FechaAsignacion = nil
		s.log.WithError(err).WithField("conglomerado", c.Codigo).
			Warn("no se pudo persistir la asignación de jefe tras aprobación")
		return
	}

	s.log.WithFields(logrus.Fields{
		"conglomerado": c.Codigo,
		"jefe":         jefeID,
	}).Info("jefe de brigada asignado tras aprobación")
}

// Rechazar moves an en_revision conglomerado to the terminal
// rechazado_permanente estado. The reason is mandatory and only the recorded
// reviewer may reject.
func (s *Servicio) Rechazar(ctx context.Context, id, actorID, razon string) (*api.Conglomerado, error) {
	if razon == "" {
		return nil, api.Validationf("razón de rechazo requerida")
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, conflictoEstado(c, "rechazar").Con("activo", false)
	}
	if c.Estado != api.EstadoEnRevision {
		return nil, conflictoEstado(c, "rechazar")
	}
	if c.RevisadoPorCoordID != actorID {
		return nil, api.Forbiddenf("solo el revisor asignado puede rechazar").
			Con("revisor", c.RevisadoPorCoordID)
	}

	c.Estado = api.EstadoRechazadoPermanente
	c.RazonRechazo = razon
	c.RechazadoPorID = actorID
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"conglomerado": c.Codigo,
		"revisor":      actorID,
	}).Info("conglomerado rechazado permanentemente")
	return c, nil
}

// CambiarEstado sets an explicit estado. Terminal states never transition
// out, and unknown values are rejected before any read.
func (s *Servicio) CambiarEstado(ctx context.Context, id string, estado api.Estado) (*api.Conglomerado, error) {
	if _, err := api.ParseEstado(string(estado)); err != nil {
		return nil, err
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, conflictoEstado(c, "cambiar estado").Con("activo", false)
	}
	if c.Estado == estado {
		return c, nil
	}
	if c.Estado.EsTerminal() {
		return nil, conflictoEstado(c, "cambiar estado")
	}

	c.Estado = estado
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AsignarAJefe dispatches the conglomerado to a brigade chief. Valid only
// from aprobado or listo_para_asignacion.
func (s *Servicio) AsignarAJefe(ctx context.Context, id, jefeID string) (*api.Conglomerado, error) {
	if jefeID == "" {
		return nil, api.Validationf("jefe de brigada requerido")
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, conflictoEstado(c, "asignar a jefe").Con("activo", false)
	}
	if c.Estado != api.EstadoAprobado && c.Estado != api.EstadoListoParaAsignacion {
		return nil, conflictoEstado(c, "asignar a jefe")
	}

	ahora := s.ahora().UTC()
	c.Estado = api.EstadoAsignadoAJefe
	c.JefeBrigadaAsignadoID = jefeID
	c.FechaAsignacion = &ahora
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarcarConBrigada sets the monotonic tiene_brigada flag. A conglomerado
// already flagged is returned unchanged; the flag is never cleared. When the
// dispatch state was asignado_a_jefe the workflow advances to en_ejecucion.
func (s *Servicio) MarcarConBrigada(ctx context.Context, id string) (*api.Conglomerado, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.TieneBrigada && c.Estado != api.EstadoAsignadoAJefe {
		return c, nil
	}

	c.TieneBrigada = true
	if c.Estado == api.EstadoAsignadoAJefe {
		c.Estado = api.EstadoEnEjecucion
	}
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// MarcarNoEstablecido records that the conglomerado could not be established
// in the field, a terminal outcome. The reason shares the razon_rechazo
// column with permanent rejection; the estado disambiguates.
func (s *Servicio) MarcarNoEstablecido(ctx context.Context, id, razon string) (*api.Conglomerado, error) {
	if razon == "" {
		return nil, api.Validationf("razón requerida")
	}
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, conflictoEstado(c, "marcar no establecido").Con("activo", false)
	}
	if c.Estado.EsTerminal() {
		return nil, conflictoEstado(c, "marcar no establecido")
	}

	c.Estado = api.EstadoNoEstablecido
	c.RazonRechazo = razon
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Desactivar soft-deletes the conglomerado. motivo is recorded in the log
// only; the row keeps its estado and can be reactivated later.
func (s *Servicio) Desactivar(ctx context.Context, id, motivo string) (*api.Conglomerado, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.Activo {
		return nil, api.Conflictf("conglomerado %s ya está inactivo", c.Codigo)
	}

	c.Activo = false
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"conglomerado": c.Codigo,
		"motivo":       motivo,
	}).Info("conglomerado desactivado")
	return c, nil
}

// Reactivar re-enables a soft-deleted conglomerado in the estado it had when
// deactivated.
func (s *Servicio) Reactivar(ctx context.Context, id string) (*api.Conglomerado, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Activo {
		return nil, api.Conflictf("conglomerado %s ya está activo", c.Codigo)
	}

	c.Activo = true
	if err := s.guardar(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Eliminar soft-deletes a conglomerado. A permanently rejected one is purged
// for good together with its subparcelas, since nothing downstream may ever
// reference it again.
func (s *Servicio) Eliminar(ctx context.Context, id string) error {
	c, err := s.get(ctx, id)
	if err != nil {
		return err
	}

	if c.Estado == api.EstadoRechazadoPermanente {
		if err := s.store.Eliminar(ctx, c.ID); err != nil {
			return api.Dependency(err, "eliminando conglomerado")
		}
		s.log.WithField("conglomerado", c.Codigo).Info("conglomerado rechazado purgado")
		return nil
	}

	if !c.Activo {
		return nil
	}
	c.Activo = false
	return s.guardar(ctx, c)
}
