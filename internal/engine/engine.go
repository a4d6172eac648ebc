// Package engine implements the conglomerado workflow: bulk generation,
// batch review assignment, the lifecycle state machine and the field
// establishment flow. It is the only writer of workflow state; the HTTP
// surface delegates everything here.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/internal/identity"
	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/internal/ubicaciones"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// Operational bounds of the workflow.
const (
	// MaxConglomeradosDefault is the ceiling of live conglomerados unless
	// the configuration overrides it.
	MaxConglomeradosDefault = 1500

	// LoteGeneracion is the insert batch size used during bulk generation.
	LoteGeneracion = 50

	// MaxGeneracionPorSolicitud bounds a single generation request.
	MaxGeneracionPorSolicitud = 500

	// MaxAsignacionPorLote bounds a single batch assignment.
	MaxAsignacionPorLote = 100

	// PlazoRevisionMin and PlazoRevisionMax bound the review deadline in
	// days.
	PlazoRevisionMin = 1
	PlazoRevisionMax = 60
)

// Config tunes a Servicio. The zero value uses the defaults above.
type Config struct {
	// MaxConglomerados caps the number of live (activo) conglomerados.
	MaxConglomerados int
}

func (c Config) maxConglomerados() int {
	if c.MaxConglomerados > 0 {
		return c.MaxConglomerados
	}
	return MaxConglomeradosDefault
}

// Servicio is the workflow engine. It owns every state transition; the store
// is just its durable memory.
type Servicio struct {
	store      persistence.Store
	locaciones ubicaciones.Resolver
	selector   identity.SelectorJefeBrigada
	log        *logrus.Logger
	cfg        Config

	// ahora is swappable in tests.
	ahora func() time.Time
}

var _ api.Service = (*Servicio)(nil)

// New builds a Servicio. selector may be nil, in which case approvals skip
// the best-effort brigade assignment.
func New(store persistence.Store, locaciones ubicaciones.Resolver, selector identity.SelectorJefeBrigada, log *logrus.Logger, cfg Config) *Servicio {
	if log == nil {
		log = logrus.New()
	}
	return &Servicio{
		store:      store,
		locaciones: locaciones,
		selector:   selector,
		log:        log,
		cfg:        cfg,
		ahora:      time.Now,
	}
}

// get loads a conglomerado, translating the store sentinel into the domain
// not-found error.
func (s *Servicio) get(ctx context.Context, id string) (*api.Conglomerado, error) {
	if id == "" {
		return nil, api.Validationf("id requerido")
	}
	c, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrConglomeradoNotFound) {
			return nil, api.NotFoundf("conglomerado %s no encontrado", id)
		}
		return nil, api.Dependency(err, "consultando conglomerado")
	}
	return c, nil
}

// guardar persists c with a fresh updated_at.
func (s *Servicio) guardar(ctx context.Context, c *api.Conglomerado) error {
	c.UpdatedAt = s.ahora().UTC()
	if err := s.store.Actualizar(ctx, c); err != nil {
		if errors.Is(err, persistence.ErrConglomeradoNotFound) {
			return api.NotFoundf("conglomerado %s no encontrado", c.ID)
		}
		return api.Dependency(err, "guardando conglomerado")
	}
	return nil
}

// conflictoEstado builds the standard state-guard violation error, carrying
// the offending current estado for diagnostics.
func conflictoEstado(c *api.Conglomerado, operacion string) *api.Error {
	return api.Conflictf("no se puede %s en estado %s", operacion, c.Estado).
		Con("estado_actual", string(c.Estado))
}
