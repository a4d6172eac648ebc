package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// Pagination defaults for Listar.
const (
	limitePorDefecto = 20
	limiteMaximo     = 100
)

// Listar returns a page of active conglomerados, newest first, optionally
// filtered by codigo substring.
func (s *Servicio) Listar(ctx context.Context, opts api.ListOptions) (*api.Pagina, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = limitePorDefecto
	}
	if limit > limiteMaximo {
		limit = limiteMaximo
	}

	data, total, err := s.store.Listar(ctx, persistence.Filtro{
		Busqueda: opts.Busqueda,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return nil, api.Dependency(err, "listando conglomerados")
	}

	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	return &api.Pagina{
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
	}, nil
}

// Get returns a conglomerado by id with its subparcelas attached, regardless
// of the activo flag so reactivation flows can inspect it.
func (s *Servicio) Get(ctx context.Context, id string) (*api.Conglomerado, error) {
	c, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.conSubparcelas(ctx, c)
}

// GetPorCodigo returns an active conglomerado by its code, with subparcelas.
func (s *Servicio) GetPorCodigo(ctx context.Context, codigo string) (*api.Conglomerado, error) {
	if codigo == "" {
		return nil, api.Validationf("código requerido")
	}
	c, err := s.store.GetPorCodigo(ctx, codigo)
	if err != nil {
		if errors.Is(err, persistence.ErrConglomeradoNotFound) {
			return nil, api.NotFoundf("conglomerado %s no encontrado", codigo)
		}
		return nil, api.Dependency(err, "consultando conglomerado")
	}
	return s.conSubparcelas(ctx, c)
}

func (s *Servicio) conSubparcelas(ctx context.Context, c *api.Conglomerado) (*api.Conglomerado, error) {
	subs, err := s.store.Subparcelas(ctx, c.ID)
	if err != nil {
		return nil, api.Dependency(err, "consultando subparcelas")
	}
	c.Subparcelas = subs
	return c, nil
}

// PorEstado lists active conglomerados in the given estado.
func (s *Servicio) PorEstado(ctx context.Context, estado api.Estado) ([]*api.Conglomerado, error) {
	if _, err := api.ParseEstado(string(estado)); err != nil {
		return nil, err
	}
	return s.listar(ctx, persistence.Filtro{Estado: estado})
}

// PorJefeBrigada lists the conglomerados dispatched to a brigade chief,
// ordered by assignment date so the oldest work appears first.
func (s *Servicio) PorJefeBrigada(ctx context.Context, jefeID string) ([]*api.Conglomerado, error) {
	if jefeID == "" {
		return nil, api.Validationf("jefe de brigada requerido")
	}
	return s.listar(ctx, persistence.Filtro{
		JefeBrigadaID:        jefeID,
		OrdenarPorAsignacion: true,
	})
}

// PorRevisor lists the conglomerados currently under review by coordID.
func (s *Servicio) PorRevisor(ctx context.Context, coordID string) ([]*api.Conglomerado, error) {
	if coordID == "" {
		return nil, api.Validationf("revisor requerido")
	}
	return s.listar(ctx, persistence.Filtro{RevisorID: coordID})
}

// PorMunicipio lists active conglomerados classified under a municipio.
func (s *Servicio) PorMunicipio(ctx context.Context, municipioID string) ([]*api.Conglomerado, error) {
	if municipioID == "" {
		return nil, api.Validationf("municipio requerido")
	}
	return s.listar(ctx, persistence.Filtro{MunicipioID: municipioID})
}

// PorDepartamento lists active conglomerados classified under a departamento.
func (s *Servicio) PorDepartamento(ctx context.Context, departamentoID string) ([]*api.Conglomerado, error) {
	if departamentoID == "" {
		return nil, api.Validationf("departamento requerido")
	}
	return s.listar(ctx, persistence.Filtro{DepartamentoID: departamentoID})
}

// Vencidos lists en_revision conglomerados whose review deadline expired
// before ahora.
func (s *Servicio) Vencidos(ctx context.Context, ahora time.Time) ([]*api.Conglomerado, error) {
	if ahora.IsZero() {
		ahora = s.ahora()
	}
	ahora = ahora.UTC()
	return s.listar(ctx, persistence.Filtro{
		Estado:        api.EstadoEnRevision,
		VencidosAntes: &ahora,
	})
}

// Estadisticas reports per-estado counts of live conglomerados.
func (s *Servicio) Estadisticas(ctx context.Context) (*api.Estadisticas, error) {
	total, err := s.store.ContarVivos(ctx)
	if err != nil {
		return nil, api.Dependency(err, "contando conglomerados")
	}

	est := &api.Estadisticas{Total: total, PorEstado: map[api.Estado]int{}}
	for _, e := range api.Estados() {
		n, err := s.store.ContarPorEstado(ctx, e)
		if err != nil {
			return nil, api.Dependency(err, "contando por estado")
		}
		est.PorEstado[e] = n
	}
	return est, nil
}

// Subparcelas returns the 5 sub-plots of a conglomerado, ordered by num.
func (s *Servicio) Subparcelas(ctx context.Context, conglomeradoID string) ([]*api.Subparcela, error) {
	if _, err := s.get(ctx, conglomeradoID); err != nil {
		return nil, err
	}
	subs, err := s.store.Subparcelas(ctx, conglomeradoID)
	if err != nil {
		return nil, api.Dependency(err, "consultando subparcelas")
	}
	return subs, nil
}

func (s *Servicio) listar(ctx context.Context, f persistence.Filtro) ([]*api.Conglomerado, error) {
	data, _, err := s.store.Listar(ctx, f)
	if err != nil {
		return nil, api.Dependency(err, "listando conglomerados")
	}
	return data, nil
}
