package api

import (
	"time"
)

// Estado is the lifecycle state of a conglomerado. Exactly one estado is
// current at any time; the activo flag is orthogonal (soft deactivation).
type Estado string

const (
	// EstadoSinAsignar is the initial state of a freshly generated
	// conglomerado: it exists in the pool but no reviewer owns it yet.
	EstadoSinAsignar Estado = "sin_asignar"

	// EstadoEnRevision means a coordinator has claimed the conglomerado and
	// a review deadline is running.
	EstadoEnRevision Estado = "en_revision"

	// EstadoAprobado means the review succeeded. Geographic classification
	// is stamped at this point.
	EstadoAprobado Estado = "aprobado"

	// EstadoRechazadoPermanente is terminal: the conglomerado failed review
	// and will never re-enter the workflow. It is the only state from which
	// a hard purge is allowed.
	EstadoRechazadoPermanente Estado = "rechazado_permanente"

	// EstadoListoParaAsignacion is an administrative staging state between
	// approval and brigade dispatch.
	EstadoListoParaAsignacion Estado = "listo_para_asignacion"

	// EstadoAsignadoAJefe means a brigade chief has been assigned for field
	// establishment.
	EstadoAsignadoAJefe Estado = "asignado_a_jefe"

	// EstadoEnEjecucion means the brigade is working the sub-plots.
	EstadoEnEjecucion Estado = "en_ejecucion"

	// EstadoNoEstablecido is terminal: the conglomerado could not be
	// established in the field.
	EstadoNoEstablecido Estado = "no_establecido"

	// EstadoFinalizadoCampo is terminal and derived: it is reached
	// automatically when all 5 subparcelas have a recorded outcome.
	EstadoFinalizadoCampo Estado = "finalizado_campo"
)

// Estados lists every known estado, in workflow order.
func Estados() []Estado {
	return []Estado{
		EstadoSinAsignar,
		EstadoEnRevision,
		EstadoAprobado,
		EstadoRechazadoPermanente,
		EstadoListoParaAsignacion,
		EstadoAsignadoAJefe,
		EstadoEnEjecucion,
		EstadoNoEstablecido,
		EstadoFinalizadoCampo,
	}
}

// ParseEstado validates a raw estado value. Unknown values are rejected, never
// coerced.
func ParseEstado(s string) (Estado, error) {
	for _, e := range Estados() {
		if string(e) == s {
			return e, nil
		}
	}
	return "", Validationf("estado inválido: %q", s)
}

// EsTerminal reports whether e admits no further lifecycle transitions.
func (e Estado) EsTerminal() bool {
	switch e {
	case EstadoRechazadoPermanente, EstadoNoEstablecido, EstadoFinalizadoCampo:
		return true
	}
	return false
}

// Disponible reports whether a conglomerado in this estado can be claimed by
// the batch assignment engine.
func (e Estado) Disponible() bool {
	return e == EstadoSinAsignar || e == EstadoListoParaAsignacion
}

// RazonNoEstablecida is the coded reason recorded when a subparcela could not
// be established.
type RazonNoEstablecida string

const (
	RazonAccesoDenegado  RazonNoEstablecida = "acceso_denegado"
	RazonZonaInaccesible RazonNoEstablecida = "zona_inaccesible"
	RazonRiesgoSeguridad RazonNoEstablecida = "riesgo_seguridad"
	RazonOtro            RazonNoEstablecida = "otro"
)

// ParseRazonNoEstablecida validates a coded reason.
func ParseRazonNoEstablecida(s string) (RazonNoEstablecida, error) {
	switch RazonNoEstablecida(s) {
	case RazonAccesoDenegado, RazonZonaInaccesible, RazonRiesgoSeguridad, RazonOtro:
		return RazonNoEstablecida(s), nil
	}
	return "", Validationf("razón no establecida inválida: %q", s)
}

// Conglomerado is a forest-inventory sampling cluster, the root work item of
// the service.
//
// The reviewer, brigade chief, coordinator and location ids are weak
// references into external collaborators; this service only stores them.
type Conglomerado struct {
	ID      string  `json:"id"`
	Codigo  string  `json:"codigo"`
	Latitud float64 `json:"latitud"`
	// Longitud is always negative for the national envelope.
	Longitud float64 `json:"longitud"`
	Estado   Estado  `json:"estado"`
	Activo   bool    `json:"activo"`

	// TieneBrigada is monotonic: once a brigade has been dispatched it is
	// never cleared.
	TieneBrigada bool `json:"tiene_brigada"`

	RevisadoPorCoordID    string `json:"revisado_por_coord_id,omitempty"`
	JefeBrigadaAsignadoID string `json:"jefe_brigada_asignado_id,omitempty"`
	CoordinadorID         string `json:"coordinador_id,omitempty"`

	// FechaAsignacionRevision is stamped when a reviewer claims the item;
	// FechaAsignacion when a brigade chief is assigned.
	FechaAsignacionRevision *time.Time `json:"fecha_asignacion_revision,omitempty"`
	FechaAsignacion         *time.Time `json:"fecha_asignacion,omitempty"`
	FechaLimiteRevision     *time.Time `json:"fecha_limite_revision,omitempty"`

	RazonRechazo   string `json:"razon_rechazo,omitempty"`
	AprobadoPorID  string `json:"aprobado_por_id,omitempty"`
	RechazadoPorID string `json:"rechazado_por_id,omitempty"`

	MunicipioID    string `json:"municipio_id,omitempty"`
	DepartamentoID string `json:"departamento_id,omitempty"`
	RegionID       string `json:"region_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Subparcelas is populated on detail lookups only.
	Subparcelas []*Subparcela `json:"subparcelas,omitempty"`
}

// Subparcela is one of the 5 fixed-offset sub-plots owned by a conglomerado.
//
// SeEstablecio is nil until a field outcome is recorded. When true, the
// measured coordinates and GPS error are set; when false, RazonNoEstablecida
// is set. The two groups are mutually exclusive.
type Subparcela struct {
	ID             string `json:"id"`
	ConglomeradoID string `json:"conglomerado_id"`
	Num            int    `json:"subparcela_num"`

	LatitudPrediligenciada  float64 `json:"latitud_prediligenciada"`
	LongitudPrediligenciada float64 `json:"longitud_prediligenciada"`

	SeEstablecio *bool `json:"se_establecio"`

	LatitudEstablecida  *float64 `json:"latitud_establecida,omitempty"`
	LongitudEstablecida *float64 `json:"longitud_establecida,omitempty"`
	ErrorGPS            *float64 `json:"error_gps_establecido,omitempty"`

	RazonNoEstablecida RazonNoEstablecida `json:"razon_no_establecida,omitempty"`
	Observaciones      string             `json:"observaciones,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registrada reports whether an establishment outcome has been recorded.
func (s *Subparcela) Registrada() bool { return s.SeEstablecio != nil }

// SubparcelasPorConglomerado is the fixed number of sub-plots every
// conglomerado owns.
const SubparcelasPorConglomerado = 5

// ListOptions selects a page of conglomerados. Page is 1-based; Limit is
// capped by the HTTP surface at 100. Busqueda filters by codigo substring.
type ListOptions struct {
	Page     int
	Limit    int
	Busqueda string
}

// Pagina is one page of results plus pagination metadata.
type Pagina struct {
	Data       []*Conglomerado `json:"data"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// Estadisticas reports per-estado counts of live conglomerados.
type Estadisticas struct {
	Total     int            `json:"total"`
	PorEstado map[Estado]int `json:"por_estado"`
}

// LoteGenerado is the result of a bulk generation request.
type LoteGenerado struct {
	Conglomerados []*Conglomerado `json:"conglomerados"`
	Creados       int             `json:"creados"`
	// HeadroomRestante is how many more live conglomerados may still be
	// generated before the global ceiling is reached.
	HeadroomRestante int `json:"headroom_restante"`
}

// LoteAsignado is the result of a batch assignment. Asignados may be shorter
// than requested (including empty) when the pool runs low; every item in the
// batch shares FechaLimite.
type LoteAsignado struct {
	Asignados   []*Conglomerado `json:"asignados"`
	FechaLimite time.Time       `json:"fecha_limite"`
}

// EstablecimientoDatos is the field outcome recorded for a subparcela.
type EstablecimientoDatos struct {
	SeEstablecio        bool     `json:"se_establecio"`
	LatitudEstablecida  *float64 `json:"latitud_establecida,omitempty"`
	LongitudEstablecida *float64 `json:"longitud_establecida,omitempty"`
	ErrorGPS            *float64 `json:"error_gps_establecido,omitempty"`
	RazonNoEstablecida  string   `json:"razon_no_establecida,omitempty"`
	Observaciones       string   `json:"observaciones,omitempty"`
}
