package conglomerados

import (
	"database/sql"

	"github.com/sirupsen/logrus"

	"github.com/ifn-colombia/conglomerados/internal/engine"
	"github.com/ifn-colombia/conglomerados/internal/identity"
	"github.com/ifn-colombia/conglomerados/internal/persistence"
	"github.com/ifn-colombia/conglomerados/internal/ubicaciones"
	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Service              = api.Service
	Conglomerado         = api.Conglomerado
	Subparcela           = api.Subparcela
	Estado               = api.Estado
	RazonNoEstablecida   = api.RazonNoEstablecida
	ListOptions          = api.ListOptions
	Pagina               = api.Pagina
	Estadisticas         = api.Estadisticas
	LoteGenerado         = api.LoteGenerado
	LoteAsignado         = api.LoteAsignado
	EstablecimientoDatos = api.EstablecimientoDatos
	Error                = api.Error
)

// Re-export estado values for convenience.

const (
	EstadoSinAsignar          = api.EstadoSinAsignar
	EstadoEnRevision          = api.EstadoEnRevision
	EstadoAprobado            = api.EstadoAprobado
	EstadoRechazadoPermanente = api.EstadoRechazadoPermanente
	EstadoListoParaAsignacion = api.EstadoListoParaAsignacion
	EstadoAsignadoAJefe       = api.EstadoAsignadoAJefe
	EstadoEnEjecucion         = api.EstadoEnEjecucion
	EstadoNoEstablecido       = api.EstadoNoEstablecido
	EstadoFinalizadoCampo     = api.EstadoFinalizadoCampo
)

// Options carries the optional collaborators of the workflow service.
// Zero-value fields disable the corresponding feature: without a Resolver
// approvals fail, without a Selector approvals simply skip the downstream
// brigade assignment.
type Options struct {
	Resolver ubicaciones.Resolver
	Selector identity.SelectorJefeBrigada
	Logger   *logrus.Logger

	// MaxConglomerados caps live items; 0 means the default ceiling.
	MaxConglomerados int
}

// Service constructors. These wrap the internal packages so external callers
// never need to import them.

// NewSQLiteService returns a Service persisting in the given SQLite
// database. The schema is created when missing.
func NewSQLiteService(db *sql.DB, opts Options) (Service, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return newService(store, opts), nil
}

// NewPostgresService returns a Service persisting in PostgreSQL. The schema
// is created when missing.
func NewPostgresService(db *sql.DB, opts Options) (Service, error) {
	store, err := persistence.NewPostgresStore(db)
	if err != nil {
		return nil, err
	}
	return newService(store, opts), nil
}

func newService(store persistence.Store, opts Options) Service {
	return engine.New(store, opts.Resolver, opts.Selector, opts.Logger, engine.Config{
		MaxConglomerados: opts.MaxConglomerados,
	})
}
