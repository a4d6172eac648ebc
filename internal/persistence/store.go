// Package persistence stores conglomerados and subparcelas in a relational
// backend. Two adapters exist: SQLite (embedded, also the test backend) and
// PostgreSQL.
//
// The package owns the atomic claim contract of the assignment protocol:
// ClaimDisponibles must hand each available row to at most one caller, even
// under concurrent transactions, without blocking on rows locked by a
// concurrent claim. The business layer never assumes a particular locking
// primitive; each adapter satisfies the contract with its own means.
package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

var (
	// ErrConglomeradoNotFound is returned when no conglomerado matches.
	ErrConglomeradoNotFound = errors.New("conglomerado no encontrado")

	// ErrSubparcelaNotFound is returned when no subparcela matches.
	ErrSubparcelaNotFound = errors.New("subparcela no encontrada")

	// ErrCodigoDuplicado is returned when an insert collides on codigo.
	ErrCodigoDuplicado = errors.New("código duplicado")
)

// Filtro selects conglomerados. Zero values mean "no filter" for that field.
// When Limit > 0 the result is paginated and the total row count (before
// paging) is reported alongside.
type Filtro struct {
	Estado         api.Estado
	JefeBrigadaID  string
	RevisorID      string
	MunicipioID    string
	DepartamentoID string

	// Busqueda filters by codigo substring, case-insensitive.
	Busqueda string

	// VencidosAntes selects rows whose review deadline expired before the
	// given instant (only meaningful combined with Estado en_revision).
	VencidosAntes *time.Time

	// IncluirInactivos disables the default activo=true predicate.
	IncluirInactivos bool

	// OrdenarPorAsignacion orders by brigade assignment date ascending
	// instead of the default created_at descending.
	OrdenarPorAsignacion bool

	Offset int
	Limit  int
}

// Store is the persistence port of the service.
type Store interface {
	// CrearConglomerados inserts a batch of new rows.
	CrearConglomerados(ctx context.Context, lote []*api.Conglomerado) error

	// CrearSubparcelas inserts a batch of sub-plot rows.
	CrearSubparcelas(ctx context.Context, lote []*api.Subparcela) error

	// Get returns a conglomerado regardless of its activo flag.
	Get(ctx context.Context, id string) (*api.Conglomerado, error)

	// GetPorCodigo returns an active conglomerado by its code.
	GetPorCodigo(ctx context.Context, codigo string) (*api.Conglomerado, error)

	// ExisteCodigo reports whether any row (active or not) uses codigo.
	ExisteCodigo(ctx context.Context, codigo string) (bool, error)

	// Actualizar persists every mutable field of c. Returns
	// ErrConglomeradoNotFound when the row is gone.
	Actualizar(ctx context.Context, c *api.Conglomerado) error

	// Eliminar hard-deletes a conglomerado and its subparcelas.
	Eliminar(ctx context.Context, id string) error

	// Listar returns matching rows plus the total match count.
	Listar(ctx context.Context, f Filtro) ([]*api.Conglomerado, int, error)

	// ContarVivos counts active rows, the quantity bounded by the global
	// generation ceiling.
	ContarVivos(ctx context.Context) (int, error)

	// ContarPorEstado counts active rows in the given estado.
	ContarPorEstado(ctx context.Context, estado api.Estado) (int, error)

	// ClaimDisponibles atomically claims up to n available rows (active,
	// estado sin_asignar or listo_para_asignacion), oldest first, for
	// revisorID: estado moves to en_revision and the reviewer, claim
	// timestamp and review deadline are stamped. Rows locked by a
	// concurrent transaction are skipped, not waited on. Returns the
	// claimed rows; fewer than n (or none) is not an error.
	ClaimDisponibles(ctx context.Context, n int, revisorID string, fechaLimite, ahora time.Time) ([]*api.Conglomerado, error)

	// Subparcelas returns the sub-plots of a conglomerado ordered by num.
	Subparcelas(ctx context.Context, conglomeradoID string) ([]*api.Subparcela, error)

	// GetSubparcela returns a sub-plot by id.
	GetSubparcela(ctx context.Context, id string) (*api.Subparcela, error)

	// ActualizarSubparcela persists a sub-plot's establishment outcome.
	ActualizarSubparcela(ctx context.Context, s *api.Subparcela) error

	// Close releases the underlying connections.
	Close() error
}
