package api

import (
	"context"
	"time"
)

// Service is the high-level API of the conglomerados workflow.
//
// All mutations re-read the freshest persisted state before applying their
// guards; callers must never assume a cached estado is still current.
type Service interface {
	// GenerarLote creates cantidad new conglomerados (1-500) with unique
	// codes, random in-envelope coordinates and 5 pre-filled subparcelas
	// each. The request is clamped to the remaining headroom under the
	// global live-item ceiling; with zero headroom it fails with a capacity
	// error.
	GenerarLote(ctx context.Context, coordID string, cantidad int) (*LoteGenerado, error)

	// AsignarLote atomically claims up to cantidad (1-100) available
	// conglomerados, oldest first, and hands them to coordID for review
	// with a shared deadline of now + plazoDias (1-60 days). actorID must
	// differ from coordID. Fewer items than requested (including none) is
	// not an error.
	AsignarLote(ctx context.Context, actorID, coordID string, cantidad, plazoDias int) (*LoteAsignado, error)

	// Aprobar moves an en_revision conglomerado to aprobado. Only the
	// recorded reviewer may approve. The municipio named in the request is
	// resolved to its full hierarchy and stamped; afterwards a best-effort
	// brigade assignment is attempted whose failure never rolls back the
	// approval.
	Aprobar(ctx context.Context, id, actorID, municipioID string) (*Conglomerado, error)

	// Rechazar moves an en_revision conglomerado to the terminal
	// rechazado_permanente estado. Requires a non-empty reason and the
	// recorded reviewer.
	Rechazar(ctx context.Context, id, actorID, razon string) (*Conglomerado, error)

	// CambiarEstado sets an explicit estado. Unknown values are rejected
	// before any mutation.
	CambiarEstado(ctx context.Context, id string, estado Estado) (*Conglomerado, error)

	// AsignarAJefe dispatches the conglomerado to a brigade chief. Valid
	// only from aprobado or listo_para_asignacion.
	AsignarAJefe(ctx context.Context, id, jefeID string) (*Conglomerado, error)

	// MarcarConBrigada sets the monotonic tiene_brigada flag. Idempotent.
	MarcarConBrigada(ctx context.Context, id string) (*Conglomerado, error)

	// MarcarNoEstablecido records that the conglomerado could not be
	// established in the field.
	MarcarNoEstablecido(ctx context.Context, id, razon string) (*Conglomerado, error)

	// Desactivar soft-deletes (activo=false); Reactivar requires the
	// conglomerado to be currently inactive.
	Desactivar(ctx context.Context, id, motivo string) (*Conglomerado, error)
	Reactivar(ctx context.Context, id string) (*Conglomerado, error)

	// Eliminar soft-deletes a conglomerado, except when it is in the
	// terminal rechazado_permanente estado, in which case the row and its
	// subparcelas are purged for good.
	Eliminar(ctx context.Context, id string) error

	// RegistrarEstablecimiento writes a subparcela's field outcome and
	// recomputes parent completion: when the 5th outcome lands, the parent
	// auto-transitions to finalizado_campo.
	RegistrarEstablecimiento(ctx context.Context, subparcelaID string, datos EstablecimientoDatos) (*Subparcela, error)

	// Queries. All of them see only activo=true rows except Get, which is
	// used by reactivation flows.
	Listar(ctx context.Context, opts ListOptions) (*Pagina, error)
	Get(ctx context.Context, id string) (*Conglomerado, error)
	GetPorCodigo(ctx context.Context, codigo string) (*Conglomerado, error)
	PorEstado(ctx context.Context, estado Estado) ([]*Conglomerado, error)
	PorJefeBrigada(ctx context.Context, jefeID string) ([]*Conglomerado, error)
	PorRevisor(ctx context.Context, coordID string) ([]*Conglomerado, error)
	PorMunicipio(ctx context.Context, municipioID string) ([]*Conglomerado, error)
	PorDepartamento(ctx context.Context, departamentoID string) ([]*Conglomerado, error)
	Vencidos(ctx context.Context, ahora time.Time) ([]*Conglomerado, error)
	Estadisticas(ctx context.Context) (*Estadisticas, error)
	Subparcelas(ctx context.Context, conglomeradoID string) ([]*Subparcela, error)
}
