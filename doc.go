// Package conglomerados implements the sampling-cluster workflow of a
// national forest inventory: bulk generation of clusters (conglomerados)
// with pre-filled sub-plots, concurrency-safe batch assignment to reviewing
// coordinators, the review lifecycle through approval or permanent
// rejection, brigade dispatch, and field establishment tracking.
//
// # Lifecycle
//
// A conglomerado moves through a fixed set of estados:
//
//	sin_asignar → en_revision → aprobado | rechazado_permanente
//	aprobado → listo_para_asignacion → asignado_a_jefe → en_ejecucion
//	en_ejecucion → finalizado_campo | no_establecido
//
// rechazado_permanente, no_establecido and finalizado_campo are terminal.
// The activo flag is an orthogonal soft-delete; tiene_brigada is a monotonic
// flag recording that a brigade was dispatched at least once.
//
// # Batch assignment
//
// AsignarLote atomically claims up to N available conglomerados, oldest
// first, for a reviewing coordinator. The claim is a single store operation
// that skips rows locked by concurrent claims, so two simultaneous batches
// never overlap. Every item in a batch shares one review deadline.
//
// # Storage
//
// Two relational backends are provided: embedded SQLite (also the test
// backend) and PostgreSQL. Construct a Service with NewSQLiteService or
// NewPostgresService; the schema is created on first use.
//
//	db, _ := sql.Open("sqlite", "conglomerados.db")
//	svc, err := conglomerados.NewSQLiteService(db, conglomerados.Options{})
//
// External collaborators (identity, roles, geographic hierarchy, weather)
// are consumed through small interfaces and can be omitted or faked.
package conglomerados
