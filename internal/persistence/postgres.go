package persistence

import (
	"database/sql"

	"github.com/pkg/errors"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib"). The caller imports the driver for its
// side effects and provides the DSN via sql.Open.
//
// The claim operation locks its candidate rows with FOR UPDATE SKIP LOCKED,
// so concurrent batch assignments never block on nor receive each other's
// rows.
type PostgresStore struct {
	sqlStore
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database and
// returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{sqlStore{db: db, d: dialectoPostgres}}
	if err := s.initSchema(); err != nil {
		return nil, errors.Wrap(err, "init schema postgres")
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conglomerados (
			id                        TEXT PRIMARY KEY,
			codigo                    TEXT NOT NULL UNIQUE,
			latitud                   DOUBLE PRECISION NOT NULL,
			longitud                  DOUBLE PRECISION NOT NULL,
			estado                    TEXT NOT NULL,
			activo                    INTEGER NOT NULL DEFAULT 1,
			tiene_brigada             INTEGER NOT NULL DEFAULT 0,
			revisado_por_coord_id     TEXT NOT NULL DEFAULT '',
			jefe_brigada_asignado_id  TEXT NOT NULL DEFAULT '',
			coordinador_id            TEXT NOT NULL DEFAULT '',
			fecha_asignacion_revision BIGINT NOT NULL DEFAULT 0,
			fecha_asignacion          BIGINT NOT NULL DEFAULT 0,
			fecha_limite_revision     BIGINT NOT NULL DEFAULT 0,
			razon_rechazo             TEXT NOT NULL DEFAULT '',
			aprobado_por_id           TEXT NOT NULL DEFAULT '',
			rechazado_por_id          TEXT NOT NULL DEFAULT '',
			municipio_id              TEXT NOT NULL DEFAULT '',
			departamento_id           TEXT NOT NULL DEFAULT '',
			region_id                 TEXT NOT NULL DEFAULT '',
			created_at                BIGINT NOT NULL,
			updated_at                BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_conglomerados_estado
			ON conglomerados (estado, activo);
		CREATE INDEX IF NOT EXISTS idx_conglomerados_claim
			ON conglomerados (revisado_por_coord_id, fecha_asignacion_revision);

		CREATE TABLE IF NOT EXISTS conglomerados_subparcelas (
			id                       TEXT PRIMARY KEY,
			conglomerado_id          TEXT NOT NULL REFERENCES conglomerados(id),
			subparcela_num           INTEGER NOT NULL,
			latitud_prediligenciada  DOUBLE PRECISION NOT NULL,
			longitud_prediligenciada DOUBLE PRECISION NOT NULL,
			se_establecio            INTEGER NOT NULL DEFAULT -1,
			latitud_establecida      DOUBLE PRECISION NOT NULL DEFAULT 0,
			longitud_establecida     DOUBLE PRECISION NOT NULL DEFAULT 0,
			error_gps_establecido    DOUBLE PRECISION NOT NULL DEFAULT 0,
			razon_no_establecida     TEXT NOT NULL DEFAULT '',
			observaciones            TEXT NOT NULL DEFAULT '',
			created_at               BIGINT NOT NULL,
			updated_at               BIGINT NOT NULL,
			UNIQUE (conglomerado_id, subparcela_num)
		);
	`)
	return err
}
