package persistence

import (
	"database/sql"

	"github.com/pkg/errors"
)

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB opened with a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the driver
// for its side effects:
//
//	import _ "modernc.org/sqlite"
//
// SQLite serializes writers, so the claim UPDATE is atomic without explicit
// row locks; concurrent claims queue behind each other at the database level.
type SQLiteStore struct {
	sqlStore
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database and
// returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{sqlStore{db: db, d: dialectoSQLite}}
	if err := s.initSchema(); err != nil {
		return nil, errors.Wrap(err, "init schema sqlite")
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS conglomerados (
			id                        TEXT PRIMARY KEY,
			codigo                    TEXT NOT NULL UNIQUE,
			latitud                   REAL NOT NULL,
			longitud                  REAL NOT NULL,
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
			latitud_prediligenciada  REAL NOT NULL,
			longitud_prediligenciada REAL NOT NULL,
			se_establecio            INTEGER NOT NULL DEFAULT -1,
			latitud_establecida      REAL NOT NULL DEFAULT 0,
			longitud_establecida     REAL NOT NULL DEFAULT 0,
			error_gps_establecido    REAL NOT NULL DEFAULT 0,
			razon_no_establecida     TEXT NOT NULL DEFAULT '',
			observaciones            TEXT NOT NULL DEFAULT '',
			created_at               BIGINT NOT NULL,
			updated_at               BIGINT NOT NULL,
			UNIQUE (conglomerado_id, subparcela_num)
		);
	`)
	return err
}
