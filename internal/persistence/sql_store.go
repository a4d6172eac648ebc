package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/ifn-colombia/conglomerados/pkg/api"
)

// dialecto captures the differences between the SQLite and Postgres adapters
// that matter to the shared SQL: placeholder style and how a claim locks its
// candidate rows.
type dialecto int

const (
	dialectoSQLite dialecto = iota
	dialectoPostgres
)

// sqlStore is the shared implementation behind SQLiteStore and PostgresStore.
// Timestamps are stored as unix nanoseconds in BIGINT columns, 0 meaning
// unset; booleans as 0/1 integers; se_establecio is tri-state (-1 unset).
type sqlStore struct {
	db *sql.DB
	d  dialecto
}

const colsConglomerado = `id, codigo, latitud, longitud, estado, activo, tiene_brigada,
	revisado_por_coord_id, jefe_brigada_asignado_id, coordinador_id,
	fecha_asignacion_revision, fecha_asignacion, fecha_limite_revision,
	razon_rechazo, aprobado_por_id, rechazado_por_id,
	municipio_id, departamento_id, region_id, created_at, updated_at`

const colsSubparcela = `id, conglomerado_id, subparcela_num,
	latitud_prediligenciada, longitud_prediligenciada, se_establecio,
	latitud_establecida, longitud_establecida, error_gps_establecido,
	razon_no_establecida, observaciones, created_at, updated_at`

// rebind converts ?-style placeholders to $n for Postgres. The shared SQL is
// written with ? and rewritten per dialect here.
func (s *sqlStore) rebind(query string) string {
	if s.d == dialectoSQLite {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func nanosDe(t *time.Time) int64 {
	if t == nil {
		return 0
	}
	return t.UnixNano()
}

func tiempoDe(n int64) *time.Time {
	if n == 0 {
		return nil
	}
	t := time.Unix(0, n).UTC()
	return &t
}

func aEntero(b bool) int {
	if b {
		return 1
	}
	return 0
}

func (s *sqlStore) CrearConglomerados(ctx context.Context, lote []*api.Conglomerado) error {
	if len(lote) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin crear conglomerados")
	}
	defer tx.Rollback()

	q := s.rebind(`
		INSERT INTO conglomerados (` + colsConglomerado + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, c := range lote {
		_, err := tx.ExecContext(ctx, q,
			c.ID, c.Codigo, c.Latitud, c.Longitud, string(c.Estado),
			aEntero(c.Activo), aEntero(c.TieneBrigada),
			c.RevisadoPorCoordID, c.JefeBrigadaAsignadoID, c.CoordinadorID,
			nanosDe(c.FechaAsignacionRevision), nanosDe(c.FechaAsignacion),
			nanosDe(c.FechaLimiteRevision),
			c.RazonRechazo, c.AprobadoPorID, c.RechazadoPorID,
			c.MunicipioID, c.DepartamentoID, c.RegionID,
			c.CreatedAt.UnixNano(), c.UpdatedAt.UnixNano(),
		)
		if err != nil {
			if esViolacionUnicidad(err) {
				return errors.Wrapf(ErrCodigoDuplicado, "codigo %s", c.Codigo)
			}
			return errors.Wrapf(err, "insertar conglomerado %s", c.Codigo)
		}
	}

	return errors.Wrap(tx.Commit(), "commit crear conglomerados")
}

func (s *sqlStore) CrearSubparcelas(ctx context.Context, lote []*api.Subparcela) error {
	if len(lote) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin crear subparcelas")
	}
	defer tx.Rollback()

	q := s.rebind(`
		INSERT INTO conglomerados_subparcelas (` + colsSubparcela + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	for _, sp := range lote {
		seEst := -1
		if sp.SeEstablecio != nil {
			seEst = aEntero(*sp.SeEstablecio)
		}
		_, err := tx.ExecContext(ctx, q,
			sp.ID, sp.ConglomeradoID, sp.Num,
			sp.LatitudPrediligenciada, sp.LongitudPrediligenciada, seEst,
			flotanteDe(sp.LatitudEstablecida), flotanteDe(sp.LongitudEstablecida),
			flotanteDe(sp.ErrorGPS),
			string(sp.RazonNoEstablecida), sp.Observaciones,
			sp.CreatedAt.UnixNano(), sp.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return errors.Wrapf(err, "insertar subparcela %d de %s", sp.Num, sp.ConglomeradoID)
		}
	}

	return errors.Wrap(tx.Commit(), "commit crear subparcelas")
}

func flotanteDe(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func (s *sqlStore) escanearConglomerado(row interface{ Scan(...any) error }) (*api.Conglomerado, error) {
	var (
		c                    api.Conglomerado
		estado               string
		activo, tieneBrigada int
		fAsigRev, fAsig      int64
		fLimite              int64
		created, updated     int64
	)

	err := row.Scan(
		&c.ID, &c.Codigo, &c.Latitud, &c.Longitud, &estado, &activo, &tieneBrigada,
		&c.RevisadoPorCoordID, &c.JefeBrigadaAsignadoID, &c.CoordinadorID,
		&fAsigRev, &fAsig, &fLimite,
		&c.RazonRechazo, &c.AprobadoPorID, &c.RechazadoPorID,
		&c.MunicipioID, &c.DepartamentoID, &c.RegionID,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	c.Estado = api.Estado(estado)
	c.Activo = activo != 0
	c.TieneBrigada = tieneBrigada != 0
	c.FechaAsignacionRevision = tiempoDe(fAsigRev)
	c.FechaAsignacion = tiempoDe(fAsig)
	c.FechaLimiteRevision = tiempoDe(fLimite)
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}

func (s *sqlStore) Get(ctx context.Context, id string) (*api.Conglomerado, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+colsConglomerado+`
		FROM conglomerados
		WHERE id = ?`), id)

	c, err := s.escanearConglomerado(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConglomeradoNotFound
		}
		return nil, errors.Wrapf(err, "get conglomerado %s", id)
	}
	return c, nil
}

func (s *sqlStore) GetPorCodigo(ctx context.Context, codigo string) (*api.Conglomerado, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+colsConglomerado+`
		FROM conglomerados
		WHERE codigo = ? AND activo = 1`), codigo)

	c, err := s.escanearConglomerado(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrConglomeradoNotFound
		}
		return nil, errors.Wrapf(err, "get conglomerado codigo %s", codigo)
	}
	return c, nil
}

func (s *sqlStore) ExisteCodigo(ctx context.Context, codigo string) (bool, error) {
	var uno int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT 1 FROM conglomerados WHERE codigo = ?`), codigo).Scan(&uno)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrapf(err, "existe codigo %s", codigo)
	}
	return true, nil
}

func (s *sqlStore) Actualizar(ctx context.Context, c *api.Conglomerado) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE conglomerados
		SET latitud = ?, longitud = ?, estado = ?, activo = ?, tiene_brigada = ?,
		    revisado_por_coord_id = ?, jefe_brigada_asignado_id = ?, coordinador_id = ?,
		    fecha_asignacion_revision = ?, fecha_asignacion = ?, fecha_limite_revision = ?,
		    razon_rechazo = ?, aprobado_por_id = ?, rechazado_por_id = ?,
		    municipio_id = ?, departamento_id = ?, region_id = ?, updated_at = ?
		WHERE id = ?`),
		c.Latitud, c.Longitud, string(c.Estado), aEntero(c.Activo), aEntero(c.TieneBrigada),
		c.RevisadoPorCoordID, c.JefeBrigadaAsignadoID, c.CoordinadorID,
		nanosDe(c.FechaAsignacionRevision), nanosDe(c.FechaAsignacion), nanosDe(c.FechaLimiteRevision),
		c.RazonRechazo, c.AprobadoPorID, c.RechazadoPorID,
		c.MunicipioID, c.DepartamentoID, c.RegionID, c.UpdatedAt.UnixNano(),
		c.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "actualizar conglomerado %s", c.ID)
	}

	afectadas, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if afectadas == 0 {
		return ErrConglomeradoNotFound
	}
	return nil
}

func (s *sqlStore) Eliminar(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin eliminar")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM conglomerados_subparcelas WHERE conglomerado_id = ?`), id); err != nil {
		return errors.Wrapf(err, "eliminar subparcelas de %s", id)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`
		DELETE FROM conglomerados WHERE id = ?`), id)
	if err != nil {
		return errors.Wrapf(err, "eliminar conglomerado %s", id)
	}
	afectadas, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if afectadas == 0 {
		return ErrConglomeradoNotFound
	}

	return errors.Wrap(tx.Commit(), "commit eliminar")
}

func (f Filtro) clausulas() (string, []any) {
	var clauses []string
	var args []any

	if !f.IncluirInactivos {
		clauses = append(clauses, "activo = 1")
	}
	if f.Estado != "" {
		clauses = append(clauses, "estado = ?")
		args = append(args, string(f.Estado))
	}
	if f.JefeBrigadaID != "" {
		clauses = append(clauses, "jefe_brigada_asignado_id = ?")
		args = append(args, f.JefeBrigadaID)
	}
	if f.RevisorID != "" {
		clauses = append(clauses, "revisado_por_coord_id = ?")
		args = append(args, f.RevisorID)
	}
	if f.MunicipioID != "" {
		clauses = append(clauses, "municipio_id = ?")
		args = append(args, f.MunicipioID)
	}
	if f.DepartamentoID != "" {
		clauses = append(clauses, "departamento_id = ?")
		args = append(args, f.DepartamentoID)
	}
	if f.Busqueda != "" {
		clauses = append(clauses, "UPPER(codigo) LIKE ?")
		args = append(args, "%"+strings.ToUpper(f.Busqueda)+"%")
	}
	if f.VencidosAntes != nil {
		clauses = append(clauses, "fecha_limite_revision > 0 AND fecha_limite_revision < ?")
		args = append(args, f.VencidosAntes.UnixNano())
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *sqlStore) Listar(ctx context.Context, f Filtro) ([]*api.Conglomerado, int, error) {
	where, args := f.clausulas()

	total := 0
	if err := s.db.QueryRowContext(ctx,
		s.rebind(`SELECT COUNT(*) FROM conglomerados`+where), args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "contar conglomerados")
	}

	orden := " ORDER BY created_at DESC, id"
	if f.OrdenarPorAsignacion {
		orden = " ORDER BY fecha_asignacion, id"
	}

	query := `SELECT ` + colsConglomerado + ` FROM conglomerados` + where + orden
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "listar conglomerados")
	}
	defer rows.Close()

	var resultado []*api.Conglomerado
	for rows.Next() {
		c, err := s.escanearConglomerado(rows)
		if err != nil {
			return nil, 0, errors.Wrap(err, "escanear conglomerado")
		}
		resultado = append(resultado, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, "iterar conglomerados")
	}

	return resultado, total, nil
}

func (s *sqlStore) ContarVivos(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM conglomerados WHERE activo = 1`).Scan(&n)
	return n, errors.Wrap(err, "contar vivos")
}

func (s *sqlStore) ContarPorEstado(ctx context.Context, estado api.Estado) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT COUNT(*) FROM conglomerados WHERE activo = 1 AND estado = ?`),
		string(estado)).Scan(&n)
	return n, errors.Wrapf(err, "contar estado %s", estado)
}

// ClaimDisponibles implements the atomic claim. The candidate subquery picks
// the oldest available rows; on Postgres it locks them with FOR UPDATE SKIP
// LOCKED so concurrent claims pass each other instead of blocking, on SQLite
// the single UPDATE statement is already atomic (one writer at a time). The
// availability predicate is repeated in the outer UPDATE so a row claimed
// between subquery and update can never be claimed twice, and RETURNING hands
// back exactly the rows this call stamped, never another batch's.
func (s *sqlStore) ClaimDisponibles(ctx context.Context, n int, revisorID string, fechaLimite, ahora time.Time) ([]*api.Conglomerado, error) {
	if n <= 0 {
		return nil, nil
	}

	lock := ""
	if s.d == dialectoPostgres {
		lock = " FOR UPDATE SKIP LOCKED"
	}

	query := s.rebind(fmt.Sprintf(`
		UPDATE conglomerados
		SET estado = '%s',
		    revisado_por_coord_id = ?,
		    fecha_asignacion_revision = ?,
		    fecha_limite_revision = ?,
		    updated_at = ?
		WHERE id IN (
			SELECT id FROM conglomerados
			WHERE activo = 1 AND estado IN ('%s', '%s')
			ORDER BY created_at, id
			LIMIT %d%s
		) AND activo = 1 AND estado IN ('%s', '%s')
		RETURNING `+colsConglomerado,
		api.EstadoEnRevision,
		api.EstadoSinAsignar, api.EstadoListoParaAsignacion, n, lock,
		api.EstadoSinAsignar, api.EstadoListoParaAsignacion,
	))

	marca := ahora.UnixNano()
	rows, err := s.db.QueryContext(ctx, query,
		revisorID, marca, fechaLimite.UnixNano(), marca)
	if err != nil {
		return nil, errors.Wrap(err, "claim update")
	}
	defer rows.Close()

	var claimed []*api.Conglomerado
	for rows.Next() {
		c, err := s.escanearConglomerado(rows)
		if err != nil {
			return nil, errors.Wrap(err, "escanear claim")
		}
		claimed = append(claimed, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterar claim")
	}

	// RETURNING does not guarantee an order; callers expect oldest first.
	sort.Slice(claimed, func(i, j int) bool {
		if !claimed[i].CreatedAt.Equal(claimed[j].CreatedAt) {
			return claimed[i].CreatedAt.Before(claimed[j].CreatedAt)
		}
		return claimed[i].ID < claimed[j].ID
	})
	return claimed, nil
}

func (s *sqlStore) escanearSubparcela(row interface{ Scan(...any) error }) (*api.Subparcela, error) {
	var (
		sp               api.Subparcela
		seEst            int
		latEst, lonEst   float64
		errGPS           float64
		razon            string
		created, updated int64
	)

	err := row.Scan(
		&sp.ID, &sp.ConglomeradoID, &sp.Num,
		&sp.LatitudPrediligenciada, &sp.LongitudPrediligenciada, &seEst,
		&latEst, &lonEst, &errGPS,
		&razon, &sp.Observaciones,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}

	switch seEst {
	case 1:
		v := true
		sp.SeEstablecio = &v
		sp.LatitudEstablecida = &latEst
		sp.LongitudEstablecida = &lonEst
		sp.ErrorGPS = &errGPS
	case 0:
		v := false
		sp.SeEstablecio = &v
		sp.RazonNoEstablecida = api.RazonNoEstablecida(razon)
	}
	sp.CreatedAt = time.Unix(0, created).UTC()
	sp.UpdatedAt = time.Unix(0, updated).UTC()
	return &sp, nil
}

func (s *sqlStore) Subparcelas(ctx context.Context, conglomeradoID string) ([]*api.Subparcela, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT `+colsSubparcela+`
		FROM conglomerados_subparcelas
		WHERE conglomerado_id = ?
		ORDER BY subparcela_num`), conglomeradoID)
	if err != nil {
		return nil, errors.Wrapf(err, "subparcelas de %s", conglomeradoID)
	}
	defer rows.Close()

	var resultado []*api.Subparcela
	for rows.Next() {
		sp, err := s.escanearSubparcela(rows)
		if err != nil {
			return nil, errors.Wrap(err, "escanear subparcela")
		}
		resultado = append(resultado, sp)
	}
	return resultado, errors.Wrap(rows.Err(), "iterar subparcelas")
}

func (s *sqlStore) GetSubparcela(ctx context.Context, id string) (*api.Subparcela, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT `+colsSubparcela+`
		FROM conglomerados_subparcelas
		WHERE id = ?`), id)

	sp, err := s.escanearSubparcela(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubparcelaNotFound
		}
		return nil, errors.Wrapf(err, "get subparcela %s", id)
	}
	return sp, nil
}

func (s *sqlStore) ActualizarSubparcela(ctx context.Context, sp *api.Subparcela) error {
	seEst := -1
	if sp.SeEstablecio != nil {
		seEst = aEntero(*sp.SeEstablecio)
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		UPDATE conglomerados_subparcelas
		SET se_establecio = ?, latitud_establecida = ?, longitud_establecida = ?,
		    error_gps_establecido = ?, razon_no_establecida = ?, observaciones = ?,
		    updated_at = ?
		WHERE id = ?`),
		seEst, flotanteDe(sp.LatitudEstablecida), flotanteDe(sp.LongitudEstablecida),
		flotanteDe(sp.ErrorGPS), string(sp.RazonNoEstablecida), sp.Observaciones,
		sp.UpdatedAt.UnixNano(), sp.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "actualizar subparcela %s", sp.ID)
	}

	afectadas, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "rows affected")
	}
	if afectadas == 0 {
		return ErrSubparcelaNotFound
	}
	return nil
}

func (s *sqlStore) Close() error { return s.db.Close() }

func esViolacionUnicidad(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
