package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ftahirops/drivelog/model"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so TEXT ordering matches time ordering.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000Z07:00"

type dialect struct {
	name        string
	driver      string
	schema      string
	rebind      func(string) string
	timeArg     func(time.Time) any
	isDuplicate func(error) bool
}

var sqliteDialect = &dialect{
	name:   "sqlite",
	driver: "sqlite",
	schema: sqliteSchema,
	rebind: func(q string) string { return q },
	timeArg: func(t time.Time) any {
		return t.UTC().Format(sqliteTimeLayout)
	},
	isDuplicate: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		code := se.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY || code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	},
}

var postgresDialect = &dialect{
	name:    "postgres",
	driver:  "pgx",
	schema:  postgresSchema,
	rebind:  rebindDollar,
	timeArg: func(t time.Time) any { return t.UTC() },
	isDuplicate: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe) && pe.Code == "23505" // unique_violation
	},
}

// rebindDollar rewrites ? placeholders as $1, $2, ...
func rebindDollar(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func dialectFor(driver string) (*dialect, error) {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "pgx", "postgres", "postgresql":
		return postgresDialect, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q (want sqlite or postgres)", driver)
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqlQueries struct {
	q querier
	d *dialect
}

func (s sqlQueries) IdentityExists(ctx context.Context, ownerHost, deviceName, identityData string) (bool, error) {
	var n int
	err := s.q.QueryRowContext(ctx, s.d.rebind(
		`SELECT COUNT(*) FROM drive_identity
		 WHERE owner_host = ? AND device_name = ? AND identity_data = ?`),
		ownerHost, deviceName, identityData).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query identity: %w", err)
	}
	return n > 0, nil
}

func (s sqlQueries) MaxGeneration(ctx context.Context, ownerHost, deviceName string) (int, error) {
	var gen int
	err := s.q.QueryRowContext(ctx, s.d.rebind(
		`SELECT COALESCE(MAX(generation), 0) FROM drive_identity
		 WHERE owner_host = ? AND device_name = ?`),
		ownerHost, deviceName).Scan(&gen)
	if err != nil {
		return 0, fmt.Errorf("query max generation: %w", err)
	}
	return gen, nil
}

func (s sqlQueries) InsertIdentity(ctx context.Context, snap model.IdentitySnapshot) error {
	_, err := s.q.ExecContext(ctx, s.d.rebind(
		`INSERT INTO drive_identity (owner_host, device_name, generation, identity_data, observed_at)
		 VALUES (?, ?, ?, ?, ?)`),
		snap.OwnerHost, snap.DeviceName, snap.Generation, snap.IdentityData, s.d.timeArg(snap.ObservedAt))
	if err != nil {
		if s.d.isDuplicate(err) {
			return fmt.Errorf("insert identity %s gen %d: %w", snap.DeviceName, snap.Generation, ErrDuplicate)
		}
		return fmt.Errorf("insert identity %s gen %d: %w", snap.DeviceName, snap.Generation, err)
	}
	return nil
}

func (s sqlQueries) InsertObservation(ctx context.Context, obs model.Observation) error {
	_, err := s.q.ExecContext(ctx, s.d.rebind(
		`INSERT INTO drive_observation (owner_host, device_name, generation, observed_at, brief_summary, detail_summary)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		obs.OwnerHost, obs.DeviceName, obs.Generation, s.d.timeArg(obs.ObservedAt), obs.BriefSummary, obs.DetailSummary)
	if err != nil {
		if s.d.isDuplicate(err) {
			return fmt.Errorf("insert observation %s gen %d: %w", obs.DeviceName, obs.Generation, ErrDuplicate)
		}
		return fmt.Errorf("insert observation %s gen %d: %w", obs.DeviceName, obs.Generation, err)
	}
	return nil
}

// SQL is a Store on database/sql, backed by sqlite (modernc.org/sqlite) or
// PostgreSQL (pgx).
type SQL struct {
	sqlQueries
	db *sql.DB
}

var _ Store = (*SQL)(nil)

// OpenSQL opens and pings the database. driver is "sqlite" or "postgres".
func OpenSQL(ctx context.Context, driver, dsn string) (*SQL, error) {
	d, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	if dsn == "" {
		return nil, fmt.Errorf("open %s: empty dsn", d.name)
	}
	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", d.name, err)
	}
	if d == sqliteDialect {
		// One connection: in-memory databases are per connection, and
		// sqlite serializes writers anyway.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", d.name, err)
	}
	return &SQL{sqlQueries: sqlQueries{q: db, d: d}, db: db}, nil
}

// Dialect returns "sqlite" or "postgres".
func (s *SQL) Dialect() string { return s.d.name }

func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(s.d.schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", s.d.name, err)
		}
	}
	return nil
}

func (s *SQL) Atomic(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(sqlQueries{q: tx, d: s.d}); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQL) Identities(ctx context.Context, ownerHost string) ([]model.IdentitySnapshot, error) {
	q := `SELECT owner_host, device_name, generation, identity_data, observed_at FROM drive_identity`
	var args []any
	if ownerHost != "" {
		q += ` WHERE owner_host = ?`
		args = append(args, ownerHost)
	}
	q += ` ORDER BY owner_host, device_name, generation`

	rows, err := s.db.QueryContext(ctx, s.d.rebind(q), args...)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []model.IdentitySnapshot
	for rows.Next() {
		var snap model.IdentitySnapshot
		if err := rows.Scan(&snap.OwnerHost, &snap.DeviceName, &snap.Generation,
			&snap.IdentityData, timeScanner{&snap.ObservedAt}); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *SQL) LatestObservation(ctx context.Context, ownerHost, deviceName string, generation int) (model.Observation, error) {
	var obs model.Observation
	err := s.db.QueryRowContext(ctx, s.d.rebind(
		`SELECT owner_host, device_name, generation, observed_at, brief_summary, detail_summary
		 FROM drive_observation
		 WHERE owner_host = ? AND device_name = ? AND generation = ?
		 ORDER BY observed_at DESC LIMIT 1`),
		ownerHost, deviceName, generation).Scan(&obs.OwnerHost, &obs.DeviceName, &obs.Generation,
		timeScanner{&obs.ObservedAt}, &obs.BriefSummary, &obs.DetailSummary)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Observation{}, ErrNotFound
	}
	if err != nil {
		return model.Observation{}, fmt.Errorf("latest observation: %w", err)
	}
	return obs, nil
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// timeScanner reads timestamps stored either natively or as TEXT.
type timeScanner struct{ t *time.Time }

func (ts timeScanner) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*ts.t = v.UTC()
		return nil
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	case nil:
		*ts.t = time.Time{}
		return nil
	}
	return fmt.Errorf("scan time: unsupported type %T", src)
}

func (ts timeScanner) parse(s string) error {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		if t, err = time.Parse(time.RFC3339Nano, s); err != nil {
			return fmt.Errorf("scan time %q: %w", s, err)
		}
	}
	*ts.t = t.UTC()
	return nil
}
