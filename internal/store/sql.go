// internal/store/sql.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/lib/pq"              // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/valpere/CellarScrapexter/internal/errors"
	"github.com/valpere/CellarScrapexter/pkg/types"
)

// dialect captures the differences between the supported SQL engines.
type dialect struct {
	driverName string
	quote      func(string) string
	bind       func(n int) string
}

var dialects = map[string]dialect{
	"sqlite": {
		driverName: "sqlite3",
		quote:      func(s string) string { return `"` + s + `"` },
		bind:       func(int) string { return "?" },
	},
	"postgres": {
		driverName: "postgres",
		quote:      func(s string) string { return `"` + s + `"` },
		bind:       func(n int) string { return fmt.Sprintf("$%d", n) },
	},
	"mysql": {
		driverName: "mysql",
		quote:      func(s string) string { return "`" + s + "`" },
		bind:       func(int) string { return "?" },
	},
}

// SQLStore persists records in one table of a SQLite, PostgreSQL or MySQL
// database. Identity columns hold normalized keys; vintage_key is 0 for
// non-vintage wines so the unique index never compares NULLs.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	table   string
	now     func() time.Time
}

// NewSQLStore opens the database, checks the connection and creates the
// table if it does not exist
func NewSQLStore(ctx context.Context, driver, dsn, table string) (*SQLStore, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, errors.Newf(errors.KindConfig, "open store", "unsupported SQL driver %q", driver)
	}
	if dsn == "" {
		return nil, errors.Newf(errors.KindConfig, "open store", "%s DSN is required", driver)
	}
	if table == "" {
		table = "wines"
	}

	db, err := sql.Open(d.driverName, dsn)
	if err != nil {
		return nil, errors.New(errors.KindStorage, "open store", fmt.Errorf("failed to connect to %s: %w", driver, err))
	}

	if driver == "sqlite" {
		// one connection so ":memory:" databases are shared
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.New(errors.KindStorage, "open store", fmt.Errorf("failed to ping %s database: %w", driver, err))
	}

	s := &SQLStore{db: db, dialect: d, table: table, now: time.Now}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) createTable(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id VARCHAR(36) PRIMARY KEY,
	name_key VARCHAR(255) NOT NULL,
	producer_key VARCHAR(255) NOT NULL,
	vintage_key INTEGER NOT NULL,
	name TEXT NOT NULL,
	producer TEXT NOT NULL,
	vintage INTEGER NULL,
	varietal TEXT NOT NULL,
	region TEXT NOT NULL,
	country TEXT NOT NULL,
	image TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	UNIQUE (name_key, producer_key, vintage_key)
)`, s.dialect.quote(s.table))

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return errors.New(errors.KindStorage, "create table", err)
	}
	return nil
}

// FindRecordByKey returns the matching record or nil
func (s *SQLStore) FindRecordByKey(ctx context.Context, name, producer string, vintage *int) (*Record, error) {
	key := keyOf(name, producer, vintage)
	query := fmt.Sprintf(
		"SELECT id, name, producer, vintage, varietal, region, country, image FROM %s WHERE name_key = %s AND producer_key = %s AND vintage_key = %s",
		s.dialect.quote(s.table), s.dialect.bind(1), s.dialect.bind(2), s.dialect.bind(3))

	var (
		r   Record
		vin sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx, query, key.Name, key.Producer, key.Vintage).
		Scan(&r.ID, &r.Name, &r.Producer, &vin, &r.Varietal, &r.Region, &r.Country, &r.Image)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.New(errors.KindStorage, "find record", err)
	}
	if vin.Valid {
		v := int(vin.Int64)
		r.Vintage = &v
	}
	return &r, nil
}

// CreateRecord inserts a new row
func (s *SQLStore) CreateRecord(ctx context.Context, rec types.WineRecord) (*Record, error) {
	r := newRecord(rec, s.now().UTC())
	key := keyOf(rec.Name, rec.Producer, rec.Vintage)

	columns := []string{"id", "name_key", "producer_key", "vintage_key", "name", "producer", "vintage",
		"varietal", "region", "country", "image", "created_at", "updated_at"}
	binds := make([]string, len(columns))
	for i := range columns {
		binds[i] = s.dialect.bind(i + 1)
	}

	var vintage interface{}
	if r.Vintage != nil {
		vintage = *r.Vintage
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.dialect.quote(s.table), strings.Join(columns, ", "), strings.Join(binds, ", "))

	_, err := s.db.ExecContext(ctx, query,
		r.ID, key.Name, key.Producer, key.Vintage, r.Name, r.Producer, vintage,
		r.Varietal, r.Region, r.Country, r.Image, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return nil, errors.New(errors.KindStorage, "create record", err)
	}
	return r, nil
}

// UpdateRecordImage sets the image column of one row
func (s *SQLStore) UpdateRecordImage(ctx context.Context, id, url string) error {
	query := fmt.Sprintf("UPDATE %s SET image = %s, updated_at = %s WHERE id = %s",
		s.dialect.quote(s.table), s.dialect.bind(1), s.dialect.bind(2), s.dialect.bind(3))

	res, err := s.db.ExecContext(ctx, query, url, s.now().UTC(), id)
	if err != nil {
		return errors.New(errors.KindStorage, "update record image", err)
	}
	// MySQL reports changed rows, not matched rows
	if n, err := res.RowsAffected(); err == nil && n == 0 && s.dialect.driverName != "mysql" {
		return errors.New(errors.KindStorage, "update record image", ErrNotFound)
	}
	return nil
}

// Ping checks the connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
