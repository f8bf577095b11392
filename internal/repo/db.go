// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers for the
// supported drivers and the schema migration.
//
// Drivers:
//   - sqlite: local file through the pure-Go glebarez driver (default)
//   - libsql: Turso/libSQL URL, spoken through the same SQLite dialector
//   - mysql:  MySQL DSN through gorm.io/driver/mysql
package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	_ "github.com/tursodatabase/libsql-client-go/libsql"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-karaoke-backend/internal/domain"
)

// Supported values for Options.Driver.
const (
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
	DriverMySQL  = "mysql"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound so services can match either.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown database driver")

// Options selects and configures the relational store.
type Options struct {
	Driver  string // sqlite | libsql | mysql
	DSN     string // file path, libsql URL or MySQL DSN
	Tracing bool   // install the OpenTelemetry GORM plugin
	Silent  bool   // suppress GORM's own SQL logging
}

// Open connects to the store described by opts.
func Open(opts Options) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverSQLite:
		db, err = OpenSQLite(opts.DSN)
	case DriverLibSQL:
		db, err = OpenLibSQL(opts.DSN)
	case DriverMySQL:
		db, err = OpenMySQL(opts.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if opts.Silent {
		db.Logger = logger.Default.LogMode(logger.Silent)
	}
	if opts.Tracing {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			return nil, fmt.Errorf("gorm tracing: %w", err)
		}
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if dir := filepath.Dir(path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(sqliteDSN(path)), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	tunePool(db, 10)
	return db, nil
}

// sqlitePragmas are applied by the driver to every pooled connection;
// foreign_keys and busy_timeout are per-connection settings.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"journal_mode(WAL)",
	"synchronous(NORMAL)",
}

// sqliteDSN appends the connection pragmas to path, keeping any query the
// caller already supplied.
func sqliteDSN(path string) string {
	var b strings.Builder
	b.WriteString(path)
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	for _, p := range sqlitePragmas {
		b.WriteString(sep)
		b.WriteString("_pragma=")
		b.WriteString(p)
		sep = "&"
	}
	return b.String()
}

// OpenLibSQL connects to a libSQL (Turso) database at url. The libSQL wire
// dialect is SQLite's, so the glebarez dialector drives the connection.
func OpenLibSQL(url string) (*gorm.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("libsql: empty url")
	}
	conn, err := sql.Open("libsql", url)
	if err != nil {
		return nil, fmt.Errorf("libsql open: %w", err)
	}
	db, err := gorm.Open(&sqlite.Dialector{DriverName: "libsql", Conn: conn}, &gorm.Config{TranslateError: true})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	db.Exec("PRAGMA foreign_keys=ON;")
	tunePool(db, 4)
	return db, nil
}

// OpenMySQL connects to MySQL using a go-sql-driver DSN
// (user:pass@tcp(host:3306)/karaoke?parseTime=true).
func OpenMySQL(dsn string) (*gorm.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("mysql: empty dsn")
	}
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	tunePool(db, 20)
	return db, nil
}

func tunePool(db *gorm.DB, maxOpen int) {
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}
}

// AutoMigrate creates or updates the schema for all persisted models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Song{},
		&domain.User{},
		&domain.Order{},
		&domain.Idempotency{},
	)
}
