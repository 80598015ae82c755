package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"

	gosqlite "github.com/mattn/go-sqlite3"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	"go.opentelemetry.io/otel"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/rs/zerolog"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
)

// DriverName is go-sqlite3 with a Unicode aware lower() installed on every
// connection. The built-in lower() only folds ASCII letters, which breaks
// case-insensitive search on titles such as "ÉCLAIR".
const DriverName = "sqlite3_tasktracker"

func init() {
	sql.Register(DriverName, &gosqlite.SQLiteDriver{
		ConnectHook: func(conn *gosqlite.SQLiteConn) error {
			return conn.RegisterFunc("lower", unicodeLower, true)
		},
	})
}

// unicodeLower receives NULL as a nil byte slice.
func unicodeLower(v any) any {
	switch s := v.(type) {
	case string:
		return strings.ToLower(s)
	case []byte:
		if s == nil {
			return nil
		}
		return strings.ToLower(string(s))
	default:
		return v
	}
}

type DB struct {
	*sql.DB
	QueryBuilder *squirrel.StatementBuilderType
}

type Config struct {
	Path           string
	MigrationsPath string
	LogQueries     bool
}

// DSN enables foreign keys for every pooled connection and keeps DATETIME
// columns in UTC. Transactions begin IMMEDIATE so concurrent writers wait on
// the busy timeout instead of failing a lock upgrade.
func DSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}

	return path + sep + "_foreign_keys=on&_busy_timeout=5000&_loc=UTC&_txlock=immediate"
}

func NewDB(cfg Config) (*DB, error) {
	if cfg.Path == "" {
		cfg.Path = "database.db"
	}

	if cfg.MigrationsPath == "" {
		cfg.MigrationsPath = "db/migrations"
	}

	dsn := DSN(cfg.Path)

	migrationDB, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, err
	}

	if err := RunMigrations(migrationDB, cfg.MigrationsPath); err != nil {
		migrationDB.Close()
		return nil, err
	}
	migrationDB.Close()

	sqlDB, err := otelsql.Open(DriverName, dsn,
		otelsql.WithDBSystem("sqlite"),
		otelsql.WithDBName("tasktracker"),
		otelsql.WithTracerProvider(otel.GetTracerProvider()),
	)
	if err != nil {
		return nil, err
	}

	if cfg.LogQueries {
		logger := zerolog.New(os.Stdout).Level(zerolog.DebugLevel).With().Timestamp().Logger()
		driver := sqlDB.Driver()
		sqlDB.Close()

		// Arguments carry password hashes and token hashes.
		sqlDB = sqldblogger.OpenDriver(dsn, driver, zerologadapter.New(logger),
			sqldblogger.WithLogArguments(false),
		)
	}

	// SQLite serializes writers; a small pool avoids SQLITE_BUSY storms.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(4)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	slog.Info("SQLite database ready", "path", cfg.Path)

	return Wrap(sqlDB), nil
}

// Wrap builds a DB around an already opened connection pool.
func Wrap(sqlDB *sql.DB) *DB {
	queryBuilder := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	return &DB{
		DB:           sqlDB,
		QueryBuilder: &queryBuilder,
	}
}

func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath,
		"sqlite3",
		driver,
	)
	if err != nil {
		return fmt.Errorf("create migration instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// IsForeignKeyViolation reports whether err comes from a FOREIGN KEY
// constraint, typically an insert referencing a deleted account.
func IsForeignKeyViolation(err error) bool {
	var sqliteErr gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == gosqlite.ErrConstraintForeignKey
	}

	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// IsUniqueViolation reports whether err comes from a UNIQUE constraint.
func IsUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
