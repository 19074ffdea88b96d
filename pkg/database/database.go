package database

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"places_backend/pkg/config"
	"places_backend/pkg/models"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SQLiteDriver is the sqlite3 driver with foreign keys enforced and a
// Unicode-aware lower() registered as unicode_lower.
const SQLiteDriver = "sqlite3_places"

func init() {
	sql.Register(SQLiteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			if _, err := conn.Exec("PRAGMA foreign_keys = ON", nil); err != nil {
				return err
			}
			return conn.RegisterFunc("unicode_lower", strings.ToLower, true)
		},
	})
}

func openSQLite(path string) gorm.Dialector {
	return sqlite.New(sqlite.Config{DriverName: SQLiteDriver, DSN: path})
}

// Open connects to the configured database, retrying while it comes up,
// and migrates the schema.
func Open(cfg config.Database, log *logrus.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite":
		dialector = openSQLite(cfg.SQLitePath)
		log.WithField("path", cfg.SQLitePath).Info("Connecting to sqlite database")
	default:
		dialector = postgres.Open(cfg.DSN())
		log.WithFields(logrus.Fields{
			"host": cfg.Host, "port": cfg.Port, "user": cfg.User, "name": cfg.Name,
		}).Info("Connecting to postgres database")
	}

	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var db *gorm.DB
	var err error
	for i := 0; i < retries; i++ {
		db, err = gorm.Open(dialector, Config())
		if err == nil {
			break
		}
		log.WithError(err).Warnf("Database connection attempt %d/%d failed", i+1, retries)
		if i < retries-1 {
			time.Sleep(cfg.ConnectBackoff)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.Driver == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("Database connection established successfully")
	return db, nil
}

// Config is the gorm configuration shared by the service and its tests.
// TranslateError turns driver unique and foreign key violations into
// gorm.ErrDuplicatedKey and gorm.ErrForeignKeyViolated.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("database migration failed: %w", err)
	}
	return nil
}

// IsPostgres reports whether db talks to postgres, for the few queries
// whose SQL differs between dialects.
func IsPostgres(db *gorm.DB) bool {
	return db.Dialector.Name() == "postgres"
}

// OpenMemory returns a migrated in-memory sqlite database. Each connection to
// ":memory:" is a separate database, so the pool is pinned to one connection.
func OpenMemory() (*gorm.DB, error) {
	db, err := gorm.Open(openSQLite(":memory:"), Config())
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}
