package database

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
	"gorm.io/plugin/dbresolver"
	"inspectra.app/offline-gateway/app/utils/logger"
	"inspectra.app/offline-gateway/config/environment_variables"
)

const (
	DatabaseTypeSQLite   = "sqlite"
	DatabaseTypePostgres = "postgres"
)

var SchemaRegistry []interface{}

func RegisterSchemaForAutoMigrate(models ...interface{}) {
	SchemaRegistry = append(SchemaRegistry, models...)
}

type Config struct {
	Type        string
	SQLitePath  string
	WriteDSN    string
	ReplicaDSNs []string
}

func NewConfigFromEnvironment() Config {
	ev := environment_variables.EnvironmentVariables
	cfg := Config{
		Type:       ev.DB_TYPE,
		SQLitePath: ev.DB_SQLITE_PATH,
		WriteDSN:   ev.DB_POSTGRESQL_WRITE_DSN,
	}
	if ev.DB_POSTGRESQL_READ1_DSN != "" {
		cfg.ReplicaDSNs = append(cfg.ReplicaDSNs, ev.DB_POSTGRESQL_READ1_DSN)
	}
	return cfg
}

var DB *gorm.DB

func NewDB() (*gorm.DB, error) {
	db, err := Open(NewConfigFromEnvironment())
	if err != nil {
		return nil, err
	}
	DB = db
	return DB, nil
}

// Open connects to the configured database and migrates every registered
// schema.
func Open(cfg Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	}

	var db *gorm.DB
	var err error
	switch cfg.Type {
	case DatabaseTypePostgres:
		db, err = openPostgres(cfg, gormConfig)
	case DatabaseTypeSQLite, "":
		db, err = openSQLite(cfg, gormConfig)
	default:
		err = fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if err != nil {
		logger.GetLogger().
			WithField("error_code", "5c16fb53-d98c-4fc6-8bb4-9abd3c0b9e88").
			Errorf("unable to connect to database: %v", err)
		return nil, err
	}

	for _, model := range SchemaRegistry {
		if err := db.AutoMigrate(model); err != nil {
			logger.GetLogger().
				WithField("error_code", "75333e43-8157-4f0a-8e34-aa34e6e7c285").
				Errorf("failed to auto migrate schema: %T, error: %v", model, err)
			return nil, err
		}
	}
	return db, nil
}

func openPostgres(cfg Config, gormConfig *gorm.Config) (*gorm.DB, error) {
	if cfg.WriteDSN == "" {
		return nil, fmt.Errorf("DB_POSTGRESQL_WRITE_DSN is required for postgres")
	}
	db, err := gorm.Open(postgres.Open(cfg.WriteDSN), gormConfig)
	if err != nil {
		return nil, err
	}
	if len(cfg.ReplicaDSNs) == 0 {
		return db, nil
	}
	replicas := make([]gorm.Dialector, 0, len(cfg.ReplicaDSNs))
	for _, dsn := range cfg.ReplicaDSNs {
		replicas = append(replicas, postgres.Open(dsn))
	}
	err = db.Use(dbresolver.Register(dbresolver.Config{
		Replicas: replicas,
		Policy:   dbresolver.RandomPolicy{},
	}))
	if err != nil {
		return nil, fmt.Errorf("unable to setup replica: %w", err)
	}
	return db, nil
}

func openSQLite(cfg Config, gormConfig *gorm.Config) (*gorm.DB, error) {
	path := cfg.SQLitePath
	if path == "" {
		path = ":memory:"
	}
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig)
	if err != nil {
		return nil, err
	}
	// one writer; an in-memory database also only lives on a single connection
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}
