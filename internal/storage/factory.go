package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/shaibs3/holovote/internal/models"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// ProviderFactory defines the interface for opening the entity store
type ProviderFactory interface {
	CreateProvider(configJSON string) (*gorm.DB, error)
}

// DbProviderFactory opens and migrates a GORM database for the configured engine
type DbProviderFactory struct {
	logger *zap.Logger
	meter  metric.Meter
}

func NewDbProviderFactory(logger *zap.Logger, meter metric.Meter) *DbProviderFactory {
	return &DbProviderFactory{
		logger: logger.Named("storage"),
		meter:  meter,
	}
}

func (f *DbProviderFactory) CreateProvider(configJSON string) (*gorm.DB, error) {
	var config DbProviderConfig
	if err := json.Unmarshal([]byte(configJSON), &config); err != nil {
		return nil, fmt.Errorf("failed to parse database configuration JSON: %w", err)
	}

	f.logger.Info("creating database provider", zap.String("db_type", config.DbType.String()))

	if !config.DbType.IsValid() {
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}

	dialector, err := f.dialector(config)
	if err != nil {
		return nil, err
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		Logger:         NewGormLogger(f.logger),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	if config.DbType == DbTypeSQLite || config.DbType == DbTypeMemory {
		// one writer at a time; a shared in-memory database lives as long as its connection
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping %s: %w", config.DbType, err)
	}

	if err := gormDB.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if f.meter != nil {
		if err := f.registerPoolMetrics(gormDB); err != nil {
			f.logger.Warn("failed to register pool metrics", zap.Error(err))
		}
	}

	f.logger.Info("database provider initialized", zap.String("db_type", config.DbType.String()))
	return gormDB, nil
}

func (f *DbProviderFactory) dialector(config DbProviderConfig) (gorm.Dialector, error) {
	switch config.DbType {
	case DbTypePostgres:
		connStr, ok := config.detail("conn_str")
		if !ok {
			return nil, fmt.Errorf("conn_str is required for Postgres provider")
		}
		// lib/pq is the database/sql driver underneath
		return postgres.New(postgres.Config{DriverName: "postgres", DSN: connStr}), nil
	case DbTypeMySQL:
		dsn, err := mysqlDSN(config)
		if err != nil {
			return nil, err
		}
		return gormmysql.Open(dsn), nil
	case DbTypeSQLite:
		path, ok := config.detail("path")
		if !ok {
			return nil, fmt.Errorf("path is required for SQLite provider")
		}
		return sqlite.Open(path), nil
	case DbTypeMemory:
		f.logger.Info("using in-memory SQLite for DB")
		return sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.DbType)
	}
}

// mysqlDSN accepts a ready dsn or builds one from host/port/user/password/dbname
func mysqlDSN(config DbProviderConfig) (string, error) {
	if dsn, ok := config.detail("dsn"); ok {
		return dsn, nil
	}
	host, ok := config.detail("host")
	if !ok {
		return "", fmt.Errorf("dsn or host is required for MySQL provider")
	}
	port, ok := config.detail("port")
	if !ok {
		port = "3306"
	}
	dbName, ok := config.detail("dbname")
	if !ok {
		return "", fmt.Errorf("dbname is required for MySQL provider")
	}
	user, _ := config.detail("user")
	password, _ := config.detail("password")

	mc := mysql.NewConfig()
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(host, port)
	mc.User = user
	mc.Passwd = password
	mc.DBName = dbName
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

func (f *DbProviderFactory) registerPoolMetrics(gormDB *gorm.DB) error {
	sqlDB, err := gormDB.DB()
	if err != nil {
		return err
	}
	_, err = f.meter.Int64ObservableGauge("db_open_connections",
		metric.WithDescription("Open connections in the store's pool"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(sqlDB.Stats().OpenConnections))
			return nil
		}),
	)
	return err
}
