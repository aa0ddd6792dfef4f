package discovery

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/marmos91/lifecycled/internal/logger"
	"github.com/marmos91/lifecycled/pkg/service"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// serviceRow is the table layout of a Record.
type serviceRow struct {
	UUID         string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"index;not null"`
	Module       string `gorm:"index"`
	Type         string
	Host         string
	PID          int
	RegisteredAt time.Time
}

func (serviceRow) TableName() string { return "discovered_services" }

func rowFromRecord(r Record) serviceRow {
	return serviceRow{
		UUID:         r.UUID,
		Name:         r.Name,
		Module:       r.Module,
		Type:         r.Type,
		Host:         r.Host,
		PID:          r.PID,
		RegisteredAt: r.RegisteredAt,
	}
}

func (r serviceRow) record() Record {
	return Record{
		UUID:         r.UUID,
		Name:         r.Name,
		Module:       r.Module,
		Type:         r.Type,
		Host:         r.Host,
		PID:          r.PID,
		RegisteredAt: r.RegisteredAt,
	}
}

// SQLStore keeps records in a SQL table through GORM. SQLite suits a
// single host; PostgreSQL lets several hosts share one view.
type SQLStore struct {
	db   *gorm.DB
	kind Type
}

// NewSQLiteStore opens (or creates) a SQLite database at path.
func NewSQLiteStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	// WAL lets the services command read while a launcher writes.
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return openSQL(TypeSQLite, sqlite.Open(dsn), nil)
}

// NewPostgresStore connects to PostgreSQL.
func NewPostgresStore(cfg PostgresConfig) (*SQLStore, error) {
	return openSQL(TypePostgres, postgres.Open(cfg.DSN()), &cfg)
}

func openSQL(kind Type, dialector gorm.Dialector, pg *PostgresConfig) (*SQLStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if pg != nil {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(pg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(pg.MaxIdleConns)
	}

	store := &SQLStore{db: db, kind: kind}
	if err := db.AutoMigrate(&serviceRow{}); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}
	return store, nil
}

func (s *SQLStore) Name() string { return string(s.kind) }

func (s *SQLStore) RegisterService(ctx context.Context, inst *service.Instance) error {
	row := rowFromRecord(NewRecord(inst))
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", inst.Name(), err)
	}

	logger.DebugCtx(ctx, "registered service", logger.KeyRegistry, s.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (s *SQLStore) DeregisterService(ctx context.Context, inst *service.Instance) error {
	err := s.db.WithContext(ctx).Delete(&serviceRow{}, "uuid = ?", inst.UUID).Error
	if err != nil {
		return fmt.Errorf("failed to deregister %s: %w", inst.Name(), err)
	}

	logger.DebugCtx(ctx, "deregistered service", logger.KeyRegistry, s.Name(), logger.KeyUUID, inst.UUID)
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]Record, error) {
	var rows []serviceRow
	if err := s.db.WithContext(ctx).Order("name, uuid").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Healthcheck pings the database.
func (s *SQLStore) Healthcheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
