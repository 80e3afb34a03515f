// Package gormstore keeps the enabled-room set in a SQL table through gorm.
// Production uses Postgres; any gorm dialector works.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"
)

// DefaultTable matches the table name used by existing deployments
const DefaultTable = "roomid"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// EnablementRecord is one enabled room; existence means enabled
type EnablementRecord struct {
	RoomID int64 `gorm:"primaryKey;autoIncrement:false;column:room_id_column"`
}

// gormEnablementRepo implements the enablement repository on a SQL database through gorm
type gormEnablementRepo struct {
	db    *gorm.DB
	table string
}

// OpenPostgres connects to Postgres (e.g. a Supabase connection string)
func OpenPostgres(dsn, table string) (repo.EnablementRepo, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	return New(db, table)
}

// New creates the enablement repository on an open gorm handle
func New(db *gorm.DB, table string) (repo.EnablementRepo, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	if err := db.Table(table).AutoMigrate(&EnablementRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", table, err)
	}
	return &gormEnablementRepo{db: db, table: table}, nil
}

func (r *gormEnablementRepo) scoped(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.table)
}

// ListEnabled lists all enabled rooms
func (r *gormEnablementRepo) ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error) {
	var records []EnablementRecord
	if err := r.scoped(ctx).Find(&records).Error; err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}

	rooms := make(map[domain.RoomID]struct{}, len(records))
	for _, rec := range records {
		rooms[domain.RoomID(rec.RoomID)] = struct{}{}
	}
	return rooms, nil
}

// IsEnabled checks if a room is enabled
func (r *gormEnablementRepo) IsEnabled(ctx context.Context, room domain.RoomID) (bool, error) {
	var rec EnablementRecord
	err := r.scoped(ctx).Where("room_id_column = ?", int64(room)).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, &domain.PersistenceError{Op: "select", Err: err}
	}
	return true, nil
}

// Enable inserts the room if absent
func (r *gormEnablementRepo) Enable(ctx context.Context, room domain.RoomID) error {
	rec := EnablementRecord{RoomID: int64(room)}
	if err := r.scoped(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error; err != nil {
		return &domain.PersistenceError{Op: "insert", Err: err}
	}
	return nil
}

// Disable deletes the room if present
func (r *gormEnablementRepo) Disable(ctx context.Context, room domain.RoomID) error {
	if err := r.scoped(ctx).Where("room_id_column = ?", int64(room)).Delete(&EnablementRecord{}).Error; err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// Close closes the underlying connection pool
func (r *gormEnablementRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
