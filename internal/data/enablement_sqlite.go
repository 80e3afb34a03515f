package data

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/roomguard/chatwork-moderator/internal/biz/domain"
	"github.com/roomguard/chatwork-moderator/internal/biz/repo"

	_ "modernc.org/sqlite"
)

// DefaultEnablementTable matches the table name used by existing deployments
const DefaultEnablementTable = "roomid"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// sqliteEnablementRepo implements the enablement repository on a local SQLite file
type sqliteEnablementRepo struct {
	db    *sql.DB
	table string
}

// NewSQLiteEnablementRepo creates a new SQLite enablement repository
func NewSQLiteEnablementRepo(dbPath, table string) (repo.EnablementRepo, error) {
	if table == "" {
		table = DefaultEnablementTable
	}
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	// Ensure directory exists
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Create table
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS ` + table + ` (
			room_id_column INTEGER PRIMARY KEY,
			created_at INTEGER NOT NULL DEFAULT (strftime('%s','now'))
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &sqliteEnablementRepo{db: db, table: table}, nil
}

// ListEnabled lists all enabled rooms
func (r *sqliteEnablementRepo) ListEnabled(ctx context.Context) (map[domain.RoomID]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT room_id_column FROM `+r.table)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	rooms := make(map[domain.RoomID]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, &domain.PersistenceError{Op: "list", Err: err}
		}
		rooms[domain.RoomID(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	return rooms, nil
}

// IsEnabled checks if a room is enabled
func (r *sqliteEnablementRepo) IsEnabled(ctx context.Context, room domain.RoomID) (bool, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `SELECT room_id_column FROM `+r.table+` WHERE room_id_column = ?`, int64(room)).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, &domain.PersistenceError{Op: "select", Err: err}
	}
	return true, nil
}

// Enable inserts the room if absent
func (r *sqliteEnablementRepo) Enable(ctx context.Context, room domain.RoomID) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR IGNORE INTO `+r.table+` (room_id_column) VALUES (?)`, int64(room))
	if err != nil {
		return &domain.PersistenceError{Op: "insert", Err: err}
	}
	return nil
}

// Disable deletes the room if present
func (r *sqliteEnablementRepo) Disable(ctx context.Context, room domain.RoomID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM `+r.table+` WHERE room_id_column = ?`, int64(room))
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// Close closes the database connection
func (r *sqliteEnablementRepo) Close() error {
	return r.db.Close()
}
