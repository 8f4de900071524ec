package record

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore persists flow records to SQLite.
// It is suitable for single-process production use.
type SQLiteStore struct {
	db     *sql.DB
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteStore creates a new SQLite record store.
// The path should be a file path (e.g., "./flows.db") or ":memory:" for testing.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS flow_records (
			channel_id     INTEGER NOT NULL,
			message_id     INTEGER NOT NULL,
			guild_id       INTEGER NOT NULL,
			flow_id        TEXT NOT NULL,
			command_id     TEXT NOT NULL,
			config_class   TEXT NOT NULL,
			config         BLOB NOT NULL,
			progress_class TEXT NOT NULL,
			progress       BLOB,
			created_at     TEXT NOT NULL,
			PRIMARY KEY (channel_id, message_id)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_flow_records_flow_id
		ON flow_records(flow_id)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create index: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, ref MessageRef) (*FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, message_id, guild_id, flow_id, command_id,
		       config_class, config, progress_class, progress, created_at
		FROM flow_records
		WHERE channel_id = ? AND message_id = ?
	`, ref.ChannelID, ref.MessageID)

	return scanRecord(row)
}

// ByFlowID implements Store.
func (s *SQLiteStore) ByFlowID(ctx context.Context, flowID uuid.UUID) (*FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT channel_id, message_id, guild_id, flow_id, command_id,
		       config_class, config, progress_class, progress, created_at
		FROM flow_records
		WHERE flow_id = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, flowID.String())

	return scanRecord(row)
}

// Put implements Store.
func (s *SQLiteStore) Put(ctx context.Context, rec *FlowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	progressClass := rec.ProgressClassID
	if progressClass == "" {
		progressClass = NoProgress
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_records (channel_id, message_id, guild_id, flow_id,
			command_id, config_class, config, progress_class, progress, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, message_id) DO UPDATE SET
			guild_id = excluded.guild_id,
			flow_id = excluded.flow_id,
			command_id = excluded.command_id,
			config_class = excluded.config_class,
			config = excluded.config,
			progress_class = excluded.progress_class,
			progress = excluded.progress
	`, rec.Message.ChannelID, rec.Message.MessageID, rec.GuildID, rec.FlowID.String(),
		rec.CommandID, rec.ConfigClassID, rec.Config, progressClass, rec.Progress,
		createdAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save flow record: %w", err)
	}
	return nil
}

// ClearProgress implements Store.
func (s *SQLiteStore) ClearProgress(ctx context.Context, ref MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE flow_records
		SET progress_class = ?, progress = NULL
		WHERE channel_id = ? AND message_id = ?
	`, NoProgress, ref.ChannelID, ref.MessageID)
	if err != nil {
		return fmt.Errorf("clear progress: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete implements Store.
func (s *SQLiteStore) Delete(ctx context.Context, ref MessageRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM flow_records
		WHERE channel_id = ? AND message_id = ?
	`, ref.ChannelID, ref.MessageID)
	if err != nil {
		return fmt.Errorf("delete flow record: %w", err)
	}
	return nil
}

// MessageIDsForFlow implements Store.
func (s *SQLiteStore) MessageIDsForFlow(ctx context.Context, flowID uuid.UUID, channelID int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT message_id FROM flow_records
		WHERE flow_id = ? AND channel_id = ?
	`, flowID.String(), channelID)
	if err != nil {
		return nil, fmt.Errorf("list flow messages: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan message id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flow messages: %w", err)
	}
	return ids, nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	return s.db.Close()
}

func scanRecord(row *sql.Row) (*FlowRecord, error) {
	var rec FlowRecord
	var flowID, createdAt string
	err := row.Scan(&rec.Message.ChannelID, &rec.Message.MessageID, &rec.GuildID,
		&flowID, &rec.CommandID, &rec.ConfigClassID, &rec.Config,
		&rec.ProgressClassID, &rec.Progress, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load flow record: %w", err)
	}
	rec.FlowID, err = uuid.Parse(flowID)
	if err != nil {
		return nil, fmt.Errorf("parse flow id: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &rec, nil
}
