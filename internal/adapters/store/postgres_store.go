package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/BeaconFlow/internal/domain"
	"github.com/ghalamif/BeaconFlow/internal/ports"
)

// PostgresStore keeps one row per task name and upserts on publish.
type PostgresStore struct {
	db        *sql.DB
	tableName string
	now       func() time.Time
}

func NewPostgresStore(db *sql.DB, table string) *PostgresStore {
	if table == "" {
		table = "beacon_results"
	}
	return &PostgresStore{db: db, tableName: table, now: time.Now}
}

func (p *PostgresStore) Name() string { return "postgres" }

// EnsureSchema creates the results table when missing.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS "+p.tableName+
		" (task_name TEXT PRIMARY KEY, record JSONB NOT NULL, updated_at TIMESTAMPTZ NOT NULL)")
	return err
}

func (p *PostgresStore) Publish(ctx context.Context, key string, rec *domain.ResultRecord) error {
	if rec == nil {
		return nil
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		"INSERT INTO "+p.tableName+" (task_name, record, updated_at) VALUES ($1,$2,$3)"+
			" ON CONFLICT (task_name) DO UPDATE SET record = EXCLUDED.record, updated_at = EXCLUDED.updated_at",
		key, b, p.now())
	return err
}

func (p *PostgresStore) Consume(ctx context.Context, key string) (*domain.ResultRecord, bool, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx, "SELECT record FROM "+p.tableName+" WHERE task_name = $1", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var rec domain.ResultRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, false, fmt.Errorf("decode record %s: %w", key, err)
	}
	return &rec, true, nil
}

func (p *PostgresStore) Keys(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, "SELECT task_name FROM "+p.tableName+" ORDER BY task_name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (p *PostgresStore) Clear(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, "DELETE FROM "+p.tableName+" WHERE task_name = $1", key)
	return err
}

var _ ports.ResultChannel = (*PostgresStore)(nil)
