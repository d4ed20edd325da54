package checkpoints

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// SQLiteStore persists checkpoints in a SQLite database. The caller is
// responsible for importing a driver registered under the name "sqlite":
//
//	import _ "modernc.org/sqlite"
//
//	db, err := sql.Open("sqlite", "checkpoints.db")
//	store, err := checkpoints.NewSQLiteStore(db)
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates the checkpoints table if needed and returns a
// store backed by db.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS checkpoints (
			flow_id    TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Wrap(err, "creating checkpoints table")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Save(ctx context.Context, cp *Checkpoint) error {
	data, err := Encode(cp)
	if err != nil {
		return err
	}

	const upsert = `
		INSERT INTO checkpoints (flow_id, data, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(flow_id) DO UPDATE SET
			data = excluded.data,
			updated_at = excluded.updated_at`
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, upsert, cp.FlowID, data, cp.CreatedAt, now); err != nil {
		return errors.Wrapf(err, "saving checkpoint for flow %s", cp.FlowID)
	}
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, flowID string) (*Checkpoint, error) {
	const query = `SELECT data FROM checkpoints WHERE flow_id = ?`

	var data []byte
	err := s.db.QueryRowContext(ctx, query, flowID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "loading checkpoint for flow %s", flowID)
	}
	return Decode(data)
}

func (s *SQLiteStore) Delete(ctx context.Context, flowID string) error {
	const del = `DELETE FROM checkpoints WHERE flow_id = ?`
	if _, err := s.db.ExecContext(ctx, del, flowID); err != nil {
		return errors.Wrapf(err, "deleting checkpoint for flow %s", flowID)
	}
	return nil
}
