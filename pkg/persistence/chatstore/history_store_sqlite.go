package chatstore

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/go-go-golems/devassist/pkg/turns"
)

const sqliteHistoryPrefix = "sqlite history store"

// SQLiteHistoryStore keeps the history log in a single `history` table whose
// autoincrement id doubles as the per-session sequence.
type SQLiteHistoryStore struct {
	db *sql.DB
}

var (
	_ HistoryStore  = &SQLiteHistoryStore{}
	_ SessionLister = &SQLiteHistoryStore{}
)

func NewSQLiteHistoryStore(dsn string) (*SQLiteHistoryStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("sqlite history store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: open")
	}
	s := &SQLiteHistoryStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenSQLiteHistoryStoreFile creates the parent directory of path if needed
// and opens a store on it.
func OpenSQLiteHistoryStoreFile(path string) (*SQLiteHistoryStore, error) {
	dsn, err := SQLiteHistoryDSNForFile(path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.Wrapf(err, "sqlite history store: create db directory %s", dir)
		}
	}
	return NewSQLiteHistoryStore(dsn)
}

func (s *SQLiteHistoryStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteHistoryStore) migrate() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite history store: db is nil")
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS history_by_session ON history(session_id, id);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite history store: migrate")
		}
	}
	return nil
}

func (s *SQLiteHistoryStore) Append(ctx context.Context, sessionID string, role turns.Role, payload turns.Payload) (int64, error) {
	seqs, err := s.AppendTurns(ctx, sessionID, []NewTurn{{Role: role, Payload: payload}})
	if err != nil {
		return 0, err
	}
	return seqs[0], nil
}

func (s *SQLiteHistoryStore) AppendTurns(ctx context.Context, sessionID string, ts []NewTurn) ([]int64, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite history store: db is nil")
	}
	if ctx == nil {
		return nil, errors.New("sqlite history store: ctx is nil")
	}
	encoded, err := encodeNewTurns(sqliteHistoryPrefix, sessionID, ts)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: begin tx")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	seqs := make([]int64, 0, len(encoded))
	for i, et := range encoded {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO history(session_id, role, content) VALUES(?, ?, ?)`,
			sessionID, string(et.role), et.content,
		)
		if err != nil {
			return nil, errors.Wrapf(err, "sqlite history store: insert turn %d", i)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, errors.Wrap(err, "sqlite history store: last insert id")
		}
		seqs = append(seqs, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "sqlite history store: commit tx")
	}
	committed = true
	return seqs, nil
}

func (s *SQLiteHistoryStore) ReadAll(ctx context.Context, sessionID string) ([]Turn, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite history store: db is nil")
	}
	if ctx == nil {
		return nil, errors.New("sqlite history store: ctx is nil")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, role, content
		FROM history
		WHERE session_id = ?
		ORDER BY id ASC
	`, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: query")
	}
	defer func() { _ = rows.Close() }()

	out := []Turn{}
	for rows.Next() {
		var (
			t    Turn
			role string
		)
		if err := rows.Scan(&t.Sequence, &t.SessionID, &role, &t.Content); err != nil {
			return nil, errors.Wrap(err, "sqlite history store: scan")
		}
		t.Role = turns.Role(role)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite history store: rows")
	}
	return out, nil
}

func (s *SQLiteHistoryStore) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite history store: db is nil")
	}
	if ctx == nil {
		return nil, errors.New("sqlite history store: ctx is nil")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(id)
		FROM history
		GROUP BY session_id
		ORDER BY MAX(id) DESC
	`)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite history store: list sessions")
	}
	defer func() { _ = rows.Close() }()

	out := []SessionSummary{}
	for rows.Next() {
		var ss SessionSummary
		if err := rows.Scan(&ss.SessionID, &ss.Turns, &ss.LastSequence); err != nil {
			return nil, errors.Wrap(err, "sqlite history store: scan session")
		}
		out = append(out, ss)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "sqlite history store: rows")
	}
	return out, nil
}

// SQLiteHistoryDSNForFile returns a DSN for a file-backed history database.
// The path is percent-escaped so `?`, `#` and `%` stay part of the file name.
func SQLiteHistoryDSNForFile(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", errors.New("sqlite history store: empty path")
	}
	escaped := (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath()
	// WAL lets history reads proceed while a chat request is appending.
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", escaped), nil
}
