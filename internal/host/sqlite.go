package host

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, WAL-friendly

	"modnotifier/internal/domain"
	appErrors "modnotifier/internal/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS modules (
	id      TEXT PRIMARY KEY,
	title   TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	active  INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS users (
	id     TEXT PRIMARY KEY,
	name   TEXT NOT NULL DEFAULT '',
	is_gm  INTEGER NOT NULL DEFAULT 0,
	active INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id         TEXT PRIMARY KEY,
	speaker    TEXT NOT NULL DEFAULT '',
	kind       TEXT NOT NULL DEFAULT '',
	content    TEXT NOT NULL DEFAULT '',
	whisper    TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
`

// SQLiteStore keeps a world's modules, users and chat log in a SQLite file.
type SQLiteStore struct {
	path string
	db   *sql.DB
	now  func() time.Time
}

// OpenSQLite opens (creating if needed) the world database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, appErrors.New(appErrors.CodeConfigurationError, "world database path is required", nil)
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "resolve world database path", err)
	}
	db, err := sql.Open("sqlite", buildSQLiteDSN(abs))
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "open world database", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, appErrors.New(appErrors.CodeStorageFailed, "ping world database", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, appErrors.New(appErrors.CodeStorageFailed, "create world schema", err)
	}
	return &SQLiteStore{path: abs, db: db, now: time.Now}, nil
}

// buildSQLiteDSN creates a read-write WAL DSN for the given path.
func buildSQLiteDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "foreign_keys(1)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Path returns the absolute database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Modules implements ModuleLister. Modules are returned in insertion order.
func (s *SQLiteStore) Modules(ctx context.Context) ([]domain.Module, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, version, active FROM modules ORDER BY rowid`)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "query modules", err)
	}
	defer func() { _ = rows.Close() }()

	var modules []domain.Module
	for rows.Next() {
		var m domain.Module
		var active int
		if err := rows.Scan(&m.ID, &m.Title, &m.Version, &active); err != nil {
			return nil, appErrors.New(appErrors.CodeStorageFailed, "scan module", err)
		}
		m.Active = active != 0
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "iterate modules", err)
	}
	return modules, nil
}

// UpsertModule inserts or replaces a module, keeping its list position.
func (s *SQLiteStore) UpsertModule(ctx context.Context, m domain.Module) error {
	valid, err := domain.NewModule(m.ID, m.Title, m.Version, m.Active)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO modules (id, title, version, active) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET title = excluded.title, version = excluded.version, active = excluded.active`,
		valid.ID, valid.Title, valid.Version, boolToInt(valid.Active))
	if err != nil {
		return appErrors.New(appErrors.CodeStorageFailed, fmt.Sprintf("upsert module %s", valid.ID), err)
	}
	return nil
}

// Users implements UserDirectory, ordered by identifier.
func (s *SQLiteStore) Users(ctx context.Context) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, is_gm, active FROM users ORDER BY id`)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "query users", err)
	}
	defer func() { _ = rows.Close() }()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		var isGM, active int
		if err := rows.Scan(&u.ID, &u.Name, &isGM, &active); err != nil {
			return nil, appErrors.New(appErrors.CodeStorageFailed, "scan user", err)
		}
		u.IsGM = isGM != 0
		u.Active = active != 0
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "iterate users", err)
	}
	return users, nil
}

// UpsertUser inserts or replaces a user.
func (s *SQLiteStore) UpsertUser(ctx context.Context, u domain.User) error {
	valid, err := domain.NewUser(u.ID, u.Name, u.IsGM, u.Active)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO users (id, name, is_gm, active) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET name = excluded.name, is_gm = excluded.is_gm, active = excluded.active`,
		valid.ID, valid.Name, boolToInt(valid.IsGM), boolToInt(valid.Active))
	if err != nil {
		return appErrors.New(appErrors.CodeStorageFailed, fmt.Sprintf("upsert user %s", valid.ID), err)
	}
	return nil
}

// PostChat implements ChatWriter. Missing IDs and timestamps are filled in.
func (s *SQLiteStore) PostChat(ctx context.Context, msg ChatMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}
	whisper, err := encodeWhisper(msg.Whisper)
	if err != nil {
		return appErrors.New(appErrors.CodeStorageFailed, "encode whisper recipients", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO chat_messages (id, speaker, kind, content, whisper, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.Speaker, msg.Kind, msg.Content, whisper, msg.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return appErrors.New(appErrors.CodeStorageFailed, "insert chat message", err)
	}
	return nil
}

// ChatMessages returns the chat log, oldest first. A non-empty recipient
// limits the result to public messages and whispers to that user.
func (s *SQLiteStore) ChatMessages(ctx context.Context, recipient string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, speaker, kind, content, whisper, created_at FROM chat_messages ORDER BY rowid`)
	if err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "query chat messages", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []ChatMessage
	for rows.Next() {
		var msg ChatMessage
		var whisper, created string
		if err := rows.Scan(&msg.ID, &msg.Speaker, &msg.Kind, &msg.Content, &whisper, &created); err != nil {
			return nil, appErrors.New(appErrors.CodeStorageFailed, "scan chat message", err)
		}
		if whisper != "" {
			if err := json.Unmarshal([]byte(whisper), &msg.Whisper); err != nil {
				return nil, appErrors.New(appErrors.CodeStorageFailed, fmt.Sprintf("decode whisper recipients of %s", msg.ID), err)
			}
		}
		if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
			msg.CreatedAt = ts
		}
		if recipient != "" && !visibleTo(msg, recipient) {
			continue
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.New(appErrors.CodeStorageFailed, "iterate chat messages", err)
	}
	return messages, nil
}

// encodeWhisper stores recipients as a JSON array; public messages store "".
func encodeWhisper(ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func visibleTo(msg ChatMessage, user string) bool {
	if len(msg.Whisper) == 0 {
		return true
	}
	for _, id := range msg.Whisper {
		if id == user {
			return true
		}
	}
	return false
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
