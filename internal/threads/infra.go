package threads

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS user_threads (
		chat_id    TEXT PRIMARY KEY,
		thread_id  TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)
`

// SQLStore keeps mappings in the user_threads table of Postgres or SQLite.
type SQLStore struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// OpenSQLStore opens the database and creates the schema if needed.
// driver is "postgres" or "sqlite".
func OpenSQLStore(ctx context.Context, driver, dsn string, logger *slog.Logger) (*SQLStore, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if driver == "sqlite" {
		// single writer avoids SQLITE_BUSY under concurrent webhooks
		db.SetMaxOpenConns(1)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &SQLStore{
		db:     db,
		driver: driver,
		logger: logger.With("component", "store", "driver", driver),
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("thread store initialized")
	return s, nil
}

func (s *SQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) GetThread(ctx context.Context, chatID string) (*Thread, error) {
	var t Thread
	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT chat_id, thread_id, created_at
		FROM user_threads
		WHERE chat_id = ?
	`), chatID).Scan(&t.ChatID, &t.ThreadID, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying thread: %w", err)
	}
	return &t, nil
}

func (s *SQLStore) InsertThread(ctx context.Context, t *Thread) (*Thread, bool, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO user_threads (chat_id, thread_id, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING
	`), t.ChatID, t.ThreadID, t.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("inserting thread: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("inserting thread: %w", err)
	}
	if n == 1 {
		return t, true, nil
	}

	existing, err := s.GetThread(ctx, t.ChatID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// rebind turns ? placeholders into $n for postgres.
func (s *SQLStore) rebind(q string) string {
	if s.driver != "postgres" {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
