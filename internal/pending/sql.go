package pending

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLStore persists pending entries so a bot restart does not strand users
// halfway through the intro form.
type SQLStore struct {
	db    *sqlx.DB
	clock Clock
}

type entryRow struct {
	Token     string `db:"token"`
	Kind      string `db:"kind"`
	UserID    string `db:"user_id"`
	GuildID   string `db:"guild_id"`
	GuildIDs  string `db:"guild_ids"`
	Messages  string `db:"messages"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
}

const entryColumns = "token, kind, user_id, guild_id, guild_ids, messages, created_at, expires_at"

// Open picks the driver from the DSN: postgres:// and postgresql:// go to pgx,
// anything else is a sqlite path (an optional sqlite:// prefix is stripped).
func Open(dsn string) (*SQLStore, error) {
	driver, source := driverFor(dsn)
	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("open pending store: %w", err)
	}
	if driver == "sqlite" {
		db.SetMaxOpenConns(1)
	}
	return &SQLStore{db: db, clock: realClock{}}, nil
}

func driverFor(dsn string) (string, string) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return "pgx", dsn
	case strings.HasPrefix(dsn, "sqlite://"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite://")
	case strings.HasPrefix(dsn, "sqlite:"):
		return "sqlite", strings.TrimPrefix(dsn, "sqlite:")
	default:
		return "sqlite", dsn
	}
}

func (s *SQLStore) WithClock(clock Clock) {
	s.clock = clock
}

func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLStore) Migrate() error {
	entries, err := migrations.ReadDir("migrations")
	if err != nil {
		return err
	}

	var files []string
	for _, entry := range entries {
		files = append(files, entry.Name())
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := migrations.ReadFile(path.Join("migrations", file))
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			if isIgnorableMigrationError(err) {
				continue
			}
			return fmt.Errorf("migration %s failed: %w", file, err)
		}
	}
	return nil
}

func (s *SQLStore) Put(ctx context.Context, entry Entry) error {
	row, err := toRow(entry)
	if err != nil {
		return err
	}
	query := s.db.Rebind(`INSERT INTO pending_entries (` + entryColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		row.Token, row.Kind, row.UserID, row.GuildID, row.GuildIDs, row.Messages, row.CreatedAt, row.ExpiresAt)
	if err != nil {
		return fmt.Errorf("insert pending entry: %w", err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, token string) (Entry, error) {
	return s.live(ctx, s.db, token)
}

func (s *SQLStore) Take(ctx context.Context, token string) (Entry, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Entry{}, err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := s.live(ctx, tx, token)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			_ = tx.Commit()
		}
		return Entry{}, err
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM pending_entries WHERE token = ?`), token)
	if err != nil {
		return Entry{}, fmt.Errorf("delete pending entry: %w", err)
	}
	// a concurrent Take already claimed it
	if n, err := res.RowsAffected(); err != nil {
		return Entry{}, fmt.Errorf("delete pending entry: %w", err)
	} else if n != 1 {
		return Entry{}, ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *SQLStore) FindByUser(ctx context.Context, kind Kind, userID string) (Entry, error) {
	query := s.db.Rebind(`SELECT ` + entryColumns + ` FROM pending_entries
		WHERE kind = ? AND user_id = ? AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`)
	var row entryRow
	err := s.db.GetContext(ctx, &row, query, string(kind), userID, s.clock.Now().UnixMilli())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("find pending entry: %w", err)
	}
	return fromRow(row)
}

func (s *SQLStore) Append(ctx context.Context, token string, msg PendingMessage) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := s.live(ctx, tx, token)
	if err != nil {
		if errors.Is(err, ErrExpired) {
			_ = tx.Commit()
		}
		return err
	}
	data, err := json.Marshal(appendQueued(entry.Messages, msg))
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`UPDATE pending_entries SET messages = ? WHERE token = ?`), string(data), token); err != nil {
		return fmt.Errorf("append pending message: %w", err)
	}
	return tx.Commit()
}

func (s *SQLStore) Delete(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM pending_entries WHERE token = ?`), token)
	return err
}

func (s *SQLStore) Purge(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(`DELETE FROM pending_entries WHERE expires_at <= ?`), now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge pending entries: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

type queryer interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

func (s *SQLStore) live(ctx context.Context, q queryer, token string) (Entry, error) {
	var row entryRow
	err := q.GetContext(ctx, &row, q.Rebind(`SELECT `+entryColumns+` FROM pending_entries WHERE token = ?`), token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, ErrNotFound
		}
		return Entry{}, fmt.Errorf("get pending entry: %w", err)
	}
	if row.ExpiresAt <= s.clock.Now().UnixMilli() {
		_, _ = q.ExecContext(ctx, q.Rebind(`DELETE FROM pending_entries WHERE token = ?`), token)
		return Entry{}, ErrExpired
	}
	return fromRow(row)
}

func toRow(entry Entry) (entryRow, error) {
	guildIDs, err := json.Marshal(nonNil(entry.GuildIDs))
	if err != nil {
		return entryRow{}, err
	}
	messages, err := json.Marshal(entry.Messages)
	if err != nil {
		return entryRow{}, err
	}
	return entryRow{
		Token:     entry.Token,
		Kind:      string(entry.Kind),
		UserID:    entry.UserID,
		GuildID:   entry.GuildID,
		GuildIDs:  string(guildIDs),
		Messages:  string(messages),
		CreatedAt: entry.CreatedAt.UnixMilli(),
		ExpiresAt: entry.ExpiresAt.UnixMilli(),
	}, nil
}

func fromRow(row entryRow) (Entry, error) {
	entry := Entry{
		Token:     row.Token,
		Kind:      Kind(row.Kind),
		UserID:    row.UserID,
		GuildID:   row.GuildID,
		CreatedAt: time.UnixMilli(row.CreatedAt),
		ExpiresAt: time.UnixMilli(row.ExpiresAt),
	}
	if err := json.Unmarshal([]byte(row.GuildIDs), &entry.GuildIDs); err != nil {
		return Entry{}, fmt.Errorf("decode guild ids: %w", err)
	}
	if err := json.Unmarshal([]byte(row.Messages), &entry.Messages); err != nil {
		return Entry{}, fmt.Errorf("decode messages: %w", err)
	}
	return entry, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func isIgnorableMigrationError(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "duplicate column name") || strings.Contains(message, "already exists")
}
