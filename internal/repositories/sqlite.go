package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/google/uuid"
	_ "github.com/tursodatabase/libsql-client-go/libsql" // Turso driver
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS links (
	id              TEXT PRIMARY KEY,
	original_url    TEXT    NOT NULL,
	short_url       TEXT    NOT NULL UNIQUE,
	user_id         TEXT    NOT NULL,
	clicks          INTEGER NOT NULL DEFAULT 0 CHECK (clicks >= 0),
	qr_code         TEXT    NOT NULL DEFAULT '',
	note_content    TEXT,
	note_author     TEXT,
	note_created_at INTEGER,
	note_updated_at INTEGER,
	created_at      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_links_user_created ON links(user_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_links_user_original ON links(user_id, original_url);
`

const sqliteColumns = `id, original_url, short_url, user_id, clicks, qr_code,
	note_content, note_author, note_created_at, note_updated_at, created_at`

// SQLiteRepository реализует storage.LinkStore поверх SQLite/libsql.
// Время хранится в наносекундах Unix, чтобы оба драйвера читали его одинаково.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.LinkStore = (*SQLiteRepository)(nil)

// NewSQLiteRepository открывает локальный SQLite (modernc) или удалённый
// libsql по префиксу DSN и создаёт схему.
func NewSQLiteRepository(ctx context.Context, dsn string) (*SQLiteRepository, error) {
	driverName := "sqlite"
	if strings.HasPrefix(dsn, "libsql://") || strings.HasPrefix(dsn, "wss://") {
		driverName = "libsql"
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if driverName == "sqlite" {
		// одна запись за раз; иначе параллельные UPDATE ловят SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

// Close закрывает соединение.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepository) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	return r.queryOne(ctx, `SELECT `+sqliteColumns+` FROM links WHERE short_url = ?`, code)
}

func (r *SQLiteRepository) FindByID(ctx context.Context, id string) (*model.Link, error) {
	return r.queryOne(ctx, `SELECT `+sqliteColumns+` FROM links WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByOwnerAndOriginal(ctx context.Context, ownerID, originalURL string) (*model.Link, error) {
	return r.queryOne(ctx, `SELECT `+sqliteColumns+` FROM links
		WHERE user_id = ? AND original_url = ? ORDER BY created_at ASC LIMIT 1`, ownerID, originalURL)
}

func (r *SQLiteRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteColumns+` FROM links WHERE user_id = ? ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links by user: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Link, 0)
	for rows.Next() {
		link, err := scanSQLiteLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, link)
	}
	return results, rows.Err()
}

func (r *SQLiteRepository) Create(ctx context.Context, link *model.Link) error {
	id := uuid.NewString()
	createdAt := r.now().UTC()
	content, author, noteCreated, noteUpdated := sqliteNote(link.Note)

	_, err := r.db.ExecContext(ctx, `INSERT INTO links (id, original_url, short_url, user_id, qr_code,
			note_content, note_author, note_created_at, note_updated_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, link.OriginalURL, link.ShortURL, link.UserID, link.QRCode,
		content, author, noteCreated, noteUpdated, createdAt.UnixNano(),
	)
	if err != nil {
		if isSQLiteUnique(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("database insert error: %w", err)
	}

	link.ID = id
	link.CreatedAt = createdAt
	return nil
}

func (r *SQLiteRepository) UpdateFields(ctx context.Context, id string, patch model.LinkPatch) error {
	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if patch.OriginalURL != nil {
		set("original_url", *patch.OriginalURL)
	}
	if patch.ShortURL != nil {
		set("short_url", *patch.ShortURL)
	}
	if patch.QRCode != nil {
		set("qr_code", *patch.QRCode)
	}
	switch {
	case patch.Note != nil:
		content, author, created, updated := sqliteNote(patch.Note)
		set("note_content", content)
		set("note_author", author)
		set("note_created_at", created)
		set("note_updated_at", updated)
	case patch.RemoveNote:
		sets = append(sets, "note_content = NULL", "note_author = NULL",
			"note_created_at = NULL", "note_updated_at = NULL")
	}

	if len(sets) == 0 {
		_, err := r.FindByID(ctx, id)
		return err
	}

	args = append(args, id)
	res, err := r.db.ExecContext(ctx, `UPDATE links SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		if isSQLiteUnique(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to update link: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) IncrementClicks(ctx context.Context, id string) (int64, error) {
	var clicks int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE id = ? RETURNING clicks`, id).Scan(&clicks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return clicks, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM links WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, args ...any) (*model.Link, error) {
	link, err := scanSQLiteLink(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return link, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteLink(row rowScanner) (*model.Link, error) {
	var (
		link        model.Link
		noteContent sql.NullString
		noteAuthor  sql.NullString
		noteCreated sql.NullInt64
		noteUpdated sql.NullInt64
		createdAt   int64
	)
	err := row.Scan(&link.ID, &link.OriginalURL, &link.ShortURL, &link.UserID, &link.Clicks, &link.QRCode,
		&noteContent, &noteAuthor, &noteCreated, &noteUpdated, &createdAt)
	if err != nil {
		return nil, err
	}
	link.CreatedAt = time.Unix(0, createdAt).UTC()
	if noteAuthor.Valid {
		link.Note = &model.Note{
			Content:   noteContent.String,
			Author:    noteAuthor.String,
			CreatedAt: time.Unix(0, noteCreated.Int64).UTC(),
			UpdatedAt: time.Unix(0, noteUpdated.Int64).UTC(),
		}
	}
	return &link, nil
}

func sqliteNote(note *model.Note) (content, author, created, updated any) {
	if note == nil {
		return nil, nil, nil, nil
	}
	return note.Content, note.Author, note.CreatedAt.UnixNano(), note.UpdatedAt.UnixNano()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func isSQLiteUnique(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	// libsql отдаёт текст ошибки сервера
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
