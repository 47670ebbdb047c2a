package repositories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE unique_violation
const uniqueViolation = "23505"

const linkColumns = `id::text, original_url, short_url, user_id, clicks, COALESCE(qr_code, ''),
	note_content, note_author, note_created_at, note_updated_at, created_at`

// Querier — подмножество pgxpool.Pool, которым пользуется репозиторий.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

var _ Querier = (*pgxpool.Pool)(nil)

// LinkRepository реализует storage.LinkStore поверх PostgreSQL.
type LinkRepository struct {
	DB Querier
}

var _ storage.LinkStore = (*LinkRepository)(nil)

// NewLinkRepository создаёт новый экземпляр LinkRepository.
func NewLinkRepository(db Querier) *LinkRepository {
	return &LinkRepository{DB: db}
}

// FindByCode извлекает ссылку по короткому коду.
func (r *LinkRepository) FindByCode(ctx context.Context, code string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE short_url = $1`
	return r.queryOne(ctx, query, code)
}

// FindByID извлекает ссылку по id. Некорректный UUID означает отсутствие ссылки.
func (r *LinkRepository) FindByID(ctx context.Context, id string) (*model.Link, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	query := `SELECT ` + linkColumns + ` FROM links WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

// FindByOwnerAndOriginal возвращает ссылку пользователя на тот же URL.
func (r *LinkRepository) FindByOwnerAndOriginal(ctx context.Context, ownerID, originalURL string) (*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links
		WHERE user_id = $1 AND original_url = $2
		ORDER BY created_at ASC LIMIT 1`
	return r.queryOne(ctx, query, ownerID, originalURL)
}

// ListByOwner возвращает все ссылки пользователя, новые первыми.
func (r *LinkRepository) ListByOwner(ctx context.Context, ownerID string) ([]*model.Link, error) {
	query := `SELECT ` + linkColumns + ` FROM links WHERE user_id = $1 ORDER BY created_at DESC, id DESC`
	rows, err := r.DB.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query links by user: %w", err)
	}
	defer rows.Close()

	results := make([]*model.Link, 0)
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate links: %w", err)
	}
	return results, nil
}

// Create сохраняет ссылку; id и created_at назначает база.
func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	content, author, noteCreated, noteUpdated := noteColumns(link.Note)
	query := `INSERT INTO links (original_url, short_url, user_id, qr_code,
			note_content, note_author, note_created_at, note_updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
		RETURNING id::text, created_at`

	err := r.DB.QueryRow(ctx, query,
		link.OriginalURL, link.ShortURL, link.UserID, link.QRCode,
		content, author, noteCreated, noteUpdated,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("database insert error: %w", err)
	}
	return nil
}

// UpdateFields обновляет только перечисленные в патче колонки.
func (r *LinkRepository) UpdateFields(ctx context.Context, id string, patch model.LinkPatch) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	sets := make([]string, 0, 6)
	args := []any{id}
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
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
		content, author, created, updated := noteColumns(patch.Note)
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

	query := `UPDATE links SET ` + strings.Join(sets, ", ") + ` WHERE id = $1`
	tag, err := r.DB.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrConflict
		}
		return fmt.Errorf("failed to update link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// IncrementClicks атомарно увеличивает счётчик одним UPDATE.
func (r *LinkRepository) IncrementClicks(ctx context.Context, id string) (int64, error) {
	if !validID(id) {
		return 0, storage.ErrNotFound
	}
	var clicks int64
	err := r.DB.QueryRow(ctx,
		`UPDATE links SET clicks = clicks + 1 WHERE id = $1 RETURNING clicks`, id,
	).Scan(&clicks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, storage.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment clicks: %w", err)
	}
	return clicks, nil
}

// Delete удаляет ссылку; заметка хранится в той же строке.
func (r *LinkRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return storage.ErrNotFound
	}
	tag, err := r.DB.Exec(ctx, `DELETE FROM links WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Ping проверяет доступность базы данных.
func (r *LinkRepository) Ping(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, "SELECT 1")
	return err
}

func (r *LinkRepository) queryOne(ctx context.Context, query string, args ...any) (*model.Link, error) {
	link, err := scanLink(r.DB.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return link, nil
}

func scanLink(row pgx.Row) (*model.Link, error) {
	var (
		link        model.Link
		noteContent *string
		noteAuthor  *string
		noteCreated *time.Time
		noteUpdated *time.Time
	)
	err := row.Scan(&link.ID, &link.OriginalURL, &link.ShortURL, &link.UserID, &link.Clicks, &link.QRCode,
		&noteContent, &noteAuthor, &noteCreated, &noteUpdated, &link.CreatedAt)
	if err != nil {
		return nil, err
	}
	if noteAuthor != nil {
		link.Note = &model.Note{Author: *noteAuthor}
		if noteContent != nil {
			link.Note.Content = *noteContent
		}
		if noteCreated != nil {
			link.Note.CreatedAt = *noteCreated
		}
		if noteUpdated != nil {
			link.Note.UpdatedAt = *noteUpdated
		}
	}
	return &link, nil
}

func noteColumns(note *model.Note) (content, author *string, created, updated *time.Time) {
	if note == nil {
		return nil, nil, nil, nil
	}
	return &note.Content, &note.Author, &note.CreatedAt, &note.UpdatedAt
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
