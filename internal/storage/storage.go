package storage

import (
	"context"
	"errors"

	"github.com/Totarae/shortlinks/internal/model"
)

var (
	// ErrNotFound — ссылки с таким id/кодом нет.
	ErrNotFound = errors.New("link not found")
	// ErrConflict — нарушено ограничение уникальности короткого кода.
	ErrConflict = errors.New("short code already exists")
)

// LinkStore определяет интерфейс для работы с хранилищем ссылок.
// Все реализации гарантируют глобальную уникальность ShortURL.
//
//go:generate mockgen -destination=../mocks/mock_storage.go -package=mocks . LinkStore
type LinkStore interface {
	// FindByCode ищет ссылку по короткому коду среди всех пользователей.
	FindByCode(ctx context.Context, code string) (*model.Link, error)
	// FindByID ищет ссылку по идентификатору хранилища.
	FindByID(ctx context.Context, id string) (*model.Link, error)
	// FindByOwnerAndOriginal ищет ссылку владельца на тот же исходный URL.
	FindByOwnerAndOriginal(ctx context.Context, ownerID, originalURL string) (*model.Link, error)
	// ListByOwner возвращает ссылки владельца, новые первыми.
	ListByOwner(ctx context.Context, ownerID string) ([]*model.Link, error)
	// Create сохраняет ссылку, заполняя ID и CreatedAt.
	Create(ctx context.Context, link *model.Link) error
	// UpdateFields записывает только заданные в патче поля.
	UpdateFields(ctx context.Context, id string, patch model.LinkPatch) error
	// IncrementClicks атомарно увеличивает счётчик и возвращает новое значение.
	IncrementClicks(ctx context.Context, id string) (int64, error)
	// Delete удаляет ссылку вместе с заметкой.
	Delete(ctx context.Context, id string) error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
}
