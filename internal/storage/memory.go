package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/Totarae/shortlinks/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// URLStore provides a thread-safe in-memory link storage.
// Если задан file, каждое изменение дописывается в журнал (JSON lines),
// а при старте журнал проигрывается заново.
type URLStore struct {
	byID   map[string]*model.Link
	byCode map[string]string
	mutex  sync.RWMutex
	file   string
	logger *zap.Logger
	now    func() time.Time
}

var _ LinkStore = (*URLStore)(nil)

// NewURLStore initializes a new URLStore. Пустой file означает режим in-memory.
func NewURLStore(file string, logger *zap.Logger) *URLStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &URLStore{
		byID:   make(map[string]*model.Link),
		byCode: make(map[string]string),
		file:   file,
		logger: logger,
		now:    time.Now,
	}

	if err := store.LoadFromFile(); err != nil {
		logger.Error("failed to load link journal", zap.String("file", file), zap.Error(err))
	}

	return store
}

// FindByCode ищет ссылку по коду.
func (s *URLStore) FindByCode(_ context.Context, code string) (*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// FindByID ищет ссылку по id.
func (s *URLStore) FindByID(_ context.Context, id string) (*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return link.Clone(), nil
}

// FindByOwnerAndOriginal ищет ссылку владельца на тот же URL.
func (s *URLStore) FindByOwnerAndOriginal(_ context.Context, ownerID, originalURL string) (*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	// при дублях отдаём самую старую, как SQL-хранилища
	var found *model.Link
	for _, link := range s.byID {
		if link.UserID != ownerID || link.OriginalURL != originalURL {
			continue
		}
		if found == nil || link.CreatedAt.Before(found.CreatedAt) ||
			(link.CreatedAt.Equal(found.CreatedAt) && link.ID < found.ID) {
			found = link
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found.Clone(), nil
}

// ListByOwner возвращает ссылки владельца, новые первыми.
func (s *URLStore) ListByOwner(_ context.Context, ownerID string) ([]*model.Link, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	links := make([]*model.Link, 0)
	for _, link := range s.byID {
		if link.UserID == ownerID {
			links = append(links, link.Clone())
		}
	}
	sort.SliceStable(links, func(i, j int) bool {
		if links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].ID > links[j].ID
		}
		return links[i].CreatedAt.After(links[j].CreatedAt)
	})
	return links, nil
}

// Create сохраняет новую ссылку.
func (s *URLStore) Create(_ context.Context, link *model.Link) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, taken := s.byCode[link.ShortURL]; taken {
		return ErrConflict
	}

	stored := link.Clone()
	stored.ID = uuid.NewString()
	stored.CreatedAt = s.now().UTC()

	if err := s.appendToFile(model.Entry{Op: model.EntryPut, ID: stored.ID, Link: stored}); err != nil {
		return err
	}
	s.put(stored)

	link.ID = stored.ID
	link.CreatedAt = stored.CreatedAt
	return nil
}

// UpdateFields применяет патч к ссылке.
func (s *URLStore) UpdateFields(_ context.Context, id string, patch model.LinkPatch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if patch.ShortURL != nil {
		if owner, taken := s.byCode[*patch.ShortURL]; taken && owner != id {
			return ErrConflict
		}
	}

	updated := patch.Apply(current)
	if err := s.appendToFile(model.Entry{Op: model.EntryPut, ID: id, Link: updated}); err != nil {
		return err
	}
	delete(s.byCode, current.ShortURL)
	s.put(updated)
	return nil
}

// IncrementClicks увеличивает счётчик под эксклюзивной блокировкой.
// В журнал пишется только короткая запись click.
func (s *URLStore) IncrementClicks(_ context.Context, id string) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	if err := s.appendToFile(model.Entry{Op: model.EntryClick, ID: id}); err != nil {
		return 0, err
	}
	current.Clicks++
	return current.Clicks, nil
}

// Delete удаляет ссылку.
func (s *URLStore) Delete(_ context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	if err := s.appendToFile(model.Entry{Op: model.EntryDelete, ID: id}); err != nil {
		return err
	}
	delete(s.byCode, current.ShortURL)
	delete(s.byID, id)
	return nil
}

// Ping всегда успешен для памяти.
func (s *URLStore) Ping(context.Context) error { return nil }

func (s *URLStore) put(link *model.Link) {
	s.byID[link.ID] = link
	s.byCode[link.ShortURL] = link.ID
}

// LoadFromFile проигрывает журнал при старте сервера.
func (s *URLStore) LoadFromFile() error {
	if s.file == "" {
		return nil
	}
	file, err := os.Open(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // Файл ещё не создан, это не ошибка
		}
		return err
	}
	defer file.Close()

	s.mutex.Lock()
	defer s.mutex.Unlock()

	decoder := json.NewDecoder(file)
	for {
		var entry model.Entry
		if err := decoder.Decode(&entry); err != nil {
			if !errors.Is(err, io.EOF) {
				// оборванная последняя строка после падения
				s.logger.Warn("link journal truncated", zap.String("file", s.file), zap.Error(err))
			}
			break
		}
		switch entry.Op {
		case model.EntryPut:
			if entry.Link == nil {
				continue
			}
			if prev, ok := s.byID[entry.ID]; ok {
				delete(s.byCode, prev.ShortURL)
			}
			s.put(entry.Link)
		case model.EntryClick:
			if link, ok := s.byID[entry.ID]; ok {
				link.Clicks++
			}
		case model.EntryDelete:
			if prev, ok := s.byID[entry.ID]; ok {
				delete(s.byCode, prev.ShortURL)
				delete(s.byID, entry.ID)
			}
		}
	}

	s.logger.Info("link journal loaded", zap.String("file", s.file), zap.Int("links", len(s.byID)))
	return nil
}

// appendToFile добавляет запись в журнал. Вызывается под s.mutex.
func (s *URLStore) appendToFile(entry model.Entry) error {
	if s.file == "" {
		return nil
	}
	file, err := os.OpenFile(s.file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode journal entry: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write journal: %w", err)
	}
	return nil
}
