package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/Totarae/shortlinks/internal/util"
	"go.uber.org/zap"
)

// DefaultMaxAttempts — сколько кодов пробуется при создании до ErrCodesExhausted.
const DefaultMaxAttempts = 5

// ShortenerService выполняет операции владельца над его ссылками.
type ShortenerService struct {
	Store       storage.LinkStore
	Encoder     ImageEncoder
	Logger      *zap.Logger
	BaseURL     string
	MaxAttempts int

	generate func() string
	now      func() time.Time
}

// Option настраивает ShortenerService.
type Option func(*ShortenerService)

// WithCodeBytes задаёт энтропию генерируемых кодов.
func WithCodeBytes(n int) Option {
	return func(s *ShortenerService) {
		s.generate = func() string { return util.GenerateCodeN(n) }
	}
}

// WithMaxAttempts ограничивает число попыток подобрать свободный код.
func WithMaxAttempts(n int) Option {
	return func(s *ShortenerService) {
		if n > 0 {
			s.MaxAttempts = n
		}
	}
}

// WithCodeGenerator подменяет генератор кодов.
func WithCodeGenerator(gen func() string) Option {
	return func(s *ShortenerService) { s.generate = gen }
}

// WithClock подменяет источник времени для заметок.
func WithClock(now func() time.Time) Option {
	return func(s *ShortenerService) { s.now = now }
}

func NewShortenerService(store storage.LinkStore, encoder ImageEncoder, logger *zap.Logger, baseURL string, opts ...Option) *ShortenerService {
	s := &ShortenerService{
		Store:       store,
		Encoder:     encoder,
		Logger:      logger,
		BaseURL:     baseURL,
		MaxAttempts: DefaultMaxAttempts,
		generate:    util.GenerateCode,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Shorten создаёт ссылку владельца. Если у владельца уже есть ссылка на
// тот же адрес, возвращается она без изменений и Created=false.
func (s *ShortenerService) Shorten(ctx context.Context, ownerID, originalURL, note string) (*model.ShortenResult, error) {
	if ownerID == "" {
		return nil, apperr.ErrAuthFailed
	}
	originalURL = strings.TrimSpace(originalURL)
	if originalURL == "" {
		return nil, apperr.ErrValidation
	}

	existing, err := s.Store.FindByOwnerAndOriginal(ctx, ownerID, originalURL)
	switch {
	case err == nil:
		return &model.ShortenResult{Link: existing}, nil
	case !errors.Is(err, storage.ErrNotFound):
		s.Logger.Error("failed to look up existing link", zap.String("owner", ownerID), zap.Error(err))
		return nil, apperr.Store(err)
	}

	for attempt := 1; attempt <= s.MaxAttempts; attempt++ {
		code := s.generate()
		if IsReserved(code) {
			continue
		}

		link := &model.Link{
			OriginalURL: originalURL,
			ShortURL:    code,
			UserID:      ownerID,
		}
		qrCode, qrErr := s.encode(ctx, code)
		link.QRCode = qrCode
		if note != "" {
			now := s.now().UTC()
			link.Note = &model.Note{Content: note, Author: ownerID, CreatedAt: now, UpdatedAt: now}
		}

		err := s.Store.Create(ctx, link)
		if err == nil {
			s.Logger.Info("short link created",
				zap.String("owner", ownerID),
				zap.String("code", code),
				zap.Int("attempt", attempt),
			)
			return &model.ShortenResult{Link: link, Created: true, QRStale: qrErr != nil}, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			s.Logger.Error("failed to save link", zap.String("code", code), zap.Error(err))
			return nil, apperr.Store(err)
		}
		s.Logger.Debug("short code collision", zap.String("code", code), zap.Int("attempt", attempt))
	}

	s.Logger.Warn("short code space exhausted", zap.Int("attempts", s.MaxAttempts))
	return nil, apperr.ErrCodesExhausted
}

// ListOwned возвращает ссылки владельца, новые первыми.
func (s *ShortenerService) ListOwned(ctx context.Context, ownerID string) ([]*model.Link, error) {
	links, err := s.Store.ListByOwner(ctx, ownerID)
	if err != nil {
		s.Logger.Error("failed to list links", zap.String("owner", ownerID), zap.Error(err))
		return nil, apperr.Store(err)
	}
	return links, nil
}

// GetOwned возвращает ссылку, только если она принадлежит владельцу.
// Чужая ссылка неотличима от несуществующей.
func (s *ShortenerService) GetOwned(ctx context.Context, ownerID, code string) (*model.Link, error) {
	link, err := s.Store.FindByCode(ctx, code)
	if err != nil {
		return nil, s.fail("find link", code, err)
	}
	if link.UserID != ownerID {
		return nil, apperr.ErrLinkNotFound
	}
	return link, nil
}

// Update меняет адрес и/или код ссылки. Все изменения, включая новый
// QR-код, пишутся одним патчем; если QR отрисовать не удалось, остальное
// сохраняется, а в результате выставляется QRStale.
func (s *ShortenerService) Update(ctx context.Context, ownerID, code string, upd model.LinkUpdate) (*model.UpdateResult, error) {
	link, err := s.GetOwned(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}

	var patch model.LinkPatch
	finalCode := link.ShortURL

	if upd.NewCode != nil {
		newCode := strings.TrimSpace(*upd.NewCode)
		if newCode != "" && newCode != link.ShortURL {
			if IsReserved(newCode) {
				return nil, apperr.Validation("shortUrl is reserved")
			}
			other, err := s.Store.FindByCode(ctx, newCode)
			switch {
			case err == nil && other.ID != link.ID:
				return nil, apperr.ErrCodeTaken
			case err != nil && !errors.Is(err, storage.ErrNotFound):
				return nil, s.fail("check short code", newCode, err)
			}
			patch.ShortURL = &newCode
			finalCode = newCode
		}
	}

	if upd.NewOriginalURL != nil {
		target := strings.TrimSpace(*upd.NewOriginalURL)
		if target != "" && target != link.OriginalURL {
			patch.OriginalURL = &target
		}
	}

	changed := !patch.Empty()
	if !changed && !upd.RegenerateQR {
		return &model.UpdateResult{Link: link}, nil
	}

	result := &model.UpdateResult{}
	if qrCode, err := s.encode(ctx, finalCode); err == nil {
		patch.QRCode = &qrCode
	} else {
		result.QRStale = true
	}

	if patch.Empty() {
		result.Link = link
		return result, nil
	}

	if err := s.Store.UpdateFields(ctx, link.ID, patch); err != nil {
		return nil, s.fail("update link", code, err)
	}

	updated, err := s.Store.FindByID(ctx, link.ID)
	if err != nil {
		return nil, s.fail("reload link", finalCode, err)
	}
	result.Link = updated

	s.Logger.Info("short link updated",
		zap.String("owner", ownerID),
		zap.String("code", code),
		zap.String("new_code", finalCode),
		zap.Bool("qr_stale", result.QRStale),
	)
	return result, nil
}

// Delete удаляет ссылку вместе с заметкой.
func (s *ShortenerService) Delete(ctx context.Context, ownerID, code string) error {
	link, err := s.GetOwned(ctx, ownerID, code)
	if err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, link.ID); err != nil {
		return s.fail("delete link", code, err)
	}
	s.Logger.Info("short link deleted", zap.String("owner", ownerID), zap.String("code", code))
	return nil
}

// SetNote создаёт или заменяет заметку. При замене сохраняется
// исходная дата создания.
func (s *ShortenerService) SetNote(ctx context.Context, ownerID, code, content string) (*model.Link, error) {
	link, err := s.GetOwned(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	note := &model.Note{Content: content, Author: ownerID, CreatedAt: now, UpdatedAt: now}
	if link.Note != nil {
		note.CreatedAt = link.Note.CreatedAt
	}
	return s.writeNote(ctx, link, model.LinkPatch{Note: note})
}

// EditNote меняет текст существующей заметки.
func (s *ShortenerService) EditNote(ctx context.Context, ownerID, code, content string) (*model.Link, error) {
	link, err := s.GetOwned(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	if link.Note == nil {
		return nil, apperr.ErrNoteNotFound
	}

	note := *link.Note
	note.Content = content
	note.Author = ownerID
	note.UpdatedAt = s.now().UTC()
	return s.writeNote(ctx, link, model.LinkPatch{Note: &note})
}

// RemoveNote удаляет заметку. Повторное удаление не ошибка.
func (s *ShortenerService) RemoveNote(ctx context.Context, ownerID, code string) (*model.Link, error) {
	link, err := s.GetOwned(ctx, ownerID, code)
	if err != nil {
		return nil, err
	}
	if link.Note == nil {
		return link, nil
	}
	return s.writeNote(ctx, link, model.LinkPatch{RemoveNote: true})
}

// Ping проверяет хранилище.
func (s *ShortenerService) Ping(ctx context.Context) error {
	if err := s.Store.Ping(ctx); err != nil {
		return apperr.Store(err)
	}
	return nil
}

func (s *ShortenerService) writeNote(ctx context.Context, link *model.Link, patch model.LinkPatch) (*model.Link, error) {
	if err := s.Store.UpdateFields(ctx, link.ID, patch); err != nil {
		return nil, s.fail("update note", link.ShortURL, err)
	}
	updated, err := s.Store.FindByID(ctx, link.ID)
	if err != nil {
		return nil, s.fail("reload link", link.ShortURL, err)
	}
	return updated, nil
}

// encode рисует QR для полного адреса кода. Ошибка логируется и не
// прерывает операцию.
func (s *ShortenerService) encode(ctx context.Context, code string) (string, error) {
	qrCode, err := s.Encoder.Encode(ctx, util.ShortURL(s.BaseURL, code))
	if err != nil {
		s.Logger.Warn("failed to render QR code", zap.String("code", code), zap.Error(err))
		return "", err
	}
	return qrCode, nil
}

func (s *ShortenerService) fail(op, code string, err error) error {
	translated := translate(err)
	if apperr.KindOf(translated) == apperr.KindStore {
		s.Logger.Error("failed to "+op, zap.String("code", code), zap.Error(err))
	}
	return translated
}
