// Package service содержит ядро: создание и изменение ссылок владельцем
// (ShortenerService) и публичный переход по коду (Resolver).
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/storage"
)

// ImageEncoder рендерит QR-код для полного адреса короткой ссылки.
//
//go:generate mockgen -destination=../mocks/mock_encoder.go -package=mocks . ImageEncoder
type ImageEncoder interface {
	Encode(ctx context.Context, fullURL string) (string, error)
}

// первые сегменты пути, занятые другими маршрутами
var reserved = map[string]struct{}{
	"auth":    {},
	"urls":    {},
	"api":     {},
	"ping":    {},
	"metrics": {},
	"healthz": {},
	"debug":   {},
}

// IsReserved сообщает, что код не может быть разрешён или присвоен:
// он пуст, содержит разделитель пути или совпадает с префиксом маршрута.
func IsReserved(code string) bool {
	if code == "" || strings.ContainsRune(code, '/') {
		return true
	}
	_, ok := reserved[strings.ToLower(code)]
	return ok
}

// translate переводит ошибки хранилища в классы apperr.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return apperr.ErrLinkNotFound
	case errors.Is(err, storage.ErrConflict):
		return apperr.ErrCodeTaken
	default:
		return apperr.Store(err)
	}
}
