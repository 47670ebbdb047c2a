// Package qr кодирует полный адрес короткой ссылки в PNG QR-код.
package qr

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/skip2/go-qrcode"
)

// DefaultSize сторона изображения в пикселях.
const DefaultSize = 256

const dataURLPrefix = "data:image/png;base64,"

// Encoder возвращает QR-код в виде data URL.
type Encoder struct {
	size  int
	level qrcode.RecoveryLevel
}

// New создаёт кодировщик; size <= 0 означает DefaultSize.
func New(size int) *Encoder {
	if size <= 0 {
		size = DefaultSize
	}
	return &Encoder{size: size, level: qrcode.Medium}
}

// Encode рендерит fullURL. Ошибка всегда оборачивает apperr.ErrEncoding.
func (e *Encoder) Encode(ctx context.Context, fullURL string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.ErrEncoding, err)
	}
	if fullURL == "" {
		return "", apperr.Wrap(apperr.ErrEncoding, fmt.Errorf("empty content"))
	}

	png, err := qrcode.Encode(fullURL, e.level, e.size)
	if err != nil {
		return "", apperr.Wrap(apperr.ErrEncoding, err)
	}
	return dataURLPrefix + base64.StdEncoding.EncodeToString(png), nil
}
