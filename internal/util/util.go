package util

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/google/uuid"
)

// DefaultCodeBytes: 9 байт энтропии дают код из 12 символов.
const DefaultCodeBytes = 9

const (
	minCodeBytes = 5  // 7 символов
	maxCodeBytes = 10 // 14 символов
)

// GenerateCode creates a short URL-safe code with the default length.
func GenerateCode() string {
	return GenerateCodeN(DefaultCodeBytes)
}

// GenerateCodeN кодирует n случайных байт в base64 без паддинга (алфавит
// A-Z a-z 0-9 - _). n приводится к диапазону, дающему 7–14 символов.
// Уникальность проверяет вызывающий.
func GenerateCodeN(n int) string {
	n = min(max(n, minCodeBytes), maxCodeBytes)
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// uuid берёт энтропию из того же источника, но не паникует
		id := uuid.New()
		copy(buf, id[:])
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// NormalizeTarget добавляет https://, если у адреса нет явной схемы http(s).
func NormalizeTarget(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// ShortURL собирает полный адрес короткой ссылки.
func ShortURL(baseURL, code string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + code
}
