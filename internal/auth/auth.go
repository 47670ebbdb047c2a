package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultTTL matches the identity provider's token lifetime.
const DefaultTTL = 24 * time.Hour

// Payload данные пользователя внутри токена.
type Payload struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Claims — формат токена провайдера: {payload: {id, email}, exp, iat}.
type Claims struct {
	Payload Payload `json:"payload"`
	jwt.RegisteredClaims
}

// Identity is the verified owner of a request.
type Identity struct {
	OwnerID   string
	Email     string
	ExpiresAt time.Time
}

// Auth проверяет bearer-токены по общему секрету HS256.
type Auth struct {
	SecretKey []byte
	now       func() time.Time
}

func New(secret string) *Auth {
	return &Auth{SecretKey: []byte(secret), now: time.Now}
}

// Verify проверяет подпись и срок действия токена.
// Возвращает apperr.ErrTokenExpired или apperr.ErrInvalidToken.
func (a *Auth) Verify(token string) (Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.SecretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperr.Wrap(apperr.ErrTokenExpired, err)
		}
		return Identity{}, apperr.Wrap(apperr.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return Identity{}, apperr.ErrInvalidToken
	}

	ownerID := claims.Payload.ID
	if ownerID == "" {
		ownerID = claims.Subject
	}
	if ownerID == "" {
		return Identity{}, apperr.Wrap(apperr.ErrInvalidToken, errors.New("token has no owner id"))
	}

	return Identity{
		OwnerID:   ownerID,
		Email:     claims.Payload.Email,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Issue выпускает токен в формате провайдера. Нужен для dev-утилит и тестов.
func (a *Auth) Issue(ownerID, email string, ttl time.Duration) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	now := a.now()
	claims := &Claims{
		Payload: Payload{ID: ownerID, Email: email},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.SecretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

const bearerPrefix = "Bearer "

// BearerToken извлекает токен из значения заголовка Authorization.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", apperr.ErrNoToken
	}
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", apperr.ErrTokenFormat
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", apperr.ErrTokenFormat
	}
	return token, nil
}

type identityKey struct{}

// WithIdentity кладёт владельца в контекст запроса.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext достаёт владельца, положенного Auth Gate.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.OwnerID != ""
}
