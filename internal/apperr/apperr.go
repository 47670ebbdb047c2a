// Package apperr описывает классы ошибок, которые сервис отдаёт транспорту.
//
// Каждая ошибка несёт Kind (по нему выбирается статус) и Reason —
// текст, который безопасно показать клиенту.
package apperr

import (
	"errors"
	"fmt"
)

// Kind класс ошибки.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindAuth
	KindEncoding
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindEncoding:
		return "encoding"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Error — ошибка с классом и причиной для клиента.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is сравнивает по классу и причине, чтобы обёрнутая копия совпадала с сентинелом.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

var (
	ErrValidation = &Error{Kind: KindValidation, Reason: "originalUrl is required"}

	ErrLinkNotFound = &Error{Kind: KindNotFound, Reason: "URL not found"}
	ErrNoteNotFound = &Error{Kind: KindNotFound, Reason: "Note not found"}

	ErrCodeTaken      = &Error{Kind: KindConflict, Reason: "Short URL already taken"}
	ErrCodesExhausted = &Error{Kind: KindConflict, Reason: "Could not allocate a free short URL"}

	ErrNoToken      = &Error{Kind: KindAuth, Reason: "No token provided"}
	ErrTokenFormat  = &Error{Kind: KindAuth, Reason: "Invalid token format"}
	ErrTokenExpired = &Error{Kind: KindAuth, Reason: "Token has expired"}
	ErrInvalidToken = &Error{Kind: KindAuth, Reason: "Invalid token"}
	ErrAuthFailed   = &Error{Kind: KindAuth, Reason: "Authentication failed"}

	ErrEncoding = &Error{Kind: KindEncoding, Reason: "QR code unavailable"}

	ErrStore = &Error{Kind: KindStore, Reason: "Server error"}
)

// Wrap возвращает копию сентинела с причиной-первоисточником внутри.
func Wrap(sentinel *Error, err error) error {
	return &Error{Kind: sentinel.Kind, Reason: sentinel.Reason, Err: err}
}

// Validation создаёт ошибку валидации с собственным текстом.
func Validation(reason string) error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Store прячет ошибку хранилища за общей причиной "Server error".
func Store(err error) error {
	if err == nil {
		return nil
	}
	return Wrap(ErrStore, err)
}

// KindOf возвращает класс первой *Error в цепочке.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// ReasonOf возвращает текст для клиента; для неизвестных ошибок общий.
func ReasonOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	return ErrStore.Reason
}
