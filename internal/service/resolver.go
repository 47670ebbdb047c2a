package service

import (
	"context"
	"errors"
	"time"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/Totarae/shortlinks/internal/util"
	"go.uber.org/zap"
)

// incrementTimeout ограничивает запись клика, пережившую отключение клиента.
const incrementTimeout = 5 * time.Second

// Исходы перехода для метрик.
const (
	OutcomeRedirect = "redirect"
	OutcomeNotFound = "not_found"
	OutcomeReserved = "reserved"
	OutcomeError    = "error"
)

// ResolveObserver получает исход каждого перехода.
type ResolveObserver interface {
	ObserveResolve(outcome string)
}

type noopObserver struct{}

func (noopObserver) ObserveResolve(string) {}

// Resolver обслуживает публичный переход по коду. Аутентификации не требует.
type Resolver struct {
	Store    storage.LinkStore
	Logger   *zap.Logger
	Observer ResolveObserver
}

func NewResolver(store storage.LinkStore, logger *zap.Logger, observer ResolveObserver) *Resolver {
	if observer == nil {
		observer = noopObserver{}
	}
	return &Resolver{Store: store, Logger: logger, Observer: observer}
}

// Resolve находит ссылку, атомарно засчитывает клик и возвращает адрес
// перехода. Сохранённый originalUrl не меняется: схема добавляется к копии.
func (r *Resolver) Resolve(ctx context.Context, code string) (model.Resolution, error) {
	if IsReserved(code) {
		r.Observer.ObserveResolve(OutcomeReserved)
		return model.Resolution{}, apperr.ErrLinkNotFound
	}

	link, err := r.Store.FindByCode(ctx, code)
	if err != nil {
		return model.Resolution{}, r.fail(code, err)
	}

	// клик засчитывается, даже если клиент уже отключился
	incCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), incrementTimeout)
	defer cancel()

	clicks, err := r.Store.IncrementClicks(incCtx, link.ID)
	if err != nil {
		return model.Resolution{}, r.fail(code, err)
	}

	target := util.NormalizeTarget(link.OriginalURL)
	r.Observer.ObserveResolve(OutcomeRedirect)
	r.Logger.Debug("short link resolved",
		zap.String("code", code),
		zap.String("target", target),
		zap.Int64("clicks", clicks),
	)
	return model.Resolution{RedirectURL: target, Clicks: clicks}, nil
}

func (r *Resolver) fail(code string, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		r.Observer.ObserveResolve(OutcomeNotFound)
		return apperr.ErrLinkNotFound
	}
	r.Observer.ObserveResolve(OutcomeError)
	r.Logger.Error("failed to resolve short link", zap.String("code", code), zap.Error(err))
	return apperr.Store(err)
}
