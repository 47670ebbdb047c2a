package router

import (
	"net/http"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/handlers"
	"github.com/Totarae/shortlinks/internal/metrics"
	"github.com/Totarae/shortlinks/internal/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options holds router dependencies besides the handler.
type Options struct {
	Auth          *auth.Auth
	Metrics       *metrics.Metrics
	TrustedSubnet string
	Logger        *zap.Logger
}

// NewRouter создаёт и настраивает маршрутизатор
func NewRouter(handler *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	var observer middleware.RequestObserver
	if opts.Metrics != nil {
		observer = opts.Metrics
	}

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LoggingMiddleware(opts.Logger, observer)) // Подключаем логирование
	r.Use(middleware.CompressMiddleware)                       // gzip/zstd

	r.Get("/ping", handler.PingDB)
	if opts.Metrics != nil {
		r.With(middleware.TrustedSubnet(opts.TrustedSubnet)).Handle("/metrics", opts.Metrics.Handler())
	}

	r.Route("/urls", func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Auth, opts.Logger))

		r.Post("/shorten", handler.Shorten)
		r.Post("/shorten/batch", handler.ShortenBatch)
		r.Get("/my-urls", handler.MyURLs)
		r.Get("/url/{code}", handler.GetURL)
		r.Put("/{code}", handler.UpdateURL)
		r.Delete("/{code}", handler.DeleteURL)
		r.Post("/{code}/note", handler.SetNote)
		r.Put("/{code}/note", handler.EditNote)
		r.Delete("/{code}/note", handler.RemoveNote)
	})

	r.Get("/{code}", handler.ResolveCode)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})
	return r
}
