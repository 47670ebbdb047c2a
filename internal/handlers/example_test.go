package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/handlers"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/service"
	"github.com/Totarae/shortlinks/internal/storage"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type plainQR struct{}

func (plainQR) Encode(_ context.Context, fullURL string) (string, error) { return fullURL, nil }

// ExampleHandler_Shorten демонстрирует работу метода Shorten.
func ExampleHandler_Shorten() {
	store := storage.NewURLStore("", zap.NewNop())
	logger := zap.NewNop()
	links := service.NewShortenerService(store, plainQR{}, logger, "http://localhost",
		service.WithCodeGenerator(func() string { return "abc123" }))
	h := handlers.NewHandler(links, service.NewResolver(store, logger, nil), "http://localhost", logger)

	body := `{"originalUrl":"yandex.ru"}`
	req := httptest.NewRequest(http.MethodPost, "/urls/shorten", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(auth.WithIdentity(req.Context(), auth.Identity{OwnerID: "user-1"}))
	rec := httptest.NewRecorder()

	h.Shorten(rec, req)
	resp := rec.Result()
	defer resp.Body.Close()

	var link model.Link
	_ = json.NewDecoder(resp.Body).Decode(&link)

	fmt.Println(resp.StatusCode)
	fmt.Println(link.ShortURL, link.QRCode)

	// Output:
	// 201
	// abc123 http://localhost/abc123
}

// ExampleHandler_ResolveCode показывает переход по короткой ссылке.
func ExampleHandler_ResolveCode() {
	store := storage.NewURLStore("", zap.NewNop())
	_ = store.Create(context.Background(), &model.Link{UserID: "user-1", OriginalURL: "yandex.ru", ShortURL: "abc123"})
	logger := zap.NewNop()
	h := handlers.NewHandler(nil, service.NewResolver(store, logger, nil), "http://localhost", logger)

	r := chi.NewRouter()
	r.Get("/{code}", h.ResolveCode)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/abc123", nil))
	fmt.Println(rec.Code, rec.Header().Get("Location"))

	// Output:
	// 307 https://yandex.ru
}
