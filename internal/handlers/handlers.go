package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/Totarae/shortlinks/internal/apperr"
	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/Totarae/shortlinks/internal/util"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// maxBodySize ограничивает тело JSON-запросов.
const maxBodySize = 1 << 20

// LinkService — операции владельца над ссылками.
type LinkService interface {
	Shorten(ctx context.Context, ownerID, originalURL, note string) (*model.ShortenResult, error)
	ListOwned(ctx context.Context, ownerID string) ([]*model.Link, error)
	GetOwned(ctx context.Context, ownerID, code string) (*model.Link, error)
	Update(ctx context.Context, ownerID, code string, upd model.LinkUpdate) (*model.UpdateResult, error)
	Delete(ctx context.Context, ownerID, code string) error
	SetNote(ctx context.Context, ownerID, code, content string) (*model.Link, error)
	EditNote(ctx context.Context, ownerID, code, content string) (*model.Link, error)
	RemoveNote(ctx context.Context, ownerID, code string) (*model.Link, error)
	Ping(ctx context.Context) error
}

// LinkResolver resolves a public short code.
type LinkResolver interface {
	Resolve(ctx context.Context, code string) (model.Resolution, error)
}

// Handler обслуживает HTTP API коротких ссылок.
type Handler struct {
	Links    LinkService
	Resolver LinkResolver
	BaseURL  string
	Logger   *zap.Logger
}

func NewHandler(links LinkService, resolver LinkResolver, baseURL string, logger *zap.Logger) *Handler {
	return &Handler{
		Links:    links,
		Resolver: resolver,
		BaseURL:  strings.TrimSuffix(baseURL, "/"),
		Logger:   logger,
	}
}

// ResolveCode переходит по короткой ссылке: 307 на адрес назначения или,
// если клиент просит JSON, {"redirectUrl", "clicks"}.
func (h *Handler) ResolveCode(res http.ResponseWriter, req *http.Request) {
	code := chi.URLParam(req, "code")

	resolution, err := h.Resolver.Resolve(req.Context(), code)
	if err != nil {
		h.writeError(res, err)
		return
	}

	if wantsJSON(req) {
		writeJSON(res, http.StatusOK, resolution)
		return
	}

	res.Header().Set("Location", resolution.RedirectURL)
	res.WriteHeader(http.StatusTemporaryRedirect)
}

// Shorten создаёт ссылку: 201 для новой, 200 если у владельца она уже была.
func (h *Handler) Shorten(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	var body model.ShortenRequest
	if !h.decode(res, req, &body) {
		return
	}

	result, err := h.Links.Shorten(req.Context(), owner, body.OriginalURL, body.Note)
	if err != nil {
		h.writeError(res, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	writeJSON(res, status, model.LinkResponse{Link: result.Link, QRStale: result.QRStale})
}

// ShortenBatch сокращает список адресов. Все элементы проверяются до первой
// записи; ошибка хранилища посреди пакета прерывает его.
func (h *Handler) ShortenBatch(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	var batch []model.BatchShortenRequest
	if !h.decode(res, req, &batch) {
		return
	}
	if len(batch) == 0 {
		h.writeError(res, apperr.Validation("Empty batch"))
		return
	}
	for _, item := range batch {
		if strings.TrimSpace(item.OriginalURL) == "" {
			h.writeError(res, apperr.Validation(fmt.Sprintf("originalUrl is required (correlation_id %q)", item.CorrelationID)))
			return
		}
	}

	out := make([]model.BatchShortenResponse, 0, len(batch))
	for _, item := range batch {
		result, err := h.Links.Shorten(req.Context(), owner, item.OriginalURL, "")
		if err != nil {
			h.writeError(res, err)
			return
		}
		out = append(out, model.BatchShortenResponse{
			CorrelationID: item.CorrelationID,
			ShortURL:      util.ShortURL(h.BaseURL, result.Link.ShortURL),
			Link:          result.Link,
		})
	}
	writeJSON(res, http.StatusCreated, out)
}

// MyURLs возвращает ссылки владельца, новые первыми.
func (h *Handler) MyURLs(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	links, err := h.Links.ListOwned(req.Context(), owner)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, links)
}

// GetURL возвращает одну ссылку владельца.
func (h *Handler) GetURL(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	link, err := h.Links.GetOwned(req.Context(), owner, chi.URLParam(req, "code"))
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, link)
}

// UpdateURL меняет адрес и/или код ссылки.
func (h *Handler) UpdateURL(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	var body model.UpdateRequest
	if !h.decode(res, req, &body) {
		return
	}

	upd := model.LinkUpdate{RegenerateQR: body.GenerateQRCode}
	if body.OriginalURL != "" {
		upd.NewOriginalURL = &body.OriginalURL
	}
	if body.ShortURL != "" {
		upd.NewCode = &body.ShortURL
	}

	result, err := h.Links.Update(req.Context(), owner, chi.URLParam(req, "code"), upd)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, model.LinkResponse{Link: result.Link, QRStale: result.QRStale})
}

// DeleteURL удаляет ссылку вместе с заметкой.
func (h *Handler) DeleteURL(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	if err := h.Links.Delete(req.Context(), owner, chi.URLParam(req, "code")); err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, model.MessageResponse{Message: "URL deleted successfully"})
}

// SetNote создаёт или заменяет заметку (POST).
func (h *Handler) SetNote(res http.ResponseWriter, req *http.Request) {
	h.noteWrite(res, req, h.Links.SetNote)
}

// EditNote меняет текст существующей заметки (PUT).
func (h *Handler) EditNote(res http.ResponseWriter, req *http.Request) {
	h.noteWrite(res, req, h.Links.EditNote)
}

func (h *Handler) noteWrite(res http.ResponseWriter, req *http.Request,
	op func(ctx context.Context, ownerID, code, content string) (*model.Link, error)) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	var body model.NoteRequest
	if !h.decode(res, req, &body) {
		return
	}

	link, err := op(req.Context(), owner, chi.URLParam(req, "code"), body.Content)
	if err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, link)
}

// RemoveNote удаляет заметку.
func (h *Handler) RemoveNote(res http.ResponseWriter, req *http.Request) {
	owner, ok := h.owner(res, req)
	if !ok {
		return
	}

	if _, err := h.Links.RemoveNote(req.Context(), owner, chi.URLParam(req, "code")); err != nil {
		h.writeError(res, err)
		return
	}
	writeJSON(res, http.StatusOK, model.MessageResponse{Message: "Note deleted successfully"})
}

// PingDB проверяет доступность хранилища.
func (h *Handler) PingDB(res http.ResponseWriter, req *http.Request) {
	ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
	defer cancel()

	if err := h.Links.Ping(ctx); err != nil {
		h.Logger.Error("storage ping failed", zap.Error(err))
		res.WriteHeader(http.StatusInternalServerError)
		return
	}
	res.WriteHeader(http.StatusOK)
}

func (h *Handler) owner(res http.ResponseWriter, req *http.Request) (string, bool) {
	identity, ok := auth.FromContext(req.Context())
	if !ok {
		h.writeError(res, apperr.ErrAuthFailed)
		return "", false
	}
	return identity.OwnerID, true
}

func (h *Handler) decode(res http.ResponseWriter, req *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(req.Body, maxBodySize))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			h.writeError(res, apperr.Validation("Request body is empty"))
		} else {
			h.writeError(res, apperr.Validation("Invalid request body"))
		}
		return false
	}
	return true
}

// statusFor выбирает HTTP-статус по классу ошибки.
func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindAuth:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(res http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	reason := apperr.ReasonOf(err)
	if status == http.StatusInternalServerError {
		// подробности только в логе
		h.Logger.Error("request failed", zap.Stringer("kind", kind), zap.Error(err))
		reason = apperr.ErrStore.Reason
	}
	writeJSON(res, status, model.ErrorResponse{Error: reason})
}

func writeJSON(res http.ResponseWriter, status int, v any) {
	res.Header().Set("Content-Type", "application/json")
	res.WriteHeader(status)
	_ = json.NewEncoder(res).Encode(v)
}

func wantsJSON(req *http.Request) bool {
	for _, part := range strings.Split(req.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return false
}
