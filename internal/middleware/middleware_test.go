package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Totarae/shortlinks/internal/auth"
	"github.com/Totarae/shortlinks/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func whoami(w http.ResponseWriter, r *http.Request) {
	id, ok := auth.FromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	_, _ = io.WriteString(w, id.OwnerID)
}

func TestAuthenticate(t *testing.T) {
	a := auth.New("secret")
	valid, err := a.Issue("user-1", "u@example.com", time.Hour)
	require.NoError(t, err)
	expired, err := a.Issue("user-1", "", -time.Minute)
	require.NoError(t, err)
	forged, err := auth.New("other").Issue("user-1", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
		wantReason string
	}{
		{name: "valid", header: "Bearer " + valid, wantStatus: http.StatusOK, wantBody: "user-1"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized, wantReason: "No token provided"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantReason: "Invalid token format"},
		{name: "lowercase scheme", header: "bearer " + valid, wantStatus: http.StatusUnauthorized, wantReason: "Invalid token format"},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantReason: "Invalid token format"},
		{name: "expired", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantReason: "Token has expired"},
		{name: "bad signature", header: "Bearer " + forged, wantStatus: http.StatusUnauthorized, wantReason: "Invalid token"},
		{name: "garbage", header: "Bearer not.a.jwt", wantStatus: http.StatusUnauthorized, wantReason: "Invalid token"},
	}

	handler := Authenticate(a, zap.NewNop())(http.HandlerFunc(whoami))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/urls/my-urls", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantReason == "" {
				assert.Equal(t, tt.wantBody, rec.Body.String())
				return
			}
			var body model.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantReason, body.Error)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestCompressMiddleware_Responses(t *testing.T) {
	payload := strings.Repeat(`{"shortUrl":"abc123"}`, 50)
	handler := CompressMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, payload)
	}))

	t.Run("gzip", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		zr, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
	})

	t.Run("zstd preferred", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip, zstd;q=0.9")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, "zstd", rec.Header().Get("Content-Encoding"))
		zr, err := zstd.NewReader(rec.Body)
		require.NoError(t, err)
		defer zr.Close()
		got, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, payload, string(got))
	})

	t.Run("identity", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Empty(t, rec.Header().Get("Content-Encoding"))
		assert.Equal(t, payload, rec.Body.String())
	})
}

func TestCompressMiddleware_SkipsRedirect(t *testing.T) {
	handler := CompressMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://foo.com")
		w.WriteHeader(http.StatusTemporaryRedirect)
	}))
	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Encoding"))
	assert.Zero(t, rec.Body.Len())
}

func TestCompressMiddleware_Requests(t *testing.T) {
	echo := CompressMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(body)
	}))

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, _ = zw.Write([]byte(`{"originalUrl":"foo.com"}`))
	require.NoError(t, zw.Close())

	req := httptest.NewRequest(http.MethodPost, "/urls/shorten", &gz)
	req.Header.Set("Content-Encoding", "gzip")
	rec := httptest.NewRecorder()
	echo.ServeHTTP(rec, req)
	assert.Equal(t, `{"originalUrl":"foo.com"}`, rec.Body.String())

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte(`{"originalUrl":"bar.com"}`), nil)
	require.NoError(t, enc.Close())

	req = httptest.NewRequest(http.MethodPost, "/urls/shorten", bytes.NewReader(compressed))
	req.Header.Set("Content-Encoding", "zstd")
	rec = httptest.NewRecorder()
	echo.ServeHTTP(rec, req)
	assert.Equal(t, `{"originalUrl":"bar.com"}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/urls/shorten", strings.NewReader("plain"))
	req.Header.Set("Content-Encoding", "gzip")
	rec = httptest.NewRecorder()
	echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrustedSubnet(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name   string
		cidr   string
		realIP string
		want   int
	}{
		{"inside", "10.0.0.0/8", "10.1.2.3", http.StatusOK},
		{"outside", "10.0.0.0/8", "192.168.0.1", http.StatusForbidden},
		{"no header", "10.0.0.0/8", "", http.StatusForbidden},
		{"mapped v4", "10.0.0.0/8", "::ffff:10.0.0.1", http.StatusOK},
		{"no subnet", "", "10.1.2.3", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			if tt.realIP != "" {
				req.Header.Set("X-Real-IP", tt.realIP)
			}
			rec := httptest.NewRecorder()
			TrustedSubnet(tt.cidr)(ok).ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

type recordedRequest struct {
	route  string
	method string
	status int
}

type fakeObserver struct{ got []recordedRequest }

func (f *fakeObserver) ObserveRequest(route, method string, status int, _ time.Duration) {
	f.got = append(f.got, recordedRequest{route, method, status})
}

func TestLoggingMiddleware_ReportsRoutePattern(t *testing.T) {
	observer := &fakeObserver{}
	r := chi.NewRouter()
	r.Use(LoggingMiddleware(zap.NewNop(), observer))
	r.Get("/{code}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/abc123", nil))

	require.Len(t, observer.got, 1)
	assert.Equal(t, recordedRequest{"/{code}", http.MethodGet, http.StatusNotFound}, observer.got[0])
}
