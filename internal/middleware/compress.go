package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const (
	encodingGzip = "gzip"
	encodingZstd = "zstd"
)

var gzipPool = sync.Pool{
	New: func() any {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

var zstdPool = sync.Pool{
	New: func() any {
		w, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
		return w
	},
}

// compressWriter решает, сжимать ли ответ, при первой записи заголовков:
// сжимаются только JSON и текст, редиректы без тела уходят как есть.
type compressWriter struct {
	http.ResponseWriter
	encoding    string
	enc         io.WriteCloser
	wroteHeader bool
	compress    bool
}

func (c *compressWriter) WriteHeader(code int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	h := c.Header()
	if code != http.StatusNoContent && code != http.StatusNotModified &&
		h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type")) {
		c.compress = true
		h.Set("Content-Encoding", c.encoding)
		h.Del("Content-Length")
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *compressWriter) Write(b []byte) (int, error) {
	if !c.wroteHeader {
		if c.Header().Get("Content-Type") == "" {
			c.Header().Set("Content-Type", http.DetectContentType(b))
		}
		c.WriteHeader(http.StatusOK)
	}
	if !c.compress {
		return c.ResponseWriter.Write(b)
	}
	if c.enc == nil {
		switch c.encoding {
		case encodingZstd:
			zw := zstdPool.Get().(*zstd.Encoder)
			zw.Reset(c.ResponseWriter)
			c.enc = zw
		default:
			gw := gzipPool.Get().(*gzip.Writer)
			gw.Reset(c.ResponseWriter)
			c.enc = gw
		}
	}
	return c.enc.Write(b)
}

func (c *compressWriter) Close() error {
	if c.enc == nil {
		return nil
	}
	err := c.enc.Close()
	switch w := c.enc.(type) {
	case *zstd.Encoder:
		zstdPool.Put(w)
	case *gzip.Writer:
		gzipPool.Put(w)
	}
	c.enc = nil
	return err
}

func compressible(contentType string) bool {
	return strings.HasPrefix(contentType, "application/json") || strings.HasPrefix(contentType, "text/")
}

// negotiate выбирает кодировку ответа: zstd предпочтительнее gzip.
func negotiate(acceptEncoding string) string {
	var gz bool
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(part), ";")
		switch strings.ToLower(name) {
		case encodingZstd:
			return encodingZstd
		case encodingGzip:
			gz = true
		}
	}
	if gz {
		return encodingGzip
	}
	return ""
}

// CompressMiddleware распаковывает тела запросов в gzip/zstd и сжимает
// ответы для клиентов, которые это поддерживают.
func CompressMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch strings.ToLower(r.Header.Get("Content-Encoding")) {
		case encodingGzip:
			reader, err := gzip.NewReader(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unable to decompress request")
				return
			}
			defer reader.Close()
			r.Body = reader
			r.Header.Del("Content-Encoding")
		case encodingZstd:
			decoder, err := zstd.NewReader(r.Body)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Unable to decompress request")
				return
			}
			rc := decoder.IOReadCloser()
			defer rc.Close()
			r.Body = rc
			r.Header.Del("Content-Encoding")
		}

		encoding := negotiate(r.Header.Get("Accept-Encoding"))
		if encoding == "" {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Add("Vary", "Accept-Encoding")
		cw := &compressWriter{ResponseWriter: w, encoding: encoding}
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}
