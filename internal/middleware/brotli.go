package middleware

import (
	"io"
	"mime"
	"net/http"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig controls response compression. SkipRoutes are registered
// route patterns (as returned by gin's FullPath) that stream or serve
// binary payloads and are never compressed.
type BrotliConfig struct {
	Quality    int
	MinLength  int
	SkipRoutes []string
}

const defaultBrotliMinLength = 1024

// Brotli compresses JSON and text responses of every route except skipRoutes.
func Brotli(skipRoutes ...string) gin.HandlerFunc {
	return BrotliWithConfig(BrotliConfig{
		Quality:    brotli.DefaultCompression,
		MinLength:  defaultBrotliMinLength,
		SkipRoutes: skipRoutes,
	})
}

func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaultBrotliMinLength
	}

	skip := make(map[string]struct{}, len(cfg.SkipRoutes))
	for _, r := range cfg.SkipRoutes {
		skip[r] = struct{}{}
	}

	pool := &sync.Pool{
		New: func() any { return brotli.NewWriterLevel(io.Discard, cfg.Quality) },
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.FullPath()]; ok || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		w := &brotliWriter{ResponseWriter: c.Writer, pool: pool, minLength: cfg.MinLength}
		c.Writer = w
		defer func() {
			if err := w.finish(); err != nil {
				_ = c.Error(err)
			}
		}()
		c.Next()
	}
}

// brotliWriter holds back the first minLength bytes so that small bodies and
// non-text payloads go out untouched. Once the decision is made it either
// streams through a pooled encoder or passes writes straight on.
type brotliWriter struct {
	gin.ResponseWriter
	pool      *sync.Pool
	minLength int

	buf         []byte
	enc         *brotli.Writer
	passthrough bool
}

func (w *brotliWriter) Write(data []byte) (int, error) {
	switch {
	case w.passthrough:
		return w.ResponseWriter.Write(data)
	case w.enc != nil:
		return w.enc.Write(data)
	}

	w.buf = append(w.buf, data...)
	if len(w.buf) < w.minLength {
		return len(data), nil
	}
	if err := w.decide(); err != nil {
		return 0, err
	}
	return len(data), nil
}

func (w *brotliWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Flush sends whatever is held back, uncompressed if no decision was made yet.
func (w *brotliWriter) Flush() {
	switch {
	case w.enc != nil:
		_ = w.enc.Flush()
	case !w.passthrough:
		w.passthrough = true
		_ = w.drain()
	}
	w.ResponseWriter.Flush()
}

func (w *brotliWriter) decide() error {
	h := w.ResponseWriter.Header()
	if h.Get("Content-Encoding") != "" || !compressible(h.Get("Content-Type")) {
		w.passthrough = true
		return w.drain()
	}

	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	w.enc = w.pool.Get().(*brotli.Writer)
	w.enc.Reset(w.ResponseWriter)
	_, err := w.enc.Write(w.buf)
	w.buf = w.buf[:0]
	return err
}

func (w *brotliWriter) drain() error {
	if len(w.buf) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.buf)
	w.buf = w.buf[:0]
	return err
}

func (w *brotliWriter) finish() error {
	if w.enc == nil {
		return w.drain()
	}
	err := w.enc.Close()
	w.enc.Reset(io.Discard)
	w.pool.Put(w.enc)
	w.enc = nil
	return err
}

func compressible(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return strings.HasPrefix(mt, "text/") ||
		mt == "application/json" ||
		strings.HasSuffix(mt, "+json")
}

func acceptsBrotli(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if strings.EqualFold(name, "br") {
			return true
		}
	}
	return false
}
