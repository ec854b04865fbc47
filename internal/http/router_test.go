package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-opinions-backend/internal/config"
	"github.com/tbourn/go-opinions-backend/internal/domain"
	"github.com/tbourn/go-opinions-backend/internal/http/middleware"
	"github.com/tbourn/go-opinions-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath:    "/api",
		MaxBodyBytes:   1 << 20,
		CORS:           config.CORSConfig{AllowedOrigins: nil}, // allow-all branch
		Security:       config.SecurityConfig{EnableHSTS: false},
		IdempotencyTTL: time.Hour,
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newEngine(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, cfg)
	return r, db
}

func serve(r *gin.Engine, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func message(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v (body=%s)", err, w.Body.String())
	}
	return body["message"]
}

// scrape returns the value of one exposition-format series, or 0 if absent.
func scrape(t *testing.T, r *gin.Engine, series string) float64 {
	t.Helper()
	w := serve(r, http.MethodGet, "/metrics", "")
	for _, line := range strings.Split(w.Body.String(), "\n") {
		if v, ok := strings.CutPrefix(line, series+" "); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				t.Fatalf("parse %q: %v", line, err)
			}
			return f
		}
	}
	return 0
}

func TestRegisterRoutes_MetricsRecordRenderedErrorStatus(t *testing.T) {
	r, _ := newEngine(t, baseConfig())

	const (
		notFound = `http_requests_total{method="DELETE",path="/api/opinions/:id/",status="404"}`
		okay     = `http_requests_total{method="DELETE",path="/api/opinions/:id/",status="200"}`
	)
	base404, base200 := scrape(t, r, notFound), scrape(t, r, okay)

	w := serve(r, http.MethodDelete, "/api/opinions/999/", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("DELETE missing = %d", w.Code)
	}

	if got := scrape(t, r, notFound); got != base404+1 {
		t.Fatalf("404 series = %v; want %v", got, base404+1)
	}
	if got := scrape(t, r, okay); got != base200 {
		t.Fatalf("error response counted as 200: %v -> %v", base200, got)
	}
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	r, _ := newEngine(t, baseConfig())

	w := serve(r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	w = serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}
	if !strings.Contains(w.Body.String(), "http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total")
	}

	w = serve(r, http.MethodGet, "/nope", "")
	if w.Code != http.StatusNotFound || message(t, w) != "route not found" {
		t.Fatalf("GET /nope -> %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPost, "/health", "")
	if w.Code != http.StatusMethodNotAllowed || message(t, w) != "method not allowed" {
		t.Fatalf("POST /health -> %d %s", w.Code, w.Body.String())
	}

	w = serve(r, http.MethodPut, "/api/opinions/1/", `{"title":"x"}`)
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("PUT on opinion expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := baseConfig()
	cfg.CORS.AllowedOrigins = []string{"http://example.com"}
	r, _ := newEngine(t, cfg)

	w := serve(r, http.MethodGet, "/health", "", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}

	preflight := serve(r, http.MethodOptions, "/api/opinions/1/", "",
		"Origin", "http://example.com",
		"Access-Control-Request-Method", http.MethodPatch)
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("preflight -> %d", preflight.Code)
	}
	if got := preflight.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, "PATCH") || !strings.Contains(got, "DELETE") {
		t.Fatalf("preflight methods = %q", got)
	}
}

func TestRegisterRoutes_OpinionAPI_EndToEnd(t *testing.T) {
	r, _ := newEngine(t, baseConfig())

	w := serve(r, http.MethodPost, "/api/opinions/", `{"title":"T","text":"U"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create -> %d %s", w.Code, w.Body.String())
	}
	want := `{"opinion":{"id":1,"title":"T","text":"U","source":null,"added_by":null}}`
	if got := strings.TrimSpace(w.Body.String()); got != want {
		t.Fatalf("create body = %s", got)
	}
	if w.Header().Get("X-Request-ID") == "" || w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("pipeline headers missing: %#v", w.Header())
	}

	if w = serve(r, http.MethodGet, "/api/opinions/1/", ""); w.Code != http.StatusOK {
		t.Fatalf("get -> %d", w.Code)
	}
	if w = serve(r, http.MethodGet, "/api/get-random-opinion/", ""); w.Code != http.StatusOK {
		t.Fatalf("random -> %d", w.Code)
	}
	if w = serve(r, http.MethodPatch, "/api/opinions/1/", `{"source":"x"}`); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"source":"x"`) {
		t.Fatalf("patch -> %d %s", w.Code, w.Body.String())
	}
	if w = serve(r, http.MethodDelete, "/api/opinions/1/", ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete -> %d", w.Code)
	}
	w = serve(r, http.MethodGet, "/api/opinions/1/", "")
	if w.Code != http.StatusNotFound || message(t, w) != "Opinion with the given id not found" {
		t.Fatalf("get after delete -> %d %s", w.Code, w.Body.String())
	}
	w = serve(r, http.MethodGet, "/api/get-random-opinion/", "")
	if w.Code != http.StatusNotFound || message(t, w) != "No opinions in the database" {
		t.Fatalf("random on empty -> %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_ListETagExposed(t *testing.T) {
	r, _ := newEngine(t, baseConfig())
	serve(r, http.MethodPost, "/api/opinions/", `{"title":"T","text":"U"}`)

	w := serve(r, http.MethodGet, "/api/opinions/", "")
	etag := w.Header().Get("ETag")
	if etag == "" {
		t.Fatalf("ETag missing")
	}
	if !strings.Contains(w.Header().Get("Access-Control-Expose-Headers"), "ETag") {
		t.Fatalf("ETag not exposed: %q", w.Header().Get("Access-Control-Expose-Headers"))
	}
	if w = serve(r, http.MethodGet, "/api/opinions/", "", "If-None-Match", etag); w.Code != http.StatusNotModified {
		t.Fatalf("conditional GET -> %d", w.Code)
	}
}

func TestRegisterRoutes_IdempotentCreate(t *testing.T) {
	r, db := newEngine(t, baseConfig())

	body := `{"title":"T","text":"once"}`
	first := serve(r, http.MethodPost, "/api/opinions/", body, middleware.HeaderIdempotencyKey, "abc-1")
	second := serve(r, http.MethodPost, "/api/opinions/", body, middleware.HeaderIdempotencyKey, "abc-1")
	if first.Code != http.StatusCreated || second.Code != http.StatusCreated {
		t.Fatalf("codes %d %d", first.Code, second.Code)
	}
	if second.Header().Get("Idempotency-Replayed") != "true" {
		t.Fatalf("second call was not a replay")
	}
	var n int64
	db.Model(&domain.Opinion{}).Count(&n)
	if n != 1 {
		t.Fatalf("rows=%d want 1", n)
	}

	// GET ignores the key entirely.
	if w := serve(r, http.MethodGet, "/api/opinions/", "", middleware.HeaderIdempotencyKey, "bad key!"); w.Code != http.StatusOK {
		t.Fatalf("GET with bad key -> %d", w.Code)
	}
	w := serve(r, http.MethodPost, "/api/opinions/", body, middleware.HeaderIdempotencyKey, "bad key!")
	if w.Code != http.StatusBadRequest || message(t, w) != "invalid Idempotency-Key" {
		t.Fatalf("POST with bad key -> %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_IdempotencyLookupError_FallsThrough(t *testing.T) {
	r, db := newEngine(t, baseConfig())

	// Drop the table so lookups fail; the request must still be handled.
	if err := db.Migrator().DropTable(&domain.Idempotency{}); err != nil {
		t.Fatalf("drop: %v", err)
	}
	w := serve(r, http.MethodPost, "/api/opinions/", `{"title":"T","text":"U"}`, middleware.HeaderIdempotencyKey, "force-error")
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 despite lookup error, got %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_BodyLimit(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxBodyBytes = 16
	r, _ := newEngine(t, cfg)

	w := serve(r, http.MethodPost, "/api/opinions/", `{"title":"T","text":"this body is well over sixteen bytes"}`)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d %s", w.Code, w.Body.String())
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	cfg := baseConfig()
	cfg.GzipEnabled = true
	r, _ := newEngine(t, cfg)

	w := serve(r, http.MethodGet, "/api/opinions/", "", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK || w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip response, got %d %q", w.Code, w.Header().Get("Content-Encoding"))
	}
	zr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	plain, _ := io.ReadAll(zr)
	if strings.TrimSpace(string(plain)) != `{"opinions":[]}` {
		t.Fatalf("decoded body = %s", plain)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	r, _ := newEngine(t, baseConfig())
	if w := serve(r, http.MethodGet, "/swagger/doc.json", ""); w.Code != http.StatusNotFound {
		t.Fatalf("swagger must be off by default, got %d", w.Code)
	}

	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	gin.SetMode(gin.TestMode)
	r2 := gin.New()
	RegisterRoutes(r2, newTestDB(t), cfg)
	w := serve(r2, http.MethodGet, "/swagger/doc.json", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "/opinions/{id}/") {
		t.Fatalf("swagger doc -> %d", w.Code)
	}
}

func TestRegisterRoutes_PanicRecoveredAsJSON(t *testing.T) {
	r, _ := newEngine(t, baseConfig())
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := serve(r, http.MethodGet, "/panic", "")
	if w.Code != http.StatusInternalServerError || message(t, w) != "internal server error" {
		t.Fatalf("panic -> %d %s", w.Code, w.Body.String())
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB"))) // 12 bytes
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}

	// A zero cap disables the limit.
	r2 := gin.New()
	r2.Use(limitBody(0))
	r2.POST("/echo", func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})
	w = httptest.NewRecorder()
	r2.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")))
	if w.Body.String() != "0123456789AB" {
		t.Fatalf("uncapped body = %q", w.Body.String())
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

func Test_opinionRepoShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	shim := opinionRepoShim{}
	ctx := context.Background()

	o := &domain.Opinion{Title: "t", Text: "x"}
	if err := shim.CreateOpinion(ctx, db, o); err != nil || o.ID == 0 {
		t.Fatalf("CreateOpinion: %v id=%d", err, o.ID)
	}
	if got, err := shim.GetOpinion(ctx, db, o.ID); err != nil || got.Text != "x" {
		t.Fatalf("GetOpinion: %v %+v", err, got)
	}
	if taken, err := shim.TextTaken(ctx, db, "x"); err != nil || !taken {
		t.Fatalf("TextTaken: %v %v", taken, err)
	}
	o.Title = "t2"
	if err := shim.UpdateOpinion(ctx, db, o); err != nil {
		t.Fatalf("UpdateOpinion: %v", err)
	}
	if all, err := shim.ListOpinions(ctx, db); err != nil || len(all) != 1 || all[0].Title != "t2" {
		t.Fatalf("ListOpinions: %v %+v", err, all)
	}
	if got, err := shim.RandomOpinion(ctx, db); err != nil || got.ID != o.ID {
		t.Fatalf("RandomOpinion: %v %+v", err, got)
	}
	if err := shim.DeleteOpinion(ctx, db, o.ID); err != nil {
		t.Fatalf("DeleteOpinion: %v", err)
	}
	if _, err := shim.GetOpinion(ctx, db, o.ID); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
