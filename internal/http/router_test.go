package httpapi

import (
	"bytes"
	"compress/gzip"
	"context"
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
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-meal-backend/internal/config"
	"github.com/tbourn/go-meal-backend/internal/domain"
	"github.com/tbourn/go-meal-backend/internal/repo"
)

// --- test DB helper (pure-Go sqlite, no CGO) ---
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:routerdb_%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func baseConfig() config.Config {
	return config.Config{
		APIBasePath: "/",
		MealPath:    "/meal",
		RateRPS:     100,
		RateBurst:   10,
		LogRedact:   true,
		CORS:        config.CORSConfig{AllowedOrigins: nil}, // triggers AllowAllOrigins branch
		Security:    config.SecurityConfig{EnableHSTS: false, HSTSMaxAge: 0, CacheControl: "no-cache"},
		OTEL:        config.OTELConfig{ServiceName: "test-svc"},
	}
}

func serve(r http.Handler, method, path string, hdr ...string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_CORSAllowAll_Health_Metrics_Fallbacks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), baseConfig())

	// /health works
	w := serve(r, http.MethodGet, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	// CORS (AllowAllOrigins) → header "*"
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}

	// /metrics is wired
	w = serve(r, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK || len(w.Body.Bytes()) == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	// NoRoute → 404
	if w = serve(r, http.MethodGet, "/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	// NoMethod → 405 (POST /health)
	if w = serve(r, http.MethodPost, "/health"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := baseConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	RegisterRoutes(r, newTestDB(t), cfg)

	// Any request runs through CORS middleware; header should reflect origin.
	w := serve(r, http.MethodGet, "/health", "Origin", "http://example.com")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_MealEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	ctx := context.Background()
	cake := domain.NewMeal(2, "Chocolate cake", "Chocolate cake with butter cream and strawberry.",
		[]string{"flour", "water", "butter", "strawberry"}, "Dessert")
	if _, err := repo.PutEntity(ctx, db, domain.EntityFromMeal(cake)); err != nil {
		t.Fatalf("put: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, db, baseConfig())

	w := serve(r, http.MethodGet, "/meal/2")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /meal/2 = %d body=%s", w.Code, w.Body.String())
	}
	want := `{"id":2,"title":"Chocolate cake","description":"Chocolate cake with butter cream and strawberry.","ingredients":["flour","water","butter","strawberry"],"type":"Dessert"}`
	if w.Body.String() != want {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
	if cc := w.Header().Get("Cache-Control"); cc != "no-cache" {
		t.Fatalf("expected Cache-Control no-cache, got %q", cc)
	}

	if w = serve(r, http.MethodGet, "/meal"); w.Code != http.StatusOK || w.Body.String() != "["+want+"]" {
		t.Fatalf("GET /meal = %d %s", w.Code, w.Body.String())
	}
	// No redirect for trailing slashes; they are malformed.
	for _, p := range []string{"/meal/", "/meal/2/", "/meal/x"} {
		if w = serve(r, http.MethodGet, p); w.Code != http.StatusBadRequest {
			t.Fatalf("GET %s expected 400, got %d", p, w.Code)
		}
	}
	if w = serve(r, http.MethodGet, "/meal/7"); w.Code != http.StatusNotFound {
		t.Fatalf("GET /meal/7 expected 404, got %d", w.Code)
	}
	if w = serve(r, http.MethodDelete, "/meal/2"); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("DELETE /meal/2 expected 405, got %d", w.Code)
	}
}

func TestRegisterRoutes_LargeMealIDsRoundTripExactly(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	ctx := context.Background()

	// 2^53+1 is the first integer a float64 cannot hold; the other is MaxInt64.
	ids := []string{"9007199254740993", "9223372036854775807"}
	for i, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			t.Fatalf("parse %s: %v", raw, err)
		}
		m := domain.NewMeal(id, fmt.Sprintf("Meal %d", i), "Big id.", []string{"salt"}, "Main")
		if _, err := repo.PutEntity(ctx, db, domain.EntityFromMeal(m)); err != nil {
			t.Fatalf("put %s: %v", raw, err)
		}
	}
	// A neighbour that float rounding would collide with.
	near := domain.NewMeal(9007199254740992, "Neighbour", "Big id.", []string{"salt"}, "Main")
	if _, err := repo.PutEntity(ctx, db, domain.EntityFromMeal(near)); err != nil {
		t.Fatalf("put neighbour: %v", err)
	}

	r := gin.New()
	RegisterRoutes(r, db, baseConfig())

	for i, raw := range ids {
		w := serve(r, http.MethodGet, "/meal/"+raw)
		if w.Code != http.StatusOK {
			t.Fatalf("GET /meal/%s = %d body=%s", raw, w.Code, w.Body.String())
		}
		want := fmt.Sprintf(`{"id":%s,"title":"Meal %d","description":"Big id.","ingredients":["salt"],"type":"Main"}`, raw, i)
		if w.Body.String() != want {
			t.Fatalf("GET /meal/%s:\n got %s\nwant %s", raw, w.Body.String(), want)
		}
	}

	w := serve(r, http.MethodGet, "/meal")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /meal = %d", w.Code)
	}
	for _, raw := range append(ids, "9007199254740992") {
		if !strings.Contains(w.Body.String(), `"id":`+raw+`,`) {
			t.Fatalf("list lost id %s: %s", raw, w.Body.String())
		}
	}

	// One past MaxInt64 does not parse as an id.
	if w := serve(r, http.MethodGet, "/meal/9223372036854775808"); w.Code != http.StatusBadRequest {
		t.Fatalf("GET /meal/9223372036854775808 expected 400, got %d", w.Code)
	}
}

func TestRegisterRoutes_DuplicateIDLogsOneErrorLine(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)

	db := newTestDB(t)
	ctx := context.Background()
	for _, title := range []string{"Fried potato", "Vegetable soup"} {
		m := domain.NewMeal(1, title, title+".", []string{"potato"}, "Main")
		if _, err := repo.PutEntity(ctx, db, domain.EntityFromMeal(m)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}
	r := gin.New()
	RegisterRoutes(r, db, baseConfig())

	if w := serve(r, http.MethodGet, "/meal/1", "X-Request-ID", "rid-dup"); w.Code != http.StatusInternalServerError {
		t.Fatalf("GET /meal/1 = %d", w.Code)
	}

	var errorLines []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"level":"error"`) && !strings.Contains(line, `"message":"request"`) {
			errorLines = append(errorLines, line)
		}
	}
	if len(errorLines) != 1 {
		t.Fatalf("want one error line besides the access line, got %d:\n%s", len(errorLines), buf.String())
	}
	if !strings.Contains(errorLines[0], "duplicate") || !strings.Contains(errorLines[0], `"request_id":"rid-dup"`) {
		t.Fatalf("error line lacks cause or request id: %s", errorLines[0])
	}
}

func TestRegisterRoutes_CORSPreflightOffersOnlyRoutedMethods(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for name, origins := range map[string][]string{
		"allow all": nil,
		"allowlist": {"http://example.com"},
	} {
		t.Run(name, func(t *testing.T) {
			cfg := baseConfig()
			cfg.CORS = config.CORSConfig{AllowedOrigins: origins}
			r := gin.New()
			RegisterRoutes(r, newTestDB(t), cfg)

			w := serve(r, http.MethodOptions, "/meal/2",
				"Origin", "http://example.com",
				"Access-Control-Request-Method", http.MethodGet)
			if w.Code != http.StatusNoContent {
				t.Fatalf("preflight = %d", w.Code)
			}
			methods := strings.ToUpper(w.Header().Get("Access-Control-Allow-Methods"))
			if !strings.Contains(methods, "GET") {
				t.Fatalf("Allow-Methods %q lacks GET", methods)
			}
			if strings.Contains(methods, "HEAD") {
				t.Fatalf("Allow-Methods %q advertises HEAD, which is not routed", methods)
			}

			// And HEAD really is refused.
			if w := serve(r, http.MethodHead, "/meal/2"); w.Code != http.StatusMethodNotAllowed {
				t.Fatalf("HEAD /meal/2 = %d, want 405", w.Code)
			}
		})
	}
}

func TestRegisterRoutes_BasePathPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig()
	cfg.APIBasePath = "/api/v1"
	RegisterRoutes(r, newTestDB(t), cfg)

	if w := serve(r, http.MethodGet, "/api/v1/meal"); w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("GET /api/v1/meal = %d %s", w.Code, w.Body.String())
	}
	if w := serve(r, http.MethodGet, "/meal"); w.Code != http.StatusNotFound {
		t.Fatalf("GET /meal without prefix expected 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_GzipWhenAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, newTestDB(t), baseConfig())

	w := serve(r, http.MethodGet, "/meal", "Accept-Encoding", "gzip")
	if w.Code != http.StatusOK {
		t.Fatalf("GET /meal = %d", w.Code)
	}
	if ce := w.Header().Get("Content-Encoding"); ce != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", ce)
	}
	zr, err := gzip.NewReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	body, err := io.ReadAll(zr)
	if err != nil {
		t.Fatalf("read gzip: %v", err)
	}
	if string(body) != "[]" {
		t.Fatalf("unexpected decompressed body %q", body)
	}
}

func TestRegisterRoutes_RateLimitSkipsHealth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	cfg := baseConfig()
	cfg.RateRPS = 0.0001
	cfg.RateBurst = 1
	RegisterRoutes(r, newTestDB(t), cfg)

	if w := serve(r, http.MethodGet, "/meal"); w.Code != http.StatusOK {
		t.Fatalf("first GET /meal = %d", w.Code)
	}
	if w := serve(r, http.MethodGet, "/meal"); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second GET /meal expected 429, got %d", w.Code)
	}
	for i := 0; i < 3; i++ {
		if w := serve(r, http.MethodGet, "/health"); w.Code != http.StatusOK {
			t.Fatalf("GET /health #%d = %d", i, w.Code)
		}
	}
}

func TestRegisterRoutes_SwaggerToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	off := gin.New()
	RegisterRoutes(off, newTestDB(t), baseConfig())
	if w := serve(off, http.MethodGet, "/swagger/doc.json"); w.Code != http.StatusNotFound {
		t.Fatalf("swagger disabled: expected 404, got %d", w.Code)
	}

	on := gin.New()
	cfg := baseConfig()
	cfg.SwaggerEnabled = true
	RegisterRoutes(on, newTestDB(t), cfg)
	w := serve(on, http.MethodGet, "/swagger/doc.json")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"/meal/{id}"`) {
		t.Fatalf("swagger enabled: got %d %s", w.Code, w.Body.String())
	}
}

func Test_datastoreShim_Proxies(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	shim := datastoreShim{db: db}

	for _, m := range []domain.Meal{
		domain.NewMeal(1, "Fried potato", "Fried potato with mushrooms and onion.", []string{"potato"}, "Main"),
		domain.NewMeal(2, "Chocolate cake", "Chocolate cake.", []string{"flour"}, "Dessert"),
	} {
		if _, err := repo.PutEntity(ctx, db, domain.EntityFromMeal(m)); err != nil {
			t.Fatalf("put: %v", err)
		}
	}

	all, err := shim.QueryAll(ctx, domain.KindMeal)
	if err != nil || len(all) != 2 {
		t.Fatalf("QueryAll: n=%d err=%v", len(all), err)
	}
	one, err := shim.QueryByField(ctx, domain.KindMeal, domain.PropID, int64(2))
	if err != nil || len(one) != 1 {
		t.Fatalf("QueryByField: n=%d err=%v", len(one), err)
	}
	n, maxKey, err := shim.KindStats(ctx, domain.KindMeal)
	if err != nil || n != 2 || maxKey < 2 {
		t.Fatalf("KindStats: n=%d max=%d err=%v", n, maxKey, err)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// "/" and "" should mount at root
	root1 := groupWithPrefix(r, "/")
	root1.GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	root2 := groupWithPrefix(r, "")
	root2.GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })

	// non-root prefix
	api := groupWithPrefix(r, "/api")
	api.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := serve(r, http.MethodGet, path)
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}

// Smoke test that a request traverses ratelimit + otel + security headers pipeline.
func TestPipeline_Smoke(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	cfg := baseConfig()
	cfg.LogRedact = false
	cfg.Security = config.SecurityConfig{EnableHSTS: true, HSTSMaxAge: time.Hour} // enabled (but only set on https)
	RegisterRoutes(r, newTestDB(t), cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.URL.Scheme = "https"
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("pipeline GET /health = %d", w.Code)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}
}
