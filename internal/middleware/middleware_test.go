package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/model"
	"github.com/iliyamo/fitness-tracker/internal/utils"
)

func serveWithAuth(t *testing.T, tokens *utils.TokenService, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		id, ok := CallerID(c)
		if !ok {
			t.Fatalf("handler reached without identity")
		}
		return c.JSON(http.StatusOK, echo.Map{"id": id})
	}, JWTAuth(tokens))
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthUniformUnauthorized(t *testing.T) {
	tokens := utils.NewTokenService("secret", time.Hour)
	expired, _, err := utils.NewTokenService("secret", 0).Issue(model.Identity{UserID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	foreign, _, err := utils.NewTokenService("other", time.Hour).Issue(model.Identity{UserID: 1})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var bodies []string
	for _, h := range []string{"", "Basic abc", "Bearer ", "Bearer garbage", "Bearer " + expired, "Bearer " + foreign} {
		rec := serveWithAuth(t, tokens, h)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status %d", h, rec.Code)
		}
		bodies = append(bodies, rec.Body.String())
	}
	for _, b := range bodies[1:] {
		if b != bodies[0] {
			t.Fatalf("401 bodies differ: %q vs %q", bodies[0], b)
		}
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	tokens := utils.NewTokenService("secret", time.Hour)
	tok, _, err := tokens.Issue(model.Identity{UserID: 0, Username: "zero"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	rec := serveWithAuth(t, tokens, "Bearer "+tok)
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"id":0}` {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestJWTAuthFailsClosedWithoutSecret(t *testing.T) {
	rec := serveWithAuth(t, utils.NewTokenService("", time.Hour), "Bearer whatever")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/exercises", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/exercises")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_user_route"}
	if got := buildRateKey(cfg, c); got != "rl:ip:10.0.0.1:user:guest:route:GET /api/exercises" {
		t.Fatalf("guest key = %s", got)
	}
	SetIdentity(c, model.Identity{UserID: 42})
	cfg.KeyStrategy = "user"
	if got := buildRateKey(cfg, c); got != "rl:user:42" {
		t.Fatalf("user key = %s", got)
	}
}

func TestCachePayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[1,2]`))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	status, gotHdr, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || gotHdr.Get("Content-Type") != "application/json" || string(body) != "[1,2]" {
		t.Fatalf("decode = %d %v %q %v", status, gotHdr, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:6]); ok {
		t.Fatalf("truncated payload decoded")
	}
}

func TestCacheKeySeparatesUsersAndGenerations(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/workouts", nil), httptest.NewRecorder())
	c.SetPath("/api/workouts")
	a := cacheKey("p", "1", "0", c)
	if a == cacheKey("p", "2", "0", c) {
		t.Fatalf("different users share a key")
	}
	if a == cacheKey("p", "1", "1", c) {
		t.Fatalf("generation bump did not change the key")
	}
}

func TestDisabledMiddlewaresPassThrough(t *testing.T) {
	e := echo.New()
	rc := NewResponseCache(config.CacheConfig{Enabled: true}, nil)
	h := NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil)(rc.Middleware()(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}))
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Fatalf("unexpected response %d %v", rec.Code, rec.Header())
	}
	if err := rc.bump(context.Background(), "1"); err != nil {
		t.Fatalf("bump on disabled cache: %v", err)
	}
}
