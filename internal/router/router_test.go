package router

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/database"
)

type testServer struct {
	e  *echo.Echo
	db *sql.DB
}

func newTestServer(t *testing.T, secret string, lifetime int) *testServer {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "fitness.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if _, err := database.ApplyMigrations(ctx, db, database.SQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := database.SeedDefaults(ctx, db); err != nil {
		t.Fatalf("seed: %v", err)
	}
	cfg := config.Config{
		DBDriver:       config.DriverSQLite,
		JWTSecret:      secret,
		TokenLifetime:  lifetime,
		BcryptCost:     bcrypt.MinCost,
		RequestTimeout: 5 * time.Second,
		LogLevel:       "off",
	}
	return &testServer{e: New(Deps{Cfg: cfg, DB: db, Dialect: database.SQLite}), db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, want, rec.Body.String())
	}
}

// signup registers and logs in a user and returns the token.
func (s *testServer) signup(t *testing.T, name string) string {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": name, "email": name + "@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusCreated)
	rec = s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": name, "password": "secret1"})
	expectStatus(t, rec, http.StatusOK)
	return decode[struct {
		Token string `json:"token"`
	}](t, rec).Token
}

type idResp struct {
	ID uint64 `json:"id"`
}

type routineResp struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
	Exercises []struct {
		ExerciseID uint64 `json:"exerciseId"`
		Order      int    `json:"order"`
		Exercise   struct {
			ID   uint64 `json:"id"`
			Name string `json:"name"`
		} `json:"exercise"`
	} `json:"exercises"`
}

type errResp struct {
	Error   string              `json:"error"`
	Details map[string][]string `json:"details"`
}

func TestAliceScenario(t *testing.T) {
	s := newTestServer(t, "secret", 3600)

	rec := s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusCreated)
	if strings.Contains(strings.ToLower(rec.Body.String()), "password") {
		t.Fatalf("register leaked the password hash: %s", rec.Body.String())
	}

	rec = s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": "alice", "password": "secret1"})
	expectStatus(t, rec, http.StatusOK)
	login := decode[struct {
		User      map[string]any `json:"user"`
		Token     string         `json:"token"`
		ExpiresIn int            `json:"expiresIn"`
	}](t, rec)
	if login.Token == "" || login.ExpiresIn != 3600 || login.User["username"] != "alice" {
		t.Fatalf("login = %+v", login)
	}
	if _, ok := login.User["passwordHash"]; ok {
		t.Fatalf("login leaked the password hash")
	}
	token := login.Token

	rec = s.do(t, http.MethodPost, "/api/exercises", token, map[string]string{"name": "Curl"})
	expectStatus(t, rec, http.StatusCreated)
	exID := decode[idResp](t, rec).ID

	rec = s.do(t, http.MethodPost, "/api/routines", token, map[string]any{"name": "R1", "exerciseIds": []uint64{exID}})
	expectStatus(t, rec, http.StatusCreated)
	rt := decode[routineResp](t, rec)
	if len(rt.Exercises) != 1 || rt.Exercises[0].Order != 1 || rt.Exercises[0].Exercise.Name != "Curl" {
		t.Fatalf("routine = %+v", rt)
	}

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/exercises/%d", exID), token, nil)
	expectStatus(t, rec, http.StatusNoContent)

	rec = s.do(t, http.MethodGet, "/api/routines", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var found bool
	for _, r := range decode[[]routineResp](t, rec) {
		if r.Name == "R1" {
			found = true
			if len(r.Exercises) != 0 {
				t.Fatalf("R1 still links %d exercises", len(r.Exercises))
			}
		}
	}
	if !found {
		t.Fatalf("R1 missing from routine list")
	}
}

func TestLoginFailuresAreIdentical(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	s.signup(t, "alice")

	wrong := s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": "alice", "password": "nope123"})
	unknown := s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": "ghost", "password": "nope123"})
	expectStatus(t, wrong, http.StatusUnauthorized)
	expectStatus(t, unknown, http.StatusUnauthorized)
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %s vs %s", wrong.Body.String(), unknown.Body.String())
	}

	missing := s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": "alice"})
	expectStatus(t, missing, http.StatusBadRequest)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	routes := []struct{ method, path string }{
		{http.MethodGet, "/api/user/me"},
		{http.MethodGet, "/api/exercises"},
		{http.MethodPost, "/api/exercises"},
		{http.MethodDelete, "/api/exercises/1"},
		{http.MethodGet, "/api/routines"},
		{http.MethodPost, "/api/routines"},
		{http.MethodDelete, "/api/routines/1"},
		{http.MethodGet, "/api/workouts"},
		{http.MethodPost, "/api/workouts"},
		{http.MethodGet, "/api/stats/progress?exerciseId=1"},
	}
	for _, r := range routes {
		// a malformed body must not be looked at before authentication
		rec := s.do(t, r.method, r.path, "", "{not json")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: status %d", r.method, r.path, rec.Code)
		}
		if got := decode[errResp](t, rec).Error; got != "Unauthorized" {
			t.Fatalf("%s %s: error %q", r.method, r.path, got)
		}
	}
}

func TestZeroLifetimeTokenIsRejected(t *testing.T) {
	s := newTestServer(t, "secret", 0)
	token := s.signup(t, "alice")
	rec := s.do(t, http.MethodGet, "/api/exercises", token, nil)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestMissingSecretFailsClosed(t *testing.T) {
	s := newTestServer(t, "", 3600)
	rec := s.do(t, http.MethodGet, "/api/exercises", "anything", nil)
	expectStatus(t, rec, http.StatusInternalServerError)

	rec = s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusCreated)
	rec = s.do(t, http.MethodPost, "/api/user/login", "", map[string]string{"username": "alice", "password": "secret1"})
	expectStatus(t, rec, http.StatusInternalServerError)
}

func TestWorkoutProgressRoundTrip(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	token := s.signup(t, "alice")
	rec := s.do(t, http.MethodPost, "/api/exercises", token, map[string]string{"name": "Curl"})
	expectStatus(t, rec, http.StatusCreated)
	exID := decode[idResp](t, rec).ID

	rec = s.do(t, http.MethodPost, "/api/workouts", token, map[string]any{
		"exerciseId": exID, "date": "2024-03-05T10:00:00.000Z", "sets": 3, "reps": 8, "weight": 42.5,
	})
	expectStatus(t, rec, http.StatusCreated)

	rec = s.do(t, http.MethodGet, fmt.Sprintf("/api/stats/progress?exerciseId=%d", exID), token, nil)
	expectStatus(t, rec, http.StatusOK)
	points := decode[[]struct {
		Date  string  `json:"date"`
		Value float64 `json:"value"`
	}](t, rec)
	if len(points) != 1 || points[0].Date != "2024-03-05" || points[0].Value != 42.5 {
		t.Fatalf("points = %+v", points)
	}

	rec = s.do(t, http.MethodGet, "/api/workouts", token, nil)
	expectStatus(t, rec, http.StatusOK)
	logs := decode[[]struct {
		ExerciseID uint64 `json:"exerciseId"`
		Exercise   struct {
			Name string `json:"name"`
		} `json:"exercise"`
	}](t, rec)
	if len(logs) != 1 || logs[0].Exercise.Name != "Curl" {
		t.Fatalf("logs = %+v", logs)
	}
}

func TestValidationErrors(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	token := s.signup(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/workouts", token, map[string]any{
		"exerciseId": 1, "date": "yesterday", "sets": 0, "reps": 1, "weight": -1,
	})
	expectStatus(t, rec, http.StatusBadRequest)
	body := decode[errResp](t, rec)
	for _, field := range []string{"date", "sets", "weight"} {
		if len(body.Details[field]) == 0 {
			t.Fatalf("no details for %s: %+v", field, body)
		}
	}

	rec = s.do(t, http.MethodPost, "/api/workouts", token, map[string]any{
		"exerciseId": 1, "date": "0999-12-31T00:00:00Z", "sets": 2147483648, "reps": 1, "weight": 0,
	})
	expectStatus(t, rec, http.StatusBadRequest)
	body = decode[errResp](t, rec)
	if len(body.Details["date"]) == 0 || len(body.Details["sets"]) == 0 {
		t.Fatalf("out of range values not reported: %+v", body)
	}

	rec = s.do(t, http.MethodPost, "/api/routines", token, map[string]any{"name": "R", "exerciseIds": []int{1, 424242}})
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[errResp](t, rec).Error; !strings.Contains(msg, "424242") {
		t.Fatalf("message %q does not name the invalid id", msg)
	}

	rec = s.do(t, http.MethodPost, "/api/routines", token, map[string]any{"name": "R", "exerciseIds": []int{}})
	expectStatus(t, rec, http.StatusBadRequest)
	rec = s.do(t, http.MethodPost, "/api/routines", token, map[string]any{"name": "R", "exerciseIds": []int{1, 1}})
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/workouts", token, map[string]any{
		"exerciseId": 424242, "date": "2024-03-05T10:00:00Z", "sets": 1, "reps": 1, "weight": 0,
	})
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[errResp](t, rec).Error; msg != "Selected exercise is not valid" {
		t.Fatalf("message = %q", msg)
	}

	rec = s.do(t, http.MethodGet, "/api/stats/progress", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)
	if msg := decode[errResp](t, rec).Error; msg != "Missing parameter" {
		t.Fatalf("message = %q", msg)
	}
	rec = s.do(t, http.MethodGet, "/api/stats/progress?exerciseId=abc", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodDelete, "/api/exercises/abc", token, nil)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "bob", "email": "not-an-email", "password": "123",
	})
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestOwnershipAndConflicts(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	alice := s.signup(t, "alice")
	bob := s.signup(t, "bob")

	rec := s.do(t, http.MethodPost, "/api/exercises", alice, map[string]string{"name": "Curl"})
	expectStatus(t, rec, http.StatusCreated)
	exID := decode[idResp](t, rec).ID

	rec = s.do(t, http.MethodDelete, fmt.Sprintf("/api/exercises/%d", exID), bob, nil)
	expectStatus(t, rec, http.StatusNotFound)
	if msg := decode[errResp](t, rec).Error; msg != "Not found or forbidden" {
		t.Fatalf("message = %q", msg)
	}

	rec = s.do(t, http.MethodGet, "/api/exercises", bob, nil)
	expectStatus(t, rec, http.StatusOK)
	for _, ex := range decode[[]struct {
		Name string `json:"name"`
	}](t, rec) {
		if ex.Name == "Curl" {
			t.Fatalf("bob sees alice's exercise")
		}
	}

	rec = s.do(t, http.MethodPost, "/api/exercises", bob, map[string]string{"name": "Curl"})
	expectStatus(t, rec, http.StatusConflict)
	rec = s.do(t, http.MethodPost, "/api/user/register", "", map[string]string{
		"username": "alice", "email": "other@x.com", "password": "secret1",
	})
	expectStatus(t, rec, http.StatusConflict)
}

func TestConcurrentDeleteAnswersOnce(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	token := s.signup(t, "alice")
	rec := s.do(t, http.MethodPost, "/api/exercises", token, map[string]string{"name": "Curl"})
	expectStatus(t, rec, http.StatusCreated)
	path := fmt.Sprintf("/api/exercises/%d", decode[idResp](t, rec).ID)

	start := make(chan struct{})
	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodDelete, path, nil)
			req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
			w := httptest.NewRecorder()
			<-start
			s.e.ServeHTTP(w, req)
			codes[i] = w.Code
		}(i)
	}
	close(start)
	wg.Wait()

	sort.Ints(codes)
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusNotFound {
		t.Fatalf("codes = %v, want [204 404]", codes)
	}
}

func TestMeForDeletedUser(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	token := s.signup(t, "alice")
	rec := s.do(t, http.MethodGet, "/api/user/me", token, nil)
	expectStatus(t, rec, http.StatusOK)

	if _, err := s.db.Exec("DELETE FROM users WHERE username = 'alice'"); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	rec = s.do(t, http.MethodGet, "/api/user/me", token, nil)
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUnknownRouteUsesErrorBody(t *testing.T) {
	s := newTestServer(t, "secret", 3600)
	rec := s.do(t, http.MethodGet, "/nope", "", nil)
	expectStatus(t, rec, http.StatusNotFound)
	if decode[errResp](t, rec).Error == "" {
		t.Fatalf("missing error field: %s", rec.Body.String())
	}
	rec = s.do(t, http.MethodGet, "/healthz", "", nil)
	expectStatus(t, rec, http.StatusOK)
}
