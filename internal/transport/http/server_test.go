package http

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/pbkdf2"

	"github.com/tjdests/tjdests/internal/domain"
	"github.com/tjdests/tjdests/internal/repository/memory"
	"github.com/tjdests/tjdests/internal/repository/ports"
	"github.com/tjdests/tjdests/internal/service"
	"github.com/tjdests/tjdests/internal/util"
)

type testServer struct {
	e     *echo.Echo
	store *memory.Store
	alice domain.User
}

func legacyHash(password string) string {
	key := pbkdf2.Key([]byte(password), []byte("s4lt"), 1000, sha256.Size, sha256.New)
	return fmt.Sprintf("pbkdf2_sha256$1000$s4lt$%s", base64.StdEncoding.EncodeToString(key))
}

// newTestServer wires the full router against an in-memory store seeded with
// alice, a migrated account whose only usable password is the legacy OldPass!1.
func newTestServer(t *testing.T, attempts ports.LoginAttemptStore) *testServer {
	t.Helper()
	store := memory.NewStore()
	hash, salt, err := util.DerivePassword("random-" + t.Name())
	if err != nil {
		t.Fatalf("derive password: %v", err)
	}
	year := domain.AcademicYear(time.Now())
	alice := store.PutUser(domain.User{
		Username:        "alice",
		FirstName:       "Alice",
		LastName:        "Anderson",
		PasswordHash:    hash,
		PasswordSalt:    salt,
		UseLegacyHashes: true,
		IsActive:        true,
		IsStudent:       true,
		AcceptedTerms:   true,
		GraduationYear:  &year,
	})
	store.PutLegacy(alice.ID, legacyHash("OldPass!1"), time.Now())

	auth := service.NewAuthService(store, attempts, nil, util.NewJWTManager("test-secret", time.Hour),
		service.AuthConfig{MaxFailures: 3, LockoutWindow: time.Minute, Maintainer: "ops@example.com"}, nil)

	e := NewRouter([]string{"*"}, nil)
	UseSessions(e, auth)
	RegisterPages(e)
	RegisterAuth(e, auth, false)
	RegisterDestinations(e, service.NewDestinationService(store))
	RegisterProfile(e, service.NewProfileService(store))

	return &testServer{e: e, store: store, alice: alice}
}

type credential struct {
	cookie *http.Cookie
	bearer string
}

func (s *testServer) do(method, path, body string, cred credential) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if cred.cookie != nil {
		req.AddCookie(cred.cookie)
	}
	if cred.bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+cred.bearer)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) login(t *testing.T, username, password string) (AuthTokenResponse, credential) {
	t.Helper()
	rec := s.do(http.MethodPost, LoginPath, fmt.Sprintf(`{"username":%q,"password":%q}`, username, password), credential{})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, rec.Code, rec.Body.String())
	}
	var resp AuthTokenResponse
	decode(t, rec, &resp)
	cookie := sessionCookie(rec)
	if cookie == nil || cookie.Value != resp.Token {
		t.Fatalf("login should set the session cookie")
	}
	return resp, credential{cookie: cookie}
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName {
			return c
		}
	}
	return nil
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
