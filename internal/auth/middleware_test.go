package auth_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/openassess/qtibridge/internal/auth"
)

func TestIssueAndParse(t *testing.T) {
	a := auth.NewAuthService("test-secret")
	tok, err := a.IssueJWT("admin")
	if err != nil {
		t.Fatalf("IssueJWT: %v", err)
	}
	claims, err := a.Parse(tok)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if claims.Sub != "admin" {
		t.Errorf("Sub = %q", claims.Sub)
	}
	if claims.Issuer != "qtibridge" {
		t.Errorf("Issuer = %q", claims.Issuer)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	tok, err := auth.NewAuthService("secret-a").IssueJWT("admin")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := auth.NewAuthService("secret-b").Parse(tok); err == nil {
		t.Fatal("token signed with another secret must not parse")
	}
}

func TestLoginHandler(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	a := auth.NewAuthService("test-secret")
	handler := auth.LoginHandler(a, "admin", string(hash))

	login := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	rec := login(`{"username":"admin","password":"hunter2"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Parse(resp["access_token"]); err != nil {
		t.Errorf("issued token does not parse: %v", err)
	}

	if rec := login(`{"username":"admin","password":"wrong"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password: status = %d", rec.Code)
	}
	if rec := login(`{"username":"other","password":"hunter2"}`); rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong user: status = %d", rec.Code)
	}
	if rec := login(`not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("bad json: status = %d", rec.Code)
	}
}

func TestLoginDisabledWithoutHash(t *testing.T) {
	handler := auth.LoginHandler(auth.NewAuthService("s"), "admin", "")
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"admin","password":"anything"}`))
	rec := httptest.NewRecorder()
	handler(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, login must be disabled", rec.Code)
	}
}

func TestJWTMiddleware(t *testing.T) {
	a := auth.NewAuthService("test-secret")
	var reached bool
	protected := auth.JWTMiddleware(a)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/conversions", nil)
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("no header: status = %d, reached = %v", rec.Code, reached)
	}

	req = httptest.NewRequest(http.MethodGet, "/conversions", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized || reached {
		t.Errorf("bad token: status = %d, reached = %v", rec.Code, reached)
	}

	tok, err := a.IssueJWT("admin")
	if err != nil {
		t.Fatal(err)
	}
	req = httptest.NewRequest(http.MethodGet, "/conversions", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	protected.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !reached {
		t.Errorf("valid token: status = %d, reached = %v", rec.Code, reached)
	}
}
