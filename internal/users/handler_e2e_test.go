package users_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"resume-critic/internal/bootstrap"
	"resume-critic/internal/shared/config"
)

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		JWTSecret:       "test-secret",
	}
	app, err := bootstrap.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

func postJSON(app *bootstrap.App, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	return resp
}

func sessionCookie(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "session" {
			return cookie.Value
		}
	}
	t.Fatalf("no session cookie in response")
	return ""
}

func TestRegisterLoginMe(t *testing.T) {
	app := buildTestApp(t)

	resp := postJSON(app, "/api/v1/auth/register", `{"email": "me@example.com", "password": "long-enough-pw", "name": "Me"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	if c := sessionCookie(t, resp); c == "" {
		t.Fatalf("register session cookie empty")
	}

	resp = postJSON(app, "/api/v1/auth/login", `{"email": "me@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	session := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: session})
	meResp := httptest.NewRecorder()
	app.Router.ServeHTTP(meResp, req)
	if meResp.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", meResp.Code)
	}
	var me struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(meResp.Body).Decode(&me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "me@example.com" || me.Name != "Me" {
		t.Fatalf("me = %+v", me)
	}
}

func TestMeAcceptsBearerToken(t *testing.T) {
	app := buildTestApp(t)

	resp := postJSON(app, "/api/v1/auth/register", `{"email": "bearer@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.Code)
	}
	session := sessionCookie(t, resp)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+session)
	meResp := httptest.NewRecorder()
	app.Router.ServeHTTP(meResp, req)
	if meResp.Code != http.StatusOK {
		t.Fatalf("me with bearer: expected 200, got %d", meResp.Code)
	}
}

func TestLoginWrongCredentials(t *testing.T) {
	app := buildTestApp(t)

	resp := postJSON(app, "/api/v1/auth/register", `{"email": "w@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", resp.Code)
	}

	resp = postJSON(app, "/api/v1/auth/login", `{"email": "w@example.com", "password": "wrong-password"}`)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "invalid_credentials" {
		t.Fatalf("error code = %q", body.Error.Code)
	}
}

func TestRegisterDuplicateEmailConflict(t *testing.T) {
	app := buildTestApp(t)

	if resp := postJSON(app, "/api/v1/auth/register", `{"email": "dup@example.com", "password": "long-enough-pw"}`); resp.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", resp.Code)
	}
	resp := postJSON(app, "/api/v1/auth/register", `{"email": "dup@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	app := buildTestApp(t)

	resp := postJSON(app, "/api/v1/auth/logout", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.Code)
	}
	cleared := false
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == "session" && cookie.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatalf("logout did not expire the session cookie")
	}
}

func TestStoredFilesServedOnlyToOwner(t *testing.T) {
	app := buildTestApp(t)

	resp := postJSON(app, "/api/v1/auth/register", `{"email": "owner@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register owner: expected 201, got %d", resp.Code)
	}
	ownerSession := sessionCookie(t, resp)

	resp = postJSON(app, "/api/v1/auth/register", `{"email": "other@example.com", "password": "long-enough-pw"}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("register other: expected 201, got %d", resp.Code)
	}
	otherSession := sessionCookie(t, resp)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "avatar.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write([]byte("\x89PNG\r\n\x1a\nnot really an image"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/me/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "session", Value: ownerSession})
	avatarResp := httptest.NewRecorder()
	app.Router.ServeHTTP(avatarResp, req)
	if avatarResp.Code != http.StatusOK {
		t.Fatalf("avatar upload: expected 200, got %d: %s", avatarResp.Code, avatarResp.Body.String())
	}
	var uploaded struct {
		AvatarURL string `json:"avatarUrl"`
	}
	if err := json.NewDecoder(avatarResp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode avatar response: %v", err)
	}
	if uploaded.AvatarURL == "" {
		t.Fatalf("avatar URL empty")
	}

	fetch := func(session string) int {
		req := httptest.NewRequest(http.MethodGet, uploaded.AvatarURL, nil)
		if session != "" {
			req.AddCookie(&http.Cookie{Name: "session", Value: session})
		}
		resp := httptest.NewRecorder()
		app.Router.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := fetch(ownerSession); code != http.StatusOK {
		t.Fatalf("owner fetch: expected 200, got %d", code)
	}
	if code := fetch(otherSession); code != http.StatusNotFound {
		t.Fatalf("cross-user fetch: expected 404, got %d", code)
	}
	if code := fetch(""); code != http.StatusUnauthorized {
		t.Fatalf("anonymous fetch: expected 401, got %d", code)
	}
}

func TestMeRequiresSession(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}
