package api

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"minichat/internal/auth"
	"minichat/internal/completion"
	"minichat/internal/config"
	"minichat/internal/models"
	"minichat/internal/service/chat"
	"minichat/internal/storage"
	"minichat/internal/store"
)

func newTestServer(t *testing.T) (*gin.Engine, *sql.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		BasicConfig: config.BasicConfig{EchoDelayMS: 5},
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}

	st := store.New(db)
	chatService := chat.NewService(st, completion.NewService(cfg))
	authService := auth.NewService(db, nil, time.Hour)
	handler := NewHandler(chatService, authService, auth.NewAccounts(st))

	router := gin.New()
	handler.RegisterRoutes(router)
	return router, db
}

func doJSONRequest(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func assertStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body: %s)", rec.Code, want, rec.Body.String())
	}
}

func decodeJSON(t *testing.T, data []byte, out any) {
	t.Helper()
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("decode response: %v (body: %s)", err, data)
	}
}

func messageRowCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	return count
}

func registerAndLogin(t *testing.T, router *gin.Engine, username string) map[string]string {
	t.Helper()
	creds := map[string]string{"username": username, "password": "pass123"}

	regResp := doJSONRequest(t, router, http.MethodPost, "/api/users/register", creds, nil)
	assertStatus(t, regResp, http.StatusCreated)

	loginResp := doJSONRequest(t, router, http.MethodPost, "/api/users/login", creds, nil)
	assertStatus(t, loginResp, http.StatusOK)
	var loginBody struct {
		AuthToken string `json:"auth_token"`
	}
	decodeJSON(t, loginResp.Body.Bytes(), &loginBody)
	if loginBody.AuthToken == "" {
		t.Fatalf("expected auth token from login")
	}
	return map[string]string{"Authorization": "Bearer " + loginBody.AuthToken}
}

func TestHandlersEndToEndFlow(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	authHeader := registerAndLogin(t, router, "tester")

	// Fetch the model catalog and pick the echo stub.
	modelsResp := doJSONRequest(t, router, http.MethodGet, "/api/models", nil, authHeader)
	assertStatus(t, modelsResp, http.StatusOK)
	var modelsBody struct {
		Models []models.Model `json:"models"`
	}
	decodeJSON(t, modelsResp.Body.Bytes(), &modelsBody)
	if len(modelsBody.Models) == 0 {
		t.Fatalf("expected seeded models")
	}
	var echo *models.Model
	for i := range modelsBody.Models {
		if modelsBody.Models[i].Tag == "echo" {
			echo = &modelsBody.Models[i]
		}
	}
	if echo == nil {
		t.Fatalf("echo model missing from catalog")
	}

	// Send one prompt through the full pipeline.
	sendResp := doJSONRequest(t, router, http.MethodPost, "/api/chat/send", map[string]any{
		"prompt":    "hello",
		"model_id":  echo.ID,
		"model_tag": echo.Tag,
	}, authHeader)
	assertStatus(t, sendResp, http.StatusOK)
	var sendBody struct {
		Reply string `json:"reply"`
	}
	decodeJSON(t, sendResp.Body.Bytes(), &sendBody)
	wantReply := `You said: "hello" (using model: echo)`
	if sendBody.Reply != wantReply {
		t.Fatalf("reply = %q, want %q", sendBody.Reply, wantReply)
	}

	// History returns the stored pair with the model tag resolved.
	histResp := doJSONRequest(t, router, http.MethodGet, "/api/chat/history", nil, authHeader)
	assertStatus(t, histResp, http.StatusOK)
	var histBody struct {
		Messages []models.Message `json:"messages"`
	}
	decodeJSON(t, histResp.Body.Bytes(), &histBody)
	if len(histBody.Messages) != 2 {
		t.Fatalf("history has %d messages, want 2", len(histBody.Messages))
	}
	if histBody.Messages[0].Role != models.RoleUser || histBody.Messages[0].Content != "hello" {
		t.Fatalf("first message = %+v", histBody.Messages[0])
	}
	if histBody.Messages[1].Role != models.RoleAssistant || histBody.Messages[1].Content != wantReply {
		t.Fatalf("second message = %+v", histBody.Messages[1])
	}
	if histBody.Messages[1].ModelTag != "echo" {
		t.Fatalf("assistant message tag = %q", histBody.Messages[1].ModelTag)
	}
}

func TestUnauthenticatedCallsRejected(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/api/models", nil},
		{http.MethodGet, "/api/chat/history", nil},
		{http.MethodPost, "/api/chat/send", map[string]any{"prompt": "hi", "model_id": 1, "model_tag": "echo"}},
	}
	for _, tc := range cases {
		rec := doJSONRequest(t, router, tc.method, tc.path, tc.body, nil)
		assertStatus(t, rec, http.StatusUnauthorized)
	}
	// A bogus bearer token is rejected the same way.
	rec := doJSONRequest(t, router, http.MethodGet, "/api/chat/history", nil,
		map[string]string{"Authorization": "Bearer bogus"})
	assertStatus(t, rec, http.StatusUnauthorized)

	if n := messageRowCount(t, db); n != 0 {
		t.Fatalf("unauthenticated calls wrote %d rows", n)
	}
}

func TestSendRejectsInvalidInput(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	authHeader := registerAndLogin(t, router, "validator")

	cases := []map[string]any{
		{"prompt": "", "model_id": 1, "model_tag": "echo"},
		{"prompt": "hi", "model_id": 0, "model_tag": "echo"},
		{"prompt": "hi", "model_id": 9999, "model_tag": "ghost"},
	}
	for i, body := range cases {
		rec := doJSONRequest(t, router, http.MethodPost, "/api/chat/send", body, authHeader)
		assertStatus(t, rec, http.StatusBadRequest)
		if n := messageRowCount(t, db); n != 0 {
			t.Fatalf("case %d: invalid send persisted %d rows", i, n)
		}
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	creds := map[string]string{"username": "carol", "password": "pass123"}
	assertStatus(t, doJSONRequest(t, router, http.MethodPost, "/api/users/register", creds, nil), http.StatusCreated)

	bad := map[string]string{"username": "carol", "password": "wrong"}
	assertStatus(t, doJSONRequest(t, router, http.MethodPost, "/api/users/login", bad, nil), http.StatusUnauthorized)
}

func TestLogoutRevokesToken(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	authHeader := registerAndLogin(t, router, "dave")

	assertStatus(t, doJSONRequest(t, router, http.MethodPost, "/api/users/logout", nil, authHeader), http.StatusNoContent)
	assertStatus(t, doJSONRequest(t, router, http.MethodGet, "/api/chat/history", nil, authHeader), http.StatusUnauthorized)
}

func TestModelsResponseShape(t *testing.T) {
	router, db := newTestServer(t)
	defer db.Close()

	authHeader := registerAndLogin(t, router, fmt.Sprintf("shape_%d", time.Now().UnixNano()))

	rec := doJSONRequest(t, router, http.MethodGet, "/api/models", nil, authHeader)
	assertStatus(t, rec, http.StatusOK)
	var body struct {
		Models []models.Model `json:"models"`
	}
	decodeJSON(t, rec.Body.Bytes(), &body)
	for _, m := range body.Models {
		if m.ID <= 0 || m.Tag == "" || m.Name == "" || m.Provider == "" {
			t.Fatalf("incomplete model row: %+v", m)
		}
	}
}
