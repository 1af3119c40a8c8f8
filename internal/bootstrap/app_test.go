package bootstrap

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"underwriter-backend/internal/shared/config"
	"underwriter-backend/internal/shared/server/middleware"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Env:             "dev",
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		LLMProvider:     "anthropic",
		CleanupSchedule: "@hourly",
		UploadRetention: 24 * time.Hour,
		RunQuotaPerUser: 25,
	}
}

func TestBuildWiresMemoryBackends(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if app.DB != nil {
		t.Fatalf("expected no database in dev without DATABASE_URL")
	}
	if app.Router == nil || app.UnderwritingService == nil || app.Sweeper == nil {
		t.Fatalf("incomplete app wiring: %+v", app)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}
	if resp.Header().Get(middleware.SessionHeader) == "" {
		t.Fatalf("expected a minted session ID on the response")
	}
}

func TestBuildServesUploadAndUsage(t *testing.T) {
	app, err := Build(testConfig(t))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("files", "jan.pdf")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := part.Write([]byte("%PDF-1.4 stub")); err != nil {
		t.Fatalf("write part: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.SessionHeader, "session-1")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var uploaded struct {
		FilePaths []string `json:"file_paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if len(uploaded.FilePaths) != 1 {
		t.Fatalf("expected one file path, got %v", uploaded.FilePaths)
	}

	reqUsage := httptest.NewRequest(http.MethodGet, "/usage", nil)
	reqUsage.Header.Set(middleware.SessionHeader, "session-1")
	respUsage := httptest.NewRecorder()
	app.Router.ServeHTTP(respUsage, reqUsage)

	if respUsage.Code != http.StatusOK {
		t.Fatalf("usage: expected 200, got %d", respUsage.Code)
	}
	var quota struct {
		Limit int `json:"limit"`
		Used  int `json:"used"`
	}
	if err := json.NewDecoder(respUsage.Body).Decode(&quota); err != nil {
		t.Fatalf("decode usage: %v", err)
	}
	if quota.Limit != 25 || quota.Used != 0 {
		t.Fatalf("unexpected quota %+v", quota)
	}
}

func TestClientFactoryRejectsUnknownProvider(t *testing.T) {
	factory := NewClientFactory(testConfig(t), nil)
	if _, err := factory("mystery"); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
