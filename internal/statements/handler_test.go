package statements_test

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"underwriter-backend/internal/shared/server/middleware"
	"underwriter-backend/internal/shared/storage/object/local"
	"underwriter-backend/internal/statements"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &statements.Service{
		Store: local.New(t.TempDir()),
		Repo:  statements.NewMemoryRepo(),
	}

	router := gin.New()
	router.Use(middleware.Session())
	statements.NewHandler(svc).RegisterRoutes(&router.RouterGroup)
	return router
}

func multipartBody(t *testing.T, fileNames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range fileNames {
		fileWriter, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fileWriter.Write([]byte("%PDF-1.4 test content")); err != nil {
			t.Fatalf("write file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestUploadReturnsFilePaths(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "january.pdf", "february.pdf")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(middleware.SessionHeader, "session-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var uploaded struct {
		FilePaths []string `json:"file_paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&uploaded); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if len(uploaded.FilePaths) != 2 {
		t.Fatalf("expected 2 file paths, got %v", uploaded.FilePaths)
	}
	for _, p := range uploaded.FilePaths {
		if p == "" {
			t.Fatalf("expected non-empty file path, got %v", uploaded.FilePaths)
		}
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "statement.docx")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(middleware.SessionHeader, "session-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestUploadRequiresFiles(t *testing.T) {
	router := newTestRouter(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set(middleware.SessionHeader, "session-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestClearUploadsRemovesSessionFiles(t *testing.T) {
	router := newTestRouter(t)

	body, contentType := multipartBody(t, "march.pdf")
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set(middleware.SessionHeader, "session-1")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", resp.Code)
	}

	// Another session's uploads must not be touched.
	otherBody, otherType := multipartBody(t, "april.pdf")
	reqOther := httptest.NewRequest(http.MethodPost, "/upload", otherBody)
	reqOther.Header.Set("Content-Type", otherType)
	reqOther.Header.Set(middleware.SessionHeader, "session-2")
	respOther := httptest.NewRecorder()
	router.ServeHTTP(respOther, reqOther)
	if respOther.Code != http.StatusOK {
		t.Fatalf("upload failed: %d", respOther.Code)
	}

	reqClear := httptest.NewRequest(http.MethodPost, "/clear-uploads", nil)
	reqClear.Header.Set(middleware.SessionHeader, "session-1")
	respClear := httptest.NewRecorder()
	router.ServeHTTP(respClear, reqClear)

	if respClear.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respClear.Code)
	}
	var cleared struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(respClear.Body).Decode(&cleared); err != nil {
		t.Fatalf("decode clear response: %v", err)
	}
	if cleared.Deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", cleared.Deleted)
	}

	reqList := httptest.NewRequest(http.MethodGet, "/uploads", nil)
	reqList.Header.Set(middleware.SessionHeader, "session-2")
	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, reqList)

	var remaining []struct {
		FileName string `json:"fileName"`
	}
	if err := json.NewDecoder(respList.Body).Decode(&remaining); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(remaining) != 1 || remaining[0].FileName != "april.pdf" {
		t.Fatalf("expected session-2 upload to survive, got %v", remaining)
	}
}
