package documents_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/fs"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"protectedvision-backend/internal/bootstrap"
	"protectedvision-backend/internal/documents"
	"protectedvision-backend/internal/shared/config"
)

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0}

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func uploadDocument(t *testing.T, router http.Handler, guestID, title string, content []byte) map[string]any {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("title", title); err != nil {
		t.Fatalf("write title: %v", err)
	}
	fileWriter, err := writer.CreateFormFile("file", "upload.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(content); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", guestID)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("upload expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return created
}

func TestDocumentsUploadGetDelete(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	created := uploadDocument(t, router, "guest-a", "tax form", pngBytes)
	docID, _ := created["documentId"].(string)
	if docID == "" {
		t.Fatalf("expected documentId in response")
	}
	if created["fileType"] != "png" {
		t.Fatalf("expected fileType png, got %v", created["fileType"])
	}
	if created["fileTypeDisplay"] != "PNG Image" {
		t.Fatalf("expected fileTypeDisplay, got %v", created["fileTypeDisplay"])
	}
	if created["processed"] != false {
		t.Fatalf("expected processed false, got %v", created["processed"])
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID, nil)
	req.Header.Set("X-Guest-Id", "guest-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get expected 200, got %d", resp.Code)
	}
	var detail map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&detail); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if detail["title"] != "tax form" {
		t.Fatalf("expected title, got %v", detail["title"])
	}

	reqDel := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID, nil)
	reqDel.Header.Set("X-Guest-Id", "guest-a")
	respDel := httptest.NewRecorder()
	router.ServeHTTP(respDel, reqDel)
	if respDel.Code != http.StatusNoContent {
		t.Fatalf("delete expected 204, got %d", respDel.Code)
	}

	reqGone := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID, nil)
	reqGone.Header.Set("X-Guest-Id", "guest-a")
	respGone := httptest.NewRecorder()
	router.ServeHTTP(respGone, reqGone)
	if respGone.Code != http.StatusNotFound {
		t.Fatalf("get after delete expected 404, got %d", respGone.Code)
	}
}

func TestDocumentsUploadRejectsUnsupportedType(t *testing.T) {
	app := newTestApp(t)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "notes.txt")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte("just some plain text")); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "guest-a")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payload.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %s", payload.Error.Code)
	}
}

func TestDocumentsUploadRejectsOversizeFile(t *testing.T) {
	gin.SetMode(gin.TestMode)

	storeDir := t.TempDir()
	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   storeDir,
		Env:             "dev",
		ObjectStoreType: "local",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	router := app.Router

	oversize := make([]byte, documents.MaxFileSizeBytes+1)
	copy(oversize, pngBytes)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	fileWriter, err := writer.CreateFormFile("file", "huge.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(oversize); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Guest-Id", "guest-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", resp.Code, resp.Body.String())
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if payload.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %s", payload.Error.Code)
	}

	// No record persisted.
	reqList := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	reqList.Header.Set("X-Guest-Id", "guest-a")
	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, reqList)
	var list []map[string]any
	if err := json.NewDecoder(respList.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no documents after rejected upload, got %d", len(list))
	}

	// And the partially written blob was cleaned up.
	var leftover []string
	err = filepath.WalkDir(storeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			leftover = append(leftover, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("walk store dir: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("expected empty object store, found %v", leftover)
	}
}

func TestDocumentsOwnershipScoping(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	created := uploadDocument(t, router, "guest-a", "private", pngBytes)
	docID := created["documentId"].(string)

	// Another user cannot see the document.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents/"+docID, nil)
	req.Header.Set("X-Guest-Id", "guest-b")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("cross-user get expected 404, got %d", resp.Code)
	}

	// But a delete attempt on someone else's document is refused, not hidden.
	reqDel := httptest.NewRequest(http.MethodDelete, "/api/v1/documents/"+docID, nil)
	reqDel.Header.Set("X-Guest-Id", "guest-b")
	respDel := httptest.NewRecorder()
	router.ServeHTTP(respDel, reqDel)
	if respDel.Code != http.StatusForbidden {
		t.Fatalf("cross-user delete expected 403, got %d", respDel.Code)
	}

	// The owner still lists exactly one document.
	reqList := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	reqList.Header.Set("X-Guest-Id", "guest-a")
	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, reqList)
	if respList.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", respList.Code)
	}
	var list []map[string]any
	if err := json.NewDecoder(respList.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 document, got %d", len(list))
	}

	reqOther := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	reqOther.Header.Set("X-Guest-Id", "guest-b")
	respOther := httptest.NewRecorder()
	router.ServeHTTP(respOther, reqOther)
	var otherList []map[string]any
	if err := json.NewDecoder(respOther.Body).Decode(&otherList); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(otherList) != 0 {
		t.Fatalf("expected empty list for other user, got %d", len(otherList))
	}
}

func TestDocumentsListFiltersAndOrdering(t *testing.T) {
	app := newTestApp(t)
	router := app.Router

	for i := 0; i < 3; i++ {
		uploadDocument(t, router, "guest-a", fmt.Sprintf("report %d", i), pngBytes)
	}
	uploadDocument(t, router, "guest-a", "vacation photo", pngBytes)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents?search=report&ordering=title", nil)
	req.Header.Set("X-Guest-Id", "guest-a")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("list expected 200, got %d", resp.Code)
	}
	var list []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(list))
	}
	if list[0]["title"] != "report 0" {
		t.Fatalf("expected ascending title order, got %v", list[0]["title"])
	}

	reqBad := httptest.NewRequest(http.MethodGet, "/api/v1/documents?ordering=size_bytes", nil)
	reqBad.Header.Set("X-Guest-Id", "guest-a")
	respBad := httptest.NewRecorder()
	router.ServeHTTP(respBad, reqBad)
	if respBad.Code != http.StatusBadRequest {
		t.Fatalf("invalid ordering expected 400, got %d", respBad.Code)
	}

	reqFT := httptest.NewRequest(http.MethodGet, "/api/v1/documents?fileType=pdf", nil)
	reqFT.Header.Set("X-Guest-Id", "guest-a")
	respFT := httptest.NewRecorder()
	router.ServeHTTP(respFT, reqFT)
	var pdfList []map[string]any
	if err := json.NewDecoder(respFT.Body).Decode(&pdfList); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(pdfList) != 0 {
		t.Fatalf("expected no pdf documents, got %d", len(pdfList))
	}
}
