package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"resume-review-server/models"
	"resume-review-server/storage"
)

// fakeObjectStore stands in for the external store: uploads, signing and
// deletes all succeed, and upload traffic is counted.
type fakeObjectStore struct {
	uploads int64
	deletes int64
}

func (f *fakeObjectStore) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/object/sign/"):
			json.NewEncoder(w).Encode(map[string]string{
				"signedURL": r.URL.Path + "?token=signed",
			})
		case r.Method == http.MethodPost:
			atomic.AddInt64(&f.uploads, 1)
			json.NewEncoder(w).Encode(map[string]string{"Key": r.URL.Path})
		case r.Method == http.MethodDelete:
			atomic.AddInt64(&f.deletes, 1)
			json.NewEncoder(w).Encode(map[string]string{"message": "deleted"})
		default:
			http.NotFound(w, r)
		}
	})
}

func startFakeStore(t *testing.T) *fakeObjectStore {
	t.Helper()
	store := &fakeObjectStore{}
	srv := httptest.NewServer(store.handler())
	t.Cleanup(srv.Close)
	t.Setenv("STORAGE_ENDPOINT", srv.URL)
	t.Setenv("STORAGE_SERVICE_KEY", "test-service-key")
	return store
}

func multipartUpload(t *testing.T, fieldContentType string, size int) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="resume.pdf"`)
	h.Set("Content-Type", fieldContentType)
	part, err := w.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(bytes.Repeat([]byte("a"), size))
	w.Close()
	return &buf, w.FormDataContentType()
}

func postUpload(app http.Handler, token string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	return resp
}

func countSubmissions(t *testing.T) int64 {
	t.Helper()
	var n int64
	storage.DB.Model(&models.Submission{}).Count(&n)
	return n
}

func TestCreateSubmissionRequiresFile(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	w.WriteField("comment", "no file here")
	w.Close()

	resp := postUpload(app, token, &buf, w.FormDataContentType())
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["error"] != "file_required" {
		t.Fatalf("expected file_required, got %v", body["error"])
	}
	if countSubmissions(t) != 0 || store.uploads != 0 {
		t.Fatalf("nothing should be created: rows=%d uploads=%d", countSubmissions(t), store.uploads)
	}
}

func TestCreateSubmissionRejectsNonPDF(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	buf, contentType := multipartUpload(t, "image/png", 1024)
	resp := postUpload(app, token, buf, contentType)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["error"] != "invalid_type" {
		t.Fatalf("expected invalid_type, got %v", body["error"])
	}
	if countSubmissions(t) != 0 || store.uploads != 0 {
		t.Fatalf("nothing should be created: rows=%d uploads=%d", countSubmissions(t), store.uploads)
	}
}

func TestCreateSubmissionRejectsOversized(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	buf, contentType := multipartUpload(t, "application/pdf", maxUploadBytes+1)
	resp := postUpload(app, token, buf, contentType)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["error"] != "file_too_large" {
		t.Fatalf("expected file_too_large, got %v", body["error"])
	}
	if countSubmissions(t) != 0 || store.uploads != 0 {
		t.Fatalf("nothing should be created: rows=%d uploads=%d", countSubmissions(t), store.uploads)
	}
}

func TestCreateSubmissionRejectsOversizedBeyondBodyCap(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	// Well past the request body cap, so multipart parsing itself fails.
	buf, contentType := multipartUpload(t, "application/pdf", 12<<20)
	resp := postUpload(app, token, buf, contentType)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(resp.Body.Bytes(), &body)
	if body["error"] != "file_too_large" {
		t.Fatalf("expected file_too_large, got %v", body["error"])
	}
	if countSubmissions(t) != 0 || store.uploads != 0 {
		t.Fatalf("nothing should be created: rows=%d uploads=%d", countSubmissions(t), store.uploads)
	}
}

func TestListOwnNewestFirst(t *testing.T) {
	setupTestDB(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var newest string
	for i := 0; i < 3; i++ {
		s := models.Submission{
			ProfileID:    owner.ID,
			OriginalName: "resume.pdf",
			FileURL:      "https://store.example/signed",
			ObjectKey:    "resumes/" + owner.ID + "/key.pdf",
			MimeType:     "application/pdf",
			SizeBytes:    1024,
			Status:       models.StatusPending,
			CreatedAt:    base.Add(time.Duration(i) * time.Hour),
		}
		if err := storage.DB.Create(&s).Error; err != nil {
			t.Fatalf("seed: %v", err)
		}
		newest = s.ID
	}

	resp := doJSON(app, http.MethodGet, "/api/submissions", token, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var listing struct {
		Submissions []submissionListItem `json:"submissions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(listing.Submissions) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(listing.Submissions))
	}
	if listing.Submissions[0].ID != newest {
		t.Fatalf("expected newest row first, got %q", listing.Submissions[0].ID)
	}
	for i := 1; i < len(listing.Submissions); i++ {
		if listing.Submissions[i].CreatedAt.After(listing.Submissions[i-1].CreatedAt) {
			t.Fatalf("listing not newest-first at index %d", i)
		}
	}
}

func TestCreateSubmissionAndListOwn(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	other := seedProfile(t, "33333333-3333-3333-3333-333333333333", "other@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	buf, contentType := multipartUpload(t, "application/pdf", 2048)
	resp := postUpload(app, token, buf, contentType)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("expected an id in response, got %s", resp.Body.String())
	}
	if store.uploads != 1 {
		t.Fatalf("expected exactly one upload, got %d", store.uploads)
	}

	var row models.Submission
	if err := storage.DB.First(&row, "id = ?", created.ID).Error; err != nil {
		t.Fatalf("row not found: %v", err)
	}
	if row.Status != models.StatusPending {
		t.Fatalf("new rows must be pending, got %q", row.Status)
	}
	if row.Score != nil || row.AdminNotes != nil {
		t.Fatalf("score/notes must start null, got %v / %v", row.Score, row.AdminNotes)
	}
	if row.ProfileID != owner.ID {
		t.Fatalf("owner mismatch: %q", row.ProfileID)
	}
	if !strings.Contains(row.FileURL, "?token=signed") {
		t.Fatalf("expected a signed URL, got %q", row.FileURL)
	}
	if !strings.HasPrefix(row.ObjectKey, "resumes/"+owner.ID+"/") {
		t.Fatalf("object key not scoped to owner: %q", row.ObjectKey)
	}

	// Another user's submission must not leak into the owner's listing.
	seedSubmission(t, other.ID)

	listResp := doJSON(app, http.MethodGet, "/api/submissions", token, nil)
	if listResp.Code != http.StatusOK {
		t.Fatalf("expected 200 listing, got %d", listResp.Code)
	}
	var listing struct {
		Submissions []submissionListItem `json:"submissions"`
	}
	if err := json.Unmarshal(listResp.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if len(listing.Submissions) != 1 {
		t.Fatalf("expected only own submission, got %d", len(listing.Submissions))
	}
	if listing.Submissions[0].ID != created.ID {
		t.Fatalf("expected created id %q in listing, got %q", created.ID, listing.Submissions[0].ID)
	}
}

func TestCreateSubmissionCompensatesFailedInsert(t *testing.T) {
	setupTestDB(t)
	store := startFakeStore(t)
	app := buildTestApp(t)
	owner := seedProfile(t, "11111111-1111-1111-1111-111111111111", "owner@example.com", models.RoleUser)
	token := signTestToken(owner.ID, "user")

	// Force the row insert to fail after a successful upload.
	if err := storage.DB.Migrator().DropTable(&models.Submission{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	buf, contentType := multipartUpload(t, "application/pdf", 1024)
	resp := postUpload(app, token, buf, contentType)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on failed insert, got %d", resp.Code)
	}
	if store.uploads != 1 {
		t.Fatalf("expected the upload to have happened, got %d", store.uploads)
	}
	if store.deletes != 1 {
		t.Fatalf("expected the orphaned object to be deleted, got %d deletes", store.deletes)
	}
}

func TestCreateSubmissionUnauthenticated(t *testing.T) {
	setupTestDB(t)
	startFakeStore(t)
	app := buildTestApp(t)

	buf, contentType := multipartUpload(t, "application/pdf", 1024)
	req := httptest.NewRequest(http.MethodPost, "/api/submissions", buf)
	req.Header.Set("Content-Type", contentType)
	resp := httptest.NewRecorder()
	app.ServeHTTP(resp, req)
	if resp.Code == http.StatusOK {
		t.Fatalf("expected non-200 without a session, got %d", resp.Code)
	}
	if countSubmissions(t) != 0 {
		t.Fatalf("no row should exist, got %d", countSubmissions(t))
	}
}
