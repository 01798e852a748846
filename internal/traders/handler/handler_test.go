package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"smartapp/internal/config"
	"smartapp/internal/middleware"
	"smartapp/internal/store"
	"smartapp/internal/traders/service"
)

type noopIndex struct{}

func (noopIndex) Invalidate(string) {}

type noopVisits struct{}

func (noopVisits) Purge(context.Context) error { return nil }

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	db, err := store.Open("sqlite", filepath.Join(t.TempDir(), "traders.db"), zerolog.Nop())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	svc := service.New(store.NewDatasetRepo(db), noopIndex{}, noopVisits{}, zerolog.Nop())
	cfg := config.Config{MaxUploadMB: 8}
	log := zerolog.Nop()

	r := chi.NewRouter()
	r.Use(middleware.Identity())
	r.Post("/traders/primary/import", ImportPrimary(cfg, svc, log))
	r.Get("/traders/primary", ViewPrimary(svc, log))
	r.Get("/traders/primary/export", ExportPrimary(svc, log))
	r.Post("/traders/frequent/import", ImportFrequent(cfg, svc, log))
	r.Get("/traders/frequent/periods", Periods(svc, log))
	r.Get("/traders/frequent", ViewFrequent(svc, log))
	r.Get("/traders/frequent/{label}", ViewFrequent(svc, log))
	r.Post("/traders/frequent/recent", AddRecent(svc, log))
	r.Get("/traders/frequent/recent/count", RecentCount(svc, log))
	r.Delete("/traders/frequent/recent/{order}", DeleteRecent(svc, log))
	r.Post("/api/recent_program/reset", ResetRecent(svc, log))
	return r
}

func do(t *testing.T, h http.Handler, req *http.Request) (int, map[string]any) {
	t.Helper()
	req.Header.Set(middleware.HeaderUserID, "1")
	req.Header.Set(middleware.HeaderUserName, "admin")
	req.Header.Set(middleware.HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %s: %v", rec.Body, err)
		}
	}
	return rec.Code, out
}

func upload(t *testing.T, target string, fields, files map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	for field, content := range files {
		fw, err := mw.CreateFormFile(field, field+".csv")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		_, _ = fw.Write([]byte(content))
	}
	_ = mw.Close()
	return withType(httptest.NewRequest(http.MethodPost, target, &buf), mw.FormDataContentType())
}

func withType(r *http.Request, ct string) *http.Request {
	r.Header.Set("Content-Type", ct)
	return r
}

func TestPrimaryImportAndView(t *testing.T) {
	h := newRouter(t)

	code, out := do(t, h, upload(t, "/traders/primary/import", nil, map[string]string{"file": "رقم العميل,اسم العميل\n5,محمد\n"}))
	if code != http.StatusOK || out["rows"] != float64(1) {
		t.Fatalf("import status=%d body=%v", code, out)
	}
	code, out = do(t, h, httptest.NewRequest(http.MethodGet, "/traders/primary", nil))
	if code != http.StatusOK || out["total"] != float64(1) || out["has_data"] != true {
		t.Fatalf("view status=%d body=%v", code, out)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/traders/primary/export", nil)
	req.Header.Set(middleware.HeaderUserID, "1")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "filename*=UTF-8''") {
		t.Fatalf("export status=%d headers=%v", rec.Code, rec.Header())
	}

	code, _ = do(t, h, upload(t, "/traders/primary/import", nil, nil))
	if code != http.StatusBadRequest {
		t.Fatalf("missing file status=%d", code)
	}
}

func TestFrequentLabelsWithSlash(t *testing.T) {
	h := newRouter(t)

	req := upload(t, "/traders/frequent/import", map[string]string{"label": "2024/05"}, map[string]string{"file1": "مسلسل,التاريخ\nS1,2024-05-01\n"})
	code, out := do(t, h, req)
	if code != http.StatusOK || out["label"] != "2024/05" {
		t.Fatalf("import status=%d body=%v", code, out)
	}

	code, out = do(t, h, httptest.NewRequest(http.MethodGet, "/traders/frequent/periods", nil))
	if code != http.StatusOK || len(out["periods"].([]any)) != 1 {
		t.Fatalf("periods status=%d body=%v", code, out)
	}

	code, out = do(t, h, httptest.NewRequest(http.MethodGet, "/traders/frequent?label=2024%2F05", nil))
	if code != http.StatusOK || out["total"] != float64(1) || out["label"] != "2024/05" {
		t.Fatalf("view status=%d body=%v", code, out)
	}

	code, _ = do(t, h, upload(t, "/traders/frequent/import", map[string]string{"label": "مايو"}, map[string]string{"file1": "a\n1\n"}))
	if code != http.StatusBadRequest {
		t.Fatalf("bad label status=%d", code)
	}
}

func TestRecentLifecycle(t *testing.T) {
	h := newRouter(t)

	body := `{"serial":"S1","order_number":"77","fault_types":["ريدر"]}`
	code, out := do(t, h, withType(httptest.NewRequest(http.MethodPost, "/traders/frequent/recent", strings.NewReader(body)), "application/json"))
	if code != http.StatusOK {
		t.Fatalf("add status=%d body=%v", code, out)
	}
	code, out = do(t, h, httptest.NewRequest(http.MethodPost, "/traders/frequent/recent", strings.NewReader(`{"serial":"S1"}`)))
	if code != http.StatusBadRequest || out["message"] == "" {
		t.Fatalf("invalid add status=%d body=%v", code, out)
	}

	code, out = do(t, h, httptest.NewRequest(http.MethodGet, "/traders/frequent/recent/count?serial=s1", nil))
	if code != http.StatusOK || out["total"] != float64(1) {
		t.Fatalf("count status=%d body=%v", code, out)
	}

	code, out = do(t, h, httptest.NewRequest(http.MethodGet, "/traders/frequent", nil))
	if code != http.StatusOK || out["total"] != float64(1) {
		t.Fatalf("recent view status=%d body=%v", code, out)
	}

	code, out = do(t, h, httptest.NewRequest(http.MethodDelete, "/traders/frequent/recent/77", nil))
	if code != http.StatusOK || out["removed"] != float64(1) {
		t.Fatalf("delete status=%d body=%v", code, out)
	}
	code, _ = do(t, h, httptest.NewRequest(http.MethodDelete, "/traders/frequent/recent/77", nil))
	if code != http.StatusNotFound {
		t.Fatalf("second delete status=%d", code)
	}

	code, _ = do(t, h, httptest.NewRequest(http.MethodPost, "/api/recent_program/reset", nil))
	if code != http.StatusOK {
		t.Fatalf("reset status=%d", code)
	}
}
