package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/stockcsv/internal/config"
	"github.com/JonMunkholm/stockcsv/internal/core"
)

type stubStore struct {
	categories map[int64]struct{}
	stocks     []core.Stock
	batches    int
}

func (s *stubStore) CategoryIDs(ctx context.Context) (map[int64]struct{}, error) {
	return s.categories, nil
}

func (s *stubStore) ExistingStockIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	return map[int64]struct{}{}, nil
}

func (s *stubStore) ListStocks(ctx context.Context, q core.StockQuery) ([]core.Stock, error) {
	if q.Offset >= len(s.stocks) {
		return nil, nil
	}
	end := q.Offset + q.Limit
	if end > len(s.stocks) {
		end = len(s.stocks)
	}
	return s.stocks[q.Offset:end], nil
}

func (s *stubStore) ApplyBatch(ctx context.Context, ops []core.StockOp) (int, int, error) {
	s.batches++
	created, updated := 0, 0
	for _, op := range ops {
		if op.Kind == core.OpUpdate {
			updated++
		} else {
			created++
		}
	}
	return created, updated, nil
}

func testServer(st *stubStore) *Server {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Import.MaxFileSize = 1 << 20
	cfg.Import.Timeout = 30 * time.Second
	cfg.Rate.Enabled = false
	return NewServer(core.NewService(st, cfg), cfg)
}

func multipartFile(t *testing.T, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", "stocks.csv")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	w.Close()
	return &body, w.FormDataContentType()
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestHandleInspect(t *testing.T) {
	srv := testServer(&stubStore{})

	body, contentType := multipartFile(t, "상품명,수량\n사과,10\n")
	req := httptest.NewRequest(http.MethodPost, "/api/stocks/inspect", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var res core.InspectionResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(res.HeadersNormalized) != 2 || res.HeadersNormalized[0] != core.FieldName {
		t.Errorf("HeadersNormalized = %v", res.HeadersNormalized)
	}
}

func TestHandleInspect_NoFile(t *testing.T) {
	srv := testServer(&stubStore{})

	req := httptest.NewRequest(http.MethodPost, "/api/stocks/inspect", strings.NewReader("not a form"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleImport_DryRunByDefault(t *testing.T) {
	st := &stubStore{categories: map[int64]struct{}{1: {}}}
	srv := testServer(st)

	body, contentType := multipartFile(t, "name,inventory\nWidget,5\n")
	req := httptest.NewRequest(http.MethodPost, "/api/stocks/import", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var report core.DryRunReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if !report.DryRun {
		t.Error("dry_run not set in default import response")
	}
	if st.batches != 0 {
		t.Errorf("ApplyBatch calls = %d, dry run must not write", st.batches)
	}
}

func TestHandleImport_Commit(t *testing.T) {
	st := &stubStore{categories: map[int64]struct{}{1: {}}}
	srv := testServer(st)

	body, contentType := multipartFile(t, "name,inventory\nWidget,5\n")
	req := httptest.NewRequest(http.MethodPost, "/api/stocks/import?dry_run=false", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var outcome core.ReconcileOutcome
	if err := json.Unmarshal(rec.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if outcome.Created != 1 {
		t.Errorf("created = %d, want 1", outcome.Created)
	}
	if st.batches != 1 {
		t.Errorf("ApplyBatch calls = %d, want 1", st.batches)
	}
}

func TestHandleImport_MissingColumns(t *testing.T) {
	st := &stubStore{categories: map[int64]struct{}{}}
	srv := testServer(st)

	body, contentType := multipartFile(t, "price\n100\n")
	req := httptest.NewRequest(http.MethodPost, "/api/stocks/import?dry_run=false", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp.Code != "FILE002" {
		t.Errorf("code = %q, want FILE002", resp.Code)
	}
}

func TestHandleExport(t *testing.T) {
	cat := int64(1)
	st := &stubStore{stocks: []core.Stock{
		{ID: 1, Name: "Widget", Inventory: 5, CategoryID: &cat},
		{ID: 2, Name: "Gadget", Inventory: 3},
	}}
	srv := testServer(st)

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/export.csv?sort=name:desc", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Content-Type = %q, want text/csv", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "stocks_") {
		t.Errorf("Content-Disposition = %q", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want header + 2 rows: %q", len(lines), rec.Body.String())
	}
	if !strings.HasPrefix(lines[0], "id,name,inventory") {
		t.Errorf("header line = %q", lines[0])
	}
}

func TestHandleExport_InvalidCategoryID(t *testing.T) {
	srv := testServer(&stubStore{})

	req := httptest.NewRequest(http.MethodGet, "/api/stocks/export.csv?category_id=abc", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
