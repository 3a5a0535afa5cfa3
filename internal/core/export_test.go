package core

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"testing"
	"time"
)

func exportFixture() []Stock {
	cat := int64(1)
	price := 19.99
	ts := time.Date(2025, 11, 10, 10, 30, 0, 0, time.UTC)
	return []Stock{
		{ID: 1, Name: "Widget", Inventory: 5, CategoryID: &cat, Price: &price, Description: "first", CreatedAt: ts, UpdatedAt: ts},
		{ID: 2, Name: "Gadget", Inventory: 3},
		{ID: 3, Name: "Doodad", Inventory: 0},
	}
}

func drainStream(t *testing.T, stream *ExportStream) ([]byte, int) {
	t.Helper()
	var out bytes.Buffer
	chunks := 0
	for {
		chunk, err := stream.Next(context.Background())
		if err == io.EOF {
			return out.Bytes(), chunks
		}
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		chunks++
		out.Write(chunk)
	}
}

func TestExportStream(t *testing.T) {
	st := newFakeStore()
	st.stocks = exportFixture()

	stream := NewExportStream(st, ExportOptions{ChunkSize: 2})
	data, chunks := drainStream(t, stream)

	// Header chunk + 2 rows + 1 row.
	if chunks != 3 {
		t.Errorf("chunks = %d, want 3", chunks)
	}

	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("concatenated chunks are not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("records = %d, want header + 3 rows", len(records))
	}

	if got := records[0]; got[0] != "id" || got[7] != "updated_at" {
		t.Errorf("header = %v", records[0])
	}

	first := records[1]
	want := []string{"1", "Widget", "5", "1", "19.99", "first", "2025-11-10T10:30:00", "2025-11-10T10:30:00"}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("row[%d] = %q, want %q", i, first[i], want[i])
		}
	}

	// Missing optionals and zero timestamps render empty.
	second := records[2]
	for _, i := range []int{3, 4, 5, 6, 7} {
		if second[i] != "" {
			t.Errorf("row 2 col %d = %q, want empty", i, second[i])
		}
	}
}

func TestExportStream_ChunkLargerThanTable(t *testing.T) {
	st := newFakeStore()
	st.stocks = exportFixture()

	stream := NewExportStream(st, ExportOptions{ChunkSize: 100})
	data, chunks := drainStream(t, stream)

	// One header chunk, one data chunk holding every row.
	if chunks != 2 {
		t.Errorf("chunks = %d, want 2", chunks)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 4 {
		t.Fatalf("records = %v (err %v), want header + 3 rows", records, err)
	}
}

func TestExportStream_EmptyTable(t *testing.T) {
	st := newFakeStore()

	stream := NewExportStream(st, ExportOptions{})
	data, chunks := drainStream(t, stream)

	if chunks != 1 {
		t.Errorf("chunks = %d, want header only", chunks)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil || len(records) != 1 {
		t.Fatalf("records = %v (err %v), want lone header", records, err)
	}
}

func TestExportStream_OffsetAdvances(t *testing.T) {
	st := newFakeStore()
	st.stocks = exportFixture()

	stream := NewExportStream(st, ExportOptions{ChunkSize: 2})
	drainStream(t, stream)

	if len(st.listCalls) < 2 {
		t.Fatalf("ListStocks calls = %d, want at least 2", len(st.listCalls))
	}
	if st.listCalls[0].Offset != 0 || st.listCalls[1].Offset != 2 {
		t.Errorf("offsets = %d, %d, want 0, 2", st.listCalls[0].Offset, st.listCalls[1].Offset)
	}
	for _, q := range st.listCalls {
		if q.Limit != 2 {
			t.Errorf("Limit = %d, want 2", q.Limit)
		}
	}
}

func TestExportStream_StoreErrorEndsStream(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("connection reset")

	stream := NewExportStream(st, ExportOptions{})

	// Header chunk is produced without touching storage.
	if _, err := stream.Next(context.Background()); err != nil {
		t.Fatalf("header chunk error = %v", err)
	}
	if _, err := stream.Next(context.Background()); err == nil {
		t.Fatal("Next() expected storage error")
	}
	// The stream stays terminated.
	if _, err := stream.Next(context.Background()); err != io.EOF {
		t.Errorf("Next() after failure = %v, want io.EOF", err)
	}
}

func TestParseSortSpec(t *testing.T) {
	tests := []struct {
		in   string
		want SortSpec
	}{
		{"name:desc", SortSpec{Field: "name", Desc: true}},
		{"price:asc", SortSpec{Field: "price"}},
		{"created_at:DESC", SortSpec{Field: "created_at", Desc: true}},
		{"id", SortSpec{Field: "id"}},
		{"", SortSpec{Field: "id"}},
		// Outside the allow-list: silently falls back to id ascending.
		{"description:desc", SortSpec{Field: "id"}},
		{"password;drop table:desc", SortSpec{Field: "id"}},
	}

	for _, tt := range tests {
		if got := ParseSortSpec(tt.in); got != tt.want {
			t.Errorf("ParseSortSpec(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}
