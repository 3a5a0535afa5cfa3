package core

import (
	"context"
	"errors"
	"testing"
)

func TestServiceImport_Commit(t *testing.T) {
	st := newFakeStore()
	st.existing = map[int64]struct{}{7: {}}
	svc := NewService(st, nil)

	raw := []byte("id,name,inventory\n7,Widget,5\n,Gadget,3\n")
	outcome, err := svc.Import(context.Background(), raw, ImportOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if outcome.ImportID == "" {
		t.Error("ImportID not set")
	}
	if !outcome.Upsert {
		t.Error("Upsert not echoed")
	}
	if outcome.TotalRows != 2 || outcome.ValidRows != 2 || outcome.InvalidRows != 0 {
		t.Errorf("rows = %d/%d/%d, want 2 total, 2 valid, 0 invalid",
			outcome.TotalRows, outcome.ValidRows, outcome.InvalidRows)
	}
	if outcome.Created != 1 || outcome.Updated != 1 {
		t.Errorf("created/updated = %d/%d, want 1/1", outcome.Created, outcome.Updated)
	}
	if len(outcome.Errors) != 0 || len(outcome.BatchErrors) != 0 {
		t.Errorf("errors = %v / %v, want none", outcome.Errors, outcome.BatchErrors)
	}
}

func TestServiceImport_InvalidRowsNotCommitted(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, nil)

	raw := []byte("name,inventory\nWidget,5\n,10\nGadget,-3\n")
	outcome, err := svc.Import(context.Background(), raw, ImportOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if outcome.Created != 1 {
		t.Errorf("Created = %d, want 1 (only the valid row)", outcome.Created)
	}
	if outcome.ValidRows != 1 || outcome.InvalidRows != 2 {
		t.Errorf("valid/invalid = %d/%d, want 1/2", outcome.ValidRows, outcome.InvalidRows)
	}
	if len(st.batches) != 1 || len(st.batches[0]) != 1 {
		t.Errorf("committed ops = %v, want a single create", st.batches)
	}
}

func TestServiceImport_DuplicateRowNotCommitted(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, nil)

	raw := []byte("id,name,inventory\n7,Widget,5\n7,Doodad,2\n")
	outcome, err := svc.Import(context.Background(), raw, ImportOptions{Upsert: true})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if outcome.Created != 1 {
		t.Errorf("Created = %d, want 1 (duplicate row skipped)", outcome.Created)
	}
	dupFound := false
	for _, e := range outcome.Errors {
		if e.Code == CodeKeyDuplicate {
			dupFound = true
		}
	}
	if !dupFound {
		t.Errorf("Errors = %v, want a %s entry", outcome.Errors, CodeKeyDuplicate)
	}
}

func TestServiceImport_MissingHeaderFatal(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.Import(context.Background(), []byte("price\n100\n"), ImportOptions{})
	if err == nil {
		t.Fatal("Import() expected header error")
	}
	var headerErr *HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("error type = %T, want *HeaderError", err)
	}
	if len(headerErr.Missing) != 2 {
		t.Errorf("Missing = %v, want name and inventory", headerErr.Missing)
	}
}

func TestServiceImport_EmptyFileFatal(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.Import(context.Background(), nil, ImportOptions{})
	var headerErr *HeaderError
	if !errors.As(err, &headerErr) {
		t.Fatalf("error = %v, want *HeaderError", err)
	}
}

func TestServiceImport_UndecodableFatal(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	_, err := svc.Import(context.Background(), []byte{0xFF, 0xFF}, ImportOptions{})
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DecodeError", err)
	}
}

func TestServiceImport_IDWithoutUpsert(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, nil)

	raw := []byte("id,name,inventory\n7,Widget,5\n,Gadget,3\n")
	outcome, err := svc.Import(context.Background(), raw, ImportOptions{Upsert: false})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	if outcome.Created != 1 {
		t.Errorf("Created = %d, want 1", outcome.Created)
	}
	if outcome.ValidRows != 1 || outcome.InvalidRows != 1 {
		t.Errorf("valid/invalid = %d/%d, want 1/1", outcome.ValidRows, outcome.InvalidRows)
	}
	found := false
	for _, e := range outcome.Errors {
		if e.Code == CodeIDWithoutUpsert && e.Row == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("Errors = %v, want row 2 %s", outcome.Errors, CodeIDWithoutUpsert)
	}
}

func TestServiceDryRun_LoadsCategories(t *testing.T) {
	st := newFakeStore()
	svc := NewService(st, nil)

	raw := []byte("name,inventory,category_id\nWidget,5,2\nGadget,3,99\n")
	report, err := svc.DryRun(context.Background(), raw, DryRunOptions{})
	if err != nil {
		t.Fatalf("DryRun() error = %v", err)
	}

	if report.ValidRows != 1 || report.InvalidRows != 1 {
		t.Errorf("valid/invalid = %d/%d, want 1/1", report.ValidRows, report.InvalidRows)
	}
	if e := report.Errors[0]; e.Code != CodeUnknownCategory {
		t.Errorf("error = %+v, want %s", e, CodeUnknownCategory)
	}
}

func TestServiceInspect(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	res, err := svc.Inspect([]byte("name,inventory\nWidget,5\n"), 0)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if len(res.PreviewRows) != 1 {
		t.Errorf("PreviewRows = %d, want 1", len(res.PreviewRows))
	}
}

func TestServiceExportStream_DefaultChunkSize(t *testing.T) {
	st := newFakeStore()
	st.stocks = exportFixture()
	svc := NewService(st, nil)

	stream := svc.ExportStream(ExportOptions{})
	drainStream(t, stream)

	if len(st.listCalls) == 0 || st.listCalls[0].Limit != DefaultExportChunkSize {
		t.Errorf("Limit = %v, want default %d", st.listCalls, DefaultExportChunkSize)
	}
}
