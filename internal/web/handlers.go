package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/stockcsv/internal/core"
	"github.com/JonMunkholm/stockcsv/internal/logging"
)

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleInspect analyzes an uploaded CSV file and returns its detected
// encoding, delimiter, header mapping, and a short row preview. No writes.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	data, _, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	previewLimit := queryInt(r, "preview_limit", 0)

	result, err := s.service.Inspect(data, previewLimit)
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, result)
}

// handleImport validates an uploaded CSV file and, unless dry_run is
// requested (the default), commits the valid rows.
//
// Query parameters:
//   - dry_run: "false" to commit; anything else validates only (default true)
//   - upsert: "false" to reject rows with explicit ids (default true)
//   - mode / on_conflict: declared intent, echoed in dry-run reports
//   - key_fields: comma-separated duplicate-detection key (default id)
//   - chunk_size, error_limit, preview_limit: per-request limit overrides
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	data, filename, ok := s.readUploadedFile(w, r)
	if !ok {
		return
	}

	dryRun := !strings.EqualFold(r.URL.Query().Get("dry_run"), "false")
	upsert := !strings.EqualFold(r.URL.Query().Get("upsert"), "false")
	keyFields := queryList(r, "key_fields")

	logger := logging.FromContext(r.Context())
	logger.Info("import request",
		"filename", filename,
		"size", len(data),
		"dry_run", dryRun,
		"upsert", upsert,
	)

	if dryRun {
		report, err := s.service.DryRun(r.Context(), data, core.DryRunOptions{
			Mode:           core.Mode(r.URL.Query().Get("mode")),
			ConflictPolicy: core.ConflictPolicy(r.URL.Query().Get("on_conflict")),
			KeyFields:      keyFields,
			PreviewLimit:   queryInt(r, "preview_limit", 0),
			ErrorLimit:     queryInt(r, "error_limit", 0),
		})
		if err != nil {
			s.respondError(w, r, err, statusFor(err))
			return
		}
		writeJSON(w, report)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	outcome, err := s.service.Import(ctx, data, core.ImportOptions{
		Upsert:     upsert,
		ChunkSize:  queryInt(r, "chunk_size", 0),
		KeyFields:  keyFields,
		ErrorLimit: queryInt(r, "error_limit", 0),
	})
	if err != nil {
		s.respondError(w, r, err, statusFor(err))
		return
	}

	writeJSON(w, outcome)
}

// handleExport streams all matching stock rows as a CSV download. Rows are
// fetched chunk by chunk so memory stays bounded for large tables.
//
// Query parameters:
//   - q: case-insensitive substring filter on name
//   - category_id: exact category filter
//   - sort: "field:direction" from the sortable allow-list
//   - chunk_size: rows per fetched chunk
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	opts := core.ExportOptions{
		Keyword:   r.URL.Query().Get("q"),
		Sort:      r.URL.Query().Get("sort"),
		ChunkSize: queryInt(r, "chunk_size", 0),
	}
	if raw := r.URL.Query().Get("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid category_id")
			return
		}
		opts.CategoryID = &id
	}

	stream := s.service.ExportStream(opts)

	// Set CSV download headers with timestamp
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("stocks_%s.csv", timestamp)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	flusher, canFlush := w.(http.Flusher)

	for {
		chunk, err := stream.Next(r.Context())
		if err == io.EOF {
			return
		}
		if err != nil {
			// Headers are already sent; all we can do is log and stop.
			logging.FromContext(r.Context()).Error("export aborted", "error", err)
			return
		}
		if _, err := w.Write(chunk); err != nil {
			return
		}
		if canFlush {
			flusher.Flush()
		}
	}
}

// readUploadedFile extracts the multipart "file" field, enforcing the
// configured size cap. On failure it writes the error response itself and
// returns ok=false.
func (s *Server) readUploadedFile(w http.ResponseWriter, r *http.Request) (data []byte, filename string, ok bool) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return nil, "", false
	}

	return data, header.Filename, true
}

// statusFor picks the HTTP status for a pipeline error: client-caused file
// problems are 400, everything else is 500.
func statusFor(err error) int {
	var decodeErr *core.DecodeError
	var headerErr *core.HeaderError
	if errors.As(err, &decodeErr) || errors.As(err, &headerErr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// queryInt parses an integer query parameter, returning def when absent or
// unparseable.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// queryList splits a comma-separated query parameter into trimmed,
// non-empty values.
func queryList(r *http.Request, name string) []string {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
