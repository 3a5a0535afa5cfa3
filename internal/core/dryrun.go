package core

// dryrun.go orchestrates the full import pipeline over one file in a single
// pass that never issues a write. Decode failure is the only fatal error;
// everything else, including missing required headers, is accumulated into
// the report. The report is built atomically at the end of the pass.

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// DryRunOptions tunes a validation pass. Mode and ConflictPolicy are
// declared intent only: they are echoed in the report, never acted on.
type DryRunOptions struct {
	Mode           Mode
	ConflictPolicy ConflictPolicy

	// KeyFields overrides the composite key used for in-file duplicate
	// detection; empty means the identifier field alone.
	KeyFields []string

	// PreviewLimit and ErrorLimit cap the preview rows and accumulated
	// errors; <=0 selects the defaults.
	PreviewLimit int
	ErrorLimit   int

	// Aliases overrides the header alias table; nil means
	// DefaultHeaderAliases.
	Aliases map[string]string
}

// DryRun validates the uploaded bytes against the reference sets and
// returns a structured report. Storage is never consulted: the predicted
// create/update counts stay null and refs must be loaded by the caller
// beforehand. Scanning halts early once the error cap is reached; rows
// beyond that point are neither validated nor counted.
func DryRun(raw []byte, opts DryRunOptions, refs ReferenceSets) (*DryRunReport, error) {
	text, encodingUsed, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	delimiter := SniffDelimiter(text)

	mode := opts.Mode
	if mode == "" {
		mode = ModeUpsert
	}
	policy := opts.ConflictPolicy
	if policy == "" {
		policy = ConflictOverwrite
	}
	previewLimit := opts.PreviewLimit
	if previewLimit <= 0 {
		previewLimit = DefaultPreviewLimit
	}
	errorLimit := opts.ErrorLimit
	if errorLimit <= 0 {
		errorLimit = DefaultErrorLimit
	}

	report := &DryRunReport{
		DryRun:            true,
		Encoding:          encodingUsed,
		Delimiter:         string(delimiter),
		HeadersOriginal:   []string{},
		HeadersNormalized: []string{},
		HeaderMap:         HeaderMap{},
		Mode:              mode,
		ConflictPolicy:    policy,
		PreviewRows:       []map[string]string{},
		Errors:            []RowError{},
	}

	r := newCSVReader(text, delimiter)
	headers, err := r.Read()
	if err != nil {
		// No header row at all: report every required field missing.
		for _, f := range requiredImportFields(opts.KeyFields) {
			report.Errors = append(report.Errors, RowError{0, f, CodeHeaderMissing, "required column missing"})
		}
		report.ErrorCount = len(report.Errors)
		finishReport(report)
		return report, nil
	}

	hm := NormalizeHeaders(headers, opts.Aliases)
	report.HeadersOriginal = headers
	report.HeadersNormalized = hm.Normalized(headers)
	report.HeaderMap = hm

	// Header-level problems are row-0 errors and do not stop row scanning.
	for _, f := range missingRequired(report.HeadersNormalized, opts.KeyFields) {
		report.Errors = append(report.Errors, RowError{0, f, CodeHeaderMissing, "required column missing"})
	}

	tracker := newKeyTracker(opts.KeyFields)
	explicitKey := len(opts.KeyFields) > 0

	rowNum := 1 // header row
	for {
		if len(report.Errors) >= errorLimit {
			report.ErrorLimitHit = true
			break
		}

		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowNum++
			report.TotalRows++
			report.InvalidRows++
			report.Errors = append(report.Errors, RowError{rowNum, "", "", fmt.Sprintf("malformed row: %v", err)})
			continue
		}
		rowNum++
		report.TotalRows++

		row := normalizeRow(rec, headers, hm)
		before := len(report.Errors)

		if _, rowErrs := ValidateRow(row, rowNum, refs); rowErrs != nil {
			report.Errors = append(report.Errors, rowErrs...)
		}

		switch status, first := tracker.check(row, rowNum); status {
		case keyDuplicate:
			report.Errors = append(report.Errors, RowError{rowNum, tracker.label(), CodeKeyDuplicate,
				fmt.Sprintf("duplicate key (first seen at row %d)", first)})
		case keyIncomplete:
			// The default identifier-only key is optional; an empty id just
			// means an insert row. Only caller-chosen keys must be complete.
			if explicitKey {
				report.Errors = append(report.Errors, RowError{rowNum, tracker.label(), CodeKeyIncomplete,
					"key field is empty"})
			}
		}

		if len(report.Errors) > before {
			report.InvalidRows++
		} else {
			report.ValidRows++
		}
		if len(report.PreviewRows) < previewLimit {
			report.PreviewRows = append(report.PreviewRows, row)
		}
	}

	report.ErrorCount = len(report.Errors)
	finishReport(report)
	return report, nil
}

// finishReport attaches the downloadable errors-CSV artifact when any
// errors exist. It is simply a second serialization of the same error list.
func finishReport(report *DryRunReport) {
	if len(report.Errors) == 0 {
		return
	}
	name, b64 := errorsCSVArtifact(report.Errors, time.Now().UTC())
	report.ErrorsCSVFilename = name
	report.ErrorsCSVB64 = b64
}

// errorsCSVArtifact serializes the error list as a CSV with the fixed
// header row,field,message and returns a timestamped filename plus the
// base64-encoded bytes.
func errorsCSVArtifact(errs []RowError, now time.Time) (filename, b64 string) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"row", "field", "message"})
	for _, e := range errs {
		_ = w.Write([]string{strconv.Itoa(e.Row), e.Field, e.Message})
	}
	w.Flush()

	filename = "stocks_import_errors_" + now.Format("20060102_150405") + ".csv"
	return filename, base64.StdEncoding.EncodeToString(buf.Bytes())
}
