package core

// inspect.go analyzes an uploaded CSV byte stream without touching storage:
// encoding detection, delimiter sniffing, header normalization, and a
// bounded preview of normalized rows. The result is owned by the caller and
// never cached across calls; every upload is inspected independently.

import (
	"encoding/csv"
	"strings"
)

// InspectOptions tunes a single inspection pass.
type InspectOptions struct {
	// Aliases overrides the header alias table; nil means
	// DefaultHeaderAliases.
	Aliases map[string]string

	// PreviewLimit caps the number of preview rows; <=0 means
	// DefaultPreviewLimit.
	PreviewLimit int
}

// Inspect decodes, sniffs, and normalizes the file and returns a read-only
// description of it. A file without a header row yields a result with empty
// headers rather than an error; only an undecodable file fails.
func Inspect(raw []byte, opts InspectOptions) (*InspectionResult, error) {
	text, encodingUsed, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	delimiter := SniffDelimiter(text)

	res := &InspectionResult{
		Encoding:          encodingUsed,
		Delimiter:         string(delimiter),
		HeadersOriginal:   []string{},
		HeadersNormalized: []string{},
		HeaderMap:         HeaderMap{},
		PreviewRows:       []map[string]string{},
	}

	r := newCSVReader(text, delimiter)
	headers, err := r.Read()
	if err != nil {
		return res, nil
	}

	hm := NormalizeHeaders(headers, opts.Aliases)
	res.HeadersOriginal = headers
	res.HeadersNormalized = hm.Normalized(headers)
	res.HeaderMap = hm

	limit := opts.PreviewLimit
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}
	for len(res.PreviewRows) < limit {
		rec, err := r.Read()
		if err != nil {
			break
		}
		res.PreviewRows = append(res.PreviewRows, normalizeRow(rec, headers, hm))
	}

	return res, nil
}

// newCSVReader configures the parser for messy real-world input: ragged
// rows allowed, lazy quoting.
func newCSVReader(text string, delimiter rune) *csv.Reader {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r
}

// requiredImportFields lists the canonical fields an import file must carry
// after normalization: name and inventory always, plus any configured key
// fields.
func requiredImportFields(keyFields []string) []string {
	required := []string{FieldName, FieldInventory}
	seen := map[string]bool{FieldName: true, FieldInventory: true}
	for _, k := range keyFields {
		if k != "" && !seen[k] {
			required = append(required, k)
			seen[k] = true
		}
	}
	return required
}

// missingRequired returns the required fields absent from the normalized
// header list.
func missingRequired(normalized []string, keyFields []string) []string {
	have := make(map[string]bool, len(normalized))
	for _, h := range normalized {
		have[h] = true
	}
	var missing []string
	for _, f := range requiredImportFields(keyFields) {
		if !have[f] {
			missing = append(missing, f)
		}
	}
	return missing
}
