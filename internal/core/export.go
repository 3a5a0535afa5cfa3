package core

// export.go streams storage rows back out as CSV. The stream is pull
// driven: each chunk is fetched and serialized only when the consumer asks
// for it, so memory stays bounded regardless of table size and an early
// cancellation simply stops further fetches. Every chunk is self-contained
// valid CSV; chunk boundaries never split a row.

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ExportColumns is the fixed CSV header for exports.
var ExportColumns = []string{
	"id", "name", "inventory", "category_id", "price", "description", "created_at", "updated_at",
}

// sortableFields is the allow-list for export sort specs.
var sortableFields = map[string]bool{
	"id":         true,
	"name":       true,
	"inventory":  true,
	"price":      true,
	"created_at": true,
	"updated_at": true,
}

// exportTimeLayout renders timestamps at second precision, ISO-8601.
const exportTimeLayout = "2006-01-02T15:04:05"

// ParseSortSpec parses a "field:direction" pair against the allow-list.
// Unrecognized fields silently fall back to ascending identifier order so
// offset pagination stays deterministic.
func ParseSortSpec(s string) SortSpec {
	field, dir, _ := strings.Cut(s, ":")
	field = strings.ToLower(strings.TrimSpace(field))
	if !sortableFields[field] {
		return SortSpec{Field: FieldID}
	}
	return SortSpec{
		Field: field,
		Desc:  strings.EqualFold(strings.TrimSpace(dir), "desc"),
	}
}

// ExportOptions selects and orders the rows to export.
type ExportOptions struct {
	Keyword    string // case-insensitive substring match on name
	CategoryID *int64 // exact category filter when set
	Sort       string // "field:direction", e.g. "name:desc"
	ChunkSize  int    // rows per data chunk; <=0 selects the default
}

// ExportStream produces CSV byte chunks on demand: one header chunk first,
// then data chunks of up to ChunkSize rows until storage returns no more.
// The sequence is finite, produced once, and not restartable.
type ExportStream struct {
	store      Store
	query      StockQuery
	chunkSize  int
	headerSent bool
	done       bool
}

// NewExportStream builds a stream over the given store. No storage call
// happens until the first Next.
func NewExportStream(st Store, opts ExportOptions) *ExportStream {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultExportChunkSize
	}
	return &ExportStream{
		store:     st,
		chunkSize: chunkSize,
		query: StockQuery{
			Keyword:    opts.Keyword,
			CategoryID: opts.CategoryID,
			Sort:       ParseSortSpec(opts.Sort),
			Limit:      chunkSize,
		},
	}
}

// Next returns the next CSV chunk, or io.EOF when the stream is exhausted.
// A storage failure ends the stream; callers should stop on any error.
func (e *ExportStream) Next(ctx context.Context) ([]byte, error) {
	if e.done {
		return nil, io.EOF
	}

	if !e.headerSent {
		e.headerSent = true
		return writeCSVChunk([][]string{ExportColumns}), nil
	}

	rows, err := e.store.ListStocks(ctx, e.query)
	if err != nil {
		e.done = true
		return nil, fmt.Errorf("fetch export page: %w", err)
	}
	if len(rows) == 0 {
		e.done = true
		return nil, io.EOF
	}
	e.query.Offset += e.chunkSize

	records := make([][]string, len(rows))
	for i, s := range rows {
		records[i] = stockRecord(s)
	}
	return writeCSVChunk(records), nil
}

// stockRecord renders one stock row in ExportColumns order. Missing
// numeric and description fields render as empty strings.
func stockRecord(s Stock) []string {
	return []string{
		strconv.FormatInt(s.ID, 10),
		s.Name,
		strconv.FormatInt(s.Inventory, 10),
		formatOptionalInt(s.CategoryID),
		formatOptionalFloat(s.Price),
		s.Description,
		formatTimestamp(s.CreatedAt),
		formatTimestamp(s.UpdatedAt),
	}
}

func writeCSVChunk(records [][]string) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.WriteAll(records)
	return buf.Bytes()
}

func formatOptionalInt(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func formatOptionalFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(exportTimeLayout)
}
