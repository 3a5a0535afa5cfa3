package core

import (
	"context"
	"fmt"
	"time"
)

// Canonical field names a raw column header may normalize to.
const (
	FieldID           = "id"
	FieldName         = "name"
	FieldSKU          = "sku"
	FieldCategoryName = "category_name"
	FieldCategoryID   = "category_id"
	FieldQuantity     = "quantity"
	FieldInventory    = "inventory"
	FieldPrice        = "price"
	FieldDescription  = "description"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
)

// Validation limits.
const (
	MaxNameLen        = 255
	MaxDescriptionLen = 2000
)

// Defaults for caller-tunable limits.
const (
	DefaultPreviewLimit    = 5
	DefaultErrorLimit      = 1000
	DefaultBatchSize       = 1000
	DefaultExportChunkSize = 1000
)

// Mode declares how an import intends to treat rows against existing records.
type Mode string

const (
	ModeInsert     Mode = "insert"
	ModeUpsert     Mode = "upsert"
	ModeUpdateOnly Mode = "update-only"
)

// ConflictPolicy declares what an import intends to do when a row collides
// with an existing record.
type ConflictPolicy string

const (
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// Stock is one inventory record as stored.
type Stock struct {
	ID          int64
	Name        string
	Inventory   int64
	CategoryID  *int64
	Price       *float64
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CleanRow holds the validated, type-coerced values of one data row.
// Optional fields are nil when the source cell was empty.
type CleanRow struct {
	ID          *int64
	Name        string
	Inventory   int64
	CategoryID  *int64
	Price       *float64
	Description string
	CreatedAt   *time.Time
	UpdatedAt   *time.Time
}

// ValidRow pairs a CleanRow with its 1-based file row number (header = 1).
type ValidRow struct {
	Num   int
	Clean CleanRow
}

// Machine-readable codes attached to RowError records.
const (
	CodeRequired        = "REQUIRED"
	CodeInvalidInt      = "INVALID_INT"
	CodeInvalidNumber   = "INVALID_NUMBER"
	CodeInvalidDatetime = "INVALID_DATETIME"
	CodeTooLong         = "TOO_LONG"
	CodeNegative        = "NEGATIVE"
	CodeUnknownCategory = "UNKNOWN_CATEGORY"
	CodeKeyDuplicate    = "KEY_DUPLICATED_IN_FILE"
	CodeKeyIncomplete   = "KEY_INCOMPLETE"
	CodeHeaderMissing   = "HEADER_MISSING"
	CodeIDWithoutUpsert = "ID_WITHOUT_UPSERT"
)

// RowError is a single position-tagged validation error.
// Row 0 marks header-level errors not tied to a specific data row.
type RowError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d, %s: %s", e.Row, e.Field, e.Message)
}

// HeaderMap maps an original raw header to its canonical field name, or to
// the cleaned original string when no alias matched. Immutable once built.
type HeaderMap map[string]string

// InspectionResult describes one uploaded file: how it was decoded and
// parsed, how its headers normalized, and a bounded preview of its rows.
type InspectionResult struct {
	Encoding          string              `json:"encoding"`
	Delimiter         string              `json:"delimiter"`
	HeadersOriginal   []string            `json:"headers_original"`
	HeadersNormalized []string            `json:"headers_normalized"`
	HeaderMap         HeaderMap           `json:"header_map"`
	PreviewRows       []map[string]string `json:"preview_rows"`
}

// DryRunReport is the immutable result of a storage-free validation pass.
// WouldCreate/WouldUpdate stay null because storage is never consulted
// during a dry run; real counts come from the commit path.
type DryRunReport struct {
	DryRun            bool                `json:"dry_run"`
	Encoding          string              `json:"encoding"`
	Delimiter         string              `json:"delimiter"`
	HeadersOriginal   []string            `json:"headers_original"`
	HeadersNormalized []string            `json:"headers_normalized"`
	HeaderMap         HeaderMap           `json:"header_map"`
	Mode              Mode                `json:"mode"`
	ConflictPolicy    ConflictPolicy      `json:"on_conflict"`
	TotalRows         int                 `json:"total_rows"`
	ValidRows         int                 `json:"valid_rows"`
	InvalidRows       int                 `json:"invalid_rows"`
	WouldCreate       *int                `json:"would_create"`
	WouldUpdate       *int                `json:"would_update"`
	PreviewRows       []map[string]string `json:"preview_rows"`
	Errors            []RowError          `json:"errors"`
	ErrorCount        int                 `json:"error_count"`
	ErrorLimitHit     bool                `json:"error_limit_hit"`
	ErrorsCSVB64      string              `json:"errors_csv_b64,omitempty"`
	ErrorsCSVFilename string              `json:"errors_csv_filename,omitempty"`
}

// BatchError records the failure of one storage batch. Row-level detail
// inside a failed batch is not reported individually.
type BatchError struct {
	Batch   int    `json:"batch"`
	Rows    int    `json:"rows"`
	Message string `json:"message"`
}

// ReconcileOutcome is the result of an import commit, built once after all
// batches have been attempted.
type ReconcileOutcome struct {
	DryRun        bool         `json:"dry_run"`
	ImportID      string       `json:"import_id"`
	Upsert        bool         `json:"upsert"`
	TotalRows     int          `json:"total_rows"`
	ValidRows     int          `json:"valid_rows"`
	InvalidRows   int          `json:"invalid_rows"`
	Created       int          `json:"created"`
	Updated       int          `json:"updated"`
	Errors        []RowError   `json:"errors"`
	ErrorLimitHit bool         `json:"error_limit_hit"`
	BatchErrors   []BatchError `json:"batch_errors,omitempty"`
}

// SortSpec is a parsed, allow-listed export sort order.
type SortSpec struct {
	Field string
	Desc  bool
}

// StockQuery selects a page of stock rows for export.
type StockQuery struct {
	Keyword    string // case-insensitive substring match on name
	CategoryID *int64 // exact match when set
	Sort       SortSpec
	Limit      int
	Offset     int
}

// OpKind distinguishes reconcile operations.
type OpKind int

const (
	OpCreate OpKind = iota
	OpUpdate
)

// StockOp is one create-or-update decision handed to the store.
type StockOp struct {
	Kind OpKind
	Row  CleanRow
}

// Store is the storage collaborator. One ApplyBatch call is one atomic
// unit: either every operation in the batch commits or none do.
type Store interface {
	// CategoryIDs returns the set of valid category identifiers.
	CategoryIDs(ctx context.Context) (map[int64]struct{}, error)

	// ExistingStockIDs reports which of the given identifiers currently exist.
	ExistingStockIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)

	// ListStocks fetches one page of rows matching the query.
	ListStocks(ctx context.Context, q StockQuery) ([]Stock, error)

	// ApplyBatch atomically applies a batch of operations and returns how
	// many rows were created and updated. An update whose target vanished
	// between set-construction and write time must fall back to a create.
	ApplyBatch(ctx context.Context, ops []StockOp) (created, updated int, err error)
}

// ReferenceSets carries lookup sets the validator checks rows against.
// Loaded once per call, never per row.
type ReferenceSets struct {
	CategoryIDs map[int64]struct{}
}
