// Package core provides the business logic for stock CSV import and export.
//
// This package is the heart of the service, containing all domain logic
// independent of any transport layer. It can be used by web handlers, CLI
// tools, or tests without modification.
//
// # Import pipeline
//
// An uploaded byte stream of unknown encoding and delimiter flows through:
//
//  1. [Decode] tries a prioritized list of encodings and returns the first
//     that decodes every byte cleanly.
//  2. [SniffDelimiter] picks the field delimiter from a bounded text sample.
//  3. [NormalizeHeaders] maps arbitrary column headers onto canonical field
//     names through an alias table with a fallback chain.
//  4. [ValidateRow] runs fixed-order type/required/range checks per row,
//     producing position-tagged [RowError] records.
//  5. A key tracker flags composite keys repeated within the same file.
//
// [DryRun] orchestrates the whole pass into a single non-mutating
// [DryRunReport]. [Service.Import] feeds the validated rows to [Reconcile],
// which applies create-or-update decisions to storage in bounded-size
// atomic batches.
//
// # Export pipeline
//
// [ExportStream] is a pull-driven producer of CSV byte chunks: a header
// chunk first, then row chunks fetched from storage via offset pagination.
// Each chunk is self-contained valid CSV, so a cancelled consumer simply
// stops calling Next and no cleanup is needed.
//
// # Storage
//
// All persistence goes through the [Store] interface; the core never opens
// connections or manages transactions beyond "one batch = one atomic unit".
package core
