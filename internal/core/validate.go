package core

// validate.go runs the fixed-order per-field checks for one data row. Every
// check runs even when an earlier one fails, so a single row can report
// several errors at once. Parsing is locale-neutral: ASCII digits with
// optional comma thousands separators for integers, a plain decimal point
// for floats, and complete date-times only (a bare date is an error, not a
// silent midnight).

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// dateTimeLayouts are the accepted timestamp formats, all fully specified.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// ValidateRow checks one normalized row and returns its coerced values.
// The CleanRow is nil when any check failed. Check order: id, name,
// inventory, category_id, price, description, created_at, updated_at.
func ValidateRow(row map[string]string, rowNum int, refs ReferenceSets) (*CleanRow, []RowError) {
	var errs []RowError
	out := &CleanRow{}

	// id: optional integer
	id, err := parseOptionalInt(row[FieldID])
	if err != nil {
		errs = append(errs, RowError{rowNum, FieldID, CodeInvalidInt, "must be an integer"})
	} else {
		out.ID = id
	}

	// name: required, bounded length
	name := strings.TrimSpace(row[FieldName])
	switch {
	case name == "":
		errs = append(errs, RowError{rowNum, FieldName, CodeRequired, "required"})
	case utf8.RuneCountInString(name) > MaxNameLen:
		errs = append(errs, RowError{rowNum, FieldName, CodeTooLong,
			fmt.Sprintf("longer than %d characters", MaxNameLen)})
	}
	out.Name = name

	// inventory: required, non-negative integer
	inv, err := parseOptionalInt(row[FieldInventory])
	switch {
	case err != nil:
		errs = append(errs, RowError{rowNum, FieldInventory, CodeInvalidInt, "must be an integer"})
	case inv == nil:
		errs = append(errs, RowError{rowNum, FieldInventory, CodeRequired, "required"})
	case *inv < 0:
		errs = append(errs, RowError{rowNum, FieldInventory, CodeNegative, "must be zero or greater"})
	default:
		out.Inventory = *inv
	}

	// category_id: optional integer, must reference a known category
	catID, err := parseOptionalInt(row[FieldCategoryID])
	switch {
	case err != nil:
		errs = append(errs, RowError{rowNum, FieldCategoryID, CodeInvalidInt, "must be an integer"})
	case catID != nil:
		if _, ok := refs.CategoryIDs[*catID]; !ok {
			errs = append(errs, RowError{rowNum, FieldCategoryID, CodeUnknownCategory, "unknown category"})
		} else {
			out.CategoryID = catID
		}
	}

	// price: optional floating-point number
	price, err := parseOptionalFloat(row[FieldPrice])
	if err != nil {
		errs = append(errs, RowError{rowNum, FieldPrice, CodeInvalidNumber, "must be a number"})
	} else {
		out.Price = price
	}

	// description: optional, bounded length
	desc := strings.TrimSpace(row[FieldDescription])
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		errs = append(errs, RowError{rowNum, FieldDescription, CodeTooLong,
			fmt.Sprintf("longer than %d characters", MaxDescriptionLen)})
	} else {
		out.Description = desc
	}

	// created_at / updated_at: optional complete date-times
	createdAt, err := parseOptionalTime(row[FieldCreatedAt])
	if err != nil {
		errs = append(errs, RowError{rowNum, FieldCreatedAt, CodeInvalidDatetime,
			"not a date-time (e.g. 2025-11-10T10:30:00)"})
	} else {
		out.CreatedAt = createdAt
	}
	updatedAt, err := parseOptionalTime(row[FieldUpdatedAt])
	if err != nil {
		errs = append(errs, RowError{rowNum, FieldUpdatedAt, CodeInvalidDatetime,
			"not a date-time (e.g. 2025-11-10T10:30:00)"})
	} else {
		out.UpdatedAt = updatedAt
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// parseOptionalInt parses an integer, tolerating comma thousands
// separators. Empty input is nil, not an error.
func parseOptionalInt(s string) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// parseOptionalFloat parses a decimal-point float. No currency symbols,
// no separators. Empty input is nil.
func parseOptionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// parseOptionalTime parses a complete date-time. Empty input is nil;
// malformed text is an error, never a silent null.
func parseOptionalTime(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid date-time %q", s)
}
