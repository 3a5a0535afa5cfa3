package core

// header.go maps arbitrary original column headers onto canonical field
// names. The alias table is plain data passed in at call time; callers that
// pass nil get DefaultHeaderAliases. Matching falls through exact match,
// lowercase match, then a match with everything but letters, digits and
// underscores removed. Unmatched headers pass through cleaned, which lets
// downstream consumers detect unknown columns.

import (
	"strings"
	"unicode"
)

// DefaultHeaderAliases maps header spellings seen in uploaded files to
// canonical field names. Replaceable per call to support other vocabularies
// without changing the algorithm.
var DefaultHeaderAliases = map[string]string{
	"상품명":        FieldName,
	"name":       FieldName,
	"상품코드":       FieldSKU,
	"sku":        FieldSKU,
	"카테고리":       FieldCategoryName,
	"category":   FieldCategoryName,
	"category_name": FieldCategoryName,
	"카테고리id":     FieldCategoryID,
	"category_id": FieldCategoryID,
	"수량":         FieldQuantity,
	"재고":         FieldQuantity,
	"qty":        FieldQuantity,
	"quantity":   FieldQuantity,
	"단가":         FieldPrice,
	"가격":         FieldPrice,
	"price":      FieldPrice,

	// Record fields accepted on the import path.
	"id":          FieldID,
	"상품id":        FieldID,
	"inventory":   FieldInventory,
	"재고수량":        FieldInventory,
	"description": FieldDescription,
	"설명":          FieldDescription,
	"created_at":  FieldCreatedAt,
	"생성일시":        FieldCreatedAt,
	"updated_at":  FieldUpdatedAt,
	"수정일시":        FieldUpdatedAt,
}

// NormalizeHeaders builds the header map for one file. Multiple raw headers
// may map to the same canonical field; per-row mapping is last-one-wins.
func NormalizeHeaders(headers []string, aliases map[string]string) HeaderMap {
	if aliases == nil {
		aliases = DefaultHeaderAliases
	}
	m := make(HeaderMap, len(headers))
	for _, h := range headers {
		m[h] = normalizeHeader(h, aliases)
	}
	return m
}

// Normalized returns the canonical names in the original header order.
func (m HeaderMap) Normalized(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		if canon, ok := m[h]; ok {
			out[i] = canon
		} else {
			out[i] = CleanHeader(h)
		}
	}
	return out
}

func normalizeHeader(h string, aliases map[string]string) string {
	cleaned := CleanHeader(h)
	if canon, ok := aliases[cleaned]; ok {
		return canon
	}
	lower := strings.ToLower(cleaned)
	if canon, ok := aliases[lower]; ok {
		return canon
	}
	if canon, ok := aliases[squashHeader(lower)]; ok {
		return canon
	}
	return cleaned
}

// CleanHeader strips byte-order marks and surrounding whitespace.
func CleanHeader(h string) string {
	h = strings.ReplaceAll(h, "\ufeff", "")
	return strings.TrimSpace(h)
}

// squashHeader removes every rune that is not a letter, digit or underscore.
func squashHeader(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// normalizeRow maps a raw CSV record onto canonical field names with
// trimmed values. When two raw headers normalize to the same canonical
// name the later column wins. Cells beyond the header width are dropped.
func normalizeRow(record, headers []string, m HeaderMap) map[string]string {
	row := make(map[string]string, len(headers))
	for i, h := range headers {
		if i >= len(record) {
			break
		}
		key, ok := m[h]
		if !ok {
			key = CleanHeader(h)
		}
		row[key] = strings.TrimSpace(record[i])
	}
	return row
}
