package core

// keytrack.go detects repeated logical keys within a single file. The
// tracker lives for one inspection pass only and must never be shared
// across concurrent calls.

import "strings"

type keyStatus int

const (
	keyUnique keyStatus = iota
	keyDuplicate
	keyIncomplete
)

// keyTracker builds a composite key from the trimmed values of the
// configured fields and remembers the row where each key first appeared.
type keyTracker struct {
	fields []string
	seen   map[string]int // composite key -> first-seen row number
}

// newKeyTracker returns a tracker over the given key fields, defaulting to
// the identifier field alone.
func newKeyTracker(fields []string) *keyTracker {
	if len(fields) == 0 {
		fields = []string{FieldID}
	}
	return &keyTracker{
		fields: fields,
		seen:   make(map[string]int),
	}
}

// label names the composite key in error records, e.g. "id" or "sku+name".
func (t *keyTracker) label() string {
	return strings.Join(t.fields, "+")
}

// check classifies the row's composite key. A key with any empty component
// is incomplete. The first occurrence of a complete key is unique; later
// occurrences are duplicates, with firstSeen reporting where the key first
// appeared.
func (t *keyTracker) check(row map[string]string, rowNum int) (status keyStatus, firstSeen int) {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		v := strings.TrimSpace(row[f])
		if v == "" {
			return keyIncomplete, 0
		}
		parts[i] = v
	}

	key := strings.Join(parts, "\x1f")
	if first, ok := t.seen[key]; ok {
		return keyDuplicate, first
	}
	t.seen[key] = rowNum
	return keyUnique, rowNum
}
