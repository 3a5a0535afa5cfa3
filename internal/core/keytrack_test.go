package core

import "testing"

func TestKeyTracker_DefaultIDKey(t *testing.T) {
	tr := newKeyTracker(nil)
	if tr.label() != FieldID {
		t.Errorf("label() = %q, want %q", tr.label(), FieldID)
	}

	status, _ := tr.check(map[string]string{FieldID: "7"}, 2)
	if status != keyUnique {
		t.Errorf("first occurrence status = %v, want keyUnique", status)
	}

	status, first := tr.check(map[string]string{FieldID: "7"}, 5)
	if status != keyDuplicate {
		t.Errorf("second occurrence status = %v, want keyDuplicate", status)
	}
	if first != 2 {
		t.Errorf("firstSeen = %d, want 2", first)
	}

	// A third occurrence still points at the original row.
	_, first = tr.check(map[string]string{FieldID: "7"}, 9)
	if first != 2 {
		t.Errorf("firstSeen after third occurrence = %d, want 2", first)
	}
}

func TestKeyTracker_IncompleteKey(t *testing.T) {
	tr := newKeyTracker([]string{FieldSKU, FieldName})

	status, _ := tr.check(map[string]string{FieldSKU: "A-1", FieldName: "  "}, 2)
	if status != keyIncomplete {
		t.Errorf("status = %v, want keyIncomplete", status)
	}

	// Incomplete rows must not register a key.
	status, _ = tr.check(map[string]string{FieldSKU: "A-1", FieldName: "Widget"}, 3)
	if status != keyUnique {
		t.Errorf("status = %v, want keyUnique after incomplete row", status)
	}
}

func TestKeyTracker_CompositeKey(t *testing.T) {
	tr := newKeyTracker([]string{FieldSKU, FieldName})
	if tr.label() != "sku+name" {
		t.Errorf("label() = %q, want %q", tr.label(), "sku+name")
	}

	tr.check(map[string]string{FieldSKU: "A-1", FieldName: "Widget"}, 2)

	// Same sku, different name: distinct composite key.
	status, _ := tr.check(map[string]string{FieldSKU: "A-1", FieldName: "Gadget"}, 3)
	if status != keyUnique {
		t.Errorf("status = %v, want keyUnique for distinct composite", status)
	}

	status, first := tr.check(map[string]string{FieldSKU: "A-1", FieldName: "Widget"}, 4)
	if status != keyDuplicate || first != 2 {
		t.Errorf("status = %v firstSeen = %d, want keyDuplicate at 2", status, first)
	}
}

func TestKeyTracker_TrimsValues(t *testing.T) {
	tr := newKeyTracker(nil)
	tr.check(map[string]string{FieldID: "7"}, 2)

	status, first := tr.check(map[string]string{FieldID: " 7 "}, 3)
	if status != keyDuplicate || first != 2 {
		t.Errorf("whitespace-padded key: status = %v firstSeen = %d, want duplicate at 2", status, first)
	}
}
