package uxf

import (
	"testing"
	"time"
)

// ============================================================
// Model Tests
// ============================================================

func TestValue_Accessors(t *testing.T) {
	if _, err := Int(1).AsStr(); err == nil {
		t.Error("AsStr on an int should fail")
	}
	if n, err := Int(7).AsInt(); err != nil || n != 7 {
		t.Errorf("AsInt failed: %v %v", n, err)
	}
	if !Null().IsNull() {
		t.Error("Null should be null")
	}
	var nilValue *Value
	if !nilValue.IsNull() || nilValue.Kind() != KindNull {
		t.Error("a nil Value behaves as null")
	}
}

func TestKind_Classification(t *testing.T) {
	for _, k := range []Kind{KindNull, KindBool, KindInt, KindReal,
		KindDate, KindDateTime, KindStr, KindBytes} {
		if !k.IsScalar() {
			t.Errorf("%s should be scalar", k)
		}
	}
	for _, k := range []Kind{KindList, KindMap, KindTable} {
		if k.IsScalar() {
			t.Errorf("%s should not be scalar", k)
		}
	}
	for _, k := range []Kind{KindInt, KindDate, KindDateTime, KindStr,
		KindBytes} {
		if !k.IsKeyKind() {
			t.Errorf("%s should be a key kind", k)
		}
	}
	for _, k := range []Kind{KindNull, KindBool, KindReal, KindList,
		KindMap, KindTable} {
		if k.IsKeyKind() {
			t.Errorf("%s should not be a key kind", k)
		}
	}
}

func TestMap_InsertionOrderWithReplacement(t *testing.T) {
	m := NewMap("", "")
	m.Set(Str("b"), Int(1))
	m.Set(Str("a"), Int(2))
	m.Set(Str("b"), Int(3)) // replaces, keeps position
	entries := m.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	k0, _ := entries[0].Key.AsStr()
	v0, _ := entries[0].Value.AsInt()
	if k0 != "b" || v0 != 3 {
		t.Errorf("expected b=3 first, got %s=%d", k0, v0)
	}
	if got, ok := m.Get(Str("a")); !ok || got.Kind() != KindInt {
		t.Error("Get(a) failed")
	}
}

func TestMap_KeyKindsAreDistinct(t *testing.T) {
	m := NewMap("", "")
	m.Set(Int(1), Str("int one"))
	m.Set(Str("1"), Str("str one"))
	if m.Len() != 2 {
		t.Errorf("int 1 and str 1 are distinct keys, got %d entries",
			m.Len())
	}
}

func TestTable_FlatCellAccess(t *testing.T) {
	tc, err := NewTClass("Pair", []Field{{Name: "a"}, {Name: "b"}})
	if err != nil {
		t.Fatalf("NewTClass failed: %v", err)
	}
	table := NewTable(tc)
	if err := table.AppendRecord(Int(1), Int(2)); err != nil {
		t.Fatal(err)
	}
	if err := table.AppendRecord(Int(3), Int(4)); err != nil {
		t.Fatal(err)
	}
	if table.RecordCount() != 2 || table.FieldCount() != 2 {
		t.Fatalf("unexpected shape: %dx%d", table.RecordCount(),
			table.FieldCount())
	}
	if n, _ := table.Get(1, 0).AsInt(); n != 3 {
		t.Errorf("Get(1,0) expected 3, got %d", n)
	}
	table.Set(1, 1, Int(9))
	if n, _ := table.Get(1, 1).AsInt(); n != 9 {
		t.Errorf("Set(1,1) did not stick, got %d", n)
	}
	if len(table.Cells()) != 4 {
		t.Errorf("expected 4 cells, got %d", len(table.Cells()))
	}
}

func TestTClass_StructuralEquality(t *testing.T) {
	a := &TClass{TType: "T", Fields: []Field{{Name: "x", VType: "int"}}}
	b := &TClass{TType: "T", Fields: []Field{{Name: "x", VType: "int"}}}
	c := &TClass{TType: "T", Fields: []Field{{Name: "x", VType: "real"}}}
	if !a.Equal(b) {
		t.Error("identical tclasses should be equal")
	}
	if a.Equal(c) {
		t.Error("different vtypes are not equal")
	}
}

func TestUxf_TClassConflict(t *testing.T) {
	doc := NewUxf()
	a := &TClass{TType: "T", Fields: []Field{{Name: "x"}}}
	b := &TClass{TType: "T", Fields: []Field{{Name: "y"}}}
	if err := doc.AddTClass(a); err != nil {
		t.Fatal(err)
	}
	if err := doc.AddTClass(a); err != nil {
		t.Errorf("re-adding an identical tclass should be a no-op: %v", err)
	}
	if err := doc.AddTClass(b); err == nil {
		t.Error("expected a conflict error")
	}
}

func TestValue_DateTimeEquality(t *testing.T) {
	instant := time.Date(2022, 9, 21, 7, 15, 0, 0, time.UTC)
	if DateTime(instant).Equal(NaiveDateTime(instant)) {
		t.Error("aware and naive datetimes are not equal")
	}
	shifted := time.Date(2022, 9, 21, 8, 15, 0, 0, time.FixedZone("", 3600))
	if DateTime(instant).Equal(DateTime(shifted)) {
		t.Error("same instant with different offsets is not equal")
	}
	if !DateTime(instant).Equal(DateTime(instant)) {
		t.Error("identical datetimes should be equal")
	}
}

// ============================================================
// Helper Tests
// ============================================================

func TestIsIdentifier(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Point", true},
		{"_x1", true},
		{"café", true},
		{"", false},
		{"1abc", false},
		{"has space", false},
		{"int", false},
		{"yes", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsIdentifier(tt.name); got != tt.want {
				t.Errorf("IsIdentifier(%q) = %v, want %v",
					tt.name, got, tt.want)
			}
		})
	}
}

func TestRealize(t *testing.T) {
	tests := []struct {
		input    float64
		expected string
	}{
		{3.99, "3.99"},
		{2, "2.0"},
		{0, "0.0"},
		{-5, "-5.0"},
		{1e17, "1.0e+17"},
		{1.5e-8, "1.5e-08"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := Realize(tt.input); got != tt.expected {
				t.Errorf("Realize(%v) = %q, want %q",
					tt.input, got, tt.expected)
			}
		})
	}
}

func TestNaturalize(t *testing.T) {
	tests := []struct {
		input string
		kind  Kind
	}{
		{"yes", KindBool},
		{"FALSE", KindBool},
		{"t", KindBool},
		{"42", KindInt},
		{"-1.5", KindReal},
		{"2022-01-31", KindDate},
		{"2022-01-31T10:30", KindDateTime},
		{"plain text", KindStr},
		{"", KindStr},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Naturalize(tt.input).Kind(); got != tt.kind {
				t.Errorf("Naturalize(%q) = %s, want %s",
					tt.input, got, tt.kind)
			}
		})
	}
}

func TestEscapeUnescape(t *testing.T) {
	original := "a < b & b > c"
	escaped := escape(original)
	if escaped != "a &lt; b &amp; b &gt; c" {
		t.Errorf("unexpected escape: %q", escaped)
	}
	back, err := unescape(escaped)
	if err != nil || back != original {
		t.Errorf("unescape failed: %q %v", back, err)
	}
	if _, err := unescape("bad &apos; entity"); err == nil {
		t.Error("expected an error for an unknown entity")
	}
}
