package uxf

import (
	"testing"
)

// ============================================================
// Validator Tests
// ============================================================

func TestValidate_FixTypesTruncatesReal(t *testing.T) {
	var errs []*Error
	doc, err := ParseWithOptions("uxf 1.0\n=T x:int\n(T 3.14)\n",
		ParseOptions{FixTypes: true, OnError: CollectingHandler(&errs)})
	if err != nil {
		t.Fatalf("fix-types parse failed: %v", err)
	}
	table, _ := doc.Value.AsTable()
	n, err := table.Get(0, 0).AsInt()
	if err != nil || n != 3 {
		t.Errorf("expected the cell truncated to 3, got %v (%v)", n, err)
	}
	var coerced bool
	for _, e := range errs {
		if e.Code == CodeWarnCoerced {
			coerced = true
		}
	}
	if !coerced {
		t.Errorf("expected a %s warning, got %v", CodeWarnCoerced, errs)
	}
}

func TestValidate_FixTypesNaturalizesStrings(t *testing.T) {
	tests := []struct {
		name  string
		input string
		check func(*Value) bool
	}{
		{"bool", "uxf 1.0\n[bool <yes>]\n",
			func(v *Value) bool { b, err := v.AsBool(); return err == nil && b }},
		{"int", "uxf 1.0\n[int <42>]\n",
			func(v *Value) bool { n, err := v.AsInt(); return err == nil && n == 42 }},
		{"real", "uxf 1.0\n[real <1.5>]\n",
			func(v *Value) bool { f, err := v.AsReal(); return err == nil && f == 1.5 }},
		{"date", "uxf 1.0\n[date <2022-01-31>]\n",
			func(v *Value) bool { return v.Kind() == KindDate }},
		{"datetime", "uxf 1.0\n[datetime <2022-01-31T10:30>]\n",
			func(v *Value) bool { return v.Kind() == KindDateTime }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errs []*Error
			doc, err := ParseWithOptions(tt.input, ParseOptions{
				FixTypes: true, OnError: CollectingHandler(&errs)})
			if err != nil {
				t.Fatalf("fix-types parse failed: %v", err)
			}
			list, _ := doc.Value.AsList()
			if !tt.check(list.At(0)) {
				t.Errorf("value not naturalized: %v", list.At(0).Kind())
			}
		})
	}
}

func TestValidate_FixTypesStillRejectsInconvertible(t *testing.T) {
	var errs []*Error
	_, err := ParseWithOptions("uxf 1.0\n[int <not a number>]\n",
		ParseOptions{FixTypes: true, OnError: CollectingHandler(&errs)})
	if err == nil {
		t.Fatal("expected an error for an inconvertible string")
	}
}

func TestValidate_EmptyStringNeverNaturalizesToNull(t *testing.T) {
	if v := Naturalize(""); v.Kind() != KindStr {
		t.Errorf("empty string must stay a str, got %s", v.Kind())
	}
}

func TestValidate_UnusedTType(t *testing.T) {
	var errs []*Error
	doc, err := ParseWithOptions("uxf 1.0\n=Unused x\n[]\n", ParseOptions{
		OnError: CollectingHandler(&errs)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	var warned bool
	for _, e := range errs {
		if e.Code == CodeWarnUnused {
			warned = true
		}
	}
	if !warned {
		t.Errorf("expected a %s warning, got %v", CodeWarnUnused, errs)
	}
	if doc.TClass("Unused") == nil {
		t.Error("without DropUnused the ttype must be kept")
	}

	errs = nil
	doc, err = ParseWithOptions("uxf 1.0\n=Unused x\n[]\n", ParseOptions{
		DropUnused: true, OnError: CollectingHandler(&errs)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if doc.TClass("Unused") != nil {
		t.Error("DropUnused must remove the ttype")
	}
}

func TestValidate_UsagePropagatesThroughFields(t *testing.T) {
	// Inner is only reached through Outer's field type, so neither is
	// unused.
	var errs []*Error
	_, err := ParseWithOptions(
		"uxf 1.0\n=Inner n:int\n=Outer child:Inner\n[(Outer (Inner 1))]\n",
		ParseOptions{OnError: CollectingHandler(&errs)})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	for _, e := range errs {
		if e.Code == CodeWarnUnused {
			t.Errorf("unexpected unused warning: %v", e)
		}
	}
}

func TestValidate_TTypeFieldSlot(t *testing.T) {
	// a field typed with a ttype name accepts only tables of that ttype
	err := parseError(t,
		"uxf 1.0\n=Inner n:int\n=Outer child:Inner\n[(Outer 5)]\n")
	if err.Code != CodeTypeMismatch {
		t.Errorf("expected %s, got %s", CodeTypeMismatch, err.Code)
	}
}

func TestValidate_UnknownFieldType(t *testing.T) {
	err := parseError(t, "uxf 1.0\n=T x:NoSuch\n[(T 1)]\n")
	if err.Code != CodeTypeUnknown {
		t.Errorf("expected %s, got %s", CodeTypeUnknown, err.Code)
	}
}

func TestValidate_MapKTypeEnforced(t *testing.T) {
	err := parseError(t, "uxf 1.0\n{int <oops> 1}\n")
	if err.Code != CodeTypeKey {
		t.Errorf("expected %s, got %s", CodeTypeKey, err.Code)
	}
}

func TestValidate_APIBuiltTree(t *testing.T) {
	doc := NewUxf()
	tc, err := NewTClass("Pair", []Field{{Name: "a", VType: "int"},
		{Name: "b", VType: "int"}})
	if err != nil {
		t.Fatalf("NewTClass failed: %v", err)
	}
	if err := doc.AddTClass(tc); err != nil {
		t.Fatalf("AddTClass failed: %v", err)
	}
	table := NewTable(tc)
	if err := table.AppendRecord(Int(1), Int(2)); err != nil {
		t.Fatalf("AppendRecord failed: %v", err)
	}
	doc.Value = TableValue(table)

	var errs []*Error
	if err := doc.Validate(ValidateOptions{
		OnError: CollectingHandler(&errs)}); err != nil {
		t.Fatalf("validation failed: %v", err)
	}

	// wrong record arity is rejected before it reaches the table
	if err := table.AppendRecord(Int(3)); err == nil {
		t.Error("expected AppendRecord to reject a short record")
	}
}

func TestValidate_ReservedAPIIdentifiers(t *testing.T) {
	if _, err := NewTClass("int", nil); err == nil {
		t.Error("expected NewTClass to reject a reserved ttype name")
	}
	if _, err := NewTClass("T", []Field{{Name: "yes"}}); err == nil {
		t.Error("expected NewTClass to reject a reserved field name")
	}
}

func TestValidate_NullAssignableEverywhere(t *testing.T) {
	doc := quietParse(t, "uxf 1.0\n"+
		"=T b:bool i:int r:real d:date t:datetime s:str y:bytes\n"+
		"(T ? ? ? ? ? ? ?)\n")
	table, _ := doc.Value.AsTable()
	for col := 0; col < table.FieldCount(); col++ {
		if !table.Get(0, col).IsNull() {
			t.Errorf("cell %d should be null", col)
		}
	}
}
