package uxf

import (
	"strings"
	"testing"
	"time"
)

// ============================================================
// Writer Tests
// ============================================================

func TestDump_Scalars(t *testing.T) {
	tests := []struct {
		name     string
		value    *Value
		expected string
	}{
		{"null", Null(), "?"},
		{"true", Bool(true), "yes"},
		{"false", Bool(false), "no"},
		{"int", Int(-42), "-42"},
		{"real", Real(3.99), "3.99"},
		{"integral real", Real(2), "2.0"},
		{"date", Date(time.Date(2022, 9, 21, 0, 0, 0, 0, time.UTC)),
			"2022-09-21"},
		{"datetime utc",
			DateTime(time.Date(2022, 9, 21, 7, 15, 30, 0, time.UTC)),
			"2022-09-21T07:15:30Z"},
		{"datetime offset",
			DateTime(time.Date(2022, 9, 21, 7, 15, 0, 0,
				time.FixedZone("", 3600))),
			"2022-09-21T07:15:00+01:00"},
		{"naive datetime",
			NaiveDateTime(time.Date(2022, 9, 21, 7, 15, 0, 0, time.UTC)),
			"2022-09-21T07:15:00"},
		{"str", Str("a & b"), "<a &amp; b>"},
		{"str angle", Str("<x>"), "<&lt;x&gt;>"},
		{"bytes", Bytes([]byte{0x20, 0xAC}), "(:20 AC:)"},
		{"empty bytes", Bytes(nil), "(::)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewUxf()
			list := NewList("")
			list.Append(tt.value)
			doc.Value = ListValue(list)
			text, err := Dump(doc)
			if err != nil {
				t.Fatalf("dump failed: %v", err)
			}
			want := "uxf 1.0\n[" + tt.expected + "]\n"
			if text != want {
				t.Errorf("expected %q, got %q", want, text)
			}
		})
	}
}

func TestDump_UseTrueFalse(t *testing.T) {
	doc := quietParse(t, "uxf 1.0\n[yes no]\n")
	f := DefaultFormat()
	f.UseTrueFalse = true
	text, err := DumpWithFormat(doc, f)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if !strings.Contains(text, "true") || !strings.Contains(text, "false") {
		t.Errorf("expected true/false output, got %q", text)
	}
}

func TestDump_RealDP(t *testing.T) {
	doc := quietParse(t, "uxf 1.0\n[1.23456]\n")
	f := DefaultFormat()
	f.RealDP = 2
	text, err := DumpWithFormat(doc, f)
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if !strings.Contains(text, "[1.23]") {
		t.Errorf("expected 2 decimal places, got %q", text)
	}

	// a zero-digit request still keeps the decimal point
	f.RealDP = 0
	text, _ = DumpWithFormat(doc, f)
	if !strings.Contains(text, "[1.0]") {
		t.Errorf("reals must keep a decimal point, got %q", text)
	}
}

func TestDump_ShortCollectionsInline(t *testing.T) {
	doc := quietParse(t, "uxf 1.0\n[1 2 3]\n")
	text, _ := Dump(doc)
	if text != "uxf 1.0\n[1 2 3]\n" {
		t.Errorf("short list should stay inline, got %q", text)
	}
}

func TestDump_LongCollectionsMultiline(t *testing.T) {
	doc := quietParse(t,
		"uxf 1.0\n[<aaaaaaaaaa> <bbbbbbbbbb> <cccccccccc> <dddddddddd>]\n")
	text, _ := Dump(doc)
	if !strings.Contains(text, "\n  <aaaaaaaaaa>\n") {
		t.Errorf("long list should be one item per line, got %q", text)
	}
	if !strings.HasSuffix(text, "\n]\n") {
		t.Errorf("expected the closer on its own line, got %q", text)
	}
}

func TestDump_EmbeddedNewlineForcesMultiline(t *testing.T) {
	doc := NewUxf()
	list := NewList("")
	list.Append(Str("a\nb"))
	doc.Value = ListValue(list)
	text, _ := Dump(doc)
	if !strings.Contains(text, "<a\nb>") {
		t.Errorf("expected the raw newline preserved, got %q", text)
	}
	reloaded := quietParse(t, text)
	if !doc.Equal(reloaded) {
		t.Error("newline string did not round-trip")
	}
}

func TestDump_LongBytesWrap(t *testing.T) {
	data := make([]byte, 80)
	for i := range data {
		data[i] = byte(i)
	}
	doc := NewUxf()
	list := NewList("")
	list.Append(Bytes(data))
	doc.Value = ListValue(list)
	text, _ := Dump(doc)
	for _, line := range strings.Split(text, "\n") {
		if len(line) > DefaultFormat().WrapWidth {
			t.Errorf("line exceeds wrap width: %q", line)
		}
	}
	reloaded := quietParse(t, text)
	if !doc.Equal(reloaded) {
		t.Error("wrapped bytes did not round-trip")
	}
}

func TestDump_TClassOrderPreserved(t *testing.T) {
	doc := quietParse(t, "uxf 1.0\n=Zeta z\n=Alpha a\n[(Zeta 1) (Alpha 2)]\n")
	text, _ := Dump(doc)
	zeta := strings.Index(text, "=Zeta")
	alpha := strings.Index(text, "=Alpha")
	if zeta == -1 || alpha == -1 || zeta > alpha {
		t.Errorf("ttype insertion order not preserved: %q", text)
	}
}

func TestDump_CommentsEmitted(t *testing.T) {
	input := "uxf 1.0\n" +
		"#<file note>\n" +
		"=#<a pair> Pair a b\n" +
		"(#<rows> Pair 1 2)\n"
	doc := quietParse(t, input)
	text, _ := Dump(doc)
	for _, want := range []string{"#<file note>", "=#<a pair> Pair",
		"#<rows>"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in output %q", want, text)
		}
	}
	reloaded := quietParse(t, text)
	if !doc.Equal(reloaded) {
		t.Error("comments did not round-trip")
	}
}

func TestDump_CompactFormat(t *testing.T) {
	doc := quietParse(t,
		"uxf 1.0\n[<aaaaaaaaaa> <bbbbbbbbbb> <cccccccccc> <dddddddddd>]\n")
	text, err := DumpWithFormat(doc, CompactFormat())
	if err != nil {
		t.Fatalf("dump failed: %v", err)
	}
	if strings.Contains(text, "  ") {
		t.Errorf("compact output should carry no indent, got %q", text)
	}
	reloaded := quietParse(t, text)
	if !doc.Equal(reloaded) {
		t.Error("compact output did not round-trip")
	}
}

func TestDump_ScalarRootRejected(t *testing.T) {
	doc := NewUxf()
	doc.Value = Int(1)
	if _, err := Dump(doc); err == nil {
		t.Error("expected an error for a scalar root")
	}
}
