package uxf

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Format configures the writer.
type Format struct {
	// Indent is the per-level indent string; "" removes indentation.
	Indent string

	// WrapWidth is the soft line-wrap target in columns, used when
	// laying out long bytes literals.
	WrapWidth int

	// RealDP is the number of decimal digits written after the point
	// for reals; -1 means the minimal representation that round-trips.
	RealDP int

	// MaxShortLen keeps a collection on one line when its single-line
	// render is no longer than this.
	MaxShortLen int

	// UseTrueFalse writes booleans as true/false instead of yes/no.
	UseTrueFalse bool

	// ReplaceImports expands import directives into inline ttype
	// definitions instead of re-emitting the directives.
	ReplaceImports bool
}

// DefaultFormat returns the canonical formatting configuration.
func DefaultFormat() Format {
	return Format{
		Indent:      "  ",
		WrapWidth:   96,
		RealDP:      -1,
		MaxShortLen: 32,
	}
}

// CompactFormat returns a configuration that minimizes output size.
func CompactFormat() Format {
	f := DefaultFormat()
	f.Indent = ""
	return f
}

// Dump writes the document as canonical UXF text with DefaultFormat.
func Dump(u *Uxf) (string, error) {
	return DumpWithFormat(u, DefaultFormat())
}

// DumpWithFormat writes the document as UXF text driven by f.
func DumpWithFormat(u *Uxf, f Format) (string, error) {
	if u == nil || u.Value == nil {
		return "", fmt.Errorf("uxf: cannot dump a document without a value")
	}
	if u.Value.Kind().IsScalar() {
		return "", fmt.Errorf(
			"uxf: the document value must be a map, list, or table, got %s",
			u.Value.Kind())
	}
	if f.WrapWidth <= 0 {
		f.WrapWidth = 96
	}
	e := &emitter{f: f, uxf: u}
	e.emitDocument()
	return e.sb.String(), nil
}

// Write dumps the document to w.
func Write(w io.Writer, u *Uxf, f Format) error {
	text, err := DumpWithFormat(u, f)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}

type emitter struct {
	sb  strings.Builder
	f   Format
	uxf *Uxf
}

// emitDocument writes the header, the file comment, retained imports,
// ttype definitions in insertion order, then the root value.
func (e *emitter) emitDocument() {
	e.sb.WriteString("uxf ")
	e.sb.WriteString(Realize(VERSION))
	if e.uxf.Custom != "" {
		e.sb.WriteByte(' ')
		e.sb.WriteString(e.uxf.Custom)
	}
	e.sb.WriteByte('\n')

	if e.uxf.Comment != "" {
		e.sb.WriteString("#<")
		e.sb.WriteString(escape(e.uxf.Comment))
		e.sb.WriteString(">\n")
	}

	if !e.f.ReplaceImports {
		for _, source := range e.uxf.Imports() {
			e.sb.WriteString("! ")
			e.sb.WriteString(source)
			e.sb.WriteByte('\n')
		}
	}

	for _, tc := range e.uxf.TClasses() {
		if !e.f.ReplaceImports && e.uxf.ImportSource(tc.TType) != "" {
			continue
		}
		e.emitTClass(tc)
	}

	e.writeValue(e.uxf.Value, 0)
	e.sb.WriteByte('\n')
}

func (e *emitter) emitTClass(tc *TClass) {
	e.sb.WriteByte('=')
	if tc.Comment != "" {
		e.sb.WriteString("#<")
		e.sb.WriteString(escape(tc.Comment))
		e.sb.WriteString("> ")
	}
	e.sb.WriteString(tc.TType)
	for _, f := range tc.Fields {
		e.sb.WriteByte(' ')
		e.sb.WriteString(f.Name)
		if f.VType != "" {
			e.sb.WriteByte(':')
			e.sb.WriteString(f.VType)
		}
	}
	e.sb.WriteByte('\n')
}

// writeValue emits v at the current cursor; any continuation lines are
// indented depth+1 deep and the closing delimiter lands at depth.
func (e *emitter) writeValue(v *Value, depth int) {
	switch v.Kind() {
	case KindBytes:
		e.writeBytes(v.bytesVal, depth)
	case KindList, KindMap, KindTable:
		inline := e.inlineValue(v)
		if len(inline) <= e.f.MaxShortLen && !strings.Contains(inline, "\n") {
			e.sb.WriteString(inline)
			return
		}
		switch v.Kind() {
		case KindList:
			e.writeListMulti(v.listVal, depth)
		case KindMap:
			e.writeMapMulti(v.mapVal, depth)
		case KindTable:
			e.writeTableMulti(v.tableVal, depth)
		}
	default:
		e.sb.WriteString(e.scalarText(v))
	}
}

func (e *emitter) writeListMulti(l *List, depth int) {
	e.sb.WriteByte('[')
	if l.Comment != "" {
		e.sb.WriteString("#<")
		e.sb.WriteString(escape(l.Comment))
		e.sb.WriteByte('>')
	}
	if l.VType != "" {
		if l.Comment != "" {
			e.sb.WriteByte(' ')
		}
		e.sb.WriteString(l.VType)
	}
	e.sb.WriteByte('\n')
	for _, item := range l.values {
		e.indent(depth + 1)
		e.writeValue(item, depth+1)
		e.sb.WriteByte('\n')
	}
	e.indent(depth)
	e.sb.WriteByte(']')
}

func (e *emitter) writeMapMulti(m *Map, depth int) {
	e.sb.WriteByte('{')
	if m.Comment != "" {
		e.sb.WriteString("#<")
		e.sb.WriteString(escape(m.Comment))
		e.sb.WriteByte('>')
	}
	if m.KType != "" {
		if m.Comment != "" {
			e.sb.WriteByte(' ')
		}
		e.sb.WriteString(m.KType)
		if m.VType != "" {
			e.sb.WriteByte(' ')
			e.sb.WriteString(m.VType)
		}
	}
	e.sb.WriteByte('\n')
	for _, entry := range m.entries {
		e.indent(depth + 1)
		e.writeValue(entry.Key, depth+1)
		e.sb.WriteByte(' ')
		e.writeValue(entry.Value, depth+1)
		e.sb.WriteByte('\n')
	}
	e.indent(depth)
	e.sb.WriteByte('}')
}

func (e *emitter) writeTableMulti(t *Table, depth int) {
	e.sb.WriteByte('(')
	if t.Comment != "" {
		e.sb.WriteString("#<")
		e.sb.WriteString(escape(t.Comment))
		e.sb.WriteString("> ")
	}
	e.sb.WriteString(t.TType)
	e.sb.WriteByte('\n')
	for row := 0; row < t.RecordCount(); row++ {
		e.indent(depth + 1)
		for col, cell := range t.RecordAt(row) {
			if col > 0 {
				e.sb.WriteByte(' ')
			}
			e.writeValue(cell, depth+1)
		}
		e.sb.WriteByte('\n')
	}
	e.indent(depth)
	e.sb.WriteByte(')')
}

// writeBytes emits a bytes literal, wrapping the hex pairs at WrapWidth
// when the inline form is too long.
func (e *emitter) writeBytes(data []byte, depth int) {
	inline := bytesText(data)
	if len(inline) <= e.f.WrapWidth {
		e.sb.WriteString(inline)
		return
	}
	pairsPerLine := (e.f.WrapWidth - len(e.f.Indent)*(depth+1)) / 3
	if pairsPerLine < 1 {
		pairsPerLine = 1
	}
	e.sb.WriteString("(:\n")
	for i := 0; i < len(data); i += pairsPerLine {
		end := i + pairsPerLine
		if end > len(data) {
			end = len(data)
		}
		e.indent(depth + 1)
		e.sb.WriteString(hexPairs(data[i:end]))
		e.sb.WriteByte('\n')
	}
	e.indent(depth)
	e.sb.WriteString(":)")
}

func (e *emitter) indent(depth int) {
	for i := 0; i < depth; i++ {
		e.sb.WriteString(e.f.Indent)
	}
}

// ============================================================
// Inline Rendering
// ============================================================

// inlineValue renders any value on a single line (except strings that
// themselves contain newlines, which the caller detects).
func (e *emitter) inlineValue(v *Value) string {
	switch v.Kind() {
	case KindList:
		l := v.listVal
		var segs []string
		if l.Comment != "" {
			segs = append(segs, "#<"+escape(l.Comment)+">")
		}
		if l.VType != "" {
			segs = append(segs, l.VType)
		}
		for _, item := range l.values {
			segs = append(segs, e.inlineValue(item))
		}
		return "[" + strings.Join(segs, " ") + "]"
	case KindMap:
		m := v.mapVal
		var segs []string
		if m.Comment != "" {
			segs = append(segs, "#<"+escape(m.Comment)+">")
		}
		if m.KType != "" {
			segs = append(segs, m.KType)
			if m.VType != "" {
				segs = append(segs, m.VType)
			}
		}
		for _, entry := range m.entries {
			segs = append(segs, e.inlineValue(entry.Key),
				e.inlineValue(entry.Value))
		}
		return "{" + strings.Join(segs, " ") + "}"
	case KindTable:
		t := v.tableVal
		var segs []string
		if t.Comment != "" {
			segs = append(segs, "#<"+escape(t.Comment)+">")
		}
		segs = append(segs, t.TType)
		for _, cell := range t.cells {
			segs = append(segs, e.inlineValue(cell))
		}
		return "(" + strings.Join(segs, " ") + ")"
	default:
		return e.scalarText(v)
	}
}

// scalarText renders one scalar in canonical form.
func (e *emitter) scalarText(v *Value) string {
	switch v.Kind() {
	case KindNull:
		return "?"
	case KindBool:
		if e.f.UseTrueFalse {
			if v.boolVal {
				return "true"
			}
			return "false"
		}
		if v.boolVal {
			return "yes"
		}
		return "no"
	case KindInt:
		return strconv.FormatInt(v.intVal, 10)
	case KindReal:
		return e.realText(v.realVal)
	case KindDate:
		return v.timeVal.Format(dateFormat)
	case KindDateTime:
		text := v.timeVal.Format("2006-01-02T15:04:05")
		if v.tzKnown {
			text += v.timeVal.Format("Z07:00")
		}
		return text
	case KindStr:
		return "<" + escape(v.strVal) + ">"
	case KindBytes:
		return bytesText(v.bytesVal)
	}
	return "?"
}

// realText formats a real so it always carries a decimal point, keeping
// the value a real through a round trip.
func (e *emitter) realText(f float64) string {
	if e.f.RealDP < 0 {
		return Realize(f)
	}
	text := strconv.FormatFloat(f, 'f', e.f.RealDP, 64)
	if !strings.Contains(text, ".") {
		text += ".0"
	}
	return text
}

// bytesText renders bytes inline as space-separated uppercase hex pairs.
func bytesText(data []byte) string {
	return "(:" + hexPairs(data) + ":)"
}

func hexPairs(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 3)
	for i, b := range data {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", b)
	}
	return sb.String()
}
