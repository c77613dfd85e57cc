package uxf

import (
	"fmt"
)

// ValidateOptions configures a validation pass.
type ValidateOptions struct {
	// Filename is used in diagnostics; "-" means in-memory input.
	Filename string

	// OnError receives every diagnostic; nil means DefaultErrorHandler.
	OnError ErrorHandler

	// FixTypes repairs convertible mismatches in place with a warning:
	// int and real convert to each other, and strings naturalize into
	// bool, int, real, date, or datetime when the slot demands one.
	// Without it (strict mode, the default) every mismatch is an error.
	FixTypes bool

	// DropUnused removes ttypes that are never used instead of only
	// warning about them.
	DropUnused bool

	noUnused bool // imported documents skip unused-ttype warnings
}

// Validate checks the document against its type constraints: every type
// name resolves, typed containers hold conforming values, map keys are
// legal and match the ktype, and table records are well formed. In
// fix-types mode convertible mismatches are repaired in place.
func (u *Uxf) Validate(opts ValidateOptions) error {
	if opts.Filename == "" {
		opts.Filename = "-"
	}
	if opts.OnError == nil {
		opts.OnError = DefaultErrorHandler
	}
	v := &validator{uxf: u, opts: opts, used: map[string]bool{}}
	return v.validate()
}

// validator walks a document tree enforcing the container and ttype
// constraints, accumulating which ttypes the data actually uses.
type validator struct {
	uxf  *Uxf
	opts ValidateOptions
	used map[string]bool
}

func (v *validator) validate() error {
	if err := v.checkTClasses(); err != nil {
		return err
	}
	root := v.uxf.Value
	if root == nil || root.Kind().IsScalar() {
		return v.fail(0, CodeParseRoot,
			"the document root must be a map, list, or table")
	}
	if err := v.walk(root); err != nil {
		return err
	}
	return v.reportUnused()
}

// checkTClasses verifies every registered TClass has legal names and
// field types that resolve to a built-in type or another ttype.
func (v *validator) checkTClasses() error {
	for _, tc := range v.uxf.TClasses() {
		if err := v.checkIdent(tc.TType, "ttype"); err != nil {
			return err
		}
		for _, f := range tc.Fields {
			if err := v.checkIdent(f.Name, "field"); err != nil {
				return err
			}
			if f.VType == "" || vtypeNames[f.VType] {
				continue
			}
			if v.uxf.TClass(f.VType) == nil {
				return v.fail(0, CodeTypeUnknown,
					"field %s.%s has unknown type %q", tc.TType, f.Name,
					f.VType)
			}
		}
	}
	return nil
}

func (v *validator) checkIdent(name, what string) error {
	if IsReservedWord(name) {
		return v.fail(0, CodeTypeReserved,
			"a reserved word cannot name a %s: %q", what, name)
	}
	if !IsIdentifier(name) {
		return v.fail(0, CodeLexIdent, "invalid %s name %q", what, name)
	}
	return nil
}

// walk recurses into collections, checking each one's own constraints.
func (v *validator) walk(val *Value) error {
	switch val.Kind() {
	case KindList:
		return v.list(val.listVal, val.Line())
	case KindMap:
		return v.mapv(val.mapVal, val.Line())
	case KindTable:
		return v.table(val.tableVal, val.Line())
	}
	return nil
}

func (v *validator) list(l *List, line int) error {
	if l.VType != "" {
		if err := v.checkTypeName(l.VType, line); err != nil {
			return err
		}
	}
	for i := range l.values {
		if err := v.slot(&l.values[i], l.VType); err != nil {
			return err
		}
		if err := v.walk(l.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) mapv(m *Map, line int) error {
	if m.KType != "" && !ktypeNames[m.KType] {
		return v.fail(line, CodeTypeKey,
			"a map's key type must be one of bytes, date, datetime, int, "+
				"or str, got %q", m.KType)
	}
	if m.VType != "" {
		if err := v.checkTypeName(m.VType, line); err != nil {
			return err
		}
	}
	for i := range m.entries {
		key := m.entries[i].Key
		if !key.Kind().IsKeyKind() {
			return v.fail(key.Line(), CodeTypeKey,
				"map keys may only be int, date, datetime, str, or bytes, "+
					"got %s", key.Kind())
		}
		if m.KType != "" && key.Kind().String() != m.KType {
			return v.fail(key.Line(), CodeTypeKey,
				"expected a %s key, got %s", m.KType, key.Kind())
		}
		if err := v.slot(&m.entries[i].Value, m.VType); err != nil {
			return err
		}
		if err := v.walk(m.entries[i].Value); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) table(t *Table, line int) error {
	tc := v.uxf.TClass(t.TType)
	if tc == nil {
		return v.fail(line, CodeTypeUnknown, "unknown ttype %q", t.TType)
	}
	v.used[t.TType] = true
	if tc.IsFieldless() {
		if len(t.cells) > 0 {
			return v.fail(line, CodeParseTableLen,
				"fieldless table %s accepts no values, got %d", t.TType,
				len(t.cells))
		}
		return nil
	}
	if t.nfields != len(tc.Fields) || len(t.cells)%len(tc.Fields) != 0 {
		return v.fail(line, CodeParseTableLen,
			"table %s holds %d values which is not a multiple of its %d "+
				"fields", t.TType, len(t.cells), len(tc.Fields))
	}
	for i := range t.cells {
		field := tc.Fields[i%len(tc.Fields)]
		if err := v.slot(&t.cells[i], field.VType); err != nil {
			return err
		}
		if err := v.walk(t.cells[i]); err != nil {
			return err
		}
	}
	return nil
}

// slot checks one typed slot, promoting or repairing the value in place
// where the rules allow.
func (v *validator) slot(pv **Value, vtype string) error {
	if vtype == "" {
		return nil
	}
	val := *pv
	if val.IsNull() {
		return nil // null is assignable to any typed slot
	}

	if !vtypeNames[vtype] {
		// a ttype name: the value must be a table of that ttype
		if v.uxf.TClass(vtype) == nil {
			return v.fail(val.Line(), CodeTypeUnknown,
				"unknown type %q", vtype)
		}
		v.used[vtype] = true
		if val.Kind() != KindTable || val.tableVal.TType != vtype {
			return v.fail(val.Line(), CodeTypeMismatch,
				"expected a %s table, got %s", vtype, val.Kind())
		}
		return nil
	}

	if val.Kind().String() == vtype {
		return nil
	}

	// an int in a real slot is always promoted
	if val.Kind() == KindInt && vtype == "real" {
		promoted := Real(float64(val.intVal))
		promoted.line = val.line
		*pv = promoted
		return nil
	}

	if v.opts.FixTypes {
		if fixed := v.fixValue(val, vtype); fixed != nil {
			fixed.line = val.line
			*pv = fixed
			return v.warn(val.Line(), CodeWarnCoerced,
				"coerced %s to %s", val.Kind(), vtype)
		}
	}
	return v.fail(val.Line(), CodeTypeMismatch,
		"expected %s, got %s", vtype, val.Kind())
}

// fixValue returns a repaired value for a convertible mismatch, or nil.
func (v *validator) fixValue(val *Value, vtype string) *Value {
	switch {
	case val.Kind() == KindReal && vtype == "int":
		return Int(int64(val.realVal))
	case val.Kind() == KindStr:
		switch vtype {
		case "bool", "int", "real", "date", "datetime":
			natural := Naturalize(val.strVal)
			if natural.Kind().String() == vtype {
				return natural
			}
		}
	}
	return nil
}

// checkTypeName verifies a container vtype resolves, marking ttypes used.
func (v *validator) checkTypeName(name string, line int) error {
	if vtypeNames[name] {
		return nil
	}
	if v.uxf.TClass(name) == nil {
		return v.fail(line, CodeTypeUnknown, "unknown type %q", name)
	}
	v.used[name] = true
	return nil
}

// reportUnused warns about (or drops) ttypes neither the data nor any
// used ttype's fields reach.
func (v *validator) reportUnused() error {
	if v.opts.noUnused {
		return nil
	}
	// usage propagates through the fields of used ttypes
	for changed := true; changed; {
		changed = false
		for name := range v.used {
			tc := v.uxf.TClass(name)
			if tc == nil {
				continue
			}
			for _, f := range tc.Fields {
				if f.VType != "" && !vtypeNames[f.VType] && !v.used[f.VType] {
					v.used[f.VType] = true
					changed = true
				}
			}
		}
	}
	var unused []string
	for _, tc := range v.uxf.TClasses() {
		if !v.used[tc.TType] {
			unused = append(unused, tc.TType)
		}
	}
	for _, name := range unused {
		if err := v.warn(0, CodeWarnUnused, "ttype %s is never used",
			name); err != nil {
			return err
		}
		if v.opts.DropUnused {
			v.uxf.RemoveTClass(name)
		}
	}
	return nil
}

// Error plumbing

func (v *validator) fail(line int, code, format string, args ...any) error {
	err := &Error{
		Line:     line,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Filename: v.opts.Filename,
		Fatal:    true,
	}
	v.opts.OnError(err)
	return err
}

func (v *validator) warn(line int, code, format string, args ...any) error {
	return v.opts.OnError(&Error{
		Line:     line,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Filename: v.opts.Filename,
	})
}
