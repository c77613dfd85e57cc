package uxf

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// VERSION is the highest UXF format version this package reads, and the
// version it writes.
const VERSION = 1.0

// Kind identifies which arm of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindReal
	KindDate
	KindDateTime
	KindStr
	KindBytes
	KindList
	KindMap
	KindTable
)

// String returns the kind's type name as used in the concrete syntax.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindReal:
		return "real"
	case KindDate:
		return "date"
	case KindDateTime:
		return "datetime"
	case KindStr:
		return "str"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindTable:
		return "table"
	default:
		return "unknown"
	}
}

// IsScalar reports whether k is any kind other than List, Map, or Table.
func (k Kind) IsScalar() bool {
	return k < KindList
}

// IsKeyKind reports whether values of this kind may be used as map keys.
func (k Kind) IsKeyKind() bool {
	switch k {
	case KindInt, KindDate, KindDateTime, KindStr, KindBytes:
		return true
	}
	return false
}

// Value represents one UXF value. Exactly one arm is populated, selected
// by the kind tag; collection arms hold owning handles.
type Value struct {
	kind     Kind
	boolVal  bool
	intVal   int64
	realVal  float64
	strVal   string
	bytesVal []byte
	timeVal  time.Time // date and datetime
	tzKnown  bool      // datetime carried an explicit UTC offset
	listVal  *List
	mapVal   *Map
	tableVal *Table
	line     int // 1-based source line, 0 for API-built values
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int creates an integer value.
func Int(v int64) *Value {
	return &Value{kind: KindInt, intVal: v}
}

// Real creates a real value.
func Real(v float64) *Value {
	return &Value{kind: KindReal, realVal: v}
}

// Date creates a date value from t's year, month, and day.
func Date(t time.Time) *Value {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &Value{kind: KindDate, timeVal: t}
}

// DateTime creates a datetime value whose UTC offset is significant and
// will be written back out.
func DateTime(t time.Time) *Value {
	return &Value{kind: KindDateTime, timeVal: t, tzKnown: true}
}

// NaiveDateTime creates a datetime value with no UTC offset; it is
// written without a timezone suffix.
func NaiveDateTime(t time.Time) *Value {
	return &Value{kind: KindDateTime, timeVal: t}
}

// Str creates a string value.
func Str(v string) *Value {
	return &Value{kind: KindStr, strVal: v}
}

// Bytes creates a bytes value.
func Bytes(v []byte) *Value {
	return &Value{kind: KindBytes, bytesVal: v}
}

// ListValue wraps a List as a Value.
func ListValue(l *List) *Value {
	return &Value{kind: KindList, listVal: l}
}

// MapValue wraps a Map as a Value.
func MapValue(m *Map) *Value {
	return &Value{kind: KindMap, mapVal: m}
}

// TableValue wraps a Table as a Value.
func TableValue(t *Table) *Value {
	return &Value{kind: KindTable, tableVal: t}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value's kind. A nil Value is null.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if v == nil || v.kind != KindBool {
		return false, fmt.Errorf("uxf: expected bool, got %s", v.Kind())
	}
	return v.boolVal, nil
}

// AsInt returns the integer value.
func (v *Value) AsInt() (int64, error) {
	if v == nil || v.kind != KindInt {
		return 0, fmt.Errorf("uxf: expected int, got %s", v.Kind())
	}
	return v.intVal, nil
}

// AsReal returns the real value.
func (v *Value) AsReal() (float64, error) {
	if v == nil || v.kind != KindReal {
		return 0, fmt.Errorf("uxf: expected real, got %s", v.Kind())
	}
	return v.realVal, nil
}

// AsDate returns the date value.
func (v *Value) AsDate() (time.Time, error) {
	if v == nil || v.kind != KindDate {
		return time.Time{}, fmt.Errorf("uxf: expected date, got %s", v.Kind())
	}
	return v.timeVal, nil
}

// AsDateTime returns the datetime value.
func (v *Value) AsDateTime() (time.Time, error) {
	if v == nil || v.kind != KindDateTime {
		return time.Time{}, fmt.Errorf("uxf: expected datetime, got %s",
			v.Kind())
	}
	return v.timeVal, nil
}

// AsStr returns the string value.
func (v *Value) AsStr() (string, error) {
	if v == nil || v.kind != KindStr {
		return "", fmt.Errorf("uxf: expected str, got %s", v.Kind())
	}
	return v.strVal, nil
}

// AsBytes returns the bytes value.
func (v *Value) AsBytes() ([]byte, error) {
	if v == nil || v.kind != KindBytes {
		return nil, fmt.Errorf("uxf: expected bytes, got %s", v.Kind())
	}
	return v.bytesVal, nil
}

// AsList returns the list handle.
func (v *Value) AsList() (*List, error) {
	if v == nil || v.kind != KindList {
		return nil, fmt.Errorf("uxf: expected list, got %s", v.Kind())
	}
	return v.listVal, nil
}

// AsMap returns the map handle.
func (v *Value) AsMap() (*Map, error) {
	if v == nil || v.kind != KindMap {
		return nil, fmt.Errorf("uxf: expected map, got %s", v.Kind())
	}
	return v.mapVal, nil
}

// AsTable returns the table handle.
func (v *Value) AsTable() (*Table, error) {
	if v == nil || v.kind != KindTable {
		return nil, fmt.Errorf("uxf: expected table, got %s", v.Kind())
	}
	return v.tableVal, nil
}

// Line returns the 1-based source line this value came from, 0 if the
// value was built via the API.
func (v *Value) Line() int {
	if v == nil {
		return 0
	}
	return v.line
}

// Equal reports deep structural equality, including insertion order for
// maps and table records. For datetimes the instant, the UTC offset, and
// whether an offset was present must all match.
func (v *Value) Equal(other *Value) bool {
	if v.IsNull() || other.IsNull() {
		return v.IsNull() && other.IsNull()
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.boolVal == other.boolVal
	case KindInt:
		return v.intVal == other.intVal
	case KindReal:
		return v.realVal == other.realVal
	case KindDate:
		return v.timeVal.Equal(other.timeVal)
	case KindDateTime:
		if v.tzKnown != other.tzKnown {
			return false
		}
		_, off1 := v.timeVal.Zone()
		_, off2 := other.timeVal.Zone()
		return off1 == off2 && v.timeVal.Equal(other.timeVal)
	case KindStr:
		return v.strVal == other.strVal
	case KindBytes:
		return bytes.Equal(v.bytesVal, other.bytesVal)
	case KindList:
		return v.listVal.Equal(other.listVal)
	case KindMap:
		return v.mapVal.Equal(other.mapVal)
	case KindTable:
		return v.tableVal.Equal(other.tableVal)
	}
	return false
}

// keyString returns a canonical representation of a key value, used to
// index map entries. Only key kinds have one.
func keyString(v *Value) string {
	switch v.kind {
	case KindInt:
		return "i" + strconv.FormatInt(v.intVal, 10)
	case KindStr:
		return "s" + v.strVal
	case KindBytes:
		return "b" + hex.EncodeToString(v.bytesVal)
	case KindDate:
		return "d" + v.timeVal.Format(dateFormat)
	case KindDateTime:
		return "t" + v.timeVal.Format(time.RFC3339)
	}
	return ""
}

// ============================================================
// List
// ============================================================

// List is an ordered sequence of values with an optional element type
// constraint and an optional comment.
type List struct {
	VType   string // "" means any type
	Comment string
	values  []*Value
}

// NewList creates an empty list; vtype may be "".
func NewList(vtype string) *List {
	return &List{VType: vtype}
}

// Append adds a value to the list.
func (l *List) Append(v *Value) {
	l.values = append(l.values, v)
}

// Len returns the number of elements.
func (l *List) Len() int {
	return len(l.values)
}

// At returns the i-th element.
func (l *List) At(i int) *Value {
	return l.values[i]
}

// Values returns the backing element slice.
func (l *List) Values() []*Value {
	return l.values
}

// Equal reports deep equality including vtype and comment.
func (l *List) Equal(other *List) bool {
	if l.VType != other.VType || l.Comment != other.Comment ||
		len(l.values) != len(other.values) {
		return false
	}
	for i, v := range l.values {
		if !v.Equal(other.values[i]) {
			return false
		}
	}
	return true
}

// ============================================================
// Map
// ============================================================

// MapEntry is one key-value pair in a Map.
type MapEntry struct {
	Key   *Value
	Value *Value
}

// Map is an insertion-ordered mapping from key values to values, with
// optional key and value type constraints and an optional comment. It is
// backed by an entry vector plus a key index so iteration order survives
// a read-write round trip.
type Map struct {
	KType   string // one of bytes|date|datetime|int|str, or ""
	VType   string // "" means any type
	Comment string
	entries []MapEntry
	index   map[string]int
}

// NewMap creates an empty map; ktype and vtype may be "".
func NewMap(ktype, vtype string) *Map {
	return &Map{KType: ktype, VType: vtype, index: map[string]int{}}
}

// Set inserts or replaces the value for key, reporting whether an
// existing entry was replaced. Replacement keeps the key's original
// insertion position.
func (m *Map) Set(key, value *Value) bool {
	if m.index == nil {
		m.index = map[string]int{}
	}
	ks := keyString(key)
	if i, ok := m.index[ks]; ok {
		m.entries[i].Value = value
		return true
	}
	m.index[ks] = len(m.entries)
	m.entries = append(m.entries, MapEntry{Key: key, Value: value})
	return false
}

// Get returns the value for key and whether it was present.
func (m *Map) Get(key *Value) (*Value, bool) {
	if i, ok := m.index[keyString(key)]; ok {
		return m.entries[i].Value, true
	}
	return nil, false
}

// Len returns the number of entries.
func (m *Map) Len() int {
	return len(m.entries)
}

// Entries returns the entries in insertion order.
func (m *Map) Entries() []MapEntry {
	return m.entries
}

// Equal reports deep equality including insertion order, types, and
// comment.
func (m *Map) Equal(other *Map) bool {
	if m.KType != other.KType || m.VType != other.VType ||
		m.Comment != other.Comment || len(m.entries) != len(other.entries) {
		return false
	}
	for i, e := range m.entries {
		o := other.entries[i]
		if !e.Key.Equal(o.Key) || !e.Value.Equal(o.Value) {
			return false
		}
	}
	return true
}

// ============================================================
// Field and TClass
// ============================================================

// Field is one column of a ttype: a name and an optional type constraint.
type Field struct {
	Name  string
	VType string // "" means any type
}

// TClass holds a user-defined table schema: the ttype name, its fields,
// and an optional comment.
type TClass struct {
	TType   string
	Fields  []Field
	Comment string
}

// NewTClass creates a TClass after checking the ttype and field names are
// legal identifiers.
func NewTClass(ttype string, fields []Field) (*TClass, error) {
	if !IsIdentifier(ttype) {
		return nil, fmt.Errorf("uxf: invalid ttype name %q", ttype)
	}
	for _, f := range fields {
		if !IsIdentifier(f.Name) {
			return nil, fmt.Errorf("uxf: invalid field name %q", f.Name)
		}
	}
	return &TClass{TType: ttype, Fields: fields}, nil
}

// IsFieldless reports whether this ttype has zero fields; such tables
// behave as enumerated tags.
func (tc *TClass) IsFieldless() bool {
	return len(tc.Fields) == 0
}

// Equal reports structural identity: same ttype, same field names and
// vtypes in the same order.
func (tc *TClass) Equal(other *TClass) bool {
	if tc.TType != other.TType || len(tc.Fields) != len(other.Fields) {
		return false
	}
	for i, f := range tc.Fields {
		if f != other.Fields[i] {
			return false
		}
	}
	return true
}

// ============================================================
// Table
// ============================================================

// Table is an ordered sequence of fixed-length records conforming to a
// TClass. The TClass is referenced by name and resolved through the
// owning document; cells are stored as one flat vector of
// fields x records values.
type Table struct {
	TType   string
	Comment string
	nfields int
	cells   []*Value
}

// NewTable creates an empty table for the given TClass.
func NewTable(tc *TClass) *Table {
	return &Table{TType: tc.TType, nfields: len(tc.Fields)}
}

// FieldCount returns the number of fields per record.
func (t *Table) FieldCount() int {
	return t.nfields
}

// RecordCount returns the number of complete records.
func (t *Table) RecordCount() int {
	if t.nfields == 0 {
		return 0
	}
	return len(t.cells) / t.nfields
}

// AppendRecord adds one record; the number of values must equal the
// field count.
func (t *Table) AppendRecord(values ...*Value) error {
	if len(values) != t.nfields {
		return fmt.Errorf("uxf: table %s expects %d values per record, got %d",
			t.TType, t.nfields, len(values))
	}
	t.cells = append(t.cells, values...)
	return nil
}

// appendCell adds a single cell; the parser balances record lengths when
// the table closes.
func (t *Table) appendCell(v *Value) {
	t.cells = append(t.cells, v)
}

// Get returns the cell at (row, col).
func (t *Table) Get(row, col int) *Value {
	return t.cells[row*t.nfields+col]
}

// Set replaces the cell at (row, col).
func (t *Table) Set(row, col int, v *Value) {
	t.cells[row*t.nfields+col] = v
}

// RecordAt returns one record as a slice aliasing the cell vector.
func (t *Table) RecordAt(row int) []*Value {
	start := row * t.nfields
	return t.cells[start : start+t.nfields]
}

// Cells returns the flat cell vector in record order.
func (t *Table) Cells() []*Value {
	return t.cells
}

// Equal reports deep equality including record order and comment.
func (t *Table) Equal(other *Table) bool {
	if t.TType != other.TType || t.Comment != other.Comment ||
		t.nfields != other.nfields || len(t.cells) != len(other.cells) {
		return false
	}
	for i, c := range t.cells {
		if !c.Equal(other.cells[i]) {
			return false
		}
	}
	return true
}

// ============================================================
// Uxf Document
// ============================================================

// Uxf is the root of one UXF document: the format version, the optional
// custom header text and file comment, the ttype table, retained import
// directives, and exactly one root collection value.
type Uxf struct {
	Version float64
	Custom  string
	Comment string
	Value   *Value

	tclasses []*TClass
	tindex   map[string]int
	imports  []string          // import sources in directive order
	imported map[string]string // ttype name -> import source
}

// NewUxf creates an empty document whose root is an empty list, the
// canonical minimal payload.
func NewUxf() *Uxf {
	return &Uxf{
		Version:  VERSION,
		Value:    ListValue(NewList("")),
		tindex:   map[string]int{},
		imported: map[string]string{},
	}
}

// AddTClass registers a TClass. Re-adding a structurally identical
// TClass is a no-op; a different TClass under an existing name is a
// conflict error.
func (u *Uxf) AddTClass(tc *TClass) error {
	if u.tindex == nil {
		u.tindex = map[string]int{}
	}
	if i, ok := u.tindex[tc.TType]; ok {
		if u.tclasses[i].Equal(tc) {
			return nil
		}
		return fmt.Errorf("uxf: conflicting definitions of ttype %q",
			tc.TType)
	}
	u.tindex[tc.TType] = len(u.tclasses)
	u.tclasses = append(u.tclasses, tc)
	return nil
}

// replaceTClass overwrites the TClass registered under tc's name,
// keeping its insertion position, or adds it if absent.
func (u *Uxf) replaceTClass(tc *TClass) {
	if i, ok := u.tindex[tc.TType]; ok {
		u.tclasses[i] = tc
		return
	}
	u.tindex[tc.TType] = len(u.tclasses)
	u.tclasses = append(u.tclasses, tc)
}

// TClass returns the TClass registered under name, or nil.
func (u *Uxf) TClass(name string) *TClass {
	if i, ok := u.tindex[name]; ok {
		return u.tclasses[i]
	}
	return nil
}

// TClasses returns all TClasses in insertion order (the order they were
// first declared or imported).
func (u *Uxf) TClasses() []*TClass {
	return u.tclasses
}

// RemoveTClass deletes the TClass registered under name, if any.
func (u *Uxf) RemoveTClass(name string) {
	i, ok := u.tindex[name]
	if !ok {
		return
	}
	u.tclasses = append(u.tclasses[:i], u.tclasses[i+1:]...)
	delete(u.tindex, name)
	delete(u.imported, name)
	for n, j := range u.tindex {
		if j > i {
			u.tindex[n] = j - 1
		}
	}
}

// Imports returns the retained import sources in directive order.
func (u *Uxf) Imports() []string {
	return u.imports
}

// addImport records an import directive and which ttype names it
// supplied, so the writer can re-emit the directive instead of the
// definitions.
func (u *Uxf) addImport(source string, names []string) {
	u.imports = append(u.imports, source)
	if u.imported == nil {
		u.imported = map[string]string{}
	}
	for _, name := range names {
		u.imported[name] = source
	}
}

// ImportSource returns the import source that supplied the named ttype,
// or "" if it was defined locally.
func (u *Uxf) ImportSource(name string) string {
	return u.imported[name]
}

// Equal reports document equality: equal root value structure, equal
// ttypes by name and fields, equal custom text and comments, and equal
// insertion order throughout.
func (u *Uxf) Equal(other *Uxf) bool {
	if u.Custom != other.Custom || u.Comment != other.Comment {
		return false
	}
	if len(u.tclasses) != len(other.tclasses) {
		return false
	}
	for i, tc := range u.tclasses {
		if !tc.Equal(other.tclasses[i]) {
			return false
		}
	}
	return u.Value.Equal(other.Value)
}
