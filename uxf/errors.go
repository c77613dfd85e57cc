package uxf

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Diagnostic codes. Codes are stable strings prefixed by phase; warnings
// use the W- prefix and never abort a load on their own.
const (
	CodeLexHeader  = "E-LEX-HEADER"  // missing or malformed uxf header line
	CodeLexChar    = "E-LEX-CHAR"    // invalid character in input
	CodeLexString  = "E-LEX-STRING"  // unterminated or malformed <...> string
	CodeLexEntity  = "E-LEX-ENTITY"  // bad &-entity inside a string
	CodeLexBytes   = "E-LEX-BYTES"   // malformed (:...:) bytes literal
	CodeLexNumber  = "E-LEX-NUMBER"  // malformed numeric literal
	CodeLexIdent   = "E-LEX-IDENT"   // malformed or over-long identifier
	CodeLexComment = "E-LEX-COMMENT" // comment in an illegal position

	CodeParseExpected = "E-PARSE-EXPECTED"  // unexpected token
	CodeParseRoot     = "E-PARSE-ROOT"      // missing or invalid top-level value
	CodeParseMapOdd   = "E-PARSE-MAP-ODD"   // key with no value inside a map
	CodeParseMapKey   = "E-PARSE-MAP-KEY"   // illegal map key kind
	CodeParseTableLen = "E-PARSE-TABLE-LEN" // table values not a multiple of the field count

	CodeTypeMismatch = "E-TYPE-MISMATCH" // value not assignable to a typed slot
	CodeTypeUnknown  = "E-TYPE-UNKNOWN"  // unknown type name
	CodeTypeReserved = "E-TYPE-RESERVED" // reserved word used as an identifier
	CodeTypeConflict = "E-TYPE-CONFLICT" // conflicting ttype definitions
	CodeTypeKey      = "E-TYPE-KEY"      // map key does not match the map's ktype

	CodeImpNotFound = "E-IMP-NOTFOUND" // import not found on any search path
	CodeImpCycle    = "E-IMP-CYCLE"    // circular import
	CodeImpFetch    = "E-IMP-FETCH"    // network failure fetching an import
	CodeImpGzip     = "E-IMP-GZIP"     // gzip failure reading an import
	CodeImpConflict = "E-IMP-CONFLICT" // name collision across imports

	CodeRangeDate = "E-RANGE-DATE" // date/time component out of range
	CodeRangeInt  = "E-RANGE-INT"  // integer overflow

	CodeWarnVersion = "W-LEX-VERSION"  // file version newer than this implementation
	CodeWarnDupKey  = "W-PARSE-DUPKEY" // duplicate key within one map literal
	CodeWarnCoerced = "W-TYPE-COERCED" // value mutated by fix-types repair
	CodeWarnUnused  = "W-TYPE-UNUSED"  // ttype defined but never used
)

// Error is a single diagnostic from any phase of a load or dump.
// Line is 1-based, 0 if unknown; Filename is "-" for in-memory input.
type Error struct {
	Line     int
	Code     string
	Message  string
	Filename string
	Fatal    bool
}

func (e *Error) Error() string {
	filename := e.Filename
	if filename == "" {
		filename = "-"
	}
	return fmt.Sprintf("%s:%d:%s: %s", filename, e.Line, e.Code, e.Message)
}

// IsWarning reports whether this diagnostic is a warning.
func (e *Error) IsWarning() bool {
	return strings.HasPrefix(e.Code, "W-")
}

// ErrorHandler receives every diagnostic produced during a load or dump.
// Returning a non-nil error aborts the operation; the default handler
// returns the diagnostic itself when it is fatal. A handler must be safe
// for concurrent use if documents are loaded on multiple goroutines.
type ErrorHandler func(*Error) error

// DefaultErrorHandler logs each diagnostic to stderr through logrus and
// aborts on fatal errors.
func DefaultErrorHandler(err *Error) error {
	entry := logrus.WithFields(logrus.Fields{
		"file": err.Filename,
		"line": err.Line,
		"code": err.Code,
	})
	if err.IsWarning() {
		entry.Warn(err.Message)
		return nil
	}
	entry.Error(err.Message)
	if err.Fatal {
		return err
	}
	return nil
}

// CollectingHandler returns a handler that appends every diagnostic to
// errs. Fatal errors still abort the load, so partial results remain
// consistent; everything reported before the abort is retained.
func CollectingHandler(errs *[]*Error) ErrorHandler {
	return func(err *Error) error {
		*errs = append(*errs, err)
		if err.Fatal && !err.IsWarning() {
			return err
		}
		return nil
	}
}
