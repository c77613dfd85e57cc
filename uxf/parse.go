package uxf

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// ParseOptions configures a load.
type ParseOptions struct {
	// Filename is used in diagnostics and as the base for relative
	// imports; "-" (the default) means in-memory input.
	Filename string

	// OnError receives every diagnostic; nil means DefaultErrorHandler.
	OnError ErrorHandler

	// FixTypes repairs convertible type mismatches (int<->real, str via
	// Naturalize) with a warning instead of reporting an error.
	FixTypes bool

	// DropUnused removes ttypes that are never used instead of only
	// warning about them.
	DropUnused bool

	// ImportTimeout bounds each HTTP(S) import fetch; 0 means 30s.
	ImportTimeout time.Duration

	resolver *importResolver // shared across recursive import loads
	noUnused bool            // imported documents skip unused-ttype warnings
}

// Parse reads UXF text into a document with default options.
func Parse(text string) (*Uxf, error) {
	return ParseWithOptions(text, ParseOptions{})
}

// ParseWithOptions reads UXF text into a document. The returned document
// has been validated; diagnostics went to the error handler and the
// first fatal one is returned.
func ParseWithOptions(text string, opts ParseOptions) (*Uxf, error) {
	if opts.Filename == "" {
		opts.Filename = "-"
	}
	if opts.OnError == nil {
		opts.OnError = DefaultErrorHandler
	}
	if opts.resolver == nil {
		opts.resolver = newImportResolver(opts.ImportTimeout)
	}

	if !utf8.ValidString(text) {
		err := &Error{
			Line: 1, Code: CodeLexChar,
			Message:  "input is not valid UTF-8",
			Filename: opts.Filename, Fatal: true,
		}
		opts.OnError(err)
		return nil, err
	}

	lexer := NewLexer(text, opts.Filename, opts.OnError)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	uxf := NewUxf()
	uxf.Version = lexer.Version()
	uxf.Custom = lexer.Custom()

	p := &parser{
		stream: NewTokenStream(tokens),
		uxf:    uxf,
		opts:   opts,
	}
	if err := p.parse(); err != nil {
		return nil, err
	}

	if err := uxf.Validate(ValidateOptions{
		Filename:   opts.Filename,
		OnError:    opts.OnError,
		FixTypes:   opts.FixTypes,
		DropUnused: opts.DropUnused,
		noUnused:   opts.noUnused,
	}); err != nil {
		return nil, err
	}
	return uxf, nil
}

// parser builds a Uxf document from a token stream. Diagnostics are
// passed to the error handler rather than raised through the descent, so
// a handler that swallows non-fatal errors keeps the parse going.
type parser struct {
	stream *TokenStream
	uxf    *Uxf
	opts   ParseOptions
}

// parse consumes the body: optional file comment, imports, ttype
// definitions, then exactly one root collection.
func (p *parser) parse() error {
	if p.stream.Peek().Type == TokenComment {
		p.uxf.Comment = p.stream.Advance().Text
	}
	for p.stream.Peek().Type == TokenImport {
		tok := p.stream.Advance()
		if err := p.resolveImport(tok); err != nil {
			return err
		}
	}
	for p.stream.Peek().Type == TokenTTypeBegin {
		if err := p.parseTTypeDef(); err != nil {
			return err
		}
	}

	tok := p.stream.Peek()
	switch tok.Type {
	case TokenMapOpen, TokenListOpen, TokenTableOpen:
	case TokenEOF:
		return p.fail(tok.Line, CodeParseRoot,
			"missing top-level value: expected a map, list, or table")
	default:
		return p.fail(tok.Line, CodeParseRoot,
			"the top-level value must be a map, list, or table, got %s", tok)
	}
	value, err := p.parseValue()
	if err != nil {
		return err
	}
	p.uxf.Value = value

	if tok := p.stream.Peek(); tok.Type != TokenEOF {
		return p.fail(tok.Line, CodeParseExpected,
			"expected end of input after the top-level value, got %s", tok)
	}
	return nil
}

// parseTTypeDef consumes one = definition: an optional comment, the
// ttype name, then zero or more fields.
func (p *parser) parseTTypeDef() error {
	p.stream.Advance() // consume =
	comment := ""
	if p.stream.Peek().Type == TokenComment {
		comment = p.stream.Advance().Text
	}

	nameTok := p.stream.Peek()
	switch nameTok.Type {
	case TokenIdent:
	case TokenTypeName, TokenBool:
		return p.fail(nameTok.Line, CodeTypeReserved,
			"a reserved word cannot name a ttype: %s", nameTok)
	default:
		return p.fail(nameTok.Line, CodeParseExpected,
			"expected a ttype name, got %s", nameTok)
	}
	p.stream.Advance()

	var fields []Field
	seen := map[string]bool{}
	for {
		tok := p.stream.Peek()
		if tok.Type == TokenTypeName || tok.Type == TokenBool {
			return p.fail(tok.Line, CodeTypeReserved,
				"a reserved word cannot name a field: %s", tok)
		}
		if tok.Type != TokenIdent {
			break
		}
		p.stream.Advance()
		field := Field{Name: tok.Text}
		if p.stream.Match(TokenColon) {
			vtok := p.stream.Peek()
			switch vtok.Type {
			case TokenTypeName, TokenIdent:
				field.VType = vtok.Text
				p.stream.Advance()
			default:
				return p.fail(vtok.Line, CodeParseExpected,
					"expected a field type after :, got %s", vtok)
			}
		}
		if seen[field.Name] {
			return p.fail(tok.Line, CodeTypeConflict,
				"duplicate field %q in ttype %s", field.Name, nameTok.Text)
		}
		seen[field.Name] = true
		fields = append(fields, field)
	}

	tc := &TClass{TType: nameTok.Text, Fields: fields, Comment: comment}
	return p.defineTClass(tc, nameTok.Line)
}

// defineTClass registers a locally defined TClass. A definition replaces
// an imported ttype of the same name; redefining a local ttype is a
// conflict unless the definitions are structurally identical.
func (p *parser) defineTClass(tc *TClass, line int) error {
	existing := p.uxf.TClass(tc.TType)
	if existing == nil {
		return p.uxf.AddTClass(tc)
	}
	if p.uxf.ImportSource(tc.TType) != "" {
		p.uxf.replaceTClass(tc)
		delete(p.uxf.imported, tc.TType)
		return nil
	}
	if existing.Equal(tc) {
		return nil
	}
	return p.fail(line, CodeTypeConflict,
		"conflicting definitions of ttype %q", tc.TType)
}

// resolveImport loads the directive's source and merges its ttypes.
func (p *parser) resolveImport(tok Token) error {
	imported, err := p.opts.resolver.resolve(tok.Text, p.opts, tok.Line)
	if err != nil {
		return err
	}
	var names []string
	for _, tc := range imported.TClasses() {
		existing := p.uxf.TClass(tc.TType)
		if existing != nil {
			if existing.Equal(tc) {
				continue // structurally identical duplicates coalesce
			}
			return p.fail(tok.Line, CodeImpConflict,
				"import %q redefines ttype %q differently", tok.Text,
				tc.TType)
		}
		if err := p.uxf.AddTClass(tc); err != nil {
			return p.fail(tok.Line, CodeImpConflict, "%s", err)
		}
		names = append(names, tc.TType)
	}
	p.uxf.addImport(tok.Text, names)
	return nil
}

// parseValue parses any value.
func (p *parser) parseValue() (*Value, error) {
	tok := p.stream.Peek()
	switch tok.Type {
	case TokenNull:
		p.stream.Advance()
		return p.at(Null(), tok), nil
	case TokenBool:
		p.stream.Advance()
		return p.at(Bool(tok.Bool), tok), nil
	case TokenInt:
		p.stream.Advance()
		return p.at(Int(tok.Int), tok), nil
	case TokenReal:
		p.stream.Advance()
		return p.at(Real(tok.Real), tok), nil
	case TokenDate:
		p.stream.Advance()
		return p.at(Date(tok.Time), tok), nil
	case TokenDateTime:
		p.stream.Advance()
		if tok.TZ {
			return p.at(DateTime(tok.Time), tok), nil
		}
		return p.at(NaiveDateTime(tok.Time), tok), nil
	case TokenStr:
		p.stream.Advance()
		return p.at(Str(tok.Text), tok), nil
	case TokenBytes:
		p.stream.Advance()
		return p.at(Bytes(tok.Bytes), tok), nil
	case TokenListOpen:
		return p.parseList()
	case TokenMapOpen:
		return p.parseMap()
	case TokenTableOpen:
		return p.parseTable()
	default:
		return nil, p.fail(tok.Line, CodeParseExpected,
			"expected a value, got %s", tok)
	}
}

// at stamps a parsed value with its source line.
func (p *parser) at(v *Value, tok Token) *Value {
	v.line = tok.Line
	return v
}

// parseList parses [ comment? vtype? value* ].
func (p *parser) parseList() (*Value, error) {
	open := p.stream.Advance()
	list := NewList("")
	if p.stream.Peek().Type == TokenComment {
		list.Comment = p.stream.Advance().Text
	}
	if tok := p.stream.Peek(); tok.Type == TokenTypeName ||
		tok.Type == TokenIdent {
		list.VType = tok.Text
		p.stream.Advance()
	}
	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenListClose:
			p.stream.Advance()
			return p.at(ListValue(list), open), nil
		case TokenEOF:
			return nil, p.fail(open.Line, CodeParseExpected,
				"unterminated list")
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		list.Append(value)
	}
}

// parseMap parses { comment? (ktype vtype?)? (key value)* }. Keys and
// values alternate strictly.
func (p *parser) parseMap() (*Value, error) {
	open := p.stream.Advance()
	m := NewMap("", "")
	if p.stream.Peek().Type == TokenComment {
		m.Comment = p.stream.Advance().Text
	}
	if tok := p.stream.Peek(); tok.Type == TokenTypeName {
		if !ktypeNames[tok.Text] {
			return nil, p.fail(tok.Line, CodeParseExpected,
				"a map's key type must be one of bytes, date, datetime, "+
					"int, or str, got %s", tok.Text)
		}
		m.KType = tok.Text
		p.stream.Advance()
		if vtok := p.stream.Peek(); vtok.Type == TokenTypeName ||
			vtok.Type == TokenIdent {
			m.VType = vtok.Text
			p.stream.Advance()
		}
	}
	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenMapClose:
			p.stream.Advance()
			return p.at(MapValue(m), open), nil
		case TokenEOF:
			return nil, p.fail(open.Line, CodeParseExpected,
				"unterminated map")
		}

		key, err := p.parseMapKey()
		if err != nil {
			return nil, err
		}

		vtok := p.stream.Peek()
		switch vtok.Type {
		case TokenMapClose:
			return nil, p.fail(vtok.Line, CodeParseMapOdd,
				"map key at line %d has no value", key.Line())
		case TokenEOF:
			return nil, p.fail(open.Line, CodeParseExpected,
				"unterminated map")
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		if m.Set(key, value) {
			if err := p.warn(key.Line(), CodeWarnDupKey,
				"duplicate map key overwrites the earlier value"); err != nil {
				return nil, err
			}
		}
	}
}

// parseMapKey accepts only the key kinds: int, date, datetime, str, and
// bytes.
func (p *parser) parseMapKey() (*Value, error) {
	tok := p.stream.Peek()
	switch tok.Type {
	case TokenInt:
		p.stream.Advance()
		return p.at(Int(tok.Int), tok), nil
	case TokenDate:
		p.stream.Advance()
		return p.at(Date(tok.Time), tok), nil
	case TokenDateTime:
		p.stream.Advance()
		if tok.TZ {
			return p.at(DateTime(tok.Time), tok), nil
		}
		return p.at(NaiveDateTime(tok.Time), tok), nil
	case TokenStr:
		p.stream.Advance()
		return p.at(Str(tok.Text), tok), nil
	case TokenBytes:
		p.stream.Advance()
		return p.at(Bytes(tok.Bytes), tok), nil
	default:
		return nil, p.fail(tok.Line, CodeParseMapKey,
			"map keys may only be int, date, datetime, str, or bytes, "+
				"got %s", tok)
	}
}

// parseTable parses ( comment? ttype value* ). The value count must be a
// multiple of the ttype's field count; fieldless tables accept zero
// values only.
func (p *parser) parseTable() (*Value, error) {
	open := p.stream.Advance()
	comment := ""
	if p.stream.Peek().Type == TokenComment {
		comment = p.stream.Advance().Text
	}

	nameTok := p.stream.Peek()
	switch nameTok.Type {
	case TokenIdent:
	case TokenTypeName, TokenBool:
		return nil, p.fail(nameTok.Line, CodeTypeReserved,
			"a reserved word cannot name a ttype: %s", nameTok)
	default:
		return nil, p.fail(nameTok.Line, CodeParseExpected,
			"expected a ttype name after (, got %s", nameTok)
	}
	p.stream.Advance()

	tc := p.uxf.TClass(nameTok.Text)
	if tc == nil {
		return nil, p.fail(nameTok.Line, CodeTypeUnknown,
			"unknown ttype %q", nameTok.Text)
	}
	table := NewTable(tc)
	table.Comment = comment

	for {
		tok := p.stream.Peek()
		switch tok.Type {
		case TokenTableClose:
			p.stream.Advance()
			if err := p.checkTableLen(table, tc, open.Line); err != nil {
				return nil, err
			}
			return p.at(TableValue(table), open), nil
		case TokenEOF:
			return nil, p.fail(open.Line, CodeParseExpected,
				"unterminated table")
		}
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		table.appendCell(value)
	}
}

func (p *parser) checkTableLen(table *Table, tc *TClass, line int) error {
	n := len(table.cells)
	if tc.IsFieldless() {
		if n > 0 {
			return p.fail(line, CodeParseTableLen,
				"fieldless table %s accepts no values, got %d", tc.TType, n)
		}
		return nil
	}
	if n%len(tc.Fields) != 0 {
		return p.fail(line, CodeParseTableLen,
			"table %s holds %d values which is not a multiple of its %d "+
				"fields", tc.TType, n, len(tc.Fields))
	}
	return nil
}

// Error plumbing

// fail reports a fatal diagnostic. The parse always aborts on fatal
// errors; the handler only controls how they are surfaced.
func (p *parser) fail(line int, code, format string, args ...any) error {
	err := &Error{
		Line:     line,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Filename: p.opts.Filename,
		Fatal:    true,
	}
	p.opts.OnError(err)
	return err
}

func (p *parser) warn(line int, code, format string, args ...any) error {
	return p.opts.OnError(&Error{
		Line:     line,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Filename: p.opts.Filename,
	})
}
