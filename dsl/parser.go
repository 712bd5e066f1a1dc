package dsl

import (
	"fmt"
	"io"
	"strconv"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	sheetLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:in|pt|px)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Punct", Pattern: `[{}:;]`},
	})

	sheetParser = participle.MustBuild[Sheet](
		participle.Lexer(sheetLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Sheet is the root AST node for a sheet definition file.
type Sheet struct {
	Pos    lexer.Position `parser:"" json:"-"`
	Name   string         `parser:"Newline* 'sheet' @String '{' Newline*"`
	Groups []*GroupDecl   `parser:"( @@ Newline* )* '}' Newline*"`
}

// GroupDecl declares one barcode group as a block of key/value entries.
type GroupDecl struct {
	Pos     lexer.Position `parser:"" json:"-"`
	Entries []*Entry       `parser:"'group' '{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Entry is a single key: value assignment inside a group block.
type Entry struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident ':'"`
	Value *Value         `parser:"@@"`
}

// Value is either a quoted string or a number token (optionally carrying a
// length unit suffix, preserved verbatim for the layout layer to parse).
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
}

// StringValue returns the entry's value as a string, failing for numbers.
func (e *Entry) StringValue() (string, error) {
	if e.Value == nil || e.Value.String == nil {
		return "", fmt.Errorf("%s: expected quoted string", e.Pos)
	}
	return string(*e.Value.String), nil
}

// RawValue returns the entry's value as its raw token text: the unquoted
// string or the number token including any unit suffix.
func (e *Entry) RawValue() (string, error) {
	switch {
	case e.Value == nil:
		return "", fmt.Errorf("%s: missing value", e.Pos)
	case e.Value.String != nil:
		return string(*e.Value.String), nil
	case e.Value.Number != nil:
		return *e.Value.Number, nil
	default:
		return "", fmt.Errorf("%s: missing value", e.Pos)
	}
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// Parse parses a sheet definition from an io.Reader.
func Parse(r io.Reader) (*Sheet, error) {
	return sheetParser.Parse("", r)
}

// ParseString parses a sheet definition from a string.
func ParseString(input string) (*Sheet, error) {
	return sheetParser.ParseString("", input)
}
