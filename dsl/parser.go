package dsl

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	chartLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{8}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{3})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		// 长度可带单位；x 表示行高倍数
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:px|pt|mm|in|%|x)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=+\-*/%<>!?;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	kinds = newTokenKinds(chartLexer)

	sceneParser = participle.MustBuild[Document](
		participle.Lexer(chartLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node for a chart scene file:
//
//	doc Name v1 { meta {...} resources {...} canvas W H {...} }
type Document struct {
	Pos      lexer.Position `parser:"" json:"-"`
	Name     string         `parser:"Newline* 'doc' @Ident"`
	Version  string         `parser:"@Ident?"`
	Sections []*Section     `parser:"'{' Newline* ( @@ Newline* )* '}' Newline*"`
}

// Section is one of meta, resources or canvas.
type Section struct {
	Meta      *MetaSection      `parser:"  'meta' @@"`
	Resources *ResourcesSection `parser:"| 'resources' @@"`
	Canvas    *CanvasSection    `parser:"| 'canvas' @@"`
}

// Kind returns the section keyword.
func (s *Section) Kind() string {
	switch {
	case s == nil:
	case s.Meta != nil:
		return "meta"
	case s.Resources != nil:
		return "resources"
	case s.Canvas != nil:
		return "canvas"
	}
	return "unknown"
}

type MetaSection struct {
	Block *Block `parser:"@@"`
}

type ResourcesSection struct {
	Block *Block `parser:"@@"`
}

// CanvasSection is the drawing surface: `canvas 400 300 background #fff { ... }`.
type CanvasSection struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Spec  CanvasSpec     `parser:"@@"`
	Block *Block         `parser:"@@"`
}

type CanvasSpec struct {
	Width  string    `parser:"@Number"`
	Height string    `parser:"@Number"`
	Params []*Lexeme `parser:"@@*"`
}

// Block is a braced list of statements separated by newlines or semicolons.
type Block struct {
	Statements []*Statement `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

type Statement struct {
	Assignment *Assignment  `parser:"  @@"`
	Command    *Command     `parser:"| @@"`
	Text       *TextLiteral `parser:"| @@"`
}

// Assignment is `key: value`. The value is a single atom, so several assignments
// may share a line.
type Assignment struct {
	Key   string `parser:"@Ident ':' Newline*"`
	Value *Value `parser:"@@"`
}

// Command is a drawing or resource statement: a name, free-form arguments and an
// optional block.
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Args  []*Lexeme      `parser:"@@*"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

type TextLiteral struct {
	Value StringLiteral `parser:"@String"`
}

// Value is the right-hand side of an assignment.
type Value struct {
	String *StringLiteral `parser:"  @String"`
	Number *string        `parser:"| @Number"`
	Color  *string        `parser:"| @Color"`
	Point  *PointValue    `parser:"| @@"`
	List   *ListValue     `parser:"| @@"`
	Null   bool           `parser:"| @'null'"`
	Ref    *string        `parser:"| @Ident"`
}

// PointValue is a series datum `(x, y)`. `(x, null)` marks a gap.
type PointValue struct {
	X string  `parser:"'(' @Number ','"`
	Y *string `parser:"( @Number | 'null' ) ')'"`
}

// ListValue is `[a, b, c]`; items may also be separated by newlines.
type ListValue struct {
	Items []*Value `parser:"'[' Newline* ( @@ ( ( ',' | Newline+ ) Newline* @@ )* )? Newline* ']'"`
}

// Text returns the value as plain text: strings unquoted, numbers with their unit,
// references by name. Points, lists and null yield "".
func (v *Value) Text() string {
	switch {
	case v == nil:
	case v.String != nil:
		return string(*v.String)
	case v.Number != nil:
		return *v.Number
	case v.Color != nil:
		return *v.Color
	case v.Ref != nil:
		return *v.Ref
	}
	return ""
}

// Values flattens a list into its items; a scalar becomes a one-item slice.
func (v *Value) Values() []*Value {
	switch {
	case v == nil:
		return nil
	case v.List != nil:
		return v.List.Items
	}
	return []*Value{v}
}

// Lexeme is a single raw token in a command's argument list.
type Lexeme struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Raw   string         `json:"raw"`
	Pos   lexer.Position `json:"-"`
}

// Parse implements participle.Parseable. Arguments run until a newline, a brace or ';'.
func (l *Lexeme) Parse(lex *lexer.PeekingLexer) error {
	if kinds.endsArgs(lex.Peek()) {
		return participle.NextMatch
	}
	tok := lex.Next()
	val := tok.Value
	if tok.Type == kinds.str {
		s, err := strconv.Unquote(val)
		if err != nil {
			return fmt.Errorf("%s: 字符串无法解析: %w", tok.Pos, err)
		}
		val = s
	}
	*l = Lexeme{Type: kinds.name(tok.Type), Value: val, Raw: tok.Value, Pos: tok.Pos}
	return nil
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

// Parse parses a chart scene from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return sceneParser.Parse("", r)
}

// ParseString parses a chart scene from a string.
func ParseString(input string) (*Document, error) {
	return sceneParser.ParseString("", input)
}

// Canvas returns the first canvas section of the document, or nil.
func (d *Document) Canvas() *CanvasSection {
	if d == nil {
		return nil
	}
	for _, section := range d.Sections {
		if section.Canvas != nil {
			return section.Canvas
		}
	}
	return nil
}

// Size parses the canvas width and height, accepting an optional px suffix.
func (s CanvasSpec) Size() (float64, float64, error) {
	w, err := strconv.ParseFloat(strings.TrimSuffix(s.Width, "px"), 64)
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("canvas 宽度无效：%s", s.Width)
	}
	h, err := strconv.ParseFloat(strings.TrimSuffix(s.Height, "px"), 64)
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("canvas 高度无效：%s", s.Height)
	}
	return w, h, nil
}

// tokenKinds caches the lexer's token types the hand-written atoms care about.
type tokenKinds struct {
	names                                map[lexer.TokenType]string
	newline, lbrace, rbrace, symbol, str lexer.TokenType
}

func newTokenKinds(def lexer.Definition) tokenKinds {
	k := tokenKinds{names: map[lexer.TokenType]string{}}
	for name, tt := range def.Symbols() {
		k.names[tt] = name
		switch name {
		case "Newline":
			k.newline = tt
		case "LBrace":
			k.lbrace = tt
		case "RBrace":
			k.rbrace = tt
		case "Symbol":
			k.symbol = tt
		case "String":
			k.str = tt
		}
	}
	return k
}

func (k tokenKinds) name(tt lexer.TokenType) string {
	if name, ok := k.names[tt]; ok {
		return name
	}
	return fmt.Sprintf("#%d", tt)
}

func (k tokenKinds) endsArgs(tok *lexer.Token) bool {
	if tok == nil || tok.EOF() {
		return true
	}
	switch tok.Type {
	case k.newline, k.lbrace, k.rbrace:
		return true
	case k.symbol:
		return tok.Value == ";"
	}
	return false
}
