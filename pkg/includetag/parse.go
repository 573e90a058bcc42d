package includetag

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/scope"
)

// Binding is one name:value pair of an include tag.
type Binding struct {
	Name string
	Expr pongo2.IEvaluator

	src        string
	nilLiteral bool   // value is the nil keyword
	variable   string // value is a bare variable reference
}

// String returns the source text of the binding's value.
func (b Binding) String() string {
	return b.src
}

func (b Binding) mayBeNil(s *scope.Scope) bool {
	if b.nilLiteral {
		return true
	}
	if b.variable == "" {
		return false
	}
	_, defined := s.Get(b.variable)
	return defined
}

// Instruction is the compiled form of one include tag. It is immutable once
// parsed and safe to render concurrently.
type Instruction struct {
	partial    pongo2.IEvaluator
	partialSrc string
	bindings   []Binding
	source     string
	filename   string
	line, col  int
}

// Parse is the pongo2.TagParser for the include tag.
func Parse(_ *pongo2.Parser, start *pongo2.Token, args *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	tokens := make([]*pongo2.Token, 0, args.Count())
	for i := 0; i < args.Count(); i++ {
		tokens = append(tokens, args.Get(i))
	}

	in := &Instruction{source: "{% " + TagName + " " + sourceText(tokens) + " %}"}
	if len(tokens) == 0 {
		in.source = "{% " + TagName + " %}"
	}
	if start != nil {
		in.filename, in.line, in.col = start.Filename, start.Line, start.Col
	}

	if err := in.parseArguments(args, tokens); err != nil {
		err.Frames = append(err.Frames, in.frame(""))
		return nil, toPongo(err)
	}
	return in, nil
}

func (in *Instruction) parseArguments(args *pongo2.Parser, tokens []*pongo2.Token) *Error {
	if args.Remaining() == 0 {
		return &Error{Kind: KindMissingArgument, Msg: "identifier or literal expected"}
	}

	begin := consumed(args)
	expr, perr := args.ParseExpression()
	if perr != nil {
		return &Error{
			Kind: KindInvalidExpression,
			Msg:  "invalid partial name expression",
			Expr: tokenText(tokens[begin]),
			Err:  perr,
		}
	}
	in.partial = expr
	in.partialSrc = sourceText(tokens[begin:consumed(args)])

	for args.Remaining() > 0 {
		keyTok := args.Current()
		key := args.MatchType(pongo2.TokenIdentifier)
		if key == nil {
			return &Error{
				Kind: KindInvalidIdentifier,
				Msg:  fmt.Sprintf("expected identifier, found %s", tokenText(keyTok)),
			}
		}

		if args.Match(pongo2.TokenSymbol, ":") == nil {
			return &Error{
				Kind:    KindInvalidSyntax,
				Msg:     `expected ":" to be used for the assignment`,
				Binding: key.Val,
			}
		}

		if args.Remaining() == 0 {
			return &Error{Kind: KindMissingArgument, Msg: "expected value", Binding: key.Val}
		}

		begin = consumed(args)
		val, perr := args.ParseExpression()
		if perr != nil {
			return &Error{
				Kind:    KindInvalidExpression,
				Msg:     "invalid binding value",
				Binding: key.Val,
				Expr:    tokenText(tokens[begin]),
				Err:     perr,
			}
		}
		valTokens := tokens[begin:consumed(args)]
		b := Binding{
			Name: key.Val,
			Expr: val,
			src:  sourceText(valTokens),
		}
		if len(valTokens) == 1 {
			tok := valTokens[0]
			switch {
			case tok.Typ == pongo2.TokenNil, tok.Typ == pongo2.TokenIdentifier && tok.Val == "nil":
				b.nilLiteral = true
			case tok.Typ == pongo2.TokenIdentifier:
				b.variable = tok.Val
			}
		}
		in.bindings = append(in.bindings, b)
	}
	return nil
}

// String returns the tag's source text.
func (in *Instruction) String() string {
	return in.source
}

// PartialExpr returns the source text of the partial name expression.
func (in *Instruction) PartialExpr() string {
	return in.partialSrc
}

// Bindings returns the name:value pairs in the order they were written.
func (in *Instruction) Bindings() []Binding {
	out := make([]Binding, len(in.bindings))
	copy(out, in.bindings)
	return out
}

func (in *Instruction) frame(partial string) Frame {
	return Frame{
		Tag:      in.source,
		Partial:  partial,
		Filename: in.filename,
		Line:     in.line,
		Col:      in.col,
	}
}

func consumed(p *pongo2.Parser) int {
	return p.Count() - p.Remaining()
}

func sourceText(tokens []*pongo2.Token) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !joinsLeft(tok) && !joinsRight(tokens[i-1]) {
			b.WriteByte(' ')
		}
		b.WriteString(tokenText(tok))
	}
	return b.String()
}

func tokenText(tok *pongo2.Token) string {
	if tok == nil {
		return "end of tag"
	}
	if tok.Typ == pongo2.TokenString {
		if !strings.Contains(tok.Val, "'") {
			return "'" + tok.Val + "'"
		}
		return strconv.Quote(tok.Val)
	}
	return tok.Val
}

func joinsLeft(tok *pongo2.Token) bool {
	if tok.Typ != pongo2.TokenSymbol {
		return false
	}
	switch tok.Val {
	case ".", ":", ")", "]", ",":
		return true
	}
	return false
}

func joinsRight(tok *pongo2.Token) bool {
	if tok.Typ != pongo2.TokenSymbol {
		return false
	}
	switch tok.Val {
	case ".", ":", "(", "[":
		return true
	}
	return false
}
