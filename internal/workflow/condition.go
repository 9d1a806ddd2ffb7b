package workflow

import (
	"fmt"
	"strconv"
	"strings"
)

// EventContext exposes the trigger event to condition expressions. A
// missing value resolves to the empty string, so conditions over absent
// commit messages evaluate without error.
type EventContext struct {
	EventName     string
	Ref           string
	RefName       string
	CommitMessage string
}

func (c *EventContext) resolve(path string) string {
	switch path {
	case "github.event_name":
		return c.EventName
	case "github.ref":
		return c.Ref
	case "github.ref_name":
		return c.RefName
	case "github.event.head_commit.message":
		return c.CommitMessage
	}
	return ""
}

var knownPaths = map[string]bool{
	"github.event_name":                true,
	"github.ref":                       true,
	"github.ref_name":                  true,
	"github.event.head_commit.message": true,
}

// Condition is a parsed job or step gate. The grammar covers the
// expression subset manifests use for gating: string and boolean
// literals, !, && and || with grouping, == and !=, and the contains,
// startsWith and endsWith functions over event context paths. String
// comparisons are case-insensitive.
type Condition struct {
	source string
	root   condExpr
}

// ParseCondition parses an if: expression. A surrounding ${{ }} wrapper
// is accepted and stripped. Unknown context paths and functions are
// rejected here, so a parsed condition always evaluates.
func ParseCondition(raw string) (*Condition, error) {
	src := stripExprWrapper(raw)
	if src == "" {
		return nil, fmt.Errorf("empty condition")
	}
	tokens, err := lexCondition(src)
	if err != nil {
		return nil, err
	}
	p := &condParser{tokens: tokens}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("unexpected %q", p.tokens[p.pos].text)
	}
	return &Condition{source: raw, root: root}, nil
}

// Eval decides the condition against an event. The result is total:
// every parsed condition evaluates to true or false for every event.
func (c *Condition) Eval(ctx *EventContext) bool {
	return truthy(c.root.eval(ctx))
}

func (c *Condition) String() string {
	return c.source
}

func stripExprWrapper(s string) string {
	t := strings.TrimSpace(s)
	if strings.HasPrefix(t, "${{") && strings.HasSuffix(t, "}}") && !strings.Contains(t[3:len(t)-2], "${{") {
		return strings.TrimSpace(t[3 : len(t)-2])
	}
	return t
}

// truthy follows expression semantics: booleans as themselves, strings
// by non-emptiness.
func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	}
	return false
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

type condExpr interface {
	eval(ctx *EventContext) any
}

type litExpr struct {
	value any
}

func (e *litExpr) eval(*EventContext) any { return e.value }

type pathExpr struct {
	path string
}

func (e *pathExpr) eval(ctx *EventContext) any { return ctx.resolve(e.path) }

type notExpr struct {
	operand condExpr
}

func (e *notExpr) eval(ctx *EventContext) any { return !truthy(e.operand.eval(ctx)) }

type binExpr struct {
	op          string
	left, right condExpr
}

func (e *binExpr) eval(ctx *EventContext) any {
	switch e.op {
	case "&&":
		return truthy(e.left.eval(ctx)) && truthy(e.right.eval(ctx))
	case "||":
		return truthy(e.left.eval(ctx)) || truthy(e.right.eval(ctx))
	case "==":
		return strings.EqualFold(asString(e.left.eval(ctx)), asString(e.right.eval(ctx)))
	case "!=":
		return !strings.EqualFold(asString(e.left.eval(ctx)), asString(e.right.eval(ctx)))
	}
	return false
}

type callExpr struct {
	fn   string
	args []condExpr
}

func (e *callExpr) eval(ctx *EventContext) any {
	a := strings.ToLower(asString(e.args[0].eval(ctx)))
	b := strings.ToLower(asString(e.args[1].eval(ctx)))
	switch e.fn {
	case "contains":
		return strings.Contains(a, b)
	case "startsWith":
		return strings.HasPrefix(a, b)
	case "endsWith":
		return strings.HasSuffix(a, b)
	}
	return false
}

type condTokenKind int

const (
	tokenIdent condTokenKind = iota
	tokenString
	tokenLParen
	tokenRParen
	tokenComma
	tokenNot
	tokenAnd
	tokenOr
	tokenEq
	tokenNe
)

type condToken struct {
	kind condTokenKind
	text string
}

func lexCondition(src string) ([]condToken, error) {
	var tokens []condToken
	i := 0
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			i++
		case ch == '(':
			tokens = append(tokens, condToken{tokenLParen, "("})
			i++
		case ch == ')':
			tokens = append(tokens, condToken{tokenRParen, ")"})
			i++
		case ch == ',':
			tokens = append(tokens, condToken{tokenComma, ","})
			i++
		case ch == '!':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, condToken{tokenNe, "!="})
				i += 2
			} else {
				tokens = append(tokens, condToken{tokenNot, "!"})
				i++
			}
		case ch == '=':
			if i+1 < len(src) && src[i+1] == '=' {
				tokens = append(tokens, condToken{tokenEq, "=="})
				i += 2
			} else {
				return nil, fmt.Errorf("single = at offset %d, use ==", i)
			}
		case ch == '&':
			if i+1 < len(src) && src[i+1] == '&' {
				tokens = append(tokens, condToken{tokenAnd, "&&"})
				i += 2
			} else {
				return nil, fmt.Errorf("single & at offset %d, use &&", i)
			}
		case ch == '|':
			if i+1 < len(src) && src[i+1] == '|' {
				tokens = append(tokens, condToken{tokenOr, "||"})
				i += 2
			} else {
				return nil, fmt.Errorf("single | at offset %d, use ||", i)
			}
		case ch == '\'':
			text, rest, err := lexString(src[i:])
			if err != nil {
				return nil, fmt.Errorf("%w at offset %d", err, i)
			}
			tokens = append(tokens, condToken{tokenString, text})
			i += rest
		case isIdentStart(ch):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, condToken{tokenIdent, src[start:i]})
		default:
			return nil, fmt.Errorf("unexpected character %q at offset %d", ch, i)
		}
	}
	return tokens, nil
}

// lexString reads a single-quoted literal where a doubled quote
// escapes a quote, returning the text and bytes consumed.
func lexString(src string) (string, int, error) {
	var b strings.Builder
	i := 1
	for i < len(src) {
		if src[i] == '\'' {
			if i+1 < len(src) && src[i+1] == '\'' {
				b.WriteByte('\'')
				i += 2
				continue
			}
			return b.String(), i + 1, nil
		}
		b.WriteByte(src[i])
		i++
	}
	return "", 0, fmt.Errorf("unterminated string")
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch == '.' || ch == '-' || (ch >= '0' && ch <= '9')
}

type condParser struct {
	tokens []condToken
	pos    int
}

func (p *condParser) peek() (condToken, bool) {
	if p.pos >= len(p.tokens) {
		return condToken{}, false
	}
	return p.tokens[p.pos], true
}

func (p *condParser) parseOr() (condExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenOr {
			return left, nil
		}
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op: "||", left: left, right: right}
	}
}

func (p *condParser) parseAnd() (condExpr, error) {
	left, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for {
		tok, ok := p.peek()
		if !ok || tok.kind != tokenAnd {
			return left, nil
		}
		p.pos++
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		left = &binExpr{op: "&&", left: left, right: right}
	}
}

func (p *condParser) parseEquality() (condExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	tok, ok := p.peek()
	if !ok || (tok.kind != tokenEq && tok.kind != tokenNe) {
		return left, nil
	}
	p.pos++
	right, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &binExpr{op: tok.text, left: left, right: right}, nil
}

func (p *condParser) parseUnary() (condExpr, error) {
	tok, ok := p.peek()
	if ok && tok.kind == tokenNot {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &notExpr{operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *condParser) parsePrimary() (condExpr, error) {
	tok, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("unexpected end of condition")
	}
	switch tok.kind {
	case tokenLParen:
		p.pos++
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		next, ok := p.peek()
		if !ok || next.kind != tokenRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	case tokenString:
		p.pos++
		return &litExpr{value: tok.text}, nil
	case tokenIdent:
		p.pos++
		switch tok.text {
		case "true":
			return &litExpr{value: true}, nil
		case "false":
			return &litExpr{value: false}, nil
		}
		if next, ok := p.peek(); ok && next.kind == tokenLParen {
			return p.parseCall(tok.text)
		}
		if !knownPaths[tok.text] {
			return nil, fmt.Errorf("unsupported context path %q", tok.text)
		}
		return &pathExpr{path: tok.text}, nil
	default:
		return nil, fmt.Errorf("unexpected %q", tok.text)
	}
}

func (p *condParser) parseCall(fn string) (condExpr, error) {
	switch fn {
	case "contains", "startsWith", "endsWith":
	default:
		return nil, fmt.Errorf("unsupported function %q", fn)
	}
	p.pos++ // consume (
	var args []condExpr
	for {
		arg, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		tok, ok := p.peek()
		if !ok {
			return nil, fmt.Errorf("%s: missing closing parenthesis", fn)
		}
		if tok.kind == tokenComma {
			p.pos++
			continue
		}
		if tok.kind == tokenRParen {
			p.pos++
			break
		}
		return nil, fmt.Errorf("%s: unexpected %q", fn, tok.text)
	}
	if len(args) != 2 {
		return nil, fmt.Errorf("%s expects 2 arguments, got %d", fn, len(args))
	}
	return &callExpr{fn: fn, args: args}, nil
}
