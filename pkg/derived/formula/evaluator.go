package formula

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Program is a compiled arithmetic formula.
//
// Supported syntax:
// - numbers: `10`, `4.5`, `.5`
// - field references by label: `{Birth Year}`
// - bare identifiers, resolved by the caller: `price`
// - operators `+ - * /` with the usual precedence, unary `-`/`+`, parentheses
//
// Nothing else is accepted; formulas never reach a general interpreter.
type Program struct {
	source string
	root   node
	refs   []string
}

// Resolver maps a reference (the text between braces, or a bare identifier) to
// its current value. ok=false marks the name as unknown.
type Resolver func(name string) (value any, ok bool)

var (
	// ErrEmpty is returned for formulas without any tokens.
	ErrEmpty = errors.New("formula: empty expression")
	// ErrDivisionByZero is returned when a divisor evaluates to zero.
	ErrDivisionByZero = errors.New("formula: division by zero")
)

// Compile parses source into a reusable Program.
func Compile(source string) (*Program, error) {
	trimmed := strings.TrimSpace(source)
	if trimmed == "" {
		return nil, ErrEmpty
	}
	tokens, err := tokenize(trimmed)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{tokens: tokens}
	root, err := parseExpr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("formula: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return &Program{source: trimmed, root: root, refs: collectRefs(tokens)}, nil
}

// Eval compiles and evaluates source in one step.
func Eval(source string, resolve Resolver) (float64, error) {
	prog, err := Compile(source)
	if err != nil {
		return 0, err
	}
	return prog.Eval(resolve)
}

// Eval evaluates the program, resolving references through resolve.
func (p *Program) Eval(resolve Resolver) (float64, error) {
	if p == nil || p.root == nil {
		return 0, ErrEmpty
	}
	if resolve == nil {
		resolve = func(string) (any, bool) { return nil, false }
	}
	out, err := p.root.eval(resolve)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(out) || math.IsInf(out, 0) {
		return 0, fmt.Errorf("formula: result of %q is not a finite number", p.source)
	}
	return out, nil
}

// References lists the names the program reads, in first-use order.
func (p *Program) References() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.refs...)
}

// String returns the normalized source text.
func (p *Program) String() string {
	if p == nil {
		return ""
	}
	return p.source
}

type tokenKind int

const (
	tokenNumber tokenKind = iota
	tokenReference
	tokenIdentifier
	tokenPlus
	tokenMinus
	tokenStar
	tokenSlash
	tokenLParen
	tokenRParen
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(input) {
		ch := input[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '+':
			tokens = append(tokens, token{kind: tokenPlus, raw: "+"})
			i++
			continue
		case '-':
			tokens = append(tokens, token{kind: tokenMinus, raw: "-"})
			i++
			continue
		case '*':
			tokens = append(tokens, token{kind: tokenStar, raw: "*"})
			i++
			continue
		case '/':
			tokens = append(tokens, token{kind: tokenSlash, raw: "/"})
			i++
			continue
		case '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "("})
			i++
			continue
		case ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")"})
			i++
			continue
		case '{':
			end := strings.IndexByte(input[i+1:], '}')
			if end < 0 {
				return nil, errors.New("formula: unterminated field reference")
			}
			name := strings.TrimSpace(input[i+1 : i+1+end])
			if name == "" {
				return nil, errors.New("formula: empty field reference")
			}
			tokens = append(tokens, token{kind: tokenReference, raw: name})
			i += end + 2
			continue
		}

		switch {
		case isDigit(ch) || ch == '.':
			start := i
			for i < len(input) && (isDigit(input[i]) || input[i] == '.') {
				i++
			}
			// exponent: 1e3, 2.5E-2
			if i < len(input) && (input[i] == 'e' || input[i] == 'E') {
				j := i + 1
				if j < len(input) && (input[j] == '+' || input[j] == '-') {
					j++
				}
				if j < len(input) && isDigit(input[j]) {
					for j < len(input) && isDigit(input[j]) {
						j++
					}
					i = j
				}
			}
			tokens = append(tokens, token{kind: tokenNumber, raw: input[start:i]})
		case isIdentStart(ch):
			start := i
			for i < len(input) && isIdentPart(input[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokenIdentifier, raw: input[start:i]})
		default:
			return nil, fmt.Errorf("formula: unexpected character %q", ch)
		}
	}

	return tokens, nil
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool { return isIdentStart(ch) || isDigit(ch) }

func collectRefs(tokens []token) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, tok := range tokens {
		if tok.kind != tokenReference && tok.kind != tokenIdentifier {
			continue
		}
		if _, ok := seen[tok.raw]; ok {
			continue
		}
		seen[tok.raw] = struct{}{}
		out = append(out, tok.raw)
	}
	return out
}

type node interface {
	eval(resolve Resolver) (float64, error)
}

type numberNode struct {
	value float64
}

func (n numberNode) eval(Resolver) (float64, error) { return n.value, nil }

type refNode struct {
	name   string
	braced bool
}

func (n refNode) eval(resolve Resolver) (float64, error) {
	value, ok := resolve(n.name)
	if !ok {
		if n.braced {
			return 0, fmt.Errorf("formula: unknown field reference {%s}", n.name)
		}
		return 0, fmt.Errorf("formula: unknown identifier %q", n.name)
	}
	return coerceNumber(n.name, value)
}

type unaryNode struct {
	negate bool
	inner  node
}

func (n unaryNode) eval(resolve Resolver) (float64, error) {
	v, err := n.inner.eval(resolve)
	if err != nil {
		return 0, err
	}
	if n.negate {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          tokenKind
	left, right node
}

func (n binaryNode) eval(resolve Resolver) (float64, error) {
	left, err := n.left.eval(resolve)
	if err != nil {
		return 0, err
	}
	right, err := n.right.eval(resolve)
	if err != nil {
		return 0, err
	}
	switch n.op {
	case tokenPlus:
		return left + right, nil
	case tokenMinus:
		return left - right, nil
	case tokenStar:
		return left * right, nil
	case tokenSlash:
		if right == 0 {
			return 0, ErrDivisionByZero
		}
		return left / right, nil
	default:
		return 0, fmt.Errorf("formula: unsupported operator")
	}
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpr(stream *tokenStream) (node, error) {
	left, err := parseTerm(stream)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := stream.matchAny(tokenPlus, tokenMinus)
		if !ok {
			return left, nil
		}
		right, err := parseTerm(stream)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func parseTerm(stream *tokenStream) (node, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for {
		op, ok := stream.matchAny(tokenStar, tokenSlash)
		if !ok {
			return left, nil
		}
		right, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func parseUnary(stream *tokenStream) (node, error) {
	if op, ok := stream.matchAny(tokenMinus, tokenPlus); ok {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return unaryNode{negate: op == tokenMinus, inner: inner}, nil
	}
	return parsePrimary(stream)
}

func parsePrimary(stream *tokenStream) (node, error) {
	if stream.pos >= len(stream.tokens) {
		return nil, errors.New("formula: unexpected end of expression")
	}
	tok := stream.tokens[stream.pos]
	stream.pos++

	switch tok.kind {
	case tokenNumber:
		v, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("formula: invalid number %q", tok.raw)
		}
		return numberNode{value: v}, nil
	case tokenReference:
		return refNode{name: tok.raw, braced: true}, nil
	case tokenIdentifier:
		return refNode{name: tok.raw}, nil
	case tokenLParen:
		inner, err := parseExpr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("formula: missing closing ')'")
		}
		return inner, nil
	default:
		return nil, fmt.Errorf("formula: unexpected token %q", tok.raw)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) || s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) matchAny(kinds ...tokenKind) (tokenKind, bool) {
	if s.pos >= len(s.tokens) {
		return 0, false
	}
	current := s.tokens[s.pos].kind
	for _, kind := range kinds {
		if current == kind {
			s.pos++
			return kind, true
		}
	}
	return 0, false
}

// coerceNumber turns a field value into an operand. Unset and falsy values
// read as zero; anything non-numeric is an error.
func coerceNumber(name string, value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("formula: %s is not a number", name)
		}
		return f, nil
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, fmt.Errorf("formula: %s value %q is not a number", name, v)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("formula: %s has unsupported value %T", name, value)
	}
}
