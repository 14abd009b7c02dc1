// Package formula implements the restricted pricing formula grammar used by
// composite_rate rules. Formulas are parsed once into an expression tree and
// interpreted against named decimal variables; there is no dynamic code
// execution and evaluation is pure.
//
// Grammar:
//
//	expr   := term (("+" | "-") term)*
//	term   := factor (("*" | "/") factor)*
//	factor := NUMBER | IDENT | IDENT "(" expr ("," expr)* ")" | "(" expr ")" | "-" factor
//
// The only callable functions are min and max.
package formula

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	ierr "github.com/warebill/warebill/internal/errors"
)

// divPrecision bounds non-terminating division results; rounding to currency
// precision happens later, at final amount computation
const divPrecision = 12

// Expr is a parsed formula, safe for concurrent evaluation
type Expr struct {
	root node
	src  string
}

// Vars holds the named variables a formula may reference
type Vars map[string]decimal.Decimal

type node interface {
	eval(vars Vars) (decimal.Decimal, error)
}

type numberNode struct {
	value decimal.Decimal
}

func (n numberNode) eval(Vars) (decimal.Decimal, error) {
	return n.value, nil
}

type varNode struct {
	name string
}

func (n varNode) eval(vars Vars) (decimal.Decimal, error) {
	v, ok := vars[n.name]
	if !ok {
		return decimal.Zero, ierr.NewError("unknown formula variable").
			WithHintf("Variable %q is not available in this context", n.name).
			WithReportableDetails(map[string]any{
				"variable": n.name,
			}).
			Mark(ierr.ErrValidation)
	}
	return v, nil
}

type binaryNode struct {
	op          byte
	left, right node
}

func (n binaryNode) eval(vars Vars) (decimal.Decimal, error) {
	l, err := n.left.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	r, err := n.right.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	switch n.op {
	case '+':
		return l.Add(r), nil
	case '-':
		return l.Sub(r), nil
	case '*':
		return l.Mul(r), nil
	case '/':
		if r.IsZero() {
			return decimal.Zero, ierr.NewError("division by zero in formula").
				WithHint("The formula divided by a zero value").
				Mark(ierr.ErrInvalidOperation)
		}
		return l.DivRound(r, divPrecision), nil
	}
	return decimal.Zero, ierr.NewError("unknown formula operator").
		Mark(ierr.ErrSystem)
}

type callNode struct {
	name string
	args []node
}

func (n callNode) eval(vars Vars) (decimal.Decimal, error) {
	vals := make([]decimal.Decimal, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval(vars)
		if err != nil {
			return decimal.Zero, err
		}
		vals[i] = v
	}

	out := vals[0]
	switch n.name {
	case "min":
		for _, v := range vals[1:] {
			if v.LessThan(out) {
				out = v
			}
		}
	case "max":
		for _, v := range vals[1:] {
			if v.GreaterThan(out) {
				out = v
			}
		}
	}
	return out, nil
}

type negNode struct {
	operand node
}

func (n negNode) eval(vars Vars) (decimal.Decimal, error) {
	v, err := n.operand.eval(vars)
	if err != nil {
		return decimal.Zero, err
	}
	return v.Neg(), nil
}

// Parse compiles a formula source into an Expr
func Parse(src string) (*Expr, error) {
	p := &parser{src: src}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	p.skipSpaces()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected input at position %d", p.pos)
	}
	return &Expr{root: root, src: src}, nil
}

// Evaluate interprets the formula against the given variables
func (e *Expr) Evaluate(vars Vars) (decimal.Decimal, error) {
	return e.root.eval(vars)
}

// Source returns the original formula text
func (e *Expr) Source() string {
	return e.src
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return ierr.NewError("invalid formula").
		WithHintf(format, args...).
		WithReportableDetails(map[string]any{
			"formula": p.src,
		}).
		Mark(ierr.ErrValidation)
}

// skipSpaces advances past spaces, tabs, and line breaks between tokens.
func (p *parser) skipSpaces() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '+' && op != '-' {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseTerm() (node, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		p.skipSpaces()
		op := p.peek()
		if op != '*' && op != '/' {
			return left, nil
		}
		p.pos++
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: op, left: left, right: right}
	}
}

func (p *parser) parseFactor() (node, error) {
	p.skipSpaces()
	c := p.peek()

	switch {
	case c == '-':
		p.pos++
		operand, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return negNode{operand: operand}, nil

	case c == '(':
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		p.skipSpaces()
		if p.peek() != ')' {
			return nil, p.errorf("missing closing parenthesis")
		}
		p.pos++
		return inner, nil

	case c >= '0' && c <= '9':
		return p.parseNumber()

	case isIdentStart(rune(c)):
		return p.parseIdentOrCall()
	}

	return nil, p.errorf("unexpected character at position %d", p.pos)
}

func (p *parser) parseNumber() (node, error) {
	start := p.pos
	seenDot := false
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == '.' {
			if seenDot {
				return nil, p.errorf("malformed number at position %d", start)
			}
			seenDot = true
			p.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		p.pos++
	}
	value, err := decimal.NewFromString(p.src[start:p.pos])
	if err != nil {
		return nil, p.errorf("malformed number at position %d", start)
	}
	return numberNode{value: value}, nil
}

func (p *parser) parseIdentOrCall() (node, error) {
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(rune(p.src[p.pos])) {
		p.pos++
	}
	name := strings.ToLower(p.src[start:p.pos])

	p.skipSpaces()
	if p.peek() != '(' {
		return varNode{name: name}, nil
	}

	if name != "min" && name != "max" {
		return nil, p.errorf("unknown function %q, only min and max are allowed", name)
	}

	p.pos++ // consume '('
	var args []node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		p.skipSpaces()
		switch p.peek() {
		case ',':
			p.pos++
		case ')':
			p.pos++
			return callNode{name: name, args: args}, nil
		default:
			return nil, p.errorf("missing closing parenthesis in %s call", name)
		}
	}
}

func isIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_'
}

func isIdentPart(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
