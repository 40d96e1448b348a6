package tools

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// RegisterCalculator adds the arithmetic calculator tool to the registry.
// The evaluator is grammar-restricted to numbers and operators so tool
// input can never execute code.
func RegisterCalculator(r *Registry) {
	r.Register(&Tool{
		Name: "calculator",
		Description: "Evaluates an arithmetic expression and returns the result. " +
			"Supports + - * / % ^ and parentheses, e.g. \"(2+3)*4\".",
		Handler: func(_ context.Context, input string) (string, error) {
			return Evaluate(input)
		},
	})
}

// maxExprLen bounds calculator input; anything longer is not a
// plausible arithmetic expression.
const maxExprLen = 1024

// Evaluate computes an arithmetic expression. Supported syntax:
// decimal numbers, + - * / %, ^ for exponentiation, unary minus, and
// parentheses. Malformed input fails with *EvalError.
func Evaluate(expr string) (string, error) {
	if len(expr) > maxExprLen {
		return "", &EvalError{Expr: expr[:32] + "...", Reason: "expression too long"}
	}

	p := &exprParser{expr: expr, input: []rune(strings.TrimSpace(expr))}
	if len(p.input) == 0 {
		return "", &EvalError{Expr: expr, Reason: "empty expression"}
	}

	value, err := p.parseExpr()
	if err != nil {
		return "", err
	}
	p.skipSpaces()
	if p.pos < len(p.input) {
		return "", &EvalError{Expr: expr, Reason: fmt.Sprintf("unexpected %q at position %d", p.input[p.pos], p.pos)}
	}

	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "", &EvalError{Expr: expr, Reason: "result is not a finite number"}
	}

	return strconv.FormatFloat(value, 'f', -1, 64), nil
}

// exprParser is a recursive-descent parser over the expression runes.
//
// Precedence, lowest to highest: additive, multiplicative, power
// (right-associative), unary minus, primary.
type exprParser struct {
	expr  string
	input []rune
	pos   int
}

func (p *exprParser) fail(reason string) error {
	return &EvalError{Expr: p.expr, Reason: reason}
}

func (p *exprParser) skipSpaces() {
	for p.pos < len(p.input) && unicode.IsSpace(p.input[p.pos]) {
		p.pos++
	}
}

func (p *exprParser) peek() rune {
	p.skipSpaces()
	if p.pos >= len(p.input) {
		return 0
	}
	return p.input[p.pos]
}

func (p *exprParser) parseExpr() (float64, error) {
	left, err := p.parseTerm()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '+':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left += right
		case '-':
			p.pos++
			right, err := p.parseTerm()
			if err != nil {
				return 0, err
			}
			left -= right
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parseTerm() (float64, error) {
	left, err := p.parsePower()
	if err != nil {
		return 0, err
	}

	for {
		switch p.peek() {
		case '*':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			left *= right
		case '/':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.fail("division by zero")
			}
			left /= right
		case '%':
			p.pos++
			right, err := p.parsePower()
			if err != nil {
				return 0, err
			}
			if right == 0 {
				return 0, p.fail("division by zero")
			}
			left = math.Mod(left, right)
		default:
			return left, nil
		}
	}
}

func (p *exprParser) parsePower() (float64, error) {
	base, err := p.parseUnary()
	if err != nil {
		return 0, err
	}

	if p.peek() == '^' {
		p.pos++
		// Right-associative: 2^3^2 = 2^(3^2).
		exp, err := p.parsePower()
		if err != nil {
			return 0, err
		}
		return math.Pow(base, exp), nil
	}
	return base, nil
}

func (p *exprParser) parseUnary() (float64, error) {
	if p.peek() == '-' {
		p.pos++
		v, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		return -v, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (float64, error) {
	c := p.peek()

	if c == '(' {
		p.pos++
		v, err := p.parseExpr()
		if err != nil {
			return 0, err
		}
		if p.peek() != ')' {
			return 0, p.fail("missing closing parenthesis")
		}
		p.pos++
		return v, nil
	}

	if c == 0 {
		return 0, p.fail("unexpected end of expression")
	}

	start := p.pos
	for p.pos < len(p.input) && (unicode.IsDigit(p.input[p.pos]) || p.input[p.pos] == '.') {
		p.pos++
	}
	if p.pos == start {
		return 0, p.fail(fmt.Sprintf("unexpected %q at position %d", c, p.pos))
	}

	v, err := strconv.ParseFloat(string(p.input[start:p.pos]), 64)
	if err != nil {
		return 0, p.fail(fmt.Sprintf("invalid number %q", string(p.input[start:p.pos])))
	}
	return v, nil
}
