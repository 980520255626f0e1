package expr

import (
	"fmt"

	"github.com/flowlace/cyclesim/internal/simerr"
)

// Parse parses expression under the restricted grammar: a single
// top-level assignment `name = expr`, or a bare expression.
// Any construct outside the whitelist (strings, loops, conditionals,
// lambdas, comprehensions, dotted assignment targets, starred
// arguments) either fails to lex or has no production in this grammar,
// so it surfaces here as a syntax error.
func Parse(expression string) (Node, error) {
	toks, err := lex(expression)
	if err != nil {
		le := err.(*lexError)
		return nil, simerr.NewExpressionError(simerr.KindSyntax, expression,
			fmt.Errorf("%s near %q", le.msg, quoteSnippet(expression, le.pos)))
	}
	p := &parser{toks: toks, src: expression}
	n, err := p.parseTop()
	if err != nil {
		return nil, err
	}
	if p.cur().kind != tokEOF {
		return nil, p.syntaxErrf("unexpected trailing input near %q", quoteSnippet(expression, p.cur().pos))
	}
	return n, nil
}

type parser struct {
	toks []token
	pos  int
	src  string
}

func (p *parser) cur() token { return p.toks[p.pos] }

func (p *parser) peekNext() token {
	if p.pos+1 < len(p.toks) {
		return p.toks[p.pos+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) advance() token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) syntaxErrf(format string, args ...interface{}) error {
	return simerr.NewExpressionError(simerr.KindSyntax, p.src, fmt.Errorf(format, args...))
}

func (p *parser) expect(k tokenKind) (token, error) {
	if p.cur().kind != k {
		return token{}, p.syntaxErrf("expected %s, got %s near %q", k, p.cur().kind, quoteSnippet(p.src, p.cur().pos))
	}
	return p.advance(), nil
}

// parseTop handles the one admitted top-level statement form: a plain
// name followed by `=`, or a bare expression. `a.b = x` (a dotted
// assignment target) is rejected because NAME "=" only matches a lone
// identifier; `a.b` standing alone parses as an expression instead and
// is never consumed as an assignment target.
func (p *parser) parseTop() (Node, error) {
	if p.cur().kind == tokName && p.peekNext().kind == tokEquals {
		target := p.advance().text
		p.advance() // consume '='
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &AssignNode{Target: target, Value: rhs}, nil
	}
	return p.parseExpr()
}

func (p *parser) parseExpr() (Node, error) { return p.parseAdd() }

func (p *parser) parseAdd() (Node, error) {
	x, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokPlus, tokMinus:
			op := p.advance()
			y, err := p.parseMul()
			if err != nil {
				return nil, err
			}
			x = &BinaryNode{Op: op.kind.String(), X: x, Y: y}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseMul() (Node, error) {
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokStar, tokSlash, tokDSlash, tokPercent:
			op := p.advance()
			y, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			x = &BinaryNode{Op: op.kind.String(), X: x, Y: y}
		default:
			return x, nil
		}
	}
}

func (p *parser) parseUnary() (Node, error) {
	if p.cur().kind == tokPlus || p.cur().kind == tokMinus {
		op := p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryNode{Op: op.kind.String(), X: x}, nil
	}
	return p.parsePow()
}

// parsePow binds `**` tighter than unary on its left operand but lets the
// right operand recurse through unary, so `-2**2 == -4` and `2**-2` both
// parse the way the grammar's literal-signed-exponent cases need.
func (p *parser) parsePow() (Node, error) {
	x, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.cur().kind == tokDStar {
		p.advance()
		y, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &BinaryNode{Op: "**", X: x, Y: y}, nil
	}
	return x, nil
}

func (p *parser) parsePostfix() (Node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.cur().kind {
		case tokDot:
			p.advance()
			name, err := p.expect(tokName)
			if err != nil {
				return nil, err
			}
			x = &AttributeNode{Value: x, Attr: name.text}
		case tokLBracket:
			p.advance()
			idx, err := p.parseIndexLiteral()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			x = &SubscriptNode{Value: x, Index: idx}
		case tokLParen:
			p.advance()
			args, kwargs, order, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokRParen); err != nil {
				return nil, err
			}
			x = &CallNode{Func: x, Args: args, Kwargs: kwargs, KwOrder: order}
		default:
			return x, nil
		}
	}
}

// parseIndexLiteral admits exactly a nonnegative integer literal or a
// unary-negated integer literal — no arbitrary expressions inside
// brackets.
func (p *parser) parseIndexLiteral() (int, error) {
	neg := false
	if p.cur().kind == tokMinus {
		neg = true
		p.advance()
	}
	tok, err := p.expect(tokNumber)
	if err != nil {
		return 0, err
	}
	if tok.num != float64(int(tok.num)) {
		return 0, p.syntaxErrf("subscript index must be an integer literal, got %q", tok.text)
	}
	n := int(tok.num)
	if neg {
		n = -n
	}
	return n, nil
}

func (p *parser) parseArgs() ([]Node, map[string]Node, []string, error) {
	var args []Node
	kwargs := map[string]Node{}
	var order []string
	if p.cur().kind == tokRParen {
		return args, kwargs, order, nil
	}
	for {
		if p.cur().kind == tokName && p.peekNext().kind == tokEquals {
			name := p.advance().text
			p.advance()
			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, nil, err
			}
			if _, dup := kwargs[name]; dup {
				return nil, nil, nil, p.syntaxErrf("duplicate keyword argument %q", name)
			}
			kwargs[name] = v
			order = append(order, name)
		} else {
			v, err := p.parseExpr()
			if err != nil {
				return nil, nil, nil, err
			}
			args = append(args, v)
		}
		if p.cur().kind == tokComma {
			p.advance()
			continue
		}
		break
	}
	return args, kwargs, order, nil
}

func (p *parser) parsePrimary() (Node, error) {
	t := p.cur()
	switch t.kind {
	case tokNumber:
		p.advance()
		return &NumberNode{Value: t.num}, nil
	case tokName:
		p.advance()
		return &NameNode{Name: t.text}, nil
	case tokLParen:
		p.advance()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return x, nil
	default:
		return nil, p.syntaxErrf("unexpected token %s near %q", t.kind, quoteSnippet(p.src, t.pos))
	}
}
