package expr

// The formula grammar, lowest precedence first:
//
//	expression -> concat ((= == != <> < <= > >=) concat)?
//	concat     -> additive (& additive)*
//	additive   -> multiplicative ((+|-) multiplicative)*
//	multiplicative -> unary ((*|/) unary)*
//	unary      -> -unary | power
//	power      -> primary (^ unary)?          right associative
//	primary    -> number | string | {name} | ident | ident(args) | (expression)
//
// The parser builds a small tagged AST; nothing here ever reaches a general
// purpose evaluator, so formula text cannot execute host operations.

type node interface{}

type numberLit float64

type stringLit string

type varRef string

type binary struct {
	op    string
	left  node
	right node
}

type unary struct {
	op      string
	operand node
}

type call struct {
	name string
	args []node
}

type parser struct {
	toks []token
	pos  int
}

// parse returns the AST for src, or ok=false when src is not a well formed
// formula.
func parse(src string) (node, bool) {
	p := &parser{toks: tokenize(src)}
	n, ok := p.expression()
	if !ok || p.peek().kind != tokEOF {
		return nil, false
	}
	return n, true
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) expression() (node, bool) {
	left, ok := p.concat()
	if !ok {
		return nil, false
	}
	if p.peek().kind == tokCmp {
		op := p.next().text
		right, ok := p.concat()
		if !ok {
			return nil, false
		}
		return binary{op: op, left: left, right: right}, true
	}
	return left, true
}

func (p *parser) concat() (node, bool) {
	left, ok := p.additive()
	if !ok {
		return nil, false
	}
	for p.peek().kind == tokOp && p.peek().text == "&" {
		p.next()
		right, ok := p.additive()
		if !ok {
			return nil, false
		}
		left = binary{op: "&", left: left, right: right}
	}
	return left, true
}

func (p *parser) additive() (node, bool) {
	left, ok := p.multiplicative()
	if !ok {
		return nil, false
	}
	for p.peek().kind == tokOp && (p.peek().text == "+" || p.peek().text == "-") {
		op := p.next().text
		right, ok := p.multiplicative()
		if !ok {
			return nil, false
		}
		left = binary{op: op, left: left, right: right}
	}
	return left, true
}

func (p *parser) multiplicative() (node, bool) {
	left, ok := p.unary()
	if !ok {
		return nil, false
	}
	for p.peek().kind == tokOp && (p.peek().text == "*" || p.peek().text == "/") {
		op := p.next().text
		right, ok := p.unary()
		if !ok {
			return nil, false
		}
		left = binary{op: op, left: left, right: right}
	}
	return left, true
}

func (p *parser) unary() (node, bool) {
	if p.peek().kind == tokOp && p.peek().text == "-" {
		p.next()
		operand, ok := p.unary()
		if !ok {
			return nil, false
		}
		return unary{op: "-", operand: operand}, true
	}
	return p.power()
}

func (p *parser) power() (node, bool) {
	base, ok := p.primary()
	if !ok {
		return nil, false
	}
	if p.peek().kind == tokOp && p.peek().text == "^" {
		p.next()
		exp, ok := p.unary()
		if !ok {
			return nil, false
		}
		return binary{op: "^", left: base, right: exp}, true
	}
	return base, true
}

func (p *parser) primary() (node, bool) {
	switch t := p.peek(); t.kind {
	case tokNumber:
		p.next()
		return parseNumber(t.text)
	case tokString:
		p.next()
		return stringLit(t.text), true
	case tokVar:
		p.next()
		if t.text == "" {
			return nil, false
		}
		return varRef(t.text), true
	case tokIdent:
		p.next()
		if p.peek().kind != tokLParen {
			// A bare name inside a formula reads from the scope, same
			// as the braced form.
			return varRef(t.text), true
		}
		p.next()
		var args []node
		if p.peek().kind != tokRParen {
			for {
				arg, ok := p.expression()
				if !ok {
					return nil, false
				}
				args = append(args, arg)
				if p.peek().kind != tokComma {
					break
				}
				p.next()
			}
		}
		if p.next().kind != tokRParen {
			return nil, false
		}
		return call{name: t.text, args: args}, true
	case tokLParen:
		p.next()
		inner, ok := p.expression()
		if !ok {
			return nil, false
		}
		if p.next().kind != tokRParen {
			return nil, false
		}
		return inner, true
	default:
		return nil, false
	}
}
