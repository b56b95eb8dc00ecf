package filter

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// parser is a recursive descent parser over the token stream:
//
//	orExpr  := andExpr ( "or" andExpr )*
//	andExpr := term ( "and" term )*
//	term    := "(" orExpr ")" | field operator value
type parser struct {
	input  string
	tokens []lexer.Token
	pos    int
}

// Parse parses a filter expression. An empty or blank input yields a nil
// node and no error.
func Parse(input string) (Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	tokens, err := tokenize(input)
	if err != nil {
		return nil, err
	}

	p := &parser{input: input, tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if tok, ok := p.peek(); ok {
		if tok.Type == tokRParen {
			return nil, p.errorAt(tok, "unbalanced parenthesis")
		}
		return nil, p.errorAt(tok, fmt.Sprintf("unexpected %q, expected and/or", tok.Value))
	}
	return node, nil
}

func (p *parser) peek() (lexer.Token, bool) {
	if p.pos >= len(p.tokens) {
		return lexer.Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *parser) next() (lexer.Token, bool) {
	tok, ok := p.peek()
	if ok {
		p.pos++
	}
	return tok, ok
}

func (p *parser) errorAt(tok lexer.Token, reason string) error {
	return &MalformedFilterError{Input: p.input, Pos: tok.Pos.Offset, Reason: reason}
}

func (p *parser) errorAtEnd(reason string) error {
	return &MalformedFilterError{Input: p.input, Pos: len(p.input), Reason: reason}
}

func (p *parser) parseOr() (Node, error) {
	return p.parseJoined(Or, p.parseAnd)
}

func (p *parser) parseAnd() (Node, error) {
	return p.parseJoined(And, p.parseTerm)
}

func (p *parser) parseJoined(conn Connective, operand func() (Node, error)) (Node, error) {
	first, err := operand()
	if err != nil {
		return nil, err
	}
	children := []Node{first}

	for {
		tok, ok := p.peek()
		if !ok || !isKeyword(tok, string(conn)) {
			break
		}
		p.pos++

		if _, more := p.peek(); !more {
			return nil, p.errorAt(tok, fmt.Sprintf("dangling %q", tok.Value))
		}
		child, err := operand()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return combine(conn, children), nil
}

func (p *parser) parseTerm() (Node, error) {
	tok, ok := p.next()
	if !ok {
		return nil, p.errorAtEnd("expected a condition")
	}

	switch {
	case tok.Type == tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		closing, ok := p.next()
		if !ok || closing.Type != tokRParen {
			return nil, p.errorAt(tok, "unbalanced parenthesis")
		}
		return inner, nil

	case tok.Type == tokRParen:
		return nil, p.errorAt(tok, "unexpected )")

	case isKeyword(tok, string(And)) || isKeyword(tok, string(Or)):
		return nil, p.errorAt(tok, fmt.Sprintf("dangling %q", tok.Value))

	case tok.Type != tokWord:
		return nil, p.errorAt(tok, fmt.Sprintf("expected a field name, got %q", tok.Value))
	}

	op, ok := p.next()
	if !ok {
		return nil, p.errorAtEnd(fmt.Sprintf("missing operator after %q", tok.Value))
	}
	if op.Type != tokWord {
		return nil, p.errorAt(op, fmt.Sprintf("missing operator after %q", tok.Value))
	}

	val, ok := p.next()
	if !ok {
		return nil, p.errorAtEnd(fmt.Sprintf("missing value for %s %s", tok.Value, op.Value))
	}
	if val.Type == tokLParen || val.Type == tokRParen {
		return nil, p.errorAt(val, fmt.Sprintf("missing value for %s %s", tok.Value, op.Value))
	}

	return &Leaf{Field: tok.Value, Operator: op.Value, Value: valueOf(val)}, nil
}
