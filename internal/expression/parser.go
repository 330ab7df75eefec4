package expression

import (
	"fmt"
	"sort"
	"unicode/utf8"
)

const (
	// DefaultMaxLength bounds formula text in runes
	DefaultMaxLength = 1024
	// MaxDepth bounds parenthesis and operator nesting
	MaxDepth = 64
)

// Bindings maps variable names to values for one evaluation
type Bindings map[string]float64

// Expression is a parsed formula. It is immutable and safe for concurrent evaluation.
type Expression struct {
	source string
	root   node
}

// Source returns the text the expression was parsed from
func (e *Expression) Source() string { return e.source }

// Evaluate computes the expression against explicit bindings only
func (e *Expression) Evaluate(b Bindings) (float64, error) {
	return e.root.eval(b)
}

// Variables lists the distinct variable names referenced, sorted
func (e *Expression) Variables() []string {
	set := make(map[string]struct{})
	e.root.collect(set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Parser turns formula text into an Expression
type Parser struct {
	maxLength int
}

// NewParser returns a parser enforcing maxLength runes. Non-positive means DefaultMaxLength.
func NewParser(maxLength int) *Parser {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	return &Parser{maxLength: maxLength}
}

func (p *Parser) Parse(text string) (*Expression, error) {
	if n := utf8.RuneCountInString(text); n > p.maxLength {
		return nil, SyntaxError{Pos: p.maxLength, Msg: fmt.Sprintf("expression longer than %d characters", p.maxLength)}
	}
	tokens, err := tokenize([]rune(text))
	if err != nil {
		return nil, err
	}
	if tokens[0].kind == tokEOF {
		return nil, SyntaxError{Pos: 0, Msg: "empty expression"}
	}

	st := &parseState{tokens: tokens}
	root, err := st.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := st.peek(); tok.kind != tokEOF {
		return nil, SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return &Expression{source: text, root: root}, nil
}

type parseState struct {
	tokens []token
	pos    int
	depth  int
}

func (s *parseState) peek() token { return s.tokens[s.pos] }

func (s *parseState) next() token {
	tok := s.tokens[s.pos]
	if tok.kind != tokEOF {
		s.pos++
	}
	return tok
}

func (s *parseState) enter() error {
	s.depth++
	if s.depth > MaxDepth {
		return SyntaxError{Pos: s.peek().pos, Msg: "expression nested too deeply"}
	}
	return nil
}

func (s *parseState) leave() { s.depth-- }

// expr := term (('+'|'-') term)*
func (s *parseState) parseExpr() (node, error) {
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()

	left, err := s.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		switch s.peek().kind {
		case tokPlus:
			op = opAdd
		case tokMinus:
			op = opSub
		default:
			return left, nil
		}
		s.next()
		right, err := s.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// term := unary (('*'|'/') unary)*
func (s *parseState) parseTerm() (node, error) {
	left, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		var op binaryOp
		switch s.peek().kind {
		case tokMul:
			op = opMul
		case tokDiv:
			op = opDiv
		default:
			return left, nil
		}
		s.next()
		right, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binary{op: op, left: left, right: right}
	}
}

// unary := '-' unary | '+' unary | power
func (s *parseState) parseUnary() (node, error) {
	switch s.peek().kind {
	case tokMinus, tokPlus:
		if err := s.enter(); err != nil {
			return nil, err
		}
		defer s.leave()
		neg := s.next().kind == tokMinus
		operand, err := s.parseUnary()
		if err != nil {
			return nil, err
		}
		if neg {
			return negate{operand: operand}, nil
		}
		return operand, nil
	}
	return s.parsePower()
}

// power := primary ('^' unary)?  (right associative)
func (s *parseState) parsePower() (node, error) {
	base, err := s.parsePrimary()
	if err != nil {
		return nil, err
	}
	if s.peek().kind != tokPow {
		return base, nil
	}
	s.next()
	if err := s.enter(); err != nil {
		return nil, err
	}
	defer s.leave()
	exp, err := s.parseUnary()
	if err != nil {
		return nil, err
	}
	return binary{op: opPow, left: base, right: exp}, nil
}

// primary := number | ident | ident '(' expr ')' | '(' expr ')'
func (s *parseState) parsePrimary() (node, error) {
	tok := s.next()
	switch tok.kind {
	case tokNumber:
		return literal{value: tok.num}, nil
	case tokIdent:
		if s.peek().kind != tokLParen {
			return variable{name: tok.text}, nil
		}
		fn, ok := functions[tok.text]
		if !ok {
			return nil, SyntaxError{Pos: tok.pos, Msg: "unknown function " + tok.text}
		}
		s.next()
		arg, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := s.expect(tokRParen); err != nil {
			return nil, err
		}
		return call{fn: fn, arg: arg}, nil
	case tokLParen:
		inner, err := s.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := s.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokEOF:
		return nil, SyntaxError{Pos: tok.pos, Msg: "unexpected end of expression"}
	}
	return nil, SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
}

func (s *parseState) expect(kind tokenKind) error {
	tok := s.next()
	if tok.kind != kind {
		if tok.kind == tokEOF {
			return SyntaxError{Pos: tok.pos, Msg: "missing closing parenthesis"}
		}
		return SyntaxError{Pos: tok.pos, Msg: fmt.Sprintf("unexpected %q", tok.text)}
	}
	return nil
}
