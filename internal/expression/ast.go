package expression

import (
	"math"
)

type node interface {
	eval(b Bindings) (float64, error)
	collect(names map[string]struct{})
}

type literal struct {
	value float64
}

func (n literal) eval(Bindings) (float64, error) { return n.value, nil }
func (n literal) collect(map[string]struct{})      {}

type variable struct {
	name string
}

func (n variable) eval(b Bindings) (float64, error) {
	v, ok := b[n.name]
	if !ok {
		return 0, UndefinedVariableError{Name: n.name}
	}
	return v, nil
}

func (n variable) collect(names map[string]struct{}) { names[n.name] = struct{}{} }

type negate struct {
	operand node
}

func (n negate) eval(b Bindings) (float64, error) {
	v, err := n.operand.eval(b)
	if err != nil {
		return 0, err
	}
	return -v, nil
}

func (n negate) collect(names map[string]struct{}) { n.operand.collect(names) }

type binaryOp byte

const (
	opAdd binaryOp = '+'
	opSub binaryOp = '-'
	opMul binaryOp = '*'
	opDiv binaryOp = '/'
	opPow binaryOp = '^'
)

type binary struct {
	op          binaryOp
	left, right node
}

func (n binary) eval(b Bindings) (float64, error) {
	l, err := n.left.eval(b)
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval(b)
	if err != nil {
		return 0, err
	}

	var v float64
	switch n.op {
	case opAdd:
		v = l + r
	case opSub:
		v = l - r
	case opMul:
		v = l * r
	case opDiv:
		if r == 0 {
			return 0, DomainError{Op: "/", Reason: "division by zero"}
		}
		v = l / r
	case opPow:
		v = math.Pow(l, r)
	}
	return finite(string(n.op), v)
}

func (n binary) collect(names map[string]struct{}) {
	n.left.collect(names)
	n.right.collect(names)
}

type call struct {
	fn  function
	arg node
}

func (n call) eval(b Bindings) (float64, error) {
	x, err := n.arg.eval(b)
	if err != nil {
		return 0, err
	}
	v, err := n.fn.apply(x)
	if err != nil {
		return 0, err
	}
	return finite(n.fn.name, v)
}

func (n call) collect(names map[string]struct{}) { n.arg.collect(names) }

// function is one entry of the closed set of callable unary functions
type function struct {
	name  string
	apply func(float64) (float64, error)
}

var functions = map[string]function{
	"sqrt": {name: "sqrt", apply: func(x float64) (float64, error) {
		if x < 0 {
			return 0, DomainError{Op: "sqrt", Reason: "argument must not be negative"}
		}
		return math.Sqrt(x), nil
	}},
	"log": {name: "log", apply: func(x float64) (float64, error) {
		if x <= 0 {
			return 0, DomainError{Op: "log", Reason: "argument must be positive"}
		}
		return math.Log(x), nil
	}},
	"sin": {name: "sin", apply: func(x float64) (float64, error) { return math.Sin(x), nil }},
	"cos": {name: "cos", apply: func(x float64) (float64, error) { return math.Cos(x), nil }},
	"abs": {name: "abs", apply: func(x float64) (float64, error) { return math.Abs(x), nil }},
}

func finite(op string, v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, DomainError{Op: op, Reason: "result is not a finite number"}
	}
	return v, nil
}
