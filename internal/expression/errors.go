package expression

import (
	"fmt"

	"github.com/securebank-ledger/internal/domain/shared"
)

// SyntaxError reports malformed formula text at a rune offset
type SyntaxError struct {
	Pos int
	Msg string
}

func (e SyntaxError) Error() string {
	return fmt.Sprintf("syntax error at position %d: %s", e.Pos, e.Msg)
}

func (e SyntaxError) Kind() shared.ErrorKind { return shared.KindSyntaxError }

// UndefinedVariableError reports a variable with no binding
type UndefinedVariableError struct {
	Name string
}

func (e UndefinedVariableError) Error() string {
	return "undefined variable: " + e.Name
}

func (e UndefinedVariableError) Kind() shared.ErrorKind { return shared.KindUndefinedVariable }

// DomainError reports an operation applied outside its mathematical domain
type DomainError struct {
	Op     string
	Reason string
}

func (e DomainError) Error() string {
	return fmt.Sprintf("domain error in %s: %s", e.Op, e.Reason)
}

func (e DomainError) Kind() shared.ErrorKind { return shared.KindDomainError }
