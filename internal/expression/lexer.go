package expression

import (
	"strconv"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokIdent
	tokPlus
	tokMinus
	tokMul
	tokDiv
	tokPow
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	pos  int
	text string
	num  float64
}

// tokenize splits formula text into tokens. Multiplication and division accept
// both ASCII and typographic symbols.
func tokenize(src []rune) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(src) {
		r := src[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case isDigit(r) || (r == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			i = scanNumber(src, i)
			text := string(src[start:i])
			v, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, SyntaxError{Pos: start, Msg: "invalid number " + strconv.Quote(text)}
			}
			tokens = append(tokens, token{kind: tokNumber, pos: start, text: text, num: v})
		case isIdentStart(r):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, pos: start, text: string(src[start:i])})
		default:
			kind, ok := operatorTokens[r]
			if !ok {
				return nil, SyntaxError{Pos: i, Msg: "unexpected character " + strconv.QuoteRune(r)}
			}
			tokens = append(tokens, token{kind: kind, pos: i, text: string(r)})
			i++
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(src)}), nil
}

var operatorTokens = map[rune]tokenKind{
	'+': tokPlus,
	'-': tokMinus,
	'−': tokMinus,
	'*': tokMul,
	'×': tokMul,
	'/': tokDiv,
	'÷': tokDiv,
	'^': tokPow,
	'(': tokLParen,
	')': tokRParen,
}

func scanNumber(src []rune, i int) int {
	for i < len(src) && isDigit(src[i]) {
		i++
	}
	if i < len(src) && src[i] == '.' {
		i++
		for i < len(src) && isDigit(src[i]) {
			i++
		}
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	return i
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isIdentPart(r rune) bool { return isIdentStart(r) || isDigit(r) }
