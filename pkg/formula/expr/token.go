package expr

import (
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokVar // {name}
	tokOp  // + - * / ^ &
	tokCmp // = == != <> < <= > >=
	tokLParen
	tokRParen
	tokComma
	tokInvalid
)

type token struct {
	kind tokenKind
	text string
}

// tokenize splits a formula into tokens. It never fails: anything outside
// the grammar becomes a tokInvalid token, which the parser rejects.
func tokenize(src string) []token {
	var toks []token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c >= '0' && c <= '9' || c == '.':
			j := i
			for j < len(src) && (src[j] >= '0' && src[j] <= '9' || src[j] == '.') {
				j++
			}
			toks = append(toks, token{tokNumber, src[i:j]})
			i = j
		case c == '"' || c == '\'':
			quote := c
			j := i + 1
			for j < len(src) && src[j] != quote {
				j++
			}
			if j >= len(src) {
				toks = append(toks, token{tokInvalid, src[i:]})
				return toks
			}
			toks = append(toks, token{tokString, src[i+1 : j]})
			i = j + 1
		case c == '{':
			j := strings.IndexByte(src[i:], '}')
			if j < 0 {
				toks = append(toks, token{tokInvalid, src[i:]})
				return toks
			}
			name := strings.TrimSpace(src[i+1 : i+j])
			toks = append(toks, token{tokVar, name})
			i += j + 1
		case isIdentStart(rune(c)):
			j := i
			for j < len(src) && isIdentPart(rune(src[j])) {
				j++
			}
			toks = append(toks, token{tokIdent, src[i:j]})
			i = j
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '^' || c == '&':
			toks = append(toks, token{tokOp, string(c)})
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == ',':
			toks = append(toks, token{tokComma, ","})
			i++
		case c == '=' || c == '<' || c == '>' || c == '!':
			j := i + 1
			if j < len(src) && (src[j] == '=' || (c == '<' && src[j] == '>')) {
				j++
			}
			op := src[i:j]
			if op == "!" {
				toks = append(toks, token{tokInvalid, op})
			} else {
				toks = append(toks, token{tokCmp, op})
			}
			i = j
		default:
			toks = append(toks, token{tokInvalid, string(c)})
			i++
		}
	}
	toks = append(toks, token{tokEOF, ""})
	return toks
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
