package filter

import "strings"

type lexer struct {
	input  string
	pos    int
	tokens []string
}

// lex splits input on whitespace that is not inside double quotes. Tokens
// keep their quotes and escapes; an unterminated quote runs to the end of
// the input.
func lex(input string) []string {
	l := &lexer{input: input}
	l.run()
	return l.tokens
}

func (l *lexer) run() {
	for l.pos < len(l.input) {
		if isSpace(l.input[l.pos]) {
			l.pos++
			continue
		}
		l.tokens = append(l.tokens, l.readToken())
	}
}

func (l *lexer) readToken() string {
	start := l.pos
	inQuote := false
	for l.pos < len(l.input) {
		ch := l.input[l.pos]
		switch {
		case inQuote && ch == '\\' && l.pos+1 < len(l.input):
			l.pos += 2
			continue
		case ch == '"':
			inQuote = !inQuote
		case !inQuote && isSpace(ch):
			return l.input[start:l.pos]
		}
		l.pos++
	}
	return l.input[start:]
}

// Tokenize parses text into terms in input order. Fragments that do not form
// a term are returned in dropped instead of failing the parse.
func Tokenize(text string) (terms []Term, dropped []string) {
	for _, tok := range lex(text) {
		t, ok := splitTerm(tok)
		if !ok {
			dropped = append(dropped, tok)
			continue
		}
		terms = append(terms, t)
	}
	return terms, dropped
}

// splitTerm cuts a single token at its first unquoted relation operator.
func splitTerm(tok string) (Term, bool) {
	inQuote := false
	for i := 0; i < len(tok); i++ {
		ch := tok[i]
		if inQuote {
			switch {
			case ch == '\\' && i+1 < len(tok):
				i++
			case ch == '"':
				inQuote = false
			}
			continue
		}
		if ch == '"' {
			inQuote = true
			continue
		}
		rel, n := scanRelation(tok, i)
		if n == 0 {
			continue
		}
		keyword := tok[:i]
		if keyword != "" && !validKeyword(keyword) {
			return Term{}, false
		}
		return Term{Keyword: keyword, Relation: rel, Value: unquote(tok[i+n:])}, true
	}

	// Bare keyword such as "overrides" or a typed search word.
	if validKeyword(tok) {
		return Term{Keyword: tok, Relation: None}, true
	}
	return Term{}, false
}

// unquote removes double quotes and resolves \" and \\ inside them.
func unquote(raw string) string {
	if !strings.ContainsRune(raw, '"') {
		return raw
	}
	var b strings.Builder
	inQuote := false
	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		switch {
		case inQuote && ch == '\\' && i+1 < len(raw) && (raw[i+1] == '"' || raw[i+1] == '\\'):
			i++
			b.WriteByte(raw[i])
		case ch == '"':
			inQuote = !inQuote
		default:
			b.WriteByte(ch)
		}
	}
	return b.String()
}

func validKeyword(s string) bool {
	if s == "" || !isKeywordStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isKeywordPart(s[i]) {
			return false
		}
	}
	return true
}

func isKeywordStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isKeywordPart(ch byte) bool {
	return isKeywordStart(ch) || (ch >= '0' && ch <= '9') || ch == '-'
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
