package filter

import (
	"fmt"
	"strconv"
	"strings"
)

// Keywords that may appear without a relation. Older report filters used
// them as switches, and stored filters still carry them.
var legacyFlags = map[string]bool{
	"notes":             true,
	"overrides":         true,
	"result_hosts_only": true,
}

// Term is one keyword/relation/value clause of a Filter. The empty keyword
// marks the search term.
type Term struct {
	Keyword  string
	Relation Relation
	Value    string
}

// NewTerm builds a term from code. Unlike parsing, it rejects anything the
// language cannot round-trip.
func NewTerm(keyword string, rel Relation, value any) (Term, error) {
	if keyword == "" {
		return Term{}, &InvalidTermError{Relation: rel, Reason: "keyword is required"}
	}
	if !validKeyword(keyword) {
		return Term{}, &InvalidTermError{Keyword: keyword, Relation: rel, Reason: "keyword contains invalid characters"}
	}
	if !rel.Valid() {
		return Term{}, &InvalidTermError{Keyword: keyword, Relation: rel, Reason: fmt.Sprintf("unknown relation %d", int(rel))}
	}
	v, err := formatValue(value)
	if err != nil {
		return Term{}, &InvalidTermError{Keyword: keyword, Relation: rel, Reason: err.Error()}
	}
	if rel == None {
		if !legacyFlags[keyword] {
			return Term{}, &InvalidTermError{Keyword: keyword, Relation: rel, Reason: "relation is required"}
		}
		if v != "" {
			return Term{}, &InvalidTermError{Keyword: keyword, Relation: rel, Reason: "bare flag cannot carry a value"}
		}
	}
	return Term{Keyword: keyword, Relation: rel, Value: v}, nil
}

// NewSearchTerm builds the keyword-less search term. Only Equal and Approx
// make sense for free text; other relations fall back to Approx.
func NewSearchTerm(value string, rel Relation) Term {
	if rel != Equal {
		rel = Approx
	}
	return Term{Relation: rel, Value: value}
}

// ParseTerm parses exactly one term. It reports false when text does not
// hold a term; anything after the first unquoted whitespace is ignored.
func ParseTerm(text string) (Term, bool) {
	toks := lex(text)
	if len(toks) == 0 {
		return Term{}, false
	}
	return splitTerm(toks[0])
}

// IsSearch reports whether t is the keyword-less search term.
func (t Term) IsSearch() bool {
	return t.Keyword == ""
}

// Equal reports whether both terms have the same keyword, relation and value.
func (t Term) Equal(o Term) bool {
	return t.Keyword == o.Keyword && t.Relation == o.Relation && t.Value == o.Value
}

// String renders the term in the form ParseTerm reads back.
func (t Term) String() string {
	if t.Relation == None {
		return t.Keyword
	}
	return t.Keyword + t.Relation.String() + quoteValue(t.Value)
}

func quoteValue(v string) string {
	if !needsQuotes(v) {
		return v
	}
	var b strings.Builder
	b.Grow(len(v) + 2)
	b.WriteByte('"')
	for i := 0; i < len(v); i++ {
		if v[i] == '"' || v[i] == '\\' {
			b.WriteByte('\\')
		}
		b.WriteByte(v[i])
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuotes(v string) bool {
	if strings.HasPrefix(v, "=") {
		return true
	}
	return strings.ContainsAny(v, " \t\r\n\"")
}

func formatValue(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		if v {
			return "1", nil
		}
		return "0", nil
	case fmt.Stringer:
		return v.String(), nil
	}
	return "", fmt.Errorf("unsupported value type %T", value)
}
