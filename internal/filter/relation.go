package filter

// Relation is the comparison operator between a term's keyword and its value.
type Relation int

const (
	None         Relation = iota // bare keyword, no operator
	Equal                        // =
	Approx                       // ~
	Less                         // <
	Greater                      // >
	LessEqual                    // <=
	GreaterEqual                 // >=
)

var relationSymbols = map[Relation]string{
	None:         "",
	Equal:        "=",
	Approx:       "~",
	Less:         "<",
	Greater:      ">",
	LessEqual:    "<=",
	GreaterEqual: ">=",
}

// String returns the operator symbol, or "" for None.
func (r Relation) String() string {
	return relationSymbols[r]
}

// Valid reports whether r is one of the declared relations.
func (r Relation) Valid() bool {
	_, ok := relationSymbols[r]
	return ok
}

// ParseRelation maps an operator symbol back to its Relation.
func ParseRelation(symbol string) (Relation, bool) {
	for r, s := range relationSymbols {
		if s == symbol && r != None {
			return r, true
		}
	}
	return None, false
}

// scanRelation reports the relation starting at s[i], if any, and its
// length in bytes. Two-character operators win over their prefixes.
func scanRelation(s string, i int) (Relation, int) {
	switch s[i] {
	case '<':
		if i+1 < len(s) && s[i+1] == '=' {
			return LessEqual, 2
		}
		return Less, 1
	case '>':
		if i+1 < len(s) && s[i+1] == '=' {
			return GreaterEqual, 2
		}
		return Greater, 1
	case '~':
		return Approx, 1
	case '=':
		return Equal, 1
	}
	return None, 0
}
