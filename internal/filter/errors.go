package filter

import "fmt"

// InvalidTermError reports a term that code tried to build but that the
// filter language cannot express.
type InvalidTermError struct {
	Keyword  string
	Relation Relation
	Reason   string
}

func (e *InvalidTermError) Error() string {
	if e.Keyword == "" {
		return "invalid filter term: " + e.Reason
	}
	return fmt.Sprintf("invalid filter term %q: %s", e.Keyword, e.Reason)
}
