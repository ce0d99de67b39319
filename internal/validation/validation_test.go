package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ata-marzban/scanfilter/internal/filter"
	"github.com/ata-marzban/scanfilter/internal/keywords"
	"github.com/ata-marzban/scanfilter/internal/store"
)

func TestValidateNamedFilter(t *testing.T) {
	reg := keywords.Default()

	tests := []struct {
		name     string
		nf       *store.NamedFilter
		wantCode codes.Code
		wantTerm string
	}{
		{
			name:     "valid",
			nf:       &store.NamedFilter{Name: "web", EntityType: "task", Term: "name~web   rows=10 sort=name"},
			wantCode: codes.OK,
			wantTerm: "name~web rows=10 sort=name",
		},
		{
			name:     "normalizes quoting",
			nf:       &store.NamedFilter{Name: "q", EntityType: "result", Term: `severity="5.0" description~"a b"`},
			wantCode: codes.OK,
			wantTerm: `severity=5.0 description~"a b"`,
		},
		{
			name:     "nil",
			nf:       nil,
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "missing name",
			nf:       &store.NamedFilter{Name: "  ", EntityType: "task", Term: "rows=1"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "long name",
			nf:       &store.NamedFilter{Name: strings.Repeat("x", MaxNameLength+1), EntityType: "task", Term: "rows=1"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "missing type",
			nf:       &store.NamedFilter{Name: "a", Term: "rows=1"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "unknown type",
			nf:       &store.NamedFilter{Name: "a", EntityType: "spaceship", Term: "rows=1"},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "empty term",
			nf:       &store.NamedFilter{Name: "a", EntityType: "task", Term: "   "},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "dropped fragment",
			nf:       &store.NamedFilter{Name: "a", EntityType: "task", Term: `rows=1 "loose text"`},
			wantCode: codes.InvalidArgument,
		},
		{
			name:     "unsortable keyword",
			nf:       &store.NamedFilter{Name: "a", EntityType: "task", Term: "sort-reverse=target"},
			wantCode: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var before store.NamedFilter
			if tt.nf != nil {
				before = *tt.nf
			}
			got, err := ValidateNamedFilter(tt.nf, reg)
			if code := status.Code(err); code != tt.wantCode {
				t.Fatalf("got code %v, want %v (err: %v)", code, tt.wantCode, err)
			}
			if tt.nf != nil && *tt.nf != before {
				t.Errorf("input modified: %+v, was %+v", *tt.nf, before)
			}
			if tt.wantCode == codes.OK && got.Term != tt.wantTerm {
				t.Errorf("term = %q, want %q", got.Term, tt.wantTerm)
			}
		})
	}
}

func TestFieldErrorDetails(t *testing.T) {
	err := FieldError("term", "bad %s", "thing")
	st := status.Convert(err)
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("code = %v", st.Code())
	}
	var found bool
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		found = true
		v := br.GetFieldViolations()
		if len(v) != 1 || v[0].GetField() != "term" || v[0].GetDescription() != "bad thing" {
			t.Errorf("violations = %v", v)
		}
	}
	if !found {
		t.Error("no BadRequest detail")
	}
}

func TestTermError(t *testing.T) {
	_, err := filter.New().SetRelation("severity", filter.None, "")
	if got := status.Code(TermError("filter", err)); got != codes.InvalidArgument {
		t.Errorf("got %v", got)
	}

	other := errors.New("boom")
	if TermError("filter", other) != other {
		t.Error("unrelated errors must pass through")
	}
}

func TestParseTerm(t *testing.T) {
	f, err := ParseTerm("filter", "name=a rows=5")
	if err != nil {
		t.Fatal(err)
	}
	if f.String() != "name=a rows=5" {
		t.Errorf("got %q", f)
	}
	if _, err := ParseTerm("filter", "name=a ???"); status.Code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func TestValidateListQuery(t *testing.T) {
	tests := []struct {
		query    string
		wantCode codes.Code
	}{
		{"", codes.OK},
		{"type=task sort=name", codes.OK},
		{"sort-reverse=modified rows=5", codes.OK},
		{"sort=severity", codes.InvalidArgument},
	}
	for _, tt := range tests {
		if got := status.Code(ValidateListQuery(filter.Parse(tt.query))); got != tt.wantCode {
			t.Errorf("ValidateListQuery(%q) = %v, want %v", tt.query, got, tt.wantCode)
		}
	}
}

func TestValidateFilterID(t *testing.T) {
	if err := ValidateFilterID(uuid.NewString()); err != nil {
		t.Errorf("valid id rejected: %v", err)
	}
	for _, id := range []string{"", "42", "not-a-uuid"} {
		if status.Code(ValidateFilterID(id)) != codes.InvalidArgument {
			t.Errorf("ValidateFilterID(%q) accepted", id)
		}
	}
}
