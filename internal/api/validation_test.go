package api

import (
	"strings"
	"testing"
)

type testForm struct {
	Location string `validate:"required,max=10"`
	Limit    int    `validate:"gte=1,lte=5"`
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		in   testForm
		want map[string]string
	}{
		{
			name: "valid",
			in:   testForm{Location: "Bay 3", Limit: 2},
			want: nil,
		},
		{
			name: "missing required",
			in:   testForm{Limit: 1},
			want: map[string]string{"location": "is required"},
		},
		{
			name: "too long",
			in:   testForm{Location: strings.Repeat("x", 11), Limit: 1},
			want: map[string]string{"location": "must be at most 10 characters"},
		},
		{
			name: "multibyte within limit",
			in:   testForm{Location: strings.Repeat("ü", 10), Limit: 1},
			want: nil,
		},
		{
			name: "numeric bounds",
			in:   testForm{Location: "x", Limit: 9},
			want: map[string]string{"limit": "must be at most 5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Validate(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("Validate() = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("field %s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Location":      "location",
		"SubmitterID":   "submitter_i_d",
		"PerPage":       "per_page",
		"already_snake": "already_snake",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
