package field

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestMapErrorPayload(t *testing.T) {
	names := []string{"title", "description", "featuresRequired"}
	payload := map[string][]string{
		"/data/title":             {"Title already exists", " Title already exists "},
		"body.featuresRequired[1]": {"Unknown feature"},
		"description":             {""},
		"non_field_errors":        {"Quota exceeded"},
		"owner.email":             {"Owner is invalid"},
	}

	got := MapErrorPayload(names, payload)

	want := ErrorMapping{
		Fields: map[string][]string{
			"title":            {"Title already exists"},
			"featuresRequired": {"Unknown feature"},
		},
		Form: []string{"Quota exceeded", "Owner is invalid"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mapping mismatch (-want +got):\n%s", diff)
	}
}

func TestSet_ApplyErrorPayload(t *testing.T) {
	set := MustNew(
		Field{Name: "title", Required: true},
		Field{Name: "description", Required: true},
	)

	form := set.ApplyErrorPayload(map[string][]string{
		"#/description": {"Too vague"},
		"__all__":       {"Try again later"},
	})

	if diff := cmp.Diff([]string{"Try again later"}, form); diff != "" {
		t.Fatalf("form messages mismatch (-want +got):\n%s", diff)
	}
	want := ValidationResult{Issues: []Issue{{Field: "description", Message: "Too vague"}}}
	if diff := cmp.Diff(want, set.Errors()); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}
