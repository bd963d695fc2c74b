package field

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestApplyPatch_ReplacesAndCoerces(t *testing.T) {
	set := MustNew(businessFields()...)
	set.Validate()

	err := set.ApplyPatch([]PatchOperation{
		{Op: PatchReplace, Path: "/businessName", Value: "Acme"},
		{Op: PatchReplace, Path: "/numberOfUsers", Value: "12"},
		{Op: PatchAdd, Path: "/featuresRequired/-", Value: "billing"},
	})
	if err != nil {
		t.Fatalf("apply patch: %v", err)
	}

	want := Values{
		"businessName":     "Acme",
		"industryType":     "",
		"numberOfUsers":    float64(12),
		"featuresRequired": []string{"billing"},
	}
	if diff := cmp.Diff(want, set.Values()); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"industryType"}, set.Errors().Fields()); diff != "" {
		t.Fatalf("only untouched fields should keep errors (-want +got):\n%s", diff)
	}
}

func TestApplyPatch_RemoveRestoresInitial(t *testing.T) {
	set := MustNew(Field{Name: "priority", Kind: KindSelect, Initial: "medium", Options: []Option{{Value: "high"}, {Value: "medium"}}})
	mustSet(t, set, "priority", "high")

	if err := set.ApplyPatch([]PatchOperation{{Op: PatchRemove, Path: "/priority"}}); err != nil {
		t.Fatalf("apply patch: %v", err)
	}
	got, _ := set.Value("priority")
	if got != "medium" {
		t.Fatalf("expected initial value, got %#v", got)
	}
}

func TestApplyPatch_IsAtomic(t *testing.T) {
	set := MustNew(businessFields()...)
	mustSet(t, set, "businessName", "Before")

	err := set.ApplyPatch([]PatchOperation{
		{Op: PatchReplace, Path: "/businessName", Value: "After"},
		{Op: PatchTest, Path: "/industryType", Value: "Retail"},
	})
	if err == nil {
		t.Fatalf("expected failing test op to abort the patch")
	}
	got, _ := set.Value("businessName")
	if got != "Before" {
		t.Fatalf("patch partially applied: %#v", got)
	}
}

func TestApplyPatch_RejectsUnknownPathsAndOps(t *testing.T) {
	set := MustNew(businessFields()...)

	if err := set.ApplyPatch([]PatchOperation{{Op: PatchReplace, Path: "/owner", Value: "x"}}); !IsUnknownField(err) {
		t.Fatalf("expected unknown field error, got %v", err)
	}
	if err := set.ApplyPatch([]PatchOperation{{Op: "move", Path: "/businessName"}}); err == nil {
		t.Fatalf("expected unsupported op error")
	}
	if err := set.ApplyPatch([]PatchOperation{{Op: PatchReplace, Path: "", Value: "x"}}); err == nil {
		t.Fatalf("expected whole-document path to be rejected")
	}
}
