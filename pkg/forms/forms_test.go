package forms

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

func TestBuiltin_LoadsShippedForms(t *testing.T) {
	registry, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}

	var ids []string
	for _, def := range registry.List() {
		ids = append(ids, def.ID)
	}
	if diff := cmp.Diff([]string{BusinessSpecification, Requirements, TestCase}, ids); diff != "" {
		t.Fatalf("ids mismatch (-want +got):\n%s", diff)
	}

	business, _ := registry.Get(BusinessSpecification)
	if business.Boundary.Kind != BoundaryREST || business.Boundary.Path != "/api/create-business" {
		t.Fatalf("unexpected business boundary %+v", business.Boundary)
	}
	if business.SubmitText(false) != "Create" || business.SubmitText(true) != "Creating..." {
		t.Fatalf("unexpected business labels")
	}

	reqs, _ := registry.Get(Requirements)
	delay, err := reqs.Boundary.DelayDuration()
	if err != nil || delay != 2*time.Second {
		t.Fatalf("expected 2s simulated delay, got %v (%v)", delay, err)
	}

	tc, _ := registry.Get(TestCase)
	if diff := cmp.Diff([]string{"title", "description"}, tc.EnableWhenFilled); diff != "" {
		t.Fatalf("enableWhenFilled mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinition_BusinessFieldSetScenario(t *testing.T) {
	registry, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	def, _ := registry.Get(BusinessSpecification)
	set, err := def.FieldSet()
	if err != nil {
		t.Fatalf("FieldSet: %v", err)
	}

	_ = set.SetField("businessName", "")
	_ = set.SetField("industryType", "Retail")
	_ = set.SetField("numberOfUsers", 5)
	_ = set.SetField("featuresRequired", "Carbon report")

	want := map[string]string{"businessName": "This is required"}
	if diff := cmp.Diff(want, set.Validate().Map()); diff != "" {
		t.Fatalf("validation mismatch (-want +got):\n%s", diff)
	}
}

func TestDefinition_RequirementsDefaults(t *testing.T) {
	registry, _ := Builtin()
	def, _ := registry.Get(Requirements)
	set, err := def.FieldSet()
	if err != nil {
		t.Fatalf("FieldSet: %v", err)
	}

	result := set.Validate()
	for _, name := range []string{"featureName", "description", "priority"} {
		if msg := result.Message(name); msg != field.DefaultRequiredMessage {
			t.Fatalf("%s: expected default required message, got %q", name, msg)
		}
	}
	priority, _ := set.Field("priority")
	if priority.Placeholder != "Select priority" || len(priority.Options) != 3 {
		t.Fatalf("unexpected priority field %+v", priority)
	}
}

func TestLoadFS_JSONAndYAML(t *testing.T) {
	fsys := fstest.MapFS{
		"a.json": {Data: []byte(`{"id":"contact","title":"Contact","boundary":{"kind":"rest","path":"/api/contact"},"fields":[{"name":"email","required":true,"rules":[{"kind":"pattern","params":{"pattern":"@"}}]}]}`)},
		"nested/b.yml": {Data: []byte("id: feedback\ntitle: Feedback\nboundary:\n  kind: simulated\nfields:\n  - name: note\n    kind: textarea\n")},
		"README.md":    {Data: []byte("ignored")},
	}

	registry, err := LoadFS(fsys)
	if err != nil {
		t.Fatalf("LoadFS: %v", err)
	}
	contact, ok := registry.Get("contact")
	if !ok || contact.Source != "a.json" {
		t.Fatalf("contact not loaded: %+v", contact)
	}
	if diff := cmp.Diff([]string{"email"}, contact.FieldNames()); diff != "" {
		t.Fatalf("field names mismatch (-want +got):\n%s", diff)
	}
	if _, ok := registry.Get("feedback"); !ok {
		t.Fatalf("feedback not loaded")
	}
}

func TestLoadFS_Errors(t *testing.T) {
	cases := map[string]string{
		"empty":         "",
		"garbage":       "{not: [valid",
		"no id":         "title: x\nboundary:\n  kind: simulated\n",
		"bad boundary":  "id: x\nboundary:\n  kind: carrier-pigeon\n",
		"bad path":      "id: x\nboundary:\n  kind: rest\n  path: api\n",
		"bad delay":     "id: x\nboundary:\n  kind: simulated\n  delay: soon\n",
		"unknown fill":  "id: x\nenableWhenFilled: [title]\nboundary:\n  kind: simulated\n",
		"bad field":     "id: x\nboundary:\n  kind: simulated\nfields:\n  - name: p\n    kind: select\n",
		"graphql no op": "id: x\nboundary:\n  kind: graphql\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadFS(fstest.MapFS{"form.yaml": {Data: []byte(body)}})
			if err == nil || !strings.HasPrefix(err.Error(), "forms:") {
				t.Fatalf("expected forms error, got %v", err)
			}
		})
	}
}

func TestRegistry_DuplicateAndMerge(t *testing.T) {
	def := Definition{ID: "x", Boundary: BoundarySpec{Kind: BoundarySimulated}}
	registry := NewRegistry()
	if err := registry.Register(def); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register(def); err == nil {
		t.Fatalf("expected duplicate error")
	}

	override := NewRegistry()
	replacement := def
	replacement.Title = "Override"
	_ = override.Register(replacement)
	registry.Merge(override)

	got, _ := registry.Get("x")
	if got.Title != "Override" {
		t.Fatalf("merge did not replace definition: %+v", got)
	}
}
