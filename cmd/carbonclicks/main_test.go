package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bullrushinvestments/carbonclicks/pkg/openapi"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestFormsCommand(t *testing.T) {
	out, err := execute(t, "forms", "--log-format", "console")
	if err != nil {
		t.Fatalf("forms: %v", err)
	}
	for _, fragment := range []string{"business-specification", "rest", "requirements", "simulated", "test-case", "graphql"} {
		if !strings.Contains(out, fragment) {
			t.Fatalf("expected %q in output:\n%s", fragment, out)
		}
	}
}

func TestFormsCommand_FormsDirOverride(t *testing.T) {
	dir := t.TempDir()
	def := "id: feedback\ntitle: Feedback\nboundary:\n  kind: simulated\nfields:\n  - name: comment\n    required: true\n"
	if err := os.WriteFile(filepath.Join(dir, "feedback.yaml"), []byte(def), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out, err := execute(t, "forms", "--forms-dir", dir)
	if err != nil {
		t.Fatalf("forms: %v", err)
	}
	if !strings.Contains(out, "feedback") {
		t.Fatalf("expected extra form in output:\n%s", out)
	}
}

func TestOpenAPICommand(t *testing.T) {
	out, err := execute(t, "openapi", "--server", "https://forms.example.test")
	if err != nil {
		t.Fatalf("openapi: %v", err)
	}
	doc, err := openapi.Load(context.Background(), []byte(out))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(doc.Servers) != 1 || doc.Servers[0].URL != "https://forms.example.test" {
		t.Fatalf("unexpected servers %+v", doc.Servers)
	}
}

func TestFillCommand_UnknownForm(t *testing.T) {
	if _, err := execute(t, "fill", "missing"); err == nil || !strings.Contains(err.Error(), "unknown form") {
		t.Fatalf("expected unknown form error, got %v", err)
	}
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	if _, err := execute(t, "forms", "--log-format", "xml"); err == nil {
		t.Fatalf("expected invalid log format error")
	}
}

func TestLocalURL(t *testing.T) {
	cases := map[string]string{
		":8080":          "http://127.0.0.1:8080",
		"localhost:9000": "http://localhost:9000",
	}
	for in, want := range cases {
		if got := localURL(in); got != want {
			t.Fatalf("localURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestServeCommand_RequiresAPIWithoutMock(t *testing.T) {
	_, err := execute(t, "serve", "--no-mock-api", "--addr", "127.0.0.1:0")
	if err == nil || !strings.Contains(err.Error(), `form "business-specification" needs an API`) {
		t.Fatalf("expected missing API error, got %v", err)
	}
}

func TestFillCommand_RequiresGraphQLWithoutMock(t *testing.T) {
	t.Setenv("CARBONCLICKS_MOCK_API", "false")
	_, err := execute(t, "fill", "test-case")
	if err == nil || !strings.Contains(err.Error(), "needs a GraphQL endpoint") {
		t.Fatalf("expected missing GraphQL endpoint error, got %v", err)
	}
}
