package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "carbonclicks.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, "addr: \":9000\"\nsubmitTimeout: 5s\nlogLevel: debug\ntheme: carbonclicks\nvariant: dark\n")
	t.Setenv("CARBONCLICKS_ADDR", ":9100")
	t.Setenv("CARBONCLICKS_MOCK_API", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Addr = ":9100"
	want.SubmitTimeout = 5 * time.Second
	want.LogLevel = "debug"
	want.Variant = "dark"
	want.MockAPI = false
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeFile(t, "adress: \":9000\"\n")
	if _, err := Load(path); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	if _, err := Load(writeFile(t, "")); err != nil {
		t.Fatalf("empty file should keep defaults: %v", err)
	}
}

func TestLoad_EnvError(t *testing.T) {
	t.Setenv("CARBONCLICKS_SUBMIT_TIMEOUT", "soon")
	_, err := Load("")
	if err == nil || !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Addr = " "
	cfg.LogLevel = "loud"
	cfg.LogFormat = "xml"
	cfg.SubmitTimeout = -time.Second

	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, fragment := range []string{"addr is required", "submitTimeout", "logLevel", "logFormat"} {
		if !strings.Contains(err.Error(), fragment) {
			t.Fatalf("expected %q in %v", fragment, err)
		}
	}
}

func TestEndpoints(t *testing.T) {
	cfg := Default()
	if got := cfg.APIBase("http://localhost:8080/"); got != "http://localhost:8080" {
		t.Fatalf("APIBase fallback = %q", got)
	}
	if got := cfg.GraphQLEndpoint("http://localhost:8080"); got != "http://localhost:8080/graphql" {
		t.Fatalf("GraphQLEndpoint fallback = %q", got)
	}
	cfg.APIBaseURL = "https://api.example.com/"
	cfg.GraphQLURL = "https://gql.example.com/query"
	if cfg.APIBase("x") != "https://api.example.com" || cfg.GraphQLEndpoint("x") != "https://gql.example.com/query" {
		t.Fatalf("configured endpoints not used")
	}
}
