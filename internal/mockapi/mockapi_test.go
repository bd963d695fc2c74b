package mockapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bullrushinvestments/carbonclicks/internal/mockapi"
	"github.com/bullrushinvestments/carbonclicks/pkg/boundary"
	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

func newServer(t *testing.T) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	api := mockapi.New(nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return api, srv
}

func TestCreateBusiness_ThroughJSONBoundary(t *testing.T) {
	api, srv := newServer(t)
	b := boundary.NewJSON(srv.URL + mockapi.CreateBusinessPath)

	outcome := b.Submit(context.Background(), field.Values{
		"businessName":     "Acme",
		"industryType":     "Retail",
		"numberOfUsers":    float64(5),
		"featuresRequired": []string{"Reports", "Export"},
	})
	if !outcome.IsOk() {
		t.Fatalf("expected success, got %v", outcome.Err())
	}
	data, ok := outcome.Data().(map[string]any)
	if !ok || data["id"] == "" || data["businessName"] != "Acme" {
		t.Fatalf("unexpected response data %#v", outcome.Data())
	}

	stored := api.Businesses()
	if len(stored) != 1 {
		t.Fatalf("expected one stored business, got %d", len(stored))
	}
	if diff := cmp.Diff([]string{"Reports", "Export"}, stored[0].FeaturesRequired); diff != "" {
		t.Fatalf("features mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateBusiness_DuplicateNameReportsFieldError(t *testing.T) {
	_, srv := newServer(t)
	b := boundary.NewJSON(srv.URL + mockapi.CreateBusinessPath)
	values := field.Values{
		"businessName":     "Acme",
		"industryType":     "Retail",
		"numberOfUsers":    float64(2),
		"featuresRequired": []string{"Reports"},
	}

	if outcome := b.Submit(context.Background(), values); !outcome.IsOk() {
		t.Fatalf("first submit: %v", outcome.Err())
	}
	outcome := b.Submit(context.Background(), values)
	if outcome.IsOk() {
		t.Fatalf("expected duplicate to fail")
	}
	if !strings.Contains(outcome.Message(), "already exists") {
		t.Fatalf("unexpected message %q", outcome.Message())
	}
	if diff := cmp.Diff(map[string][]string{"businessName": {"Already registered"}}, outcome.FieldErrors()); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateBusiness_ValidatesInput(t *testing.T) {
	_, srv := newServer(t)
	b := boundary.NewJSON(srv.URL + mockapi.CreateBusinessPath)

	outcome := b.Submit(context.Background(), field.Values{"businessName": "  "})
	if outcome.IsOk() {
		t.Fatalf("expected validation failure")
	}
	if outcome.Message() != "Validation failed" {
		t.Fatalf("unexpected message %q", outcome.Message())
	}
	fields := outcome.FieldErrors()
	for _, name := range []string{"businessName", "industryType", "numberOfUsers", "featuresRequired"} {
		if len(fields[name]) == 0 {
			t.Fatalf("expected error for %s, got %v", name, fields)
		}
	}
}

func TestCreateBusiness_RejectsMalformedBody(t *testing.T) {
	_, srv := newServer(t)
	resp, err := http.Post(srv.URL+mockapi.CreateBusinessPath, "application/json", strings.NewReader("{"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGraphQL_CreateTestAndRefetch(t *testing.T) {
	api, srv := newServer(t)
	var refetched any
	b, err := boundary.NewGraphQL(boundary.GraphQLConfig{
		Endpoint:  srv.URL + mockapi.GraphQLPath,
		Mutation:  boundary.CreateTestMutation,
		ResultKey: "createTest",
		Refetch:   []boundary.Refetch{{Name: "tests", Query: boundary.TestsQuery}},
		OnRefetch: func(_ string, data any) { refetched = data },
	})
	if err != nil {
		t.Fatalf("NewGraphQL: %v", err)
	}

	outcome := b.Submit(context.Background(), field.Values{"title": "Login", "description": "works"})
	if !outcome.IsOk() {
		t.Fatalf("expected success, got %v", outcome.Err())
	}
	created, _ := outcome.Data().(map[string]any)
	if created["title"] != "Login" || created["id"] == "" {
		t.Fatalf("unexpected created test %#v", outcome.Data())
	}
	list, _ := refetched.([]any)
	if len(list) != 1 {
		t.Fatalf("expected refetched list with one entry, got %#v", refetched)
	}
	if got := api.Tests(); len(got) != 1 || got[0].Description != "works" {
		t.Fatalf("unexpected stored tests %+v", got)
	}

	outcome = b.Submit(context.Background(), field.Values{"title": "login", "description": "again"})
	if outcome.IsOk() {
		t.Fatalf("expected duplicate title to fail")
	}
	if diff := cmp.Diff([]string{`A test titled "login" already exists`}, outcome.FieldErrors()["title"]); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestGraphQL_MissingVariables(t *testing.T) {
	_, srv := newServer(t)
	b, err := boundary.NewGraphQL(boundary.GraphQLConfig{
		Endpoint: srv.URL + mockapi.GraphQLPath,
		Mutation: boundary.CreateTestMutation,
	})
	if err != nil {
		t.Fatalf("NewGraphQL: %v", err)
	}

	outcome := b.Submit(context.Background(), field.Values{"title": "Only title"})
	if outcome.IsOk() || outcome.Message() != "Description is required" {
		t.Fatalf("unexpected outcome ok=%v message=%q", outcome.IsOk(), outcome.Message())
	}
}

func TestGraphQL_UnsupportedOperation(t *testing.T) {
	_, srv := newServer(t)
	b, err := boundary.NewGraphQL(boundary.GraphQLConfig{
		Endpoint: srv.URL + mockapi.GraphQLPath,
		Mutation: "mutation { deleteEverything }",
	})
	if err != nil {
		t.Fatalf("NewGraphQL: %v", err)
	}
	if outcome := b.Submit(context.Background(), nil); outcome.Message() != "unsupported operation" {
		t.Fatalf("unexpected message %q", outcome.Message())
	}
}
