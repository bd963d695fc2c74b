package openapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
)

const (
	stateSchema = "SubmissionState"
	patchSchema = "FieldPatch"
	formSchema  = "FormSummary"
	viewSchema  = "FormView"
)

// Option tweaks document metadata.
type Option func(*config)

type config struct {
	title       string
	version     string
	description string
	servers     []string
}

// WithInfo overrides the document title and version.
func WithInfo(title, version string) Option {
	return func(cfg *config) {
		if title != "" {
			cfg.title = title
		}
		if version != "" {
			cfg.version = version
		}
	}
}

// WithServer adds a server URL.
func WithServer(url string) Option {
	return func(cfg *config) {
		if url != "" {
			cfg.servers = append(cfg.servers, url)
		}
	}
}

// Build describes the form host routes for defs. Each form gets its own
// submit path with a request schema; the remaining routes are shared.
func Build(defs []forms.Definition, opts ...Option) (*openapi3.T, error) {
	cfg := config{
		title:       "CarbonClicks forms",
		version:     "1.0.0",
		description: "Form submission endpoints for the CarbonClicks web host.",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       cfg.title,
			Version:     cfg.version,
			Description: cfg.description,
		},
		Paths: openapi3.NewPaths(),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				stateSchema: openapi3.NewSchemaRef("", submissionStateSchema()),
				patchSchema: openapi3.NewSchemaRef("", fieldPatchSchema()),
				formSchema:  openapi3.NewSchemaRef("", formSummarySchema()),
				viewSchema:  openapi3.NewSchemaRef("", formViewSchema()),
			},
		},
	}
	for _, url := range cfg.servers {
		doc.Servers = append(doc.Servers, &openapi3.Server{URL: url})
	}

	doc.AddOperation("/healthz", http.MethodGet, operation("health", "Liveness probe", jsonResponse("Service is up", openapi3.NewObjectSchema())))
	list := openapi3.NewArraySchema()
	list.Items = refSchema(doc, formSchema)
	doc.AddOperation("/forms", http.MethodGet, operation("listForms", "List declared forms",
		jsonResponse("Declared forms", list)))

	seen := make(map[string]struct{}, len(defs))
	for _, def := range defs {
		if def.ID == "" {
			return nil, errors.New("openapi: form id is required")
		}
		if _, dup := seen[def.ID]; dup {
			return nil, fmt.Errorf("openapi: duplicate form %q", def.ID)
		}
		seen[def.ID] = struct{}{}
		addFormPaths(doc, def)
	}
	return doc, nil
}

func addFormPaths(doc *openapi3.T, def forms.Definition) {
	name := SchemaName(def.ID)
	doc.Components.Schemas[name] = openapi3.NewSchemaRef("", RequestSchema(def))
	base := "/forms/" + def.ID

	submit := operation("submit"+name, "Submit "+def.Title,
		jsonResponse("Form view after the submission settled", refSchema(doc, viewSchema)))
	submit.Description = "Validates the fields and calls the form's external boundary once."
	submit.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.Content{
			"application/json":                  openapi3.NewMediaType().WithSchemaRef(refSchema(doc, name)),
			"application/x-www-form-urlencoded": openapi3.NewMediaType().WithSchemaRef(refSchema(doc, name)),
		})}
	setResponse(submit, http.StatusConflict, "A newer state exists; the submission was not sent", refSchema(doc, viewSchema))
	setResponse(submit, http.StatusUnprocessableEntity, "Field validation failed; the submission was not sent", refSchema(doc, viewSchema))
	doc.AddOperation(base, http.MethodPost, submit)

	doc.AddOperation(base, http.MethodGet, operation("show"+name, "Render "+def.Title,
		jsonResponse("Form view", refSchema(doc, viewSchema))))

	patchList := openapi3.NewArraySchema()
	patchList.Items = refSchema(doc, patchSchema)
	patch := operation("patch"+name, "Edit "+def.Title+" fields",
		jsonResponse("Form view after the edit", refSchema(doc, viewSchema)))
	patch.RequestBody = &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithContent(openapi3.Content{
			"application/json-patch+json": openapi3.NewMediaType().WithSchema(patchList),
		})}
	setResponse(patch, http.StatusUnprocessableEntity, "Patch rejected", openapi3.NewSchemaRef("", openapi3.NewObjectSchema()))
	doc.AddOperation(base+"/fields", http.MethodPatch, patch)

	doc.AddOperation(base+"/reset", http.MethodPost, operation("reset"+name, "Reset "+def.Title,
		jsonResponse("Form view after reset", refSchema(doc, viewSchema))))
	doc.AddOperation(base+"/state", http.MethodGet, operation("state"+name, def.Title+" state",
		jsonResponse("Current form state", refSchema(doc, stateSchema))))
}

func operation(id, summary string, ok *openapi3.Response) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: id,
		Summary:     summary,
		Responses:   &openapi3.Responses{},
	}
	op.Responses.Set("200", &openapi3.ResponseRef{Value: ok})
	return op
}

func setResponse(op *openapi3.Operation, status int, description string, schema *openapi3.SchemaRef) {
	resp := openapi3.NewResponse().WithDescription(description).WithContent(
		openapi3.NewContentWithJSONSchemaRef(schema))
	op.Responses.Set(fmt.Sprint(status), &openapi3.ResponseRef{Value: resp})
}

func jsonResponse(description string, schema any) *openapi3.Response {
	resp := openapi3.NewResponse().WithDescription(description)
	switch s := schema.(type) {
	case *openapi3.SchemaRef:
		resp.WithContent(openapi3.NewContentWithJSONSchemaRef(s))
	case *openapi3.Schema:
		resp.WithJSONSchema(s)
	}
	return resp
}

// refSchema points at a component schema. The resolved value is kept on the
// ref so the in-memory document validates without a loader pass.
func refSchema(doc *openapi3.T, name string) *openapi3.SchemaRef {
	var value *openapi3.Schema
	if component := doc.Components.Schemas[name]; component != nil {
		value = component.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

func submissionStateSchema() *openapi3.Schema {
	phase := openapi3.NewStringSchema()
	phase.Enum = []any{"idle", "validating", "submitting", "succeeded", "failed"}

	return openapi3.NewObjectSchema().
		WithProperty("form", openapi3.NewStringSchema()).
		WithProperty("phase", phase).
		WithProperty("seq", openapi3.NewInt64Schema()).
		WithProperty("message", openapi3.NewStringSchema()).
		WithProperty("payload", openapi3.NewObjectSchema()).
		WithProperty("data", &openapi3.Schema{}).
		WithProperty("errors", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema())).
		WithRequired([]string{"phase", "seq"})
}

func fieldPatchSchema() *openapi3.Schema {
	op := openapi3.NewStringSchema()
	op.Enum = []any{"add", "remove", "replace", "test"}
	path := openapi3.NewStringSchema()
	path.Pattern = "^/"
	return openapi3.NewObjectSchema().
		WithProperty("op", op).
		WithProperty("path", path).
		WithProperty("value", &openapi3.Schema{}).
		WithRequired([]string{"op", "path"})
}

func formViewSchema() *openapi3.Schema {
	fieldView := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("label", openapi3.NewStringSchema()).
		WithProperty("kind", openapi3.NewStringSchema()).
		WithProperty("required", openapi3.NewBoolSchema()).
		WithProperty("value", &openapi3.Schema{}).
		WithProperty("display", openapi3.NewStringSchema()).
		WithProperty("error", openapi3.NewStringSchema()).
		WithRequired([]string{"name", "kind", "display"})
	hidden := openapi3.NewObjectSchema().
		WithProperty("name", openapi3.NewStringSchema()).
		WithProperty("value", openapi3.NewStringSchema())

	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("phase", openapi3.NewStringSchema()).
		WithProperty("busy", openapi3.NewBoolSchema()).
		WithProperty("submitLabel", openapi3.NewStringSchema()).
		WithProperty("submitDisabled", openapi3.NewBoolSchema()).
		WithProperty("enableWhenFilled", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("banner", openapi3.NewStringSchema()).
		WithProperty("success", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewArraySchema().WithItems(fieldView)).
		WithProperty("action", openapi3.NewStringSchema()).
		WithProperty("hidden", openapi3.NewArraySchema().WithItems(hidden)).
		WithRequired([]string{"id", "phase", "fields"})
}

func formSummarySchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("id", openapi3.NewStringSchema()).
		WithProperty("title", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("href", openapi3.NewStringSchema()).
		WithRequired([]string{"id", "title", "href"})
}

// Validate runs kin-openapi's document validation.
func Validate(ctx context.Context, doc *openapi3.T) error {
	if doc == nil {
		return errors.New("openapi: document is nil")
	}
	if err := doc.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return fmt.Errorf("openapi: validate: %w", err)
	}
	return nil
}

// Marshal encodes doc as JSON.
func Marshal(doc *openapi3.T) ([]byte, error) {
	if doc == nil {
		return nil, errors.New("openapi: document is nil")
	}
	out, err := doc.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("openapi: encode: %w", err)
	}
	return out, nil
}

// Load parses and validates a JSON or YAML OpenAPI document.
func Load(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := Validate(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
