package boundary

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

// Documents used by the test-case form.
const (
	CreateTestMutation = `mutation CreateTest($title: String!, $description: String!) {
  createTest(title: $title, description: $description) {
    id
    title
    description
  }
}`
	TestsQuery = `query Tests {
  tests {
    id
    title
    description
  }
}`
)

// Refetch is a query re-run after a successful mutation.
type Refetch struct {
	Name  string
	Query string
}

// GraphQLConfig describes one mutation.
type GraphQLConfig struct {
	Endpoint string
	// Mutation is the document sent with the field values as variables.
	Mutation string
	// ResultKey selects data.<ResultKey> as the success payload.
	ResultKey string
	// Variables maps field values to mutation variables. nil sends the values
	// unchanged.
	Variables func(field.Values) map[string]any
	Refetch   []Refetch
	// OnRefetch receives data.<Name> for each refetched query.
	OnRefetch func(name string, data any)
}

// GraphQL runs a mutation over HTTP.
type GraphQL struct {
	cfg GraphQLConfig
	transport
}

// NewGraphQL validates cfg and returns the boundary.
func NewGraphQL(cfg GraphQLConfig, opts ...Option) (*GraphQL, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("boundary: graphql endpoint is required")
	}
	if strings.TrimSpace(cfg.Mutation) == "" {
		return nil, errors.New("boundary: graphql mutation is required")
	}
	return &GraphQL{cfg: cfg, transport: newTransport(opts)}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]any `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Submit implements submission.Boundary. The first GraphQL error's message
// becomes the failure text; errors whose extensions name a field are also
// reported as field errors.
func (g *GraphQL) Submit(ctx context.Context, values field.Values) submission.Outcome {
	variables := map[string]any(values)
	if g.cfg.Variables != nil {
		variables = g.cfg.Variables(values)
	}

	resp, err := g.do(ctx, graphQLRequest{Query: g.cfg.Mutation, Variables: variables})
	if err != nil {
		g.logger.Warn("graphql mutation failed", zap.String("endpoint", g.cfg.Endpoint), zap.Error(err))
		return submission.Fail(err)
	}
	if len(resp.Errors) > 0 {
		return submission.Fail(errorFromGraphQL(resp.Errors))
	}

	var data any = resp.Data
	if g.cfg.ResultKey != "" {
		data = resp.Data[g.cfg.ResultKey]
	}
	g.refetch(ctx)
	return submission.Ok(data)
}

func (g *GraphQL) refetch(ctx context.Context) {
	for _, r := range g.cfg.Refetch {
		resp, err := g.do(ctx, graphQLRequest{Query: r.Query})
		if err != nil {
			g.logger.Warn("graphql refetch failed", zap.String("query", r.Name), zap.Error(err))
			continue
		}
		if len(resp.Errors) > 0 {
			g.logger.Warn("graphql refetch returned errors",
				zap.String("query", r.Name),
				zap.String("message", resp.Errors[0].Message))
			continue
		}
		if g.cfg.OnRefetch != nil {
			g.cfg.OnRefetch(r.Name, resp.Data[r.Name])
		}
	}
}

func (g *GraphQL) do(ctx context.Context, payload graphQLRequest) (graphQLResponse, error) {
	var out graphQLResponse
	body, err := sonic.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("boundary: encode graphql request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("boundary: build graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	g.applyHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return out, &submission.BoundaryError{Message: transportMessage(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("boundary: read graphql response: %w", err)
	}
	if err := sonic.Unmarshal(raw, &out); err != nil {
		if resp.StatusCode >= 300 {
			return out, errorFromBody(resp.StatusCode, raw)
		}
		return out, fmt.Errorf("boundary: decode graphql response: %w", err)
	}
	if resp.StatusCode >= 300 && len(out.Errors) == 0 {
		return out, errorFromBody(resp.StatusCode, raw)
	}
	return out, nil
}

func errorFromGraphQL(errs []graphQLError) *submission.BoundaryError {
	out := &submission.BoundaryError{Message: strings.TrimSpace(errs[0].Message)}
	for _, e := range errs {
		name, _ := e.Extensions["field"].(string)
		if name == "" {
			continue
		}
		if out.Fields == nil {
			out.Fields = make(map[string][]string)
		}
		out.Fields[name] = append(out.Fields[name], e.Message)
	}
	if out.Message == "" {
		out.Message = submission.UnexpectedErrorMessage
	}
	return out
}
