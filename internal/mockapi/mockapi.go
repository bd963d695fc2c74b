// Package mockapi is an in-memory demo backend for the built-in forms: a REST
// endpoint for business specifications and a tiny GraphQL endpoint for test
// cases.
package mockapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Routes served by Handler.
const (
	CreateBusinessPath = "/api/create-business"
	GraphQLPath        = "/graphql"
)

const maxBody = 1 << 20

// Business is a stored business specification.
type Business struct {
	ID               string    `json:"id"`
	BusinessName     string    `json:"businessName"`
	IndustryType     string    `json:"industryType"`
	NumberOfUsers    float64   `json:"numberOfUsers"`
	FeaturesRequired []string  `json:"featuresRequired"`
	CreatedAt        time.Time `json:"createdAt"`
}

// TestCase is a stored test written through the GraphQL mutation.
type TestCase struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Server holds the demo data.
type Server struct {
	mu         sync.RWMutex
	businesses []Business
	tests      []TestCase
	logger     *zap.Logger
	now        func() time.Time
}

// New returns an empty server. A nil logger discards logs.
func New(logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{logger: logger, now: time.Now}
}

// Handler routes the demo endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+CreateBusinessPath, s.createBusiness)
	mux.HandleFunc("POST "+GraphQLPath, s.graphql)
	return mux
}

// Register mounts the demo endpoints on mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST "+CreateBusinessPath, s.createBusiness)
	mux.HandleFunc("POST "+GraphQLPath, s.graphql)
}

// Businesses returns the stored specifications.
func (s *Server) Businesses() []Business {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Business(nil), s.businesses...)
}

// Tests returns the stored test cases.
func (s *Server) Tests() []TestCase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]TestCase(nil), s.tests...)
}

type errorBody struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

func (s *Server) createBusiness(w http.ResponseWriter, r *http.Request) {
	var in Business
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err == nil {
		err = sonic.Unmarshal(raw, &in)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Message: "Request body must be a JSON object"})
		return
	}

	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.IndustryType = strings.TrimSpace(in.IndustryType)
	fields := make(map[string][]string)
	if in.BusinessName == "" {
		fields["businessName"] = []string{"Business name is required"}
	}
	if in.IndustryType == "" {
		fields["industryType"] = []string{"Industry type is required"}
	}
	if in.NumberOfUsers < 1 {
		fields["numberOfUsers"] = []string{"Must be at least 1"}
	}
	if len(in.FeaturesRequired) == 0 {
		fields["featuresRequired"] = []string{"List at least one feature"}
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Message: "Validation failed", Errors: fields})
		return
	}

	s.mu.Lock()
	for _, existing := range s.businesses {
		if strings.EqualFold(existing.BusinessName, in.BusinessName) {
			s.mu.Unlock()
			writeJSON(w, http.StatusConflict, errorBody{
				Message: fmt.Sprintf("A business named %q already exists", in.BusinessName),
				Errors:  map[string][]string{"businessName": {"Already registered"}},
			})
			return
		}
	}
	in.ID = uuid.NewString()
	in.CreatedAt = s.now().UTC()
	s.businesses = append(s.businesses, in)
	s.mu.Unlock()

	s.logger.Info("business specification created", zap.String("id", in.ID), zap.String("name", in.BusinessName))
	writeJSON(w, http.StatusCreated, in)
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLError struct {
	Message    string         `json:"message"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []graphQLError `json:"errors,omitempty"`
}

// graphql understands exactly two operations: the createTest mutation and
// the tests query. Anything else is answered with a GraphQL error.
func (s *Server) graphql(w http.ResponseWriter, r *http.Request) {
	var req graphQLRequest
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err == nil {
		err = sonic.Unmarshal(raw, &req)
	}
	if err != nil {
		writeJSON(w, http.StatusBadRequest, graphQLResponse{Errors: []graphQLError{{Message: "invalid GraphQL request"}}})
		return
	}

	query := strings.TrimSpace(req.Query)
	switch {
	case strings.HasPrefix(query, "mutation") && strings.Contains(query, "createTest"):
		writeJSON(w, http.StatusOK, s.createTest(req.Variables))
	case strings.Contains(query, "tests"):
		writeJSON(w, http.StatusOK, graphQLResponse{Data: map[string]any{"tests": s.Tests()}})
	default:
		writeJSON(w, http.StatusOK, graphQLResponse{Errors: []graphQLError{{Message: "unsupported operation"}}})
	}
}

func (s *Server) createTest(vars map[string]any) graphQLResponse {
	title := strings.TrimSpace(stringVar(vars, "title"))
	description := strings.TrimSpace(stringVar(vars, "description"))

	var errs []graphQLError
	if title == "" {
		errs = append(errs, graphQLError{Message: "Title is required", Extensions: map[string]any{"field": "title"}})
	}
	if description == "" {
		errs = append(errs, graphQLError{Message: "Description is required", Extensions: map[string]any{"field": "description"}})
	}
	if len(errs) > 0 {
		return graphQLResponse{Errors: errs}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.tests {
		if strings.EqualFold(existing.Title, title) {
			return graphQLResponse{Errors: []graphQLError{{
				Message:    fmt.Sprintf("A test titled %q already exists", title),
				Extensions: map[string]any{"field": "title"},
			}}}
		}
	}
	tc := TestCase{ID: uuid.NewString(), Title: title, Description: description}
	s.tests = append(s.tests, tc)
	s.logger.Info("test case created", zap.String("id", tc.ID), zap.String("title", tc.Title))
	return graphQLResponse{Data: map[string]any{"createTest": tc}}
}

func stringVar(vars map[string]any, name string) string {
	s, _ := vars[name].(string)
	return s
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	payload, err := sonic.Marshal(body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}
