package tui

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
	"github.com/bullrushinvestments/carbonclicks/pkg/testsupport"
)

type stubDriver struct {
	inputs       []string
	selectIdx    []int
	confirm      []bool
	textAreas    []string
	infoMessages []string
	inputPos     int
	selectPos    int
	confirmPos   int
	textPos      int
	err          error
}

func (s *stubDriver) Input(_ context.Context, _ InputConfig) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.inputPos >= len(s.inputs) {
		return "", errors.New("no input scripted")
	}
	val := s.inputs[s.inputPos]
	s.inputPos++
	return val, nil
}

func (s *stubDriver) Confirm(_ context.Context, _ ConfirmConfig) (bool, error) {
	if s.confirmPos >= len(s.confirm) {
		return false, errors.New("no confirm scripted")
	}
	val := s.confirm[s.confirmPos]
	s.confirmPos++
	return val, nil
}

func (s *stubDriver) Select(_ context.Context, _ SelectConfig) (int, error) {
	if s.selectPos >= len(s.selectIdx) {
		return -1, errors.New("no select scripted")
	}
	val := s.selectIdx[s.selectPos]
	s.selectPos++
	return val, nil
}

func (s *stubDriver) TextArea(_ context.Context, _ TextAreaConfig) (string, error) {
	if s.textPos >= len(s.textAreas) {
		return "", errors.New("no textarea scripted")
	}
	val := s.textAreas[s.textPos]
	s.textPos++
	return val, nil
}

func (s *stubDriver) Info(_ context.Context, msg string) error {
	s.infoMessages = append(s.infoMessages, msg)
	return nil
}

func (s *stubDriver) saw(fragment string) bool {
	for _, msg := range s.infoMessages {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}

func newRenderer(t *testing.T, driver PromptDriver, opts ...Option) *Renderer {
	t.Helper()
	r, err := New(append([]Option{WithPromptDriver(driver)}, opts...)...)
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	return r
}

func TestFill_RequirementsSelect(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.Requirements)
	boundary := &testsupport.RecordingBoundary{Outcome: submission.Ok("req-1")}
	c := testsupport.NewController(t, def, boundary)
	driver := &stubDriver{
		inputs:    []string{"Offsets"},
		textAreas: []string{"Buy offsets"},
		selectIdx: []int{0},
	}

	state, err := newRenderer(t, driver).Fill(context.Background(), def, c)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !state.IsSucceeded() {
		t.Fatalf("expected success, got %s", state.Phase)
	}
	want := []field.Values{{"featureName": "Offsets", "description": "Buy offsets", "priority": "high"}}
	if diff := cmp.Diff(want, boundary.Calls()); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
	if !driver.saw("Submitting...") || !driver.saw("Requirement submitted.") {
		t.Fatalf("expected pending and success messages, got %v", driver.infoMessages)
	}
}

func TestFill_RepromptsOnlyInvalidFields(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.BusinessSpecification)
	boundary := &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)}
	c := testsupport.NewController(t, def, boundary)
	driver := &stubDriver{
		inputs:    []string{"Acme", "Retail", "zero", "5"},
		textAreas: []string{"Reports\nOffsets"},
	}

	state, err := newRenderer(t, driver).Fill(context.Background(), def, c)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !state.IsSucceeded() || driver.inputPos != 4 || driver.textPos != 1 {
		t.Fatalf("unexpected prompt usage: phase=%s inputs=%d text=%d", state.Phase, driver.inputPos, driver.textPos)
	}
	if !driver.saw("Number of Users: Please enter a valid number") || driver.saw("Business Name: This is required") {
		t.Fatalf("expected inline errors, got %v", driver.infoMessages)
	}
	want := []field.Values{{
		"businessName":     "Acme",
		"industryType":     "Retail",
		"numberOfUsers":    float64(5),
		"featuresRequired": []string{"Reports", "Offsets"},
	}}
	if diff := cmp.Diff(want, boundary.Calls()); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}
}

func TestFill_RetryAfterFailure(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	var calls atomic.Int32
	c := testsupport.NewController(t, def, submission.BoundaryFunc(func(context.Context, field.Values) submission.Outcome {
		if calls.Add(1) == 1 {
			return submission.Err("network down")
		}
		return submission.Ok(nil)
	}))
	driver := &stubDriver{
		inputs:    []string{"Login"},
		textAreas: []string{"works"},
		confirm:   []bool{true},
	}

	state, err := newRenderer(t, driver).Fill(context.Background(), def, c)
	if err != nil {
		t.Fatalf("fill: %v", err)
	}
	if !state.IsSucceeded() || calls.Load() != 2 {
		t.Fatalf("expected retry to succeed, phase=%s calls=%d", state.Phase, calls.Load())
	}
	if driver.inputPos != 1 || !driver.saw("network down") {
		t.Fatalf("retry should resubmit without prompting again, infos=%v", driver.infoMessages)
	}
}

func TestFill_DeclineRetry(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Err("nope")})
	driver := &stubDriver{
		inputs:    []string{"Login"},
		textAreas: []string{"works"},
		confirm:   []bool{false},
	}

	state, err := newRenderer(t, driver).Fill(context.Background(), def, c)
	if !errors.Is(err, ErrGaveUp) {
		t.Fatalf("expected ErrGaveUp, got %v", err)
	}
	if !state.IsFailed() || state.Message != "nope" {
		t.Fatalf("unexpected state %+v", state)
	}
	if got := c.Fields().Values().String("title"); got != "Login" {
		t.Fatalf("values must survive a failure, got %q", got)
	}
}

func TestFill_MaxRounds(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	boundary := &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)}
	c := testsupport.NewController(t, def, boundary)
	driver := &stubDriver{inputs: []string{""}, textAreas: []string{""}}

	_, err := newRenderer(t, driver, WithMaxRounds(1)).Fill(context.Background(), def, c)
	if err == nil || !strings.Contains(err.Error(), "still invalid") {
		t.Fatalf("expected max rounds error, got %v", err)
	}
	if len(boundary.Calls()) != 0 {
		t.Fatalf("boundary must not be called with invalid input")
	}
}

func TestFill_Aborted(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})

	_, err := newRenderer(t, &stubDriver{err: ErrAborted}).Fill(context.Background(), def, c)
	if !errors.Is(err, ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
}

func TestRender_PrettySummary(t *testing.T) {
	def := testsupport.MustBuiltin(t, forms.TestCase)
	c := testsupport.NewController(t, def, &testsupport.RecordingBoundary{Outcome: submission.Ok(nil)})
	_ = c.SetField("title", "Login")
	c.Submit(context.Background())

	view, err := render.NewView(def, c)
	if err != nil {
		t.Fatalf("NewView: %v", err)
	}
	out, err := newRenderer(t, &stubDriver{}, WithOutputFormat(OutputFormatPrettyText)).Render(context.Background(), view, render.RenderOptions{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "errors.description=" + field.DefaultRequiredMessage + "\nform=test-case\nphase=idle\nvalues.description=\nvalues.title=Login\n"
	if diff := cmp.Diff(want, string(out)); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}
}

func TestResult_JSON(t *testing.T) {
	r := newRenderer(t, &stubDriver{})
	out, err := r.Result(submission.State{Phase: submission.PhaseFailed, Message: "boom"})
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if string(out) != `{"message":"boom","phase":"failed"}` {
		t.Fatalf("unexpected json %s", out)
	}
	if r.ContentType() != "application/json" || r.Name() != "tui" {
		t.Fatalf("unexpected renderer identity")
	}
}
