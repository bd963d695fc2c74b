package tui

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/forms"
	"github.com/bullrushinvestments/carbonclicks/pkg/render"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

const noneOption = "(none)"

// Renderer drives a form from a terminal. Fill prompts for every field and
// submits through the controller; Render prints a non-interactive summary of
// a View.
type Renderer struct {
	driver       PromptDriver
	outputFormat OutputFormat
	theme        Theme
	maxRounds    int
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		outputFormat: OutputFormatJSON,
		theme:        Theme{ErrorPrefix: "✗ ", SuccessPrefix: "✓ "},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(nil)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render and Result.
func (r *Renderer) ContentType() string {
	if r.outputFormat == OutputFormatPrettyText {
		return "text/plain; charset=utf-8"
	}
	return "application/json"
}

// Render summarises view without prompting.
func (r *Renderer) Render(ctx context.Context, view render.View, _ render.RenderOptions) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	values := make(map[string]any, len(view.Fields))
	errs := make(map[string]any)
	for _, f := range view.Fields {
		values[f.Name] = f.Value
		if f.Error != "" {
			errs[f.Name] = f.Error
		}
	}
	summary := map[string]any{
		"form":   view.ID,
		"phase":  view.Phase,
		"values": values,
	}
	if len(errs) > 0 {
		summary["errors"] = errs
	}
	if view.Banner != "" {
		summary["message"] = view.Banner
	}
	return r.serialize(summary)
}

// Result serialises a settled state: the submitted payload, the boundary's
// data on success, or the failure message.
func (r *Renderer) Result(state submission.State) ([]byte, error) {
	summary := map[string]any{
		"phase": state.Phase.String(),
	}
	if state.Payload != nil {
		summary["values"] = map[string]any(state.Payload)
	}
	if state.Data != nil {
		summary["data"] = state.Data
	}
	if state.Message != "" {
		summary["message"] = state.Message
	}
	return r.serialize(summary)
}

// Fill prompts for def's fields, submits through c, re-prompts only the
// fields that failed validation, and offers a retry after a boundary failure.
// It returns the final state once the submission succeeds.
func (r *Renderer) Fill(ctx context.Context, def forms.Definition, c *submission.Controller) (submission.State, error) {
	if r.driver == nil {
		return submission.State{}, errors.New("tui: prompt driver is nil")
	}
	set := c.Fields()
	if err := set.Require(def.FieldNames()...); err != nil {
		return submission.State{}, fmt.Errorf("tui: form %q: %w", def.ID, err)
	}

	if def.Title != "" {
		if err := r.driver.Info(ctx, def.Title); err != nil {
			return submission.State{}, err
		}
	}

	pending := def.FieldNames()
	rounds := 0
	for {
		if err := ctx.Err(); err != nil {
			return c.State(), err
		}
		for _, name := range pending {
			declared, _ := set.Field(name)
			if err := r.promptField(ctx, declared, c); err != nil {
				return c.State(), err
			}
		}

		if err := r.info(ctx, def.SubmitText(true)); err != nil {
			return c.State(), err
		}
		state := c.Submit(ctx)

		switch state.Phase {
		case submission.PhaseSucceeded:
			message := def.SuccessMessage
			if message == "" {
				message = "Submission successful"
			}
			return state, r.driver.Info(ctx, r.theme.SuccessPrefix+message)

		case submission.PhaseFailed:
			if err := r.driver.Info(ctx, r.theme.ErrorPrefix+state.Message); err != nil {
				return state, err
			}
			retry, err := r.driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
			if err != nil {
				return state, err
			}
			if !retry {
				return state, ErrGaveUp
			}
			pending = invalidFields(def, set.Errors())

		case submission.PhaseIdle:
			rounds++
			pending = invalidFields(def, state.Validation)
			for _, name := range pending {
				declared, _ := set.Field(name)
				msg := fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, declared.DisplayLabel(), state.Validation.Message(name))
				if err := r.driver.Info(ctx, msg); err != nil {
					return state, err
				}
			}
			if r.maxRounds > 0 && rounds >= r.maxRounds {
				return state, fmt.Errorf("tui: form %q still invalid after %d attempts", def.ID, rounds)
			}

		default:
			return state, fmt.Errorf("tui: form %q is busy", def.ID)
		}
	}
}

func (r *Renderer) promptField(ctx context.Context, f field.Field, c *submission.Controller) error {
	current, err := c.Fields().Value(f.Name)
	if err != nil {
		return err
	}
	display := field.FormatValue(current)
	label := f.DisplayLabel()
	help := f.Help

	var response string
	switch f.Kind {
	case field.KindSelect:
		response, err = r.promptSelect(ctx, f, display)
	case field.KindTextArea, field.KindList:
		if f.Kind == field.KindList && help == "" {
			help = "One item per line."
		}
		response, err = r.driver.TextArea(ctx, TextAreaConfig{
			Message: label,
			Default: display,
			Help:    help,
		})
	default:
		response, err = r.driver.Input(ctx, InputConfig{
			Message:     label,
			Default:     display,
			Help:        help,
			Placeholder: f.Placeholder,
		})
	}
	if err != nil {
		return err
	}
	return c.SetField(f.Name, response)
}

func (r *Renderer) promptSelect(ctx context.Context, f field.Field, current string) (string, error) {
	options := make([]string, 0, len(f.Options)+1)
	values := make([]string, 0, len(f.Options)+1)
	if !f.Required {
		options = append(options, noneOption)
		values = append(values, "")
	}
	defaultIdx := -1
	for _, opt := range f.Options {
		label := opt.Label
		if label == "" {
			label = opt.Value
		}
		if opt.Value == current {
			defaultIdx = len(values)
		}
		options = append(options, label)
		values = append(values, opt.Value)
	}

	message := f.DisplayLabel()
	if f.Placeholder != "" {
		message = fmt.Sprintf("%s (%s)", message, f.Placeholder)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: defaultIdx,
		Help:         f.Help,
	})
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= len(values) {
		return "", nil
	}
	return values[idx], nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	if msg == "" {
		return nil
	}
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

// invalidFields lists def's fields with an issue in result, in form order.
func invalidFields(def forms.Definition, result field.ValidationResult) []string {
	var out []string
	for _, name := range def.FieldNames() {
		if result.Has(name) {
			out = append(out, name)
		}
	}
	return out
}

func (r *Renderer) serialize(values map[string]any) ([]byte, error) {
	if r.outputFormat == OutputFormatPrettyText {
		return []byte(prettyPrint(values)), nil
	}
	out, err := sonic.ConfigStd.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("tui: encode result: %w", err)
	}
	return out, nil
}

func prettyPrint(values map[string]any) string {
	var b strings.Builder
	writePretty(&b, "", values)
	return b.String()
}

func writePretty(b *strings.Builder, prefix string, value any) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			next := key
			if prefix != "" {
				next = prefix + "." + key
			}
			writePretty(b, next, v[key])
		}
	case field.Values:
		writePretty(b, prefix, map[string]any(v))
	case []string:
		for idx, val := range v {
			fmt.Fprintf(b, "%s[%d]=%s\n", prefix, idx, val)
		}
	case []any:
		for idx, val := range v {
			writePretty(b, fmt.Sprintf("%s[%d]", prefix, idx), val)
		}
	default:
		if prefix != "" {
			fmt.Fprintf(b, "%s=%s\n", prefix, field.FormatValue(v))
		}
	}
}
