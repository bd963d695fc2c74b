package submission

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

const tracerName = "github.com/bullrushinvestments/carbonclicks/pkg/submission"

var (
	ErrNilFields   = errors.New("submission: field set is nil")
	ErrNilBoundary = errors.New("submission: boundary is nil")
)

// Observer receives every state the controller enters, in Seq order.
type Observer func(State)

type subscription struct {
	id uint64
	fn Observer
}

// Controller drives one form instance through validate, submit, and settle.
// It owns the field set it was built with; a single boundary call is in flight
// at most.
type Controller struct {
	name           string
	fields         *field.Set
	boundary       Boundary
	logger         *zap.Logger
	tracer         trace.Tracer
	timeout        time.Duration
	failureMessage string
	onSuccess      []func(State)

	mu        sync.Mutex
	state     State
	seq       uint64
	observers []subscription
	nextID    uint64
	pending   []State
	draining  bool
}

// New builds a controller in the Idle state.
func New(fields *field.Set, boundary Boundary, opts ...Option) (*Controller, error) {
	if fields == nil {
		return nil, ErrNilFields
	}
	if boundary == nil {
		return nil, ErrNilBoundary
	}
	c := &Controller{
		name:     "form",
		fields:   fields,
		boundary: boundary,
		logger:   zap.NewNop(),
		state:    idle(field.ValidationResult{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(tracerName)
	}
	c.logger = c.logger.With(zap.String("form", c.name))
	return c, nil
}

// MustNew is New that panics on error.
func MustNew(fields *field.Set, boundary Boundary, opts ...Option) *Controller {
	c, err := New(fields, boundary, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Name returns the form name.
func (c *Controller) Name() string { return c.name }

// Fields exposes the field set for rendering.
func (c *Controller) Fields() *field.Set { return c.fields }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// SetField edits a value. Edits made while submitting are kept but do not
// change the payload already handed to the boundary.
func (c *Controller) SetField(name string, value any) error {
	return c.fields.SetField(name, value)
}

// Subscribe registers fn and returns a function that removes it.
func (c *Controller) Subscribe(fn Observer) (cancel func()) {
	if fn == nil {
		return func() {}
	}
	c.mu.Lock()
	id := c.addObserver(fn)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, sub := range c.observers {
				if sub.id == id {
					c.observers = append(c.observers[:i:i], c.observers[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *Controller) addObserver(fn Observer) uint64 {
	c.nextID++
	c.observers = append(c.observers, subscription{id: c.nextID, fn: fn})
	return c.nextID
}

// Submit validates the fields and, when they are valid, calls the boundary
// once and settles on its outcome. It returns the resulting state: Idle with
// the validation issues, Succeeded, or Failed. A Submit issued while another
// one is in flight is ignored and returns the current state.
func (c *Controller) Submit(ctx context.Context) State {
	c.mu.Lock()
	if c.state.Busy() {
		current := c.state.clone()
		c.mu.Unlock()
		c.logger.Debug("submit ignored while busy", zap.Stringer("phase", current.Phase))
		return current
	}
	c.setLocked(validating())
	c.mu.Unlock()
	c.flush()

	payload, result := c.fields.ValidateValues()
	if !result.Valid() {
		c.logger.Debug("submission rejected by validation", zap.Strings("fields", result.Fields()))
		return c.transition(idle(result))
	}

	c.transition(submitting(payload))
	outcome := c.call(ctx, payload.Clone())

	if outcome.IsOk() {
		c.fields.Reset()
		state := c.transition(succeeded(payload, outcome.Data()))
		for _, hook := range c.onSuccess {
			hook(state)
		}
		return state
	}

	message := outcome.Message()
	if fieldErrors := outcome.FieldErrors(); len(fieldErrors) > 0 {
		form := c.fields.ApplyErrorPayload(fieldErrors)
		if len(form) > 0 && message == UnexpectedErrorMessage {
			message = form[0]
		}
	}
	if c.failureMessage != "" {
		message = c.failureMessage
	}
	c.logger.Warn("submission failed", zap.String("message", message), zap.Error(outcome.Err()))
	return c.transition(failed(payload, message))
}

// SubmitAsync runs Submit on its own goroutine. The channel receives the
// settled state and is then closed.
func (c *Controller) SubmitAsync(ctx context.Context) <-chan State {
	out := make(chan State, 1)
	go func() {
		defer close(out)
		out <- c.Submit(ctx)
	}()
	return out
}

// Reset restores the fields and returns to Idle. While a call is in flight
// only the fields are reset; the call still settles normally.
func (c *Controller) Reset() {
	c.fields.Reset()

	c.mu.Lock()
	if c.state.Busy() || (c.state.IsIdle() && c.state.Validation.Valid()) {
		c.mu.Unlock()
		return
	}
	c.setLocked(idle(field.ValidationResult{}))
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) call(ctx context.Context, payload field.Values) (outcome Outcome) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	ctx, span := c.tracer.Start(ctx, "submission.boundary",
		trace.WithAttributes(attribute.String("form.name", c.name)))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("boundary panicked", zap.Any("panic", r))
			err := fmt.Errorf("submission: boundary panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, UnexpectedErrorMessage)
			outcome = Fail(&BoundaryError{Message: UnexpectedErrorMessage, Err: err})
		}
	}()

	start := time.Now()
	outcome = c.boundary.Submit(ctx, payload)
	c.logger.Debug("boundary settled", zap.Bool("ok", outcome.IsOk()), zap.Duration("elapsed", time.Since(start)))
	if !outcome.IsOk() {
		span.RecordError(outcome.Err())
		span.SetStatus(codes.Error, outcome.Message())
	}
	return outcome
}

func (c *Controller) transition(next State) State {
	c.mu.Lock()
	state := c.setLocked(next)
	c.mu.Unlock()
	c.flush()
	return state
}

// setLocked must be called with mu held.
func (c *Controller) setLocked(next State) State {
	c.seq++
	next.Seq = c.seq
	c.state = next
	c.pending = append(c.pending, next.clone())
	c.logger.Debug("submission state", zap.Stringer("phase", next.Phase), zap.Uint64("seq", next.Seq))
	return next.clone()
}

// flush delivers queued states. Only one goroutine drains at a time, so
// observers see states in Seq order even when transitions race; observers run
// without the lock held and may call back into the controller.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.draining {
		c.mu.Unlock()
		return
	}
	c.draining = true
	for len(c.pending) > 0 {
		batch := c.pending
		c.pending = nil
		observers := append([]subscription(nil), c.observers...)
		c.mu.Unlock()
		for _, state := range batch {
			for _, sub := range observers {
				sub.fn(state)
			}
		}
		c.mu.Lock()
	}
	c.draining = false
	c.mu.Unlock()
}
