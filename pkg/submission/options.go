package submission

import (
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Option customises a Controller.
type Option func(*Controller)

// WithName labels logs and spans with the form name.
func WithName(name string) Option {
	return func(c *Controller) {
		c.name = name
	}
}

// WithLogger sets the logger. nil keeps the no-op default.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer used for boundary spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Controller) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// WithTimeout bounds each boundary call with a context deadline. The controller
// still waits for the boundary to return, so calls never overlap.
func WithTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithObserver subscribes fn for the controller's lifetime.
func WithObserver(fn Observer) Option {
	return func(c *Controller) {
		if fn != nil {
			c.addObserver(fn)
		}
	}
}

// OnSuccess registers a hook run with the Succeeded state on the goroutine
// that called Submit, before Submit returns. When another goroutine is
// delivering states, observers may receive Succeeded after the hook runs.
func OnSuccess(fn func(State)) Option {
	return func(c *Controller) {
		if fn != nil {
			c.onSuccess = append(c.onSuccess, fn)
		}
	}
}

// WithFailureMessage replaces the boundary's message with a fixed banner text.
func WithFailureMessage(message string) Option {
	return func(c *Controller) {
		c.failureMessage = message
	}
}
