package boundary

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

const defaultHTTPTimeout = 30 * time.Second

// transport carries the settings shared by the HTTP-backed boundaries.
type transport struct {
	client  *http.Client
	headers http.Header
	logger  *zap.Logger
}

func newTransport(opts []Option) transport {
	t := transport{
		client:  &http.Client{Timeout: defaultHTTPTimeout},
		headers: make(http.Header),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&t)
		}
	}
	return t
}

// Option configures an HTTP-backed boundary.
type Option func(*transport)

// WithHTTPClient swaps the client used for requests.
func WithHTTPClient(client *http.Client) Option {
	return func(t *transport) {
		if client != nil {
			t.client = client
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(t *transport) {
		t.headers.Add(key, value)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(t *transport) {
		if logger != nil {
			t.logger = logger
		}
	}
}

func (t transport) applyHeaders(req *http.Request) {
	for key, values := range t.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
}
