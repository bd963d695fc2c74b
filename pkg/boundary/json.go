package boundary

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
	"github.com/bullrushinvestments/carbonclicks/pkg/submission"
)

const maxResponseBytes = 1 << 20

// JSON posts the field values as a JSON object to a REST endpoint.
type JSON struct {
	url string
	transport
}

// NewJSON returns a boundary posting to url.
func NewJSON(url string, opts ...Option) *JSON {
	return &JSON{url: url, transport: newTransport(opts)}
}

// Submit implements submission.Boundary. A 2xx response settles Ok with the
// decoded body (nil when empty). Any other status settles with a
// *submission.BoundaryError built from the error body.
func (b *JSON) Submit(ctx context.Context, values field.Values) submission.Outcome {
	body, err := sonic.Marshal(values)
	if err != nil {
		return submission.Fail(fmt.Errorf("boundary: encode payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.url, bytes.NewReader(body))
	if err != nil {
		return submission.Fail(fmt.Errorf("boundary: build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	b.applyHeaders(req)

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Warn("json boundary request failed", zap.String("url", b.url), zap.Error(err))
		return submission.Fail(&submission.BoundaryError{Message: transportMessage(ctx, err), Err: err})
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return submission.Fail(fmt.Errorf("boundary: read response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		data, err := decodeBody(raw)
		if err != nil {
			return submission.Fail(fmt.Errorf("boundary: decode response: %w", err))
		}
		return submission.Ok(data)
	}

	b.logger.Debug("json boundary rejected",
		zap.String("url", b.url),
		zap.Int("status", resp.StatusCode))
	return submission.Fail(errorFromBody(resp.StatusCode, raw))
}

func decodeBody(raw []byte) (any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var data any
	if err := sonic.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}

// errorBody covers the common REST error shapes: {"message": ...},
// {"error": ...}, and field errors under "errors" or "fields" as either a
// single string or a list per key.
type errorBody struct {
	Message string         `json:"message"`
	Error   string         `json:"error"`
	Errors  map[string]any `json:"errors"`
	Fields  map[string]any `json:"fields"`
}

func errorFromBody(status int, raw []byte) *submission.BoundaryError {
	out := &submission.BoundaryError{Status: status}
	var body errorBody
	if len(bytes.TrimSpace(raw)) > 0 && sonic.Unmarshal(raw, &body) == nil {
		out.Message = strings.TrimSpace(body.Message)
		if out.Message == "" {
			out.Message = strings.TrimSpace(body.Error)
		}
		out.Fields = mergeFieldErrors(body.Errors, body.Fields)
	} else if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 {
		out.Message = text
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("request failed: %d %s", status, http.StatusText(status))
	}
	return out
}

func mergeFieldErrors(sources ...map[string]any) map[string][]string {
	var out map[string][]string
	for _, src := range sources {
		for key, value := range src {
			messages := toMessages(value)
			if len(messages) == 0 {
				continue
			}
			if out == nil {
				out = make(map[string][]string)
			}
			out[key] = append(out[key], messages...)
		}
	}
	return out
}

func toMessages(value any) []string {
	switch typed := value.(type) {
	case string:
		return []string{typed}
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func transportMessage(ctx context.Context, err error) string {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr.Error()
	}
	return err.Error()
}
