// Package backend talks to the toy store REST service.
//
// Every call returns apperr kinds: transport failures and unexpected
// statuses become NetworkError, 404 becomes NotFound and 401/403 become
// AuthRequired. The service's {"message": ...} body is surfaced as the error
// message when present.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/ariefcatur/toy-session-engine/internal/apperr"
)

const tracerName = "github.com/ariefcatur/toy-session-engine/internal/backend"

type Client struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
	tracer  trace.Tracer
}

func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
		tracer:  otel.Tracer(tracerName),
	}
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends body as JSON (when non-nil) and decodes a 2xx response into out
// (when non-nil). op names the span and log records.
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, span := c.tracer.Start(ctx, "backend."+op, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, err, "encode request")
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, err, "build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.log.WarnContext(ctx, "backend request failed", "op", op, "err", err)
		return apperr.Network(err, fmt.Sprintf("%s failed", op))
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	c.log.DebugContext(ctx, "backend request", "op", op, "status", resp.StatusCode, "took", time.Since(start))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		span.RecordError(err)
		return apperr.Network(err, fmt.Sprintf("%s: read response", op))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e := statusError(op, resp.StatusCode, raw)
		span.SetStatus(codes.Error, e.Msg)
		return e
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		return apperr.Network(err, fmt.Sprintf("%s: decode response", op))
	}
	return nil
}

func statusError(op string, code int, raw []byte) *apperr.Error {
	var eb errorBody
	_ = json.Unmarshal(raw, &eb)
	msg := eb.Message
	if msg == "" {
		msg = eb.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("%s: %s", op, http.StatusText(code))
	}

	switch code {
	case http.StatusNotFound:
		return apperr.New(apperr.KindNotFound, "%s", msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.New(apperr.KindAuthRequired, "%s", msg)
	default:
		return apperr.New(apperr.KindNetwork, "%s", msg)
	}
}
