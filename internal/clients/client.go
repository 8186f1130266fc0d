// Package clients holds the HTTP clients the services use to talk to each other.
//
// Every call gets its own timeout and span and runs behind a circuit breaker.
// Client errors (4xx) are answers, not outages, so they never trip the breaker.
package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrNotFound           = errors.New("resource not found")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnexpectedStatus   = errors.New("unexpected status code")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultTimeout          = 3 * time.Second
	breakerFailureThreshold = 5
	breakerOpenTimeout      = 30 * time.Second
)

// Option configures a client.
type Option func(*base)

// WithTimeout bounds every call made by the client.
func WithTimeout(d time.Duration) Option {
	return func(b *base) {
		if d > 0 {
			b.timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.http = c }
}

// WithTransport wraps calls in a custom round tripper, e.g. a fault injector.
func WithTransport(rt http.RoundTripper) Option {
	return func(b *base) { b.http = &http.Client{Transport: rt} }
}

type base struct {
	name    string
	baseURL string
	http    *http.Client
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker
	tracer  trace.Tracer
}

type response struct {
	status int
	body   []byte
}

func newBase(name, baseURL string, opts []Option) base {
	b := base{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{},
		timeout: defaultTimeout,
		tracer:  otel.Tracer("libralend/clients"),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    name,
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
	})
	return b
}

// BreakerState reports the state of the client's circuit breaker.
func (b *base) BreakerState() string {
	return b.breaker.State().String()
}

func (b *base) do(ctx context.Context, operation, method, path string, payload any) (*response, error) {
	ctx, span := b.tracer.Start(ctx, b.name+"."+operation, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
	)

	out, err := b.breaker.Execute(func() (interface{}, error) {
		resp, err := b.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
		}
		return &response{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	res := out.(*response)
	span.SetAttributes(attribute.Int("http.response.status_code", res.status))
	return res, nil
}

func (r *response) decode(v any) error {
	if err := json.Unmarshal(r.body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func unexpected(status int) error {
	return fmt.Errorf("%w: %s", ErrUnexpectedStatus, strconv.Itoa(status))
}
