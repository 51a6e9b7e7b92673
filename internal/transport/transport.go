package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout     = 10 * time.Second
	defaultKeepAlive       = 30 * time.Second
	defaultIdleConnTimeout = 90 * time.Second
)

// Request is a single outbound HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the fully read reply to a Request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Func performs one HTTP exchange. Adapters receive a Func at construction so
// tests and embedders can substitute the network.
type Func func(ctx context.Context, req Request) (*Response, error)

// HTTP adapts an *http.Client into a Func. A nil client gets a pooled
// transport with connection-level timeouts only; request deadlines are left to
// the caller's context.
func HTTP(client *http.Client) Func {
	if client == nil {
		client = NewHTTPClient()
	}
	return func(ctx context.Context, req Request) (*Response, error) {
		var body io.Reader
		if req.Body != nil {
			body = bytes.NewReader(req.Body)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
		if err != nil {
			return nil, fmt.Errorf("construct request: %w", err)
		}
		for k, vv := range req.Header {
			for _, v := range vv {
				httpReq.Header.Add(k, v)
			}
		}

		httpResp, err := client.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", req.Method, redact(httpReq), err)
		}
		defer httpResp.Body.Close()

		data, err := io.ReadAll(httpResp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response body: %w", err)
		}
		return &Response{
			StatusCode: httpResp.StatusCode,
			Header:     httpResp.Header.Clone(),
			Body:       data,
		}, nil
	}
}

// NewHTTPClient returns the client used when none is injected.
func NewHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAlive}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          50,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// WithLogging wraps next so every exchange is logged at debug level.
func WithLogging(next Func, logger *slog.Logger) Func {
	if next == nil {
		next = HTTP(nil)
	}
	if logger == nil {
		return next
	}
	return func(ctx context.Context, req Request) (*Response, error) {
		start := time.Now()
		resp, err := next(ctx, req)
		attrs := []any{
			"method", req.Method,
			"url", redactURL(req.URL),
			"request_bytes", len(req.Body),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.DebugContext(ctx, "upstream call failed", append(attrs, "error", err)...)
			return nil, err
		}
		if resp != nil {
			attrs = append(attrs, "status", resp.StatusCode, "response_bytes", len(resp.Body))
		}
		logger.DebugContext(ctx, "upstream call", attrs...)
		return resp, nil
	}
}

// ErrNilResponse is returned by Do when a Func yields neither a response nor
// an error.
var ErrNilResponse = errors.New("transport returned nil response")

// Do invokes fn and guards against a nil response.
func Do(ctx context.Context, fn Func, req Request) (*Response, error) {
	resp, err := fn(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNilResponse
	}
	return resp, nil
}

func redact(req *http.Request) string {
	return redactURL(req.URL.String())
}
