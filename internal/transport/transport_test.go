package transport

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHTTPRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Fatalf("authorization = %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"a":1}` {
			t.Fatalf("body = %s", body)
		}
		w.Header().Set("X-Upstream", "yes")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	defer server.Close()

	fn := HTTP(server.Client())
	resp, err := Do(context.Background(), fn, Request{
		Method: http.MethodPost,
		URL:    server.URL + "/x",
		Header: http.Header{"Authorization": []string{"Bearer k"}},
		Body:   []byte(`{"a":1}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusTeapot || resp.OK() {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Upstream") != "yes" {
		t.Fatalf("header not propagated")
	}
	if string(resp.Body) != "short and stout" {
		t.Fatalf("body = %q", resp.Body)
	}
}

func TestDoRejectsNilResponse(t *testing.T) {
	fn := func(context.Context, Request) (*Response, error) { return nil, nil }
	if _, err := Do(context.Background(), fn, Request{}); err != ErrNilResponse {
		t.Fatalf("err = %v, want ErrNilResponse", err)
	}
}

func TestWithLoggingRedactsKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	next := func(context.Context, Request) (*Response, error) {
		return &Response{StatusCode: 200, Body: []byte("{}")}, nil
	}
	fn := WithLogging(next, logger)
	if _, err := fn(context.Background(), Request{Method: "GET", URL: "https://example.test/v1?key=secret"}); err != nil {
		t.Fatalf("call: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "secret") {
		t.Fatalf("api key leaked into log: %s", out)
	}
	if !strings.Contains(out, "upstream call") || !strings.Contains(out, "status=200") {
		t.Fatalf("unexpected log output: %s", out)
	}
}
