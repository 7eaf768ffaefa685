package fetcher

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	lastReq    *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

func TestFetch(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
		wantBody  string
		wantErr   bool
	}{
		{
			name:      "successful fetch",
			transport: &mockTransport{body: "<html>ok</html>", statusCode: 200},
			wantBody:  "<html>ok</html>",
		},
		{
			name:      "other 2xx status",
			transport: &mockTransport{body: "partial", statusCode: 203},
			wantBody:  "partial",
		},
		{
			name:      "server error",
			transport: &mockTransport{body: "oops", statusCode: 500},
			wantErr:   true,
		},
		{
			name:      "not found",
			transport: &mockTransport{body: "not found", statusCode: 404},
			wantErr:   true,
		},
		{
			name:      "network error",
			transport: &mockTransport{err: io.ErrUnexpectedEOF},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := New(tt.transport, "")
			body, err := f.Fetch(context.Background(), "https://example.com/")

			if tt.wantErr {
				var fe *FetchError
				if !errors.As(err, &fe) {
					t.Fatalf("expected *FetchError, got %v", err)
				}
				if fe.URL != "https://example.com/" {
					t.Errorf("FetchError.URL = %q", fe.URL)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.wantBody, string(body)); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchSetsBrowserHeaders(t *testing.T) {
	tr := &mockTransport{body: "ok", statusCode: 200}
	if _, err := New(tr, "").Fetch(context.Background(), "https://example.com/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.lastReq.Header.Get("User-Agent"); got != DefaultUserAgent {
		t.Errorf("User-Agent = %q", got)
	}

	tr = &mockTransport{body: "ok", statusCode: 200}
	if _, err := New(tr, "custom/1.0").Fetch(context.Background(), "https://example.com/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := tr.lastReq.Header.Get("User-Agent"); got != "custom/1.0" {
		t.Errorf("User-Agent = %q, want custom/1.0", got)
	}
}

func TestFetchErrorUnwrap(t *testing.T) {
	err := &FetchError{URL: "u", Err: io.ErrUnexpectedEOF}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("FetchError should unwrap to its cause")
	}
}
