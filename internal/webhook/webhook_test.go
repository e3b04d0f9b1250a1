package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifyPosts(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Method
	}))
	defer srv.Close()

	New(srv.URL, discard()).Notify(context.Background())
	if got != http.MethodPost {
		t.Fatalf("method = %q, want POST", got)
	}
}

func TestNotifyWithoutURLIsNoop(t *testing.T) {
	// Must not panic or block.
	New("", discard()).Notify(context.Background())
}

func TestNotifySwallowsDeliveryFailure(t *testing.T) {
	New("http://127.0.0.1:1/unreachable", discard()).Notify(context.Background())
}
