package notifier

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestWebhookNotifierPostsJSON(t *testing.T) {
	var gotBody string
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = string(buf)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, time.Second)
	if err := n.Notify(context.Background(), []byte(`{"scan_info":{}}`)); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(gotBody, "scan_info") {
		t.Fatalf("webhook body = %q", gotBody)
	}
	if gotContentType != "application/json" {
		t.Fatalf("content type = %q", gotContentType)
	}
}

func TestWebhookNotifierReturnsErrorOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := New(srv.URL, time.Second)
	if err := n.Notify(context.Background(), []byte(`{}`)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestNoopNotifierAlwaysSucceeds(t *testing.T) {
	if err := (NoopNotifier{}).Notify(context.Background(), []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
}
