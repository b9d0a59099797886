package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 10); got != "hello" {
		t.Fatalf("unexpected truncate result: %q", got)
	}
	if got := truncate("hello", 4); got != "hell" {
		t.Fatalf("unexpected truncate result: %q", got)
	}
	if got := truncate("héllo", 2); got != "hé" {
		t.Fatalf("unexpected truncate result: %q", got)
	}
}

func TestFetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<!doctype html><html><head><title>Test Story</title></head><body><article><h1>Test Story</h1><p>Hello world. Officials confirmed the report on Monday after a lengthy review of the evidence presented to the committee.</p><p>The findings will be published next week.</p></article></body></html>`))
	}))
	defer server.Close()

	s := NewReadabilityScraper(2 * time.Second)
	article, err := s.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !strings.Contains(article.Text, "Hello world") {
		t.Fatalf("expected content in text, got %q", article.Text)
	}
	if article.Title == "" {
		t.Fatalf("expected title")
	}
}

func TestFetchNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	s := NewReadabilityScraper(time.Second)
	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestFetchInvalidURL(t *testing.T) {
	s := NewReadabilityScraper(time.Second)
	for _, raw := range []string{"", "ftp://example.com/file", "not a url", "http://"} {
		if _, err := s.Fetch(context.Background(), raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestFetchHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	s := NewReadabilityScraper(50 * time.Millisecond)
	if _, err := s.Fetch(context.Background(), server.URL); err == nil {
		t.Fatalf("expected timeout error")
	}
}

func TestExtractFallback(t *testing.T) {
	html := `<html><head><meta property="og:title" content="OG Title"><title>Plain</title></head>
<body><div><p>First   paragraph.</p><p></p><p>Second
paragraph.</p></div></body></html>`
	title, text, err := extractFallback([]byte(html))
	if err != nil {
		t.Fatalf("extractFallback: %v", err)
	}
	if title != "OG Title" {
		t.Fatalf("unexpected title %q", title)
	}
	if text != "First paragraph.\n\nSecond paragraph." {
		t.Fatalf("unexpected text %q", text)
	}

	title, _, err = extractFallback([]byte(`<html><head><title> Plain </title></head></html>`))
	if err != nil || title != "Plain" {
		t.Fatalf("unexpected fallback title %q err=%v", title, err)
	}
}
