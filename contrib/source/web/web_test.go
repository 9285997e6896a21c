package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/convoflow-ai/convoflow/retrieval"
)

const testPage = `<!DOCTYPE html>
<html><body>
<h1>VA Loan Basics</h1>
<p>A VA loan is a mortgage guaranteed by the Department of Veterans Affairs.</p>
<p>Eligible veterans can purchase a home with no down payment.</p>
<p>The weather today is sunny with light winds.</p>
<ul><li>VA loans often have lower interest rates than conventional loans.</li></ul>
</body></html>`

func TestSearchRanksByTermOverlap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer srv.Close()

	source, err := New([]string{srv.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if source.Kind() != retrieval.SourceWeb {
		t.Errorf("Kind() = %q, want %q", source.Kind(), retrieval.SourceWeb)
	}

	snippets, err := source.Search(context.Background(), "VA loan mortgage veterans", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(snippets) == 0 {
		t.Fatal("Search() returned no snippets")
	}
	if len(snippets) > 3 {
		t.Errorf("Search() returned %d snippets, want at most 3", len(snippets))
	}

	if !strings.Contains(snippets[0].Text, "Department of Veterans Affairs") {
		t.Errorf("top snippet = %q, want the most term-dense paragraph", snippets[0].Text)
	}
	for _, sn := range snippets {
		if strings.Contains(sn.Text, "weather") {
			t.Errorf("irrelevant block retrieved: %q", sn.Text)
		}
		if sn.Kind != retrieval.SourceWeb {
			t.Errorf("snippet Kind = %q, want %q", sn.Kind, retrieval.SourceWeb)
		}
		if sn.Score <= 0 || sn.Score > 1 {
			t.Errorf("snippet Score = %v, want within (0, 1]", sn.Score)
		}
	}

	// Scores are sorted descending.
	for i := 1; i < len(snippets); i++ {
		if snippets[i].Score > snippets[i-1].Score {
			t.Errorf("snippets out of order at %d: %v > %v", i, snippets[i].Score, snippets[i-1].Score)
		}
	}
}

func TestSearchSkipsFailingPages(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testPage))
	}))
	defer good.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()

	source, err := New([]string{bad.URL, good.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	snippets, err := source.Search(context.Background(), "VA loan", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(snippets) == 0 {
		t.Error("Search() returned no snippets despite a healthy page")
	}
}

func TestSearchAllPagesFailing(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer bad.Close()

	source, err := New([]string{bad.URL})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := source.Search(context.Background(), "anything", 5); err == nil {
		t.Error("Search() error = nil, want failure when every page is down")
	}
}

func TestNewRequiresPages(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) error = nil, want error")
	}
}

func TestSearchCancelledContext(t *testing.T) {
	source, err := New([]string{"http://127.0.0.1:0/unreachable"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := source.Search(ctx, "q", 5); err == nil {
		t.Error("Search() error = nil, want context error")
	}
}
