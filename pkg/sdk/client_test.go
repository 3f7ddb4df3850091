package sdk

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNew_RequiresAppOrBaseURL(t *testing.T) {
	if _, err := New(); err == nil {
		t.Fatal("expected error without app or base URL")
	}
}

func TestNew_DiscoveryURL(t *testing.T) {
	c, err := New(WithApp("search-hub"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := "http://worker.search-hub.app.localspace:5000/search"
	if c.searchURL != want {
		t.Fatalf("searchURL = %q, want %q", c.searchURL, want)
	}
}

func TestNew_DiscoveryURLWithDyno(t *testing.T) {
	c, err := New(
		WithApp("search-hub"),
		WithProcessType("web"),
		WithPort(8080),
		WithSpecificDyno("web-2"),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := "http://web-2.web.search-hub.app.localspace:8080/search"
	if c.searchURL != want {
		t.Fatalf("searchURL = %q, want %q", c.searchURL, want)
	}
}

func TestRetrieve(t *testing.T) {
	var gotAuth string
	var gotReq searchRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotReq); err != nil {
			t.Errorf("decode request: %v", err)
		}
		_ = json.NewEncoder(w).Encode(searchResponse{
			Documents: []Document{
				{PageContent: "rotate every 90 days", Metadata: map[string]any{"source": "KB"}},
			},
			Warnings: []Warning{{Stage: "dispatch", Source: "TICKETS", Message: "unreachable"}},
			Grading:  false,
		})
	}))
	defer srv.Close()

	client, err := New(
		WithBaseURL(srv.URL),
		WithToken("jwt-token"),
		WithServices("KB", "TICKETS"),
		WithServiceMaxDocuments(map[string]int{"KB": 5}),
		WithServiceConfidenceThresholds(map[string]float64{"KB": 0.9}),
		WithRerank(5, 0.8),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	docs, warnings, err := client.Retrieve(context.Background(), "how do I rotate keys", "user-1")
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	if gotAuth != "Bearer jwt-token" {
		t.Fatalf("Authorization = %q", gotAuth)
	}
	if gotReq.Query != "how do I rotate keys" || gotReq.User != "user-1" {
		t.Fatalf("wire request = %+v", gotReq)
	}
	if len(gotReq.Services) != 2 || gotReq.Services[0].Service != "KB" {
		t.Fatalf("services on the wire = %+v", gotReq.Services)
	}
	if gotReq.Services[0].MaxDocuments == nil || *gotReq.Services[0].MaxDocuments != 5 {
		t.Fatalf("KB max_documents = %v", gotReq.Services[0].MaxDocuments)
	}
	if gotReq.Services[1].MaxDocuments != nil {
		t.Fatal("TICKETS must not carry a max_documents override")
	}
	if gotReq.Rerank == nil || *gotReq.Rerank.MaxDocuments != 5 || *gotReq.Rerank.ConfidenceThreshold != 0.8 {
		t.Fatalf("rerank on the wire = %+v", gotReq.Rerank)
	}

	if len(docs) != 1 || docs[0].PageContent != "rotate every 90 days" {
		t.Fatalf("documents = %+v", docs)
	}
	if len(warnings) != 1 || warnings[0].Source != "TICKETS" {
		t.Fatalf("warnings = %+v", warnings)
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	client, err := New(WithBaseURL("http://127.0.0.1:9"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, _, err := client.Retrieve(context.Background(), "  ", ""); err == nil {
		t.Fatal("expected error for blank query")
	}
}

func TestRetrieve_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(errorResponse{
			Code:    "unknown_source",
			Message: `source "GHOST" is not registered for app "search-hub"`,
		})
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL), WithServices("GHOST"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = client.Retrieve(context.Background(), "query", "")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unknown_source") {
		t.Fatalf("err = %v, want the service error code", err)
	}
}

func TestRetrieve_NonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream proxy error", http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := New(WithBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, _, err = client.Retrieve(context.Background(), "query", "")
	if err == nil || !strings.Contains(err.Error(), "502") {
		t.Fatalf("err = %v, want the raw status", err)
	}
}

func TestBuildServiceEntries_AllToken(t *testing.T) {
	cfg := &clientConfig{}
	WithServices("all").apply(cfg)
	entries := buildServiceEntries(cfg)
	if len(entries) != 1 || entries[0].Service != "all" {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestBuildServiceEntries_SettingsWithoutSelection(t *testing.T) {
	cfg := &clientConfig{}
	WithServiceMaxDocuments(map[string]int{"KB": 3}).apply(cfg)
	entries := buildServiceEntries(cfg)
	if len(entries) != 2 || entries[0].Service != "all" {
		t.Fatalf("entries = %+v, want the open selection plus the override", entries)
	}
	if entries[1].Service != "KB" || *entries[1].MaxDocuments != 3 {
		t.Fatalf("override entry = %+v", entries[1])
	}
}
