package static

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/retrievex/internal/domain"
	"github.com/kailas-cloud/retrievex/internal/domain/source"
)

// resolveCtx bounds the best-effort DNS check inside Resolve.
func resolveCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := New(Config{
		App: "search-hub",
		Endpoints: map[string]string{
			"KB":      "http://127.0.0.1:9001/search",
			"TICKETS": "http://127.0.0.1:9002/search",
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return reg
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(Config{Endpoints: map[string]string{"KB": "http://x/search"}}); err == nil {
		t.Fatal("expected error without app")
	}
	if _, err := New(Config{App: "search-hub"}); err == nil {
		t.Fatal("expected error without endpoints")
	}
}

func TestNew_DerivesEndpointFromTemplate(t *testing.T) {
	reg, err := New(Config{
		App:       "search-hub",
		Endpoints: map[string]string{"KB": ""},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	eps, err := reg.Resolve(resolveCtx(t), source.Names("KB"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "http://kb.worker.search-hub.app.localspace:5000/search"
	if eps[0].URL != want {
		t.Fatalf("derived URL = %q, want %q", eps[0].URL, want)
	}
}

func TestNew_TemplateOverrides(t *testing.T) {
	reg, err := New(Config{
		App:       "search-hub",
		Endpoints: map[string]string{"KB": ""},
		Process:   "web",
		Port:      8080,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	eps, err := reg.Resolve(resolveCtx(t), source.Names("KB"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := "http://kb.web.search-hub.app.localspace:8080/search"
	if eps[0].URL != want {
		t.Fatalf("derived URL = %q, want %q", eps[0].URL, want)
	}
}

func TestResolve_All(t *testing.T) {
	reg := newTestRegistry(t)

	eps, err := reg.Resolve(resolveCtx(t), source.All())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(eps) != 2 || eps[0].Name != "KB" || eps[1].Name != "TICKETS" {
		t.Fatalf("Resolve(all) = %v, want sorted KB, TICKETS", eps)
	}
}

func TestResolve_Explicit(t *testing.T) {
	reg := newTestRegistry(t)

	eps, err := reg.Resolve(resolveCtx(t), source.Names("TICKETS"))
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(eps) != 1 || eps[0].Name != "TICKETS" {
		t.Fatalf("Resolve = %v", eps)
	}
}

func TestResolve_UnknownSource(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := reg.Resolve(resolveCtx(t), source.Names("KB", "GHOST"))
	if !errors.Is(err, domain.ErrUnknownSource) {
		t.Fatalf("err = %v, want ErrUnknownSource", err)
	}

	var unknown *domain.UnknownSourceError
	if !errors.As(err, &unknown) {
		t.Fatalf("err = %T, want *UnknownSourceError", err)
	}
	if unknown.Source != "GHOST" || unknown.App != "search-hub" {
		t.Fatalf("unknown = %+v", unknown)
	}
}

func TestHostOf(t *testing.T) {
	cases := map[string]string{
		"http://kb.worker.app.app.localspace:5000/search": "kb.worker.app.app.localspace",
		"http://127.0.0.1:9001/search":                    "127.0.0.1",
		"https://kb.example.com/search":                   "kb.example.com",
	}
	for raw, want := range cases {
		if got := hostOf(raw); got != want {
			t.Fatalf("hostOf(%q) = %q, want %q", raw, got, want)
		}
	}
}
