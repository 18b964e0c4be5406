package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"

	"github.com/jonwraymond/breadcrumb/internal/config"
	"github.com/jonwraymond/breadcrumb/trail"
)

const fixture = "testdata/wiki.yaml"

const installTrail = `<div id="breadcrumb"><a href="/wiki/Docs">Docs</a> &gt; <a href="/wiki/Docs/Guide">User <i>Guide</i></a> &gt; Docs/Guide/Install</div>`

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd, state := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := state.execute(context.Background(), cmd)
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, "", "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if !strings.HasPrefix(out, "trailctl ") {
		t.Errorf("version output = %q", out)
	}
}

func TestRender_Warm(t *testing.T) {
	out, err := runCLI(t, "", "--fixture", fixture, "render", "--warm", "Docs/Guide/Install")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	if !strings.Contains(out, "# Docs/Guide/Install\n") || !strings.Contains(out, installTrail) {
		t.Errorf("render output = %q", out)
	}
}

func TestRender_JSON(t *testing.T) {
	out, err := runCLI(t, "", "--fixture", fixture, "render", "--all", "--warm", "--json")
	if err != nil {
		t.Fatalf("render error = %v", err)
	}
	var pages []renderedPage
	if err := json.Unmarshal([]byte(out), &pages); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(pages) != 4 || pages[0].Title != "Archive" {
		t.Fatalf("pages = %+v", pages)
	}
	if !strings.Contains(pages[3].Content, installTrail) {
		t.Errorf("install content = %q", pages[3].Content)
	}
}

func TestRender_Errors(t *testing.T) {
	_, err := runCLI(t, "", "--fixture", fixture, "render")
	if !errors.Is(err, errUsage) || exitCode(err) != exitUserError {
		t.Errorf("render without pages error = %v", err)
	}

	_, err = runCLI(t, "", "--fixture", fixture, "render", "Nowhere")
	if err == nil || exitCode(err) != exitUserError {
		t.Errorf("render missing page error = %v", err)
	}
}

func TestInvalidConfig(t *testing.T) {
	_, err := runCLI(t, "", "--backend", "redis", "render", "--all")
	if !errors.Is(err, config.ErrInvalidConfig) || exitCode(err) != exitUserError {
		t.Errorf("error = %v, want invalid config", err)
	}
}

func TestSaveAndShowCache(t *testing.T) {
	out, err := runCLI(t, "{{#breadcrumb: Docs}}", "--fixture", fixture, "save", "Docs/FAQ")
	if err != nil {
		t.Fatalf("save error = %v", err)
	}
	if out != "saved Docs/FAQ (id 5)\n" {
		t.Errorf("save output = %q", out)
	}

	out, err = runCLI(t, "", "--fixture", fixture, "show-cache", "--warm", "--json")
	if err != nil {
		t.Fatalf("show-cache error = %v", err)
	}
	var entries []cacheEntry
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	// Archive carries no breadcrumb tag, and Docs/FAQ lived only in the
	// first invocation's wiki.
	if len(entries) != 3 {
		t.Fatalf("entries = %+v, want one per tagged fixture page", entries)
	}
	parents := map[string]string{}
	for _, e := range entries {
		parents[e.Title] = e.Parent
	}
	if parents["Docs/Guide/Install"] != "Docs/Guide" || parents["Docs"] != "" {
		t.Errorf("parents = %v", parents)
	}
}

func TestShowCache_Table(t *testing.T) {
	out, err := runCLI(t, "", "--fixture", fixture, "show-cache", "--warm")
	if err != nil {
		t.Fatalf("show-cache error = %v", err)
	}
	if !strings.HasPrefix(out, "TITLE") || !strings.Contains(out, "Docs/Guide/Install") {
		t.Errorf("show-cache output = %q", out)
	}
}

func TestPersistentBackends(t *testing.T) {
	for _, backend := range []string{"sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ancestors")
			base := []string{"--fixture", fixture, "--backend", backend, "--cache-path", path}

			// Each invocation is a separate process-lifetime: records written
			// by the first must be visible to the next.
			if _, err := runCLI(t, "", append(base, "render", "--all")...); err != nil {
				t.Fatalf("render error = %v", err)
			}
			out, err := runCLI(t, "", append(base, "render", "Docs/Guide/Install")...)
			if err != nil {
				t.Fatalf("render error = %v", err)
			}
			if !strings.Contains(out, installTrail) {
				t.Errorf("render after reopen = %q", out)
			}

			if _, err := runCLI(t, "{{#breadcrumb: Archive}}", append(base, "save", "Docs/Guide")...); err != nil {
				t.Fatalf("save error = %v", err)
			}
			out, err = runCLI(t, "", append(base, "show-cache", "--json")...)
			if err != nil {
				t.Fatalf("show-cache error = %v", err)
			}
			if strings.Contains(out, `"title": "Docs/Guide"`) {
				t.Errorf("saved page record should be invalidated: %s", out)
			}
		})
	}
}

func TestFailedCommandReleasesStore(t *testing.T) {
	for _, backend := range []string{"sqlite", "badger"} {
		t.Run(backend, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "ancestors")
			base := []string{"--fixture", fixture, "--backend", backend, "--cache-path", path}

			if _, err := runCLI(t, "", append(base, "render", "No such page")...); err == nil {
				t.Fatal("render of a missing page succeeded")
			}
			if _, err := runCLI(t, "", append(base, "render", "Docs")...); err != nil {
				t.Fatalf("render after failed command error = %v", err)
			}
		})
	}
}

func TestHealthCmd(t *testing.T) {
	out, err := runCLI(t, "", "health")
	if err != nil {
		t.Fatalf("health error = %v", err)
	}
	var report struct {
		Status string                     `json:"status"`
		Checks map[string]json.RawMessage `json:"checks"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.Status != "healthy" {
		t.Errorf("status = %q", report.Status)
	}
	if _, ok := report.Checks["ancestors"]; !ok {
		t.Errorf("checks = %v", report.Checks)
	}
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg, err := config.Load("", func(v *viper.Viper) error {
		v.Set("wiki.fixture", fixture)
		v.Set("observe.log_level", "error")
		return nil
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	a, err := newApp(context.Background(), cfg, io.Discard)
	if err != nil {
		t.Fatalf("newApp() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a
}

func TestRoutes(t *testing.T) {
	a := newTestApp(t)
	srv := httptest.NewServer(a.routes())
	t.Cleanup(srv.Close)

	get := func(path string) (int, string) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	for _, p := range []string{"/wiki/Docs", "/wiki/Docs/Guide"} {
		if code, _ := get(p); code != http.StatusOK {
			t.Fatalf("GET %s = %d", p, code)
		}
	}
	code, body := get("/wiki/Docs/Guide/Install")
	if code != http.StatusOK || !strings.Contains(body, installTrail) {
		t.Errorf("GET install = %d %q", code, body)
	}

	if code, _ := get("/wiki/Nowhere"); code != http.StatusNotFound {
		t.Errorf("GET missing = %d, want 404", code)
	}
	if code, body := get("/new"); code != http.StatusOK || body != trail.PreloadTag {
		t.Errorf("GET /new = %d %q", code, body)
	}
	if code, body := get("/readyz"); code != http.StatusOK || body != "OK" {
		t.Errorf("GET /readyz = %d %q", code, body)
	}
	if code, _ := get("/metrics"); code != http.StatusNotFound {
		t.Errorf("GET /metrics = %d, want 404 without prometheus", code)
	}

	req, _ := http.NewRequest(http.MethodPut, srv.URL+"/wiki/Docs/Guide", strings.NewReader("{{#breadcrumb: Archive}}"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("PUT = %d", resp.StatusCode)
	}
	get("/wiki/Archive")
	get("/wiki/Docs/Guide")
	_, body = get("/wiki/Docs/Guide/Install")
	if !strings.Contains(body, `<a href="/wiki/Archive">Archive</a> &gt; <a href="/wiki/Docs/Guide">Docs/Guide</a>`) {
		t.Errorf("after PUT = %q", body)
	}
}

func TestServe_Shutdown(t *testing.T) {
	a := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, "127.0.0.1:0") }()
	cancel()
	if err := <-done; err != nil {
		t.Errorf("serve() error = %v", err)
	}
}
