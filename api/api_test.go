package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/net/html"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagecraft/dbopen"
	"github.com/hazyhaar/pagecraft/engine"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/templates"
)

// stubPage mirrors the engine's interactive surface over a parsed
// document so handlers exercise real apply semantics.
type stubPage struct {
	source     string
	doc        *html.Node
	url        string
	lastScript string
}

var resolveArgRe = regexp.MustCompile(`resolve\("((?:[^"\\]|\\.)*)"\)`)

func newStubPage(t *testing.T, src, url string) *stubPage {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return &stubPage{source: src, doc: doc, url: url}
}

func (p *stubPage) Eval(_ context.Context, script string) (json.RawMessage, error) {
	p.lastScript = script
	if strings.Contains(script, "__pagecraft_") {
		return json.RawMessage(`null`), nil
	}
	if strings.Contains(script, "createTreeWalker") {
		return json.RawMessage(`{"min_font_px":15,"mean_block_gap_px":10,"block_count":6}`), nil
	}
	m := resolveArgRe.FindStringSubmatch(script)
	if m == nil {
		return json.RawMessage(`null`), nil
	}
	var loc string
	if err := json.Unmarshal([]byte(`"`+m[1]+`"`), &loc); err != nil {
		return nil, err
	}
	n, err := locator.Resolve(p.doc, locator.Locator(loc))
	if err != nil {
		return json.RawMessage(`{"status":"not_found"}`), nil
	}
	if strings.Contains(script, "el.remove()") {
		n.Parent.RemoveChild(n)
	}
	return json.RawMessage(`{"status":"applied"}`), nil
}

func (p *stubPage) HTML(context.Context) (string, error) {
	var sb strings.Builder
	if err := html.Render(&sb, p.doc); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (p *stubPage) Title(context.Context) (string, error) { return "API Test", nil }
func (p *stubPage) URL() string                           { return p.url }

func (p *stubPage) Reload(context.Context) error {
	doc, err := html.Parse(strings.NewReader(p.source))
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

const pageHTML = `<html><head><title>API Test</title></head><body>
	<div class="sidebar">chrome</div>
	<article><h1>Title</h1><p>Some article content to work against in handler tests.</p></article>
</body></html>`

func testServer(t *testing.T) (*httptest.Server, *stubPage) {
	t.Helper()
	page := newStubPage(t, pageHTML, "https://example.com/page")
	store := templates.NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(templates.Schema)))
	eng, err := engine.New(page, store, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { eng.Close() })

	srv := httptest.NewServer(NewServer(eng, nil, nil).Router())
	t.Cleanup(srv.Close)
	return srv, page
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var out map[string]any
	if strings.Contains(resp.Header.Get("Content-Type"), "json") {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, url, err)
		}
	}
	return resp, out
}

func TestModeEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := do(t, "PUT", srv.URL+"/api/mode", `{"mode":"inspect"}`)
	if resp.StatusCode != 200 || body["mode"] != "inspect" {
		t.Fatalf("put mode: %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, "GET", srv.URL+"/api/mode", "")
	if resp.StatusCode != 200 {
		t.Fatalf("get mode: %d", resp.StatusCode)
	}

	resp, _ = do(t, "PUT", srv.URL+"/api/mode", `{"mode":"paint"}`)
	if resp.StatusCode != 400 {
		t.Errorf("bad mode: %d, want 400", resp.StatusCode)
	}
}

func TestTransformEndpoint(t *testing.T) {
	srv, page := testServer(t)

	resp, body := do(t, "POST", srv.URL+"/api/transformations",
		`{"type":"remove","locator":"/html/body/div"}`)
	if resp.StatusCode != 200 || body["status"] != "applied" {
		t.Fatalf("apply: %d %v", resp.StatusCode, body)
	}
	if _, err := locator.Resolve(page.doc, "/html/body/div"); err == nil {
		t.Error("node still present after remove")
	}

	// Stale locator: skipped, still 200 — failure isolation is per
	// rule, not per request.
	resp, body = do(t, "POST", srv.URL+"/api/transformations",
		`{"type":"hide","locator":"/html/body/div"}`)
	if resp.StatusCode != 200 || body["status"] != "skipped" {
		t.Errorf("stale: %d %v", resp.StatusCode, body)
	}

	// Malformed rule: validation failure, never applied.
	resp, _ = do(t, "POST", srv.URL+"/api/transformations",
		`{"type":"style","locator":"/html/body/article","parameters":{"style":{}}}`)
	if resp.StatusCode != 400 {
		t.Errorf("invalid rule: %d, want 400", resp.StatusCode)
	}
}

func TestTransformSanitize(t *testing.T) {
	srv, page := testServer(t)

	_, body := do(t, "POST", srv.URL+"/api/transformations",
		`{"type":"replace","locator":"/html/body/article","sanitize":true,
		  "parameters":{"content":"<script>alert(1)</script><b>bold</b>","markup":true}}`)
	if body["status"] != "applied" {
		t.Fatalf("replace: %v", body)
	}
	// The rule script embeds content JSON-encoded, so angle brackets
	// appear as < escapes.
	script := strings.NewReplacer(`\u003c`, "<", `\u003e`, ">").Replace(page.lastScript)
	if strings.Contains(script, "<script>") {
		t.Error("script tag survived sanitization")
	}
	if !strings.Contains(script, "<b>") {
		t.Error("benign markup was stripped")
	}
}

func TestPresetEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	resp, body := do(t, "GET", srv.URL+"/api/presets", "")
	if resp.StatusCode != 200 || len(body["presets"].([]any)) != 5 {
		t.Fatalf("presets: %d %v", resp.StatusCode, body)
	}

	resp, body = do(t, "POST", srv.URL+"/api/presets/simplify", "")
	if resp.StatusCode != 200 || body["applied"].(float64) < 1 {
		t.Fatalf("simplify: %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, "POST", srv.URL+"/api/presets/shrinkwrap", "")
	if resp.StatusCode != 404 {
		t.Errorf("unknown preset: %d, want 404", resp.StatusCode)
	}
}

func TestAnalysisEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	resp, body := do(t, "GET", srv.URL+"/api/analysis", "")
	if resp.StatusCode != 200 {
		t.Fatalf("analysis: %d", resp.StatusCode)
	}
	if body["reading_time_minutes"].(float64) != 1 {
		t.Errorf("analysis body: %v", body)
	}
}

func TestTemplateEndpoints(t *testing.T) {
	srv, _ := testServer(t)

	// Shape the page, save the session as a template.
	do(t, "POST", srv.URL+"/api/transformations", `{"type":"remove","locator":"/html/body/div"}`)
	resp, body := do(t, "POST", srv.URL+"/api/templates/", `{"name":"tidy"}`)
	if resp.StatusCode != 201 {
		t.Fatalf("save: %d %v", resp.StatusCode, body)
	}
	id := body["id"].(string)
	if body["urlPattern"] != "https://example.com/page" {
		t.Errorf("urlPattern: %v", body["urlPattern"])
	}

	resp, body = do(t, "GET", srv.URL+"/api/templates/", "")
	if resp.StatusCode != 200 || len(body["templates"].([]any)) != 1 {
		t.Fatalf("list: %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, "GET", srv.URL+"/api/templates/match?url=https://example.com/page", "")
	if resp.StatusCode != 200 {
		t.Fatalf("match: %d", resp.StatusCode)
	}

	// Reset then replay.
	if resp, _ := do(t, "POST", srv.URL+"/api/reset", ""); resp.StatusCode != 200 {
		t.Fatalf("reset: %d", resp.StatusCode)
	}
	resp, body = do(t, "POST", srv.URL+"/api/templates/"+id+"/apply", "")
	if resp.StatusCode != 200 || body["applied"].(float64) != 1 {
		t.Fatalf("replay: %d %v", resp.StatusCode, body)
	}

	resp, _ = do(t, "DELETE", srv.URL+"/api/templates/"+id, "")
	if resp.StatusCode != 200 {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	resp, _ = do(t, "GET", srv.URL+"/api/templates/"+id, "")
	if resp.StatusCode != 404 {
		t.Errorf("get deleted: %d, want 404", resp.StatusCode)
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	resp, err := http.Get(srv.URL + "/api/export/markdown")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "markdown") {
		t.Errorf("content type: %q", ct)
	}
}

func TestAdviceUnconfigured(t *testing.T) {
	srv, _ := testServer(t)
	resp, _ := do(t, "POST", srv.URL+"/api/advice", `{}`)
	if resp.StatusCode != 503 {
		t.Errorf("advice without advisor: %d, want 503", resp.StatusCode)
	}
}
