package engine

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"testing"

	"golang.org/x/net/html"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/pagecraft/dbopen"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/templates"
	"github.com/hazyhaar/pagecraft/transform"
)

// stubPage backs the engine with a real parsed document: transform
// scripts resolve and mutate the tree the same way the in-page scripts
// would, so batches, presets and re-analysis behave end to end.
type stubPage struct {
	source string
	doc    *html.Node
	url    string
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
	// Picker install and mode pokes carry no resolve call.
	if strings.Contains(script, "__pagecraft_") {
		return json.RawMessage(`null`), nil
	}
	if strings.Contains(script, "createTreeWalker") {
		return json.RawMessage(`{"min_font_px":16,"mean_block_gap_px":12,"block_count":10}`), nil
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

func (p *stubPage) Title(context.Context) (string, error) { return "Stub Page", nil }

func (p *stubPage) URL() string { return p.url }

func (p *stubPage) Reload(context.Context) error {
	doc, err := html.Parse(strings.NewReader(p.source))
	if err != nil {
		return err
	}
	p.doc = doc
	return nil
}

const stubHTML = `<html><head><title>Stub Page</title></head><body>
	<div class="sidebar"><a href="/x">promo</a></div>
	<article><h1>Headline</h1><p>Body text of the article, long enough to count as content for density scoring purposes.</p></article>
</body></html>`

func testEngine(t *testing.T) (*Engine, *stubPage) {
	t.Helper()
	page := newStubPage(t, stubHTML, "https://example.com/story")
	store := templates.NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(templates.Schema)))
	e, err := New(page, store, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return e, page
}

func TestSetMode(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	if err := e.SetMode(ctx, ModeSelect); err != nil {
		t.Fatal(err)
	}
	e.handlePick("select", "/html/body/div")
	if len(e.Selection()) != 1 {
		t.Fatalf("selection: %v", e.Selection())
	}

	// Leaving select mode discards the selection.
	if err := e.SetMode(ctx, ModeBrowse); err != nil {
		t.Fatal(err)
	}
	if len(e.Selection()) != 0 {
		t.Error("selection survived mode exit")
	}

	if err := e.SetMode(ctx, "paint"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestSelectionToggle(t *testing.T) {
	e, _ := testEngine(t)
	if err := e.SetMode(context.Background(), ModeSelect); err != nil {
		t.Fatal(err)
	}

	e.handlePick("select", "/html/body/div")
	e.handlePick("select", "/html/body/article")
	e.handlePick("select", "/html/body/div") // toggle off

	sel := e.Selection()
	if len(sel) != 1 || sel[0] != "/html/body/article" {
		t.Errorf("selection after toggle: %v", sel)
	}
}

func TestHoverOnlyInInspect(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	e.handlePick("hover", "/html/body/div")
	if e.Hover() != "" {
		t.Error("hover recorded in browse mode")
	}

	if err := e.SetMode(ctx, ModeInspect); err != nil {
		t.Fatal(err)
	}
	e.handlePick("hover", "/html/body/div")
	if e.Hover() != "/html/body/div" {
		t.Errorf("hover: %q", e.Hover())
	}
}

func TestPickEventRejectsGarbage(t *testing.T) {
	e, _ := testEngine(t)
	if err := e.SetMode(context.Background(), ModeSelect); err != nil {
		t.Fatal(err)
	}
	e.onPickEvent(json.RawMessage(`{"kind":"select","locator":"not a locator"}`))
	if len(e.Selection()) != 0 {
		t.Error("unparseable locator entered the selection")
	}
}

func TestApplyRuleJoinsSession(t *testing.T) {
	e, page := testEngine(t)
	ctx := context.Background()

	res, err := e.ApplyRule(ctx, transform.TypeRemove, "/html/body/div", transform.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != transform.StatusApplied {
		t.Fatalf("status: %s", res.Status)
	}
	// The sidebar div is gone from the live tree.
	if _, err := locator.Resolve(page.doc, "/html/body/div"); err == nil {
		t.Error("node still resolvable after remove")
	}

	// A stale locator is skipped and stays out of the session.
	res, err = e.ApplyRule(ctx, transform.TypeHide, "/html/body/div", transform.Params{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != transform.StatusSkipped {
		t.Fatalf("stale rule status: %s", res.Status)
	}

	tpl, err := e.SaveTemplate(ctx, "session", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Transformations) != 1 {
		t.Errorf("session rules: %d, want 1", len(tpl.Transformations))
	}
}

func TestSaveTemplateDefaultsToPageURL(t *testing.T) {
	e, page := testEngine(t)
	ctx := context.Background()

	tpl, err := e.SaveTemplate(ctx, "empty", "")
	if err != nil {
		t.Fatal(err)
	}
	if tpl.URLPattern != page.url || tpl.OriginalURL != page.url {
		t.Errorf("urls: %q %q", tpl.URLPattern, tpl.OriginalURL)
	}
	if tpl.Title != "Stub Page" {
		t.Errorf("title: %q", tpl.Title)
	}
}

func TestTemplateRoundTrip(t *testing.T) {
	// WHAT: apply, save, reset, replay. The replayed template restores
	// the mutation on the freshly reloaded document.
	e, page := testEngine(t)
	ctx := context.Background()

	if _, err := e.ApplyRule(ctx, transform.TypeRemove, "/html/body/div", transform.Params{}); err != nil {
		t.Fatal(err)
	}
	tpl, err := e.SaveTemplate(ctx, "tidy", "")
	if err != nil {
		t.Fatal(err)
	}

	if err := e.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := locator.Resolve(page.doc, "/html/body/div"); err != nil {
		t.Fatal("reload did not restore the document")
	}

	rep, err := e.ApplyTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rep.Applied != 1 {
		t.Fatalf("report: %+v", rep)
	}
	if _, err := locator.Resolve(page.doc, "/html/body/div"); err == nil {
		t.Error("replay did not remove the node")
	}
}

func TestApplyPreset(t *testing.T) {
	e, page := testEngine(t)
	ctx := context.Background()

	rep, err := e.ApplyPreset(ctx, "simplify")
	if err != nil {
		t.Fatal(err)
	}
	if rep.Applied == 0 {
		t.Fatalf("report: %+v", rep)
	}
	if _, err := locator.Resolve(page.doc, "/html/body/div"); err == nil {
		t.Error("sidebar survived simplify")
	}

	// Preset rules join the session so SaveTemplate captures them.
	tpl, err := e.SaveTemplate(ctx, "simplified", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Transformations) != rep.Applied {
		t.Errorf("session %d rules, report applied %d", len(tpl.Transformations), rep.Applied)
	}
}

func TestApplyPresetUnknown(t *testing.T) {
	e, _ := testEngine(t)
	if _, err := e.ApplyPreset(context.Background(), "shrinkwrap"); err == nil {
		t.Error("expected error")
	}
}

func TestAnalyze(t *testing.T) {
	e, _ := testEngine(t)
	res, err := e.Analyze(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.LinkCount != 1 || res.ReadingTimeMinutes != 1 {
		t.Errorf("result: %+v", res)
	}
}

func TestResetClearsTransientState(t *testing.T) {
	e, _ := testEngine(t)
	ctx := context.Background()

	if err := e.SetMode(ctx, ModeSelect); err != nil {
		t.Fatal(err)
	}
	e.handlePick("select", "/html/body/div")
	if _, err := e.ApplyRule(ctx, transform.TypeHide, "/html/body/article", transform.Params{}); err != nil {
		t.Fatal(err)
	}

	if err := e.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	if e.Mode() != ModeBrowse || len(e.Selection()) != 0 {
		t.Error("transient state survived reset")
	}
	tpl, err := e.SaveTemplate(ctx, "after-reset", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(tpl.Transformations) != 0 {
		t.Error("session rules survived reset")
	}
}

func TestHandleNavigationClearsState(t *testing.T) {
	e, page := testEngine(t)
	ctx := context.Background()

	if err := e.SetMode(ctx, ModeSelect); err != nil {
		t.Fatal(err)
	}
	e.handlePick("select", "/html/body/div")

	page.url = "https://example.com/next"
	e.HandleNavigation(page.url)

	if len(e.Selection()) != 0 || e.Mode() != ModeBrowse {
		t.Error("navigation left transient state behind")
	}
}

func TestExportMarkdown(t *testing.T) {
	e, _ := testEngine(t)
	md, err := e.ExportMarkdown(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(md, "# Headline") {
		t.Errorf("markdown: %q", md)
	}
	if strings.Contains(md, "promo") {
		t.Errorf("sidebar leaked into export: %q", md)
	}
}
