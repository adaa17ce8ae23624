// Package engine ties targeting, analysis, transformation, presets and
// template persistence together for one browsing surface.
//
// One Engine exists per surface: created when customization opens on a
// tab, torn down with it. All transient state (mode, selection, hover,
// the unsaved rule batch) belongs to the current document and is
// discarded on navigation; only the template store outlives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/net/html"

	"github.com/hazyhaar/pagecraft/analyze"
	"github.com/hazyhaar/pagecraft/bridge"
	"github.com/hazyhaar/pagecraft/idgen"
	"github.com/hazyhaar/pagecraft/locator"
	"github.com/hazyhaar/pagecraft/preset"
	"github.com/hazyhaar/pagecraft/templates"
	"github.com/hazyhaar/pagecraft/transform"
)

// Mode is the interaction mode of the surface.
type Mode string

const (
	ModeBrowse  Mode = "browse"
	ModeInspect Mode = "inspect"
	ModeSelect  Mode = "select"
)

// ErrBadMode reports an unknown mode name.
var ErrBadMode = fmt.Errorf("engine: unknown mode")

// Page is the document surface the engine drives. bridge.Tab satisfies
// it; tests use a stub.
type Page interface {
	bridge.Executor
	HTML(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	URL() string
	Reload(ctx context.Context) error
}

// Engine is the customization engine for one browsing surface.
type Engine struct {
	page    Page
	store   *templates.Store
	applier *transform.Applier
	logger  *slog.Logger
	newID   idgen.Generator

	mu        sync.Mutex
	mode      Mode
	selection *SelectionSet
	hover     locator.Locator
	session   []transform.Rule // applied, unsaved rules in order
	nextOrder int

	stopPicker func() error
}

// New creates an engine over a page. The template store may be shared
// between engines; everything else is per-surface. The picker is
// installed when the page supports script bindings.
func New(page Page, store *templates.Store, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		page:      page,
		store:     store,
		applier:   transform.NewApplier(page, logger),
		logger:    logger,
		newID:     idgen.Default,
		mode:      ModeBrowse,
		selection: NewSelectionSet(),
	}
	if err := e.installPicker(page); err != nil {
		return nil, err
	}
	if err := e.injectPicker(context.Background()); err != nil {
		logger.Warn("engine: picker injection failed", "error", err)
	}
	return e, nil
}

// Close tears the engine down. The page itself is owned by the caller.
func (e *Engine) Close() error {
	if e.stopPicker != nil {
		return e.stopPicker()
	}
	return nil
}

func (e *Engine) injectPicker(ctx context.Context) error {
	_, err := e.page.Eval(ctx, "() => {\n"+pickerJS+"\n}")
	return err
}

// SetMode switches the interaction mode. Entering select mode starts
// with an empty selection; leaving it discards the selection.
func (e *Engine) SetMode(ctx context.Context, m Mode) error {
	switch m {
	case ModeBrowse, ModeInspect, ModeSelect:
	default:
		return fmt.Errorf("%w: %q", ErrBadMode, m)
	}

	e.mu.Lock()
	prev := e.mode
	e.mode = m
	if prev == ModeSelect || m == ModeSelect {
		e.selection.Clear()
	}
	e.hover = ""
	e.mu.Unlock()

	if _, err := e.page.Eval(ctx, fmt.Sprintf("() => window.__pagecraft_setMode(%q)", m)); err != nil {
		e.logger.Warn("engine: set mode in page", "mode", m, "error", err)
	}
	e.logger.Debug("engine: mode", "from", prev, "to", m)
	return nil
}

// Mode returns the current interaction mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Selection returns the selected locators in pick order.
func (e *Engine) Selection() []locator.Locator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selection.Locators()
}

// ClearSelection empties the selection without leaving select mode.
func (e *Engine) ClearSelection() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.Clear()
}

// Hover returns the locator currently under the cursor (inspect mode).
func (e *Engine) Hover() locator.Locator {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hover
}

// handlePick routes a picker gesture by kind under the current mode.
func (e *Engine) handlePick(kind, loc string) {
	l := locator.Locator(loc)
	if _, err := locator.Parse(l); err != nil {
		e.logger.Warn("engine: unparseable locator from picker", "locator", loc)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	switch kind {
	case "hover":
		if e.mode == ModeInspect {
			e.hover = l
		}
	case "select":
		if e.mode == ModeSelect {
			added := e.selection.Toggle(l)
			e.logger.Debug("engine: selection toggled", "locator", loc, "added", added)
		}
	}
}

// ApplyRule validates, constructs and applies one rule. An applied rule
// joins the session batch that SaveTemplate captures. A skipped rule
// (stale locator) does not.
func (e *Engine) ApplyRule(ctx context.Context, typ transform.Type, loc locator.Locator, p transform.Params) (transform.RuleResult, error) {
	e.mu.Lock()
	order := e.nextOrder
	e.mu.Unlock()

	r, err := transform.NewRule(e.newID(), typ, loc, p, order)
	if err != nil {
		return transform.RuleResult{}, err
	}

	res, err := e.applier.Apply(ctx, r)
	if err != nil {
		return res, err
	}
	if res.Status == transform.StatusApplied {
		e.mu.Lock()
		e.session = append(e.session, *r)
		e.nextOrder = order + 1
		e.mu.Unlock()
	}
	return res, nil
}

// ApplyPreset snapshots the document, generates the named preset batch
// and applies it with the usual per-rule isolation. Applied rules join
// the session.
func (e *Engine) ApplyPreset(ctx context.Context, name preset.Name) (*transform.Report, error) {
	doc, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	rules, err := preset.Generate(name, doc)
	if err != nil {
		return nil, err
	}
	return e.applyBatch(ctx, rules, true)
}

// Analyze snapshots the document, collects in-page layout metrics and
// runs the analysis pass. Metric collection failing is not fatal; the
// snapshot heuristics still run.
func (e *Engine) Analyze(ctx context.Context) (*analyze.Result, error) {
	doc, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	var metrics *analyze.Metrics
	if raw, err := e.page.Eval(ctx, analyze.MetricsScript); err != nil {
		e.logger.Warn("engine: metrics collection failed", "error", err)
	} else if m, err := analyze.ParseMetrics(raw); err != nil {
		e.logger.Warn("engine: bad metrics payload", "error", err)
	} else {
		metrics = m
	}

	return analyze.Analyze(doc, metrics), nil
}

// SaveTemplate persists the session batch under name. The URL pattern
// defaults to the exact current page address.
func (e *Engine) SaveTemplate(ctx context.Context, name, urlPattern string) (*templates.Template, error) {
	e.mu.Lock()
	rules := make([]transform.Rule, len(e.session))
	copy(rules, e.session)
	e.mu.Unlock()

	if urlPattern == "" {
		urlPattern = e.page.URL()
	}
	title, err := e.page.Title(ctx)
	if err != nil {
		e.logger.Warn("engine: title unavailable", "error", err)
	}

	t := &templates.Template{
		Name:            name,
		URLPattern:      urlPattern,
		OriginalURL:     e.page.URL(),
		Title:           title,
		Transformations: rules,
	}
	if err := e.store.Save(ctx, t); err != nil {
		return nil, err
	}
	e.logger.Info("engine: template saved", "id", t.ID, "name", name, "rules", len(rules))
	return t, nil
}

// ApplyTemplate replays a stored template against the current document
// in stored order, with per-rule failure isolation. Replayed rules do
// not join the session; the template already owns them.
func (e *Engine) ApplyTemplate(ctx context.Context, id string) (*transform.Report, error) {
	t, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.applyBatch(ctx, t.Transformations, false)
}

// ApplyMatching replays every template matching the current address,
// defaults first. Used on navigation when auto-apply is wanted.
func (e *Engine) ApplyMatching(ctx context.Context) (*transform.Report, error) {
	matched, err := e.store.Match(ctx, e.page.URL())
	if err != nil {
		return nil, err
	}
	var all []transform.Rule
	for _, t := range matched {
		all = append(all, t.Transformations...)
	}
	if len(all) == 0 {
		return &transform.Report{}, nil
	}
	// Stored order within a template is preserved; templates stack in
	// match order.
	for i := range all {
		all[i].OrderIndex = i
	}
	return e.applyBatch(ctx, all, false)
}

// DeleteTemplate removes a stored template.
func (e *Engine) DeleteTemplate(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

// Templates exposes the backing store for listing and direct CRUD.
func (e *Engine) Templates() *templates.Store { return e.store }

// Reset reloads the document, the only way to revert applied rules, and
// discards all transient state.
func (e *Engine) Reset(ctx context.Context) error {
	if err := e.page.Reload(ctx); err != nil {
		return err
	}
	e.clearTransient()
	if err := e.injectPicker(ctx); err != nil {
		e.logger.Warn("engine: picker re-injection failed", "error", err)
	}
	return nil
}

// HandleNavigation discards transient state and re-arms the picker.
// Wire it to the page's navigation watcher.
func (e *Engine) HandleNavigation(newURL string) {
	e.logger.Info("engine: navigation", "url", newURL)
	e.clearTransient()
	if err := e.injectPicker(context.Background()); err != nil {
		e.logger.Warn("engine: picker re-injection failed", "error", err)
	}
}

func (e *Engine) clearTransient() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.selection.Clear()
	e.hover = ""
	e.session = nil
	e.nextOrder = 0
	e.mode = ModeBrowse
}

func (e *Engine) applyBatch(ctx context.Context, rules []transform.Rule, record bool) (*transform.Report, error) {
	rep, err := e.applier.ApplyAll(ctx, rules)
	if rep != nil && record {
		e.mu.Lock()
		for _, res := range rep.Results {
			if res.Status != transform.StatusApplied {
				continue
			}
			for _, r := range rules {
				if r.ID == res.RuleID {
					r.OrderIndex = e.nextOrder
					e.session = append(e.session, r)
					e.nextOrder++
					break
				}
			}
		}
		e.mu.Unlock()
	}
	return rep, err
}

func (e *Engine) snapshot(ctx context.Context) (*html.Node, error) {
	src, err := e.page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("engine: parse snapshot: %w", err)
	}
	return doc, nil
}
