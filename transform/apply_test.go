package transform

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/hazyhaar/pagecraft/bridge"
	"github.com/hazyhaar/pagecraft/locator"
)

func locatorOf(s string) locator.Locator { return locator.Locator(s) }

func contains(s, sub string) bool { return strings.Contains(s, sub) }

// fakePage is a stub bridge.Executor simulating a page as a set of
// resolvable locators. remove scripts delete their locator so later
// rules on the same path see not_found, mirroring live behaviour.
type fakePage struct {
	live    map[string]bool
	calls   int
	goneAt  int // fail with ErrDocumentGone on call number goneAt (1-based); 0 = never
	applied []string
}

var resolveArgRe = regexp.MustCompile(`resolve\("((?:[^"\\]|\\.)*)"\)`)

func newFakePage(locators ...string) *fakePage {
	p := &fakePage{live: make(map[string]bool)}
	for _, l := range locators {
		p.live[l] = true
	}
	return p
}

func (p *fakePage) Eval(_ context.Context, script string) (json.RawMessage, error) {
	p.calls++
	if p.goneAt > 0 && p.calls >= p.goneAt {
		return nil, bridge.ErrDocumentGone
	}

	matches := resolveArgRe.FindAllStringSubmatch(script, -1)
	if len(matches) == 0 {
		return nil, errors.New("fakePage: no resolve call in script")
	}

	var loc string
	if err := json.Unmarshal([]byte(`"`+matches[0][1]+`"`), &loc); err != nil {
		return nil, err
	}
	if !p.live[loc] {
		return json.RawMessage(`{"status":"not_found"}`), nil
	}

	if len(matches) > 1 {
		var target string
		if err := json.Unmarshal([]byte(`"`+matches[1][1]+`"`), &target); err != nil {
			return nil, err
		}
		if !p.live[target] {
			return json.RawMessage(`{"status":"target_not_found"}`), nil
		}
	}

	if strings.Contains(script, "el.remove()") {
		delete(p.live, loc)
	}
	p.applied = append(p.applied, loc)
	return json.RawMessage(`{"status":"applied"}`), nil
}

func mustRule(t *testing.T, id string, typ Type, loc string, p Params, order int) Rule {
	t.Helper()
	r, err := NewRule(id, typ, locatorOf(loc), p, order)
	if err != nil {
		t.Fatalf("NewRule(%s): %v", id, err)
	}
	return *r
}

func TestApplyHide(t *testing.T) {
	page := newFakePage("/html/body/div")
	a := NewApplier(page, nil)

	r := mustRule(t, "r1", TypeHide, "/html/body/div", Params{}, 0)
	res, err := a.Apply(context.Background(), &r)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Status != StatusApplied {
		t.Errorf("status: got %q", res.Status)
	}
}

func TestApplyNotFoundSkips(t *testing.T) {
	page := newFakePage("/html/body/div")
	a := NewApplier(page, nil)

	r := mustRule(t, "r1", TypeHide, "/html/body/article", Params{}, 0)
	res, err := a.Apply(context.Background(), &r)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Status != StatusSkipped {
		t.Errorf("status: got %q, want skipped", res.Status)
	}
}

func TestApplyMoveTargetNotFound(t *testing.T) {
	page := newFakePage("/html/body/div")
	a := NewApplier(page, nil)

	r := mustRule(t, "r1", TypeMove, "/html/body/div",
		Params{Target: "/html/body/main", Position: PosAppend}, 0)
	res, err := a.Apply(context.Background(), &r)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Status != StatusSkipped {
		t.Errorf("status: got %q, want skipped", res.Status)
	}
	if !contains(res.Reason, "target") {
		t.Errorf("reason: got %q", res.Reason)
	}
}

func TestApplyAllOrdering(t *testing.T) {
	// WHAT: Rules execute in ascending OrderIndex regardless of slice order.
	page := newFakePage("/html/body/p[1]", "/html/body/p[2]", "/html/body/p[3]")
	a := NewApplier(page, nil)

	rules := []Rule{
		mustRule(t, "c", TypeHide, "/html/body/p[3]", Params{}, 2),
		mustRule(t, "a", TypeHide, "/html/body/p[1]", Params{}, 0),
		mustRule(t, "b", TypeHide, "/html/body/p[2]", Params{}, 1),
	}
	rep, err := a.ApplyAll(context.Background(), rules)
	if err != nil {
		t.Fatalf("applyAll: %v", err)
	}
	if rep.Applied != 3 {
		t.Fatalf("applied: got %d", rep.Applied)
	}
	want := []string{"/html/body/p[1]", "/html/body/p[2]", "/html/body/p[3]"}
	for i, loc := range want {
		if page.applied[i] != loc {
			t.Errorf("order[%d]: got %s, want %s", i, page.applied[i], loc)
		}
	}
}

func TestApplyAllSkipContinues(t *testing.T) {
	// WHAT: A rule targeting a locator already removed by an earlier rule
	// reports skipped; subsequent rules still run.
	// WHY: Per-rule failure isolation is the batch contract.
	page := newFakePage("/html/body/div", "/html/body/p")
	a := NewApplier(page, nil)

	rules := []Rule{
		mustRule(t, "j", TypeRemove, "/html/body/div", Params{}, 0),
		mustRule(t, "k", TypeHide, "/html/body/div", Params{}, 1),
		mustRule(t, "l", TypeHide, "/html/body/p", Params{}, 2),
	}
	rep, err := a.ApplyAll(context.Background(), rules)
	if err != nil {
		t.Fatalf("applyAll: %v", err)
	}
	if rep.Applied != 2 || rep.Skipped != 1 {
		t.Fatalf("report: applied=%d skipped=%d", rep.Applied, rep.Skipped)
	}
	if rep.Results[1].RuleID != "k" || rep.Results[1].Status != StatusSkipped {
		t.Errorf("rule k: %+v", rep.Results[1])
	}
	if rep.Results[2].RuleID != "l" || rep.Results[2].Status != StatusApplied {
		t.Errorf("rule l: %+v", rep.Results[2])
	}
}

func TestApplyAllDocumentGoneAbandons(t *testing.T) {
	// WHAT: Mid-batch navigation abandons remaining rules, reporting them
	// as skipped, and surfaces ErrDocumentGone. No retry.
	page := newFakePage("/html/body/p[1]", "/html/body/p[2]", "/html/body/p[3]")
	page.goneAt = 2
	a := NewApplier(page, nil)

	rules := []Rule{
		mustRule(t, "a", TypeHide, "/html/body/p[1]", Params{}, 0),
		mustRule(t, "b", TypeHide, "/html/body/p[2]", Params{}, 1),
		mustRule(t, "c", TypeHide, "/html/body/p[3]", Params{}, 2),
	}
	rep, err := a.ApplyAll(context.Background(), rules)
	if !errors.Is(err, bridge.ErrDocumentGone) {
		t.Fatalf("expected ErrDocumentGone, got %v", err)
	}
	if !rep.Abandoned {
		t.Error("report should be abandoned")
	}
	if rep.Applied != 1 {
		t.Errorf("applied: got %d, want 1", rep.Applied)
	}
	if len(rep.Results) != 3 {
		t.Fatalf("results: got %d, want 3", len(rep.Results))
	}
	if rep.Results[2].Status != StatusSkipped {
		t.Errorf("rule c: %+v", rep.Results[2])
	}
}

func TestApplyIdempotentHighlight(t *testing.T) {
	// The highlight script itself guards re-application; here we verify
	// the generated script carries the guard.
	r := mustRule(t, "r1", TypeHighlight, "/html/body/div", Params{}, 0)
	script, err := buildScript(&r)
	if err != nil {
		t.Fatalf("buildScript: %v", err)
	}
	if !contains(script, "pagecraftHighlight") {
		t.Error("highlight script missing idempotence guard")
	}
}

func TestApplyAllEmpty(t *testing.T) {
	a := NewApplier(newFakePage(), nil)
	rep, err := a.ApplyAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("applyAll: %v", err)
	}
	if len(rep.Results) != 0 {
		t.Errorf("results: got %d", len(rep.Results))
	}
}
