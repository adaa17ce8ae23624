package transform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/pagecraft/bridge"
)

// Status of one rule after application.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// RuleResult reports the outcome of one rule.
type RuleResult struct {
	RuleID  string `json:"rule_id"`
	Type    Type   `json:"type"`
	Locator string `json:"locator"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// Report aggregates a batch application.
type Report struct {
	Applied   int          `json:"applied"`
	Skipped   int          `json:"skipped"`
	Failed    int          `json:"failed"`
	Abandoned bool         `json:"abandoned"` // document gone mid-batch
	Results   []RuleResult `json:"results"`
}

func (rep *Report) add(res RuleResult) {
	switch res.Status {
	case StatusApplied:
		rep.Applied++
	case StatusSkipped:
		rep.Skipped++
	case StatusFailed:
		rep.Failed++
	}
	rep.Results = append(rep.Results, res)
}

// Applier executes rules against the page behind an Executor.
type Applier struct {
	exec   bridge.Executor
	logger *slog.Logger
}

// NewApplier creates an Applier.
func NewApplier(exec bridge.Executor, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{exec: exec, logger: logger}
}

// Apply executes one rule. A locator that no longer resolves yields
// StatusSkipped, not an error; the error return is reserved for losing
// the document or the bridge itself.
func (a *Applier) Apply(ctx context.Context, r *Rule) (RuleResult, error) {
	res := RuleResult{RuleID: r.ID, Type: r.Type, Locator: string(r.Locator)}

	script, err := buildScript(r)
	if err != nil {
		res.Status = StatusFailed
		res.Reason = err.Error()
		return res, nil
	}

	raw, err := a.exec.Eval(ctx, script)
	if err != nil {
		if errors.Is(err, bridge.ErrDocumentGone) {
			res.Status = StatusSkipped
			res.Reason = "document gone"
			return res, err
		}
		res.Status = StatusFailed
		res.Reason = err.Error()
		a.logger.Warn("transform: rule eval failed", "rule", r.ID, "type", r.Type, "error", err)
		return res, nil
	}

	var out struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		res.Status = StatusFailed
		res.Reason = fmt.Sprintf("bad script result: %v", err)
		return res, nil
	}

	switch out.Status {
	case "applied":
		res.Status = StatusApplied
	case "not_found":
		res.Status = StatusSkipped
		res.Reason = "locator did not resolve"
	case "target_not_found":
		res.Status = StatusSkipped
		res.Reason = "move target did not resolve"
	default:
		res.Status = StatusFailed
		res.Reason = fmt.Sprintf("unexpected status %q", out.Status)
	}
	return res, nil
}

// ApplyAll executes rules in ascending OrderIndex. Each rule succeeds
// or fails independently; there is no rollback. When the document goes
// away mid-batch the remaining rules are reported as skipped and
// ErrDocumentGone is returned alongside the partial report.
func (a *Applier) ApplyAll(ctx context.Context, rules []Rule) (*Report, error) {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})

	rep := &Report{}
	for i := range ordered {
		r := &ordered[i]
		res, err := a.Apply(ctx, r)
		rep.add(res)

		if err != nil && errors.Is(err, bridge.ErrDocumentGone) {
			// Abandon the rest: each remaining rule is reported, not retried.
			rep.Abandoned = true
			for _, rest := range ordered[i+1:] {
				rep.add(RuleResult{
					RuleID:  rest.ID,
					Type:    rest.Type,
					Locator: string(rest.Locator),
					Status:  StatusSkipped,
					Reason:  "batch abandoned: document gone",
				})
			}
			a.logger.Warn("transform: batch abandoned",
				"applied", rep.Applied, "skipped", rep.Skipped)
			return rep, err
		}
		if err != nil {
			return rep, err
		}
	}

	a.logger.Info("transform: batch applied",
		"rules", len(ordered), "applied", rep.Applied, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}
