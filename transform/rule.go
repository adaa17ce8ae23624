// Package transform represents ordered transformation rules and applies
// them to the live document through the bridge.
//
// Rules are immutable once constructed; NewRule validates parameters so
// a malformed rule never enters a batch or a stored template. Batch
// application is strictly ordered and failure-isolated: a rule whose
// locator no longer resolves is skipped and reported, never aborting
// the rules after it. The only batch-terminating condition is losing
// the document itself.
package transform

import (
	"fmt"
	"regexp"

	"github.com/hazyhaar/pagecraft/locator"
)

// Type identifies a transformation.
type Type string

const (
	TypeHide      Type = "hide"
	TypeRemove    Type = "remove"
	TypeHighlight Type = "highlight"
	TypeReplace   Type = "replace"
	TypeStyle     Type = "style"
	TypeMove      Type = "move"
)

// Position places a moved node relative to its target.
type Position string

const (
	PosBefore Position = "before"
	PosAfter  Position = "after"
	PosAppend Position = "append"
)

// Params carries the type-specific parameters of a rule. Unused fields
// stay zero and are omitted from serialisation.
type Params struct {
	// Replace: new content and whether it is markup or plain text.
	// Markup content is taken verbatim; sanitization, when wanted, is
	// the caller's concern before rule construction.
	Content string `json:"content,omitempty"`
	Markup  bool   `json:"markup,omitempty"`

	// Style: property → value merged into the node's inline style.
	Style map[string]string `json:"style,omitempty"`

	// Highlight: outline color. Empty = default.
	Color string `json:"color,omitempty"`

	// Move: destination locator and insertion position.
	Target   locator.Locator `json:"target,omitempty"`
	Position Position        `json:"position,omitempty"`
}

// Rule is one typed, ordered mutation instruction. Construct with
// NewRule; a Rule that exists has passed validation.
type Rule struct {
	ID         string          `json:"id"`
	Type       Type            `json:"type"`
	Locator    locator.Locator `json:"locator"`
	Params     Params          `json:"parameters"`
	OrderIndex int             `json:"orderIndex"`
}

// ValidationError describes a malformed rule parameter. Rules failing
// validation are never enqueued or persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("transform: invalid %s: %s", e.Field, e.Reason)
}

var (
	cssPropRe  = regexp.MustCompile(`^-?[a-zA-Z][a-zA-Z0-9-]*$`)
	cssColorRe = regexp.MustCompile(`^[#a-zA-Z0-9(),.% -]+$`)
)

// NewRule validates and constructs a Rule. The ID is assigned by the
// caller (typically idgen) so replayed templates keep stable rule IDs.
func NewRule(id string, typ Type, loc locator.Locator, p Params, orderIndex int) (*Rule, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Reason: "empty"}
	}
	if _, err := locator.Parse(loc); err != nil {
		return nil, &ValidationError{Field: "locator", Reason: err.Error()}
	}
	if orderIndex < 0 {
		return nil, &ValidationError{Field: "orderIndex", Reason: "negative"}
	}

	switch typ {
	case TypeHide, TypeRemove:
		// No parameters.

	case TypeHighlight:
		if p.Color != "" && !cssColorRe.MatchString(p.Color) {
			return nil, &ValidationError{Field: "color", Reason: fmt.Sprintf("bad value %q", p.Color)}
		}

	case TypeReplace:
		// Empty content is legal (clears the node); the mode flag is
		// carried by Markup.

	case TypeStyle:
		if len(p.Style) == 0 {
			return nil, &ValidationError{Field: "style", Reason: "empty property map"}
		}
		for prop, val := range p.Style {
			if !cssPropRe.MatchString(prop) {
				return nil, &ValidationError{Field: "style", Reason: fmt.Sprintf("bad property %q", prop)}
			}
			if val == "" {
				return nil, &ValidationError{Field: "style", Reason: fmt.Sprintf("empty value for %q", prop)}
			}
		}

	case TypeMove:
		if _, err := locator.Parse(p.Target); err != nil {
			return nil, &ValidationError{Field: "target", Reason: err.Error()}
		}
		switch p.Position {
		case PosBefore, PosAfter, PosAppend:
		default:
			return nil, &ValidationError{Field: "position", Reason: fmt.Sprintf("bad value %q", p.Position)}
		}

	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unknown type %q", typ)}
	}

	return &Rule{ID: id, Type: typ, Locator: loc, Params: p, OrderIndex: orderIndex}, nil
}
